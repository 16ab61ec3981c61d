package authui

import (
	"context"

	"github.com/mkrupp/authui/internal/domain"
	"github.com/mkrupp/authui/internal/infra/logging"
	"github.com/mkrupp/authui/internal/svc/authclient"
)

const (
	// MessageRegistrationSuccessful is shown after the account was created.
	MessageRegistrationSuccessful = "Registration successful! Redirecting to login..."
	// MessageRegistrationFailedPrefix precedes the backend's reason.
	MessageRegistrationFailedPrefix = "Registration failed: "
)

// RegisterFlow drives the registration screen.
type RegisterFlow struct {
	flow

	client authclient.AuthClient
	cfg    UIConfig
}

// NewRegisterFlow creates a registration flow that creates accounts with
// client and returns to the login screen through gate.
func NewRegisterFlow(client authclient.AuthClient, gate *NavigationGate, cfg UIConfig) *RegisterFlow {
	f := &RegisterFlow{client: client, cfg: cfg}
	f.setup(gate, cfg.GuardSubmit, logging.GetLogger("svc.authui.register_flow"))

	return f
}

// Submit validates the request and, if it passes, sends its normalized form
// to the backend: only the selected contact field, trimmed.
//
// Errors are those of LoginFlow.Submit.
func (f *RegisterFlow) Submit(ctx context.Context, req domain.RegistrationRequest) (Snapshot, error) {
	normalized := req.Normalized()

	return f.run(ctx, submission{
		validation: ValidateRegistration(req),
		call: func(ctx context.Context) (domain.AuthResult, error) {
			return f.client.Register(ctx, normalized)
		},
		successMessage: MessageRegistrationSuccessful,
		failureMessage: func(message string) string { return MessageRegistrationFailedPrefix + message },
		redirect: redirect{
			target: domain.RouteLogin,
			delay:  f.cfg.RegisterRedirectDelay,
		},
	})
}
