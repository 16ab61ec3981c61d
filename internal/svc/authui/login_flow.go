package authui

import (
	"context"

	"github.com/mkrupp/authui/internal/domain"
	"github.com/mkrupp/authui/internal/infra/logging"
	"github.com/mkrupp/authui/internal/svc/authclient"
)

// MessageLoginSuccessful is shown after the backend accepted the credentials.
const MessageLoginSuccessful = "Login successful"

// LoginFlow drives the login screen.
type LoginFlow struct {
	flow

	client authclient.AuthClient
	cfg    UIConfig
}

// NewLoginFlow creates a login flow that authenticates with client and hands
// over to the welcome screen through gate.
func NewLoginFlow(client authclient.AuthClient, gate *NavigationGate, cfg UIConfig) *LoginFlow {
	f := &LoginFlow{client: client, cfg: cfg}
	f.setup(gate, cfg.GuardSubmit, logging.GetLogger("svc.authui.login_flow"))

	return f
}

// Submit validates the credentials and, if they pass, sends them to the
// backend. The identifier is sent exactly as typed.
//
// Returns domain.ErrSubmitInProgress while a guarded submission is in flight
// and domain.ErrFlowClosed after Close. Backend failures are not errors;
// they are reported through the snapshot.
func (f *LoginFlow) Submit(ctx context.Context, identifier, password string) (Snapshot, error) {
	credentials := domain.Credentials{Identifier: identifier, Password: password}

	return f.run(ctx, submission{
		validation: ValidateLogin(identifier, password),
		call: func(ctx context.Context) (domain.AuthResult, error) {
			return f.client.Login(ctx, credentials)
		},
		successMessage: MessageLoginSuccessful,
		failureMessage: func(message string) string { return message },
		redirect: redirect{
			target:  domain.RouteWelcome,
			delay:   f.cfg.LoginRedirectDelay,
			payload: domain.NavigationPayload{User: identifier},
		},
	})
}

// BeginGoogleLogin leaves for the backend's OAuth flow.
func (f *LoginFlow) BeginGoogleLogin(ctx context.Context) error {
	f.mu.Lock()
	closed := f.closed
	f.mu.Unlock()

	if closed {
		return domain.ErrFlowClosed
	}

	f.client.BeginGoogleLogin(ctx)

	return nil
}
