package authclient

import (
	"context"

	"github.com/mkrupp/authui/internal/domain"
)

// AuthClient defines the calls the frontend makes to the auth backend.
//
// Login and Register return the backend's AuthResult. Any transport problem
// (unreachable backend, non-2xx status, malformed body) is reported as an
// error wrapping domain.ErrNetwork; business failures are never errors.
type AuthClient interface {
	// Login checks credentials.
	Login(ctx context.Context, credentials domain.Credentials) (domain.AuthResult, error)

	// Register creates an account from a normalized registration request.
	Register(ctx context.Context, request domain.RegistrationRequest) (domain.AuthResult, error)

	// BeginGoogleLogin navigates to the backend's OAuth initiation endpoint.
	// It has no observable result.
	BeginGoogleLogin(ctx context.Context)
}

// RedirectableClient is an AuthClient whose redirector can be rebound, so a
// single backend transport can serve many page views.
type RedirectableClient interface {
	AuthClient

	// WithRedirector returns a client that navigates through r.
	WithRedirector(r Redirector) AuthClient
}

// Redirector performs a full page navigation to an external URL.
type Redirector interface {
	Redirect(ctx context.Context, url string)
}

// RedirectorFunc adapts a function to Redirector.
type RedirectorFunc func(ctx context.Context, url string)

// Redirect implements Redirector.
func (f RedirectorFunc) Redirect(ctx context.Context, url string) {
	f(ctx, url)
}
