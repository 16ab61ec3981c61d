package authclient

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/mkrupp/authui/internal/domain"
	context_ "github.com/mkrupp/authui/internal/infra/context"
	"github.com/mkrupp/authui/internal/infra/logging"
)

const (
	TraceIDHeader = "X-Request-ID"

	// maxResponseSize bounds how much of a backend response is read.
	maxResponseSize = 1 << 20
)

var (
	errMissingSuccess = errors.New("response has no success field")
	errTrailingData   = errors.New("response has data after the JSON body")
)

// HTTPClientConfig holds configuration for the HTTP auth client.
type HTTPClientConfig struct {
	// BaseURL is the scheme and host of the auth backend
	BaseURL string `env:"BASE_URL" default:"http://localhost:5000"`

	LoginPath       string `env:"LOGIN_PATH" default:"/api/login"`
	RegisterPath    string `env:"REGISTER_PATH" default:"/api/register"`
	GoogleLoginPath string `env:"GOOGLE_LOGIN_PATH" default:"/api/auth/google"`

	// Timeout bounds each backend call
	Timeout time.Duration `env:"TIMEOUT" default:"10s"`
}

// HTTPClient implements AuthClient with JSON POST requests.
type HTTPClient struct {
	httpClient *http.Client
	redirector Redirector
	log        logging.Logger
	cfg        HTTPClientConfig
}

var _ RedirectableClient = (*HTTPClient)(nil)

// NewHTTPClient creates a new HTTPClient with the given configuration.
// If httpClient is nil, a client with cfg.Timeout is used. If redirector is
// nil, BeginGoogleLogin only logs.
func NewHTTPClient(
	cfg HTTPClientConfig,
	httpClient *http.Client,
	redirector Redirector,
) *HTTPClient {
	if httpClient == nil {
		//nolint:exhaustruct
		httpClient = &http.Client{Timeout: cfg.Timeout}
	}

	return &HTTPClient{
		httpClient: httpClient,
		redirector: redirector,
		log:        logging.GetLogger("svc.authclient.http_client"),
		cfg:        cfg,
	}
}

// WithRedirector returns a client sharing the transport of c but navigating
// through r.
func (c *HTTPClient) WithRedirector(r Redirector) AuthClient {
	clone := *c
	clone.redirector = r

	return &clone
}

// Login implements AuthClient.Login with POST {identifier, password}.
func (c *HTTPClient) Login(ctx context.Context, credentials domain.Credentials) (domain.AuthResult, error) {
	result, err := c.post(ctx, c.cfg.LoginPath, credentials)
	if err != nil {
		return domain.AuthResult{}, fmt.Errorf("post login: %w", err)
	}

	return result, nil
}

// Register implements AuthClient.Register with POST {password, email} or
// {password, phone}.
func (c *HTTPClient) Register(ctx context.Context, request domain.RegistrationRequest) (domain.AuthResult, error) {
	result, err := c.post(ctx, c.cfg.RegisterPath, request.Normalized())
	if err != nil {
		return domain.AuthResult{}, fmt.Errorf("post register: %w", err)
	}

	return result, nil
}

// BeginGoogleLogin implements AuthClient.BeginGoogleLogin.
func (c *HTTPClient) BeginGoogleLogin(ctx context.Context) {
	url := c.GoogleLoginURL()

	if c.redirector == nil {
		c.log.WarnContext(ctx, "no redirector for google login", "url", url)

		return
	}

	c.log.DebugContext(ctx, "begin google login", "url", url)
	c.redirector.Redirect(ctx, url)
}

// GoogleLoginURL is the absolute URL of the OAuth initiation endpoint.
func (c *HTTPClient) GoogleLoginURL() string {
	return c.url(c.cfg.GoogleLoginPath)
}

func (c *HTTPClient) url(path string) string {
	return strings.TrimRight(c.cfg.BaseURL, "/") + "/" + strings.TrimLeft(path, "/")
}

// post sends body as JSON and decodes an AuthResult. Every failure is joined
// with domain.ErrNetwork.
func (c *HTTPClient) post(ctx context.Context, path string, body any) (_ domain.AuthResult, err error) {
	log := c.log.With(logging.Group("http", "method", http.MethodPost, "path", path))

	defer func() {
		if err != nil {
			err = errors.Join(domain.ErrNetwork, err)
			log.ErrorContext(ctx, "auth backend call failed", "error", err)
		}
	}()

	payload, err := json.Marshal(body)
	if err != nil {
		return domain.AuthResult{}, fmt.Errorf("marshal body: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url(path), bytes.NewReader(payload))
	if err != nil {
		return domain.AuthResult{}, fmt.Errorf("new request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	if traceID, ok := context_.TraceIDFromContext(ctx); ok {
		req.Header.Set(TraceIDHeader, traceID)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return domain.AuthResult{}, fmt.Errorf("do: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, maxResponseSize))

		return domain.AuthResult{}, fmt.Errorf("unexpected status %d", resp.StatusCode)
	}

	var decoded struct {
		Success *bool  `json:"success"`
		Message string `json:"message"`
	}

	dec := json.NewDecoder(io.LimitReader(resp.Body, maxResponseSize))

	if err := dec.Decode(&decoded); err != nil {
		return domain.AuthResult{}, fmt.Errorf("decode response: %w", err)
	}

	if err := dec.Decode(&struct{}{}); !errors.Is(err, io.EOF) {
		return domain.AuthResult{}, errTrailingData
	}

	if decoded.Success == nil {
		return domain.AuthResult{}, errMissingSuccess
	}

	log.DebugContext(ctx, "auth backend answered", "success", *decoded.Success)

	return domain.AuthResult{Success: *decoded.Success, Message: decoded.Message}, nil
}
