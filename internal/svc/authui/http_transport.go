package authui

import (
	"context"
	"embed"
	"encoding/json"
	"errors"
	"fmt"
	"html/template"
	"io/fs"
	"net/http"
	"time"

	"github.com/gorilla/mux"

	"github.com/mkrupp/authui/internal/domain"
	context_ "github.com/mkrupp/authui/internal/infra/context"
	"github.com/mkrupp/authui/internal/infra/logging"
	http_ "github.com/mkrupp/authui/internal/infra/transport/http"
	"github.com/mkrupp/authui/internal/svc/authclient"
)

//go:embed templates/*.html
var templateFS embed.FS

//go:embed static
var staticFS embed.FS

const maxFormBytes = 64 << 10

// HTTPTransportConfig contains configuration parameters for the HTTP transport layer.
type HTTPTransportConfig struct {
	http_.HTTPTransportConfig
}

// HTTPTransport serves the login, registration and welcome screens.
//
// Every login or registration page opens a view. The page posts its form to
// the view and renders the returned Snapshot; delayed redirects arrive on the
// view's event stream, whose end tears the view down.
type HTTPTransport struct {
	registry  *ViewRegistry
	linker    *NavigationLinker
	client    authclient.RedirectableClient
	templates *template.Template
	router    *mux.Router
	log       logging.Logger
	uiCfg     UIConfig
	cfg       HTTPTransportConfig
}

// NewHTTPTransport creates a new HTTPTransport serving the views of registry.
func NewHTTPTransport(
	registry *ViewRegistry,
	linker *NavigationLinker,
	client authclient.RedirectableClient,
	uiCfg UIConfig,
	cfg HTTPTransportConfig,
) (*HTTPTransport, error) {
	templates, err := template.ParseFS(templateFS, "templates/*.html")
	if err != nil {
		return nil, fmt.Errorf("parse templates: %w", err)
	}

	static, err := fs.Sub(staticFS, "static")
	if err != nil {
		return nil, fmt.Errorf("static files: %w", err)
	}

	ht := &HTTPTransport{
		registry:  registry,
		linker:    linker,
		client:    client,
		templates: templates,
		log:       logging.GetLogger("svc.authui.http_transport"),
		uiCfg:     uiCfg,
		cfg:       cfg,
	}

	router := mux.NewRouter()
	router.HandleFunc("/", ht.HandleLoginPage).Methods(http.MethodGet)
	router.HandleFunc("/register", ht.HandleRegisterPage).Methods(http.MethodGet)
	router.HandleFunc("/welcome", ht.HandleWelcomePage).Methods(http.MethodGet)
	router.HandleFunc("/auth/google", ht.HandleGoogleLogin).Methods(http.MethodGet)

	views := router.PathPrefix("/views/{id}").Subrouter()
	views.HandleFunc("/login", ht.HandleLoginSubmit).Methods(http.MethodPost)
	views.HandleFunc("/register", ht.HandleRegisterSubmit).Methods(http.MethodPost)
	views.HandleFunc("/google", ht.HandleViewGoogleLogin).Methods(http.MethodPost)
	views.HandleFunc("/events", ht.HandleEvents).Methods(http.MethodGet)

	router.PathPrefix("/static/").Handler(http.StripPrefix("/static/", http.FileServer(http.FS(static))))

	ht.router = router

	return ht, nil
}

// ServeHTTP implements http.Handler and sets up routes for the frontend:
// - GET /: Login screen
// - GET /register: Registration screen
// - GET /welcome: Welcome screen
// - GET /auth/google: Redirect to the backend's Google sign-in
// - POST /views/{id}/login: Submit the login form of a view
// - POST /views/{id}/register: Submit the registration form of a view
// - POST /views/{id}/google: Start Google sign-in from a view
// - GET /views/{id}/events: Event stream of a view
// - GET /static/...: Scripts and styles.
func (ht *HTTPTransport) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ht.router.ServeHTTP(w, r)
}

var _ http_.HTTPTransport = (*HTTPTransport)(nil)

type formPage struct {
	Title   string
	ViewID  string
	Methods []domain.RegistrationMethod
}

type welcomePage struct {
	Title string
	User  string
}

// HandleLoginPage opens a login view and renders its page.
func (ht *HTTPTransport) HandleLoginPage(w http.ResponseWriter, r *http.Request) {
	_ = ht.handleFormPage(w, r, ViewKindLogin, "login.html", "Login")
}

// HandleRegisterPage opens a registration view and renders its page.
func (ht *HTTPTransport) HandleRegisterPage(w http.ResponseWriter, r *http.Request) {
	_ = ht.handleFormPage(w, r, ViewKindRegister, "register.html", "Register")
}

func (ht *HTTPTransport) handleFormPage(
	w http.ResponseWriter,
	r *http.Request,
	kind ViewKind,
	name, title string,
) (err error) {
	log := ht.log.With(logging.Group("http", "method", r.Method, "url", r.URL.String()))

	defer func(ctx context.Context) {
		if err != nil {
			log.ErrorContext(ctx, "render page failed", "error", err)
		} else {
			log.DebugContext(ctx, "page rendered", "page", name)
		}
	}(r.Context())

	view, err := ht.registry.Open(r.Context(), kind)
	if err != nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)

		return fmt.Errorf("open view: %w", err)
	}

	w.Header().Set("Cache-Control", "no-store")

	page := formPage{
		Title:   title,
		ViewID:  view.ID,
		Methods: []domain.RegistrationMethod{domain.RegistrationMethodEmail, domain.RegistrationMethodPhone},
	}

	if err := ht.render(w, name, page); err != nil {
		ht.registry.Close(view.ID)

		return err
	}

	return nil
}

// HandleWelcomePage greets the user carried by the link.
func (ht *HTTPTransport) HandleWelcomePage(w http.ResponseWriter, r *http.Request) {
	_ = ht.handleWelcomePage(w, r)
}

func (ht *HTTPTransport) handleWelcomePage(w http.ResponseWriter, r *http.Request) (err error) {
	log := ht.log.With(logging.Group("http", "method", r.Method, "url", r.URL.Path))

	defer func(ctx context.Context) {
		if err != nil {
			log.ErrorContext(ctx, "render welcome failed", "error", err)
		} else {
			log.DebugContext(ctx, "welcome rendered")
		}
	}(r.Context())

	payload, err := ht.linker.Resolve(r.Context(), r.URL.Query())
	if err != nil {
		// A spent or expired link still shows the screen, without the name.
		log.WarnContext(r.Context(), "navigation state unavailable", "error", err)
	}

	w.Header().Set("Cache-Control", "no-store")

	return ht.render(w, "welcome.html", welcomePage{Title: "Welcome", User: DisplayName(payload)})
}

// HandleGoogleLogin redirects the browser to the backend's Google sign-in.
func (ht *HTTPTransport) HandleGoogleLogin(w http.ResponseWriter, r *http.Request) {
	ht.client.WithRedirector(httpRedirector{w: w, r: r}).BeginGoogleLogin(r.Context())
}

// HandleLoginSubmit submits the login form of a view.
// Expects form parameters: identifier, password.
// Responds with the view's Snapshot.
func (ht *HTTPTransport) HandleLoginSubmit(w http.ResponseWriter, r *http.Request) {
	_ = ht.handleSubmit(w, r, func(ctx context.Context, view *View) (Snapshot, error) {
		login, err := view.Login()
		if err != nil {
			return Snapshot{}, err
		}

		return login.Submit(ctx, r.PostFormValue("identifier"), r.PostFormValue("password"))
	})
}

// HandleRegisterSubmit submits the registration form of a view.
// Expects form parameters: method, email, phone, password, confirm.
// Responds with the view's Snapshot.
func (ht *HTTPTransport) HandleRegisterSubmit(w http.ResponseWriter, r *http.Request) {
	_ = ht.handleSubmit(w, r, func(ctx context.Context, view *View) (Snapshot, error) {
		register, err := view.Register()
		if err != nil {
			return Snapshot{}, err
		}

		return register.Submit(ctx, domain.RegistrationRequest{
			Method:   domain.RegistrationMethod(r.PostFormValue("method")),
			Email:    r.PostFormValue("email"),
			Phone:    r.PostFormValue("phone"),
			Password: r.PostFormValue("password"),
			Confirm:  r.PostFormValue("confirm"),
		})
	})
}

func (ht *HTTPTransport) handleSubmit(
	w http.ResponseWriter,
	r *http.Request,
	submit func(ctx context.Context, view *View) (Snapshot, error),
) (err error) {
	id := mux.Vars(r)["id"]
	ctx := context_.WithViewID(r.Context(), id)
	log := ht.log.With(logging.Group("http", "method", r.Method, "url", r.URL.Path))

	defer func() {
		if err != nil {
			log.ErrorContext(ctx, "submit failed", "error", err)
		} else {
			log.DebugContext(ctx, "submitted")
		}
	}()

	r.Body = http.MaxBytesReader(w, r.Body, maxFormBytes)

	if err := r.ParseForm(); err != nil {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)

		return fmt.Errorf("parse form: %w", err)
	}

	view, err := ht.registry.Get(id)
	if err != nil {
		http.Error(w, http.StatusText(http.StatusNotFound), http.StatusNotFound)

		return fmt.Errorf("get view: %w", err)
	}

	snap, err := submit(ctx, view)

	switch {
	case errors.Is(err, domain.ErrSubmitInProgress):
		// The in-flight submission will report the outcome; not a failure.
		log.DebugContext(ctx, "submit rejected", "reason", err)

		return ht.writeJSON(w, http.StatusConflict, snap)
	case errors.Is(err, domain.ErrViewNotFound), errors.Is(err, domain.ErrFlowClosed):
		http.Error(w, http.StatusText(http.StatusNotFound), http.StatusNotFound)

		return fmt.Errorf("submit: %w", err)
	case err != nil:
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)

		return fmt.Errorf("submit: %w", err)
	}

	return ht.writeJSON(w, http.StatusOK, snap)
}

// HandleViewGoogleLogin starts Google sign-in from a login view. The
// redirect is delivered on the view's event stream.
func (ht *HTTPTransport) HandleViewGoogleLogin(w http.ResponseWriter, r *http.Request) {
	_ = ht.handleViewGoogleLogin(w, r)
}

func (ht *HTTPTransport) handleViewGoogleLogin(w http.ResponseWriter, r *http.Request) (err error) {
	id := mux.Vars(r)["id"]
	ctx := context_.WithViewID(r.Context(), id)
	log := ht.log.With(logging.Group("http", "method", r.Method, "url", r.URL.Path))

	defer func() {
		if err != nil {
			log.ErrorContext(ctx, "google login failed", "error", err)
		} else {
			log.DebugContext(ctx, "google login started")
		}
	}()

	view, err := ht.registry.Get(id)
	if err != nil {
		http.Error(w, http.StatusText(http.StatusNotFound), http.StatusNotFound)

		return fmt.Errorf("get view: %w", err)
	}

	login, err := view.Login()
	if err == nil {
		err = login.BeginGoogleLogin(ctx)
	}

	if err != nil {
		http.Error(w, http.StatusText(http.StatusNotFound), http.StatusNotFound)

		return fmt.Errorf("begin google login: %w", err)
	}

	w.WriteHeader(http.StatusAccepted)

	return nil
}

// HandleEvents streams the events of a view as server-sent events. The view
// is torn down when the stream ends.
func (ht *HTTPTransport) HandleEvents(w http.ResponseWriter, r *http.Request) {
	_ = ht.handleEvents(w, r)
}

//nolint:cyclop
func (ht *HTTPTransport) handleEvents(w http.ResponseWriter, r *http.Request) (err error) {
	id := mux.Vars(r)["id"]
	ctx := context_.WithViewID(r.Context(), id)
	log := ht.log.With(logging.Group("http", "method", r.Method, "url", r.URL.Path))

	defer func() {
		if err != nil {
			log.ErrorContext(ctx, "event stream failed", "error", err)
		} else {
			log.DebugContext(ctx, "event stream closed")
		}
	}()

	view, err := ht.registry.Get(id)
	if err == nil {
		err = view.Attach()
	}

	if err != nil {
		http.Error(w, http.StatusText(http.StatusNotFound), http.StatusNotFound)

		return fmt.Errorf("attach view: %w", err)
	}

	defer ht.registry.Close(id)

	rc := http.NewResponseController(w)

	// Streams outlive the server's write timeout.
	if err := rc.SetWriteDeadline(time.Time{}); err != nil && !errors.Is(err, http.ErrNotSupported) {
		return fmt.Errorf("clear write deadline: %w", err)
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-store")
	w.Header().Set("X-Accel-Buffering", "no")
	w.WriteHeader(http.StatusOK)

	if _, err := fmt.Fprint(w, ": connected\n\n"); err != nil {
		return fmt.Errorf("write event: %w", err)
	}

	if err := rc.Flush(); err != nil {
		return fmt.Errorf("flush: %w", err)
	}

	interval := ht.uiCfg.KeepAliveInterval
	if interval <= 0 {
		interval = DefaultUIConfig().KeepAliveInterval
	}

	keepAlive := time.NewTicker(interval)
	defer keepAlive.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-view.Done():
			return nil
		case <-keepAlive.C:
			if _, err := fmt.Fprint(w, ": keep-alive\n\n"); err != nil {
				return fmt.Errorf("write keep-alive: %w", err)
			}
		case ev := <-view.Events():
			data, err := json.Marshal(ev)
			if err != nil {
				return fmt.Errorf("marshal event: %w", err)
			}

			if _, err := fmt.Fprintf(w, "event: %s\ndata: %s\n\n", ev.Name, data); err != nil {
				return fmt.Errorf("write event: %w", err)
			}

			log.DebugContext(ctx, "event sent", "event", ev.Name)
		}

		if err := rc.Flush(); err != nil {
			return fmt.Errorf("flush: %w", err)
		}
	}
}

func (ht *HTTPTransport) render(w http.ResponseWriter, name string, data any) error {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")

	if err := ht.templates.ExecuteTemplate(w, name, data); err != nil {
		return fmt.Errorf("execute template %s: %w", name, err)
	}

	return nil
}

func (ht *HTTPTransport) writeJSON(w http.ResponseWriter, status int, v any) error {
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(status)

	if err := json.NewEncoder(w).Encode(v); err != nil {
		return fmt.Errorf("encode response: %w", err)
	}

	return nil
}

// httpRedirector answers the current request with a redirect.
type httpRedirector struct {
	w http.ResponseWriter
	r *http.Request
}

func (h httpRedirector) Redirect(_ context.Context, url string) {
	http.Redirect(h.w, h.r, url, http.StatusFound)
}
