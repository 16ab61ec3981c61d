package authui

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/mkrupp/authui/internal/domain"
	context_ "github.com/mkrupp/authui/internal/infra/context"
	"github.com/mkrupp/authui/internal/infra/logging"
	"github.com/mkrupp/authui/internal/svc/authclient"
	"github.com/mkrupp/authui/internal/util/token"
)

// ViewRegistry keeps the open page views.
type ViewRegistry struct {
	client    authclient.RedirectableClient
	linker    *NavigationLinker
	cfg       UIConfig
	afterFunc AfterFunc
	now       func() time.Time
	log       logging.Logger

	mu    sync.Mutex
	views map[string]*View
}

// ViewRegistryOption customizes a ViewRegistry.
type ViewRegistryOption func(*ViewRegistry)

// WithAfterFunc replaces the timer factory used by navigation gates.
func WithAfterFunc(afterFunc AfterFunc) ViewRegistryOption {
	return func(r *ViewRegistry) { r.afterFunc = afterFunc }
}

// WithClock replaces the clock used for view expiry.
func WithClock(now func() time.Time) ViewRegistryOption {
	return func(r *ViewRegistry) { r.now = now }
}

// NewViewRegistry creates an empty registry. Every view gets its own binding
// of client so OAuth redirects reach the right browser.
func NewViewRegistry(
	client authclient.RedirectableClient,
	linker *NavigationLinker,
	cfg UIConfig,
	opts ...ViewRegistryOption,
) *ViewRegistry {
	registry := &ViewRegistry{
		client:    client,
		linker:    linker,
		cfg:       cfg,
		afterFunc: SystemAfterFunc,
		now:       time.Now,
		log:       logging.GetLogger("svc.authui.view_registry"),
		views:     make(map[string]*View),
	}

	for _, opt := range opts {
		opt(registry)
	}

	return registry
}

// Open creates a view of the given kind.
func (r *ViewRegistry) Open(ctx context.Context, kind ViewKind) (_ *View, err error) {
	defer func() {
		if err != nil {
			r.log.ErrorContext(ctx, "open view failed", "error", err)
		}
	}()

	id, err := token.New()
	if err != nil {
		return nil, fmt.Errorf("new view id: %w", err)
	}

	view := &View{
		ID:       id,
		Kind:     kind,
		linker:   r.linker,
		log:      logging.GetLogger("svc.authui.view"),
		events:   make(chan Event, eventBufferSize),
		done:     make(chan struct{}),
		openedAt: r.now(),
	}

	// The view outlives the request that opened it but keeps its values.
	viewCtx := context_.WithViewID(context.WithoutCancel(ctx), id)
	gate := NewNavigationGate(viewCtx, view, r.afterFunc)
	client := r.client.WithRedirector(view)

	switch kind {
	case ViewKindLogin:
		view.login = NewLoginFlow(client, gate, r.cfg)
	case ViewKindRegister:
		view.register = NewRegisterFlow(client, gate, r.cfg)
	default:
		gate.Close()

		return nil, fmt.Errorf("unknown view kind %q", kind)
	}

	r.mu.Lock()
	r.views[id] = view
	r.mu.Unlock()

	r.log.DebugContext(viewCtx, "view opened", "kind", string(kind))

	return view, nil
}

// Get returns the open view with the given ID.
func (r *ViewRegistry) Get(id string) (*View, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	view, ok := r.views[id]
	if !ok {
		return nil, fmt.Errorf("get view %s: %w", id, domain.ErrViewNotFound)
	}

	return view, nil
}

// Close tears down and forgets the view with the given ID, if it is open.
func (r *ViewRegistry) Close(id string) {
	r.mu.Lock()
	view, ok := r.views[id]
	delete(r.views, id)
	r.mu.Unlock()

	if ok {
		view.Close()
	}
}

// Len returns the number of open views.
func (r *ViewRegistry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()

	return len(r.views)
}

// Sweep closes views whose page never connected its event stream within the
// view TTL and returns how many were closed.
func (r *ViewRegistry) Sweep() int {
	now := r.now()

	r.mu.Lock()

	var expired []*View

	for id, view := range r.views {
		if view.expired(now, r.cfg.ViewTTL) {
			expired = append(expired, view)
			delete(r.views, id)
		}
	}

	r.mu.Unlock()

	for _, view := range expired {
		view.Close()
	}

	return len(expired)
}

// CloseAll tears down every open view.
func (r *ViewRegistry) CloseAll() {
	r.mu.Lock()
	views := r.views
	r.views = make(map[string]*View)
	r.mu.Unlock()

	for _, view := range views {
		view.Close()
	}
}

// Run sweeps every interval until ctx is cancelled, then closes all views.
func (r *ViewRegistry) Run(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		interval = DefaultUIConfig().SweepInterval
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	defer r.CloseAll()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if n := r.Sweep(); n > 0 {
				r.log.DebugContext(ctx, "views swept", "count", n)
			}
		}
	}
}
