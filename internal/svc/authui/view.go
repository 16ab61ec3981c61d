package authui

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/mkrupp/authui/internal/domain"
	"github.com/mkrupp/authui/internal/infra/logging"
)

// ViewKind is the screen a view shows.
type ViewKind string

const (
	ViewKindLogin    ViewKind = "login"
	ViewKindRegister ViewKind = "register"
)

// EventNavigate tells the browser to load another URL.
const EventNavigate = "navigate"

const eventBufferSize = 4

// Event is pushed to the browser over the view's event stream.
type Event struct {
	Name string `json:"-"`
	URL  string `json:"url"`
}

// View is one open page of the login or registration screen. It owns the
// screen's flow and is torn down when the page goes away.
type View struct {
	ID   string
	Kind ViewKind

	linker *NavigationLinker
	log    logging.Logger
	events chan Event
	done   chan struct{}

	login    *LoginFlow
	register *RegisterFlow

	mu       sync.Mutex
	openedAt time.Time
	attached bool
	closed   bool
}

// Login returns the login flow of a login view.
func (v *View) Login() (*LoginFlow, error) {
	if v.login == nil {
		return nil, fmt.Errorf("view %s is a %s view: %w", v.ID, v.Kind, domain.ErrViewNotFound)
	}

	return v.login, nil
}

// Register returns the registration flow of a register view.
func (v *View) Register() (*RegisterFlow, error) {
	if v.register == nil {
		return nil, fmt.Errorf("view %s is a %s view: %w", v.ID, v.Kind, domain.ErrViewNotFound)
	}

	return v.register, nil
}

// Snapshot returns the render state of the view's flow.
func (v *View) Snapshot() Snapshot {
	if v.login != nil {
		return v.login.Snapshot()
	}

	return v.register.Snapshot()
}

// Events delivers navigation events until Done is closed.
func (v *View) Events() <-chan Event {
	return v.events
}

// Done is closed when the view is torn down.
func (v *View) Done() <-chan struct{} {
	return v.done
}

// Attach marks the view as connected to its event stream. A view accepts a
// single stream for its whole life.
func (v *View) Attach() error {
	v.mu.Lock()
	defer v.mu.Unlock()

	if v.closed || v.attached {
		return fmt.Errorf("attach view %s: %w", v.ID, domain.ErrViewNotFound)
	}

	v.attached = true

	return nil
}

// Navigate implements Navigator by sending the browser to target.
func (v *View) Navigate(ctx context.Context, target domain.Route, payload domain.NavigationPayload) error {
	link, err := v.linker.Link(ctx, target, payload)
	if err != nil {
		v.log.WarnContext(ctx, "navigation state unavailable, linking user directly", "target", target, "error", err)
		link = UserLink(target, payload)
	}

	return v.emit(Event{Name: EventNavigate, URL: link})
}

// Redirect implements authclient.Redirector by sending the browser to an
// external URL.
func (v *View) Redirect(ctx context.Context, url string) {
	if err := v.emit(Event{Name: EventNavigate, URL: url}); err != nil {
		v.log.WarnContext(ctx, "redirect dropped", "url", url, "error", err)
	}
}

// emit queues ev. When the browser is not draining its stream the oldest
// event is dropped; only the latest navigation matters.
func (v *View) emit(ev Event) error {
	v.mu.Lock()
	defer v.mu.Unlock()

	if v.closed {
		return fmt.Errorf("emit %s: %w", ev.Name, domain.ErrFlowClosed)
	}

	for {
		select {
		case v.events <- ev:
			return nil
		default:
		}

		select {
		case <-v.events:
		default:
		}
	}
}

// Close tears the view down: its flow stops, its redirect is dropped and its
// event stream ends.
func (v *View) Close() {
	v.mu.Lock()

	if v.closed {
		v.mu.Unlock()

		return
	}

	v.closed = true
	close(v.done)
	v.mu.Unlock()

	if v.login != nil {
		v.login.Close()
	}

	if v.register != nil {
		v.register.Close()
	}
}

func (v *View) expired(now time.Time, ttl time.Duration) bool {
	v.mu.Lock()
	defer v.mu.Unlock()

	return !v.attached && now.Sub(v.openedAt) > ttl
}
