package authui

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/mkrupp/authui/internal/domain"
	"github.com/mkrupp/authui/internal/infra/logging"
)

// Navigator moves the owning screen to another route.
type Navigator interface {
	Navigate(ctx context.Context, target domain.Route, payload domain.NavigationPayload) error
}

// NavigatorFunc adapts a function to Navigator.
type NavigatorFunc func(ctx context.Context, target domain.Route, payload domain.NavigationPayload) error

// Navigate implements Navigator.
func (f NavigatorFunc) Navigate(ctx context.Context, target domain.Route, payload domain.NavigationPayload) error {
	return f(ctx, target, payload)
}

// Timer is an armed delayed call.
type Timer interface {
	Stop() bool
}

// AfterFunc arms f to run once after d. time.AfterFunc is the production
// implementation; tests substitute a manual clock.
type AfterFunc func(d time.Duration, f func()) Timer

// SystemAfterFunc arms a runtime timer.
func SystemAfterFunc(d time.Duration, f func()) Timer {
	return time.AfterFunc(d, f)
}

// NavigationGate holds at most one delayed redirect. Scheduling replaces the
// pending redirect, Cancel drops it and Close makes the gate inert for good,
// so a redirect never fires after its screen is gone.
type NavigationGate struct {
	navigator Navigator
	afterFunc AfterFunc
	log       logging.Logger

	ctx    context.Context //nolint:containedctx
	cancel context.CancelFunc

	mu     sync.Mutex
	timer  Timer
	seq    uint64
	closed bool
}

// NewNavigationGate creates a gate navigating through navigator. Values of
// ctx are carried to every navigation; its cancellation closes the gate.
// A nil afterFunc selects SystemAfterFunc.
func NewNavigationGate(ctx context.Context, navigator Navigator, afterFunc AfterFunc) *NavigationGate {
	if afterFunc == nil {
		afterFunc = SystemAfterFunc
	}

	ctx, cancel := context.WithCancel(ctx)

	gate := &NavigationGate{
		navigator: navigator,
		afterFunc: afterFunc,
		log:       logging.GetLogger("svc.authui.navigation_gate"),
		ctx:       ctx,
		cancel:    cancel,
	}

	context.AfterFunc(ctx, gate.Close)

	return gate
}

// ScheduleRedirect arms a navigation to target after delay, replacing any
// redirect that is still pending.
func (g *NavigationGate) ScheduleRedirect(target domain.Route, delay time.Duration, payload domain.NavigationPayload) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.closed {
		return fmt.Errorf("schedule redirect to %s: %w", target, domain.ErrGateClosed)
	}

	g.stopLocked()

	seq := g.seq
	g.timer = g.afterFunc(delay, func() { g.fire(seq, target, payload) })

	g.log.DebugContext(g.ctx, "redirect scheduled",
		logging.Group("redirect", "target", string(target), "delay", delay.String()))

	return nil
}

// Pending reports whether a redirect is armed.
func (g *NavigationGate) Pending() bool {
	g.mu.Lock()
	defer g.mu.Unlock()

	return g.timer != nil
}

// Cancel drops the pending redirect, if any, and reports whether there was one.
func (g *NavigationGate) Cancel() bool {
	g.mu.Lock()
	defer g.mu.Unlock()

	return g.stopLocked()
}

// Close cancels the pending redirect and rejects all later schedules.
// It is safe to call more than once.
func (g *NavigationGate) Close() {
	g.mu.Lock()

	if g.closed {
		g.mu.Unlock()

		return
	}

	g.closed = true
	g.stopLocked()
	g.mu.Unlock()

	g.cancel()
}

// stopLocked disarms the timer and invalidates callbacks already in flight.
func (g *NavigationGate) stopLocked() bool {
	g.seq++

	if g.timer == nil {
		return false
	}

	g.timer.Stop()
	g.timer = nil

	return true
}

func (g *NavigationGate) fire(seq uint64, target domain.Route, payload domain.NavigationPayload) {
	g.mu.Lock()

	if g.closed || seq != g.seq {
		g.mu.Unlock()

		return
	}

	g.timer = nil
	g.mu.Unlock()

	log := g.log.With(logging.Group("redirect", "target", string(target)))

	if err := g.navigator.Navigate(g.ctx, target, payload); err != nil {
		log.ErrorContext(g.ctx, "redirect failed", "error", err)

		return
	}

	log.DebugContext(g.ctx, "redirected")
}
