package authui_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"

	"github.com/mkrupp/authui/internal/domain"
	"github.com/mkrupp/authui/internal/repo/navstate"
	"github.com/mkrupp/authui/internal/svc/authclient"
	"github.com/mkrupp/authui/internal/svc/authui"
)

const testGoogleURL = "http://backend.test/api/auth/google"

var errBackendDown = errors.New("backend down")

// mockAuthClient implements authclient.RedirectableClient for testing.
// Calls return results[n] for the n-th call, repeating the last entry.
type mockAuthClient struct {
	results   []domain.AuthResult
	err       error
	panicWith any

	// holdFirst, if set, blocks the first call until it is closed.
	holdFirst chan struct{}
	// started receives the call number as each call begins.
	started chan int

	m             sync.Mutex
	calls         int
	logins        []domain.Credentials
	registrations []domain.RegistrationRequest
	googleLogins  int
}

func (m *mockAuthClient) begin(ctx context.Context) (domain.AuthResult, error) {
	m.m.Lock()
	n := m.calls
	m.calls++
	m.m.Unlock()

	if m.started != nil {
		m.started <- n
	}

	if n == 0 && m.holdFirst != nil {
		select {
		case <-m.holdFirst:
		case <-ctx.Done():
			return domain.AuthResult{}, ctx.Err()
		}
	}

	if m.panicWith != nil {
		panic(m.panicWith)
	}

	if m.err != nil {
		return domain.AuthResult{}, m.err
	}

	if len(m.results) == 0 {
		return domain.AuthResult{Success: true}, nil
	}

	return m.results[min(n, len(m.results)-1)], nil
}

func (m *mockAuthClient) Login(ctx context.Context, credentials domain.Credentials) (domain.AuthResult, error) {
	m.m.Lock()
	m.logins = append(m.logins, credentials)
	m.m.Unlock()

	return m.begin(ctx)
}

func (m *mockAuthClient) Register(ctx context.Context, request domain.RegistrationRequest) (domain.AuthResult, error) {
	m.m.Lock()
	m.registrations = append(m.registrations, request)
	m.m.Unlock()

	return m.begin(ctx)
}

func (m *mockAuthClient) BeginGoogleLogin(context.Context) {
	m.m.Lock()
	defer m.m.Unlock()

	m.googleLogins++
}

func (m *mockAuthClient) WithRedirector(r authclient.Redirector) authclient.AuthClient {
	return &boundMockClient{mockAuthClient: m, redirector: r}
}

func (m *mockAuthClient) Calls() int {
	m.m.Lock()
	defer m.m.Unlock()

	return m.calls
}

func (m *mockAuthClient) Registrations() []domain.RegistrationRequest {
	m.m.Lock()
	defer m.m.Unlock()

	return append([]domain.RegistrationRequest(nil), m.registrations...)
}

// boundMockClient is a mockAuthClient whose Google login goes through a redirector.
type boundMockClient struct {
	*mockAuthClient

	redirector authclient.Redirector
}

func (b *boundMockClient) BeginGoogleLogin(ctx context.Context) {
	b.mockAuthClient.BeginGoogleLogin(ctx)
	b.redirector.Redirect(ctx, testGoogleURL)
}

// manualClock is an authui.AfterFunc whose timers only fire when told to.
type manualClock struct {
	m      sync.Mutex
	timers []*manualTimer
}

type manualTimer struct {
	clock   *manualClock
	delay   time.Duration
	f       func()
	stopped bool
	fired   bool
}

func (c *manualClock) AfterFunc(d time.Duration, f func()) authui.Timer {
	c.m.Lock()
	defer c.m.Unlock()

	t := &manualTimer{clock: c, delay: d, f: f}
	c.timers = append(c.timers, t)

	return t
}

func (t *manualTimer) Stop() bool {
	t.clock.m.Lock()
	defer t.clock.m.Unlock()

	wasArmed := !t.stopped && !t.fired
	t.stopped = true

	return wasArmed
}

// Fire runs the callback even if the timer was stopped, like a runtime timer
// whose callback was already started when Stop was called.
func (t *manualTimer) Fire() {
	t.clock.m.Lock()
	t.fired = true
	t.clock.m.Unlock()

	t.f()
}

// Armed returns the timers that are neither stopped nor fired.
func (c *manualClock) Armed() []*manualTimer {
	c.m.Lock()
	defer c.m.Unlock()

	var armed []*manualTimer

	for _, t := range c.timers {
		if !t.stopped && !t.fired {
			armed = append(armed, t)
		}
	}

	return armed
}

// FireAll fires every armed timer and reports how many fired.
func (c *manualClock) FireAll() int {
	armed := c.Armed()

	for _, t := range armed {
		t.Fire()
	}

	return len(armed)
}

type navigation struct {
	target  domain.Route
	payload domain.NavigationPayload
}

// recordingNavigator implements authui.Navigator for testing.
type recordingNavigator struct {
	err error

	m           sync.Mutex
	navigations []navigation
}

func (n *recordingNavigator) Navigate(_ context.Context, target domain.Route, payload domain.NavigationPayload) error {
	n.m.Lock()
	defer n.m.Unlock()

	n.navigations = append(n.navigations, navigation{target: target, payload: payload})

	return n.err
}

func (n *recordingNavigator) Navigations() []navigation {
	n.m.Lock()
	defer n.m.Unlock()

	return append([]navigation(nil), n.navigations...)
}

func newNavStateRepo(t *testing.T) navstate.Repository {
	t.Helper()

	mr := miniredis.RunT(t)

	//nolint:exhaustruct
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	repo := navstate.NewRedisRepository(rdb, "test:navstate:")

	t.Cleanup(func() { repo.Close() })

	return repo
}

func testUIConfig() authui.UIConfig {
	return authui.DefaultUIConfig()
}

// eventually polls cond until it holds or a second has passed.
func eventually(t *testing.T, cond func() bool, msg string) {
	t.Helper()

	deadline := time.Now().Add(time.Second)

	for !cond() {
		if time.Now().After(deadline) {
			t.Fatal(msg)
		}

		time.Sleep(5 * time.Millisecond)
	}
}
