package authui_test

import (
	"context"
	"errors"
	"net/url"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/mkrupp/authui/internal/domain"
	"github.com/mkrupp/authui/internal/repo/navstate"
	"github.com/mkrupp/authui/internal/svc/authui"
)

type fakeNow struct {
	m   sync.Mutex
	now time.Time
}

func (f *fakeNow) Now() time.Time {
	f.m.Lock()
	defer f.m.Unlock()

	return f.now
}

func (f *fakeNow) Advance(d time.Duration) {
	f.m.Lock()
	defer f.m.Unlock()

	f.now = f.now.Add(d)
}

type registryFixture struct {
	registry *authui.ViewRegistry
	linker   *authui.NavigationLinker
	client   *mockAuthClient
	clock    *manualClock
	now      *fakeNow
}

func newRegistryFixture(t *testing.T, client *mockAuthClient) registryFixture {
	t.Helper()

	clock := &manualClock{}
	now := &fakeNow{now: time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)}
	linker := authui.NewNavigationLinker(newNavStateRepo(t), time.Minute)
	registry := authui.NewViewRegistry(client, linker, testUIConfig(),
		authui.WithAfterFunc(clock.AfterFunc),
		authui.WithClock(now.Now),
	)

	t.Cleanup(registry.CloseAll)

	return registryFixture{registry: registry, linker: linker, client: client, clock: clock, now: now}
}

func nextEvent(t *testing.T, view *authui.View) authui.Event {
	t.Helper()

	select {
	case ev := <-view.Events():
		return ev
	case <-time.After(time.Second):
		t.Fatal("no event")

		return authui.Event{}
	}
}

func TestViewRegistry_OpenGetClose(t *testing.T) {
	t.Parallel()

	fx := newRegistryFixture(t, &mockAuthClient{})

	view, err := fx.registry.Open(context.Background(), authui.ViewKindLogin)
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}

	got, err := fx.registry.Get(view.ID)
	if err != nil || got != view {
		t.Fatalf("Get() = %v, %v; want the opened view", got, err)
	}

	if _, err := view.Login(); err != nil {
		t.Errorf("Login() error = %v", err)
	}

	if _, err := view.Register(); !errors.Is(err, domain.ErrViewNotFound) {
		t.Errorf("Register() error = %v, want %v", err, domain.ErrViewNotFound)
	}

	if snap := view.Snapshot(); snap.State != domain.FlowStateIdle {
		t.Errorf("Snapshot().State = %q, want %q", snap.State, domain.FlowStateIdle)
	}

	fx.registry.Close(view.ID)
	fx.registry.Close(view.ID)

	if _, err := fx.registry.Get(view.ID); !errors.Is(err, domain.ErrViewNotFound) {
		t.Errorf("Get() after Close error = %v, want %v", err, domain.ErrViewNotFound)
	}

	select {
	case <-view.Done():
	default:
		t.Error("Done() not closed after Close")
	}

	if fx.registry.Len() != 0 {
		t.Errorf("Len() = %d, want 0", fx.registry.Len())
	}
}

func TestViewRegistry_OpenUnknownKind(t *testing.T) {
	t.Parallel()

	fx := newRegistryFixture(t, &mockAuthClient{})

	if _, err := fx.registry.Open(context.Background(), "profile"); err == nil {
		t.Error("Open() with unknown kind succeeded")
	}

	if fx.registry.Len() != 0 {
		t.Errorf("Len() = %d, want 0", fx.registry.Len())
	}
}

func TestViewRegistry_Sweep(t *testing.T) {
	t.Parallel()

	fx := newRegistryFixture(t, &mockAuthClient{})
	ctx := context.Background()

	stale, _ := fx.registry.Open(ctx, authui.ViewKindLogin)
	attached, _ := fx.registry.Open(ctx, authui.ViewKindRegister)

	if err := attached.Attach(); err != nil {
		t.Fatalf("Attach() error = %v", err)
	}

	if n := fx.registry.Sweep(); n != 0 {
		t.Fatalf("Sweep() before TTL = %d, want 0", n)
	}

	fx.now.Advance(testUIConfig().ViewTTL + time.Second)

	if n := fx.registry.Sweep(); n != 1 {
		t.Fatalf("Sweep() after TTL = %d, want 1", n)
	}

	if _, err := fx.registry.Get(stale.ID); !errors.Is(err, domain.ErrViewNotFound) {
		t.Errorf("stale view still registered: %v", err)
	}

	if _, err := fx.registry.Get(attached.ID); err != nil {
		t.Errorf("attached view swept: %v", err)
	}
}

func TestViewRegistry_Run(t *testing.T) {
	t.Parallel()

	fx := newRegistryFixture(t, &mockAuthClient{})

	view, _ := fx.registry.Open(context.Background(), authui.ViewKindLogin)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})

	go func() {
		defer close(done)

		fx.registry.Run(ctx, time.Hour)
	}()

	cancel()
	<-done

	select {
	case <-view.Done():
	default:
		t.Error("Run() left views open after cancel")
	}
}

func TestViewRegistry_RunNonPositiveInterval(t *testing.T) {
	t.Parallel()

	for _, interval := range []time.Duration{0, -time.Second} {
		fx := newRegistryFixture(t, &mockAuthClient{})

		ctx, cancel := context.WithCancel(context.Background())
		done := make(chan struct{})

		go func() {
			defer close(done)

			fx.registry.Run(ctx, interval)
		}()

		cancel()

		select {
		case <-done:
		case <-time.After(time.Second):
			t.Fatalf("Run(%v) did not return after cancel", interval)
		}
	}
}

func TestView_Attach(t *testing.T) {
	t.Parallel()

	fx := newRegistryFixture(t, &mockAuthClient{})

	view, _ := fx.registry.Open(context.Background(), authui.ViewKindLogin)

	if err := view.Attach(); err != nil {
		t.Fatalf("Attach() error = %v", err)
	}

	if err := view.Attach(); !errors.Is(err, domain.ErrViewNotFound) {
		t.Errorf("second Attach() error = %v, want %v", err, domain.ErrViewNotFound)
	}
}

func TestView_LoginRedirectEvent(t *testing.T) {
	t.Parallel()

	fx := newRegistryFixture(t, &mockAuthClient{})
	ctx := context.Background()

	view, _ := fx.registry.Open(ctx, authui.ViewKindLogin)
	login, _ := view.Login()

	if _, err := login.Submit(ctx, "alice@example.com", "secret"); err != nil {
		t.Fatalf("Submit() error = %v", err)
	}

	if n := fx.clock.FireAll(); n != 1 {
		t.Fatalf("fired %d timers, want 1", n)
	}

	ev := nextEvent(t, view)
	if ev.Name != authui.EventNavigate || !strings.HasPrefix(ev.URL, "/welcome?state=") {
		t.Fatalf("event = %+v, want navigate to a welcome state link", ev)
	}

	u, _ := url.Parse(ev.URL)

	payload, err := fx.linker.Resolve(ctx, u.Query())
	if err != nil || payload.User != "alice@example.com" {
		t.Errorf("Resolve() = %+v, %v; want alice@example.com", payload, err)
	}
}

// downRepo is a navigation state backend that cannot be reached.
type downRepo struct{}

var _ navstate.Repository = downRepo{}

var errRepoDown = errors.New("connection refused")

func (downRepo) Put(context.Context, string, domain.NavigationPayload, time.Duration) error {
	return errRepoDown
}

func (downRepo) Take(context.Context, string) (domain.NavigationPayload, error) {
	return domain.NavigationPayload{}, errRepoDown
}

func (downRepo) Purge(context.Context) (int64, error) { return 0, errRepoDown }

func (downRepo) Close() error { return nil }

func TestView_RedirectWithoutNavigationState(t *testing.T) {
	t.Parallel()

	clock := &manualClock{}
	linker := authui.NewNavigationLinker(downRepo{}, time.Minute)
	registry := authui.NewViewRegistry(&mockAuthClient{}, linker, testUIConfig(),
		authui.WithAfterFunc(clock.AfterFunc),
	)
	t.Cleanup(registry.CloseAll)

	ctx := context.Background()

	view, _ := registry.Open(ctx, authui.ViewKindLogin)
	login, _ := view.Login()

	if _, err := login.Submit(ctx, "alice@example.com", "secret"); err != nil {
		t.Fatalf("Submit() error = %v", err)
	}

	if n := clock.FireAll(); n != 1 {
		t.Fatalf("fired %d timers, want 1", n)
	}

	ev := nextEvent(t, view)

	if want := "/welcome?user=alice%40example.com"; ev.Name != authui.EventNavigate || ev.URL != want {
		t.Errorf("event = %+v, want navigate to %q", ev, want)
	}
}

func TestView_RegisterRedirectEvent(t *testing.T) {
	t.Parallel()

	fx := newRegistryFixture(t, &mockAuthClient{})
	ctx := context.Background()

	view, _ := fx.registry.Open(ctx, authui.ViewKindRegister)
	register, _ := view.Register()

	_, err := register.Submit(ctx, domain.RegistrationRequest{
		Method: domain.RegistrationMethodEmail, Email: "bob@example.com", Password: "pw", Confirm: "pw",
	})
	if err != nil {
		t.Fatalf("Submit() error = %v", err)
	}

	fx.clock.FireAll()

	if ev := nextEvent(t, view); ev.URL != "/" {
		t.Errorf("event URL = %q, want %q", ev.URL, "/")
	}
}

func TestView_GoogleRedirectEvent(t *testing.T) {
	t.Parallel()

	client := &mockAuthClient{}
	fx := newRegistryFixture(t, client)

	view, _ := fx.registry.Open(context.Background(), authui.ViewKindLogin)
	login, _ := view.Login()

	if err := login.BeginGoogleLogin(context.Background()); err != nil {
		t.Fatalf("BeginGoogleLogin() error = %v", err)
	}

	if ev := nextEvent(t, view); ev.URL != testGoogleURL {
		t.Errorf("event URL = %q, want %q", ev.URL, testGoogleURL)
	}
}

func TestView_CloseDropsPendingRedirect(t *testing.T) {
	t.Parallel()

	fx := newRegistryFixture(t, &mockAuthClient{})
	ctx := context.Background()

	view, _ := fx.registry.Open(ctx, authui.ViewKindLogin)
	login, _ := view.Login()

	_, _ = login.Submit(ctx, "alice@example.com", "secret")
	timers := fx.clock.Armed()

	fx.registry.Close(view.ID)

	if len(fx.clock.Armed()) != 0 {
		t.Error("Close() left the redirect armed")
	}

	for _, timer := range timers {
		timer.Fire()
	}

	select {
	case ev := <-view.Events():
		t.Errorf("closed view emitted %+v", ev)
	default:
	}

	if err := view.Navigate(ctx, domain.RouteLogin, domain.NavigationPayload{}); !errors.Is(err, domain.ErrFlowClosed) {
		t.Errorf("Navigate() after Close error = %v, want %v", err, domain.ErrFlowClosed)
	}
}

func TestView_EventBufferKeepsLatest(t *testing.T) {
	t.Parallel()

	fx := newRegistryFixture(t, &mockAuthClient{})
	ctx := context.Background()

	view, _ := fx.registry.Open(ctx, authui.ViewKindLogin)

	for _, u := range []string{"/a", "/b", "/c", "/d", "/e", "/f"} {
		view.Redirect(ctx, u)
	}

	var last authui.Event

drain:
	for {
		select {
		case ev := <-view.Events():
			last = ev
		default:
			break drain
		}
	}

	if last.URL != "/f" {
		t.Errorf("last event URL = %q, want %q", last.URL, "/f")
	}
}
