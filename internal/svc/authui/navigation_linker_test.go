package authui_test

import (
	"context"
	"errors"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/mkrupp/authui/internal/domain"
	"github.com/mkrupp/authui/internal/svc/authui"
)

func TestNavigationLinker_RoundTrip(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	linker := authui.NewNavigationLinker(newNavStateRepo(t), time.Minute)

	link, err := linker.Link(ctx, domain.RouteWelcome, domain.NavigationPayload{User: "alice@example.com"})
	if err != nil {
		t.Fatalf("Link() error = %v", err)
	}

	if !strings.HasPrefix(link, "/welcome?state=") {
		t.Fatalf("Link() = %q, want a /welcome state link", link)
	}

	if strings.Contains(link, "alice") {
		t.Errorf("Link() = %q leaks the payload", link)
	}

	u, err := url.Parse(link)
	if err != nil {
		t.Fatalf("parse link: %v", err)
	}

	payload, err := linker.Resolve(ctx, u.Query())
	if err != nil {
		t.Fatalf("Resolve() error = %v", err)
	}

	if payload.User != "alice@example.com" {
		t.Errorf("Resolve() user = %q, want %q", payload.User, "alice@example.com")
	}

	// Links are single use.
	payload, err = linker.Resolve(ctx, u.Query())
	if !errors.Is(err, domain.ErrNavigationStateNotFound) {
		t.Errorf("second Resolve() error = %v, want %v", err, domain.ErrNavigationStateNotFound)
	}

	if authui.DisplayName(payload) != authui.DefaultDisplayName {
		t.Errorf("DisplayName() = %q, want %q", authui.DisplayName(payload), authui.DefaultDisplayName)
	}
}

func TestNavigationLinker_EmptyPayload(t *testing.T) {
	t.Parallel()

	linker := authui.NewNavigationLinker(newNavStateRepo(t), time.Minute)

	link, err := linker.Link(context.Background(), domain.RouteLogin, domain.NavigationPayload{})
	if err != nil {
		t.Fatalf("Link() error = %v", err)
	}

	if link != "/" {
		t.Errorf("Link() = %q, want %q", link, "/")
	}
}

func TestNavigationLinker_Resolve(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		query    url.Values
		wantUser string
		wantErr  error
	}{
		{"no parameters", url.Values{}, "", nil},
		{"user parameter", url.Values{"user": {"bob"}}, "bob", nil},
		{"malformed state falls back to user", url.Values{"state": {"nope"}, "user": {"bob"}}, "bob", domain.ErrNavigationStateNotFound},
		{"unknown state", url.Values{"state": {strings.Repeat("0", 26)}}, "", domain.ErrNavigationStateNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			linker := authui.NewNavigationLinker(newNavStateRepo(t), time.Minute)

			payload, err := linker.Resolve(context.Background(), tt.query)
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("Resolve() error = %v, want %v", err, tt.wantErr)
			}

			if payload.User != tt.wantUser {
				t.Errorf("Resolve() user = %q, want %q", payload.User, tt.wantUser)
			}
		})
	}
}

func TestDisplayName(t *testing.T) {
	t.Parallel()

	if got := authui.DisplayName(domain.NavigationPayload{User: "carol"}); got != "carol" {
		t.Errorf("DisplayName() = %q, want %q", got, "carol")
	}

	if got := authui.DisplayName(domain.NavigationPayload{}); got != "User" {
		t.Errorf("DisplayName() = %q, want %q", got, "User")
	}
}
