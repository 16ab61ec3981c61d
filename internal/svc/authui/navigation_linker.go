package authui

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"time"

	"github.com/mkrupp/authui/internal/domain"
	"github.com/mkrupp/authui/internal/repo/navstate"
	"github.com/mkrupp/authui/internal/util/token"
)

const (
	// QueryParamState carries a navigation state token.
	QueryParamState = "state"
	// QueryParamUser carries a display name directly; it is the fallback for
	// links that were not produced by a NavigationLinker.
	QueryParamUser = "user"
	// DefaultDisplayName is used when a welcome link carries no user.
	DefaultDisplayName = "User"
)

// NavigationLinker turns navigations into URLs. Payloads are parked in the
// navigation state repository under a one-shot token and redeemed by the
// target screen.
type NavigationLinker struct {
	repo navstate.Repository
	ttl  time.Duration
}

// NewNavigationLinker creates a linker that keeps payloads in repo for ttl.
func NewNavigationLinker(repo navstate.Repository, ttl time.Duration) *NavigationLinker {
	return &NavigationLinker{repo: repo, ttl: ttl}
}

// Link returns the URL of target carrying payload.
func (l *NavigationLinker) Link(ctx context.Context, target domain.Route, payload domain.NavigationPayload) (string, error) {
	if payload.Empty() {
		return string(target), nil
	}

	tok, err := token.New()
	if err != nil {
		return "", fmt.Errorf("new state token: %w", err)
	}

	if err := l.repo.Put(ctx, tok, payload, l.ttl); err != nil {
		return "", fmt.Errorf("put navigation state: %w", err)
	}

	return string(target) + "?" + url.Values{QueryParamState: {tok}}.Encode(), nil
}

// UserLink returns the URL of target carrying the display name in plain
// sight. It needs no navigation state and is used when Link fails.
func UserLink(target domain.Route, payload domain.NavigationPayload) string {
	if payload.Empty() {
		return string(target)
	}

	return string(target) + "?" + url.Values{QueryParamUser: {payload.User}}.Encode()
}

// Resolve returns the payload a link carries. A state token is redeemed
// first; a token that is malformed, spent or expired falls back to the user
// query parameter. The error is reported alongside the fallback payload.
func (l *NavigationLinker) Resolve(ctx context.Context, query url.Values) (domain.NavigationPayload, error) {
	fallback := domain.NavigationPayload{User: query.Get(QueryParamUser)}

	raw := query.Get(QueryParamState)
	if raw == "" {
		return fallback, nil
	}

	tok, err := token.Parse(raw)
	if err != nil {
		return fallback, fmt.Errorf("parse state token: %w", errors.Join(domain.ErrNavigationStateNotFound, err))
	}

	payload, err := l.repo.Take(ctx, tok)
	if err != nil {
		return fallback, fmt.Errorf("take navigation state: %w", err)
	}

	return payload, nil
}

// DisplayName is the name shown on the welcome screen for payload.
func DisplayName(payload domain.NavigationPayload) string {
	if payload.User == "" {
		return DefaultDisplayName
	}

	return payload.User
}
