package domain

import "errors"

var (
	// ErrNavigationStateNotFound is returned when a navigation state token is
	// unknown, already consumed, or expired.
	ErrNavigationStateNotFound = errors.New("navigation state not found")
	// ErrNavigationStateExists is returned when storing under a token that is
	// already taken.
	ErrNavigationStateExists = errors.New("navigation state already exists")
)

// Route is a client-visible screen of the frontend.
type Route string

const (
	RouteLogin    Route = "/"
	RouteRegister Route = "/register"
	RouteWelcome  Route = "/welcome"
)

// NavigationPayload is the data carried to a navigation target.
type NavigationPayload struct {
	User string `json:"user,omitempty"` // Display name on the welcome screen
}

// Empty reports whether the payload carries nothing.
func (p NavigationPayload) Empty() bool {
	return p.User == ""
}
