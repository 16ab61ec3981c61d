package domain

import "errors"

// ErrNetwork is returned when the auth backend cannot be reached or answers
// with something other than a well-formed AuthResult.
var ErrNetwork = errors.New("network error")

// AuthResult is the uniform answer of the auth backend to login and
// registration calls. Business failures are Success=false with a Message.
type AuthResult struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}
