package domain

import "strings"

// Credentials is the body of a login request.
type Credentials struct {
	Identifier string `json:"identifier"` // Email address or phone number
	Password   string `json:"password"`
}

// RegistrationMethod selects which contact field a registration uses.
type RegistrationMethod string

const (
	RegistrationMethodEmail RegistrationMethod = "email"
	RegistrationMethodPhone RegistrationMethod = "phone"
)

// Valid reports whether m is a known registration method.
func (m RegistrationMethod) Valid() bool {
	return m == RegistrationMethodEmail || m == RegistrationMethodPhone
}

// RegistrationRequest holds the raw input of the registration form.
// Method and Confirm never leave the client.
type RegistrationRequest struct {
	Method   RegistrationMethod `json:"-"`
	Email    string             `json:"email,omitempty"`
	Phone    string             `json:"phone,omitempty"`
	Password string             `json:"password"`
	Confirm  string             `json:"-"`
}

// Normalized returns a copy of the request carrying only the contact field
// selected by Method, trimmed. The sibling field is cleared.
func (r RegistrationRequest) Normalized() RegistrationRequest {
	out := r

	switch r.Method {
	case RegistrationMethodEmail:
		out.Email = strings.TrimSpace(r.Email)
		out.Phone = ""
	case RegistrationMethodPhone:
		out.Phone = strings.TrimSpace(r.Phone)
		out.Email = ""
	}

	return out
}
