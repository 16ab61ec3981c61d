package authui

import (
	"strings"
	"unicode/utf8"

	"github.com/mkrupp/authui/internal/domain"
)

const (
	// MaxIdentifierLength is the longest accepted login identifier, in characters.
	MaxIdentifierLength = 255
	// MaxPasswordLength is the longest accepted login password, in characters.
	MaxPasswordLength = 1000
)

const (
	MessageCredentialsRequired = "Email/Phone and Password are required"
	MessageIdentifierTooLong   = "Identifier too long"
	MessagePasswordTooLong     = "Password too long"
	MessagePasswordMismatch    = "Passwords do not match."
	MessageMethodRequired      = "Registration method is required."
	MessageEmailRequired       = "Email is required."
	MessagePhoneRequired       = "Phone is required."
)

// ValidateLogin checks login input. Rules are applied in order and the first
// failure wins: both fields non-blank, identifier length, password length.
func ValidateLogin(identifier, password string) domain.ValidationResult {
	switch {
	case strings.TrimSpace(identifier) == "", strings.TrimSpace(password) == "":
		return domain.Invalid(MessageCredentialsRequired)
	case utf8.RuneCountInString(identifier) > MaxIdentifierLength:
		return domain.Invalid(MessageIdentifierTooLong)
	case utf8.RuneCountInString(password) > MaxPasswordLength:
		return domain.Invalid(MessagePasswordTooLong)
	}

	return domain.ValidationOK
}

// ValidateRegistration checks registration input. The password confirmation
// is compared exactly and before anything else; only the contact field
// selected by the method is inspected.
func ValidateRegistration(req domain.RegistrationRequest) domain.ValidationResult {
	if req.Password != req.Confirm {
		return domain.Invalid(MessagePasswordMismatch)
	}

	switch req.Method {
	case domain.RegistrationMethodEmail:
		if strings.TrimSpace(req.Email) == "" {
			return domain.Invalid(MessageEmailRequired)
		}
	case domain.RegistrationMethodPhone:
		if strings.TrimSpace(req.Phone) == "" {
			return domain.Invalid(MessagePhoneRequired)
		}
	default:
		return domain.Invalid(MessageMethodRequired)
	}

	return domain.ValidationOK
}
