package authui

import "github.com/mkrupp/authui/internal/domain"

// MessageTooManyFailedAttempts is the backend's lockout message. It is the
// only failure shown as a warning.
const MessageTooManyFailedAttempts = "Too many failed attempts"

// SeverityFor maps an outcome to the severity it is shown with.
func SeverityFor(success bool, message string) domain.Severity {
	switch {
	case success:
		return domain.SeveritySuccess
	case message == MessageTooManyFailedAttempts:
		return domain.SeverityWarning
	default:
		return domain.SeverityDanger
	}
}

// FeedbackController holds the status message of one screen. It is not
// safe for concurrent use; the owning flow serializes access.
type FeedbackController struct {
	state domain.FeedbackState
}

// Show replaces the current feedback. An empty message clears it.
func (c *FeedbackController) Show(message string, severity domain.Severity) {
	if message == "" {
		c.Clear()

		return
	}

	c.state = domain.FeedbackState{Message: message, Severity: severity}
}

// Clear removes the current feedback.
func (c *FeedbackController) Clear() {
	c.state = domain.FeedbackState{}
}

// State returns the current feedback.
func (c *FeedbackController) State() domain.FeedbackState {
	return c.state
}
