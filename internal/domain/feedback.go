package domain

// Severity classifies how a feedback message is presented.
type Severity string

const (
	SeveritySuccess Severity = "success"
	SeverityWarning Severity = "warning"
	SeverityDanger  Severity = "danger"
)

// FeedbackState is the status message currently shown on a screen.
// An empty Message means no feedback is shown.
type FeedbackState struct {
	Message  string   `json:"message"`
	Severity Severity `json:"severity,omitempty"`
}

// Empty reports whether no feedback is shown.
func (f FeedbackState) Empty() bool {
	return f.Message == ""
}
