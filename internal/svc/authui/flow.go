package authui

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/mkrupp/authui/internal/domain"
	"github.com/mkrupp/authui/internal/infra/logging"
)

// MessageGenericError is shown when the backend could not be reached or
// answered with something that is not an AuthResult.
const MessageGenericError = "An error occurred. Please try again."

var errAuthCallPanicked = errors.New("auth call panicked")

// Snapshot is what a screen renders: its state, its feedback and whether the
// submit control is usable.
type Snapshot struct {
	State           domain.FlowState     `json:"state"`
	Feedback        domain.FeedbackState `json:"feedback"`
	SubmitDisabled  bool                 `json:"submitDisabled"`
	RedirectPending bool                 `json:"redirectPending"`
}

type redirect struct {
	target  domain.Route
	delay   time.Duration
	payload domain.NavigationPayload
}

// submission is one run of a flow after its input has been collected.
type submission struct {
	validation     domain.ValidationResult
	call           func(ctx context.Context) (domain.AuthResult, error)
	successMessage string
	failureMessage func(backendMessage string) string
	redirect       redirect
}

// flow is the state machine shared by the login and registration screens:
//
//	idle -> submitting -> success | failed | errored
//
// Validation failures return to idle without contacting the backend.
type flow struct {
	gate  *NavigationGate
	guard bool
	log   logging.Logger

	mu       sync.Mutex
	state    domain.FlowState
	feedback FeedbackController
	attempt  uint64
	closed   bool
}

func (f *flow) setup(gate *NavigationGate, guard bool, log logging.Logger) {
	f.gate = gate
	f.guard = guard
	f.log = log
	f.state = domain.FlowStateIdle
}

//nolint:funlen
func (f *flow) run(ctx context.Context, sub submission) (Snapshot, error) {
	f.mu.Lock()

	if f.closed {
		f.mu.Unlock()

		return Snapshot{}, domain.ErrFlowClosed
	}

	if f.guard && f.state == domain.FlowStateSubmitting {
		snap := f.snapshotLocked()
		f.mu.Unlock()

		return snap, domain.ErrSubmitInProgress
	}

	f.feedback.Clear()
	f.gate.Cancel()

	// Every accepted submit supersedes the ones still in flight.
	f.attempt++
	attempt := f.attempt

	if !sub.validation.Valid {
		f.state = domain.FlowStateIdle
		f.feedback.Show(sub.validation.ErrorMessage, domain.SeverityDanger)
		snap := f.snapshotLocked()
		f.mu.Unlock()

		f.log.DebugContext(ctx, "input rejected", "reason", sub.validation.ErrorMessage)

		return snap, nil
	}

	f.state = domain.FlowStateSubmitting
	f.mu.Unlock()

	result, err := callRecovering(ctx, sub.call)

	f.mu.Lock()
	defer f.mu.Unlock()

	if f.closed {
		return Snapshot{}, domain.ErrFlowClosed
	}

	if attempt != f.attempt {
		// An unguarded resubmit overtook this one; its outcome is the one shown.
		return f.snapshotLocked(), nil
	}

	switch {
	case err != nil:
		f.state = domain.FlowStateErrored
		f.feedback.Show(MessageGenericError, domain.SeverityDanger)

		f.log.ErrorContext(ctx, "auth call failed", "error", err)
	case !result.Success:
		f.state = domain.FlowStateFailed
		f.feedback.Show(sub.failureMessage(result.Message), SeverityFor(false, result.Message))

		f.log.DebugContext(ctx, "auth rejected", "message", result.Message)
	default:
		f.state = domain.FlowStateSuccess
		f.feedback.Show(sub.successMessage, SeverityFor(true, result.Message))

		if err := f.gate.ScheduleRedirect(sub.redirect.target, sub.redirect.delay, sub.redirect.payload); err != nil {
			f.log.ErrorContext(ctx, "schedule redirect failed", "error", err)
		}

		f.log.DebugContext(ctx, "auth succeeded")
	}

	return f.snapshotLocked(), nil
}

// Snapshot returns the current render state.
func (f *flow) Snapshot() Snapshot {
	f.mu.Lock()
	defer f.mu.Unlock()

	return f.snapshotLocked()
}

// Close tears the flow down. In-flight submissions finish without touching
// the screen and the pending redirect is dropped.
func (f *flow) Close() {
	f.mu.Lock()
	f.closed = true
	f.mu.Unlock()

	f.gate.Close()
}

func (f *flow) snapshotLocked() Snapshot {
	return Snapshot{
		State:           f.state,
		Feedback:        f.feedback.State(),
		SubmitDisabled:  f.guard && f.state == domain.FlowStateSubmitting,
		RedirectPending: f.gate.Pending(),
	}
}

// callRecovering runs call and turns a panic into an error, so the in-flight
// guard is always released.
func callRecovering(
	ctx context.Context,
	call func(context.Context) (domain.AuthResult, error),
) (result domain.AuthResult, err error) {
	defer func() {
		if p := recover(); p != nil {
			err = fmt.Errorf("%w: %v", errAuthCallPanicked, p)
		}
	}()

	return call(ctx)
}
