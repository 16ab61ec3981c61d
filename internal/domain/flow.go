package domain

import "errors"

var (
	// ErrSubmitInProgress is returned when a guarded flow is asked to submit
	// while a previous submission is still in flight.
	ErrSubmitInProgress = errors.New("submit in progress")
	// ErrFlowClosed is returned by a flow whose view has been torn down.
	ErrFlowClosed = errors.New("flow closed")
	// ErrGateClosed is returned when scheduling on a closed navigation gate.
	ErrGateClosed = errors.New("navigation gate closed")
	// ErrViewNotFound is returned for unknown or expired page views.
	ErrViewNotFound = errors.New("view not found")
)

// FlowState is the state of a login or registration flow.
type FlowState string

const (
	FlowStateIdle       FlowState = "idle"
	FlowStateSubmitting FlowState = "submitting"
	FlowStateSuccess    FlowState = "success"
	FlowStateFailed     FlowState = "failed"
	FlowStateErrored    FlowState = "errored"
)
