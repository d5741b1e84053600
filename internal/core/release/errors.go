package release

import (
	"errors"
	"fmt"
)

// =============================================================================
// Failure Taxonomy
// =============================================================================

// FailureKind tags a fatal orchestration failure with the stage that produced
// it. A failing stop is deliberately absent: it is downgraded to a warning
// because it most commonly means nothing was deployed before.
type FailureKind string

const (
	// FailureConfiguration: required environment bindings missing. Raised
	// before any external mutation.
	FailureConfiguration FailureKind = "configuration"

	// FailureFetch: the registry pull failed. Raised before the running
	// service group is touched.
	FailureFetch FailureKind = "fetch"

	// FailureStart: the composition collaborator rejected the start. Raised
	// after stop, before verification.
	FailureStart FailureKind = "start"

	// FailureHealth: the service group started but never became ready within
	// the polling bound.
	FailureHealth FailureKind = "health"
)

// Stage sentinels, matched with errors.Is by the orchestrator and the CLI.
var (
	ErrFatalConfiguration = errors.New("configuration invalid")
	ErrFetchFailed        = errors.New("image fetch failed")
	ErrStartFailed        = errors.New("service group start failed")
	ErrHealthExhausted    = errors.New("health check exhausted")
)

// StageError wraps a stage failure with its taxonomy kind.
type StageError struct {
	Kind FailureKind
	Err  error
}

func (e *StageError) Error() string {
	return fmt.Sprintf("%s: %v", e.Kind, e.Err)
}

func (e *StageError) Unwrap() error {
	return e.Err
}

// NewStageError creates a StageError for the given kind.
func NewStageError(kind FailureKind, err error) *StageError {
	return &StageError{Kind: kind, Err: err}
}

// KindOf extracts the FailureKind from an error chain, or "" if the error is
// not a tagged stage failure.
func KindOf(err error) FailureKind {
	var stageErr *StageError
	if errors.As(err, &stageErr) {
		return stageErr.Kind
	}
	return ""
}
