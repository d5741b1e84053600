// Package release contains pure types and functions describing a single
// rollout: the request, the image reference, and the terminal result.
package release

import (
	"fmt"
	"strings"

	"github.com/google/uuid"
)

// =============================================================================
// Deployment Request
// =============================================================================

// DefaultImageTag is used when the invocation does not name a tag.
const DefaultImageTag = "latest"

// Request describes one requested rollout. Immutable once constructed.
type Request struct {
	// ID identifies this orchestration run in logs and journal rows.
	ID string

	// ImageTag selects which build of the backend image to run.
	ImageTag string
}

// NewRequest constructs a Request, defaulting the tag when unspecified.
func NewRequest(imageTag string) Request {
	tag := strings.TrimSpace(imageTag)
	if tag == "" {
		tag = DefaultImageTag
	}
	return Request{
		ID:       uuid.NewString(),
		ImageTag: tag,
	}
}

// ImageRef composes the fully-qualified image reference for a request.
// Pattern: {namespace}/{repository}:{tag}, e.g. "bohyunshin/yamyam-backend:v1.2.0".
func ImageRef(namespace, repository, tag string) string {
	return fmt.Sprintf("%s/%s:%s", namespace, repository, tag)
}

// =============================================================================
// Deployment Result
// =============================================================================

// Outcome is the binary verdict of an orchestration run.
type Outcome string

const (
	OutcomeSuccess Outcome = "success"
	OutcomeFailure Outcome = "failure"
)

// Result is the terminal value of one orchestration run, produced exactly once.
type Result struct {
	Outcome Outcome
	// Err carries the failing stage's error when Outcome is OutcomeFailure.
	Err error
	// Attempts is the number of health probes performed, 0 when verification
	// never ran.
	Attempts int
}

// Success builds a passing result.
func Success(attempts int) Result {
	return Result{Outcome: OutcomeSuccess, Attempts: attempts}
}

// Failure builds a failing result carrying the stage error.
func Failure(err error, attempts int) Result {
	return Result{Outcome: OutcomeFailure, Err: err, Attempts: attempts}
}

// Failed reports whether the run failed.
func (r Result) Failed() bool {
	return r.Outcome == OutcomeFailure
}

// Reason returns the failure reason, or "" on success.
func (r Result) Reason() string {
	if r.Err == nil {
		return ""
	}
	return r.Err.Error()
}
