package release

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// =============================================================================
// Request Tests
// =============================================================================

func TestNewRequest_DefaultsTag(t *testing.T) {
	req := NewRequest("")
	assert.Equal(t, DefaultImageTag, req.ImageTag)
	assert.NotEmpty(t, req.ID)
}

func TestNewRequest_TrimsWhitespace(t *testing.T) {
	req := NewRequest("  v2.1.0  ")
	assert.Equal(t, "v2.1.0", req.ImageTag)
}

func TestNewRequest_UniqueIDs(t *testing.T) {
	a := NewRequest("v1")
	b := NewRequest("v1")
	assert.NotEqual(t, a.ID, b.ID)
}

func TestImageRef(t *testing.T) {
	ref := ImageRef("bohyunshin", "yamyam-backend", "v1.2.0")
	assert.Equal(t, "bohyunshin/yamyam-backend:v1.2.0", ref)
}

// =============================================================================
// Result Tests
// =============================================================================

func TestResult_Success(t *testing.T) {
	r := Success(3)
	assert.False(t, r.Failed())
	assert.Equal(t, 3, r.Attempts)
	assert.Empty(t, r.Reason())
}

func TestResult_Failure(t *testing.T) {
	err := NewStageError(FailureHealth, ErrHealthExhausted)
	r := Failure(err, 30)
	assert.True(t, r.Failed())
	assert.Equal(t, 30, r.Attempts)
	assert.Contains(t, r.Reason(), "health check exhausted")
}

// =============================================================================
// StageError Tests
// =============================================================================

func TestStageError_WrapsSentinel(t *testing.T) {
	err := NewStageError(FailureFetch, fmt.Errorf("pulling image: %w", ErrFetchFailed))

	assert.ErrorIs(t, err, ErrFetchFailed)
	assert.Equal(t, FailureFetch, KindOf(err))
}

func TestKindOf_WrappedDeep(t *testing.T) {
	inner := NewStageError(FailureStart, ErrStartFailed)
	wrapped := fmt.Errorf("deploy run abc: %w", inner)

	assert.Equal(t, FailureStart, KindOf(wrapped))
}

func TestKindOf_UntaggedError(t *testing.T) {
	assert.Equal(t, FailureKind(""), KindOf(errors.New("boom")))
}

func TestStageError_Message(t *testing.T) {
	err := NewStageError(FailureConfiguration, ErrFatalConfiguration)
	require.Contains(t, err.Error(), "configuration")
}
