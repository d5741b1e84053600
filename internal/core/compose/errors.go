// Package compose contains pure functions for parsing the service group
// definition. No I/O happens here; the raw YAML is handed in by the shell.
package compose

import (
	"errors"
	"fmt"
)

// =============================================================================
// Error Types
// =============================================================================

var (
	// ErrEmptyInput: the group definition is empty.
	ErrEmptyInput = errors.New("service group definition is empty")

	// ErrInvalidYAML: the definition is not valid YAML.
	ErrInvalidYAML = errors.New("invalid YAML syntax")

	// ErrNoServices: the definition declares no services.
	ErrNoServices = errors.New("service group must define at least one service")

	// ErrServiceNoImage: a service has no image reference.
	ErrServiceNoImage = errors.New("service must have an image")

	// ErrCircularDependency: depends_on forms a cycle.
	ErrCircularDependency = errors.New("circular service dependency")

	// ErrUnsupportedFeature: the definition uses a compose feature this tool
	// does not run (secrets, configs, extends, build).
	ErrUnsupportedFeature = errors.New("unsupported compose feature")
)

// ParseError carries the location of a parse failure.
type ParseError struct {
	Field   string // e.g. "services.api"
	Message string
	Err     error
}

func (e *ParseError) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("%s: %s", e.Field, e.Message)
	}
	return e.Message
}

func (e *ParseError) Unwrap() error {
	return e.Err
}

// NewParseError creates a ParseError.
func NewParseError(field, message string, err error) *ParseError {
	return &ParseError{Field: field, Message: message, Err: err}
}
