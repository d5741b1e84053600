// Package env contains pure functions for validating the deployment
// environment contract. This is part of the Functional Core - no I/O.
package env

import (
	"errors"
	"fmt"
	"strings"
)

// =============================================================================
// Required Bindings
// =============================================================================

// Required is the fixed set of environment bindings the backend service group
// needs before a rollout may touch anything.
var Required = []string{
	"REGISTRY_USERNAME",
	"DATABASE_URL",
	"CACHE_URL",
	"SECRET_KEY",
	"DB_USER",
	"DB_PASSWORD",
	"DB_NAME",
}

// =============================================================================
// ConfigSet
// =============================================================================

// ConfigSet is an immutable snapshot of the required environment bindings,
// taken once at orchestration start.
type ConfigSet struct {
	values map[string]string
}

// Collect builds a ConfigSet by resolving every required name through lookup
// (typically os.LookupEnv). Missing or empty values are recorded as absent.
func Collect(lookup func(string) (string, bool)) ConfigSet {
	values := make(map[string]string, len(Required))
	for _, name := range Required {
		if v, ok := lookup(name); ok && v != "" {
			values[name] = v
		}
	}
	return ConfigSet{values: values}
}

// NewConfigSet builds a ConfigSet from an explicit map. Empty values are
// treated as absent, matching Collect.
func NewConfigSet(values map[string]string) ConfigSet {
	set := make(map[string]string, len(values))
	for k, v := range values {
		if v != "" {
			set[k] = v
		}
	}
	return ConfigSet{values: set}
}

// Get returns the value bound to name, or "" if absent.
func (c ConfigSet) Get(name string) string {
	return c.values[name]
}

// Values returns a copy of all resolved bindings.
func (c ConfigSet) Values() map[string]string {
	out := make(map[string]string, len(c.values))
	for k, v := range c.values {
		out[k] = v
	}
	return out
}

// =============================================================================
// Validation
// =============================================================================

// ErrMissingBindings is the sentinel for incomplete environment configuration.
var ErrMissingBindings = errors.New("required environment bindings missing")

// MissingError reports every required binding that failed to resolve.
// The complete list is collected before returning so an operator sees all
// missing names in one pass instead of discovering them one failure at a time.
type MissingError struct {
	Names []string
}

func (e *MissingError) Error() string {
	return fmt.Sprintf("missing required environment variables: %s", strings.Join(e.Names, ", "))
}

func (e *MissingError) Unwrap() error {
	return ErrMissingBindings
}

// Validate checks that every required binding resolved to a non-empty value.
// Returns nil when the set is complete, otherwise a *MissingError naming all
// absent bindings in Required order.
func Validate(set ConfigSet) error {
	var missing []string
	for _, name := range Required {
		if set.Get(name) == "" {
			missing = append(missing, name)
		}
	}
	if len(missing) == 0 {
		return nil
	}
	return &MissingError{Names: missing}
}
