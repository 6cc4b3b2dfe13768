package arm

import (
	"errors"
	"fmt"
)

// ConfigError reports a configuration invariant violation detected when a
// builder is finalized. It is fatal to compiling the batch it belongs to
// and is never downgraded to a warning.
type ConfigError struct {
	// Resource is the dependency name of the offending configuration.
	Resource ResourceName
	// Field names the configuration field that failed, when known.
	Field string
	// Message describes the violation.
	Message string
}

// Error implements the error interface.
func (e *ConfigError) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("resource %q: %s: %s", e.Resource, e.Field, e.Message)
	}
	return fmt.Sprintf("resource %q: %s", e.Resource, e.Message)
}

// IsConfigError returns the ConfigError if err is (or wraps) one.
func IsConfigError(err error) *ConfigError {
	var ce *ConfigError
	if errors.As(err, &ce) {
		return ce
	}
	return nil
}
