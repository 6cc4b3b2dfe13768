package deploy

import (
	"errors"
	"fmt"

	"github.com/AltairaLabs/armature/arm"
)

// TaskError reports a failed post-deploy task with enough context to act
// on: the resource it targeted and the underlying cause. Task failures are
// surfaced, never retried or downgraded to warnings.
type TaskError struct {
	Resource arm.ResourceName
	Cause    error
}

// Error implements the error interface.
func (e *TaskError) Error() string {
	return fmt.Sprintf("post-deploy task for %q failed: %v", e.Resource, e.Cause)
}

// Unwrap returns the underlying cause for errors.Is/As compatibility.
func (e *TaskError) Unwrap() error { return e.Cause }

// IsTaskError returns the TaskError if err is (or wraps) one.
func IsTaskError(err error) *TaskError {
	var te *TaskError
	if errors.As(err, &te) {
		return te
	}
	return nil
}
