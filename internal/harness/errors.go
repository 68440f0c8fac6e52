package harness

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidConfiguration is returned before any worker is spawned when
	// run parameters are out of range.
	ErrInvalidConfiguration = errors.New("invalid configuration")

	// ErrInternalFault is returned when a worker faults or the harness
	// observes a value no race could have produced.
	ErrInternalFault = errors.New("internal fault")
)

// ConfigError describes a rejected run parameter.
type ConfigError struct {
	Field  string
	Value  any
	Reason string
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("%s: %s = %v: %s", ErrInvalidConfiguration, e.Field, e.Value, e.Reason)
}

func (e *ConfigError) Unwrap() error {
	return ErrInvalidConfiguration
}

// FaultError reports a harness defect. Worker is -1 when the fault is not
// attributable to a single worker.
type FaultError struct {
	Worker int
	Cause  error
}

func (e *FaultError) Error() string {
	if e.Worker < 0 {
		return fmt.Sprintf("%s: %v", ErrInternalFault, e.Cause)
	}
	return fmt.Sprintf("%s: worker %d: %v", ErrInternalFault, e.Worker, e.Cause)
}

// Is makes errors.Is(err, ErrInternalFault) hold while Unwrap still exposes
// the cause.
func (e *FaultError) Is(target error) bool {
	return target == ErrInternalFault
}

func (e *FaultError) Unwrap() error {
	return e.Cause
}

// recoverFault converts a recovered panic value into a FaultError.
func recoverFault(worker int, r any) *FaultError {
	if err, ok := r.(error); ok {
		return &FaultError{Worker: worker, Cause: fmt.Errorf("panic: %w", err)}
	}
	return &FaultError{Worker: worker, Cause: fmt.Errorf("panic: %v", r)}
}
