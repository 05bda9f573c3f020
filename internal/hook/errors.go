package hook

import "errors"

// Sentinel errors for the hook registry.
var (
	// ErrNilHandler is returned when a nil handler is registered.
	ErrNilHandler = errors.New("hook handler cannot be nil")

	// ErrInvalidPoint is returned when a hook point name is empty.
	ErrInvalidPoint = errors.New("invalid hook point")

	// ErrDuplicateID is returned when a caller-supplied registration id
	// is already in use.
	ErrDuplicateID = errors.New("duplicate registration id")

	// ErrHandlerPanic marks a hook handler that panicked.
	ErrHandlerPanic = errors.New("hook handler panicked")
)

// PanicError wraps a recovered hook handler panic as an error.
type PanicError struct {
	// Point is the hook point whose handler panicked.
	Point Point

	// RegistrationID identifies the panicked handler's registration.
	RegistrationID string

	// Value is the value passed to panic().
	Value any

	// Stack is the stack trace at the time of the panic.
	Stack string
}

// Error implements the error interface.
func (e *PanicError) Error() string {
	return "hook panic for registration " + e.RegistrationID + " at point " + e.Point.String()
}

// Is allows errors.Is to match PanicError with ErrHandlerPanic.
func (e *PanicError) Is(target error) bool {
	return target == ErrHandlerPanic
}
