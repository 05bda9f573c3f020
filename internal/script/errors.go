package script

import "errors"

// Sentinel errors for the script package.
var (
	// ErrScriptLoad is returned when a script fails to compile or run.
	ErrScriptLoad = errors.New("script load failed")

	// ErrFunctionNotFound is returned when a script does not define the
	// requested global function.
	ErrFunctionNotFound = errors.New("script function not found")

	// ErrScriptClosed is returned when a handler is invoked after Close.
	ErrScriptClosed = errors.New("script is closed")
)
