// Package crerr classifies the fatal conditions the execution core can
// raise: construction errors from the IR builder, lowering errors from the
// bytecode lowerer, runtime errors from the interpreter, and FFI
// preparation errors from the trampoline. None of these are recoverable in
// the sense of "the program continues"; they are returned as errors from
// FinishFunction, Lower and Invoke (call-stack exhaustion is the exception:
// it is raised as a panic carrying a CoreError), and giving each one a
// typed, wrapped value lets cmd/crux report its kind instead of a bare
// string.
package crerr

import (
	"fmt"

	"github.com/pkg/errors"
)

// Kind identifies which subsystem raised the error, mirroring the
// classification in the error handling design: construction, lowering,
// runtime, and FFI errors surface from different layers and are handled
// differently by an embedder (a construction error is a programmer bug in
// the front end; a runtime error during invoke is fatal to the process).
type Kind string

const (
	Construction Kind = "construction"
	Lowering     Kind = "lowering"
	Runtime      Kind = "runtime"
	FFI          Kind = "ffi"
)

// Location is the source-level position an error is attributed to, when
// the IR instruction that raised it carries debug info. It is always
// optional: IR built without debug info still produces valid errors, just
// without a File/Line/Column.
type Location struct {
	File   string
	Line   int
	Column int
}

func (l Location) String() string {
	if l.File == "" {
		return ""
	}
	if l.Line == 0 {
		return l.File
	}
	if l.Column == 0 {
		return fmt.Sprintf("%s:%d", l.File, l.Line)
	}
	return fmt.Sprintf("%s:%d:%d", l.File, l.Line, l.Column)
}

// Frame is one entry of a captured call-stack snapshot, taken from the
// interpreter's control stack at the point a runtime error was raised.
type Frame struct {
	Function string
	Location Location
}

// CoreError is the error type every fatal path in the core wraps its cause
// in before it escapes to an embedder.
type CoreError struct {
	Kind      Kind
	Message   string
	Location  Location
	CallStack []Frame
	cause     error
}

// New creates a CoreError with no wrapped cause.
func New(kind Kind, message string) *CoreError {
	return &CoreError{Kind: kind, Message: message}
}

// Wrap creates a CoreError that records cause as its underlying error,
// wrapped via github.com/pkg/errors so it carries a stack trace. Unwrap and
// Cause reach it; the stack trace prints with %+v on the unwrapped cause,
// not on the CoreError itself.
func Wrap(kind Kind, cause error, message string) *CoreError {
	return &CoreError{Kind: kind, Message: message, cause: errors.Wrap(cause, message)}
}

func (e *CoreError) Error() string {
	loc := e.Location.String()
	if loc != "" {
		return fmt.Sprintf("%s: %s (at %s)", e.Kind, e.Message, loc)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

// Unwrap exposes the wrapped cause, if any, to errors.Is/errors.As.
func (e *CoreError) Unwrap() error {
	return e.cause
}

// WithLocation attaches a source location and returns the same error.
func (e *CoreError) WithLocation(loc Location) *CoreError {
	e.Location = loc
	return e
}

// WithStack attaches a captured call-stack snapshot and returns the same error.
func (e *CoreError) WithStack(frames []Frame) *CoreError {
	e.CallStack = frames
	return e
}

// Cause unwraps to the deepest non-CoreError cause, mirroring
// github.com/pkg/errors.Cause for callers that only have an `error`. A
// CoreError with no wrapped cause is returned as is.
func Cause(err error) error {
	for {
		ce, ok := err.(*CoreError)
		if !ok || ce.cause == nil {
			return errors.Cause(err)
		}
		err = errors.Cause(ce.cause)
	}
}
