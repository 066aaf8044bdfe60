package generator

import (
	"errors"
	"fmt"
)

// DiagnosticKind classifies a non-fatal problem found while extracting.
type DiagnosticKind string

const (
	// ParseWarning marks a malformed annotation block. The block is skipped.
	ParseWarning DiagnosticKind = "parse"
	// UnresolvedTypeReference marks a lua_type naming an unknown type. The
	// annotation is emitted verbatim.
	UnresolvedTypeReference DiagnosticKind = "unresolved-type"
)

// Diagnostic is a warning attached to a source location.
type Diagnostic struct {
	Kind    DiagnosticKind
	Path    string
	Line    int
	Message string
}

func (d Diagnostic) String() string {
	return fmt.Sprintf("%s:%d: %s: %s", d.Path, d.Line, d.Kind, d.Message)
}

// IOError is fatal: the build aborts and reports the path.
type IOError struct {
	Path string
	Err  error
}

func (e *IOError) Error() string {
	return fmt.Sprintf("read %s: %v", e.Path, e.Err)
}

func (e *IOError) Unwrap() error {
	return e.Err
}

// ErrWarningsPresent is returned in strict mode when diagnostics were reported.
var ErrWarningsPresent = errors.New("documentation build produced warnings")

// IsIOError reports whether err is, or wraps, an *IOError.
func IsIOError(err error) bool {
	var ioErr *IOError
	return errors.As(err, &ioErr)
}
