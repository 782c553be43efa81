package dataset

import (
	"errors"
	"fmt"
)

// Sentinel errors, matched with errors.Is against the typed errors below.
var (
	// ErrParse indicates a source record that could not be decoded.
	ErrParse = errors.New("parse error")
	// ErrRegexCompile indicates a pattern invalid for the configured dialect.
	ErrRegexCompile = errors.New("regex compile error")
	// ErrIO indicates an unreadable source or unwritable destination.
	ErrIO = errors.New("io error")
	// ErrUsage indicates a missing required argument.
	ErrUsage = errors.New("usage error")
	// ErrNoEntries indicates an output document holding zero entries.
	ErrNoEntries = errors.New("no entries")
)

// ParseError reports a source line that is not valid JSON or lacks the
// expected fields.
type ParseError struct {
	Line int
	Err  error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("line %d: %v", e.Line, e.Err)
}

func (e *ParseError) Unwrap() error { return e.Err }

// Is reports ErrParse so callers can test the kind without errors.As.
func (e *ParseError) Is(target error) bool { return target == ErrParse }

// RegexCompileError reports a pattern that failed to compile, or failed to
// evaluate, under the configured dialect.
type RegexCompileError struct {
	Line    int
	Pattern string
	Err     error
}

func (e *RegexCompileError) Error() string {
	return fmt.Sprintf("line %d: invalid regex %q: %v", e.Line, e.Pattern, e.Err)
}

func (e *RegexCompileError) Unwrap() error { return e.Err }

func (e *RegexCompileError) Is(target error) bool { return target == ErrRegexCompile }

// IOError reports a fatal failure on the source or the destination.
type IOError struct {
	Op   string
	Path string
	Err  error
}

func (e *IOError) Error() string {
	return fmt.Sprintf("%s %s: %v", e.Op, e.Path, e.Err)
}

func (e *IOError) Unwrap() error { return e.Err }

func (e *IOError) Is(target error) bool { return target == ErrIO }

// UsageError reports invalid command line usage.
type UsageError struct {
	Msg string
}

func (e *UsageError) Error() string { return e.Msg }

func (e *UsageError) Is(target error) bool { return target == ErrUsage }
