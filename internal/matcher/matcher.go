// Package matcher compiles pattern strings into matchers under a chosen
// regex dialect.
package matcher

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/dlclark/regexp2"
)

// Dialect names a regex syntax and matching semantics.
type Dialect string

const (
	// DialectECMAScript uses ECMAScript syntax (lookaround,
	// backreferences, backtracking) with unanchored search like
	// RegExp.prototype.test. Matching runs over code points, not UTF-16
	// code units, so "." and negated classes consume a whole astral
	// character where JavaScript sees two surrogates ("^.$" matches "😀").
	// "." also matches U+2028 and U+2029, which JavaScript excludes.
	DialectECMAScript Dialect = "ecmascript"
	// DialectRE2 follows Go's linear-time RE2 syntax.
	DialectRE2 Dialect = "re2"
)

// DefaultMatchTimeout bounds a single ECMAScript match.
const DefaultMatchTimeout = time.Second

// ErrUnknownDialect is returned by ParseDialect for unsupported names.
var ErrUnknownDialect = errors.New("unknown regex dialect")

// Matcher tests whether a string matches a compiled pattern.
type Matcher interface {
	MatchString(s string) (bool, error)
}

// Options configures Compile.
type Options struct {
	Dialect      Dialect
	MatchTimeout time.Duration
}

// CompileError reports a pattern rejected by the dialect.
type CompileError struct {
	Pattern string
	Dialect Dialect
	Err     error
}

func (e *CompileError) Error() string {
	return fmt.Sprintf("compile %s pattern: %v", e.Dialect, e.Err)
}

func (e *CompileError) Unwrap() error { return e.Err }

// ParseDialect resolves a config value; empty selects ECMAScript.
func ParseDialect(s string) (Dialect, error) {
	switch Dialect(strings.ToLower(strings.TrimSpace(s))) {
	case "", DialectECMAScript:
		return DialectECMAScript, nil
	case DialectRE2:
		return DialectRE2, nil
	default:
		return "", fmt.Errorf("%w: %q (must be ecmascript or re2)", ErrUnknownDialect, s)
	}
}

// Compile builds a Matcher for pattern.
func Compile(pattern string, opts Options) (Matcher, error) {
	dialect := opts.Dialect
	if dialect == "" {
		dialect = DialectECMAScript
	}

	switch dialect {
	case DialectRE2:
		re, err := regexp.Compile(pattern)
		if err != nil {
			return nil, &CompileError{Pattern: pattern, Dialect: dialect, Err: err}
		}
		return re2Matcher{re: re}, nil
	case DialectECMAScript:
		re, err := regexp2.Compile(pattern, regexp2.ECMAScript)
		if err != nil {
			return nil, &CompileError{Pattern: pattern, Dialect: dialect, Err: err}
		}
		re.MatchTimeout = opts.MatchTimeout
		if re.MatchTimeout <= 0 {
			re.MatchTimeout = DefaultMatchTimeout
		}
		return ecmaMatcher{re: re}, nil
	default:
		return nil, &CompileError{Pattern: pattern, Dialect: dialect, Err: ErrUnknownDialect}
	}
}

type re2Matcher struct {
	re *regexp.Regexp
}

func (m re2Matcher) MatchString(s string) (bool, error) {
	return m.re.MatchString(s), nil
}

type ecmaMatcher struct {
	re *regexp2.Regexp
}

// MatchString fails only when the match exceeds the timeout.
func (m ecmaMatcher) MatchString(s string) (bool, error) {
	return m.re.MatchString(s)
}
