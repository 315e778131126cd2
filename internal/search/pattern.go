package search

import (
	"errors"
	"fmt"
	"time"

	"github.com/dlclark/regexp2"
)

// Pattern is a compiled search expression in which "." also matches
// newlines, so one pattern can span several lines of a unit. A Pattern is
// safe for concurrent use.
type Pattern struct {
	expr string
	re   *regexp2.Regexp
}

// ErrMatchTimeout is wrapped by Match errors when a match runs past the
// pattern's timeout.
var ErrMatchTimeout = errors.New("match timed out")

// InvalidPatternError reports an expression that failed to compile.
type InvalidPatternError struct {
	Pattern string
	Err     error
}

func (e *InvalidPatternError) Error() string {
	return fmt.Sprintf("invalid pattern %q: %v", e.Pattern, e.Err)
}

func (e *InvalidPatternError) Unwrap() error {
	return e.Err
}

// Compile parses expr using Python-compatible regular expression syntax.
// A positive timeout bounds each call to Match; zero means no limit.
func Compile(expr string, timeout time.Duration) (*Pattern, error) {
	re, err := regexp2.Compile(expr, regexp2.Singleline)
	if err != nil {
		return nil, &InvalidPatternError{Pattern: expr, Err: err}
	}
	if timeout > 0 {
		re.MatchTimeout = timeout
	}
	return &Pattern{expr: expr, re: re}, nil
}

// String returns the source expression.
func (p *Pattern) String() string {
	return p.expr
}

// Match reports whether the pattern occurs anywhere in s. The only error is
// a timeout, which wraps ErrMatchTimeout.
func (p *Pattern) Match(s string) (bool, error) {
	ok, err := p.re.MatchString(s)
	if err != nil {
		return false, fmt.Errorf("%w after %v", ErrMatchTimeout, p.re.MatchTimeout)
	}
	return ok, nil
}
