// Package filter decides which discovered resources are selected for cleanup.
package filter

import (
	"fmt"
	"regexp"
)

// DefaultPattern matches the naming convention of test clusters.
const DefaultPattern = ".*test-cluster.*"

// PatternError reports a filter expression that does not compile.
type PatternError struct {
	Pattern string
	Err     error
}

func (e *PatternError) Error() string {
	return fmt.Sprintf("invalid filter expression %q: %v", e.Pattern, e.Err)
}

func (e *PatternError) Unwrap() error {
	return e.Err
}

// Matcher evaluates a compiled pattern against resource names and descriptions.
// It is immutable and safe to share.
type Matcher struct {
	re *regexp.Regexp
}

// New compiles pattern. An empty pattern selects DefaultPattern.
func New(pattern string) (*Matcher, error) {
	if pattern == "" {
		pattern = DefaultPattern
	}
	re, err := regexp.Compile(pattern)
	if err != nil {
		return nil, &PatternError{Pattern: pattern, Err: err}
	}
	return &Matcher{re: re}, nil
}

// MustNew is like New but panics on error. Intended for tests and constants.
func MustNew(pattern string) *Matcher {
	m, err := New(pattern)
	if err != nil {
		panic(err)
	}
	return m
}

// Matches reports whether the pattern matches at least one non-empty candidate.
// Candidates are checked in order, typically name then description.
func (m *Matcher) Matches(candidates ...string) bool {
	for _, c := range candidates {
		if c != "" && m.re.MatchString(c) {
			return true
		}
	}
	return false
}

// String returns the source pattern.
func (m *Matcher) String() string {
	return m.re.String()
}
