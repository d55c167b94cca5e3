// Package query filters, sorts and highlights transactions for the
// transaction list.
package query

import (
	"errors"
	"fmt"
	"regexp"
	"time"

	"fintrack/internal/cache"
)

// ErrInvalidPattern is wrapped around regexp compile errors for user patterns.
var ErrInvalidPattern = errors.New("invalid regular expression")

// Matcher is a compiled case-insensitive search pattern. It is immutable and
// safe for concurrent use.
type Matcher struct {
	re     *regexp.Regexp
	source string
}

// CompilePattern compiles user input into a case-insensitive matcher.
// Empty input means no filter and returns a nil matcher with no error.
// Malformed input returns a nil matcher and an error wrapping
// ErrInvalidPattern; callers show it to the user and keep listing
// everything.
func CompilePattern(input string) (*Matcher, error) {
	if input == "" {
		return nil, nil
	}
	re, err := regexp.Compile("(?i)" + input)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidPattern, err)
	}
	return &Matcher{re: re, source: input}, nil
}

// MatchString reports whether s contains a match.
func (m *Matcher) MatchString(s string) bool {
	return m.re.MatchString(s)
}

// Source returns the pattern as typed by the user.
func (m *Matcher) Source() string {
	return m.source
}

type compiled struct {
	matcher *Matcher
	err     error
}

// Compiler memoizes CompilePattern. Search requests arrive on every
// keystroke, usually repeating the previous prefix.
type Compiler struct {
	cache *cache.LRU[string, compiled]
}

func NewCompiler(size int, ttl time.Duration) *Compiler {
	return &Compiler{cache: cache.NewLRU[string, compiled](size, ttl)}
}

func (c *Compiler) Compile(input string) (*Matcher, error) {
	if input == "" {
		return nil, nil
	}
	if hit, ok := c.cache.Get(input); ok {
		return hit.matcher, hit.err
	}
	m, err := CompilePattern(input)
	c.cache.Set(input, compiled{matcher: m, err: err})
	return m, err
}

// Cache exposes the underlying cache so a janitor can purge it.
func (c *Compiler) Cache() cache.Cleaner {
	return c.cache
}
