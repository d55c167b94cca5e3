package core

import (
	"regexp"
	"strings"
	"unicode"
)

// Form acceptance rules.
var (
	// DescriptionRule rejects leading and trailing whitespace.
	DescriptionRule = regexp.MustCompile(`^\S(?:.*\S)?$`)

	// AmountRule accepts non-negative numbers with up to two decimals.
	AmountRule = regexp.MustCompile(`^(0|[1-9]\d*)(\.\d{1,2})?$`)

	// DateRule accepts YYYY-MM-DD with month 01-12 and day 01-31.
	DateRule = regexp.MustCompile(`^\d{4}-(0[1-9]|1[0-2])-(0[1-9]|[12]\d|3[01])$`)

	// CategoryRule accepts letters separated by single spaces or hyphens.
	CategoryRule = regexp.MustCompile(`^[A-Za-z]+(?:[ -][A-Za-z]+)*$`)

	wordRule = regexp.MustCompile(`\w+`)
)

// HasDuplicateWord reports whether s contains the same word twice in a row,
// separated only by whitespace and compared case-insensitively ("the the",
// "Coffee coffee"). RE2 has no back references, so adjacent word tokens are
// compared directly.
func HasDuplicateWord(s string) bool {
	locs := wordRule.FindAllStringIndex(s, -1)
	for i := 1; i < len(locs); i++ {
		prev, cur := locs[i-1], locs[i]
		if !onlySpace(s[prev[1]:cur[0]]) {
			continue
		}
		if strings.EqualFold(s[prev[0]:prev[1]], s[cur[0]:cur[1]]) {
			return true
		}
	}
	return false
}

func onlySpace(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if !unicode.IsSpace(r) {
			return false
		}
	}
	return true
}
