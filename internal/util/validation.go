package util

import (
	"strings"
	"unicode/utf8"
)

// MaxContentLength bounds post, comment, reply and chat bodies
const MaxContentLength = 5000

// NormalizeContent trims surrounding whitespace and reports whether what is
// left is non-empty and within MaxContentLength runes.
func NormalizeContent(s string) (string, bool) {
	s = strings.TrimSpace(s)
	if s == "" || utf8.RuneCountInString(s) > MaxContentLength {
		return s, false
	}
	return s, true
}
