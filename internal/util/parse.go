package util

import (
	"strconv"
)

const (
	DefaultPageSize = 20
	MaxPageSize     = 100
)

// ParseInt parses a string to an integer, returning defaultValue if parsing fails
func ParseInt(s string, defaultValue int) int {
	if val, err := strconv.Atoi(s); err == nil {
		return val
	}
	return defaultValue
}

// ParsePagination reads page/limit strings into a 1-based page and a
// limit clamped to [1, MaxPageSize]. Bad values fall back to the defaults.
func ParsePagination(pageStr, limitStr string) (page, limit int) {
	page = ParseInt(pageStr, 1)
	if page < 1 {
		page = 1
	}
	limit = ParseInt(limitStr, DefaultPageSize)
	if limit < 1 {
		limit = DefaultPageSize
	}
	if limit > MaxPageSize {
		limit = MaxPageSize
	}
	return page, limit
}

// Offset converts a 1-based page into a row offset
func Offset(page, limit int) int {
	if page < 1 {
		page = 1
	}
	return (page - 1) * limit
}
