// Package utils provides small, generic helper functions used across
// different layers of the application. These utilities are independent
// of domain or business logic.
package utils

import "strconv"

// AtoiDefault converts a string to an int using strconv.Atoi.
// If the string is empty or cannot be parsed as an integer,
// it returns the provided default value instead.
//
// Example:
//
//	n := utils.AtoiDefault("42", 0) // returns 42
//	n = utils.AtoiDefault("", 10)   // returns 10
//	n = utils.AtoiDefault("x", 5)   // returns 5
func AtoiDefault(s string, def int) int {
	if s == "" {
		return def
	}
	if n, err := strconv.Atoi(s); err == nil {
		return n
	}
	return def
}

// ClampPage normalizes a 1-based page and a page size. Pages below 1 become
// 1; a non-positive limit becomes def; limits above max are capped.
func ClampPage(page, limit, def, max int) (int, int) {
	if page < 1 {
		page = 1
	}
	if limit <= 0 {
		limit = def
	}
	if max > 0 && limit > max {
		limit = max
	}
	return page, limit
}

// Offset returns the row offset of a 1-based page.
func Offset(page, limit int) int {
	if page < 1 || limit <= 0 {
		return 0
	}
	return (page - 1) * limit
}

// TotalPages is ceil(total/limit), or 0 when limit is not positive.
func TotalPages(total int64, limit int) int {
	if limit <= 0 || total <= 0 {
		return 0
	}
	return int((total + int64(limit) - 1) / int64(limit))
}
