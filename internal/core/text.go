package core

import "unicode/utf8"

// FloorCharBoundary returns the largest byte index <= index that is a valid
// UTF-8 character boundary in s.
func FloorCharBoundary(s string, index int) int {
	if index >= len(s) {
		return len(s)
	}
	for index > 0 && !utf8.RuneStart(s[index]) {
		index--
	}
	return index
}

// Truncate cuts s to at most maxLen bytes on a character boundary, appending
// a marker when anything was dropped.
func Truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:FloorCharBoundary(s, maxLen)] + "\n... (truncated)"
}
