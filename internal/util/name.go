package util

import "strings"

// NormalizeName trims user input and collapses inner whitespace runs to a
// single space, so "Acme  Corp " and "Acme Corp" collide on uniqueness checks.
func NormalizeName(raw string) string {
	return strings.Join(strings.Fields(raw), " ")
}

// OptionalString returns nil for blank input, otherwise a trimmed copy.
func OptionalString(raw *string) *string {
	if raw == nil {
		return nil
	}
	s := strings.TrimSpace(*raw)
	if s == "" {
		return nil
	}
	return &s
}
