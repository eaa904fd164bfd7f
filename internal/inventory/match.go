package inventory

import "strings"

// Matches reports whether query occurs anywhere in displayName, ignoring case.
// The query is a plain substring: characters such as '+', '(' or '.' are
// compared literally, never interpreted as a pattern.
func Matches(query, displayName string) bool {
	if query == "" {
		return false
	}
	return strings.Contains(strings.ToLower(displayName), strings.ToLower(query))
}
