package util

import (
	"regexp"
	"strings"
)

var reSpaces = regexp.MustCompile(`\s+`)

// NormalizeKey is the lookup form of a free-text value: trimmed and lowercased.
func NormalizeKey(input string) string {
	return strings.ToLower(strings.TrimSpace(input))
}

func IsBlank(input string) bool {
	return strings.TrimSpace(input) == ""
}

func NormalizeSpaces(input string) string {
	return strings.TrimSpace(reSpaces.ReplaceAllString(input, " "))
}

// ContainsAny reports whether input contains any of the phrases, ignoring case.
// Phrases are expected in lower case.
func ContainsAny(input string, phrases []string) bool {
	lower := strings.ToLower(input)
	for _, p := range phrases {
		if p != "" && strings.Contains(lower, p) {
			return true
		}
	}
	return false
}
