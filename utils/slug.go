package utils

import (
	"regexp"
	"strings"
)

var (
	slugInvalid  = regexp.MustCompile(`[^a-z0-9]+`)
	slugEdgeDash = regexp.MustCompile(`^-+|-+$`)
)

// Slugify lowercases a title and collapses every run of non-alphanumeric
// characters into a single dash.
func Slugify(s string) string {
	s = strings.ToLower(s)
	s = slugInvalid.ReplaceAllString(s, "-")
	return slugEdgeDash.ReplaceAllString(s, "")
}
