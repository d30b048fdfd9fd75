package projects

import (
	"regexp"
	"strings"
)

var reNonSlug = regexp.MustCompile(`[^a-z0-9]+`)

// Slugify lowers the title and collapses every non-alphanumeric run
// into a single hyphen.
func Slugify(title string) string {
	s := strings.ToLower(title)
	s = reNonSlug.ReplaceAllString(s, "-")
	return strings.Trim(s, "-")
}
