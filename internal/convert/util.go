package convert

import (
	"regexp"
	"strings"
)

var nonSlug = regexp.MustCompile(`[^a-z0-9]+`)

// Slug makes a file-name-safe name from a title: "Week 3: Graphs/Trees"
// becomes "week-3-graphs-trees". It returns fallback for titles with no
// usable characters.
func Slug(s, fallback string) string {
	s = nonSlug.ReplaceAllString(strings.ToLower(strings.TrimSpace(s)), "-")
	s = strings.Trim(s, "-")
	if len(s) > 60 {
		s = strings.TrimRight(s[:60], "-")
	}
	if s == "" {
		return fallback
	}
	return s
}
