package category

import (
	"regexp"
	"strings"
)

type Category struct {
	ID          int64
	Name        string
	Slug        string
	Description string
	IsActive    bool
}

type ListFilter struct {
	OnlyActive bool
}

var slugInvalid = regexp.MustCompile(`[^a-z0-9]+`)

// Slugify lowercases s and collapses every run of non-alphanumerics into a dash.
func Slugify(s string) string {
	slug := slugInvalid.ReplaceAllString(strings.ToLower(strings.TrimSpace(s)), "-")
	return strings.Trim(slug, "-")
}
