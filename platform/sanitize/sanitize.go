// Package sanitize provides text sanitization for values taken from
// untrusted sources before they are stored.
package sanitize

import (
	"regexp"
	"strings"
)

var (
	// htmlTagRegex matches HTML tags
	htmlTagRegex = regexp.MustCompile(`<[^>]*>`)
	spaceRegex   = regexp.MustCompile(`\s+`)
)

var entityReplacer = strings.NewReplacer(
	"&lt;", "<",
	"&gt;", ">",
	"&amp;", "&",
	"&quot;", "\"",
	"&#39;", "'",
	"&nbsp;", " ",
)

// StripHTML removes HTML tags, decodes common entities and strips again so
// encoded tags do not survive.
func StripHTML(s string) string {
	result := htmlTagRegex.ReplaceAllString(s, "")
	result = entityReplacer.Replace(result)
	result = htmlTagRegex.ReplaceAllString(result, "")
	return strings.TrimSpace(result)
}

// Text strips markup and collapses runs of whitespace into single spaces.
func Text(s string) string {
	return spaceRegex.ReplaceAllString(StripHTML(s), " ")
}

// OptionalText sanitizes an optional value. Nil and values that are empty
// after sanitizing both become nil.
func OptionalText(s *string) *string {
	if s == nil {
		return nil
	}
	result := Text(*s)
	if result == "" {
		return nil
	}
	return &result
}
