// Package sanitize strips markup from free-text input before it is stored.
package sanitize

import (
	"strings"

	"github.com/microcosm-cc/bluemonday"
)

// policy removes every tag and attribute, keeping only text content.
var policy = bluemonday.StrictPolicy()

// Strip removes all markup tags and attributes from s and returns only the
// text content, with HTML-significant characters left entity-escaped. The
// output is a fixed point: Strip(Strip(s)) == Strip(s), because the parser
// decodes entities in text and the writer re-escapes them identically.
func Strip(s string) string {
	return policy.Sanitize(s)
}

// StripAndTrim strips markup and trims surrounding whitespace.
func StripAndTrim(s string) string {
	return strings.TrimSpace(Strip(s))
}
