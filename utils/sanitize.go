package utils

import (
	"html"
	"strings"

	"github.com/microcosm-cc/bluemonday"
)

var sanitizer = bluemonday.StrictPolicy()

// Sanitize strips all markup from user text before it is placed in a prompt.
// Entities produced by the policy are decoded again so the model sees plain text.
func Sanitize(input string) string {
	return strings.TrimSpace(html.UnescapeString(sanitizer.Sanitize(input)))
}
