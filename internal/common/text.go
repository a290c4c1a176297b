package common

import (
	"html"
	"regexp"
	"strings"

	"github.com/microcosm-cc/bluemonday"
)

var (
	scriptRe    = regexp.MustCompile(`(?i)<script[^>]*>[\s\S]*?</script>`)
	styleRe     = regexp.MustCompile(`(?i)<style[^>]*>[\s\S]*?</style>`)
	stripPolicy = bluemonday.StripTagsPolicy()
)

// SanitizeHTML reduces an HTML email body to plain text: script and style
// blocks removed, tags stripped, entities decoded, whitespace collapsed.
// Plain-text input passes through with whitespace normalized.
func SanitizeHTML(s string) string {
	s = html.UnescapeString(s)
	s = scriptRe.ReplaceAllString(s, "")
	s = styleRe.ReplaceAllString(s, "")
	s = stripPolicy.Sanitize(s)
	s = html.UnescapeString(s)
	return strings.Join(strings.Fields(s), " ")
}
