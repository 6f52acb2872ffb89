package cleaner

import (
	"regexp"
	"strings"
)

var trailingSpaceRe = regexp.MustCompile(`[ \t]+\n`)
var blankRunRe = regexp.MustCompile(`\n{3,}`)

const truncationMarker = "\n\n[…truncated]"

// tightenWhitespace normalises line endings, drops trailing spaces, and
// collapses runs of three or more blank lines down to two. Idempotent:
// running it twice produces the same output as running it once.
func tightenWhitespace(markdown string) string {
	s := strings.ReplaceAll(markdown, "\r\n", "\n")
	s = strings.ReplaceAll(s, "\r", "\n")
	s = trailingSpaceRe.ReplaceAllString(s, "\n")
	s = blankRunRe.ReplaceAllString(s, "\n\n")
	return strings.TrimSpace(s)
}

// capLength truncates markdown to maxLength runes and appends a truncation
// marker, when maxLength is positive and the content exceeds it.
func capLength(markdown string, maxLength int) string {
	if maxLength <= 0 {
		return markdown
	}
	runes := []rune(markdown)
	if len(runes) <= maxLength {
		return markdown
	}
	return string(runes[:maxLength]) + truncationMarker
}
