package feed

import (
	"html"
	"strings"

	"github.com/microcosm-cc/bluemonday"
)

const maxSummaryLen = 500

var stripPolicy = bluemonday.StrictPolicy()

// CleanSummary strips markup from a feed entry's description, collapses
// whitespace and bounds the result to maxSummaryLen runes.
func CleanSummary(raw string) string {
	s := stripPolicy.Sanitize(raw)
	// bluemonday entity-escapes its output; the summary is plain text here.
	s = html.UnescapeString(s)
	s = strings.Join(strings.Fields(s), " ")
	return truncateRunes(s, maxSummaryLen)
}

func truncateRunes(s string, n int) string {
	rs := []rune(s)
	if len(rs) <= n {
		return s
	}
	return string(rs[:n])
}
