package agents

import (
	"regexp"
	"strings"
)

// numberedMarker matches leading list numbering such as "1.", "2)", "(3)".
var numberedMarker = regexp.MustCompile(`^\(?\d+[.)]?\s+`)

// StripMarker removes a leading bullet or numbering marker from a line.
func StripMarker(line string) string {
	s := strings.TrimSpace(line)
	for _, bullet := range []string{"- ", "* ", "• "} {
		if strings.HasPrefix(s, bullet) {
			return strings.TrimSpace(s[len(bullet):])
		}
	}
	return strings.TrimSpace(numberedMarker.ReplaceAllString(s, ""))
}

// ParseItems splits completion output into list items: one per non-empty
// line, markers stripped, capped at max. Lines that strip to nothing are
// dropped; that loss is accepted.
func ParseItems(text string, max int) []string {
	items := make([]string, 0, max)
	for _, line := range strings.Split(text, "\n") {
		item := StripMarker(line)
		if item == "" {
			continue
		}
		items = append(items, item)
		if len(items) == max {
			break
		}
	}
	return items
}
