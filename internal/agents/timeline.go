package agents

import (
	"regexp"
	"strings"

	"github.com/nurtura-ai/nurtura/internal/domain/task"
)

// datePattern matches a YYYY-MM-DD date at the start of a line, with or
// without a trailing colon or prose.
var datePattern = regexp.MustCompile(`^(\d{4}-\d{2}-\d{2})`)

// bulletPrefixes open an activity line within a timeline bucket.
var bulletPrefixes = []string{"- ", "* ", "• "}

// ParseTimeline parses free-text plan output into timeline entries with a
// line-oriented heuristic: a date opens a new bucket, a bulleted line
// appends an activity to the open bucket. Lines that match neither, and
// activities arriving before any date, are silently dropped. This parser
// is deliberately lossy; malformed model output shrinks the timeline
// rather than failing the stage.
func ParseTimeline(text string) []task.TimelineEntry {
	var entries []task.TimelineEntry

	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}

		if m := datePattern.FindStringSubmatch(line); m != nil {
			entries = append(entries, task.TimelineEntry{Date: m[1]})
			continue
		}

		for _, prefix := range bulletPrefixes {
			if strings.HasPrefix(line, prefix) {
				if len(entries) == 0 {
					break // activity before any date: dropped
				}
				activity := strings.TrimSpace(line[len(prefix):])
				if activity != "" {
					last := &entries[len(entries)-1]
					last.Activities = append(last.Activities, activity)
				}
				break
			}
		}
	}

	return entries
}
