package task

import "time"

// DispatcherResult is the first-stage output: classification plus the two
// boolean gates that decide whether the Analyst and Scheduler stages run.
type DispatcherResult struct {
	Category           Category `json:"category"`
	Priority           Priority `json:"priority"`
	RequiresAnalysis   bool     `json:"requires_analysis"`
	RequiresScheduling bool     `json:"requires_scheduling"`
	EstimatedTimeMS    int64    `json:"estimated_time_ms"`
	SuggestedActions   []string `json:"suggested_actions"`
	TokensUsed         int      `json:"tokens_used,omitempty"`
}

// AnalystResult is the second-stage output.
type AnalystResult struct {
	Insights        []string `json:"insights"`
	Patterns        []string `json:"patterns"`
	Recommendations []string `json:"recommendations"`
	Confidence      float64  `json:"confidence"`
	DataSources     []string `json:"data_sources"`
	TokensUsed      int      `json:"tokens_used,omitempty"`
}

// StubAnalystResult is the neutral stand-in used when the Scheduler runs
// without a real Analyst stage: zero confidence, empty lists.
func StubAnalystResult() *AnalystResult {
	return &AnalystResult{
		Insights:        []string{},
		Patterns:        []string{},
		Recommendations: []string{},
		Confidence:      0,
		DataSources:     []string{},
	}
}

// ScheduledAction is one concrete action placed on the schedule.
type ScheduledAction struct {
	Action          string   `json:"action"`
	Timeframe       string   `json:"timeframe"`
	Priority        Priority `json:"priority"`
	DurationMinutes int      `json:"duration_minutes"`
}

// TimelineEntry groups the activities planned for one date.
type TimelineEntry struct {
	Date       string   `json:"date"`
	Activities []string `json:"activities"`
}

// Reminder is a dated nudge derived from a scheduled action.
type Reminder struct {
	Type    string    `json:"type"`
	Message string    `json:"message"`
	DueDate time.Time `json:"due_date"`
}

// SchedulerResult is the third-stage output.
type SchedulerResult struct {
	Actions    []ScheduledAction `json:"actions"`
	Timeline   []TimelineEntry   `json:"timeline"`
	Reminders  []Reminder        `json:"reminders"`
	Timeframe  string            `json:"timeframe"`
	TokensUsed int               `json:"tokens_used,omitempty"`
}
