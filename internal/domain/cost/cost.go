// Package cost defines domain types for per-stage cost accounting and
// monthly usage aggregation.
package cost

import "time"

// Record is one stage invocation's monetary charge. Append-only; the sum
// of a task's records always equals the task's total cost.
type Record struct {
	ID          string    `json:"id"`
	TaskID      string    `json:"task_id"`
	UserID      string    `json:"user_id"`
	AgentName   string    `json:"agent_name"`
	Tokens      int       `json:"tokens"`
	CostCents   int64     `json:"cost_cents"`
	ExecutionMS int64     `json:"execution_ms"`
	CreatedAt   time.Time `json:"created_at"`
}

// MonthlyUsage aggregates a user's spend for one calendar month.
type MonthlyUsage struct {
	UserID     string `json:"user_id"`
	Month      string `json:"month"` // YYYY-MM
	TotalCents int64  `json:"total_cents"`
	TaskCount  int    `json:"task_count"`
}

// MonthKey formats t as the YYYY-MM bucket key used for usage rows.
func MonthKey(t time.Time) string {
	return t.UTC().Format("2006-01")
}
