// Package task defines the Task domain entity: one end-to-end pipeline run
// for one free-text parenting input, plus the per-stage result payloads.
package task

import "time"

// Status represents the lifecycle state of a task. Transitions are
// monotonic: processing -> completed or processing -> failed, nothing else.
type Status string

const (
	StatusProcessing Status = "processing"
	StatusCompleted  Status = "completed"
	StatusFailed     Status = "failed"
)

// Terminal reports whether no further transition is legal.
func (s Status) Terminal() bool {
	return s == StatusCompleted || s == StatusFailed
}

// CanTransition reports whether moving from s to next is a legal edge.
func (s Status) CanTransition(next Status) bool {
	return s == StatusProcessing && next.Terminal()
}

// Kind tags what executing a task means for an agent. ExecuteTask switches
// exhaustively on this enum; unrecognized tags fail softly.
type Kind string

const (
	KindPipeline                Kind = "pipeline"
	KindProcessInput            Kind = "process_input"
	KindGenerateInsights        Kind = "generate_insights"
	KindGenerateRecommendations Kind = "generate_recommendations"
)

// Task represents one pipeline execution.
type Task struct {
	ID               string            `json:"id"`
	UserID           string            `json:"user_id"`
	ChildID          string            `json:"child_id,omitempty"`
	AgentID          string            `json:"agent_id,omitempty"`
	Kind             Kind              `json:"kind"`
	Input            string            `json:"input"`
	Category         Category          `json:"category,omitempty"`
	Priority         Priority          `json:"priority"`
	Status           Status            `json:"status"`
	Dispatcher       *DispatcherResult `json:"dispatcher_result,omitempty"`
	Analyst          *AnalystResult    `json:"analyst_result,omitempty"`
	Scheduler        *SchedulerResult  `json:"scheduler_result,omitempty"`
	Error            string            `json:"error,omitempty"`
	TotalCostCents   int64             `json:"total_cost_cents"`
	ProcessingTimeMS int64             `json:"processing_time_ms"`
	CreatedAt        time.Time         `json:"created_at"`
	UpdatedAt        time.Time         `json:"updated_at"`
}

// CreateRequest holds the fields needed to start a new pipeline task.
type CreateRequest struct {
	UserID   string   `json:"user_id"`
	ChildID  string   `json:"child_id,omitempty"`
	Input    string   `json:"input"`
	Priority Priority `json:"priority,omitempty"`
}
