// Package insight defines agent-produced artifacts: insights and
// recommendations scoped to a child. Artifacts are never deleted, only
// superseded; recommendations additionally carry a workflow status.
package insight

import (
	"fmt"
	"strings"
	"time"

	"github.com/nurtura-ai/nurtura/internal/domain"
)

// Insight is a single observation an agent derived for a child.
type Insight struct {
	ID         string    `json:"id"`
	UserID     string    `json:"user_id"`
	ChildID    string    `json:"child_id"`
	AgentID    string    `json:"agent_id"`
	Type       string    `json:"type"`
	Title      string    `json:"title"`
	Body       string    `json:"body"`
	Confidence float64   `json:"confidence,omitempty"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

// RecommendationStatus is the workflow state of a recommendation.
type RecommendationStatus string

const (
	StatusPending     RecommendationStatus = "pending"
	StatusAccepted    RecommendationStatus = "accepted"
	StatusRejected    RecommendationStatus = "rejected"
	StatusImplemented RecommendationStatus = "implemented"
)

// ParseRecommendationStatus validates a workflow status string.
func ParseRecommendationStatus(s string) (RecommendationStatus, error) {
	switch RecommendationStatus(strings.ToLower(strings.TrimSpace(s))) {
	case StatusPending:
		return StatusPending, nil
	case StatusAccepted:
		return StatusAccepted, nil
	case StatusRejected:
		return StatusRejected, nil
	case StatusImplemented:
		return StatusImplemented, nil
	default:
		return "", fmt.Errorf("%w: recommendation status %q", domain.ErrValidation, s)
	}
}

// CanTransition reports whether moving from s to next is a legal workflow
// edge. Pending may go anywhere; accepted may be implemented; rejected and
// implemented are terminal.
func (s RecommendationStatus) CanTransition(next RecommendationStatus) bool {
	switch s {
	case StatusPending:
		return next == StatusAccepted || next == StatusRejected || next == StatusImplemented
	case StatusAccepted:
		return next == StatusImplemented
	default:
		return false
	}
}

// Recommendation is a suggested course of action for a child.
type Recommendation struct {
	ID        string               `json:"id"`
	UserID    string               `json:"user_id"`
	ChildID   string               `json:"child_id"`
	AgentID   string               `json:"agent_id"`
	Type      string               `json:"type"`
	Title     string               `json:"title"`
	Body      string               `json:"body"`
	Priority  string               `json:"priority,omitempty"`
	Status    RecommendationStatus `json:"status"`
	CreatedAt time.Time            `json:"created_at"`
	UpdatedAt time.Time            `json:"updated_at"`
}
