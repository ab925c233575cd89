// Package agent defines the Agent domain entity and the closed type enum
// the factory resolves against.
package agent

import (
	"fmt"
	"strings"
	"time"

	"github.com/nurtura-ai/nurtura/internal/domain"
)

// Status represents the lifecycle state of an agent.
type Status string

const (
	StatusActive   Status = "active"
	StatusInactive Status = "inactive"
	StatusTraining Status = "training"
)

// ParseStatus validates a status string.
func ParseStatus(s string) (Status, error) {
	switch Status(strings.ToLower(strings.TrimSpace(s))) {
	case StatusActive:
		return StatusActive, nil
	case StatusInactive:
		return StatusInactive, nil
	case StatusTraining:
		return StatusTraining, nil
	default:
		return "", fmt.Errorf("%w: agent status %q", domain.ErrValidation, s)
	}
}

// Type is the abstract kind selecting which concrete agent the factory
// constructs. Closed enum; unknown names are a configuration error.
type Type string

const (
	TypeDispatcher         Type = "dispatcher"
	TypeAnalyst            Type = "analyst"
	TypeScheduler          Type = "scheduler"
	TypeLearningCoach      Type = "learning_coach"
	TypeDevelopmentTracker Type = "development_tracker"
)

// ParseType resolves a stored type name case-insensitively. Spaces and
// hyphens are accepted so "Learning Coach" and "learning-coach" both
// resolve. Unknown names return ErrUnknownAgentType; there is deliberately
// no generic default, since that would mask misconfiguration.
func ParseType(s string) (Type, error) {
	norm := strings.ToLower(strings.TrimSpace(s))
	norm = strings.NewReplacer(" ", "_", "-", "_").Replace(norm)
	switch Type(norm) {
	case TypeDispatcher:
		return TypeDispatcher, nil
	case TypeAnalyst:
		return TypeAnalyst, nil
	case TypeScheduler:
		return TypeScheduler, nil
	case TypeLearningCoach:
		return TypeLearningCoach, nil
	case TypeDevelopmentTracker:
		return TypeDevelopmentTracker, nil
	default:
		return "", fmt.Errorf("%w: %q", domain.ErrUnknownAgentType, s)
	}
}

// Agent represents one reasoning agent instance owned by a user.
type Agent struct {
	ID        string            `json:"id"`
	UserID    string            `json:"user_id"`
	Name      string            `json:"name"`
	Type      Type              `json:"type"`
	Config    map[string]string `json:"config,omitempty"`
	Status    Status            `json:"status"`
	CreatedAt time.Time         `json:"created_at"`
	UpdatedAt time.Time         `json:"updated_at"`
}

// Active reports whether the agent is eligible for routing.
func (a *Agent) Active() bool {
	return a.Status == StatusActive
}
