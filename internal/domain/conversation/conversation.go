// Package conversation defines the append-only conversation log written by
// every successful agent turn.
package conversation

import "time"

// Record is a single turn in a user's conversation with an agent.
type Record struct {
	ID        string    `json:"id"`
	UserID    string    `json:"user_id"`
	ChildID   string    `json:"child_id,omitempty"`
	AgentID   string    `json:"agent_id"`
	Role      string    `json:"role"` // "user" or "assistant"
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"created_at"`
}
