// Package agentcore defines the capability-based agent port shared by all
// stage and specialist agents, plus the context and response envelope they
// exchange.
package agentcore

import (
	"context"

	"github.com/nurtura-ai/nurtura/internal/domain/agent"
	"github.com/nurtura-ai/nurtura/internal/domain/conversation"
	"github.com/nurtura-ai/nurtura/internal/domain/insight"
	"github.com/nurtura-ai/nurtura/internal/domain/profile"
	"github.com/nurtura-ai/nurtura/internal/domain/task"
)

// Capability is a named, independently toggleable feature of an agent.
type Capability string

const (
	CapProcessMessage          Capability = "process-message"
	CapGenerateInsights        Capability = "generate-insights"
	CapGenerateRecommendations Capability = "generate-recommendations"
	CapExecuteTask             Capability = "execute-task"
)

// Context is the execution context bound at agent construction: the acting
// user, the optional child the conversation is about, and prior turns.
type Context struct {
	UserID  string
	ChildID string
	User    *profile.User
	Child   *profile.Child
	History []conversation.Record
}

// Response is the envelope every agent operation returns. A missing-context
// condition is reported as Success=false with a readable message, never as
// an error.
type Response struct {
	Success         bool     `json:"success"`
	Message         string   `json:"message"`
	Tasks           []string `json:"tasks,omitempty"`
	Insights        []string `json:"insights,omitempty"`
	Recommendations []string `json:"recommendations,omitempty"`
	TokensUsed      int      `json:"tokens_used,omitempty"`
}

// SoftFail builds a failed Response with a human-readable message.
func SoftFail(msg string) *Response {
	return &Response{Success: false, Message: msg}
}

// Agent is the uniform shape every concrete agent exposes.
type Agent interface {
	// Name returns the display name of this agent instance.
	Name() string

	// Type returns the abstract agent type.
	Type() agent.Type

	// Capabilities returns the agent's enabled capability set.
	Capabilities() []Capability

	// IsCapabilityEnabled reports whether the named capability is enabled.
	IsCapabilityEnabled(c Capability) bool

	// ProcessMessage handles a single free-text turn.
	ProcessMessage(ctx context.Context, text string) (*Response, error)

	// GenerateInsights derives and persists insights for the bound child.
	// Returns an empty slice, never an error, when no child is in context.
	GenerateInsights(ctx context.Context) ([]insight.Insight, error)

	// GenerateRecommendations derives and persists recommendations for the
	// bound child, with the same missing-context contract as insights.
	GenerateRecommendations(ctx context.Context) ([]insight.Recommendation, error)

	// ExecuteTask looks up one of this agent's tasks by id, dispatches on
	// its kind tag, and marks it completed or failed.
	ExecuteTask(ctx context.Context, taskID string) (*Response, error)
}

// Store is the narrow record-store surface agents need: task lookup and
// terminal updates, conversation logging, and artifact persistence.
// Satisfied by the full database.Store.
type Store interface {
	GetTask(ctx context.Context, id string) (*task.Task, error)
	UpdateTask(ctx context.Context, t *task.Task) error
	AppendConversation(ctx context.Context, rec *conversation.Record) error
	CreateInsight(ctx context.Context, ins *insight.Insight) error
	CreateRecommendation(ctx context.Context, rec *insight.Recommendation) error
}

// HasCapability is a helper for implementations backed by a plain slice.
func HasCapability(set []Capability, c Capability) bool {
	for _, have := range set {
		if have == c {
			return true
		}
	}
	return false
}
