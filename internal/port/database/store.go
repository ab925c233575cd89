// Package database defines the record store port (interface).
package database

import (
	"context"

	"github.com/nurtura-ai/nurtura/internal/domain/agent"
	"github.com/nurtura-ai/nurtura/internal/domain/conversation"
	"github.com/nurtura-ai/nurtura/internal/domain/cost"
	"github.com/nurtura-ai/nurtura/internal/domain/insight"
	"github.com/nurtura-ai/nurtura/internal/domain/profile"
	"github.com/nurtura-ai/nurtura/internal/domain/task"
)

// Store is the port interface for record store operations. All lookups are
// by opaque string id; missing records surface as domain.ErrNotFound.
type Store interface {
	// Profiles (owned by external services, read-only here)
	GetUser(ctx context.Context, id string) (*profile.User, error)
	GetChild(ctx context.Context, id string) (*profile.Child, error)

	// Agents
	GetAgent(ctx context.Context, id string) (*agent.Agent, error)
	ListAgentsByUser(ctx context.Context, userID string) ([]agent.Agent, error)
	CreateAgent(ctx context.Context, a *agent.Agent) error
	UpdateAgentStatus(ctx context.Context, id string, status agent.Status) error

	// Tasks
	GetTask(ctx context.Context, id string) (*task.Task, error)
	ListTasksByUser(ctx context.Context, userID string) ([]task.Task, error)
	CreateTask(ctx context.Context, t *task.Task) error
	UpdateTask(ctx context.Context, t *task.Task) error

	// Conversations (append-only)
	AppendConversation(ctx context.Context, rec *conversation.Record) error
	ListConversation(ctx context.Context, userID, agentID string, limit int) ([]conversation.Record, error)

	// Artifacts (append-only except recommendation status)
	CreateInsight(ctx context.Context, ins *insight.Insight) error
	ListInsightsByChild(ctx context.Context, childID string) ([]insight.Insight, error)
	CreateRecommendation(ctx context.Context, rec *insight.Recommendation) error
	GetRecommendation(ctx context.Context, id string) (*insight.Recommendation, error)
	UpdateRecommendationStatus(ctx context.Context, id string, status insight.RecommendationStatus) error

	// Cost accounting
	AppendCostRecord(ctx context.Context, rec *cost.Record) error
	ListCostRecordsByTask(ctx context.Context, taskID string) ([]cost.Record, error)
	AddMonthlyUsage(ctx context.Context, userID, month string, cents int64) error
	GetMonthlyUsage(ctx context.Context, userID, month string) (*cost.MonthlyUsage, error)
}
