package service

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/nurtura-ai/nurtura/internal/agents"
	"github.com/nurtura-ai/nurtura/internal/config"
	"github.com/nurtura-ai/nurtura/internal/domain"
	"github.com/nurtura-ai/nurtura/internal/domain/agent"
	"github.com/nurtura-ai/nurtura/internal/port/agentcore"
	"github.com/nurtura-ai/nurtura/internal/port/completion"
	"github.com/nurtura-ai/nurtura/internal/port/database"
	"github.com/nurtura-ai/nurtura/internal/port/messagequeue"
)

// routingRules maps message keywords to the substring an active agent's
// name must contain to receive the message. First rule whose keywords hit
// wins; rule order is fixed.
var routingRules = []struct {
	keywords   []string
	nameSubstr string
}{
	{[]string{"development", "milestone", "progress", "delay"}, "development"},
	{[]string{"learn", "activity", "skill", "education", "study", "homework"}, "learning"},
}

// AgentManagerService owns the user-facing agent roster: listing, status
// changes, keyword routing of free-text messages to an agent, and
// multi-agent collaboration.
type AgentManagerService struct {
	store    database.Store
	queue    messagequeue.Queue
	llm      completion.Service
	contexts *ContextService
	pipeline config.Pipeline
}

// NewAgentManagerService creates a new AgentManagerService.
func NewAgentManagerService(store database.Store, queue messagequeue.Queue, llm completion.Service, contexts *ContextService, pipeline config.Pipeline) *AgentManagerService {
	return &AgentManagerService{
		store:    store,
		queue:    queue,
		llm:      llm,
		contexts: contexts,
		pipeline: pipeline,
	}
}

// ListAgents returns the user's agent roster.
func (s *AgentManagerService) ListAgents(ctx context.Context, userID string) ([]agent.Agent, error) {
	return s.store.ListAgentsByUser(ctx, userID)
}

// CreateAgent registers a new agent for a user. The type name must parse;
// unknown types are rejected, never defaulted.
func (s *AgentManagerService) CreateAgent(ctx context.Context, userID, name, typeName string) (*agent.Agent, error) {
	if strings.TrimSpace(name) == "" {
		return nil, fmt.Errorf("%w: agent name must not be empty", domain.ErrValidation)
	}
	typ, err := agent.ParseType(typeName)
	if err != nil {
		return nil, err
	}

	a := &agent.Agent{
		ID:        uuid.NewString(),
		UserID:    userID,
		Name:      name,
		Type:      typ,
		Status:    agent.StatusActive,
		CreatedAt: time.Now().UTC(),
	}
	if err := s.store.CreateAgent(ctx, a); err != nil {
		return nil, fmt.Errorf("create agent: %w", err)
	}
	return a, nil
}

// UpdateStatus changes an agent's lifecycle status.
func (s *AgentManagerService) UpdateStatus(ctx context.Context, id string, statusName string) (*agent.Agent, error) {
	status, err := agent.ParseStatus(statusName)
	if err != nil {
		return nil, err
	}
	if err := s.store.UpdateAgentStatus(ctx, id, status); err != nil {
		return nil, err
	}
	return s.store.GetAgent(ctx, id)
}

// SelectAgent picks the active agent a message routes to: the first
// routing rule whose keywords hit selects the first active agent whose
// name contains the rule's substring, otherwise the first active agent.
// Returns nil when the user has no active agents.
func SelectAgent(roster []agent.Agent, message string) *agent.Agent {
	var active []agent.Agent
	for _, a := range roster {
		if a.Active() {
			active = append(active, a)
		}
	}
	if len(active) == 0 {
		return nil
	}

	lower := strings.ToLower(message)
	for _, rule := range routingRules {
		for _, kw := range rule.keywords {
			if !strings.Contains(lower, kw) {
				continue
			}
			for i := range active {
				if strings.Contains(strings.ToLower(active[i].Name), rule.nameSubstr) {
					return &active[i]
				}
			}
			break
		}
	}
	return &active[0]
}

// RouteMessage selects an agent for the message and runs one conversation
// turn with it. No active agent is a validation error surfaced to the
// caller, not a silent drop.
func (s *AgentManagerService) RouteMessage(ctx context.Context, userID, childID, message string) (*agent.Agent, *agentcore.Response, error) {
	if strings.TrimSpace(message) == "" {
		return nil, nil, fmt.Errorf("%w: message must not be empty", domain.ErrValidation)
	}

	roster, err := s.store.ListAgentsByUser(ctx, userID)
	if err != nil {
		return nil, nil, err
	}
	target := SelectAgent(roster, message)
	if target == nil {
		return nil, nil, fmt.Errorf("%w: no active agents", domain.ErrValidation)
	}

	impl, _, err := s.build(ctx, target, userID, childID)
	if err != nil {
		return nil, nil, err
	}

	resp, err := impl.ProcessMessage(ctx, message)
	if err != nil {
		return target, nil, err
	}
	return target, resp, nil
}

// Collaborate runs the message through several agents sequentially and
// merges their responses. An agent that returns an error is omitted from
// the result; the merged response succeeds only when at least one agent
// contributed a task, insight, or recommendation. Conversational replies
// are carried in the message but do not count toward success.
func (s *AgentManagerService) Collaborate(ctx context.Context, userID, childID string, agentIDs []string, message string) (*agentcore.Response, []string, error) {
	if strings.TrimSpace(message) == "" {
		return nil, nil, fmt.Errorf("%w: message must not be empty", domain.ErrValidation)
	}
	if len(agentIDs) == 0 {
		return nil, nil, fmt.Errorf("%w: at least one agent id is required", domain.ErrValidation)
	}

	merged := &agentcore.Response{}
	var participants []string
	var messages []string

	for _, id := range agentIDs {
		meta, err := s.store.GetAgent(ctx, id)
		if err != nil {
			slog.Warn("collaboration agent lookup failed", "agent_id", id, "error", err)
			continue
		}
		impl, _, err := s.build(ctx, meta, userID, childID)
		if err != nil {
			slog.Warn("collaboration agent build failed", "agent_id", id, "error", err)
			continue
		}
		resp, err := impl.ProcessMessage(ctx, message)
		if err != nil {
			slog.Warn("collaboration agent failed", "agent_id", id, "error", err)
			continue
		}

		participants = append(participants, meta.ID)
		if resp.Message != "" {
			messages = append(messages, meta.ID+": "+resp.Message)
		}
		merged.Tasks = append(merged.Tasks, resp.Tasks...)
		merged.Insights = append(merged.Insights, resp.Insights...)
		merged.Recommendations = append(merged.Recommendations, resp.Recommendations...)
		merged.TokensUsed += resp.TokensUsed
	}

	merged.Message = strings.Join(messages, "\n")
	merged.Success = len(merged.Tasks)+len(merged.Insights)+len(merged.Recommendations) > 0
	return merged, participants, nil
}

// GenerateInsights runs the named agent's insight generation and publishes
// a queue event per artifact batch.
func (s *AgentManagerService) GenerateInsights(ctx context.Context, userID, childID, agentID string) ([]string, error) {
	meta, err := s.store.GetAgent(ctx, agentID)
	if err != nil {
		return nil, err
	}
	impl, _, err := s.build(ctx, meta, userID, childID)
	if err != nil {
		return nil, err
	}

	insights, err := impl.GenerateInsights(ctx)
	if err != nil {
		return nil, err
	}
	titles := make([]string, len(insights))
	for i, ins := range insights {
		titles[i] = ins.Title
	}
	if len(insights) > 0 {
		s.publish(ctx, messagequeue.SubjectInsightCreated, map[string]any{
			"user_id": userID, "child_id": childID, "agent_id": agentID, "count": len(insights),
		})
	}
	return titles, nil
}

// GenerateRecommendations runs the named agent's recommendation generation.
func (s *AgentManagerService) GenerateRecommendations(ctx context.Context, userID, childID, agentID string) ([]string, error) {
	meta, err := s.store.GetAgent(ctx, agentID)
	if err != nil {
		return nil, err
	}
	impl, _, err := s.build(ctx, meta, userID, childID)
	if err != nil {
		return nil, err
	}

	recs, err := impl.GenerateRecommendations(ctx)
	if err != nil {
		return nil, err
	}
	titles := make([]string, len(recs))
	for i, rec := range recs {
		titles[i] = rec.Title
	}
	if len(recs) > 0 {
		s.publish(ctx, messagequeue.SubjectRecommendationCreated, map[string]any{
			"user_id": userID, "child_id": childID, "agent_id": agentID, "count": len(recs),
		})
	}
	return titles, nil
}

// build constructs the runnable implementation for a stored agent record.
func (s *AgentManagerService) build(ctx context.Context, meta *agent.Agent, userID, childID string) (agentcore.Agent, agentcore.Context, error) {
	env, err := s.contexts.Build(ctx, userID, childID, meta.ID)
	if err != nil {
		return nil, env, err
	}
	impl, err := agents.New(meta, env, agents.Deps{LLM: s.llm, Store: s.store, Pipeline: s.pipeline})
	if err != nil {
		return nil, env, err
	}
	return impl, env, nil
}

func (s *AgentManagerService) publish(ctx context.Context, subject string, payload map[string]any) {
	if s.queue == nil {
		return
	}
	data, err := json.Marshal(payload)
	if err != nil {
		return
	}
	if err := s.queue.Publish(ctx, subject, data); err != nil {
		slog.Warn("event publish failed", "subject", subject, "error", err)
	}
}
