package agents

import (
	"fmt"

	"github.com/nurtura-ai/nurtura/internal/domain"
	"github.com/nurtura-ai/nurtura/internal/domain/agent"
	"github.com/nurtura-ai/nurtura/internal/port/agentcore"
)

// New resolves a stored agent record to its concrete implementation. The
// type set is closed: a record whose type is not one of the known agent
// types is an error, never a silent default.
func New(meta *agent.Agent, env agentcore.Context, deps Deps) (agentcore.Agent, error) {
	switch meta.Type {
	case agent.TypeDispatcher:
		return NewDispatcher(meta, env, deps), nil
	case agent.TypeAnalyst:
		return NewAnalyst(meta, env, deps), nil
	case agent.TypeScheduler:
		return NewScheduler(meta, env, deps), nil
	case agent.TypeLearningCoach:
		return NewLearningCoach(meta, env, deps), nil
	case agent.TypeDevelopmentTracker:
		return NewDevelopmentTracker(meta, env, deps), nil
	default:
		return nil, fmt.Errorf("%w: %q", domain.ErrUnknownAgentType, meta.Type)
	}
}

// NewFromName parses a type name and constructs the matching agent.
func NewFromName(name string, meta *agent.Agent, env agentcore.Context, deps Deps) (agentcore.Agent, error) {
	typ, err := agent.ParseType(name)
	if err != nil {
		return nil, err
	}
	m := *meta
	m.Type = typ
	return New(&m, env, deps)
}
