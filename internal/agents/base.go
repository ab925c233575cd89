// Package agents holds the concrete stage and specialist agents plus the
// factory that resolves stored agent records to implementations.
package agents

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/nurtura-ai/nurtura/internal/config"
	"github.com/nurtura-ai/nurtura/internal/domain/agent"
	"github.com/nurtura-ai/nurtura/internal/domain/conversation"
	"github.com/nurtura-ai/nurtura/internal/domain/insight"
	"github.com/nurtura-ai/nurtura/internal/domain/task"
	"github.com/nurtura-ai/nurtura/internal/port/agentcore"
	"github.com/nurtura-ai/nurtura/internal/port/completion"
)

// Deps bundles the collaborators every concrete agent is constructed with.
type Deps struct {
	LLM      completion.Service
	Store    agentcore.Store
	Pipeline config.Pipeline
}

// base carries the identity, context, and collaborators shared by all
// concrete agents. It provides the uniform parts of the agentcore.Agent
// contract; concrete types layer their stage behavior on top.
type base struct {
	meta *agent.Agent
	env  agentcore.Context
	deps Deps
	caps []agentcore.Capability
}

func newBase(meta *agent.Agent, env agentcore.Context, deps Deps, caps []agentcore.Capability) base {
	return base{meta: meta, env: env, deps: deps, caps: caps}
}

func (b *base) Name() string {
	return b.meta.Name
}

func (b *base) Type() agent.Type {
	return b.meta.Type
}

func (b *base) Capabilities() []agentcore.Capability {
	out := make([]agentcore.Capability, len(b.caps))
	copy(out, b.caps)
	return out
}

func (b *base) IsCapabilityEnabled(c agentcore.Capability) bool {
	return agentcore.HasCapability(b.caps, c)
}

// GenerateInsights is the default: stage agents produce no artifacts.
func (b *base) GenerateInsights(context.Context) ([]insight.Insight, error) {
	return []insight.Insight{}, nil
}

// GenerateRecommendations is the default: stage agents produce no artifacts.
func (b *base) GenerateRecommendations(context.Context) ([]insight.Recommendation, error) {
	return []insight.Recommendation{}, nil
}

// complete issues one completion call with the agent's context injected
// into the system prompt.
func (b *base) complete(ctx context.Context, systemPrompt, prompt string) (*completion.Result, error) {
	return b.deps.LLM.Complete(ctx, completion.Request{
		SystemPrompt: systemPrompt,
		Prompt:       prompt,
	})
}

// logTurn appends the user text and the agent reply to the conversation
// log. Logging is a side effect of a successful turn; a write failure is
// logged and swallowed so it never fails the turn itself.
func (b *base) logTurn(ctx context.Context, userText, reply string) {
	for _, rec := range []conversation.Record{
		{UserID: b.env.UserID, ChildID: b.env.ChildID, AgentID: b.meta.ID, Role: "user", Content: userText},
		{UserID: b.env.UserID, ChildID: b.env.ChildID, AgentID: b.meta.ID, Role: "assistant", Content: reply},
	} {
		r := rec
		if err := b.deps.Store.AppendConversation(ctx, &r); err != nil {
			slog.Error("conversation append failed", "agent_id", b.meta.ID, "error", err)
		}
	}
}

// executeTask is the shared ExecuteTask implementation: look the task up
// among this agent's tasks, dispatch on its kind tag, and record the
// terminal status. self is the outer agent so kind handlers use the
// concrete behavior.
func (b *base) executeTask(ctx context.Context, self agentcore.Agent, taskID string) (*agentcore.Response, error) {
	t, err := b.deps.Store.GetTask(ctx, taskID)
	if err != nil {
		return nil, fmt.Errorf("execute task: %w", err)
	}
	if t.AgentID != b.meta.ID {
		return agentcore.SoftFail("Task does not belong to this agent."), nil
	}

	var resp *agentcore.Response
	switch t.Kind {
	case task.KindProcessInput:
		resp, err = self.ProcessMessage(ctx, t.Input)
	case task.KindGenerateInsights:
		var insights []insight.Insight
		insights, err = self.GenerateInsights(ctx)
		if err == nil {
			resp = &agentcore.Response{
				Success:  true,
				Message:  fmt.Sprintf("Generated %d insights.", len(insights)),
				Insights: insightTitles(insights),
			}
		}
	case task.KindGenerateRecommendations:
		var recs []insight.Recommendation
		recs, err = self.GenerateRecommendations(ctx)
		if err == nil {
			resp = &agentcore.Response{
				Success:         true,
				Message:         fmt.Sprintf("Generated %d recommendations.", len(recs)),
				Recommendations: recommendationTitles(recs),
			}
		}
	case task.KindPipeline:
		// Pipeline tasks are driven by the task processor, not by a single
		// agent's executor.
		resp = agentcore.SoftFail("Pipeline tasks are executed by the task processor.")
	default:
		resp = agentcore.SoftFail("Unknown task type")
	}

	if err != nil {
		b.finishTask(ctx, t, task.StatusFailed, err.Error())
		return nil, err
	}
	if resp.Success {
		b.finishTask(ctx, t, task.StatusCompleted, "")
	} else {
		b.finishTask(ctx, t, task.StatusFailed, resp.Message)
	}
	return resp, nil
}

func (b *base) finishTask(ctx context.Context, t *task.Task, status task.Status, errMsg string) {
	if !t.Status.CanTransition(status) {
		return
	}
	t.Status = status
	t.Error = errMsg
	if err := b.deps.Store.UpdateTask(ctx, t); err != nil {
		slog.Error("task status update failed", "task_id", t.ID, "error", err)
	}
}

func insightTitles(in []insight.Insight) []string {
	out := make([]string, len(in))
	for i, ins := range in {
		out[i] = ins.Title
	}
	return out
}

func recommendationTitles(in []insight.Recommendation) []string {
	out := make([]string, len(in))
	for i, rec := range in {
		out[i] = rec.Title
	}
	return out
}
