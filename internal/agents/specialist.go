package agents

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/nurtura-ai/nurtura/internal/domain/agent"
	"github.com/nurtura-ai/nurtura/internal/domain/insight"
	"github.com/nurtura-ai/nurtura/internal/port/agentcore"
)

// Specialist is a domain-focused conversational agent that produces
// persisted insights and recommendations for a specific child. The
// concrete specialists differ only in persona and artifact type tags.
type Specialist struct {
	base
	persona      string
	artifactType string
	focus        string
}

// NewLearningCoach constructs the learning-focused specialist.
func NewLearningCoach(meta *agent.Agent, env agentcore.Context, deps Deps) *Specialist {
	return newSpecialist(meta, env, deps,
		`You are a learning coach for parents. You design age-appropriate
learning activities and study habits for children.`,
		"learning", "learning activities and study habits")
}

// NewDevelopmentTracker constructs the development-focused specialist.
func NewDevelopmentTracker(meta *agent.Agent, env agentcore.Context, deps Deps) *Specialist {
	return newSpecialist(meta, env, deps,
		`You are a child development tracker. You follow developmental
milestones and flag progress and delays for parents.`,
		"development", "developmental milestones and progress")
}

func newSpecialist(meta *agent.Agent, env agentcore.Context, deps Deps, persona, artifactType, focus string) *Specialist {
	return &Specialist{
		base: newBase(meta, env, deps, []agentcore.Capability{
			agentcore.CapProcessMessage,
			agentcore.CapGenerateInsights,
			agentcore.CapGenerateRecommendations,
			agentcore.CapExecuteTask,
		}),
		persona:      persona,
		artifactType: artifactType,
		focus:        focus,
	}
}

// ProcessMessage answers a free-text turn in the specialist's persona,
// grounding the reply in the bound child profile when one exists.
func (sp *Specialist) ProcessMessage(ctx context.Context, text string) (*agentcore.Response, error) {
	if strings.TrimSpace(text) == "" {
		return agentcore.SoftFail("I need a message to work with."), nil
	}
	if sp.env.Child == nil {
		return agentcore.SoftFail("I need a child profile to give specific guidance. Please select a child first."), nil
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "Child: %s", sp.env.Child.Name)
	if age := sp.env.Child.AgeYears(time.Now()); age > 0 {
		fmt.Fprintf(&sb, ", age %d", age)
	}
	if len(sp.env.History) > 0 {
		sb.WriteString("\nEarlier conversation:\n")
		for _, rec := range sp.env.History {
			fmt.Fprintf(&sb, "%s: %s\n", rec.Role, rec.Content)
		}
	}
	fmt.Fprintf(&sb, "\nParent says: %s", text)

	res, err := sp.complete(ctx, sp.persona, sb.String())
	if err != nil {
		return nil, fmt.Errorf("process message: %w", err)
	}

	sp.logTurn(ctx, text, res.Text)
	return &agentcore.Response{Success: true, Message: res.Text, TokensUsed: res.TotalTokens()}, nil
}

// GenerateInsights derives insights about the bound child and persists
// each one as it is produced. With no child in context it returns an empty
// slice and no error.
func (sp *Specialist) GenerateInsights(ctx context.Context) ([]insight.Insight, error) {
	if sp.env.Child == nil {
		return []insight.Insight{}, nil
	}

	prompt := fmt.Sprintf("Produce 3 short insights about %s regarding %s, one per line.",
		sp.env.Child.Name, sp.focus)
	res, err := sp.complete(ctx, sp.persona, prompt)
	if err != nil {
		return nil, fmt.Errorf("generate insights: %w", err)
	}

	items := ParseItems(res.Text, 3)
	insights := make([]insight.Insight, 0, len(items))
	for _, item := range items {
		ins := insight.Insight{
			UserID:  sp.env.UserID,
			ChildID: sp.env.Child.ID,
			AgentID: sp.meta.ID,
			Type:    sp.artifactType,
			Title:   truncate(item, 80),
			Body:    item,
		}
		if err := sp.deps.Store.CreateInsight(ctx, &ins); err != nil {
			slog.Error("insight persist failed", "agent_id", sp.meta.ID, "error", err)
			continue
		}
		insights = append(insights, ins)
	}
	return insights, nil
}

// GenerateRecommendations derives pending recommendations for the bound
// child with the same contract as GenerateInsights.
func (sp *Specialist) GenerateRecommendations(ctx context.Context) ([]insight.Recommendation, error) {
	if sp.env.Child == nil {
		return []insight.Recommendation{}, nil
	}

	prompt := fmt.Sprintf("Produce 3 actionable recommendations for %s regarding %s, one per line.",
		sp.env.Child.Name, sp.focus)
	res, err := sp.complete(ctx, sp.persona, prompt)
	if err != nil {
		return nil, fmt.Errorf("generate recommendations: %w", err)
	}

	items := ParseItems(res.Text, 3)
	recs := make([]insight.Recommendation, 0, len(items))
	for _, item := range items {
		rec := insight.Recommendation{
			UserID:  sp.env.UserID,
			ChildID: sp.env.Child.ID,
			AgentID: sp.meta.ID,
			Type:    sp.artifactType,
			Title:   truncate(item, 80),
			Body:    item,
			Status:  insight.StatusPending,
		}
		if err := sp.deps.Store.CreateRecommendation(ctx, &rec); err != nil {
			slog.Error("recommendation persist failed", "agent_id", sp.meta.ID, "error", err)
			continue
		}
		recs = append(recs, rec)
	}
	return recs, nil
}

// ExecuteTask dispatches one of this agent's tasks by kind.
func (sp *Specialist) ExecuteTask(ctx context.Context, taskID string) (*agentcore.Response, error) {
	return sp.executeTask(ctx, sp, taskID)
}

// truncate caps s at n bytes without splitting a multi-byte rune, backing
// off to the nearest rune boundary.
func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	cut := n
	for cut > 0 && !utf8.RuneStart(s[cut]) {
		cut--
	}
	return s[:cut]
}
