package agents

import (
	"context"
	"fmt"
	"strings"

	"github.com/nurtura-ai/nurtura/internal/domain/agent"
	"github.com/nurtura-ai/nurtura/internal/domain/task"
	"github.com/nurtura-ai/nurtura/internal/port/agentcore"
)

// ConfidenceScore computes the Analyst's deterministic confidence: base
// 0.5, +0.1 per insight capped at +0.3, +0.1 per pattern capped at +0.2,
// +0.1 for inputs over 100 chars and another +0.1 over 200, clamped to 1.0.
func ConfidenceScore(insightCount, patternCount, inputLen int) float64 {
	score := 0.5
	score += min(0.1*float64(insightCount), 0.3)
	score += min(0.1*float64(patternCount), 0.2)
	if inputLen > 100 {
		score += 0.1
	}
	if inputLen > 200 {
		score += 0.1
	}
	return min(score, 1.0)
}

// dataSourceKeywords maps substrings of the raw input to source tags.
var dataSourceKeywords = []struct {
	tag      string
	keywords []string
}{
	{"behavioral_observation", []string{"behavior", "behaviour", "acting"}},
	{"developmental_milestones", []string{"milestone", "develop"}},
	{"academic_records", []string{"school", "grade", "homework"}},
	{"daily_routine_log", []string{"sleep", "eat", "meal"}},
}

// DataSources tags the raw input with the data sources the analysis drew
// on: keyword hits plus structural tags for the bound profiles and for
// inputs long enough to stand on their own.
func DataSources(input string, hasChild, hasUser bool) []string {
	lower := strings.ToLower(input)
	var tags []string
	for _, src := range dataSourceKeywords {
		for _, kw := range src.keywords {
			if strings.Contains(lower, kw) {
				tags = append(tags, src.tag)
				break
			}
		}
	}
	if hasChild {
		tags = append(tags, "child_profile")
	}
	if hasUser {
		tags = append(tags, "parent_profile")
	}
	if len(input) > 50 {
		tags = append(tags, "detailed_input")
	}
	return tags
}

// Analyst is the second pipeline stage: it extracts insights and patterns
// from the input and turns them into recommendations with a deterministic
// confidence score.
type Analyst struct {
	base
}

// NewAnalyst constructs an Analyst bound to the given agent record and
// execution context.
func NewAnalyst(meta *agent.Agent, env agentcore.Context, deps Deps) *Analyst {
	return &Analyst{base: newBase(meta, env, deps, []agentcore.Capability{
		agentcore.CapProcessMessage,
		agentcore.CapExecuteTask,
	})}
}

const analystSystemPrompt = `You are a child development analyst.
You study parent reports and surface patterns, insights, and practical recommendations.`

// ExtractInsights asks for 3-5 insights, one per line.
func (a *Analyst) ExtractInsights(ctx context.Context, text string) ([]string, int, error) {
	prompt := fmt.Sprintf(
		"Extract 3 to 5 key insights from this parent report, one per line.\n\nReport: %s", text)
	res, err := a.complete(ctx, analystSystemPrompt, prompt)
	if err != nil {
		return nil, 0, fmt.Errorf("extract insights: %w", err)
	}
	return ParseItems(res.Text, 5), res.TotalTokens(), nil
}

// IdentifyPatterns asks for 2-3 recurring patterns, factoring in whatever
// conversation history is bound to the context.
func (a *Analyst) IdentifyPatterns(ctx context.Context, text string) ([]string, int, error) {
	var sb strings.Builder
	fmt.Fprintf(&sb, "Identify 2 to 3 recurring patterns in this parent report, one per line.\n\nReport: %s", text)
	if len(a.env.History) > 0 {
		sb.WriteString("\n\nEarlier conversation:\n")
		for _, rec := range a.env.History {
			fmt.Fprintf(&sb, "%s: %s\n", rec.Role, rec.Content)
		}
	}
	res, err := a.complete(ctx, analystSystemPrompt, sb.String())
	if err != nil {
		return nil, 0, fmt.Errorf("identify patterns: %w", err)
	}
	return ParseItems(res.Text, 3), res.TotalTokens(), nil
}

// RecommendFromFindings turns insights and patterns into 3-4 concrete
// recommendations.
func (a *Analyst) RecommendFromFindings(ctx context.Context, insights, patterns []string) ([]string, int, error) {
	prompt := fmt.Sprintf(
		"Given these insights:\n%s\n\nAnd these patterns:\n%s\n\n"+
			"Produce 3 to 4 concrete recommendations for the parent, one per line.",
		strings.Join(insights, "\n"), strings.Join(patterns, "\n"))
	res, err := a.complete(ctx, analystSystemPrompt, prompt)
	if err != nil {
		return nil, 0, fmt.Errorf("generate recommendations: %w", err)
	}
	return ParseItems(res.Text, 4), res.TotalTokens(), nil
}

// Analyze composes extraction, pattern identification, and recommendation
// generation, then scores confidence and tags data sources. The scoring is
// pure; only the three list-producing calls touch the completion service.
func (a *Analyst) Analyze(ctx context.Context, input string, _ *task.DispatcherResult) (*task.AnalystResult, error) {
	insights, insightTokens, err := a.ExtractInsights(ctx, input)
	if err != nil {
		return nil, err
	}
	patterns, patternTokens, err := a.IdentifyPatterns(ctx, input)
	if err != nil {
		return nil, err
	}
	recs, recTokens, err := a.RecommendFromFindings(ctx, insights, patterns)
	if err != nil {
		return nil, err
	}

	return &task.AnalystResult{
		Insights:        insights,
		Patterns:        patterns,
		Recommendations: recs,
		Confidence:      ConfidenceScore(len(insights), len(patterns), len(input)),
		DataSources:     DataSources(input, a.env.Child != nil, a.env.User != nil),
		TokensUsed:      insightTokens + patternTokens + recTokens,
	}, nil
}

// ProcessMessage runs a lightweight analysis turn over the message.
func (a *Analyst) ProcessMessage(ctx context.Context, text string) (*agentcore.Response, error) {
	if strings.TrimSpace(text) == "" {
		return agentcore.SoftFail("I need a message to analyze."), nil
	}

	insights, tokens, err := a.ExtractInsights(ctx, text)
	if err != nil {
		return nil, err
	}

	reply := "Here is what stands out:\n" + strings.Join(insights, "\n")
	a.logTurn(ctx, text, reply)
	return &agentcore.Response{
		Success:    true,
		Message:    reply,
		Insights:   insights,
		TokensUsed: tokens,
	}, nil
}

// ExecuteTask dispatches one of this agent's tasks by kind.
func (a *Analyst) ExecuteTask(ctx context.Context, taskID string) (*agentcore.Response, error) {
	return a.executeTask(ctx, a, taskID)
}
