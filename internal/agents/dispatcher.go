package agents

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"strings"

	"github.com/nurtura-ai/nurtura/internal/domain/agent"
	"github.com/nurtura-ai/nurtura/internal/domain/task"
	"github.com/nurtura-ai/nurtura/internal/port/agentcore"
)

// Priority multipliers applied to per-category base times.
const (
	lowMultiplier    = 0.7
	mediumMultiplier = 1.0
	highMultiplier   = 1.5
)

// RequiresAnalysis reports whether the Analyst stage must run. High
// priority forces the stage regardless of category.
func RequiresAnalysis(cat task.Category, prio task.Priority) bool {
	if prio == task.PriorityHigh {
		return true
	}
	switch cat {
	case task.CategoryBehaviorAnalysis, task.CategoryDevelopmentTracking, task.CategoryEmotionalSupport:
		return true
	default:
		return false
	}
}

// RequiresScheduling reports whether the Scheduler stage must run. High
// priority forces the stage regardless of category.
func RequiresScheduling(cat task.Category, prio task.Priority) bool {
	if prio == task.PriorityHigh {
		return true
	}
	switch cat {
	case task.CategorySchedulingPlanning, task.CategoryLearningActivities, task.CategoryAcademicPlanning:
		return true
	default:
		return false
	}
}

// Dispatcher is the first pipeline stage: it categorizes the raw input,
// judges priority, estimates processing time, and decides which later
// stages run.
type Dispatcher struct {
	base
}

// NewDispatcher constructs a Dispatcher bound to the given agent record
// and execution context.
func NewDispatcher(meta *agent.Agent, env agentcore.Context, deps Deps) *Dispatcher {
	return &Dispatcher{base: newBase(meta, env, deps, []agentcore.Capability{
		agentcore.CapProcessMessage,
		agentcore.CapExecuteTask,
	})}
}

const dispatcherSystemPrompt = `You are a triage assistant for a parenting support service.
You classify parent requests and route them to the right specialists.`

// Categorize asks the judgment engine for a category and maps the answer
// onto the closed vocabulary. A malformed JSON reply is an upstream error;
// an unknown but well-formed category falls back to general_parenting.
func (d *Dispatcher) Categorize(ctx context.Context, text string) (task.Category, int, error) {
	prompt := fmt.Sprintf(
		"Classify the following parenting request into exactly one of these categories: %s.\n"+
			"Respond with JSON only, in the form {\"category\": \"<name>\"}.\n\nRequest: %s",
		categoryList(), text)

	res, err := d.complete(ctx, dispatcherSystemPrompt, prompt)
	if err != nil {
		return "", 0, fmt.Errorf("categorize: %w", err)
	}

	var parsed struct {
		Category string `json:"category"`
	}
	if err := json.Unmarshal([]byte(extractJSON(res.Text)), &parsed); err != nil {
		return "", res.TotalTokens(), fmt.Errorf("categorize: unparsable reply %q: %w", res.Text, err)
	}
	return task.ParseCategory(parsed.Category), res.TotalTokens(), nil
}

// DeterminePriority asks the judgment engine for a priority. Anything
// outside {low, medium, high} maps to medium; this is a required fallback,
// not an error path.
func (d *Dispatcher) DeterminePriority(ctx context.Context, text string, cat task.Category) (task.Priority, int, error) {
	prompt := fmt.Sprintf(
		"A parenting request was classified as %q. Judge its urgency.\n"+
			"Respond with exactly one word: low, medium, or high.\n\nRequest: %s",
		cat, text)

	res, err := d.complete(ctx, dispatcherSystemPrompt, prompt)
	if err != nil {
		return "", 0, fmt.Errorf("determine priority: %w", err)
	}
	return task.ParsePriority(res.Text), res.TotalTokens(), nil
}

// SuggestActions asks for concrete next steps and parses them as a list.
func (d *Dispatcher) SuggestActions(ctx context.Context, text string, cat task.Category) ([]string, int, error) {
	prompt := fmt.Sprintf(
		"Suggest 3 to 5 concrete next actions for this %s request, one per line.\n\nRequest: %s",
		cat, text)

	res, err := d.complete(ctx, dispatcherSystemPrompt, prompt)
	if err != nil {
		return nil, 0, fmt.Errorf("suggest actions: %w", err)
	}
	return ParseItems(res.Text, 5), res.TotalTokens(), nil
}

// EstimateProcessingTime is a pure table lookup: per-category base time
// scaled by the priority multiplier.
func (d *Dispatcher) EstimateProcessingTime(cat task.Category, prio task.Priority) int64 {
	base, ok := d.deps.Pipeline.BaseTimesMS[string(cat)]
	if !ok {
		base = d.deps.Pipeline.DefaultBaseTimeMS
	}
	mult := mediumMultiplier
	switch prio {
	case task.PriorityLow:
		mult = lowMultiplier
	case task.PriorityHigh:
		mult = highMultiplier
	}
	return int64(math.Round(float64(base) * mult))
}

// ProcessTask composes classification, priority judgment, time estimation,
// the two stage gates, and action suggestions into the stage result.
func (d *Dispatcher) ProcessTask(ctx context.Context, input string) (*task.DispatcherResult, error) {
	cat, catTokens, err := d.Categorize(ctx, input)
	if err != nil {
		return nil, err
	}
	prio, prioTokens, err := d.DeterminePriority(ctx, input, cat)
	if err != nil {
		return nil, err
	}
	actions, actionTokens, err := d.SuggestActions(ctx, input, cat)
	if err != nil {
		return nil, err
	}

	return &task.DispatcherResult{
		Category:           cat,
		Priority:           prio,
		RequiresAnalysis:   RequiresAnalysis(cat, prio),
		RequiresScheduling: RequiresScheduling(cat, prio),
		EstimatedTimeMS:    d.EstimateProcessingTime(cat, prio),
		SuggestedActions:   actions,
		TokensUsed:         catTokens + prioTokens + actionTokens,
	}, nil
}

// ProcessMessage handles a free-text turn by triaging it and describing
// where the request would be routed.
func (d *Dispatcher) ProcessMessage(ctx context.Context, text string) (*agentcore.Response, error) {
	if strings.TrimSpace(text) == "" {
		return agentcore.SoftFail("I need a message to work with."), nil
	}

	cat, tokens, err := d.Categorize(ctx, text)
	if err != nil {
		return nil, err
	}

	reply := fmt.Sprintf("I've classified this as a %s request and will route it accordingly.",
		strings.ReplaceAll(string(cat), "_", " "))
	d.logTurn(ctx, text, reply)
	return &agentcore.Response{Success: true, Message: reply, TokensUsed: tokens}, nil
}

// ExecuteTask dispatches one of this agent's tasks by kind.
func (d *Dispatcher) ExecuteTask(ctx context.Context, taskID string) (*agentcore.Response, error) {
	return d.executeTask(ctx, d, taskID)
}

func categoryList() string {
	cats := task.Categories()
	names := make([]string, len(cats))
	for i, c := range cats {
		names[i] = string(c)
	}
	return strings.Join(names, ", ")
}

// extractJSON pulls the first {...} object out of a reply, tolerating
// models that wrap JSON in prose or code fences.
func extractJSON(text string) string {
	start := strings.Index(text, "{")
	end := strings.LastIndex(text, "}")
	if start == -1 || end == -1 || end < start {
		return text
	}
	return text[start : end+1]
}
