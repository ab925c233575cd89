package agents

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/nurtura-ai/nurtura/internal/domain/agent"
	"github.com/nurtura-ai/nurtura/internal/domain/task"
	"github.com/nurtura-ai/nurtura/internal/port/agentcore"
)

// Timeframe buckets an action can land in.
const (
	TimeframeToday     = "today"
	TimeframeThisWeek  = "this_week"
	TimeframeThisMonth = "this_month"
)

// TimeframeForAction maps keyword hits in the action text to a timeframe
// bucket. Pure lookup; unmatched actions land in this_week.
func TimeframeForAction(action string) string {
	lower := strings.ToLower(action)
	switch {
	case strings.Contains(lower, "immediate") || strings.Contains(lower, "today"):
		return TimeframeToday
	case strings.Contains(lower, "week") || strings.Contains(lower, "daily"):
		return TimeframeThisWeek
	case strings.Contains(lower, "month") || strings.Contains(lower, "long-term"):
		return TimeframeThisMonth
	default:
		return TimeframeThisWeek
	}
}

// EstimateDuration maps keyword hits to a fixed duration in minutes.
// Pure lookup; the default is 30 minutes.
func EstimateDuration(action string) int {
	lower := strings.ToLower(action)
	switch {
	case strings.Contains(lower, "quick") || strings.Contains(lower, "check"):
		return 15
	case strings.Contains(lower, "read") || strings.Contains(lower, "review"):
		return 45
	case strings.Contains(lower, "session") || strings.Contains(lower, "appointment"):
		return 60
	default:
		return 30
	}
}

// OverallTimeframe returns the planning horizon for a task category.
func OverallTimeframe(cat task.Category) string {
	switch cat {
	case task.CategoryAcademicPlanning:
		return "1 month"
	case task.CategoryDevelopmentTracking:
		return "2 weeks"
	default:
		return "1 week"
	}
}

// dueDateFor maps a timeframe bucket to a concrete due date.
func dueDateFor(timeframe string, now time.Time) time.Time {
	switch timeframe {
	case TimeframeToday:
		return now.Add(24 * time.Hour)
	case TimeframeThisMonth:
		return now.Add(14 * 24 * time.Hour)
	default:
		return now.Add(3 * 24 * time.Hour)
	}
}

// Scheduler is the third pipeline stage: it turns the accumulated actions
// into a concrete schedule with a timeline and reminders.
type Scheduler struct {
	base
	now func() time.Time
}

// NewScheduler constructs a Scheduler bound to the given agent record and
// execution context.
func NewScheduler(meta *agent.Agent, env agentcore.Context, deps Deps) *Scheduler {
	return &Scheduler{
		base: newBase(meta, env, deps, []agentcore.Capability{
			agentcore.CapProcessMessage,
			agentcore.CapExecuteTask,
		}),
		now: time.Now,
	}
}

const schedulerSystemPrompt = `You are a family scheduling assistant.
You turn action lists into realistic day-by-day plans for busy parents.`

// BuildTimeline asks the completion service for a day-by-day plan and
// parses it with the line-oriented timeline heuristic.
func (s *Scheduler) BuildTimeline(ctx context.Context, actions []task.ScheduledAction, timeframe string) ([]task.TimelineEntry, int, error) {
	var sb strings.Builder
	fmt.Fprintf(&sb, "Build a day-by-day plan covering %s for these actions.\n", timeframe)
	sb.WriteString("Format: a YYYY-MM-DD date on its own line, then one activity per line prefixed with \"- \".\n\nActions:\n")
	for _, a := range actions {
		fmt.Fprintf(&sb, "- %s (%s, %d min)\n", a.Action, a.Timeframe, a.DurationMinutes)
	}
	fmt.Fprintf(&sb, "\nStart from %s.", s.now().UTC().Format("2006-01-02"))

	res, err := s.complete(ctx, schedulerSystemPrompt, sb.String())
	if err != nil {
		return nil, 0, fmt.Errorf("build timeline: %w", err)
	}
	return ParseTimeline(res.Text), res.TotalTokens(), nil
}

// BuildReminders derives one reminder per scheduled action, typed by the
// action's priority and dated by its timeframe bucket.
func (s *Scheduler) BuildReminders(actions []task.ScheduledAction, _ []task.TimelineEntry) []task.Reminder {
	now := s.now()
	reminders := make([]task.Reminder, 0, len(actions))
	for _, a := range actions {
		kind := "nudge"
		if a.Priority == task.PriorityHigh {
			kind = "urgent"
		}
		reminders = append(reminders, task.Reminder{
			Type:    kind,
			Message: "Don't forget: " + a.Action,
			DueDate: dueDateFor(a.Timeframe, now),
		})
	}
	return reminders
}

// Schedule composes per-action classification, the timeline call, and
// reminder generation. The action list is the Dispatcher's suggestions
// followed by the Analyst's recommendations, concatenated as-is;
// duplicates are scheduled twice by design.
func (s *Scheduler) Schedule(ctx context.Context, input string, dr *task.DispatcherResult, ar *task.AnalystResult) (*task.SchedulerResult, error) {
	if ar == nil {
		ar = task.StubAnalystResult()
	}

	raw := make([]string, 0, len(dr.SuggestedActions)+len(ar.Recommendations))
	raw = append(raw, dr.SuggestedActions...)
	raw = append(raw, ar.Recommendations...)

	actions := make([]task.ScheduledAction, 0, len(raw))
	for _, text := range raw {
		actions = append(actions, task.ScheduledAction{
			Action:          text,
			Timeframe:       TimeframeForAction(text),
			Priority:        dr.Priority,
			DurationMinutes: EstimateDuration(text),
		})
	}

	timeframe := OverallTimeframe(dr.Category)
	timeline, tokens, err := s.BuildTimeline(ctx, actions, timeframe)
	if err != nil {
		return nil, err
	}

	return &task.SchedulerResult{
		Actions:    actions,
		Timeline:   timeline,
		Reminders:  s.BuildReminders(actions, timeline),
		Timeframe:  timeframe,
		TokensUsed: tokens,
	}, nil
}

// ProcessMessage schedules whatever actionable items appear in the text.
func (s *Scheduler) ProcessMessage(ctx context.Context, text string) (*agentcore.Response, error) {
	if strings.TrimSpace(text) == "" {
		return agentcore.SoftFail("I need a message with something to schedule."), nil
	}

	items := ParseItems(text, 5)
	dr := &task.DispatcherResult{
		Category:         task.CategorySchedulingPlanning,
		Priority:         task.PriorityMedium,
		SuggestedActions: items,
	}
	result, err := s.Schedule(ctx, text, dr, nil)
	if err != nil {
		return nil, err
	}

	reply := fmt.Sprintf("Scheduled %d actions over %s with %d reminders.",
		len(result.Actions), result.Timeframe, len(result.Reminders))
	s.logTurn(ctx, text, reply)
	return &agentcore.Response{
		Success:    true,
		Message:    reply,
		Tasks:      items,
		TokensUsed: result.TokensUsed,
	}, nil
}

// ExecuteTask dispatches one of this agent's tasks by kind.
func (s *Scheduler) ExecuteTask(ctx context.Context, taskID string) (*agentcore.Response, error) {
	return s.executeTask(ctx, s, taskID)
}
