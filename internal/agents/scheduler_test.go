package agents

import (
	"context"
	"testing"
	"time"

	"github.com/nurtura-ai/nurtura/internal/domain/agent"
	"github.com/nurtura-ai/nurtura/internal/domain/task"
	"github.com/nurtura-ai/nurtura/internal/port/agentcore"
)

func TestTimeframeForAction(t *testing.T) {
	cases := []struct {
		action string
		want   string
	}{
		{"Take immediate action on the tantrum", TimeframeToday},
		{"Call the school today", TimeframeToday},
		{"Practice reading daily", TimeframeThisWeek},
		{"Review progress this week", TimeframeThisWeek},
		{"Book a checkup this month", TimeframeThisMonth},
		{"Work on long-term study habits", TimeframeThisMonth},
		{"Talk to the teacher", TimeframeThisWeek},
	}
	for _, tc := range cases {
		if got := TimeframeForAction(tc.action); got != tc.want {
			t.Errorf("TimeframeForAction(%q) = %q, want %q", tc.action, got, tc.want)
		}
	}
}

func TestEstimateDuration(t *testing.T) {
	cases := []struct {
		action string
		want   int
	}{
		{"Quick chat about homework", 15},
		{"Check the sleep log", 15},
		{"Read a chapter together", 45},
		{"Review the report card", 45},
		{"Book a therapy session", 60},
		{"Schedule a doctor appointment", 60},
		{"Plan the weekend", 30},
	}
	for _, tc := range cases {
		if got := EstimateDuration(tc.action); got != tc.want {
			t.Errorf("EstimateDuration(%q) = %d, want %d", tc.action, got, tc.want)
		}
	}
}

func TestOverallTimeframe(t *testing.T) {
	if got := OverallTimeframe(task.CategoryAcademicPlanning); got != "1 month" {
		t.Fatalf("academic_planning = %q", got)
	}
	if got := OverallTimeframe(task.CategoryDevelopmentTracking); got != "2 weeks" {
		t.Fatalf("development_tracking = %q", got)
	}
	if got := OverallTimeframe(task.CategoryGeneralParenting); got != "1 week" {
		t.Fatalf("default = %q", got)
	}
}

func newTestScheduler(llm *mockLLM, store *mockStore) *Scheduler {
	s := NewScheduler(testMeta(agent.TypeScheduler), agentcore.Context{UserID: "user-1"}, testDeps(llm, store))
	s.now = func() time.Time { return time.Date(2026, 9, 1, 8, 0, 0, 0, time.UTC) }
	return s
}

func TestSchedulerScheduleKeepsDuplicates(t *testing.T) {
	llm := &mockLLM{replies: []string{"2026-09-01\n- Morning reading"}}
	s := newTestScheduler(llm, newMockStore())

	dr := &task.DispatcherResult{
		Category:         task.CategoryLearningActivities,
		Priority:         task.PriorityMedium,
		SuggestedActions: []string{"Practice reading daily", "Plan the weekend"},
	}
	ar := &task.AnalystResult{
		Recommendations: []string{"Practice reading daily", "Limit screen time"},
	}

	result, err := s.Schedule(context.Background(), "input", dr, ar)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	// Dispatcher suggestions and analyst recommendations concatenate as-is;
	// the repeated action is scheduled twice.
	if len(result.Actions) != 4 {
		t.Fatalf("expected 4 actions, got %d", len(result.Actions))
	}
	if result.Actions[0].Action != "Practice reading daily" || result.Actions[2].Action != "Practice reading daily" {
		t.Fatalf("actions = %+v", result.Actions)
	}
	if len(result.Reminders) != 4 {
		t.Fatalf("expected one reminder per action, got %d", len(result.Reminders))
	}
	if result.Timeframe != "1 week" {
		t.Fatalf("timeframe = %q", result.Timeframe)
	}
}

func TestSchedulerScheduleNilAnalystUsesStub(t *testing.T) {
	llm := &mockLLM{replies: []string{"2026-09-01\n- Plan"}}
	s := newTestScheduler(llm, newMockStore())

	dr := &task.DispatcherResult{
		Category:         task.CategorySchedulingPlanning,
		Priority:         task.PriorityLow,
		SuggestedActions: []string{"Plan the weekend"},
	}

	result, err := s.Schedule(context.Background(), "input", dr, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(result.Actions) != 1 {
		t.Fatalf("expected only dispatcher actions, got %d", len(result.Actions))
	}
}

func TestSchedulerReminders(t *testing.T) {
	s := newTestScheduler(&mockLLM{}, newMockStore())
	now := s.now()

	actions := []task.ScheduledAction{
		{Action: "Call the school today", Timeframe: TimeframeToday, Priority: task.PriorityHigh},
		{Action: "Book a checkup this month", Timeframe: TimeframeThisMonth, Priority: task.PriorityMedium},
		{Action: "Plan the weekend", Timeframe: TimeframeThisWeek, Priority: task.PriorityLow},
	}
	reminders := s.BuildReminders(actions, nil)
	if len(reminders) != 3 {
		t.Fatalf("expected 3 reminders, got %d", len(reminders))
	}
	if reminders[0].Type != "urgent" {
		t.Fatalf("high priority reminder type = %q", reminders[0].Type)
	}
	if reminders[1].Type != "nudge" || reminders[2].Type != "nudge" {
		t.Fatalf("reminder types = %q, %q", reminders[1].Type, reminders[2].Type)
	}
	if !reminders[0].DueDate.Equal(now.Add(24 * time.Hour)) {
		t.Fatalf("today due date = %v", reminders[0].DueDate)
	}
	if !reminders[1].DueDate.Equal(now.Add(14 * 24 * time.Hour)) {
		t.Fatalf("month due date = %v", reminders[1].DueDate)
	}
	if !reminders[2].DueDate.Equal(now.Add(3 * 24 * time.Hour)) {
		t.Fatalf("week due date = %v", reminders[2].DueDate)
	}
}

func TestSchedulerProcessMessage(t *testing.T) {
	llm := &mockLLM{replies: []string{"2026-09-01\n- Pack lunches"}}
	store := newMockStore()
	s := newTestScheduler(llm, store)

	resp, err := s.ProcessMessage(context.Background(), "- pack lunches\n- sign the permission slip")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !resp.Success {
		t.Fatalf("expected success, got %q", resp.Message)
	}
	if len(resp.Tasks) != 2 {
		t.Fatalf("tasks = %v", resp.Tasks)
	}
	if len(store.conversations) != 2 {
		t.Fatalf("expected logged turn, got %d records", len(store.conversations))
	}
}
