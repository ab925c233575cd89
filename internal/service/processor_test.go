package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/nurtura-ai/nurtura/internal/config"
	"github.com/nurtura-ai/nurtura/internal/domain"
	"github.com/nurtura-ai/nurtura/internal/domain/cost"
	"github.com/nurtura-ai/nurtura/internal/domain/profile"
	"github.com/nurtura-ai/nurtura/internal/domain/task"
)

func newProcessor(store *mockStore, queue *mockQueue, llm *mockLLM) *TaskProcessorService {
	cfg := config.Defaults()
	costs := NewCostService(store, testPricing())
	contexts := NewContextService(store, newCache(), time.Minute, cfg.Pipeline.HistoryTurns)
	return NewTaskProcessorService(store, queue, llm, costs, contexts, nil, cfg.Pipeline)
}

func seedUser(store *mockStore) {
	store.users["user-1"] = profile.User{ID: "user-1", Name: "Jordan"}
	store.children["child-1"] = profile.Child{ID: "child-1", UserID: "user-1", Name: "Mia"}
}

func TestProcessInputSchedulingWithoutAnalysis(t *testing.T) {
	store := newStore()
	seedUser(store)
	queue := &mockQueue{}
	llm := &mockLLM{replies: []string{
		`{"category": "scheduling_planning"}`,
		"low",
		"1. Block homework time\n2. Plan the weekend",
		"2026-09-01\n- Block homework time",
	}}
	svc := newProcessor(store, queue, llm)

	got, err := svc.ProcessInput(context.Background(), task.CreateRequest{UserID: "user-1", Input: "help me plan the week"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.Status != task.StatusCompleted {
		t.Fatalf("status = %q", got.Status)
	}
	if got.Analyst != nil {
		t.Fatal("low-priority scheduling task must not run the analyst")
	}
	if got.Scheduler == nil {
		t.Fatal("scheduling task must produce a scheduler result")
	}
	// The scheduler ran from the analyst stub: only dispatcher actions.
	if len(got.Scheduler.Actions) != 2 {
		t.Fatalf("actions = %+v", got.Scheduler.Actions)
	}

	// Dispatcher and scheduler each charged exactly once.
	records, _ := store.ListCostRecordsByTask(context.Background(), got.ID)
	if len(records) != 2 {
		t.Fatalf("expected 2 cost records, got %d", len(records))
	}
	assertCostInvariant(t, got, records)

	subjects := queue.subjects()
	if len(subjects) != 1 || subjects[0] != "tasks.completed" {
		t.Fatalf("published = %v", subjects)
	}
}

func TestProcessInputHighPriorityForcesAllStages(t *testing.T) {
	store := newStore()
	seedUser(store)
	llm := &mockLLM{replies: []string{
		`{"category": "general_parenting"}`,
		"high",
		"1. Stay calm\n2. Talk it through",
		"- insight one\n- insight two",
		"- pattern one",
		"- rec one\n- rec two",
		"2026-09-01\n- Stay calm",
	}}
	svc := newProcessor(store, &mockQueue{}, llm)

	got, err := svc.ProcessInput(context.Background(), task.CreateRequest{UserID: "user-1", Input: "urgent: he ran off at the store"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.Priority != task.PriorityHigh {
		t.Fatalf("priority = %q", got.Priority)
	}
	if got.Analyst == nil || got.Scheduler == nil {
		t.Fatal("high priority must force analyst and scheduler stages")
	}
	// Scheduler actions are dispatcher suggestions plus analyst
	// recommendations, concatenated without deduplication.
	if len(got.Scheduler.Actions) != 4 {
		t.Fatalf("expected 4 actions, got %d", len(got.Scheduler.Actions))
	}

	records, _ := store.ListCostRecordsByTask(context.Background(), got.ID)
	if len(records) != 3 {
		t.Fatalf("expected 3 cost records, got %d", len(records))
	}
	assertCostInvariant(t, got, records)
}

func TestProcessInputDispatcherFailure(t *testing.T) {
	store := newStore()
	seedUser(store)
	queue := &mockQueue{}
	llm := &mockLLM{errAt: 1}
	svc := newProcessor(store, queue, llm)

	got, err := svc.ProcessInput(context.Background(), task.CreateRequest{UserID: "user-1", Input: "anything"})
	if err == nil {
		t.Fatal("expected stage error")
	}
	if got == nil {
		t.Fatal("failed run must still return the task")
	}
	if got.Status != task.StatusFailed {
		t.Fatalf("status = %q", got.Status)
	}
	if got.Error == "" {
		t.Fatal("error must be recorded on the task")
	}

	// The failed dispatcher invocation is still charged.
	records, _ := store.ListCostRecordsByTask(context.Background(), got.ID)
	if len(records) != 1 {
		t.Fatalf("expected 1 cost record, got %d", len(records))
	}
	assertCostInvariant(t, got, records)

	stored, _ := store.GetTask(context.Background(), got.ID)
	if stored.Status != task.StatusFailed || stored.Error == "" {
		t.Fatalf("persisted task = %+v", stored)
	}

	subjects := queue.subjects()
	if len(subjects) != 1 || subjects[0] != "tasks.failed" {
		t.Fatalf("published = %v", subjects)
	}
}

func TestProcessInputAnalystFailureKeepsDispatcherResult(t *testing.T) {
	store := newStore()
	seedUser(store)
	llm := &mockLLM{
		replies: []string{
			`{"category": "behavior_analysis"}`,
			"medium",
			"1. Observe triggers",
		},
		errAt: 4,
	}
	svc := newProcessor(store, &mockQueue{}, llm)

	got, err := svc.ProcessInput(context.Background(), task.CreateRequest{UserID: "user-1", Input: "his behavior changed"})
	if err == nil {
		t.Fatal("expected stage error")
	}
	if got.Status != task.StatusFailed {
		t.Fatalf("status = %q", got.Status)
	}
	if got.Dispatcher == nil {
		t.Fatal("dispatcher result must survive a later stage failure")
	}
	records, _ := store.ListCostRecordsByTask(context.Background(), got.ID)
	if len(records) != 2 {
		t.Fatalf("expected dispatcher and analyst charges, got %d", len(records))
	}
	assertCostInvariant(t, got, records)
}

func TestProcessInputEmptyInput(t *testing.T) {
	store := newStore()
	seedUser(store)
	svc := newProcessor(store, &mockQueue{}, &mockLLM{})

	_, err := svc.ProcessInput(context.Background(), task.CreateRequest{UserID: "user-1", Input: "   "})
	if !errors.Is(err, domain.ErrValidation) {
		t.Fatalf("expected ErrValidation, got %v", err)
	}
	if len(store.tasks) != 0 {
		t.Fatal("no task may be created for invalid input")
	}
}

func TestProcessInputBudgetExceeded(t *testing.T) {
	store := newStore()
	seedUser(store)
	store.monthlyUsage["user-1|"+cost.MonthKey(time.Now())] = 5000
	svc := newProcessor(store, &mockQueue{}, &mockLLM{})

	_, err := svc.ProcessInput(context.Background(), task.CreateRequest{UserID: "user-1", Input: "plan the week"})
	if !errors.Is(err, domain.ErrBudgetExceeded) {
		t.Fatalf("expected ErrBudgetExceeded, got %v", err)
	}
	if len(store.tasks) != 0 {
		t.Fatal("no task may start past the budget cap")
	}
}

func TestProcessInputUnknownUser(t *testing.T) {
	svc := newProcessor(newStore(), &mockQueue{}, &mockLLM{})

	_, err := svc.ProcessInput(context.Background(), task.CreateRequest{UserID: "ghost", Input: "hello"})
	if !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestBudgetWatchSubscriber(t *testing.T) {
	store := newStore()
	seedUser(store)
	store.monthlyUsage["user-1|"+cost.MonthKey(time.Now())] = 1800 // past 80% of the 2000 cap
	queue := &mockQueue{}
	svc := newProcessor(store, queue, &mockLLM{})

	cancel, err := svc.StartBudgetWatchSubscriber(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	defer cancel()

	event := []byte(`{"task_id": "task-1", "user_id": "user-1", "status": "completed", "total_cost_cents": 12}`)
	if err := queue.deliver(context.Background(), "tasks.completed", event); err != nil {
		t.Fatalf("deliver: %v", err)
	}

	if err := queue.deliver(context.Background(), "tasks.completed", []byte("{not json")); err == nil {
		t.Fatal("malformed event must be rejected so the broker redelivers it")
	}
}

// assertCostInvariant checks that a task's total equals the sum of its
// cost records.
func assertCostInvariant(t *testing.T, got *task.Task, records []cost.Record) {
	t.Helper()
	var sum int64
	for _, rec := range records {
		sum += rec.CostCents
	}
	if got.TotalCostCents != sum {
		t.Fatalf("total cost %d != sum of records %d", got.TotalCostCents, sum)
	}
	if got.TotalCostCents < int64(len(records)) {
		t.Fatalf("each stage must cost at least one cent: total %d for %d stages", got.TotalCostCents, len(records))
	}
}
