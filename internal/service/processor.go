package service

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	otelx "github.com/nurtura-ai/nurtura/internal/adapter/otel"
	"github.com/nurtura-ai/nurtura/internal/agents"
	"github.com/nurtura-ai/nurtura/internal/config"
	"github.com/nurtura-ai/nurtura/internal/domain"
	"github.com/nurtura-ai/nurtura/internal/domain/agent"
	"github.com/nurtura-ai/nurtura/internal/domain/task"
	"github.com/nurtura-ai/nurtura/internal/port/agentcore"
	"github.com/nurtura-ai/nurtura/internal/port/completion"
	"github.com/nurtura-ai/nurtura/internal/port/database"
	"github.com/nurtura-ai/nurtura/internal/port/messagequeue"
)

// TaskProcessorService runs the three-stage pipeline for one parenting
// input: the Dispatcher always runs, the Analyst and Scheduler run only
// when the Dispatcher's gates require them. Every stage that executes is
// charged, including stages of a run that later fails.
type TaskProcessorService struct {
	store    database.Store
	queue    messagequeue.Queue
	llm      completion.Service
	costs    *CostService
	contexts *ContextService
	metrics  *otelx.Metrics
	pipeline config.Pipeline
}

// NewTaskProcessorService creates a new TaskProcessorService.
func NewTaskProcessorService(
	store database.Store,
	queue messagequeue.Queue,
	llm completion.Service,
	costs *CostService,
	contexts *ContextService,
	metrics *otelx.Metrics,
	pipeline config.Pipeline,
) *TaskProcessorService {
	return &TaskProcessorService{
		store:    store,
		queue:    queue,
		llm:      llm,
		costs:    costs,
		contexts: contexts,
		metrics:  metrics,
		pipeline: pipeline,
	}
}

// Get returns one task by id.
func (s *TaskProcessorService) Get(ctx context.Context, id string) (*task.Task, error) {
	return s.store.GetTask(ctx, id)
}

// ListByUser returns all tasks for a user, newest first.
func (s *TaskProcessorService) ListByUser(ctx context.Context, userID string) ([]task.Task, error) {
	return s.store.ListTasksByUser(ctx, userID)
}

// ProcessInput runs the full pipeline for one input. The returned task
// reflects the final persisted state; on a stage failure the task is
// returned alongside the error so callers can inspect the partial results
// and the cost already incurred.
func (s *TaskProcessorService) ProcessInput(ctx context.Context, req task.CreateRequest) (*task.Task, error) {
	if strings.TrimSpace(req.Input) == "" {
		return nil, fmt.Errorf("%w: input must not be empty", domain.ErrValidation)
	}
	if req.UserID == "" {
		return nil, fmt.Errorf("%w: user_id is required", domain.ErrValidation)
	}

	// The per-user lock spans the budget check and the run itself, so two
	// concurrent requests cannot both pass the gate on the same last cent.
	lock := s.costs.UserLock(req.UserID)
	lock.Lock()
	defer lock.Unlock()

	if err := s.costs.CheckBudget(ctx, req.UserID); err != nil {
		return nil, err
	}

	env, err := s.contexts.Build(ctx, req.UserID, req.ChildID, "")
	if err != nil {
		return nil, err
	}

	t := &task.Task{
		ID:        uuid.NewString(),
		UserID:    req.UserID,
		ChildID:   env.ChildID,
		Kind:      task.KindPipeline,
		Input:     req.Input,
		Priority:  task.ParsePriority(string(req.Priority)),
		Status:    task.StatusProcessing,
		CreatedAt: time.Now().UTC(),
	}
	if err := s.store.CreateTask(ctx, t); err != nil {
		return nil, fmt.Errorf("create task: %w", err)
	}

	ctx, span := otelx.StartPipelineSpan(ctx, t.ID, t.UserID)
	defer span.End()
	if s.metrics != nil {
		s.metrics.TasksStarted.Add(ctx, 1)
	}

	started := time.Now()
	runErr := s.runStages(ctx, t, env)
	t.ProcessingTimeMS = time.Since(started).Milliseconds()

	if runErr != nil {
		t.Status = task.StatusFailed
		t.Error = runErr.Error()
	} else {
		t.Status = task.StatusCompleted
	}
	if err := s.store.UpdateTask(ctx, t); err != nil {
		slog.Error("task finalize failed", "task_id", t.ID, "error", err)
	}

	s.recordOutcome(ctx, t, runErr)
	if runErr != nil {
		return t, runErr
	}
	return t, nil
}

// runStages executes dispatcher, then the gated analyst and scheduler.
// Results and charges accumulate on t as each stage finishes, so a later
// failure leaves earlier results and their cost records in place.
func (s *TaskProcessorService) runStages(ctx context.Context, t *task.Task, env agentcore.Context) error {
	deps := agents.Deps{LLM: s.llm, Store: s.store, Pipeline: s.pipeline}

	dr, err := s.runDispatcher(ctx, t, env, deps)
	if err != nil {
		return err
	}
	t.Dispatcher = dr
	t.Category = dr.Category
	t.Priority = dr.Priority

	if dr.RequiresAnalysis {
		ar, err := s.runAnalyst(ctx, t, env, deps)
		if err != nil {
			return err
		}
		t.Analyst = ar
	}

	if dr.RequiresScheduling {
		sr, err := s.runScheduler(ctx, t, env, deps, dr, t.Analyst)
		if err != nil {
			return err
		}
		t.Scheduler = sr
	}

	return nil
}

func (s *TaskProcessorService) runDispatcher(ctx context.Context, t *task.Task, env agentcore.Context, deps agents.Deps) (*task.DispatcherResult, error) {
	ctx, span := otelx.StartStageSpan(ctx, t.ID, StageDispatcher)
	defer span.End()

	d := agents.NewDispatcher(s.stageMeta(agent.TypeDispatcher, t.UserID), env, deps)
	started := time.Now()
	dr, err := d.ProcessTask(ctx, t.Input)
	s.chargeStage(ctx, t, StageDispatcher, tokensOf(dr, err), time.Since(started))
	if err != nil {
		return nil, fmt.Errorf("dispatcher stage: %w", err)
	}
	return dr, nil
}

func (s *TaskProcessorService) runAnalyst(ctx context.Context, t *task.Task, env agentcore.Context, deps agents.Deps) (*task.AnalystResult, error) {
	ctx, span := otelx.StartStageSpan(ctx, t.ID, StageAnalyst)
	defer span.End()

	a := agents.NewAnalyst(s.stageMeta(agent.TypeAnalyst, t.UserID), env, deps)
	started := time.Now()
	ar, err := a.Analyze(ctx, t.Input, t.Dispatcher)
	tokens := 0
	if ar != nil {
		tokens = ar.TokensUsed
	}
	s.chargeStage(ctx, t, StageAnalyst, tokens, time.Since(started))
	if err != nil {
		return nil, fmt.Errorf("analyst stage: %w", err)
	}
	return ar, nil
}

func (s *TaskProcessorService) runScheduler(ctx context.Context, t *task.Task, env agentcore.Context, deps agents.Deps, dr *task.DispatcherResult, ar *task.AnalystResult) (*task.SchedulerResult, error) {
	ctx, span := otelx.StartStageSpan(ctx, t.ID, StageScheduler)
	defer span.End()

	sched := agents.NewScheduler(s.stageMeta(agent.TypeScheduler, t.UserID), env, deps)
	started := time.Now()
	sr, err := sched.Schedule(ctx, t.Input, dr, ar)
	tokens := 0
	if sr != nil {
		tokens = sr.TokensUsed
	}
	s.chargeStage(ctx, t, StageScheduler, tokens, time.Since(started))
	if err != nil {
		return nil, fmt.Errorf("scheduler stage: %w", err)
	}
	return sr, nil
}

// chargeStage records the cost of one stage invocation and folds it into
// the task total. A cost write failure is logged, not fatal: losing a
// charge must not fail a run that produced results.
func (s *TaskProcessorService) chargeStage(ctx context.Context, t *task.Task, stage string, tokens int, elapsed time.Duration) {
	cents, err := s.costs.RecordStage(ctx, t.ID, t.UserID, stage, tokens, elapsed.Milliseconds())
	if err != nil {
		slog.Error("stage cost record failed", "task_id", t.ID, "stage", stage, "error", err)
		return
	}
	t.TotalCostCents += cents
	if s.metrics != nil {
		s.metrics.StageDuration.Record(ctx, elapsed.Seconds())
	}
}

// stageMeta builds the synthetic agent identity a pipeline stage runs
// under. Stage agents are owned by the pipeline, not stored per user.
func (s *TaskProcessorService) stageMeta(typ agent.Type, userID string) *agent.Agent {
	return &agent.Agent{
		ID:     "pipeline-" + string(typ),
		UserID: userID,
		Name:   "Pipeline " + string(typ),
		Type:   typ,
		Status: agent.StatusActive,
	}
}

func (s *TaskProcessorService) recordOutcome(ctx context.Context, t *task.Task, runErr error) {
	subject := messagequeue.SubjectTaskCompleted
	if runErr != nil {
		subject = messagequeue.SubjectTaskFailed
		if s.metrics != nil {
			s.metrics.TasksFailed.Add(ctx, 1)
		}
	} else if s.metrics != nil {
		s.metrics.TasksCompleted.Add(ctx, 1)
		s.metrics.TaskCostCents.Record(ctx, t.TotalCostCents)
	}

	if s.queue == nil {
		return
	}
	data, err := json.Marshal(taskEvent{
		TaskID:         t.ID,
		UserID:         t.UserID,
		Status:         string(t.Status),
		Category:       string(t.Category),
		TotalCostCents: t.TotalCostCents,
		Error:          t.Error,
	})
	if err != nil {
		return
	}
	if err := s.queue.Publish(ctx, subject, data); err != nil {
		slog.Warn("task event publish failed", "task_id", t.ID, "subject", subject, "error", err)
	}
}

// StartBudgetWatchSubscriber consumes task completion events and logs a
// warning once a user's monthly spend nears the budget cap, so operators
// see users approaching the gate before it starts rejecting work. Events
// from every replica land here via the shared stream. The returned cancel
// func stops the consumer.
func (s *TaskProcessorService) StartBudgetWatchSubscriber(ctx context.Context) (cancel func(), err error) {
	return s.queue.Subscribe(ctx, messagequeue.SubjectTaskCompleted, func(msgCtx context.Context, _ string, data []byte) error {
		var ev taskEvent
		if err := json.Unmarshal(data, &ev); err != nil {
			return fmt.Errorf("unmarshal task event: %w", err)
		}
		near, err := s.costs.NearingBudget(msgCtx, ev.UserID)
		if err != nil {
			return err
		}
		if near {
			slog.Warn("user nearing monthly budget",
				"user_id", ev.UserID,
				"task_id", ev.TaskID,
				"task_cost_cents", ev.TotalCostCents,
			)
		}
		return nil
	})
}

// taskEvent is the queue payload for task lifecycle events.
type taskEvent struct {
	TaskID         string `json:"task_id"`
	UserID         string `json:"user_id"`
	Status         string `json:"status"`
	Category       string `json:"category,omitempty"`
	TotalCostCents int64  `json:"total_cost_cents"`
	Error          string `json:"error,omitempty"`
}

func tokensOf(dr *task.DispatcherResult, err error) int {
	if err != nil || dr == nil {
		return 0
	}
	return dr.TokensUsed
}
