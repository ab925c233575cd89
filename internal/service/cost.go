package service

import (
	"context"
	"fmt"
	"math"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/nurtura-ai/nurtura/internal/config"
	"github.com/nurtura-ai/nurtura/internal/domain"
	"github.com/nurtura-ai/nurtura/internal/domain/cost"
	"github.com/nurtura-ai/nurtura/internal/port/database"
)

// Pipeline stage names used for cost attribution.
const (
	StageDispatcher = "dispatcher"
	StageAnalyst    = "analyst"
	StageScheduler  = "scheduler"
)

// CostService owns the money math: per-stage charge calculation, cost
// record persistence, monthly usage aggregation, and the budget gate. A
// per-user mutex serializes the read-check-write of the budget gate so
// concurrent pipeline starts cannot both slip under the cap.
type CostService struct {
	store   database.Store
	pricing config.Pricing

	mu    sync.Mutex
	users map[string]*sync.Mutex
}

// NewCostService creates a new CostService.
func NewCostService(store database.Store, pricing config.Pricing) *CostService {
	return &CostService{
		store:   store,
		pricing: pricing,
		users:   make(map[string]*sync.Mutex),
	}
}

// stageMultiplier returns the configured rate multiplier for a stage.
// Unknown stage names charge at the base rate.
func (s *CostService) stageMultiplier(stage string) float64 {
	switch stage {
	case StageDispatcher:
		return s.pricing.DispatcherMultiplier
	case StageAnalyst:
		return s.pricing.AnalystMultiplier
	case StageScheduler:
		return s.pricing.SchedulerMultiplier
	default:
		return 1.0
	}
}

// EstimateStageCents computes the charge for one stage invocation:
// execution minutes times the base rate times the stage multiplier,
// rounded to whole cents with a one-cent floor. Every invocation costs
// something.
func (s *CostService) EstimateStageCents(stage string, executionMS int64) int64 {
	minutes := float64(executionMS) / 60000.0
	cents := int64(math.Round(minutes * s.pricing.BaseCostPerMinute * s.stageMultiplier(stage) * 100))
	if cents < 1 {
		cents = 1
	}
	return cents
}

// RecordStage appends one cost record for a stage invocation and folds the
// charge into the user's monthly usage. Returns the charge in cents.
func (s *CostService) RecordStage(ctx context.Context, taskID, userID, stage string, tokens int, executionMS int64) (int64, error) {
	cents := s.EstimateStageCents(stage, executionMS)

	rec := &cost.Record{
		ID:          uuid.NewString(),
		TaskID:      taskID,
		UserID:      userID,
		AgentName:   stage,
		Tokens:      tokens,
		CostCents:   cents,
		ExecutionMS: executionMS,
		CreatedAt:   time.Now().UTC(),
	}
	if err := s.store.AppendCostRecord(ctx, rec); err != nil {
		return 0, fmt.Errorf("append cost record: %w", err)
	}
	if err := s.store.AddMonthlyUsage(ctx, userID, cost.MonthKey(rec.CreatedAt), cents); err != nil {
		return 0, fmt.Errorf("add monthly usage: %w", err)
	}
	return cents, nil
}

// CheckBudget returns ErrBudgetExceeded when the user's spend for the
// current month has reached the configured cap. A zero or negative cap
// disables the gate.
func (s *CostService) CheckBudget(ctx context.Context, userID string) error {
	if s.pricing.MonthlyBudgetCents <= 0 {
		return nil
	}
	usage, err := s.store.GetMonthlyUsage(ctx, userID, cost.MonthKey(time.Now()))
	if err != nil {
		return fmt.Errorf("get monthly usage: %w", err)
	}
	if usage.TotalCents >= s.pricing.MonthlyBudgetCents {
		return fmt.Errorf("%w: %d cents used of %d", domain.ErrBudgetExceeded, usage.TotalCents, s.pricing.MonthlyBudgetCents)
	}
	return nil
}

// NearingBudget reports whether the user's spend for the current month has
// reached 80% of the cap. Always false when the gate is disabled.
func (s *CostService) NearingBudget(ctx context.Context, userID string) (bool, error) {
	if s.pricing.MonthlyBudgetCents <= 0 {
		return false, nil
	}
	usage, err := s.store.GetMonthlyUsage(ctx, userID, cost.MonthKey(time.Now()))
	if err != nil {
		return false, fmt.Errorf("get monthly usage: %w", err)
	}
	return usage.TotalCents*5 >= s.pricing.MonthlyBudgetCents*4, nil
}

// UserLock returns the mutex serializing budget-sensitive work for one
// user, creating it on first use.
func (s *CostService) UserLock(userID string) *sync.Mutex {
	s.mu.Lock()
	defer s.mu.Unlock()
	lock, ok := s.users[userID]
	if !ok {
		lock = &sync.Mutex{}
		s.users[userID] = lock
	}
	return lock
}

// MonthlySummary returns the user's usage row for the given month, or the
// current month when month is empty.
func (s *CostService) MonthlySummary(ctx context.Context, userID, month string) (*cost.MonthlyUsage, error) {
	if month == "" {
		month = cost.MonthKey(time.Now())
	}
	return s.store.GetMonthlyUsage(ctx, userID, month)
}

// TaskCosts lists the per-stage cost records for one task.
func (s *CostService) TaskCosts(ctx context.Context, taskID string) ([]cost.Record, error) {
	return s.store.ListCostRecordsByTask(ctx, taskID)
}
