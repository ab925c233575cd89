package service

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/nurtura-ai/nurtura/internal/domain"
	"github.com/nurtura-ai/nurtura/internal/domain/insight"
	"github.com/nurtura-ai/nurtura/internal/port/database"
	"github.com/nurtura-ai/nurtura/internal/port/messagequeue"
)

// InsightService exposes agent-produced artifacts to the API layer and
// owns the recommendation status workflow.
type InsightService struct {
	store database.Store
	queue messagequeue.Queue
}

// NewInsightService creates a new InsightService.
func NewInsightService(store database.Store, queue messagequeue.Queue) *InsightService {
	return &InsightService{store: store, queue: queue}
}

// ListByChild returns all insights recorded for a child.
func (s *InsightService) ListByChild(ctx context.Context, childID string) ([]insight.Insight, error) {
	return s.store.ListInsightsByChild(ctx, childID)
}

// UpdateRecommendationStatus applies one workflow transition. Illegal
// edges are validation errors; the stored row is only touched on a legal
// transition.
func (s *InsightService) UpdateRecommendationStatus(ctx context.Context, id, statusName string) (*insight.Recommendation, error) {
	next, err := insight.ParseRecommendationStatus(statusName)
	if err != nil {
		return nil, err
	}

	rec, err := s.store.GetRecommendation(ctx, id)
	if err != nil {
		return nil, err
	}
	if !rec.Status.CanTransition(next) {
		return nil, fmt.Errorf("%w: cannot move recommendation from %q to %q", domain.ErrValidation, rec.Status, next)
	}

	if err := s.store.UpdateRecommendationStatus(ctx, id, next); err != nil {
		return nil, err
	}
	rec.Status = next

	if s.queue != nil {
		data, err := json.Marshal(map[string]string{
			"recommendation_id": rec.ID,
			"user_id":           rec.UserID,
			"status":            string(next),
		})
		if err == nil {
			if err := s.queue.Publish(ctx, messagequeue.SubjectRecommendationUpdated, data); err != nil {
				slog.Warn("recommendation event publish failed", "recommendation_id", rec.ID, "error", err)
			}
		}
	}
	return rec, nil
}
