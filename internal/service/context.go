package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/nurtura-ai/nurtura/internal/domain"
	"github.com/nurtura-ai/nurtura/internal/domain/conversation"
	"github.com/nurtura-ai/nurtura/internal/domain/profile"
	"github.com/nurtura-ai/nurtura/internal/port/agentcore"
	"github.com/nurtura-ai/nurtura/internal/port/cache"
	"github.com/nurtura-ai/nurtura/internal/port/database"
)

// ContextService assembles the execution context an agent is constructed
// with: the acting user, the optional child, and recent conversation
// history. Profile lookups are cached; concurrent loads of the same
// profile collapse into one store query via singleflight.
type ContextService struct {
	store        database.Store
	cache        cache.Cache
	ttl          time.Duration
	historyTurns int
	group        singleflight.Group
}

// NewContextService creates a new ContextService.
func NewContextService(store database.Store, c cache.Cache, ttl time.Duration, historyTurns int) *ContextService {
	return &ContextService{
		store:        store,
		cache:        c,
		ttl:          ttl,
		historyTurns: historyTurns,
	}
}

// Build loads the execution context for one agent invocation. A missing
// user is an error; a missing child is not, since many turns are not about
// a specific child. childID and agentID may be empty.
func (s *ContextService) Build(ctx context.Context, userID, childID, agentID string) (agentcore.Context, error) {
	env := agentcore.Context{UserID: userID, ChildID: childID}

	user, err := s.loadUser(ctx, userID)
	if err != nil {
		return env, fmt.Errorf("load user: %w", err)
	}
	env.User = user

	if childID != "" {
		child, err := s.loadChild(ctx, childID)
		switch {
		case errors.Is(err, domain.ErrNotFound):
			env.ChildID = ""
		case err != nil:
			return env, fmt.Errorf("load child: %w", err)
		default:
			env.Child = child
		}
	}

	if agentID != "" && s.historyTurns > 0 {
		history, err := s.store.ListConversation(ctx, userID, agentID, s.historyTurns)
		if err != nil {
			// History is contextual flavor, not a hard dependency.
			slog.Warn("conversation history load failed", "user_id", userID, "agent_id", agentID, "error", err)
		} else {
			env.History = history
		}
	}

	return env, nil
}

func (s *ContextService) loadUser(ctx context.Context, id string) (*profile.User, error) {
	key := "user:" + id
	var user profile.User
	if s.cacheGet(ctx, key, &user) {
		return &user, nil
	}

	v, err, _ := s.group.Do(key, func() (any, error) {
		u, err := s.store.GetUser(ctx, id)
		if err != nil {
			return nil, err
		}
		s.cacheSet(ctx, key, u)
		return u, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*profile.User), nil
}

func (s *ContextService) loadChild(ctx context.Context, id string) (*profile.Child, error) {
	key := "child:" + id
	var child profile.Child
	if s.cacheGet(ctx, key, &child) {
		return &child, nil
	}

	v, err, _ := s.group.Do(key, func() (any, error) {
		c, err := s.store.GetChild(ctx, id)
		if err != nil {
			return nil, err
		}
		s.cacheSet(ctx, key, c)
		return c, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*profile.Child), nil
}

// Invalidate drops cached profile entries for a user and child, for use
// after upstream profile edits.
func (s *ContextService) Invalidate(ctx context.Context, userID, childID string) {
	if s.cache == nil {
		return
	}
	if userID != "" {
		_ = s.cache.Delete(ctx, "user:"+userID)
	}
	if childID != "" {
		_ = s.cache.Delete(ctx, "child:"+childID)
	}
}

func (s *ContextService) cacheGet(ctx context.Context, key string, out any) bool {
	if s.cache == nil {
		return false
	}
	data, ok, err := s.cache.Get(ctx, key)
	if err != nil || !ok {
		return false
	}
	return json.Unmarshal(data, out) == nil
}

func (s *ContextService) cacheSet(ctx context.Context, key string, v any) {
	if s.cache == nil {
		return
	}
	data, err := json.Marshal(v)
	if err != nil {
		return
	}
	if err := s.cache.Set(ctx, key, data, s.ttl); err != nil {
		slog.Debug("cache set failed", "key", key, "error", err)
	}
}

// History returns the most recent conversation turns between a user and an
// agent in chronological order.
func (s *ContextService) History(ctx context.Context, userID, agentID string, limit int) ([]conversation.Record, error) {
	if limit <= 0 {
		limit = s.historyTurns
	}
	return s.store.ListConversation(ctx, userID, agentID, limit)
}
