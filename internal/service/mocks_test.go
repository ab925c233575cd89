package service

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/nurtura-ai/nurtura/internal/domain"
	"github.com/nurtura-ai/nurtura/internal/domain/agent"
	"github.com/nurtura-ai/nurtura/internal/domain/conversation"
	"github.com/nurtura-ai/nurtura/internal/domain/cost"
	"github.com/nurtura-ai/nurtura/internal/domain/insight"
	"github.com/nurtura-ai/nurtura/internal/domain/profile"
	"github.com/nurtura-ai/nurtura/internal/domain/task"
	"github.com/nurtura-ai/nurtura/internal/port/completion"
	"github.com/nurtura-ai/nurtura/internal/port/messagequeue"
)

// mockStore is an in-memory database.Store.
type mockStore struct {
	mu sync.Mutex

	users           map[string]profile.User
	children        map[string]profile.Child
	agents          map[string]agent.Agent
	tasks           map[string]task.Task
	conversations   []conversation.Record
	insights        []insight.Insight
	recommendations map[string]insight.Recommendation
	costRecords     []cost.Record
	monthlyUsage    map[string]int64 // userID|month -> cents

	costRecordErr error
}

func newStore() *mockStore {
	return &mockStore{
		users:           map[string]profile.User{},
		children:        map[string]profile.Child{},
		agents:          map[string]agent.Agent{},
		tasks:           map[string]task.Task{},
		recommendations: map[string]insight.Recommendation{},
		monthlyUsage:    map[string]int64{},
	}
}

func (s *mockStore) GetUser(_ context.Context, id string) (*profile.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[id]
	if !ok {
		return nil, fmt.Errorf("%w: user %s", domain.ErrNotFound, id)
	}
	return &u, nil
}

func (s *mockStore) GetChild(_ context.Context, id string) (*profile.Child, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.children[id]
	if !ok {
		return nil, fmt.Errorf("%w: child %s", domain.ErrNotFound, id)
	}
	return &c, nil
}

func (s *mockStore) GetAgent(_ context.Context, id string) (*agent.Agent, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	a, ok := s.agents[id]
	if !ok {
		return nil, fmt.Errorf("%w: agent %s", domain.ErrNotFound, id)
	}
	return &a, nil
}

func (s *mockStore) ListAgentsByUser(_ context.Context, userID string) ([]agent.Agent, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []agent.Agent
	for _, a := range s.agents {
		if a.UserID == userID {
			out = append(out, a)
		}
	}
	return out, nil
}

func (s *mockStore) CreateAgent(_ context.Context, a *agent.Agent) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.agents[a.ID] = *a
	return nil
}

func (s *mockStore) UpdateAgentStatus(_ context.Context, id string, status agent.Status) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	a, ok := s.agents[id]
	if !ok {
		return fmt.Errorf("%w: agent %s", domain.ErrNotFound, id)
	}
	a.Status = status
	s.agents[id] = a
	return nil
}

func (s *mockStore) GetTask(_ context.Context, id string) (*task.Task, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.tasks[id]
	if !ok {
		return nil, fmt.Errorf("%w: task %s", domain.ErrNotFound, id)
	}
	return &t, nil
}

func (s *mockStore) ListTasksByUser(_ context.Context, userID string) ([]task.Task, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []task.Task
	for _, t := range s.tasks {
		if t.UserID == userID {
			out = append(out, t)
		}
	}
	return out, nil
}

func (s *mockStore) CreateTask(_ context.Context, t *task.Task) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tasks[t.ID] = *t
	return nil
}

func (s *mockStore) UpdateTask(_ context.Context, t *task.Task) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tasks[t.ID] = *t
	return nil
}

func (s *mockStore) AppendConversation(_ context.Context, rec *conversation.Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.conversations = append(s.conversations, *rec)
	return nil
}

func (s *mockStore) ListConversation(_ context.Context, userID, agentID string, limit int) ([]conversation.Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []conversation.Record
	for _, rec := range s.conversations {
		if rec.UserID == userID && rec.AgentID == agentID {
			out = append(out, rec)
		}
	}
	if limit > 0 && len(out) > limit {
		out = out[len(out)-limit:]
	}
	return out, nil
}

func (s *mockStore) CreateInsight(_ context.Context, ins *insight.Insight) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.insights = append(s.insights, *ins)
	return nil
}

func (s *mockStore) ListInsightsByChild(_ context.Context, childID string) ([]insight.Insight, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []insight.Insight
	for _, ins := range s.insights {
		if ins.ChildID == childID {
			out = append(out, ins)
		}
	}
	return out, nil
}

func (s *mockStore) CreateRecommendation(_ context.Context, rec *insight.Recommendation) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.recommendations[rec.ID] = *rec
	return nil
}

func (s *mockStore) GetRecommendation(_ context.Context, id string) (*insight.Recommendation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.recommendations[id]
	if !ok {
		return nil, fmt.Errorf("%w: recommendation %s", domain.ErrNotFound, id)
	}
	return &rec, nil
}

func (s *mockStore) UpdateRecommendationStatus(_ context.Context, id string, status insight.RecommendationStatus) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.recommendations[id]
	if !ok {
		return fmt.Errorf("%w: recommendation %s", domain.ErrNotFound, id)
	}
	rec.Status = status
	s.recommendations[id] = rec
	return nil
}

func (s *mockStore) AppendCostRecord(_ context.Context, rec *cost.Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.costRecordErr != nil {
		return s.costRecordErr
	}
	s.costRecords = append(s.costRecords, *rec)
	return nil
}

func (s *mockStore) ListCostRecordsByTask(_ context.Context, taskID string) ([]cost.Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []cost.Record
	for _, rec := range s.costRecords {
		if rec.TaskID == taskID {
			out = append(out, rec)
		}
	}
	return out, nil
}

func (s *mockStore) AddMonthlyUsage(_ context.Context, userID, month string, cents int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.monthlyUsage[userID+"|"+month] += cents
	return nil
}

func (s *mockStore) GetMonthlyUsage(_ context.Context, userID, month string) (*cost.MonthlyUsage, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return &cost.MonthlyUsage{
		UserID:     userID,
		Month:      month,
		TotalCents: s.monthlyUsage[userID+"|"+month],
	}, nil
}

// mockQueue records published events and captured subscriptions.
type mockQueue struct {
	mu        sync.Mutex
	published []struct {
		subject string
		data    []byte
	}
	handlers map[string]messagequeue.Handler
}

func (q *mockQueue) Publish(_ context.Context, subject string, data []byte) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.published = append(q.published, struct {
		subject string
		data    []byte
	}{subject, data})
	return nil
}

func (q *mockQueue) Subscribe(_ context.Context, subject string, h messagequeue.Handler) (func(), error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.handlers == nil {
		q.handlers = map[string]messagequeue.Handler{}
	}
	q.handlers[subject] = h
	return func() {}, nil
}

// deliver invokes the captured handler for subject as the broker would.
func (q *mockQueue) deliver(ctx context.Context, subject string, data []byte) error {
	q.mu.Lock()
	h := q.handlers[subject]
	q.mu.Unlock()
	if h == nil {
		return fmt.Errorf("no subscriber on %s", subject)
	}
	return h(ctx, subject, data)
}

func (q *mockQueue) Drain() error      { return nil }
func (q *mockQueue) Close() error      { return nil }
func (q *mockQueue) IsConnected() bool { return true }

func (q *mockQueue) subjects() []string {
	q.mu.Lock()
	defer q.mu.Unlock()
	out := make([]string, len(q.published))
	for i, p := range q.published {
		out[i] = p.subject
	}
	return out
}

// mockLLM replays scripted replies in order. When the script runs out it
// returns the last reply again, so loops of uniform calls stay simple.
type mockLLM struct {
	mu      sync.Mutex
	replies []string
	idx     int
	errAt   int // 1-based call index that fails; 0 disables
	err     error
}

func (m *mockLLM) Complete(_ context.Context, _ completion.Request) (*completion.Result, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.idx++
	if m.errAt > 0 && m.idx >= m.errAt {
		if m.err != nil {
			return nil, m.err
		}
		return nil, fmt.Errorf("completion unavailable")
	}
	text := ""
	if len(m.replies) > 0 {
		i := m.idx - 1
		if i >= len(m.replies) {
			i = len(m.replies) - 1
		}
		text = m.replies[i]
	}
	return &completion.Result{Text: text, TokensIn: 10, TokensOut: 5}, nil
}

// mockCache is a TTL-less in-memory cache.
type mockCache struct {
	mu   sync.Mutex
	data map[string][]byte
	gets int
	hits int
}

func newCache() *mockCache {
	return &mockCache{data: map[string][]byte{}}
}

func (c *mockCache) Get(_ context.Context, key string) ([]byte, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.gets++
	data, ok := c.data[key]
	if ok {
		c.hits++
	}
	return data, ok, nil
}

func (c *mockCache) Set(_ context.Context, key string, value []byte, _ time.Duration) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.data[key] = value
	return nil
}

func (c *mockCache) Delete(_ context.Context, key string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.data, key)
	return nil
}
