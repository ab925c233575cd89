package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/nurtura-ai/nurtura/internal/domain"
	"github.com/nurtura-ai/nurtura/internal/domain/agent"
	"github.com/nurtura-ai/nurtura/internal/domain/conversation"
	"github.com/nurtura-ai/nurtura/internal/domain/cost"
	"github.com/nurtura-ai/nurtura/internal/domain/insight"
	"github.com/nurtura-ai/nurtura/internal/domain/profile"
	"github.com/nurtura-ai/nurtura/internal/domain/task"
)

// Store implements database.Store using PostgreSQL.
type Store struct {
	pool *pgxpool.Pool
}

// NewStore creates a new Store backed by the given connection pool.
func NewStore(pool *pgxpool.Pool) *Store {
	return &Store{pool: pool}
}

// nullable maps an empty string to NULL for optional UUID columns.
func nullable(s string) any {
	if s == "" {
		return nil
	}
	return s
}

// --- Profiles ---

func (s *Store) GetUser(ctx context.Context, id string) (*profile.User, error) {
	var u profile.User
	err := s.pool.QueryRow(ctx,
		`SELECT id, name, email, created_at FROM users WHERE id = $1`, id).
		Scan(&u.ID, &u.Name, &u.Email, &u.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("get user %s: %w", id, domain.ErrNotFound)
		}
		return nil, fmt.Errorf("get user %s: %w", id, err)
	}
	return &u, nil
}

func (s *Store) GetChild(ctx context.Context, id string) (*profile.Child, error) {
	var c profile.Child
	var birth *time.Time
	err := s.pool.QueryRow(ctx,
		`SELECT id, user_id, name, birth_date, notes, created_at FROM children WHERE id = $1`, id).
		Scan(&c.ID, &c.UserID, &c.Name, &birth, &c.Notes, &c.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("get child %s: %w", id, domain.ErrNotFound)
		}
		return nil, fmt.Errorf("get child %s: %w", id, err)
	}
	if birth != nil {
		c.BirthDate = *birth
	}
	return &c, nil
}

// --- Agents ---

func scanAgent(row pgx.Row) (agent.Agent, error) {
	var a agent.Agent
	var configJSON []byte
	if err := row.Scan(&a.ID, &a.UserID, &a.Name, &a.Type, &configJSON,
		&a.Status, &a.CreatedAt, &a.UpdatedAt); err != nil {
		return a, err
	}
	if len(configJSON) > 0 {
		if err := json.Unmarshal(configJSON, &a.Config); err != nil {
			return a, fmt.Errorf("unmarshal agent config: %w", err)
		}
	}
	return a, nil
}

func (s *Store) GetAgent(ctx context.Context, id string) (*agent.Agent, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT id, user_id, name, type, config, status, created_at, updated_at
		 FROM agents WHERE id = $1`, id)
	a, err := scanAgent(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("get agent %s: %w", id, domain.ErrNotFound)
		}
		return nil, fmt.Errorf("get agent %s: %w", id, err)
	}
	return &a, nil
}

func (s *Store) ListAgentsByUser(ctx context.Context, userID string) ([]agent.Agent, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT id, user_id, name, type, config, status, created_at, updated_at
		 FROM agents WHERE user_id = $1 ORDER BY created_at`, userID)
	if err != nil {
		return nil, fmt.Errorf("list agents: %w", err)
	}
	defer rows.Close()

	var agents []agent.Agent
	for rows.Next() {
		a, err := scanAgent(rows)
		if err != nil {
			return nil, fmt.Errorf("scan agent: %w", err)
		}
		agents = append(agents, a)
	}
	return agents, rows.Err()
}

func (s *Store) CreateAgent(ctx context.Context, a *agent.Agent) error {
	configJSON, err := json.Marshal(a.Config)
	if err != nil {
		return fmt.Errorf("marshal agent config: %w", err)
	}
	err = s.pool.QueryRow(ctx,
		`INSERT INTO agents (user_id, name, type, config, status)
		 VALUES ($1, $2, $3, $4, $5)
		 RETURNING id, created_at, updated_at`,
		a.UserID, a.Name, a.Type, configJSON, a.Status).
		Scan(&a.ID, &a.CreatedAt, &a.UpdatedAt)
	if err != nil {
		return fmt.Errorf("create agent: %w", err)
	}
	return nil
}

func (s *Store) UpdateAgentStatus(ctx context.Context, id string, status agent.Status) error {
	tag, err := s.pool.Exec(ctx,
		`UPDATE agents SET status = $2, updated_at = now() WHERE id = $1`, id, status)
	if err != nil {
		return fmt.Errorf("update agent status: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("update agent %s: %w", id, domain.ErrNotFound)
	}
	return nil
}

// --- Tasks ---

func scanTask(row pgx.Row) (task.Task, error) {
	var t task.Task
	var childID, agentID *string
	var dispatcherJSON, analystJSON, schedulerJSON []byte
	err := row.Scan(&t.ID, &t.UserID, &childID, &agentID, &t.Kind, &t.Input,
		&t.Category, &t.Priority, &t.Status, &dispatcherJSON, &analystJSON,
		&schedulerJSON, &t.Error, &t.TotalCostCents, &t.ProcessingTimeMS,
		&t.CreatedAt, &t.UpdatedAt)
	if err != nil {
		return t, err
	}
	if childID != nil {
		t.ChildID = *childID
	}
	if agentID != nil {
		t.AgentID = *agentID
	}
	if len(dispatcherJSON) > 0 {
		if err := json.Unmarshal(dispatcherJSON, &t.Dispatcher); err != nil {
			return t, fmt.Errorf("unmarshal dispatcher result: %w", err)
		}
	}
	if len(analystJSON) > 0 {
		if err := json.Unmarshal(analystJSON, &t.Analyst); err != nil {
			return t, fmt.Errorf("unmarshal analyst result: %w", err)
		}
	}
	if len(schedulerJSON) > 0 {
		if err := json.Unmarshal(schedulerJSON, &t.Scheduler); err != nil {
			return t, fmt.Errorf("unmarshal scheduler result: %w", err)
		}
	}
	return t, nil
}

const taskColumns = `id, user_id, child_id, agent_id, kind, input, category,
	priority, status, dispatcher_result, analyst_result, scheduler_result,
	error, total_cost_cents, processing_time_ms, created_at, updated_at`

func (s *Store) GetTask(ctx context.Context, id string) (*task.Task, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT `+taskColumns+` FROM tasks WHERE id = $1`, id)
	t, err := scanTask(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("get task %s: %w", id, domain.ErrNotFound)
		}
		return nil, fmt.Errorf("get task %s: %w", id, err)
	}
	return &t, nil
}

func (s *Store) ListTasksByUser(ctx context.Context, userID string) ([]task.Task, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT `+taskColumns+` FROM tasks WHERE user_id = $1 ORDER BY created_at DESC`, userID)
	if err != nil {
		return nil, fmt.Errorf("list tasks: %w", err)
	}
	defer rows.Close()

	var tasks []task.Task
	for rows.Next() {
		t, err := scanTask(rows)
		if err != nil {
			return nil, fmt.Errorf("scan task: %w", err)
		}
		tasks = append(tasks, t)
	}
	return tasks, rows.Err()
}

func (s *Store) CreateTask(ctx context.Context, t *task.Task) error {
	err := s.pool.QueryRow(ctx,
		`INSERT INTO tasks (user_id, child_id, agent_id, kind, input, category, priority, status)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		 RETURNING id, created_at, updated_at`,
		t.UserID, nullable(t.ChildID), nullable(t.AgentID), t.Kind, t.Input,
		t.Category, t.Priority, t.Status).
		Scan(&t.ID, &t.CreatedAt, &t.UpdatedAt)
	if err != nil {
		return fmt.Errorf("create task: %w", err)
	}
	return nil
}

func (s *Store) UpdateTask(ctx context.Context, t *task.Task) error {
	var dispatcherJSON, analystJSON, schedulerJSON []byte
	var err error
	if t.Dispatcher != nil {
		if dispatcherJSON, err = json.Marshal(t.Dispatcher); err != nil {
			return fmt.Errorf("marshal dispatcher result: %w", err)
		}
	}
	if t.Analyst != nil {
		if analystJSON, err = json.Marshal(t.Analyst); err != nil {
			return fmt.Errorf("marshal analyst result: %w", err)
		}
	}
	if t.Scheduler != nil {
		if schedulerJSON, err = json.Marshal(t.Scheduler); err != nil {
			return fmt.Errorf("marshal scheduler result: %w", err)
		}
	}

	tag, err := s.pool.Exec(ctx,
		`UPDATE tasks SET category = $2, priority = $3, status = $4,
		   dispatcher_result = $5, analyst_result = $6, scheduler_result = $7,
		   error = $8, total_cost_cents = $9, processing_time_ms = $10,
		   updated_at = now()
		 WHERE id = $1`,
		t.ID, t.Category, t.Priority, t.Status, dispatcherJSON, analystJSON,
		schedulerJSON, t.Error, t.TotalCostCents, t.ProcessingTimeMS)
	if err != nil {
		return fmt.Errorf("update task: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("update task %s: %w", t.ID, domain.ErrNotFound)
	}
	return nil
}

// --- Conversations ---

func (s *Store) AppendConversation(ctx context.Context, rec *conversation.Record) error {
	err := s.pool.QueryRow(ctx,
		`INSERT INTO conversations (user_id, child_id, agent_id, role, content)
		 VALUES ($1, $2, $3, $4, $5)
		 RETURNING id, created_at`,
		rec.UserID, nullable(rec.ChildID), rec.AgentID, rec.Role, rec.Content).
		Scan(&rec.ID, &rec.CreatedAt)
	if err != nil {
		return fmt.Errorf("append conversation: %w", err)
	}
	return nil
}

func (s *Store) ListConversation(ctx context.Context, userID, agentID string, limit int) ([]conversation.Record, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT id, user_id, COALESCE(child_id::text, ''), agent_id, role, content, created_at
		 FROM conversations WHERE user_id = $1 AND agent_id = $2
		 ORDER BY created_at DESC LIMIT $3`, userID, agentID, limit)
	if err != nil {
		return nil, fmt.Errorf("list conversation: %w", err)
	}
	defer rows.Close()

	var recs []conversation.Record
	for rows.Next() {
		var r conversation.Record
		if err := rows.Scan(&r.ID, &r.UserID, &r.ChildID, &r.AgentID,
			&r.Role, &r.Content, &r.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan conversation: %w", err)
		}
		recs = append(recs, r)
	}
	// Reverse to chronological order; the query reads newest-first to apply
	// the limit at the tail of the thread.
	for i, j := 0, len(recs)-1; i < j; i, j = i+1, j-1 {
		recs[i], recs[j] = recs[j], recs[i]
	}
	return recs, rows.Err()
}

// --- Artifacts ---

func (s *Store) CreateInsight(ctx context.Context, ins *insight.Insight) error {
	err := s.pool.QueryRow(ctx,
		`INSERT INTO insights (user_id, child_id, agent_id, type, title, body, confidence)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)
		 RETURNING id, created_at, updated_at`,
		ins.UserID, ins.ChildID, ins.AgentID, ins.Type, ins.Title, ins.Body, ins.Confidence).
		Scan(&ins.ID, &ins.CreatedAt, &ins.UpdatedAt)
	if err != nil {
		return fmt.Errorf("create insight: %w", err)
	}
	return nil
}

func (s *Store) ListInsightsByChild(ctx context.Context, childID string) ([]insight.Insight, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT id, user_id, child_id, agent_id, type, title, body, confidence, created_at, updated_at
		 FROM insights WHERE child_id = $1 ORDER BY created_at DESC`, childID)
	if err != nil {
		return nil, fmt.Errorf("list insights: %w", err)
	}
	defer rows.Close()

	var out []insight.Insight
	for rows.Next() {
		var ins insight.Insight
		if err := rows.Scan(&ins.ID, &ins.UserID, &ins.ChildID, &ins.AgentID,
			&ins.Type, &ins.Title, &ins.Body, &ins.Confidence,
			&ins.CreatedAt, &ins.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan insight: %w", err)
		}
		out = append(out, ins)
	}
	return out, rows.Err()
}

func (s *Store) CreateRecommendation(ctx context.Context, rec *insight.Recommendation) error {
	err := s.pool.QueryRow(ctx,
		`INSERT INTO recommendations (user_id, child_id, agent_id, type, title, body, priority, status)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		 RETURNING id, created_at, updated_at`,
		rec.UserID, rec.ChildID, rec.AgentID, rec.Type, rec.Title, rec.Body,
		rec.Priority, rec.Status).
		Scan(&rec.ID, &rec.CreatedAt, &rec.UpdatedAt)
	if err != nil {
		return fmt.Errorf("create recommendation: %w", err)
	}
	return nil
}

func (s *Store) GetRecommendation(ctx context.Context, id string) (*insight.Recommendation, error) {
	var rec insight.Recommendation
	err := s.pool.QueryRow(ctx,
		`SELECT id, user_id, child_id, agent_id, type, title, body, priority, status, created_at, updated_at
		 FROM recommendations WHERE id = $1`, id).
		Scan(&rec.ID, &rec.UserID, &rec.ChildID, &rec.AgentID, &rec.Type,
			&rec.Title, &rec.Body, &rec.Priority, &rec.Status,
			&rec.CreatedAt, &rec.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("get recommendation %s: %w", id, domain.ErrNotFound)
		}
		return nil, fmt.Errorf("get recommendation %s: %w", id, err)
	}
	return &rec, nil
}

func (s *Store) UpdateRecommendationStatus(ctx context.Context, id string, status insight.RecommendationStatus) error {
	tag, err := s.pool.Exec(ctx,
		`UPDATE recommendations SET status = $2, updated_at = now() WHERE id = $1`, id, status)
	if err != nil {
		return fmt.Errorf("update recommendation status: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("update recommendation %s: %w", id, domain.ErrNotFound)
	}
	return nil
}

// --- Cost accounting ---

func (s *Store) AppendCostRecord(ctx context.Context, rec *cost.Record) error {
	err := s.pool.QueryRow(ctx,
		`INSERT INTO cost_records (task_id, user_id, agent_name, tokens, cost_cents, execution_ms)
		 VALUES ($1, $2, $3, $4, $5, $6)
		 RETURNING id, created_at`,
		rec.TaskID, rec.UserID, rec.AgentName, rec.Tokens, rec.CostCents, rec.ExecutionMS).
		Scan(&rec.ID, &rec.CreatedAt)
	if err != nil {
		return fmt.Errorf("append cost record: %w", err)
	}
	return nil
}

func (s *Store) ListCostRecordsByTask(ctx context.Context, taskID string) ([]cost.Record, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT id, task_id, user_id, agent_name, tokens, cost_cents, execution_ms, created_at
		 FROM cost_records WHERE task_id = $1 ORDER BY created_at`, taskID)
	if err != nil {
		return nil, fmt.Errorf("list cost records: %w", err)
	}
	defer rows.Close()

	var recs []cost.Record
	for rows.Next() {
		var r cost.Record
		if err := rows.Scan(&r.ID, &r.TaskID, &r.UserID, &r.AgentName,
			&r.Tokens, &r.CostCents, &r.ExecutionMS, &r.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan cost record: %w", err)
		}
		recs = append(recs, r)
	}
	return recs, rows.Err()
}

// AddMonthlyUsage increments the user's monthly counter atomically at the
// storage layer, so two tasks completing close together cannot lose an
// update.
func (s *Store) AddMonthlyUsage(ctx context.Context, userID, month string, cents int64) error {
	_, err := s.pool.Exec(ctx,
		`INSERT INTO monthly_usage (user_id, month, total_cents, task_count)
		 VALUES ($1, $2, $3, 1)
		 ON CONFLICT (user_id, month)
		 DO UPDATE SET total_cents = monthly_usage.total_cents + EXCLUDED.total_cents,
		               task_count = monthly_usage.task_count + 1`,
		userID, month, cents)
	if err != nil {
		return fmt.Errorf("add monthly usage: %w", err)
	}
	return nil
}

func (s *Store) GetMonthlyUsage(ctx context.Context, userID, month string) (*cost.MonthlyUsage, error) {
	var u cost.MonthlyUsage
	err := s.pool.QueryRow(ctx,
		`SELECT user_id, month, total_cents, task_count
		 FROM monthly_usage WHERE user_id = $1 AND month = $2`, userID, month).
		Scan(&u.UserID, &u.Month, &u.TotalCents, &u.TaskCount)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			// No spend yet this month is a zero row, not an error.
			return &cost.MonthlyUsage{UserID: userID, Month: month}, nil
		}
		return nil, fmt.Errorf("get monthly usage: %w", err)
	}
	return &u, nil
}
