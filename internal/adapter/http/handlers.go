package http

import (
	"context"
	"net/http"
	"strconv"

	"github.com/nurtura-ai/nurtura/internal/domain/conversation"
	"github.com/nurtura-ai/nurtura/internal/domain/task"
	"github.com/nurtura-ai/nurtura/internal/service"
)

// bodyLimit caps JSON request bodies at 1 MiB.
const bodyLimit = 1 << 20

// Pinger reports storage connectivity for health checks.
type Pinger interface {
	Ping(ctx context.Context) error
}

// QueueStatus reports queue connectivity for health checks.
type QueueStatus interface {
	IsConnected() bool
}

// Handlers bundles the services the HTTP layer dispatches into.
type Handlers struct {
	Processor *service.TaskProcessorService
	Manager   *service.AgentManagerService
	Costs     *service.CostService
	Insights  *service.InsightService
	Contexts  *service.ContextService

	DB    Pinger
	Queue QueueStatus
}

// ---------------------------------------------------------------------------
// Health
// ---------------------------------------------------------------------------

// Health reports process liveness plus dependency status.
func (h *Handlers) Health(w http.ResponseWriter, r *http.Request) {
	status := map[string]any{"status": "ok"}
	code := http.StatusOK

	if h.DB != nil {
		if err := h.DB.Ping(r.Context()); err != nil {
			status["status"] = "degraded"
			status["database"] = "down"
			code = http.StatusServiceUnavailable
		} else {
			status["database"] = "up"
		}
	}
	if h.Queue != nil {
		if h.Queue.IsConnected() {
			status["queue"] = "up"
		} else {
			status["status"] = "degraded"
			status["queue"] = "down"
		}
	}
	writeJSON(w, code, status)
}

// ---------------------------------------------------------------------------
// Tasks
// ---------------------------------------------------------------------------

// ProcessTask runs the full pipeline for one input and returns the task.
func (h *Handlers) ProcessTask(w http.ResponseWriter, r *http.Request) {
	req, ok := readJSON[task.CreateRequest](w, r, bodyLimit)
	if !ok {
		return
	}
	if !requireField(w, req.UserID, "user_id") || !requireField(w, req.Input, "input") {
		return
	}

	t, err := h.Processor.ProcessInput(r.Context(), req)
	if err != nil {
		// A failed run still produced a task; return it with the error.
		if t != nil {
			writeJSON(w, http.StatusOK, t)
			return
		}
		writeDomainError(w, err, "task could not be started")
		return
	}
	writeJSON(w, http.StatusCreated, t)
}

// GetTask returns one task by id.
func (h *Handlers) GetTask(w http.ResponseWriter, r *http.Request) {
	t, err := h.Processor.Get(r.Context(), urlParam(r, "id"))
	if err != nil {
		writeDomainError(w, err, "task not found")
		return
	}
	writeJSON(w, http.StatusOK, t)
}

// ListUserTasks returns a user's tasks.
func (h *Handlers) ListUserTasks(w http.ResponseWriter, r *http.Request) {
	tasks, err := h.Processor.ListByUser(r.Context(), urlParam(r, "id"))
	if err != nil {
		writeInternalError(w, err)
		return
	}
	if tasks == nil {
		tasks = []task.Task{}
	}
	writeJSON(w, http.StatusOK, tasks)
}

// GetTaskCosts returns the per-stage cost records for a task.
func (h *Handlers) GetTaskCosts(w http.ResponseWriter, r *http.Request) {
	records, err := h.Costs.TaskCosts(r.Context(), urlParam(r, "id"))
	if err != nil {
		writeInternalError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, records)
}

// ---------------------------------------------------------------------------
// Messages
// ---------------------------------------------------------------------------

type routeMessageRequest struct {
	UserID  string `json:"user_id"`
	ChildID string `json:"child_id,omitempty"`
	Message string `json:"message"`
}

// RouteMessage routes a free-text message to the best-matching agent.
func (h *Handlers) RouteMessage(w http.ResponseWriter, r *http.Request) {
	req, ok := readJSON[routeMessageRequest](w, r, bodyLimit)
	if !ok {
		return
	}
	if !requireField(w, req.UserID, "user_id") || !requireField(w, req.Message, "message") {
		return
	}

	target, resp, err := h.Manager.RouteMessage(r.Context(), req.UserID, req.ChildID, req.Message)
	if err != nil {
		writeDomainError(w, err, "message could not be routed")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"agent_id":   target.ID,
		"agent_name": target.Name,
		"response":   resp,
	})
}

type collaborateRequest struct {
	UserID   string   `json:"user_id"`
	ChildID  string   `json:"child_id,omitempty"`
	AgentIDs []string `json:"agent_ids"`
	Message  string   `json:"message"`
}

// Collaborate runs a message through several agents and merges the result.
func (h *Handlers) Collaborate(w http.ResponseWriter, r *http.Request) {
	req, ok := readJSON[collaborateRequest](w, r, bodyLimit)
	if !ok {
		return
	}
	if !requireField(w, req.UserID, "user_id") || !requireField(w, req.Message, "message") {
		return
	}

	merged, participants, err := h.Manager.Collaborate(r.Context(), req.UserID, req.ChildID, req.AgentIDs, req.Message)
	if err != nil {
		writeDomainError(w, err, "collaboration failed")
		return
	}
	if participants == nil {
		participants = []string{}
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"participants": participants,
		"response":     merged,
	})
}

// ---------------------------------------------------------------------------
// Agents
// ---------------------------------------------------------------------------

// ListAgents returns a user's agent roster.
func (h *Handlers) ListAgents(w http.ResponseWriter, r *http.Request) {
	roster, err := h.Manager.ListAgents(r.Context(), urlParam(r, "id"))
	if err != nil {
		writeInternalError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, roster)
}

type createAgentRequest struct {
	Name string `json:"name"`
	Type string `json:"type"`
}

// CreateAgent registers a new agent for a user.
func (h *Handlers) CreateAgent(w http.ResponseWriter, r *http.Request) {
	req, ok := readJSON[createAgentRequest](w, r, bodyLimit)
	if !ok {
		return
	}
	if !requireField(w, req.Name, "name") || !requireField(w, req.Type, "type") {
		return
	}

	a, err := h.Manager.CreateAgent(r.Context(), urlParam(r, "id"), req.Name, req.Type)
	if err != nil {
		writeDomainError(w, err, "agent could not be created")
		return
	}
	writeJSON(w, http.StatusCreated, a)
}

type updateAgentStatusRequest struct {
	Status string `json:"status"`
}

// UpdateAgentStatus changes an agent's lifecycle status.
func (h *Handlers) UpdateAgentStatus(w http.ResponseWriter, r *http.Request) {
	req, ok := readJSON[updateAgentStatusRequest](w, r, bodyLimit)
	if !ok {
		return
	}
	if !requireField(w, req.Status, "status") {
		return
	}

	a, err := h.Manager.UpdateStatus(r.Context(), urlParam(r, "id"), req.Status)
	if err != nil {
		writeDomainError(w, err, "agent not found")
		return
	}
	writeJSON(w, http.StatusOK, a)
}

type generateRequest struct {
	UserID  string `json:"user_id"`
	ChildID string `json:"child_id"`
}

// GenerateInsights asks one agent to derive and persist insights.
func (h *Handlers) GenerateInsights(w http.ResponseWriter, r *http.Request) {
	req, ok := readJSON[generateRequest](w, r, bodyLimit)
	if !ok {
		return
	}
	if !requireField(w, req.UserID, "user_id") {
		return
	}

	titles, err := h.Manager.GenerateInsights(r.Context(), req.UserID, req.ChildID, urlParam(r, "id"))
	if err != nil {
		writeDomainError(w, err, "agent not found")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"insights": titles})
}

// GenerateRecommendations asks one agent to derive and persist recommendations.
func (h *Handlers) GenerateRecommendations(w http.ResponseWriter, r *http.Request) {
	req, ok := readJSON[generateRequest](w, r, bodyLimit)
	if !ok {
		return
	}
	if !requireField(w, req.UserID, "user_id") {
		return
	}

	titles, err := h.Manager.GenerateRecommendations(r.Context(), req.UserID, req.ChildID, urlParam(r, "id"))
	if err != nil {
		writeDomainError(w, err, "agent not found")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"recommendations": titles})
}

// ---------------------------------------------------------------------------
// Artifacts and usage
// ---------------------------------------------------------------------------

// ListChildInsights returns all insights recorded for a child.
func (h *Handlers) ListChildInsights(w http.ResponseWriter, r *http.Request) {
	insights, err := h.Insights.ListByChild(r.Context(), urlParam(r, "id"))
	if err != nil {
		writeInternalError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, insights)
}

type recommendationStatusRequest struct {
	Status string `json:"status"`
}

// UpdateRecommendationStatus applies one workflow transition.
func (h *Handlers) UpdateRecommendationStatus(w http.ResponseWriter, r *http.Request) {
	req, ok := readJSON[recommendationStatusRequest](w, r, bodyLimit)
	if !ok {
		return
	}
	if !requireField(w, req.Status, "status") {
		return
	}

	rec, err := h.Insights.UpdateRecommendationStatus(r.Context(), urlParam(r, "id"), req.Status)
	if err != nil {
		writeDomainError(w, err, "recommendation not found")
		return
	}
	writeJSON(w, http.StatusOK, rec)
}

// GetConversation returns the recent turns between a user and an agent in
// chronological order. The limit query param caps the number of turns;
// absent or non-positive it falls back to the configured history depth.
func (h *Handlers) GetConversation(w http.ResponseWriter, r *http.Request) {
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	records, err := h.Contexts.History(r.Context(), urlParam(r, "id"), urlParam(r, "agentID"), limit)
	if err != nil {
		writeInternalError(w, err)
		return
	}
	if records == nil {
		records = []conversation.Record{}
	}
	writeJSON(w, http.StatusOK, records)
}

// GetUsage returns a user's monthly usage summary. The month query param
// (YYYY-MM) defaults to the current month.
func (h *Handlers) GetUsage(w http.ResponseWriter, r *http.Request) {
	usage, err := h.Costs.MonthlySummary(r.Context(), urlParam(r, "id"), r.URL.Query().Get("month"))
	if err != nil {
		writeInternalError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, usage)
}
