package http

import (
	"net/http"

	"github.com/go-chi/chi/v5"
)

// MountRoutes registers all API routes on the given chi router.
func MountRoutes(r chi.Router, h *Handlers) {
	r.Get("/healthz", h.Health)

	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/", func(w http.ResponseWriter, _ *http.Request) {
			w.Header().Set("Content-Type", "application/json")
			_, _ = w.Write([]byte(`{"version":"0.1.0"}`))
		})

		// Pipeline tasks
		r.Post("/tasks", h.ProcessTask)
		r.Get("/tasks/{id}", h.GetTask)
		r.Get("/tasks/{id}/costs", h.GetTaskCosts)

		// Messages
		r.Post("/messages/route", h.RouteMessage)

		// Agents
		r.Post("/agents/collaborate", h.Collaborate)
		r.Get("/users/{id}/agents", h.ListAgents)
		r.Post("/users/{id}/agents", h.CreateAgent)
		r.Put("/agents/{id}/status", h.UpdateAgentStatus)
		r.Post("/agents/{id}/insights", h.GenerateInsights)
		r.Post("/agents/{id}/recommendations", h.GenerateRecommendations)

		// Per-user views
		r.Get("/users/{id}/tasks", h.ListUserTasks)
		r.Get("/users/{id}/usage", h.GetUsage)
		r.Get("/users/{id}/agents/{agentID}/conversation", h.GetConversation)

		// Artifacts
		r.Get("/children/{id}/insights", h.ListChildInsights)
		r.Put("/recommendations/{id}/status", h.UpdateRecommendationStatus)
	})
}
