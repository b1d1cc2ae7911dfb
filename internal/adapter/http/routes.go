package http

import (
	"net/http"

	"github.com/go-chi/chi/v5"
)

// MountRoutes registers all API routes on the given chi router.
func MountRoutes(r chi.Router, h *Handlers) {
	r.Get("/health", h.Health)
	r.Get("/ws", h.Hub.HandleWS)

	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/", func(w http.ResponseWriter, _ *http.Request) {
			w.Header().Set("Content-Type", "application/json")
			_, _ = w.Write([]byte(`{"version":"0.1.0"}`))
		})

		// Tasks
		r.Post("/tasks", h.CreateTask)
		r.Get("/tasks", h.ListTasks)
		r.Get("/tasks/{id}", h.GetTask)
		r.Get("/tasks/{id}/history", h.GetTaskHistory)
		r.Post("/tasks/{id}/decision", h.DecideTask)

		// Plugins
		r.Get("/plugins", h.ListPlugins)

		// Agent permission allow-list
		r.Post("/permissions", h.CreatePermission)
		r.Get("/permissions", h.ListPermissions)
		r.Delete("/permissions/{id}", h.DeletePermission)

		// Research findings
		r.Get("/findings", h.ListFindings)
		r.Post("/findings/{id}/review", h.ReviewFinding)

		// Workspace git state
		r.Get("/git/status", h.GitStatus)
	})
}
