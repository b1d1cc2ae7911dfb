package http

import (
	"net/http"
	"strconv"

	"github.com/frankie-agent/frankie/internal/adapter/ws"
	"github.com/frankie-agent/frankie/internal/domain/permission"
	"github.com/frankie-agent/frankie/internal/domain/task"
	"github.com/frankie-agent/frankie/internal/port/plugin"
	"github.com/frankie-agent/frankie/internal/port/runner"
	"github.com/frankie-agent/frankie/internal/service"
)

// Handlers holds the HTTP handler dependencies.
type Handlers struct {
	Orchestrator *service.Orchestrator
	Tasks        *service.TaskService
	Permissions  *service.PermissionService
	Registry     *plugin.Registry
	Committer    runner.Committer
	Hub          *ws.Hub

	// WorkspacePath is the agent working tree reported by the git endpoints.
	WorkspacePath string
}

// ownerID identifies the acting admin. Single-admin deployments fall back to
// a fixed id; a reverse proxy can inject the header for multi-admin setups.
func ownerID(r *http.Request) string {
	if id := r.Header.Get("X-Admin-ID"); id != "" {
		return id
	}
	return "admin"
}

// ---------------------------------------------------------------------------
// Tasks
// ---------------------------------------------------------------------------

// CreateTask handles POST /api/v1/tasks.
func (h *Handlers) CreateTask(w http.ResponseWriter, r *http.Request) {
	req, ok := readJSON[task.CreateRequest](w, r)
	if !ok {
		return
	}
	if err := service.ValidateCreate(req); err != nil {
		writeDomainError(w, err, "invalid task")
		return
	}

	t, err := h.Orchestrator.CreateTask(r.Context(), req, ownerID(r))
	if err != nil {
		writeDomainError(w, err, "task not created")
		return
	}
	writeJSON(w, http.StatusCreated, t)
}

// ListTasks handles GET /api/v1/tasks.
func (h *Handlers) ListTasks(w http.ResponseWriter, r *http.Request) {
	tasks, err := h.Tasks.List(r.Context(), r.URL.Query().Get("owner_id"))
	if err != nil {
		writeDomainError(w, err, "tasks not listed")
		return
	}
	if tasks == nil {
		tasks = []task.Task{}
	}
	writeJSON(w, http.StatusOK, tasks)
}

// GetTask handles GET /api/v1/tasks/{id}.
func (h *Handlers) GetTask(w http.ResponseWriter, r *http.Request) {
	t, err := h.Tasks.Get(r.Context(), urlParam(r, "id"))
	if err != nil {
		writeDomainError(w, err, "task not found")
		return
	}
	writeJSON(w, http.StatusOK, t)
}

// GetTaskHistory handles GET /api/v1/tasks/{id}/history.
func (h *Handlers) GetTaskHistory(w http.ResponseWriter, r *http.Request) {
	history, err := h.Tasks.History(r.Context(), urlParam(r, "id"))
	if err != nil {
		writeDomainError(w, err, "task not found")
		return
	}
	if history == nil {
		history = []task.HistoryEntry{}
	}
	writeJSON(w, http.StatusOK, history)
}

// DecideTask handles POST /api/v1/tasks/{id}/decision.
func (h *Handlers) DecideTask(w http.ResponseWriter, r *http.Request) {
	d, ok := readJSON[task.Decision](w, r)
	if !ok {
		return
	}

	t, err := h.Orchestrator.Decide(r.Context(), urlParam(r, "id"), d)
	if err != nil {
		writeDomainError(w, err, "task not found")
		return
	}
	writeJSON(w, http.StatusOK, t)
}

// ---------------------------------------------------------------------------
// Plugins
// ---------------------------------------------------------------------------

// ListPlugins handles GET /api/v1/plugins.
func (h *Handlers) ListPlugins(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, h.Registry.List())
}

// ---------------------------------------------------------------------------
// Permissions
// ---------------------------------------------------------------------------

// CreatePermission handles POST /api/v1/permissions.
func (h *Handlers) CreatePermission(w http.ResponseWriter, r *http.Request) {
	req, ok := readJSON[permission.CreateRequest](w, r)
	if !ok {
		return
	}

	e, err := h.Permissions.Create(r.Context(), req)
	if err != nil {
		writeDomainError(w, err, "permission not created")
		return
	}
	writeJSON(w, http.StatusCreated, e)
}

// ListPermissions handles GET /api/v1/permissions.
func (h *Handlers) ListPermissions(w http.ResponseWriter, r *http.Request) {
	entries, err := h.Permissions.List(r.Context())
	if err != nil {
		writeDomainError(w, err, "permissions not listed")
		return
	}
	if entries == nil {
		entries = []permission.Entry{}
	}
	writeJSON(w, http.StatusOK, entries)
}

// DeletePermission handles DELETE /api/v1/permissions/{id}.
func (h *Handlers) DeletePermission(w http.ResponseWriter, r *http.Request) {
	if err := h.Permissions.Delete(r.Context(), urlParam(r, "id")); err != nil {
		writeDomainError(w, err, "permission not found")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// ---------------------------------------------------------------------------
// Findings
// ---------------------------------------------------------------------------

// ListFindings handles GET /api/v1/findings?task_id=.
func (h *Handlers) ListFindings(w http.ResponseWriter, r *http.Request) {
	taskID := r.URL.Query().Get("task_id")
	if taskID == "" {
		writeError(w, http.StatusBadRequest, "task_id is required")
		return
	}

	findings, err := h.Tasks.ListFindings(r.Context(), taskID)
	if err != nil {
		writeDomainError(w, err, "findings not listed")
		return
	}
	writeJSON(w, http.StatusOK, findings)
}

type reviewFindingRequest struct {
	Accept bool `json:"accept"`
}

// ReviewFinding handles POST /api/v1/findings/{id}/review.
func (h *Handlers) ReviewFinding(w http.ResponseWriter, r *http.Request) {
	req, ok := readJSON[reviewFindingRequest](w, r)
	if !ok {
		return
	}

	if err := h.Tasks.ReviewFinding(r.Context(), urlParam(r, "id"), req.Accept); err != nil {
		writeDomainError(w, err, "finding not found")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// ---------------------------------------------------------------------------
// Git / system
// ---------------------------------------------------------------------------

// GitStatus handles GET /api/v1/git/status.
func (h *Handlers) GitStatus(w http.ResponseWriter, r *http.Request) {
	status, err := h.Committer.Status(r.Context(), h.WorkspacePath)
	if err != nil {
		writeDomainError(w, err, "git status unavailable")
		return
	}
	writeJSON(w, http.StatusOK, status)
}

// Health handles GET /health.
func (h *Handlers) Health(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	_, _ = w.Write([]byte(`{"status":"ok","connections":` + strconv.Itoa(h.Hub.ConnectionCount()) + `}`))
}
