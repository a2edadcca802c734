package api

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/wolfauto/marketer/internal/models"
	"github.com/wolfauto/marketer/internal/storage"
)

// TaskHandler serves /api/tasks.
type TaskHandler struct {
	store  storage.Store
	logger *slog.Logger
}

// NewTaskHandler creates a task handler.
func NewTaskHandler(store storage.Store, logger *slog.Logger) *TaskHandler {
	return &TaskHandler{store: store, logger: logger}
}

// HandleCollection handles GET and POST on /api/tasks. Listings accept
// workflow_id, platform_id and status query filters, AND-combined.
func (h *TaskHandler) HandleCollection(w http.ResponseWriter, r *http.Request) {
	if preflight(w, r) {
		return
	}
	switch r.Method {
	case http.MethodGet:
		h.list(w, r)
	case http.MethodPost:
		h.create(w, r)
	default:
		methodNotAllowed(w)
	}
}

// HandleItem handles /api/tasks/{id} and /api/tasks/{id}/status.
func (h *TaskHandler) HandleItem(w http.ResponseWriter, r *http.Request) {
	if preflight(w, r) {
		return
	}
	id, suffix := pathID(r.URL.Path, "/api/tasks")
	if id == "" {
		writeError(w, http.StatusBadRequest, "Task ID required")
		return
	}

	switch suffix {
	case "":
		switch r.Method {
		case http.MethodGet:
			h.get(w, r, id)
		case http.MethodDelete:
			h.delete(w, r, id)
		default:
			methodNotAllowed(w)
		}
	case "status":
		if r.Method != http.MethodPut && r.Method != http.MethodPatch {
			methodNotAllowed(w)
			return
		}
		h.updateStatus(w, r, id)
	default:
		writeError(w, http.StatusNotFound, "Not found")
	}
}

func (h *TaskHandler) list(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	filter := models.TaskFilter{
		WorkflowID: q.Get("workflow_id"),
		PlatformID: q.Get("platform_id"),
		Status:     models.TaskStatus(q.Get("status")),
	}
	if filter.Status != "" && !filter.Status.Valid() {
		writeError(w, http.StatusBadRequest, "Invalid status filter")
		return
	}

	tasks, err := h.store.ListTasks(r.Context(), filter)
	if err != nil {
		writeInternalError(w, h.logger, "failed to list tasks", err)
		return
	}
	writeJSON(w, http.StatusOK, tasks)
}

func (h *TaskHandler) create(w http.ResponseWriter, r *http.Request) {
	var t models.Task
	if err := json.NewDecoder(r.Body).Decode(&t); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if err := ValidateTask(&t); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	created, err := h.store.CreateTask(r.Context(), t)
	if err != nil {
		writeInternalError(w, h.logger, "failed to create task", err)
		return
	}
	writeJSON(w, http.StatusCreated, created)
}

func (h *TaskHandler) get(w http.ResponseWriter, r *http.Request, id string) {
	t, err := h.store.GetTask(r.Context(), id)
	if err != nil {
		writeInternalError(w, h.logger, "failed to get task", err)
		return
	}
	if t == nil {
		writeError(w, http.StatusNotFound, "Task not found")
		return
	}
	writeJSON(w, http.StatusOK, t)
}

type taskStatusRequest struct {
	Status models.TaskStatus `json:"status"`
	Detail string            `json:"detail,omitempty"`
}

// updateStatus moves a task through its lifecycle. A task already in a
// terminal state is a conflict, not a 500.
func (h *TaskHandler) updateStatus(w http.ResponseWriter, r *http.Request, id string) {
	var req taskStatusRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if !req.Status.Valid() || req.Status == models.TaskStatusPending {
		writeError(w, http.StatusBadRequest, "Status must be completed or failed")
		return
	}

	t, err := h.store.UpdateTaskStatus(r.Context(), id, req.Status, req.Detail)
	if err != nil {
		if errors.Is(err, storage.ErrTerminalTask) {
			writeError(w, http.StatusConflict, "Task is already in a terminal state")
			return
		}
		writeInternalError(w, h.logger, "failed to update task status", err)
		return
	}
	if t == nil {
		writeError(w, http.StatusNotFound, "Task not found")
		return
	}
	writeJSON(w, http.StatusOK, t)
}

func (h *TaskHandler) delete(w http.ResponseWriter, r *http.Request, id string) {
	deleted, err := h.store.DeleteTask(r.Context(), id)
	if err != nil {
		writeInternalError(w, h.logger, "failed to delete task", err)
		return
	}
	if !deleted {
		writeError(w, http.StatusNotFound, "Task not found")
		return
	}
	w.Header().Set("Access-Control-Allow-Origin", "*")
	w.WriteHeader(http.StatusNoContent)
}
