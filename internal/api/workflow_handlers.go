package api

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/wolfauto/marketer/internal/engine"
	"github.com/wolfauto/marketer/internal/models"
	"github.com/wolfauto/marketer/internal/storage"
)

// WorkflowHandler serves /api/workflows.
type WorkflowHandler struct {
	store  storage.Store
	engine *engine.Engine
	logger *slog.Logger
}

// NewWorkflowHandler creates a workflow handler.
func NewWorkflowHandler(store storage.Store, eng *engine.Engine, logger *slog.Logger) *WorkflowHandler {
	return &WorkflowHandler{store: store, engine: eng, logger: logger}
}

// workflowResponse decorates a workflow with its derived success rate.
type workflowResponse struct {
	models.Workflow
	SuccessRate float64 `json:"success_rate"`
}

func toWorkflowResponse(w models.Workflow) workflowResponse {
	return workflowResponse{Workflow: w, SuccessRate: w.SuccessRate()}
}

// HandleCollection handles GET and POST on /api/workflows.
func (h *WorkflowHandler) HandleCollection(w http.ResponseWriter, r *http.Request) {
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

// HandleItem handles /api/workflows/{id} and /api/workflows/{id}/run.
func (h *WorkflowHandler) HandleItem(w http.ResponseWriter, r *http.Request) {
	if preflight(w, r) {
		return
	}
	id, suffix := pathID(r.URL.Path, "/api/workflows")
	if id == "" {
		writeError(w, http.StatusBadRequest, "Workflow ID required")
		return
	}

	switch suffix {
	case "":
		switch r.Method {
		case http.MethodGet:
			h.get(w, r, id)
		case http.MethodPatch, http.MethodPut:
			h.update(w, r, id)
		case http.MethodDelete:
			h.delete(w, r, id)
		default:
			methodNotAllowed(w)
		}
	case "run":
		if r.Method != http.MethodPost {
			methodNotAllowed(w)
			return
		}
		h.run(w, r, id)
	default:
		writeError(w, http.StatusNotFound, "Not found")
	}
}

func (h *WorkflowHandler) list(w http.ResponseWriter, r *http.Request) {
	var (
		workflows []models.Workflow
		err       error
	)
	if platformID := r.URL.Query().Get("platform_id"); platformID != "" {
		workflows, err = h.store.ListWorkflowsByPlatform(r.Context(), platformID)
	} else {
		workflows, err = h.store.ListWorkflows(r.Context())
	}
	if err != nil {
		writeInternalError(w, h.logger, "failed to list workflows", err)
		return
	}

	out := make([]workflowResponse, 0, len(workflows))
	for _, wf := range workflows {
		out = append(out, toWorkflowResponse(wf))
	}
	writeJSON(w, http.StatusOK, out)
}

func (h *WorkflowHandler) create(w http.ResponseWriter, r *http.Request) {
	var wf models.Workflow
	if err := json.NewDecoder(r.Body).Decode(&wf); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if err := ValidateWorkflow(&wf); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	created, err := h.store.CreateWorkflow(r.Context(), wf)
	if err != nil {
		if errors.Is(err, storage.ErrPlatformMissing) {
			writeError(w, http.StatusBadRequest, "Referenced platform does not exist")
			return
		}
		writeInternalError(w, h.logger, "failed to create workflow", err)
		return
	}

	h.logActivity(r, models.Activity{
		Type:       models.ActivityTypeSystem,
		Title:      "Workflow created: " + created.Name,
		WorkflowID: created.ID,
		PlatformID: created.PlatformID,
	})
	writeJSON(w, http.StatusCreated, toWorkflowResponse(*created))
}

func (h *WorkflowHandler) get(w http.ResponseWriter, r *http.Request, id string) {
	wf, err := h.store.GetWorkflow(r.Context(), id)
	if err != nil {
		writeInternalError(w, h.logger, "failed to get workflow", err)
		return
	}
	if wf == nil {
		writeError(w, http.StatusNotFound, "Workflow not found")
		return
	}
	writeJSON(w, http.StatusOK, toWorkflowResponse(*wf))
}

func (h *WorkflowHandler) update(w http.ResponseWriter, r *http.Request, id string) {
	var upd models.WorkflowUpdate
	if err := json.NewDecoder(r.Body).Decode(&upd); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if upd.Steps != nil {
		if err := validateSteps(upd.Steps); err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
	}

	wf, err := h.store.UpdateWorkflow(r.Context(), id, upd)
	if err != nil {
		writeInternalError(w, h.logger, "failed to update workflow", err)
		return
	}
	if wf == nil {
		writeError(w, http.StatusNotFound, "Workflow not found")
		return
	}
	writeJSON(w, http.StatusOK, toWorkflowResponse(*wf))
}

func (h *WorkflowHandler) delete(w http.ResponseWriter, r *http.Request, id string) {
	deleted, err := h.store.DeleteWorkflow(r.Context(), id)
	if err != nil {
		writeInternalError(w, h.logger, "failed to delete workflow", err)
		return
	}
	if !deleted {
		writeError(w, http.StatusNotFound, "Workflow not found")
		return
	}
	w.Header().Set("Access-Control-Allow-Origin", "*")
	w.WriteHeader(http.StatusNoContent)
}

// run triggers an immediate execution, outside the scheduler.
func (h *WorkflowHandler) run(w http.ResponseWriter, r *http.Request, id string) {
	result, err := h.engine.Run(r.Context(), id)
	switch {
	case errors.Is(err, engine.ErrWorkflowNotFound):
		writeError(w, http.StatusNotFound, "Workflow not found")
	case errors.Is(err, engine.ErrWorkflowInactive):
		writeError(w, http.StatusBadRequest, "Workflow is not active")
	case errors.Is(err, engine.ErrPlatformNotConnected):
		writeError(w, http.StatusBadRequest, "Platform is not connected")
	case err != nil:
		writeInternalError(w, h.logger, "workflow run failed", err)
	default:
		writeJSON(w, http.StatusOK, result)
	}
}

func (h *WorkflowHandler) logActivity(r *http.Request, a models.Activity) {
	if _, err := h.store.LogActivity(r.Context(), a); err != nil {
		h.logger.Error("failed to log activity", "title", a.Title, "error", err)
	}
}
