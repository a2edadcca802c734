package api

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/wolfauto/marketer/internal/models"
	"github.com/wolfauto/marketer/internal/storage"
)

const defaultActivityLimit = 50

// ActivityHandler serves the append-only audit trail at /api/activities.
type ActivityHandler struct {
	store  storage.Store
	logger *slog.Logger
}

// NewActivityHandler creates an activity handler.
func NewActivityHandler(store storage.Store, logger *slog.Logger) *ActivityHandler {
	return &ActivityHandler{store: store, logger: logger}
}

// HandleCollection handles GET and POST on /api/activities. There is no
// item surface: entries are written once and read newest-first.
func (h *ActivityHandler) HandleCollection(w http.ResponseWriter, r *http.Request) {
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

func (h *ActivityHandler) list(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	limit := defaultActivityLimit
	if raw := q.Get("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 1 {
			writeError(w, http.StatusBadRequest, "limit must be a positive integer")
			return
		}
		limit = parsed
	}

	activities, err := h.store.ListActivities(r.Context(), limit,
		models.ActivityType(q.Get("type")), q.Get("platform_id"))
	if err != nil {
		writeInternalError(w, h.logger, "failed to list activities", err)
		return
	}
	writeJSON(w, http.StatusOK, activities)
}

func (h *ActivityHandler) create(w http.ResponseWriter, r *http.Request) {
	var a models.Activity
	if err := json.NewDecoder(r.Body).Decode(&a); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if err := ValidateActivity(&a); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	logged, err := h.store.LogActivity(r.Context(), a)
	if err != nil {
		writeInternalError(w, h.logger, "failed to log activity", err)
		return
	}
	writeJSON(w, http.StatusCreated, logged)
}
