package api

import (
	"log/slog"
	"net/http"
	"strconv"

	"github.com/wolfauto/marketer/internal/storage"
)

// InferenceLogHandler exposes the model-call audit log at
// /api/inference-logs.
type InferenceLogHandler struct {
	store  storage.Store
	logger *slog.Logger
}

// NewInferenceLogHandler creates an inference log handler.
func NewInferenceLogHandler(store storage.Store, logger *slog.Logger) *InferenceLogHandler {
	return &InferenceLogHandler{store: store, logger: logger}
}

// HandleList handles GET /api/inference-logs.
func (h *InferenceLogHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	if preflight(w, r) {
		return
	}
	if r.Method != http.MethodGet {
		methodNotAllowed(w)
		return
	}

	limit := 100
	if raw := r.URL.Query().Get("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 1 {
			writeError(w, http.StatusBadRequest, "limit must be a positive integer")
			return
		}
		limit = parsed
	}

	logs, err := h.store.ListInferenceLogs(r.Context(), limit)
	if err != nil {
		writeInternalError(w, h.logger, "failed to list inference logs", err)
		return
	}
	writeJSON(w, http.StatusOK, logs)
}
