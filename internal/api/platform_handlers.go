package api

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/wolfauto/marketer/internal/models"
	"github.com/wolfauto/marketer/internal/platforms"
	"github.com/wolfauto/marketer/internal/storage"
)

// PlatformHandler serves /api/platforms.
type PlatformHandler struct {
	store    storage.Store
	registry *platforms.Registry
	logger   *slog.Logger
}

// NewPlatformHandler creates a platform handler.
func NewPlatformHandler(store storage.Store, registry *platforms.Registry, logger *slog.Logger) *PlatformHandler {
	return &PlatformHandler{store: store, registry: registry, logger: logger}
}

// HandleCollection handles GET and POST on /api/platforms.
func (h *PlatformHandler) HandleCollection(w http.ResponseWriter, r *http.Request) {
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

// HandleItem handles /api/platforms/{id} and its sub-actions.
func (h *PlatformHandler) HandleItem(w http.ResponseWriter, r *http.Request) {
	if preflight(w, r) {
		return
	}
	id, suffix := pathID(r.URL.Path, "/api/platforms")
	if id == "" {
		writeError(w, http.StatusBadRequest, "Platform ID required")
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
	case "test-connection":
		if r.Method != http.MethodPost {
			methodNotAllowed(w)
			return
		}
		h.testConnection(w, r, id)
	case "sync":
		if r.Method != http.MethodPost {
			methodNotAllowed(w)
			return
		}
		h.sync(w, r, id)
	default:
		writeError(w, http.StatusNotFound, "Not found")
	}
}

func (h *PlatformHandler) list(w http.ResponseWriter, r *http.Request) {
	platformList, err := h.store.ListPlatforms(r.Context())
	if err != nil {
		writeInternalError(w, h.logger, "failed to list platforms", err)
		return
	}
	writeJSON(w, http.StatusOK, platformList)
}

func (h *PlatformHandler) create(w http.ResponseWriter, r *http.Request) {
	var p models.Platform
	if err := json.NewDecoder(r.Body).Decode(&p); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if err := ValidatePlatform(&p); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	created, err := h.store.CreatePlatform(r.Context(), p)
	if err != nil {
		if errors.Is(err, storage.ErrDuplicateName) {
			writeError(w, http.StatusBadRequest, "Platform name already in use")
			return
		}
		writeInternalError(w, h.logger, "failed to create platform", err)
		return
	}

	h.logActivity(r, models.Activity{
		Type:       models.ActivityTypeSystem,
		Title:      "Platform " + created.Name + " added",
		PlatformID: created.ID,
	})
	writeJSON(w, http.StatusCreated, created)
}

func (h *PlatformHandler) get(w http.ResponseWriter, r *http.Request, id string) {
	p, err := h.store.GetPlatform(r.Context(), id)
	if err != nil {
		writeInternalError(w, h.logger, "failed to get platform", err)
		return
	}
	if p == nil {
		writeError(w, http.StatusNotFound, "Platform not found")
		return
	}
	writeJSON(w, http.StatusOK, p)
}

func (h *PlatformHandler) update(w http.ResponseWriter, r *http.Request, id string) {
	var upd models.PlatformUpdate
	if err := json.NewDecoder(r.Body).Decode(&upd); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	p, err := h.store.UpdatePlatform(r.Context(), id, upd)
	if err != nil {
		if errors.Is(err, storage.ErrDuplicateName) {
			writeError(w, http.StatusBadRequest, "Platform name already in use")
			return
		}
		writeInternalError(w, h.logger, "failed to update platform", err)
		return
	}
	if p == nil {
		writeError(w, http.StatusNotFound, "Platform not found")
		return
	}
	writeJSON(w, http.StatusOK, p)
}

func (h *PlatformHandler) delete(w http.ResponseWriter, r *http.Request, id string) {
	deleted, err := h.store.DeletePlatform(r.Context(), id)
	if err != nil {
		writeInternalError(w, h.logger, "failed to delete platform", err)
		return
	}
	if !deleted {
		writeError(w, http.StatusNotFound, "Platform not found")
		return
	}
	w.Header().Set("Access-Control-Allow-Origin", "*")
	w.WriteHeader(http.StatusNoContent)
}

// testConnection calls the live API behind the platform and updates its
// health status with the result.
func (h *PlatformHandler) testConnection(w http.ResponseWriter, r *http.Request, id string) {
	ctx := r.Context()
	p, err := h.store.GetPlatform(ctx, id)
	if err != nil {
		writeInternalError(w, h.logger, "failed to get platform", err)
		return
	}
	if p == nil {
		writeError(w, http.StatusNotFound, "Platform not found")
		return
	}
	if !p.IsConnected() {
		writeError(w, http.StatusBadRequest, "Platform is not connected")
		return
	}

	client := h.registry.ForPlatform(p.Name)
	if client == nil {
		writeError(w, http.StatusBadRequest, "No client available for this platform")
		return
	}

	health := models.HealthStatusHealthy
	testErr := client.TestConnection(ctx)
	if testErr != nil {
		health = models.HealthStatusError
	}
	if _, err := h.store.UpdatePlatform(ctx, id, models.PlatformUpdate{HealthStatus: &health}); err != nil {
		writeInternalError(w, h.logger, "failed to update health status", err)
		return
	}

	if testErr != nil {
		h.logger.Warn("platform connection test failed", "platform", p.Name, "error", testErr)
		writeJSON(w, http.StatusOK, map[string]interface{}{"healthy": false, "error": testErr.Error()})
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"healthy": true})
}

// sync pulls fresh opportunities from the platform and stamps lastSynced.
// The fetched list is returned to the caller, not persisted.
func (h *PlatformHandler) sync(w http.ResponseWriter, r *http.Request, id string) {
	ctx := r.Context()
	p, err := h.store.GetPlatform(ctx, id)
	if err != nil {
		writeInternalError(w, h.logger, "failed to get platform", err)
		return
	}
	if p == nil {
		writeError(w, http.StatusNotFound, "Platform not found")
		return
	}
	if !p.IsConnected() {
		writeError(w, http.StatusBadRequest, "Platform is not connected")
		return
	}

	client := h.registry.ForPlatform(p.Name)
	if client == nil {
		writeError(w, http.StatusBadRequest, "No client available for this platform")
		return
	}

	query := r.URL.Query().Get("query")
	opportunities, err := client.Search(ctx, query, 50)
	if err != nil {
		writeInternalError(w, h.logger, "platform sync failed", err)
		return
	}

	now := time.Now()
	if _, err := h.store.UpdatePlatform(ctx, id, models.PlatformUpdate{LastSynced: &now}); err != nil {
		writeInternalError(w, h.logger, "failed to stamp last_synced", err)
		return
	}

	h.logActivity(r, models.Activity{
		Type:       models.ActivityTypeSystem,
		Title:      "Synced " + p.Name,
		PlatformID: p.ID,
		Data:       map[string]interface{}{"opportunities": len(opportunities)},
	})
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"platform_id":   p.ID,
		"synced_at":     now,
		"opportunities": opportunities,
	})
}

func (h *PlatformHandler) logActivity(r *http.Request, a models.Activity) {
	if _, err := h.store.LogActivity(r.Context(), a); err != nil {
		h.logger.Error("failed to log activity", "title", a.Title, "error", err)
	}
}
