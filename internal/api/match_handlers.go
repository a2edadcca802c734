package api

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/wolfauto/marketer/internal/matcher"
	"github.com/wolfauto/marketer/internal/models"
	"github.com/wolfauto/marketer/internal/platforms"
	"github.com/wolfauto/marketer/internal/storage"
)

// MatchHandler serves POST /api/match: fetch opportunities from a platform
// and rank them against the seller profile.
type MatchHandler struct {
	store    storage.Store
	registry *platforms.Registry
	matcher  matcher.Matcher
	logger   *slog.Logger
}

// NewMatchHandler creates a match handler.
func NewMatchHandler(store storage.Store, registry *platforms.Registry, m matcher.Matcher, logger *slog.Logger) *MatchHandler {
	return &MatchHandler{store: store, registry: registry, matcher: m, logger: logger}
}

type matchRequest struct {
	PlatformID string               `json:"platform_id"`
	Query      string               `json:"query"`
	Limit      int                  `json:"limit,omitempty"`
	Profile    models.SellerProfile `json:"profile"`
}

// HandleMatch handles POST /api/match.
func (h *MatchHandler) HandleMatch(w http.ResponseWriter, r *http.Request) {
	if preflight(w, r) {
		return
	}
	if r.Method != http.MethodPost {
		methodNotAllowed(w)
		return
	}

	var req matchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if req.PlatformID == "" {
		writeError(w, http.StatusBadRequest, "platform_id is required")
		return
	}
	if len(req.Profile.Skills) == 0 {
		writeError(w, http.StatusBadRequest, "profile.skills must not be empty")
		return
	}
	if req.Limit <= 0 || req.Limit > 100 {
		req.Limit = 25
	}

	ctx := r.Context()
	platform, err := h.store.GetPlatform(ctx, req.PlatformID)
	if err != nil {
		writeInternalError(w, h.logger, "failed to get platform", err)
		return
	}
	if platform == nil {
		writeError(w, http.StatusNotFound, "Platform not found")
		return
	}
	if !platform.IsConnected() {
		writeError(w, http.StatusBadRequest, "Platform is not connected")
		return
	}

	client := h.registry.ForPlatform(platform.Name)
	if client == nil {
		writeError(w, http.StatusBadRequest, "No client available for this platform")
		return
	}

	candidates, err := client.Search(ctx, req.Query, req.Limit)
	if err != nil {
		writeInternalError(w, h.logger, "platform search failed", err)
		return
	}

	ranked, err := h.matcher.Rank(ctx, req.Profile, candidates)
	if err != nil {
		writeInternalError(w, h.logger, "ranking failed", err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"platform_id": platform.ID,
		"candidates":  len(candidates),
		"matches":     ranked,
	})
}
