package api

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/wolfauto/marketer/internal/reporting"
)

// ReportHandler serves the read-only aggregation routes under /api/reports.
type ReportHandler struct {
	reporter *reporting.Reporter
	logger   *slog.Logger
}

// NewReportHandler creates a report handler.
func NewReportHandler(reporter *reporting.Reporter, logger *slog.Logger) *ReportHandler {
	return &ReportHandler{reporter: reporter, logger: logger}
}

// HandleEarnings handles GET /api/reports/earnings: per-platform rollups
// for a named period, top earner first.
func (h *ReportHandler) HandleEarnings(w http.ResponseWriter, r *http.Request) {
	if preflight(w, r) {
		return
	}
	if r.Method != http.MethodGet {
		methodNotAllowed(w)
		return
	}

	reports, err := h.reporter.PlatformEarnings(r.Context(), r.URL.Query().Get("period"))
	if err != nil {
		writeInternalError(w, h.logger, "failed to build earnings report", err)
		return
	}
	writeJSON(w, http.StatusOK, reports)
}

// HandleEarningsSeries handles GET /api/reports/earnings/series: the
// earnings-over-time buckets, oldest first.
func (h *ReportHandler) HandleEarningsSeries(w http.ResponseWriter, r *http.Request) {
	if preflight(w, r) {
		return
	}
	if r.Method != http.MethodGet {
		methodNotAllowed(w)
		return
	}

	q := r.URL.Query()
	granularity := reporting.Granularity(q.Get("granularity"))
	if granularity == "" {
		granularity = reporting.GranularityDaily
	}
	if !granularity.Valid() {
		writeError(w, http.StatusBadRequest, "granularity must be daily, weekly or monthly")
		return
	}

	count := 30
	if raw := q.Get("count"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 1 || parsed > 366 {
			writeError(w, http.StatusBadRequest, "count must be between 1 and 366")
			return
		}
		count = parsed
	}

	buckets, err := h.reporter.EarningsByPeriod(r.Context(), granularity, count)
	if err != nil {
		writeInternalError(w, h.logger, "failed to build earnings series", err)
		return
	}
	writeJSON(w, http.StatusOK, buckets)
}

// HandleWorkflows handles GET /api/reports/workflows: per-workflow task
// outcomes within a period, best success rate first.
func (h *ReportHandler) HandleWorkflows(w http.ResponseWriter, r *http.Request) {
	if preflight(w, r) {
		return
	}
	if r.Method != http.MethodGet {
		methodNotAllowed(w)
		return
	}

	reports, err := h.reporter.WorkflowPerformance(r.Context(), r.URL.Query().Get("period"))
	if err != nil {
		writeInternalError(w, h.logger, "failed to build workflow report", err)
		return
	}
	writeJSON(w, http.StatusOK, reports)
}

// HandlePlatform handles GET /api/reports/platforms/{id}: a single
// platform's analytics snapshot.
func (h *ReportHandler) HandlePlatform(w http.ResponseWriter, r *http.Request) {
	if preflight(w, r) {
		return
	}
	if r.Method != http.MethodGet {
		methodNotAllowed(w)
		return
	}

	id, _ := pathID(r.URL.Path, "/api/reports/platforms")
	if id == "" {
		writeError(w, http.StatusBadRequest, "Platform ID required")
		return
	}

	analytics, err := h.reporter.PlatformAnalyticsFor(r.Context(), id, r.URL.Query().Get("period"))
	if err != nil {
		if errors.Is(err, reporting.ErrPlatformNotFound) {
			writeError(w, http.StatusNotFound, "Platform not found")
			return
		}
		writeInternalError(w, h.logger, "failed to build platform analytics", err)
		return
	}
	writeJSON(w, http.StatusOK, analytics)
}

// HandleSystem handles GET /api/reports/system: the global dashboard
// snapshot.
func (h *ReportHandler) HandleSystem(w http.ResponseWriter, r *http.Request) {
	if preflight(w, r) {
		return
	}
	if r.Method != http.MethodGet {
		methodNotAllowed(w)
		return
	}

	report, err := h.reporter.SystemPerformance(r.Context(), r.URL.Query().Get("period"))
	if err != nil {
		writeInternalError(w, h.logger, "failed to build system report", err)
		return
	}
	writeJSON(w, http.StatusOK, report)
}
