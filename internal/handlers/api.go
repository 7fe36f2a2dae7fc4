package handlers

import (
	"net/http"
	"strconv"
	"time"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/vigil/internal/common"
	"github.com/ternarybob/vigil/internal/interfaces"
)

// APIHandler serves health, version, and scan-history endpoints.
type APIHandler struct {
	scanLog interfaces.ScanLogStorage
	started time.Time
	logger  arbor.ILogger
}

func NewAPIHandler(scanLog interfaces.ScanLogStorage, logger arbor.ILogger) *APIHandler {
	return &APIHandler{
		scanLog: scanLog,
		started: time.Now(),
		logger:  logger,
	}
}

// HealthHandler handles GET /api/health
func (h *APIHandler) HealthHandler(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodGet) {
		return
	}

	count, err := h.scanLog.Count(r.Context())
	status := "healthy"
	if err != nil {
		status = "degraded"
		h.logger.Warn().Err(err).Msg("Scan log unavailable")
	}

	WriteJSON(w, http.StatusOK, map[string]interface{}{
		"status":         status,
		"version":        common.Version,
		"uptime_seconds": int(time.Since(h.started).Seconds()),
		"total_scans":    count,
	})
}

// VersionHandler handles GET /api/version
func (h *APIHandler) VersionHandler(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodGet) {
		return
	}

	WriteJSON(w, http.StatusOK, map[string]string{
		"version": common.Version,
		"build":   common.Build,
		"commit":  common.GitCommit,
	})
}

// RecentScansHandler handles GET /api/scans/recent?limit=N
func (h *APIHandler) RecentScansHandler(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodGet) {
		return
	}

	limit := 20
	if raw := r.URL.Query().Get("limit"); raw != "" {
		if n, err := strconv.Atoi(raw); err == nil && n > 0 && n <= 200 {
			limit = n
		}
	}

	results, err := h.scanLog.Recent(r.Context(), limit)
	if err != nil {
		h.logger.Error().Err(err).Msg("Failed to read scan history")
		WriteError(w, http.StatusInternalServerError, "Failed to read scan history")
		return
	}

	WriteJSON(w, http.StatusOK, map[string]interface{}{
		"count":   len(results),
		"results": results,
	})
}
