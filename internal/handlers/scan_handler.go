package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/ternarybob/arbor"
	"github.com/ternarybob/vigil/internal/models"
	"github.com/ternarybob/vigil/internal/services/scanner"
)

// ScanHandler exposes the scan orchestrator over HTTP.
type ScanHandler struct {
	scanner  *scanner.Service
	validate *validator.Validate
	logger   arbor.ILogger
}

func NewScanHandler(scannerSvc *scanner.Service, logger arbor.ILogger) *ScanHandler {
	return &ScanHandler{
		scanner:  scannerSvc,
		validate: validator.New(),
		logger:   logger,
	}
}

// ScanTargetHandler handles POST /api/scan - scan a single target
func (h *ScanHandler) ScanTargetHandler(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodPost) {
		return
	}

	var req models.ScanRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		WriteError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if err := h.validate.Struct(&req); err != nil {
		WriteError(w, http.StatusBadRequest, "Validation failed: "+err.Error())
		return
	}

	h.logger.Info().Str("target", req.TargetID).Str("user", req.UserID).Msg("Scan requested")

	result := h.scanner.Scan(r.Context(), &req)
	WriteJSON(w, http.StatusOK, result)
}

// ScanBatchHandler handles POST /api/scan/batch - scan several targets in sequence
func (h *ScanHandler) ScanBatchHandler(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodPost) {
		return
	}

	var req models.BatchScanRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		WriteError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if err := h.validate.Struct(&req); err != nil {
		WriteError(w, http.StatusBadRequest, "Validation failed: "+err.Error())
		return
	}

	h.logger.Info().Int("targets", len(req.TargetIDs)).Str("user", req.UserID).Msg("Batch scan requested")

	batch := h.scanner.ScanBatch(r.Context(), &req)
	WriteJSON(w, http.StatusOK, batch)
}
