package handlers

import (
	"net/http"
	"strings"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/vigil/internal/services/registry"
)

// TargetHandler serves the supported-target registry.
type TargetHandler struct {
	registry *registry.Service
	logger   arbor.ILogger
}

func NewTargetHandler(registrySvc *registry.Service, logger arbor.ILogger) *TargetHandler {
	return &TargetHandler{registry: registrySvc, logger: logger}
}

// ListHandler handles GET /api/targets - list supported targets
func (h *TargetHandler) ListHandler(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodGet) {
		return
	}

	targets := h.registry.List()
	WriteJSON(w, http.StatusOK, map[string]interface{}{
		"count":   len(targets),
		"targets": targets,
	})
}

// GetHandler handles GET /api/targets/{code} - full configuration for one target
func (h *TargetHandler) GetHandler(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodGet) {
		return
	}

	code := strings.TrimPrefix(r.URL.Path, "/api/targets/")
	if code == "" || strings.Contains(code, "/") {
		WriteError(w, http.StatusBadRequest, "Target code required")
		return
	}

	config := h.registry.Get(code)
	WriteJSON(w, http.StatusOK, map[string]interface{}{
		"supported": h.registry.Supported(code),
		"config":    config,
	})
}
