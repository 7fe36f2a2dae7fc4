package handlers

import (
	"net/http"
	"strings"
	"time"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/vigil/internal/services/session"
)

// SessionHandler exposes saved-session administration.
type SessionHandler struct {
	sessions *session.Service
	logger   arbor.ILogger
}

func NewSessionHandler(sessionSvc *session.Service, logger arbor.ILogger) *SessionHandler {
	return &SessionHandler{sessions: sessionSvc, logger: logger}
}

type sessionSummary struct {
	UserID    string    `json:"user_id"`
	TargetID  string    `json:"target_id"`
	SavedAt   time.Time `json:"saved_at"`
	ExpiresAt time.Time `json:"expires_at"`
	Valid     bool      `json:"valid"`
	Cookies   int       `json:"cookies"`
}

// ListHandler handles GET /api/sessions - list saved sessions without state
func (h *SessionHandler) ListHandler(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodGet) {
		return
	}

	records, err := h.sessions.List(r.Context())
	if err != nil {
		h.logger.Error().Err(err).Msg("Failed to list sessions")
		WriteError(w, http.StatusInternalServerError, "Failed to list sessions")
		return
	}

	now := time.Now().UTC()
	summaries := make([]sessionSummary, 0, len(records))
	for _, record := range records {
		summaries = append(summaries, sessionSummary{
			UserID:    record.UserID,
			TargetID:  record.TargetID,
			SavedAt:   record.SavedAt,
			ExpiresAt: record.ExpiresAt,
			Valid:     record.IsValid(now),
			Cookies:   len(record.State.Cookies),
		})
	}

	WriteJSON(w, http.StatusOK, map[string]interface{}{
		"count":    len(summaries),
		"sessions": summaries,
	})
}

// DeleteHandler handles DELETE /api/sessions/{user}/{target}
func (h *SessionHandler) DeleteHandler(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodDelete) {
		return
	}

	rest := strings.TrimPrefix(r.URL.Path, "/api/sessions/")
	parts := strings.Split(rest, "/")
	if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
		WriteError(w, http.StatusBadRequest, "Expected /api/sessions/{user}/{target}")
		return
	}

	if err := h.sessions.Invalidate(r.Context(), parts[0], parts[1]); err != nil {
		h.logger.Error().Err(err).Msg("Failed to delete session")
		WriteError(w, http.StatusInternalServerError, "Failed to delete session")
		return
	}

	h.logger.Info().Str("user", parts[0]).Str("target", parts[1]).Msg("Session invalidated")
	WriteSuccess(w, "Session deleted")
}
