package models

import (
	"strings"
	"time"
)

// SessionValidityBuffer is the margin before expiry at which a saved session
// is already treated as stale. A session about to expire mid-scan is worse
// than a fresh login.
const SessionValidityBuffer = 5 * time.Minute

// Cookie is a browser cookie in portable form. Expires is seconds since the
// Unix epoch; zero means a session cookie.
type Cookie struct {
	Name     string  `json:"name"`
	Value    string  `json:"value"`
	Domain   string  `json:"domain"`
	Path     string  `json:"path"`
	Expires  float64 `json:"expires"`
	HTTPOnly bool    `json:"http_only"`
	Secure   bool    `json:"secure"`
	SameSite string  `json:"same_site"`
}

// BrowserState is the full snapshot of a logged-in browser context.
type BrowserState struct {
	Cookies        []Cookie          `json:"cookies"`
	LocalStorage   map[string]string `json:"local_storage"`
	SessionStorage map[string]string `json:"session_storage"`
}

// SessionRecord is a persisted login session for one user on one target.
type SessionRecord struct {
	UserID    string       `json:"user_id"`
	TargetID  string       `json:"target_id"`
	State     BrowserState `json:"state"`
	SavedAt   time.Time    `json:"saved_at"`
	ExpiresAt time.Time    `json:"expires_at"`
}

// SessionKey builds the storage key for a (user, target) pair. Keys are
// case-insensitive.
func SessionKey(userID, targetID string) string {
	return strings.ToLower(strings.TrimSpace(userID)) + ":" + strings.ToLower(strings.TrimSpace(targetID))
}

// Key returns the record's storage key.
func (r *SessionRecord) Key() string {
	return SessionKey(r.UserID, r.TargetID)
}

// IsValid reports whether the session still has more than the validity
// buffer remaining at the given instant.
func (r *SessionRecord) IsValid(now time.Time) bool {
	if r == nil || r.ExpiresAt.IsZero() {
		return false
	}
	return r.ExpiresAt.After(now.Add(SessionValidityBuffer))
}
