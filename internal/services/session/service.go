package session

import (
	"context"
	"time"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/vigil/internal/common"
	"github.com/ternarybob/vigil/internal/interfaces"
	"github.com/ternarybob/vigil/internal/models"
)

// Service persists browser state between scans so repeat logins against the
// same portal can be skipped while the saved session is still fresh.
type Service struct {
	storage interfaces.SessionStorage
	ttl     time.Duration
	logger  arbor.ILogger
	now     func() time.Time
}

func NewService(storage interfaces.SessionStorage, config common.ScannerConfig, logger arbor.ILogger) *Service {
	ttl := time.Duration(config.SessionTTLHours) * time.Hour
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &Service{
		storage: storage,
		ttl:     ttl,
		logger:  logger,
		now:     time.Now,
	}
}

// Save snapshots the page's cookies and storage areas and upserts the record
// under the user/target key. A fresh expiry is stamped on every save.
func (s *Service) Save(ctx context.Context, page interfaces.Page, userID, targetID string) error {
	cookies, err := page.Cookies(ctx)
	if err != nil {
		return err
	}

	localStorage, err := page.StorageState(ctx, "localStorage")
	if err != nil {
		s.logger.Warn().Err(err).Msg("Failed to read localStorage, saving cookies only")
		localStorage = map[string]string{}
	}

	sessionStorage, err := page.StorageState(ctx, "sessionStorage")
	if err != nil {
		s.logger.Warn().Err(err).Msg("Failed to read sessionStorage, saving cookies only")
		sessionStorage = map[string]string{}
	}

	now := s.now().UTC()
	record := &models.SessionRecord{
		UserID:   userID,
		TargetID: targetID,
		State: models.BrowserState{
			Cookies:        cookies,
			LocalStorage:   localStorage,
			SessionStorage: sessionStorage,
		},
		SavedAt:   now,
		ExpiresAt: now.Add(s.ttl),
	}

	if err := s.storage.Put(ctx, record); err != nil {
		return err
	}

	s.logger.Info().
		Str("user", userID).
		Str("target", targetID).
		Int("cookies", len(cookies)).
		Str("expires_at", record.ExpiresAt.Format(time.RFC3339)).
		Msg("Session saved")
	return nil
}

// Load restores a previously saved session onto the page. It returns true only
// when a stored record existed, was still valid, and its state was applied.
// Missing, expired, or unreadable records all yield false without error;
// on a failed restore the caller performs a fresh login.
func (s *Service) Load(ctx context.Context, page interfaces.Page, userID, targetID string) bool {
	record, err := s.storage.Get(ctx, userID, targetID)
	if err != nil {
		if err != interfaces.ErrNotFound {
			s.logger.Warn().Err(err).Str("user", userID).Str("target", targetID).Msg("Failed to read saved session")
		}
		return false
	}

	if !record.IsValid(s.now().UTC()) {
		s.logger.Debug().
			Str("user", userID).
			Str("target", targetID).
			Str("expires_at", record.ExpiresAt.Format(time.RFC3339)).
			Msg("Saved session expired, fresh login required")
		return false
	}

	if err := page.SetCookies(ctx, record.State.Cookies); err != nil {
		s.logger.Warn().Err(err).Msg("Failed to restore cookies")
		return false
	}
	if len(record.State.LocalStorage) > 0 {
		if err := page.SetStorageState(ctx, "localStorage", record.State.LocalStorage); err != nil {
			s.logger.Warn().Err(err).Msg("Failed to restore localStorage")
		}
	}
	if len(record.State.SessionStorage) > 0 {
		if err := page.SetStorageState(ctx, "sessionStorage", record.State.SessionStorage); err != nil {
			s.logger.Warn().Err(err).Msg("Failed to restore sessionStorage")
		}
	}

	s.logger.Info().
		Str("user", userID).
		Str("target", targetID).
		Int("cookies", len(record.State.Cookies)).
		Msg("Session restored")
	return true
}

// IsValid reports whether a saved session exists for the key and still has
// more than the validity buffer remaining before expiry.
func (s *Service) IsValid(ctx context.Context, userID, targetID string) bool {
	record, err := s.storage.Get(ctx, userID, targetID)
	if err != nil {
		return false
	}
	return record.IsValid(s.now().UTC())
}

// Invalidate removes the saved session for the key, forcing the next scan to
// perform a fresh login.
func (s *Service) Invalidate(ctx context.Context, userID, targetID string) error {
	return s.storage.Delete(ctx, userID, targetID)
}

// List returns every saved session record.
func (s *Service) List(ctx context.Context) ([]*models.SessionRecord, error) {
	return s.storage.List(ctx)
}
