package badger

import (
	"context"
	"fmt"
	"time"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/vigil/internal/interfaces"
	"github.com/ternarybob/vigil/internal/models"
	"github.com/timshannon/badgerhold/v4"
)

// SessionStorage implements interfaces.SessionStorage on Badger. Records are
// keyed by the normalized (user, target) pair and replaced wholesale.
type SessionStorage struct {
	db     *BadgerDB
	logger arbor.ILogger
}

// NewSessionStorage creates a new SessionStorage instance
func NewSessionStorage(db *BadgerDB, logger arbor.ILogger) interfaces.SessionStorage {
	return &SessionStorage{
		db:     db,
		logger: logger,
	}
}

// Put replaces any existing record for the same key (last-write-wins).
func (s *SessionStorage) Put(ctx context.Context, record *models.SessionRecord) error {
	if record == nil {
		return fmt.Errorf("nil session record")
	}

	key := record.Key()
	if err := s.db.Store().Upsert(key, record); err != nil {
		return fmt.Errorf("failed to store session record: %w", err)
	}

	s.logger.Debug().
		Str("key", key).
		Str("expires_at", record.ExpiresAt.Format(time.RFC3339)).
		Msg("Session record stored")
	return nil
}

// Get returns interfaces.ErrNotFound when no record exists for the key.
func (s *SessionStorage) Get(ctx context.Context, userID, targetID string) (*models.SessionRecord, error) {
	key := models.SessionKey(userID, targetID)

	var record models.SessionRecord
	err := s.db.Store().Get(key, &record)
	if err == badgerhold.ErrNotFound {
		return nil, interfaces.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get session record: %w", err)
	}

	return &record, nil
}

// Delete removes the record for the key. Deleting a missing key is not an
// error.
func (s *SessionStorage) Delete(ctx context.Context, userID, targetID string) error {
	key := models.SessionKey(userID, targetID)

	err := s.db.Store().Delete(key, &models.SessionRecord{})
	if err != nil && err != badgerhold.ErrNotFound {
		return fmt.Errorf("failed to delete session record: %w", err)
	}

	s.logger.Debug().Str("key", key).Msg("Session record deleted")
	return nil
}

// List returns all stored session records.
func (s *SessionStorage) List(ctx context.Context) ([]*models.SessionRecord, error) {
	var records []*models.SessionRecord
	if err := s.db.Store().Find(&records, badgerhold.Where("UserID").Ne("")); err != nil {
		return nil, fmt.Errorf("failed to list session records: %w", err)
	}
	return records, nil
}
