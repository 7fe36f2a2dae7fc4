package interfaces

import (
	"context"
	"errors"

	"github.com/ternarybob/vigil/internal/models"
)

// ErrNotFound is returned when a storage lookup matches nothing.
var ErrNotFound = errors.New("record not found")

// SessionStorage persists session records keyed by (user, target). The core
// never assumes a particular backing store.
type SessionStorage interface {
	// Put replaces any existing record for the same key (last-write-wins).
	Put(ctx context.Context, record *models.SessionRecord) error
	// Get returns ErrNotFound when no record exists for the key.
	Get(ctx context.Context, userID, targetID string) (*models.SessionRecord, error)
	Delete(ctx context.Context, userID, targetID string) error
	List(ctx context.Context) ([]*models.SessionRecord, error)
}

// ScanLogStorage records completed scan results for later inspection.
type ScanLogStorage interface {
	Append(ctx context.Context, result *models.ScanResult) error
	// Recent returns up to limit results, newest first.
	Recent(ctx context.Context, limit int) ([]*models.ScanResult, error)
	Count(ctx context.Context) (int, error)
}

// StorageManager bundles the storage implementations behind one lifecycle.
type StorageManager interface {
	SessionStorage() SessionStorage
	ScanLogStorage() ScanLogStorage
	Close() error
}
