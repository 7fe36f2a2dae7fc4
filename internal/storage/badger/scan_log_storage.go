package badger

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/ternarybob/arbor"
	"github.com/ternarybob/vigil/internal/interfaces"
	"github.com/ternarybob/vigil/internal/models"
	"github.com/timshannon/badgerhold/v4"
)

// ScanLogStorage implements interfaces.ScanLogStorage on Badger.
type ScanLogStorage struct {
	db     *BadgerDB
	logger arbor.ILogger
}

// NewScanLogStorage creates a new ScanLogStorage instance
func NewScanLogStorage(db *BadgerDB, logger arbor.ILogger) interfaces.ScanLogStorage {
	return &ScanLogStorage{
		db:     db,
		logger: logger,
	}
}

// Append stores a completed scan result. Results without an ID get one.
func (s *ScanLogStorage) Append(ctx context.Context, result *models.ScanResult) error {
	if result == nil {
		return fmt.Errorf("nil scan result")
	}
	if result.ID == "" {
		result.ID = uuid.New().String()
	}

	if err := s.db.Store().Upsert(result.ID, result); err != nil {
		return fmt.Errorf("failed to store scan result: %w", err)
	}

	s.logger.Debug().
		Str("id", result.ID).
		Str("target", result.Target).
		Bool("has_appointment", result.HasAppointment).
		Msg("Scan result recorded")
	return nil
}

// Recent returns up to limit results, newest first.
func (s *ScanLogStorage) Recent(ctx context.Context, limit int) ([]*models.ScanResult, error) {
	if limit <= 0 {
		limit = 50
	}

	var results []*models.ScanResult
	query := badgerhold.Where("ID").Ne("").SortBy("ScannedAt").Reverse().Limit(limit)
	if err := s.db.Store().Find(&results, query); err != nil {
		return nil, fmt.Errorf("failed to list scan results: %w", err)
	}
	return results, nil
}

// Count returns the total number of recorded scan results.
func (s *ScanLogStorage) Count(ctx context.Context) (int, error) {
	count, err := s.db.Store().Count(&models.ScanResult{}, nil)
	if err != nil {
		return 0, fmt.Errorf("failed to count scan results: %w", err)
	}
	return int(count), nil
}
