package badger

import (
	"github.com/ternarybob/arbor"
	"github.com/ternarybob/vigil/internal/common"
	"github.com/ternarybob/vigil/internal/interfaces"
)

// Manager implements the StorageManager interface for Badger
type Manager struct {
	db      *BadgerDB
	session interfaces.SessionStorage
	scanLog interfaces.ScanLogStorage
	logger  arbor.ILogger
}

// NewManager creates a new Badger storage manager
func NewManager(logger arbor.ILogger, config *common.BadgerConfig) (interfaces.StorageManager, error) {
	db, err := NewBadgerDB(logger, config)
	if err != nil {
		return nil, err
	}

	manager := &Manager{
		db:      db,
		session: NewSessionStorage(db, logger),
		scanLog: NewScanLogStorage(db, logger),
		logger:  logger,
	}

	logger.Info().Msg("Badger storage manager initialized")

	return manager, nil
}

// SessionStorage returns the session storage interface
func (m *Manager) SessionStorage() interfaces.SessionStorage {
	return m.session
}

// ScanLogStorage returns the scan log storage interface
func (m *Manager) ScanLogStorage() interfaces.ScanLogStorage {
	return m.scanLog
}

// Close closes the database connection
func (m *Manager) Close() error {
	if m.db != nil {
		return m.db.Close()
	}
	return nil
}
