// Package storage provides the top-level StorageManager that coordinates
// the 2 storage areas: eventdb and historydb.
package storage

import (
	"fmt"

	"github.com/kineticrick/folio/internal/common"
	"github.com/kineticrick/folio/internal/interfaces"
	"github.com/kineticrick/folio/internal/storage/eventdb"
	"github.com/kineticrick/folio/internal/storage/historydb"
)

// Manager implements interfaces.StorageManager using 2 storage areas.
type Manager struct {
	events  *eventdb.Store
	history *historydb.Store
	logger  *common.Logger
}

// NewManager creates a new StorageManager with the 2 storage areas.
func NewManager(logger *common.Logger, config *common.Config) (*Manager, error) {
	eventStore, err := eventdb.NewStore(logger, config.Storage.Events.Path)
	if err != nil {
		return nil, fmt.Errorf("failed to create event store: %w", err)
	}

	historyStore, err := historydb.NewStore(logger, config.Storage.History.Path)
	if err != nil {
		eventStore.Close()
		return nil, fmt.Errorf("failed to create history store: %w", err)
	}

	logger.Info().
		Str("events", config.Storage.Events.Path).
		Str("history", config.Storage.History.Path).
		Msg("Storage manager initialized (2 areas)")

	return &Manager{
		events:  eventStore,
		history: historyStore,
		logger:  logger,
	}, nil
}

func (m *Manager) Events() interfaces.EventStore {
	return m.events
}

func (m *Manager) History() interfaces.HistoryStore {
	return m.history
}

func (m *Manager) Close() error {
	var firstErr error
	if err := m.events.Close(); err != nil && firstErr == nil {
		firstErr = err
	}
	if err := m.history.Close(); err != nil && firstErr == nil {
		firstErr = err
	}
	return firstErr
}
