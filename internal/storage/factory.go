// Package storage selects the record store backend from configuration.
package storage

import (
	"fmt"

	"github.com/bobmcallan/roundup/internal/common"
	"github.com/bobmcallan/roundup/internal/interfaces"
	"github.com/bobmcallan/roundup/internal/storage/badger"
	"github.com/bobmcallan/roundup/internal/storage/surrealdb"
)

// NewStorageManager creates the StorageManager for the configured backend.
// Supported backends: "badger" (default), "surrealdb".
func NewStorageManager(logger *common.Logger, config *common.Config) (interfaces.StorageManager, error) {
	switch config.Storage.Backend {
	case "", common.BackendBadger:
		store, err := badger.NewStore(logger, config.Storage.Badger.Path)
		if err != nil {
			return nil, err
		}
		logger.Info().Str("path", config.Storage.Badger.Path).Msg("BadgerHold storage initialized")
		return store, nil

	case common.BackendSurrealDB:
		return surrealdb.NewManager(logger, config.Storage.SurrealDB)

	default:
		return nil, fmt.Errorf("unknown storage backend: %s (supported: %s, %s)", config.Storage.Backend, common.BackendBadger, common.BackendSurrealDB)
	}
}
