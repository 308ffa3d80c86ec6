package core

import (
	"fmt"

	"gymcore/internal/infra/persistence/memory"
	"gymcore/internal/infra/persistence/postgres"
	"gymcore/internal/infra/persistence/sqlite"
	"gymcore/pkg/domain"
)

// StorageDriver identifies a concrete persistent storage implementation.
type StorageDriver string

const (
	StorageMemory   StorageDriver = "memory"   // in-memory only (tests / ephemeral)
	StorageSQLite   StorageDriver = "sqlite"   // embedded sqlite file
	StoragePostgres StorageDriver = "postgres" // PostgreSQL server
)

type (
	Transaction     = domain.Transaction
	TransactionView = domain.TransactionView
	PersistentStore = domain.PersistentStore
)

// NewInMemoryService builds a service on a fresh in-memory store with the
// default gym rules registered. Intended for tests and ephemeral runs.
func NewInMemoryService(opts ...ServiceOption) *Service {
	return NewService(memory.NewStore(NewDefaultRulesEngine()), opts...)
}

// OpenPersistentStore selects a backend from Config. Defaults to sqlite.
func OpenPersistentStore(cfg Config, engine *RulesEngine) (PersistentStore, error) {
	driver := StorageDriver(cfg.StorageDriver)
	if driver == "" {
		driver = StorageSQLite
	}
	switch driver {
	case StorageMemory:
		return memory.NewStore(engine), nil
	case StorageSQLite:
		return sqlite.NewStore(cfg.SQLitePath, engine)
	case StoragePostgres:
		return postgres.NewStore(cfg.PostgresDSN, engine)
	default:
		return nil, fmt.Errorf("unknown storage driver %s", driver)
	}
}
