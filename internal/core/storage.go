package core

import (
	"context"
	"fmt"
	"os"

	"hydrocore/internal/infra/persistence/memory"
	"hydrocore/internal/infra/persistence/postgres"
	"hydrocore/internal/infra/persistence/sqlite"
)

// StorageDriver identifies a concrete persistent storage implementation.
type StorageDriver string

const (
	StorageMemory   StorageDriver = "memory"   // in-memory only (tests / one-shot CLI runs)
	StorageSQLite   StorageDriver = "sqlite"   // embedded sqlite file
	StoragePostgres StorageDriver = "postgres" // PostgreSQL server
)

// Environment variables read by OpenPersistentStore.
const (
	EnvStorageDriver = "HYDROCORE_STORAGE_DRIVER"
	EnvSQLitePath    = "HYDROCORE_SQLITE_PATH"
	EnvPostgresDSN   = "HYDROCORE_POSTGRES_DSN"
)

// OpenPersistentStore selects a backend using environment variables.
// Defaults to sqlite when unset.
//
//	HYDROCORE_STORAGE_DRIVER: memory|sqlite|postgres (default sqlite)
//	HYDROCORE_SQLITE_PATH: path to sqlite file (default ./hydrocore.db)
//	HYDROCORE_POSTGRES_DSN: postgres DSN when driver=postgres
func OpenPersistentStore(ctx context.Context, engine *RulesEngine) (PersistentStore, error) {
	driver := os.Getenv(EnvStorageDriver)
	if driver == "" {
		driver = string(StorageSQLite)
	}
	switch StorageDriver(driver) {
	case StorageMemory:
		return memory.NewStore(engine), nil
	case StorageSQLite:
		store, err := sqlite.NewStore(os.Getenv(EnvSQLitePath), engine)
		if err != nil {
			return nil, err
		}
		return store, nil
	case StoragePostgres:
		store, err := postgres.NewStore(ctx, os.Getenv(EnvPostgresDSN), engine)
		if err != nil {
			return nil, err
		}
		return store, nil
	default:
		return nil, fmt.Errorf("unknown storage driver %s", driver)
	}
}
