// Package testdb provides in-memory store fixtures for tests.
package testdb

import (
	"fmt"
	"sync/atomic"

	"github.com/kuitang/taskboard/internal/db"
)

// counter gives each fixture a unique shared-cache name so tests stay isolated.
var counter atomic.Int64

// NewStoreInMemory creates a fresh in-memory Store with the schema applied.
func NewStoreInMemory() (*db.Store, error) {
	name := fmt.Sprintf("taskboard-test-%d", counter.Add(1))
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", name)

	store, err := db.OpenDSN(dsn)
	if err != nil {
		return nil, fmt.Errorf("open in-memory store: %w", err)
	}

	if err := applyFastSQLitePragmas(store); err != nil {
		store.Close()
		return nil, fmt.Errorf("apply fast SQLite pragmas: %w", err)
	}

	return store, nil
}

func applyFastSQLitePragmas(store *db.Store) error {
	pragmas := []string{
		"PRAGMA journal_mode=MEMORY",
		"PRAGMA synchronous=OFF",
		"PRAGMA temp_store=MEMORY",
	}
	for _, pragma := range pragmas {
		if _, err := store.DB().Exec(pragma); err != nil {
			return err
		}
	}
	return nil
}
