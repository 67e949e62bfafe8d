package cmd

import (
	"context"
	"errors"

	"github.com/placetrack/placetrack/internal/config"
	"github.com/placetrack/placetrack/internal/core/store"
)

// openStore opens the configured record store and applies migrations.
// Callers own the returned store and must Close it.
func openStore(ctx context.Context) (*store.Store, error) {
	cfg := config.GetConfig()
	if cfg == nil {
		return nil, errors.New("config not loaded")
	}

	db, err := store.Open(ctx, cfg.Store)
	if err != nil {
		return nil, err
	}

	if err := db.Migrate(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}

	return db, nil
}
