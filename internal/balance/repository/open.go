package repository

import (
	"context"
	"fmt"

	"electric_balance_backend/platform/config"
	"electric_balance_backend/platform/db"
)

// Open connects the store selected by the database URL. The returned func
// releases the underlying connections.
func Open(ctx context.Context, cfg config.DatabaseConfig) (Repository, func(), error) {
	if db.DriverFor(cfg.GetDatabaseURL()) == db.DriverSQLite {
		conn, err := db.OpenSQLite(ctx, cfg.GetDatabaseURL())
		if err != nil {
			return nil, nil, err
		}
		if cfg.GetMigrationsEnabled() {
			if err := db.Migrate(ctx, conn, db.DriverSQLite); err != nil {
				_ = conn.Close()
				return nil, nil, fmt.Errorf("migrate sqlite: %w", err)
			}
		}
		return NewSQLite(conn), func() { _ = conn.Close() }, nil
	}

	pool, err := db.NewPool(ctx, cfg)
	if err != nil {
		return nil, nil, err
	}
	return New(pool), pool.Close, nil
}
