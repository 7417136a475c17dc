package db

import (
	"context"
	"database/sql"
	"fmt"

	"electric_balance_backend/migrations"
	"electric_balance_backend/platform/config"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/pressly/goose/v3"
)

// RunMigrations applies all pending embedded Postgres migrations. SQLite
// stores are migrated by the repository on its own connection, since an
// in-memory database exists only on the connection that created it.
func RunMigrations(ctx context.Context, cfg config.DatabaseConfig) error {
	if !cfg.GetMigrationsEnabled() {
		return nil
	}

	driver := DriverFor(cfg.GetDatabaseURL())
	if driver == DriverSQLite {
		return nil
	}

	conn, err := sql.Open("pgx", cfg.GetDatabaseURL())
	if err != nil {
		return err
	}
	defer conn.Close()
	return Migrate(ctx, conn, driver)
}

// Migrate applies the embedded migrations for driver on an open connection.
func Migrate(ctx context.Context, conn *sql.DB, driver Driver) error {
	dialect, dir := "postgres", "postgres"
	if driver == DriverSQLite {
		dialect, dir = "sqlite3", "sqlite"
	}

	goose.SetBaseFS(migrations.FS)
	if err := goose.SetDialect(dialect); err != nil {
		return fmt.Errorf("set migration dialect: %w", err)
	}
	if err := goose.UpContext(ctx, conn, dir); err != nil {
		return fmt.Errorf("apply migrations: %w", err)
	}
	return nil
}
