package db

import (
	"context"
	"database/sql"
	"strings"

	_ "modernc.org/sqlite"
)

// OpenSQLite opens a SQLite database from a sqlite:// or file: URL.
// Writes are serialized through a single connection.
func OpenSQLite(ctx context.Context, databaseURL string) (*sql.DB, error) {
	conn, err := sql.Open("sqlite", sqliteDSN(databaseURL))
	if err != nil {
		return nil, err
	}
	conn.SetMaxOpenConns(1)

	if err := conn.PingContext(ctx); err != nil {
		_ = conn.Close()
		return nil, err
	}
	if _, err := conn.ExecContext(ctx, `PRAGMA busy_timeout = 5000`); err != nil {
		_ = conn.Close()
		return nil, err
	}
	return conn, nil
}

func sqliteDSN(databaseURL string) string {
	trimmed := strings.TrimSpace(databaseURL)
	if strings.HasPrefix(strings.ToLower(trimmed), "sqlite://") {
		return trimmed[len("sqlite://"):]
	}
	return trimmed
}
