package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

const sqliteBalanceColumns = `id, type, subtype, value, percentage, description, date, created_at`

const sqliteUpsertQuery = `
	INSERT INTO balances (id, type, subtype, value, percentage, description, date, created_at, updated_at)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	ON CONFLICT (type, subtype, date) DO UPDATE SET
		value = excluded.value,
		percentage = excluded.percentage,
		description = excluded.description,
		updated_at = excluded.updated_at
	WHERE balances.value IS NOT excluded.value
		OR balances.percentage IS NOT excluded.percentage
		OR balances.description IS NOT excluded.description
	RETURNING id`

// SQLiteRepo stores balances in SQLite. Decimals are kept as fixed-scale
// text and sums are computed in Go so no precision is lost.
type SQLiteRepo struct {
	db  *sql.DB
	now func() time.Time
}

// NewSQLite creates a balance repository on a migrated SQLite database.
func NewSQLite(db *sql.DB) *SQLiteRepo {
	return &SQLiteRepo{db: db, now: time.Now}
}

var _ Repository = (*SQLiteRepo)(nil)

// Ping checks that the database answers.
func (r *SQLiteRepo) Ping(ctx context.Context) error {
	return r.db.PingContext(ctx)
}

// Upsert writes the batch inside one transaction with a prepared statement.
func (r *SQLiteRepo) Upsert(ctx context.Context, balances []Balance) (UpsertResult, error) {
	if len(balances) == 0 {
		return UpsertResult{}, nil
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return UpsertResult{}, fmt.Errorf("begin balance upsert: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	stmt, err := tx.PrepareContext(ctx, sqliteUpsertQuery)
	if err != nil {
		return UpsertResult{}, fmt.Errorf("prepare balance upsert: %w", err)
	}
	defer stmt.Close()

	now := r.now().UTC().Format(time.RFC3339Nano)
	result, err := upsertEach(balances, sql.ErrNoRows, func(b Balance) (uuid.UUID, error) {
		var id string
		err := stmt.QueryRowContext(ctx,
			b.ID.String(), string(b.Type), string(b.Subtype),
			b.Value.StringFixed(3), b.Percentage.StringFixed(3), b.Description,
			b.Date.Format(DateLayout), now, now,
		).Scan(&id)
		if err != nil {
			return uuid.Nil, err
		}
		return uuid.Parse(id)
	})
	if err != nil {
		return UpsertResult{}, err
	}

	if err := tx.Commit(); err != nil {
		return UpsertResult{}, fmt.Errorf("commit balance upsert: %w", err)
	}
	return result, nil
}

// GetByID retrieves a balance by its ID.
func (r *SQLiteRepo) GetByID(ctx context.Context, id uuid.UUID) (Balance, error) {
	query := `SELECT ` + sqliteBalanceColumns + ` FROM balances WHERE id = ?`

	b, err := scanSQLiteBalance(r.db.QueryRowContext(ctx, query, id.String()))
	if errors.Is(err, sql.ErrNoRows) {
		return Balance{}, notFound(id)
	}
	if err != nil {
		return Balance{}, fmt.Errorf("get balance: %w", err)
	}
	return b, nil
}

// Delete removes a balance and returns the deleted row.
func (r *SQLiteRepo) Delete(ctx context.Context, id uuid.UUID) (Balance, error) {
	query := `DELETE FROM balances WHERE id = ? RETURNING ` + sqliteBalanceColumns

	b, err := scanSQLiteBalance(r.db.QueryRowContext(ctx, query, id.String()))
	if errors.Is(err, sql.ErrNoRows) {
		return Balance{}, notFound(id)
	}
	if err != nil {
		return Balance{}, fmt.Errorf("delete balance: %w", err)
	}
	return b, nil
}

// List returns the balances in range ordered by date, then type.
func (r *SQLiteRepo) List(ctx context.Context, filter Filter) ([]Balance, error) {
	query := `
		SELECT ` + sqliteBalanceColumns + `
		FROM balances
		WHERE date BETWEEN ? AND ?
			AND (? IS NULL OR type = ?)
			AND (? IS NULL OR subtype = ?)
		ORDER BY date ASC, type ASC, subtype ASC`

	energy, subtype := typeParam(filter.Type), subtypeParam(filter.Subtype)
	rows, err := r.db.QueryContext(ctx, query,
		filter.StartDate.Format(DateLayout), filter.EndDate.Format(DateLayout),
		energy, energy, subtype, subtype,
	)
	if err != nil {
		return nil, fmt.Errorf("list balances: %w", err)
	}
	defer rows.Close()

	items := make([]Balance, 0)
	for rows.Next() {
		b, err := scanSQLiteBalance(rows)
		if err != nil {
			return nil, fmt.Errorf("scan balance: %w", err)
		}
		items = append(items, b)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list balances: %w", err)
	}
	return items, nil
}

// Aggregate sums the filtered rows per time bucket in Go.
func (r *SQLiteRepo) Aggregate(ctx context.Context, params AggregateParams) ([]AggregatedRow, error) {
	if _, ok := bucketLayouts[params.Grouping]; !ok {
		return nil, unsupportedGrouping(params.Grouping)
	}
	items, err := r.List(ctx, params.Filter)
	if err != nil {
		return nil, err
	}
	return Summarize(items, params.Grouping, params.BySubtype), nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanSQLiteBalance(row rowScanner) (Balance, error) {
	var (
		b                   Balance
		id, energy, subtype string
		value, percentage   string
		description         sql.NullString
		date, createdAt     string
	)
	if err := row.Scan(&id, &energy, &subtype, &value, &percentage, &description, &date, &createdAt); err != nil {
		return Balance{}, err
	}

	var err error
	if b.ID, err = uuid.Parse(id); err != nil {
		return Balance{}, fmt.Errorf("parse stored id %q: %w", id, err)
	}
	if b.Date, err = time.Parse(DateLayout, date); err != nil {
		return Balance{}, fmt.Errorf("parse stored date %q: %w", date, err)
	}
	if b.CreatedAt, err = time.Parse(time.RFC3339Nano, createdAt); err != nil {
		return Balance{}, fmt.Errorf("parse stored created_at %q: %w", createdAt, err)
	}
	if description.Valid {
		text := description.String
		b.Description = &text
	}
	if err := fillBalance(&b, energy, subtype, value, percentage); err != nil {
		return Balance{}, err
	}
	return b, nil
}
