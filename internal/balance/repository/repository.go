package repository

import (
	"context"
	"errors"
	"fmt"

	"electric_balance_backend/internal/balance/domain"
	"electric_balance_backend/platform/apperr"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const balanceColumns = `id, type, subtype, value::text, percentage::text, description, date, created_at`

const upsertBalanceQuery = `
	INSERT INTO balances (id, type, subtype, value, percentage, description, date)
	VALUES ($1, $2, $3, $4::numeric, $5::numeric, $6, $7::date)
	ON CONFLICT (type, subtype, date) DO UPDATE SET
		value = EXCLUDED.value,
		percentage = EXCLUDED.percentage,
		description = EXCLUDED.description,
		updated_at = now()
	WHERE (balances.value, balances.percentage, balances.description)
		IS DISTINCT FROM (EXCLUDED.value, EXCLUDED.percentage, EXCLUDED.description)
	RETURNING id`

var pgBuckets = map[TimeGrouping]string{
	GroupByMonth: `TO_CHAR(date, 'YYYY-MM')`,
	GroupByYear:  `TO_CHAR(date, 'YYYY')`,
}

// Repo is the Postgres implementation of Repository.
type Repo struct {
	pool *pgxpool.Pool
}

// New creates a new Postgres balance repository.
func New(pool *pgxpool.Pool) *Repo {
	return &Repo{pool: pool}
}

// Compile-time check that Repo implements Repository.
var _ Repository = (*Repo)(nil)

// Ping checks that the database answers.
func (r *Repo) Ping(ctx context.Context) error {
	return r.pool.Ping(ctx)
}

// Upsert writes the batch inside one transaction using a pipelined batch.
// Unchanged rows are skipped by the conflict clause and return no id.
func (r *Repo) Upsert(ctx context.Context, balances []Balance) (UpsertResult, error) {
	if len(balances) == 0 {
		return UpsertResult{}, nil
	}

	tx, err := r.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return UpsertResult{}, fmt.Errorf("begin balance upsert: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	batch := &pgx.Batch{}
	for _, b := range balances {
		batch.Queue(upsertBalanceQuery,
			b.ID, string(b.Type), string(b.Subtype), b.Value.String(), b.Percentage.String(), b.Description, b.Date,
		)
	}

	results := tx.SendBatch(ctx, batch)
	result, err := upsertEach(balances, pgx.ErrNoRows, func(Balance) (uuid.UUID, error) {
		var id uuid.UUID
		err := results.QueryRow().Scan(&id)
		return id, err
	})
	if err != nil {
		_ = results.Close()
		return UpsertResult{}, err
	}
	if err := results.Close(); err != nil {
		return UpsertResult{}, fmt.Errorf("close balance batch: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return UpsertResult{}, fmt.Errorf("commit balance upsert: %w", err)
	}
	return result, nil
}

// GetByID retrieves a balance by its ID.
func (r *Repo) GetByID(ctx context.Context, id uuid.UUID) (Balance, error) {
	query := `SELECT ` + balanceColumns + ` FROM balances WHERE id = $1`

	b, err := scanPgBalance(r.pool.QueryRow(ctx, query, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return Balance{}, notFound(id)
	}
	if err != nil {
		return Balance{}, fmt.Errorf("get balance: %w", err)
	}
	return b, nil
}

// Delete removes a balance and returns the deleted row.
func (r *Repo) Delete(ctx context.Context, id uuid.UUID) (Balance, error) {
	query := `DELETE FROM balances WHERE id = $1 RETURNING ` + balanceColumns

	b, err := scanPgBalance(r.pool.QueryRow(ctx, query, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return Balance{}, notFound(id)
	}
	if err != nil {
		return Balance{}, fmt.Errorf("delete balance: %w", err)
	}
	return b, nil
}

// List returns the balances in range ordered by date, then type.
func (r *Repo) List(ctx context.Context, filter Filter) ([]Balance, error) {
	query := `
		SELECT ` + balanceColumns + `
		FROM balances
		WHERE date BETWEEN $1::date AND $2::date
			AND ($3::text IS NULL OR type = $3)
			AND ($4::text IS NULL OR subtype = $4)
		ORDER BY date ASC, type COLLATE "C" ASC, subtype COLLATE "C" ASC`

	rows, err := r.pool.Query(ctx, query, filter.StartDate, filter.EndDate, typeParam(filter.Type), subtypeParam(filter.Subtype))
	if err != nil {
		return nil, fmt.Errorf("list balances: %w", err)
	}
	defer rows.Close()

	items := make([]Balance, 0)
	for rows.Next() {
		b, err := scanPgBalance(rows)
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

// Aggregate sums values per time bucket and type, and per subtype when requested.
func (r *Repo) Aggregate(ctx context.Context, params AggregateParams) ([]AggregatedRow, error) {
	bucket, ok := pgBuckets[params.Grouping]
	if !ok {
		return nil, unsupportedGrouping(params.Grouping)
	}

	groupCols := "type"
	order := `time_group ASC, type COLLATE "C" ASC`
	if params.BySubtype {
		groupCols = "type, subtype"
		order += `, subtype COLLATE "C" ASC`
	}

	query := fmt.Sprintf(`
		SELECT %s AS time_group, %s, SUM(value)::text
		FROM balances
		WHERE date BETWEEN $1::date AND $2::date
			AND ($3::text IS NULL OR type = $3)
			AND ($4::text IS NULL OR subtype = $4)
		GROUP BY time_group, %s
		ORDER BY %s`, bucket, groupCols, groupCols, order)

	rows, err := r.pool.Query(ctx, query, params.StartDate, params.EndDate, typeParam(params.Type), subtypeParam(params.Subtype))
	if err != nil {
		return nil, fmt.Errorf("aggregate balances: %w", err)
	}
	defer rows.Close()

	items := make([]AggregatedRow, 0)
	for rows.Next() {
		var (
			row     AggregatedRow
			energy  string
			subtype string
			total   string
		)
		dest := []any{&row.TimeGroup, &energy}
		if params.BySubtype {
			dest = append(dest, &subtype)
		}
		dest = append(dest, &total)

		if err := rows.Scan(dest...); err != nil {
			return nil, fmt.Errorf("scan aggregated balance: %w", err)
		}
		if err := fillAggregated(&row, energy, subtype, total, params.BySubtype); err != nil {
			return nil, err
		}
		items = append(items, row)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("aggregate balances: %w", err)
	}
	return items, nil
}

func scanPgBalance(row pgx.Row) (Balance, error) {
	var (
		b                 Balance
		energy, subtype   string
		value, percentage string
	)
	if err := row.Scan(&b.ID, &energy, &subtype, &value, &percentage, &b.Description, &b.Date, &b.CreatedAt); err != nil {
		return Balance{}, err
	}
	if err := fillBalance(&b, energy, subtype, value, percentage); err != nil {
		return Balance{}, err
	}
	return b, nil
}

func unsupportedGrouping(grouping TimeGrouping) error {
	return apperr.BadRequest(fmt.Sprintf("unsupported time grouping %q", grouping))
}

func notFound(id uuid.UUID) error {
	return apperr.NotFound(fmt.Sprintf("balance record %s not found", id))
}

func typeParam(t *domain.EnergyType) *string {
	if t == nil {
		return nil
	}
	value := string(*t)
	return &value
}

func subtypeParam(s *domain.EnergySubtype) *string {
	if s == nil {
		return nil
	}
	value := string(*s)
	return &value
}
