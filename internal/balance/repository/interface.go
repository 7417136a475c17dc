package repository

import (
	"context"
	"time"

	"electric_balance_backend/internal/balance/domain"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// DateLayout is the calendar date format used for storage and grouping.
const DateLayout = "2006-01-02"

// Balance is one stored observation, unique per (type, subtype, date).
type Balance struct {
	ID          uuid.UUID            `db:"id"`
	Type        domain.EnergyType    `db:"type"`
	Subtype     domain.EnergySubtype `db:"subtype"`
	Value       decimal.Decimal      `db:"value"`
	Percentage  decimal.Decimal      `db:"percentage"`
	Description *string              `db:"description"`
	Date        time.Time            `db:"date"`
	CreatedAt   time.Time            `db:"created_at"`
}

// Key identifies the upsert target of a balance.
type Key struct {
	Type    domain.EnergyType
	Subtype domain.EnergySubtype
	Date    string
}

// Key returns the uniqueness key of the balance.
func (b Balance) Key() Key {
	return Key{Type: b.Type, Subtype: b.Subtype, Date: b.Date.Format(DateLayout)}
}

// TimeGrouping selects the bucket used by Aggregate.
type TimeGrouping string

const (
	GroupByMonth TimeGrouping = "month"
	GroupByYear  TimeGrouping = "year"
)

// Filter restricts reads to an inclusive date range and optional type/subtype.
type Filter struct {
	StartDate time.Time
	EndDate   time.Time
	Type      *domain.EnergyType
	Subtype   *domain.EnergySubtype
}

// AggregateParams describes a grouped sum over the filtered range.
// Type is always part of the grouping key; Subtype only when BySubtype is set.
type AggregateParams struct {
	Filter
	Grouping  TimeGrouping
	BySubtype bool
}

// AggregatedRow is the summed value of one time bucket.
type AggregatedRow struct {
	TimeGroup  string
	Type       domain.EnergyType
	Subtype    *domain.EnergySubtype
	TotalValue decimal.Decimal
}

// UpsertResult reports how each record of a batch was applied.
type UpsertResult struct {
	Inserted  int
	Updated   int
	Unchanged int
}

// Written returns the number of records in the batch.
func (r UpsertResult) Written() int {
	return r.Inserted + r.Updated + r.Unchanged
}

// BalanceReader provides read operations for balances.
type BalanceReader interface {
	GetByID(ctx context.Context, id uuid.UUID) (Balance, error)
	List(ctx context.Context, filter Filter) ([]Balance, error)
	Aggregate(ctx context.Context, params AggregateParams) ([]AggregatedRow, error)
}

// BalanceWriter provides write operations for balances.
type BalanceWriter interface {
	// Upsert writes the whole batch atomically. Records whose key already
	// exists replace the stored values; the stored id and createdAt are kept.
	Upsert(ctx context.Context, balances []Balance) (UpsertResult, error)
	// Delete removes a balance and returns it.
	Delete(ctx context.Context, id uuid.UUID) (Balance, error)
}

// Repository combines all balance repository operations.
type Repository interface {
	BalanceReader
	BalanceWriter
	Ping(ctx context.Context) error
}
