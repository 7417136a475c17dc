package repository

import (
	"context"
	"testing"
	"time"

	"electric_balance_backend/internal/balance/domain"
	"electric_balance_backend/platform/apperr"
	"electric_balance_backend/platform/db"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

func newTestSQLite(t *testing.T) *SQLiteRepo {
	t.Helper()
	ctx := context.Background()

	conn, err := db.OpenSQLite(ctx, "sqlite://:memory:")
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	t.Cleanup(func() { _ = conn.Close() })

	if err := db.Migrate(ctx, conn, db.DriverSQLite); err != nil {
		t.Fatalf("migrate sqlite: %v", err)
	}
	return NewSQLite(conn)
}

func mustDate(t *testing.T, value string) time.Time {
	t.Helper()
	parsed, err := time.Parse(DateLayout, value)
	if err != nil {
		t.Fatalf("parse date %q: %v", value, err)
	}
	return parsed
}

func newBalance(t *testing.T, energy domain.EnergyType, subtype domain.EnergySubtype, date string, value string) Balance {
	t.Helper()
	return Balance{
		ID:         uuid.New(),
		Type:       energy,
		Subtype:    subtype,
		Value:      decimal.RequireFromString(value),
		Percentage: decimal.RequireFromString("0.5"),
		Date:       mustDate(t, date),
	}
}

func sampleBatch(t *testing.T) []Balance {
	return []Balance{
		newBalance(t, domain.Renewable, domain.Wind, "2024-01-15", "100"),
		newBalance(t, domain.Renewable, domain.SolarPhotovoltaic, "2024-01-20", "50"),
		newBalance(t, domain.Demand, domain.BCDemand, "2024-01-10", "80"),
	}
}

func fullRange(t *testing.T) Filter {
	return Filter{StartDate: mustDate(t, "2024-01-01"), EndDate: mustDate(t, "2024-12-31")}
}

func TestSQLiteUpsertIsIdempotent(t *testing.T) {
	ctx := context.Background()
	repo := newTestSQLite(t)

	first, err := repo.Upsert(ctx, sampleBatch(t))
	if err != nil {
		t.Fatalf("first upsert: %v", err)
	}
	if first.Inserted != 3 || first.Updated != 0 || first.Unchanged != 0 {
		t.Fatalf("expected 3 inserts, got %+v", first)
	}

	stored, err := repo.List(ctx, fullRange(t))
	if err != nil {
		t.Fatalf("list: %v", err)
	}

	second, err := repo.Upsert(ctx, sampleBatch(t))
	if err != nil {
		t.Fatalf("second upsert: %v", err)
	}
	if second.Inserted != 0 || second.Unchanged != 3 {
		t.Fatalf("expected 3 unchanged rows, got %+v", second)
	}
	if second.Written() != 3 {
		t.Fatalf("expected 3 written, got %d", second.Written())
	}

	again, err := repo.List(ctx, fullRange(t))
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(again) != len(stored) {
		t.Fatalf("expected %d rows, got %d", len(stored), len(again))
	}
	for i := range again {
		if again[i].ID != stored[i].ID {
			t.Fatalf("expected id %s to be kept, got %s", stored[i].ID, again[i].ID)
		}
	}
}

func TestSQLiteUpsertOverwritesInPlace(t *testing.T) {
	ctx := context.Background()
	repo := newTestSQLite(t)

	if _, err := repo.Upsert(ctx, sampleBatch(t)); err != nil {
		t.Fatalf("seed: %v", err)
	}

	note := "revised"
	revised := newBalance(t, domain.Renewable, domain.Wind, "2024-01-15", "120.5")
	revised.Description = &note

	result, err := repo.Upsert(ctx, []Balance{revised})
	if err != nil {
		t.Fatalf("upsert revised: %v", err)
	}
	if result.Updated != 1 {
		t.Fatalf("expected 1 update, got %+v", result)
	}

	items, err := repo.List(ctx, fullRange(t))
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(items) != 3 {
		t.Fatalf("expected 3 rows after overwrite, got %d", len(items))
	}

	seen := make(map[Key]bool)
	for _, item := range items {
		if seen[item.Key()] {
			t.Fatalf("duplicate key %+v", item.Key())
		}
		seen[item.Key()] = true

		if item.Subtype == domain.Wind {
			if !item.Value.Equal(decimal.RequireFromString("120.5")) {
				t.Fatalf("expected overwritten value 120.5, got %s", item.Value)
			}
			if item.Description == nil || *item.Description != "revised" {
				t.Fatalf("expected overwritten description, got %v", item.Description)
			}
			if item.ID == revised.ID {
				t.Fatalf("expected original id to be kept")
			}
		}
	}
}

func TestSQLiteUpsertRollsBackWholeBatch(t *testing.T) {
	ctx := context.Background()
	repo := newTestSQLite(t)

	batch := sampleBatch(t)
	batch[2].ID = batch[0].ID

	if _, err := repo.Upsert(ctx, batch); err == nil {
		t.Fatalf("expected primary key violation")
	}

	items, err := repo.List(ctx, fullRange(t))
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(items) != 0 {
		t.Fatalf("expected no rows after failed batch, got %d", len(items))
	}
}

func TestSQLiteListOrdersAndFilters(t *testing.T) {
	ctx := context.Background()
	repo := newTestSQLite(t)

	batch := append(sampleBatch(t),
		newBalance(t, domain.Demand, domain.InternationalBalance, "2024-01-15", "-10"),
		newBalance(t, domain.Renewable, domain.Wind, "2023-12-31", "5"),
	)
	if _, err := repo.Upsert(ctx, batch); err != nil {
		t.Fatalf("seed: %v", err)
	}

	items, err := repo.List(ctx, fullRange(t))
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(items) != 4 {
		t.Fatalf("expected 4 rows in range, got %d", len(items))
	}
	wantOrder := []domain.EnergySubtype{domain.BCDemand, domain.InternationalBalance, domain.Wind, domain.SolarPhotovoltaic}
	for i, want := range wantOrder {
		if items[i].Subtype != want {
			t.Fatalf("position %d: expected %s, got %s", i, want, items[i].Subtype)
		}
	}

	renewable := domain.Renewable
	filter := fullRange(t)
	filter.Type = &renewable
	items, err = repo.List(ctx, filter)
	if err != nil {
		t.Fatalf("list renewable: %v", err)
	}
	if len(items) != 2 {
		t.Fatalf("expected 2 renewable rows, got %d", len(items))
	}

	wind := domain.Wind
	filter.Subtype = &wind
	items, err = repo.List(ctx, filter)
	if err != nil {
		t.Fatalf("list wind: %v", err)
	}
	if len(items) != 1 || !items[0].Value.Equal(decimal.NewFromInt(100)) {
		t.Fatalf("expected single wind row of 100, got %+v", items)
	}
}

func TestSQLiteAggregateGroupsByMonthAndType(t *testing.T) {
	ctx := context.Background()
	repo := newTestSQLite(t)

	if _, err := repo.Upsert(ctx, sampleBatch(t)); err != nil {
		t.Fatalf("seed: %v", err)
	}

	rows, err := repo.Aggregate(ctx, AggregateParams{Filter: fullRange(t), Grouping: GroupByMonth})
	if err != nil {
		t.Fatalf("aggregate: %v", err)
	}
	if len(rows) != 2 {
		t.Fatalf("expected 2 rows, got %d: %+v", len(rows), rows)
	}

	if rows[0].TimeGroup != "2024-01" || rows[0].Type != domain.Demand || !rows[0].TotalValue.Equal(decimal.NewFromInt(80)) {
		t.Fatalf("unexpected first row %+v", rows[0])
	}
	if rows[1].TimeGroup != "2024-01" || rows[1].Type != domain.Renewable || !rows[1].TotalValue.Equal(decimal.NewFromInt(150)) {
		t.Fatalf("unexpected second row %+v", rows[1])
	}
	if rows[0].Subtype != nil || rows[1].Subtype != nil {
		t.Fatalf("expected no subtype without subtype grouping")
	}
}

func TestSQLiteGetAndDeleteReportNotFound(t *testing.T) {
	ctx := context.Background()
	repo := newTestSQLite(t)

	if _, err := repo.GetByID(ctx, uuid.New()); !apperr.Is(err, apperr.KindNotFound) {
		t.Fatalf("expected not found on get, got %v", err)
	}
	if _, err := repo.Delete(ctx, uuid.New()); !apperr.Is(err, apperr.KindNotFound) {
		t.Fatalf("expected not found on delete, got %v", err)
	}

	batch := sampleBatch(t)
	if _, err := repo.Upsert(ctx, batch); err != nil {
		t.Fatalf("seed: %v", err)
	}

	got, err := repo.GetByID(ctx, batch[0].ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.Subtype != domain.Wind || got.Date.Format(DateLayout) != "2024-01-15" {
		t.Fatalf("unexpected balance %+v", got)
	}

	deleted, err := repo.Delete(ctx, batch[0].ID)
	if err != nil {
		t.Fatalf("delete: %v", err)
	}
	if deleted.ID != batch[0].ID {
		t.Fatalf("expected deleted id %s, got %s", batch[0].ID, deleted.ID)
	}
	if _, err := repo.GetByID(ctx, batch[0].ID); !apperr.Is(err, apperr.KindNotFound) {
		t.Fatalf("expected not found after delete, got %v", err)
	}
}
