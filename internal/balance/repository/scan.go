package repository

import (
	"fmt"

	"electric_balance_backend/internal/balance/domain"

	"github.com/shopspring/decimal"
)

func fillBalance(b *Balance, energy, subtype, value, percentage string) error {
	b.Type = domain.EnergyType(energy)
	b.Subtype = domain.EnergySubtype(subtype)

	var err error
	if b.Value, err = decimal.NewFromString(value); err != nil {
		return fmt.Errorf("parse stored value %q: %w", value, err)
	}
	if b.Percentage, err = decimal.NewFromString(percentage); err != nil {
		return fmt.Errorf("parse stored percentage %q: %w", percentage, err)
	}
	return nil
}

func fillAggregated(row *AggregatedRow, energy, subtype, total string, bySubtype bool) error {
	row.Type = domain.EnergyType(energy)
	if bySubtype {
		s := domain.EnergySubtype(subtype)
		row.Subtype = &s
	}

	sum, err := decimal.NewFromString(total)
	if err != nil {
		return fmt.Errorf("parse aggregated total %q: %w", total, err)
	}
	row.TotalValue = sum
	return nil
}
