package repository

import (
	"sort"
	"time"

	"electric_balance_backend/internal/balance/domain"

	"github.com/shopspring/decimal"
)

var bucketLayouts = map[TimeGrouping]string{
	GroupByMonth: "2006-01",
	GroupByYear:  "2006",
}

// Bucket truncates a calendar date to its month ("YYYY-MM") or year ("YYYY").
func Bucket(date time.Time, grouping TimeGrouping) (string, bool) {
	layout, ok := bucketLayouts[grouping]
	if !ok {
		return "", false
	}
	return date.Format(layout), true
}

// Summarize sums balances per time bucket and type, adding the subtype to the
// key when bySubtype is set. Rows are ordered by bucket, type, then subtype.
func Summarize(balances []Balance, grouping TimeGrouping, bySubtype bool) []AggregatedRow {
	type groupKey struct {
		bucket  string
		energy  domain.EnergyType
		subtype domain.EnergySubtype
	}

	totals := make(map[groupKey]decimal.Decimal)
	keys := make([]groupKey, 0)
	for _, b := range balances {
		bucket, ok := Bucket(b.Date, grouping)
		if !ok {
			continue
		}
		key := groupKey{bucket: bucket, energy: b.Type}
		if bySubtype {
			key.subtype = b.Subtype
		}
		sum, seen := totals[key]
		if !seen {
			keys = append(keys, key)
		}
		totals[key] = sum.Add(b.Value)
	}

	sort.Slice(keys, func(i, j int) bool {
		a, b := keys[i], keys[j]
		if a.bucket != b.bucket {
			return a.bucket < b.bucket
		}
		if a.energy != b.energy {
			return a.energy < b.energy
		}
		return a.subtype < b.subtype
	})

	rows := make([]AggregatedRow, 0, len(keys))
	for _, key := range keys {
		row := AggregatedRow{
			TimeGroup:  key.bucket,
			Type:       key.energy,
			TotalValue: totals[key],
		}
		if bySubtype {
			subtype := key.subtype
			row.Subtype = &subtype
		}
		rows = append(rows, row)
	}
	return rows
}
