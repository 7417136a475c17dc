package repository

import (
	"errors"
	"fmt"

	"github.com/google/uuid"
)

// upsertEach writes balances in order and tallies each outcome. write returns
// the id of the stored row, or noRows when the conflict clause skipped an
// unchanged record. A returned id other than the one sent means an existing
// row was updated in place.
func upsertEach(balances []Balance, noRows error, write func(Balance) (uuid.UUID, error)) (UpsertResult, error) {
	var result UpsertResult
	for _, b := range balances {
		id, err := write(b)
		switch {
		case errors.Is(err, noRows):
			result.Unchanged++
		case err != nil:
			key := b.Key()
			return UpsertResult{}, fmt.Errorf("upsert balance %s/%s/%s: %w", key.Type, key.Subtype, key.Date, err)
		case id == b.ID:
			result.Inserted++
		default:
			result.Updated++
		}
	}
	return result, nil
}
