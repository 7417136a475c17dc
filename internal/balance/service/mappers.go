package service

import (
	"electric_balance_backend/internal/balance/repository"
	"electric_balance_backend/internal/balance/transport"
)

func toBalanceResponse(b repository.Balance) transport.BalanceResponse {
	return transport.BalanceResponse{
		ID:             b.ID,
		Type:           string(b.Type),
		TypeDisplay:    b.Type.Display(),
		Subtype:        string(b.Subtype),
		SubtypeDisplay: b.Subtype.Display(),
		Value:          b.Value,
		Percentage:     b.Percentage,
		Description:    b.Description,
		Date:           b.Date.Format(repository.DateLayout),
		CreatedAt:      b.CreatedAt,
	}
}

func toBalanceResponses(items []repository.Balance) []transport.BalanceResponse {
	out := make([]transport.BalanceResponse, 0, len(items))
	for _, b := range items {
		out = append(out, toBalanceResponse(b))
	}
	return out
}

func toAggregatedResponses(rows []repository.AggregatedRow) []transport.AggregatedResponse {
	out := make([]transport.AggregatedResponse, 0, len(rows))
	for _, row := range rows {
		resp := transport.AggregatedResponse{
			TimeGroup:   row.TimeGroup,
			Type:        string(row.Type),
			TypeDisplay: row.Type.Display(),
			TotalValue:  row.TotalValue,
		}
		if row.Subtype != nil {
			subtype := string(*row.Subtype)
			display := row.Subtype.Display()
			resp.Subtype = &subtype
			resp.SubtypeDisplay = &display
		}
		out = append(out, resp)
	}
	return out
}
