// Package events provides domain event definitions for decoupled,
// event-driven communication between modules.
// Infrastructure (Bus, Handler) is in platform/events.
package events

import (
	"electric_balance_backend/platform/events"
	"electric_balance_backend/platform/logger"

	"github.com/google/uuid"
)

// Re-export platform types for convenience
type (
	Event       = events.Event
	Bus         = events.Bus
	Handler     = events.Handler
	HandlerFunc = events.HandlerFunc
	BaseEvent   = events.BaseEvent
	InMemoryBus = events.InMemoryBus
)

// Re-export platform functions
var NewBaseEvent = events.NewBaseEvent

// NewInMemoryBus creates the process-local bus shared by the modules.
func NewInMemoryBus(log *logger.Logger) *InMemoryBus {
	return events.NewInMemoryBus(log)
}

// =============================================================================
// Balance Domain Events
// =============================================================================

// BalancesRefreshed is published after a date range was ingested and committed.
type BalancesRefreshed struct {
	BaseEvent
	StartDate string `json:"startDate"`
	EndDate   string `json:"endDate"`
	Inserted  int    `json:"inserted"`
	Updated   int    `json:"updated"`
	Unchanged int    `json:"unchanged"`
	Source    string `json:"source"` // "api", "scheduler", "backfill"
}

func (e BalancesRefreshed) EventName() string { return "balance.range.refreshed" }

// BalanceDeleted is published when a stored balance is removed by id.
type BalanceDeleted struct {
	BaseEvent
	BalanceID uuid.UUID `json:"balanceId"`
	Type      string    `json:"type"`
	Subtype   string    `json:"subtype"`
	Date      string    `json:"date"`
}

func (e BalanceDeleted) EventName() string { return "balance.record.deleted" }
