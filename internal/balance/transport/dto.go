package transport

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Time groupings accepted by the query endpoints.
const (
	TimeGroupingMonth = "month"
	TimeGroupingYear  = "year"
)

// Request DTOs

// CreateBalanceInput is one flattened upstream row after tag translation.
// Type and Subtype hold the canonical value when the raw tag resolved and the
// raw tag otherwise, so unknown values are reported as they were received.
type CreateBalanceInput struct {
	Type        string  `json:"type" validate:"required,energy_type"`
	Subtype     string  `json:"subtype" validate:"required,energy_subtype"`
	Value       string  `json:"value" validate:"required,decimal"`
	Percentage  string  `json:"percentage" validate:"required,decimal,positive"`
	Description *string `json:"description,omitempty"`
	Date        string  `json:"date" validate:"required,iso8601"`
}

// RefreshRequest selects the date range to ingest.
type RefreshRequest struct {
	StartDate string `form:"start_date" json:"start_date" validate:"required,iso8601"`
	EndDate   string `form:"end_date" json:"end_date" validate:"required,iso8601"`
}

// EnqueueRefreshRequest schedules a background refresh. An empty range means
// the previous calendar day.
type EnqueueRefreshRequest struct {
	StartDate string `json:"start_date" validate:"required_with=EndDate,omitempty,iso8601"`
	EndDate   string `json:"end_date" validate:"required_with=StartDate,omitempty,iso8601"`
}

// QueryRequest filters the flat balance query.
type QueryRequest struct {
	StartDate    string `form:"start_date" json:"start_date" validate:"required,iso8601"`
	EndDate      string `form:"end_date" json:"end_date" validate:"required,iso8601"`
	Type         string `form:"type" json:"type" validate:"omitempty,energy_type"`
	Subtype      string `form:"subtype" json:"subtype" validate:"omitempty,energy_subtype"`
	TimeGrouping string `form:"time_grouping" json:"time_grouping" validate:"omitempty,oneof=month year"`
}

// CategorizedRequest filters the categorized balance query.
type CategorizedRequest struct {
	StartDate    string `form:"start_date" json:"start_date" validate:"required,iso8601"`
	EndDate      string `form:"end_date" json:"end_date" validate:"required,iso8601"`
	Subtype      string `form:"subtype" json:"subtype" validate:"omitempty,energy_subtype"`
	TimeGrouping string `form:"time_grouping" json:"time_grouping" validate:"omitempty,oneof=month year"`
}

// Response DTOs

// BalanceResponse is one stored balance with its display names.
type BalanceResponse struct {
	ID             uuid.UUID       `json:"id"`
	Type           string          `json:"type"`
	TypeDisplay    string          `json:"typeDisplay"`
	Subtype        string          `json:"subtype"`
	SubtypeDisplay string          `json:"subtypeDisplay"`
	Value          decimal.Decimal `json:"value"`
	Percentage     decimal.Decimal `json:"percentage"`
	Description    *string         `json:"description,omitempty"`
	Date           string          `json:"date"`
	CreatedAt      time.Time       `json:"createdAt"`
}

// AggregatedResponse is the summed value of one time bucket.
type AggregatedResponse struct {
	TimeGroup      string          `json:"timeGroup"`
	Type           string          `json:"type"`
	TypeDisplay    string          `json:"typeDisplay"`
	Subtype        *string         `json:"subtype,omitempty"`
	SubtypeDisplay *string         `json:"subtypeDisplay,omitempty"`
	TotalValue     decimal.Decimal `json:"totalValue"`
}

// Categorized partitions rows into the four energy types. Every key is
// always present, empty when no row matched.
type Categorized[T any] struct {
	Renewable    []T `json:"RENEWABLE"`
	NonRenewable []T `json:"NON_RENEWABLE"`
	Storage      []T `json:"STORAGE"`
	Demand       []T `json:"DEMAND"`
}

// NewCategorized returns a partition with all four buckets initialized.
func NewCategorized[T any]() Categorized[T] {
	return Categorized[T]{
		Renewable:    make([]T, 0),
		NonRenewable: make([]T, 0),
		Storage:      make([]T, 0),
		Demand:       make([]T, 0),
	}
}

// DateRange echoes a refreshed range.
type DateRange struct {
	StartDate string `json:"startDate"`
	EndDate   string `json:"endDate"`
}

// RefreshResponse reports a completed ingestion.
type RefreshResponse struct {
	Message   string    `json:"message"`
	Count     int       `json:"count"`
	Inserted  int       `json:"inserted"`
	Updated   int       `json:"updated"`
	Unchanged int       `json:"unchanged"`
	DateRange DateRange `json:"dateRange"`
}

// EnqueueRefreshResponse reports a scheduled ingestion.
type EnqueueRefreshResponse struct {
	Message   string     `json:"message"`
	TaskID    string     `json:"taskId"`
	DateRange *DateRange `json:"dateRange,omitempty"`
}

// DeleteResponse returns the removed balance.
type DeleteResponse struct {
	Message string          `json:"message"`
	Balance BalanceResponse `json:"balance"`
}

// TaxonomyEntry is a canonical value with its display name.
type TaxonomyEntry struct {
	Value   string `json:"value"`
	Display string `json:"display"`
}

// TaxonomyType is an energy type with its subtypes.
type TaxonomyType struct {
	TaxonomyEntry
	Subtypes []TaxonomyEntry `json:"subtypes"`
}
