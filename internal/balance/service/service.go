// Package service runs the balance ingestion pipeline and the read-side
// queries over stored balances.
package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"electric_balance_backend/internal/balance/domain"
	"electric_balance_backend/internal/balance/repository"
	"electric_balance_backend/internal/balance/transport"
	"electric_balance_backend/internal/events"
	"electric_balance_backend/internal/ree"
	"electric_balance_backend/platform/apperr"
	"electric_balance_backend/platform/logger"
	"electric_balance_backend/platform/sanitize"
	"electric_balance_backend/platform/validator"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Refresh sources recorded on BalancesRefreshed events.
const (
	SourceAPI       = "api"
	SourceScheduler = "scheduler"
	SourceBackfill  = "backfill"
)

const (
	msgSaved           = "Balances saved successfully"
	msgDeleted         = "Balance deleted successfully"
	msgQueued          = "Balance refresh queued"
	msgInvalidRecords  = "Validation failed for one or more balance entries"
	msgStorageFailed   = "balance storage is unavailable"
	msgRangeOrder      = "start_date must not be after end_date"
	msgInvalidDate     = "%s must be a valid ISO 8601 date string"
	msgSchedulerFailed = "failed to queue the balance refresh"
)

// Fetcher retrieves raw balance payloads from the statistics API.
type Fetcher interface {
	FetchBalance(ctx context.Context, start, end time.Time) ([]byte, error)
}

// RefreshScheduler queues background refreshes. Empty dates select the
// previous calendar day when the task runs.
type RefreshScheduler interface {
	EnqueueRefresh(ctx context.Context, startDate, endDate string) (string, error)
}

// Service implements the balance use cases.
type Service struct {
	repo      repository.Repository
	fetcher   Fetcher
	scheduler RefreshScheduler
	val       *validator.Validator
	bus       events.Bus
	log       *logger.Logger
	newID     func() uuid.UUID
}

// New creates a balance service. val must have the transport validations
// registered.
func New(repo repository.Repository, fetcher Fetcher, val *validator.Validator, bus events.Bus, log *logger.Logger) *Service {
	return &Service{
		repo:    repo,
		fetcher: fetcher,
		val:     val,
		bus:     bus,
		log:     log.WithComponent("balance"),
		newID:   uuid.New,
	}
}

// SetScheduler enables queued refreshes.
func (s *Service) SetScheduler(scheduler RefreshScheduler) {
	s.scheduler = scheduler
}

// Refresh ingests the range named by an API request.
func (s *Service) Refresh(ctx context.Context, req transport.RefreshRequest) (transport.RefreshResponse, error) {
	start, end, err := parseRange(req.StartDate, req.EndDate)
	if err != nil {
		return transport.RefreshResponse{}, err
	}
	return s.RefreshRange(ctx, start, end, SourceAPI)
}

// RefreshRange fetches, validates and stores every balance between start and
// end inclusive. Nothing is stored unless the whole batch is valid.
func (s *Service) RefreshRange(ctx context.Context, start, end time.Time, source string) (transport.RefreshResponse, error) {
	startDate, endDate := start.Format(repository.DateLayout), end.Format(repository.DateLayout)
	log := s.log.WithContext(ctx)

	if start.After(end) {
		return transport.RefreshResponse{}, apperr.BadRequest(msgRangeOrder)
	}

	result, err := s.ingest(ctx, start, end)
	if err != nil {
		log.IngestionFailed(startDate, endDate, apperr.GetKind(err).String(), err)
		return transport.RefreshResponse{}, err
	}
	log.IngestionCompleted(startDate, endDate, result.Written(), result.Inserted, result.Updated)

	s.bus.Publish(ctx, events.BalancesRefreshed{
		BaseEvent: events.NewBaseEvent(),
		StartDate: startDate,
		EndDate:   endDate,
		Inserted:  result.Inserted,
		Updated:   result.Updated,
		Unchanged: result.Unchanged,
		Source:    source,
	})

	return transport.RefreshResponse{
		Message:   msgSaved,
		Count:     result.Written(),
		Inserted:  result.Inserted,
		Updated:   result.Updated,
		Unchanged: result.Unchanged,
		DateRange: transport.DateRange{StartDate: startDate, EndDate: endDate},
	}, nil
}

func (s *Service) ingest(ctx context.Context, start, end time.Time) (repository.UpsertResult, error) {
	body, err := s.fetcher.FetchBalance(ctx, start, end)
	if err != nil {
		if apperr.GetKind(err) == apperr.KindUnknown {
			err = apperr.Upstream("failed to fetch data from the statistics API", err)
		}
		return repository.UpsertResult{}, err
	}

	payload, err := ree.Decode(s.val, body)
	if err != nil {
		return repository.UpsertResult{}, err
	}

	balances, err := s.validateRows(payload.Flatten())
	if err != nil {
		return repository.UpsertResult{}, err
	}

	result, err := s.repo.Upsert(ctx, dedupe(balances))
	if err != nil {
		return repository.UpsertResult{}, storageError("upsert", err)
	}
	return result, nil
}

// validateRows checks every row and collects every failure before deciding.
// Rows are reported by their position in the flattened payload.
func (s *Service) validateRows(rows []ree.Row) ([]repository.Balance, error) {
	balances := make([]repository.Balance, 0, len(rows))
	var report []validator.FieldError

	for i, row := range rows {
		input := toInput(row)
		if err := s.val.Struct(input); err != nil {
			report = append(report, validator.Nest(fmt.Sprintf("[%d]", i), input, s.val.Report(err)))
			continue
		}
		b, err := s.toBalance(input)
		if err != nil {
			report = append(report, validator.FieldError{
				Property:    fmt.Sprintf("[%d]", i),
				Value:       input,
				Constraints: []string{err.Error()},
			})
			continue
		}
		balances = append(balances, b)
	}

	if len(report) > 0 {
		return nil, apperr.Validation(msgInvalidRecords).WithDetails(report)
	}
	return balances, nil
}

// toInput translates tags to canonical values where they resolve and keeps
// the raw tag otherwise.
func toInput(row ree.Row) transport.CreateBalanceInput {
	input := transport.CreateBalanceInput{
		Type:        row.Type,
		Subtype:     row.Subtype,
		Value:       strings.TrimSpace(row.Value),
		Percentage:  strings.TrimSpace(row.Percentage),
		Description: sanitize.OptionalText(row.Description),
		Date:        strings.TrimSpace(row.Datetime),
	}
	if t, ok := domain.ParseType(row.Type); ok {
		input.Type = string(t)
	}
	if st, ok := domain.ParseSubtype(row.Subtype); ok {
		input.Subtype = string(st)
	}
	return input
}

func (s *Service) toBalance(input transport.CreateBalanceInput) (repository.Balance, error) {
	value, err := decimal.NewFromString(input.Value)
	if err != nil {
		return repository.Balance{}, fmt.Errorf("value: %w", err)
	}
	percentage, err := decimal.NewFromString(input.Percentage)
	if err != nil {
		return repository.Balance{}, fmt.Errorf("percentage: %w", err)
	}
	date, err := calendarDate(input.Date)
	if err != nil {
		return repository.Balance{}, fmt.Errorf("date: %w", err)
	}
	return repository.Balance{
		ID:          s.newID(),
		Type:        domain.EnergyType(input.Type),
		Subtype:     domain.EnergySubtype(input.Subtype),
		Value:       value,
		Percentage:  percentage,
		Description: input.Description,
		Date:        date,
	}, nil
}

// dedupe keeps one balance per key. The last occurrence wins and takes the
// position of the first.
func dedupe(balances []repository.Balance) []repository.Balance {
	positions := make(map[repository.Key]int, len(balances))
	out := make([]repository.Balance, 0, len(balances))
	for _, b := range balances {
		key := b.Key()
		if pos, seen := positions[key]; seen {
			id := out[pos].ID
			out[pos] = b
			out[pos].ID = id
			continue
		}
		positions[key] = len(out)
		out = append(out, b)
	}
	return out
}

// ScheduleRefresh queues a background refresh. An empty range selects the
// previous calendar day at execution time.
func (s *Service) ScheduleRefresh(ctx context.Context, req transport.EnqueueRefreshRequest) (transport.EnqueueRefreshResponse, error) {
	if s.scheduler == nil {
		return transport.EnqueueRefreshResponse{}, apperr.Internal(msgSchedulerFailed, errors.New("no scheduler configured"))
	}

	var dateRange *transport.DateRange
	if req.StartDate != "" || req.EndDate != "" {
		start, end, err := parseRange(req.StartDate, req.EndDate)
		if err != nil {
			return transport.EnqueueRefreshResponse{}, err
		}
		dateRange = &transport.DateRange{
			StartDate: start.Format(repository.DateLayout),
			EndDate:   end.Format(repository.DateLayout),
		}
	}

	var startDate, endDate string
	if dateRange != nil {
		startDate, endDate = dateRange.StartDate, dateRange.EndDate
	}

	taskID, err := s.scheduler.EnqueueRefresh(ctx, startDate, endDate)
	if err != nil {
		s.log.WithContext(ctx).Error("enqueue refresh failed", "error", err)
		return transport.EnqueueRefreshResponse{}, apperr.Internal(msgSchedulerFailed, err)
	}

	return transport.EnqueueRefreshResponse{Message: msgQueued, TaskID: taskID, DateRange: dateRange}, nil
}

// Query runs the flat query. It returns []transport.BalanceResponse without a
// time grouping and []transport.AggregatedResponse with one.
func (s *Service) Query(ctx context.Context, req transport.QueryRequest) (interface{}, error) {
	filter, err := buildFilter(req.StartDate, req.EndDate, req.Type, req.Subtype)
	if err != nil {
		return nil, err
	}

	if req.TimeGrouping == "" {
		items, err := s.repo.List(ctx, filter)
		if err != nil {
			return nil, storageError("list", err)
		}
		return toBalanceResponses(items), nil
	}

	rows, err := s.repo.Aggregate(ctx, repository.AggregateParams{
		Filter:    filter,
		Grouping:  repository.TimeGrouping(req.TimeGrouping),
		BySubtype: filter.Subtype != nil,
	})
	if err != nil {
		return nil, storageError("aggregate", err)
	}
	return toAggregatedResponses(rows), nil
}

// QueryCategorized runs the query partitioned by energy type. Aggregated rows
// are always split by subtype.
func (s *Service) QueryCategorized(ctx context.Context, req transport.CategorizedRequest) (interface{}, error) {
	filter, err := buildFilter(req.StartDate, req.EndDate, "", req.Subtype)
	if err != nil {
		return nil, err
	}

	if req.TimeGrouping == "" {
		items, err := s.repo.List(ctx, filter)
		if err != nil {
			return nil, storageError("list", err)
		}
		return partition(s.log.WithContext(ctx), toBalanceResponses(items), func(r transport.BalanceResponse) string { return r.Type }), nil
	}

	rows, err := s.repo.Aggregate(ctx, repository.AggregateParams{
		Filter:    filter,
		Grouping:  repository.TimeGrouping(req.TimeGrouping),
		BySubtype: true,
	})
	if err != nil {
		return nil, storageError("aggregate", err)
	}
	return partition(s.log.WithContext(ctx), toAggregatedResponses(rows), func(r transport.AggregatedResponse) string { return r.Type }), nil
}

// partition places rows into the four type buckets. Rows of an unknown type
// are dropped and logged.
func partition[T any](log *logger.Logger, rows []T, typeOf func(T) string) transport.Categorized[T] {
	out := transport.NewCategorized[T]()
	dropped := make(map[string]int)
	for _, row := range rows {
		switch domain.EnergyType(typeOf(row)) {
		case domain.Renewable:
			out.Renewable = append(out.Renewable, row)
		case domain.NonRenewable:
			out.NonRenewable = append(out.NonRenewable, row)
		case domain.Storage:
			out.Storage = append(out.Storage, row)
		case domain.Demand:
			out.Demand = append(out.Demand, row)
		default:
			dropped[typeOf(row)]++
		}
	}
	for energy, count := range dropped {
		log.Warn("dropped rows of unknown energy type", "type", energy, "rows", count)
	}
	return out
}

// GetByID returns one stored balance.
func (s *Service) GetByID(ctx context.Context, id uuid.UUID) (transport.BalanceResponse, error) {
	b, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return transport.BalanceResponse{}, storageError("get", err)
	}
	return toBalanceResponse(b), nil
}

// Delete removes one stored balance and returns it.
func (s *Service) Delete(ctx context.Context, id uuid.UUID) (transport.DeleteResponse, error) {
	b, err := s.repo.Delete(ctx, id)
	if err != nil {
		return transport.DeleteResponse{}, storageError("delete", err)
	}

	s.bus.Publish(ctx, events.BalanceDeleted{
		BaseEvent: events.NewBaseEvent(),
		BalanceID: b.ID,
		Type:      string(b.Type),
		Subtype:   string(b.Subtype),
		Date:      b.Date.Format(repository.DateLayout),
	})

	return transport.DeleteResponse{Message: msgDeleted, Balance: toBalanceResponse(b)}, nil
}

// Taxonomy lists the energy types and their subtypes in presentation order.
func (s *Service) Taxonomy() []transport.TaxonomyType {
	types := domain.Types()
	out := make([]transport.TaxonomyType, 0, len(types))
	for _, t := range types {
		subtypes := domain.SubtypesFor(t)
		entries := make([]transport.TaxonomyEntry, 0, len(subtypes))
		for _, st := range subtypes {
			entries = append(entries, transport.TaxonomyEntry{Value: string(st), Display: st.Display()})
		}
		out = append(out, transport.TaxonomyType{
			TaxonomyEntry: transport.TaxonomyEntry{Value: string(t), Display: t.Display()},
			Subtypes:      entries,
		})
	}
	return out
}

// Ping reports whether storage answers.
func (s *Service) Ping(ctx context.Context) error {
	return s.repo.Ping(ctx)
}

func buildFilter(rawStart, rawEnd, rawType, rawSubtype string) (repository.Filter, error) {
	start, end, err := parseRange(rawStart, rawEnd)
	if err != nil {
		return repository.Filter{}, err
	}
	filter := repository.Filter{StartDate: start, EndDate: end}

	if rawType != "" {
		t, ok := domain.ParseType(rawType)
		if !ok {
			return repository.Filter{}, apperr.BadRequest("Invalid energy type")
		}
		filter.Type = &t
	}
	if rawSubtype != "" {
		st, ok := domain.ParseSubtype(rawSubtype)
		if !ok {
			return repository.Filter{}, apperr.BadRequest("Invalid energy subtype")
		}
		if filter.Type != nil && !domain.ValidPair(*filter.Type, st) {
			return repository.Filter{}, apperr.BadRequest(domain.PairingError(*filter.Type, st))
		}
		filter.Subtype = &st
	}
	return filter, nil
}

func parseRange(rawStart, rawEnd string) (time.Time, time.Time, error) {
	start, err := calendarDate(rawStart)
	if err != nil {
		return time.Time{}, time.Time{}, apperr.BadRequest(fmt.Sprintf(msgInvalidDate, "start_date"))
	}
	end, err := calendarDate(rawEnd)
	if err != nil {
		return time.Time{}, time.Time{}, apperr.BadRequest(fmt.Sprintf(msgInvalidDate, "end_date"))
	}
	if start.After(end) {
		return time.Time{}, time.Time{}, apperr.BadRequest(msgRangeOrder)
	}
	return start, end, nil
}

// calendarDate keeps the date as written, ignoring the offset, at UTC midnight.
func calendarDate(raw string) (time.Time, error) {
	t, err := validator.ParseISO8601(raw)
	if err != nil {
		return time.Time{}, err
	}
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC), nil
}

// storageError keeps typed errors such as not found and reports anything
// else as an internal failure.
func storageError(op string, err error) error {
	var appErr *apperr.Error
	if errors.As(err, &appErr) {
		return err
	}
	return apperr.Internal(msgStorageFailed, err).WithOp(op)
}
