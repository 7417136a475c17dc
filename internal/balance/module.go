// Package balance provides the electrical balance bounded context module.
package balance

import (
	"fmt"

	"electric_balance_backend/internal/balance/handler"
	"electric_balance_backend/internal/balance/repository"
	"electric_balance_backend/internal/balance/service"
	"electric_balance_backend/internal/balance/transport"
	"electric_balance_backend/internal/events"
	apphttp "electric_balance_backend/internal/http"
	"electric_balance_backend/platform/logger"
	"electric_balance_backend/platform/validator"
)

// Module is the balance bounded context module implementing http.Module.
type Module struct {
	handler   *handler.Handler
	service   *service.Service
	repo      repository.Repository
	scheduled bool
}

// NewModule wires the balance service on the given storage and upstream.
// scheduler may be nil, in which case queued refreshes are not exposed.
func NewModule(repo repository.Repository, fetcher service.Fetcher, scheduler service.RefreshScheduler, val *validator.Validator, bus events.Bus, log *logger.Logger) (*Module, error) {
	if err := transport.RegisterValidations(val); err != nil {
		return nil, fmt.Errorf("balance validations: %w", err)
	}

	svc := service.New(repo, fetcher, val, bus, log)
	if scheduler != nil {
		svc.SetScheduler(scheduler)
	}

	return &Module{
		handler:   handler.New(svc, val),
		service:   svc,
		repo:      repo,
		scheduled: scheduler != nil,
	}, nil
}

// Name returns the module identifier.
func (m *Module) Name() string {
	return "balance"
}

// Service returns the service layer for the worker and the CLI.
func (m *Module) Service() *service.Service {
	return m.service
}

// Repository returns the repository for health checks.
func (m *Module) Repository() repository.Repository {
	return m.repo
}

// RegisterRoutes mounts balance routes on the provided router context.
func (m *Module) RegisterRoutes(ctx *apphttp.RouterContext) {
	group := ctx.V1.Group("/balance")
	limit := ctx.RefreshLimiter.RateLimit()

	// Ingestion triggers
	group.GET("/refresh", ctx.Guarded(limit, m.handler.Refresh)...)
	if m.scheduled {
		group.POST("/refresh", ctx.Guarded(limit, m.handler.EnqueueRefresh)...)
	}

	// Read-only endpoints
	group.GET("", m.handler.Query)
	group.GET("/categorized", m.handler.QueryCategorized)
	group.GET("/taxonomy", m.handler.Taxonomy)
	group.GET("/:id", m.handler.GetByID)

	group.DELETE("/:id", ctx.Guarded(m.handler.Delete)...)
}

// Compile-time check that Module implements http.Module
var _ apphttp.Module = (*Module)(nil)
