package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"electric_balance_backend/internal/balance/service"
	"electric_balance_backend/internal/balance/transport"
	"electric_balance_backend/platform/apperr"
	"electric_balance_backend/platform/httpkit"
	"electric_balance_backend/platform/validator"
)

// Handler handles HTTP requests for balances.
type Handler struct {
	svc *service.Service
	val *validator.Validator
}

const (
	msgInvalidRequest  = "invalid request"
	msgInvalidQuery    = "invalid query parameters"
	msgInvalidID       = "invalid balance id"
	msgInvalidIDDetail = "id must be a valid UUID"
)

// New creates a new balance handler.
func New(svc *service.Service, val *validator.Validator) *Handler {
	return &Handler{svc: svc, val: val}
}

// Refresh ingests a date range synchronously.
// GET /api/v1/balance/refresh
func (h *Handler) Refresh(c *gin.Context) {
	var req transport.RefreshRequest
	if !h.bindQuery(c, &req) {
		return
	}

	result, err := h.svc.Refresh(c.Request.Context(), req)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, result)
}

// EnqueueRefresh queues a background refresh.
// POST /api/v1/balance/refresh
func (h *Handler) EnqueueRefresh(c *gin.Context) {
	var req transport.EnqueueRefreshRequest
	if c.Request.ContentLength != 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			httpkit.HandleError(c, apperr.BadRequest(msgInvalidRequest))
			return
		}
	}
	if err := h.val.Struct(req); err != nil {
		httpkit.HandleError(c, apperr.BadRequest(msgInvalidRequest).WithDetails(h.val.Report(err)))
		return
	}

	result, err := h.svc.ScheduleRefresh(c.Request.Context(), req)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.JSON(c, http.StatusAccepted, result)
}

// Query lists or aggregates balances.
// GET /api/v1/balance
func (h *Handler) Query(c *gin.Context) {
	var req transport.QueryRequest
	if !h.bindQuery(c, &req) {
		return
	}

	result, err := h.svc.Query(c.Request.Context(), req)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, result)
}

// QueryCategorized lists or aggregates balances partitioned by energy type.
// GET /api/v1/balance/categorized
func (h *Handler) QueryCategorized(c *gin.Context) {
	var req transport.CategorizedRequest
	if !h.bindQuery(c, &req) {
		return
	}

	result, err := h.svc.QueryCategorized(c.Request.Context(), req)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, result)
}

// Taxonomy lists energy types and subtypes.
// GET /api/v1/balance/taxonomy
func (h *Handler) Taxonomy(c *gin.Context) {
	httpkit.OK(c, h.svc.Taxonomy())
}

// GetByID retrieves a balance by ID.
// GET /api/v1/balance/:id
func (h *Handler) GetByID(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}

	result, err := h.svc.GetByID(c.Request.Context(), id)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, result)
}

// Delete removes a balance by ID.
// DELETE /api/v1/balance/:id
func (h *Handler) Delete(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}

	result, err := h.svc.Delete(c.Request.Context(), id)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, result)
}

func (h *Handler) bindQuery(c *gin.Context, req interface{}) bool {
	if err := c.ShouldBindQuery(req); err != nil {
		httpkit.HandleError(c, apperr.BadRequest(msgInvalidQuery))
		return false
	}
	if err := h.val.Struct(req); err != nil {
		httpkit.HandleError(c, apperr.BadRequest(msgInvalidQuery).WithDetails(h.val.Report(err)))
		return false
	}
	return true
}

func parseID(c *gin.Context) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		httpkit.HandleError(c, apperr.BadRequest(msgInvalidID).WithDetails([]validator.FieldError{{
			Property:    "id",
			Value:       c.Param("id"),
			Constraints: []string{msgInvalidIDDetail},
		}}))
		return uuid.UUID{}, false
	}
	return id, true
}
