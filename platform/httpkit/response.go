// Package httpkit provides HTTP response utilities.
// This is part of the platform layer and contains no business logic.
package httpkit

import (
	"errors"
	"net/http"

	"electric_balance_backend/platform/apperr"

	"github.com/gin-gonic/gin"
)

// ErrorResponse is the standard error response format.
type ErrorResponse struct {
	Error   string      `json:"error"`
	Code    string      `json:"code"`
	Details interface{} `json:"details,omitempty"`
}

// JSON sends a JSON response with the given status code.
func JSON(c *gin.Context, status int, payload interface{}) {
	c.JSON(status, payload)
}

// Error sends an error response with the given status code and message.
func Error(c *gin.Context, status int, message string, details interface{}) {
	c.JSON(status, ErrorResponse{Error: message, Code: codeForStatus(status), Details: details})
}

// OK sends a 200 OK response with the given payload.
func OK(c *gin.Context, payload interface{}) {
	c.JSON(http.StatusOK, payload)
}

// HandleError maps domain errors to HTTP responses.
// A typed *apperr.Error selects the status and code from its Kind. Any other
// error is reported as a 500 without leaking its text.
// Returns true if an error was handled, false otherwise.
func HandleError(c *gin.Context, err error) bool {
	if err == nil {
		return false
	}
	_ = c.Error(err)

	var domainErr *apperr.Error
	if errors.As(err, &domainErr) {
		c.JSON(domainErr.HTTPStatus(), ErrorResponse{
			Error:   domainErr.Message,
			Code:    domainErr.Code(),
			Details: domainErr.Details,
		})
		return true
	}

	c.JSON(http.StatusInternalServerError, ErrorResponse{
		Error: "internal server error",
		Code:  apperr.KindInternal.String(),
	})
	return true
}

func codeForStatus(status int) string {
	switch status {
	case http.StatusBadRequest:
		return apperr.KindBadRequest.String()
	case http.StatusUnauthorized:
		return apperr.KindUnauthorized.String()
	case http.StatusForbidden:
		return apperr.KindForbidden.String()
	case http.StatusNotFound:
		return apperr.KindNotFound.String()
	case http.StatusTooManyRequests:
		return apperr.KindTooManyRequests.String()
	case http.StatusBadGateway:
		return apperr.KindUpstream.String()
	case http.StatusUnprocessableEntity:
		return apperr.KindSchema.String()
	default:
		if status >= http.StatusInternalServerError {
			return apperr.KindInternal.String()
		}
		return apperr.KindUnknown.String()
	}
}
