// Package http provides HTTP server infrastructure including the Module interface
// that all domain modules must implement for route registration.
package http

import (
	"electric_balance_backend/platform/httpkit"

	"github.com/gin-gonic/gin"
)

// Module represents a bounded context that can register its HTTP routes.
// Each domain module implements this interface to encapsulate its own
// route setup, keeping the main router decoupled from specific endpoints.
type Module interface {
	// Name returns the module's identifier for logging purposes.
	Name() string
	// RegisterRoutes mounts the module's routes on the provided router group.
	RegisterRoutes(ctx *RouterContext)
}

// RouterContext provides shared dependencies for module route registration.
type RouterContext struct {
	// Engine is the root Gin engine for modules that need engine-level access.
	Engine *gin.Engine
	// V1 is the /api/v1 route group.
	V1 *gin.RouterGroup
	// AdminGuard holds the token check and admin role check. Both pass
	// through when no admin secret is configured.
	AdminGuard []gin.HandlerFunc
	// RefreshLimiter throttles ingestion triggers per client IP.
	RefreshLimiter *httpkit.IPRateLimiter
}

// Guarded prefixes handlers with the admin guard.
func (r *RouterContext) Guarded(handlers ...gin.HandlerFunc) []gin.HandlerFunc {
	chain := make([]gin.HandlerFunc, 0, len(r.AdminGuard)+len(handlers))
	chain = append(chain, r.AdminGuard...)
	return append(chain, handlers...)
}
