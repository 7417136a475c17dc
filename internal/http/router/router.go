// Package router assembles the gin engine from the application modules.
package router

import (
	"context"
	"net/http"
	"time"

	apphttp "electric_balance_backend/internal/http"
	"electric_balance_backend/platform/httpkit"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
)

const healthTimeout = 2 * time.Second

// New creates the gin engine with shared middleware, the health endpoint and
// every module's routes under /api/v1.
func New(app *apphttp.App) *gin.Engine {
	engine := gin.New()
	engine.Use(gin.Recovery())
	engine.Use(httpkit.RequestID())
	engine.Use(httpkit.RequestLogger(app.Logger))
	engine.Use(httpkit.SecurityHeaders())
	engine.Use(cors.New(corsConfig(app.Config)))

	engine.GET("/api/health", func(c *gin.Context) {
		ctx, cancel := context.WithTimeout(c.Request.Context(), healthTimeout)
		defer cancel()

		if app.Health != nil {
			if err := app.Health.Ping(ctx); err != nil {
				app.Logger.WithContext(ctx).DatabaseError("health ping", err)
				c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unavailable"})
				return
			}
		}
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	rc := &apphttp.RouterContext{
		Engine: engine,
		V1:     engine.Group("/api/v1"),
		AdminGuard: []gin.HandlerFunc{
			httpkit.AuthRequired(app.Config),
			httpkit.RequireRole(app.Config, httpkit.RoleAdmin),
		},
		RefreshLimiter: httpkit.NewRefreshRateLimiter(app.Config, app.Logger),
	}

	for _, module := range app.Modules {
		module.RegisterRoutes(rc)
		app.Logger.Debug("module routes registered", "module", module.Name())
	}

	return engine
}

func corsConfig(cfg apphttp.RouterConfig) cors.Config {
	corsCfg := cors.Config{
		AllowMethods:     []string{http.MethodGet, http.MethodPost, http.MethodDelete, http.MethodOptions},
		AllowHeaders:     []string{"Origin", "Content-Type", "Authorization", httpkit.RequestIDHeader},
		ExposeHeaders:    []string{httpkit.RequestIDHeader},
		AllowCredentials: false,
		MaxAge:           12 * time.Hour,
	}
	if cfg.GetCORSAllowAll() {
		corsCfg.AllowAllOrigins = true
	} else {
		corsCfg.AllowOrigins = cfg.GetCORSOrigins()
	}
	return corsCfg
}
