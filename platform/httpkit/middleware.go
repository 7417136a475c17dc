// Package httpkit provides HTTP middleware infrastructure.
// This is part of the platform layer and contains no business logic.
package httpkit

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"sync"
	"time"

	"electric_balance_backend/platform/apperr"
	"electric_balance_backend/platform/config"
	"electric_balance_backend/platform/logger"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"golang.org/x/time/rate"
)

const (
	// ContextSubjectKey is the gin context key for the token subject.
	ContextSubjectKey = "subject"
	// ContextRolesKey is the gin context key for the token roles.
	ContextRolesKey = "roles"
	// RequestIDHeader carries the request id in both directions.
	RequestIDHeader = "X-Request-ID"

	// RoleAdmin is required for operations that change stored data.
	RoleAdmin = "admin"

	errMissingToken = "missing token"
	errInvalidToken = "invalid token"
)

// RequestID propagates or generates a request id and stores it on the
// request context for logging.
func RequestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		requestID := strings.TrimSpace(c.GetHeader(RequestIDHeader))
		if requestID == "" {
			requestID = uuid.NewString()
		}
		c.Header(RequestIDHeader, requestID)
		ctx := context.WithValue(c.Request.Context(), logger.RequestIDKey, requestID)
		c.Request = c.Request.WithContext(ctx)
		c.Next()
	}
}

// RequestLogger logs HTTP requests with timing. Server errors attached to
// the context are logged with their cause.
func RequestLogger(log *logger.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path

		c.Next()

		latency := time.Since(start)
		status := c.Writer.Status()
		clientIP := c.ClientIP()
		reqLog := log.WithContext(c.Request.Context())

		if status >= http.StatusInternalServerError && len(c.Errors) > 0 {
			reqLog.HTTPError(c.Request.Method, path, status, c.Errors.Last().Err, clientIP)
		}
		reqLog.HTTPRequest(c.Request.Method, path, status, float64(latency.Milliseconds()), clientIP)
	}
}

// SecurityHeaders adds security headers to responses.
func SecurityHeaders() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Header("X-Content-Type-Options", "nosniff")
		c.Header("X-Frame-Options", "DENY")
		c.Header("Referrer-Policy", "strict-origin-when-cross-origin")
		c.Header("Content-Security-Policy", "default-src 'none'; frame-ancestors 'none'")

		if c.Request.TLS != nil {
			c.Header("Strict-Transport-Security", "max-age=31536000; includeSubDomains")
		}

		c.Next()
	}
}

// IPRateLimiter manages per-IP rate limiters.
type IPRateLimiter struct {
	limiters sync.Map
	rate     rate.Limit
	burst    int
	log      *logger.Logger
}

// NewIPRateLimiter creates a new IP-based rate limiter.
func NewIPRateLimiter(r rate.Limit, burst int, log *logger.Logger) *IPRateLimiter {
	return &IPRateLimiter{
		rate:  r,
		burst: burst,
		log:   log,
	}
}

// NewRefreshRateLimiter limits ingestion triggers, which each cost an
// upstream call and a batch write.
func NewRefreshRateLimiter(cfg config.RateLimitConfig, log *logger.Logger) *IPRateLimiter {
	return NewIPRateLimiter(rate.Limit(cfg.GetRefreshRatePerMinute()/60.0), cfg.GetRefreshRateBurst(), log)
}

func (i *IPRateLimiter) getLimiter(ip string) *rate.Limiter {
	limiter, _ := i.limiters.LoadOrStore(ip, rate.NewLimiter(i.rate, i.burst))
	return limiter.(*rate.Limiter)
}

// RateLimit returns a middleware that rate limits by IP.
func (i *IPRateLimiter) RateLimit() gin.HandlerFunc {
	return func(c *gin.Context) {
		ip := c.ClientIP()
		if !i.getLimiter(ip).Allow() {
			if i.log != nil {
				i.log.RateLimitExceeded(ip, c.Request.URL.Path)
			}
			HandleError(c, apperr.TooManyRequests("rate limit exceeded"))
			c.Abort()
			return
		}

		c.Next()
	}
}

// AuthRequired validates HS256 bearer tokens signed with the admin secret.
// When no secret is configured the guard is disabled and every request passes.
func AuthRequired(cfg config.AuthConfig) gin.HandlerFunc {
	return func(c *gin.Context) {
		if !cfg.IsAdminAuthEnabled() {
			c.Next()
			return
		}

		rawToken, ok := extractBearerToken(c.GetHeader("Authorization"))
		if !ok {
			abortUnauthorized(c, errMissingToken)
			return
		}

		claims, err := parseClaims(rawToken, cfg.GetAdminJWTSecret())
		if err != nil {
			abortUnauthorized(c, errInvalidToken)
			return
		}

		subject, _ := claims["sub"].(string)
		if strings.TrimSpace(subject) == "" {
			abortUnauthorized(c, errInvalidToken)
			return
		}

		c.Set(ContextSubjectKey, subject)
		c.Set(ContextRolesKey, extractRoles(claims["roles"]))
		ctx := context.WithValue(c.Request.Context(), logger.SubjectKey, subject)
		c.Request = c.Request.WithContext(ctx)
		c.Next()
	}
}

// RequireRole checks the roles set by AuthRequired. It passes when the guard
// is disabled.
func RequireRole(cfg config.AuthConfig, role string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if !cfg.IsAdminAuthEnabled() {
			c.Next()
			return
		}

		roles, _ := c.Get(ContextRolesKey)
		roleList, _ := roles.([]string)
		for _, item := range roleList {
			if item == role {
				c.Next()
				return
			}
		}

		HandleError(c, apperr.Forbidden("forbidden"))
		c.Abort()
	}
}

func extractRoles(value interface{}) []string {
	roles := make([]string, 0)
	switch typed := value.(type) {
	case []string:
		return append(roles, typed...)
	case []interface{}:
		for _, item := range typed {
			if text, ok := item.(string); ok {
				roles = append(roles, text)
			}
		}
	case string:
		roles = append(roles, typed)
	}
	return roles
}

func extractBearerToken(authHeader string) (string, bool) {
	if !strings.HasPrefix(authHeader, "Bearer ") {
		return "", false
	}

	rawToken := strings.TrimSpace(strings.TrimPrefix(authHeader, "Bearer "))
	if rawToken == "" {
		return "", false
	}

	return rawToken, true
}

func parseClaims(rawToken, secret string) (jwt.MapClaims, error) {
	parsed, err := jwt.Parse(rawToken, func(token *jwt.Token) (interface{}, error) {
		return []byte(secret), nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithExpirationRequired())
	if err != nil || !parsed.Valid {
		return nil, errors.New(errInvalidToken)
	}

	claims, ok := parsed.Claims.(jwt.MapClaims)
	if !ok {
		return nil, errors.New(errInvalidToken)
	}
	return claims, nil
}

func abortUnauthorized(c *gin.Context, message string) {
	HandleError(c, apperr.Unauthorized(message))
	c.Abort()
}
