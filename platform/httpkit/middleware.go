// Package httpkit provides HTTP middleware infrastructure.
// This is part of the platform layer and contains no business logic.
package httpkit

import (
	"context"
	"net/http"
	"slices"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"leadtracker_backend/platform/config"
	"leadtracker_backend/platform/logger"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"golang.org/x/time/rate"
)

const (
	// ContextUserIDKey is the gin context key for the authenticated user ID.
	ContextUserIDKey = "userID"
	// ContextEmailKey is the gin context key for the authenticated user's email.
	ContextEmailKey = "email"

	errMissingToken = "missing token"
	errInvalidToken = "invalid token"
)

// RequestLogger logs HTTP requests with timing and stamps a request ID on
// the request context for downstream loggers.
func RequestLogger(log *logger.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path

		requestID := c.GetHeader("X-Request-ID")
		if requestID == "" {
			requestID = uuid.NewString()
		}
		c.Header("X-Request-ID", requestID)
		c.Request = c.Request.WithContext(context.WithValue(c.Request.Context(), logger.RequestIDKey, requestID))

		c.Next()

		latency := time.Since(start)
		status := c.Writer.Status()
		clientIP := c.ClientIP()

		log.HTTPRequest(c.Request.Method, path, status, float64(latency.Milliseconds()), clientIP)
		for _, ginErr := range c.Errors {
			log.WithContext(c.Request.Context()).Error("request failed", "path", path, "error", ginErr.Err)
		}
	}
}

// SecurityHeaders adds security headers to responses.
func SecurityHeaders() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Header("X-Content-Type-Options", "nosniff")
		c.Header("X-Frame-Options", "DENY")
		c.Header("X-XSS-Protection", "1; mode=block")
		c.Header("Referrer-Policy", "strict-origin-when-cross-origin")
		c.Header("Content-Security-Policy", "default-src 'self'")
		c.Header("Permissions-Policy", "geolocation=(), microphone=(), camera=()")

		// Only add HSTS in production
		if c.Request.TLS != nil {
			c.Header("Strict-Transport-Security", "max-age=31536000; includeSubDomains")
		}

		c.Next()
	}
}

// limiterIdleTTL is how long an idle client's limiter is kept.
const limiterIdleTTL = 10 * time.Minute

type limiterEntry struct {
	limiter  *rate.Limiter
	lastSeen atomic.Int64
}

// IPRateLimiter manages per-IP rate limiters. Limiters idle for longer than
// limiterIdleTTL are swept so the map does not grow with every client seen.
type IPRateLimiter struct {
	limiters  sync.Map
	lastSweep atomic.Int64
	rate      rate.Limit
	burst     int
	log       *logger.Logger
	now       func() time.Time
}

// NewIPRateLimiter creates a new IP-based rate limiter.
func NewIPRateLimiter(r rate.Limit, burst int, log *logger.Logger) *IPRateLimiter {
	return &IPRateLimiter{
		rate:  r,
		burst: burst,
		log:   log,
		now:   time.Now,
	}
}

func (i *IPRateLimiter) getLimiter(ip string) *rate.Limiter {
	now := i.now()
	i.sweep(now)

	v, _ := i.limiters.LoadOrStore(ip, &limiterEntry{limiter: rate.NewLimiter(i.rate, i.burst)})
	entry := v.(*limiterEntry)
	entry.lastSeen.Store(now.UnixNano())
	return entry.limiter
}

func (i *IPRateLimiter) sweep(now time.Time) {
	last := i.lastSweep.Load()
	if now.UnixNano()-last < int64(limiterIdleTTL) || !i.lastSweep.CompareAndSwap(last, now.UnixNano()) {
		return
	}
	cutoff := now.Add(-limiterIdleTTL).UnixNano()
	i.limiters.Range(func(key, v any) bool {
		if v.(*limiterEntry).lastSeen.Load() < cutoff {
			i.limiters.Delete(key)
		}
		return true
	})
}

func (i *IPRateLimiter) size() int {
	n := 0
	i.limiters.Range(func(any, any) bool {
		n++
		return true
	})
	return n
}

// RateLimit returns a middleware that rate limits by IP.
func (i *IPRateLimiter) RateLimit() gin.HandlerFunc {
	return func(c *gin.Context) {
		ip := c.ClientIP()
		if !i.getLimiter(ip).Allow() {
			if i.log != nil {
				i.log.RateLimitExceeded(ip, c.Request.URL.Path)
			}
			Error(c, http.StatusTooManyRequests, "rate limit exceeded", nil)
			c.Abort()
			return
		}

		c.Next()
	}
}

// AuthRateLimiter is a stricter rate limiter for auth endpoints.
type AuthRateLimiter struct {
	*IPRateLimiter
}

// NewAuthRateLimiter allows 5 auth requests per minute per IP.
func NewAuthRateLimiter(log *logger.Logger) *AuthRateLimiter {
	return &AuthRateLimiter{
		IPRateLimiter: NewIPRateLimiter(rate.Limit(5.0/60.0), 5, log),
	}
}

// AuthRequired returns middleware that validates JWT access tokens sent as
// an Authorization Bearer header. EventSource clients cannot set headers, so
// requests accepting text/event-stream may pass the token as access_token.
func AuthRequired(cfg config.JWTConfig) gin.HandlerFunc {
	return func(c *gin.Context) {
		rawToken, ok := accessToken(c)
		if !ok {
			abortUnauthorized(c, errMissingToken)
			return
		}

		userID, claims, err := ParseAccessToken(rawToken, cfg.GetJWTAccessSecret())
		if err != nil {
			abortUnauthorized(c, errInvalidToken)
			return
		}

		SetIdentity(c, userID, claims.Email)
		c.Request = c.Request.WithContext(context.WithValue(c.Request.Context(), logger.UserIDKey, userID.String()))
		c.Next()
	}
}

// RoleLookup resolves the role of the authenticated caller.
type RoleLookup func(c *gin.Context) (string, error)

// RequireRole returns middleware that lets the request through only when
// the role returned by lookup is one of allowed.
func RequireRole(lookup RoleLookup, allowed ...string) gin.HandlerFunc {
	return func(c *gin.Context) {
		role, err := lookup(c)
		if err != nil {
			HandleError(c, err)
			c.Abort()
			return
		}

		if slices.Contains(allowed, role) {
			c.Next()
			return
		}

		Error(c, http.StatusForbidden, "forbidden", nil)
		c.Abort()
	}
}

func accessToken(c *gin.Context) (string, bool) {
	if raw, ok := extractBearerToken(c.GetHeader("Authorization")); ok {
		return raw, true
	}
	if c.Request.Method == http.MethodGet && strings.Contains(c.GetHeader("Accept"), "text/event-stream") {
		raw := strings.TrimSpace(c.Query("access_token"))
		return raw, raw != ""
	}
	return "", false
}

func extractBearerToken(authHeader string) (string, bool) {
	rawToken, found := strings.CutPrefix(authHeader, "Bearer ")
	if !found {
		return "", false
	}
	rawToken = strings.TrimSpace(rawToken)
	return rawToken, rawToken != ""
}

func abortUnauthorized(c *gin.Context, message string) {
	Error(c, http.StatusUnauthorized, message, nil)
	c.Abort()
}
