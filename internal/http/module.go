// Package http provides HTTP server infrastructure including the Module interface
// that all domain modules must implement for route registration.
package http

import (
	"leadtracker_backend/platform/httpkit"

	"github.com/gin-gonic/gin"
)

// Module is a bounded context mounting its own routes.
type Module interface {
	// Name returns the module's identifier for logging purposes.
	Name() string
	// RegisterRoutes mounts the module's routes on the provided router group.
	RegisterRoutes(ctx *RouterContext)
}

// Closer is implemented by modules holding long-lived connections or
// per-user state that must be released when the server shuts down.
type Closer interface {
	Close()
}

// RouterContext provides shared dependencies for module route registration.
type RouterContext struct {
	// V1 is the public /api/v1 route group.
	V1 *gin.RouterGroup
	// Protected is the /api/v1 group behind the access token check.
	Protected *gin.RouterGroup
	// AuthRateLimiter is the stricter rate limiter for auth routes.
	AuthRateLimiter *httpkit.AuthRateLimiter
}
