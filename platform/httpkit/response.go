// Package httpkit provides HTTP response utilities.
// This is part of the platform layer and contains no business logic.
package httpkit

import (
	"context"
	"errors"
	"net/http"

	"leadtracker_backend/platform/apperr"

	"github.com/gin-gonic/gin"
)

const (
	msgInternal = "internal error"
	msgTimeout  = "request timed out"
)

// ErrorResponse is the standard error response format.
type ErrorResponse struct {
	Error   string `json:"error"`
	Details any    `json:"details,omitempty"`
}

// JSON sends a JSON response with the given status code.
func JSON(c *gin.Context, status int, payload any) {
	c.JSON(status, payload)
}

// OK sends a 200 OK response with the given payload.
func OK(c *gin.Context, payload any) {
	c.JSON(http.StatusOK, payload)
}

// Error sends an error response with the given status code and message.
func Error(c *gin.Context, status int, message string, details any) {
	c.JSON(status, ErrorResponse{Error: message, Details: details})
}

// HandleError writes the response for err and reports whether there was one.
//
// An *apperr.Error anywhere in the chain decides the status and message. A
// cancelled request gets no body, a deadline becomes 504, and any other error
// is a 500 whose message is not exposed.
func HandleError(c *gin.Context, err error) bool {
	if err == nil {
		return false
	}

	var appErr *apperr.Error
	switch {
	case errors.As(err, &appErr):
		Error(c, appErr.HTTPStatus(), appErr.Message, appErr.Details)
	case errors.Is(err, context.Canceled):
		c.Abort()
	case errors.Is(err, context.DeadlineExceeded):
		Error(c, http.StatusGatewayTimeout, msgTimeout, nil)
	default:
		_ = c.Error(err)
		Error(c, http.StatusInternalServerError, msgInternal, nil)
	}
	return true
}
