package httpapi

import (
	"errors"
	"net/http"
	"time"

	"github.com/AbdelilahOu/DBRouter/internal/state"
	"github.com/gin-gonic/gin"
)

// ErrorResponse represents a standard API error response
type ErrorResponse struct {
	Status    int    `json:"status"`
	Error     string `json:"error"`
	Path      string `json:"path"`
	Timestamp string `json:"timestamp"`
}

// Common error messages
const (
	ErrInvalidRequest = "invalid request"
	ErrInternalServer = "internal server error"
)

// GinRespondError responds with error in Gin context
func GinRespondError(c *gin.Context, statusCode int, errorMsg string) {
	c.AbortWithStatusJSON(statusCode, ErrorResponse{
		Status:    statusCode,
		Error:     errorMsg,
		Path:      c.Request.URL.Path,
		Timestamp: time.Now().UTC().Format(time.RFC3339Nano),
	})
}

// statusFor maps registry errors to HTTP status codes.
func statusFor(err error) int {
	switch state.KindOf(err) {
	case state.KindBadRequest:
		return http.StatusBadRequest
	case state.KindNotFound:
		return http.StatusNotFound
	}
	if errors.Is(err, state.ErrNoDefaultConnection) {
		return http.StatusServiceUnavailable
	}
	return http.StatusInternalServerError
}
