package apiresponses

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// APIError is the body of every non-2xx JSON response.
type APIError struct {
	Error   string `json:"error"`
	Code    string `json:"code,omitempty"`
	Details string `json:"details,omitempty"`
	Path    string `json:"path,omitempty"`
}

// Message is the body of a successful mutation without a payload.
type Message struct {
	Message string `json:"message"`
}

// RespondNotFound answers 404 for an unknown route.
func RespondNotFound(c *gin.Context) {
	c.AbortWithStatusJSON(http.StatusNotFound, APIError{
		Error: "not found",
		Code:  "NOT_FOUND",
		Path:  c.Request.URL.Path,
	})
}

// RespondBadRequest sends a 400 for malformed parameters.
func RespondBadRequest(c *gin.Context, message string) {
	c.AbortWithStatusJSON(http.StatusBadRequest, APIError{
		Error: message,
		Code:  "BAD_REQUEST",
	})
}

// RespondUpstreamError reports a failed provider call as a 500. The client
// sees the operation and the provider's message; the log gets the full error.
func RespondUpstreamError(c *gin.Context, operation string, err error, log *zap.SugaredLogger) {
	if log != nil {
		log.Errorw(fmt.Sprintf("Error %s", operation), "error", err)
	}
	c.AbortWithStatusJSON(http.StatusInternalServerError, APIError{
		Error:   fmt.Sprintf("Error %s", operation),
		Code:    "UPSTREAM_ERROR",
		Details: err.Error(),
	})
}

// RespondServiceUnavailable is used when a provider credential is missing.
func RespondServiceUnavailable(c *gin.Context, service string) {
	c.AbortWithStatusJSON(http.StatusServiceUnavailable, APIError{
		Error: fmt.Sprintf("service unavailable: %s", service),
		Code:  "SERVICE_UNAVAILABLE",
	})
}

func RespondOK(c *gin.Context, data interface{}) {
	c.JSON(http.StatusOK, data)
}

// RespondDeleted confirms a deletion with a short message.
func RespondDeleted(c *gin.Context, message string) {
	c.JSON(http.StatusOK, Message{Message: message})
}
