package httputil

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"

	"github.com/jwalitptl/hospital-api/pkg/errors"
)

// ContextRequestID is the gin context key holding the request id
const ContextRequestID = "request_id"

// ErrorResponse is the body returned for every failed request
type ErrorResponse struct {
	Code    int                 `json:"code"`
	Message string              `json:"message"`
	TraceID string              `json:"trace_id,omitempty"`
	Errors  []errors.FieldError `json:"errors,omitempty"`
}

// RespondWithError sends an error response derived from err
func RespondWithError(c *gin.Context, err error) {
	c.AbortWithStatusJSON(errorBody(c, err))
}

// NewErrorResponse builds the error body and status for err
func NewErrorResponse(c *gin.Context, err error) (int, ErrorResponse) {
	return errorBody(c, err)
}

func errorBody(c *gin.Context, err error) (int, ErrorResponse) {
	traceID := c.GetString(ContextRequestID)

	appErr, ok := errors.As(err)
	if !ok {
		appErr = errors.NewInternal(err)
	}

	status := appErr.StatusCode()
	if status >= http.StatusInternalServerError {
		log.Error().
			Err(err).
			Str("request_id", traceID).
			Str("method", c.Request.Method).
			Str("path", c.Request.URL.Path).
			Msg("Request failed")
	}

	return status, ErrorResponse{
		Code:    status,
		Message: appErr.Message,
		TraceID: traceID,
		Errors:  appErr.Fields,
	}
}
