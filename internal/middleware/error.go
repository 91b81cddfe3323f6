package middleware

import (
	"github.com/gin-gonic/gin"

	"github.com/jwalitptl/hospital-api/pkg/httputil"
)

// ErrorHandler renders the last error a handler attached with c.Error,
// unless a response was already written.
func ErrorHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		if len(c.Errors) == 0 || c.Writer.Written() {
			return
		}
		c.JSON(httputil.NewErrorResponse(c, c.Errors.Last().Err))
	}
}
