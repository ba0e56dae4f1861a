package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"dairyledger/internal/core/apperror"
	"dairyledger/pkg/logger"
)

// Recovery middleware converts panics into 500 responses instead of killing
// the connection.
func Recovery() gin.HandlerFunc {
	return func(c *gin.Context) {
		defer func() {
			if r := recover(); r != nil {
				logger.Error(c.Request.Context(), "panic recovered",
					"panic", r,
					"path", c.Request.URL.Path,
				)
				c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{
					"code":    apperror.CodeInternal,
					"message": "Internal server error",
				})
			}
		}()
		c.Next()
	}
}
