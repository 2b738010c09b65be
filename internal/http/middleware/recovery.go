// README: Recovery middleware; a panicking handler becomes a logged 500.
package middleware

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	"nest/internal/logger"
)

func Recovery(log logger.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		defer func() {
			if r := recover(); r != nil {
				log.Error("panic in handler", map[string]interface{}{
					"path":  c.Request.URL.Path,
					"panic": fmt.Sprint(r),
				})
				c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
			}
		}()
		c.Next()
	}
}
