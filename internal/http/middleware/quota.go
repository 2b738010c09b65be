// README: Per-user AI quota guard for generative endpoints.
package middleware

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"nest/internal/logger"
	"nest/internal/modules/aiusage"
)

// TokenSpender is satisfied by aiusage.Service.
type TokenSpender interface {
	UseToken(ctx context.Context, uid string) error
}

// Quota spends one token per request before the handler runs. A nil
// spender disables the check.
func Quota(spender TokenSpender, log logger.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		if spender == nil {
			c.Next()
			return
		}
		uid := CallerUID(c)
		err := spender.UseToken(c.Request.Context(), uid)
		switch {
		case err == nil:
			c.Next()
		case errors.Is(err, aiusage.ErrInsufficientTokens):
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{"error": err.Error()})
		default:
			log.Error("quota check failed", map[string]interface{}{"uid": uid, "error": err.Error()})
			c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
		}
	}
}
