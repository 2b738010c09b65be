// README: Auth middleware verifying Firebase ID tokens.
package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"nest/internal/infra"
)

const (
	uidKey  = "auth.uid"
	roleKey = "auth.role"
)

// Auth rejects requests without a valid "Bearer <id token>" header and
// stores the caller's uid and optional role claim on the context.
// Browsers cannot set headers on websocket upgrades, so an access_token
// query parameter is accepted there.
func Auth(verifier infra.TokenVerifier) gin.HandlerFunc {
	return func(c *gin.Context) {
		raw := c.GetHeader("Authorization")
		token, ok := strings.CutPrefix(raw, "Bearer ")
		if raw == "" && c.GetHeader("Upgrade") != "" {
			token, ok = c.Query("access_token"), true
		}
		token = strings.TrimSpace(token)
		if !ok || token == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "missing bearer token"})
			return
		}

		tok, err := verifier.VerifyIDToken(c.Request.Context(), token)
		if err != nil || tok == nil || tok.UID == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid token"})
			return
		}
		c.Set(uidKey, tok.UID)
		if role, ok := tok.Claims["role"].(string); ok {
			c.Set(roleKey, role)
		}
		c.Next()
	}
}

// CallerUID is the authenticated uid, or "" outside Auth.
func CallerUID(c *gin.Context) string {
	return c.GetString(uidKey)
}

func CallerRole(c *gin.Context) string {
	return c.GetString(roleKey)
}
