package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"rentalhub/internal/services"
)

const (
	CtxUserID = "user_id"
	CtxRole   = "role"
)

// endpoints that do not require a token
func isPublicPath(path string) bool {
	switch path {
	case "/login", "/register", "/refresh", "/ws":
		return true
	}
	// docs and healthcheck
	if strings.HasPrefix(path, "/swagger") ||
		strings.HasPrefix(path, "/docs") ||
		strings.HasPrefix(path, "/healthz") {
		return true
	}
	return false
}

// BearerToken extracts the token from "Authorization: Bearer <token>".
func BearerToken(c *gin.Context) string {
	authHeader := strings.TrimSpace(c.GetHeader("Authorization"))
	parts := strings.SplitN(authHeader, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return ""
	}
	return strings.TrimSpace(parts[1])
}

// SocketToken is BearerToken with a fallback to the token query parameter,
// since browsers cannot set headers on a websocket handshake.
func SocketToken(c *gin.Context) string {
	if tok := BearerToken(c); tok != "" {
		return tok
	}
	return strings.TrimSpace(c.Query("token"))
}

func AuthMiddleware(auth services.AuthService) gin.HandlerFunc {
	return func(c *gin.Context) {
		// preflight
		if c.Request.Method == http.MethodOptions {
			c.Next()
			return
		}
		if isPublicPath(c.Request.URL.Path) {
			c.Next()
			return
		}

		tokenStr := BearerToken(c)
		if tokenStr == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Missing or invalid Authorization header"})
			return
		}
		claims, err := auth.ParseAccessToken(tokenStr)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Invalid or expired token"})
			return
		}

		c.Set(CtxUserID, claims.UserID)
		c.Set(CtxRole, claims.Role)
		c.Next()
	}
}
