package handlers

import (
	"context"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/pkg/errors"

	"rentalhub/internal/middleware"
	"rentalhub/internal/services"
)

func getUserAndRole(c *gin.Context) (userID, role string) {
	return c.GetString(middleware.CtxUserID), c.GetString(middleware.CtxRole)
}

// queryInt reads a non-negative integer query parameter, falling back to def.
func queryInt(c *gin.Context, key string, def int) int {
	n, err := strconv.Atoi(c.Query(key))
	if err != nil || n < 0 {
		return def
	}
	return n
}

// respondError maps service errors to a status code. Anything unrecognised is
// recorded on the context for the request logger and reported as a 500.
func respondError(c *gin.Context, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, services.ErrChatNotFound), errors.Is(err, services.ErrUserNotFound):
		status = http.StatusNotFound
	case errors.Is(err, services.ErrNotChatMember):
		status = http.StatusForbidden
	case errors.Is(err, services.ErrEmptyMessage),
		errors.Is(err, services.ErrSelfChat),
		errors.Is(err, services.ErrInvalidRole):
		status = http.StatusBadRequest
	case errors.Is(err, services.ErrInvalidCredentials),
		errors.Is(err, services.ErrInvalidRefresh),
		errors.Is(err, services.ErrInvalidToken):
		status = http.StatusUnauthorized
	case errors.Is(err, services.ErrEmailTaken):
		status = http.StatusConflict
	case errors.Is(err, context.DeadlineExceeded):
		status = http.StatusGatewayTimeout
	}

	if status >= http.StatusInternalServerError {
		_ = c.Error(err)
		msg := "internal error"
		if status == http.StatusGatewayTimeout {
			msg = "upstream timed out"
		}
		c.JSON(status, gin.H{"error": msg})
		return
	}
	c.JSON(status, gin.H{"error": err.Error()})
}
