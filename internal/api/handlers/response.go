package handlers

import (
	"net/http"
	"strconv"

	"gps-fleet-api-server/internal/api/middleware"
	"gps-fleet-api-server/internal/apperrors"

	"github.com/gin-gonic/gin"
)

// respondError renders err as {status:"error", message}. Server-side failures
// are attached to the context so the request logger records the cause.
func respondError(c *gin.Context, err error) {
	status := apperrors.StatusOf(err)
	if status >= http.StatusInternalServerError {
		_ = c.Error(err)
	}
	c.JSON(status, gin.H{"status": "error", "message": apperrors.MessageOf(err)})
}

// uintParam reads a numeric path parameter. A malformed id is reported as notFound.
func uintParam(c *gin.Context, name, notFound string) (uint, bool) {
	id, err := strconv.ParseUint(c.Param(name), 10, 64)
	if err != nil || id == 0 {
		respondError(c, apperrors.NewNotFoundError(notFound))
		return 0, false
	}
	return uint(id), true
}

func currentUser(c *gin.Context) (uint, bool) {
	userID, ok := middleware.CurrentUserID(c)
	if !ok {
		respondError(c, apperrors.NewUnauthorizedError("Authentication required"))
		return 0, false
	}
	return userID, true
}
