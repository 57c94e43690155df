package handler

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"habittracker/internal/apperror"
)

// getUserID reads the user id set by the auth middleware.
func getUserID(c *gin.Context) (int, bool) {
	userID, ok := c.Get("user_id")
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "user not authenticated"})
		return 0, false
	}
	return userID.(int), true
}

// pathID parses a numeric path parameter. Non-numeric ids are a client
// error, not a missing resource.
func pathID(c *gin.Context, name string) (int, bool) {
	id, err := strconv.Atoi(c.Param(name))
	if err != nil || id <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid " + name})
		return 0, false
	}
	return id, true
}

// writeError maps service errors onto HTTP statuses. Anything outside the
// known taxonomy is logged and returned as a sanitized 500.
func writeError(c *gin.Context, logger *zap.Logger, err error) {
	var appErr *apperror.AppError
	msg := "internal server error"
	if errors.As(err, &appErr) {
		msg = appErr.Message
	}

	switch {
	case errors.Is(err, apperror.ErrValidation), errors.Is(err, apperror.ErrFutureDate):
		body := gin.H{"error": msg}
		if fields := apperror.FieldsOf(err); len(fields) > 0 {
			body["fields"] = fields
		}
		c.JSON(http.StatusBadRequest, body)
	case errors.Is(err, apperror.ErrAuth):
		c.JSON(http.StatusUnauthorized, gin.H{"error": msg})
	case errors.Is(err, apperror.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": msg})
	case errors.Is(err, apperror.ErrConflict):
		c.JSON(http.StatusConflict, gin.H{"error": msg})
	case errors.Is(err, apperror.ErrUnavailable):
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": msg, "retryAfter": 5})
	default:
		logger.Error("Unhandled request error",
			zap.String("path", c.FullPath()),
			zap.Error(err),
		)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal server error"})
	}
}
