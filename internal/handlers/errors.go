package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"messaging-service/internal/repositories"
)

// respondError maps store errors to HTTP responses. Unknown errors become a
// bare 500; the cause is only logged.
func respondError(c *gin.Context, log *zap.Logger, err error) {
	switch {
	case errors.Is(err, repositories.ErrUserNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "User not found"})
	case errors.Is(err, repositories.ErrNotFoundOrForbidden):
		c.JSON(http.StatusNotFound, gin.H{"error": "Not found or not accessible"})
	case errors.Is(err, repositories.ErrEmptyResult):
		c.JSON(http.StatusNotFound, gin.H{"error": "No results"})
	case errors.Is(err, repositories.ErrEmailTaken):
		c.JSON(http.StatusBadRequest, gin.H{"error": "Email already registered."})
	case errors.Is(err, repositories.ErrNoRecipients), errors.Is(err, repositories.ErrUnknownRecipient):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	default:
		log.Error("request failed",
			zap.String("route", c.FullPath()),
			zap.String("request_id", requestIDFromContext(c)),
			zap.Error(err),
		)
		_ = c.Error(err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal server error"})
	}
}

func uuidParam(c *gin.Context, name string) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param(name))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid " + name})
		return uuid.Nil, false
	}
	return id, true
}
