package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"messaging-service/internal/middleware"
	"messaging-service/internal/observability"
	"messaging-service/internal/telemetry"
)

func requestIDFromContext(c *gin.Context) string {
	if id := observability.RequestID(c); id != "" {
		return id
	}

	requestID := uuid.NewString()
	c.Set(observability.RequestIDKey, requestID)
	return requestID
}

// emitAudit publishes eventType on behalf of actor. A nil actor falls back to
// the authenticated caller, if any.
func emitAudit(c *gin.Context, emitter *telemetry.AuditEmitter, eventType string, actor *uuid.UUID, payload map[string]any) {
	if emitter == nil {
		return
	}

	var userID string
	if actor != nil {
		userID = actor.String()
	} else if id, ok := middleware.CurrentUserID(c); ok {
		userID = id.String()
	}
	emitter.Emit(c.Request.Context(), eventType, requestIDFromContext(c), userID, payload)
}

// currentUser is the guard-attached caller id. Routes reaching it without a
// guard are a wiring bug, answered with 401.
func currentUser(c *gin.Context) (uuid.UUID, bool) {
	id, ok := middleware.CurrentUserID(c)
	if !ok {
		c.Header("WWW-Authenticate", "Bearer")
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Not authenticated"})
	}
	return id, ok
}
