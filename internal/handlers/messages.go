package handlers

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"messaging-service/internal/observability"
	"messaging-service/internal/repositories"
	"messaging-service/internal/telemetry"
)

// MessageHandler serves sending, read marking and the delivery views.
type MessageHandler struct {
	messages repositories.MessageRepository
	queries  repositories.DeliveryQueryRepository
	policy   repositories.ListPolicy
	audit    *telemetry.AuditEmitter
	log      *zap.Logger
}

// NewMessageHandler builds a MessageHandler.
func NewMessageHandler(messages repositories.MessageRepository, queries repositories.DeliveryQueryRepository, policy repositories.ListPolicy, audit *telemetry.AuditEmitter, log *zap.Logger) *MessageHandler {
	if log == nil {
		log = zap.NewNop()
	}
	return &MessageHandler{
		messages: messages,
		queries:  queries,
		policy:   policy,
		audit:    audit,
		log:      log,
	}
}

type sendMessageRequest struct {
	Subject      *string     `json:"subject"`
	Content      string      `json:"content" binding:"required"`
	RecipientIDs []uuid.UUID `json:"recipient_ids"`
}

// SendMessage stores a message from the caller and fans it out to the recipients.
func (h *MessageHandler) SendMessage(c *gin.Context) {
	senderID, ok := currentUser(c)
	if !ok {
		return
	}

	var req sendMessageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	msg, err := h.messages.SendMessage(c.Request.Context(), senderID, req.Subject, req.Content, req.RecipientIDs)
	if err != nil {
		respondError(c, h.log, err)
		return
	}

	fanout := distinctCount(req.RecipientIDs)
	observability.ObserveMessageSent(fanout)
	emitAudit(c, h.audit, telemetry.EventMessageSent, &senderID, map[string]any{
		"message_id": msg.ID.String(),
		"recipients": fanout,
	})
	c.JSON(http.StatusOK, msg)
}

// MarkRead flags one of the caller's deliveries as read.
func (h *MessageHandler) MarkRead(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}
	deliveryID, ok := uuidParam(c, "id")
	if !ok {
		return
	}

	delivery, err := h.messages.MarkRead(c.Request.Context(), deliveryID, userID)
	if err != nil {
		respondError(c, h.log, err)
		return
	}

	observability.IncDeliveryRead()
	emitAudit(c, h.audit, telemetry.EventDeliveryRead, &userID, map[string]any{
		"delivery_id": delivery.ID.String(),
		"message_id":  delivery.MessageID.String(),
	})
	c.JSON(http.StatusOK, delivery)
}

func (h *MessageHandler) SentForCurrentUser(c *gin.Context) {
	if userID, ok := currentUser(c); ok {
		listViews(c, h, h.queries.SentView, userID)
	}
}

func (h *MessageHandler) SentForUser(c *gin.Context) {
	if userID, ok := uuidParam(c, "user_id"); ok {
		listViews(c, h, h.queries.SentView, userID)
	}
}

func (h *MessageHandler) InboxForCurrentUser(c *gin.Context) {
	if userID, ok := currentUser(c); ok {
		listViews(c, h, h.queries.InboxView, userID)
	}
}

func (h *MessageHandler) InboxForUser(c *gin.Context) {
	if userID, ok := uuidParam(c, "user_id"); ok {
		listViews(c, h, h.queries.InboxView, userID)
	}
}

func (h *MessageHandler) UnreadForCurrentUser(c *gin.Context) {
	if userID, ok := currentUser(c); ok {
		listViews(c, h, h.queries.UnreadView, userID)
	}
}

func (h *MessageHandler) UnreadForUser(c *gin.Context) {
	if userID, ok := uuidParam(c, "user_id"); ok {
		listViews(c, h, h.queries.UnreadView, userID)
	}
}

// GetMessage returns one message with all its recipients, if the caller sent
// or received it.
func (h *MessageHandler) GetMessage(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}
	messageID, ok := uuidParam(c, "id")
	if !ok {
		return
	}

	view, err := h.queries.MessageView(c.Request.Context(), messageID, userID)
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, view)
}

func listViews[V any](c *gin.Context, h *MessageHandler, load func(context.Context, uuid.UUID) ([]V, error), userID uuid.UUID) {
	views, err := load(c.Request.Context(), userID)
	if err == nil {
		err = h.policy.Check(len(views))
	}
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, views)
}

func distinctCount(ids []uuid.UUID) int {
	seen := make(map[uuid.UUID]struct{}, len(ids))
	for _, id := range ids {
		seen[id] = struct{}{}
	}
	return len(seen)
}
