package telemetry

import (
	"context"
	"time"

	"go.uber.org/zap"
)

// Audit event types.
const (
	EventUserCreated  = "user_created"
	EventLogin        = "login"
	EventMessageSent  = "message_sent"
	EventDeliveryRead = "delivery_read"
	EventUserDeleted  = "user_deleted"
)

type Publisher interface {
	Publish(ctx context.Context, routingKey string, event any) error
	Close() error
}

// AuditEmitter turns domain events into envelopes on the audit exchange.
// Publishing failures are logged and never returned to the caller.
type AuditEmitter struct {
	publisher   Publisher
	log         *zap.Logger
	service     string
	environment string
	now         func() time.Time
}

type AuditEnvelope struct {
	SchemaVersion int            `json:"schema_version"`
	EventType     string         `json:"event_type"`
	OccurredAt    string         `json:"occurred_at"`
	Service       string         `json:"service"`
	Environment   string         `json:"environment"`
	RequestID     string         `json:"request_id"`
	UserID        *string        `json:"user_id,omitempty"`
	Payload       map[string]any `json:"payload"`
}

func NewAuditEmitter(publisher Publisher, log *zap.Logger, service, environment string) *AuditEmitter {
	if log == nil {
		log = zap.NewNop()
	}
	return &AuditEmitter{
		publisher:   publisher,
		log:         log,
		service:     service,
		environment: environment,
		now:         time.Now,
	}
}

// RoutingKey is the topic a given event type is published under.
func RoutingKey(eventType string) string {
	return "audit.messaging." + eventType
}

// Emit publishes one event. userID may be empty for anonymous actions.
func (e *AuditEmitter) Emit(ctx context.Context, eventType, requestID, userID string, payload map[string]any) {
	if e == nil || e.publisher == nil {
		return
	}

	var uid *string
	if userID != "" {
		uid = &userID
	}
	if payload == nil {
		payload = map[string]any{}
	}
	envelope := AuditEnvelope{
		SchemaVersion: 1,
		EventType:     eventType,
		OccurredAt:    e.now().UTC().Format(time.RFC3339Nano),
		Service:       e.service,
		Environment:   e.environment,
		RequestID:     requestID,
		UserID:        uid,
		Payload:       payload,
	}

	e.log.Info("audit",
		zap.String("event_type", eventType),
		zap.String("request_id", requestID),
		zap.String("user_id", userID),
	)
	if err := e.publisher.Publish(ctx, RoutingKey(eventType), envelope); err != nil {
		e.log.Warn("audit publish failed", zap.String("event_type", eventType), zap.Error(err))
	}
}
