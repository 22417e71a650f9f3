package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"messaging-service/internal/db"
	"messaging-service/internal/models"
)

// MessageRepository defines the write side of messaging.
type MessageRepository interface {
	SendMessage(ctx context.Context, senderID uuid.UUID, subject *string, content string, recipientIDs []uuid.UUID) (models.Message, error)
	MarkRead(ctx context.Context, deliveryID uuid.UUID, userID uuid.UUID) (models.Delivery, error)
}

// MessageRepo is a sqlx-backed repository.
type MessageRepo struct {
	db  *sqlx.DB
	now Clock
}

// NewMessageRepo constructs MessageRepo.
func NewMessageRepo(db *sqlx.DB) *MessageRepo {
	return &MessageRepo{db: db, now: time.Now}
}

// WithClock replaces the time source.
func (r *MessageRepo) WithClock(c Clock) *MessageRepo {
	r.now = c
	return r
}

// SendMessage stores a message and one delivery per distinct recipient in a
// single transaction. Either everything is committed or nothing is.
func (r *MessageRepo) SendMessage(ctx context.Context, senderID uuid.UUID, subject *string, content string, recipientIDs []uuid.UUID) (msg models.Message, err error) {
	ctx, span := startSpan(ctx, "MessageRepo.SendMessage")
	defer func() { endSpan(span, err) }()

	recipients := dedupeIDs(recipientIDs)
	if len(recipients) == 0 {
		return models.Message{}, ErrNoRecipients
	}

	msg = models.Message{
		ID:        uuid.New(),
		SenderID:  senderID,
		Subject:   subject,
		Content:   content,
		Timestamp: stamp(r.now),
	}

	err = db.WithTx(ctx, r.db, func(tx *sqlx.Tx) error {
		if err := checkParticipants(ctx, tx, senderID, recipients); err != nil {
			return err
		}

		if _, err := tx.ExecContext(ctx, `INSERT INTO messages (id, sender_id, subject, content, created_at) VALUES ($1, $2, $3, $4, $5)`,
			msg.ID, msg.SenderID, msg.Subject, msg.Content, msg.Timestamp); err != nil {
			return fmt.Errorf("insert message: %w", err)
		}

		for _, recipientID := range recipients {
			if _, err := tx.ExecContext(ctx, `INSERT INTO message_recipients (id, message_id, recipient_id, is_read, read_at) VALUES ($1, $2, $3, $4, $5)`,
				uuid.New(), msg.ID, recipientID, false, nil); err != nil {
				return fmt.Errorf("insert delivery: %w", err)
			}
		}
		return nil
	})
	if err != nil {
		// a participant removed between the check and the insert
		if db.IsForeignKeyViolation(err) {
			return models.Message{}, fmt.Errorf("%w: %v", ErrUnknownRecipient, err)
		}
		if errors.Is(err, ErrUnknownRecipient) || errors.Is(err, ErrUserNotFound) {
			return models.Message{}, err
		}
		return models.Message{}, fmt.Errorf("send message: %w", err)
	}
	return msg, nil
}

// checkParticipants verifies the sender and every recipient exist.
func checkParticipants(ctx context.Context, tx *sqlx.Tx, senderID uuid.UUID, recipients []uuid.UUID) error {
	ids := make([]string, 0, len(recipients)+1)
	ids = append(ids, senderID.String())
	for _, id := range recipients {
		ids = append(ids, id.String())
	}

	query, args, err := sqlx.In(`SELECT id FROM users WHERE id IN (?)`, ids)
	if err != nil {
		return fmt.Errorf("build participant query: %w", err)
	}
	var found []uuid.UUID
	if err := tx.SelectContext(ctx, &found, tx.Rebind(query), args...); err != nil {
		return fmt.Errorf("load participants: %w", err)
	}

	known := make(map[uuid.UUID]struct{}, len(found))
	for _, id := range found {
		known[id] = struct{}{}
	}
	if _, ok := known[senderID]; !ok {
		return ErrUserNotFound
	}

	var missing []string
	for _, id := range recipients {
		if _, ok := known[id]; !ok {
			missing = append(missing, id.String())
		}
	}
	if len(missing) > 0 {
		return fmt.Errorf("%w: %v", ErrUnknownRecipient, missing)
	}
	return nil
}

// MarkRead flags a delivery as read by its recipient. A delivery that does not
// exist and one addressed to someone else both yield ErrNotFoundOrForbidden.
// Marking twice refreshes read_at.
func (r *MessageRepo) MarkRead(ctx context.Context, deliveryID uuid.UUID, userID uuid.UUID) (delivery models.Delivery, err error) {
	ctx, span := startSpan(ctx, "MessageRepo.MarkRead")
	defer func() { endSpan(span, err) }()

	readAt := stamp(r.now)
	err = db.WithTx(ctx, r.db, func(tx *sqlx.Tx) error {
		res, err := tx.ExecContext(ctx, `UPDATE message_recipients SET is_read = $1, read_at = $2 WHERE id = $3 AND recipient_id = $4`,
			true, readAt, deliveryID, userID)
		if err != nil {
			return fmt.Errorf("update delivery: %w", err)
		}
		count, err := res.RowsAffected()
		if err != nil {
			return fmt.Errorf("update delivery: %w", err)
		}
		if count == 0 {
			return ErrNotFoundOrForbidden
		}

		err = tx.GetContext(ctx, &delivery, `SELECT id, message_id, recipient_id, is_read, read_at FROM message_recipients WHERE id=$1`, deliveryID)
		if errors.Is(err, sql.ErrNoRows) {
			return ErrNotFoundOrForbidden
		}
		return err
	})
	if err != nil {
		return models.Delivery{}, err
	}
	return delivery, nil
}

// dedupeIDs drops repeated ids, keeping first-occurrence order.
func dedupeIDs(ids []uuid.UUID) []uuid.UUID {
	seen := make(map[uuid.UUID]struct{}, len(ids))
	out := make([]uuid.UUID, 0, len(ids))
	for _, id := range ids {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}
