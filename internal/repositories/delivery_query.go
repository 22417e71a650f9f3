package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"messaging-service/internal/models"
)

// DeliveryQueryRepository rebuilds per-user views from messages and their deliveries.
// Every listing is ordered by message creation time, newest first.
type DeliveryQueryRepository interface {
	SentView(ctx context.Context, userID uuid.UUID) ([]models.SentMessageView, error)
	InboxView(ctx context.Context, userID uuid.UUID) ([]models.InboxMessageView, error)
	UnreadView(ctx context.Context, userID uuid.UUID) ([]models.InboxMessageView, error)
	MessageView(ctx context.Context, messageID uuid.UUID, userID uuid.UUID) (models.SentMessageView, error)
}

// DeliveryQueryRepo is the sqlx implementation of DeliveryQueryRepository.
type DeliveryQueryRepo struct {
	db *sqlx.DB
}

// NewDeliveryQueryRepo constructs a DeliveryQueryRepo.
func NewDeliveryQueryRepo(db *sqlx.DB) *DeliveryQueryRepo {
	return &DeliveryQueryRepo{db: db}
}

const inboxQuery = `SELECT m.id, d.id AS delivery_id, m.sender_id, m.subject, m.content, m.created_at, d.is_read, d.read_at
        FROM messages m
        INNER JOIN message_recipients d ON d.message_id = m.id
        WHERE d.recipient_id=$1`

type recipientRow struct {
	MessageID   uuid.UUID  `db:"message_id"`
	RecipientID uuid.UUID  `db:"recipient_id"`
	Read        bool       `db:"is_read"`
	ReadAt      *time.Time `db:"read_at"`
}

// SentView returns the user's sent messages, each with every recipient's read state.
func (r *DeliveryQueryRepo) SentView(ctx context.Context, userID uuid.UUID) (views []models.SentMessageView, err error) {
	ctx, span := startSpan(ctx, "DeliveryQueryRepo.SentView")
	defer func() { endSpan(span, err) }()

	var msgs []models.Message
	err = r.db.SelectContext(ctx, &msgs, `SELECT id, sender_id, subject, content, created_at FROM messages
        WHERE sender_id=$1
        ORDER BY created_at DESC, id DESC`, userID)
	if err != nil {
		return nil, fmt.Errorf("load sent messages: %w", err)
	}

	ids := make([]uuid.UUID, 0, len(msgs))
	for _, m := range msgs {
		ids = append(ids, m.ID)
	}
	recipients, err := r.loadRecipients(ctx, ids)
	if err != nil {
		return nil, err
	}

	views = make([]models.SentMessageView, 0, len(msgs))
	for _, m := range msgs {
		views = append(views, models.SentMessageView{Message: m, Recipients: recipientsOrEmpty(recipients[m.ID])})
	}
	return views, nil
}

// InboxView returns one row per delivery addressed to the user. Other
// recipients' read state is never part of the row.
func (r *DeliveryQueryRepo) InboxView(ctx context.Context, userID uuid.UUID) (views []models.InboxMessageView, err error) {
	ctx, span := startSpan(ctx, "DeliveryQueryRepo.InboxView")
	defer func() { endSpan(span, err) }()

	views = []models.InboxMessageView{}
	err = r.db.SelectContext(ctx, &views, inboxQuery+`
        ORDER BY m.created_at DESC, m.id DESC`, userID)
	if err != nil {
		return nil, fmt.Errorf("load inbox: %w", err)
	}
	return views, nil
}

// UnreadView is InboxView restricted to deliveries not yet read.
func (r *DeliveryQueryRepo) UnreadView(ctx context.Context, userID uuid.UUID) (views []models.InboxMessageView, err error) {
	ctx, span := startSpan(ctx, "DeliveryQueryRepo.UnreadView")
	defer func() { endSpan(span, err) }()

	views = []models.InboxMessageView{}
	err = r.db.SelectContext(ctx, &views, inboxQuery+` AND d.is_read = $2
        ORDER BY m.created_at DESC, m.id DESC`, userID, false)
	if err != nil {
		return nil, fmt.Errorf("load unread: %w", err)
	}
	return views, nil
}

// MessageView returns one message with its full delivery list when the user is
// the sender or one of the recipients, and ErrNotFoundOrForbidden otherwise.
func (r *DeliveryQueryRepo) MessageView(ctx context.Context, messageID uuid.UUID, userID uuid.UUID) (view models.SentMessageView, err error) {
	ctx, span := startSpan(ctx, "DeliveryQueryRepo.MessageView")
	defer func() { endSpan(span, err) }()

	var msg models.Message
	err = r.db.GetContext(ctx, &msg, `SELECT m.id, m.sender_id, m.subject, m.content, m.created_at FROM messages m
        WHERE m.id=$1
        AND (m.sender_id=$2 OR EXISTS(SELECT 1 FROM message_recipients d WHERE d.message_id = m.id AND d.recipient_id=$2))`,
		messageID, userID)
	if errors.Is(err, sql.ErrNoRows) {
		return models.SentMessageView{}, ErrNotFoundOrForbidden
	}
	if err != nil {
		return models.SentMessageView{}, fmt.Errorf("load message: %w", err)
	}

	recipients, err := r.loadRecipients(ctx, []uuid.UUID{msg.ID})
	if err != nil {
		return models.SentMessageView{}, err
	}
	return models.SentMessageView{Message: msg, Recipients: recipientsOrEmpty(recipients[msg.ID])}, nil
}

// loadRecipients fetches the deliveries of several messages in one query.
func (r *DeliveryQueryRepo) loadRecipients(ctx context.Context, messageIDs []uuid.UUID) (map[uuid.UUID][]models.RecipientInfo, error) {
	out := make(map[uuid.UUID][]models.RecipientInfo, len(messageIDs))
	if len(messageIDs) == 0 {
		return out, nil
	}

	ids := make([]string, 0, len(messageIDs))
	for _, id := range messageIDs {
		ids = append(ids, id.String())
	}
	query, args, err := sqlx.In(`SELECT message_id, recipient_id, is_read, read_at FROM message_recipients
        WHERE message_id IN (?)
        ORDER BY recipient_id ASC`, ids)
	if err != nil {
		return nil, fmt.Errorf("build recipients query: %w", err)
	}

	var rows []recipientRow
	if err := r.db.SelectContext(ctx, &rows, r.db.Rebind(query), args...); err != nil {
		return nil, fmt.Errorf("load recipients: %w", err)
	}
	for _, row := range rows {
		out[row.MessageID] = append(out[row.MessageID], models.RecipientInfo{
			RecipientID: row.RecipientID,
			Read:        row.Read,
			ReadAt:      row.ReadAt,
		})
	}
	return out, nil
}

func recipientsOrEmpty(list []models.RecipientInfo) []models.RecipientInfo {
	if list == nil {
		return []models.RecipientInfo{}
	}
	return list
}
