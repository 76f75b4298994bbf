package postgres

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/vedran77/geev/internal/domain"
)

const messageColumns = `m.id, m.conversation_id, m.sender_id, m.receiver_id, m.content, m.type,
	m.status, m.sent_at, m.read_at, m.edited_at, m.reply_to, m.attachments`

type MessageRepo struct {
	pool *pgxpool.Pool
}

func NewMessageRepo(pool *pgxpool.Pool) *MessageRepo {
	return &MessageRepo{pool: pool}
}

func (r *MessageRepo) Create(ctx context.Context, msg *domain.Message) error {
	query := `
		INSERT INTO messages (id, conversation_id, sender_id, receiver_id, content, type,
			status, sent_at, read_at, edited_at, reply_to, attachments)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)`
	_, err := r.pool.Exec(ctx, query,
		msg.ID, msg.ConversationID, msg.SenderID, msg.ReceiverID, msg.Content, msg.Type,
		msg.Status, msg.Timestamp, msg.ReadAt, msg.EditedAt, msg.ReplyTo, msg.Attachments,
	)
	return err
}

func (r *MessageRepo) GetByID(ctx context.Context, id string) (*domain.Message, error) {
	msg, err := scanMessage(r.pool.QueryRow(ctx, "SELECT "+messageColumns+" FROM messages m WHERE m.id = $1", id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	return msg, err
}

func (r *MessageRepo) ListByConversation(ctx context.Context, conversationID string) ([]*domain.Message, error) {
	return r.list(ctx, `
		SELECT `+messageColumns+`
		FROM messages m
		WHERE m.conversation_id = $1
		ORDER BY m.sent_at, m.seq`, conversationID)
}

func (r *MessageRepo) ListByItem(ctx context.Context, itemID string) ([]*domain.Message, error) {
	return r.list(ctx, `
		SELECT `+messageColumns+`
		FROM messages m
		JOIN conversations c ON c.id = m.conversation_id
		WHERE c.item_id = $1
		ORDER BY m.sent_at, m.seq`, itemID)
}

func (r *MessageRepo) CountUnread(ctx context.Context, conversationID, userID string) (int, error) {
	var n int
	err := r.pool.QueryRow(ctx, `
		SELECT COUNT(*) FROM messages
		WHERE conversation_id = $1 AND receiver_id = $2 AND status <> $3`,
		conversationID, userID, domain.MessageStatusRead,
	).Scan(&n)
	return n, err
}

func (r *MessageRepo) list(ctx context.Context, query string, args ...any) ([]*domain.Message, error) {
	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var messages []*domain.Message
	for rows.Next() {
		msg, err := scanMessage(rows)
		if err != nil {
			return nil, err
		}
		messages = append(messages, msg)
	}
	return messages, rows.Err()
}

func scanMessage(row pgx.Row) (*domain.Message, error) {
	var m domain.Message
	err := row.Scan(
		&m.ID, &m.ConversationID, &m.SenderID, &m.ReceiverID, &m.Content, &m.Type,
		&m.Status, &m.Timestamp, &m.ReadAt, &m.EditedAt, &m.ReplyTo, &m.Attachments,
	)
	if err != nil {
		return nil, err
	}
	return &m, nil
}
