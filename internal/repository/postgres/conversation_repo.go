package postgres

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/vedran77/geev/internal/domain"
	"github.com/vedran77/geev/internal/repository"
)

// unread_count is derived per user by the facade, so it is not stored.
const conversationSelect = `SELECT id, item_id, item, participants, last_message, 0 AS unread_count,
	created_at, updated_at, is_active, is_blocked FROM conversations`

type ConversationRepo struct {
	pool *pgxpool.Pool
}

func NewConversationRepo(pool *pgxpool.Pool) *ConversationRepo {
	return &ConversationRepo{pool: pool}
}

func (r *ConversationRepo) Create(ctx context.Context, conv *domain.Conversation) error {
	query := `
		INSERT INTO conversations (id, item_id, item, participants, participant_ids, last_message,
			created_at, updated_at, is_active, is_blocked)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`

	_, err := r.pool.Exec(ctx, query,
		conv.ID, conv.ItemID, conv.Item, conv.Participants, participantIDs(conv), conv.LastMessage,
		conv.CreatedAt, conv.UpdatedAt, conv.IsActive, conv.IsBlocked,
	)
	return err
}

func (r *ConversationRepo) GetByID(ctx context.Context, id string) (*domain.Conversation, error) {
	conv, err := scanConversation(r.pool.QueryRow(ctx, conversationSelect+" WHERE id = $1", id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	return conv, err
}

func (r *ConversationRepo) GetByItemAndUsers(ctx context.Context, itemID, userA, userB string) (*domain.Conversation, error) {
	query := conversationSelect + ` WHERE item_id = $1 AND participant_ids @> ARRAY[$2, $3]::text[] ORDER BY seq LIMIT 1`
	conv, err := scanConversation(r.pool.QueryRow(ctx, query, itemID, userA, userB))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	return conv, err
}

func (r *ConversationRepo) ListByUser(ctx context.Context, userID string) ([]*domain.Conversation, error) {
	return r.list(ctx, conversationSelect+` WHERE $1 = ANY(participant_ids) ORDER BY seq`, userID)
}

func (r *ConversationRepo) Update(ctx context.Context, conv *domain.Conversation) error {
	query := `
		UPDATE conversations SET item = $2, participants = $3, participant_ids = $4,
			last_message = $5, updated_at = $6, is_active = $7, is_blocked = $8
		WHERE id = $1`

	tag, err := r.pool.Exec(ctx, query,
		conv.ID, conv.Item, conv.Participants, participantIDs(conv), conv.LastMessage,
		conv.UpdatedAt, conv.IsActive, conv.IsBlocked,
	)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return repository.ErrNotFound
	}
	return nil
}

// RefreshParticipant rewrites the participant snapshots of user inside one
// transaction.
func (r *ConversationRepo) RefreshParticipant(ctx context.Context, user *domain.User) (int, error) {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return 0, err
	}
	defer tx.Rollback(ctx)

	rows, err := tx.Query(ctx, conversationSelect+` WHERE $1 = ANY(participant_ids) FOR UPDATE`, user.ID)
	if err != nil {
		return 0, err
	}
	convs, err := collectConversations(rows)
	if err != nil {
		return 0, err
	}

	n := 0
	for _, c := range convs {
		if !c.RefreshParticipant(user) {
			continue
		}
		if _, err := tx.Exec(ctx, `UPDATE conversations SET participants = $2 WHERE id = $1`, c.ID, c.Participants); err != nil {
			return 0, err
		}
		n++
	}

	return n, tx.Commit(ctx)
}

func (r *ConversationRepo) list(ctx context.Context, query string, args ...any) ([]*domain.Conversation, error) {
	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	return collectConversations(rows)
}

func collectConversations(rows pgx.Rows) ([]*domain.Conversation, error) {
	defer rows.Close()

	var convs []*domain.Conversation
	for rows.Next() {
		conv, err := scanConversation(rows)
		if err != nil {
			return nil, err
		}
		convs = append(convs, conv)
	}
	return convs, rows.Err()
}

func scanConversation(row pgx.Row) (*domain.Conversation, error) {
	var c domain.Conversation
	err := row.Scan(
		&c.ID, &c.ItemID, &c.Item, &c.Participants, &c.LastMessage, &c.UnreadCount,
		&c.CreatedAt, &c.UpdatedAt, &c.IsActive, &c.IsBlocked,
	)
	if err != nil {
		return nil, err
	}
	return &c, nil
}

func participantIDs(conv *domain.Conversation) []string {
	ids := make([]string, len(conv.Participants))
	for i, p := range conv.Participants {
		ids[i] = p.ID
	}
	return ids
}
