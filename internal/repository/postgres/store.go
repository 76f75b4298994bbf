// Package postgres implements the repository interfaces on PostgreSQL.
// Nested values (locations, owner and participant snapshots, pickup
// details) live in JSONB columns.
package postgres

import (
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/vedran77/geev/internal/repository"
)

// New bundles the postgres repositories over pool.
func New(pool *pgxpool.Pool) *repository.Store {
	return &repository.Store{
		Users:         NewUserRepo(pool),
		Items:         NewItemRepo(pool),
		Conversations: NewConversationRepo(pool),
		Messages:      NewMessageRepo(pool),
	}
}
