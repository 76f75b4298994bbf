package repository

import (
	"context"
	"errors"

	"github.com/vedran77/geev/internal/domain"
)

// Lookups return (nil, nil) when the record does not exist. Update and
// Delete return ErrNotFound instead, so callers can tell a no-op apart.
var ErrNotFound = errors.New("record not found")

// Counter names an engagement counter on an item.
type Counter string

const (
	CounterViews      Counter = "views"
	CounterInterested Counter = "interested"
)

type UserRepository interface {
	Create(ctx context.Context, user *domain.User) error
	GetByID(ctx context.Context, id string) (*domain.User, error)
	GetByEmail(ctx context.Context, email string) (*domain.User, error)
	Update(ctx context.Context, user *domain.User) error
}

type ItemRepository interface {
	// Create prepends the item to the collection.
	Create(ctx context.Context, item *domain.Item) error
	GetByID(ctx context.Context, id string) (*domain.Item, error)
	// List returns every item in collection order.
	List(ctx context.Context) ([]*domain.Item, error)
	Update(ctx context.Context, item *domain.Item) error
	Delete(ctx context.Context, id string) error
	// Increment bumps a counter and returns the updated item.
	Increment(ctx context.Context, id string, counter Counter) (*domain.Item, error)
	// RefreshOwner rewrites the owner snapshot of every item owned by user.
	RefreshOwner(ctx context.Context, user *domain.User) (int, error)
}

type ConversationRepository interface {
	Create(ctx context.Context, conv *domain.Conversation) error
	GetByID(ctx context.Context, id string) (*domain.Conversation, error)
	// GetByItemAndUsers finds the conversation about itemID between the two users.
	GetByItemAndUsers(ctx context.Context, itemID, userA, userB string) (*domain.Conversation, error)
	ListByUser(ctx context.Context, userID string) ([]*domain.Conversation, error)
	Update(ctx context.Context, conv *domain.Conversation) error
	RefreshParticipant(ctx context.Context, user *domain.User) (int, error)
}

type MessageRepository interface {
	Create(ctx context.Context, msg *domain.Message) error
	GetByID(ctx context.Context, id string) (*domain.Message, error)
	// ListByConversation returns messages in ascending timestamp order.
	ListByConversation(ctx context.Context, conversationID string) ([]*domain.Message, error)
	// ListByItem returns messages of every conversation about itemID.
	ListByItem(ctx context.Context, itemID string) ([]*domain.Message, error)
	// CountUnread counts messages addressed to userID that are not read.
	CountUnread(ctx context.Context, conversationID, userID string) (int, error)
}

// Store bundles the repositories one backend provides.
type Store struct {
	Users         UserRepository
	Items         ItemRepository
	Conversations ConversationRepository
	Messages      MessageRepository
}
