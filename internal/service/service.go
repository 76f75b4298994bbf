// Package service holds the session-side state containers: Auth, Items and
// Chat. Each container owns its state behind a mutex, calls the API facade
// without holding the lock, and hands out copies through State.
package service

import (
	"context"
	"errors"
	"time"

	"github.com/vedran77/geev/internal/domain"
	"github.com/vedran77/geev/internal/mockapi"
	"github.com/vedran77/geev/internal/repository"
)

// PageSize is the number of items one page of the feed holds.
const PageSize = 20

var (
	ErrNotAuthenticated     = mockapi.ErrNotAuthenticated
	ErrConversationNotFound = mockapi.ErrConversationNotFound
	ErrNotSupported         = errors.New("operation not supported")
)

// AuthAPI is the authentication side of the API facade. mockapi.AuthAPI
// serves it in-process and apiclient.Client over HTTP.
type AuthAPI interface {
	Login(ctx context.Context, creds mockapi.Credentials) (*mockapi.AuthResponse, error)
	Register(ctx context.Context, input mockapi.RegisterInput) (*mockapi.AuthResponse, error)
	LoginWithGoogle(ctx context.Context) (*mockapi.AuthResponse, error)
	Logout(ctx context.Context) error
	UpdateProfile(ctx context.Context, userID string, patch domain.ProfilePatch) (*domain.User, error)
}

type ItemsAPI interface {
	ListItems(ctx context.Context, f domain.Filter) ([]*domain.Item, error)
	ListItemsBefore(ctx context.Context, before time.Time, limit int) ([]*domain.Item, error)
	GetItem(ctx context.Context, id string) (*domain.Item, error)
	CreateItem(ctx context.Context, owner *domain.User, input domain.CreateItemInput) (*domain.Item, error)
	UpdateItem(ctx context.Context, id string, patch domain.ItemPatch) (*domain.Item, error)
	DeleteItem(ctx context.Context, id string) error
	IncrementCounter(ctx context.Context, id string, counter repository.Counter) (*domain.Item, error)
	RefreshOwner(ctx context.Context, user *domain.User) (int, error)
}

type MessagesAPI interface {
	ListConversations(ctx context.Context, userID string) ([]*domain.Conversation, error)
	ListMessages(ctx context.Context, conversationID string) ([]*domain.Message, error)
	SendMessage(ctx context.Context, msg *domain.Message) (*domain.Message, error)
	RefreshParticipant(ctx context.Context, user *domain.User) (int, error)
}

// Session is what the Items and Chat containers need from Auth.
type Session interface {
	CurrentUser() *domain.User
}

func cloneItems(items []*domain.Item) []*domain.Item {
	out := make([]*domain.Item, len(items))
	for i, it := range items {
		out[i] = it.Clone()
	}
	return out
}

func errString(err error) string {
	if err == nil {
		return ""
	}
	return err.Error()
}
