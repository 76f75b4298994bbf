package mockapi

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/oklog/ulid/v2"

	"github.com/vedran77/geev/internal/domain"
	"github.com/vedran77/geev/internal/repository"
)

var (
	ErrConversationNotFound = errors.New("conversation not found")
	ErrNotParticipant       = errors.New("not a participant of this conversation")
	ErrCannotContactSelf    = errors.New("cannot contact yourself about your own item")
	ErrUserNotFound         = errors.New("user not found")
	ErrInvalidMessageID     = errors.New("message id must be a ULID")
	ErrMessageExists        = errors.New("message already exists")
)

// Notifier broadcasts stored messages to connected clients.
type Notifier interface {
	NotifyMessage(msg *domain.Message)
}

type MessagesAPI struct {
	store    *repository.Store
	delay    Delayer
	now      func() time.Time
	mu       sync.RWMutex
	notifier Notifier
}

func NewMessagesAPI(store *repository.Store, delay Delayer) *MessagesAPI {
	return &MessagesAPI{
		store: store,
		delay: delay,
		now:   time.Now,
	}
}

// SetNotifier sets the real-time notifier (optional dependency).
func (a *MessagesAPI) SetNotifier(n Notifier) {
	a.mu.Lock()
	a.notifier = n
	a.mu.Unlock()
}

// ListConversations returns the conversations userID takes part in, most
// recently active first, with the unread count computed for that user.
func (a *MessagesAPI) ListConversations(ctx context.Context, userID string) ([]*domain.Conversation, error) {
	if err := a.delay.Delay(ctx, ConversationDelay); err != nil {
		return nil, err
	}

	convs, err := a.store.Conversations.ListByUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("listing conversations: %w", err)
	}

	for _, c := range convs {
		n, err := a.store.Messages.CountUnread(ctx, c.ID, userID)
		if err != nil {
			return nil, fmt.Errorf("counting unread: %w", err)
		}
		c.UnreadCount = n
	}

	slices.SortStableFunc(convs, func(x, y *domain.Conversation) int {
		return y.UpdatedAt.Compare(x.UpdatedAt)
	})
	return convs, nil
}

func (a *MessagesAPI) GetConversation(ctx context.Context, id string) (*domain.Conversation, error) {
	conv, err := a.store.Conversations.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("getting conversation: %w", err)
	}
	if conv == nil {
		return nil, ErrConversationNotFound
	}
	return conv, nil
}

// ListMessages returns a conversation's messages, oldest first.
func (a *MessagesAPI) ListMessages(ctx context.Context, conversationID string) ([]*domain.Message, error) {
	if err := a.delay.Delay(ctx, DefaultDelay); err != nil {
		return nil, err
	}

	msgs, err := a.store.Messages.ListByConversation(ctx, conversationID)
	if err != nil {
		return nil, fmt.Errorf("listing messages: %w", err)
	}
	return msgs, nil
}

// ListItemMessages returns the messages of every conversation about itemID.
func (a *MessagesAPI) ListItemMessages(ctx context.Context, itemID string) ([]*domain.Message, error) {
	if err := a.delay.Delay(ctx, DefaultDelay); err != nil {
		return nil, err
	}

	msgs, err := a.store.Messages.ListByItem(ctx, itemID)
	if err != nil {
		return nil, fmt.Errorf("listing item messages: %w", err)
	}
	return msgs, nil
}

// SendMessage stores msg as sent and makes it the conversation's last
// message. Missing id and timestamp are filled in.
func (a *MessagesAPI) SendMessage(ctx context.Context, msg *domain.Message) (*domain.Message, error) {
	if err := a.delay.Delay(ctx, SendMessageDelay); err != nil {
		return nil, err
	}
	return a.send(ctx, msg)
}

// ContactOwner opens (or reuses) the conversation between senderID and the
// owner of itemID, then sends content in it.
func (a *MessagesAPI) ContactOwner(ctx context.Context, senderID, itemID, content string) (*domain.Conversation, *domain.Message, error) {
	if err := a.delay.Delay(ctx, SendMessageDelay); err != nil {
		return nil, nil, err
	}

	item, err := a.store.Items.GetByID(ctx, itemID)
	if err != nil {
		return nil, nil, fmt.Errorf("getting item: %w", err)
	}
	if item == nil {
		return nil, nil, ErrItemNotFound
	}
	if item.Owner.ID == senderID {
		return nil, nil, ErrCannotContactSelf
	}

	conv, err := a.store.Conversations.GetByItemAndUsers(ctx, itemID, senderID, item.Owner.ID)
	if err != nil {
		return nil, nil, fmt.Errorf("finding conversation: %w", err)
	}
	if conv == nil {
		conv, err = a.openConversation(ctx, item, senderID)
		if err != nil {
			return nil, nil, err
		}
	}

	msg, err := a.send(ctx, &domain.Message{
		ConversationID: conv.ID,
		SenderID:       senderID,
		ReceiverID:     item.Owner.ID,
		Content:        content,
		Type:           domain.MessageTypeText,
	})
	if err != nil {
		return nil, nil, err
	}

	conv.LastMessage = msg.Clone()
	conv.UpdatedAt = msg.Timestamp
	return conv, msg, nil
}

// RefreshParticipant rewrites the participant snapshots of user.
func (a *MessagesAPI) RefreshParticipant(ctx context.Context, user *domain.User) (int, error) {
	n, err := a.store.Conversations.RefreshParticipant(ctx, user)
	if err != nil {
		return 0, fmt.Errorf("refreshing participant snapshots: %w", err)
	}
	return n, nil
}

func (a *MessagesAPI) openConversation(ctx context.Context, item *domain.Item, senderID string) (*domain.Conversation, error) {
	sender, err := a.store.Users.GetByID(ctx, senderID)
	if err != nil {
		return nil, fmt.Errorf("getting sender: %w", err)
	}
	owner, err := a.store.Users.GetByID(ctx, item.Owner.ID)
	if err != nil {
		return nil, fmt.Errorf("getting owner: %w", err)
	}
	if sender == nil || owner == nil {
		return nil, ErrUserNotFound
	}

	now := a.now()
	conv := &domain.Conversation{
		ID:     uuid.NewString(),
		ItemID: item.ID,
		Item:   domain.NewItemSummary(item),
		Participants: []domain.Participant{
			domain.NewParticipant(owner, domain.RoleDonor),
			domain.NewParticipant(sender, domain.RoleRecipient),
		},
		CreatedAt: now,
		UpdatedAt: now,
		IsActive:  true,
	}
	if err := a.store.Conversations.Create(ctx, conv); err != nil {
		return nil, fmt.Errorf("creating conversation: %w", err)
	}
	return conv, nil
}

func (a *MessagesAPI) send(ctx context.Context, msg *domain.Message) (*domain.Message, error) {
	conv, err := a.GetConversation(ctx, msg.ConversationID)
	if err != nil {
		return nil, err
	}
	if !conv.HasParticipant(msg.SenderID) {
		return nil, ErrNotParticipant
	}

	stored := msg.Clone()
	if stored.ID == "" {
		stored.ID = ulid.Make().String()
	} else {
		if _, err := ulid.ParseStrict(stored.ID); err != nil {
			return nil, ErrInvalidMessageID
		}
		existing, err := a.store.Messages.GetByID(ctx, stored.ID)
		if err != nil {
			return nil, fmt.Errorf("checking message id: %w", err)
		}
		if existing != nil {
			return nil, ErrMessageExists
		}
	}
	if stored.Timestamp.IsZero() {
		stored.Timestamp = a.now()
	}
	if stored.Type == "" {
		stored.Type = domain.MessageTypeText
	}
	if stored.ReceiverID == "" {
		if p, ok := conv.Counterpart(stored.SenderID); ok {
			stored.ReceiverID = p.ID
		}
	}
	stored.Status = domain.MessageStatusSent

	if err := a.store.Messages.Create(ctx, stored); err != nil {
		return nil, fmt.Errorf("creating message: %w", err)
	}

	conv.LastMessage = stored.Clone()
	conv.UpdatedAt = stored.Timestamp
	if err := a.store.Conversations.Update(ctx, conv); err != nil {
		return nil, fmt.Errorf("updating conversation: %w", err)
	}

	a.mu.RLock()
	n := a.notifier
	a.mu.RUnlock()
	if n != nil {
		n.NotifyMessage(stored.Clone())
	}

	return stored, nil
}
