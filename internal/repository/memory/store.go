// Package memory is the in-process Mock Store: seeded users, items,
// conversations and messages held behind the repository interfaces.
// Every read hands out a copy and every write stores one, so nothing
// outside the store can alias its records.
package memory

import (
	"context"
	_ "embed"
	"fmt"
	"slices"
	"sync"

	"gopkg.in/yaml.v3"

	"github.com/vedran77/geev/internal/domain"
	"github.com/vedran77/geev/internal/repository"
)

//go:embed seed.yaml
var seedYAML []byte

// Seed is the dataset a Store starts from.
type Seed struct {
	Users         []*domain.User         `yaml:"users"`
	Items         []*domain.Item         `yaml:"items"`
	Conversations []*domain.Conversation `yaml:"conversations"`
	Messages      []*domain.Message      `yaml:"messages"`
}

// DefaultSeed decodes the embedded demo dataset.
func DefaultSeed() (*Seed, error) {
	var seed Seed
	if err := yaml.Unmarshal(seedYAML, &seed); err != nil {
		return nil, fmt.Errorf("decoding seed: %w", err)
	}
	return &seed, nil
}

type db struct {
	mu            sync.RWMutex
	users         []*domain.User
	items         []*domain.Item
	conversations []*domain.Conversation
	messages      []*domain.Message
}

// New builds a store from seed. A nil seed gives an empty store.
func New(seed *Seed) *repository.Store {
	d := &db{}
	if seed != nil {
		for _, u := range seed.Users {
			d.users = append(d.users, u.Clone())
		}
		for _, it := range seed.Items {
			d.items = append(d.items, it.Clone())
		}
		for _, c := range seed.Conversations {
			d.conversations = append(d.conversations, c.Clone())
		}
		for _, m := range seed.Messages {
			d.messages = append(d.messages, m.Clone())
		}
		d.fillLastMessages()
	}
	return &repository.Store{
		Users:         &UserRepo{db: d},
		Items:         &ItemRepo{db: d},
		Conversations: &ConversationRepo{db: d},
		Messages:      &MessageRepo{db: d},
	}
}

// NewDefault builds a store from the embedded demo dataset.
func NewDefault() (*repository.Store, error) {
	seed, err := DefaultSeed()
	if err != nil {
		return nil, err
	}
	return New(seed), nil
}

func (d *db) fillLastMessages() {
	for _, c := range d.conversations {
		if c.LastMessage == nil {
			c.LastMessage = latestMessage(d.messages, c.ID)
		}
	}
}

// latestMessage returns a copy of the newest message of a conversation.
func latestMessage(msgs []*domain.Message, conversationID string) *domain.Message {
	var last *domain.Message
	for _, m := range msgs {
		if m.ConversationID == conversationID && (last == nil || m.Timestamp.After(last.Timestamp)) {
			last = m
		}
	}
	return last.Clone()
}

// --- users ---

type UserRepo struct{ db *db }

func (r *UserRepo) Create(_ context.Context, user *domain.User) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	r.db.users = append(r.db.users, user.Clone())
	return nil
}

func (r *UserRepo) GetByID(_ context.Context, id string) (*domain.User, error) {
	r.db.mu.RLock()
	defer r.db.mu.RUnlock()
	for _, u := range r.db.users {
		if u.ID == id {
			return u.Clone(), nil
		}
	}
	return nil, nil
}

func (r *UserRepo) GetByEmail(_ context.Context, email string) (*domain.User, error) {
	r.db.mu.RLock()
	defer r.db.mu.RUnlock()
	for _, u := range r.db.users {
		if u.Email == email {
			return u.Clone(), nil
		}
	}
	return nil, nil
}

func (r *UserRepo) Update(_ context.Context, user *domain.User) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	for i, u := range r.db.users {
		if u.ID == user.ID {
			r.db.users[i] = user.Clone()
			return nil
		}
	}
	return repository.ErrNotFound
}

// --- items ---

type ItemRepo struct{ db *db }

func (r *ItemRepo) Create(_ context.Context, item *domain.Item) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	r.db.items = slices.Insert(r.db.items, 0, item.Clone())
	return nil
}

func (r *ItemRepo) GetByID(_ context.Context, id string) (*domain.Item, error) {
	r.db.mu.RLock()
	defer r.db.mu.RUnlock()
	if i := r.index(id); i >= 0 {
		return r.db.items[i].Clone(), nil
	}
	return nil, nil
}

func (r *ItemRepo) List(_ context.Context) ([]*domain.Item, error) {
	r.db.mu.RLock()
	defer r.db.mu.RUnlock()
	out := make([]*domain.Item, len(r.db.items))
	for i, it := range r.db.items {
		out[i] = it.Clone()
	}
	return out, nil
}

func (r *ItemRepo) Update(_ context.Context, item *domain.Item) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	i := r.index(item.ID)
	if i < 0 {
		return repository.ErrNotFound
	}
	r.db.items[i] = item.Clone()
	return nil
}

func (r *ItemRepo) Delete(_ context.Context, id string) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	i := r.index(id)
	if i < 0 {
		return repository.ErrNotFound
	}
	r.db.items = slices.Delete(r.db.items, i, i+1)
	return nil
}

func (r *ItemRepo) Increment(_ context.Context, id string, counter repository.Counter) (*domain.Item, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	i := r.index(id)
	if i < 0 {
		return nil, repository.ErrNotFound
	}
	switch counter {
	case repository.CounterViews:
		r.db.items[i].ViewCount++
	case repository.CounterInterested:
		r.db.items[i].InterestedCount++
	default:
		return nil, fmt.Errorf("unknown counter %q", counter)
	}
	return r.db.items[i].Clone(), nil
}

func (r *ItemRepo) RefreshOwner(_ context.Context, user *domain.User) (int, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	n := 0
	for _, it := range r.db.items {
		if it.Owner.ID == user.ID {
			it.Owner.Refresh(user)
			n++
		}
	}
	return n, nil
}

func (r *ItemRepo) index(id string) int {
	return slices.IndexFunc(r.db.items, func(it *domain.Item) bool { return it.ID == id })
}

// --- conversations ---

type ConversationRepo struct{ db *db }

func (r *ConversationRepo) Create(_ context.Context, conv *domain.Conversation) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	r.db.conversations = append(r.db.conversations, conv.Clone())
	return nil
}

func (r *ConversationRepo) GetByID(_ context.Context, id string) (*domain.Conversation, error) {
	r.db.mu.RLock()
	defer r.db.mu.RUnlock()
	for _, c := range r.db.conversations {
		if c.ID == id {
			return c.Clone(), nil
		}
	}
	return nil, nil
}

func (r *ConversationRepo) GetByItemAndUsers(_ context.Context, itemID, userA, userB string) (*domain.Conversation, error) {
	r.db.mu.RLock()
	defer r.db.mu.RUnlock()
	for _, c := range r.db.conversations {
		if c.ItemID == itemID && c.HasParticipant(userA) && c.HasParticipant(userB) {
			return c.Clone(), nil
		}
	}
	return nil, nil
}

func (r *ConversationRepo) ListByUser(_ context.Context, userID string) ([]*domain.Conversation, error) {
	r.db.mu.RLock()
	defer r.db.mu.RUnlock()
	var out []*domain.Conversation
	for _, c := range r.db.conversations {
		if c.HasParticipant(userID) {
			out = append(out, c.Clone())
		}
	}
	return out, nil
}

func (r *ConversationRepo) Update(_ context.Context, conv *domain.Conversation) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	for i, c := range r.db.conversations {
		if c.ID == conv.ID {
			r.db.conversations[i] = conv.Clone()
			return nil
		}
	}
	return repository.ErrNotFound
}

func (r *ConversationRepo) RefreshParticipant(_ context.Context, user *domain.User) (int, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	n := 0
	for _, c := range r.db.conversations {
		if c.RefreshParticipant(user) {
			n++
		}
	}
	return n, nil
}

// --- messages ---

type MessageRepo struct{ db *db }

func (r *MessageRepo) Create(_ context.Context, msg *domain.Message) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	r.db.messages = append(r.db.messages, msg.Clone())
	return nil
}

func (r *MessageRepo) GetByID(_ context.Context, id string) (*domain.Message, error) {
	r.db.mu.RLock()
	defer r.db.mu.RUnlock()
	for _, m := range r.db.messages {
		if m.ID == id {
			return m.Clone(), nil
		}
	}
	return nil, nil
}

func (r *MessageRepo) ListByConversation(_ context.Context, conversationID string) ([]*domain.Message, error) {
	r.db.mu.RLock()
	defer r.db.mu.RUnlock()
	return r.collect(func(m *domain.Message) bool { return m.ConversationID == conversationID }), nil
}

func (r *MessageRepo) ListByItem(_ context.Context, itemID string) ([]*domain.Message, error) {
	r.db.mu.RLock()
	defer r.db.mu.RUnlock()
	convIDs := map[string]struct{}{}
	for _, c := range r.db.conversations {
		if c.ItemID == itemID {
			convIDs[c.ID] = struct{}{}
		}
	}
	return r.collect(func(m *domain.Message) bool {
		_, ok := convIDs[m.ConversationID]
		return ok
	}), nil
}

func (r *MessageRepo) CountUnread(_ context.Context, conversationID, userID string) (int, error) {
	r.db.mu.RLock()
	defer r.db.mu.RUnlock()
	n := 0
	for _, m := range r.db.messages {
		if m.ConversationID == conversationID && m.ReceiverID == userID && m.Status != domain.MessageStatusRead {
			n++
		}
	}
	return n, nil
}

// collect copies matching messages, sorted by timestamp. Caller holds the lock.
func (r *MessageRepo) collect(keep func(*domain.Message) bool) []*domain.Message {
	var out []*domain.Message
	for _, m := range r.db.messages {
		if keep(m) {
			out = append(out, m.Clone())
		}
	}
	slices.SortStableFunc(out, func(a, b *domain.Message) int {
		return a.Timestamp.Compare(b.Timestamp)
	})
	return out
}

// Load copies seed into dst, keeping the seed's item order. It is how the
// postgres store gets the demo dataset.
func Load(ctx context.Context, dst *repository.Store, seed *Seed) error {
	for _, u := range seed.Users {
		if err := dst.Users.Create(ctx, u); err != nil {
			return fmt.Errorf("seeding user %s: %w", u.ID, err)
		}
	}
	// Create prepends, so insert from the back.
	for i := len(seed.Items) - 1; i >= 0; i-- {
		if err := dst.Items.Create(ctx, seed.Items[i]); err != nil {
			return fmt.Errorf("seeding item %s: %w", seed.Items[i].ID, err)
		}
	}
	for _, c := range seed.Conversations {
		if c.LastMessage == nil {
			c = c.Clone()
			c.LastMessage = latestMessage(seed.Messages, c.ID)
		}
		if err := dst.Conversations.Create(ctx, c); err != nil {
			return fmt.Errorf("seeding conversation %s: %w", c.ID, err)
		}
	}
	for _, m := range seed.Messages {
		if err := dst.Messages.Create(ctx, m); err != nil {
			return fmt.Errorf("seeding message %s: %w", m.ID, err)
		}
	}
	return nil
}
