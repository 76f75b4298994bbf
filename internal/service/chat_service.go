package service

import (
	"context"
	"fmt"
	"slices"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"
	"go.uber.org/zap"

	"github.com/vedran77/geev/internal/domain"
	"github.com/vedran77/geev/pkg/validator"
)

// ChatState is a snapshot of the inbox.
type ChatState struct {
	Conversations      []*domain.Conversation       `json:"conversations"`
	ActiveConversation *domain.Conversation         `json:"active_conversation,omitempty"`
	Messages           map[string][]*domain.Message `json:"messages"`
	IsLoading          bool                         `json:"is_loading"`
	Error              string                       `json:"error,omitempty"`
}

type ChatService struct {
	api     MessagesAPI
	session Session
	logger  *zap.Logger
	now     func() time.Time

	mu            sync.RWMutex
	conversations []*domain.Conversation
	active        *domain.Conversation
	messages      map[string][]*domain.Message
	isLoading     bool
	err           string
}

func NewChatService(api MessagesAPI, session Session, logger *zap.Logger) *ChatService {
	return &ChatService{
		api:      api,
		session:  session,
		logger:   logger.Named("chat"),
		now:      time.Now,
		messages: make(map[string][]*domain.Message),
	}
}

func (s *ChatService) State() ChatState {
	s.mu.RLock()
	defer s.mu.RUnlock()

	convs := make([]*domain.Conversation, len(s.conversations))
	for i, c := range s.conversations {
		convs[i] = c.Clone()
	}
	msgs := make(map[string][]*domain.Message, len(s.messages))
	for id, list := range s.messages {
		msgs[id] = cloneMessages(list)
	}
	return ChatState{
		Conversations:      convs,
		ActiveConversation: s.active.Clone(),
		Messages:           msgs,
		IsLoading:          s.isLoading,
		Error:              s.err,
	}
}

// Messages returns the loaded messages of one conversation, oldest first.
func (s *ChatService) Messages(conversationID string) []*domain.Message {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return cloneMessages(s.messages[conversationID])
}

// LoadConversations fetches the signed-in user's conversations.
func (s *ChatService) LoadConversations(ctx context.Context) {
	user := s.session.CurrentUser()
	if user == nil {
		s.fail(ErrNotAuthenticated)
		return
	}

	s.begin()
	convs, err := s.api.ListConversations(ctx, user.ID)
	if err != nil {
		s.logger.Error("loading conversations", zap.Error(err))
		s.fail(fmt.Errorf("loading conversations: %w", err))
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.conversations = convs
	s.isLoading = false
}

// LoadMessages replaces the loaded messages of one conversation. Messages
// still being sent are kept until the facade answers for them.
func (s *ChatService) LoadMessages(ctx context.Context, conversationID string) {
	s.begin()
	msgs, err := s.api.ListMessages(ctx, conversationID)
	if err != nil {
		s.logger.Error("loading messages", zap.String("conversation_id", conversationID), zap.Error(err))
		s.fail(fmt.Errorf("loading messages: %w", err))
		return
	}

	msgs = slices.DeleteFunc(msgs, func(m *domain.Message) bool {
		return m.ConversationID != conversationID
	})

	s.mu.Lock()
	defer s.mu.Unlock()
	for _, local := range s.messages[conversationID] {
		if local.Status != domain.MessageStatusSending {
			continue
		}
		if !slices.ContainsFunc(msgs, func(m *domain.Message) bool { return m.ID == local.ID }) {
			msgs = append(msgs, local)
		}
	}
	slices.SortStableFunc(msgs, func(a, b *domain.Message) int {
		return a.Timestamp.Compare(b.Timestamp)
	})
	s.messages[conversationID] = msgs
	s.isLoading = false
}

// SendMessage appends the message as sending right away, then flips the
// same message to sent (or failed) once the facade answers.
func (s *ChatService) SendMessage(ctx context.Context, conversationID, content string, msgType domain.MessageType) error {
	user := s.session.CurrentUser()
	if user == nil {
		s.fail(ErrNotAuthenticated)
		return ErrNotAuthenticated
	}
	if msgType == "" {
		msgType = domain.MessageTypeText
	}
	if !msgType.Valid() {
		err := fmt.Errorf("invalid message type %q", msgType)
		s.fail(err)
		return err
	}
	if errs := validator.ValidateMessage(content); errs.HasErrors() {
		s.fail(errs)
		return errs
	}

	s.mu.Lock()
	i := slices.IndexFunc(s.conversations, func(c *domain.Conversation) bool { return c.ID == conversationID })
	if i < 0 {
		s.err = ErrConversationNotFound.Error()
		s.mu.Unlock()
		return ErrConversationNotFound
	}
	msg := &domain.Message{
		ID:             ulid.Make().String(),
		ConversationID: conversationID,
		SenderID:       user.ID,
		Content:        content,
		Type:           msgType,
		Status:         domain.MessageStatusSending,
		Timestamp:      s.now(),
	}
	if p, ok := s.conversations[i].Counterpart(user.ID); ok {
		msg.ReceiverID = p.ID
	}
	s.messages[conversationID] = append(s.messages[conversationID], msg.Clone())
	s.err = ""
	s.mu.Unlock()

	sent, err := s.api.SendMessage(ctx, msg)
	if err != nil {
		s.logger.Error("sending message", zap.String("conversation_id", conversationID), zap.Error(err))
		s.mu.Lock()
		s.setMessage(conversationID, msg.ID, func(m *domain.Message) { m.Status = domain.MessageStatusFailed })
		s.err = err.Error()
		s.mu.Unlock()
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.setMessage(conversationID, msg.ID, func(m *domain.Message) { *m = *sent.Clone() })
	for _, c := range s.conversations {
		if c.ID == conversationID {
			c.LastMessage = sent.Clone()
			c.UpdatedAt = sent.Timestamp
		}
	}
	if s.active != nil && s.active.ID == conversationID {
		s.active.LastMessage = sent.Clone()
		s.active.UpdatedAt = sent.Timestamp
	}
	return nil
}

// SetActiveConversation selects the open conversation. nil clears it.
func (s *ChatService) SetActiveConversation(conv *domain.Conversation) {
	s.mu.Lock()
	s.active = conv.Clone()
	s.mu.Unlock()
}

func (s *ChatService) MarkAsRead(ctx context.Context, conversationID string) error {
	return ErrNotSupported
}

func (s *ChatService) StartConversation(ctx context.Context, itemID, ownerID string) error {
	return ErrNotSupported
}

func (s *ChatService) BlockConversation(ctx context.Context, conversationID string) error {
	return ErrNotSupported
}

func (s *ChatService) DeleteConversation(ctx context.Context, conversationID string) error {
	return ErrNotSupported
}

// RefreshParticipant rewrites the participant snapshots of user.
func (s *ChatService) RefreshParticipant(ctx context.Context, user *domain.User) {
	if _, err := s.api.RefreshParticipant(ctx, user); err != nil {
		s.logger.Error("refreshing participant snapshots", zap.String("user_id", user.ID), zap.Error(err))
		s.fail(err)
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	for _, c := range s.conversations {
		c.RefreshParticipant(user)
	}
	if s.active != nil {
		s.active.RefreshParticipant(user)
	}
}

func (s *ChatService) ClearError() {
	s.mu.Lock()
	s.err = ""
	s.mu.Unlock()
}

func (s *ChatService) begin() {
	s.mu.Lock()
	s.isLoading = true
	s.err = ""
	s.mu.Unlock()
}

func (s *ChatService) fail(err error) {
	s.mu.Lock()
	s.isLoading = false
	s.err = errString(err)
	s.mu.Unlock()
}

// setMessage edits the message with id in place. Caller holds the lock.
func (s *ChatService) setMessage(conversationID, id string, edit func(*domain.Message)) {
	for _, m := range s.messages[conversationID] {
		if m.ID == id {
			edit(m)
			return
		}
	}
}

func cloneMessages(msgs []*domain.Message) []*domain.Message {
	out := make([]*domain.Message, len(msgs))
	for i, m := range msgs {
		out[i] = m.Clone()
	}
	return out
}
