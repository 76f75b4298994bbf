package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vedran77/geev/internal/domain"
	"github.com/vedran77/geev/internal/mockapi"
)

func TestChatService_LoadConversations(t *testing.T) {
	ctx := context.Background()

	t.Run("signed out", func(t *testing.T) {
		f := newFixture(t, mockapi.NoDelay)
		f.chat.LoadConversations(ctx)
		st := f.chat.State()
		assert.Empty(t, st.Conversations)
		assert.Equal(t, ErrNotAuthenticated.Error(), st.Error)
	})

	t.Run("demo user", func(t *testing.T) {
		f := newFixture(t, mockapi.NoDelay)
		f.login(t)
		f.chat.LoadConversations(ctx)

		st := f.chat.State()
		require.Len(t, st.Conversations, 1)
		assert.Equal(t, "conv-1-2", st.Conversations[0].ID)
		assert.Equal(t, 1, st.Conversations[0].UnreadCount)
		assert.False(t, st.IsLoading)
	})
}

func TestChatService_LoadMessages(t *testing.T) {
	f := newFixture(t, mockapi.NoDelay)
	f.chat.LoadMessages(context.Background(), "conv-1-2")

	msgs := f.chat.Messages("conv-1-2")
	require.Len(t, msgs, 3)
	for i := 1; i < len(msgs); i++ {
		assert.False(t, msgs[i].Timestamp.Before(msgs[i-1].Timestamp))
		assert.Equal(t, "conv-1-2", msgs[i].ConversationID)
	}
	assert.Empty(t, f.chat.Messages("conv-2-3"))
}

func TestChatService_SendMessage(t *testing.T) {
	ctx := context.Background()
	g := newGate()
	f := newFixture(t, g)
	f.login(t)
	f.chat.LoadConversations(ctx)
	f.chat.LoadMessages(ctx, "conv-1-2")
	before := len(f.chat.Messages("conv-1-2"))

	g.armed.Store(true)
	done := make(chan error, 1)
	go func() {
		done <- f.chat.SendMessage(ctx, "conv-1-2", "Samedi 10h me convient", domain.MessageTypeText)
	}()

	assert.Equal(t, mockapi.SendMessageDelay, <-g.entered)

	pending := f.chat.Messages("conv-1-2")
	require.Len(t, pending, before+1)
	last := pending[len(pending)-1]
	assert.Equal(t, domain.MessageStatusSending, last.Status)
	assert.Equal(t, "1", last.SenderID)
	assert.Equal(t, "2", last.ReceiverID)

	close(g.release)
	require.NoError(t, <-done)

	sent := f.chat.Messages("conv-1-2")
	require.Len(t, sent, before+1)
	got := sent[len(sent)-1]
	assert.Equal(t, last.ID, got.ID)
	assert.Equal(t, domain.MessageStatusSent, got.Status)
	assert.Equal(t, "Samedi 10h me convient", got.Content)

	conv := f.chat.State().Conversations[0]
	require.NotNil(t, conv.LastMessage)
	assert.Equal(t, got.ID, conv.LastMessage.ID)

	stored, err := f.store.Messages.GetByID(ctx, got.ID)
	require.NoError(t, err)
	require.NotNil(t, stored)
	assert.Equal(t, domain.MessageStatusSent, stored.Status)
}

func TestChatService_LoadMessagesKeepsPendingSend(t *testing.T) {
	ctx := context.Background()
	g := newGate()
	f := newFixture(t, g)
	f.login(t)
	f.chat.LoadConversations(ctx)
	f.chat.LoadMessages(ctx, "conv-1-2")
	before := len(f.chat.Messages("conv-1-2"))

	g.armed.Store(true)
	done := make(chan error, 1)
	go func() {
		done <- f.chat.SendMessage(ctx, "conv-1-2", "Je passe samedi", domain.MessageTypeText)
	}()
	<-g.entered

	// Reload while the send is still blocked in the facade.
	g.armed.Store(false)
	f.chat.LoadMessages(ctx, "conv-1-2")

	reloaded := f.chat.Messages("conv-1-2")
	require.Len(t, reloaded, before+1)
	pending := reloaded[len(reloaded)-1]
	assert.Equal(t, domain.MessageStatusSending, pending.Status)
	assert.Equal(t, "Je passe samedi", pending.Content)

	close(g.release)
	require.NoError(t, <-done)

	sent := f.chat.Messages("conv-1-2")
	require.Len(t, sent, before+1)
	assert.Equal(t, pending.ID, sent[len(sent)-1].ID)
	assert.Equal(t, domain.MessageStatusSent, sent[len(sent)-1].Status)

	f.chat.LoadMessages(ctx, "conv-1-2")
	assert.Len(t, f.chat.Messages("conv-1-2"), before+1)
}

func TestChatService_SendMessageFailure(t *testing.T) {
	// Sign in and load with no latency, then send on a cancelled context.
	quick := newFixture(t, mockapi.NoDelay)
	quick.login(t)
	quick.chat.LoadConversations(context.Background())

	chat := NewChatService(mockapi.NewMessagesAPI(quick.store, mockapi.Latency{Scale: 1}), quick.auth, quick.chat.logger)
	chat.conversations = quick.chat.State().Conversations

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err := chat.SendMessage(ctx, "conv-1-2", "Bonjour", domain.MessageTypeText)
	assert.ErrorIs(t, err, context.Canceled)

	msgs := chat.Messages("conv-1-2")
	require.Len(t, msgs, 1)
	assert.Equal(t, domain.MessageStatusFailed, msgs[0].Status)
	assert.Equal(t, context.Canceled.Error(), chat.State().Error)
}

func TestChatService_SendMessageErrors(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, mockapi.NoDelay)

	assert.ErrorIs(t, f.chat.SendMessage(ctx, "conv-1-2", "hi", ""), ErrNotAuthenticated)

	f.login(t)
	f.chat.LoadConversations(ctx)

	err := f.chat.SendMessage(ctx, "conv-2-3", "hi", "")
	assert.ErrorIs(t, err, ErrConversationNotFound)
	assert.Equal(t, ErrConversationNotFound.Error(), f.chat.State().Error)
	assert.Empty(t, f.chat.Messages("conv-2-3"))

	assert.Error(t, f.chat.SendMessage(ctx, "conv-1-2", "   ", ""))
	assert.Error(t, f.chat.SendMessage(ctx, "conv-1-2", "hi", "video"))
}

func TestChatService_UnsupportedOperations(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, mockapi.NoDelay)

	assert.ErrorIs(t, f.chat.MarkAsRead(ctx, "conv-1-2"), ErrNotSupported)
	assert.ErrorIs(t, f.chat.StartConversation(ctx, "1", "1"), ErrNotSupported)
	assert.ErrorIs(t, f.chat.BlockConversation(ctx, "conv-1-2"), ErrNotSupported)
	assert.ErrorIs(t, f.chat.DeleteConversation(ctx, "conv-1-2"), ErrNotSupported)
}

func TestChatService_SetActiveConversation(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, mockapi.NoDelay)
	f.login(t)
	f.chat.LoadConversations(ctx)

	conv := f.chat.State().Conversations[0]
	f.chat.SetActiveConversation(conv)
	conv.ID = "mutated"
	assert.Equal(t, "conv-1-2", f.chat.State().ActiveConversation.ID)

	f.chat.SetActiveConversation(nil)
	assert.Nil(t, f.chat.State().ActiveConversation)
}

func TestChatService_MessageIDsAreTimeOrdered(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, mockapi.NoDelay)
	f.login(t)
	f.chat.LoadConversations(ctx)

	require.NoError(t, f.chat.SendMessage(ctx, "conv-1-2", "un", ""))
	time.Sleep(2 * time.Millisecond)
	require.NoError(t, f.chat.SendMessage(ctx, "conv-1-2", "deux", ""))

	msgs := f.chat.Messages("conv-1-2")
	require.Len(t, msgs, 2)
	assert.Less(t, msgs[0].ID, msgs[1].ID)
}
