package ws

import (
	"context"
	"encoding/json"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
	"go.uber.org/zap"
	"nhooyr.io/websocket"
	"nhooyr.io/websocket/wsjson"

	"github.com/vedran77/geev/internal/domain"
	"github.com/vedran77/geev/internal/mockapi"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

type fakeTokens map[string]string

func (f fakeTokens) ParseToken(tokenStr string) (string, error) {
	id, ok := f[tokenStr]
	if !ok {
		return "", mockapi.ErrInvalidToken
	}
	return id, nil
}

type fakeAccess map[string]*domain.Conversation

func (f fakeAccess) GetConversation(_ context.Context, id string) (*domain.Conversation, error) {
	conv, ok := f[id]
	if !ok {
		return nil, mockapi.ErrConversationNotFound
	}
	return conv, nil
}

type harness struct {
	hub    *Hub
	server *httptest.Server
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	access := fakeAccess{
		"conv-1": {
			ID: "conv-1",
			Participants: []domain.Participant{
				{ID: "alice", Role: domain.RoleDonor},
				{ID: "bob", Role: domain.RoleRecipient},
			},
		},
	}
	hub := NewHub(access, zap.NewNop())
	ctx, cancel := context.WithCancel(context.Background())
	stopped := make(chan struct{})
	go func() {
		hub.Run(ctx)
		close(stopped)
	}()

	srv := httptest.NewServer(ServeWS(hub, fakeTokens{"tok-alice": "alice", "tok-bob": "bob", "tok-eve": "eve"}))
	t.Cleanup(func() {
		cancel()
		<-stopped
		srv.Close()
	})
	return &harness{hub: hub, server: srv}
}

func (h *harness) dial(t *testing.T, token string) *websocket.Conn {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	url := "ws" + strings.TrimPrefix(h.server.URL, "http") + "/?token=" + token
	conn, _, err := websocket.Dial(ctx, url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close(websocket.StatusNormalClosure, "") })
	return conn
}

func send(t *testing.T, conn *websocket.Conn, evtType string, payload any) {
	t.Helper()
	raw, err := json.Marshal(payload)
	require.NoError(t, err)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(t, wsjson.Write(ctx, conn, Event{Type: evtType, Payload: raw}))
}

func read(t *testing.T, conn *websocket.Conn) Event {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	var evt Event
	require.NoError(t, wsjson.Read(ctx, conn, &evt))
	return evt
}

func TestServeWSRejectsBadToken(t *testing.T) {
	h := newHarness(t)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	url := "ws" + strings.TrimPrefix(h.server.URL, "http") + "/?token=nope"
	_, resp, err := websocket.Dial(ctx, url, nil)
	require.Error(t, err)
	require.NotNil(t, resp)
	assert.Equal(t, 401, resp.StatusCode)
}

func TestPingPong(t *testing.T) {
	h := newHarness(t)
	conn := h.dial(t, "tok-alice")

	send(t, conn, EventTypePing, nil)
	assert.Equal(t, EventTypePong, read(t, conn).Type)
}

func TestMessageReachesSubscribers(t *testing.T) {
	h := newHarness(t)
	alice := h.dial(t, "tok-alice")
	bob := h.dial(t, "tok-bob")

	for _, conn := range []*websocket.Conn{alice, bob} {
		send(t, conn, EventTypeConversationSubscribe, ConversationPayload{ConversationID: "conv-1"})
		ack := read(t, conn)
		require.Equal(t, EventTypeConversationSubscribed, ack.Type)
		require.NotNil(t, ack.ConversationID)
		assert.Equal(t, "conv-1", *ack.ConversationID)
	}

	NewHubNotifier(h.hub).NotifyMessage(&domain.Message{
		ID:             "m-1",
		ConversationID: "conv-1",
		SenderID:       "alice",
		ReceiverID:     "bob",
		Content:        "Bonjour",
		Status:         domain.MessageStatusSent,
	})

	for _, conn := range []*websocket.Conn{alice, bob} {
		evt := read(t, conn)
		require.Equal(t, EventTypeMessageNew, evt.Type)
		var p MessagePayload
		require.NoError(t, json.Unmarshal(evt.Payload, &p))
		assert.Equal(t, "m-1", p.ID)
		assert.Equal(t, "Bonjour", p.Content)
	}
}

func TestSubscribeRequiresParticipant(t *testing.T) {
	h := newHarness(t)
	eve := h.dial(t, "tok-eve")

	send(t, eve, EventTypeConversationSubscribe, ConversationPayload{ConversationID: "conv-1"})
	evt := read(t, eve)
	require.Equal(t, EventTypeError, evt.Type)
	var p ErrorPayload
	require.NoError(t, json.Unmarshal(evt.Payload, &p))
	assert.Equal(t, "NOT_PARTICIPANT", p.Code)

	send(t, eve, EventTypeConversationSubscribe, ConversationPayload{ConversationID: "missing"})
	assert.Equal(t, EventTypeError, read(t, eve).Type)
}

func TestUnsubscribeStopsDelivery(t *testing.T) {
	h := newHarness(t)
	alice := h.dial(t, "tok-alice")

	send(t, alice, EventTypeConversationSubscribe, ConversationPayload{ConversationID: "conv-1"})
	require.Equal(t, EventTypeConversationSubscribed, read(t, alice).Type)
	send(t, alice, EventTypeConversationUnsubscribe, ConversationPayload{ConversationID: "conv-1"})

	// Events on one connection are handled in order, so the ping reply
	// proves the unsubscribe was applied.
	send(t, alice, EventTypePing, nil)
	require.Equal(t, EventTypePong, read(t, alice).Type)

	NewHubNotifier(h.hub).NotifyMessage(&domain.Message{ID: "m-2", ConversationID: "conv-1"})
	send(t, alice, EventTypePing, nil)
	assert.Equal(t, EventTypePong, read(t, alice).Type)
}

func TestUnknownEvent(t *testing.T) {
	h := newHarness(t)
	conn := h.dial(t, "tok-bob")

	send(t, conn, "typing.start", nil)
	evt := read(t, conn)
	require.Equal(t, EventTypeError, evt.Type)
	var p ErrorPayload
	require.NoError(t, json.Unmarshal(evt.Payload, &p))
	assert.Equal(t, "UNKNOWN_EVENT", p.Code)
}
