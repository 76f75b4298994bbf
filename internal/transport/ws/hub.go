package ws

import (
	"context"
	"encoding/json"

	"go.uber.org/zap"

	"github.com/vedran77/geev/internal/domain"
)

// ConversationAccess looks up a conversation so the hub can check that a
// client takes part in it before subscribing.
type ConversationAccess interface {
	GetConversation(ctx context.Context, id string) (*domain.Conversation, error)
}

// Hub manages all active WebSocket clients and routes messages.
type Hub struct {
	// A user may hold several connections.
	clients map[*Client]struct{}

	register   chan *Client
	unregister chan *Client
	broadcast  chan *broadcastMsg
	done       chan struct{}

	access ConversationAccess
	logger *zap.Logger
}

type broadcastMsg struct {
	conversationID string
	data           []byte
	excludeID      *string // optional: skip this user (e.g. sender)
}

// NewHub creates a hub. With a nil access every subscription is allowed.
func NewHub(access ConversationAccess, logger *zap.Logger) *Hub {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Hub{
		clients:    make(map[*Client]struct{}),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		broadcast:  make(chan *broadcastMsg, 256),
		done:       make(chan struct{}),
		access:     access,
		logger:     logger.Named("ws"),
	}
}

// Run starts the Hub's main event loop. Call this in a goroutine. It
// returns once ctx is done, after dropping every client.
func (h *Hub) Run(ctx context.Context) {
	defer close(h.done)

	for {
		select {
		case <-ctx.Done():
			for client := range h.clients {
				h.drop(client)
			}
			return

		case client := <-h.register:
			h.clients[client] = struct{}{}
			h.logger.Info("client connected", zap.String("user_id", client.userID), zap.Int("total", len(h.clients)))

		case client := <-h.unregister:
			if _, ok := h.clients[client]; ok {
				h.drop(client)
				h.logger.Info("client disconnected", zap.String("user_id", client.userID), zap.Int("total", len(h.clients)))
			}

		case msg := <-h.broadcast:
			for client := range h.clients {
				// Skip excluded user
				if msg.excludeID != nil && client.userID == *msg.excludeID {
					continue
				}
				// Only send to clients subscribed to this conversation
				if !client.IsSubscribed(msg.conversationID) {
					continue
				}
				select {
				case client.send <- msg.data:
				default:
					// Client buffer full - disconnect
					h.drop(client)
				}
			}
		}
	}
}

// drop closes only done: send may still be written by the client's own
// read loop.
func (h *Hub) drop(client *Client) {
	delete(h.clients, client)
	close(client.done)
}

// Register hands a client to the hub. It reports false once the hub has
// stopped.
func (h *Hub) Register(client *Client) bool {
	select {
	case h.register <- client:
		return true
	case <-h.done:
		return false
	}
}

func (h *Hub) leave(client *Client) {
	select {
	case h.unregister <- client:
	case <-h.done:
	}
}

// BroadcastToConversation sends an event to all subscribers of a conversation.
func (h *Hub) BroadcastToConversation(conversationID string, event *Event, excludeUserID *string) {
	data, err := json.Marshal(event)
	if err != nil {
		h.logger.Error("marshal event", zap.Error(err))
		return
	}
	select {
	case h.broadcast <- &broadcastMsg{
		conversationID: conversationID,
		data:           data,
		excludeID:      excludeUserID,
	}:
	case <-h.done:
	}
}

// canSubscribe reports whether userID may follow the conversation.
func (h *Hub) canSubscribe(ctx context.Context, userID, conversationID string) bool {
	if h.access == nil {
		return true
	}
	conv, err := h.access.GetConversation(ctx, conversationID)
	if err != nil {
		h.logger.Debug("subscribe lookup failed", zap.String("conversation_id", conversationID), zap.Error(err))
		return false
	}
	return conv.HasParticipant(userID)
}
