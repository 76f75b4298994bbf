package ws

import (
	"go.uber.org/zap"

	"github.com/vedran77/geev/internal/domain"
)

// HubNotifier implements mockapi.Notifier using the WebSocket Hub.
type HubNotifier struct {
	hub *Hub
}

func NewHubNotifier(hub *Hub) *HubNotifier {
	return &HubNotifier{hub: hub}
}

func (n *HubNotifier) NotifyMessage(msg *domain.Message) {
	convID := msg.ConversationID
	evt, err := NewEvent(EventTypeMessageNew, &convID, MessagePayload{Message: *msg})
	if err != nil {
		n.hub.logger.Error("marshal message event", zap.Error(err))
		return
	}
	n.hub.BroadcastToConversation(convID, evt, nil)
}
