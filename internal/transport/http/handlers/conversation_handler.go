package handlers

import (
	"encoding/json"
	"net/http"

	"go.uber.org/zap"

	"github.com/vedran77/geev/internal/domain"
	"github.com/vedran77/geev/internal/mockapi"
	"github.com/vedran77/geev/internal/transport/http/middleware"
	"github.com/vedran77/geev/pkg/validator"
)

type ConversationHandler struct {
	messages *mockapi.MessagesAPI
	logger   *zap.Logger
}

func NewConversationHandler(messages *mockapi.MessagesAPI, logger *zap.Logger) *ConversationHandler {
	return &ConversationHandler{messages: messages, logger: logger}
}

func (h *ConversationHandler) List(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())

	convs, err := h.messages.ListConversations(r.Context(), userID)
	if err != nil {
		writeAPIError(w, h.logger, "list conversations", err)
		return
	}

	writeJSON(w, http.StatusOK, convs)
}

func (h *ConversationHandler) Messages(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())
	convID := r.PathValue("id")

	conv, err := h.messages.GetConversation(r.Context(), convID)
	if err != nil {
		writeAPIError(w, h.logger, "get conversation", err)
		return
	}
	if !conv.HasParticipant(userID) {
		writeAPIError(w, h.logger, "list messages", mockapi.ErrNotParticipant)
		return
	}

	msgs, err := h.messages.ListMessages(r.Context(), convID)
	if err != nil {
		writeAPIError(w, h.logger, "list messages", err)
		return
	}

	writeJSON(w, http.StatusOK, msgs)
}

type sendMessageInput struct {
	ID      string             `json:"id,omitempty"`
	Content string             `json:"content"`
	Type    domain.MessageType `json:"type,omitempty"`
}

// Send stores a message from the caller. A client generated id is kept,
// so the optimistic copy and the stored one match.
func (h *ConversationHandler) Send(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())

	var input sendMessageInput
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		writeError(w, http.StatusBadRequest, "INVALID_JSON", "Invalid request body")
		return
	}

	errs := validator.ValidateMessage(input.Content)
	if input.Type != "" && !input.Type.Valid() {
		errs.Add("type", "Invalid message type")
	}
	if errs.HasErrors() {
		writeValidationErrors(w, errs)
		return
	}

	msg, err := h.messages.SendMessage(r.Context(), &domain.Message{
		ID:             input.ID,
		ConversationID: r.PathValue("id"),
		SenderID:       userID,
		Content:        input.Content,
		Type:           input.Type,
	})
	if err != nil {
		writeAPIError(w, h.logger, "send message", err)
		return
	}

	writeJSON(w, http.StatusCreated, msg)
}
