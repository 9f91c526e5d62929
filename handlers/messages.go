package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"planora-server/middleware"
	"planora-server/models"
	"planora-server/store"
)

type MessageHandler struct {
	store *store.Store
	hub   *Hub
}

func NewMessageHandler(s *store.Store, hub *Hub) *MessageHandler {
	return &MessageHandler{store: s, hub: hub}
}

// Send is the REST path into the relay; it shares the hub's send
// pipeline with the websocket event.
func (h *MessageHandler) Send(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r)

	var req models.SendMessageRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	if req.ChatID == "" {
		http.Error(w, "Chat ID is required", http.StatusBadRequest)
		return
	}

	msg, err := h.hub.SendMessage(req.ChatID, userID, req.Body)
	if err != nil {
		switch {
		case errors.Is(err, ErrEmptyBody):
			http.Error(w, "Message body is required", http.StatusBadRequest)
		case store.IsNotFound(err):
			http.Error(w, "Chat not found", http.StatusNotFound)
		default:
			http.Error(w, "Failed to send message", http.StatusInternalServerError)
		}
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(msg)
}

func (h *MessageHandler) GetChatMessages(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r)
	chatID := r.PathValue("id")
	if chatID == "" {
		http.Error(w, "Chat ID required", http.StatusBadRequest)
		return
	}

	isParticipant, err := h.store.IsChatParticipant(chatID, userID)
	if err != nil {
		http.Error(w, "Failed to fetch messages", http.StatusInternalServerError)
		return
	}
	if !isParticipant {
		http.Error(w, "Not a participant of this chat", http.StatusForbidden)
		return
	}

	limit := 50
	if l := r.URL.Query().Get("limit"); l != "" {
		if parsed, err := strconv.Atoi(l); err == nil && parsed > 0 && parsed <= 100 {
			limit = parsed
		}
	}

	var before *time.Time
	if b := r.URL.Query().Get("before"); b != "" {
		if t, err := time.Parse(time.RFC3339Nano, b); err == nil {
			before = &t
		} else if t, err := time.Parse(time.RFC3339, b); err == nil {
			before = &t
		}
	}

	messages, err := h.store.GetChatMessages(chatID, limit, before)
	if err != nil {
		http.Error(w, "Failed to fetch messages", http.StatusInternalServerError)
		return
	}

	if messages == nil {
		messages = []models.MessageWithSender{}
	}
	for i := range messages {
		if messages[i].SenderID == nil && messages[i].SenderName == "" {
			messages[i].SenderName = h.hub.AssistantName()
		}
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(messages)
}
