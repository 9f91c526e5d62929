package handlers

import (
	"encoding/json"
	"net/http"

	"planora-server/middleware"
	"planora-server/models"
	"planora-server/store"
)

type ChatHandler struct {
	store *store.Store
}

func NewChatHandler(s *store.Store) *ChatHandler {
	return &ChatHandler{store: s}
}

func (h *ChatHandler) List(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r)

	chats, err := h.store.GetChatsForUser(userID)
	if err != nil {
		http.Error(w, "Failed to fetch chats", http.StatusInternalServerError)
		return
	}

	if chats == nil {
		chats = []models.Chat{}
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(chats)
}

func (h *ChatHandler) Create(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r)

	var req models.CreateChatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	switch req.Kind {
	case models.ChatKindGroup:
		if req.Name == "" {
			http.Error(w, "Group chats require a name", http.StatusBadRequest)
			return
		}
	case models.ChatKindAI:
		// Participant list is ignored; an ai chat is between the user
		// and the assistant.
		req.ParticipantIDs = nil
	case models.ChatKindDirect:
		http.Error(w, "Use the direct chat endpoint", http.StatusBadRequest)
		return
	default:
		http.Error(w, "Invalid chat kind", http.StatusBadRequest)
		return
	}

	chat, err := h.store.CreateChat(req.Kind, req.Name, req.ImageURL, userID, req.ParticipantIDs)
	if err != nil {
		http.Error(w, "Failed to create chat", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(chat)
}

// CreateDirect returns the existing direct chat for the pair when one
// exists, otherwise creates it.
func (h *ChatHandler) CreateDirect(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r)

	var req models.CreateDirectChatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	if req.UserID == "" || req.UserID == userID {
		http.Error(w, "A different user_id is required", http.StatusBadRequest)
		return
	}

	if _, err := h.store.GetUserByID(req.UserID); err != nil {
		if store.IsNotFound(err) {
			http.Error(w, "User not found", http.StatusNotFound)
		} else {
			http.Error(w, "Failed to create chat", http.StatusInternalServerError)
		}
		return
	}

	chat, err := h.store.GetOrCreateDirectChat(userID, req.UserID)
	if err != nil {
		http.Error(w, "Failed to create chat", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(chat)
}

func (h *ChatHandler) Get(w http.ResponseWriter, r *http.Request) {
	chatID := r.PathValue("id")
	if chatID == "" {
		http.Error(w, "Chat ID required", http.StatusBadRequest)
		return
	}

	chat, err := h.store.GetChat(chatID)
	if err != nil {
		http.Error(w, "Chat not found", http.StatusNotFound)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(chat)
}

func (h *ChatHandler) Members(w http.ResponseWriter, r *http.Request) {
	chatID := r.PathValue("id")
	if chatID == "" {
		http.Error(w, "Chat ID required", http.StatusBadRequest)
		return
	}

	participantIDs, err := h.store.FindChatParticipants(chatID)
	if err != nil {
		http.Error(w, "Failed to fetch members", http.StatusInternalServerError)
		return
	}

	members := []models.UserResponse{}
	for _, id := range participantIDs {
		user, err := h.store.GetUserByID(id)
		if err != nil {
			continue
		}
		members = append(members, user.ToResponse())
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(members)
}
