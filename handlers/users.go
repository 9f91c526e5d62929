package handlers

import (
	"encoding/json"
	"net/http"

	"planora-server/middleware"
	"planora-server/models"
	"planora-server/store"
)

type UserHandler struct {
	store  *store.Store
	pusher Pusher
}

func NewUserHandler(s *store.Store, pusher Pusher) *UserHandler {
	return &UserHandler{store: s, pusher: pusher}
}

// Create provisions a user profile. Credentials and token issuance live
// in the upstream auth service.
func (h *UserHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req models.CreateUserRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	if req.Username == "" || req.DisplayName == "" {
		http.Error(w, "Username and display name are required", http.StatusBadRequest)
		return
	}

	user, err := h.store.CreateUser(req.Username, req.DisplayName)
	if err != nil {
		http.Error(w, "Failed to create user", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(user.ToResponse())
}

func (h *UserHandler) List(w http.ResponseWriter, r *http.Request) {
	users, err := h.store.GetAllUsers()
	if err != nil {
		http.Error(w, "Failed to fetch users", http.StatusInternalServerError)
		return
	}

	responses := []models.UserResponse{}
	for i := range users {
		responses = append(responses, users[i].ToResponse())
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(responses)
}

func (h *UserHandler) GetMe(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r)

	user, err := h.store.GetUserByID(userID)
	if err != nil {
		if store.IsNotFound(err) {
			http.Error(w, "User not found", http.StatusNotFound)
		} else {
			http.Error(w, "Failed to fetch user", http.StatusInternalServerError)
		}
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(user.ToResponse())
}

func (h *UserHandler) Get(w http.ResponseWriter, r *http.Request) {
	userID := r.PathValue("id")
	if userID == "" {
		http.Error(w, "User ID required", http.StatusBadRequest)
		return
	}

	user, err := h.store.GetUserByID(userID)
	if err != nil {
		http.Error(w, "User not found", http.StatusNotFound)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(user.ToResponse())
}

// SetPushToken registers the device push token for the current user.
// The token format is validated up front so the dispatcher never sees
// tokens that cannot be delivered.
func (h *UserHandler) SetPushToken(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r)

	var req models.SetPushTokenRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	if !h.pusher.IsValidToken(req.Token) {
		http.Error(w, "Invalid push token format", http.StatusBadRequest)
		return
	}

	if err := h.store.SetPushToken(userID, req.Token); err != nil {
		http.Error(w, "Failed to save push token", http.StatusInternalServerError)
		return
	}

	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(map[string]string{"status": "registered"})
}

func (h *UserHandler) ClearPushToken(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r)

	if err := h.store.ClearPushToken(userID); err != nil {
		http.Error(w, "Failed to clear push token", http.StatusInternalServerError)
		return
	}

	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(map[string]string{"status": "cleared"})
}
