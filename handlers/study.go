package handlers

import (
	"encoding/json"
	"net/http"
	"time"

	"planora-server/middleware"
	"planora-server/models"
	"planora-server/store"
)

type StudyHandler struct {
	store *store.Store
}

func NewStudyHandler(s *store.Store) *StudyHandler {
	return &StudyHandler{store: s}
}

func (h *StudyHandler) Start(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r)

	var req models.StartSessionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	if req.Subject == "" {
		http.Error(w, "Subject is required", http.StatusBadRequest)
		return
	}

	session, err := h.store.StartStudySession(userID, req.Subject)
	if err != nil {
		http.Error(w, "Failed to start session", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(session)
}

func (h *StudyHandler) Stop(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r)
	sessionID := r.PathValue("id")

	session, err := h.store.StopStudySession(sessionID, userID, time.Now())
	if err != nil {
		if store.IsNotFound(err) {
			http.Error(w, "Session not found or already stopped", http.StatusNotFound)
		} else {
			http.Error(w, "Failed to stop session", http.StatusInternalServerError)
		}
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(session)
}

func (h *StudyHandler) List(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r)

	sessions, err := h.store.GetStudySessions(userID)
	if err != nil {
		http.Error(w, "Failed to fetch sessions", http.StatusInternalServerError)
		return
	}

	if sessions == nil {
		sessions = []models.StudySession{}
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(sessions)
}

func (h *StudyHandler) Totals(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r)

	totals, err := h.store.GetSubjectTotals(userID)
	if err != nil {
		http.Error(w, "Failed to fetch totals", http.StatusInternalServerError)
		return
	}

	if totals == nil {
		totals = []models.SubjectTotal{}
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(totals)
}
