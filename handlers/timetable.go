package handlers

import (
	"encoding/json"
	"net/http"
	"time"

	"planora-server/middleware"
	"planora-server/models"
	"planora-server/store"
)

type TimetableHandler struct {
	store *store.Store
}

func NewTimetableHandler(s *store.Store) *TimetableHandler {
	return &TimetableHandler{store: s}
}

func (h *TimetableHandler) Create(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r)

	req, ok := decodeSlotRequest(w, r)
	if !ok {
		return
	}

	slot, err := h.store.CreateTimetableSlot(userID, *req)
	if err != nil {
		http.Error(w, "Failed to create slot", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(slot)
}

func (h *TimetableHandler) List(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r)

	slots, err := h.store.GetTimetableSlots(userID)
	if err != nil {
		http.Error(w, "Failed to fetch timetable", http.StatusInternalServerError)
		return
	}

	if slots == nil {
		slots = []models.TimetableSlot{}
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(slots)
}

func (h *TimetableHandler) Update(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r)
	slotID := r.PathValue("id")

	req, ok := decodeSlotRequest(w, r)
	if !ok {
		return
	}

	if err := h.store.UpdateTimetableSlot(slotID, userID, *req); err != nil {
		http.Error(w, "Failed to update slot", http.StatusInternalServerError)
		return
	}

	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(map[string]string{"status": "updated"})
}

func (h *TimetableHandler) Delete(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r)
	slotID := r.PathValue("id")

	if err := h.store.DeleteTimetableSlot(slotID, userID); err != nil {
		http.Error(w, "Failed to delete slot", http.StatusInternalServerError)
		return
	}

	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(map[string]string{"status": "deleted"})
}

func decodeSlotRequest(w http.ResponseWriter, r *http.Request) (*models.TimetableSlotRequest, bool) {
	var req models.TimetableSlotRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return nil, false
	}
	if req.Title == "" {
		http.Error(w, "Title is required", http.StatusBadRequest)
		return nil, false
	}
	if req.Weekday < 0 || req.Weekday > 6 {
		http.Error(w, "Weekday must be 0-6", http.StatusBadRequest)
		return nil, false
	}
	for _, clock := range []string{req.StartsAt, req.EndsAt} {
		if _, err := time.Parse("15:04", clock); err != nil {
			http.Error(w, "Times must be formatted HH:MM", http.StatusBadRequest)
			return nil, false
		}
	}
	return &req, true
}
