package handlers

import (
	"encoding/json"
	"net/http"
	"time"

	"planora-server/middleware"
	"planora-server/models"
	"planora-server/store"
)

type JournalHandler struct {
	store *store.Store
}

func NewJournalHandler(s *store.Store) *JournalHandler {
	return &JournalHandler{store: s}
}

func (h *JournalHandler) Create(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r)

	req, ok := decodeJournalRequest(w, r)
	if !ok {
		return
	}

	entry, err := h.store.CreateJournalEntry(userID, *req)
	if err != nil {
		http.Error(w, "Failed to create entry", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(entry)
}

func (h *JournalHandler) List(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r)

	entries, err := h.store.GetJournalEntries(userID)
	if err != nil {
		http.Error(w, "Failed to fetch entries", http.StatusInternalServerError)
		return
	}

	if entries == nil {
		entries = []models.JournalEntry{}
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(entries)
}

func (h *JournalHandler) Get(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r)
	entryID := r.PathValue("id")

	entry, err := h.store.GetJournalEntry(entryID)
	if err != nil || entry.OwnerID != userID {
		http.Error(w, "Entry not found", http.StatusNotFound)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(entry)
}

func (h *JournalHandler) Update(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r)
	entryID := r.PathValue("id")

	entry, err := h.store.GetJournalEntry(entryID)
	if err != nil || entry.OwnerID != userID {
		http.Error(w, "Entry not found", http.StatusNotFound)
		return
	}

	req, ok := decodeJournalRequest(w, r)
	if !ok {
		return
	}

	if err := h.store.UpdateJournalEntry(entryID, userID, *req); err != nil {
		http.Error(w, "Failed to update entry", http.StatusInternalServerError)
		return
	}

	updated, err := h.store.GetJournalEntry(entryID)
	if err != nil {
		http.Error(w, "Failed to fetch entry", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(updated)
}

func (h *JournalHandler) Delete(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r)
	entryID := r.PathValue("id")

	if err := h.store.DeleteJournalEntry(entryID, userID); err != nil {
		http.Error(w, "Failed to delete entry", http.StatusInternalServerError)
		return
	}

	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(map[string]string{"status": "deleted"})
}

func decodeJournalRequest(w http.ResponseWriter, r *http.Request) (*models.JournalEntryRequest, bool) {
	var req models.JournalEntryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return nil, false
	}
	if req.Title == "" || req.Body == "" {
		http.Error(w, "Title and body are required", http.StatusBadRequest)
		return nil, false
	}
	if req.EntryDate == "" {
		req.EntryDate = time.Now().Format("2006-01-02")
	} else if _, err := time.Parse("2006-01-02", req.EntryDate); err != nil {
		http.Error(w, "Invalid entry_date, expected YYYY-MM-DD", http.StatusBadRequest)
		return nil, false
	}
	return &req, true
}
