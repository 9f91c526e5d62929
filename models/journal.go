package models

import "time"

type JournalEntry struct {
	ID        string    `json:"id"`
	OwnerID   string    `json:"owner_id"`
	Title     string    `json:"title"`
	Body      string    `json:"body"`
	Mood      string    `json:"mood,omitempty"`
	EntryDate string    `json:"entry_date"` // YYYY-MM-DD
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

type JournalEntryRequest struct {
	Title     string `json:"title"`
	Body      string `json:"body"`
	Mood      string `json:"mood,omitempty"`
	EntryDate string `json:"entry_date"`
}
