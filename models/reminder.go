package models

import "time"

type Reminder struct {
	ID        string    `json:"id"`
	OwnerID   string    `json:"owner_id"`
	TaskID    *string   `json:"task_id,omitempty"`
	Note      string    `json:"note"`
	DueAt     time.Time `json:"due_at"`
	CreatedAt time.Time `json:"created_at"`
}

type CreateReminderRequest struct {
	Note  string `json:"note"`
	DueAt string `json:"due_at"` // RFC 3339
}
