package models

import "time"

const (
	ChatKindDirect = "direct"
	ChatKindGroup  = "group"
	ChatKindAI     = "ai"
)

type Chat struct {
	ID            string     `json:"id"`
	Kind          string     `json:"kind"`
	Name          string     `json:"name,omitempty"`
	ImageURL      string     `json:"image_url,omitempty"`
	CreatedBy     string     `json:"created_by"`
	LastMessage   *string    `json:"last_message,omitempty"`
	LastMessageAt *time.Time `json:"last_message_at,omitempty"`
	CreatedAt     time.Time  `json:"created_at"`
}

type CreateChatRequest struct {
	Kind           string   `json:"kind"`
	Name           string   `json:"name,omitempty"`
	ImageURL       string   `json:"image_url,omitempty"`
	ParticipantIDs []string `json:"participant_ids"`
}

type CreateDirectChatRequest struct {
	UserID string `json:"user_id"`
}
