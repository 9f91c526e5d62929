package models

import "time"

type StudySession struct {
	ID              string     `json:"id"`
	OwnerID         string     `json:"owner_id"`
	Subject         string     `json:"subject"`
	StartedAt       time.Time  `json:"started_at"`
	EndedAt         *time.Time `json:"ended_at,omitempty"`
	DurationSeconds int        `json:"duration_seconds"`
}

type StartSessionRequest struct {
	Subject string `json:"subject"`
}

type SubjectTotal struct {
	Subject      string `json:"subject"`
	TotalSeconds int    `json:"total_seconds"`
	SessionCount int    `json:"session_count"`
}
