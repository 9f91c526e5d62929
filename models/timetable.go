package models

import "time"

// TimetableSlot is a recurring weekly slot. Weekday follows time.Weekday
// (0 = Sunday). StartsAt/EndsAt are wall-clock times formatted HH:MM.
type TimetableSlot struct {
	ID        string    `json:"id"`
	OwnerID   string    `json:"owner_id"`
	Title     string    `json:"title"`
	Location  string    `json:"location,omitempty"`
	Weekday   int       `json:"weekday"`
	StartsAt  string    `json:"starts_at"`
	EndsAt    string    `json:"ends_at"`
	CreatedAt time.Time `json:"created_at"`
}

type TimetableSlotRequest struct {
	Title    string `json:"title"`
	Location string `json:"location,omitempty"`
	Weekday  int    `json:"weekday"`
	StartsAt string `json:"starts_at"`
	EndsAt   string `json:"ends_at"`
}
