package models

import "time"

// Message rows are append-only. SenderID is nil for system-authored
// messages (e.g. the assistant reply in an ai chat).
type Message struct {
	ID        string    `json:"id"`
	ChatID    string    `json:"chat_id"`
	SenderID  *string   `json:"sender_id"`
	Body      string    `json:"body"`
	CreatedAt time.Time `json:"created_at"`
}

type MessageWithSender struct {
	Message
	SenderName string `json:"sender_name"`
}

type SendMessageRequest struct {
	ChatID string `json:"chat_id"`
	Body   string `json:"body"`
}

// WebSocket envelope shared by inbound and outbound events.
type WSMessage struct {
	Type    string      `json:"type"`
	Payload interface{} `json:"payload"`
}

const (
	// Inbound events
	WSTypeJoinRoom    = "join_room"
	WSTypeSendMessage = "send_message"
	WSTypeLeaveRoom   = "leave_room"

	// Outbound events
	WSTypeReceiveMessage = "receive_message"
	WSTypeRoomJoined     = "room_joined"
	WSTypeRoomLeft       = "room_left"
	WSTypeError          = "error"
)

type RoomPayload struct {
	ChatID string `json:"chat_id"`
}

type SendMessagePayload struct {
	ChatID string `json:"chat_id"`
	Body   string `json:"body"`
}

type ErrorPayload struct {
	Message string `json:"message"`
}
