package handlers

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"strings"
	"sync"
	"time"

	"planora-server/metrics"
	"planora-server/middleware"
	"planora-server/models"
	"planora-server/push"
	"planora-server/store"

	"github.com/gorilla/websocket"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true // Allow all origins in development
	},
}

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 8 * 1024
)

// ErrEmptyBody is returned when a message is sent with an empty body.
var ErrEmptyBody = errors.New("message body is empty")

// Pusher is the slice of the push dispatcher the relay and the reminder
// sweeper depend on.
type Pusher interface {
	IsValidToken(token string) bool
	Dispatch(notifications []push.Notification)
}

type eventHandler func(c *Client, payload json.RawMessage)

type Client struct {
	hub    *Hub
	conn   *websocket.Conn
	send   chan []byte
	userID string

	// rooms is the set of chat ids this connection has joined.
	rooms   map[string]bool
	roomsMu sync.RWMutex

	// handlers maps inbound event types to their handler, registered at
	// setup and removed on disconnect.
	handlers   map[string]eventHandler
	handlersMu sync.RWMutex
}

func (c *Client) on(event string, fn eventHandler) {
	c.handlersMu.Lock()
	c.handlers[event] = fn
	c.handlersMu.Unlock()
}

func (c *Client) handlerFor(event string) eventHandler {
	c.handlersMu.RLock()
	defer c.handlersMu.RUnlock()
	return c.handlers[event]
}

func (c *Client) clearHandlers() {
	c.handlersMu.Lock()
	c.handlers = make(map[string]eventHandler)
	c.handlersMu.Unlock()
}

func (c *Client) sendEvent(msg models.WSMessage) {
	data, err := json.Marshal(msg)
	if err != nil {
		return
	}
	select {
	case c.send <- data:
	default:
		// Buffer full, drop
	}
}

func (c *Client) sendError(message string) {
	c.sendEvent(models.WSMessage{
		Type:    models.WSTypeError,
		Payload: models.ErrorPayload{Message: message},
	})
}

// RelayStore is the slice of the store the hub depends on.
type RelayStore interface {
	IsChatParticipant(chatID, userID string) (bool, error)
	GetChat(id string) (*models.Chat, error)
	GetUserByID(id string) (*models.User, error)
	CreateMessage(chatID string, senderID *string, body string) (*models.Message, error)
	TouchChatLastMessage(chatID, body string, at time.Time) error
	FindChatParticipants(chatID string) ([]string, error)
	GetPushToken(userID string) (string, error)
}

// Hub owns the set of live connections and the room registry: chat id
// to the set of connections currently joined. The registry lives for
// the process lifetime only; persisted chat participants are separate.
type Hub struct {
	clients    map[*Client]bool
	rooms      map[string]map[*Client]bool
	register   chan *Client
	unregister chan *Client
	store      RelayStore
	pusher     Pusher

	assistantName string
	replyText     string
	replyDelay    time.Duration

	mu sync.RWMutex
}

type HubOptions struct {
	AssistantName string
	ReplyText     string
	ReplyDelay    time.Duration
}

func NewHub(s RelayStore, pusher Pusher, opts HubOptions) *Hub {
	if opts.AssistantName == "" {
		opts.AssistantName = "Planora Assistant"
	}
	if opts.ReplyText == "" {
		opts.ReplyText = "Thanks for your message! I'm looking into it and will get back to you shortly."
	}
	if opts.ReplyDelay <= 0 {
		opts.ReplyDelay = 1500 * time.Millisecond
	}
	return &Hub{
		clients:       make(map[*Client]bool),
		rooms:         make(map[string]map[*Client]bool),
		register:      make(chan *Client, 16),
		unregister:    make(chan *Client, 16),
		store:         s,
		pusher:        pusher,
		assistantName: opts.AssistantName,
		replyText:     opts.ReplyText,
		replyDelay:    opts.ReplyDelay,
	}
}

func (h *Hub) AssistantName() string {
	return h.assistantName
}

func (h *Hub) Run() {
	for {
		select {
		case client := <-h.register:
			h.mu.Lock()
			h.clients[client] = true
			count := len(h.clients)
			h.mu.Unlock()
			log.Printf("[WS] Client connected: %s (total: %d)", client.userID, count)

		case client := <-h.unregister:
			h.mu.Lock()
			if _, ok := h.clients[client]; ok {
				h.removeFromAllRoomsLocked(client)
				delete(h.clients, client)
				close(client.send)
			}
			count := len(h.clients)
			h.mu.Unlock()
			client.clearHandlers()
			log.Printf("[WS] Client disconnected: %s (total: %d)", client.userID, count)
		}
	}
}

// joinRoom adds the connection to the room's broadcast group after
// verifying the user is a participant of the chat.
func (h *Hub) joinRoom(c *Client, chatID string) {
	ok, err := h.store.IsChatParticipant(chatID, c.userID)
	if err != nil {
		log.Printf("[WS] Participant check failed for chat %s: %v", chatID, err)
		c.sendError("failed to join room")
		return
	}
	if !ok {
		c.sendError("not a participant of this chat")
		return
	}

	h.mu.Lock()
	room := h.rooms[chatID]
	if room == nil {
		room = make(map[*Client]bool)
		h.rooms[chatID] = room
	}
	room[c] = true
	h.mu.Unlock()

	c.roomsMu.Lock()
	c.rooms[chatID] = true
	c.roomsMu.Unlock()

	c.sendEvent(models.WSMessage{
		Type:    models.WSTypeRoomJoined,
		Payload: models.RoomPayload{ChatID: chatID},
	})
}

// leaveRoom removes the connection from the broadcast group. Persisted
// chat participation is untouched.
func (h *Hub) leaveRoom(c *Client, chatID string) {
	h.mu.Lock()
	h.removeFromRoomLocked(c, chatID)
	h.mu.Unlock()

	c.roomsMu.Lock()
	delete(c.rooms, chatID)
	c.roomsMu.Unlock()

	c.sendEvent(models.WSMessage{
		Type:    models.WSTypeRoomLeft,
		Payload: models.RoomPayload{ChatID: chatID},
	})
}

func (h *Hub) removeFromRoomLocked(c *Client, chatID string) {
	if room, ok := h.rooms[chatID]; ok {
		delete(room, c)
		if len(room) == 0 {
			delete(h.rooms, chatID)
		}
	}
}

func (h *Hub) removeFromAllRoomsLocked(c *Client) {
	c.roomsMu.RLock()
	joined := make([]string, 0, len(c.rooms))
	for chatID := range c.rooms {
		joined = append(joined, chatID)
	}
	c.roomsMu.RUnlock()

	for _, chatID := range joined {
		h.removeFromRoomLocked(c, chatID)
	}
}

// BroadcastToRoom sends a message to every connection currently joined
// to the room. Connections with a full send buffer are evicted.
func (h *Hub) BroadcastToRoom(chatID string, msg models.WSMessage) {
	data, err := json.Marshal(msg)
	if err != nil {
		log.Printf("[WS] Broadcast marshal error for type '%s': %v", msg.Type, err)
		return
	}

	var stale []*Client
	h.mu.RLock()
	for client := range h.rooms[chatID] {
		select {
		case client.send <- data:
		default:
			stale = append(stale, client)
		}
	}
	h.mu.RUnlock()

	if len(stale) > 0 {
		h.mu.Lock()
		for _, client := range stale {
			if _, ok := h.clients[client]; ok {
				log.Printf("[WS] Evicting stale client %s", client.userID)
				h.removeFromAllRoomsLocked(client)
				delete(h.clients, client)
				close(client.send)
			}
		}
		h.mu.Unlock()
	}
}

// SendMessage persists a message, touches the chat's last-message
// fields, broadcasts to the room and queues push notifications for
// participants other than the sender. A failure before the message row
// is persisted aborts the whole operation; once it is persisted the
// message is authoritative and later failures are logged, not surfaced.
func (h *Hub) SendMessage(chatID, senderID, body string) (*models.MessageWithSender, error) {
	if strings.TrimSpace(body) == "" {
		return nil, ErrEmptyBody
	}

	chat, err := h.store.GetChat(chatID)
	if err != nil {
		return nil, err
	}

	sender, err := h.store.GetUserByID(senderID)
	if err != nil {
		return nil, err
	}

	msg, err := h.store.CreateMessage(chatID, &senderID, body)
	if err != nil {
		return nil, err
	}

	if err := h.store.TouchChatLastMessage(chatID, body, msg.CreatedAt); err != nil {
		log.Printf("[WS] Failed to touch chat %s after message: %v", chatID, err)
	}

	out := &models.MessageWithSender{
		Message:    *msg,
		SenderName: sender.DisplayName,
	}

	h.BroadcastToRoom(chatID, models.WSMessage{
		Type:    models.WSTypeReceiveMessage,
		Payload: out,
	})
	metrics.MessagesRelayed.Inc()

	go h.notifyParticipants(chat, sender, body)

	if chat.Kind == models.ChatKindAI {
		go h.sendAssistantReply(chatID)
	}

	return out, nil
}

// notifyParticipants queues one push notification per chat participant
// other than the sender, for those with a valid token. Best-effort: any
// failure here is logged and never surfaced.
func (h *Hub) notifyParticipants(chat *models.Chat, sender *models.User, body string) {
	participants, err := h.store.FindChatParticipants(chat.ID)
	if err != nil {
		log.Printf("[WS] Failed to load participants for chat %s: %v", chat.ID, err)
		return
	}

	var notifications []push.Notification
	for _, userID := range participants {
		if userID == sender.ID {
			continue
		}
		token, err := h.store.GetPushToken(userID)
		if err != nil || token == "" {
			continue
		}
		if !h.pusher.IsValidToken(token) {
			continue
		}
		notifications = append(notifications, push.Notification{
			To:    token,
			Title: sender.DisplayName,
			Body:  body,
			Data:  map[string]string{"chat_id": chat.ID},
			Sound: "default",
		})
	}

	if len(notifications) > 0 {
		h.pusher.Dispatch(notifications)
	}
}

// sendAssistantReply synthesizes the canned assistant message for an
// ai chat after a short delay. The reply is system-authored (nil
// sender) and broadcast to the whole room, sender included.
func (h *Hub) sendAssistantReply(chatID string) {
	time.Sleep(h.replyDelay)

	msg, err := h.store.CreateMessage(chatID, nil, h.replyText)
	if err != nil {
		log.Printf("[WS] Failed to persist assistant reply for chat %s: %v", chatID, err)
		return
	}
	if err := h.store.TouchChatLastMessage(chatID, msg.Body, msg.CreatedAt); err != nil {
		log.Printf("[WS] Failed to touch chat %s after assistant reply: %v", chatID, err)
	}

	h.BroadcastToRoom(chatID, models.WSMessage{
		Type: models.WSTypeReceiveMessage,
		Payload: &models.MessageWithSender{
			Message:    *msg,
			SenderName: h.assistantName,
		},
	})
	metrics.MessagesRelayed.Inc()
}

func (h *Hub) HandleWebSocket(w http.ResponseWriter, r *http.Request) {
	token := r.URL.Query().Get("token")
	if token == "" {
		http.Error(w, "Token required", http.StatusUnauthorized)
		return
	}

	claims, err := middleware.ValidateToken(token)
	if err != nil {
		http.Error(w, "Invalid token", http.StatusUnauthorized)
		return
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("[WS] Upgrade error for user %s: %v", claims.UserID, err)
		return
	}

	client := &Client{
		hub:      h,
		conn:     conn,
		send:     make(chan []byte, 256),
		userID:   claims.UserID,
		rooms:    make(map[string]bool),
		handlers: make(map[string]eventHandler),
	}

	client.registerEventHandlers()

	go client.writePump()
	go client.readPump()

	h.register <- client
}

func (c *Client) registerEventHandlers() {
	c.on(models.WSTypeJoinRoom, handleJoinRoom)
	c.on(models.WSTypeSendMessage, handleSendMessage)
	c.on(models.WSTypeLeaveRoom, handleLeaveRoom)
}

func handleJoinRoom(c *Client, payload json.RawMessage) {
	var p models.RoomPayload
	if err := json.Unmarshal(payload, &p); err != nil || p.ChatID == "" {
		c.sendError("chat_id is required")
		return
	}
	c.hub.joinRoom(c, p.ChatID)
}

func handleLeaveRoom(c *Client, payload json.RawMessage) {
	var p models.RoomPayload
	if err := json.Unmarshal(payload, &p); err != nil || p.ChatID == "" {
		c.sendError("chat_id is required")
		return
	}
	c.hub.leaveRoom(c, p.ChatID)
}

func handleSendMessage(c *Client, payload json.RawMessage) {
	var p models.SendMessagePayload
	if err := json.Unmarshal(payload, &p); err != nil || p.ChatID == "" {
		c.sendError("chat_id is required")
		return
	}

	if _, err := c.hub.SendMessage(p.ChatID, c.userID, p.Body); err != nil {
		switch {
		case errors.Is(err, ErrEmptyBody):
			c.sendError("message body is empty")
		case store.IsNotFound(err):
			c.sendError("chat not found")
		default:
			log.Printf("[WS] Send failed for user %s in chat %s: %v", c.userID, p.ChatID, err)
			c.sendError("failed to send message")
		}
	}
}

type inboundEnvelope struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

func (c *Client) readPump() {
	defer func() {
		c.hub.unregister <- c
		c.conn.Close()
	}()

	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure, websocket.CloseNormalClosure) {
				log.Printf("[WS] Read error for client %s: %v", c.userID, err)
			}
			break
		}

		var env inboundEnvelope
		if err := json.Unmarshal(data, &env); err != nil {
			c.sendError("malformed event")
			continue
		}

		if fn := c.handlerFor(env.Type); fn != nil {
			fn(c, env.Payload)
		} else {
			log.Printf("[WS] Unknown event type '%s' from client %s", env.Type, c.userID)
		}
	}
}

func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
				return
			}
		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
