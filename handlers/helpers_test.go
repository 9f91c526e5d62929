package handlers

import (
	"encoding/json"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"planora-server/models"
	"planora-server/push"
	"planora-server/store"
)

func newTestStore(t *testing.T) *store.Store {
	t.Helper()
	s, err := store.New(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { _ = s.Close() })
	return s
}

// fakePusher records dispatched notifications instead of calling the
// gateway.
type fakePusher struct {
	mu         sync.Mutex
	dispatched []push.Notification
}

func (f *fakePusher) IsValidToken(token string) bool {
	return strings.HasPrefix(token, "ExponentPushToken[") && strings.HasSuffix(token, "]")
}

func (f *fakePusher) Dispatch(notifications []push.Notification) {
	f.mu.Lock()
	f.dispatched = append(f.dispatched, notifications...)
	f.mu.Unlock()
}

func (f *fakePusher) notifications() []push.Notification {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]push.Notification, len(f.dispatched))
	copy(out, f.dispatched)
	return out
}

func newTestHub(t *testing.T, s *store.Store, pusher Pusher) *Hub {
	t.Helper()
	return NewHub(s, pusher, HubOptions{
		AssistantName: "Planora Assistant",
		ReplyText:     "canned reply",
		ReplyDelay:    10 * time.Millisecond,
	})
}

// newTestClient builds a connection handle without a real websocket;
// only the send buffer and room bookkeeping are exercised.
func newTestClient(hub *Hub, userID string) *Client {
	return &Client{
		hub:      hub,
		send:     make(chan []byte, 32),
		userID:   userID,
		rooms:    make(map[string]bool),
		handlers: make(map[string]eventHandler),
	}
}

type testEnvelope struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

// drainEvents returns every event currently buffered on the client.
func drainEvents(t *testing.T, c *Client) []testEnvelope {
	t.Helper()
	var events []testEnvelope
	for {
		select {
		case data := <-c.send:
			var env testEnvelope
			if err := json.Unmarshal(data, &env); err != nil {
				t.Fatalf("unmarshal event: %v", err)
			}
			events = append(events, env)
		default:
			return events
		}
	}
}

func countEvents(events []testEnvelope, eventType string) int {
	n := 0
	for _, e := range events {
		if e.Type == eventType {
			n++
		}
	}
	return n
}

// waitFor polls cond until it holds or the deadline passes.
func waitFor(t *testing.T, timeout time.Duration, cond func() bool) bool {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if cond() {
			return true
		}
		time.Sleep(5 * time.Millisecond)
	}
	return cond()
}

func mustCreateUser(t *testing.T, s *store.Store, username, displayName string) *models.User {
	t.Helper()
	user, err := s.CreateUser(username, displayName)
	if err != nil {
		t.Fatalf("create user %s: %v", username, err)
	}
	return user
}
