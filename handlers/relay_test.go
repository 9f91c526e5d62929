package handlers

import (
	"errors"
	"testing"
	"time"

	"planora-server/models"
	"planora-server/store"
)

func TestSendMessageBroadcastsOncePerMember(t *testing.T) {
	s := newTestStore(t)
	pusher := &fakePusher{}
	hub := newTestHub(t, s, pusher)

	ana := mustCreateUser(t, s, "ana", "Ana")
	ben := mustCreateUser(t, s, "ben", "Ben")
	cara := mustCreateUser(t, s, "cara", "Cara")
	if err := s.SetPushToken(ben.ID, "ExponentPushToken[ben-device]"); err != nil {
		t.Fatalf("set push token: %v", err)
	}
	// Cara has no token registered.

	chat, err := s.CreateChat(models.ChatKindGroup, "study group", "", ana.ID, []string{ben.ID, cara.ID})
	if err != nil {
		t.Fatalf("create chat: %v", err)
	}

	clients := []*Client{
		newTestClient(hub, ana.ID),
		newTestClient(hub, ben.ID),
		newTestClient(hub, cara.ID),
	}
	for _, c := range clients {
		hub.joinRoom(c, chat.ID)
	}

	sent, err := hub.SendMessage(chat.ID, ana.ID, "hello everyone")
	if err != nil {
		t.Fatalf("send message: %v", err)
	}
	if sent.SenderName != "Ana" {
		t.Fatalf("expected resolved sender name, got %q", sent.SenderName)
	}

	for i, c := range clients {
		events := drainEvents(t, c)
		if n := countEvents(events, models.WSTypeReceiveMessage); n != 1 {
			t.Fatalf("client %d: expected exactly 1 receive_message, got %d", i, n)
		}
	}

	// Push fan-out runs async: Ben is the only recipient with a token.
	ok := waitFor(t, time.Second, func() bool {
		return len(pusher.notifications()) == 1
	})
	if !ok {
		t.Fatalf("expected exactly 1 push notification, got %d", len(pusher.notifications()))
	}
	n := pusher.notifications()[0]
	if n.To != "ExponentPushToken[ben-device]" {
		t.Fatalf("notification went to wrong token: %s", n.To)
	}
	if n.Title != "Ana" || n.Body != "hello everyone" {
		t.Fatalf("unexpected notification content: %+v", n)
	}

	chatAfter, err := s.GetChat(chat.ID)
	if err != nil {
		t.Fatalf("get chat: %v", err)
	}
	if chatAfter.LastMessage == nil || *chatAfter.LastMessage != "hello everyone" {
		t.Fatalf("expected chat last message to be touched")
	}
}

func TestSendMessageEmptyBodyRejected(t *testing.T) {
	s := newTestStore(t)
	hub := newTestHub(t, s, &fakePusher{})

	ana := mustCreateUser(t, s, "ana", "Ana")
	chat, _ := s.CreateChat(models.ChatKindGroup, "g", "", ana.ID, nil)

	if _, err := hub.SendMessage(chat.ID, ana.ID, "   "); !errors.Is(err, ErrEmptyBody) {
		t.Fatalf("expected ErrEmptyBody, got %v", err)
	}

	messages, err := s.GetChatMessages(chat.ID, 50, nil)
	if err != nil {
		t.Fatalf("get messages: %v", err)
	}
	if len(messages) != 0 {
		t.Fatalf("expected no persisted message, got %d", len(messages))
	}
}

func TestJoinRoomRequiresParticipant(t *testing.T) {
	s := newTestStore(t)
	hub := newTestHub(t, s, &fakePusher{})

	ana := mustCreateUser(t, s, "ana", "Ana")
	outsider := mustCreateUser(t, s, "mallory", "Mallory")
	chat, _ := s.CreateChat(models.ChatKindGroup, "private", "", ana.ID, nil)

	c := newTestClient(hub, outsider.ID)
	hub.joinRoom(c, chat.ID)

	events := drainEvents(t, c)
	if countEvents(events, models.WSTypeError) != 1 {
		t.Fatalf("expected an error event for a non-participant")
	}
	if countEvents(events, models.WSTypeRoomJoined) != 0 {
		t.Fatalf("non-participant must not join the room")
	}

	hub.SendMessage(chat.ID, ana.ID, "secret")
	if countEvents(drainEvents(t, c), models.WSTypeReceiveMessage) != 0 {
		t.Fatalf("non-participant must not receive broadcasts")
	}
}

func TestLeaveRoomStopsDelivery(t *testing.T) {
	s := newTestStore(t)
	hub := newTestHub(t, s, &fakePusher{})

	ana := mustCreateUser(t, s, "ana", "Ana")
	ben := mustCreateUser(t, s, "ben", "Ben")
	chat, _ := s.CreateChat(models.ChatKindGroup, "g", "", ana.ID, []string{ben.ID})

	c := newTestClient(hub, ben.ID)
	hub.joinRoom(c, chat.ID)
	hub.leaveRoom(c, chat.ID)
	drainEvents(t, c)

	hub.SendMessage(chat.ID, ana.ID, "anyone there?")
	if countEvents(drainEvents(t, c), models.WSTypeReceiveMessage) != 0 {
		t.Fatalf("expected no delivery after leaving the room")
	}
}

func TestDisconnectLeavesRoomsAndClearsHandlers(t *testing.T) {
	s := newTestStore(t)
	hub := newTestHub(t, s, &fakePusher{})
	go hub.Run()

	ana := mustCreateUser(t, s, "ana", "Ana")
	ben := mustCreateUser(t, s, "ben", "Ben")
	chat, _ := s.CreateChat(models.ChatKindGroup, "g", "", ana.ID, []string{ben.ID})

	anaClient := newTestClient(hub, ana.ID)
	benClient := newTestClient(hub, ben.ID)
	benClient.registerEventHandlers()

	hub.register <- anaClient
	hub.register <- benClient
	hub.joinRoom(anaClient, chat.ID)
	hub.joinRoom(benClient, chat.ID)
	drainEvents(t, anaClient)
	drainEvents(t, benClient)

	hub.unregister <- benClient

	ok := waitFor(t, time.Second, func() bool {
		hub.mu.RLock()
		defer hub.mu.RUnlock()
		_, still := hub.clients[benClient]
		return !still
	})
	if !ok {
		t.Fatalf("expected the client to be unregistered")
	}
	ok = waitFor(t, time.Second, func() bool {
		return benClient.handlerFor(models.WSTypeSendMessage) == nil
	})
	if !ok {
		t.Fatalf("expected event handlers to be removed on disconnect")
	}

	hub.mu.RLock()
	_, inRoom := hub.rooms[chat.ID][benClient]
	hub.mu.RUnlock()
	if inRoom {
		t.Fatalf("expected disconnect to implicitly leave all rooms")
	}

	if _, err := hub.SendMessage(chat.ID, ana.ID, "anyone there?"); err != nil {
		t.Fatalf("send message: %v", err)
	}
	if countEvents(drainEvents(t, anaClient), models.WSTypeReceiveMessage) != 1 {
		t.Fatalf("expected the remaining client to still receive the message")
	}
	select {
	case _, open := <-benClient.send:
		if open {
			t.Fatalf("disconnected client must not receive broadcasts")
		}
	default:
		t.Fatalf("expected the send channel to be closed on disconnect")
	}
}

// touchFailStore fails every last-message touch while delegating the
// rest to the real store.
type touchFailStore struct {
	*store.Store
}

func (s touchFailStore) TouchChatLastMessage(chatID, body string, at time.Time) error {
	return errors.New("disk full")
}

func TestSendMessageSurvivesLastMessageTouchFailure(t *testing.T) {
	s := newTestStore(t)
	hub := NewHub(touchFailStore{s}, &fakePusher{}, HubOptions{ReplyDelay: 10 * time.Millisecond})

	ana := mustCreateUser(t, s, "ana", "Ana")
	chat, _ := s.CreateChat(models.ChatKindGroup, "g", "", ana.ID, nil)

	c := newTestClient(hub, ana.ID)
	hub.joinRoom(c, chat.ID)
	drainEvents(t, c)

	sent, err := hub.SendMessage(chat.ID, ana.ID, "still here")
	if err != nil {
		t.Fatalf("send must succeed once the message row is persisted, got %v", err)
	}
	if sent.Body != "still here" {
		t.Fatalf("unexpected message body %q", sent.Body)
	}

	if countEvents(drainEvents(t, c), models.WSTypeReceiveMessage) != 1 {
		t.Fatalf("expected the broadcast to go out despite the touch failure")
	}
	messages, err := s.GetChatMessages(chat.ID, 50, nil)
	if err != nil {
		t.Fatalf("get messages: %v", err)
	}
	if len(messages) != 1 {
		t.Fatalf("expected the message to be persisted, got %d", len(messages))
	}
}

func TestAssistantRepliesInAIChat(t *testing.T) {
	s := newTestStore(t)
	hub := newTestHub(t, s, &fakePusher{})

	ana := mustCreateUser(t, s, "ana", "Ana")
	chat, _ := s.CreateChat(models.ChatKindAI, "Assistant", "", ana.ID, nil)

	c := newTestClient(hub, ana.ID)
	hub.joinRoom(c, chat.ID)
	drainEvents(t, c)

	if _, err := hub.SendMessage(chat.ID, ana.ID, "hello"); err != nil {
		t.Fatalf("send message: %v", err)
	}

	ok := waitFor(t, time.Second, func() bool {
		messages, err := s.GetChatMessages(chat.ID, 50, nil)
		return err == nil && len(messages) == 2
	})
	if !ok {
		t.Fatalf("expected the assistant reply to be persisted")
	}

	messages, _ := s.GetChatMessages(chat.ID, 50, nil)
	reply := messages[1]
	if reply.SenderID != nil {
		t.Fatalf("assistant reply must be system-authored (nil sender)")
	}
	if reply.Body != "canned reply" {
		t.Fatalf("unexpected reply body %q", reply.Body)
	}

	// The sender's own connection receives both broadcasts.
	received := 0
	ok = waitFor(t, time.Second, func() bool {
		received += countEvents(drainEvents(t, c), models.WSTypeReceiveMessage)
		return received >= 2
	})
	if !ok {
		t.Fatalf("expected the original sender to receive the assistant reply too, got %d", received)
	}
}
