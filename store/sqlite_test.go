package store

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/google/uuid"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := New(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestFindDueRemindersSelectsOnlyDue(t *testing.T) {
	s := newTestStore(t)

	user, err := s.CreateUser("ana", "Ana")
	if err != nil {
		t.Fatalf("create user: %v", err)
	}

	now := time.Now()
	due, err := s.CreateReminder(user.ID, nil, "submit report", now.Add(-time.Minute))
	if err != nil {
		t.Fatalf("create due reminder: %v", err)
	}
	future, err := s.CreateReminder(user.ID, nil, "water plants", now.Add(time.Hour))
	if err != nil {
		t.Fatalf("create future reminder: %v", err)
	}

	found, err := s.FindDueReminders(now)
	if err != nil {
		t.Fatalf("find due reminders: %v", err)
	}
	if len(found) != 1 {
		t.Fatalf("expected 1 due reminder, got %d", len(found))
	}
	if found[0].ID != due.ID {
		t.Fatalf("expected reminder %s, got %s", due.ID, found[0].ID)
	}

	if err := s.DeleteReminders([]string{due.ID}); err != nil {
		t.Fatalf("delete reminders: %v", err)
	}

	remaining, err := s.GetRemindersForUser(user.ID)
	if err != nil {
		t.Fatalf("list reminders: %v", err)
	}
	if len(remaining) != 1 || remaining[0].ID != future.ID {
		t.Fatalf("expected only the future reminder to remain, got %d", len(remaining))
	}
}

func TestDeleteRemindersHandlesLargeBatches(t *testing.T) {
	s := newTestStore(t)

	user, _ := s.CreateUser("ana", "Ana")
	now := time.Now()

	first, err := s.CreateReminder(user.ID, nil, "one", now.Add(-time.Minute))
	if err != nil {
		t.Fatalf("create reminder: %v", err)
	}
	second, err := s.CreateReminder(user.ID, nil, "two", now.Add(-time.Minute))
	if err != nil {
		t.Fatalf("create reminder: %v", err)
	}
	third, err := s.CreateReminder(user.ID, nil, "three", now.Add(-time.Minute))
	if err != nil {
		t.Fatalf("create reminder: %v", err)
	}

	// A batch well past the chunk size, with the real ids spread so
	// that each falls into a different chunk.
	ids := make([]string, 2*deleteChunkSize+100)
	for i := range ids {
		ids[i] = uuid.New().String()
	}
	ids[0] = first.ID
	ids[deleteChunkSize+1] = second.ID
	ids[len(ids)-1] = third.ID

	if err := s.DeleteReminders(ids); err != nil {
		t.Fatalf("delete reminders: %v", err)
	}

	remaining, err := s.GetRemindersForUser(user.ID)
	if err != nil {
		t.Fatalf("list reminders: %v", err)
	}
	if len(remaining) != 0 {
		t.Fatalf("expected all reminders deleted across chunks, got %d", len(remaining))
	}
}

func TestDirectChatDeduplication(t *testing.T) {
	s := newTestStore(t)

	ana, _ := s.CreateUser("ana", "Ana")
	ben, _ := s.CreateUser("ben", "Ben")

	first, err := s.GetOrCreateDirectChat(ana.ID, ben.ID)
	if err != nil {
		t.Fatalf("create direct chat: %v", err)
	}

	// Same pair in the opposite order must return the same chat.
	second, err := s.GetOrCreateDirectChat(ben.ID, ana.ID)
	if err != nil {
		t.Fatalf("get direct chat: %v", err)
	}
	if first.ID != second.ID {
		t.Fatalf("expected the same chat id, got %s and %s", first.ID, second.ID)
	}

	chats, err := s.GetChatsForUser(ana.ID)
	if err != nil {
		t.Fatalf("list chats: %v", err)
	}
	if len(chats) != 1 {
		t.Fatalf("expected 1 chat, got %d", len(chats))
	}
}

func TestDeleteTaskCascadesReminder(t *testing.T) {
	s := newTestStore(t)

	user, _ := s.CreateUser("ana", "Ana")
	due := time.Now().Add(time.Hour)
	task, err := s.CreateTask(user.ID, "Finish essay", "", &due)
	if err != nil {
		t.Fatalf("create task: %v", err)
	}
	if _, err := s.CreateReminder(user.ID, &task.ID, task.Title, due.Add(-10*time.Minute)); err != nil {
		t.Fatalf("create reminder: %v", err)
	}

	if err := s.DeleteTask(task.ID); err != nil {
		t.Fatalf("delete task: %v", err)
	}

	reminders, err := s.GetRemindersForUser(user.ID)
	if err != nil {
		t.Fatalf("list reminders: %v", err)
	}
	if len(reminders) != 0 {
		t.Fatalf("expected reminder to be cascaded away, got %d", len(reminders))
	}
}

func TestGetPushTokenDistinguishesMissingUser(t *testing.T) {
	s := newTestStore(t)

	user, _ := s.CreateUser("ana", "Ana")

	token, err := s.GetPushToken(user.ID)
	if err != nil {
		t.Fatalf("get push token: %v", err)
	}
	if token != "" {
		t.Fatalf("expected empty token, got %q", token)
	}

	if err := s.SetPushToken(user.ID, "ExponentPushToken[abc]"); err != nil {
		t.Fatalf("set push token: %v", err)
	}
	token, err = s.GetPushToken(user.ID)
	if err != nil {
		t.Fatalf("get push token: %v", err)
	}
	if token != "ExponentPushToken[abc]" {
		t.Fatalf("unexpected token %q", token)
	}

	if _, err := s.GetPushToken("no-such-user"); !IsNotFound(err) {
		t.Fatalf("expected not-found error for missing user, got %v", err)
	}
}

func TestChatMessagesChronologicalWithSystemSender(t *testing.T) {
	s := newTestStore(t)

	ana, _ := s.CreateUser("ana", "Ana")
	chat, err := s.CreateChat("ai", "Assistant", "", ana.ID, nil)
	if err != nil {
		t.Fatalf("create chat: %v", err)
	}

	if _, err := s.CreateMessage(chat.ID, &ana.ID, "hello"); err != nil {
		t.Fatalf("create message: %v", err)
	}
	if _, err := s.CreateMessage(chat.ID, nil, "hi, how can I help?"); err != nil {
		t.Fatalf("create system message: %v", err)
	}

	messages, err := s.GetChatMessages(chat.ID, 50, nil)
	if err != nil {
		t.Fatalf("get messages: %v", err)
	}
	if len(messages) != 2 {
		t.Fatalf("expected 2 messages, got %d", len(messages))
	}
	if messages[0].Body != "hello" {
		t.Fatalf("expected chronological order, first was %q", messages[0].Body)
	}
	if messages[0].SenderName != "Ana" {
		t.Fatalf("expected sender name Ana, got %q", messages[0].SenderName)
	}
	if messages[1].SenderID != nil {
		t.Fatalf("expected nil sender for system message")
	}
}

func TestTouchChatLastMessage(t *testing.T) {
	s := newTestStore(t)

	ana, _ := s.CreateUser("ana", "Ana")
	ben, _ := s.CreateUser("ben", "Ben")
	chat, _ := s.CreateChat("group", "study group", "", ana.ID, []string{ben.ID})

	at := time.Now()
	if err := s.TouchChatLastMessage(chat.ID, "see you at 5", at); err != nil {
		t.Fatalf("touch chat: %v", err)
	}

	reloaded, err := s.GetChat(chat.ID)
	if err != nil {
		t.Fatalf("get chat: %v", err)
	}
	if reloaded.LastMessage == nil || *reloaded.LastMessage != "see you at 5" {
		t.Fatalf("expected last message to be recorded, got %v", reloaded.LastMessage)
	}
	if reloaded.LastMessageAt == nil {
		t.Fatalf("expected last message timestamp to be recorded")
	}
}
