package store

import (
	"database/sql"
	"errors"
	"log"
	"strings"
	"time"

	"planora-server/models"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"
)

type Store struct {
	db *sql.DB
}

func New(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, err
	}

	store := &Store{db: db}
	if err := store.init(); err != nil {
		return nil, err
	}

	return store, nil
}

func (s *Store) init() error {
	schema := `
	CREATE TABLE IF NOT EXISTS users (
		id TEXT PRIMARY KEY,
		username TEXT UNIQUE NOT NULL,
		display_name TEXT NOT NULL,
		push_token TEXT,
		created_at DATETIME DEFAULT CURRENT_TIMESTAMP
	);

	CREATE TABLE IF NOT EXISTS tasks (
		id TEXT PRIMARY KEY,
		owner_id TEXT NOT NULL REFERENCES users(id),
		title TEXT NOT NULL,
		description TEXT,
		due_at DATETIME,
		completed BOOLEAN DEFAULT FALSE,
		created_at DATETIME DEFAULT CURRENT_TIMESTAMP
	);

	CREATE INDEX IF NOT EXISTS idx_tasks_owner ON tasks(owner_id);

	CREATE TABLE IF NOT EXISTS reminders (
		id TEXT PRIMARY KEY,
		owner_id TEXT NOT NULL REFERENCES users(id),
		task_id TEXT,
		note TEXT NOT NULL,
		due_at DATETIME NOT NULL,
		created_at DATETIME DEFAULT CURRENT_TIMESTAMP
	);

	CREATE INDEX IF NOT EXISTS idx_reminders_owner ON reminders(owner_id);
	CREATE INDEX IF NOT EXISTS idx_reminders_due ON reminders(due_at);

	CREATE TABLE IF NOT EXISTS chats (
		id TEXT PRIMARY KEY,
		kind TEXT NOT NULL,
		name TEXT,
		image_url TEXT,
		created_by TEXT NOT NULL REFERENCES users(id),
		last_message TEXT,
		last_message_at DATETIME,
		created_at DATETIME DEFAULT CURRENT_TIMESTAMP
	);

	CREATE TABLE IF NOT EXISTS chat_participants (
		chat_id TEXT REFERENCES chats(id),
		user_id TEXT REFERENCES users(id),
		joined_at DATETIME DEFAULT CURRENT_TIMESTAMP,
		PRIMARY KEY (chat_id, user_id)
	);

	CREATE INDEX IF NOT EXISTS idx_chat_participants_user ON chat_participants(user_id);

	CREATE TABLE IF NOT EXISTS messages (
		id TEXT PRIMARY KEY,
		chat_id TEXT NOT NULL REFERENCES chats(id),
		sender_id TEXT REFERENCES users(id),
		body TEXT NOT NULL,
		created_at DATETIME NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_messages_chat ON messages(chat_id);

	CREATE TABLE IF NOT EXISTS journal_entries (
		id TEXT PRIMARY KEY,
		owner_id TEXT NOT NULL REFERENCES users(id),
		title TEXT NOT NULL,
		body TEXT NOT NULL,
		mood TEXT,
		entry_date TEXT NOT NULL,
		created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
		updated_at DATETIME DEFAULT CURRENT_TIMESTAMP
	);

	CREATE INDEX IF NOT EXISTS idx_journal_owner ON journal_entries(owner_id);

	CREATE TABLE IF NOT EXISTS timetable_slots (
		id TEXT PRIMARY KEY,
		owner_id TEXT NOT NULL REFERENCES users(id),
		title TEXT NOT NULL,
		location TEXT,
		weekday INTEGER NOT NULL,
		starts_at TEXT NOT NULL,
		ends_at TEXT NOT NULL,
		created_at DATETIME DEFAULT CURRENT_TIMESTAMP
	);

	CREATE INDEX IF NOT EXISTS idx_timetable_owner ON timetable_slots(owner_id);

	CREATE TABLE IF NOT EXISTS study_sessions (
		id TEXT PRIMARY KEY,
		owner_id TEXT NOT NULL REFERENCES users(id),
		subject TEXT NOT NULL,
		started_at DATETIME NOT NULL,
		ended_at DATETIME,
		duration_seconds INTEGER DEFAULT 0
	);

	CREATE INDEX IF NOT EXISTS idx_study_owner ON study_sessions(owner_id);
	`

	_, err := s.db.Exec(schema)
	return err
}

func (s *Store) Close() error {
	return s.db.Close()
}

// IsNotFound reports whether err means the requested row does not exist.
func IsNotFound(err error) bool {
	return errors.Is(err, sql.ErrNoRows)
}

// User operations

func (s *Store) CreateUser(username, displayName string) (*models.User, error) {
	user := &models.User{
		ID:          uuid.New().String(),
		Username:    username,
		DisplayName: displayName,
		CreatedAt:   time.Now(),
	}

	_, err := s.db.Exec(`
		INSERT INTO users (id, username, display_name, created_at)
		VALUES (?, ?, ?, ?)
	`, user.ID, user.Username, user.DisplayName, user.CreatedAt)

	if err != nil {
		return nil, err
	}
	return user, nil
}

func (s *Store) GetUserByID(id string) (*models.User, error) {
	user := &models.User{}
	var pushToken sql.NullString

	err := s.db.QueryRow(`
		SELECT id, username, display_name, push_token, created_at
		FROM users WHERE id = ?
	`, id).Scan(&user.ID, &user.Username, &user.DisplayName, &pushToken, &user.CreatedAt)

	if err != nil {
		return nil, err
	}
	user.PushToken = pushToken.String
	return user, nil
}

func (s *Store) GetAllUsers() ([]models.User, error) {
	rows, err := s.db.Query(`
		SELECT id, username, display_name, push_token, created_at
		FROM users ORDER BY display_name ASC
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var users []models.User
	for rows.Next() {
		var u models.User
		var pushToken sql.NullString
		if err := rows.Scan(&u.ID, &u.Username, &u.DisplayName, &pushToken, &u.CreatedAt); err != nil {
			return nil, err
		}
		u.PushToken = pushToken.String
		users = append(users, u)
	}
	return users, nil
}

func (s *Store) SetPushToken(userID, token string) error {
	_, err := s.db.Exec(`UPDATE users SET push_token = ? WHERE id = ?`, token, userID)
	return err
}

func (s *Store) ClearPushToken(userID string) error {
	_, err := s.db.Exec(`UPDATE users SET push_token = NULL WHERE id = ?`, userID)
	return err
}

// GetPushToken returns the user's push token, or "" when none is
// registered. A missing user is reported via sql.ErrNoRows.
func (s *Store) GetPushToken(userID string) (string, error) {
	var token sql.NullString
	err := s.db.QueryRow(`SELECT push_token FROM users WHERE id = ?`, userID).Scan(&token)
	if err != nil {
		return "", err
	}
	return token.String, nil
}

// Task operations

func (s *Store) CreateTask(ownerID, title, description string, dueAt *time.Time) (*models.Task, error) {
	task := &models.Task{
		ID:          uuid.New().String(),
		OwnerID:     ownerID,
		Title:       title,
		Description: description,
		DueAt:       dueAt,
		Completed:   false,
		CreatedAt:   time.Now(),
	}

	_, err := s.db.Exec(`
		INSERT INTO tasks (id, owner_id, title, description, due_at, completed, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`, task.ID, task.OwnerID, task.Title, task.Description, task.DueAt, task.Completed, task.CreatedAt)

	if err != nil {
		return nil, err
	}
	return task, nil
}

func (s *Store) GetTask(id string) (*models.Task, error) {
	task := &models.Task{}
	var description sql.NullString
	var dueAt sql.NullTime

	err := s.db.QueryRow(`
		SELECT id, owner_id, title, description, due_at, completed, created_at
		FROM tasks WHERE id = ?
	`, id).Scan(&task.ID, &task.OwnerID, &task.Title, &description, &dueAt, &task.Completed, &task.CreatedAt)

	if err != nil {
		return nil, err
	}
	task.Description = description.String
	if dueAt.Valid {
		task.DueAt = &dueAt.Time
	}
	return task, nil
}

func (s *Store) GetTasksForUser(ownerID string) ([]models.Task, error) {
	rows, err := s.db.Query(`
		SELECT id, owner_id, title, description, due_at, completed, created_at
		FROM tasks
		WHERE owner_id = ?
		ORDER BY completed ASC, due_at IS NULL, due_at ASC, created_at DESC
	`, ownerID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var tasks []models.Task
	for rows.Next() {
		var t models.Task
		var description sql.NullString
		var dueAt sql.NullTime
		if err := rows.Scan(&t.ID, &t.OwnerID, &t.Title, &description, &dueAt, &t.Completed, &t.CreatedAt); err != nil {
			return nil, err
		}
		t.Description = description.String
		if dueAt.Valid {
			t.DueAt = &dueAt.Time
		}
		tasks = append(tasks, t)
	}
	return tasks, nil
}

func (s *Store) UpdateTask(task *models.Task) error {
	_, err := s.db.Exec(`
		UPDATE tasks SET title = ?, description = ?, due_at = ?, completed = ?
		WHERE id = ?
	`, task.Title, task.Description, task.DueAt, task.Completed, task.ID)
	return err
}

func (s *Store) SetTaskCompleted(id string, completed bool) error {
	_, err := s.db.Exec(`UPDATE tasks SET completed = ? WHERE id = ?`, completed, id)
	return err
}

// DeleteTask removes the task and cascades to its derived reminder.
func (s *Store) DeleteTask(id string) error {
	if _, err := s.db.Exec(`DELETE FROM reminders WHERE task_id = ?`, id); err != nil {
		return err
	}
	_, err := s.db.Exec(`DELETE FROM tasks WHERE id = ?`, id)
	return err
}

// Reminder operations

func (s *Store) CreateReminder(ownerID string, taskID *string, note string, dueAt time.Time) (*models.Reminder, error) {
	reminder := &models.Reminder{
		ID:        uuid.New().String(),
		OwnerID:   ownerID,
		TaskID:    taskID,
		Note:      note,
		DueAt:     dueAt,
		CreatedAt: time.Now(),
	}

	_, err := s.db.Exec(`
		INSERT INTO reminders (id, owner_id, task_id, note, due_at, created_at)
		VALUES (?, ?, ?, ?, ?, ?)
	`, reminder.ID, reminder.OwnerID, reminder.TaskID, reminder.Note, reminder.DueAt, reminder.CreatedAt)

	if err != nil {
		return nil, err
	}
	return reminder, nil
}

func (s *Store) GetRemindersForUser(ownerID string) ([]models.Reminder, error) {
	rows, err := s.db.Query(`
		SELECT id, owner_id, task_id, note, due_at, created_at
		FROM reminders
		WHERE owner_id = ?
		ORDER BY due_at ASC
	`, ownerID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return scanReminders(rows)
}

// FindDueReminders selects every reminder with due_at <= now. The caller
// is expected to retire them with DeleteReminders afterwards; the two
// steps are deliberately not one transaction (best-effort semantics).
func (s *Store) FindDueReminders(now time.Time) ([]models.Reminder, error) {
	rows, err := s.db.Query(`
		SELECT id, owner_id, task_id, note, due_at, created_at
		FROM reminders
		WHERE due_at <= ?
		ORDER BY due_at ASC
	`, now)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return scanReminders(rows)
}

func scanReminders(rows *sql.Rows) ([]models.Reminder, error) {
	var reminders []models.Reminder
	for rows.Next() {
		var r models.Reminder
		var taskID sql.NullString
		if err := rows.Scan(&r.ID, &r.OwnerID, &taskID, &r.Note, &r.DueAt, &r.CreatedAt); err != nil {
			return nil, err
		}
		if taskID.Valid {
			r.TaskID = &taskID.String
		}
		reminders = append(reminders, r)
	}
	return reminders, rows.Err()
}

// deleteChunkSize keeps IN-clause deletes under SQLite's host
// parameter limit.
const deleteChunkSize = 500

func (s *Store) DeleteReminders(ids []string) error {
	var firstErr error
	for start := 0; start < len(ids); start += deleteChunkSize {
		end := start + deleteChunkSize
		if end > len(ids) {
			end = len(ids)
		}
		chunk := ids[start:end]

		placeholders := strings.Repeat("?,", len(chunk))
		placeholders = placeholders[:len(placeholders)-1]
		args := make([]interface{}, len(chunk))
		for i, id := range chunk {
			args[i] = id
		}

		if _, err := s.db.Exec(`DELETE FROM reminders WHERE id IN (`+placeholders+`)`, args...); err != nil {
			log.Printf("[STORE] Failed to delete %d reminders: %v", len(chunk), err)
			if firstErr == nil {
				firstErr = err
			}
		}
	}
	return firstErr
}

func (s *Store) DeleteReminder(id, ownerID string) error {
	_, err := s.db.Exec(`DELETE FROM reminders WHERE id = ? AND owner_id = ?`, id, ownerID)
	return err
}

func (s *Store) DeleteRemindersForTask(taskID string) error {
	_, err := s.db.Exec(`DELETE FROM reminders WHERE task_id = ?`, taskID)
	return err
}

// Chat operations

func (s *Store) CreateChat(kind, name, imageURL, createdBy string, participantIDs []string) (*models.Chat, error) {
	chat := &models.Chat{
		ID:        uuid.New().String(),
		Kind:      kind,
		Name:      name,
		ImageURL:  imageURL,
		CreatedBy: createdBy,
		CreatedAt: time.Now(),
	}

	tx, err := s.db.Begin()
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	_, err = tx.Exec(`
		INSERT INTO chats (id, kind, name, image_url, created_by, created_at)
		VALUES (?, ?, ?, ?, ?, ?)
	`, chat.ID, chat.Kind, chat.Name, chat.ImageURL, chat.CreatedBy, chat.CreatedAt)
	if err != nil {
		return nil, err
	}

	seen := map[string]bool{}
	for _, userID := range append([]string{createdBy}, participantIDs...) {
		if seen[userID] {
			continue
		}
		seen[userID] = true
		_, err = tx.Exec(`
			INSERT INTO chat_participants (chat_id, user_id) VALUES (?, ?)
		`, chat.ID, userID)
		if err != nil {
			return nil, err
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, err
	}
	return chat, nil
}

// GetOrCreateDirectChat deduplicates direct chats by the unordered
// participant pair: a second call with the same two users returns the
// existing chat.
func (s *Store) GetOrCreateDirectChat(user1ID, user2ID string) (*models.Chat, error) {
	var chatID string
	err := s.db.QueryRow(`
		SELECT c.id FROM chats c
		JOIN chat_participants p1 ON c.id = p1.chat_id AND p1.user_id = ?
		JOIN chat_participants p2 ON c.id = p2.chat_id AND p2.user_id = ?
		WHERE c.kind = ?
	`, user1ID, user2ID, models.ChatKindDirect).Scan(&chatID)

	if err == nil {
		return s.GetChat(chatID)
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return nil, err
	}

	return s.CreateChat(models.ChatKindDirect, "", "", user1ID, []string{user2ID})
}

func (s *Store) GetChat(id string) (*models.Chat, error) {
	chat := &models.Chat{}
	var name, imageURL, lastMessage sql.NullString
	var lastMessageAt sql.NullTime

	err := s.db.QueryRow(`
		SELECT id, kind, name, image_url, created_by, last_message, last_message_at, created_at
		FROM chats WHERE id = ?
	`, id).Scan(&chat.ID, &chat.Kind, &name, &imageURL, &chat.CreatedBy, &lastMessage, &lastMessageAt, &chat.CreatedAt)

	if err != nil {
		return nil, err
	}
	chat.Name = name.String
	chat.ImageURL = imageURL.String
	if lastMessage.Valid {
		chat.LastMessage = &lastMessage.String
	}
	if lastMessageAt.Valid {
		chat.LastMessageAt = &lastMessageAt.Time
	}
	return chat, nil
}

func (s *Store) GetChatsForUser(userID string) ([]models.Chat, error) {
	rows, err := s.db.Query(`
		SELECT c.id, c.kind, c.name, c.image_url, c.created_by, c.last_message, c.last_message_at, c.created_at
		FROM chats c
		JOIN chat_participants p ON c.id = p.chat_id
		WHERE p.user_id = ?
		ORDER BY c.last_message_at IS NULL, c.last_message_at DESC, c.created_at DESC
	`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var chats []models.Chat
	for rows.Next() {
		var c models.Chat
		var name, imageURL, lastMessage sql.NullString
		var lastMessageAt sql.NullTime
		err := rows.Scan(&c.ID, &c.Kind, &name, &imageURL, &c.CreatedBy, &lastMessage, &lastMessageAt, &c.CreatedAt)
		if err != nil {
			return nil, err
		}
		c.Name = name.String
		c.ImageURL = imageURL.String
		if lastMessage.Valid {
			c.LastMessage = &lastMessage.String
		}
		if lastMessageAt.Valid {
			c.LastMessageAt = &lastMessageAt.Time
		}
		chats = append(chats, c)
	}
	return chats, nil
}

func (s *Store) FindChatParticipants(chatID string) ([]string, error) {
	rows, err := s.db.Query(`
		SELECT user_id FROM chat_participants WHERE chat_id = ?
	`, chatID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var userIDs []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		userIDs = append(userIDs, id)
	}
	return userIDs, rows.Err()
}

func (s *Store) IsChatParticipant(chatID, userID string) (bool, error) {
	var one int
	err := s.db.QueryRow(`
		SELECT 1 FROM chat_participants WHERE chat_id = ? AND user_id = ?
	`, chatID, userID).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

func (s *Store) TouchChatLastMessage(chatID, body string, at time.Time) error {
	_, err := s.db.Exec(`
		UPDATE chats SET last_message = ?, last_message_at = ? WHERE id = ?
	`, body, at, chatID)
	return err
}

// Message operations

func (s *Store) CreateMessage(chatID string, senderID *string, body string) (*models.Message, error) {
	msg := &models.Message{
		ID:        uuid.New().String(),
		ChatID:    chatID,
		SenderID:  senderID,
		Body:      body,
		CreatedAt: time.Now(),
	}

	_, err := s.db.Exec(`
		INSERT INTO messages (id, chat_id, sender_id, body, created_at)
		VALUES (?, ?, ?, ?, ?)
	`, msg.ID, msg.ChatID, msg.SenderID, msg.Body, msg.CreatedAt)

	if err != nil {
		return nil, err
	}
	return msg, nil
}

// GetChatMessages returns up to limit messages in chronological order,
// optionally those created before a given timestamp (for pagination).
// Timestamp ties are broken by insertion order. SenderName is "" for
// system-authored messages.
func (s *Store) GetChatMessages(chatID string, limit int, before *time.Time) ([]models.MessageWithSender, error) {
	var rows *sql.Rows
	var err error

	if before != nil {
		rows, err = s.db.Query(`
			SELECT m.id, m.chat_id, m.sender_id, m.body, m.created_at,
				   COALESCE(u.display_name, '')
			FROM messages m
			LEFT JOIN users u ON m.sender_id = u.id
			WHERE m.chat_id = ? AND m.created_at < ?
			ORDER BY m.created_at DESC, m.rowid DESC
			LIMIT ?
		`, chatID, *before, limit)
	} else {
		rows, err = s.db.Query(`
			SELECT m.id, m.chat_id, m.sender_id, m.body, m.created_at,
				   COALESCE(u.display_name, '')
			FROM messages m
			LEFT JOIN users u ON m.sender_id = u.id
			WHERE m.chat_id = ?
			ORDER BY m.created_at DESC, m.rowid DESC
			LIMIT ?
		`, chatID, limit)
	}
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var messages []models.MessageWithSender
	for rows.Next() {
		var msg models.MessageWithSender
		var senderID sql.NullString
		err := rows.Scan(&msg.ID, &msg.ChatID, &senderID, &msg.Body, &msg.CreatedAt, &msg.SenderName)
		if err != nil {
			return nil, err
		}
		if senderID.Valid {
			msg.SenderID = &senderID.String
		}
		messages = append(messages, msg)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	// Reverse to get chronological order
	for i, j := 0, len(messages)-1; i < j; i, j = i+1, j-1 {
		messages[i], messages[j] = messages[j], messages[i]
	}

	return messages, nil
}

// Journal operations

func (s *Store) CreateJournalEntry(ownerID string, req models.JournalEntryRequest) (*models.JournalEntry, error) {
	now := time.Now()
	entry := &models.JournalEntry{
		ID:        uuid.New().String(),
		OwnerID:   ownerID,
		Title:     req.Title,
		Body:      req.Body,
		Mood:      req.Mood,
		EntryDate: req.EntryDate,
		CreatedAt: now,
		UpdatedAt: now,
	}

	_, err := s.db.Exec(`
		INSERT INTO journal_entries (id, owner_id, title, body, mood, entry_date, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`, entry.ID, entry.OwnerID, entry.Title, entry.Body, entry.Mood, entry.EntryDate, entry.CreatedAt, entry.UpdatedAt)

	if err != nil {
		return nil, err
	}
	return entry, nil
}

func (s *Store) GetJournalEntries(ownerID string) ([]models.JournalEntry, error) {
	rows, err := s.db.Query(`
		SELECT id, owner_id, title, body, mood, entry_date, created_at, updated_at
		FROM journal_entries
		WHERE owner_id = ?
		ORDER BY entry_date DESC, created_at DESC
	`, ownerID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var entries []models.JournalEntry
	for rows.Next() {
		var e models.JournalEntry
		var mood sql.NullString
		err := rows.Scan(&e.ID, &e.OwnerID, &e.Title, &e.Body, &mood, &e.EntryDate, &e.CreatedAt, &e.UpdatedAt)
		if err != nil {
			return nil, err
		}
		e.Mood = mood.String
		entries = append(entries, e)
	}
	return entries, nil
}

func (s *Store) GetJournalEntry(id string) (*models.JournalEntry, error) {
	entry := &models.JournalEntry{}
	var mood sql.NullString

	err := s.db.QueryRow(`
		SELECT id, owner_id, title, body, mood, entry_date, created_at, updated_at
		FROM journal_entries WHERE id = ?
	`, id).Scan(&entry.ID, &entry.OwnerID, &entry.Title, &entry.Body, &mood, &entry.EntryDate, &entry.CreatedAt, &entry.UpdatedAt)

	if err != nil {
		return nil, err
	}
	entry.Mood = mood.String
	return entry, nil
}

func (s *Store) UpdateJournalEntry(id, ownerID string, req models.JournalEntryRequest) error {
	_, err := s.db.Exec(`
		UPDATE journal_entries
		SET title = ?, body = ?, mood = ?, entry_date = ?, updated_at = ?
		WHERE id = ? AND owner_id = ?
	`, req.Title, req.Body, req.Mood, req.EntryDate, time.Now(), id, ownerID)
	return err
}

func (s *Store) DeleteJournalEntry(id, ownerID string) error {
	_, err := s.db.Exec(`DELETE FROM journal_entries WHERE id = ? AND owner_id = ?`, id, ownerID)
	return err
}

// Timetable operations

func (s *Store) CreateTimetableSlot(ownerID string, req models.TimetableSlotRequest) (*models.TimetableSlot, error) {
	slot := &models.TimetableSlot{
		ID:        uuid.New().String(),
		OwnerID:   ownerID,
		Title:     req.Title,
		Location:  req.Location,
		Weekday:   req.Weekday,
		StartsAt:  req.StartsAt,
		EndsAt:    req.EndsAt,
		CreatedAt: time.Now(),
	}

	_, err := s.db.Exec(`
		INSERT INTO timetable_slots (id, owner_id, title, location, weekday, starts_at, ends_at, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`, slot.ID, slot.OwnerID, slot.Title, slot.Location, slot.Weekday, slot.StartsAt, slot.EndsAt, slot.CreatedAt)

	if err != nil {
		return nil, err
	}
	return slot, nil
}

func (s *Store) GetTimetableSlots(ownerID string) ([]models.TimetableSlot, error) {
	rows, err := s.db.Query(`
		SELECT id, owner_id, title, location, weekday, starts_at, ends_at, created_at
		FROM timetable_slots
		WHERE owner_id = ?
		ORDER BY weekday ASC, starts_at ASC
	`, ownerID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var slots []models.TimetableSlot
	for rows.Next() {
		var slot models.TimetableSlot
		var location sql.NullString
		err := rows.Scan(&slot.ID, &slot.OwnerID, &slot.Title, &location, &slot.Weekday, &slot.StartsAt, &slot.EndsAt, &slot.CreatedAt)
		if err != nil {
			return nil, err
		}
		slot.Location = location.String
		slots = append(slots, slot)
	}
	return slots, nil
}

func (s *Store) UpdateTimetableSlot(id, ownerID string, req models.TimetableSlotRequest) error {
	_, err := s.db.Exec(`
		UPDATE timetable_slots
		SET title = ?, location = ?, weekday = ?, starts_at = ?, ends_at = ?
		WHERE id = ? AND owner_id = ?
	`, req.Title, req.Location, req.Weekday, req.StartsAt, req.EndsAt, id, ownerID)
	return err
}

func (s *Store) DeleteTimetableSlot(id, ownerID string) error {
	_, err := s.db.Exec(`DELETE FROM timetable_slots WHERE id = ? AND owner_id = ?`, id, ownerID)
	return err
}

// Study session operations

func (s *Store) StartStudySession(ownerID, subject string) (*models.StudySession, error) {
	session := &models.StudySession{
		ID:        uuid.New().String(),
		OwnerID:   ownerID,
		Subject:   subject,
		StartedAt: time.Now(),
	}

	_, err := s.db.Exec(`
		INSERT INTO study_sessions (id, owner_id, subject, started_at, duration_seconds)
		VALUES (?, ?, ?, ?, 0)
	`, session.ID, session.OwnerID, session.Subject, session.StartedAt)

	if err != nil {
		return nil, err
	}
	return session, nil
}

func (s *Store) StopStudySession(id, ownerID string, endedAt time.Time) (*models.StudySession, error) {
	session := &models.StudySession{}
	err := s.db.QueryRow(`
		SELECT id, owner_id, subject, started_at FROM study_sessions
		WHERE id = ? AND owner_id = ? AND ended_at IS NULL
	`, id, ownerID).Scan(&session.ID, &session.OwnerID, &session.Subject, &session.StartedAt)
	if err != nil {
		return nil, err
	}

	duration := int(endedAt.Sub(session.StartedAt).Seconds())
	if duration < 0 {
		duration = 0
	}

	_, err = s.db.Exec(`
		UPDATE study_sessions SET ended_at = ?, duration_seconds = ? WHERE id = ?
	`, endedAt, duration, id)
	if err != nil {
		return nil, err
	}

	session.EndedAt = &endedAt
	session.DurationSeconds = duration
	return session, nil
}

func (s *Store) GetStudySessions(ownerID string) ([]models.StudySession, error) {
	rows, err := s.db.Query(`
		SELECT id, owner_id, subject, started_at, ended_at, duration_seconds
		FROM study_sessions
		WHERE owner_id = ?
		ORDER BY started_at DESC
	`, ownerID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var sessions []models.StudySession
	for rows.Next() {
		var sess models.StudySession
		var endedAt sql.NullTime
		err := rows.Scan(&sess.ID, &sess.OwnerID, &sess.Subject, &sess.StartedAt, &endedAt, &sess.DurationSeconds)
		if err != nil {
			return nil, err
		}
		if endedAt.Valid {
			sess.EndedAt = &endedAt.Time
		}
		sessions = append(sessions, sess)
	}
	return sessions, nil
}

func (s *Store) GetSubjectTotals(ownerID string) ([]models.SubjectTotal, error) {
	rows, err := s.db.Query(`
		SELECT subject, SUM(duration_seconds), COUNT(*)
		FROM study_sessions
		WHERE owner_id = ? AND ended_at IS NOT NULL
		GROUP BY subject
		ORDER BY SUM(duration_seconds) DESC
	`, ownerID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var totals []models.SubjectTotal
	for rows.Next() {
		var t models.SubjectTotal
		if err := rows.Scan(&t.Subject, &t.TotalSeconds, &t.SessionCount); err != nil {
			return nil, err
		}
		totals = append(totals, t)
	}
	return totals, nil
}
