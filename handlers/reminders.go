package handlers

import (
	"encoding/json"
	"log"
	"net/http"
	"sync/atomic"
	"time"

	"planora-server/metrics"
	"planora-server/middleware"
	"planora-server/models"
	"planora-server/push"
	"planora-server/store"
)

type ReminderHandler struct {
	store  *store.Store
	pusher Pusher

	// sweeping guards against overlapping sweeps when a run outlasts
	// the tick interval.
	sweeping atomic.Bool
}

func NewReminderHandler(s *store.Store, pusher Pusher) *ReminderHandler {
	return &ReminderHandler{store: s, pusher: pusher}
}

func (h *ReminderHandler) Create(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r)

	var req models.CreateReminderRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	if req.Note == "" {
		http.Error(w, "Note is required", http.StatusBadRequest)
		return
	}

	dueAt, err := time.Parse(time.RFC3339, req.DueAt)
	if err != nil {
		http.Error(w, "Invalid due_at, expected RFC 3339", http.StatusBadRequest)
		return
	}

	reminder, err := h.store.CreateReminder(userID, nil, req.Note, dueAt)
	if err != nil {
		http.Error(w, "Failed to create reminder", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(reminder)
}

func (h *ReminderHandler) List(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r)

	reminders, err := h.store.GetRemindersForUser(userID)
	if err != nil {
		http.Error(w, "Failed to fetch reminders", http.StatusInternalServerError)
		return
	}

	if reminders == nil {
		reminders = []models.Reminder{}
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(reminders)
}

func (h *ReminderHandler) Delete(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r)
	reminderID := r.PathValue("id")

	if reminderID == "" {
		http.Error(w, "Reminder ID required", http.StatusBadRequest)
		return
	}

	if err := h.store.DeleteReminder(reminderID, userID); err != nil {
		http.Error(w, "Failed to delete reminder", http.StatusInternalServerError)
		return
	}

	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(map[string]string{"status": "deleted"})
}

// StartSweeper runs the due-reminder sweep on a fixed interval until
// the process exits.
func (h *ReminderHandler) StartSweeper(interval time.Duration) {
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		for range ticker.C {
			h.sweep(time.Now())
		}
	}()
}

// sweep selects every reminder due at or before now, queues a push
// notification for each owner with a valid token, and deletes the
// selected reminders. At-most-once: a reminder is retired whether or
// not its notification made it to the gateway.
func (h *ReminderHandler) sweep(now time.Time) {
	if !h.sweeping.CompareAndSwap(false, true) {
		metrics.SweepsSkipped.Inc()
		log.Printf("[SWEEP] Previous sweep still running, skipping tick")
		return
	}
	defer h.sweeping.Store(false)

	metrics.SweepsTotal.Inc()

	due, err := h.store.FindDueReminders(now)
	if err != nil {
		log.Printf("[SWEEP] Failed to select due reminders: %v", err)
		return
	}
	if len(due) == 0 {
		return
	}

	var notifications []push.Notification
	for _, reminder := range due {
		// The owner (or the task) may be gone by now; skip silently,
		// the reminder is still retired below.
		token, err := h.store.GetPushToken(reminder.OwnerID)
		if err != nil || token == "" {
			continue
		}
		if !h.pusher.IsValidToken(token) {
			continue
		}
		notifications = append(notifications, push.Notification{
			To:    token,
			Title: "Task Reminder",
			Body:  reminder.Note,
			Data:  map[string]string{"reminder_id": reminder.ID},
			Sound: "default",
		})
	}

	if len(notifications) > 0 {
		h.pusher.Dispatch(notifications)
	}

	ids := make([]string, len(due))
	for i, reminder := range due {
		ids[i] = reminder.ID
	}
	if err := h.store.DeleteReminders(ids); err != nil {
		log.Printf("[SWEEP] Failed to delete %d processed reminders: %v", len(ids), err)
		return
	}

	metrics.RemindersRetired.Add(float64(len(ids)))
	log.Printf("[SWEEP] Retired %d reminders, queued %d notifications", len(ids), len(notifications))
}
