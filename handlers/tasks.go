package handlers

import (
	"encoding/json"
	"net/http"
	"time"

	"planora-server/middleware"
	"planora-server/models"
	"planora-server/store"
)

type TaskHandler struct {
	store *store.Store

	// reminderLead is how far before a task's due time its derived
	// reminder fires.
	reminderLead time.Duration
}

func NewTaskHandler(s *store.Store, reminderLead time.Duration) *TaskHandler {
	if reminderLead <= 0 {
		reminderLead = 10 * time.Minute
	}
	return &TaskHandler{store: s, reminderLead: reminderLead}
}

func (h *TaskHandler) Create(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r)

	var req models.CreateTaskRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	if req.Title == "" {
		http.Error(w, "Title is required", http.StatusBadRequest)
		return
	}

	var dueAt *time.Time
	if req.DueAt != "" {
		t, err := time.Parse(time.RFC3339, req.DueAt)
		if err != nil {
			http.Error(w, "Invalid due_at, expected RFC 3339", http.StatusBadRequest)
			return
		}
		dueAt = &t
	}

	task, err := h.store.CreateTask(userID, req.Title, req.Description, dueAt)
	if err != nil {
		http.Error(w, "Failed to create task", http.StatusInternalServerError)
		return
	}

	if dueAt != nil {
		h.deriveReminder(task)
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(task)
}

// deriveReminder creates the task's reminder at due time minus the
// configured lead. Failure to create the reminder does not fail the
// task operation.
func (h *TaskHandler) deriveReminder(task *models.Task) {
	if task.DueAt == nil {
		return
	}
	remindAt := task.DueAt.Add(-h.reminderLead)
	if _, err := h.store.CreateReminder(task.OwnerID, &task.ID, task.Title, remindAt); err != nil {
		// Reminder is best-effort; the task stands on its own.
		return
	}
}

func (h *TaskHandler) List(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r)

	tasks, err := h.store.GetTasksForUser(userID)
	if err != nil {
		http.Error(w, "Failed to fetch tasks", http.StatusInternalServerError)
		return
	}

	if tasks == nil {
		tasks = []models.Task{}
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(tasks)
}

func (h *TaskHandler) Get(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r)

	task, ok := h.ownedTask(w, r, userID)
	if !ok {
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(task)
}

func (h *TaskHandler) Update(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r)

	task, ok := h.ownedTask(w, r, userID)
	if !ok {
		return
	}

	var req models.UpdateTaskRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	if req.Title != nil {
		if *req.Title == "" {
			http.Error(w, "Title cannot be empty", http.StatusBadRequest)
			return
		}
		task.Title = *req.Title
	}
	if req.Description != nil {
		task.Description = *req.Description
	}

	dueChanged := false
	if req.DueAt != nil {
		dueChanged = true
		if *req.DueAt == "" {
			task.DueAt = nil
		} else {
			t, err := time.Parse(time.RFC3339, *req.DueAt)
			if err != nil {
				http.Error(w, "Invalid due_at, expected RFC 3339", http.StatusBadRequest)
				return
			}
			task.DueAt = &t
		}
	}

	if err := h.store.UpdateTask(task); err != nil {
		http.Error(w, "Failed to update task", http.StatusInternalServerError)
		return
	}

	if dueChanged {
		h.store.DeleteRemindersForTask(task.ID)
		if !task.Completed {
			h.deriveReminder(task)
		}
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(task)
}

// Complete marks the task done and retires its pending reminder.
func (h *TaskHandler) Complete(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r)

	task, ok := h.ownedTask(w, r, userID)
	if !ok {
		return
	}

	if err := h.store.SetTaskCompleted(task.ID, true); err != nil {
		http.Error(w, "Failed to update task", http.StatusInternalServerError)
		return
	}
	h.store.DeleteRemindersForTask(task.ID)

	task.Completed = true
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(task)
}

func (h *TaskHandler) Delete(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r)

	task, ok := h.ownedTask(w, r, userID)
	if !ok {
		return
	}

	if err := h.store.DeleteTask(task.ID); err != nil {
		http.Error(w, "Failed to delete task", http.StatusInternalServerError)
		return
	}

	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(map[string]string{"status": "deleted"})
}

func (h *TaskHandler) ownedTask(w http.ResponseWriter, r *http.Request, userID string) (*models.Task, bool) {
	taskID := r.PathValue("id")
	if taskID == "" {
		http.Error(w, "Task ID required", http.StatusBadRequest)
		return nil, false
	}

	task, err := h.store.GetTask(taskID)
	if err != nil {
		if store.IsNotFound(err) {
			http.Error(w, "Task not found", http.StatusNotFound)
		} else {
			http.Error(w, "Failed to fetch task", http.StatusInternalServerError)
		}
		return nil, false
	}
	if task.OwnerID != userID {
		http.Error(w, "Task not found", http.StatusNotFound)
		return nil, false
	}
	return task, true
}
