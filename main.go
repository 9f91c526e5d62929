package main

import (
	"log"
	"net/http"
	"os"
	"strings"

	"planora-server/config"
	"planora-server/handlers"
	"planora-server/metrics"
	"planora-server/middleware"
	"planora-server/push"
	"planora-server/store"
)

func main() {
	configPath := os.Getenv("CONFIG_PATH")
	if configPath == "" {
		configPath = "./config.yaml"
	}

	cfg, err := config.Load(configPath)
	if err != nil {
		log.Fatal("Failed to load config:", err)
	}

	middleware.SetSecret(cfg.Auth.JWTSecret)

	s, err := store.New(cfg.Database.Path)
	if err != nil {
		log.Fatal("Failed to initialize database:", err)
	}
	defer s.Close()

	// Push dispatcher (Expo gateway)
	pusher := push.NewClient(cfg.Push.GatewayURL, cfg.Push.ChunkSize)

	// WebSocket hub / chat relay
	hub := handlers.NewHub(s, pusher, handlers.HubOptions{
		AssistantName: cfg.Assistant.Name,
		ReplyText:     cfg.Assistant.ReplyText,
		ReplyDelay:    cfg.AssistantReplyDelay(),
	})
	go hub.Run()

	// Handlers
	userHandler := handlers.NewUserHandler(s, pusher)
	taskHandler := handlers.NewTaskHandler(s, cfg.ReminderLead())
	reminderHandler := handlers.NewReminderHandler(s, pusher)
	chatHandler := handlers.NewChatHandler(s)
	messageHandler := handlers.NewMessageHandler(s, hub)
	journalHandler := handlers.NewJournalHandler(s)
	timetableHandler := handlers.NewTimetableHandler(s)
	studyHandler := handlers.NewStudyHandler(s)

	// Start the reminder sweeper
	reminderHandler.StartSweeper(cfg.SweepInterval())

	mux := http.NewServeMux()

	// Public routes (no auth required)
	mux.HandleFunc("GET /api/ws", hub.HandleWebSocket)
	mux.Handle("GET /metrics", metrics.Handler())
	mux.HandleFunc("GET /health", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("OK"))
	})

	// Users (profile provisioning is called by the upstream auth service)
	mux.HandleFunc("POST /api/users", userHandler.Create)
	mux.HandleFunc("GET /api/users", withAuth(userHandler.List))
	mux.HandleFunc("GET /api/users/me", withAuth(userHandler.GetMe))
	mux.HandleFunc("PUT /api/users/me/push-token", withAuth(userHandler.SetPushToken))
	mux.HandleFunc("DELETE /api/users/me/push-token", withAuth(userHandler.ClearPushToken))
	mux.HandleFunc("GET /api/users/{id}", withAuth(userHandler.Get))

	// Tasks
	mux.HandleFunc("GET /api/tasks", withAuth(taskHandler.List))
	mux.HandleFunc("POST /api/tasks", withAuth(taskHandler.Create))
	mux.HandleFunc("GET /api/tasks/{id}", withAuth(taskHandler.Get))
	mux.HandleFunc("PUT /api/tasks/{id}", withAuth(taskHandler.Update))
	mux.HandleFunc("DELETE /api/tasks/{id}", withAuth(taskHandler.Delete))
	mux.HandleFunc("POST /api/tasks/{id}/complete", withAuth(taskHandler.Complete))

	// Reminders
	mux.HandleFunc("GET /api/reminders", withAuth(reminderHandler.List))
	mux.HandleFunc("POST /api/reminders", withAuth(reminderHandler.Create))
	mux.HandleFunc("DELETE /api/reminders/{id}", withAuth(reminderHandler.Delete))

	// Chats
	mux.HandleFunc("GET /api/chats", withAuth(chatHandler.List))
	mux.HandleFunc("POST /api/chats", withAuth(chatHandler.Create))
	mux.HandleFunc("POST /api/chats/direct", withAuth(chatHandler.CreateDirect))
	mux.HandleFunc("GET /api/chats/{id}", withAuth(chatHandler.Get))
	mux.HandleFunc("GET /api/chats/{id}/members", withAuth(chatHandler.Members))
	mux.HandleFunc("GET /api/chats/{id}/messages", withAuth(messageHandler.GetChatMessages))

	// Messages
	mux.HandleFunc("POST /api/messages", withAuth(messageHandler.Send))

	// Journal
	mux.HandleFunc("GET /api/journal", withAuth(journalHandler.List))
	mux.HandleFunc("POST /api/journal", withAuth(journalHandler.Create))
	mux.HandleFunc("GET /api/journal/{id}", withAuth(journalHandler.Get))
	mux.HandleFunc("PUT /api/journal/{id}", withAuth(journalHandler.Update))
	mux.HandleFunc("DELETE /api/journal/{id}", withAuth(journalHandler.Delete))

	// Timetable
	mux.HandleFunc("GET /api/timetable", withAuth(timetableHandler.List))
	mux.HandleFunc("POST /api/timetable", withAuth(timetableHandler.Create))
	mux.HandleFunc("PUT /api/timetable/{id}", withAuth(timetableHandler.Update))
	mux.HandleFunc("DELETE /api/timetable/{id}", withAuth(timetableHandler.Delete))

	// Study timer
	mux.HandleFunc("GET /api/study/sessions", withAuth(studyHandler.List))
	mux.HandleFunc("POST /api/study/sessions", withAuth(studyHandler.Start))
	mux.HandleFunc("POST /api/study/sessions/{id}/stop", withAuth(studyHandler.Stop))
	mux.HandleFunc("GET /api/study/totals", withAuth(studyHandler.Totals))

	handler := corsMiddleware(mux)

	log.Printf("Planora server starting on :%s", cfg.Server.Port)
	log.Fatal(http.ListenAndServe(":"+cfg.Server.Port, handler))
}

// withAuth wraps a handler with authentication
func withAuth(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		authHeader := r.Header.Get("Authorization")
		if authHeader == "" {
			http.Error(w, "Authorization header required", http.StatusUnauthorized)
			return
		}

		tokenString := strings.TrimPrefix(authHeader, "Bearer ")
		if tokenString == authHeader {
			http.Error(w, "Invalid authorization format", http.StatusUnauthorized)
			return
		}

		claims, err := middleware.ValidateToken(tokenString)
		if err != nil {
			http.Error(w, "Invalid token", http.StatusUnauthorized)
			return
		}

		ctx := middleware.SetUserID(r.Context(), claims.UserID)
		next.ServeHTTP(w, r.WithContext(ctx))
	}
}

func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")

		if r.Method == "OPTIONS" {
			w.WriteHeader(http.StatusOK)
			return
		}

		next.ServeHTTP(w, r)
	})
}
