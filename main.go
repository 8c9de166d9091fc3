package main

import (
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/gorilla/mux"
	"github.com/joho/godotenv"

	"project-tracker/workspace-service/handlers"
	"project-tracker/workspace-service/logging"
	"project-tracker/workspace-service/middleware"
	"project-tracker/workspace-service/services"
)

func enableCORS(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, PATCH, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}

		next.ServeHTTP(w, r)
	})
}

func main() {
	logging.InitLogger()
	logging.Logger.Info("Event ID: SERVICE_START, Description: Starting Workspace Service...")

	if err := godotenv.Load(".env"); err != nil {
		logging.Logger.Warnf("Event ID: ENV_LOAD_WARNING, Description: No .env file loaded: %v", err)
	}
	if os.Getenv("JWT_SECRET") == "" {
		logging.Logger.Fatalf("Event ID: CONFIG_ERROR, Description: JWT_SECRET is not set in the environment variables.")
	}

	store := services.NewWorkspaceService()
	seedAnchor, err := store.SeedDemoData()
	if err != nil {
		logging.Logger.Fatalf("Event ID: SEED_FAILED, Description: Failed to seed demo workspace: %v", err)
	}
	logging.Logger.Infof("Event ID: SEED_LOADED, Description: Demo workspace seeded, reference date %s", seedAnchor.Format("2006-01-02"))

	// The demo data is anchored to a fixed date; pin "now" to it so the
	// overdue and week-window numbers stay meaningful. Unset REFERENCE_NOW
	// and reseed with live dates for real use.
	now := func() time.Time { return time.Now() }
	if raw := os.Getenv("REFERENCE_NOW"); raw != "" {
		parsed, err := time.Parse("2006-01-02", raw)
		if err != nil {
			logging.Logger.Fatalf("Event ID: CONFIG_ERROR, Description: REFERENCE_NOW must be YYYY-MM-DD: %v", err)
		}
		now = func() time.Time { return parsed }
		logging.Logger.Infof("Event ID: REFERENCE_NOW_PINNED, Description: Reference time pinned to %s", raw)
	}

	permissions := services.NewPermissionService()
	rollups := services.NewRollupService()
	attention := services.NewAttentionService(permissions, rollups)

	loginHandler := handlers.NewLoginHandler(store)
	epicHandler := handlers.NewEpicHandler(store, permissions)
	taskHandler := handlers.NewTaskHandler(store, permissions, now)
	userHandler := handlers.NewUserHandler(store, permissions)
	metricsHandler := handlers.NewMetricsHandler(store, permissions, rollups, attention, now)

	r := mux.NewRouter()
	r.HandleFunc("/api/login", loginHandler.Login).Methods(http.MethodPost)

	api := r.PathPrefix("/api").Subrouter()
	api.Use(middleware.JWTAuthMiddleware)

	api.HandleFunc("/users", userHandler.GetAllUsers).Methods(http.MethodGet)
	api.HandleFunc("/users/{userId}/role", userHandler.ChangeUserRole).Methods(http.MethodPatch)

	api.HandleFunc("/epics", epicHandler.GetAllEpics).Methods(http.MethodGet)
	api.HandleFunc("/epics", epicHandler.CreateEpic).Methods(http.MethodPost)
	api.HandleFunc("/epics/{epicId}", epicHandler.GetEpicByID).Methods(http.MethodGet)
	api.HandleFunc("/epics/{epicId}", epicHandler.UpdateEpic).Methods(http.MethodPatch)
	api.HandleFunc("/epics/{epicId}", epicHandler.DeleteEpic).Methods(http.MethodDelete)
	api.HandleFunc("/epics/{epicId}/members", epicHandler.GetEpicMembers).Methods(http.MethodGet)
	api.HandleFunc("/epics/{epicId}/members/{userId}", epicHandler.AddMemberToEpic).Methods(http.MethodPut)
	api.HandleFunc("/epics/{epicId}/members/{userId}", epicHandler.RemoveMemberFromEpic).Methods(http.MethodDelete)
	api.HandleFunc("/epics/{epicId}/assignable-users", epicHandler.GetAssignableUsers).Methods(http.MethodGet)
	api.HandleFunc("/epics/{epicId}/tasks", taskHandler.GetTasksByEpic).Methods(http.MethodGet)
	api.HandleFunc("/epics/{epicId}/progress", metricsHandler.GetEpicProgress).Methods(http.MethodGet)

	api.HandleFunc("/tasks", taskHandler.CreateTask).Methods(http.MethodPost)
	api.HandleFunc("/tasks/{taskId}", taskHandler.GetTaskByID).Methods(http.MethodGet)
	api.HandleFunc("/tasks/{taskId}", taskHandler.UpdateTask).Methods(http.MethodPatch)
	api.HandleFunc("/tasks/{taskId}", taskHandler.DeleteTask).Methods(http.MethodDelete)
	api.HandleFunc("/tasks/{taskId}/subtasks", taskHandler.CreateSubtask).Methods(http.MethodPost)
	api.HandleFunc("/tasks/{taskId}/subtasks/{subtaskId}/toggle", taskHandler.ToggleSubtask).Methods(http.MethodPost)
	api.HandleFunc("/tasks/{taskId}/subtasks/{subtaskId}", taskHandler.DeleteSubtask).Methods(http.MethodDelete)
	api.HandleFunc("/tasks/{taskId}/comments", taskHandler.AddComment).Methods(http.MethodPost)
	api.HandleFunc("/tasks/{taskId}/comments/{commentId}", taskHandler.DeleteComment).Methods(http.MethodDelete)
	api.HandleFunc("/tasks/{taskId}/time-entries", taskHandler.AddTimeEntry).Methods(http.MethodPost)
	api.HandleFunc("/tasks/{taskId}/time-entries/{entryId}", taskHandler.DeleteTimeEntry).Methods(http.MethodDelete)

	api.HandleFunc("/utilization", metricsHandler.GetUtilization).Methods(http.MethodGet)
	api.HandleFunc("/attention-epics", metricsHandler.GetAttentionEpics).Methods(http.MethodGet)

	corsRouter := enableCORS(r)

	serverPort := os.Getenv("SERVER_PORT")
	if serverPort == "" {
		serverPort = "8080"
	}
	serverAddress := fmt.Sprintf(":%s", serverPort)
	logging.Logger.Infof("Event ID: SERVER_START_INFO, Description: Server running on http://localhost%s", serverAddress)

	if err := http.ListenAndServe(serverAddress, corsRouter); err != nil {
		logging.Logger.Fatalf("Event ID: SERVER_FATAL_ERROR, Description: Server failed to start: %v", err)
	}
}
