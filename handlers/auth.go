package handlers

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"project-tracker/workspace-service/logging"
	"project-tracker/workspace-service/models"
	"project-tracker/workspace-service/services"
	"project-tracker/workspace-service/utils"
)

// actorFromRequest resolves the authenticated user behind the request. A
// missing or stale token simply yields no actor, and every permission check
// denies a nil actor.
func actorFromRequest(store *services.WorkspaceService, r *http.Request) (*models.User, error) {
	authHeader := r.Header.Get("Authorization")
	if authHeader == "" {
		return nil, fmt.Errorf("authorization header missing")
	}
	tokenStr := strings.TrimPrefix(authHeader, "Bearer ")
	userID, err := utils.ExtractUserIDFromToken(tokenStr)
	if err != nil {
		return nil, err
	}
	return store.GetUser(userID)
}

type LoginHandler struct {
	store *services.WorkspaceService
}

func NewLoginHandler(store *services.WorkspaceService) *LoginHandler {
	return &LoginHandler{store: store}
}

// Login is the demo sign-in: pick a seeded user by email, get a token. There
// is no password step, switching users is how the demo switches roles.
func (h *LoginHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Email string `json:"email"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	user, err := h.store.GetUserByEmail(req.Email)
	if err != nil {
		logging.Logger.Warnf("Event ID: LOGIN_UNKNOWN_USER, Description: Login attempt for unknown email %s", req.Email)
		http.Error(w, "user not found", http.StatusUnauthorized)
		return
	}

	token, err := utils.GenerateToken(*user)
	if err != nil {
		logging.Logger.Errorf("Event ID: LOGIN_TOKEN_ERROR, Description: Failed to issue token for %s: %v", req.Email, err)
		http.Error(w, "failed to issue token", http.StatusInternalServerError)
		return
	}

	logging.Logger.Infof("Event ID: LOGIN_SUCCESS, Description: User %s logged in as %s", user.Email, user.Role)
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]interface{}{
		"token": token,
		"user":  user,
	})
}
