package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/gorilla/mux"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"project-tracker/workspace-service/logging"
	"project-tracker/workspace-service/models"
	"project-tracker/workspace-service/services"
)

type UserHandler struct {
	store       *services.WorkspaceService
	permissions *services.PermissionService
}

func NewUserHandler(store *services.WorkspaceService, permissions *services.PermissionService) *UserHandler {
	return &UserHandler{store: store, permissions: permissions}
}

func (h *UserHandler) GetAllUsers(w http.ResponseWriter, r *http.Request) {
	if _, err := actorFromRequest(h.store, r); err != nil {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}
	writeJSON(w, http.StatusOK, h.store.GetAllUsers())
}

// ChangeUserRole is the explicit role-switch action, restricted to admins.
func (h *UserHandler) ChangeUserRole(w http.ResponseWriter, r *http.Request) {
	actor, err := actorFromRequest(h.store, r)
	if err != nil {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}
	if !h.permissions.CanManageEpics(actor) {
		http.Error(w, "access forbidden: insufficient permissions", http.StatusForbidden)
		return
	}

	userID, err := primitive.ObjectIDFromHex(mux.Vars(r)["userId"])
	if err != nil {
		http.Error(w, "invalid user ID format", http.StatusBadRequest)
		return
	}

	var req struct {
		Role string `json:"role"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	if err := h.store.ChangeUserRole(userID, models.Role(req.Role)); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	logging.Logger.Infof("Event ID: ROLE_CHANGED, Description: Role of user %s changed to %s by %s", userID.Hex(), req.Role, actor.Email)
	w.WriteHeader(http.StatusNoContent)
}
