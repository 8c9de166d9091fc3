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

type EpicHandler struct {
	store       *services.WorkspaceService
	permissions *services.PermissionService
}

func NewEpicHandler(store *services.WorkspaceService, permissions *services.PermissionService) *EpicHandler {
	return &EpicHandler{store: store, permissions: permissions}
}

func (h *EpicHandler) membershipIndex() *services.MembershipIndex {
	return services.NewMembershipIndex(h.store.GetAllEpics())
}

func writeJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(payload)
}

// GetAllEpics lists only the epics the actor may view.
func (h *EpicHandler) GetAllEpics(w http.ResponseWriter, r *http.Request) {
	actor, err := actorFromRequest(h.store, r)
	if err != nil {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}

	index := h.membershipIndex()
	visible := []models.Epic{}
	for _, epic := range h.store.GetAllEpics() {
		if h.permissions.CanViewEpic(actor, index, epic.ID) {
			visible = append(visible, epic)
		}
	}
	writeJSON(w, http.StatusOK, visible)
}

func (h *EpicHandler) GetEpicByID(w http.ResponseWriter, r *http.Request) {
	actor, err := actorFromRequest(h.store, r)
	if err != nil {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}
	epicID, err := primitive.ObjectIDFromHex(mux.Vars(r)["epicId"])
	if err != nil {
		http.Error(w, "invalid epic ID format", http.StatusBadRequest)
		return
	}
	if !h.permissions.CanViewEpic(actor, h.membershipIndex(), epicID) {
		http.Error(w, "access forbidden", http.StatusForbidden)
		return
	}
	epic, err := h.store.GetEpicByID(epicID)
	if err != nil {
		http.Error(w, err.Error(), http.StatusNotFound)
		return
	}
	writeJSON(w, http.StatusOK, epic)
}

type createEpicRequest struct {
	Title       string   `json:"title"`
	Description string   `json:"description"`
	OwnerID     string   `json:"ownerId"`
	Status      string   `json:"status"`
	MemberIDs   []string `json:"memberIds"`
}

func (h *EpicHandler) CreateEpic(w http.ResponseWriter, r *http.Request) {
	actor, err := actorFromRequest(h.store, r)
	if err != nil {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}
	if !h.permissions.CanManageEpics(actor) {
		http.Error(w, "access forbidden: insufficient permissions", http.StatusForbidden)
		return
	}

	var req createEpicRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	ownerID, err := primitive.ObjectIDFromHex(req.OwnerID)
	if err != nil {
		http.Error(w, "invalid owner ID format", http.StatusBadRequest)
		return
	}
	memberIDs, err := parseObjectIDs(req.MemberIDs)
	if err != nil {
		http.Error(w, "invalid member ID format", http.StatusBadRequest)
		return
	}

	epic, err := h.store.CreateEpic(req.Title, req.Description, ownerID, models.EpicStatus(req.Status), memberIDs)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	logging.Logger.Infof("Event ID: EPIC_CREATED, Description: Epic %s created by %s", epic.ID.Hex(), actor.Email)
	writeJSON(w, http.StatusCreated, epic)
}

type updateEpicRequest struct {
	Title       *string `json:"title"`
	Description *string `json:"description"`
	Status      *string `json:"status"`
	OwnerID     *string `json:"ownerId"`
}

func (h *EpicHandler) UpdateEpic(w http.ResponseWriter, r *http.Request) {
	actor, err := actorFromRequest(h.store, r)
	if err != nil {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}
	epicID, err := primitive.ObjectIDFromHex(mux.Vars(r)["epicId"])
	if err != nil {
		http.Error(w, "invalid epic ID format", http.StatusBadRequest)
		return
	}
	if !h.permissions.CanEdit(actor, h.membershipIndex(), epicID) {
		http.Error(w, "access forbidden: insufficient permissions", http.StatusForbidden)
		return
	}

	var req updateEpicRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	update := services.EpicUpdate{
		Title:       req.Title,
		Description: req.Description,
	}
	if req.Status != nil {
		status := models.EpicStatus(*req.Status)
		update.Status = &status
	}
	if req.OwnerID != nil {
		// Reassigning ownership is admin-only, on top of the edit check.
		if !h.permissions.CanChangeEpicOwner(actor) {
			http.Error(w, "access forbidden: only admins can change the epic owner", http.StatusForbidden)
			return
		}
		ownerID, err := primitive.ObjectIDFromHex(*req.OwnerID)
		if err != nil {
			http.Error(w, "invalid owner ID format", http.StatusBadRequest)
			return
		}
		update.OwnerID = &ownerID
	}

	epic, err := h.store.UpdateEpic(epicID, update)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	writeJSON(w, http.StatusOK, epic)
}

func (h *EpicHandler) DeleteEpic(w http.ResponseWriter, r *http.Request) {
	actor, err := actorFromRequest(h.store, r)
	if err != nil {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}
	epicID, err := primitive.ObjectIDFromHex(mux.Vars(r)["epicId"])
	if err != nil {
		http.Error(w, "invalid epic ID format", http.StatusBadRequest)
		return
	}
	if !h.permissions.CanDelete(actor, h.membershipIndex(), services.DeleteEpicRequest(epicID)) {
		http.Error(w, "access forbidden: insufficient permissions", http.StatusForbidden)
		return
	}
	if err := h.store.DeleteEpic(epicID); err != nil {
		http.Error(w, err.Error(), http.StatusNotFound)
		return
	}
	logging.Logger.Infof("Event ID: EPIC_DELETED, Description: Epic %s deleted by %s", epicID.Hex(), actor.Email)
	w.WriteHeader(http.StatusNoContent)
}

// GetEpicMembers returns the epic's member list as full user records.
func (h *EpicHandler) GetEpicMembers(w http.ResponseWriter, r *http.Request) {
	actor, err := actorFromRequest(h.store, r)
	if err != nil {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}
	epicID, err := primitive.ObjectIDFromHex(mux.Vars(r)["epicId"])
	if err != nil {
		http.Error(w, "invalid epic ID format", http.StatusBadRequest)
		return
	}
	index := h.membershipIndex()
	if !h.permissions.CanViewEpic(actor, index, epicID) {
		http.Error(w, "access forbidden", http.StatusForbidden)
		return
	}
	writeJSON(w, http.StatusOK, filterUsersByID(h.store.GetAllUsers(), index.Members(epicID)))
}

func (h *EpicHandler) AddMemberToEpic(w http.ResponseWriter, r *http.Request) {
	actor, err := actorFromRequest(h.store, r)
	if err != nil {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}
	if !h.permissions.CanManageEpics(actor) {
		http.Error(w, "access forbidden: insufficient permissions", http.StatusForbidden)
		return
	}
	vars := mux.Vars(r)
	epicID, err := primitive.ObjectIDFromHex(vars["epicId"])
	if err != nil {
		http.Error(w, "invalid epic ID format", http.StatusBadRequest)
		return
	}
	userID, err := primitive.ObjectIDFromHex(vars["userId"])
	if err != nil {
		http.Error(w, "invalid user ID format", http.StatusBadRequest)
		return
	}
	if err := h.store.AddMemberToEpic(epicID, userID); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *EpicHandler) RemoveMemberFromEpic(w http.ResponseWriter, r *http.Request) {
	actor, err := actorFromRequest(h.store, r)
	if err != nil {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}
	if !h.permissions.CanManageEpics(actor) {
		http.Error(w, "access forbidden: insufficient permissions", http.StatusForbidden)
		return
	}
	vars := mux.Vars(r)
	epicID, err := primitive.ObjectIDFromHex(vars["epicId"])
	if err != nil {
		http.Error(w, "invalid epic ID format", http.StatusBadRequest)
		return
	}
	userID, err := primitive.ObjectIDFromHex(vars["userId"])
	if err != nil {
		http.Error(w, "invalid user ID format", http.StatusBadRequest)
		return
	}
	if err := h.store.RemoveMemberFromEpic(epicID, userID); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// GetAssignableUsers returns the users the actor may pick as assignee inside
// the epic. The permission service returns ids; they are intersected with
// the real user list here.
func (h *EpicHandler) GetAssignableUsers(w http.ResponseWriter, r *http.Request) {
	actor, err := actorFromRequest(h.store, r)
	if err != nil {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}
	epicID, err := primitive.ObjectIDFromHex(mux.Vars(r)["epicId"])
	if err != nil {
		http.Error(w, "invalid epic ID format", http.StatusBadRequest)
		return
	}
	ids := h.permissions.AssignableUsers(actor, h.membershipIndex(), epicID)
	writeJSON(w, http.StatusOK, filterUsersByID(h.store.GetAllUsers(), ids))
}

func filterUsersByID(users []models.User, ids []primitive.ObjectID) []models.User {
	out := []models.User{}
	for _, id := range ids {
		for _, user := range users {
			if user.ID == id {
				out = append(out, user)
				break
			}
		}
	}
	return out
}

func parseObjectIDs(raw []string) ([]primitive.ObjectID, error) {
	var ids []primitive.ObjectID
	for _, value := range raw {
		id, err := primitive.ObjectIDFromHex(value)
		if err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, nil
}
