package handlers

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"project-tracker/workspace-service/logging"
	"project-tracker/workspace-service/models"
	"project-tracker/workspace-service/services"
)

type TaskHandler struct {
	store       *services.WorkspaceService
	permissions *services.PermissionService
	now         func() time.Time
}

func NewTaskHandler(store *services.WorkspaceService, permissions *services.PermissionService, now func() time.Time) *TaskHandler {
	return &TaskHandler{store: store, permissions: permissions, now: now}
}

func (h *TaskHandler) membershipIndex() *services.MembershipIndex {
	return services.NewMembershipIndex(h.store.GetAllEpics())
}

// taskContext loads the task and checks it is visible to the actor. Both the
// task and the membership index are returned for follow-up checks.
func (h *TaskHandler) taskContext(w http.ResponseWriter, r *http.Request, actor *models.User) (*models.Task, *services.MembershipIndex, bool) {
	taskID, err := primitive.ObjectIDFromHex(mux.Vars(r)["taskId"])
	if err != nil {
		http.Error(w, "invalid task ID format", http.StatusBadRequest)
		return nil, nil, false
	}
	task, err := h.store.GetTaskByID(taskID)
	if err != nil {
		http.Error(w, err.Error(), http.StatusNotFound)
		return nil, nil, false
	}
	index := h.membershipIndex()
	if !h.permissions.CanViewEpic(actor, index, task.EpicID) {
		http.Error(w, "access forbidden", http.StatusForbidden)
		return nil, nil, false
	}
	return task, index, true
}

// canAssign checks both the assign permission and that the chosen assignee
// is in the actor's assignable set for the epic.
func (h *TaskHandler) canAssign(actor *models.User, index *services.MembershipIndex, epicID, assigneeID primitive.ObjectID) bool {
	if !h.permissions.CanAssignTask(actor, index, epicID) {
		return false
	}
	if assigneeID.IsZero() {
		return true
	}
	for _, id := range h.permissions.AssignableUsers(actor, index, epicID) {
		if id == assigneeID {
			return true
		}
	}
	return false
}

func (h *TaskHandler) GetTasksByEpic(w http.ResponseWriter, r *http.Request) {
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
	tasks := h.store.GetTasksByEpic(epicID)
	if tasks == nil {
		tasks = []models.Task{}
	}
	writeJSON(w, http.StatusOK, tasks)
}

func (h *TaskHandler) GetTaskByID(w http.ResponseWriter, r *http.Request) {
	actor, err := actorFromRequest(h.store, r)
	if err != nil {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}
	task, _, ok := h.taskContext(w, r, actor)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, task)
}

type createTaskRequest struct {
	EpicID        string     `json:"epicId"`
	Title         string     `json:"title"`
	Description   string     `json:"description"`
	Status        string     `json:"status"`
	Priority      string     `json:"priority"`
	AssigneeID    string     `json:"assigneeId"`
	DueDate       *time.Time `json:"dueDate"`
	EstimateHours float64    `json:"estimateHours"`
}

func (h *TaskHandler) CreateTask(w http.ResponseWriter, r *http.Request) {
	actor, err := actorFromRequest(h.store, r)
	if err != nil {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}

	var req createTaskRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	epicID, err := primitive.ObjectIDFromHex(req.EpicID)
	if err != nil {
		http.Error(w, "invalid epic ID format", http.StatusBadRequest)
		return
	}

	index := h.membershipIndex()
	if !h.permissions.CanCreate(actor, index, epicID) {
		http.Error(w, "access forbidden: insufficient permissions", http.StatusForbidden)
		return
	}

	var assigneeID *primitive.ObjectID
	if req.AssigneeID != "" {
		id, err := primitive.ObjectIDFromHex(req.AssigneeID)
		if err != nil {
			http.Error(w, "invalid assignee ID format", http.StatusBadRequest)
			return
		}
		if !h.canAssign(actor, index, epicID, id) {
			http.Error(w, "access forbidden: cannot assign to that user", http.StatusForbidden)
			return
		}
		assigneeID = &id
	}

	task, err := h.store.CreateTask(epicID, req.Title, req.Description,
		models.TaskStatus(req.Status), models.Priority(req.Priority),
		assigneeID, req.DueDate, req.EstimateHours)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	logging.Logger.Infof("Event ID: TASK_CREATED, Description: Task %s created in epic %s by %s", task.ID.Hex(), epicID.Hex(), actor.Email)
	writeJSON(w, http.StatusCreated, task)
}

type updateTaskRequest struct {
	Title         *string    `json:"title"`
	Description   *string    `json:"description"`
	Status        *string    `json:"status"`
	Priority      *string    `json:"priority"`
	AssigneeID    *string    `json:"assigneeId"`
	DueDate       *time.Time `json:"dueDate"`
	EstimateHours *float64   `json:"estimateHours"`
}

func (h *TaskHandler) UpdateTask(w http.ResponseWriter, r *http.Request) {
	actor, err := actorFromRequest(h.store, r)
	if err != nil {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}
	task, index, ok := h.taskContext(w, r, actor)
	if !ok {
		return
	}
	if !h.permissions.CanEdit(actor, index, task.EpicID) {
		http.Error(w, "access forbidden: insufficient permissions", http.StatusForbidden)
		return
	}

	var req updateTaskRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	update := services.TaskUpdate{
		Title:         req.Title,
		Description:   req.Description,
		DueDate:       req.DueDate,
		EstimateHours: req.EstimateHours,
	}
	if req.Status != nil {
		if !h.permissions.CanUpdateStatus(actor, index, task.EpicID) {
			http.Error(w, "access forbidden: cannot update status", http.StatusForbidden)
			return
		}
		status := models.TaskStatus(*req.Status)
		update.Status = &status
	}
	if req.Priority != nil {
		priority := models.Priority(*req.Priority)
		update.Priority = &priority
	}
	if req.AssigneeID != nil {
		assigneeID := primitive.NilObjectID
		if *req.AssigneeID != "" {
			assigneeID, err = primitive.ObjectIDFromHex(*req.AssigneeID)
			if err != nil {
				http.Error(w, "invalid assignee ID format", http.StatusBadRequest)
				return
			}
		}
		if !h.canAssign(actor, index, task.EpicID, assigneeID) {
			http.Error(w, "access forbidden: cannot assign to that user", http.StatusForbidden)
			return
		}
		update.AssigneeID = &assigneeID
	}

	updated, err := h.store.UpdateTask(task.ID, update)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	writeJSON(w, http.StatusOK, updated)
}

func (h *TaskHandler) DeleteTask(w http.ResponseWriter, r *http.Request) {
	actor, err := actorFromRequest(h.store, r)
	if err != nil {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}
	task, index, ok := h.taskContext(w, r, actor)
	if !ok {
		return
	}
	if !h.permissions.CanDelete(actor, index, services.DeleteTaskRequest(task.EpicID)) {
		http.Error(w, "access forbidden: insufficient permissions", http.StatusForbidden)
		return
	}
	if err := h.store.DeleteTask(task.ID); err != nil {
		http.Error(w, err.Error(), http.StatusNotFound)
		return
	}
	logging.Logger.Infof("Event ID: TASK_DELETED, Description: Task %s deleted by %s", task.ID.Hex(), actor.Email)
	w.WriteHeader(http.StatusNoContent)
}

// ── Subtasks ────────────────────────────────────────────────────────────────

func (h *TaskHandler) CreateSubtask(w http.ResponseWriter, r *http.Request) {
	actor, err := actorFromRequest(h.store, r)
	if err != nil {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}
	task, index, ok := h.taskContext(w, r, actor)
	if !ok {
		return
	}
	if !h.permissions.CanCreate(actor, index, task.EpicID) {
		http.Error(w, "access forbidden: insufficient permissions", http.StatusForbidden)
		return
	}

	var req struct {
		Title      string `json:"title"`
		AssigneeID string `json:"assigneeId"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	var assigneeID *primitive.ObjectID
	if req.AssigneeID != "" {
		id, err := primitive.ObjectIDFromHex(req.AssigneeID)
		if err != nil {
			http.Error(w, "invalid assignee ID format", http.StatusBadRequest)
			return
		}
		if !h.canAssign(actor, index, task.EpicID, id) {
			http.Error(w, "access forbidden: cannot assign to that user", http.StatusForbidden)
			return
		}
		assigneeID = &id
	}

	subtask, err := h.store.CreateSubtask(task.ID, req.Title, assigneeID)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	writeJSON(w, http.StatusCreated, subtask)
}

func (h *TaskHandler) ToggleSubtask(w http.ResponseWriter, r *http.Request) {
	actor, err := actorFromRequest(h.store, r)
	if err != nil {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}
	task, index, ok := h.taskContext(w, r, actor)
	if !ok {
		return
	}
	if !h.permissions.CanEdit(actor, index, task.EpicID) {
		http.Error(w, "access forbidden: insufficient permissions", http.StatusForbidden)
		return
	}
	subtaskID, err := primitive.ObjectIDFromHex(mux.Vars(r)["subtaskId"])
	if err != nil {
		http.Error(w, "invalid subtask ID format", http.StatusBadRequest)
		return
	}
	if err := h.store.ToggleSubtask(task.ID, subtaskID); err != nil {
		http.Error(w, err.Error(), http.StatusNotFound)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *TaskHandler) DeleteSubtask(w http.ResponseWriter, r *http.Request) {
	actor, err := actorFromRequest(h.store, r)
	if err != nil {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}
	task, index, ok := h.taskContext(w, r, actor)
	if !ok {
		return
	}
	if !h.permissions.CanDelete(actor, index, services.DeleteSubtaskRequest(task.EpicID)) {
		http.Error(w, "access forbidden: insufficient permissions", http.StatusForbidden)
		return
	}
	subtaskID, err := primitive.ObjectIDFromHex(mux.Vars(r)["subtaskId"])
	if err != nil {
		http.Error(w, "invalid subtask ID format", http.StatusBadRequest)
		return
	}
	if err := h.store.DeleteSubtask(task.ID, subtaskID); err != nil {
		http.Error(w, err.Error(), http.StatusNotFound)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// ── Comments ────────────────────────────────────────────────────────────────

func (h *TaskHandler) AddComment(w http.ResponseWriter, r *http.Request) {
	actor, err := actorFromRequest(h.store, r)
	if err != nil {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}
	task, index, ok := h.taskContext(w, r, actor)
	if !ok {
		return
	}
	if !h.permissions.CanComment(actor, index, task.EpicID) {
		http.Error(w, "access forbidden: insufficient permissions", http.StatusForbidden)
		return
	}

	var req struct {
		Text string `json:"text"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	comment, err := h.store.AddComment(task.ID, req.Text, *actor, h.now())
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	writeJSON(w, http.StatusCreated, comment)
}

// DeleteComment looks up the comment's author first: members may delete only
// their own comments, admins any.
func (h *TaskHandler) DeleteComment(w http.ResponseWriter, r *http.Request) {
	actor, err := actorFromRequest(h.store, r)
	if err != nil {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}
	task, index, ok := h.taskContext(w, r, actor)
	if !ok {
		return
	}
	commentID, err := primitive.ObjectIDFromHex(mux.Vars(r)["commentId"])
	if err != nil {
		http.Error(w, "invalid comment ID format", http.StatusBadRequest)
		return
	}
	comment, err := h.store.GetComment(task.ID, commentID)
	if err != nil {
		http.Error(w, err.Error(), http.StatusNotFound)
		return
	}
	if !h.permissions.CanDelete(actor, index, services.DeleteCommentRequest(task.EpicID, comment.Author.ID)) {
		http.Error(w, "access forbidden: insufficient permissions", http.StatusForbidden)
		return
	}
	if err := h.store.DeleteComment(task.ID, commentID); err != nil {
		http.Error(w, err.Error(), http.StatusNotFound)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// ── Time entries ────────────────────────────────────────────────────────────

func (h *TaskHandler) AddTimeEntry(w http.ResponseWriter, r *http.Request) {
	actor, err := actorFromRequest(h.store, r)
	if err != nil {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}
	task, index, ok := h.taskContext(w, r, actor)
	if !ok {
		return
	}
	if !h.permissions.CanEdit(actor, index, task.EpicID) {
		http.Error(w, "access forbidden: insufficient permissions", http.StatusForbidden)
		return
	}

	var req struct {
		Date    time.Time `json:"date"`
		Minutes int       `json:"minutes"`
		Note    string    `json:"note"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	entry, err := h.store.AddTimeEntry(task.ID, *actor, req.Date, req.Minutes, req.Note)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	writeJSON(w, http.StatusCreated, entry)
}

func (h *TaskHandler) DeleteTimeEntry(w http.ResponseWriter, r *http.Request) {
	actor, err := actorFromRequest(h.store, r)
	if err != nil {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}
	task, index, ok := h.taskContext(w, r, actor)
	if !ok {
		return
	}
	if !h.permissions.CanEdit(actor, index, task.EpicID) {
		http.Error(w, "access forbidden: insufficient permissions", http.StatusForbidden)
		return
	}
	entryID, err := primitive.ObjectIDFromHex(mux.Vars(r)["entryId"])
	if err != nil {
		http.Error(w, "invalid time entry ID format", http.StatusBadRequest)
		return
	}
	if err := h.store.DeleteTimeEntry(task.ID, entryID); err != nil {
		http.Error(w, err.Error(), http.StatusNotFound)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
