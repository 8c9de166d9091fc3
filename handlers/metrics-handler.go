package handlers

import (
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"project-tracker/workspace-service/models"
	"project-tracker/workspace-service/services"
)

// MetricsHandler serves the derived numbers: progress rollups, utilization
// and the attention feed. The reference time is injected so a demo
// deployment can pin it and tests can pick arbitrary dates.
type MetricsHandler struct {
	store       *services.WorkspaceService
	permissions *services.PermissionService
	rollups     *services.RollupService
	attention   *services.AttentionService
	now         func() time.Time
}

func NewMetricsHandler(store *services.WorkspaceService, permissions *services.PermissionService, rollups *services.RollupService, attention *services.AttentionService, now func() time.Time) *MetricsHandler {
	return &MetricsHandler{
		store:       store,
		permissions: permissions,
		rollups:     rollups,
		attention:   attention,
		now:         now,
	}
}

// GetEpicProgress returns the epic's rolled-up progress plus per-task values.
func (h *MetricsHandler) GetEpicProgress(w http.ResponseWriter, r *http.Request) {
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
	_, epics, tasks := h.store.Snapshot()
	index := services.NewMembershipIndex(epics)
	if !h.permissions.CanViewEpic(actor, index, epicID) {
		http.Error(w, "access forbidden", http.StatusForbidden)
		return
	}

	type taskProgress struct {
		TaskID     string `json:"taskId"`
		Progress   int    `json:"progress"`
		OverBudget bool   `json:"overBudget"`
	}
	perTask := []taskProgress{}
	for _, task := range tasks {
		if task.EpicID != epicID {
			continue
		}
		perTask = append(perTask, taskProgress{
			TaskID:     task.ID.Hex(),
			Progress:   h.rollups.TaskProgress(task),
			OverBudget: h.rollups.TaskOverBudget(task),
		})
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"epicId":   epicID.Hex(),
		"progress": h.rollups.EpicProgress(epicID, tasks),
		"tasks":    perTask,
	})
}

// GetUtilization serves the resource utilization board. It is a monitoring
// view, so only admins and managers may call it.
func (h *MetricsHandler) GetUtilization(w http.ResponseWriter, r *http.Request) {
	actor, err := actorFromRequest(h.store, r)
	if err != nil {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}
	if actor.Role != models.RoleAdmin && actor.Role != models.RoleManager {
		http.Error(w, "access forbidden: insufficient permissions", http.StatusForbidden)
		return
	}

	filters := services.UtilizationFilters{
		ExcludeCompleted: r.URL.Query().Get("includeCompleted") != "true",
		DateRange:        services.DateRangeNone,
	}
	if raw := r.URL.Query().Get("epicId"); raw != "" {
		epicID, err := primitive.ObjectIDFromHex(raw)
		if err != nil {
			http.Error(w, "invalid epic ID format", http.StatusBadRequest)
			return
		}
		filters.EpicID = &epicID
	}
	switch services.DateRangeFilter(r.URL.Query().Get("dateRange")) {
	case services.DateRangeThisWeek:
		filters.DateRange = services.DateRangeThisWeek
	case services.DateRangeNextWeek:
		filters.DateRange = services.DateRangeNextWeek
	case services.DateRangeAll:
		filters.DateRange = services.DateRangeAll
	}

	users, _, tasks := h.store.Snapshot()
	rows := h.rollups.CalculateUtilization(users, tasks, filters, h.now())
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"utilization": rows,
		"aggregates":  h.rollups.CalculateUtilizationAggregates(rows),
	})
}

// GetAttentionEpics serves the early-warning feed. The service itself
// restricts the list to epics the actor can view.
func (h *MetricsHandler) GetAttentionEpics(w http.ResponseWriter, r *http.Request) {
	actor, err := actorFromRequest(h.store, r)
	if err != nil {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}
	users, epics, tasks := h.store.Snapshot()
	flagged := h.attention.AttentionEpics(epics, tasks, users, actor, h.now())
	if flagged == nil {
		flagged = []services.AttentionEpic{}
	}
	writeJSON(w, http.StatusOK, flagged)
}
