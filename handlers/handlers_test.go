package handlers

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gorilla/mux"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"project-tracker/workspace-service/models"
	"project-tracker/workspace-service/services"
	"project-tracker/workspace-service/utils"
)

type testEnv struct {
	router *mux.Router
	store  *services.WorkspaceService
	admin  models.User
	member models.User
	viewer models.User
	epic   models.Epic
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	t.Setenv("JWT_SECRET", "test-secret")

	store := services.NewWorkspaceService()
	admin, err := store.AddUser(models.User{Name: "Admin", Email: "admin@alpha.dev", Role: models.RoleAdmin, WeeklyCapacityHours: 40})
	require.NoError(t, err)
	member, err := store.AddUser(models.User{Name: "Member", Email: "member@alpha.dev", Role: models.RoleMember, WeeklyCapacityHours: 40})
	require.NoError(t, err)
	viewer, err := store.AddUser(models.User{Name: "Viewer", Email: "viewer@alpha.dev", Role: models.RoleViewer})
	require.NoError(t, err)

	// Member and viewer belong to this epic; a second epic is admin-only.
	epic, err := store.CreateEpic("Shared", "", admin.ID, models.EpicInProgress,
		[]primitive.ObjectID{admin.ID, member.ID, viewer.ID})
	require.NoError(t, err)
	_, err = store.CreateEpic("Private", "", admin.ID, models.EpicInProgress, nil)
	require.NoError(t, err)

	permissions := services.NewPermissionService()
	rollups := services.NewRollupService()
	attention := services.NewAttentionService(permissions, rollups)
	now := func() time.Time { return time.Date(2026, time.February, 10, 0, 0, 0, 0, time.UTC) }

	loginHandler := NewLoginHandler(store)
	epicHandler := NewEpicHandler(store, permissions)
	taskHandler := NewTaskHandler(store, permissions, now)
	metricsHandler := NewMetricsHandler(store, permissions, rollups, attention, now)

	r := mux.NewRouter()
	r.HandleFunc("/api/login", loginHandler.Login).Methods(http.MethodPost)
	r.HandleFunc("/api/epics", epicHandler.GetAllEpics).Methods(http.MethodGet)
	r.HandleFunc("/api/epics", epicHandler.CreateEpic).Methods(http.MethodPost)
	r.HandleFunc("/api/epics/{epicId}/progress", metricsHandler.GetEpicProgress).Methods(http.MethodGet)
	r.HandleFunc("/api/tasks", taskHandler.CreateTask).Methods(http.MethodPost)
	r.HandleFunc("/api/tasks/{taskId}/comments", taskHandler.AddComment).Methods(http.MethodPost)
	r.HandleFunc("/api/tasks/{taskId}/comments/{commentId}", taskHandler.DeleteComment).Methods(http.MethodDelete)
	r.HandleFunc("/api/utilization", metricsHandler.GetUtilization).Methods(http.MethodGet)

	return &testEnv{router: r, store: store, admin: *admin, member: *member, viewer: *viewer, epic: *epic}
}

func (e *testEnv) request(t *testing.T, method, path string, body interface{}, actor *models.User) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	if actor != nil {
		token, err := utils.GenerateToken(*actor)
		require.NoError(t, err)
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	e.router.ServeHTTP(rec, req)
	return rec
}

func TestLogin(t *testing.T) {
	env := newTestEnv(t)

	rec := env.request(t, http.MethodPost, "/api/login", map[string]string{"email": "member@alpha.dev"}, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var resp struct {
		Token string      `json:"token"`
		User  models.User `json:"user"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.NotEmpty(t, resp.Token)
	assert.Equal(t, models.RoleMember, resp.User.Role)

	rec = env.request(t, http.MethodPost, "/api/login", map[string]string{"email": "nobody@alpha.dev"}, nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestEpicListVisibility(t *testing.T) {
	env := newTestEnv(t)

	t.Run("admin sees both epics", func(t *testing.T) {
		rec := env.request(t, http.MethodGet, "/api/epics", nil, &env.admin)
		require.Equal(t, http.StatusOK, rec.Code)
		var epics []models.Epic
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &epics))
		assert.Len(t, epics, 2)
	})

	t.Run("member sees only the shared epic", func(t *testing.T) {
		rec := env.request(t, http.MethodGet, "/api/epics", nil, &env.member)
		require.Equal(t, http.StatusOK, rec.Code)
		var epics []models.Epic
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &epics))
		require.Len(t, epics, 1)
		assert.Equal(t, "Shared", epics[0].Title)
	})

	t.Run("no token is unauthorized", func(t *testing.T) {
		rec := env.request(t, http.MethodGet, "/api/epics", nil, nil)
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})
}

func TestEpicCreationIsAdminOnly(t *testing.T) {
	env := newTestEnv(t)
	body := map[string]interface{}{
		"title":   "New Epic",
		"ownerId": env.admin.ID.Hex(),
	}

	rec := env.request(t, http.MethodPost, "/api/epics", body, &env.member)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = env.request(t, http.MethodPost, "/api/epics", body, &env.admin)
	assert.Equal(t, http.StatusCreated, rec.Code)
}

func TestTaskCreationRules(t *testing.T) {
	env := newTestEnv(t)

	t.Run("member creates inside their epic", func(t *testing.T) {
		rec := env.request(t, http.MethodPost, "/api/tasks", map[string]interface{}{
			"epicId": env.epic.ID.Hex(),
			"title":  "member task",
		}, &env.member)
		assert.Equal(t, http.StatusCreated, rec.Code)
	})

	t.Run("viewer cannot create", func(t *testing.T) {
		rec := env.request(t, http.MethodPost, "/api/tasks", map[string]interface{}{
			"epicId": env.epic.ID.Hex(),
			"title":  "viewer task",
		}, &env.viewer)
		assert.Equal(t, http.StatusForbidden, rec.Code)
	})
}

func TestCommentDeletionRules(t *testing.T) {
	env := newTestEnv(t)

	task, err := env.store.CreateTask(env.epic.ID, "task", "", "", "", nil, nil, 0)
	require.NoError(t, err)
	adminComment, err := env.store.AddComment(task.ID, "from admin", env.admin, time.Now())
	require.NoError(t, err)
	memberComment, err := env.store.AddComment(task.ID, "from member", env.member, time.Now())
	require.NoError(t, err)

	base := "/api/tasks/" + task.ID.Hex() + "/comments/"

	t.Run("member cannot delete another author's comment", func(t *testing.T) {
		rec := env.request(t, http.MethodDelete, base+adminComment.ID.Hex(), nil, &env.member)
		assert.Equal(t, http.StatusForbidden, rec.Code)
	})

	t.Run("member deletes their own comment", func(t *testing.T) {
		rec := env.request(t, http.MethodDelete, base+memberComment.ID.Hex(), nil, &env.member)
		assert.Equal(t, http.StatusNoContent, rec.Code)
	})

	t.Run("admin deletes any comment", func(t *testing.T) {
		rec := env.request(t, http.MethodDelete, base+adminComment.ID.Hex(), nil, &env.admin)
		assert.Equal(t, http.StatusNoContent, rec.Code)
	})
}

func TestUtilizationEndpointIsMonitoringOnly(t *testing.T) {
	env := newTestEnv(t)

	rec := env.request(t, http.MethodGet, "/api/utilization", nil, &env.member)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = env.request(t, http.MethodGet, "/api/utilization", nil, &env.admin)
	require.Equal(t, http.StatusOK, rec.Code)
	var resp struct {
		Utilization []services.UtilizationRow      `json:"utilization"`
		Aggregates  services.UtilizationAggregates `json:"aggregates"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Len(t, resp.Utilization, 3)
}

func TestEpicProgressEndpoint(t *testing.T) {
	env := newTestEnv(t)

	_, err := env.store.CreateTask(env.epic.ID, "done", "", models.StatusDone, "", nil, nil, 0)
	require.NoError(t, err)
	_, err = env.store.CreateTask(env.epic.ID, "open", "", models.StatusToDo, "", nil, nil, 0)
	require.NoError(t, err)

	rec := env.request(t, http.MethodGet, "/api/epics/"+env.epic.ID.Hex()+"/progress", nil, &env.member)
	require.Equal(t, http.StatusOK, rec.Code)

	var resp struct {
		Progress int `json:"progress"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, 50, resp.Progress)
}
