package services

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"project-tracker/workspace-service/models"
)

func newAttentionService() *AttentionService {
	return NewAttentionService(NewPermissionService(), NewRollupService())
}

func TestAttentionEpicsOverdueScenario(t *testing.T) {
	svc := newAttentionService()
	now := time.Date(2026, time.February, 10, 0, 0, 0, 0, time.UTC)
	past := now.AddDate(0, 0, -3)
	future := now.AddDate(0, 0, 5)

	owner := models.User{ID: primitive.NewObjectID(), Name: "Owner", Role: models.RoleAdmin, WeeklyCapacityHours: 40}
	epic := models.Epic{
		ID:        primitive.NewObjectID(),
		Title:     "Rollout",
		Owner:     owner,
		Status:    models.EpicOnHold,
		MemberIDs: []primitive.ObjectID{owner.ID},
	}

	// 10 tasks, 4 overdue, no high-priority work in progress, progress 45%,
	// owner utilization 90% (36h of open assigned work against 40h).
	var tasks []models.Task
	for i := 0; i < 3; i++ {
		tasks = append(tasks, models.Task{ID: primitive.NewObjectID(), EpicID: epic.ID, Status: models.StatusDone, Priority: models.PriorityMedium, DueDate: &past})
	}
	for i := 0; i < 3; i++ {
		tasks = append(tasks, models.Task{ID: primitive.NewObjectID(), EpicID: epic.ID, Status: models.StatusInProgress, Priority: models.PriorityMedium, Assignee: &owner, EstimateHours: 12, DueDate: &past})
	}
	tasks = append(tasks, models.Task{ID: primitive.NewObjectID(), EpicID: epic.ID, Status: models.StatusToDo, Priority: models.PriorityLow, DueDate: &past})
	for i := 0; i < 3; i++ {
		tasks = append(tasks, models.Task{ID: primitive.NewObjectID(), EpicID: epic.ID, Status: models.StatusToDo, Priority: models.PriorityLow, DueDate: &future})
	}

	flagged := svc.AttentionEpics([]models.Epic{epic}, tasks, []models.User{owner}, &owner, now)
	require.Len(t, flagged, 1)

	row := flagged[0]
	assert.Equal(t, 10, row.TaskCount)
	assert.Equal(t, 4, row.OverdueCount)
	assert.Equal(t, 0, row.AtRiskCount)
	assert.Equal(t, 45, row.Progress)
	assert.Equal(t, 90, row.OwnerUtilization)
	assert.Contains(t, row.Reasons, "4 overdue tasks")
	assert.Contains(t, row.Reasons, "more than 30% of tasks overdue")
	assert.Len(t, row.Reasons, 2)
	assert.Equal(t, RiskHigh, row.RiskLevel) // overdueCount >= 3
}

func TestAttentionEpicsTiers(t *testing.T) {
	svc := newAttentionService()
	now := time.Date(2026, time.February, 10, 0, 0, 0, 0, time.UTC)
	past := now.AddDate(0, 0, -1)

	owner := models.User{ID: primitive.NewObjectID(), Role: models.RoleAdmin, WeeklyCapacityHours: 40}

	t.Run("single overdue task lands in medium", func(t *testing.T) {
		epic := models.Epic{ID: primitive.NewObjectID(), Owner: owner, Status: models.EpicDone, MemberIDs: []primitive.ObjectID{owner.ID}}
		tasks := []models.Task{
			{ID: primitive.NewObjectID(), EpicID: epic.ID, Status: models.StatusToDo, Priority: models.PriorityLow, DueDate: &past},
			{ID: primitive.NewObjectID(), EpicID: epic.ID, Status: models.StatusDone, Priority: models.PriorityLow},
			{ID: primitive.NewObjectID(), EpicID: epic.ID, Status: models.StatusDone, Priority: models.PriorityLow},
		}
		flagged := svc.AttentionEpics([]models.Epic{epic}, tasks, []models.User{owner}, &owner, now)
		require.Len(t, flagged, 1)
		assert.Equal(t, RiskMedium, flagged[0].RiskLevel)
		assert.Contains(t, flagged[0].Reasons, "1 overdue task")
	})

	t.Run("two high-priority tasks in progress land in high", func(t *testing.T) {
		epic := models.Epic{ID: primitive.NewObjectID(), Owner: owner, Status: models.EpicDone, MemberIDs: []primitive.ObjectID{owner.ID}}
		tasks := []models.Task{
			{ID: primitive.NewObjectID(), EpicID: epic.ID, Status: models.StatusInProgress, Priority: models.PriorityHigh},
			{ID: primitive.NewObjectID(), EpicID: epic.ID, Status: models.StatusInProgress, Priority: models.PriorityHigh},
			{ID: primitive.NewObjectID(), EpicID: epic.ID, Status: models.StatusDone, Priority: models.PriorityLow},
		}
		flagged := svc.AttentionEpics([]models.Epic{epic}, tasks, []models.User{owner}, &owner, now)
		require.Len(t, flagged, 1)
		assert.Equal(t, RiskHigh, flagged[0].RiskLevel)
		assert.Contains(t, flagged[0].Reasons, "2 high-priority tasks in progress")
	})

	t.Run("stalled in-progress epic is flagged but stays low", func(t *testing.T) {
		epic := models.Epic{ID: primitive.NewObjectID(), Owner: owner, Status: models.EpicInProgress, MemberIDs: []primitive.ObjectID{owner.ID}}
		tasks := []models.Task{
			{ID: primitive.NewObjectID(), EpicID: epic.ID, Status: models.StatusToDo, Priority: models.PriorityLow},
			{ID: primitive.NewObjectID(), EpicID: epic.ID, Status: models.StatusToDo, Priority: models.PriorityLow},
		}
		flagged := svc.AttentionEpics([]models.Epic{epic}, tasks, []models.User{owner}, &owner, now)
		require.Len(t, flagged, 1)
		assert.Equal(t, RiskLow, flagged[0].RiskLevel)
		assert.Equal(t, []string{"in progress at 0% completion"}, flagged[0].Reasons)
	})

	t.Run("overloaded owner is flagged but stays low", func(t *testing.T) {
		busy := models.User{ID: primitive.NewObjectID(), Role: models.RoleAdmin, WeeklyCapacityHours: 10}
		epic := models.Epic{ID: primitive.NewObjectID(), Owner: busy, Status: models.EpicDone, MemberIDs: []primitive.ObjectID{busy.ID}}
		other := models.Epic{ID: primitive.NewObjectID(), Owner: busy, Status: models.EpicDone, MemberIDs: []primitive.ObjectID{busy.ID}}
		// 15h of open work against a 10h capacity: 150% utilization. The
		// work sits in another epic; owner load still flags this one.
		tasks := []models.Task{
			{ID: primitive.NewObjectID(), EpicID: other.ID, Status: models.StatusToDo, Priority: models.PriorityLow, Assignee: &busy, EstimateHours: 15},
			{ID: primitive.NewObjectID(), EpicID: epic.ID, Status: models.StatusDone, Priority: models.PriorityLow},
		}
		flagged := svc.AttentionEpics([]models.Epic{epic}, tasks, []models.User{busy}, &busy, now)
		require.Len(t, flagged, 1)
		assert.Equal(t, RiskLow, flagged[0].RiskLevel)
		assert.Equal(t, []string{"owner at 150% utilization"}, flagged[0].Reasons)
		assert.Equal(t, 150, flagged[0].OwnerUtilization)
	})

	t.Run("healthy epic is not flagged", func(t *testing.T) {
		epic := models.Epic{ID: primitive.NewObjectID(), Owner: owner, Status: models.EpicDone, MemberIDs: []primitive.ObjectID{owner.ID}}
		tasks := []models.Task{
			{ID: primitive.NewObjectID(), EpicID: epic.ID, Status: models.StatusDone, Priority: models.PriorityLow},
		}
		flagged := svc.AttentionEpics([]models.Epic{epic}, tasks, []models.User{owner}, &owner, now)
		assert.Empty(t, flagged)
	})
}

func TestAttentionEpicsVisibilityAndOrder(t *testing.T) {
	svc := newAttentionService()
	now := time.Date(2026, time.February, 10, 0, 0, 0, 0, time.UTC)
	past := now.AddDate(0, 0, -1)

	admin := models.User{ID: primitive.NewObjectID(), Role: models.RoleAdmin, WeeklyCapacityHours: 40}
	member := models.User{ID: primitive.NewObjectID(), Role: models.RoleMember, WeeklyCapacityHours: 40}

	overdueTasks := func(epicID primitive.ObjectID, n int) []models.Task {
		var tasks []models.Task
		for i := 0; i < n; i++ {
			tasks = append(tasks, models.Task{ID: primitive.NewObjectID(), EpicID: epicID, Status: models.StatusToDo, Priority: models.PriorityLow, DueDate: &past})
		}
		return tasks
	}

	// lowEpic trips only the stalled-progress trigger, the others are tiered
	// by overdue counts.
	lowEpic := models.Epic{ID: primitive.NewObjectID(), Title: "low", Owner: admin, Status: models.EpicInProgress, MemberIDs: []primitive.ObjectID{admin.ID}}
	mediumEpic := models.Epic{ID: primitive.NewObjectID(), Title: "medium", Owner: admin, Status: models.EpicDone, MemberIDs: []primitive.ObjectID{admin.ID, member.ID}}
	highEpic := models.Epic{ID: primitive.NewObjectID(), Title: "high", Owner: admin, Status: models.EpicDone, MemberIDs: []primitive.ObjectID{admin.ID}}

	var tasks []models.Task
	tasks = append(tasks, models.Task{ID: primitive.NewObjectID(), EpicID: lowEpic.ID, Status: models.StatusToDo, Priority: models.PriorityLow})
	tasks = append(tasks, overdueTasks(mediumEpic.ID, 1)...)
	tasks = append(tasks, overdueTasks(highEpic.ID, 3)...)

	epics := []models.Epic{lowEpic, mediumEpic, highEpic}
	users := []models.User{admin, member}

	t.Run("sorted most severe first", func(t *testing.T) {
		flagged := svc.AttentionEpics(epics, tasks, users, &admin, now)
		require.Len(t, flagged, 3)
		assert.Equal(t, "high", flagged[0].Epic.Title)
		assert.Equal(t, "medium", flagged[1].Epic.Title)
		assert.Equal(t, "low", flagged[2].Epic.Title)
	})

	t.Run("members see only their epics", func(t *testing.T) {
		flagged := svc.AttentionEpics(epics, tasks, users, &member, now)
		require.Len(t, flagged, 1)
		assert.Equal(t, "medium", flagged[0].Epic.Title)
	})

	t.Run("nil actor sees nothing", func(t *testing.T) {
		flagged := svc.AttentionEpics(epics, tasks, users, nil, now)
		assert.Empty(t, flagged)
	})
}
