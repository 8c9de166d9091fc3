package services

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"project-tracker/workspace-service/models"
)

func datePtr(year int, month time.Month, day int) *time.Time {
	d := time.Date(year, month, day, 0, 0, 0, 0, time.UTC)
	return &d
}

func TestTaskProgress(t *testing.T) {
	svc := NewRollupService()

	t.Run("status fallback without subtasks", func(t *testing.T) {
		assert.Equal(t, 100, svc.TaskProgress(models.Task{Status: models.StatusDone}))
		assert.Equal(t, 50, svc.TaskProgress(models.Task{Status: models.StatusInProgress}))
		assert.Equal(t, 50, svc.TaskProgress(models.Task{Status: models.StatusReview}))
		assert.Equal(t, 0, svc.TaskProgress(models.Task{Status: models.StatusToDo}))
	})

	t.Run("subtask ratio wins over status", func(t *testing.T) {
		task := models.Task{
			Status: models.StatusToDo,
			Subtasks: []models.Subtask{
				{Done: true}, {Done: true}, {Done: false},
			},
		}
		assert.Equal(t, 67, svc.TaskProgress(task))
	})
}

func TestEpicProgress(t *testing.T) {
	svc := NewRollupService()
	epicID := primitive.NewObjectID()

	t.Run("mean of task progress", func(t *testing.T) {
		tasks := []models.Task{
			{EpicID: epicID, Status: models.StatusDone},
			{EpicID: epicID, Status: models.StatusDone},
			{EpicID: epicID, Status: models.StatusInProgress},
			{EpicID: epicID, Status: models.StatusToDo},
			{EpicID: primitive.NewObjectID(), Status: models.StatusDone}, // other epic
		}
		assert.Equal(t, 63, svc.EpicProgress(epicID, tasks)) // round(250/4)
	})

	t.Run("no tasks means zero, not NaN", func(t *testing.T) {
		assert.Equal(t, 0, svc.EpicProgress(epicID, nil))
	})
}

func TestWeekRange(t *testing.T) {
	svc := NewRollupService()

	t.Run("midweek reference", func(t *testing.T) {
		now := time.Date(2026, time.February, 11, 15, 30, 0, 0, time.UTC) // a Wednesday
		start, end := svc.WeekRange(DateRangeThisWeek, now)
		assert.Equal(t, time.Date(2026, time.February, 9, 0, 0, 0, 0, time.UTC), start)
		assert.Equal(t, time.Date(2026, time.February, 15, 0, 0, 0, 0, time.UTC), end)

		start, end = svc.WeekRange(DateRangeNextWeek, now)
		assert.Equal(t, time.Date(2026, time.February, 16, 0, 0, 0, 0, time.UTC), start)
		assert.Equal(t, time.Date(2026, time.February, 22, 0, 0, 0, 0, time.UTC), end)
	})

	t.Run("sunday still belongs to the running week", func(t *testing.T) {
		now := time.Date(2026, time.February, 15, 8, 0, 0, 0, time.UTC) // a Sunday
		start, end := svc.WeekRange(DateRangeThisWeek, now)
		assert.Equal(t, time.Date(2026, time.February, 9, 0, 0, 0, 0, time.UTC), start)
		assert.Equal(t, time.Date(2026, time.February, 15, 0, 0, 0, 0, time.UTC), end)
	})
}

func TestFilterTasks(t *testing.T) {
	svc := NewRollupService()
	now := time.Date(2026, time.February, 11, 0, 0, 0, 0, time.UTC)
	epicA := primitive.NewObjectID()
	epicB := primitive.NewObjectID()

	tasks := []models.Task{
		{EpicID: epicA, Title: "done this week", Status: models.StatusDone, DueDate: datePtr(2026, time.February, 12)},
		{EpicID: epicA, Title: "open this week", Status: models.StatusToDo, DueDate: datePtr(2026, time.February, 13)},
		{EpicID: epicA, Title: "open next week", Status: models.StatusToDo, DueDate: datePtr(2026, time.February, 17)},
		{EpicID: epicA, Title: "open no due date", Status: models.StatusInProgress},
		{EpicID: epicB, Title: "other epic this week", Status: models.StatusToDo, DueDate: datePtr(2026, time.February, 13)},
	}

	titles := func(tasks []models.Task) []string {
		var out []string
		for _, task := range tasks {
			out = append(out, task.Title)
		}
		return out
	}

	t.Run("exclude completed", func(t *testing.T) {
		got := svc.FilterTasks(tasks, UtilizationFilters{ExcludeCompleted: true}, now)
		assert.NotContains(t, titles(got), "done this week")
		assert.Len(t, got, 4)
	})

	t.Run("epic then week window", func(t *testing.T) {
		got := svc.FilterTasks(tasks, UtilizationFilters{
			ExcludeCompleted: true,
			EpicID:           &epicA,
			DateRange:        DateRangeThisWeek,
		}, now)
		assert.Equal(t, []string{"open this week"}, titles(got))
	})

	t.Run("tasks without due date never match a window", func(t *testing.T) {
		got := svc.FilterTasks(tasks, UtilizationFilters{DateRange: DateRangeNextWeek}, now)
		assert.Equal(t, []string{"open next week"}, titles(got))
	})

	t.Run("all and none skip date filtering", func(t *testing.T) {
		for _, dateRange := range []DateRangeFilter{DateRangeAll, DateRangeNone, ""} {
			got := svc.FilterTasks(tasks, UtilizationFilters{DateRange: dateRange}, now)
			assert.Len(t, got, len(tasks))
		}
	})
}

func TestCalculateUtilization(t *testing.T) {
	svc := NewRollupService()
	now := time.Date(2026, time.February, 11, 0, 0, 0, 0, time.UTC)

	user := models.User{ID: primitive.NewObjectID(), Name: "U", WeeklyCapacityHours: 40}
	other := models.User{ID: primitive.NewObjectID(), Name: "O", WeeklyCapacityHours: 40}
	viewer := models.User{ID: primitive.NewObjectID(), Name: "V", WeeklyCapacityHours: 0}

	tasks := []models.Task{
		{Assignee: &user, Status: models.StatusToDo, EstimateHours: 15},
		{Assignee: &user, Status: models.StatusInProgress, EstimateHours: 20},
		{Assignee: &user, Status: models.StatusDone, EstimateHours: 100},
		{Assignee: &other, Status: models.StatusToDo, EstimateHours: 60},
		{Assignee: nil, Status: models.StatusToDo, EstimateHours: 30},
	}

	t.Run("open work against capacity", func(t *testing.T) {
		rows := svc.CalculateUtilization([]models.User{user, other, viewer}, tasks, UtilizationFilters{ExcludeCompleted: true}, now)
		require.Len(t, rows, 3)

		assert.Equal(t, 35.0, rows[0].TotalEstimateHours)
		assert.Equal(t, 88, rows[0].Pct)
		assert.Equal(t, 2, rows[0].OpenTaskCount)

		assert.Equal(t, 60.0, rows[1].TotalEstimateHours)
		assert.Equal(t, 150, rows[1].Pct)
	})

	t.Run("zero capacity yields zero percent", func(t *testing.T) {
		rows := svc.CalculateUtilization([]models.User{viewer}, tasks, UtilizationFilters{}, now)
		require.Len(t, rows, 1)
		assert.Equal(t, 0, rows[0].Pct)
	})

	t.Run("pure over an unchanged snapshot", func(t *testing.T) {
		filters := UtilizationFilters{ExcludeCompleted: true}
		first := svc.CalculateUtilization([]models.User{user, other}, tasks, filters, now)
		second := svc.CalculateUtilization([]models.User{user, other}, tasks, filters, now)
		assert.Equal(t, first, second)
	})
}

func TestCalculateUtilizationAggregates(t *testing.T) {
	svc := NewRollupService()

	t.Run("over capacity and average", func(t *testing.T) {
		rows := []UtilizationRow{{Pct: 150}, {Pct: 88}, {Pct: 100}}
		aggregates := svc.CalculateUtilizationAggregates(rows)
		assert.Equal(t, 1, aggregates.OverCapacityCount) // 100 is at capacity, not over
		assert.Equal(t, 113, aggregates.AvgUtilization)  // round(338/3)
		assert.Equal(t, 3, aggregates.TotalUsers)
	})

	t.Run("no users", func(t *testing.T) {
		aggregates := svc.CalculateUtilizationAggregates(nil)
		assert.Equal(t, 0, aggregates.OverCapacityCount)
		assert.Equal(t, 0, aggregates.AvgUtilization)
	})
}

func TestTaskOverBudget(t *testing.T) {
	svc := NewRollupService()

	entries := func(minutes int) []models.TimeEntry {
		return []models.TimeEntry{{Minutes: minutes}}
	}

	t.Run("logged beyond 120 percent of the estimate", func(t *testing.T) {
		task := models.Task{EstimateHours: 10, TimeEntries: entries(800)} // 13.33h > 12h
		assert.True(t, svc.TaskOverBudget(task))
	})

	t.Run("within budget", func(t *testing.T) {
		task := models.Task{EstimateHours: 10, TimeEntries: entries(700)} // 11.67h <= 12h
		assert.False(t, svc.TaskOverBudget(task))
	})

	t.Run("no estimate means never over budget", func(t *testing.T) {
		task := models.Task{EstimateHours: 0, TimeEntries: entries(10000)}
		assert.False(t, svc.TaskOverBudget(task))
	})
}
