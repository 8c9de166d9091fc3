package services

import (
	"math"
	"time"

	"project-tracker/workspace-service/models"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// RollupService turns a task snapshot into progress and utilization numbers.
// Every function is pure: the reference time is always an explicit argument,
// so identical inputs give identical outputs.
type RollupService struct{}

func NewRollupService() *RollupService {
	return &RollupService{}
}

type DateRangeFilter string

const (
	DateRangeThisWeek DateRangeFilter = "this-week"
	DateRangeNextWeek DateRangeFilter = "next-week"
	DateRangeAll      DateRangeFilter = "all"
	DateRangeNone     DateRangeFilter = "none"
)

// UtilizationFilters narrow the task set before utilization is computed.
// They are applied in a fixed order (completed, epic, date range) so every
// call site gets the same result for the same snapshot.
type UtilizationFilters struct {
	ExcludeCompleted bool
	EpicID           *primitive.ObjectID
	DateRange        DateRangeFilter
}

type UtilizationRow struct {
	User               models.User `json:"user"`
	TotalEstimateHours float64     `json:"totalEstimateHours"`
	Pct                int         `json:"pct"`
	Capacity           float64     `json:"capacity"`
	OpenTaskCount      int         `json:"openTaskCount"`
}

type UtilizationAggregates struct {
	OverCapacityCount int `json:"overCapacityCount"`
	AvgUtilization    int `json:"avgUtilization"`
	TotalUsers        int `json:"totalUsers"`
}

// TaskProgress is the percentage of done subtasks. A task without subtasks
// falls back to a coarse status mapping: Done is 100, In Progress and Review
// both count as 50, To Do is 0.
func (s *RollupService) TaskProgress(task models.Task) int {
	if len(task.Subtasks) == 0 {
		switch task.Status {
		case models.StatusDone:
			return 100
		case models.StatusInProgress, models.StatusReview:
			return 50
		case models.StatusToDo:
			return 0
		}
		return 0
	}
	done := 0
	for _, subtask := range task.Subtasks {
		if subtask.Done {
			done++
		}
	}
	return roundPct(float64(done), float64(len(task.Subtasks)))
}

// EpicProgress is the rounded mean of the epic's task progress values, 0 when
// the epic has no tasks.
func (s *RollupService) EpicProgress(epicID primitive.ObjectID, tasks []models.Task) int {
	total := 0
	count := 0
	for _, task := range tasks {
		if task.EpicID != epicID {
			continue
		}
		total += s.TaskProgress(task)
		count++
	}
	if count == 0 {
		return 0
	}
	return int(math.Round(float64(total) / float64(count)))
}

// WeekRange computes the Monday–Sunday window for "this-week" or "next-week"
// relative to now. Any other filter value yields the zero range.
func (s *RollupService) WeekRange(dateRange DateRangeFilter, now time.Time) (time.Time, time.Time) {
	if dateRange != DateRangeThisWeek && dateRange != DateRangeNextWeek {
		return time.Time{}, time.Time{}
	}
	today := truncateToDay(now)
	mondayOffset := 1 - int(today.Weekday())
	if today.Weekday() == time.Sunday {
		mondayOffset = -6
	}
	monday := today.AddDate(0, 0, mondayOffset)
	if dateRange == DateRangeNextWeek {
		monday = monday.AddDate(0, 0, 7)
	}
	sunday := monday.AddDate(0, 0, 6)
	return monday, sunday
}

// FilterTasks applies the filters in their fixed order: drop completed,
// restrict to one epic, restrict to the week window. Tasks without a due
// date never match a week window.
func (s *RollupService) FilterTasks(tasks []models.Task, filters UtilizationFilters, now time.Time) []models.Task {
	filtered := tasks
	if filters.ExcludeCompleted {
		kept := make([]models.Task, 0, len(filtered))
		for _, task := range filtered {
			if task.Status != models.StatusDone {
				kept = append(kept, task)
			}
		}
		filtered = kept
	}
	if filters.EpicID != nil {
		kept := make([]models.Task, 0, len(filtered))
		for _, task := range filtered {
			if task.EpicID == *filters.EpicID {
				kept = append(kept, task)
			}
		}
		filtered = kept
	}
	if filters.DateRange == DateRangeThisWeek || filters.DateRange == DateRangeNextWeek {
		start, end := s.WeekRange(filters.DateRange, now)
		kept := make([]models.Task, 0, len(filtered))
		for _, task := range filtered {
			if task.DueDate == nil {
				continue
			}
			due := truncateToDay(*task.DueDate)
			if !due.Before(start) && !due.After(end) {
				kept = append(kept, task)
			}
		}
		filtered = kept
	}
	return filtered
}

// UserUtilization sums the estimates of tasks assigned to the user against
// their weekly capacity. The task set must already be filtered. A capacity of
// zero yields 0 percent, never a division by zero.
func (s *RollupService) UserUtilization(user models.User, tasks []models.Task) UtilizationRow {
	total := 0.0
	count := 0
	for _, task := range tasks {
		if task.Assignee == nil || task.Assignee.ID != user.ID {
			continue
		}
		total += task.EstimateHours
		count++
	}
	pct := 0
	if user.WeeklyCapacityHours > 0 {
		pct = roundPct(total, user.WeeklyCapacityHours)
	}
	return UtilizationRow{
		User:               user,
		TotalEstimateHours: total,
		Pct:                pct,
		Capacity:           user.WeeklyCapacityHours,
		OpenTaskCount:      count,
	}
}

// CalculateUtilization filters the tasks once and computes a row per user
// from that same filtered set.
func (s *RollupService) CalculateUtilization(users []models.User, tasks []models.Task, filters UtilizationFilters, now time.Time) []UtilizationRow {
	filtered := s.FilterTasks(tasks, filters, now)
	rows := make([]UtilizationRow, 0, len(users))
	for _, user := range users {
		rows = append(rows, s.UserUtilization(user, filtered))
	}
	return rows
}

func (s *RollupService) CalculateUtilizationAggregates(rows []UtilizationRow) UtilizationAggregates {
	aggregates := UtilizationAggregates{TotalUsers: len(rows)}
	if len(rows) == 0 {
		return aggregates
	}
	sum := 0
	for _, row := range rows {
		if row.Pct > 100 {
			aggregates.OverCapacityCount++
		}
		sum += row.Pct
	}
	aggregates.AvgUtilization = int(math.Round(float64(sum) / float64(len(rows))))
	return aggregates
}

// TaskOverBudget reports whether logged time exceeds 120% of the estimate.
// Tasks without an estimate are never over budget. This is the task-level
// badge; it is unrelated to the epic-level at-risk count, which is based on
// priority and status.
func (s *RollupService) TaskOverBudget(task models.Task) bool {
	if task.EstimateHours <= 0 {
		return false
	}
	loggedHours := float64(task.LoggedMinutes()) / 60.0
	return loggedHours > task.EstimateHours*1.2
}

func roundPct(part, whole float64) int {
	return int(math.Round(part / whole * 100))
}

func truncateToDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}
