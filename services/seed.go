package services

import (
	"fmt"
	"time"

	"project-tracker/workspace-service/models"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// SeedDemoData loads a small demo workspace: one user per role, three epics
// with distinct member lists, and enough tasks to light up the dashboard
// rollups. Returns the reference time the seed dates are anchored to.
func (s *WorkspaceService) SeedDemoData() (time.Time, error) {
	now := time.Date(2026, time.February, 10, 0, 0, 0, 0, time.UTC)

	alice, err := s.AddUser(models.User{
		Name: "Alice Johnson", Email: "alice@alpha.dev", Initials: "AJ",
		AvatarColor: "#6366f1", Role: models.RoleAdmin, WeeklyCapacityHours: 40,
	})
	if err != nil {
		return now, err
	}
	bob, err := s.AddUser(models.User{
		Name: "Bob Martinez", Email: "bob@alpha.dev", Initials: "BM",
		AvatarColor: "#10b981", Role: models.RoleManager, WeeklyCapacityHours: 40,
	})
	if err != nil {
		return now, err
	}
	carol, err := s.AddUser(models.User{
		Name: "Carol Davis", Email: "carol@alpha.dev", Initials: "CD",
		AvatarColor: "#f59e0b", Role: models.RoleMember, WeeklyCapacityHours: 40,
	})
	if err != nil {
		return now, err
	}
	dan, err := s.AddUser(models.User{
		Name: "Dan Lee", Email: "dan@alpha.dev", Initials: "DL",
		AvatarColor: "#ef4444", Role: models.RoleViewer, WeeklyCapacityHours: 0,
	})
	if err != nil {
		return now, err
	}

	auth, err := s.CreateEpic("Authentication Overhaul",
		"Redesign the auth flow to match the new design system and support future SSO.",
		alice.ID, models.EpicInProgress,
		[]primitive.ObjectID{alice.ID, bob.ID, carol.ID, dan.ID})
	if err != nil {
		return now, err
	}
	reporting, err := s.CreateEpic("Reporting Dashboard",
		"Management dashboard with KPI rollups, early-warning feed and utilization charts.",
		bob.ID, models.EpicNotStarted,
		[]primitive.ObjectID{alice.ID, bob.ID, carol.ID})
	if err != nil {
		return now, err
	}
	mobile, err := s.CreateEpic("Mobile App Beta",
		"Native companion app for iOS and Android.",
		alice.ID, models.EpicInProgress,
		[]primitive.ObjectID{alice.ID, bob.ID})
	if err != nil {
		return now, err
	}

	lastWeek := now.AddDate(0, 0, -4)
	thisWeek := now.AddDate(0, 0, 2)
	nextWeek := now.AddDate(0, 0, 8)

	type seedTask struct {
		epic     primitive.ObjectID
		title    string
		status   models.TaskStatus
		priority models.Priority
		assignee *primitive.ObjectID
		due      *time.Time
		estimate float64
	}
	seeds := []seedTask{
		{auth.ID, "Login screen redesign", models.StatusDone, models.PriorityHigh, &carol.ID, &lastWeek, 8},
		{auth.ID, "Password reset flow", models.StatusInProgress, models.PriorityHigh, &carol.ID, &thisWeek, 15},
		{auth.ID, "Session token rotation", models.StatusInProgress, models.PriorityMedium, &alice.ID, &lastWeek, 10},
		{auth.ID, "OAuth provider audit", models.StatusToDo, models.PriorityLow, nil, &nextWeek, 6},
		{reporting.ID, "KPI rollup queries", models.StatusToDo, models.PriorityMedium, &carol.ID, &nextWeek, 20},
		{reporting.ID, "Utilization chart", models.StatusReview, models.PriorityMedium, &alice.ID, &thisWeek, 12},
		{mobile.ID, "Push notification spike", models.StatusInProgress, models.PriorityHigh, &alice.ID, &lastWeek, 16},
	}
	for _, seed := range seeds {
		if _, err := s.CreateTask(seed.epic, seed.title, "", seed.status, seed.priority, seed.assignee, seed.due, seed.estimate); err != nil {
			return now, fmt.Errorf("seeding task %q: %w", seed.title, err)
		}
	}
	return now, nil
}
