package services

import (
	"fmt"
	"sort"
	"time"

	"project-tracker/workspace-service/models"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

type RiskLevel string

const (
	RiskHigh   RiskLevel = "High"
	RiskMedium RiskLevel = "Medium"
	RiskLow    RiskLevel = "Low"
)

func riskRank(level RiskLevel) int {
	switch level {
	case RiskHigh:
		return 2
	case RiskMedium:
		return 1
	}
	return 0
}

// AttentionEpic is one row of the early-warning feed shown to admins and
// managers: the epic, its health counters, and the human-readable reasons it
// was flagged.
type AttentionEpic struct {
	Epic             models.Epic `json:"epic"`
	Progress         int         `json:"progress"`
	OverdueCount     int         `json:"overdueCount"`
	AtRiskCount      int         `json:"atRiskCount"`
	TaskCount        int         `json:"taskCount"`
	OwnerUtilization int         `json:"ownerUtilization"`
	RiskLevel        RiskLevel   `json:"riskLevel"`
	Reasons          []string    `json:"reasons"`
}

// AttentionService flags epics that need a closer look. It consumes rollup
// output plus raw task data and holds no state of its own.
type AttentionService struct {
	permissions *PermissionService
	rollups     *RollupService
}

func NewAttentionService(permissions *PermissionService, rollups *RollupService) *AttentionService {
	return &AttentionService{permissions: permissions, rollups: rollups}
}

// AttentionEpics classifies every epic the actor may view and returns the
// ones matching at least one of the five triggers, sorted most severe first.
// Ties keep the epics' original order.
//
// Triggers: overdue tasks, high-priority tasks still in progress, an
// in-progress epic under 30% complete, more than 30% of tasks overdue, and
// an owner over 120% utilization. The risk tier is driven only by the
// overdue and at-risk counts, so an epic can be flagged by the other
// triggers and still land in the Low tier.
func (s *AttentionService) AttentionEpics(epics []models.Epic, tasks []models.Task, users []models.User, actor *models.User, now time.Time) []AttentionEpic {
	index := NewMembershipIndex(epics)

	// Owner utilization looks at all open work, no date window.
	utilization := s.rollups.CalculateUtilization(users, tasks, UtilizationFilters{
		ExcludeCompleted: true,
		DateRange:        DateRangeNone,
	}, now)
	utilizationByUser := make(map[primitive.ObjectID]int, len(utilization))
	for _, row := range utilization {
		utilizationByUser[row.User.ID] = row.Pct
	}

	var flagged []AttentionEpic
	for _, epic := range epics {
		if !s.permissions.CanViewEpic(actor, index, epic.ID) {
			continue
		}

		taskCount := 0
		overdueCount := 0
		atRiskCount := 0
		for _, task := range tasks {
			if task.EpicID != epic.ID {
				continue
			}
			taskCount++
			if task.DueDate != nil && task.DueDate.Before(now) && task.Status != models.StatusDone {
				overdueCount++
			}
			if task.Status == models.StatusInProgress && task.Priority == models.PriorityHigh {
				atRiskCount++
			}
		}

		progress := s.rollups.EpicProgress(epic.ID, tasks)
		ownerUtilization := utilizationByUser[epic.Owner.ID]

		var reasons []string
		if overdueCount > 0 {
			reasons = append(reasons, countNoun(overdueCount, "overdue task"))
		}
		if atRiskCount > 0 {
			reasons = append(reasons, countNoun(atRiskCount, "high-priority task")+" in progress")
		}
		if epic.Status == models.EpicInProgress && progress < 30 {
			reasons = append(reasons, fmt.Sprintf("in progress at %d%% completion", progress))
		}
		if taskCount > 0 && float64(overdueCount)/float64(taskCount) > 0.30 {
			reasons = append(reasons, "more than 30% of tasks overdue")
		}
		if ownerUtilization > 120 {
			reasons = append(reasons, fmt.Sprintf("owner at %d%% utilization", ownerUtilization))
		}
		if len(reasons) == 0 {
			continue
		}

		level := RiskLow
		switch {
		case overdueCount >= 3 || atRiskCount >= 2:
			level = RiskHigh
		case overdueCount >= 1 || atRiskCount >= 1:
			level = RiskMedium
		}

		flagged = append(flagged, AttentionEpic{
			Epic:             epic,
			Progress:         progress,
			OverdueCount:     overdueCount,
			AtRiskCount:      atRiskCount,
			TaskCount:        taskCount,
			OwnerUtilization: ownerUtilization,
			RiskLevel:        level,
			Reasons:          reasons,
		})
	}

	sort.SliceStable(flagged, func(i, j int) bool {
		return riskRank(flagged[i].RiskLevel) > riskRank(flagged[j].RiskLevel)
	})
	return flagged
}

func countNoun(n int, noun string) string {
	if n == 1 {
		return "1 " + noun
	}
	return fmt.Sprintf("%d %ss", n, noun)
}
