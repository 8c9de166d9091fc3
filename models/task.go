package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

type TaskStatus string

const (
	StatusToDo       TaskStatus = "To Do"
	StatusInProgress TaskStatus = "In Progress"
	StatusReview     TaskStatus = "Review"
	StatusDone       TaskStatus = "Done"
)

func (s TaskStatus) IsValid() bool {
	switch s {
	case StatusToDo, StatusInProgress, StatusReview, StatusDone:
		return true
	}
	return false
}

type Priority string

const (
	PriorityLow    Priority = "Low"
	PriorityMedium Priority = "Medium"
	PriorityHigh   Priority = "High"
)

func (p Priority) IsValid() bool {
	switch p {
	case PriorityLow, PriorityMedium, PriorityHigh:
		return true
	}
	return false
}

// Task belongs to exactly one epic; EpicID never changes after creation.
// Who may act on a task is decided by the parent epic's membership list,
// there is no task-level membership.
type Task struct {
	ID            primitive.ObjectID `json:"id" bson:"_id,omitempty"`
	EpicID        primitive.ObjectID `json:"epicId" bson:"epicId"`
	Title         string             `json:"title" bson:"title"`
	Description   string             `json:"description" bson:"description"`
	Assignee      *User              `json:"assignee" bson:"assignee"`
	Status        TaskStatus         `json:"status" bson:"status"`
	Priority      Priority           `json:"priority" bson:"priority"`
	DueDate       *time.Time         `json:"dueDate,omitempty" bson:"dueDate,omitempty"`
	EstimateHours float64            `json:"estimateHours" bson:"estimateHours"`
	Subtasks      []Subtask          `json:"subtasks" bson:"subtasks"`
	Comments      []Comment          `json:"comments" bson:"comments"`
	TimeEntries   []TimeEntry        `json:"timeEntries" bson:"timeEntries"`
}

// LoggedMinutes sums the minutes of every time entry on the task.
func (t Task) LoggedMinutes() int {
	total := 0
	for _, entry := range t.TimeEntries {
		total += entry.Minutes
	}
	return total
}

type Subtask struct {
	ID       primitive.ObjectID `json:"id" bson:"_id,omitempty"`
	TaskID   primitive.ObjectID `json:"taskId" bson:"taskId"`
	Title    string             `json:"title" bson:"title"`
	Done     bool               `json:"done" bson:"done"`
	Assignee *User              `json:"assignee,omitempty" bson:"assignee,omitempty"`
}

// Comment's Author is immutable after creation; it is the sole key for the
// "members may only delete their own comment" rule.
type Comment struct {
	ID        primitive.ObjectID `json:"id" bson:"_id,omitempty"`
	TaskID    primitive.ObjectID `json:"taskId" bson:"taskId"`
	Author    User               `json:"author" bson:"author"`
	Text      string             `json:"text" bson:"text"`
	CreatedAt time.Time          `json:"createdAt" bson:"createdAt"`
}

// TimeEntry records logged work. It only feeds the over-budget check
// (logged hours vs. estimate), never progress rollups.
type TimeEntry struct {
	ID      primitive.ObjectID `json:"id" bson:"_id,omitempty"`
	TaskID  primitive.ObjectID `json:"taskId" bson:"taskId"`
	User    User               `json:"user" bson:"user"`
	Date    time.Time          `json:"date" bson:"date"`
	Minutes int                `json:"minutes" bson:"minutes"`
	Note    string             `json:"note,omitempty" bson:"note,omitempty"`
}
