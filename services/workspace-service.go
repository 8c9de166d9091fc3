package services

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"project-tracker/workspace-service/models"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

var (
	ErrUserNotFound    = errors.New("user not found")
	ErrEpicNotFound    = errors.New("epic not found")
	ErrTaskNotFound    = errors.New("task not found")
	ErrSubtaskNotFound = errors.New("subtask not found")
	ErrCommentNotFound = errors.New("comment not found")
	ErrEntryNotFound   = errors.New("time entry not found")
)

// WorkspaceService owns the mutable workspace collections. Everything lives
// in memory behind a single lock; the pure engines (permissions, rollups,
// attention) never touch this state directly, they only receive snapshots.
type WorkspaceService struct {
	mu    sync.RWMutex
	users []models.User
	epics []models.Epic
	tasks []models.Task
}

func NewWorkspaceService() *WorkspaceService {
	return &WorkspaceService{}
}

// Snapshot returns copies of the collections for the engines to compute
// over. Nested slices are copied too, so a computation in flight is not
// affected by later mutations.
func (s *WorkspaceService) Snapshot() ([]models.User, []models.Epic, []models.Task) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	users := make([]models.User, len(s.users))
	copy(users, s.users)

	epics := make([]models.Epic, len(s.epics))
	for i, epic := range s.epics {
		epics[i] = copyEpic(epic)
	}

	tasks := make([]models.Task, len(s.tasks))
	for i, task := range s.tasks {
		tasks[i] = copyTask(task)
	}
	return users, epics, tasks
}

func copyEpic(epic models.Epic) models.Epic {
	out := epic
	out.MemberIDs = make([]primitive.ObjectID, len(epic.MemberIDs))
	copy(out.MemberIDs, epic.MemberIDs)
	return out
}

func copyTask(task models.Task) models.Task {
	out := task
	out.Subtasks = make([]models.Subtask, len(task.Subtasks))
	copy(out.Subtasks, task.Subtasks)
	out.Comments = make([]models.Comment, len(task.Comments))
	copy(out.Comments, task.Comments)
	out.TimeEntries = make([]models.TimeEntry, len(task.TimeEntries))
	copy(out.TimeEntries, task.TimeEntries)
	return out
}

// ── Users ───────────────────────────────────────────────────────────────────

func (s *WorkspaceService) AddUser(user models.User) (*models.User, error) {
	if !user.Role.IsValid() {
		return nil, fmt.Errorf("invalid role: %s", user.Role)
	}
	if user.WeeklyCapacityHours < 0 {
		return nil, fmt.Errorf("weekly capacity must not be negative")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if user.ID.IsZero() {
		user.ID = primitive.NewObjectID()
	}
	s.users = append(s.users, user)
	return &user, nil
}

func (s *WorkspaceService) GetUser(id primitive.ObjectID) (*models.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.findUser(id)
}

func (s *WorkspaceService) findUser(id primitive.ObjectID) (*models.User, error) {
	for i := range s.users {
		if s.users[i].ID == id {
			user := s.users[i]
			return &user, nil
		}
	}
	return nil, ErrUserNotFound
}

func (s *WorkspaceService) GetUserByEmail(email string) (*models.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for i := range s.users {
		if s.users[i].Email == email {
			user := s.users[i]
			return &user, nil
		}
	}
	return nil, ErrUserNotFound
}

func (s *WorkspaceService) GetAllUsers() []models.User {
	s.mu.RLock()
	defer s.mu.RUnlock()
	users := make([]models.User, len(s.users))
	copy(users, s.users)
	return users
}

// ChangeUserRole is the explicit role-switch action. It also rewrites the
// denormalized user copies embedded in epics and tasks so snapshots stay
// consistent.
func (s *WorkspaceService) ChangeUserRole(id primitive.ObjectID, role models.Role) error {
	if !role.IsValid() {
		return fmt.Errorf("invalid role: %s", role)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	found := false
	for i := range s.users {
		if s.users[i].ID == id {
			s.users[i].Role = role
			found = true
			break
		}
	}
	if !found {
		return ErrUserNotFound
	}
	for i := range s.epics {
		if s.epics[i].Owner.ID == id {
			s.epics[i].Owner.Role = role
		}
	}
	for i := range s.tasks {
		if s.tasks[i].Assignee != nil && s.tasks[i].Assignee.ID == id {
			s.tasks[i].Assignee.Role = role
		}
	}
	return nil
}

// ── Epics ───────────────────────────────────────────────────────────────────

// CreateEpic requires a resolvable owner. When no member list is given the
// epic starts with the owner as its only member.
func (s *WorkspaceService) CreateEpic(title, description string, ownerID primitive.ObjectID, status models.EpicStatus, memberIDs []primitive.ObjectID) (*models.Epic, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	owner, err := s.findUser(ownerID)
	if err != nil {
		return nil, fmt.Errorf("cannot create epic: %w", err)
	}
	if status == "" {
		status = models.EpicNotStarted
	}
	if !status.IsValid() {
		return nil, fmt.Errorf("invalid epic status: %s", status)
	}
	if len(memberIDs) == 0 {
		memberIDs = []primitive.ObjectID{ownerID}
	}

	epic := models.Epic{
		ID:          primitive.NewObjectID(),
		Title:       title,
		Description: description,
		Owner:       *owner,
		Status:      status,
		MemberIDs:   memberIDs,
	}
	s.epics = append(s.epics, epic)
	return &epic, nil
}

type EpicUpdate struct {
	Title       *string
	Description *string
	Status      *models.EpicStatus
	OwnerID     *primitive.ObjectID
	StartDate   *time.Time
	EndDate     *time.Time
}

func (s *WorkspaceService) UpdateEpic(id primitive.ObjectID, update EpicUpdate) (*models.Epic, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.epics {
		if s.epics[i].ID != id {
			continue
		}
		if update.Title != nil {
			s.epics[i].Title = *update.Title
		}
		if update.Description != nil {
			s.epics[i].Description = *update.Description
		}
		if update.Status != nil {
			if !update.Status.IsValid() {
				return nil, fmt.Errorf("invalid epic status: %s", *update.Status)
			}
			s.epics[i].Status = *update.Status
		}
		if update.OwnerID != nil {
			owner, err := s.findUser(*update.OwnerID)
			if err != nil {
				return nil, fmt.Errorf("cannot change owner: %w", err)
			}
			s.epics[i].Owner = *owner
		}
		if update.StartDate != nil {
			start := *update.StartDate
			s.epics[i].StartDate = &start
		}
		if update.EndDate != nil {
			end := *update.EndDate
			s.epics[i].EndDate = &end
		}
		epic := copyEpic(s.epics[i])
		return &epic, nil
	}
	return nil, ErrEpicNotFound
}

func (s *WorkspaceService) AddMemberToEpic(epicID, userID primitive.ObjectID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, err := s.findUser(userID); err != nil {
		return err
	}
	for i := range s.epics {
		if s.epics[i].ID != epicID {
			continue
		}
		for _, id := range s.epics[i].MemberIDs {
			if id == userID {
				return nil
			}
		}
		s.epics[i].MemberIDs = append(s.epics[i].MemberIDs, userID)
		return nil
	}
	return ErrEpicNotFound
}

func (s *WorkspaceService) RemoveMemberFromEpic(epicID, userID primitive.ObjectID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.epics {
		if s.epics[i].ID != epicID {
			continue
		}
		members := s.epics[i].MemberIDs
		for j, id := range members {
			if id == userID {
				s.epics[i].MemberIDs = append(members[:j], members[j+1:]...)
				return nil
			}
		}
		return fmt.Errorf("user is not a member of the epic")
	}
	return ErrEpicNotFound
}

// DeleteEpic removes the epic and cascades to every task that belongs to it.
func (s *WorkspaceService) DeleteEpic(id primitive.ObjectID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	found := false
	epics := s.epics[:0]
	for _, epic := range s.epics {
		if epic.ID == id {
			found = true
			continue
		}
		epics = append(epics, epic)
	}
	if !found {
		return ErrEpicNotFound
	}
	s.epics = epics

	tasks := s.tasks[:0]
	for _, task := range s.tasks {
		if task.EpicID != id {
			tasks = append(tasks, task)
		}
	}
	s.tasks = tasks
	return nil
}

func (s *WorkspaceService) GetEpicByID(id primitive.ObjectID) (*models.Epic, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for i := range s.epics {
		if s.epics[i].ID == id {
			epic := copyEpic(s.epics[i])
			return &epic, nil
		}
	}
	return nil, ErrEpicNotFound
}

func (s *WorkspaceService) GetAllEpics() []models.Epic {
	s.mu.RLock()
	defer s.mu.RUnlock()
	epics := make([]models.Epic, len(s.epics))
	for i, epic := range s.epics {
		epics[i] = copyEpic(epic)
	}
	return epics
}

// ── Tasks ───────────────────────────────────────────────────────────────────

// CreateTask attaches a task to an existing epic. The epic binding is
// permanent: no update path changes EpicID afterwards.
func (s *WorkspaceService) CreateTask(epicID primitive.ObjectID, title, description string, status models.TaskStatus, priority models.Priority, assigneeID *primitive.ObjectID, dueDate *time.Time, estimateHours float64) (*models.Task, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.epicExists(epicID) {
		return nil, ErrEpicNotFound
	}
	if status == "" {
		status = models.StatusToDo
	}
	if !status.IsValid() {
		return nil, fmt.Errorf("invalid task status: %s", status)
	}
	if priority == "" {
		priority = models.PriorityMedium
	}
	if !priority.IsValid() {
		return nil, fmt.Errorf("invalid priority: %s", priority)
	}
	if estimateHours < 0 {
		return nil, fmt.Errorf("estimate must not be negative")
	}

	var assignee *models.User
	if assigneeID != nil && !assigneeID.IsZero() {
		user, err := s.findUser(*assigneeID)
		if err != nil {
			return nil, fmt.Errorf("cannot assign task: %w", err)
		}
		assignee = user
	}

	task := models.Task{
		ID:            primitive.NewObjectID(),
		EpicID:        epicID,
		Title:         title,
		Description:   description,
		Assignee:      assignee,
		Status:        status,
		Priority:      priority,
		DueDate:       dueDate,
		EstimateHours: estimateHours,
		Subtasks:      []models.Subtask{},
		Comments:      []models.Comment{},
		TimeEntries:   []models.TimeEntry{},
	}
	s.tasks = append(s.tasks, task)
	created := copyTask(task)
	return &created, nil
}

func (s *WorkspaceService) epicExists(id primitive.ObjectID) bool {
	for i := range s.epics {
		if s.epics[i].ID == id {
			return true
		}
	}
	return false
}

// TaskUpdate carries the mutable task fields; AssigneeID set to the nil
// ObjectID clears the assignee.
type TaskUpdate struct {
	Title         *string
	Description   *string
	Status        *models.TaskStatus
	Priority      *models.Priority
	AssigneeID    *primitive.ObjectID
	DueDate       *time.Time
	EstimateHours *float64
}

func (s *WorkspaceService) UpdateTask(id primitive.ObjectID, update TaskUpdate) (*models.Task, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.tasks {
		if s.tasks[i].ID != id {
			continue
		}
		if update.Title != nil {
			s.tasks[i].Title = *update.Title
		}
		if update.Description != nil {
			s.tasks[i].Description = *update.Description
		}
		if update.Status != nil {
			if !update.Status.IsValid() {
				return nil, fmt.Errorf("invalid task status: %s", *update.Status)
			}
			s.tasks[i].Status = *update.Status
		}
		if update.Priority != nil {
			if !update.Priority.IsValid() {
				return nil, fmt.Errorf("invalid priority: %s", *update.Priority)
			}
			s.tasks[i].Priority = *update.Priority
		}
		if update.AssigneeID != nil {
			if update.AssigneeID.IsZero() {
				s.tasks[i].Assignee = nil
			} else {
				user, err := s.findUser(*update.AssigneeID)
				if err != nil {
					return nil, fmt.Errorf("cannot assign task: %w", err)
				}
				s.tasks[i].Assignee = user
			}
		}
		if update.DueDate != nil {
			due := *update.DueDate
			s.tasks[i].DueDate = &due
		}
		if update.EstimateHours != nil {
			if *update.EstimateHours < 0 {
				return nil, fmt.Errorf("estimate must not be negative")
			}
			s.tasks[i].EstimateHours = *update.EstimateHours
		}
		task := copyTask(s.tasks[i])
		return &task, nil
	}
	return nil, ErrTaskNotFound
}

// DeleteTask removes the task; subtasks, comments and time entries are
// embedded in it, so they go with it.
func (s *WorkspaceService) DeleteTask(id primitive.ObjectID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.tasks {
		if s.tasks[i].ID == id {
			s.tasks = append(s.tasks[:i], s.tasks[i+1:]...)
			return nil
		}
	}
	return ErrTaskNotFound
}

func (s *WorkspaceService) GetTaskByID(id primitive.ObjectID) (*models.Task, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for i := range s.tasks {
		if s.tasks[i].ID == id {
			task := copyTask(s.tasks[i])
			return &task, nil
		}
	}
	return nil, ErrTaskNotFound
}

func (s *WorkspaceService) GetTasksByEpic(epicID primitive.ObjectID) []models.Task {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var tasks []models.Task
	for _, task := range s.tasks {
		if task.EpicID == epicID {
			tasks = append(tasks, copyTask(task))
		}
	}
	return tasks
}

func (s *WorkspaceService) GetAllTasks() []models.Task {
	s.mu.RLock()
	defer s.mu.RUnlock()
	tasks := make([]models.Task, len(s.tasks))
	for i, task := range s.tasks {
		tasks[i] = copyTask(task)
	}
	return tasks
}

// ── Subtasks ────────────────────────────────────────────────────────────────

func (s *WorkspaceService) CreateSubtask(taskID primitive.ObjectID, title string, assigneeID *primitive.ObjectID) (*models.Subtask, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var assignee *models.User
	if assigneeID != nil && !assigneeID.IsZero() {
		user, err := s.findUser(*assigneeID)
		if err != nil {
			return nil, fmt.Errorf("cannot assign subtask: %w", err)
		}
		assignee = user
	}

	for i := range s.tasks {
		if s.tasks[i].ID != taskID {
			continue
		}
		subtask := models.Subtask{
			ID:       primitive.NewObjectID(),
			TaskID:   taskID,
			Title:    title,
			Done:     false,
			Assignee: assignee,
		}
		s.tasks[i].Subtasks = append(s.tasks[i].Subtasks, subtask)
		return &subtask, nil
	}
	return nil, ErrTaskNotFound
}

func (s *WorkspaceService) ToggleSubtask(taskID, subtaskID primitive.ObjectID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.tasks {
		if s.tasks[i].ID != taskID {
			continue
		}
		for j := range s.tasks[i].Subtasks {
			if s.tasks[i].Subtasks[j].ID == subtaskID {
				s.tasks[i].Subtasks[j].Done = !s.tasks[i].Subtasks[j].Done
				return nil
			}
		}
		return ErrSubtaskNotFound
	}
	return ErrTaskNotFound
}

func (s *WorkspaceService) DeleteSubtask(taskID, subtaskID primitive.ObjectID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.tasks {
		if s.tasks[i].ID != taskID {
			continue
		}
		subtasks := s.tasks[i].Subtasks
		for j := range subtasks {
			if subtasks[j].ID == subtaskID {
				s.tasks[i].Subtasks = append(subtasks[:j], subtasks[j+1:]...)
				return nil
			}
		}
		return ErrSubtaskNotFound
	}
	return ErrTaskNotFound
}

// ── Comments ────────────────────────────────────────────────────────────────

// AddComment stamps the author and creation time; neither changes afterwards.
func (s *WorkspaceService) AddComment(taskID primitive.ObjectID, text string, author models.User, now time.Time) (*models.Comment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.tasks {
		if s.tasks[i].ID != taskID {
			continue
		}
		comment := models.Comment{
			ID:        primitive.NewObjectID(),
			TaskID:    taskID,
			Author:    author,
			Text:      text,
			CreatedAt: now,
		}
		s.tasks[i].Comments = append(s.tasks[i].Comments, comment)
		return &comment, nil
	}
	return nil, ErrTaskNotFound
}

func (s *WorkspaceService) GetComment(taskID, commentID primitive.ObjectID) (*models.Comment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for i := range s.tasks {
		if s.tasks[i].ID != taskID {
			continue
		}
		for _, comment := range s.tasks[i].Comments {
			if comment.ID == commentID {
				found := comment
				return &found, nil
			}
		}
		return nil, ErrCommentNotFound
	}
	return nil, ErrTaskNotFound
}

func (s *WorkspaceService) DeleteComment(taskID, commentID primitive.ObjectID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.tasks {
		if s.tasks[i].ID != taskID {
			continue
		}
		comments := s.tasks[i].Comments
		for j := range comments {
			if comments[j].ID == commentID {
				s.tasks[i].Comments = append(comments[:j], comments[j+1:]...)
				return nil
			}
		}
		return ErrCommentNotFound
	}
	return ErrTaskNotFound
}

// ── Time entries ────────────────────────────────────────────────────────────

func (s *WorkspaceService) AddTimeEntry(taskID primitive.ObjectID, user models.User, date time.Time, minutes int, note string) (*models.TimeEntry, error) {
	if minutes <= 0 {
		return nil, fmt.Errorf("minutes must be greater than zero")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.tasks {
		if s.tasks[i].ID != taskID {
			continue
		}
		entry := models.TimeEntry{
			ID:      primitive.NewObjectID(),
			TaskID:  taskID,
			User:    user,
			Date:    date,
			Minutes: minutes,
			Note:    note,
		}
		s.tasks[i].TimeEntries = append(s.tasks[i].TimeEntries, entry)
		return &entry, nil
	}
	return nil, ErrTaskNotFound
}

func (s *WorkspaceService) DeleteTimeEntry(taskID, entryID primitive.ObjectID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.tasks {
		if s.tasks[i].ID != taskID {
			continue
		}
		entries := s.tasks[i].TimeEntries
		for j := range entries {
			if entries[j].ID == entryID {
				s.tasks[i].TimeEntries = append(entries[:j], entries[j+1:]...)
				return nil
			}
		}
		return ErrEntryNotFound
	}
	return ErrTaskNotFound
}
