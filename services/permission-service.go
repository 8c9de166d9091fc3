package services

import (
	"project-tracker/workspace-service/models"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// PermissionService holds the role-based access rules. Every predicate is
// stateless and evaluated against the membership index the caller passes in,
// so a role or membership change takes effect on the very next check. The
// predicates never return errors: anything unknown (nil actor, unresolvable
// epic, unrecognized role) is a plain denial.
type PermissionService struct{}

func NewPermissionService() *PermissionService {
	return &PermissionService{}
}

// DeleteTarget tags the kind of resource a delete check is about. Comment
// deletions carry the comment author's id, which is what restricts members
// to deleting only their own comments.
type DeleteTarget int

const (
	DeleteTargetEpic DeleteTarget = iota
	DeleteTargetTask
	DeleteTargetSubtask
	DeleteTargetComment
)

type DeleteRequest struct {
	Target   DeleteTarget
	EpicID   primitive.ObjectID
	AuthorID primitive.ObjectID
}

func DeleteEpicRequest(epicID primitive.ObjectID) DeleteRequest {
	return DeleteRequest{Target: DeleteTargetEpic, EpicID: epicID}
}

func DeleteTaskRequest(epicID primitive.ObjectID) DeleteRequest {
	return DeleteRequest{Target: DeleteTargetTask, EpicID: epicID}
}

func DeleteSubtaskRequest(epicID primitive.ObjectID) DeleteRequest {
	return DeleteRequest{Target: DeleteTargetSubtask, EpicID: epicID}
}

func DeleteCommentRequest(epicID, authorID primitive.ObjectID) DeleteRequest {
	return DeleteRequest{Target: DeleteTargetComment, EpicID: epicID, AuthorID: authorID}
}

// CanViewEpic: Admin and Manager see every epic, Member and Viewer only the
// epics whose member list contains them.
func (s *PermissionService) CanViewEpic(actor *models.User, members *MembershipIndex, epicID primitive.ObjectID) bool {
	if actor == nil {
		return false
	}
	switch actor.Role {
	case models.RoleAdmin, models.RoleManager:
		return true
	case models.RoleMember, models.RoleViewer:
		return members.IsMember(epicID, actor.ID)
	}
	return false
}

// CanManageEpics covers workspace-level epic creation and ownership of the
// epic list itself. Admin only.
func (s *PermissionService) CanManageEpics(actor *models.User) bool {
	if actor == nil {
		return false
	}
	switch actor.Role {
	case models.RoleAdmin:
		return true
	case models.RoleManager, models.RoleMember, models.RoleViewer:
		return false
	}
	return false
}

// canMutate is the shared rule for creating and editing inside an epic:
// Admin anywhere, Member only inside epics they belong to, Manager and
// Viewer nowhere.
func (s *PermissionService) canMutate(actor *models.User, members *MembershipIndex, epicID primitive.ObjectID) bool {
	if actor == nil {
		return false
	}
	switch actor.Role {
	case models.RoleAdmin:
		return true
	case models.RoleManager, models.RoleViewer:
		return false
	case models.RoleMember:
		return members.IsMember(epicID, actor.ID)
	}
	return false
}

func (s *PermissionService) CanCreate(actor *models.User, members *MembershipIndex, epicID primitive.ObjectID) bool {
	return s.canMutate(actor, members, epicID)
}

func (s *PermissionService) CanEdit(actor *models.User, members *MembershipIndex, epicID primitive.ObjectID) bool {
	return s.canMutate(actor, members, epicID)
}

func (s *PermissionService) CanUpdateStatus(actor *models.User, members *MembershipIndex, epicID primitive.ObjectID) bool {
	return s.canMutate(actor, members, epicID)
}

func (s *PermissionService) CanAssignTask(actor *models.User, members *MembershipIndex, epicID primitive.ObjectID) bool {
	return s.canMutate(actor, members, epicID)
}

func (s *PermissionService) CanComment(actor *models.User, members *MembershipIndex, epicID primitive.ObjectID) bool {
	return s.canMutate(actor, members, epicID)
}

// CanDelete: Admin deletes anything. A Member must belong to the target's
// epic, and for comments must additionally be the comment's author.
func (s *PermissionService) CanDelete(actor *models.User, members *MembershipIndex, req DeleteRequest) bool {
	if actor == nil {
		return false
	}
	switch actor.Role {
	case models.RoleAdmin:
		return true
	case models.RoleManager, models.RoleViewer:
		return false
	case models.RoleMember:
		if !members.IsMember(req.EpicID, actor.ID) {
			return false
		}
		if req.Target == DeleteTargetComment {
			return actor.ID == req.AuthorID
		}
		return true
	}
	return false
}

// CanChangeEpicOwner: reassigning ownership is a workspace-level action.
func (s *PermissionService) CanChangeEpicOwner(actor *models.User) bool {
	return s.CanManageEpics(actor)
}

// AssignableUsers returns the ids a task in the epic may be assigned to:
// every known member anywhere for Admin, the epic's own member list for a
// Member, nothing for Manager and Viewer. Callers must intersect the result
// with the real user list before offering choices.
func (s *PermissionService) AssignableUsers(actor *models.User, members *MembershipIndex, epicID primitive.ObjectID) []primitive.ObjectID {
	if actor == nil {
		return nil
	}
	switch actor.Role {
	case models.RoleAdmin:
		return members.AllMembers()
	case models.RoleManager, models.RoleViewer:
		return nil
	case models.RoleMember:
		return members.Members(epicID)
	}
	return nil
}
