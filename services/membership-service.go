package services

import (
	"project-tracker/workspace-service/models"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// MembershipIndex answers "who are the members of epic X" for a single epic
// snapshot. Lookups for unknown epics return the empty set rather than an
// error, so permission checks fail closed.
type MembershipIndex struct {
	members map[primitive.ObjectID][]primitive.ObjectID
	epicIDs []primitive.ObjectID
}

// NewMembershipIndex builds the index from the epics' memberIds lists, which
// are the source of truth for row-level access.
func NewMembershipIndex(epics []models.Epic) *MembershipIndex {
	index := &MembershipIndex{
		members: make(map[primitive.ObjectID][]primitive.ObjectID, len(epics)),
	}
	for _, epic := range epics {
		if _, seen := index.members[epic.ID]; seen {
			continue
		}
		ids := make([]primitive.ObjectID, len(epic.MemberIDs))
		copy(ids, epic.MemberIDs)
		index.members[epic.ID] = ids
		index.epicIDs = append(index.epicIDs, epic.ID)
	}
	return index
}

// Members returns a copy of the member list for the epic, empty if the epic
// is unknown.
func (m *MembershipIndex) Members(epicID primitive.ObjectID) []primitive.ObjectID {
	ids := m.members[epicID]
	out := make([]primitive.ObjectID, len(ids))
	copy(out, ids)
	return out
}

func (m *MembershipIndex) IsMember(epicID, userID primitive.ObjectID) bool {
	for _, id := range m.members[epicID] {
		if id == userID {
			return true
		}
	}
	return false
}

// AllMembers returns the union of every epic's member list, in first-seen
// order. This is the assignable set for admins: every user who appears in at
// least one membership list.
func (m *MembershipIndex) AllMembers() []primitive.ObjectID {
	seen := make(map[primitive.ObjectID]bool)
	var out []primitive.ObjectID
	for _, epicID := range m.epicIDs {
		for _, userID := range m.members[epicID] {
			if seen[userID] {
				continue
			}
			seen[userID] = true
			out = append(out, userID)
		}
	}
	return out
}
