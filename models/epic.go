package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

type EpicStatus string

const (
	EpicNotStarted EpicStatus = "Not Started"
	EpicInProgress EpicStatus = "In Progress"
	EpicDone       EpicStatus = "Done"
	EpicOnHold     EpicStatus = "On Hold"
)

func (s EpicStatus) IsValid() bool {
	switch s {
	case EpicNotStarted, EpicInProgress, EpicDone, EpicOnHold:
		return true
	}
	return false
}

// Epic groups tasks under a single owner. MemberIDs is the authoritative
// membership list for row-level access; the owner is not required to appear
// in it (owner access is handled separately from membership access).
type Epic struct {
	ID          primitive.ObjectID   `json:"id" bson:"_id,omitempty"`
	Title       string               `json:"title" bson:"title"`
	Description string               `json:"description" bson:"description"`
	Owner       User                 `json:"owner" bson:"owner"`
	Status      EpicStatus           `json:"status" bson:"status"`
	StartDate   *time.Time           `json:"startDate,omitempty" bson:"startDate,omitempty"`
	EndDate     *time.Time           `json:"endDate,omitempty" bson:"endDate,omitempty"`
	MemberIDs   []primitive.ObjectID `json:"memberIds" bson:"memberIds"`
}
