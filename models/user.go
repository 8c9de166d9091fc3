package models

import "go.mongodb.org/mongo-driver/bson/primitive"

type Role string

const (
	RoleAdmin   Role = "Admin"
	RoleManager Role = "Manager"
	RoleMember  Role = "Member"
	RoleViewer  Role = "Viewer"
)

// IsValid reports whether r is one of the four known roles.
func (r Role) IsValid() bool {
	switch r {
	case RoleAdmin, RoleManager, RoleMember, RoleViewer:
		return true
	}
	return false
}

type User struct {
	ID                  primitive.ObjectID `json:"id" bson:"_id,omitempty"`
	Name                string             `json:"name" bson:"name"`
	Email               string             `json:"email" bson:"email"`
	Initials            string             `json:"initials" bson:"initials"`
	AvatarColor         string             `json:"avatarColor" bson:"avatarColor"`
	Role                Role               `json:"role" bson:"role"`
	WeeklyCapacityHours float64            `json:"weeklyCapacityHours" bson:"weeklyCapacityHours"`
}
