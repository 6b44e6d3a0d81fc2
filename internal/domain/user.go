package domain

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Role type to distinguish between staff roles
type Role string

// Define constants for roles
const (
	RoleAdmin Role = "admin"
	RoleStaff Role = "staff"
)

// User represents a staff member operating the gym backoffice.
type User struct {
	ID           primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	Name         string             `bson:"name" json:"name"`
	Email        string             `bson:"email" json:"email"`    // Should be unique
	PasswordHash string             `bson:"passwordHash" json:"-"` // Never expose this via JSON
	Role         Role               `bson:"role" json:"role"`
	CreatedAt    time.Time          `bson:"createdAt" json:"createdAt"`
	UpdatedAt    time.Time          `bson:"updatedAt" json:"updatedAt"`
}

// IsAdmin reports whether the user may perform administrator actions
// (plan creation, deletion, state changes).
func (u *User) IsAdmin() bool {
	return u.Role == RoleAdmin
}
