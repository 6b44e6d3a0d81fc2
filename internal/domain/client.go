package domain

import (
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Client represents a gym member. Clients reference the plans they are
// associated to by ID only; the plan documents hold the mirror list and
// both sides are mutated exclusively by the lifecycle orchestrator.
type Client struct {
	ID        primitive.ObjectID   `bson:"_id,omitempty" json:"id"`
	Name      string               `bson:"nombre" json:"nombre"`
	Email     string               `bson:"email" json:"email"` // Unique
	Phone     string               `bson:"telefono,omitempty" json:"telefono,omitempty"`
	Level     Level                `bson:"nivel" json:"nivel"`
	Active    bool                 `bson:"activo" json:"activo"`
	PlanIDs   []primitive.ObjectID `bson:"planIds,omitempty" json:"planIds,omitempty"`
	CreatedAt time.Time            `bson:"createdAt" json:"createdAt"`
	UpdatedAt time.Time            `bson:"updatedAt" json:"updatedAt"`
}

const (
	clientNameMaxLen = 100
	clientNameMinLen = 2
)

// NewClient validates and normalizes a client at registration time. All
// rules are pure; downstream components never re-validate.
func NewClient(name, email, phone, level string) (*Client, error) {
	name = strings.TrimSpace(name)
	if len(name) < clientNameMinLen || len(name) > clientNameMaxLen {
		return nil, NewValidationError("nombre", "must be between 2 and 100 characters")
	}

	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" || !strings.Contains(email, "@") {
		return nil, NewValidationError("email", "must be a valid email address")
	}

	parsedLevel, ok := ParseLevel(level)
	if !ok {
		return nil, NewValidationError("nivel", "must be one of principiante, intermedio, avanzado")
	}

	return &Client{
		Name:   name,
		Email:  email,
		Phone:  strings.TrimSpace(phone),
		Level:  parsedLevel,
		Active: true,
	}, nil
}

// HasPlanRef reports whether the client already references the plan.
func (c *Client) HasPlanRef(planID primitive.ObjectID) bool {
	for _, id := range c.PlanIDs {
		if id == planID {
			return true
		}
	}
	return false
}
