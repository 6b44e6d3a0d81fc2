package domain

import (
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// PlanState type for the plan lifecycle.
type PlanState string

const (
	PlanStateActive    PlanState = "activo"
	PlanStateCancelled PlanState = "cancelado"
	PlanStateFinished  PlanState = "finalizado" // Terminal
)

// planTransitions is the closed transition table for plans. Cancellation
// is reversible; finalizado is terminal.
var planTransitions = map[PlanState][]PlanState{
	PlanStateActive:    {PlanStateCancelled, PlanStateFinished},
	PlanStateCancelled: {PlanStateActive},
}

// ParsePlanState normalizes and validates a raw plan state string.
func ParsePlanState(raw string) (PlanState, bool) {
	state := PlanState(strings.ToLower(strings.TrimSpace(raw)))
	switch state {
	case PlanStateActive, PlanStateCancelled, PlanStateFinished:
		return state, true
	}
	return "", false
}

// Plan represents a training plan offered by the gym. The client list is
// the mirror of the client-side plan references and the two are only ever
// mutated together.
type Plan struct {
	ID             primitive.ObjectID   `bson:"_id,omitempty" json:"id"`
	Name           string               `bson:"nombre" json:"nombre"` // Unique across all plans
	DurationMonths int                  `bson:"duracionMeses" json:"duracionMeses"`
	Level          Level                `bson:"nivel" json:"nivel"`
	ClientIDs      []primitive.ObjectID `bson:"clienteIds,omitempty" json:"clienteIds,omitempty"`
	State          PlanState            `bson:"estado" json:"estado"`
	CreatedAt      time.Time            `bson:"createdAt" json:"createdAt"`
	UpdatedAt      time.Time            `bson:"updatedAt" json:"updatedAt"`
}

const (
	planNameMaxLen       = 100
	planMaxDurationMonth = 60
)

// NewPlan validates and normalizes a plan at creation time.
func NewPlan(name string, durationMonths int, level string) (*Plan, error) {
	name = strings.TrimSpace(name)
	if name == "" || len(name) > planNameMaxLen {
		return nil, NewValidationError("nombre", "must be between 1 and 100 characters")
	}

	if durationMonths < 1 || durationMonths > planMaxDurationMonth {
		return nil, NewValidationError("duracionMeses", "must be between 1 and 60")
	}

	parsedLevel, ok := ParseLevel(level)
	if !ok {
		return nil, NewValidationError("nivel", "must be one of principiante, intermedio, avanzado")
	}

	return &Plan{
		Name:           name,
		DurationMonths: durationMonths,
		Level:          parsedLevel,
		State:          PlanStateActive,
	}, nil
}

// TransitionTo moves the plan to the target state or fails with a
// ConflictError when the transition table forbids it.
func (p *Plan) TransitionTo(target PlanState) error {
	if !transitionAllowed(planTransitions, p.State, target) {
		return NewConflictError("plan state transition %s -> %s is not allowed", p.State, target)
	}
	p.State = target
	return nil
}

// IsActive reports whether the plan currently accepts associations.
func (p *Plan) IsActive() bool {
	return p.State == PlanStateActive
}

// HasClientRef reports whether the plan already references the client.
func (p *Plan) HasClientRef(clientID primitive.ObjectID) bool {
	for _, id := range p.ClientIDs {
		if id == clientID {
			return true
		}
	}
	return false
}
