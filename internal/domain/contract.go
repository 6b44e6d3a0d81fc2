package domain

import (
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// ContractState type for the contract lifecycle.
type ContractState string

const (
	ContractStateActive    ContractState = "vigente"
	ContractStateCancelled ContractState = "cancelado"  // Terminal
	ContractStateFinished  ContractState = "finalizado" // Terminal
)

// contractTransitions is the closed transition table for contracts. Both
// cancelado and finalizado are terminal.
var contractTransitions = map[ContractState][]ContractState{
	ContractStateActive: {ContractStateCancelled, ContractStateFinished},
}

// ParseContractState normalizes and validates a raw contract state string.
func ParseContractState(raw string) (ContractState, bool) {
	state := ContractState(strings.ToLower(strings.TrimSpace(raw)))
	switch state {
	case ContractStateActive, ContractStateCancelled, ContractStateFinished:
		return state, true
	}
	return "", false
}

// Contract binds a client to a plan for a price over a period of months.
// At most one vigente contract may exist per (client, plan) pair; the
// orchestrator guards this and the contracts collection enforces it with
// a partial unique index.
type Contract struct {
	ID             primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	ClientID       primitive.ObjectID `bson:"clienteId" json:"clienteId"`
	PlanID         primitive.ObjectID `bson:"planId" json:"planId"`
	Price          float64            `bson:"precio" json:"precio"`
	StartDate      time.Time          `bson:"fechaInicio" json:"fechaInicio"`
	EndDate        time.Time          `bson:"fechaFin" json:"fechaFin"`
	DurationMonths int                `bson:"duracionMeses" json:"duracionMeses"`
	State          ContractState      `bson:"estado" json:"estado"`
	CreatedAt      time.Time          `bson:"createdAt" json:"createdAt"`
	UpdatedAt      time.Time          `bson:"updatedAt" json:"updatedAt"`
}

const (
	contractMaxPrice          = 1_000_000
	contractMaxDurationMonths = 60
)

// NewContract validates and normalizes a contract. The end date is
// derived from the start date plus the duration in calendar months.
func NewContract(clientID, planID primitive.ObjectID, price float64, startDate time.Time, durationMonths int) (*Contract, error) {
	if clientID.IsZero() {
		return nil, NewValidationError("clienteId", "is required")
	}
	if planID.IsZero() {
		return nil, NewValidationError("planId", "is required")
	}
	if price <= 0 || price > contractMaxPrice {
		return nil, NewValidationError("precio", "must be positive and at most 1000000")
	}
	if startDate.IsZero() {
		return nil, NewValidationError("fechaInicio", "is required")
	}
	if durationMonths < 1 || durationMonths > contractMaxDurationMonths {
		return nil, NewValidationError("duracionMeses", "must be between 1 and 60")
	}

	return &Contract{
		ClientID:       clientID,
		PlanID:         planID,
		Price:          Round2(price),
		StartDate:      startDate,
		EndDate:        AddCalendarMonths(startDate, durationMonths),
		DurationMonths: durationMonths,
		State:          ContractStateActive,
	}, nil
}

// TransitionTo moves the contract to the target state or fails with a
// ConflictError when the transition table forbids it.
func (c *Contract) TransitionTo(target ContractState) error {
	if !transitionAllowed(contractTransitions, c.State, target) {
		return NewConflictError("contract state transition %s -> %s is not allowed", c.State, target)
	}
	c.State = target
	return nil
}

// IsActive reports whether the contract is currently vigente.
func (c *Contract) IsActive() bool {
	return c.State == ContractStateActive
}

// Extend lengthens a vigente contract by the given number of calendar
// months, advancing fechaFin with month-end clamping.
func (c *Contract) Extend(months int) error {
	if months < 1 {
		return NewValidationError("meses", "must be at least 1")
	}
	if !c.IsActive() {
		return NewConflictError("only vigente contracts can be extended, contract is %s", c.State)
	}
	c.DurationMonths += months
	c.EndDate = AddCalendarMonths(c.EndDate, months)
	return nil
}

// IsExpired reports whether the contract's period has elapsed at the
// given instant regardless of its recorded state.
func (c *Contract) IsExpired(now time.Time) bool {
	return now.After(c.EndDate)
}
