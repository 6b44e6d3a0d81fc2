package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

func validContract(t *testing.T) *Contract {
	t.Helper()
	c, err := NewContract(primitive.NewObjectID(), primitive.NewObjectID(),
		1200.00, time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC), 6)
	require.NoError(t, err)
	return c
}

func TestNewContractDerivesEndDate(t *testing.T) {
	start := time.Date(2025, 1, 31, 0, 0, 0, 0, time.UTC)
	c, err := NewContract(primitive.NewObjectID(), primitive.NewObjectID(), 900, start, 3)
	require.NoError(t, err)

	assert.Equal(t, ContractStateActive, c.State)
	assert.Equal(t, time.Date(2025, 4, 30, 0, 0, 0, 0, time.UTC), c.EndDate,
		"end date clamps to the last day of the target month")
}

func TestNewContractRoundsPrice(t *testing.T) {
	c, err := NewContract(primitive.NewObjectID(), primitive.NewObjectID(),
		99.995, time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC), 1)
	require.NoError(t, err)
	assert.Equal(t, 100.00, c.Price)
}

func TestNewContractValidation(t *testing.T) {
	clientID := primitive.NewObjectID()
	planID := primitive.NewObjectID()
	start := time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC)

	cases := []struct {
		name      string
		clientID  primitive.ObjectID
		planID    primitive.ObjectID
		price     float64
		start     time.Time
		months    int
		wantField string
	}{
		{"missing client", primitive.NilObjectID, planID, 100, start, 3, "clienteId"},
		{"missing plan", clientID, primitive.NilObjectID, 100, start, 3, "planId"},
		{"zero price", clientID, planID, 0, start, 3, "precio"},
		{"price over cap", clientID, planID, 1_000_001, start, 3, "precio"},
		{"zero start", clientID, planID, 100, time.Time{}, 3, "fechaInicio"},
		{"zero duration", clientID, planID, 100, start, 0, "duracionMeses"},
		{"duration over cap", clientID, planID, 100, start, 61, "duracionMeses"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := NewContract(tc.clientID, tc.planID, tc.price, tc.start, tc.months)
			var validationErr *ValidationError
			require.ErrorAs(t, err, &validationErr)
			assert.Equal(t, tc.wantField, validationErr.Field)
		})
	}
}

func TestContractTerminalStates(t *testing.T) {
	for _, terminal := range []ContractState{ContractStateCancelled, ContractStateFinished} {
		c := validContract(t)
		require.NoError(t, c.TransitionTo(terminal))

		for _, target := range []ContractState{ContractStateActive, ContractStateCancelled, ContractStateFinished} {
			err := c.TransitionTo(target)
			var conflictErr *ConflictError
			assert.ErrorAs(t, err, &conflictErr, "%s -> %s must be rejected", terminal, target)
		}
	}
}

func TestContractExtend(t *testing.T) {
	start := time.Date(2025, 1, 15, 0, 0, 0, 0, time.UTC)
	c, err := NewContract(primitive.NewObjectID(), primitive.NewObjectID(), 3000, start, 12)
	require.NoError(t, err)
	require.Equal(t, time.Date(2026, 1, 15, 0, 0, 0, 0, time.UTC), c.EndDate)

	require.NoError(t, c.Extend(3))
	assert.Equal(t, 15, c.DurationMonths)
	assert.Equal(t, time.Date(2026, 4, 15, 0, 0, 0, 0, time.UTC), c.EndDate)
	assert.Equal(t, start, c.StartDate, "extension never touches the start date")
}

func TestContractExtendRejectsNonActive(t *testing.T) {
	c := validContract(t)
	require.NoError(t, c.TransitionTo(ContractStateCancelled))

	err := c.Extend(2)
	var conflictErr *ConflictError
	assert.ErrorAs(t, err, &conflictErr)
}

func TestContractExtendValidatesMonths(t *testing.T) {
	c := validContract(t)
	err := c.Extend(0)
	var validationErr *ValidationError
	require.ErrorAs(t, err, &validationErr)
	assert.Equal(t, "meses", validationErr.Field)
}

func TestContractIsExpired(t *testing.T) {
	c := validContract(t)
	assert.False(t, c.IsExpired(c.EndDate), "the end date itself is not yet expired")
	assert.True(t, c.IsExpired(c.EndDate.Add(time.Second)))
}
