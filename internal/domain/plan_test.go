package domain

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewPlan(t *testing.T) {
	plan, err := NewPlan("  Plan Fuerza  ", 6, "Intermedio")
	require.NoError(t, err)

	assert.Equal(t, "Plan Fuerza", plan.Name)
	assert.Equal(t, 6, plan.DurationMonths)
	assert.Equal(t, LevelIntermedio, plan.Level)
	assert.Equal(t, PlanStateActive, plan.State, "plans start activo")
}

func TestNewPlanValidation(t *testing.T) {
	cases := []struct {
		name      string
		planName  string
		months    int
		level     string
		wantField string
	}{
		{"empty name", "   ", 6, "intermedio", "nombre"},
		{"name too long", strings.Repeat("x", 101), 6, "intermedio", "nombre"},
		{"zero duration", "Plan", 0, "intermedio", "duracionMeses"},
		{"duration over cap", "Plan", 61, "intermedio", "duracionMeses"},
		{"unknown level", "Plan", 6, "experto", "nivel"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := NewPlan(tc.planName, tc.months, tc.level)
			var validationErr *ValidationError
			require.ErrorAs(t, err, &validationErr)
			assert.Equal(t, tc.wantField, validationErr.Field)
		})
	}
}

func TestPlanTransitions(t *testing.T) {
	plan, err := NewPlan("Plan", 6, "intermedio")
	require.NoError(t, err)

	// activo -> cancelado -> activo is the reversible edge.
	require.NoError(t, plan.TransitionTo(PlanStateCancelled))
	require.NoError(t, plan.TransitionTo(PlanStateActive))
	require.NoError(t, plan.TransitionTo(PlanStateFinished))

	for _, target := range []PlanState{PlanStateActive, PlanStateCancelled, PlanStateFinished} {
		err := plan.TransitionTo(target)
		var conflictErr *ConflictError
		assert.ErrorAs(t, err, &conflictErr, "finalizado -> %s must be rejected", target)
	}
}

func TestParsePlanState(t *testing.T) {
	state, ok := ParsePlanState("  Cancelado ")
	require.True(t, ok)
	assert.Equal(t, PlanStateCancelled, state)

	_, ok = ParsePlanState("pausado")
	assert.False(t, ok)
}
