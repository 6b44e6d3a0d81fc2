package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validPayment(t *testing.T) *Payment {
	t.Helper()
	p, err := NewPayment(nil, nil, 500.00, "efectivo", "ingreso", "", "", time.Now().UTC(), nil)
	require.NoError(t, err)
	return p
}

func TestRound2(t *testing.T) {
	cases := []struct {
		in   float64
		want float64
	}{
		{99.995, 100.00},
		{99.994, 99.99},
		{10.005, 10.01},
		{10.004, 10.00},
		{-2.675, -2.68},
		{-2.674, -2.67},
		{0, 0},
		{100, 100},
	}
	for _, tc := range cases {
		assert.InDelta(t, tc.want, Round2(tc.in), 1e-9, "Round2(%v)", tc.in)
	}
}

func TestRound2Idempotent(t *testing.T) {
	for _, v := range []float64{99.995, 10.005, -2.675, 1234.567, 0.001} {
		once := Round2(v)
		assert.Equal(t, once, Round2(once), "Round2 must be idempotent for %v", v)
	}
}

func TestNewPaymentNormalizes(t *testing.T) {
	p, err := NewPayment(nil, nil, 150.005, "  EFECTIVO ", "Ingreso", " ref-1 ", " nota ", time.Now().UTC(), nil)
	require.NoError(t, err)

	assert.Equal(t, 150.01, p.Amount)
	assert.Equal(t, MethodCash, p.Method)
	assert.Equal(t, MovementIncome, p.Movement)
	assert.Equal(t, PaymentStatePending, p.State)
	assert.Equal(t, "ref-1", p.Reference)
	assert.Equal(t, "nota", p.Notes)
}

func TestNewPaymentValidation(t *testing.T) {
	now := time.Now().UTC()
	cases := []struct {
		name      string
		amount    float64
		method    string
		movement  string
		paidAt    time.Time
		wantField string
	}{
		{"zero amount", 0, "efectivo", "ingreso", now, "monto"},
		{"negative amount", -10, "efectivo", "ingreso", now, "monto"},
		{"over cap", 1_000_001, "efectivo", "ingreso", now, "monto"},
		{"bad method", 100, "bitcoin", "ingreso", now, "metodoPago"},
		{"bad movement", 100, "efectivo", "sideways", now, "movimiento"},
		{"zero date", 100, "efectivo", "ingreso", time.Time{}, "fechaPago"},
		{"too far back", 100, "efectivo", "ingreso", now.AddDate(-6, 0, 0), "fechaPago"},
		{"too far forward", 100, "efectivo", "ingreso", now.AddDate(2, 0, 0), "fechaPago"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := NewPayment(nil, nil, tc.amount, tc.method, tc.movement, "", "", tc.paidAt, nil)
			var validationErr *ValidationError
			require.ErrorAs(t, err, &validationErr)
			assert.Equal(t, tc.wantField, validationErr.Field)
		})
	}
}

func TestPaymentTransitions(t *testing.T) {
	allowed := map[PaymentState][]PaymentState{
		PaymentStatePending: {PaymentStatePaid, PaymentStateLate, PaymentStateCancelled},
		PaymentStateLate:    {PaymentStatePaid, PaymentStatePending, PaymentStateCancelled},
		PaymentStatePaid:    {PaymentStateCancelled},
	}
	all := []PaymentState{PaymentStatePending, PaymentStatePaid, PaymentStateLate, PaymentStateCancelled}

	for _, from := range all {
		for _, to := range all {
			p := validPayment(t)
			p.State = from
			err := p.TransitionTo(to)

			ok := false
			for _, a := range allowed[from] {
				if a == to {
					ok = true
				}
			}
			if ok {
				assert.NoError(t, err, "%s -> %s should be allowed", from, to)
				assert.Equal(t, to, p.State)
			} else {
				var conflictErr *ConflictError
				assert.ErrorAs(t, err, &conflictErr, "%s -> %s should be rejected", from, to)
				assert.Equal(t, from, p.State, "state must not change on rejection")
			}
		}
	}
}

func TestPaymentMarkPaid(t *testing.T) {
	p := validPayment(t)
	require.NoError(t, p.MarkPaid("TRX-99", "pagado en mostrador"))
	assert.Equal(t, PaymentStatePaid, p.State)
	assert.Equal(t, "TRX-99", p.Reference)
	assert.Equal(t, "pagado en mostrador", p.Notes)

	// Settling twice is a conflict.
	err := p.MarkPaid("", "")
	var conflictErr *ConflictError
	assert.ErrorAs(t, err, &conflictErr)
}

func TestPaymentMarkPaidKeepsExistingReference(t *testing.T) {
	p := validPayment(t)
	p.Reference = "original"
	require.NoError(t, p.MarkPaid("", ""))
	assert.Equal(t, "original", p.Reference)
}

func TestPaymentLateRoundTrip(t *testing.T) {
	p := validPayment(t)
	require.NoError(t, p.MarkLate("sin fondos"))
	assert.Equal(t, PaymentStateLate, p.State)
	assert.Equal(t, "sin fondos", p.Notes)

	// retrasado can go back to pendiente and then settle.
	require.NoError(t, p.TransitionTo(PaymentStatePending))
	require.NoError(t, p.MarkPaid("TRX-1", ""))
	assert.Equal(t, PaymentStatePaid, p.State)
}

func TestPaymentMarkCancelledRequiresReason(t *testing.T) {
	p := validPayment(t)
	err := p.MarkCancelled("   ")
	var validationErr *ValidationError
	require.ErrorAs(t, err, &validationErr)
	assert.Equal(t, "motivo", validationErr.Field)
	assert.Equal(t, PaymentStatePending, p.State, "failed cancellation must not change state")

	require.NoError(t, p.MarkCancelled("cobro duplicado"))
	assert.Equal(t, PaymentStateCancelled, p.State)
	assert.Equal(t, "cobro duplicado", p.Notes)
}

func TestPaymentCancelledIsTerminal(t *testing.T) {
	p := validPayment(t)
	require.NoError(t, p.MarkCancelled("error administrativo"))

	for _, target := range []PaymentState{PaymentStatePending, PaymentStatePaid, PaymentStateLate} {
		err := p.TransitionTo(target)
		var conflictErr *ConflictError
		assert.ErrorAs(t, err, &conflictErr, "cancelado -> %s must be rejected", target)
	}
}

func TestPaymentSignedAmount(t *testing.T) {
	income, err := NewPayment(nil, nil, 300, "tarjeta", "ingreso", "", "", time.Now().UTC(), nil)
	require.NoError(t, err)
	expense, err := NewPayment(nil, nil, 120.50, "transferencia", "egreso", "", "", time.Now().UTC(), nil)
	require.NoError(t, err)

	assert.Equal(t, 300.0, income.SignedAmount())
	assert.Equal(t, -120.50, expense.SignedAmount())
}

func TestPaymentIsOverdue(t *testing.T) {
	now := time.Now().UTC()

	p := validPayment(t)
	p.PaidAt = now.AddDate(0, 0, -3)
	assert.True(t, p.IsOverdue(now), "pendiente past its date is overdue")

	due := now.AddDate(0, 0, 2)
	p.DueDate = &due
	assert.False(t, p.IsOverdue(now), "explicit due date takes precedence")

	require.NoError(t, p.MarkPaid("", ""))
	pastDue := now.AddDate(0, 0, -10)
	p.DueDate = &pastDue
	assert.False(t, p.IsOverdue(now), "settled payments are never overdue")
}
