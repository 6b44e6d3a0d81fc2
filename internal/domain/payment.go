package domain

import (
	"math"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// PaymentState type for the payment lifecycle.
type PaymentState string

const (
	PaymentStatePending   PaymentState = "pendiente"
	PaymentStatePaid      PaymentState = "pagado"
	PaymentStateLate      PaymentState = "retrasado"
	PaymentStateCancelled PaymentState = "cancelado" // Terminal
)

// paymentTransitions is the closed transition table for payments.
// pendiente<->retrasado is the only reversible edge besides settlement;
// cancelado is terminal.
var paymentTransitions = map[PaymentState][]PaymentState{
	PaymentStatePending: {PaymentStatePaid, PaymentStateLate, PaymentStateCancelled},
	PaymentStateLate:    {PaymentStatePaid, PaymentStatePending, PaymentStateCancelled},
	PaymentStatePaid:    {PaymentStateCancelled},
}

// PaymentMethod type for how a payment was made.
type PaymentMethod string

const (
	MethodCash     PaymentMethod = "efectivo"
	MethodTransfer PaymentMethod = "transferencia"
	MethodCard     PaymentMethod = "tarjeta"
	MethodCheque   PaymentMethod = "cheque"
	MethodOther    PaymentMethod = "otro"
)

// Movement type for the direction of money.
type Movement string

const (
	MovementIncome  Movement = "ingreso"
	MovementExpense Movement = "egreso"
)

// ParseMovement normalizes and validates a raw movement string.
func ParseMovement(raw string) (Movement, bool) {
	movement := Movement(strings.ToLower(strings.TrimSpace(raw)))
	switch movement {
	case MovementIncome, MovementExpense:
		return movement, true
	}
	return "", false
}

// Payment records a single money movement, optionally tied to a client
// and/or a contract. Once terminal it is immutable history.
type Payment struct {
	ID         primitive.ObjectID  `bson:"_id,omitempty" json:"id"`
	ClientID   *primitive.ObjectID `bson:"clienteId,omitempty" json:"clienteId,omitempty"`
	ContractID *primitive.ObjectID `bson:"contratoId,omitempty" json:"contratoId,omitempty"`
	Amount     float64             `bson:"monto" json:"monto"`
	Method     PaymentMethod       `bson:"metodoPago" json:"metodoPago"`
	State      PaymentState        `bson:"estado" json:"estado"`
	Movement   Movement            `bson:"movimiento" json:"movimiento"`
	Reference  string              `bson:"referencia,omitempty" json:"referencia,omitempty"`
	Notes      string              `bson:"notas,omitempty" json:"notas,omitempty"`
	PaidAt     time.Time           `bson:"fechaPago" json:"fechaPago"`
	DueDate    *time.Time          `bson:"fechaVencimiento,omitempty" json:"fechaVencimiento,omitempty"`
	CreatedAt  time.Time           `bson:"createdAt" json:"createdAt"`
	UpdatedAt  time.Time           `bson:"updatedAt" json:"updatedAt"`
}

const (
	paymentMaxAmount   = 1_000_000
	paymentNotesMaxLen = 500
	paymentDatePastMax = 5 // years back
	paymentDateFutMax  = 1 // years forward
)

// Round2 rounds a monetary amount to 2 decimals, half away from zero.
// Idempotent: Round2(Round2(a)) == Round2(a).
func Round2(amount float64) float64 {
	if amount < 0 {
		return -math.Floor(-amount*100+0.5) / 100
	}
	return math.Floor(amount*100+0.5) / 100
}

// NewPayment validates and normalizes a payment. The date must fall
// within five years back and one year forward of now.
func NewPayment(clientID, contractID *primitive.ObjectID, amount float64, method, movement string, reference, notes string, paidAt time.Time, dueDate *time.Time) (*Payment, error) {
	if amount <= 0 || amount > paymentMaxAmount {
		return nil, NewValidationError("monto", "must be positive and at most 1000000")
	}

	parsedMethod := PaymentMethod(strings.ToLower(strings.TrimSpace(method)))
	switch parsedMethod {
	case MethodCash, MethodTransfer, MethodCard, MethodCheque, MethodOther:
	default:
		return nil, NewValidationError("metodoPago", "must be one of efectivo, transferencia, tarjeta, cheque, otro")
	}

	parsedMovement, ok := ParseMovement(movement)
	if !ok {
		return nil, NewValidationError("movimiento", "must be ingreso or egreso")
	}

	notes = strings.TrimSpace(notes)
	if len(notes) > paymentNotesMaxLen {
		return nil, NewValidationError("notas", "must be at most 500 characters")
	}

	if paidAt.IsZero() {
		return nil, NewValidationError("fechaPago", "is required")
	}
	now := time.Now().UTC()
	if paidAt.Before(now.AddDate(-paymentDatePastMax, 0, 0)) || paidAt.After(now.AddDate(paymentDateFutMax, 0, 0)) {
		return nil, NewValidationError("fechaPago", "must be within 5 years back and 1 year forward")
	}

	return &Payment{
		ClientID:   clientID,
		ContractID: contractID,
		Amount:     Round2(amount),
		Method:     parsedMethod,
		State:      PaymentStatePending,
		Movement:   parsedMovement,
		Reference:  strings.TrimSpace(reference),
		Notes:      notes,
		PaidAt:     paidAt,
		DueDate:    dueDate,
	}, nil
}

// TransitionTo moves the payment to the target state or fails with a
// ConflictError when the transition table forbids it.
func (p *Payment) TransitionTo(target PaymentState) error {
	if !transitionAllowed(paymentTransitions, p.State, target) {
		return NewConflictError("payment state transition %s -> %s is not allowed", p.State, target)
	}
	p.State = target
	return nil
}

// MarkPaid settles the payment, optionally recording a settlement
// reference and notes.
func (p *Payment) MarkPaid(reference, notes string) error {
	if err := p.TransitionTo(PaymentStatePaid); err != nil {
		return err
	}
	if reference = strings.TrimSpace(reference); reference != "" {
		p.Reference = reference
	}
	if notes = strings.TrimSpace(notes); notes != "" {
		p.Notes = notes
	}
	return nil
}

// MarkLate flags the payment as retrasado, optionally recording notes.
func (p *Payment) MarkLate(notes string) error {
	if err := p.TransitionTo(PaymentStateLate); err != nil {
		return err
	}
	if notes = strings.TrimSpace(notes); notes != "" {
		p.Notes = notes
	}
	return nil
}

// MarkCancelled cancels the payment. The reason is mandatory and is
// stored as the payment's notes.
func (p *Payment) MarkCancelled(reason string) error {
	reason = strings.TrimSpace(reason)
	if reason == "" {
		return NewValidationError("motivo", "a cancellation reason is required")
	}
	if err := p.TransitionTo(PaymentStateCancelled); err != nil {
		return err
	}
	p.Notes = reason
	return nil
}

// SignedAmount returns the amount signed by movement direction: ingreso
// positive, egreso negative.
func (p *Payment) SignedAmount() float64 {
	if p.Movement == MovementExpense {
		return -p.Amount
	}
	return p.Amount
}

// IsOverdue reports whether the payment is past due at the given instant.
// Derived predicate, never stored: callers decide whether to move an
// overdue payment to retrasado. The payment date serves as due date when
// no explicit one is set.
func (p *Payment) IsOverdue(now time.Time) bool {
	if p.State == PaymentStatePaid || p.State == PaymentStateCancelled {
		return false
	}
	due := p.PaidAt
	if p.DueDate != nil {
		due = *p.DueDate
	}
	return now.After(due)
}
