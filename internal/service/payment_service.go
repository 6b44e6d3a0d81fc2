package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gymvida/gym-manager/internal/domain"
	"gymvida/gym-manager/internal/repository"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// BalanceReport partitions the payments of a period by movement
// direction. Balance == TotalIncome - TotalExpense by construction.
type BalanceReport struct {
	Start        time.Time `json:"inicio,omitempty"`
	End          time.Time `json:"fin,omitempty"`
	TotalIncome  float64   `json:"totalIngresos"`
	TotalExpense float64   `json:"totalEgresos"`
	Balance      float64   `json:"balance"`
	IncomeCount  int       `json:"numIngresos"`
	ExpenseCount int       `json:"numEgresos"`
}

// PaymentStats summarizes payments per lifecycle state over an optional
// period.
type PaymentStats struct {
	Total     int     `json:"total"`
	Pending   int     `json:"pendientes"`
	Paid      int     `json:"pagados"`
	Late      int     `json:"retrasados"`
	Cancelled int     `json:"cancelados"`
	Overdue   int     `json:"vencidos"`
	TotalPaid float64 `json:"montoPagado"`
}

// PaymentUpdate carries the mutable fields of a pendiente payment.
type PaymentUpdate struct {
	Amount    float64
	Method    string
	Reference string
	Notes     string
	PaidAt    time.Time
}

// --- Service Interface ---
type PaymentService interface {
	Create(ctx context.Context, clientID, contractID *primitive.ObjectID, amount float64, method, movement, reference, notes string, paidAt time.Time, dueDate *time.Time) (*domain.Payment, error)
	GetByID(ctx context.Context, id primitive.ObjectID) (*domain.Payment, error)
	Update(ctx context.Context, id primitive.ObjectID, update PaymentUpdate) (*domain.Payment, error)
	Delete(ctx context.Context, id primitive.ObjectID) error
	MarkPaid(ctx context.Context, id primitive.ObjectID, reference, notes string) (*domain.Payment, error)
	MarkLate(ctx context.Context, id primitive.ObjectID, notes string) (*domain.Payment, error)
	MarkCancelled(ctx context.Context, id primitive.ObjectID, reason string) (*domain.Payment, error)
	BalanceByRange(ctx context.Context, start, end time.Time, clientID *primitive.ObjectID) (*BalanceReport, error)
	MonthlyBalance(ctx context.Context, year int, month time.Month) (*BalanceReport, error)
	TotalBalance(ctx context.Context) (*BalanceReport, error)
	LargestPayments(ctx context.Context, limit int64, movement string) ([]domain.Payment, error)
	Stats(ctx context.Context, start, end time.Time) (*PaymentStats, error)
}

// --- Service Implementation ---

// paymentService implements the PaymentService interface.
type paymentService struct {
	paymentRepo  repository.PaymentRepository
	clientRepo   repository.ClientRepository
	contractRepo repository.ContractRepository
}

// NewPaymentService creates a new instance of paymentService.
func NewPaymentService(
	paymentRepo repository.PaymentRepository,
	clientRepo repository.ClientRepository,
	contractRepo repository.ContractRepository,
) PaymentService {
	return &paymentService{
		paymentRepo:  paymentRepo,
		clientRepo:   clientRepo,
		contractRepo: contractRepo,
	}
}

// Create validates a payment and inserts it. Referenced client and
// contract, when present, must resolve.
func (s *paymentService) Create(ctx context.Context, clientID, contractID *primitive.ObjectID, amount float64, method, movement, reference, notes string, paidAt time.Time, dueDate *time.Time) (*domain.Payment, error) {
	payment, err := domain.NewPayment(clientID, contractID, amount, method, movement, reference, notes, paidAt, dueDate)
	if err != nil {
		return nil, err
	}

	if clientID != nil {
		if _, err := s.clientRepo.GetByID(ctx, *clientID); err != nil {
			if errors.Is(err, repository.ErrNotFound) {
				return nil, &domain.NotFoundError{Entity: "client", ID: clientID.Hex()}
			}
			return nil, &domain.DependencyError{Entity: "client", Err: err}
		}
	}
	if contractID != nil {
		if _, err := s.contractRepo.GetByID(ctx, *contractID); err != nil {
			if errors.Is(err, repository.ErrNotFound) {
				return nil, &domain.NotFoundError{Entity: "contract", ID: contractID.Hex()}
			}
			return nil, &domain.DependencyError{Entity: "contract", Err: err}
		}
	}

	if _, err := s.paymentRepo.Create(ctx, payment); err != nil {
		return nil, fmt.Errorf("payment insert: %w", err)
	}
	return s.paymentRepo.GetByID(ctx, payment.ID)
}

// GetByID retrieves a single payment.
func (s *paymentService) GetByID(ctx context.Context, id primitive.ObjectID) (*domain.Payment, error) {
	payment, err := s.paymentRepo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, &domain.NotFoundError{Entity: "payment", ID: id.Hex()}
		}
		return nil, fmt.Errorf("payment lookup: %w", err)
	}
	return payment, nil
}

// Update rewrites the mutable fields of a pendiente payment. Payments in
// any other state are settled or terminal history and stay immutable.
func (s *paymentService) Update(ctx context.Context, id primitive.ObjectID, update PaymentUpdate) (*domain.Payment, error) {
	payment, err := s.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if payment.State != domain.PaymentStatePending {
		return nil, domain.NewConflictError("only pendiente payments can be updated, payment is %s", payment.State)
	}

	validated, err := domain.NewPayment(payment.ClientID, payment.ContractID, update.Amount, update.Method, string(payment.Movement), update.Reference, update.Notes, update.PaidAt, payment.DueDate)
	if err != nil {
		return nil, err
	}

	payment.Amount = validated.Amount
	payment.Method = validated.Method
	payment.Reference = validated.Reference
	payment.Notes = validated.Notes
	payment.PaidAt = validated.PaidAt

	if err := s.paymentRepo.Update(ctx, payment); err != nil {
		return nil, fmt.Errorf("payment update: %w", err)
	}
	return payment, nil
}

// Delete removes a pendiente payment. Settled and terminal payments are
// immutable history.
func (s *paymentService) Delete(ctx context.Context, id primitive.ObjectID) error {
	payment, err := s.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if payment.State != domain.PaymentStatePending {
		return domain.NewConflictError("only pendiente payments can be deleted, payment is %s", payment.State)
	}

	if err := s.paymentRepo.Delete(ctx, id); err != nil {
		return fmt.Errorf("payment delete: %w", err)
	}
	return nil
}

// MarkPaid settles a payment, optionally recording a settlement
// reference and notes.
func (s *paymentService) MarkPaid(ctx context.Context, id primitive.ObjectID, reference, notes string) (*domain.Payment, error) {
	return s.mutate(ctx, id, func(p *domain.Payment) error { return p.MarkPaid(reference, notes) })
}

// MarkLate flags a payment as retrasado.
func (s *paymentService) MarkLate(ctx context.Context, id primitive.ObjectID, notes string) (*domain.Payment, error) {
	return s.mutate(ctx, id, func(p *domain.Payment) error { return p.MarkLate(notes) })
}

// MarkCancelled cancels a payment. The reason is mandatory and becomes
// the payment's notes.
func (s *paymentService) MarkCancelled(ctx context.Context, id primitive.ObjectID, reason string) (*domain.Payment, error) {
	return s.mutate(ctx, id, func(p *domain.Payment) error { return p.MarkCancelled(reason) })
}

func (s *paymentService) mutate(ctx context.Context, id primitive.ObjectID, fn func(*domain.Payment) error) (*domain.Payment, error) {
	payment, err := s.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if err := fn(payment); err != nil {
		return nil, err
	}

	if err := s.paymentRepo.Update(ctx, payment); err != nil {
		return nil, fmt.Errorf("payment update: %w", err)
	}
	return payment, nil
}

// BalanceByRange sums signed amounts of committed payments whose date
// falls in [start, end], partitioned by movement direction. Cancelled
// payments do not count toward either side.
func (s *paymentService) BalanceByRange(ctx context.Context, start, end time.Time, clientID *primitive.ObjectID) (*BalanceReport, error) {
	if !start.IsZero() && !end.IsZero() && end.Before(start) {
		return nil, domain.NewValidationError("fin", "range end must not precede range start")
	}

	payments, err := s.paymentRepo.GetByDateRange(ctx, start, end, clientID)
	if err != nil {
		return nil, fmt.Errorf("payment range query: %w", err)
	}

	report := &BalanceReport{Start: start, End: end}
	for _, p := range payments {
		if p.State == domain.PaymentStateCancelled {
			continue
		}
		switch p.Movement {
		case domain.MovementIncome:
			report.TotalIncome += p.Amount
			report.IncomeCount++
		case domain.MovementExpense:
			report.TotalExpense += p.Amount
			report.ExpenseCount++
		}
	}
	report.TotalIncome = domain.Round2(report.TotalIncome)
	report.TotalExpense = domain.Round2(report.TotalExpense)
	report.Balance = domain.Round2(report.TotalIncome - report.TotalExpense)
	return report, nil
}

// MonthlyBalance computes the balance between the first and last instants
// of a calendar month.
func (s *paymentService) MonthlyBalance(ctx context.Context, year int, month time.Month) (*BalanceReport, error) {
	if year < 1 || month < time.January || month > time.December {
		return nil, domain.NewValidationError("mes", "invalid year/month")
	}
	start := time.Date(year, month, 1, 0, 0, 0, 0, time.UTC)
	end := start.AddDate(0, 1, 0).Add(-time.Nanosecond)
	return s.BalanceByRange(ctx, start, end, nil)
}

// TotalBalance computes the balance over every committed payment.
func (s *paymentService) TotalBalance(ctx context.Context) (*BalanceReport, error) {
	return s.BalanceByRange(ctx, time.Time{}, time.Time{}, nil)
}

// LargestPayments retrieves the top payments by amount. Movement may be
// empty to include both directions.
func (s *paymentService) LargestPayments(ctx context.Context, limit int64, movement string) ([]domain.Payment, error) {
	if limit < 1 {
		return nil, domain.NewValidationError("limite", "must be at least 1")
	}

	var filter *domain.Movement
	if movement != "" {
		parsed, ok := domain.ParseMovement(movement)
		if !ok {
			return nil, domain.NewValidationError("movimiento", "must be ingreso or egreso")
		}
		filter = &parsed
	}

	payments, err := s.paymentRepo.TopByAmount(ctx, limit, filter)
	if err != nil {
		return nil, fmt.Errorf("payment top query: %w", err)
	}
	return payments, nil
}

// Stats summarizes payments per state over an optional period. Zero
// start/end leave the corresponding bound open.
func (s *paymentService) Stats(ctx context.Context, start, end time.Time) (*PaymentStats, error) {
	payments, err := s.paymentRepo.GetByDateRange(ctx, start, end, nil)
	if err != nil {
		return nil, fmt.Errorf("payment range query: %w", err)
	}

	now := time.Now().UTC()
	stats := &PaymentStats{Total: len(payments)}
	for _, p := range payments {
		switch p.State {
		case domain.PaymentStatePending:
			stats.Pending++
		case domain.PaymentStatePaid:
			stats.Paid++
			stats.TotalPaid += p.Amount
		case domain.PaymentStateLate:
			stats.Late++
		case domain.PaymentStateCancelled:
			stats.Cancelled++
		}
		if p.IsOverdue(now) {
			stats.Overdue++
		}
	}
	stats.TotalPaid = domain.Round2(stats.TotalPaid)
	return stats, nil
}
