package repository

import (
	"context"
	"time"

	"gymvida/gym-manager/internal/domain"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Error constants for repository layer
var (
	ErrNotFound     = RepositoryError("not found")
	ErrDuplicate    = RepositoryError("duplicate key")
	ErrUpdateFailed = RepositoryError("update failed")
	ErrDeleteFailed = RepositoryError("delete failed")
)

// RepositoryError helps distinguish repository errors
type RepositoryError string

func (e RepositoryError) Error() string {
	return string(e)
}

// TransactionManager scopes a function to a single storage transaction.
// The context handed to fn must be used for every repository call inside;
// if fn returns an error the writes performed under that context are
// rolled back. Implementations without a native transaction primitive
// may run fn directly, in which case callers are expected to undo their
// first write explicitly when a later one fails.
type TransactionManager interface {
	WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error
}

// ClientRepository defines the interface for interacting with client data.
type ClientRepository interface {
	Create(ctx context.Context, client *domain.Client) (primitive.ObjectID, error)
	GetByID(ctx context.Context, id primitive.ObjectID) (*domain.Client, error)
	GetByEmail(ctx context.Context, email string) (*domain.Client, error)
	Update(ctx context.Context, client *domain.Client) error
	Delete(ctx context.Context, id primitive.ObjectID) error
	// Plan reference mutation primitives, consumed only by the lifecycle
	// orchestrator as one side of its dual writes.
	AddPlanRef(ctx context.Context, clientID, planID primitive.ObjectID) error
	RemovePlanRef(ctx context.Context, clientID, planID primitive.ObjectID) error
	HasPlanRef(ctx context.Context, clientID, planID primitive.ObjectID) (bool, error)
}

// PlanRepository defines the interface for interacting with plan data.
type PlanRepository interface {
	Create(ctx context.Context, plan *domain.Plan) (primitive.ObjectID, error)
	GetByID(ctx context.Context, id primitive.ObjectID) (*domain.Plan, error)
	GetByName(ctx context.Context, name string) (*domain.Plan, error)
	Update(ctx context.Context, plan *domain.Plan) error
	UpdateState(ctx context.Context, id primitive.ObjectID, state domain.PlanState) error
	Delete(ctx context.Context, id primitive.ObjectID) error
	// Client reference mutation primitives, the mirror side of the
	// client-side plan references.
	AddClientRef(ctx context.Context, planID, clientID primitive.ObjectID) error
	RemoveClientRef(ctx context.Context, planID, clientID primitive.ObjectID) error
	ListActive(ctx context.Context) ([]domain.Plan, error)
	ListByLevel(ctx context.Context, level domain.Level) ([]domain.Plan, error)
	ListByDurationRange(ctx context.Context, minMonths, maxMonths int) ([]domain.Plan, error)
	MostPopular(ctx context.Context, limit int64) ([]domain.Plan, error)
	CountByState(ctx context.Context) (map[domain.PlanState]int64, error)
}

// ContractRepository defines the interface for interacting with contract data.
type ContractRepository interface {
	Create(ctx context.Context, contract *domain.Contract) (primitive.ObjectID, error)
	GetByID(ctx context.Context, id primitive.ObjectID) (*domain.Contract, error)
	Update(ctx context.Context, contract *domain.Contract) error
	Delete(ctx context.Context, id primitive.ObjectID) error
	// FindActiveByClientAndPlan returns the vigente contract for the
	// (client, plan) pair, or ErrNotFound. The contracts collection backs
	// this with a partial unique index so the check-then-insert sequence
	// cannot admit two vigente contracts under concurrent writers.
	FindActiveByClientAndPlan(ctx context.Context, clientID, planID primitive.ObjectID) (*domain.Contract, error)
	GetByClientID(ctx context.Context, clientID primitive.ObjectID) ([]domain.Contract, error)
	GetActiveByClientID(ctx context.Context, clientID primitive.ObjectID) ([]domain.Contract, error)
	CountActiveByPlanID(ctx context.Context, planID primitive.ObjectID) (int64, error)
	GetByDateRange(ctx context.Context, start, end time.Time) ([]domain.Contract, error)
	GetExpiringBefore(ctx context.Context, deadline time.Time) ([]domain.Contract, error)
	GetExpired(ctx context.Context, now time.Time) ([]domain.Contract, error)
	CountByState(ctx context.Context) (map[domain.ContractState]int64, error)
}

// PaymentRepository defines the interface for interacting with payment data.
type PaymentRepository interface {
	Create(ctx context.Context, payment *domain.Payment) (primitive.ObjectID, error)
	GetByID(ctx context.Context, id primitive.ObjectID) (*domain.Payment, error)
	Update(ctx context.Context, payment *domain.Payment) error
	Delete(ctx context.Context, id primitive.ObjectID) error
	// GetByDateRange returns committed payments with fechaPago inside
	// [start, end]. Zero start or end leaves that bound open; a nil
	// clientID disables the client filter.
	GetByDateRange(ctx context.Context, start, end time.Time, clientID *primitive.ObjectID) ([]domain.Payment, error)
	TopByAmount(ctx context.Context, limit int64, movement *domain.Movement) ([]domain.Payment, error)
}

// ProgressLogRepository defines the interface for interacting with
// progress log data.
type ProgressLogRepository interface {
	Create(ctx context.Context, log *domain.ProgressLog) (primitive.ObjectID, error)
	GetByClientID(ctx context.Context, clientID primitive.ObjectID) ([]domain.ProgressLog, error)
	GetByClientAndPlan(ctx context.Context, clientID, planID primitive.ObjectID) ([]domain.ProgressLog, error)
	// DeleteByClientAndPlan removes every log for the (client, plan)
	// relationship and reports how many were removed. Used as the
	// cascade's compensating cleanup.
	DeleteByClientAndPlan(ctx context.Context, clientID, planID primitive.ObjectID) (int64, error)
}

// UserRepository defines the interface for interacting with staff user data.
type UserRepository interface {
	Create(ctx context.Context, user *domain.User) (primitive.ObjectID, error)
	GetByEmail(ctx context.Context, email string) (*domain.User, error)
	GetByID(ctx context.Context, id primitive.ObjectID) (*domain.User, error)
}
