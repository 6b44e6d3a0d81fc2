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

// ContractStats summarizes the contracts collection per lifecycle state.
type ContractStats struct {
	Total     int64 `json:"total"`
	Active    int64 `json:"vigentes"`
	Cancelled int64 `json:"cancelados"`
	Finished  int64 `json:"finalizados"`
}

// --- Service Interface ---
type ContractService interface {
	Create(ctx context.Context, clientID, planID primitive.ObjectID, price float64, startDate time.Time, durationMonths int) (*domain.Contract, error)
	GetByID(ctx context.Context, id primitive.ObjectID) (*domain.Contract, error)
	Cancel(ctx context.Context, id primitive.ObjectID) (*domain.Contract, error)
	Extend(ctx context.Context, id primitive.ObjectID, months int) (*domain.Contract, error)
	Finalize(ctx context.Context, id primitive.ObjectID) (*domain.Contract, error)
	Delete(ctx context.Context, id primitive.ObjectID) error
	ListByClient(ctx context.Context, clientID primitive.ObjectID) ([]domain.Contract, error)
	ListActiveByClient(ctx context.Context, clientID primitive.ObjectID) ([]domain.Contract, error)
	ListByDateRange(ctx context.Context, start, end time.Time) ([]domain.Contract, error)
	ListNearExpiration(ctx context.Context, days int) ([]domain.Contract, error)
	ListExpired(ctx context.Context) ([]domain.Contract, error)
	Stats(ctx context.Context) (*ContractStats, error)
}

// --- Service Implementation ---

// contractService implements the ContractService interface.
type contractService struct {
	contractRepo repository.ContractRepository
	clientRepo   repository.ClientRepository
	planRepo     repository.PlanRepository
	txnManager   repository.TransactionManager
}

// NewContractService creates a new instance of contractService.
func NewContractService(
	contractRepo repository.ContractRepository,
	clientRepo repository.ClientRepository,
	planRepo repository.PlanRepository,
	txnManager repository.TransactionManager,
) ContractService {
	return &contractService{
		contractRepo: contractRepo,
		clientRepo:   clientRepo,
		planRepo:     planRepo,
		txnManager:   txnManager,
	}
}

// Create validates a new contract, verifies both referenced entities
// exist, and inserts it under the uniqueness guard: the check for an
// existing vigente contract and the insert run in one transaction scope,
// and the contracts collection's partial unique index closes the
// remaining concurrent-writer window.
func (s *contractService) Create(ctx context.Context, clientID, planID primitive.ObjectID, price float64, startDate time.Time, durationMonths int) (*domain.Contract, error) {
	contract, err := domain.NewContract(clientID, planID, price, startDate, durationMonths)
	if err != nil {
		return nil, err
	}

	if _, err := s.loadClient(ctx, clientID); err != nil {
		return nil, err
	}
	if _, err := s.loadPlan(ctx, planID); err != nil {
		return nil, err
	}

	err = s.txnManager.WithTransaction(ctx, func(ctx context.Context) error {
		_, err := s.contractRepo.FindActiveByClientAndPlan(ctx, clientID, planID)
		if err == nil {
			return domain.NewConflictError("duplicate active contract for client %s and plan %s", clientID.Hex(), planID.Hex())
		}
		if !errors.Is(err, repository.ErrNotFound) {
			return fmt.Errorf("contract uniqueness check: %w", err)
		}

		if _, err := s.contractRepo.Create(ctx, contract); err != nil {
			if errors.Is(err, repository.ErrDuplicate) {
				// The partial index caught a concurrent insert.
				return domain.NewConflictError("duplicate active contract for client %s and plan %s", clientID.Hex(), planID.Hex())
			}
			return fmt.Errorf("contract insert: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	return s.contractRepo.GetByID(ctx, contract.ID)
}

// GetByID retrieves a single contract.
func (s *contractService) GetByID(ctx context.Context, id primitive.ObjectID) (*domain.Contract, error) {
	contract, err := s.contractRepo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, &domain.NotFoundError{Entity: "contract", ID: id.Hex()}
		}
		return nil, fmt.Errorf("contract lookup: %w", err)
	}
	return contract, nil
}

// Cancel moves a vigente contract to cancelado. Cancelling an already
// cancelled contract fails with a ConflictError from the transition table.
func (s *contractService) Cancel(ctx context.Context, id primitive.ObjectID) (*domain.Contract, error) {
	return s.transition(ctx, id, domain.ContractStateCancelled)
}

// Finalize moves a vigente contract to its terminal finalizado state.
func (s *contractService) Finalize(ctx context.Context, id primitive.ObjectID) (*domain.Contract, error) {
	return s.transition(ctx, id, domain.ContractStateFinished)
}

func (s *contractService) transition(ctx context.Context, id primitive.ObjectID, target domain.ContractState) (*domain.Contract, error) {
	contract, err := s.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if err := contract.TransitionTo(target); err != nil {
		return nil, err
	}

	if err := s.contractRepo.Update(ctx, contract); err != nil {
		return nil, fmt.Errorf("contract update: %w", err)
	}
	return contract, nil
}

// Extend adds months to a vigente contract, advancing fechaFin by
// calendar months.
func (s *contractService) Extend(ctx context.Context, id primitive.ObjectID, months int) (*domain.Contract, error) {
	contract, err := s.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if err := contract.Extend(months); err != nil {
		return nil, err
	}

	if err := s.contractRepo.Update(ctx, contract); err != nil {
		return nil, fmt.Errorf("contract update: %w", err)
	}
	return contract, nil
}

// Delete removes a non-vigente contract. A vigente contract must be
// cancelled first, never deleted directly.
func (s *contractService) Delete(ctx context.Context, id primitive.ObjectID) error {
	contract, err := s.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if contract.IsActive() {
		return domain.NewConflictError("a vigente contract cannot be deleted, cancel it first")
	}

	if err := s.contractRepo.Delete(ctx, id); err != nil {
		return fmt.Errorf("contract delete: %w", err)
	}
	return nil
}

// ListByClient retrieves all contracts for a client.
func (s *contractService) ListByClient(ctx context.Context, clientID primitive.ObjectID) ([]domain.Contract, error) {
	contracts, err := s.contractRepo.GetByClientID(ctx, clientID)
	if err != nil {
		return nil, fmt.Errorf("contract list by client: %w", err)
	}
	return contracts, nil
}

// ListActiveByClient retrieves a client's vigente contracts.
func (s *contractService) ListActiveByClient(ctx context.Context, clientID primitive.ObjectID) ([]domain.Contract, error) {
	contracts, err := s.contractRepo.GetActiveByClientID(ctx, clientID)
	if err != nil {
		return nil, fmt.Errorf("contract list active by client: %w", err)
	}
	return contracts, nil
}

// ListByDateRange retrieves contracts starting inside [start, end].
func (s *contractService) ListByDateRange(ctx context.Context, start, end time.Time) ([]domain.Contract, error) {
	if end.Before(start) {
		return nil, domain.NewValidationError("fechaFin", "range end must not precede range start")
	}
	contracts, err := s.contractRepo.GetByDateRange(ctx, start, end)
	if err != nil {
		return nil, fmt.Errorf("contract list by date range: %w", err)
	}
	return contracts, nil
}

// ListNearExpiration retrieves vigente contracts ending within the next
// N days.
func (s *contractService) ListNearExpiration(ctx context.Context, days int) ([]domain.Contract, error) {
	if days < 1 {
		return nil, domain.NewValidationError("dias", "must be at least 1")
	}
	deadline := time.Now().UTC().AddDate(0, 0, days)
	contracts, err := s.contractRepo.GetExpiringBefore(ctx, deadline)
	if err != nil {
		return nil, fmt.Errorf("contract list near expiration: %w", err)
	}
	return contracts, nil
}

// ListExpired retrieves vigente contracts whose period has already
// elapsed.
func (s *contractService) ListExpired(ctx context.Context) ([]domain.Contract, error) {
	contracts, err := s.contractRepo.GetExpired(ctx, time.Now().UTC())
	if err != nil {
		return nil, fmt.Errorf("contract list expired: %w", err)
	}
	return contracts, nil
}

// Stats reports contract counts per lifecycle state.
func (s *contractService) Stats(ctx context.Context) (*ContractStats, error) {
	counts, err := s.contractRepo.CountByState(ctx)
	if err != nil {
		return nil, fmt.Errorf("contract stats: %w", err)
	}

	stats := &ContractStats{
		Active:    counts[domain.ContractStateActive],
		Cancelled: counts[domain.ContractStateCancelled],
		Finished:  counts[domain.ContractStateFinished],
	}
	stats.Total = stats.Active + stats.Cancelled + stats.Finished
	return stats, nil
}

func (s *contractService) loadClient(ctx context.Context, id primitive.ObjectID) (*domain.Client, error) {
	client, err := s.clientRepo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, &domain.NotFoundError{Entity: "client", ID: id.Hex()}
		}
		return nil, &domain.DependencyError{Entity: "client", Err: err}
	}
	return client, nil
}

func (s *contractService) loadPlan(ctx context.Context, id primitive.ObjectID) (*domain.Plan, error) {
	plan, err := s.planRepo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, &domain.NotFoundError{Entity: "plan", ID: id.Hex()}
		}
		return nil, &domain.DependencyError{Entity: "plan", Err: err}
	}
	return plan, nil
}
