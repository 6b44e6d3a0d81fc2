package service

import (
	"context"
	"errors"
	"fmt"

	"gymvida/gym-manager/internal/domain"
	"gymvida/gym-manager/internal/repository"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// --- Service Interface ---
type ClientService interface {
	Register(ctx context.Context, name, email, phone, level string) (*domain.Client, error)
	GetByID(ctx context.Context, id primitive.ObjectID) (*domain.Client, error)
	Update(ctx context.Context, id primitive.ObjectID, name, phone, level string, active bool) (*domain.Client, error)
	Delete(ctx context.Context, id primitive.ObjectID) error
}

// --- Service Implementation ---

// clientService implements the ClientService interface.
type clientService struct {
	clientRepo   repository.ClientRepository
	contractRepo repository.ContractRepository
}

// NewClientService creates a new instance of clientService.
func NewClientService(clientRepo repository.ClientRepository, contractRepo repository.ContractRepository) ClientService {
	return &clientService{
		clientRepo:   clientRepo,
		contractRepo: contractRepo,
	}
}

// Register validates and stores a new client.
func (s *clientService) Register(ctx context.Context, name, email, phone, level string) (*domain.Client, error) {
	client, err := domain.NewClient(name, email, phone, level)
	if err != nil {
		return nil, err
	}

	_, err = s.clientRepo.GetByEmail(ctx, client.Email)
	if err == nil {
		return nil, domain.NewConflictError("a client with email %s already exists", client.Email)
	}
	if !errors.Is(err, repository.ErrNotFound) {
		return nil, fmt.Errorf("client email check: %w", err)
	}

	if _, err := s.clientRepo.Create(ctx, client); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, domain.NewConflictError("a client with email %s already exists", client.Email)
		}
		return nil, fmt.Errorf("client insert: %w", err)
	}

	return s.clientRepo.GetByID(ctx, client.ID)
}

// GetByID retrieves a single client.
func (s *clientService) GetByID(ctx context.Context, id primitive.ObjectID) (*domain.Client, error) {
	client, err := s.clientRepo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, &domain.NotFoundError{Entity: "client", ID: id.Hex()}
		}
		return nil, fmt.Errorf("client lookup: %w", err)
	}
	return client, nil
}

// Update modifies a client's contact fields, level, or active flag. The
// email is the client's identity and never changes; plan references only
// move through the orchestrator's association operations.
func (s *clientService) Update(ctx context.Context, id primitive.ObjectID, name, phone, level string, active bool) (*domain.Client, error) {
	client, err := s.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	validated, err := domain.NewClient(name, client.Email, phone, level)
	if err != nil {
		return nil, err
	}

	client.Name = validated.Name
	client.Phone = validated.Phone
	client.Level = validated.Level
	client.Active = active

	if err := s.clientRepo.Update(ctx, client); err != nil {
		return nil, fmt.Errorf("client update: %w", err)
	}
	return client, nil
}

// Delete removes a client. Forbidden while the client holds any active
// contract.
func (s *clientService) Delete(ctx context.Context, id primitive.ObjectID) error {
	client, err := s.GetByID(ctx, id)
	if err != nil {
		return err
	}

	active, err := s.contractRepo.GetActiveByClientID(ctx, id)
	if err != nil {
		return &domain.DependencyError{Entity: "contract", Err: err}
	}
	if len(active) > 0 {
		return domain.NewConflictError("client %s still holds %d active contracts", client.Email, len(active))
	}

	if err := s.clientRepo.Delete(ctx, id); err != nil {
		return fmt.Errorf("client delete: %w", err)
	}
	return nil
}
