package service

import (
	"context"
	"errors"
	"fmt"
	"log"

	"gymvida/gym-manager/internal/domain"
	"gymvida/gym-manager/internal/repository"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// ProgressLogRemover is the cascade's only view of the progress
// subsystem. Keeping it an injected interface means the orchestrator has
// no compile-time dependency on that subsystem's internals and tests can
// substitute a fake.
type ProgressLogRemover interface {
	DeleteByClientAndPlan(ctx context.Context, clientID, planID primitive.ObjectID) (int64, error)
}

// ClientCascade is the two-phase outcome of one client's sub-cascade.
// The contract phase is strict: its error aborts that client's cascade.
// The compensation phase is best-effort: its error is recorded and
// logged but never reverses the contract phase.
type ClientCascade struct {
	ClientID primitive.ObjectID `json:"clienteId"`

	// Contract phase
	ContractID        *primitive.ObjectID `json:"contratoId,omitempty"`
	ContractCancelled bool                `json:"contratoCancelado"`
	ContractErr       error               `json:"-"`

	// Compensation phase
	LogsRemoved         int64 `json:"registrosEliminados"`
	CompensationSkipped bool  `json:"compensacionOmitida"`
	CompensationErr     error `json:"-"`
}

// CascadeResult reports the full outcome of a plan state change that
// reached into associated clients.
type CascadeResult struct {
	PlanID  primitive.ObjectID `json:"planId"`
	State   domain.PlanState   `json:"estado"`
	Clients []ClientCascade    `json:"clientes"`
}

// ContractFailures returns the sub-cascades whose strict phase failed.
func (r *CascadeResult) ContractFailures() []ClientCascade {
	var failed []ClientCascade
	for _, c := range r.Clients {
		if c.ContractErr != nil {
			failed = append(failed, c)
		}
	}
	return failed
}

// PlanStats summarizes the plans collection per lifecycle state.
type PlanStats struct {
	Total     int64 `json:"total"`
	Active    int64 `json:"activos"`
	Cancelled int64 `json:"cancelados"`
	Finished  int64 `json:"finalizados"`
}

// --- Service Interface ---
type PlanService interface {
	Create(ctx context.Context, name string, durationMonths int, level string) (*domain.Plan, error)
	GetByID(ctx context.Context, id primitive.ObjectID) (*domain.Plan, error)
	Update(ctx context.Context, id primitive.ObjectID, name string, durationMonths int, level string) (*domain.Plan, error)
	Delete(ctx context.Context, id primitive.ObjectID) error
	ChangeState(ctx context.Context, id primitive.ObjectID, newState string) (*CascadeResult, error)
	AssociateClient(ctx context.Context, planID, clientID primitive.ObjectID) error
	DisassociateClient(ctx context.Context, planID, clientID primitive.ObjectID) error
	ListActive(ctx context.Context) ([]domain.Plan, error)
	ListByLevel(ctx context.Context, level string) ([]domain.Plan, error)
	ListByDurationRange(ctx context.Context, minMonths, maxMonths int) ([]domain.Plan, error)
	MostPopular(ctx context.Context, limit int64) ([]domain.Plan, error)
	Stats(ctx context.Context) (*PlanStats, error)
}

// --- Service Implementation ---

// planService implements the PlanService interface. It is the lifecycle
// orchestrator: every cross-entity mutation involving plans runs through
// here, never through the gateways directly.
type planService struct {
	planRepo     repository.PlanRepository
	clientRepo   repository.ClientRepository
	contractRepo repository.ContractRepository
	progressLogs ProgressLogRemover
	txnManager   repository.TransactionManager
}

// NewPlanService creates a new instance of planService.
func NewPlanService(
	planRepo repository.PlanRepository,
	clientRepo repository.ClientRepository,
	contractRepo repository.ContractRepository,
	progressLogs ProgressLogRemover,
	txnManager repository.TransactionManager,
) PlanService {
	return &planService{
		planRepo:     planRepo,
		clientRepo:   clientRepo,
		contractRepo: contractRepo,
		progressLogs: progressLogs,
		txnManager:   txnManager,
	}
}

// Create validates a new plan and inserts it. Plan names are unique; the
// pre-check and the collection's unique index both report the collision
// as a ConflictError.
func (s *planService) Create(ctx context.Context, name string, durationMonths int, level string) (*domain.Plan, error) {
	plan, err := domain.NewPlan(name, durationMonths, level)
	if err != nil {
		return nil, err
	}

	_, err = s.planRepo.GetByName(ctx, plan.Name)
	if err == nil {
		return nil, domain.NewConflictError("a plan named %q already exists", plan.Name)
	}
	if !errors.Is(err, repository.ErrNotFound) {
		return nil, fmt.Errorf("plan name check: %w", err)
	}

	if _, err := s.planRepo.Create(ctx, plan); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, domain.NewConflictError("a plan named %q already exists", plan.Name)
		}
		return nil, fmt.Errorf("plan insert: %w", err)
	}

	return s.planRepo.GetByID(ctx, plan.ID)
}

// GetByID retrieves a single plan.
func (s *planService) GetByID(ctx context.Context, id primitive.ObjectID) (*domain.Plan, error) {
	plan, err := s.planRepo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, &domain.NotFoundError{Entity: "plan", ID: id.Hex()}
		}
		return nil, fmt.Errorf("plan lookup: %w", err)
	}
	return plan, nil
}

// Update modifies a plan's name, duration, or level.
func (s *planService) Update(ctx context.Context, id primitive.ObjectID, name string, durationMonths int, level string) (*domain.Plan, error) {
	validated, err := domain.NewPlan(name, durationMonths, level)
	if err != nil {
		return nil, err
	}

	plan, err := s.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if validated.Name != plan.Name {
		existing, err := s.planRepo.GetByName(ctx, validated.Name)
		if err == nil && existing.ID != plan.ID {
			return nil, domain.NewConflictError("a plan named %q already exists", validated.Name)
		}
		if err != nil && !errors.Is(err, repository.ErrNotFound) {
			return nil, fmt.Errorf("plan name check: %w", err)
		}
	}

	plan.Name = validated.Name
	plan.DurationMonths = validated.DurationMonths
	plan.Level = validated.Level

	if err := s.planRepo.Update(ctx, plan); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, domain.NewConflictError("a plan named %q already exists", plan.Name)
		}
		return nil, fmt.Errorf("plan update: %w", err)
	}
	return plan, nil
}

// Delete removes a plan. Only permitted once the plan has zero associated
// clients and zero active contracts.
func (s *planService) Delete(ctx context.Context, id primitive.ObjectID) error {
	plan, err := s.GetByID(ctx, id)
	if err != nil {
		return err
	}

	if len(plan.ClientIDs) > 0 {
		return domain.NewConflictError("plan %q still has %d associated clients", plan.Name, len(plan.ClientIDs))
	}

	active, err := s.contractRepo.CountActiveByPlanID(ctx, id)
	if err != nil {
		return &domain.DependencyError{Entity: "contract", Err: err}
	}
	if active > 0 {
		return domain.NewConflictError("plan %q still has %d active contracts", plan.Name, active)
	}

	if err := s.planRepo.Delete(ctx, id); err != nil {
		return fmt.Errorf("plan delete: %w", err)
	}
	return nil
}

// ChangeState moves a plan through its state machine. Entering cancelado
// or finalizado triggers the cross-entity cascade over every associated
// client. The plan document is moved first; per-client sub-cascades are
// independent units and never roll the plan state back.
func (s *planService) ChangeState(ctx context.Context, id primitive.ObjectID, newState string) (*CascadeResult, error) {
	target, ok := domain.ParsePlanState(newState)
	if !ok {
		return nil, domain.NewValidationError("estado", "must be one of activo, cancelado, finalizado")
	}

	plan, err := s.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if err := plan.TransitionTo(target); err != nil {
		return nil, err
	}

	if err := s.planRepo.UpdateState(ctx, id, target); err != nil {
		return nil, fmt.Errorf("plan state update: %w", err)
	}

	result := &CascadeResult{PlanID: id, State: target}
	if target == domain.PlanStateActive {
		// Reactivation has no dependent records to touch.
		return result, nil
	}

	for _, clientID := range plan.ClientIDs {
		result.Clients = append(result.Clients, s.cascadeClient(ctx, clientID, id))
	}
	return result, nil
}

// cascadeClient runs one client's sub-cascade: cancel the matching
// vigente contract (strict), then clean up the relationship's progress
// logs (best-effort). A strict-phase failure aborts this client's
// cascade only; a compensation failure is logged and recorded but never
// reverses the committed contract cancellation.
func (s *planService) cascadeClient(ctx context.Context, clientID, planID primitive.ObjectID) ClientCascade {
	entry := ClientCascade{ClientID: clientID}

	contracts, err := s.contractRepo.GetActiveByClientID(ctx, clientID)
	if err != nil {
		entry.ContractErr = &domain.DependencyError{Entity: "contract", Err: err}
		entry.CompensationSkipped = true
		return entry
	}

	var match *domain.Contract
	for i := range contracts {
		if contracts[i].PlanID == planID {
			match = &contracts[i]
			break
		}
	}

	if match != nil {
		if err := match.TransitionTo(domain.ContractStateCancelled); err != nil {
			entry.ContractErr = err
			entry.CompensationSkipped = true
			return entry
		}
		if err := s.contractRepo.Update(ctx, match); err != nil {
			entry.ContractErr = fmt.Errorf("cascade contract cancellation for client %s: %w", clientID.Hex(), err)
			entry.CompensationSkipped = true
			return entry
		}
		entry.ContractID = &match.ID
		entry.ContractCancelled = true
	}

	removed, err := s.progressLogs.DeleteByClientAndPlan(ctx, clientID, planID)
	if err != nil {
		entry.CompensationErr = &domain.CompensationError{Op: "progress log cleanup", Err: err}
		log.Printf("WARN: %v (client %s, plan %s)", entry.CompensationErr, clientID.Hex(), planID.Hex())
		return entry
	}
	entry.LogsRemoved = removed
	return entry
}

// AssociateClient binds a client to a plan. Guard sequence: plan exists
// and is activo, client exists, levels are compatible, not already
// associated. The two reference writes commit or fail together: they run
// in one transaction scope, and if the second write fails the first is
// explicitly undone so no deployment is left with one side written.
func (s *planService) AssociateClient(ctx context.Context, planID, clientID primitive.ObjectID) error {
	plan, err := s.GetByID(ctx, planID)
	if err != nil {
		return err
	}
	if !plan.IsActive() {
		return domain.NewConflictError("plan %q is %s, only activo plans accept clients", plan.Name, plan.State)
	}

	client, err := s.loadClient(ctx, clientID)
	if err != nil {
		return err
	}

	if !domain.LevelCompatible(client.Level, plan.Level) {
		return domain.NewConflictError("client level %s is not compatible with plan level %s", client.Level, plan.Level)
	}

	if plan.HasClientRef(clientID) || client.HasPlanRef(planID) {
		return domain.NewConflictError("client is already associated with plan %q", plan.Name)
	}

	return s.txnManager.WithTransaction(ctx, func(ctx context.Context) error {
		if err := s.planRepo.AddClientRef(ctx, planID, clientID); err != nil {
			return fmt.Errorf("association plan-side write: %w", err)
		}
		if err := s.clientRepo.AddPlanRef(ctx, clientID, planID); err != nil {
			// Undo the first write before surfacing; under a real
			// transaction this is redundant, under the passthrough
			// manager it is the only thing keeping both sides in sync.
			if undoErr := s.planRepo.RemoveClientRef(ctx, planID, clientID); undoErr != nil {
				log.Printf("ERROR: association rollback failed for plan %s, client %s: %v", planID.Hex(), clientID.Hex(), undoErr)
			}
			return fmt.Errorf("association client-side write: %w", err)
		}
		return nil
	})
}

// DisassociateClient removes the bidirectional reference pair. The
// client must hold no vigente contract for the plan; it has to be
// cancelled first.
func (s *planService) DisassociateClient(ctx context.Context, planID, clientID primitive.ObjectID) error {
	plan, err := s.GetByID(ctx, planID)
	if err != nil {
		return err
	}

	client, err := s.loadClient(ctx, clientID)
	if err != nil {
		return err
	}

	if !plan.HasClientRef(clientID) && !client.HasPlanRef(planID) {
		return domain.NewConflictError("client is not associated with plan %q", plan.Name)
	}

	_, err = s.contractRepo.FindActiveByClientAndPlan(ctx, clientID, planID)
	if err == nil {
		return domain.NewConflictError("client still holds a vigente contract for plan %q, cancel it first", plan.Name)
	}
	if !errors.Is(err, repository.ErrNotFound) {
		return &domain.DependencyError{Entity: "contract", Err: err}
	}

	return s.txnManager.WithTransaction(ctx, func(ctx context.Context) error {
		if err := s.planRepo.RemoveClientRef(ctx, planID, clientID); err != nil {
			return fmt.Errorf("disassociation plan-side write: %w", err)
		}
		if err := s.clientRepo.RemovePlanRef(ctx, clientID, planID); err != nil {
			if undoErr := s.planRepo.AddClientRef(ctx, planID, clientID); undoErr != nil {
				log.Printf("ERROR: disassociation rollback failed for plan %s, client %s: %v", planID.Hex(), clientID.Hex(), undoErr)
			}
			return fmt.Errorf("disassociation client-side write: %w", err)
		}
		return nil
	})
}

// ListActive retrieves all activo plans.
func (s *planService) ListActive(ctx context.Context) ([]domain.Plan, error) {
	plans, err := s.planRepo.ListActive(ctx)
	if err != nil {
		return nil, fmt.Errorf("plan list active: %w", err)
	}
	return plans, nil
}

// ListByLevel retrieves all plans for a level.
func (s *planService) ListByLevel(ctx context.Context, level string) ([]domain.Plan, error) {
	parsed, ok := domain.ParseLevel(level)
	if !ok {
		return nil, domain.NewValidationError("nivel", "must be one of principiante, intermedio, avanzado")
	}
	plans, err := s.planRepo.ListByLevel(ctx, parsed)
	if err != nil {
		return nil, fmt.Errorf("plan list by level: %w", err)
	}
	return plans, nil
}

// ListByDurationRange retrieves plans by duration bounds in months.
func (s *planService) ListByDurationRange(ctx context.Context, minMonths, maxMonths int) ([]domain.Plan, error) {
	if minMonths < 0 || maxMonths < minMonths {
		return nil, domain.NewValidationError("duracionMeses", "invalid duration range")
	}
	plans, err := s.planRepo.ListByDurationRange(ctx, minMonths, maxMonths)
	if err != nil {
		return nil, fmt.Errorf("plan list by duration: %w", err)
	}
	return plans, nil
}

// MostPopular retrieves the plans with the most associated clients.
func (s *planService) MostPopular(ctx context.Context, limit int64) ([]domain.Plan, error) {
	if limit < 1 {
		return nil, domain.NewValidationError("limite", "must be at least 1")
	}
	plans, err := s.planRepo.MostPopular(ctx, limit)
	if err != nil {
		return nil, fmt.Errorf("plan most popular: %w", err)
	}
	return plans, nil
}

// Stats reports plan counts per lifecycle state.
func (s *planService) Stats(ctx context.Context) (*PlanStats, error) {
	counts, err := s.planRepo.CountByState(ctx)
	if err != nil {
		return nil, fmt.Errorf("plan stats: %w", err)
	}

	stats := &PlanStats{
		Active:    counts[domain.PlanStateActive],
		Cancelled: counts[domain.PlanStateCancelled],
		Finished:  counts[domain.PlanStateFinished],
	}
	stats.Total = stats.Active + stats.Cancelled + stats.Finished
	return stats, nil
}

func (s *planService) loadClient(ctx context.Context, id primitive.ObjectID) (*domain.Client, error) {
	client, err := s.clientRepo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, &domain.NotFoundError{Entity: "client", ID: id.Hex()}
		}
		return nil, &domain.DependencyError{Entity: "client", Err: err}
	}
	return client, nil
}
