package service

import (
	"context"
	"testing"
	"time"

	"gymvida/gym-manager/internal/domain"
	"gymvida/gym-manager/internal/repository"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

type contractFixture struct {
	svc       ContractService
	contracts *fakeContractRepo
	clients   *fakeClientRepo
	plans     *fakePlanRepo
	client    *domain.Client
	plan      *domain.Plan
}

func newContractFixture(t *testing.T) *contractFixture {
	t.Helper()
	f := &contractFixture{
		contracts: newFakeContractRepo(),
		clients:   newFakeClientRepo(),
		plans:     newFakePlanRepo(),
	}
	f.svc = NewContractService(f.contracts, f.clients, f.plans, noopTxnManager{})

	client, err := domain.NewClient("Cliente", "c@gym.test", "", "intermedio")
	require.NoError(t, err)
	f.client = f.clients.put(client)

	plan, err := domain.NewPlan("Plan", 6, "intermedio")
	require.NoError(t, err)
	f.plan = f.plans.put(plan)
	return f
}

func TestContractCreate(t *testing.T) {
	f := newContractFixture(t)
	ctx := context.Background()
	start := time.Now().UTC()

	contract, err := f.svc.Create(ctx, f.client.ID, f.plan.ID, 1500.005, start, 6)
	require.NoError(t, err)

	assert.Equal(t, domain.ContractStateActive, contract.State)
	assert.Equal(t, 1500.01, contract.Price)
	assert.Equal(t, domain.AddCalendarMonths(start, 6), contract.EndDate)
}

func TestContractCreateRejectsDuplicateActive(t *testing.T) {
	f := newContractFixture(t)
	ctx := context.Background()

	first, err := f.svc.Create(ctx, f.client.ID, f.plan.ID, 1000, time.Now().UTC(), 6)
	require.NoError(t, err)

	_, err = f.svc.Create(ctx, f.client.ID, f.plan.ID, 1200, time.Now().UTC(), 3)
	var conflictErr *domain.ConflictError
	require.ErrorAs(t, err, &conflictErr)

	// After cancelling the first, a new contract for the same pair is fine.
	_, err = f.svc.Cancel(ctx, first.ID)
	require.NoError(t, err)
	_, err = f.svc.Create(ctx, f.client.ID, f.plan.ID, 1200, time.Now().UTC(), 3)
	assert.NoError(t, err)
}

func TestContractCreateMapsIndexDuplicate(t *testing.T) {
	f := newContractFixture(t)
	ctx := context.Background()

	// Simulates the partial unique index catching a concurrent insert that
	// the pre-check missed.
	f.contracts.createErr = repository.ErrDuplicate

	_, err := f.svc.Create(ctx, f.client.ID, f.plan.ID, 1000, time.Now().UTC(), 6)
	var conflictErr *domain.ConflictError
	assert.ErrorAs(t, err, &conflictErr)
}

func TestContractCreateRejectsUnknownReferences(t *testing.T) {
	f := newContractFixture(t)
	ctx := context.Background()
	var notFoundErr *domain.NotFoundError

	_, err := f.svc.Create(ctx, primitive.NewObjectID(), f.plan.ID, 1000, time.Now().UTC(), 6)
	assert.ErrorAs(t, err, &notFoundErr)

	_, err = f.svc.Create(ctx, f.client.ID, primitive.NewObjectID(), 1000, time.Now().UTC(), 6)
	assert.ErrorAs(t, err, &notFoundErr)
}

func TestContractCancelIsNotIdempotent(t *testing.T) {
	f := newContractFixture(t)
	ctx := context.Background()

	contract, err := f.svc.Create(ctx, f.client.ID, f.plan.ID, 1000, time.Now().UTC(), 6)
	require.NoError(t, err)

	cancelled, err := f.svc.Cancel(ctx, contract.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.ContractStateCancelled, cancelled.State)

	_, err = f.svc.Cancel(ctx, contract.ID)
	var conflictErr *domain.ConflictError
	assert.ErrorAs(t, err, &conflictErr, "cancelling twice is a conflict, not a no-op")
}

func TestContractExtendAdvancesEndDate(t *testing.T) {
	f := newContractFixture(t)
	ctx := context.Background()
	start := time.Date(2025, 1, 15, 0, 0, 0, 0, time.UTC)

	contract, err := f.svc.Create(ctx, f.client.ID, f.plan.ID, 3000, start, 12)
	require.NoError(t, err)

	extended, err := f.svc.Extend(ctx, contract.ID, 3)
	require.NoError(t, err)
	assert.Equal(t, 15, extended.DurationMonths)
	assert.Equal(t, time.Date(2026, 4, 15, 0, 0, 0, 0, time.UTC), extended.EndDate)

	stored, err := f.contracts.GetByID(ctx, contract.ID)
	require.NoError(t, err)
	assert.Equal(t, 15, stored.DurationMonths, "the extension must be persisted")
}

func TestContractExtendRejectsFinished(t *testing.T) {
	f := newContractFixture(t)
	ctx := context.Background()

	contract, err := f.svc.Create(ctx, f.client.ID, f.plan.ID, 1000, time.Now().UTC(), 6)
	require.NoError(t, err)
	_, err = f.svc.Finalize(ctx, contract.ID)
	require.NoError(t, err)

	_, err = f.svc.Extend(ctx, contract.ID, 2)
	var conflictErr *domain.ConflictError
	assert.ErrorAs(t, err, &conflictErr)
}

func TestContractDeleteRefusesActive(t *testing.T) {
	f := newContractFixture(t)
	ctx := context.Background()

	contract, err := f.svc.Create(ctx, f.client.ID, f.plan.ID, 1000, time.Now().UTC(), 6)
	require.NoError(t, err)

	var conflictErr *domain.ConflictError
	require.ErrorAs(t, f.svc.Delete(ctx, contract.ID), &conflictErr)

	_, err = f.svc.Cancel(ctx, contract.ID)
	require.NoError(t, err)
	require.NoError(t, f.svc.Delete(ctx, contract.ID))

	_, err = f.svc.GetByID(ctx, contract.ID)
	var notFoundErr *domain.NotFoundError
	assert.ErrorAs(t, err, &notFoundErr)
}

func TestContractListNearExpirationAndExpired(t *testing.T) {
	f := newContractFixture(t)
	ctx := context.Background()
	now := time.Now().UTC()

	// Ends in roughly one month.
	expiring, err := f.svc.Create(ctx, f.client.ID, f.plan.ID, 1000, now, 1)
	require.NoError(t, err)

	// Already past its end date.
	expired, err := domain.NewContract(f.client.ID, primitive.NewObjectID(), 500, now.AddDate(0, -3, 0), 2)
	require.NoError(t, err)
	f.contracts.put(expired)

	near, err := f.svc.ListNearExpiration(ctx, 45)
	require.NoError(t, err)
	ids := make(map[primitive.ObjectID]bool)
	for _, c := range near {
		ids[c.ID] = true
	}
	assert.True(t, ids[expiring.ID])

	past, err := f.svc.ListExpired(ctx)
	require.NoError(t, err)
	require.Len(t, past, 1)
	assert.Equal(t, expired.ID, past[0].ID)
}

func TestContractStats(t *testing.T) {
	f := newContractFixture(t)
	ctx := context.Background()

	c1, err := f.svc.Create(ctx, f.client.ID, f.plan.ID, 1000, time.Now().UTC(), 6)
	require.NoError(t, err)
	_, err = f.svc.Cancel(ctx, c1.ID)
	require.NoError(t, err)
	_, err = f.svc.Create(ctx, f.client.ID, f.plan.ID, 1000, time.Now().UTC(), 6)
	require.NoError(t, err)

	stats, err := f.svc.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(2), stats.Total)
	assert.Equal(t, int64(1), stats.Active)
	assert.Equal(t, int64(1), stats.Cancelled)
	assert.Equal(t, int64(0), stats.Finished)
}
