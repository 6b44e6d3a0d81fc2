package service

import (
	"context"
	"sort"
	"time"

	"gymvida/gym-manager/internal/domain"
	"gymvida/gym-manager/internal/repository"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// In-memory fakes for the repository interfaces. They copy on read and
// write so a service mutation only sticks once Update is called, the same
// contract the mongo repositories give.

// --- transaction manager ---

type noopTxnManager struct{}

func (noopTxnManager) WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	return fn(ctx)
}

// --- clients ---

type fakeClientRepo struct {
	clients       map[primitive.ObjectID]domain.Client
	addPlanRefErr error
}

func newFakeClientRepo() *fakeClientRepo {
	return &fakeClientRepo{clients: make(map[primitive.ObjectID]domain.Client)}
}

func (f *fakeClientRepo) put(c *domain.Client) *domain.Client {
	if c.ID.IsZero() {
		c.ID = primitive.NewObjectID()
	}
	f.clients[c.ID] = *c
	return c
}

func (f *fakeClientRepo) Create(ctx context.Context, client *domain.Client) (primitive.ObjectID, error) {
	f.put(client)
	return client.ID, nil
}

func (f *fakeClientRepo) GetByID(ctx context.Context, id primitive.ObjectID) (*domain.Client, error) {
	c, ok := f.clients[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	copy := c
	return &copy, nil
}

func (f *fakeClientRepo) GetByEmail(ctx context.Context, email string) (*domain.Client, error) {
	for _, c := range f.clients {
		if c.Email == email {
			copy := c
			return &copy, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (f *fakeClientRepo) Update(ctx context.Context, client *domain.Client) error {
	if _, ok := f.clients[client.ID]; !ok {
		return repository.ErrNotFound
	}
	f.clients[client.ID] = *client
	return nil
}

func (f *fakeClientRepo) Delete(ctx context.Context, id primitive.ObjectID) error {
	if _, ok := f.clients[id]; !ok {
		return repository.ErrNotFound
	}
	delete(f.clients, id)
	return nil
}

func (f *fakeClientRepo) AddPlanRef(ctx context.Context, clientID, planID primitive.ObjectID) error {
	if f.addPlanRefErr != nil {
		return f.addPlanRefErr
	}
	c, ok := f.clients[clientID]
	if !ok {
		return repository.ErrNotFound
	}
	if !c.HasPlanRef(planID) {
		c.PlanIDs = append(c.PlanIDs, planID)
	}
	f.clients[clientID] = c
	return nil
}

func (f *fakeClientRepo) RemovePlanRef(ctx context.Context, clientID, planID primitive.ObjectID) error {
	c, ok := f.clients[clientID]
	if !ok {
		return repository.ErrNotFound
	}
	refs := c.PlanIDs[:0]
	for _, id := range c.PlanIDs {
		if id != planID {
			refs = append(refs, id)
		}
	}
	c.PlanIDs = refs
	f.clients[clientID] = c
	return nil
}

func (f *fakeClientRepo) HasPlanRef(ctx context.Context, clientID, planID primitive.ObjectID) (bool, error) {
	c, ok := f.clients[clientID]
	if !ok {
		return false, repository.ErrNotFound
	}
	return c.HasPlanRef(planID), nil
}

// --- plans ---

type fakePlanRepo struct {
	plans map[primitive.ObjectID]domain.Plan
}

func newFakePlanRepo() *fakePlanRepo {
	return &fakePlanRepo{plans: make(map[primitive.ObjectID]domain.Plan)}
}

func (f *fakePlanRepo) put(p *domain.Plan) *domain.Plan {
	if p.ID.IsZero() {
		p.ID = primitive.NewObjectID()
	}
	f.plans[p.ID] = *p
	return p
}

func (f *fakePlanRepo) Create(ctx context.Context, plan *domain.Plan) (primitive.ObjectID, error) {
	for _, existing := range f.plans {
		if existing.Name == plan.Name {
			return primitive.NilObjectID, repository.ErrDuplicate
		}
	}
	f.put(plan)
	return plan.ID, nil
}

func (f *fakePlanRepo) GetByID(ctx context.Context, id primitive.ObjectID) (*domain.Plan, error) {
	p, ok := f.plans[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	copy := p
	return &copy, nil
}

func (f *fakePlanRepo) GetByName(ctx context.Context, name string) (*domain.Plan, error) {
	for _, p := range f.plans {
		if p.Name == name {
			copy := p
			return &copy, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (f *fakePlanRepo) Update(ctx context.Context, plan *domain.Plan) error {
	if _, ok := f.plans[plan.ID]; !ok {
		return repository.ErrNotFound
	}
	f.plans[plan.ID] = *plan
	return nil
}

func (f *fakePlanRepo) UpdateState(ctx context.Context, id primitive.ObjectID, state domain.PlanState) error {
	p, ok := f.plans[id]
	if !ok {
		return repository.ErrNotFound
	}
	p.State = state
	f.plans[id] = p
	return nil
}

func (f *fakePlanRepo) Delete(ctx context.Context, id primitive.ObjectID) error {
	if _, ok := f.plans[id]; !ok {
		return repository.ErrNotFound
	}
	delete(f.plans, id)
	return nil
}

func (f *fakePlanRepo) AddClientRef(ctx context.Context, planID, clientID primitive.ObjectID) error {
	p, ok := f.plans[planID]
	if !ok {
		return repository.ErrNotFound
	}
	if !p.HasClientRef(clientID) {
		p.ClientIDs = append(p.ClientIDs, clientID)
	}
	f.plans[planID] = p
	return nil
}

func (f *fakePlanRepo) RemoveClientRef(ctx context.Context, planID, clientID primitive.ObjectID) error {
	p, ok := f.plans[planID]
	if !ok {
		return repository.ErrNotFound
	}
	refs := p.ClientIDs[:0]
	for _, id := range p.ClientIDs {
		if id != clientID {
			refs = append(refs, id)
		}
	}
	p.ClientIDs = refs
	f.plans[planID] = p
	return nil
}

func (f *fakePlanRepo) ListActive(ctx context.Context) ([]domain.Plan, error) {
	var out []domain.Plan
	for _, p := range f.plans {
		if p.State == domain.PlanStateActive {
			out = append(out, p)
		}
	}
	return out, nil
}

func (f *fakePlanRepo) ListByLevel(ctx context.Context, level domain.Level) ([]domain.Plan, error) {
	var out []domain.Plan
	for _, p := range f.plans {
		if p.Level == level {
			out = append(out, p)
		}
	}
	return out, nil
}

func (f *fakePlanRepo) ListByDurationRange(ctx context.Context, minMonths, maxMonths int) ([]domain.Plan, error) {
	var out []domain.Plan
	for _, p := range f.plans {
		if p.DurationMonths >= minMonths && p.DurationMonths <= maxMonths {
			out = append(out, p)
		}
	}
	return out, nil
}

func (f *fakePlanRepo) MostPopular(ctx context.Context, limit int64) ([]domain.Plan, error) {
	var out []domain.Plan
	for _, p := range f.plans {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool {
		return len(out[i].ClientIDs) > len(out[j].ClientIDs)
	})
	if int64(len(out)) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (f *fakePlanRepo) CountByState(ctx context.Context) (map[domain.PlanState]int64, error) {
	counts := make(map[domain.PlanState]int64)
	for _, p := range f.plans {
		counts[p.State]++
	}
	return counts, nil
}

// --- contracts ---

type fakeContractRepo struct {
	contracts map[primitive.ObjectID]domain.Contract
	// getActiveErrFor simulates a repository failure when loading one
	// client's active contracts, for cascade isolation tests.
	getActiveErrFor map[primitive.ObjectID]error
	createErr       error
}

func newFakeContractRepo() *fakeContractRepo {
	return &fakeContractRepo{
		contracts:       make(map[primitive.ObjectID]domain.Contract),
		getActiveErrFor: make(map[primitive.ObjectID]error),
	}
}

func (f *fakeContractRepo) put(c *domain.Contract) *domain.Contract {
	if c.ID.IsZero() {
		c.ID = primitive.NewObjectID()
	}
	f.contracts[c.ID] = *c
	return c
}

func (f *fakeContractRepo) Create(ctx context.Context, contract *domain.Contract) (primitive.ObjectID, error) {
	if f.createErr != nil {
		return primitive.NilObjectID, f.createErr
	}
	f.put(contract)
	return contract.ID, nil
}

func (f *fakeContractRepo) GetByID(ctx context.Context, id primitive.ObjectID) (*domain.Contract, error) {
	c, ok := f.contracts[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	copy := c
	return &copy, nil
}

func (f *fakeContractRepo) Update(ctx context.Context, contract *domain.Contract) error {
	if _, ok := f.contracts[contract.ID]; !ok {
		return repository.ErrNotFound
	}
	f.contracts[contract.ID] = *contract
	return nil
}

func (f *fakeContractRepo) Delete(ctx context.Context, id primitive.ObjectID) error {
	c, ok := f.contracts[id]
	if !ok || c.IsActive() {
		return repository.ErrDeleteFailed
	}
	delete(f.contracts, id)
	return nil
}

func (f *fakeContractRepo) FindActiveByClientAndPlan(ctx context.Context, clientID, planID primitive.ObjectID) (*domain.Contract, error) {
	for _, c := range f.contracts {
		if c.ClientID == clientID && c.PlanID == planID && c.IsActive() {
			copy := c
			return &copy, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (f *fakeContractRepo) GetByClientID(ctx context.Context, clientID primitive.ObjectID) ([]domain.Contract, error) {
	var out []domain.Contract
	for _, c := range f.contracts {
		if c.ClientID == clientID {
			out = append(out, c)
		}
	}
	return out, nil
}

func (f *fakeContractRepo) GetActiveByClientID(ctx context.Context, clientID primitive.ObjectID) ([]domain.Contract, error) {
	if err := f.getActiveErrFor[clientID]; err != nil {
		return nil, err
	}
	var out []domain.Contract
	for _, c := range f.contracts {
		if c.ClientID == clientID && c.IsActive() {
			out = append(out, c)
		}
	}
	return out, nil
}

func (f *fakeContractRepo) CountActiveByPlanID(ctx context.Context, planID primitive.ObjectID) (int64, error) {
	var n int64
	for _, c := range f.contracts {
		if c.PlanID == planID && c.IsActive() {
			n++
		}
	}
	return n, nil
}

func (f *fakeContractRepo) GetByDateRange(ctx context.Context, start, end time.Time) ([]domain.Contract, error) {
	var out []domain.Contract
	for _, c := range f.contracts {
		if !c.StartDate.Before(start) && !c.StartDate.After(end) {
			out = append(out, c)
		}
	}
	return out, nil
}

func (f *fakeContractRepo) GetExpiringBefore(ctx context.Context, deadline time.Time) ([]domain.Contract, error) {
	var out []domain.Contract
	for _, c := range f.contracts {
		if c.IsActive() && c.EndDate.Before(deadline) {
			out = append(out, c)
		}
	}
	return out, nil
}

func (f *fakeContractRepo) GetExpired(ctx context.Context, now time.Time) ([]domain.Contract, error) {
	var out []domain.Contract
	for _, c := range f.contracts {
		if c.IsActive() && c.IsExpired(now) {
			out = append(out, c)
		}
	}
	return out, nil
}

func (f *fakeContractRepo) CountByState(ctx context.Context) (map[domain.ContractState]int64, error) {
	counts := make(map[domain.ContractState]int64)
	for _, c := range f.contracts {
		counts[c.State]++
	}
	return counts, nil
}

// --- payments ---

type fakePaymentRepo struct {
	payments map[primitive.ObjectID]domain.Payment
}

func newFakePaymentRepo() *fakePaymentRepo {
	return &fakePaymentRepo{payments: make(map[primitive.ObjectID]domain.Payment)}
}

func (f *fakePaymentRepo) put(p *domain.Payment) *domain.Payment {
	if p.ID.IsZero() {
		p.ID = primitive.NewObjectID()
	}
	f.payments[p.ID] = *p
	return p
}

func (f *fakePaymentRepo) Create(ctx context.Context, payment *domain.Payment) (primitive.ObjectID, error) {
	f.put(payment)
	return payment.ID, nil
}

func (f *fakePaymentRepo) GetByID(ctx context.Context, id primitive.ObjectID) (*domain.Payment, error) {
	p, ok := f.payments[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	copy := p
	return &copy, nil
}

func (f *fakePaymentRepo) Update(ctx context.Context, payment *domain.Payment) error {
	if _, ok := f.payments[payment.ID]; !ok {
		return repository.ErrNotFound
	}
	f.payments[payment.ID] = *payment
	return nil
}

func (f *fakePaymentRepo) Delete(ctx context.Context, id primitive.ObjectID) error {
	if _, ok := f.payments[id]; !ok {
		return repository.ErrNotFound
	}
	delete(f.payments, id)
	return nil
}

func (f *fakePaymentRepo) GetByDateRange(ctx context.Context, start, end time.Time, clientID *primitive.ObjectID) ([]domain.Payment, error) {
	var out []domain.Payment
	for _, p := range f.payments {
		if !start.IsZero() && p.PaidAt.Before(start) {
			continue
		}
		if !end.IsZero() && p.PaidAt.After(end) {
			continue
		}
		if clientID != nil && (p.ClientID == nil || *p.ClientID != *clientID) {
			continue
		}
		out = append(out, p)
	}
	return out, nil
}

func (f *fakePaymentRepo) TopByAmount(ctx context.Context, limit int64, movement *domain.Movement) ([]domain.Payment, error) {
	var out []domain.Payment
	for _, p := range f.payments {
		if movement != nil && p.Movement != *movement {
			continue
		}
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Amount > out[j].Amount })
	if int64(len(out)) > limit {
		out = out[:limit]
	}
	return out, nil
}

// --- progress log remover ---

type fakeProgressRemover struct {
	// counts keyed by client then plan.
	counts map[primitive.ObjectID]map[primitive.ObjectID]int64
	errFor map[primitive.ObjectID]error
}

func newFakeProgressRemover() *fakeProgressRemover {
	return &fakeProgressRemover{
		counts: make(map[primitive.ObjectID]map[primitive.ObjectID]int64),
		errFor: make(map[primitive.ObjectID]error),
	}
}

func (f *fakeProgressRemover) add(clientID, planID primitive.ObjectID, n int64) {
	if f.counts[clientID] == nil {
		f.counts[clientID] = make(map[primitive.ObjectID]int64)
	}
	f.counts[clientID][planID] += n
}

func (f *fakeProgressRemover) DeleteByClientAndPlan(ctx context.Context, clientID, planID primitive.ObjectID) (int64, error) {
	if err := f.errFor[clientID]; err != nil {
		return 0, err
	}
	n := f.counts[clientID][planID]
	if f.counts[clientID] != nil {
		delete(f.counts[clientID], planID)
	}
	return n, nil
}
