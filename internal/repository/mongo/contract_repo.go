package mongo

import (
	"context"
	"errors"
	"time"

	"gymvida/gym-manager/internal/domain"
	"gymvida/gym-manager/internal/repository"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const contractCollectionName = "contratos"

// mongoContractRepository implements repository.ContractRepository using MongoDB.
type mongoContractRepository struct {
	collection *mongo.Collection
}

// NewMongoContractRepository creates a new contract repository backed by MongoDB.
func NewMongoContractRepository(db *mongo.Database) repository.ContractRepository {
	return &mongoContractRepository{
		collection: db.Collection(contractCollectionName),
	}
}

// Create inserts a new contract. The partial unique vigente index turns a
// concurrent duplicate insert into ErrDuplicate, which the orchestrator
// maps to the same conflict as its pre-check.
func (r *mongoContractRepository) Create(ctx context.Context, contract *domain.Contract) (primitive.ObjectID, error) {
	contract.ID = primitive.NewObjectID()
	now := time.Now().UTC()
	contract.CreatedAt = now
	contract.UpdatedAt = now

	result, err := r.collection.InsertOne(ctx, contract)
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return primitive.NilObjectID, repository.ErrDuplicate
		}
		return primitive.NilObjectID, err
	}

	insertedID, ok := result.InsertedID.(primitive.ObjectID)
	if !ok {
		return primitive.NilObjectID, errors.New("failed to convert inserted ID")
	}
	return insertedID, nil
}

// GetByID retrieves a contract by its ObjectID.
func (r *mongoContractRepository) GetByID(ctx context.Context, id primitive.ObjectID) (*domain.Contract, error) {
	var contract domain.Contract
	err := r.collection.FindOne(ctx, bson.M{"_id": id}).Decode(&contract)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, repository.ErrNotFound
		}
		return nil, err
	}
	return &contract, nil
}

// Update persists the mutable contract fields (state, duration, end date).
// Client and plan references are immutable once the contract exists.
func (r *mongoContractRepository) Update(ctx context.Context, contract *domain.Contract) error {
	if contract.ID.IsZero() {
		return errors.New("contract ID is required for update")
	}

	update := bson.M{
		"$set": bson.M{
			"estado":        contract.State,
			"precio":        contract.Price,
			"fechaFin":      contract.EndDate,
			"duracionMeses": contract.DurationMonths,
			"updatedAt":     time.Now().UTC(),
		},
	}

	result, err := r.collection.UpdateOne(ctx, bson.M{"_id": contract.ID}, update)
	if err != nil {
		return err
	}
	if result.MatchedCount == 0 {
		return repository.ErrNotFound
	}
	return nil
}

// Delete removes a contract document. The filter refuses vigente
// contracts so an active contract can never be deleted directly.
func (r *mongoContractRepository) Delete(ctx context.Context, id primitive.ObjectID) error {
	filter := bson.M{
		"_id":    id,
		"estado": bson.M{"$ne": domain.ContractStateActive},
	}
	result, err := r.collection.DeleteOne(ctx, filter)
	if err != nil {
		return err
	}
	if result.DeletedCount == 0 {
		return repository.ErrDeleteFailed
	}
	return nil
}

// FindActiveByClientAndPlan returns the single vigente contract for the
// (client, plan) pair, or ErrNotFound.
func (r *mongoContractRepository) FindActiveByClientAndPlan(ctx context.Context, clientID, planID primitive.ObjectID) (*domain.Contract, error) {
	filter := bson.M{
		"clienteId": clientID,
		"planId":    planID,
		"estado":    domain.ContractStateActive,
	}

	var contract domain.Contract
	err := r.collection.FindOne(ctx, filter).Decode(&contract)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, repository.ErrNotFound
		}
		return nil, err
	}
	return &contract, nil
}

// GetByClientID retrieves all contracts for a client, newest first.
func (r *mongoContractRepository) GetByClientID(ctx context.Context, clientID primitive.ObjectID) ([]domain.Contract, error) {
	return r.list(ctx, bson.M{"clienteId": clientID})
}

// GetActiveByClientID retrieves the client's vigente contracts.
func (r *mongoContractRepository) GetActiveByClientID(ctx context.Context, clientID primitive.ObjectID) ([]domain.Contract, error) {
	return r.list(ctx, bson.M{"clienteId": clientID, "estado": domain.ContractStateActive})
}

// CountActiveByPlanID counts vigente contracts bound to a plan.
func (r *mongoContractRepository) CountActiveByPlanID(ctx context.Context, planID primitive.ObjectID) (int64, error) {
	return r.collection.CountDocuments(ctx, bson.M{"planId": planID, "estado": domain.ContractStateActive})
}

// GetByDateRange retrieves contracts whose start date falls in [start, end].
func (r *mongoContractRepository) GetByDateRange(ctx context.Context, start, end time.Time) ([]domain.Contract, error) {
	filter := bson.M{"fechaInicio": bson.M{"$gte": start, "$lte": end}}
	return r.list(ctx, filter)
}

// GetExpiringBefore retrieves vigente contracts ending on or before the
// deadline.
func (r *mongoContractRepository) GetExpiringBefore(ctx context.Context, deadline time.Time) ([]domain.Contract, error) {
	filter := bson.M{
		"estado":   domain.ContractStateActive,
		"fechaFin": bson.M{"$lte": deadline},
	}
	return r.list(ctx, filter)
}

// GetExpired retrieves vigente contracts whose end date has already
// passed at the given instant.
func (r *mongoContractRepository) GetExpired(ctx context.Context, now time.Time) ([]domain.Contract, error) {
	filter := bson.M{
		"estado":   domain.ContractStateActive,
		"fechaFin": bson.M{"$lt": now},
	}
	return r.list(ctx, filter)
}

func (r *mongoContractRepository) list(ctx context.Context, filter bson.M) ([]domain.Contract, error) {
	findOptions := options.Find().SetSort(bson.D{{Key: "fechaInicio", Value: -1}})

	cursor, err := r.collection.Find(ctx, filter, findOptions)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var contracts []domain.Contract
	if err = cursor.All(ctx, &contracts); err != nil {
		return nil, err
	}
	if err = cursor.Err(); err != nil {
		return nil, err
	}
	return contracts, nil
}

// CountByState returns the number of contracts per lifecycle state.
func (r *mongoContractRepository) CountByState(ctx context.Context) (map[domain.ContractState]int64, error) {
	pipeline := mongo.Pipeline{
		{{Key: "$group", Value: bson.M{"_id": "$estado", "count": bson.M{"$sum": 1}}}},
	}

	cursor, err := r.collection.Aggregate(ctx, pipeline)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var rows []struct {
		State domain.ContractState `bson:"_id"`
		Count int64                `bson:"count"`
	}
	if err = cursor.All(ctx, &rows); err != nil {
		return nil, err
	}

	counts := make(map[domain.ContractState]int64, len(rows))
	for _, row := range rows {
		counts[row.State] = row.Count
	}
	return counts, nil
}

// EnsureContractIndexes creates necessary indexes for the contracts
// collection. The partial unique index over (clienteId, planId) filtered
// to estado=vigente enforces the at-most-one-active-contract invariant at
// the storage layer, closing the check-then-insert race under concurrent
// creation.
func EnsureContractIndexes(ctx context.Context, collection *mongo.Collection) {
	indexes := []mongo.IndexModel{
		{
			Keys: bson.D{{Key: "clienteId", Value: 1}, {Key: "planId", Value: 1}},
			Options: options.Index().
				SetUnique(true).
				SetPartialFilterExpression(bson.M{"estado": domain.ContractStateActive}).
				SetName("unique_vigente_per_client_plan"),
		},
		{
			Keys:    bson.D{{Key: "clienteId", Value: 1}, {Key: "estado", Value: 1}},
			Options: options.Index(),
		},
		{
			Keys:    bson.D{{Key: "fechaFin", Value: 1}},
			Options: options.Index(),
		},
	}

	_, err := collection.Indexes().CreateMany(ctx, indexes)
	if err != nil {
		// Without the partial index the uniqueness guard degrades to the
		// transactional pre-check alone.
	}
}
