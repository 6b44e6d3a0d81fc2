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

const planCollectionName = "planes"

// mongoPlanRepository implements repository.PlanRepository using MongoDB.
type mongoPlanRepository struct {
	collection *mongo.Collection
}

// NewMongoPlanRepository creates a new plan repository backed by MongoDB.
func NewMongoPlanRepository(db *mongo.Database) repository.PlanRepository {
	return &mongoPlanRepository{
		collection: db.Collection(planCollectionName),
	}
}

// Create inserts a new plan into the database.
func (r *mongoPlanRepository) Create(ctx context.Context, plan *domain.Plan) (primitive.ObjectID, error) {
	plan.ID = primitive.NewObjectID()
	now := time.Now().UTC()
	plan.CreatedAt = now
	plan.UpdatedAt = now

	result, err := r.collection.InsertOne(ctx, plan)
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

// GetByID retrieves a plan by its ObjectID.
func (r *mongoPlanRepository) GetByID(ctx context.Context, id primitive.ObjectID) (*domain.Plan, error) {
	var plan domain.Plan
	err := r.collection.FindOne(ctx, bson.M{"_id": id}).Decode(&plan)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, repository.ErrNotFound
		}
		return nil, err
	}
	return &plan, nil
}

// GetByName retrieves a plan by its unique name.
func (r *mongoPlanRepository) GetByName(ctx context.Context, name string) (*domain.Plan, error) {
	var plan domain.Plan
	err := r.collection.FindOne(ctx, bson.M{"nombre": name}).Decode(&plan)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, repository.ErrNotFound
		}
		return nil, err
	}
	return &plan, nil
}

// Update modifies a plan's mutable fields. State moves through
// UpdateState and the client list through AddClientRef/RemoveClientRef.
func (r *mongoPlanRepository) Update(ctx context.Context, plan *domain.Plan) error {
	if plan.ID.IsZero() {
		return errors.New("plan ID is required for update")
	}

	update := bson.M{
		"$set": bson.M{
			"nombre":        plan.Name,
			"duracionMeses": plan.DurationMonths,
			"nivel":         plan.Level,
			"updatedAt":     time.Now().UTC(),
		},
	}

	result, err := r.collection.UpdateOne(ctx, bson.M{"_id": plan.ID}, update)
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return repository.ErrDuplicate
		}
		return err
	}
	if result.MatchedCount == 0 {
		return repository.ErrNotFound
	}
	return nil
}

// UpdateState persists a plan state change.
func (r *mongoPlanRepository) UpdateState(ctx context.Context, id primitive.ObjectID, state domain.PlanState) error {
	update := bson.M{
		"$set": bson.M{
			"estado":    state,
			"updatedAt": time.Now().UTC(),
		},
	}
	result, err := r.collection.UpdateOne(ctx, bson.M{"_id": id}, update)
	if err != nil {
		return err
	}
	if result.MatchedCount == 0 {
		return repository.ErrNotFound
	}
	return nil
}

// Delete removes a plan document.
func (r *mongoPlanRepository) Delete(ctx context.Context, id primitive.ObjectID) error {
	result, err := r.collection.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return err
	}
	if result.DeletedCount == 0 {
		return repository.ErrNotFound
	}
	return nil
}

// AddClientRef adds a client reference to the plan's list.
func (r *mongoPlanRepository) AddClientRef(ctx context.Context, planID, clientID primitive.ObjectID) error {
	update := bson.M{
		"$addToSet": bson.M{"clienteIds": clientID},
		"$set":      bson.M{"updatedAt": time.Now().UTC()},
	}
	result, err := r.collection.UpdateOne(ctx, bson.M{"_id": planID}, update)
	if err != nil {
		return err
	}
	if result.MatchedCount == 0 {
		return repository.ErrNotFound
	}
	return nil
}

// RemoveClientRef removes a client reference from the plan's list.
func (r *mongoPlanRepository) RemoveClientRef(ctx context.Context, planID, clientID primitive.ObjectID) error {
	update := bson.M{
		"$pull": bson.M{"clienteIds": clientID},
		"$set":  bson.M{"updatedAt": time.Now().UTC()},
	}
	result, err := r.collection.UpdateOne(ctx, bson.M{"_id": planID}, update)
	if err != nil {
		return err
	}
	if result.MatchedCount == 0 {
		return repository.ErrNotFound
	}
	return nil
}

// ListActive retrieves all plans in estado activo.
func (r *mongoPlanRepository) ListActive(ctx context.Context) ([]domain.Plan, error) {
	return r.list(ctx, bson.M{"estado": domain.PlanStateActive}, options.Find().SetSort(bson.D{{Key: "nombre", Value: 1}}))
}

// ListByLevel retrieves all plans for a given level.
func (r *mongoPlanRepository) ListByLevel(ctx context.Context, level domain.Level) ([]domain.Plan, error) {
	return r.list(ctx, bson.M{"nivel": level}, options.Find().SetSort(bson.D{{Key: "nombre", Value: 1}}))
}

// ListByDurationRange retrieves all plans whose duration falls inside
// [minMonths, maxMonths].
func (r *mongoPlanRepository) ListByDurationRange(ctx context.Context, minMonths, maxMonths int) ([]domain.Plan, error) {
	filter := bson.M{"duracionMeses": bson.M{"$gte": minMonths, "$lte": maxMonths}}
	return r.list(ctx, filter, options.Find().SetSort(bson.D{{Key: "duracionMeses", Value: 1}}))
}

func (r *mongoPlanRepository) list(ctx context.Context, filter bson.M, opts *options.FindOptions) ([]domain.Plan, error) {
	cursor, err := r.collection.Find(ctx, filter, opts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var plans []domain.Plan
	if err = cursor.All(ctx, &plans); err != nil {
		return nil, err
	}
	if err = cursor.Err(); err != nil {
		return nil, err
	}
	return plans, nil
}

// MostPopular retrieves the plans with the most associated clients,
// sorted descending by client count.
func (r *mongoPlanRepository) MostPopular(ctx context.Context, limit int64) ([]domain.Plan, error) {
	pipeline := mongo.Pipeline{
		{{Key: "$addFields", Value: bson.M{
			"numClientes": bson.M{"$size": bson.M{"$ifNull": bson.A{"$clienteIds", bson.A{}}}},
		}}},
		{{Key: "$sort", Value: bson.D{{Key: "numClientes", Value: -1}, {Key: "nombre", Value: 1}}}},
		{{Key: "$limit", Value: limit}},
	}

	cursor, err := r.collection.Aggregate(ctx, pipeline)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var plans []domain.Plan
	if err = cursor.All(ctx, &plans); err != nil {
		return nil, err
	}
	return plans, nil
}

// CountByState returns the number of plans per lifecycle state.
func (r *mongoPlanRepository) CountByState(ctx context.Context) (map[domain.PlanState]int64, error) {
	pipeline := mongo.Pipeline{
		{{Key: "$group", Value: bson.M{"_id": "$estado", "count": bson.M{"$sum": 1}}}},
	}

	cursor, err := r.collection.Aggregate(ctx, pipeline)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var rows []struct {
		State domain.PlanState `bson:"_id"`
		Count int64            `bson:"count"`
	}
	if err = cursor.All(ctx, &rows); err != nil {
		return nil, err
	}

	counts := make(map[domain.PlanState]int64, len(rows))
	for _, row := range rows {
		counts[row.State] = row.Count
	}
	return counts, nil
}

// EnsurePlanIndexes creates necessary indexes for the plans collection.
func EnsurePlanIndexes(ctx context.Context, collection *mongo.Collection) {
	indexes := []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "nombre", Value: 1}},
			Options: options.Index().SetUnique(true),
		},
		{
			Keys:    bson.D{{Key: "estado", Value: 1}},
			Options: options.Index(),
		},
		{
			Keys:    bson.D{{Key: "nivel", Value: 1}},
			Options: options.Index(),
		},
	}

	_, err := collection.Indexes().CreateMany(ctx, indexes)
	if err != nil {
		// Not fatal; the service-level uniqueness pre-check still runs.
	}
}
