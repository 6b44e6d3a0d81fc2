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

const progressLogCollectionName = "registros_progreso"

// mongoProgressLogRepository implements repository.ProgressLogRepository
// using MongoDB.
type mongoProgressLogRepository struct {
	collection *mongo.Collection
}

// NewMongoProgressLogRepository creates a new progress log repository
// backed by MongoDB.
func NewMongoProgressLogRepository(db *mongo.Database) repository.ProgressLogRepository {
	return &mongoProgressLogRepository{
		collection: db.Collection(progressLogCollectionName),
	}
}

// Create inserts a new progress log entry.
func (r *mongoProgressLogRepository) Create(ctx context.Context, log *domain.ProgressLog) (primitive.ObjectID, error) {
	log.ID = primitive.NewObjectID()
	log.CreatedAt = time.Now().UTC()

	result, err := r.collection.InsertOne(ctx, log)
	if err != nil {
		return primitive.NilObjectID, err
	}

	insertedID, ok := result.InsertedID.(primitive.ObjectID)
	if !ok {
		return primitive.NilObjectID, errors.New("failed to convert inserted ID")
	}
	return insertedID, nil
}

// GetByClientID retrieves all progress logs for a client, newest first.
func (r *mongoProgressLogRepository) GetByClientID(ctx context.Context, clientID primitive.ObjectID) ([]domain.ProgressLog, error) {
	return r.list(ctx, bson.M{"clienteId": clientID})
}

// GetByClientAndPlan retrieves the progress logs for one (client, plan)
// relationship.
func (r *mongoProgressLogRepository) GetByClientAndPlan(ctx context.Context, clientID, planID primitive.ObjectID) ([]domain.ProgressLog, error) {
	return r.list(ctx, bson.M{"clienteId": clientID, "planId": planID})
}

func (r *mongoProgressLogRepository) list(ctx context.Context, filter bson.M) ([]domain.ProgressLog, error) {
	findOptions := options.Find().SetSort(bson.D{{Key: "fecha", Value: -1}})

	cursor, err := r.collection.Find(ctx, filter, findOptions)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var logs []domain.ProgressLog
	if err = cursor.All(ctx, &logs); err != nil {
		return nil, err
	}
	if err = cursor.Err(); err != nil {
		return nil, err
	}
	return logs, nil
}

// DeleteByClientAndPlan removes every progress log for the relationship
// and reports the count removed.
func (r *mongoProgressLogRepository) DeleteByClientAndPlan(ctx context.Context, clientID, planID primitive.ObjectID) (int64, error) {
	result, err := r.collection.DeleteMany(ctx, bson.M{"clienteId": clientID, "planId": planID})
	if err != nil {
		return 0, err
	}
	return result.DeletedCount, nil
}

// EnsureProgressLogIndexes creates necessary indexes for the progress
// logs collection.
func EnsureProgressLogIndexes(ctx context.Context, collection *mongo.Collection) {
	indexes := []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "clienteId", Value: 1}, {Key: "planId", Value: 1}},
			Options: options.Index(),
		},
		{
			Keys:    bson.D{{Key: "fecha", Value: -1}},
			Options: options.Index(),
		},
	}

	_, err := collection.Indexes().CreateMany(ctx, indexes)
	if err != nil {
		// Cascade cleanup still works without them, just slower.
	}
}
