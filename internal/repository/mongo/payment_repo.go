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

const paymentCollectionName = "pagos"

// mongoPaymentRepository implements repository.PaymentRepository using MongoDB.
type mongoPaymentRepository struct {
	collection *mongo.Collection
}

// NewMongoPaymentRepository creates a new payment repository backed by MongoDB.
func NewMongoPaymentRepository(db *mongo.Database) repository.PaymentRepository {
	return &mongoPaymentRepository{
		collection: db.Collection(paymentCollectionName),
	}
}

// Create inserts a new payment into the database.
func (r *mongoPaymentRepository) Create(ctx context.Context, payment *domain.Payment) (primitive.ObjectID, error) {
	payment.ID = primitive.NewObjectID()
	now := time.Now().UTC()
	payment.CreatedAt = now
	payment.UpdatedAt = now

	result, err := r.collection.InsertOne(ctx, payment)
	if err != nil {
		return primitive.NilObjectID, err
	}

	insertedID, ok := result.InsertedID.(primitive.ObjectID)
	if !ok {
		return primitive.NilObjectID, errors.New("failed to convert inserted ID")
	}
	return insertedID, nil
}

// GetByID retrieves a payment by its ObjectID.
func (r *mongoPaymentRepository) GetByID(ctx context.Context, id primitive.ObjectID) (*domain.Payment, error) {
	var payment domain.Payment
	err := r.collection.FindOne(ctx, bson.M{"_id": id}).Decode(&payment)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, repository.ErrNotFound
		}
		return nil, err
	}
	return &payment, nil
}

// Update persists the payment's mutable fields.
func (r *mongoPaymentRepository) Update(ctx context.Context, payment *domain.Payment) error {
	if payment.ID.IsZero() {
		return errors.New("payment ID is required for update")
	}

	update := bson.M{
		"$set": bson.M{
			"monto":      payment.Amount,
			"metodoPago": payment.Method,
			"estado":     payment.State,
			"referencia": payment.Reference,
			"notas":      payment.Notes,
			"fechaPago":  payment.PaidAt,
			"updatedAt":  time.Now().UTC(),
		},
	}

	result, err := r.collection.UpdateOne(ctx, bson.M{"_id": payment.ID}, update)
	if err != nil {
		return err
	}
	if result.MatchedCount == 0 {
		return repository.ErrNotFound
	}
	return nil
}

// Delete removes a payment document.
func (r *mongoPaymentRepository) Delete(ctx context.Context, id primitive.ObjectID) error {
	result, err := r.collection.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return err
	}
	if result.DeletedCount == 0 {
		return repository.ErrNotFound
	}
	return nil
}

// GetByDateRange retrieves payments with fechaPago inside [start, end],
// optionally filtered by client. Zero bounds are left open so the same
// query serves the unbounded total-balance view.
func (r *mongoPaymentRepository) GetByDateRange(ctx context.Context, start, end time.Time, clientID *primitive.ObjectID) ([]domain.Payment, error) {
	filter := bson.M{}

	dateFilter := bson.M{}
	if !start.IsZero() {
		dateFilter["$gte"] = start
	}
	if !end.IsZero() {
		dateFilter["$lte"] = end
	}
	if len(dateFilter) > 0 {
		filter["fechaPago"] = dateFilter
	}
	if clientID != nil {
		filter["clienteId"] = *clientID
	}

	findOptions := options.Find().SetSort(bson.D{{Key: "fechaPago", Value: -1}})

	cursor, err := r.collection.Find(ctx, filter, findOptions)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var payments []domain.Payment
	if err = cursor.All(ctx, &payments); err != nil {
		return nil, err
	}
	if err = cursor.Err(); err != nil {
		return nil, err
	}
	return payments, nil
}

// TopByAmount retrieves the largest payments by amount, optionally
// restricted to one movement direction.
func (r *mongoPaymentRepository) TopByAmount(ctx context.Context, limit int64, movement *domain.Movement) ([]domain.Payment, error) {
	filter := bson.M{}
	if movement != nil {
		filter["movimiento"] = *movement
	}

	findOptions := options.Find().
		SetSort(bson.D{{Key: "monto", Value: -1}}).
		SetLimit(limit)

	cursor, err := r.collection.Find(ctx, filter, findOptions)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var payments []domain.Payment
	if err = cursor.All(ctx, &payments); err != nil {
		return nil, err
	}
	return payments, nil
}

// EnsurePaymentIndexes creates necessary indexes for the payments collection.
func EnsurePaymentIndexes(ctx context.Context, collection *mongo.Collection) {
	indexes := []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "fechaPago", Value: -1}},
			Options: options.Index(),
		},
		{
			Keys:    bson.D{{Key: "clienteId", Value: 1}, {Key: "fechaPago", Value: -1}},
			Options: options.Index().SetSparse(true),
		},
		{
			Keys:    bson.D{{Key: "estado", Value: 1}},
			Options: options.Index(),
		},
	}

	_, err := collection.Indexes().CreateMany(ctx, indexes)
	if err != nil {
		// Queries degrade to collection scans without these.
	}
}
