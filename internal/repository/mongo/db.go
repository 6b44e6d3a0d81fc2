package mongo

import (
	"context"
	"time"

	"gymvida/gym-manager/internal/repository"

	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"
)

// Default connection timeout
const defaultTimeout = 10 * time.Second

// ConnectDB establishes a connection to MongoDB using the provided URI.
// It returns the mongo.Client which can be used to access databases and collections.
func ConnectDB(uri string) (*mongo.Client, error) {
	// Set context with timeout for the connection attempt
	ctx, cancel := context.WithTimeout(context.Background(), defaultTimeout)
	defer cancel()

	clientOptions := options.Client().ApplyURI(uri)

	client, err := mongo.Connect(ctx, clientOptions)
	if err != nil {
		return nil, err
	}

	// Ping the primary node to verify the connection. A separate context,
	// as the initial connection might have succeeded but the server might
	// be unresponsive.
	pingCtx, pingCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer pingCancel()

	err = client.Ping(pingCtx, readpref.Primary())
	if err != nil {
		disconnectCtx, disconnectCancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer disconnectCancel()
		_ = client.Disconnect(disconnectCtx)
		return nil, err
	}

	return client, nil
}

// DisconnectDB gracefully disconnects the MongoDB client.
func DisconnectDB(client *mongo.Client) error {
	ctx, cancel := context.WithTimeout(context.Background(), defaultTimeout)
	defer cancel()
	return client.Disconnect(ctx)
}

// sessionTransactionManager implements repository.TransactionManager on
// top of MongoDB multi-document transactions. Requires a replica set or
// mongos; standalone deployments should use the passthrough manager and
// rely on the orchestrator's explicit undo of partial dual writes.
type sessionTransactionManager struct {
	client *mongo.Client
}

// NewSessionTransactionManager creates a TransactionManager backed by
// mongo sessions.
func NewSessionTransactionManager(client *mongo.Client) repository.TransactionManager {
	return &sessionTransactionManager{client: client}
}

func (m *sessionTransactionManager) WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	session, err := m.client.StartSession()
	if err != nil {
		return err
	}
	defer session.EndSession(ctx)

	_, err = session.WithTransaction(ctx, func(sessCtx mongo.SessionContext) (interface{}, error) {
		return nil, fn(sessCtx)
	})
	return err
}

// passthroughTransactionManager runs the function without a transaction
// scope. Used when the deployment's store offers no transaction
// primitive; the dual-write operations then depend on their explicit
// undo-first-write-on-failure path.
type passthroughTransactionManager struct{}

// NewPassthroughTransactionManager creates a TransactionManager that
// provides no atomicity.
func NewPassthroughTransactionManager() repository.TransactionManager {
	return passthroughTransactionManager{}
}

func (passthroughTransactionManager) WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	return fn(ctx)
}
