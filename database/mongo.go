package database

import (
	"context"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// RecordCollection is the single logical collection of grouped stock records.
const RecordCollection = "uw_records"

// StoreConfig holds document store connection configuration
type StoreConfig struct {
	ConnectTimeout time.Duration
	PingTimeout    time.Duration
	MaxPoolSize    uint64
	MinPoolSize    uint64
}

// DefaultStoreConfig returns connection defaults suitable for moderate load.
func DefaultStoreConfig() *StoreConfig {
	return &StoreConfig{
		ConnectTimeout: 10 * time.Second,
		PingTimeout:    5 * time.Second,
		MaxPoolSize:    25,
		MinPoolSize:    2,
	}
}

// Store wraps the document store client and the application database handle.
// It is constructed once in main and passed to the services explicitly.
type Store struct {
	Client *mongo.Client
	DB     *mongo.Database
}

// Connect establishes the document store connection with default configuration
func Connect(mongoURL, dbName string) (*Store, error) {
	return ConnectWithConfig(mongoURL, dbName, DefaultStoreConfig())
}

// ConnectWithConfig establishes the document store connection with custom configuration
func ConnectWithConfig(mongoURL, dbName string, config *StoreConfig) (*Store, error) {
	ctx, cancel := context.WithTimeout(context.Background(), config.ConnectTimeout)
	defer cancel()

	clientOptions := options.Client().
		ApplyURI(mongoURL).
		SetMaxPoolSize(config.MaxPoolSize).
		SetMinPoolSize(config.MinPoolSize)

	client, err := mongo.Connect(ctx, clientOptions)
	if err != nil {
		return nil, fmt.Errorf("failed to open document store connection: %w", err)
	}

	pingCtx, pingCancel := context.WithTimeout(context.Background(), config.PingTimeout)
	defer pingCancel()

	if err := client.Ping(pingCtx, nil); err != nil {
		return nil, fmt.Errorf("failed to ping document store: %w", err)
	}

	logrus.WithFields(logrus.Fields{
		"database":      dbName,
		"max_pool_size": config.MaxPoolSize,
		"min_pool_size": config.MinPoolSize,
	}).Info("Connected to document store successfully")

	return &Store{
		Client: client,
		DB:     client.Database(dbName),
	}, nil
}

// Close disconnects from the document store.
func (s *Store) Close() {
	if s == nil || s.Client == nil {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := s.Client.Disconnect(ctx); err != nil {
		logrus.Warnf("Error closing document store connection: %v", err)
		return
	}
	logrus.Info("Document store connection closed")
}

// HealthCheck verifies the document store is reachable.
func (s *Store) HealthCheck(ctx context.Context) error {
	if s == nil || s.Client == nil {
		return fmt.Errorf("document store connection not established")
	}

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if err := s.Client.Ping(pingCtx, nil); err != nil {
		return fmt.Errorf("document store ping failed: %w", err)
	}
	return nil
}

// EnsureIndexes creates the indexes the record collection relies on. The
// unique index on code is what turns duplicate creates into conflicts.
func (s *Store) EnsureIndexes(ctx context.Context) error {
	collection := s.DB.Collection(RecordCollection)

	indexes := []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "code", Value: 1}},
			Options: options.Index().SetUnique(true),
		},
		{
			Keys: bson.D{{Key: "underwriters", Value: 1}},
		},
		{
			Keys: bson.D{{Key: "listingDate", Value: 1}},
		},
	}

	names, err := collection.Indexes().CreateMany(ctx, indexes)
	if err != nil {
		return fmt.Errorf("failed to create indexes: %w", err)
	}

	logrus.WithField("indexes", names).Info("Document store indexes created successfully")
	return nil
}
