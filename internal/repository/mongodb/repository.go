package mongodb

import (
	"context"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/mamadbah2/fleetstock/internal/repository"
)

// Collection names in the document store.
const (
	itemsCollection    = "items"
	historyCollection  = "history"
	messagesCollection = "messages"
)

// Client owns the MongoDB connection and hands out collection repositories.
type Client struct {
	client *mongo.Client
	db     *mongo.Database
}

// Connect dials MongoDB and verifies the connection with a ping.
func Connect(ctx context.Context, uri string, dbName string) (*Client, error) {
	clientOptions := options.Client().ApplyURI(uri)
	client, err := mongo.Connect(ctx, clientOptions)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to mongodb: %w", err)
	}

	if err := client.Ping(ctx, nil); err != nil {
		_ = client.Disconnect(ctx)
		return nil, fmt.Errorf("failed to ping mongodb: %w", err)
	}

	return &Client{
		client: client,
		db:     client.Database(dbName),
	}, nil
}

// EnsureIndexes creates the lookup indexes used by part number checks and ledger reads.
func (c *Client) EnsureIndexes(ctx context.Context) error {
	if _, err := c.db.Collection(itemsCollection).Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys: bson.D{{Key: "partnumber", Value: 1}},
	}); err != nil {
		return fmt.Errorf("create items index: %w", err)
	}

	if _, err := c.db.Collection(historyCollection).Indexes().CreateMany(ctx, []mongo.IndexModel{
		{Keys: bson.D{{Key: "timestamp", Value: -1}, {Key: "_id", Value: -1}}},
		{Keys: bson.D{{Key: "itemId", Value: 1}}},
	}); err != nil {
		return fmt.Errorf("create history indexes: %w", err)
	}

	return nil
}

// Repositories returns every collection repository bound to this database.
func (c *Client) Repositories() repository.Store {
	return NewStore(c.db)
}

// NewStore binds the repositories to an already selected database.
func NewStore(db *mongo.Database) repository.Store {
	return repository.Store{
		Items:      NewItemRepository(db),
		History:    NewHistoryRepository(db),
		References: NewReferenceRepository(db),
		Messages:   NewMessageRepository(db),
	}
}

// Ping checks that the deployment is still reachable.
func (c *Client) Ping(ctx context.Context) error {
	return c.client.Ping(ctx, nil)
}

// Close closes the MongoDB connection.
func (c *Client) Close(ctx context.Context) error {
	return c.client.Disconnect(ctx)
}
