package mongodb

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/mamadbah2/fleetstock/internal/domain/models"
)

// MessageRepository persists the outbound notification log.
type MessageRepository struct {
	coll *mongo.Collection
}

// NewMessageRepository binds the repository to db.
func NewMessageRepository(db *mongo.Database) *MessageRepository {
	return &MessageRepository{coll: db.Collection(messagesCollection)}
}

// Save records one notification attempt.
func (r *MessageRepository) Save(ctx context.Context, msg models.Message) (models.Message, error) {
	if msg.CreatedAt.IsZero() {
		msg.CreatedAt = time.Now().UTC()
	}
	doc := messageDocument{
		ID:        primitive.NewObjectID(),
		Channel:   msg.Channel,
		Recipient: msg.Recipient,
		Body:      msg.Body,
		Status:    string(msg.Status),
		Error:     msg.Error,
		CreatedAt: msg.CreatedAt,
	}
	if _, err := r.coll.InsertOne(ctx, doc); err != nil {
		return models.Message{}, fmt.Errorf("failed to insert message: %w", err)
	}
	return doc.model(), nil
}

// ListRecent returns up to limit messages, newest first.
func (r *MessageRepository) ListRecent(ctx context.Context, limit int) ([]models.Message, error) {
	opts := options.Find().SetSort(bson.D{{Key: "createdAt", Value: -1}})
	if limit > 0 {
		opts.SetLimit(int64(limit))
	}

	cursor, err := r.coll.Find(ctx, bson.D{}, opts)
	if err != nil {
		return nil, fmt.Errorf("list messages: %w", err)
	}

	var docs []messageDocument
	if err := cursor.All(ctx, &docs); err != nil {
		return nil, fmt.Errorf("decode messages: %w", err)
	}

	out := make([]models.Message, 0, len(docs))
	for _, doc := range docs {
		out = append(out, doc.model())
	}
	return out, nil
}
