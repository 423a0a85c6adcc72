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

// HistoryRepository is the append-only ledger in the "history" collection.
type HistoryRepository struct {
	coll *mongo.Collection
}

// NewHistoryRepository binds the repository to db.
func NewHistoryRepository(db *mongo.Database) *HistoryRepository {
	return &HistoryRepository{coll: db.Collection(historyCollection)}
}

// Append inserts a new entry. The timestamp is assigned by the server through
// $currentDate on an upsert keyed by a fresh id, so no existing entry can match.
func (r *HistoryRepository) Append(ctx context.Context, entry models.HistoryEntry) (models.HistoryEntry, error) {
	doc, err := newHistoryDocument(entry)
	if err != nil {
		return models.HistoryEntry{}, err
	}

	id := primitive.NewObjectID()
	update := bson.D{
		{Key: "$setOnInsert", Value: doc},
		{Key: "$currentDate", Value: bson.D{{Key: "timestamp", Value: true}}},
	}
	opts := options.FindOneAndUpdate().SetUpsert(true).SetReturnDocument(options.After)

	var stored historyDocument
	if err := r.coll.FindOneAndUpdate(ctx, bson.D{{Key: "_id", Value: id}}, update, opts).Decode(&stored); err != nil {
		return models.HistoryEntry{}, fmt.Errorf("append history entry for item %s: %w", entry.ItemID, err)
	}
	return stored.model(), nil
}

// ListOrderedByTime returns the whole ledger sorted by timestamp then id.
func (r *HistoryRepository) ListOrderedByTime(ctx context.Context, direction models.SortDirection) ([]models.HistoryEntry, error) {
	return r.find(ctx, bson.D{}, int(direction))
}

// ListByItem returns the ledger of one item, oldest first.
func (r *HistoryRepository) ListByItem(ctx context.Context, itemID string) ([]models.HistoryEntry, error) {
	return r.find(ctx, bson.D{{Key: "itemId", Value: itemID}}, 1)
}

// ListSince returns entries written strictly after since, oldest first.
func (r *HistoryRepository) ListSince(ctx context.Context, since time.Time) ([]models.HistoryEntry, error) {
	return r.find(ctx, bson.D{{Key: "timestamp", Value: bson.D{{Key: "$gt", Value: since}}}}, 1)
}

func (r *HistoryRepository) find(ctx context.Context, filter bson.D, direction int) ([]models.HistoryEntry, error) {
	opts := options.Find().SetSort(bson.D{{Key: "timestamp", Value: direction}, {Key: "_id", Value: direction}})

	cursor, err := r.coll.Find(ctx, filter, opts)
	if err != nil {
		return nil, fmt.Errorf("list history: %w", err)
	}

	var docs []historyDocument
	if err := cursor.All(ctx, &docs); err != nil {
		return nil, fmt.Errorf("decode history: %w", err)
	}

	entries := make([]models.HistoryEntry, 0, len(docs))
	for _, doc := range docs {
		entries = append(entries, doc.model())
	}
	return entries, nil
}
