package mongodb

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/mamadbah2/fleetstock/internal/domain/models"
)

// ItemRepository stores inventory items in the "items" collection.
type ItemRepository struct {
	coll *mongo.Collection
	now  func() time.Time
}

// NewItemRepository binds the repository to db.
func NewItemRepository(db *mongo.Database) *ItemRepository {
	return &ItemRepository{coll: db.Collection(itemsCollection), now: time.Now}
}

// Create inserts a new item. The duplicate check is a separate query and
// therefore not atomic with the insert.
func (r *ItemRepository) Create(ctx context.Context, item models.Item, checkDuplicate bool) (models.Item, error) {
	if err := item.Validate(); err != nil {
		return models.Item{}, err
	}

	if checkDuplicate {
		count, err := r.coll.CountDocuments(ctx, bson.D{{Key: "partnumber", Value: item.PartNumber}})
		if err != nil {
			return models.Item{}, fmt.Errorf("check part number %s: %w", item.PartNumber, err)
		}
		if count > 0 {
			return models.Item{}, fmt.Errorf("%w: %s", models.ErrDuplicate, item.PartNumber)
		}
	}

	now := r.now().UTC()
	item.InitialQuantity = item.Quantity
	item.CreatedAt = now
	item.UpdatedAt = now

	doc, err := newItemDocument(item)
	if err != nil {
		return models.Item{}, err
	}

	res, err := r.coll.InsertOne(ctx, doc)
	if err != nil {
		return models.Item{}, fmt.Errorf("failed to insert item: %w", err)
	}

	oid, ok := res.InsertedID.(primitive.ObjectID)
	if !ok {
		return models.Item{}, fmt.Errorf("unexpected inserted id type %T", res.InsertedID)
	}
	item.ID = oid.Hex()
	return item, nil
}

// Get loads one item by id.
func (r *ItemRepository) Get(ctx context.Context, id string) (models.Item, error) {
	oid, err := objectID(id, "item")
	if err != nil {
		return models.Item{}, err
	}

	var doc itemDocument
	if err := r.coll.FindOne(ctx, bson.D{{Key: "_id", Value: oid}}).Decode(&doc); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return models.Item{}, fmt.Errorf("item %s: %w", id, models.ErrNotFound)
		}
		return models.Item{}, fmt.Errorf("find item %s: %w", id, err)
	}
	return doc.model(), nil
}

// Update merges the patch fields into the stored document.
func (r *ItemRepository) Update(ctx context.Context, id string, patch models.ItemPatch) (models.Item, error) {
	if err := patch.Validate(); err != nil {
		return models.Item{}, err
	}
	if patch.Empty() {
		return r.Get(ctx, id)
	}

	oid, err := objectID(id, "item")
	if err != nil {
		return models.Item{}, err
	}

	set, err := patchDocument(patch)
	if err != nil {
		return models.Item{}, err
	}
	set = append(set, bson.E{Key: "updatedAt", Value: r.now().UTC()})

	return r.findAndUpdate(ctx, bson.D{{Key: "_id", Value: oid}}, bson.D{{Key: "$set", Value: set}}, id)
}

// Delete removes the item; its ledger entries are left in place.
func (r *ItemRepository) Delete(ctx context.Context, id string) error {
	oid, err := objectID(id, "item")
	if err != nil {
		return err
	}

	res, err := r.coll.DeleteOne(ctx, bson.D{{Key: "_id", Value: oid}})
	if err != nil {
		return fmt.Errorf("delete item %s: %w", id, err)
	}
	if res.DeletedCount == 0 {
		return fmt.Errorf("item %s: %w", id, models.ErrNotFound)
	}
	return nil
}

// List returns every item matching the equality filter, sorted by description.
func (r *ItemRepository) List(ctx context.Context, filter models.ItemFilter) ([]models.Item, error) {
	query := bson.D{}
	if filter.Category != "" {
		query = append(query, bson.E{Key: "category", Value: filter.Category})
	}
	if filter.PartNumber != "" {
		query = append(query, bson.E{Key: "partnumber", Value: filter.PartNumber})
	}

	cursor, err := r.coll.Find(ctx, query, options.Find().SetSort(bson.D{{Key: "description", Value: 1}}))
	if err != nil {
		return nil, fmt.Errorf("list items: %w", err)
	}

	var docs []itemDocument
	if err := cursor.All(ctx, &docs); err != nil {
		return nil, fmt.Errorf("decode items: %w", err)
	}

	items := make([]models.Item, 0, len(docs))
	for _, doc := range docs {
		items = append(items, doc.model())
	}
	return items, nil
}

// CompareAndSetQuantity is a conditional write on {_id, quantity}.
func (r *ItemRepository) CompareAndSetQuantity(ctx context.Context, id string, expected, next int) (models.Item, error) {
	oid, err := objectID(id, "item")
	if err != nil {
		return models.Item{}, err
	}

	filter := bson.D{{Key: "_id", Value: oid}, {Key: "quantity", Value: expected}}
	update := bson.D{{Key: "$set", Value: bson.D{
		{Key: "quantity", Value: next},
		{Key: "updatedAt", Value: r.now().UTC()},
	}}}

	item, err := r.findAndUpdate(ctx, filter, update, id)
	if err == nil || !errors.Is(err, models.ErrNotFound) {
		return item, err
	}

	// The filter missed: either the item is gone or its quantity moved.
	count, countErr := r.coll.CountDocuments(ctx, bson.D{{Key: "_id", Value: oid}})
	if countErr != nil {
		return models.Item{}, fmt.Errorf("recheck item %s: %w", id, countErr)
	}
	if count == 0 {
		return models.Item{}, err
	}
	return models.Item{}, fmt.Errorf("item %s quantity changed from %d: %w", id, expected, models.ErrConflict)
}

func (r *ItemRepository) findAndUpdate(ctx context.Context, filter, update bson.D, id string) (models.Item, error) {
	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)

	var doc itemDocument
	if err := r.coll.FindOneAndUpdate(ctx, filter, update, opts).Decode(&doc); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return models.Item{}, fmt.Errorf("item %s: %w", id, models.ErrNotFound)
		}
		return models.Item{}, fmt.Errorf("update item %s: %w", id, err)
	}
	return doc.model(), nil
}

func patchDocument(p models.ItemPatch) (bson.D, error) {
	set := bson.D{}
	if p.Description != nil {
		set = append(set, bson.E{Key: "description", Value: *p.Description})
	}
	if p.PartNumber != nil {
		set = append(set, bson.E{Key: "partnumber", Value: *p.PartNumber})
	}
	if p.Location != nil {
		set = append(set, bson.E{Key: "location", Value: *p.Location})
	}
	if p.Category != nil {
		set = append(set, bson.E{Key: "category", Value: *p.Category})
	}
	if p.Supplier != nil {
		set = append(set, bson.E{Key: "supplier", Value: *p.Supplier})
	}
	if p.UnitCost != nil {
		cost, err := toDecimal128(*p.UnitCost)
		if err != nil {
			return nil, err
		}
		set = append(set, bson.E{Key: "unitcost", Value: cost})
	}
	if p.Quantity != nil {
		set = append(set, bson.E{Key: "quantity", Value: *p.Quantity})
	}
	return set, nil
}
