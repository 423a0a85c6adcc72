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

// ReferenceRepository stores each reference list in the collection named after its kind.
type ReferenceRepository struct {
	db  *mongo.Database
	now func() time.Time
}

// NewReferenceRepository binds the repository to db.
func NewReferenceRepository(db *mongo.Database) *ReferenceRepository {
	return &ReferenceRepository{db: db, now: time.Now}
}

func (r *ReferenceRepository) collection(kind models.ReferenceKind) (*mongo.Collection, error) {
	if !kind.Valid() {
		return nil, models.NewValidationError(fmt.Sprintf("unknown reference list %q", kind))
	}
	return r.db.Collection(string(kind)), nil
}

// Add stores a trimmed, non-empty name.
func (r *ReferenceRepository) Add(ctx context.Context, kind models.ReferenceKind, name string) (models.Reference, error) {
	coll, err := r.collection(kind)
	if err != nil {
		return models.Reference{}, err
	}
	name, err = models.NormalizeReferenceName(name)
	if err != nil {
		return models.Reference{}, err
	}

	doc := referenceDocument{ID: primitive.NewObjectID(), Name: name, CreatedAt: r.now().UTC()}
	if _, err := coll.InsertOne(ctx, doc); err != nil {
		return models.Reference{}, fmt.Errorf("insert %s: %w", kind, err)
	}
	return doc.model(kind), nil
}

// List returns the whole list sorted by name.
func (r *ReferenceRepository) List(ctx context.Context, kind models.ReferenceKind) ([]models.Reference, error) {
	coll, err := r.collection(kind)
	if err != nil {
		return nil, err
	}

	cursor, err := coll.Find(ctx, bson.D{}, options.Find().SetSort(bson.D{{Key: "name", Value: 1}}))
	if err != nil {
		return nil, fmt.Errorf("list %s: %w", kind, err)
	}

	var docs []referenceDocument
	if err := cursor.All(ctx, &docs); err != nil {
		return nil, fmt.Errorf("decode %s: %w", kind, err)
	}

	refs := make([]models.Reference, 0, len(docs))
	for _, doc := range docs {
		refs = append(refs, doc.model(kind))
	}
	return refs, nil
}

// Delete removes one entry by id.
func (r *ReferenceRepository) Delete(ctx context.Context, kind models.ReferenceKind, id string) error {
	coll, err := r.collection(kind)
	if err != nil {
		return err
	}
	oid, err := objectID(id, string(kind))
	if err != nil {
		return err
	}

	res, err := coll.DeleteOne(ctx, bson.D{{Key: "_id", Value: oid}})
	if err != nil {
		return fmt.Errorf("delete %s %s: %w", kind, id, err)
	}
	if res.DeletedCount == 0 {
		return fmt.Errorf("%s %s: %w", kind, id, models.ErrNotFound)
	}
	return nil
}
