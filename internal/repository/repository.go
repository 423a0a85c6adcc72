// Package repository declares the storage contracts shared by the MongoDB
// and in-memory backends.
package repository

import (
	"context"
	"time"

	"github.com/mamadbah2/fleetstock/internal/domain/models"
)

// ItemRepository stores inventory items.
type ItemRepository interface {
	// Create inserts a new item. With checkDuplicate set it fails with
	// models.ErrDuplicate when another item already carries the part number.
	Create(ctx context.Context, item models.Item, checkDuplicate bool) (models.Item, error)
	Get(ctx context.Context, id string) (models.Item, error)
	// Update overwrites only the fields named by the patch and returns the result.
	Update(ctx context.Context, id string, patch models.ItemPatch) (models.Item, error)
	Delete(ctx context.Context, id string) error
	List(ctx context.Context, filter models.ItemFilter) ([]models.Item, error)
	// CompareAndSetQuantity writes next only while the stored quantity is
	// still expected, otherwise it fails with models.ErrConflict.
	CompareAndSetQuantity(ctx context.Context, id string, expected, next int) (models.Item, error)
}

// HistoryRepository is the append-only stock ledger.
type HistoryRepository interface {
	Append(ctx context.Context, entry models.HistoryEntry) (models.HistoryEntry, error)
	ListOrderedByTime(ctx context.Context, direction models.SortDirection) ([]models.HistoryEntry, error)
	ListByItem(ctx context.Context, itemID string) ([]models.HistoryEntry, error)
	ListSince(ctx context.Context, since time.Time) ([]models.HistoryEntry, error)
}

// ReferenceRepository stores the fleet number and supplier lists.
type ReferenceRepository interface {
	Add(ctx context.Context, kind models.ReferenceKind, name string) (models.Reference, error)
	List(ctx context.Context, kind models.ReferenceKind) ([]models.Reference, error)
	Delete(ctx context.Context, kind models.ReferenceKind, id string) error
}

// MessageRepository stores the outbound notification log.
type MessageRepository interface {
	Save(ctx context.Context, msg models.Message) (models.Message, error)
	ListRecent(ctx context.Context, limit int) ([]models.Message, error)
}

// Store groups every repository of one backend.
type Store struct {
	Items      ItemRepository
	History    HistoryRepository
	References ReferenceRepository
	Messages   MessageRepository
}
