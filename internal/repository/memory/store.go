// Package memory is a map-backed implementation of the repository contracts,
// used for local development (STORAGE_BACKEND=memory) and service tests.
package memory

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/mamadbah2/fleetstock/internal/domain/models"
	"github.com/mamadbah2/fleetstock/internal/repository"
)

// Store holds every collection in memory behind a single lock.
type Store struct {
	mu         sync.RWMutex
	items      map[string]models.Item
	history    []models.HistoryEntry
	references map[models.ReferenceKind]map[string]models.Reference
	messages   []models.Message

	now      func() time.Time
	lastTime time.Time
}

// New returns an empty store.
func New() *Store {
	return &Store{
		items: make(map[string]models.Item),
		references: map[models.ReferenceKind]map[string]models.Reference{
			models.FleetNumbers: {},
			models.Suppliers:    {},
		},
		now: time.Now,
	}
}

// Repositories exposes the store through the repository contracts.
func (s *Store) Repositories() repository.Store {
	return repository.Store{
		Items:      itemRepo{s},
		History:    historyRepo{s},
		References: referenceRepo{s},
		Messages:   messageRepo{s},
	}
}

// stamp returns a strictly increasing timestamp. Callers hold s.mu.
func (s *Store) stamp() time.Time {
	t := s.now().UTC()
	if !t.After(s.lastTime) {
		t = s.lastTime.Add(time.Microsecond)
	}
	s.lastTime = t
	return t
}

type itemRepo struct{ s *Store }

func (r itemRepo) Create(_ context.Context, item models.Item, checkDuplicate bool) (models.Item, error) {
	if err := item.Validate(); err != nil {
		return models.Item{}, err
	}

	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if checkDuplicate {
		for _, existing := range r.s.items {
			if existing.PartNumber == item.PartNumber {
				return models.Item{}, fmt.Errorf("%w: %s", models.ErrDuplicate, item.PartNumber)
			}
		}
	}

	now := r.s.stamp()
	item.ID = uuid.NewString()
	item.InitialQuantity = item.Quantity
	item.CreatedAt = now
	item.UpdatedAt = now
	r.s.items[item.ID] = item
	return item, nil
}

func (r itemRepo) Get(_ context.Context, id string) (models.Item, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	item, ok := r.s.items[id]
	if !ok {
		return models.Item{}, fmt.Errorf("item %s: %w", id, models.ErrNotFound)
	}
	return item, nil
}

func (r itemRepo) Update(_ context.Context, id string, patch models.ItemPatch) (models.Item, error) {
	if err := patch.Validate(); err != nil {
		return models.Item{}, err
	}

	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	item, ok := r.s.items[id]
	if !ok {
		return models.Item{}, fmt.Errorf("item %s: %w", id, models.ErrNotFound)
	}
	item = patch.Apply(item)
	item.UpdatedAt = r.s.stamp()
	r.s.items[id] = item
	return item, nil
}

func (r itemRepo) Delete(_ context.Context, id string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if _, ok := r.s.items[id]; !ok {
		return fmt.Errorf("item %s: %w", id, models.ErrNotFound)
	}
	delete(r.s.items, id)
	return nil
}

func (r itemRepo) List(_ context.Context, filter models.ItemFilter) ([]models.Item, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	out := make([]models.Item, 0, len(r.s.items))
	for _, item := range r.s.items {
		if filter.Matches(item) {
			out = append(out, item)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		a, b := strings.ToLower(out[i].Description), strings.ToLower(out[j].Description)
		if a == b {
			return out[i].ID < out[j].ID
		}
		return a < b
	})
	return out, nil
}

func (r itemRepo) CompareAndSetQuantity(_ context.Context, id string, expected, next int) (models.Item, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	item, ok := r.s.items[id]
	if !ok {
		return models.Item{}, fmt.Errorf("item %s: %w", id, models.ErrNotFound)
	}
	if item.Quantity != expected {
		return models.Item{}, fmt.Errorf("item %s quantity is %d, expected %d: %w", id, item.Quantity, expected, models.ErrConflict)
	}
	item.Quantity = next
	item.UpdatedAt = r.s.stamp()
	r.s.items[id] = item
	return item, nil
}

type historyRepo struct{ s *Store }

func (r historyRepo) Append(_ context.Context, entry models.HistoryEntry) (models.HistoryEntry, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	entry.ID = uuid.NewString()
	entry.Timestamp = r.s.stamp()
	r.s.history = append(r.s.history, entry)
	return entry, nil
}

func (r historyRepo) ListOrderedByTime(_ context.Context, direction models.SortDirection) ([]models.HistoryEntry, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	// history is kept in append order, which is timestamp order.
	out := make([]models.HistoryEntry, len(r.s.history))
	copy(out, r.s.history)
	if direction == models.Descending {
		for i, j := 0, len(out)-1; i < j; i, j = i+1, j-1 {
			out[i], out[j] = out[j], out[i]
		}
	}
	return out, nil
}

func (r historyRepo) ListByItem(_ context.Context, itemID string) ([]models.HistoryEntry, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	var out []models.HistoryEntry
	for _, e := range r.s.history {
		if e.ItemID == itemID {
			out = append(out, e)
		}
	}
	return out, nil
}

func (r historyRepo) ListSince(_ context.Context, since time.Time) ([]models.HistoryEntry, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	var out []models.HistoryEntry
	for _, e := range r.s.history {
		if e.Timestamp.After(since) {
			out = append(out, e)
		}
	}
	return out, nil
}

type referenceRepo struct{ s *Store }

func (r referenceRepo) Add(_ context.Context, kind models.ReferenceKind, name string) (models.Reference, error) {
	if !kind.Valid() {
		return models.Reference{}, models.NewValidationError(fmt.Sprintf("unknown reference list %q", kind))
	}
	name, err := models.NormalizeReferenceName(name)
	if err != nil {
		return models.Reference{}, err
	}

	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	ref := models.Reference{ID: uuid.NewString(), Kind: kind, Name: name, CreatedAt: r.s.stamp()}
	r.s.references[kind][ref.ID] = ref
	return ref, nil
}

func (r referenceRepo) List(_ context.Context, kind models.ReferenceKind) ([]models.Reference, error) {
	if !kind.Valid() {
		return nil, models.NewValidationError(fmt.Sprintf("unknown reference list %q", kind))
	}

	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	out := make([]models.Reference, 0, len(r.s.references[kind]))
	for _, ref := range r.s.references[kind] {
		out = append(out, ref)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (r referenceRepo) Delete(_ context.Context, kind models.ReferenceKind, id string) error {
	if !kind.Valid() {
		return models.NewValidationError(fmt.Sprintf("unknown reference list %q", kind))
	}

	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if _, ok := r.s.references[kind][id]; !ok {
		return fmt.Errorf("%s %s: %w", kind, id, models.ErrNotFound)
	}
	delete(r.s.references[kind], id)
	return nil
}

type messageRepo struct{ s *Store }

func (r messageRepo) Save(_ context.Context, msg models.Message) (models.Message, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	msg.ID = uuid.NewString()
	if msg.CreatedAt.IsZero() {
		msg.CreatedAt = r.s.stamp()
	}
	r.s.messages = append(r.s.messages, msg)
	return msg, nil
}

func (r messageRepo) ListRecent(_ context.Context, limit int) ([]models.Message, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	out := make([]models.Message, 0, limit)
	for i := len(r.s.messages) - 1; i >= 0 && (limit <= 0 || len(out) < limit); i-- {
		out = append(out, r.s.messages[i])
	}
	return out, nil
}
