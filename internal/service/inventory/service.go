// Package inventory implements the item and reference list commands. Every
// command returns the entity it changed and announces it on the change feed.
package inventory

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/mamadbah2/fleetstock/internal/domain/models"
	"github.com/mamadbah2/fleetstock/internal/events"
	"github.com/mamadbah2/fleetstock/internal/repository"
	"github.com/mamadbah2/fleetstock/internal/service/stock"
)

// QuantitySetter records a direct quantity edit through the ledger.
type QuantitySetter interface {
	SetQuantity(ctx context.Context, itemID string, target int, user string) (stock.Result, error)
}

// Service holds the item and reference list commands.
type Service struct {
	items      repository.ItemRepository
	references repository.ReferenceRepository
	quantities QuantitySetter
	publisher  events.Publisher
	logger     *zap.Logger
}

// NewService wires the inventory commands.
func NewService(items repository.ItemRepository, references repository.ReferenceRepository, quantities QuantitySetter, publisher events.Publisher, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	if publisher == nil {
		publisher = events.Nop{}
	}
	return &Service{
		items:      items,
		references: references,
		quantities: quantities,
		publisher:  publisher,
		logger:     logger,
	}
}

// CreateItem adds a new item, rejecting a known part number when checkDuplicate is set.
func (s *Service) CreateItem(ctx context.Context, item models.Item, checkDuplicate bool) (models.Item, error) {
	item.Description = strings.TrimSpace(item.Description)
	item.PartNumber = strings.TrimSpace(item.PartNumber)
	item.Location = strings.TrimSpace(item.Location)
	item.Category = strings.TrimSpace(item.Category)
	item.Supplier = strings.TrimSpace(item.Supplier)

	created, err := s.items.Create(ctx, item, checkDuplicate)
	if err != nil {
		return models.Item{}, err
	}

	s.logger.Info("item created", zap.String("item_id", created.ID), zap.String("part_number", created.PartNumber))
	s.publish(ctx, events.ItemCreated, created)
	return created, nil
}

// GetItem loads one item.
func (s *Service) GetItem(ctx context.Context, id string) (models.Item, error) {
	return s.items.Get(ctx, id)
}

// ListItems returns every item matching the filter.
func (s *Service) ListItems(ctx context.Context, filter models.ItemFilter) ([]models.Item, error) {
	return s.items.List(ctx, filter)
}

// UpdateItem overwrites the named fields. A quantity change is applied as a
// stock movement so the ledger keeps explaining the quantity. The movement
// runs first, so a refused quantity leaves the other fields untouched.
func (s *Service) UpdateItem(ctx context.Context, id string, patch models.ItemPatch, user string) (models.Item, error) {
	if err := patch.Validate(); err != nil {
		return models.Item{}, err
	}

	target := patch.Quantity
	patch.Quantity = nil

	item, err := s.items.Get(ctx, id)
	if err != nil {
		return models.Item{}, err
	}

	if target != nil && *target != item.Quantity {
		if s.quantities == nil {
			return models.Item{}, fmt.Errorf("quantity edits are not available: %w", models.ErrValidation)
		}
		res, err := s.quantities.SetQuantity(ctx, id, *target, user)
		if err != nil {
			return models.Item{}, err
		}
		item = res.Item
	}

	if !patch.Empty() {
		item, err = s.items.Update(ctx, id, patch)
		if err != nil {
			return models.Item{}, err
		}
	}

	s.logger.Info("item updated", zap.String("item_id", id))
	s.publish(ctx, events.ItemUpdated, item)
	return item, nil
}

// DeleteItem removes the item; its ledger entries stay.
func (s *Service) DeleteItem(ctx context.Context, id string) error {
	if err := s.items.Delete(ctx, id); err != nil {
		return err
	}

	s.logger.Info("item deleted", zap.String("item_id", id))
	s.publish(ctx, events.ItemDeleted, map[string]string{"id": id})
	return nil
}

// AddReference appends a name to a reference list.
func (s *Service) AddReference(ctx context.Context, kind models.ReferenceKind, name string) (models.Reference, error) {
	ref, err := s.references.Add(ctx, kind, name)
	if err != nil {
		return models.Reference{}, err
	}

	s.logger.Info("reference added", zap.String("reference", ref.Label()))
	s.publish(ctx, events.ReferenceCreated, ref)
	return ref, nil
}

// ListReferences returns one reference list.
func (s *Service) ListReferences(ctx context.Context, kind models.ReferenceKind) ([]models.Reference, error) {
	return s.references.List(ctx, kind)
}

// DeleteReference removes a name from a reference list.
func (s *Service) DeleteReference(ctx context.Context, kind models.ReferenceKind, id string) error {
	if err := s.references.Delete(ctx, kind, id); err != nil {
		return err
	}

	s.publish(ctx, events.ReferenceDeleted, map[string]string{"id": id, "kind": string(kind)})
	return nil
}

func (s *Service) publish(ctx context.Context, t events.Type, payload any) {
	if err := s.publisher.Publish(ctx, events.New(t, payload)); err != nil {
		s.logger.Warn("change not published", zap.String("type", string(t)), zap.Error(err))
	}
}
