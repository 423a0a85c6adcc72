package stock

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/mamadbah2/fleetstock/internal/domain/models"
	"github.com/mamadbah2/fleetstock/internal/events"
	"github.com/mamadbah2/fleetstock/internal/metrics"
	"github.com/mamadbah2/fleetstock/internal/repository"
)

const defaultAttempts = 3

// Mutation is a requested quantity change on one item.
type Mutation struct {
	ItemID      string
	Quantity    string
	Direction   models.Movement
	Reason      models.Reason
	FleetNumber string
	User        string
}

// Result is what a successful mutation returns to the caller.
type Result struct {
	Item     models.Item         `json:"item"`
	Entry    models.HistoryEntry `json:"entry"`
	LowStock bool                `json:"lowStock"`
}

// Service applies stock mutations so that an item's quantity and its ledger
// stay consistent. Mutations on one item are serialized in process by a
// per-item lock and across processes by a conditional write on quantity.
type Service struct {
	items     repository.ItemRepository
	history   repository.HistoryRepository
	publisher events.Publisher
	locks     *keyedMutex
	attempts  int
	logger    *zap.Logger
}

// NewService wires the mutation workflow.
func NewService(items repository.ItemRepository, history repository.HistoryRepository, publisher events.Publisher, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	if publisher == nil {
		publisher = events.Nop{}
	}
	return &Service{
		items:     items,
		history:   history,
		publisher: publisher,
		locks:     newKeyedMutex(),
		attempts:  defaultAttempts,
		logger:    logger,
	}
}

// ParseQuantity accepts a positive integer magnitude.
func ParseQuantity(raw string) (int, error) {
	n, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil {
		return 0, fmt.Errorf("%w: %q is not a whole number", models.ErrInvalidQuantity, raw)
	}
	if n <= 0 {
		return 0, fmt.Errorf("%w: %d must be greater than zero", models.ErrInvalidQuantity, n)
	}
	return n, nil
}

// Receive adds stock.
func (s *Service) Receive(ctx context.Context, itemID, quantity, user string) (Result, error) {
	return s.Apply(ctx, Mutation{ItemID: itemID, Quantity: quantity, Direction: models.StockIn, User: user})
}

// Dispense removes stock without attributing it to a vehicle.
func (s *Service) Dispense(ctx context.Context, itemID, quantity, user string) (Result, error) {
	return s.Apply(ctx, Mutation{ItemID: itemID, Quantity: quantity, Direction: models.StockOut, User: user})
}

// Issue removes stock and attributes it to a fleet vehicle.
func (s *Service) Issue(ctx context.Context, itemID, quantity, fleetNumber, user string) (Result, error) {
	return s.Apply(ctx, Mutation{
		ItemID:      itemID,
		Quantity:    quantity,
		Direction:   models.StockOut,
		Reason:      models.ReasonIssuance,
		FleetNumber: fleetNumber,
		User:        user,
	})
}

// Apply validates and commits one mutation.
func (s *Service) Apply(ctx context.Context, m Mutation) (Result, error) {
	magnitude, err := ParseQuantity(m.Quantity)
	if err != nil {
		s.count(m.Direction, metrics.OutcomeRejected)
		return Result{}, err
	}
	if err := m.validate(); err != nil {
		s.count(m.Direction, metrics.OutcomeRejected)
		return Result{}, err
	}

	return s.commit(ctx, m.ItemID, m.Reason, strings.TrimSpace(m.FleetNumber), m.User,
		func(models.Item) (models.Movement, int) { return m.Direction, magnitude })
}

// SetQuantity moves an item to target by recording the difference as a
// stock-in or stock-out, so direct edits still show up in the ledger.
func (s *Service) SetQuantity(ctx context.Context, itemID string, target int, user string) (Result, error) {
	if target < 0 {
		return Result{}, models.NewValidationError("quantity must not be negative")
	}

	return s.commit(ctx, itemID, models.ReasonNone, "", user,
		func(item models.Item) (models.Movement, int) {
			delta := target - item.Quantity
			if delta < 0 {
				return models.StockOut, -delta
			}
			return models.StockIn, delta
		})
}

func (m Mutation) validate() error {
	if !m.Direction.Valid() {
		return models.NewValidationError(fmt.Sprintf("unknown direction %q", m.Direction))
	}
	if strings.TrimSpace(m.ItemID) == "" {
		return models.NewValidationError("item id is required")
	}
	fleet := strings.TrimSpace(m.FleetNumber)
	switch {
	case m.Reason == models.ReasonIssuance && m.Direction != models.StockOut:
		return models.NewValidationError("issuance must be a stock out")
	case m.Reason == models.ReasonIssuance && fleet == "":
		return models.NewValidationError("fleet number is required to issue stock")
	case m.Reason != models.ReasonNone && m.Reason != models.ReasonIssuance:
		return models.NewValidationError(fmt.Sprintf("unknown reason %q", m.Reason))
	case fleet != "" && m.Direction != models.StockOut:
		return models.NewValidationError("fleet number only applies to stock out")
	}
	return nil
}

type planFunc func(item models.Item) (models.Movement, int)

func (s *Service) commit(ctx context.Context, itemID string, reason models.Reason, fleet, user string, plan planFunc) (Result, error) {
	if user == "" {
		user = models.UnknownUser
	}

	unlock := s.locks.Lock(itemID)
	defer unlock()

	for attempt := 1; ; attempt++ {
		item, err := s.items.Get(ctx, itemID)
		if err != nil {
			return Result{}, err
		}

		direction, magnitude := plan(item)
		if magnitude == 0 {
			return Result{Item: item, LowStock: item.LowStock()}, nil
		}

		change := direction.Sign() * magnitude
		next := item.Quantity + change
		if next < 0 {
			s.count(direction, metrics.OutcomeRejected)
			return Result{}, fmt.Errorf("%w: %d requested, %d available", models.ErrInsufficientStock, magnitude, item.Quantity)
		}

		updated, err := s.items.CompareAndSetQuantity(ctx, itemID, item.Quantity, next)
		if errors.Is(err, models.ErrConflict) {
			if attempt < s.attempts {
				s.logger.Debug("quantity moved underneath mutation, retrying",
					zap.String("item_id", itemID), zap.Int("attempt", attempt))
				continue
			}
			s.count(direction, metrics.OutcomeConflict)
			return Result{}, err
		}
		if err != nil {
			s.count(direction, metrics.OutcomeStorageError)
			return Result{}, err
		}

		entry, err := s.history.Append(ctx, models.HistoryEntry{
			ItemID:      itemID,
			Change:      change,
			Type:        direction,
			Reason:      reason,
			User:        user,
			FleetNumber: fleet,
			Category:    item.Category,
			Supplier:    item.Supplier,
			UnitCost:    decimal.NewNullDecimal(item.UnitCost),
		})
		if err != nil {
			s.rollback(ctx, itemID, next, item.Quantity)
			s.count(direction, metrics.OutcomeStorageError)
			return Result{}, fmt.Errorf("record history for item %s: %w", itemID, err)
		}

		s.count(direction, metrics.OutcomeOK)
		s.logger.Info("stock mutated",
			zap.String("item_id", itemID),
			zap.String("type", string(direction)),
			zap.Int("change", change),
			zap.Int("quantity", updated.Quantity),
			zap.String("fleet_number", fleet),
			zap.String("user", user))

		result := Result{Item: updated, Entry: entry, LowStock: updated.LowStock()}
		if err := s.publisher.Publish(ctx, events.New(events.StockChanged, result)); err != nil {
			s.logger.Warn("stock change not published", zap.String("item_id", itemID), zap.Error(err))
		}
		return result, nil
	}
}

// rollback restores the quantity after the ledger write failed.
func (s *Service) rollback(ctx context.Context, itemID string, from, to int) {
	if _, err := s.items.CompareAndSetQuantity(context.WithoutCancel(ctx), itemID, from, to); err != nil {
		s.logger.Error("failed to roll back quantity after ledger error; reconcile this item",
			zap.String("item_id", itemID), zap.Int("from", from), zap.Int("to", to), zap.Error(err))
	}
}

func (s *Service) count(direction models.Movement, outcome string) {
	metrics.StockMutations.WithLabelValues(string(direction), outcome).Inc()
}
