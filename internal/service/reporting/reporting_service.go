package reporting

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/mamadbah2/fleetstock/internal/domain/models"
	"github.com/mamadbah2/fleetstock/internal/repository"
)

// DefaultPageSize applies when neither the caller nor configuration picks one.
const DefaultPageSize = 10

// Service exposes the read-side views over items and the ledger. Every view
// reads the full item set and ledger and recomputes from scratch.
type Service struct {
	items      repository.ItemRepository
	history    repository.HistoryRepository
	references repository.ReferenceRepository
	pageSize   int
	logger     *zap.Logger
}

// NewService wires a new reporting service instance.
func NewService(items repository.ItemRepository, history repository.HistoryRepository, references repository.ReferenceRepository, pageSize int, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	if pageSize <= 0 {
		pageSize = DefaultPageSize
	}
	return &Service{
		items:      items,
		history:    history,
		references: references,
		pageSize:   pageSize,
		logger:     logger,
	}
}

// Options lists the choices offered by the filter controls.
type Options struct {
	Categories   []string           `json:"categories"`
	FleetNumbers []models.Reference `json:"fleetNumbers"`
	Suppliers    []models.Reference `json:"suppliers"`
	PageSizes    []int              `json:"pageSizes"`
}

// Rows returns every joined ledger row matching the query, unpaginated.
func (s *Service) Rows(ctx context.Context, q models.HistoryQuery) ([]models.HistoryRow, error) {
	entries, err := s.history.ListOrderedByTime(ctx, q.Direction)
	if err != nil {
		return nil, fmt.Errorf("load history: %w", err)
	}

	items, err := s.items.List(ctx, models.ItemFilter{})
	if err != nil {
		return nil, fmt.Errorf("load items: %w", err)
	}

	byID := make(map[string]models.Item, len(items))
	for _, item := range items {
		byID[item.ID] = item
	}

	rows := JoinRows(entries, byID)
	filtered := FilterRows(rows, q)

	s.logger.Debug("history rows computed",
		zap.Int("entries", len(entries)),
		zap.Int("matched", len(filtered)))

	return filtered, nil
}

// HistoryTable returns one page of the filtered history.
func (s *Service) HistoryTable(ctx context.Context, q models.HistoryQuery) (models.HistoryPage, error) {
	size := q.PageSize
	if size == 0 {
		size = s.pageSize
	}
	if !ValidPageSize(size) && size != s.pageSize {
		return models.HistoryPage{}, models.NewValidationError(fmt.Sprintf("page size %d is not offered", size))
	}

	rows, err := s.Rows(ctx, q)
	if err != nil {
		return models.HistoryPage{}, err
	}
	return Paginate(rows, q.Page, size), nil
}

// Costs aggregates issuance cost by category and fleet over the filtered rows.
func (s *Service) Costs(ctx context.Context, q models.HistoryQuery) (models.CostSummary, error) {
	rows, err := s.Rows(ctx, q)
	if err != nil {
		return models.CostSummary{}, err
	}
	return SummarizeCosts(rows), nil
}

// LowStock lists items at or below the low-stock threshold.
func (s *Service) LowStock(ctx context.Context) ([]models.Item, error) {
	items, err := s.items.List(ctx, models.ItemFilter{})
	if err != nil {
		return nil, fmt.Errorf("load items: %w", err)
	}

	var low []models.Item
	for _, item := range items {
		if item.LowStock() {
			low = append(low, item)
		}
	}
	return low, nil
}

// LowStockDigest formats the low-stock list as a short text message. The
// second return is false when nothing is low.
func (s *Service) LowStockDigest(ctx context.Context) (string, bool, error) {
	low, err := s.LowStock(ctx)
	if err != nil {
		return "", false, err
	}
	if len(low) == 0 {
		return "Low stock: all items above threshold.", false, nil
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Low stock (%d items at or below %d):", len(low), models.LowStockThreshold)
	for _, item := range low {
		fmt.Fprintf(&b, "\n- %s %s: %d left", item.PartNumber, item.Description, item.Quantity)
		if item.Location != "" {
			fmt.Fprintf(&b, " (%s)", item.Location)
		}
	}
	return b.String(), true, nil
}

// Reconcile recomputes an item's quantity from its initial stock and ledger.
func (s *Service) Reconcile(ctx context.Context, itemID string) (models.Reconciliation, error) {
	item, err := s.items.Get(ctx, itemID)
	if err != nil {
		return models.Reconciliation{}, err
	}

	entries, err := s.history.ListByItem(ctx, itemID)
	if err != nil {
		return models.Reconciliation{}, fmt.Errorf("load history for %s: %w", itemID, err)
	}

	sum := 0
	for _, e := range entries {
		sum += e.Change
	}

	rec := models.Reconciliation{
		ItemID:          itemID,
		InitialQuantity: item.InitialQuantity,
		LedgerSum:       sum,
		Entries:         len(entries),
		Expected:        item.InitialQuantity + sum,
		Stored:          item.Quantity,
	}
	rec.Drift = rec.Stored - rec.Expected

	if !rec.Consistent() {
		s.logger.Warn("item quantity drifted from ledger",
			zap.String("item_id", itemID),
			zap.Int("stored", rec.Stored),
			zap.Int("expected", rec.Expected))
	}
	return rec, nil
}

// FilterOptions returns categories, reference lists and page sizes.
func (s *Service) FilterOptions(ctx context.Context) (Options, error) {
	fleets, err := s.references.List(ctx, models.FleetNumbers)
	if err != nil {
		return Options{}, fmt.Errorf("load fleet numbers: %w", err)
	}
	suppliers, err := s.references.List(ctx, models.Suppliers)
	if err != nil {
		return Options{}, fmt.Errorf("load suppliers: %w", err)
	}
	return Options{
		Categories:   models.Categories,
		FleetNumbers: fleets,
		Suppliers:    suppliers,
		PageSizes:    models.PageSizes,
	}, nil
}
