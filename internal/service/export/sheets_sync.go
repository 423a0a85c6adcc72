package export

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/mamadbah2/fleetstock/internal/domain/models"
	"github.com/mamadbah2/fleetstock/internal/repository"
	"github.com/mamadbah2/fleetstock/internal/repository/sheets"
	"github.com/mamadbah2/fleetstock/internal/service/reporting"
)

// settleWindow is how far behind the watermark each sync looks again. Entries
// sharing the watermark timestamp, or committed late with an earlier server
// stamp, land inside it and are matched against the exported IDs.
const settleWindow = time.Minute

// entryIDColumn is the sheet column after the export columns that holds the
// ledger entry ID.
var entryIDColumn = len(Header)

// SheetsSync mirrors new ledger entries into a spreadsheet. Column A holds the
// RFC 3339 timestamp, which doubles as the sync watermark, and the last column
// holds the entry ID.
type SheetsSync struct {
	items   repository.ItemRepository
	history repository.HistoryRepository
	sheet   sheets.Repository
	rng     string
	logger  *zap.Logger

	mu        sync.Mutex
	watermark time.Time
	exported  map[string]time.Time
	primed    bool

	// floor is the newest row written without an entry ID; everything at or
	// before it counts as exported.
	floor time.Time
}

// NewSheetsSync wires the ledger export.
func NewSheetsSync(items repository.ItemRepository, history repository.HistoryRepository, sheet sheets.Repository, sheetRange string, logger *zap.Logger) *SheetsSync {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SheetsSync{
		items:    items,
		history:  history,
		sheet:    sheet,
		rng:      sheetRange,
		logger:   logger,
		exported: make(map[string]time.Time),
	}
}

// Sync appends every entry not yet in the sheet and returns how many rows
// were written.
func (s *SheetsSync) Sync(ctx context.Context) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.primed {
		if err := s.prime(ctx); err != nil {
			return 0, err
		}
		s.primed = true
	}

	since := s.watermark
	if !since.IsZero() {
		since = since.Add(-settleWindow)
	}
	candidates, err := s.history.ListSince(ctx, since)
	if err != nil {
		return 0, fmt.Errorf("load new history: %w", err)
	}

	entries := make([]models.HistoryEntry, 0, len(candidates))
	for _, e := range candidates {
		if _, seen := s.exported[e.ID]; seen || !e.Timestamp.After(s.floor) {
			continue
		}
		entries = append(entries, e)
	}
	if len(entries) == 0 {
		return 0, nil
	}

	items, err := s.items.List(ctx, models.ItemFilter{})
	if err != nil {
		return 0, fmt.Errorf("load items: %w", err)
	}
	byID := make(map[string]models.Item, len(items))
	for _, item := range items {
		byID[item.ID] = item
	}

	rows := reporting.JoinRows(entries, byID)
	values := make([][]interface{}, 0, len(rows))
	for _, row := range rows {
		values = append(values, sheetRow(row))
	}

	if err := s.sheet.AppendRows(ctx, s.rng, values); err != nil {
		return 0, err
	}

	for _, e := range entries {
		s.remember(e.ID, e.Timestamp)
	}
	s.prune()
	s.logger.Info("ledger exported to sheets", zap.Int("rows", len(values)), zap.Time("watermark", s.watermark))
	return len(values), nil
}

// prime restores the watermark and the recently exported IDs from the sheet.
func (s *SheetsSync) prime(ctx context.Context) error {
	existing, err := s.sheet.ReadRange(ctx, s.rng)
	if err != nil {
		return fmt.Errorf("read sheet watermark: %w", err)
	}

	for _, row := range existing {
		if len(row) == 0 {
			continue
		}
		raw, ok := row[0].(string)
		if !ok {
			continue
		}
		ts, err := time.Parse(time.RFC3339Nano, raw)
		if err != nil {
			s.logger.Debug("skip sheet row without timestamp", zap.Any("value", row[0]))
			continue
		}
		id := ""
		if len(row) > entryIDColumn {
			id, _ = row[entryIDColumn].(string)
		}
		if id == "" && ts.After(s.floor) {
			s.floor = ts
		}
		s.remember(id, ts)
	}
	s.prune()
	return nil
}

func (s *SheetsSync) remember(id string, ts time.Time) {
	if ts.After(s.watermark) {
		s.watermark = ts
	}
	if id != "" {
		s.exported[id] = ts
	}
}

func (s *SheetsSync) prune() {
	cutoff := s.watermark.Add(-settleWindow)
	for id, ts := range s.exported {
		if ts.Before(cutoff) {
			delete(s.exported, id)
		}
	}
}

func sheetRow(row models.HistoryRow) []interface{} {
	record := Record(row)
	out := make([]interface{}, 0, len(record)+1)
	out = append(out, row.Date.UTC().Format(time.RFC3339Nano))
	for _, cell := range record[1:] {
		out = append(out, cell)
	}
	return append(out, row.EntryID)
}
