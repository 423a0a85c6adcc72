package export

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mamadbah2/fleetstock/internal/domain/models"
	"github.com/mamadbah2/fleetstock/internal/repository"
	"github.com/mamadbah2/fleetstock/internal/repository/memory"
)

type fakeSheet struct {
	rows [][]interface{}
}

func (f *fakeSheet) AppendRows(_ context.Context, _ string, rows [][]interface{}) error {
	f.rows = append(f.rows, rows...)
	return nil
}

func (f *fakeSheet) ReadRange(context.Context, string) ([][]interface{}, error) {
	return f.rows, nil
}

func TestSheetsSync_AppendsOnlyNewEntries(t *testing.T) {
	ctx := context.Background()
	repos := memory.New().Repositories()
	sheet := &fakeSheet{rows: [][]interface{}{{"Date", "Part #"}}}

	item, err := repos.Items.Create(ctx, models.Item{Description: "Tyre", PartNumber: "TY-1", Category: "Tyres", Quantity: 8}, false)
	require.NoError(t, err)
	_, err = repos.History.Append(ctx, models.HistoryEntry{ItemID: item.ID, Change: -2, Type: models.StockOut, FleetNumber: "T3"})
	require.NoError(t, err)

	sync := NewSheetsSync(repos.Items, repos.History, sheet, "History!A:L", nil)

	n, err := sync.Sync(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	require.Len(t, sheet.rows, 2)
	assert.Equal(t, "TY-1", sheet.rows[1][1])

	n, err = sync.Sync(ctx)
	require.NoError(t, err)
	assert.Zero(t, n)

	_, err = repos.History.Append(ctx, models.HistoryEntry{ItemID: item.ID, Change: 5, Type: models.StockIn})
	require.NoError(t, err)

	n, err = sync.Sync(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	assert.Len(t, sheet.rows, 3)
}

func TestSheetsSync_ResumesFromSheetWatermark(t *testing.T) {
	ctx := context.Background()
	repos := memory.New().Repositories()

	first, err := repos.History.Append(ctx, models.HistoryEntry{ItemID: "x", Change: 1, Type: models.StockIn})
	require.NoError(t, err)
	_, err = repos.History.Append(ctx, models.HistoryEntry{ItemID: "x", Change: 1, Type: models.StockIn})
	require.NoError(t, err)

	sheet := &fakeSheet{rows: [][]interface{}{{first.Timestamp.UTC().Format(time.RFC3339Nano)}}}
	sync := NewSheetsSync(repos.Items, repos.History, sheet, "History!A:L", nil)

	n, err := sync.Sync(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

// stampedHistory returns entries with caller-chosen timestamps, the way
// concurrent writers can land on one server stamp or commit out of order.
type stampedHistory struct {
	repository.HistoryRepository
	entries []models.HistoryEntry
}

func (h *stampedHistory) ListSince(_ context.Context, since time.Time) ([]models.HistoryEntry, error) {
	var out []models.HistoryEntry
	for _, e := range h.entries {
		if e.Timestamp.After(since) {
			out = append(out, e)
		}
	}
	return out, nil
}

func TestSheetsSync_EqualAndLateTimestamps(t *testing.T) {
	ctx := context.Background()
	repos := memory.New().Repositories()
	sheet := &fakeSheet{}
	stamp := time.Date(2026, 5, 4, 9, 30, 0, 0, time.UTC)

	history := &stampedHistory{entries: []models.HistoryEntry{
		{ID: "e1", ItemID: "x", Change: -1, Type: models.StockOut, Timestamp: stamp},
		{ID: "e2", ItemID: "x", Change: -2, Type: models.StockOut, Timestamp: stamp},
	}}
	sync := NewSheetsSync(repos.Items, history, sheet, "History!A:L", nil)

	n, err := sync.Sync(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	history.entries = append(history.entries,
		models.HistoryEntry{ID: "e3", ItemID: "x", Change: -3, Type: models.StockOut, Timestamp: stamp},
		models.HistoryEntry{ID: "e4", ItemID: "x", Change: 4, Type: models.StockIn, Timestamp: stamp.Add(-10 * time.Second)},
	)

	n, err = sync.Sync(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	n, err = sync.Sync(ctx)
	require.NoError(t, err)
	assert.Zero(t, n)

	require.Len(t, sheet.rows, 4)
	var ids []interface{}
	for _, row := range sheet.rows {
		require.Len(t, row, len(Header)+1)
		ids = append(ids, row[len(Header)])
	}
	assert.ElementsMatch(t, []interface{}{"e1", "e2", "e3", "e4"}, ids)

	restarted := NewSheetsSync(repos.Items, history, sheet, "History!A:L", nil)
	n, err = restarted.Sync(ctx)
	require.NoError(t, err)
	assert.Zero(t, n)
}
