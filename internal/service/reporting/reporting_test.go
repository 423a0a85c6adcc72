package reporting

import (
	"context"
	"fmt"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mamadbah2/fleetstock/internal/domain/models"
	"github.com/mamadbah2/fleetstock/internal/repository"
	"github.com/mamadbah2/fleetstock/internal/repository/memory"
	"github.com/mamadbah2/fleetstock/internal/service/stock"
)

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func cost(s string) decimal.NullDecimal { return decimal.NewNullDecimal(dec(s)) }

func TestSummarizeCosts_FleetExample(t *testing.T) {
	items := map[string]models.Item{
		"a": {ID: "a", PartNumber: "A", Description: "Item A", Category: "Filters", UnitCost: dec("5"), Quantity: 7},
	}
	entries := []models.HistoryEntry{
		{ID: "1", ItemID: "a", Change: -3, Type: models.StockOut, FleetNumber: "T13", Category: "Filters", UnitCost: cost("5")},
	}

	summary := SummarizeCosts(JoinRows(entries, items))
	assert.True(t, dec("15").Equal(summary.ByFleet["T13"]))
	assert.True(t, dec("15").Equal(summary.ByCategory["Filters"]))
	assert.True(t, dec("15").Equal(summary.Total))
}

func TestSummarizeCosts_IssuanceOnly(t *testing.T) {
	entries := []models.HistoryEntry{
		{ItemID: "a", Change: -2, Type: models.StockOut, Reason: models.ReasonIssuance, Category: "Tyres", UnitCost: cost("100")},
		{ItemID: "a", Change: 5, Type: models.StockIn, Category: "Tyres", UnitCost: cost("100")},
		{ItemID: "a", Change: -1, Type: models.StockOut, Category: "Tyres", UnitCost: cost("100")},
		{ItemID: "b", Change: -4, Type: models.StockOut, FleetNumber: "T2", Category: "Volvo", UnitCost: cost("2.5")},
	}

	summary := SummarizeCosts(JoinRows(entries, nil))

	assert.True(t, dec("200").Equal(summary.ByFleet[models.UnassignedFleet]))
	assert.True(t, dec("10").Equal(summary.ByFleet["T2"]))
	assert.True(t, dec("200").Equal(summary.ByCategory["Tyres"]))
	assert.True(t, dec("10").Equal(summary.ByCategory["Volvo"]))
	assert.True(t, dec("210").Equal(summary.Total))
}

func TestJoinRows_SnapshotWinsOverLiveItem(t *testing.T) {
	items := map[string]models.Item{
		"a": {ID: "a", PartNumber: "A", Category: "Lubricants", UnitCost: dec("9")},
	}
	entries := []models.HistoryEntry{
		{ItemID: "a", Change: -1, Type: models.StockOut, FleetNumber: "T1", Category: "Filters", UnitCost: cost("4")},
		{ItemID: "a", Change: -1, Type: models.StockOut, FleetNumber: "T1"},
		{ItemID: "gone", Change: -1, Type: models.StockOut, FleetNumber: "T1"},
	}

	rows := JoinRows(entries, items)
	require.Len(t, rows, 3)

	assert.Equal(t, "Filters", rows[0].Category)
	assert.True(t, dec("4").Equal(rows[0].Cost))

	assert.Equal(t, "Lubricants", rows[1].Category)
	assert.True(t, dec("9").Equal(rows[1].Cost))

	assert.Equal(t, models.UnknownLabel, rows[2].PartNumber)
	assert.Equal(t, models.UnknownLabel, rows[2].Category)
	assert.Nil(t, rows[2].Quantity)
	assert.Equal(t, models.UnknownUser, rows[2].User)
}

func TestJoinRows_ZeroCostSnapshotIsKept(t *testing.T) {
	items := map[string]models.Item{
		"a": {ID: "a", PartNumber: "A", Category: "Filters", UnitCost: dec("5"), Quantity: 4},
	}
	entries := []models.HistoryEntry{
		{ItemID: "a", Change: -3, Type: models.StockOut, FleetNumber: "T13", Category: "Filters", UnitCost: cost("0")},
		{ItemID: "a", Change: -1, Type: models.StockOut, FleetNumber: "T14", Category: "Filters"},
	}

	rows := JoinRows(entries, items)
	require.Len(t, rows, 2)
	assert.True(t, rows[0].UnitCost.IsZero())
	assert.True(t, rows[0].Cost.IsZero())
	assert.True(t, dec("5").Equal(rows[1].UnitCost))

	summary := SummarizeCosts(rows)
	assert.True(t, summary.ByFleet["T13"].IsZero())
	assert.True(t, dec("5").Equal(summary.ByFleet["T14"]))
	assert.True(t, dec("5").Equal(summary.Total))
}

func TestFilterRows(t *testing.T) {
	rows := []models.HistoryRow{
		{PartNumber: "FF-100", Description: "Fuel filter", Category: "Filters", FleetNumber: "T1"},
		{PartNumber: "OIL-15W", Description: "Engine oil", Category: "Lubricants", FleetNumber: "T2"},
		{PartNumber: "AF-9", Description: "Air FILTER", Category: "Filters", FleetNumber: "T2"},
	}

	assert.Len(t, FilterRows(rows, models.HistoryQuery{Search: "filter"}), 2)
	assert.Len(t, FilterRows(rows, models.HistoryQuery{Search: "oil-"}), 1)
	assert.Len(t, FilterRows(rows, models.HistoryQuery{Search: "filter", Fleet: "T2"}), 1)
	assert.Len(t, FilterRows(rows, models.HistoryQuery{Category: "All", Fleet: "T2"}), 2)
	assert.Len(t, FilterRows(rows, models.HistoryQuery{Category: "Filters"}), 2)

	// Narrowing then widening recomputes from the full set.
	narrowed := FilterRows(rows, models.HistoryQuery{Fleet: "T1"})
	require.Len(t, narrowed, 1)
	assert.Len(t, FilterRows(rows, models.HistoryQuery{}), 3)
	assert.Len(t, rows, 3)
}

func TestPaginate_CoversEveryRowOnce(t *testing.T) {
	for _, n := range []int{0, 1, 9, 10, 11, 23} {
		for _, size := range models.PageSizes {
			t.Run(fmt.Sprintf("n=%d/size=%d", n, size), func(t *testing.T) {
				rows := make([]models.HistoryRow, n)
				for i := range rows {
					rows[i].EntryID = fmt.Sprint(i)
				}

				first := Paginate(rows, 1, size)
				wantPages := (n + size - 1) / size
				assert.Equal(t, wantPages, first.TotalPages)

				seen := map[string]bool{}
				for p := 1; p <= first.TotalPages; p++ {
					for _, r := range Paginate(rows, p, size).Rows {
						assert.False(t, seen[r.EntryID], "duplicate row %s", r.EntryID)
						seen[r.EntryID] = true
					}
				}
				assert.Len(t, seen, n)
			})
		}
	}
}

func TestPaginate_ClampsPage(t *testing.T) {
	rows := make([]models.HistoryRow, 12)

	page := Paginate(rows, 99, 5)
	assert.Equal(t, 3, page.Page)
	assert.Len(t, page.Rows, 2)

	page = Paginate(rows, -1, 5)
	assert.Equal(t, 1, page.Page)
	assert.Len(t, page.Rows, 5)
}

func seed(t *testing.T) (*Service, repository.Store, models.Item) {
	t.Helper()
	ctx := context.Background()
	repos := memory.New().Repositories()

	item, err := repos.Items.Create(ctx, models.Item{
		Description: "Brake pad", PartNumber: "BP-1", Category: "Volvo", UnitCost: dec("20"), Quantity: 10,
	}, true)
	require.NoError(t, err)
	_, err = repos.Items.Create(ctx, models.Item{
		Description: "Grease", PartNumber: "GR-2", Category: "Lubricants", UnitCost: dec("3"), Quantity: 2,
	}, true)
	require.NoError(t, err)

	mutations := stock.NewService(repos.Items, repos.History, nil, nil)
	_, err = mutations.Issue(ctx, item.ID, "3", "T13", "a@fleet.test")
	require.NoError(t, err)
	_, err = mutations.Receive(ctx, item.ID, "1", "a@fleet.test")
	require.NoError(t, err)
	_, err = mutations.Issue(ctx, item.ID, "2", "T5", "b@fleet.test")
	require.NoError(t, err)

	return NewService(repos.Items, repos.History, repos.References, 10, nil), repos, item
}

func TestService_HistoryTableAndCosts(t *testing.T) {
	svc, _, _ := seed(t)
	ctx := context.Background()

	page, err := svc.HistoryTable(ctx, models.HistoryQuery{Page: 1, Direction: models.Descending})
	require.NoError(t, err)
	assert.Equal(t, 3, page.TotalRows)
	assert.Equal(t, 1, page.TotalPages)
	assert.Equal(t, "T5", page.Rows[0].FleetNumber)
	assert.Equal(t, "BP-1", page.Rows[0].PartNumber)

	costs, err := svc.Costs(ctx, models.HistoryQuery{})
	require.NoError(t, err)
	assert.True(t, dec("60").Equal(costs.ByFleet["T13"]))
	assert.True(t, dec("40").Equal(costs.ByFleet["T5"]))
	assert.True(t, dec("100").Equal(costs.ByCategory["Volvo"]))

	costs, err = svc.Costs(ctx, models.HistoryQuery{Fleet: "T5"})
	require.NoError(t, err)
	assert.True(t, dec("40").Equal(costs.Total))

	_, err = svc.HistoryTable(ctx, models.HistoryQuery{PageSize: 7})
	assert.ErrorIs(t, err, models.ErrValidation)
}

func TestService_LowStockAndDigest(t *testing.T) {
	svc, _, _ := seed(t)
	ctx := context.Background()

	low, err := svc.LowStock(ctx)
	require.NoError(t, err)
	require.Len(t, low, 1)
	assert.Equal(t, "GR-2", low[0].PartNumber)

	digest, hasLow, err := svc.LowStockDigest(ctx)
	require.NoError(t, err)
	assert.True(t, hasLow)
	assert.Contains(t, digest, "GR-2 Grease: 2 left")
}

func TestService_Reconcile(t *testing.T) {
	svc, repos, item := seed(t)
	ctx := context.Background()

	rec, err := svc.Reconcile(ctx, item.ID)
	require.NoError(t, err)
	assert.True(t, rec.Consistent())
	assert.Equal(t, 6, rec.Stored)
	assert.Equal(t, 3, rec.Entries)

	// Simulate the crash window: quantity written without a ledger entry.
	_, err = repos.Items.CompareAndSetQuantity(ctx, item.ID, 6, 4)
	require.NoError(t, err)

	rec, err = svc.Reconcile(ctx, item.ID)
	require.NoError(t, err)
	assert.Equal(t, -2, rec.Drift)

	_, err = svc.Reconcile(ctx, "missing")
	assert.ErrorIs(t, err, models.ErrNotFound)
}

func TestService_FilterOptions(t *testing.T) {
	svc, repos, _ := seed(t)
	ctx := context.Background()

	_, err := repos.References.Add(ctx, models.FleetNumbers, "T13")
	require.NoError(t, err)

	opts, err := svc.FilterOptions(ctx)
	require.NoError(t, err)
	assert.Contains(t, opts.Categories, "Tyres")
	require.Len(t, opts.FleetNumbers, 1)
	assert.Equal(t, []int{5, 10, 20, 50}, opts.PageSizes)
}
