package inventory

import (
	"context"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mamadbah2/fleetstock/internal/domain/models"
	"github.com/mamadbah2/fleetstock/internal/events"
	"github.com/mamadbah2/fleetstock/internal/repository"
	"github.com/mamadbah2/fleetstock/internal/repository/memory"
	"github.com/mamadbah2/fleetstock/internal/service/stock"
)

func newService(t *testing.T) (*Service, repository.Store, <-chan events.Event) {
	t.Helper()
	repos := memory.New().Repositories()
	broker := events.NewBroker(nil)
	feed, cancel := broker.Subscribe(16)
	t.Cleanup(cancel)

	mutations := stock.NewService(repos.Items, repos.History, nil, nil)
	return NewService(repos.Items, repos.References, mutations, broker, nil), repos, feed
}

func TestCreateItem_TrimsAndPublishes(t *testing.T) {
	svc, _, feed := newService(t)

	item, err := svc.CreateItem(context.Background(), models.Item{
		Description: " Wheel nut ",
		PartNumber:  " WN-8 ",
		Category:    "Tyres",
		UnitCost:    decimal.RequireFromString("1.25"),
		Quantity:    40,
	}, true)
	require.NoError(t, err)
	assert.Equal(t, "WN-8", item.PartNumber)
	assert.Equal(t, "Wheel nut", item.Description)

	evt := <-feed
	assert.Equal(t, events.ItemCreated, evt.Type)

	_, err = svc.CreateItem(context.Background(), models.Item{
		Description: "Other", PartNumber: "WN-8", Category: "Tyres",
	}, true)
	assert.ErrorIs(t, err, models.ErrDuplicate)
}

func TestUpdateItem_QuantityGoesThroughLedger(t *testing.T) {
	svc, repos, _ := newService(t)
	ctx := context.Background()

	item, err := svc.CreateItem(ctx, models.Item{Description: "Hose", PartNumber: "H-1", Category: "Volvo", Quantity: 10}, false)
	require.NoError(t, err)

	loc := "Bay 3"
	qty := 7
	updated, err := svc.UpdateItem(ctx, item.ID, models.ItemPatch{Location: &loc, Quantity: &qty}, "clerk@fleet.test")
	require.NoError(t, err)
	assert.Equal(t, "Bay 3", updated.Location)
	assert.Equal(t, 7, updated.Quantity)

	entries, err := repos.History.ListByItem(ctx, item.ID)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, -3, entries[0].Change)
	assert.Equal(t, "clerk@fleet.test", entries[0].User)
}

func TestUpdateItem_Errors(t *testing.T) {
	svc, _, _ := newService(t)
	ctx := context.Background()

	loc := "x"
	_, err := svc.UpdateItem(ctx, "missing", models.ItemPatch{Location: &loc}, "")
	assert.ErrorIs(t, err, models.ErrNotFound)

	blank := " "
	_, err = svc.UpdateItem(ctx, "missing", models.ItemPatch{Description: &blank}, "")
	assert.ErrorIs(t, err, models.ErrValidation)
}

type refusingSetter struct {
	err   error
	calls int
}

func (r *refusingSetter) SetQuantity(context.Context, string, int, string) (stock.Result, error) {
	r.calls++
	return stock.Result{}, r.err
}

func TestUpdateItem_RefusedQuantityLeavesFieldsUntouched(t *testing.T) {
	repos := memory.New().Repositories()
	setter := &refusingSetter{err: models.ErrConflict}
	svc := NewService(repos.Items, repos.References, setter, nil, nil)
	ctx := context.Background()

	item, err := svc.CreateItem(ctx, models.Item{Description: "Hose", PartNumber: "H-1", Location: "Bay 1", Category: "Volvo", Quantity: 10}, false)
	require.NoError(t, err)

	loc := "Bay 3"
	qty := 4
	_, err = svc.UpdateItem(ctx, item.ID, models.ItemPatch{Location: &loc, Quantity: &qty}, "clerk@fleet.test")
	assert.ErrorIs(t, err, models.ErrConflict)
	assert.Equal(t, 1, setter.calls)

	stored, err := repos.Items.Get(ctx, item.ID)
	require.NoError(t, err)
	assert.Equal(t, "Bay 1", stored.Location)
	assert.Equal(t, 10, stored.Quantity)

	noLedger := NewService(repos.Items, repos.References, nil, nil, nil)
	_, err = noLedger.UpdateItem(ctx, item.ID, models.ItemPatch{Location: &loc, Quantity: &qty}, "")
	assert.ErrorIs(t, err, models.ErrValidation)

	stored, err = repos.Items.Get(ctx, item.ID)
	require.NoError(t, err)
	assert.Equal(t, "Bay 1", stored.Location)
}

func TestUpdateItem_UnchangedQuantitySkipsLedger(t *testing.T) {
	repos := memory.New().Repositories()
	setter := &refusingSetter{err: models.ErrConflict}
	svc := NewService(repos.Items, repos.References, setter, nil, nil)
	ctx := context.Background()

	item, err := svc.CreateItem(ctx, models.Item{Description: "Hose", PartNumber: "H-1", Category: "Volvo", Quantity: 10}, false)
	require.NoError(t, err)

	loc := "Bay 2"
	qty := 10
	updated, err := svc.UpdateItem(ctx, item.ID, models.ItemPatch{Location: &loc, Quantity: &qty}, "")
	require.NoError(t, err)
	assert.Equal(t, "Bay 2", updated.Location)
	assert.Zero(t, setter.calls)
}

func TestDeleteItem(t *testing.T) {
	svc, _, _ := newService(t)
	ctx := context.Background()

	item, err := svc.CreateItem(ctx, models.Item{Description: "Belt", PartNumber: "B-1", Category: "GET"}, false)
	require.NoError(t, err)

	require.NoError(t, svc.DeleteItem(ctx, item.ID))
	_, err = svc.GetItem(ctx, item.ID)
	assert.ErrorIs(t, err, models.ErrNotFound)
}

func TestReferences(t *testing.T) {
	svc, _, feed := newService(t)
	ctx := context.Background()

	ref, err := svc.AddReference(ctx, models.Suppliers, " Bosch ")
	require.NoError(t, err)
	assert.Equal(t, "Bosch", ref.Name)
	assert.Equal(t, events.ReferenceCreated, (<-feed).Type)

	list, err := svc.ListReferences(ctx, models.Suppliers)
	require.NoError(t, err)
	assert.Len(t, list, 1)

	require.NoError(t, svc.DeleteReference(ctx, models.Suppliers, ref.ID))
	assert.Equal(t, events.ReferenceDeleted, (<-feed).Type)
}
