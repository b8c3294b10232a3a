package reconcile

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dukerupert/basket/internal/api"
	"github.com/dukerupert/basket/internal/compare"
	"github.com/dukerupert/basket/internal/model"
)

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func price(s string) *decimal.Decimal {
	d := dec(s)
	return &d
}

func item(name string, checked bool) model.ShoppingListItem {
	return model.ShoppingListItem{ProductName: name, Quantity: dec("1"), IsChecked: checked}
}

func mustJSON(t *testing.T, v any) string {
	t.Helper()
	data, err := json.Marshal(v)
	require.NoError(t, err)
	return string(data)
}

func assertInvariant(t *testing.T, l model.ShoppingList) {
	t.Helper()
	assert.GreaterOrEqual(t, l.CheckedItemsCount, 0)
	assert.LessOrEqual(t, l.CheckedItemsCount, l.ItemsCount)
	assert.Equal(t, model.Progress(l.CheckedItemsCount, l.ItemsCount), l.ProgressPercentage)
}

func setup(t *testing.T, items ...model.ShoppingListItem) (*Reconciler, *fakeRemote, model.ShoppingList) {
	t.Helper()
	remote := newFakeRemote()
	seeded := remote.seed("Weekly", items...)
	r := New(remote, nil)
	list, err := r.Load(context.Background(), seeded.ID)
	require.NoError(t, err)
	return r, remote, list
}

func TestProgressInvariant(t *testing.T) {
	tests := []struct {
		checked, total, want int
	}{
		{0, 0, 0},
		{1, 3, 33},
		{2, 3, 67},
		{1, 2, 50},
		{1, 8, 13}, // 12.5 rounds half-up
		{3, 3, 100},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, model.Progress(tt.checked, tt.total), "%d/%d", tt.checked, tt.total)
	}
}

func TestToggleUsesPostToggleCount(t *testing.T) {
	r, _, list := setup(t, item("Eggs", true), item("Milk", false), item("Bread", false), item("Rice", false))
	require.Equal(t, 4, list.ItemsCount)
	require.Equal(t, 1, list.CheckedItemsCount)
	require.Equal(t, 25, list.ProgressPercentage)

	next, toggled, err := r.ToggleItem(context.Background(), list, list.Items[1].ID)
	require.NoError(t, err)

	assert.True(t, toggled.IsChecked)
	assert.Equal(t, 2, next.CheckedItemsCount)
	assert.Equal(t, 50, next.ProgressPercentage)
	assert.True(t, next.Items[1].IsChecked)
	assertInvariant(t, next)

	// the version passed in is untouched
	assert.Equal(t, 1, list.CheckedItemsCount)
	assert.False(t, list.Items[1].IsChecked)
}

func TestDoubleToggleRoundTrips(t *testing.T) {
	r, _, list := setup(t, item("Eggs", false), item("Milk", false), item("Bread", true))
	ctx := context.Background()
	id := list.Items[0].ID

	once, first, err := r.ToggleItem(ctx, list, id)
	require.NoError(t, err)
	assert.True(t, first.IsChecked)
	assert.Equal(t, 2, once.CheckedItemsCount)
	assert.Equal(t, 67, once.ProgressPercentage)

	twice, second, err := r.ToggleItem(ctx, once, id)
	require.NoError(t, err)
	assert.False(t, second.IsChecked)
	assert.Equal(t, list.CheckedItemsCount, twice.CheckedItemsCount)
	assert.Equal(t, list.ProgressPercentage, twice.ProgressPercentage)
	assert.Equal(t, 33, twice.ProgressPercentage)
}

func TestToggleFailureLeavesListUnchanged(t *testing.T) {
	r, remote, list := setup(t, item("Eggs", false))
	before := mustJSON(t, list)

	remote.failWith = &api.NetworkError{Op: "POST toggle", Err: errors.New("connection reset")}
	next, _, err := r.ToggleItem(context.Background(), list, list.Items[0].ID)

	assert.Equal(t, api.KindNetwork, api.KindOf(err))
	assert.Equal(t, before, mustJSON(t, next))
	assert.Equal(t, before, mustJSON(t, list))
}

func TestToggleUnknownItemSkipsRemote(t *testing.T) {
	r, remote, list := setup(t, item("Eggs", false))
	calls := remote.callCount()

	_, _, err := r.ToggleItem(context.Background(), list, 9999)

	assert.Equal(t, api.KindNotFound, api.KindOf(err))
	assert.Equal(t, calls, remote.callCount())
}

func TestClearCheckedItems(t *testing.T) {
	r, _, list := setup(t, item("Eggs", true), item("Milk", false), item("Bread", true))
	keep := list.Items[1].ID

	next, n, err := r.ClearCheckedItems(context.Background(), list)
	require.NoError(t, err)

	assert.Equal(t, 2, n)
	assert.Equal(t, 1, next.ItemsCount)
	assert.Equal(t, 0, next.CheckedItemsCount)
	require.Len(t, next.Items, 1)
	assert.Equal(t, keep, next.Items[0].ID)
	assert.Equal(t, "Milk", next.Items[0].ProductName)
	assertInvariant(t, next)
}

func TestUpdateItemFailureLeavesStateUntouched(t *testing.T) {
	r, remote, list := setup(t, item("Eggs", true), item("Milk", false))
	itemsBefore := mustJSON(t, list.Items)
	countsBefore := []int{list.ItemsCount, list.CheckedItemsCount}

	remote.failWith = &api.NetworkError{Op: "PATCH item", Err: errors.New("timeout")}
	qty := dec("3")
	next, _, err := r.UpdateItem(context.Background(), list, list.Items[1].ID, model.ItemPatch{Quantity: &qty})

	var ne *api.NetworkError
	require.True(t, errors.As(err, &ne))
	assert.Equal(t, itemsBefore, mustJSON(t, next.Items))
	assert.Equal(t, countsBefore, []int{next.ItemsCount, next.CheckedItemsCount})
	assert.Equal(t, itemsBefore, mustJSON(t, list.Items))
}

func TestUpdateItemRefetches(t *testing.T) {
	milk := item("Milk", false)
	milk.EstimatedPrice = price("1.50")
	r, _, list := setup(t, milk)

	qty := dec("4")
	next, updated, err := r.UpdateItem(context.Background(), list, list.Items[0].ID, model.ItemPatch{Quantity: &qty})
	require.NoError(t, err)

	assert.True(t, updated.Quantity.Equal(qty))
	assert.True(t, next.EstimatedTotal.Equal(dec("6")), "total %s", next.EstimatedTotal)
}

func TestUpdateItemClearingPriceDropsItFromTotal(t *testing.T) {
	milk := item("Milk", false)
	milk.EstimatedPrice = price("1.50")
	bread := item("Bread", false)
	bread.EstimatedPrice = price("3")
	r, _, list := setup(t, milk, bread)
	require.True(t, list.EstimatedTotal.Equal(dec("4.5")))

	next, updated, err := r.UpdateItem(context.Background(), list, list.Items[1].ID, model.ItemPatch{ClearEstimatedPrice: true})
	require.NoError(t, err)

	assert.Nil(t, updated.EstimatedPrice)
	assert.True(t, next.EstimatedTotal.Equal(dec("1.5")), "total %s", next.EstimatedTotal)
}

func TestAddItemValidation(t *testing.T) {
	r, remote, list := setup(t)
	calls := remote.callCount()
	linkedProduct := int64(12)

	tests := []struct {
		name  string
		in    model.ItemInput
		field string
	}{
		{"blank name", model.ItemInput{ProductName: "  ", Quantity: dec("1")}, "product_name"},
		{"linked product without name", model.ItemInput{ProductID: &linkedProduct, Quantity: dec("1")}, "product_name"},
		{"zero quantity", model.ItemInput{ProductName: "Milk", Quantity: dec("0")}, "quantity"},
		{"negative quantity", model.ItemInput{ProductName: "Milk", Quantity: dec("-2")}, "quantity"},
		{"negative price", model.ItemInput{ProductName: "Milk", Quantity: dec("1"), EstimatedPrice: price("-0.01")}, "estimated_price"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			next, _, err := r.AddItem(context.Background(), list, tt.in)

			var ve *api.ValidationError
			require.True(t, errors.As(err, &ve))
			assert.Contains(t, ve.Fields, tt.field)
			assert.Equal(t, mustJSON(t, list), mustJSON(t, next))
		})
	}
	assert.Equal(t, calls, remote.callCount(), "validation failures must not reach the remote")
}

func TestAddItemRefetchesServerTotals(t *testing.T) {
	r, _, list := setup(t, item("Eggs", false))

	next, added, err := r.AddItem(context.Background(), list, model.ItemInput{
		ProductName:    "Coffee",
		Quantity:       dec("2"),
		EstimatedPrice: price("7.25"),
	})
	require.NoError(t, err)

	assert.Equal(t, "Coffee", added.ProductName)
	assert.Equal(t, 2, next.ItemsCount)
	assert.True(t, next.EstimatedTotal.Equal(dec("14.5")))
	assertInvariant(t, next)
}

func TestAddItemRefetchFailureKeepsList(t *testing.T) {
	r, remote, list := setup(t)
	before := mustJSON(t, list)

	// AddItem succeeds, the GetList that follows does not.
	r.remote = &failingGet{Remote: remote}
	next, added, err := r.AddItem(context.Background(), list, model.ItemInput{ProductName: "Tea", Quantity: dec("1")})

	require.Error(t, err)
	assert.Equal(t, "Tea", added.ProductName)
	assert.Equal(t, before, mustJSON(t, next))
}

type failingGet struct {
	Remote
}

func (failingGet) GetList(context.Context, int64) (model.ShoppingList, error) {
	return model.ShoppingList{}, &api.NetworkError{Op: "GET list", Err: errors.New("unreachable")}
}

func TestAddItemsBulk(t *testing.T) {
	r, remote, list := setup(t)

	_, _, err := r.AddItems(context.Background(), list, []model.ItemInput{
		{ProductName: "Apples", Quantity: dec("6")},
		{ProductName: "", Quantity: dec("1")},
	})
	var ve *api.ValidationError
	require.True(t, errors.As(err, &ve))
	assert.Contains(t, ve.Fields, "items.1.product_name")
	assert.NotContains(t, remote.calls, "AddItems")

	next, items, err := r.AddItems(context.Background(), list, []model.ItemInput{
		{ProductName: "Apples", Quantity: dec("6")},
		{ProductName: "Pears", Quantity: dec("2")},
	})
	require.NoError(t, err)
	assert.Len(t, items, 2)
	assert.Equal(t, 2, next.ItemsCount)
}

func TestDeleteItemAdjustsCountsAndTotal(t *testing.T) {
	eggs := item("Eggs", true)
	eggs.Quantity = dec("2")
	eggs.EstimatedPrice = price("1.50")
	milk := item("Milk", false)
	milk.EstimatedPrice = price("7.00")
	r, _, list := setup(t, eggs, milk)
	require.True(t, list.EstimatedTotal.Equal(dec("10")))

	next, err := r.DeleteItem(context.Background(), list, list.Items[0].ID)
	require.NoError(t, err)

	assert.Equal(t, 1, next.ItemsCount)
	assert.Equal(t, 0, next.CheckedItemsCount)
	assert.Equal(t, 0, next.ProgressPercentage)
	assert.True(t, next.EstimatedTotal.Equal(dec("7")), "total %s", next.EstimatedTotal)
	assert.Len(t, list.Items, 2)
	assertInvariant(t, next)

	fresh, err := r.Load(context.Background(), list.ID)
	require.NoError(t, err)
	assert.Equal(t, fresh.ItemsCount, next.ItemsCount)
	assert.True(t, fresh.EstimatedTotal.Equal(next.EstimatedTotal))
}

func TestApplyDeleteClampsTotal(t *testing.T) {
	list := model.ShoppingList{
		ID:             1,
		EstimatedTotal: dec("1.00"),
		Items: []model.ShoppingListItem{
			{ID: 5, Quantity: dec("3"), EstimatedPrice: price("2.00"), IsChecked: true},
		},
		ItemsCount:        1,
		CheckedItemsCount: 1,
	}

	next, err := ApplyDelete(list, 5)
	require.NoError(t, err)
	assert.True(t, next.EstimatedTotal.IsZero())
	assert.Empty(t, next.Items)
	assert.Equal(t, 0, next.ItemsCount)
	assert.Equal(t, 0, next.CheckedItemsCount)
	assert.Len(t, list.Items, 1)
}

func TestApplyToggleClampsStaleCounts(t *testing.T) {
	list := model.ShoppingList{
		Items:             []model.ShoppingListItem{{ID: 1}, {ID: 2}},
		ItemsCount:        2,
		CheckedItemsCount: 2, // stale: neither item is checked locally
	}

	next, err := ApplyToggle(list, model.ShoppingListItem{ID: 1, IsChecked: true})
	require.NoError(t, err)
	assert.Equal(t, 2, next.CheckedItemsCount)
	assert.Equal(t, 100, next.ProgressPercentage)

	_, err = ApplyToggle(list, model.ShoppingListItem{ID: 3})
	assert.Equal(t, api.KindNotFound, api.KindOf(err))
}

func TestPendingToggle(t *testing.T) {
	list := Recount(model.ShoppingList{
		ID:    7,
		Items: []model.ShoppingListItem{{ID: 1}, {ID: 2, IsChecked: true}, {ID: 3}, {ID: 4}},
	})
	require.Equal(t, 25, list.ProgressPercentage)

	p, err := BeginToggle(list, 3)
	require.NoError(t, err)
	assert.Equal(t, int64(3), p.ItemID())
	assert.Equal(t, 50, p.Tentative().ProgressPercentage)
	assert.True(t, p.Tentative().Items[2].IsChecked)

	assert.Equal(t, list, p.Revert())
	assert.False(t, list.Items[2].IsChecked)

	confirmed, err := p.Confirm(model.ShoppingListItem{ID: 3, IsChecked: true, Notes: "from server"})
	require.NoError(t, err)
	assert.Equal(t, 2, confirmed.CheckedItemsCount)
	assert.Equal(t, "from server", confirmed.Items[2].Notes)

	reverted, err := p.Confirm(model.ShoppingListItem{ID: 4})
	assert.Equal(t, api.KindNotFound, api.KindOf(err))
	assert.Equal(t, list, reverted)

	_, err = BeginToggle(list, 99)
	assert.Equal(t, api.KindNotFound, api.KindOf(err))
}

func TestOverlappingTogglesLoseAnUpdate(t *testing.T) {
	r, remote, list := setup(t, item("Eggs", false), item("Milk", false))
	ctx := context.Background()

	var arrived sync.WaitGroup
	arrived.Add(2)
	release := make(chan struct{})
	remote.beforeToggle = func() {
		arrived.Done()
		<-release
	}

	results := make(chan model.ShoppingList, 2)
	for _, it := range list.Items {
		go func(id int64) {
			next, _, err := r.ToggleItem(ctx, list, id)
			assert.NoError(t, err)
			results <- next
		}(it.ID)
	}

	arrived.Wait() // both requests are in flight against the same version
	close(release)

	first, second := <-results, <-results
	for _, v := range []model.ShoppingList{first, second} {
		assert.Equal(t, 1, v.CheckedItemsCount, "each result only knows about its own toggle")
	}

	server, err := r.Load(ctx, list.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, server.CheckedItemsCount)
	assert.NotEqual(t, server.CheckedItemsCount, second.CheckedItemsCount, "last write wins and drops the other toggle")
}

func TestUpdateListMetadataKeepsItems(t *testing.T) {
	r, _, list := setup(t, item("Eggs", false))

	name := "Saturday run"
	next, err := r.UpdateListMetadata(context.Background(), list, model.ListPatch{Name: &name})
	require.NoError(t, err)
	assert.Equal(t, "Saturday run", next.Name)
	assert.Equal(t, list.Items, next.Items)

	blank := ""
	_, err = r.UpdateListMetadata(context.Background(), list, model.ListPatch{Name: &blank})
	assert.Equal(t, api.KindValidation, api.KindOf(err))

	bogus := model.ListStatus("deleted")
	_, err = r.UpdateListMetadata(context.Background(), list, model.ListPatch{Status: &bogus})
	assert.Equal(t, api.KindValidation, api.KindOf(err))
}

func TestMarkComplete(t *testing.T) {
	r, _, list := setup(t)
	require.True(t, list.CanMarkComplete())

	done, err := r.MarkComplete(context.Background(), list)
	require.NoError(t, err)
	assert.Equal(t, model.ListStatusCompleted, done.Status)
	assert.False(t, done.CanMarkComplete())

	again, err := r.MarkComplete(context.Background(), done)
	assert.Equal(t, api.KindValidation, api.KindOf(err))
	assert.Equal(t, done, again)
}

func TestCreateDuplicateDeleteList(t *testing.T) {
	remote := newFakeRemote()
	r := New(remote, nil)
	ctx := context.Background()

	_, err := r.CreateList(ctx, model.ListInput{Name: ""})
	assert.Equal(t, api.KindValidation, api.KindOf(err))

	created, err := r.CreateList(ctx, model.ListInput{Name: "Party"})
	require.NoError(t, err)
	assert.Equal(t, model.ListStatusActive, created.Status)

	created, _, err = r.AddItem(ctx, created, model.ItemInput{ProductName: "Chips", Quantity: dec("3")})
	require.NoError(t, err)
	created, _, err = r.ToggleItem(ctx, created, created.Items[0].ID)
	require.NoError(t, err)

	dup, err := r.DuplicateList(ctx, created.ID)
	require.NoError(t, err)
	assert.NotEqual(t, created.ID, dup.ID)
	assert.Equal(t, 1, dup.ItemsCount)
	assert.Equal(t, 0, dup.CheckedItemsCount)

	require.NoError(t, r.DeleteList(ctx, created.ID))
	_, err = r.Load(ctx, created.ID)
	assert.Equal(t, api.KindNotFound, api.KindOf(err))
}

func TestReorderItems(t *testing.T) {
	r, _, list := setup(t, item("A", false), item("B", false), item("C", false))

	_, err := r.ReorderItems(context.Background(), list, []model.ItemOrder{{ItemID: 12345, Position: 0}})
	assert.Equal(t, api.KindValidation, api.KindOf(err))

	next, err := r.ReorderItems(context.Background(), list, []model.ItemOrder{
		{ItemID: list.Items[2].ID, Position: 0},
		{ItemID: list.Items[0].ID, Position: 1},
		{ItemID: list.Items[1].ID, Position: 2},
	})
	require.NoError(t, err)
	names := []string{next.Items[0].ProductName, next.Items[1].ProductName, next.Items[2].ProductName}
	assert.Equal(t, []string{"C", "A", "B"}, names)
}

func TestAutoEstimate(t *testing.T) {
	linked := item("Flour", false)
	pid := int64(42)
	linked.ProductID = &pid
	linked.Quantity = dec("3")
	r, _, list := setup(t, linked, item("Loose", false))

	next, res, err := r.AutoEstimate(context.Background(), list)
	require.NoError(t, err)
	assert.Equal(t, 1, res.UpdatedCount)
	assert.True(t, next.EstimatedTotal.Equal(dec("3")))
	require.NotNil(t, next.Items[0].EstimatedPrice)
}

func TestCompareEvaluatesLocally(t *testing.T) {
	remote := newFakeRemote()
	c := compare.Build(1, "Weekly", []compare.ItemOffers{
		{ItemID: 1, ProductName: "Milk", Quantity: dec("2"), Offers: []compare.Offer{
			{StoreID: 1, StoreName: "Corner", UnitPrice: dec("1.20")},
			{StoreID: 2, StoreName: "Bulk", UnitPrice: dec("0.95")},
		}},
	})
	remote.comparison = &c
	r := New(remote, nil)

	got, view, err := r.Compare(context.Background(), 1)
	require.NoError(t, err)
	assert.Equal(t, c.BestStore, got.BestStore)
	require.NotNil(t, view.Best)
	assert.Equal(t, "Bulk", view.Best.Store)
	assert.True(t, view.Savings.Equal(dec("0.5")))
	assert.Empty(t, view.Disagreements)
}
