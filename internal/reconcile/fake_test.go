package reconcile

import (
	"context"
	"errors"
	"slices"
	"sync"

	"github.com/shopspring/decimal"

	"github.com/dukerupert/basket/internal/api"
	"github.com/dukerupert/basket/internal/model"
)

// fakeRemote is an in-memory stand-in for the API that derives counts and
// totals the way the server does.
type fakeRemote struct {
	mu     sync.Mutex
	lists  map[int64]*model.ShoppingList
	nextID int64

	// failWith, when set, is returned by the next call and then cleared.
	failWith error
	// beforeToggle, when set, runs inside ToggleItem before state changes.
	beforeToggle func()
	comparison   *model.PriceComparison

	calls []string
}

func newFakeRemote() *fakeRemote {
	return &fakeRemote{lists: map[int64]*model.ShoppingList{}, nextID: 100}
}

// seed stores a list with the given items and returns the server's view of it.
func (f *fakeRemote) seed(name string, items ...model.ShoppingListItem) model.ShoppingList {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.nextID++
	list := &model.ShoppingList{ID: f.nextID, Name: name, Status: model.ListStatusActive}
	for i, item := range items {
		f.nextID++
		item.ID = f.nextID
		item.ShoppingListID = list.ID
		item.Position = i
		list.Items = append(list.Items, item)
	}
	f.lists[list.ID] = list
	return f.snapshot(list)
}

func (f *fakeRemote) snapshot(l *model.ShoppingList) model.ShoppingList {
	out := l.Clone()
	if out.Items == nil {
		out.Items = []model.ShoppingListItem{}
	}
	slices.SortStableFunc(out.Items, func(a, b model.ShoppingListItem) int { return a.Position - b.Position })
	out.ItemsCount = len(out.Items)
	out.CheckedItemsCount = 0
	for _, item := range out.Items {
		if item.IsChecked {
			out.CheckedItemsCount++
		}
	}
	out.ProgressPercentage = model.Progress(out.CheckedItemsCount, out.ItemsCount)
	out.EstimatedTotal = out.ComputedTotal()
	return out
}

func (f *fakeRemote) begin(call string) error {
	f.calls = append(f.calls, call)
	if err := f.failWith; err != nil {
		f.failWith = nil
		return err
	}
	return nil
}

func (f *fakeRemote) list(id int64) (*model.ShoppingList, error) {
	l, ok := f.lists[id]
	if !ok {
		return nil, &api.NotFoundError{Resource: "shopping list"}
	}
	return l, nil
}

func (f *fakeRemote) item(listID, itemID int64) (*model.ShoppingList, int, error) {
	l, err := f.list(listID)
	if err != nil {
		return nil, 0, err
	}
	idx := l.ItemIndex(itemID)
	if idx < 0 {
		return nil, 0, &api.NotFoundError{Resource: "shopping list item"}
	}
	return l, idx, nil
}

func (f *fakeRemote) GetList(_ context.Context, listID int64) (model.ShoppingList, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.begin("GetList"); err != nil {
		return model.ShoppingList{}, err
	}
	l, err := f.list(listID)
	if err != nil {
		return model.ShoppingList{}, err
	}
	return f.snapshot(l), nil
}

func (f *fakeRemote) CreateList(_ context.Context, in model.ListInput) (model.ShoppingList, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.begin("CreateList"); err != nil {
		return model.ShoppingList{}, err
	}
	f.nextID++
	l := &model.ShoppingList{ID: f.nextID, Name: in.Name, Status: in.Status, Notes: in.Notes}
	f.lists[l.ID] = l
	return f.snapshot(l), nil
}

func (f *fakeRemote) UpdateList(_ context.Context, listID int64, patch model.ListPatch) (model.ShoppingList, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.begin("UpdateList"); err != nil {
		return model.ShoppingList{}, err
	}
	l, err := f.list(listID)
	if err != nil {
		return model.ShoppingList{}, err
	}
	if patch.Name != nil {
		l.Name = *patch.Name
	}
	if patch.Status != nil {
		l.Status = *patch.Status
	}
	if patch.Notes != nil {
		l.Notes = *patch.Notes
	}
	out := f.snapshot(l)
	out.Items = nil
	return out, nil
}

func (f *fakeRemote) DeleteList(_ context.Context, listID int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.begin("DeleteList"); err != nil {
		return err
	}
	if _, err := f.list(listID); err != nil {
		return err
	}
	delete(f.lists, listID)
	return nil
}

func (f *fakeRemote) DuplicateList(_ context.Context, listID int64) (model.ShoppingList, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.begin("DuplicateList"); err != nil {
		return model.ShoppingList{}, err
	}
	l, err := f.list(listID)
	if err != nil {
		return model.ShoppingList{}, err
	}
	f.nextID++
	dup := l.Clone()
	dup.ID = f.nextID
	dup.Name = l.Name + " (Copy)"
	dup.Status = model.ListStatusActive
	for i := range dup.Items {
		f.nextID++
		dup.Items[i].ID = f.nextID
		dup.Items[i].ShoppingListID = dup.ID
		dup.Items[i].IsChecked = false
	}
	f.lists[dup.ID] = &dup
	return f.snapshot(&dup), nil
}

func (f *fakeRemote) addLocked(l *model.ShoppingList, in model.ItemInput) model.ShoppingListItem {
	f.nextID++
	item := model.ShoppingListItem{
		ID:             f.nextID,
		ShoppingListID: l.ID,
		ProductID:      in.ProductID,
		ProductName:    in.ProductName,
		Quantity:       in.Quantity,
		Unit:           in.Unit,
		EstimatedPrice: in.EstimatedPrice,
		Notes:          in.Notes,
		Position:       len(l.Items),
	}
	l.Items = append(l.Items, item)
	return item.Clone()
}

func (f *fakeRemote) AddItem(_ context.Context, listID int64, in model.ItemInput) (model.ShoppingListItem, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.begin("AddItem"); err != nil {
		return model.ShoppingListItem{}, err
	}
	l, err := f.list(listID)
	if err != nil {
		return model.ShoppingListItem{}, err
	}
	return f.addLocked(l, in), nil
}

func (f *fakeRemote) AddItems(_ context.Context, listID int64, in []model.ItemInput) ([]model.ShoppingListItem, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.begin("AddItems"); err != nil {
		return nil, err
	}
	l, err := f.list(listID)
	if err != nil {
		return nil, err
	}
	var out []model.ShoppingListItem
	for _, input := range in {
		out = append(out, f.addLocked(l, input))
	}
	return out, nil
}

func (f *fakeRemote) UpdateItem(_ context.Context, listID, itemID int64, patch model.ItemPatch) (model.ShoppingListItem, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.begin("UpdateItem"); err != nil {
		return model.ShoppingListItem{}, err
	}
	l, idx, err := f.item(listID, itemID)
	if err != nil {
		return model.ShoppingListItem{}, err
	}
	item := &l.Items[idx]
	if patch.ProductName != nil {
		item.ProductName = *patch.ProductName
	}
	if patch.Quantity != nil {
		item.Quantity = *patch.Quantity
	}
	if patch.Unit != nil {
		item.Unit = *patch.Unit
	}
	if patch.EstimatedPrice != nil {
		p := *patch.EstimatedPrice
		item.EstimatedPrice = &p
	} else if patch.ClearEstimatedPrice {
		item.EstimatedPrice = nil
	}
	if patch.ClearProduct {
		item.ProductID = nil
	}
	if patch.Notes != nil {
		item.Notes = *patch.Notes
	}
	return item.Clone(), nil
}

func (f *fakeRemote) DeleteItem(_ context.Context, listID, itemID int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.begin("DeleteItem"); err != nil {
		return err
	}
	l, idx, err := f.item(listID, itemID)
	if err != nil {
		return err
	}
	l.Items = slices.Delete(l.Items, idx, idx+1)
	return nil
}

func (f *fakeRemote) ToggleItem(_ context.Context, listID, itemID int64) (model.ShoppingListItem, error) {
	if f.beforeToggle != nil {
		f.beforeToggle()
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.begin("ToggleItem"); err != nil {
		return model.ShoppingListItem{}, err
	}
	l, idx, err := f.item(listID, itemID)
	if err != nil {
		return model.ShoppingListItem{}, err
	}
	l.Items[idx].IsChecked = !l.Items[idx].IsChecked
	return l.Items[idx].Clone(), nil
}

func (f *fakeRemote) ClearChecked(_ context.Context, listID int64) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.begin("ClearChecked"); err != nil {
		return 0, err
	}
	l, err := f.list(listID)
	if err != nil {
		return 0, err
	}
	before := len(l.Items)
	l.Items = slices.DeleteFunc(l.Items, func(i model.ShoppingListItem) bool { return i.IsChecked })
	return before - len(l.Items), nil
}

func (f *fakeRemote) ReorderItems(_ context.Context, listID int64, orders []model.ItemOrder) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.begin("ReorderItems"); err != nil {
		return err
	}
	for _, o := range orders {
		l, idx, err := f.item(listID, o.ItemID)
		if err != nil {
			return err
		}
		l.Items[idx].Position = o.Position
	}
	return nil
}

func (f *fakeRemote) AutoEstimate(_ context.Context, listID int64) (api.AutoEstimateResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.begin("AutoEstimate"); err != nil {
		return api.AutoEstimateResult{}, err
	}
	l, err := f.list(listID)
	if err != nil {
		return api.AutoEstimateResult{}, err
	}
	n := 0
	for i := range l.Items {
		if l.Items[i].EstimatedPrice == nil && l.Items[i].ProductID != nil {
			p := decimal.RequireFromString("1.00")
			l.Items[i].EstimatedPrice = &p
			n++
		}
	}
	return api.AutoEstimateResult{UpdatedCount: n, EstimatedTotal: f.snapshot(l).EstimatedTotal}, nil
}

func (f *fakeRemote) ComparePrices(_ context.Context, listID int64) (model.PriceComparison, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.begin("ComparePrices"); err != nil {
		return model.PriceComparison{}, err
	}
	if f.comparison == nil {
		return model.PriceComparison{}, errors.New("no comparison configured")
	}
	return *f.comparison, nil
}

func (f *fakeRemote) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.calls)
}
