package reconcile

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/dukerupert/basket/internal/api"
	"github.com/dukerupert/basket/internal/compare"
	"github.com/dukerupert/basket/internal/model"
)

// Remote is the subset of the API the reconciler drives. *api.Client
// satisfies it.
type Remote interface {
	GetList(ctx context.Context, listID int64) (model.ShoppingList, error)
	CreateList(ctx context.Context, in model.ListInput) (model.ShoppingList, error)
	UpdateList(ctx context.Context, listID int64, patch model.ListPatch) (model.ShoppingList, error)
	DeleteList(ctx context.Context, listID int64) error
	DuplicateList(ctx context.Context, listID int64) (model.ShoppingList, error)
	AddItem(ctx context.Context, listID int64, in model.ItemInput) (model.ShoppingListItem, error)
	AddItems(ctx context.Context, listID int64, in []model.ItemInput) ([]model.ShoppingListItem, error)
	UpdateItem(ctx context.Context, listID, itemID int64, patch model.ItemPatch) (model.ShoppingListItem, error)
	DeleteItem(ctx context.Context, listID, itemID int64) error
	ToggleItem(ctx context.Context, listID, itemID int64) (model.ShoppingListItem, error)
	ClearChecked(ctx context.Context, listID int64) (int, error)
	ReorderItems(ctx context.Context, listID int64, orders []model.ItemOrder) error
	AutoEstimate(ctx context.Context, listID int64) (api.AutoEstimateResult, error)
	ComparePrices(ctx context.Context, listID int64) (model.PriceComparison, error)
}

var _ Remote = (*api.Client)(nil)

// Reconciler performs remote mutations and returns the resulting list
// version. On error the list passed in is returned as is.
//
// Callers must not run two mutations against the same list version
// concurrently; each result is derived from the version it was given, so
// overlapping calls drop each other's changes.
type Reconciler struct {
	remote Remote
	logger *slog.Logger
}

func New(remote Remote, logger *slog.Logger) *Reconciler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Reconciler{remote: remote, logger: logger.With("component", "reconcile")}
}

// Load fetches a list with its items.
func (r *Reconciler) Load(ctx context.Context, listID int64) (model.ShoppingList, error) {
	list, err := r.remote.GetList(ctx, listID)
	if err != nil {
		return model.ShoppingList{}, err
	}
	return list, nil
}

// refetch replaces list with the server's copy. list is returned unchanged
// when the read fails.
func (r *Reconciler) refetch(ctx context.Context, list model.ShoppingList, op string) (model.ShoppingList, error) {
	fresh, err := r.remote.GetList(ctx, list.ID)
	if err != nil {
		r.logger.Warn("refetch after mutation failed", "op", op, "list_id", list.ID, "error", err)
		return list, fmt.Errorf("%s: refetch list %d: %w", op, list.ID, err)
	}
	return fresh, nil
}

// ToggleItem flips an item's checked state remotely and patches the list with
// the item the server returns.
func (r *Reconciler) ToggleItem(ctx context.Context, list model.ShoppingList, itemID int64) (model.ShoppingList, model.ShoppingListItem, error) {
	pending, err := BeginToggle(list, itemID)
	if err != nil {
		return list, model.ShoppingListItem{}, err
	}

	item, err := r.remote.ToggleItem(ctx, list.ID, itemID)
	if err != nil {
		return pending.Revert(), model.ShoppingListItem{}, err
	}

	next, err := pending.Confirm(item)
	if err != nil {
		return pending.Revert(), model.ShoppingListItem{}, err
	}
	r.logger.Debug("item toggled", "list_id", list.ID, "item_id", itemID, "checked", item.IsChecked)
	return next, item, nil
}

// AddItem validates in, adds it remotely and reloads the list so totals come
// from the server.
func (r *Reconciler) AddItem(ctx context.Context, list model.ShoppingList, in model.ItemInput) (model.ShoppingList, model.ShoppingListItem, error) {
	ve := api.NewValidationError()
	validateItemInput(ve, "", in)
	if err := result(ve); err != nil {
		return list, model.ShoppingListItem{}, err
	}

	item, err := r.remote.AddItem(ctx, list.ID, in)
	if err != nil {
		return list, model.ShoppingListItem{}, err
	}
	next, err := r.refetch(ctx, list, "add item")
	return next, item, err
}

// AddItems adds several items in one request. Nothing is sent if any input is
// invalid.
func (r *Reconciler) AddItems(ctx context.Context, list model.ShoppingList, in []model.ItemInput) (model.ShoppingList, []model.ShoppingListItem, error) {
	ve := api.NewValidationError()
	if len(in) == 0 {
		ve.Add("items", msgRequired)
	}
	for i, input := range in {
		validateItemInput(ve, fmt.Sprintf("items.%d.", i), input)
	}
	if err := result(ve); err != nil {
		return list, nil, err
	}

	items, err := r.remote.AddItems(ctx, list.ID, in)
	if err != nil {
		return list, nil, err
	}
	next, err := r.refetch(ctx, list, "add items")
	return next, items, err
}

// UpdateItem applies the fields set in patch and reloads the list.
func (r *Reconciler) UpdateItem(ctx context.Context, list model.ShoppingList, itemID int64, patch model.ItemPatch) (model.ShoppingList, model.ShoppingListItem, error) {
	if list.ItemIndex(itemID) < 0 {
		return list, model.ShoppingListItem{}, itemNotFound(list.ID, itemID)
	}
	if err := validateItemPatch(patch); err != nil {
		return list, model.ShoppingListItem{}, err
	}

	item, err := r.remote.UpdateItem(ctx, list.ID, itemID, patch)
	if err != nil {
		return list, model.ShoppingListItem{}, err
	}
	next, err := r.refetch(ctx, list, "update item")
	return next, item, err
}

// DeleteItem removes an item remotely, then locally.
func (r *Reconciler) DeleteItem(ctx context.Context, list model.ShoppingList, itemID int64) (model.ShoppingList, error) {
	if list.ItemIndex(itemID) < 0 {
		return list, itemNotFound(list.ID, itemID)
	}
	if err := r.remote.DeleteItem(ctx, list.ID, itemID); err != nil {
		return list, err
	}
	return ApplyDelete(list, itemID)
}

// ClearCheckedItems deletes every checked item and reloads the list.
func (r *Reconciler) ClearCheckedItems(ctx context.Context, list model.ShoppingList) (model.ShoppingList, int, error) {
	n, err := r.remote.ClearChecked(ctx, list.ID)
	if err != nil {
		return list, 0, err
	}
	r.logger.Debug("checked items cleared", "list_id", list.ID, "deleted", n)
	next, err := r.refetch(ctx, list, "clear checked")
	return next, n, err
}

func (r *Reconciler) ReorderItems(ctx context.Context, list model.ShoppingList, orders []model.ItemOrder) (model.ShoppingList, error) {
	if err := validateOrders(list, orders); err != nil {
		return list, err
	}
	if err := r.remote.ReorderItems(ctx, list.ID, orders); err != nil {
		return list, err
	}
	return r.refetch(ctx, list, "reorder items")
}

// AutoEstimate asks the server to price unpriced items from the catalog and
// reloads the list.
func (r *Reconciler) AutoEstimate(ctx context.Context, list model.ShoppingList) (model.ShoppingList, api.AutoEstimateResult, error) {
	res, err := r.remote.AutoEstimate(ctx, list.ID)
	if err != nil {
		return list, api.AutoEstimateResult{}, err
	}
	next, err := r.refetch(ctx, list, "auto estimate")
	return next, res, err
}

// UpdateListMetadata changes name, notes or status. Items are kept from list
// unless the server response includes them.
func (r *Reconciler) UpdateListMetadata(ctx context.Context, list model.ShoppingList, patch model.ListPatch) (model.ShoppingList, error) {
	if err := validateListPatch(patch); err != nil {
		return list, err
	}

	updated, err := r.remote.UpdateList(ctx, list.ID, patch)
	if err != nil {
		return list, err
	}
	if updated.Items != nil {
		return updated, nil
	}

	next := list.Clone()
	next.Name = updated.Name
	next.Status = updated.Status
	next.Notes = updated.Notes
	next.UpdatedAt = updated.UpdatedAt
	return next, nil
}

// MarkComplete moves an active list to completed.
func (r *Reconciler) MarkComplete(ctx context.Context, list model.ShoppingList) (model.ShoppingList, error) {
	if !list.CanMarkComplete() {
		ve := api.NewValidationError()
		ve.Add("status", fmt.Sprintf("Only active lists can be marked complete (list is %s).", list.Status))
		return list, ve
	}
	status := model.ListStatusCompleted
	return r.UpdateListMetadata(ctx, list, model.ListPatch{Status: &status})
}

func (r *Reconciler) CreateList(ctx context.Context, in model.ListInput) (model.ShoppingList, error) {
	if err := validateListInput(in); err != nil {
		return model.ShoppingList{}, err
	}
	if in.Status == "" {
		in.Status = model.ListStatusActive
	}
	return r.remote.CreateList(ctx, in)
}

// DeleteList removes the list remotely. Callers must drop every version they
// hold once it succeeds.
func (r *Reconciler) DeleteList(ctx context.Context, listID int64) error {
	return r.remote.DeleteList(ctx, listID)
}

func (r *Reconciler) DuplicateList(ctx context.Context, listID int64) (model.ShoppingList, error) {
	return r.remote.DuplicateList(ctx, listID)
}

// Compare fetches the price comparison for a list and evaluates it locally.
func (r *Reconciler) Compare(ctx context.Context, listID int64) (model.PriceComparison, compare.View, error) {
	c, err := r.remote.ComparePrices(ctx, listID)
	if err != nil {
		return model.PriceComparison{}, compare.View{}, err
	}
	view := compare.Evaluate(c)
	for _, d := range view.Disagreements {
		r.logger.Warn("price comparison disagreement", "list_id", listID, "detail", d)
	}
	return c, view, nil
}
