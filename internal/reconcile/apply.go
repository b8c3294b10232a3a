// Package reconcile keeps a local shopping list consistent with the remote API.
//
// A list value is one version of the aggregate. Every transition takes the
// current version and returns a new one; inputs are never modified, so a caller
// holding an older version can always fall back to it.
package reconcile

import (
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/dukerupert/basket/internal/api"
	"github.com/dukerupert/basket/internal/model"
)

func itemNotFound(listID, itemID int64) error {
	return &api.NotFoundError{
		Resource: "shopping list item",
		Message:  fmt.Sprintf("item %d is not on list %d", itemID, listID),
	}
}

// ApplyToggle returns the version of list after the server reported item as
// the new state of one of its items. The checked count moves by the observed
// transition and progress is derived from the updated count.
func ApplyToggle(list model.ShoppingList, item model.ShoppingListItem) (model.ShoppingList, error) {
	idx := list.ItemIndex(item.ID)
	if idx < 0 {
		return list, itemNotFound(list.ID, item.ID)
	}

	was := list.Items[idx].IsChecked
	next := list.Clone()
	next.Items[idx] = item.Clone()

	switch {
	case !was && item.IsChecked:
		next.CheckedItemsCount++
	case was && !item.IsChecked:
		next.CheckedItemsCount--
	}
	next.CheckedItemsCount = clamp(next.CheckedItemsCount, 0, next.ItemsCount)
	next.ProgressPercentage = model.Progress(next.CheckedItemsCount, next.ItemsCount)
	return next, nil
}

// ApplyDelete returns the version of list without itemID. The estimated total
// drops by the item's line total, never below zero.
func ApplyDelete(list model.ShoppingList, itemID int64) (model.ShoppingList, error) {
	idx := list.ItemIndex(itemID)
	if idx < 0 {
		return list, itemNotFound(list.ID, itemID)
	}

	removed := list.Items[idx]
	next := list.Clone()
	next.Items = append(next.Items[:idx:idx], next.Items[idx+1:]...)

	next.ItemsCount = max(next.ItemsCount-1, 0)
	if removed.IsChecked {
		next.CheckedItemsCount--
	}
	next.CheckedItemsCount = clamp(next.CheckedItemsCount, 0, next.ItemsCount)

	if lt, ok := removed.LineTotal(); ok {
		next.EstimatedTotal = decimal.Max(next.EstimatedTotal.Sub(lt), decimal.Zero)
	}
	next.ProgressPercentage = model.Progress(next.CheckedItemsCount, next.ItemsCount)
	return next, nil
}

// Recount returns list with its counts and progress derived from its items.
func Recount(list model.ShoppingList) model.ShoppingList {
	next := list.Clone()
	next.ItemsCount = len(next.Items)
	next.CheckedItemsCount = 0
	for _, item := range next.Items {
		if item.IsChecked {
			next.CheckedItemsCount++
		}
	}
	next.ProgressPercentage = model.Progress(next.CheckedItemsCount, next.ItemsCount)
	return next
}

// PendingToggle is a toggle that has been shown locally but not yet
// confirmed by the server.
type PendingToggle struct {
	itemID    int64
	original  model.ShoppingList
	tentative model.ShoppingList
}

// BeginToggle flips itemID locally and returns the pending change.
func BeginToggle(list model.ShoppingList, itemID int64) (*PendingToggle, error) {
	idx := list.ItemIndex(itemID)
	if idx < 0 {
		return nil, itemNotFound(list.ID, itemID)
	}

	flipped := list.Items[idx].Clone()
	flipped.IsChecked = !flipped.IsChecked
	tentative, err := ApplyToggle(list, flipped)
	if err != nil {
		return nil, err
	}
	return &PendingToggle{itemID: itemID, original: list, tentative: tentative}, nil
}

func (p *PendingToggle) ItemID() int64 { return p.itemID }

// Tentative is the optimistic version to show while the request is in flight.
func (p *PendingToggle) Tentative() model.ShoppingList { return p.tentative }

// Confirm applies the server's item to the version the toggle started from.
func (p *PendingToggle) Confirm(item model.ShoppingListItem) (model.ShoppingList, error) {
	if item.ID != p.itemID {
		return p.original, &api.NotFoundError{
			Resource: "shopping list item",
			Message:  fmt.Sprintf("toggle of item %d was answered with item %d", p.itemID, item.ID),
		}
	}
	return ApplyToggle(p.original, item)
}

// Revert returns the version the toggle started from.
func (p *PendingToggle) Revert() model.ShoppingList { return p.original }

func clamp(n, lo, hi int) int {
	if hi < lo {
		hi = lo
	}
	return min(max(n, lo), hi)
}
