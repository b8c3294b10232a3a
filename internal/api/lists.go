package api

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"

	"github.com/shopspring/decimal"

	"github.com/dukerupert/basket/internal/model"
)

const (
	resourceList       = "shopping list"
	resourceItem       = "shopping list item"
	resourceComparison = "price comparison"
)

func listPath(listID int64) string {
	return fmt.Sprintf("/shopping-lists/%d/", listID)
}

func itemPath(listID, itemID int64, action string) string {
	return fmt.Sprintf("/shopping-lists/%d/items/%d/%s", listID, itemID, action)
}

// ListLists returns one page of the caller's lists, optionally filtered by status.
func (c *Client) ListLists(ctx context.Context, status model.ListStatus, page int) (model.Page[model.ShoppingListSummary], error) {
	q := url.Values{}
	if status != "" {
		q.Set("status", string(status))
	}
	if page > 0 {
		q.Set("page", strconv.Itoa(page))
	}
	path := "/shopping-lists/"
	if len(q) > 0 {
		path += "?" + q.Encode()
	}

	var out model.Page[model.ShoppingListSummary]
	err := c.do(ctx, http.MethodGet, path, resourceList, nil, &out)
	return out, err
}

// GetList fetches a list with all of its items and counts.
func (c *Client) GetList(ctx context.Context, listID int64) (model.ShoppingList, error) {
	var out model.ShoppingList
	err := c.do(ctx, http.MethodGet, listPath(listID), resourceList, nil, &out)
	return out, err
}

func (c *Client) CreateList(ctx context.Context, in model.ListInput) (model.ShoppingList, error) {
	var out model.ShoppingList
	err := c.do(ctx, http.MethodPost, "/shopping-lists/create/", resourceList, in, &out)
	return out, err
}

func (c *Client) UpdateList(ctx context.Context, listID int64, patch model.ListPatch) (model.ShoppingList, error) {
	var out model.ShoppingList
	err := c.do(ctx, http.MethodPatch, listPath(listID)+"update/", resourceList, patch, &out)
	return out, err
}

func (c *Client) DeleteList(ctx context.Context, listID int64) error {
	return c.do(ctx, http.MethodDelete, listPath(listID)+"delete/", resourceList, nil, nil)
}

// DuplicateList asks the server to copy a list and its items.
func (c *Client) DuplicateList(ctx context.Context, listID int64) (model.ShoppingList, error) {
	var out model.ShoppingList
	err := c.do(ctx, http.MethodPost, listPath(listID)+"duplicate/", resourceList, nil, &out)
	return out, err
}

// GenerateListFromReceipt copies a receipt's lines into a new list. An empty
// name gets the server's default.
func (c *Client) GenerateListFromReceipt(ctx context.Context, in model.GenerateListInput) (model.ShoppingList, error) {
	var out model.ShoppingList
	err := c.do(ctx, http.MethodPost, "/shopping-lists/generate-from-receipt/", resourceReceipt, in, &out)
	return out, err
}

// ListItems returns a list's items; checked filters by state when non-nil.
func (c *Client) ListItems(ctx context.Context, listID int64, checked *bool) ([]model.ShoppingListItem, error) {
	path := listPath(listID) + "items/"
	if checked != nil {
		path += "?is_checked=" + strconv.FormatBool(*checked)
	}
	var out []model.ShoppingListItem
	err := c.do(ctx, http.MethodGet, path, resourceList, nil, &out)
	return out, err
}

func (c *Client) AddItem(ctx context.Context, listID int64, in model.ItemInput) (model.ShoppingListItem, error) {
	var out model.ShoppingListItem
	err := c.do(ctx, http.MethodPost, listPath(listID)+"items/add/", resourceList, in, &out)
	return out, err
}

func (c *Client) AddItems(ctx context.Context, listID int64, in []model.ItemInput) ([]model.ShoppingListItem, error) {
	body := struct {
		Items []model.ItemInput `json:"items"`
	}{Items: in}
	var out []model.ShoppingListItem
	err := c.do(ctx, http.MethodPost, listPath(listID)+"items/bulk/", resourceList, body, &out)
	return out, err
}

func (c *Client) GetItem(ctx context.Context, listID, itemID int64) (model.ShoppingListItem, error) {
	var out model.ShoppingListItem
	err := c.do(ctx, http.MethodGet, itemPath(listID, itemID, ""), resourceItem, nil, &out)
	return out, err
}

func (c *Client) UpdateItem(ctx context.Context, listID, itemID int64, patch model.ItemPatch) (model.ShoppingListItem, error) {
	var out model.ShoppingListItem
	err := c.do(ctx, http.MethodPatch, itemPath(listID, itemID, "update/"), resourceItem, patch, &out)
	return out, err
}

func (c *Client) DeleteItem(ctx context.Context, listID, itemID int64) error {
	return c.do(ctx, http.MethodDelete, itemPath(listID, itemID, "delete/"), resourceItem, nil, nil)
}

// ToggleItem flips an item's checked state and returns the item as stored.
func (c *Client) ToggleItem(ctx context.Context, listID, itemID int64) (model.ShoppingListItem, error) {
	var out model.ShoppingListItem
	err := c.do(ctx, http.MethodPost, itemPath(listID, itemID, "toggle/"), resourceItem, nil, &out)
	return out, err
}

// ClearChecked deletes every checked item and returns how many were removed.
func (c *Client) ClearChecked(ctx context.Context, listID int64) (int, error) {
	var out struct {
		Message      string `json:"message"`
		DeletedCount int    `json:"deleted_count"`
	}
	err := c.do(ctx, http.MethodPost, listPath(listID)+"items/clear-checked/", resourceList, nil, &out)
	return out.DeletedCount, err
}

func (c *Client) ReorderItems(ctx context.Context, listID int64, orders []model.ItemOrder) error {
	body := struct {
		ItemOrders []model.ItemOrder `json:"item_orders"`
	}{ItemOrders: orders}
	return c.do(ctx, http.MethodPost, listPath(listID)+"items/reorder/", resourceList, body, nil)
}

func (c *Client) ComparePrices(ctx context.Context, listID int64) (model.PriceComparison, error) {
	var out model.PriceComparison
	err := c.do(ctx, http.MethodGet, listPath(listID)+"compare-prices/", resourceComparison, nil, &out)
	return out, err
}

type AutoEstimateResult struct {
	Message        string          `json:"message"`
	UpdatedCount   int             `json:"updated_count"`
	EstimatedTotal decimal.Decimal `json:"estimated_total"`
}

// AutoEstimate fills missing item prices from each product's lowest current price.
func (c *Client) AutoEstimate(ctx context.Context, listID int64) (AutoEstimateResult, error) {
	var out AutoEstimateResult
	err := c.do(ctx, http.MethodPost, listPath(listID)+"auto-estimate/", resourceList, nil, &out)
	return out, err
}
