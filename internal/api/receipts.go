package api

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"

	"github.com/dukerupert/basket/internal/model"
)

const (
	resourceReceipt     = "receipt"
	resourceReceiptItem = "receipt item"
)

func receiptPath(receiptID int64) string {
	return fmt.Sprintf("/receipts/%d/", receiptID)
}

func receiptItemPath(receiptID, itemID int64, action string) string {
	return fmt.Sprintf("/receipts/%d/items/%d/%s", receiptID, itemID, action)
}

// ListReceipts returns one page of the caller's receipts, newest purchase
// first.
func (c *Client) ListReceipts(ctx context.Context, f model.ReceiptFilter, page int) (model.Page[model.ReceiptSummary], error) {
	q := url.Values{}
	if f.Status != "" {
		q.Set("status", string(f.Status))
	}
	if f.Store != "" {
		q.Set("store", f.Store)
	}
	if f.StartDate != "" {
		q.Set("start_date", f.StartDate)
	}
	if f.EndDate != "" {
		q.Set("end_date", f.EndDate)
	}
	if page > 0 {
		q.Set("page", strconv.Itoa(page))
	}
	path := "/receipts/"
	if len(q) > 0 {
		path += "?" + q.Encode()
	}

	var out model.Page[model.ReceiptSummary]
	err := c.do(ctx, http.MethodGet, path, resourceReceipt, nil, &out)
	return out, err
}

func (c *Client) GetReceipt(ctx context.Context, receiptID int64) (model.Receipt, error) {
	var out model.Receipt
	err := c.do(ctx, http.MethodGet, receiptPath(receiptID), resourceReceipt, nil, &out)
	return out, err
}

func (c *Client) CreateReceipt(ctx context.Context, in model.ReceiptInput) (model.Receipt, error) {
	var out model.Receipt
	err := c.do(ctx, http.MethodPost, "/receipts/create/", resourceReceipt, in, &out)
	return out, err
}

func (c *Client) UpdateReceipt(ctx context.Context, receiptID int64, patch model.ReceiptPatch) (model.Receipt, error) {
	var out model.Receipt
	err := c.do(ctx, http.MethodPatch, receiptPath(receiptID)+"update/", resourceReceipt, patch, &out)
	return out, err
}

func (c *Client) DeleteReceipt(ctx context.Context, receiptID int64) error {
	return c.do(ctx, http.MethodDelete, receiptPath(receiptID)+"delete/", resourceReceipt, nil, nil)
}

func (c *Client) ReceiptItems(ctx context.Context, receiptID int64) ([]model.ReceiptItem, error) {
	var out []model.ReceiptItem
	err := c.do(ctx, http.MethodGet, receiptPath(receiptID)+"items/", resourceReceipt, nil, &out)
	return out, err
}

func (c *Client) AddReceiptItem(ctx context.Context, receiptID int64, in model.ReceiptItemInput) (model.ReceiptItem, error) {
	var out model.ReceiptItem
	err := c.do(ctx, http.MethodPost, receiptPath(receiptID)+"items/add/", resourceReceipt, in, &out)
	return out, err
}

// AddReceiptItems adds every item or none of them.
func (c *Client) AddReceiptItems(ctx context.Context, receiptID int64, in []model.ReceiptItemInput) ([]model.ReceiptItem, error) {
	body := struct {
		Items []model.ReceiptItemInput `json:"items"`
	}{Items: in}
	var out []model.ReceiptItem
	err := c.do(ctx, http.MethodPost, receiptPath(receiptID)+"items/bulk/", resourceReceipt, body, &out)
	return out, err
}

func (c *Client) UpdateReceiptItem(ctx context.Context, receiptID, itemID int64, patch model.ReceiptItemPatch) (model.ReceiptItem, error) {
	var out model.ReceiptItem
	err := c.do(ctx, http.MethodPatch, receiptItemPath(receiptID, itemID, "update/"), resourceReceiptItem, patch, &out)
	return out, err
}

func (c *Client) DeleteReceiptItem(ctx context.Context, receiptID, itemID int64) error {
	return c.do(ctx, http.MethodDelete, receiptItemPath(receiptID, itemID, "delete/"), resourceReceiptItem, nil, nil)
}

// ReceiptStats summarizes the caller's completed receipts.
func (c *Client) ReceiptStats(ctx context.Context) (model.ReceiptStats, error) {
	var out model.ReceiptStats
	err := c.do(ctx, http.MethodGet, "/receipts/stats/", resourceReceipt, nil, &out)
	return out, err
}

func (c *Client) MonthlySpending(ctx context.Context) ([]model.MonthlySpending, error) {
	var out []model.MonthlySpending
	err := c.do(ctx, http.MethodGet, "/receipts/stats/monthly/", resourceReceipt, nil, &out)
	return out, err
}
