package api

import (
	"context"
	"net/http"
	"net/url"
	"strconv"

	"github.com/dukerupert/basket/internal/model"
)

// Stores lists the active stores.
func (c *Client) Stores(ctx context.Context) ([]model.Store, error) {
	var out []model.Store
	err := c.do(ctx, http.MethodGet, "/products/stores/", "store", nil, &out)
	return out, err
}

// CreateStore requires a staff account.
func (c *Client) CreateStore(ctx context.Context, in model.StoreInput) (model.Store, error) {
	var out model.Store
	err := c.do(ctx, http.MethodPost, "/products/stores/create/", "store", in, &out)
	return out, err
}

// SearchProducts returns one page of catalog products whose name matches query.
func (c *Client) SearchProducts(ctx context.Context, query string, page int) (model.Page[model.Product], error) {
	q := url.Values{}
	if query != "" {
		q.Set("search", query)
	}
	if page > 0 {
		q.Set("page", strconv.Itoa(page))
	}
	path := "/products/"
	if len(q) > 0 {
		path += "?" + q.Encode()
	}
	var out model.Page[model.Product]
	err := c.do(ctx, http.MethodGet, path, "product", nil, &out)
	return out, err
}

// CreateProduct requires a staff account.
func (c *Client) CreateProduct(ctx context.Context, in model.ProductInput) (model.Product, error) {
	var out model.Product
	err := c.do(ctx, http.MethodPost, "/products/create/", "product", in, &out)
	return out, err
}

// RecordPrice adds a price observation; it replaces the active price for the
// same product and store. Requires a staff account.
func (c *Client) RecordPrice(ctx context.Context, in model.PriceInput) (model.Price, error) {
	var out model.Price
	err := c.do(ctx, http.MethodPost, "/products/prices/add/", "price", in, &out)
	return out, err
}

// ProductPrices returns the product's active prices, one per store.
func (c *Client) ProductPrices(ctx context.Context, productID int64) ([]model.Price, error) {
	var out []model.Price
	err := c.do(ctx, http.MethodGet, "/products/"+strconv.FormatInt(productID, 10)+"/prices/", "product", nil, &out)
	return out, err
}

// CompareProduct returns the product's active prices with their spread. A
// product without prices comes back with only Message set.
func (c *Client) CompareProduct(ctx context.Context, productID int64) (model.ProductComparison, error) {
	var out model.ProductComparison
	err := c.do(ctx, http.MethodGet, "/products/"+strconv.FormatInt(productID, 10)+"/compare/", "product", nil, &out)
	return out, err
}

// CompareProducts compares several products at once. Unknown and unpriced
// products are left out of the results.
func (c *Client) CompareProducts(ctx context.Context, productIDs []int64) ([]model.ProductComparison, error) {
	body := struct {
		ProductIDs []int64 `json:"product_ids"`
	}{ProductIDs: productIDs}
	var out model.ProductComparisons
	err := c.do(ctx, http.MethodPost, "/products/compare-multiple/", "product", body, &out)
	return out.Results, err
}

func preferredPath(storeID int64, action string) string {
	return "/auth/preferred-stores/" + strconv.FormatInt(storeID, 10) + "/" + action
}

func (c *Client) PreferredStores(ctx context.Context) ([]model.PreferredStore, error) {
	var out []model.PreferredStore
	err := c.do(ctx, http.MethodGet, "/auth/preferred-stores/", "preferred store", nil, &out)
	return out, err
}

func (c *Client) AddPreferredStore(ctx context.Context, storeID int64) (model.PreferredStore, error) {
	body := struct {
		StoreID int64 `json:"store_id"`
	}{StoreID: storeID}
	var out model.PreferredStore
	err := c.do(ctx, http.MethodPost, "/auth/preferred-stores/add/", "preferred store", body, &out)
	return out, err
}

func (c *Client) RemovePreferredStore(ctx context.Context, storeID int64) error {
	return c.do(ctx, http.MethodDelete, preferredPath(storeID, "remove/"), "preferred store", nil, nil)
}

func (c *Client) IsPreferredStore(ctx context.Context, storeID int64) (bool, error) {
	var out struct {
		IsPreferred bool `json:"is_preferred"`
	}
	err := c.do(ctx, http.MethodGet, preferredPath(storeID, "check/"), "preferred store", nil, &out)
	return out.IsPreferred, err
}
