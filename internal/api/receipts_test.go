package api

import (
	"context"
	"encoding/json"
	"net/http"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dukerupert/basket/internal/model"
)

func TestListReceiptsQuery(t *testing.T) {
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/receipts/", r.URL.Path)
		q := r.URL.Query()
		assert.Equal(t, "hi-lo", q.Get("store"))
		assert.Equal(t, "2026-09-01", q.Get("start_date"))
		assert.Empty(t, q.Get("end_date"))
		w.Write([]byte(`{"count": 1, "next": null, "previous": null, "results": [
			{"id": 3, "store_name": "Hi-Lo", "purchase_date": "2026-09-12", "total_amount": "18.40", "status": "completed", "items_count": 4}
		]}`))
	})

	page, err := c.ListReceipts(context.Background(), model.ReceiptFilter{Store: "hi-lo", StartDate: "2026-09-01"}, 0)
	require.NoError(t, err)
	require.Len(t, page.Results, 1)
	assert.Equal(t, "2026-09-12", *page.Results[0].PurchaseDate)
	assert.Equal(t, "18.4", page.Results[0].TotalAmount.String())
}

func TestCreateReceiptSendsItems(t *testing.T) {
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/receipts/create/", r.URL.Path)
		var body model.ReceiptInput
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "Hi-Lo", body.StoreName)
		require.Len(t, body.Items, 1)
		assert.Equal(t, "3.5", body.Items[0].UnitPrice.String())
		w.WriteHeader(http.StatusCreated)
		w.Write([]byte(`{"id": 9, "store_name": "Hi-Lo", "total_amount": "3.50", "status": "completed", "items_count": 1,
			"items": [{"id": 1, "receipt": 9, "product_name": "Rice", "quantity": "1", "unit_price": "3.50", "total_price": "3.50"}]}`))
	})

	price := decimal.RequireFromString("3.50")
	rc, err := c.CreateReceipt(context.Background(), model.ReceiptInput{
		StoreName: "Hi-Lo",
		Items:     []model.ReceiptItemInput{{ProductName: "Rice", UnitPrice: &price}},
	})
	require.NoError(t, err)
	assert.Equal(t, int64(9), rc.ID)
	require.Len(t, rc.Items, 1)
}

func TestReceiptItemValidationError(t *testing.T) {
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		w.Write([]byte(`{"items.0.unit_price": ["This field is required."]}`))
	})

	_, err := c.AddReceiptItems(context.Background(), 9, []model.ReceiptItemInput{{ProductName: "Rice"}})
	require.Error(t, err)
	assert.Equal(t, KindValidation, KindOf(err))
}

func TestReceiptNotFound(t *testing.T) {
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		w.Write([]byte(`{"detail": "Not found."}`))
	})

	_, err := c.GetReceipt(context.Background(), 404)
	require.Error(t, err)
	assert.Equal(t, KindNotFound, KindOf(err))
	assert.Contains(t, err.Error(), "receipt")
}

func TestGenerateListFromReceipt(t *testing.T) {
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/shopping-lists/generate-from-receipt/", r.URL.Path)
		var body map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, map[string]any{"receipt_id": float64(9)}, body)
		w.WriteHeader(http.StatusCreated)
		w.Write([]byte(`{"id": 5, "name": "Shopping List from Receipt", "status": "active", "estimated_total": "3.50", "items": []}`))
	})

	list, err := c.GenerateListFromReceipt(context.Background(), model.GenerateListInput{ReceiptID: 9})
	require.NoError(t, err)
	assert.Equal(t, "Shopping List from Receipt", list.Name)
}

func TestGetItemPath(t *testing.T) {
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodGet, r.Method)
		assert.Equal(t, "/api/shopping-lists/1/items/4/", r.URL.Path)
		w.Write([]byte(`{"id": 4, "product_name": "Bananas", "quantity": "6"}`))
	})

	item, err := c.GetItem(context.Background(), 1, 4)
	require.NoError(t, err)
	assert.Equal(t, "Bananas", item.ProductName)
}

func TestCompareProducts(t *testing.T) {
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/products/compare-multiple/", r.URL.Path)
		var body map[string][]int64
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, []int64{1, 2}, body["product_ids"])
		w.Write([]byte(`{"results": [{"product_id": 1, "product_name": "Rice", "lowest_price": "3.00", "highest_price": "4.00",
			"savings_percentage": "25", "prices": [{"store_id": 2, "store_name": "MegaMart", "price": "3.00"}]}]}`))
	})

	results, err := c.CompareProducts(context.Background(), []int64{1, 2})
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "3", results[0].LowestPrice.String())
	assert.Equal(t, "MegaMart", results[0].Prices[0].StoreName)
}

func TestPreferredStores(t *testing.T) {
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/api/auth/preferred-stores/add/":
			w.WriteHeader(http.StatusBadRequest)
			w.Write([]byte(`{"error": "Store already in preferred list"}`))
		case "/api/auth/preferred-stores/3/check/":
			w.Write([]byte(`{"is_preferred": true}`))
		case "/api/auth/preferred-stores/3/remove/":
			assert.Equal(t, http.MethodDelete, r.Method)
			w.Write([]byte(`{"message": "Store removed from preferred list"}`))
		default:
			t.Errorf("unexpected path %s", r.URL.Path)
		}
	})
	ctx := context.Background()

	_, err := c.AddPreferredStore(ctx, 3)
	require.Error(t, err)
	assert.Equal(t, KindValidation, KindOf(err))
	assert.Contains(t, err.Error(), "Store already in preferred list")

	ok, err := c.IsPreferredStore(ctx, 3)
	require.NoError(t, err)
	assert.True(t, ok)

	require.NoError(t, c.RemovePreferredStore(ctx, 3))
}
