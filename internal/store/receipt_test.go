package store

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/dukerupert/basket/internal/model"
)

type receiptFixture struct {
	shoppingFixture
	receipts *ReceiptStore
}

func setupReceiptTestDB(t *testing.T) receiptFixture {
	t.Helper()
	f := setupShoppingTestDB(t)
	return receiptFixture{shoppingFixture: f, receipts: NewReceiptStore(f.lists.db)}
}

func strPtr(s string) *string { return &s }

func line(name, qty, price string) model.ReceiptItemInput {
	return model.ReceiptItemInput{ProductName: name, Quantity: decPtr(qty), UnitPrice: decPtr(price)}
}

func (f receiptFixture) newReceipt(t *testing.T, store, date string, items ...model.ReceiptItemInput) *model.Receipt {
	t.Helper()
	in := model.ReceiptInput{StoreName: store, Items: items}
	if date != "" {
		in.PurchaseDate = strPtr(date)
	}
	rc, err := f.receipts.Create(f.userID, in)
	if err != nil {
		t.Fatalf("create receipt: %v", err)
	}
	return rc
}

func TestReceiptCreateTotalsItems(t *testing.T) {
	f := setupReceiptTestDB(t)

	rc := f.newReceipt(t, "Hi-Lo", "2025-03-04", line("Whole Milk", "2", "1.25"), line("Bread", "1", "3.10"))
	if rc.Status != model.ReceiptStatusCompleted {
		t.Errorf("status = %q, want completed", rc.Status)
	}
	if rc.TotalAmount.StringFixed(2) != "5.60" {
		t.Errorf("total = %s, want 5.60", rc.TotalAmount)
	}
	if rc.ItemsCount != 2 || len(rc.Items) != 2 {
		t.Fatalf("items = %d/%d, want 2", rc.ItemsCount, len(rc.Items))
	}
	milk := rc.Items[0]
	if milk.TotalPrice.StringFixed(2) != "2.50" {
		t.Errorf("line total = %s, want 2.50", milk.TotalPrice)
	}
	if milk.NormalizedName != "whole milk" || milk.Category != "Dairy" {
		t.Errorf("derived fields = %q/%q", milk.NormalizedName, milk.Category)
	}
	if rc.PurchaseDate == nil || *rc.PurchaseDate != "2025-03-04" {
		t.Errorf("purchase date = %v", rc.PurchaseDate)
	}

	empty := f.newReceipt(t, "MegaMart", "")
	if !empty.TotalAmount.IsZero() || empty.PurchaseDate != nil || len(empty.Items) != 0 {
		t.Errorf("unexpected empty receipt %+v", empty)
	}
}

func TestReceiptOwnership(t *testing.T) {
	f := setupReceiptTestDB(t)
	rc := f.newReceipt(t, "Hi-Lo", "2025-03-04")
	other := createTestUser(t, NewUserStore(f.lists.db), "bob")

	if got, _ := f.receipts.Get(other, rc.ID); got != nil {
		t.Error("another user can read the receipt")
	}
	name := "Stolen"
	if got, _ := f.receipts.Update(other, rc.ID, model.ReceiptPatch{StoreName: &name}); got != nil {
		t.Error("another user can update the receipt")
	}
	if ok, _ := f.receipts.Delete(other, rc.ID); ok {
		t.Error("another user can delete the receipt")
	}
	if _, n, _ := f.receipts.List(other, model.ReceiptFilter{}, 20, 0); n != 0 {
		t.Errorf("another user lists %d receipts", n)
	}
}

func TestReceiptListFilters(t *testing.T) {
	f := setupReceiptTestDB(t)
	f.newReceipt(t, "Hi-Lo Cross Roads", "2025-01-10")
	f.newReceipt(t, "MegaMart", "2025-02-15")
	f.newReceipt(t, "Hi-Lo Liguanea", "2025-03-20")
	if _, err := f.receipts.Create(f.userID, model.ReceiptInput{StoreName: "Pending", Status: model.ReceiptStatusPending}); err != nil {
		t.Fatalf("create pending: %v", err)
	}

	tests := []struct {
		name   string
		filter model.ReceiptFilter
		want   int
	}{
		{"all", model.ReceiptFilter{}, 4},
		{"store substring", model.ReceiptFilter{Store: "hi-lo"}, 2},
		{"status", model.ReceiptFilter{Status: model.ReceiptStatusPending}, 1},
		{"date range", model.ReceiptFilter{StartDate: "2025-02-01", EndDate: "2025-03-20"}, 2},
		{"start only", model.ReceiptFilter{StartDate: "2025-03-01"}, 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, total, err := f.receipts.List(f.userID, tt.filter, 20, 0)
			if err != nil {
				t.Fatalf("list: %v", err)
			}
			if total != tt.want || len(got) != tt.want {
				t.Errorf("got %d (total %d), want %d", len(got), total, tt.want)
			}
		})
	}

	got, _, _ := f.receipts.List(f.userID, model.ReceiptFilter{Status: model.ReceiptStatusCompleted}, 20, 0)
	if got[0].StoreName != "Hi-Lo Liguanea" {
		t.Errorf("first = %q, want the latest purchase", got[0].StoreName)
	}
}

func TestReceiptUpdate(t *testing.T) {
	f := setupReceiptTestDB(t)
	rc := f.newReceipt(t, "Hi-Lo", "2025-03-04", line("Rice", "1", "4.00"))

	total := decimal.RequireFromString("4.50")
	tax := decimal.RequireFromString("0.50")
	updated, err := f.receipts.Update(f.userID, rc.ID, model.ReceiptPatch{
		StoreLocation: strPtr("Liguanea"),
		PurchaseDate:  strPtr(""),
		TotalAmount:   &total,
		TaxAmount:     &tax,
	})
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if updated.StoreName != "Hi-Lo" || updated.StoreLocation != "Liguanea" {
		t.Errorf("store = %q/%q", updated.StoreName, updated.StoreLocation)
	}
	if updated.PurchaseDate != nil {
		t.Errorf("purchase date = %v, want cleared", *updated.PurchaseDate)
	}
	if updated.TotalAmount.StringFixed(2) != "4.50" || updated.TaxAmount == nil || updated.TaxAmount.StringFixed(2) != "0.50" {
		t.Errorf("amounts = %s/%v", updated.TotalAmount, updated.TaxAmount)
	}
}

func TestReceiptItemLifecycle(t *testing.T) {
	f := setupReceiptTestDB(t)
	rice := mustProduct(t, f.catalog, "Rice")
	rc := f.newReceipt(t, "Hi-Lo", "2025-03-04")

	added, err := f.receipts.AddItems(rc.ID, []model.ReceiptItemInput{
		{ProductName: "Rice", UnitPrice: decPtr("4.00"), ProductID: &rice.ID},
		{ProductName: "Eggs", Quantity: decPtr("12"), UnitPrice: decPtr("0.35"), TotalPrice: decPtr("4.00")},
	})
	if err != nil {
		t.Fatalf("add items: %v", err)
	}
	if len(added) != 2 || !added[0].Quantity.Equal(decimal.NewFromInt(1)) {
		t.Fatalf("added = %+v", added)
	}
	if added[0].ProductBrand == nil {
		t.Error("linked item should carry the product brand")
	}
	if added[1].TotalPrice.StringFixed(2) != "4.00" {
		t.Errorf("explicit total = %s, want 4.00", added[1].TotalPrice)
	}
	got, _ := f.receipts.Get(f.userID, rc.ID)
	if got.TotalAmount.StringFixed(2) != "8.00" {
		t.Errorf("total = %s, want 8.00", got.TotalAmount)
	}

	qty := decimal.NewFromInt(10)
	eggs, err := f.receipts.UpdateItem(rc.ID, added[1].ID, model.ReceiptItemPatch{Quantity: &qty, TotalPrice: decPtr("99")})
	if err != nil {
		t.Fatalf("update item: %v", err)
	}
	if eggs.TotalPrice.StringFixed(2) != "3.50" {
		t.Errorf("recomputed total = %s, want 3.50", eggs.TotalPrice)
	}
	got, _ = f.receipts.Get(f.userID, rc.ID)
	if got.TotalAmount.StringFixed(2) != "7.50" {
		t.Errorf("total after update = %s, want 7.50", got.TotalAmount)
	}

	if missing, err := f.receipts.UpdateItem(rc.ID, 999, model.ReceiptItemPatch{Quantity: &qty}); err != nil || missing != nil {
		t.Errorf("missing item = %v, %v", missing, err)
	}
	unknown := int64(999)
	if _, err := f.receipts.UpdateItem(rc.ID, eggs.ID, model.ReceiptItemPatch{ProductID: &unknown}); err != ErrProductNotFound {
		t.Errorf("err = %v, want ErrProductNotFound", err)
	}

	ok, err := f.receipts.DeleteItem(rc.ID, added[0].ID)
	if err != nil || !ok {
		t.Fatalf("delete item = %v, %v", ok, err)
	}
	got, _ = f.receipts.Get(f.userID, rc.ID)
	if got.TotalAmount.StringFixed(2) != "3.50" || got.ItemsCount != 1 {
		t.Errorf("after delete total=%s items=%d", got.TotalAmount, got.ItemsCount)
	}
	if ok, _ := f.receipts.DeleteItem(rc.ID, added[0].ID); ok {
		t.Error("second delete should report nothing removed")
	}
}

func TestAddReceiptItemsIsAtomic(t *testing.T) {
	f := setupReceiptTestDB(t)
	rc := f.newReceipt(t, "Hi-Lo", "2025-03-04")
	unknown := int64(999)

	_, err := f.receipts.AddItems(rc.ID, []model.ReceiptItemInput{
		line("Rice", "1", "4.00"),
		{ProductName: "Ghost", UnitPrice: decPtr("1"), ProductID: &unknown},
	})
	if err != ErrProductNotFound {
		t.Fatalf("err = %v, want ErrProductNotFound", err)
	}
	if items, _ := f.receipts.ListItems(rc.ID); len(items) != 0 {
		t.Errorf("%d items stored after a failed batch", len(items))
	}
}

func TestReceiptStats(t *testing.T) {
	f := setupReceiptTestDB(t)
	now := time.Date(2025, 3, 18, 10, 0, 0, 0, time.UTC)

	f.newReceipt(t, "Hi-Lo", "2025-03-02", line("Rice", "1", "10.00"))
	f.newReceipt(t, "Hi-Lo", "2025-01-20", line("Rice", "1", "5.00"))
	f.newReceipt(t, "MegaMart", "2025-03-10", line("Oil", "1", "12.00"))
	f.newReceipt(t, "PriceSmart", "2024-01-05", line("Flour", "1", "2.00"))
	if _, err := f.receipts.Create(f.userID, model.ReceiptInput{
		StoreName: "Ignored", Status: model.ReceiptStatusFailed, PurchaseDate: strPtr("2025-03-05"),
		Items: []model.ReceiptItemInput{line("Tea", "1", "100")},
	}); err != nil {
		t.Fatalf("create failed receipt: %v", err)
	}

	stats, err := f.receipts.Stats(f.userID, now)
	if err != nil {
		t.Fatalf("stats: %v", err)
	}
	if stats.TotalReceipts != 4 || stats.TotalSpent.StringFixed(2) != "29.00" {
		t.Errorf("totals = %d/%s, want 4/29.00", stats.TotalReceipts, stats.TotalSpent)
	}
	if stats.ReceiptsThisMonth != 2 || stats.SpentThisMonth.StringFixed(2) != "22.00" {
		t.Errorf("this month = %d/%s, want 2/22.00", stats.ReceiptsThisMonth, stats.SpentThisMonth)
	}
	if len(stats.TopStores) != 3 {
		t.Fatalf("top stores = %+v", stats.TopStores)
	}
	top := stats.TopStores[0]
	if top.StoreName != "Hi-Lo" || top.ReceiptCount != 2 || top.TotalSpent.StringFixed(2) != "15.00" {
		t.Errorf("top store = %+v", top)
	}
	if len(stats.RecentReceipts) != 4 || stats.RecentReceipts[0].StoreName != "MegaMart" {
		t.Errorf("recent = %+v", stats.RecentReceipts)
	}

	monthly, err := f.receipts.MonthlySpending(f.userID, now)
	if err != nil {
		t.Fatalf("monthly: %v", err)
	}
	if len(monthly) != 2 {
		t.Fatalf("monthly = %+v, want January and March 2025", monthly)
	}
	if monthly[0].Month != "2025-01" || monthly[0].Count != 1 {
		t.Errorf("first month = %+v", monthly[0])
	}
	if monthly[1].Month != "2025-03" || monthly[1].Count != 2 || monthly[1].Total.StringFixed(2) != "22.00" {
		t.Errorf("second month = %+v", monthly[1])
	}
}

func TestReceiptStatsEmpty(t *testing.T) {
	f := setupReceiptTestDB(t)
	stats, err := f.receipts.Stats(f.userID, time.Now())
	if err != nil {
		t.Fatalf("stats: %v", err)
	}
	if stats.TotalReceipts != 0 || !stats.TotalSpent.IsZero() || stats.TopStores == nil || stats.RecentReceipts == nil {
		t.Errorf("unexpected empty stats %+v", stats)
	}
}

func TestGenerateListFromReceipt(t *testing.T) {
	f := setupReceiptTestDB(t)
	rice := mustProduct(t, f.catalog, "Rice")
	rc := f.newReceipt(t, "Hi-Lo", "2025-03-04",
		model.ReceiptItemInput{ProductName: "Rice", Quantity: decPtr("2"), UnitPrice: decPtr("4.00"), ProductID: &rice.ID},
		line("Eggs", "12", "0.35"),
	)

	l, err := f.lists.GenerateFromReceipt(f.userID, rc.ID, "")
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	if l.Name != DefaultReceiptListName || l.Status != model.ListStatusActive {
		t.Errorf("list = %q/%q", l.Name, l.Status)
	}
	if len(l.Items) != 2 || l.Items[0].ProductID == nil || *l.Items[0].ProductID != rice.ID {
		t.Fatalf("items = %+v", l.Items)
	}
	if l.Items[1].EstimatedPrice == nil || l.Items[1].EstimatedPrice.StringFixed(2) != "0.35" {
		t.Errorf("estimated price = %v, want the receipt unit price", l.Items[1].EstimatedPrice)
	}
	if l.EstimatedTotal.StringFixed(2) != "12.20" {
		t.Errorf("total = %s, want 12.20", l.EstimatedTotal)
	}

	named, err := f.lists.GenerateFromReceipt(f.userID, rc.ID, "Restock")
	if err != nil || named.Name != "Restock" {
		t.Errorf("named list = %v, %v", named, err)
	}

	other := createTestUser(t, NewUserStore(f.lists.db), "bob")
	if got, err := f.lists.GenerateFromReceipt(other, rc.ID, ""); err != nil || got != nil {
		t.Errorf("other user's generate = %v, %v; want nil", got, err)
	}
	if got, err := f.lists.GenerateFromReceipt(f.userID, 999, ""); err != nil || got != nil {
		t.Errorf("unknown receipt = %v, %v; want nil", got, err)
	}
}
