package cache

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/dukerupert/basket/internal/model"
)

func sampleComparison(listID int64) model.PriceComparison {
	return model.PriceComparison{
		ListID:   listID,
		ListName: "Weekly",
		StoreTotals: model.StoreTotals{
			{Store: "Hi-Lo", Total: decimal.RequireFromString("12.40")},
			{Store: "MegaMart", Total: decimal.RequireFromString("11.90")},
		},
		BestStore:        "MegaMart",
		PotentialSavings: decimal.RequireFromString("0.50"),
	}
}

func exerciseCache(t *testing.T, c Comparisons) {
	t.Helper()
	ctx := context.Background()

	if _, ok, err := c.Get(ctx, 1); err != nil || ok {
		t.Fatalf("empty cache get = %v, %v", ok, err)
	}

	if err := c.Set(ctx, 1, sampleComparison(1)); err != nil {
		t.Fatalf("set: %v", err)
	}
	if err := c.Set(ctx, 2, sampleComparison(2)); err != nil {
		t.Fatalf("set: %v", err)
	}

	got, ok, err := c.Get(ctx, 1)
	if err != nil || !ok {
		t.Fatalf("get = %v, %v", ok, err)
	}
	if got.BestStore != "MegaMart" || len(got.StoreTotals) != 2 || got.StoreTotals[0].Store != "Hi-Lo" {
		t.Errorf("unexpected comparison %+v", got)
	}

	if err := c.Invalidate(ctx, 1); err != nil {
		t.Fatalf("invalidate: %v", err)
	}
	if _, ok, _ := c.Get(ctx, 1); ok {
		t.Error("invalidated entry still present")
	}
	if _, ok, _ := c.Get(ctx, 2); !ok {
		t.Error("invalidate removed the wrong entry")
	}

	if err := c.Flush(ctx); err != nil {
		t.Fatalf("flush: %v", err)
	}
	if _, ok, _ := c.Get(ctx, 2); ok {
		t.Error("flush left an entry behind")
	}
}

func TestMemory(t *testing.T) {
	exerciseCache(t, NewMemory(time.Minute))
}

func TestMemoryExpires(t *testing.T) {
	m := NewMemory(time.Minute)
	now := time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC)
	m.now = func() time.Time { return now }
	ctx := context.Background()

	m.Set(ctx, 1, sampleComparison(1))
	now = now.Add(59 * time.Second)
	if _, ok, _ := m.Get(ctx, 1); !ok {
		t.Fatal("entry expired early")
	}

	now = now.Add(time.Second)
	if _, ok, _ := m.Get(ctx, 1); ok {
		t.Fatal("entry should have expired")
	}
	if m.Len() != 0 {
		t.Errorf("expired entry not evicted, len = %d", m.Len())
	}
}

func TestMemoryReturnsCopy(t *testing.T) {
	m := NewMemory(time.Minute)
	ctx := context.Background()
	m.Set(ctx, 1, sampleComparison(1))

	got, _, _ := m.Get(ctx, 1)
	got.BestStore = "changed"

	again, _, _ := m.Get(ctx, 1)
	if again.BestStore != "MegaMart" {
		t.Errorf("cached value mutated through returned pointer: %q", again.BestStore)
	}
}

func TestRedis(t *testing.T) {
	url := os.Getenv("BASKET_TEST_REDIS_URL")
	if url == "" {
		t.Skip("BASKET_TEST_REDIS_URL not set")
	}
	r, err := NewRedis(context.Background(), url, time.Minute)
	if err != nil {
		t.Fatalf("connect: %v", err)
	}
	t.Cleanup(func() { r.Close() })
	if err := r.Flush(context.Background()); err != nil {
		t.Fatalf("flush: %v", err)
	}
	exerciseCache(t, r)
}
