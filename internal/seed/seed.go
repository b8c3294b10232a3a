// Package seed loads a catalog fixture (stores, products and prices) into the
// database. Loading the same fixture twice does not duplicate anything.
package seed

import (
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/shopspring/decimal"

	"github.com/dukerupert/basket/internal/model"
	"github.com/dukerupert/basket/internal/store"
)

type Fixture struct {
	Stores   []model.StoreInput   `json:"stores"`
	Products []model.ProductInput `json:"products"`
	Prices   []PriceEntry         `json:"prices"`
}

// PriceEntry names its product and store instead of using ids, so fixtures
// can be written by hand.
type PriceEntry struct {
	Product      string          `json:"product"`
	Store        string          `json:"store"`
	Price        decimal.Decimal `json:"price"`
	DateRecorded *time.Time      `json:"date_recorded,omitempty"`
}

type Result struct {
	StoresCreated   int
	ProductsCreated int
	PricesRecorded  int
}

func Decode(r io.Reader) (Fixture, error) {
	var f Fixture
	dec := json.NewDecoder(r)
	dec.DisallowUnknownFields()
	if err := dec.Decode(&f); err != nil {
		return Fixture{}, fmt.Errorf("decode fixture: %w", err)
	}
	return f, nil
}

// Load applies f. Existing stores (by name) and products (by normalized name)
// are reused. Every price entry is recorded, replacing the active price for
// its product and store.
func Load(cs *store.CatalogStore, f Fixture, logger *slog.Logger) (Result, error) {
	var res Result

	storeIDs := make(map[string]int64, len(f.Stores))
	for _, in := range f.Stores {
		st, err := cs.GetStoreByName(in.Name)
		if err != nil {
			return res, err
		}
		if st == nil {
			if st, err = cs.CreateStore(in); err != nil {
				return res, fmt.Errorf("store %q: %w", in.Name, err)
			}
			res.StoresCreated++
			logger.Debug("store created", "store_id", st.ID, "name", st.Name)
		}
		storeIDs[in.Name] = st.ID
	}

	for _, in := range f.Products {
		p, err := cs.FindProduct(in.Name)
		if err != nil {
			return res, err
		}
		if p != nil {
			continue
		}
		p, err = cs.CreateProduct(in)
		if err != nil {
			return res, fmt.Errorf("product %q: %w", in.Name, err)
		}
		res.ProductsCreated++
		logger.Debug("product created", "product_id", p.ID, "name", p.Name, "category", p.Category)
	}

	for i, pe := range f.Prices {
		if !pe.Price.IsPositive() {
			return res, fmt.Errorf("prices[%d]: price must be positive, got %s", i, pe.Price)
		}
		storeID, ok := storeIDs[pe.Store]
		if !ok {
			st, err := cs.GetStoreByName(pe.Store)
			if err != nil {
				return res, err
			}
			if st == nil {
				return res, fmt.Errorf("prices[%d]: unknown store %q", i, pe.Store)
			}
			storeID = st.ID
		}
		p, err := cs.FindProduct(pe.Product)
		if err != nil {
			return res, err
		}
		if p == nil {
			return res, fmt.Errorf("prices[%d]: unknown product %q", i, pe.Product)
		}

		_, err = cs.RecordPrice(model.PriceInput{
			ProductID:    p.ID,
			StoreID:      storeID,
			Price:        pe.Price,
			DateRecorded: pe.DateRecorded,
			Source:       "fixture",
		})
		if err != nil {
			return res, fmt.Errorf("prices[%d]: %w", i, err)
		}
		res.PricesRecorded++
	}

	logger.Info("fixture loaded",
		"stores", res.StoresCreated,
		"products", res.ProductsCreated,
		"prices", res.PricesRecorded,
	)
	return res, nil
}
