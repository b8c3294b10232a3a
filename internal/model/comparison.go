package model

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/shopspring/decimal"
)

// PriceComparison is the per-list read model produced by the compare-prices
// endpoint.
type PriceComparison struct {
	ListID           int64                 `json:"list_id"`
	ListName         string                `json:"list_name"`
	Items            []PriceComparisonItem `json:"items"`
	StoreTotals      StoreTotals           `json:"store_totals"`
	BestStore        string                `json:"best_store"`
	PotentialSavings decimal.Decimal       `json:"potential_savings"`
	Message          string                `json:"message,omitempty"`
}

type PriceComparisonItem struct {
	ItemID      int64           `json:"item_id"`
	ProductName string          `json:"product_name"`
	Quantity    decimal.Decimal `json:"quantity"`
	Stores      []StorePrice    `json:"stores"`
	BestPrice   decimal.Decimal `json:"best_price"`
	BestStore   string          `json:"best_store"`
}

type StorePrice struct {
	StoreID    int64           `json:"store_id"`
	StoreName  string          `json:"store_name"`
	UnitPrice  decimal.Decimal `json:"unit_price"`
	TotalPrice decimal.Decimal `json:"total_price"`
}

type StoreTotal struct {
	Store string
	Total decimal.Decimal
}

// StoreTotals is a store name -> total mapping that keeps the key order of
// the JSON object it was decoded from. Encoded as a JSON object.
type StoreTotals []StoreTotal

// Get returns the total for store.
func (t StoreTotals) Get(store string) (decimal.Decimal, bool) {
	for _, st := range t {
		if st.Store == store {
			return st.Total, true
		}
	}
	return decimal.Zero, false
}

// Add accumulates amount into store's total, appending the store on first
// sight so insertion order is preserved.
func (t StoreTotals) Add(store string, amount decimal.Decimal) StoreTotals {
	for i := range t {
		if t[i].Store == store {
			t[i].Total = t[i].Total.Add(amount)
			return t
		}
	}
	return append(t, StoreTotal{Store: store, Total: amount})
}

func (t StoreTotals) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, st := range t {
		if i > 0 {
			buf.WriteByte(',')
		}
		key, err := json.Marshal(st.Store)
		if err != nil {
			return nil, err
		}
		buf.Write(key)
		buf.WriteByte(':')
		buf.WriteString(st.Total.String())
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

func (t *StoreTotals) UnmarshalJSON(data []byte) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	tok, err := dec.Token()
	if err != nil {
		return fmt.Errorf("store totals: %w", err)
	}
	if tok == nil {
		*t = nil
		return nil
	}
	if delim, ok := tok.(json.Delim); !ok || delim != '{' {
		return fmt.Errorf("store totals: expected object, got %v", tok)
	}

	out := StoreTotals{}
	seen := make(map[string]int)
	for dec.More() {
		keyTok, err := dec.Token()
		if err != nil {
			return fmt.Errorf("store totals: %w", err)
		}
		key, ok := keyTok.(string)
		if !ok {
			return fmt.Errorf("store totals: expected string key, got %v", keyTok)
		}
		var total decimal.Decimal
		if err := dec.Decode(&total); err != nil {
			return fmt.Errorf("store totals[%q]: %w", key, err)
		}
		// Repeated keys keep their first position and take the last value.
		if i, dup := seen[key]; dup {
			out[i].Total = total
			continue
		}
		seen[key] = len(out)
		out = append(out, StoreTotal{Store: key, Total: total})
	}
	if _, err := dec.Token(); err != nil {
		return fmt.Errorf("store totals: %w", err)
	}
	*t = out
	return nil
}

// ComparisonSummary is the compact answer to "where should I shop".
type ComparisonSummary struct {
	BestStore        string          `json:"best_store"`
	BestTotal        decimal.Decimal `json:"best_total"`
	WorstStore       string          `json:"worst_store,omitempty"`
	WorstTotal       decimal.Decimal `json:"worst_total"`
	PotentialSavings decimal.Decimal `json:"potential_savings"`
}
