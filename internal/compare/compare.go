// Package compare ranks stores for a shopping list's price comparison and
// builds that comparison from raw per-store offers. Everything here is a pure
// function of its input.
package compare

import (
	"fmt"
	"sort"

	"github.com/shopspring/decimal"

	"github.com/dukerupert/basket/internal/model"
)

// RankedStore is one store's total for the whole list.
type RankedStore struct {
	Store string          `json:"store"`
	Total decimal.Decimal `json:"total"`
}

// NoDataState reports whether there is nothing to rank: the comparison has
// no items or carries an explanatory message instead of data.
func NoDataState(c model.PriceComparison) bool {
	return len(c.Items) == 0 || c.Message != ""
}

// RankStores orders the store totals cheapest first. Stores with equal totals
// keep the order in which they appear in c.StoreTotals, so repeated calls on
// the same comparison always agree.
func RankStores(c model.PriceComparison) []RankedStore {
	ranked := []RankedStore{}
	if NoDataState(c) {
		return ranked
	}
	for _, st := range c.StoreTotals {
		ranked = append(ranked, RankedStore{Store: st.Store, Total: st.Total})
	}
	sort.SliceStable(ranked, func(i, j int) bool {
		return ranked[i].Total.LessThan(ranked[j].Total)
	})
	return ranked
}

// BestStore returns the cheapest ranked store.
func BestStore(ranked []RankedStore) (RankedStore, bool) {
	if len(ranked) == 0 {
		return RankedStore{}, false
	}
	return ranked[0], true
}

// WorstStore returns the most expensive ranked store. A single store is never
// reported as the worst.
func WorstStore(ranked []RankedStore) (RankedStore, bool) {
	if len(ranked) < 2 {
		return RankedStore{}, false
	}
	return ranked[len(ranked)-1], true
}

// SavingsVs is the difference between the most and least expensive store, or
// zero when fewer than two stores are ranked.
func SavingsVs(ranked []RankedStore) decimal.Decimal {
	if len(ranked) < 2 {
		return decimal.Zero
	}
	return ranked[len(ranked)-1].Total.Sub(ranked[0].Total)
}

// BestPriceForItem returns the store with the lowest unit price. The first
// store wins ties.
func BestPriceForItem(item model.PriceComparisonItem) (model.StorePrice, bool) {
	if len(item.Stores) == 0 {
		return model.StorePrice{}, false
	}
	best := item.Stores[0]
	for _, sp := range item.Stores[1:] {
		if sp.UnitPrice.LessThan(best.UnitPrice) {
			best = sp
		}
	}
	return best, true
}

// WorstPriceForItem returns the highest unit price. It is only reported when
// the item is carried by more than one store.
func WorstPriceForItem(item model.PriceComparisonItem) (decimal.Decimal, bool) {
	if len(item.Stores) < 2 {
		return decimal.Zero, false
	}
	worst := item.Stores[0].UnitPrice
	for _, sp := range item.Stores[1:] {
		if sp.UnitPrice.GreaterThan(worst) {
			worst = sp.UnitPrice
		}
	}
	return worst, true
}

// IsBestAtStore reports whether storeID sells the item at its lowest unit
// price. The lowest price is recomputed from item.Stores rather than taken
// from item.BestPrice, and compared exactly.
func IsBestAtStore(item model.PriceComparisonItem, storeID int64) bool {
	best, ok := BestPriceForItem(item)
	if !ok {
		return false
	}
	for _, sp := range item.Stores {
		if sp.StoreID == storeID {
			return sp.UnitPrice.Equal(best.UnitPrice)
		}
	}
	return false
}

// View is everything a comparison screen needs, derived locally.
type View struct {
	NoData        bool            `json:"no_data"`
	Message       string          `json:"message,omitempty"`
	Ranked        []RankedStore   `json:"ranked"`
	Best          *RankedStore    `json:"best,omitempty"`
	Worst         *RankedStore    `json:"worst,omitempty"`
	Savings       decimal.Decimal `json:"savings"`
	Disagreements []string        `json:"disagreements,omitempty"`
}

// Evaluate derives the ranked view of c and records every place where the
// server's precomputed fields disagree with it.
func Evaluate(c model.PriceComparison) View {
	v := View{
		NoData:  NoDataState(c),
		Message: c.Message,
		Ranked:  RankStores(c),
		Savings: decimal.Zero,
	}
	if v.NoData {
		return v
	}
	if best, ok := BestStore(v.Ranked); ok {
		v.Best = &best
	}
	if worst, ok := WorstStore(v.Ranked); ok {
		v.Worst = &worst
	}
	v.Savings = SavingsVs(v.Ranked)
	v.Disagreements = Disagreements(c, v.Ranked)
	return v
}

// Summary condenses a view into the best/worst/savings answer.
func (v View) Summary() (model.ComparisonSummary, bool) {
	if v.Best == nil {
		return model.ComparisonSummary{}, false
	}
	s := model.ComparisonSummary{
		BestStore:        v.Best.Store,
		BestTotal:        v.Best.Total,
		PotentialSavings: v.Savings,
	}
	if v.Worst != nil {
		s.WorstStore = v.Worst.Store
		s.WorstTotal = v.Worst.Total
	}
	return s, true
}

// Disagreements compares the server's precomputed best store, savings and
// per-item best prices against the locally ranked view.
func Disagreements(c model.PriceComparison, ranked []RankedStore) []string {
	var out []string

	if best, ok := BestStore(ranked); ok && c.BestStore != "" && c.BestStore != best.Store {
		// A different store at the same total is a tie, not a disagreement.
		serverTotal, found := c.StoreTotals.Get(c.BestStore)
		if !found || !serverTotal.Equal(best.Total) {
			out = append(out, fmt.Sprintf("best store: server %q, derived %q", c.BestStore, best.Store))
		}
	}

	if savings := SavingsVs(ranked); !savings.Round(2).Equal(c.PotentialSavings.Round(2)) {
		out = append(out, fmt.Sprintf("potential savings: server %s, derived %s",
			c.PotentialSavings.StringFixed(2), savings.StringFixed(2)))
	}

	for _, item := range c.Items {
		best, ok := BestPriceForItem(item)
		if !ok {
			continue
		}
		if !best.UnitPrice.Equal(item.BestPrice) {
			out = append(out, fmt.Sprintf("item %d best price: server %s, derived %s",
				item.ItemID, item.BestPrice.String(), best.UnitPrice.String()))
		}
	}
	return out
}
