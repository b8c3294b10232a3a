package compare

import (
	"github.com/shopspring/decimal"

	"github.com/dukerupert/basket/internal/model"
)

// NoLinkedItemsMessage is returned when no item on the list references a
// catalog product, so there is nothing to price.
const NoLinkedItemsMessage = "No items with linked products to compare"

// Offer is a store's current unit price for a product.
type Offer struct {
	StoreID   int64
	StoreName string
	UnitPrice decimal.Decimal
}

// ItemOffers is a catalog-linked list item with every store offer for its
// product.
type ItemOffers struct {
	ItemID      int64
	ProductName string
	Quantity    decimal.Decimal
	Offers      []Offer
}

// Build assembles the price comparison for a list. Items without offers are
// left out. Store totals keep the order in which stores were first seen and
// are rounded to cents before the best store and savings are chosen, so the
// result always agrees with RankStores and SavingsVs.
func Build(listID int64, listName string, items []ItemOffers) model.PriceComparison {
	c := model.PriceComparison{
		ListID:           listID,
		ListName:         listName,
		Items:            []model.PriceComparisonItem{},
		StoreTotals:      model.StoreTotals{},
		PotentialSavings: decimal.Zero,
	}
	if len(items) == 0 {
		c.Message = NoLinkedItemsMessage
		return c
	}

	for _, it := range items {
		if len(it.Offers) == 0 {
			continue
		}
		ci := model.PriceComparisonItem{
			ItemID:      it.ItemID,
			ProductName: it.ProductName,
			Quantity:    it.Quantity,
			Stores:      make([]model.StorePrice, 0, len(it.Offers)),
		}
		for i, o := range it.Offers {
			total := o.UnitPrice.Mul(it.Quantity)
			ci.Stores = append(ci.Stores, model.StorePrice{
				StoreID:    o.StoreID,
				StoreName:  o.StoreName,
				UnitPrice:  o.UnitPrice,
				TotalPrice: total,
			})
			c.StoreTotals = c.StoreTotals.Add(o.StoreName, total)
			if i == 0 || o.UnitPrice.LessThan(ci.BestPrice) {
				ci.BestPrice = o.UnitPrice
				ci.BestStore = o.StoreName
			}
		}
		c.Items = append(c.Items, ci)
	}

	for i := range c.StoreTotals {
		c.StoreTotals[i].Total = c.StoreTotals[i].Total.Round(2)
	}

	var best, worst *model.StoreTotal
	for i := range c.StoreTotals {
		st := &c.StoreTotals[i]
		if best == nil || st.Total.LessThan(best.Total) {
			best = st
		}
		if worst == nil || st.Total.GreaterThan(worst.Total) {
			worst = st
		}
	}
	if best != nil {
		c.BestStore = best.Store
		c.PotentialSavings = worst.Total.Sub(best.Total).Round(2)
	}
	return c
}
