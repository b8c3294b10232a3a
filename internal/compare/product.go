package compare

import (
	"github.com/shopspring/decimal"

	"github.com/dukerupert/basket/internal/model"
)

// NoPricesMessage is returned for a product without any active price.
const NoPricesMessage = "No prices available for this product"

var hundred = decimal.NewFromInt(100)

// Product sets p's active prices side by side with their spread. Prices are
// kept in the order given. Savings are the spread as a share of the highest
// price, in percent rounded to two places.
func Product(p model.Product, prices []model.ProductPriceEntry) model.ProductComparison {
	c := model.ProductComparison{ProductID: p.ID, ProductName: p.Name, Brand: p.Brand}
	if len(prices) == 0 {
		c.Message = NoPricesMessage
		return c
	}

	lowest, highest, sum := prices[0].Price, prices[0].Price, decimal.Zero
	for _, e := range prices {
		if e.Price.LessThan(lowest) {
			lowest = e.Price
		}
		if e.Price.GreaterThan(highest) {
			highest = e.Price
		}
		sum = sum.Add(e.Price)
	}
	diff := highest.Sub(lowest)
	avg := sum.Div(decimal.NewFromInt(int64(len(prices)))).Round(2)
	savings := decimal.Zero
	if highest.IsPositive() {
		savings = diff.Div(highest).Mul(hundred).Round(2)
	}

	c.Prices = prices
	c.LowestPrice = &lowest
	c.HighestPrice = &highest
	c.AveragePrice = &avg
	c.PriceDifference = &diff
	c.SavingsPercentage = &savings
	return c
}

// Products compares each product that has at least one active price.
func Products(products []model.Product, prices map[int64][]model.ProductPriceEntry) model.ProductComparisons {
	out := model.ProductComparisons{Results: []model.ProductComparison{}}
	for _, p := range products {
		if len(prices[p.ID]) == 0 {
			continue
		}
		out.Results = append(out.Results, Product(p, prices[p.ID]))
	}
	return out
}
