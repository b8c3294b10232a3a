// Package catalog derives the searchable fields of a product from its name.
package catalog

import (
	"strings"
	"unicode"
)

const Other = "Other"

// Categories in display order.
var Categories = []string{
	"Produce", "Dairy", "Meat & Seafood", "Bakery", "Pantry", "Frozen",
	"Beverages", "Snacks", "Household", "Personal Care", Other,
}

// Normalize lowercases name, drops punctuation and collapses whitespace so
// "Grace  Corned-Beef, 340g" and "grace corned beef 340g" match.
func Normalize(name string) string {
	var b strings.Builder
	space := false
	for _, r := range strings.ToLower(name) {
		switch {
		case unicode.IsLetter(r) || unicode.IsDigit(r):
			if space && b.Len() > 0 {
				b.WriteByte(' ')
			}
			space = false
			b.WriteRune(r)
		case r == '&':
			if b.Len() > 0 {
				b.WriteByte(' ')
			}
			b.WriteString("and")
			space = true
		default:
			space = true
		}
	}
	return b.String()
}

// Categorize picks a category for a product name: a whole-name match wins,
// then the first keyword contained in the normalized name.
func Categorize(name string) string {
	n := Normalize(name)
	if n == "" {
		return Other
	}
	if cat, ok := byName[n]; ok {
		return cat
	}
	for _, kw := range keywords {
		if strings.Contains(n, kw.text) {
			return kw.category
		}
	}
	return Other
}

type keyword struct {
	text     string
	category string
}

// keywords is checked in order; multi-word phrases come before the single
// words they contain.
var keywords = []keyword{
	{"chicken breast", "Meat & Seafood"},
	{"chicken back", "Meat & Seafood"},
	{"corned beef", "Meat & Seafood"},
	{"ground beef", "Meat & Seafood"},
	{"salt fish", "Meat & Seafood"},
	{"saltfish", "Meat & Seafood"},
	{"pork chop", "Meat & Seafood"},
	{"hot dog", "Meat & Seafood"},
	{"steak", "Meat & Seafood"},
	{"eggplant", "Produce"},
	{"watermelon", "Produce"},
	{"baking soda", "Pantry"},
	{"ice cream", "Frozen"},
	{"frozen", "Frozen"},
	{"cream cheese", "Dairy"},
	{"condensed milk", "Dairy"},
	{"evaporated milk", "Dairy"},
	{"coconut milk", "Pantry"},
	{"coconut water", "Beverages"},
	{"paper towel", "Household"},
	{"toilet paper", "Household"},
	{"dish soap", "Household"},
	{"laundry", "Household"},
	{"detergent", "Household"},
	{"bleach", "Household"},
	{"toothpaste", "Personal Care"},
	{"shampoo", "Personal Care"},
	{"deodorant", "Personal Care"},
	{"lotion", "Personal Care"},
	{"soap", "Personal Care"},
	{"yogurt", "Dairy"},
	{"cheese", "Dairy"},
	{"butter", "Dairy"},
	{"milk", "Dairy"},
	{"egg", "Dairy"},
	{"chicken", "Meat & Seafood"},
	{"beef", "Meat & Seafood"},
	{"pork", "Meat & Seafood"},
	{"mackerel", "Meat & Seafood"},
	{"sardine", "Meat & Seafood"},
	{"tuna", "Meat & Seafood"},
	{"shrimp", "Meat & Seafood"},
	{"fish", "Meat & Seafood"},
	{"sausage", "Meat & Seafood"},
	{"bread", "Bakery"},
	{"bun", "Bakery"},
	{"bagel", "Bakery"},
	{"tortilla", "Bakery"},
	{"cake", "Bakery"},
	{"juice", "Beverages"},
	{"soda", "Beverages"},
	{"water", "Beverages"},
	{"coffee", "Beverages"},
	{"tea", "Beverages"},
	{"beer", "Beverages"},
	{"malt", "Beverages"},
	{"chips", "Snacks"},
	{"crackers", "Snacks"},
	{"cookies", "Snacks"},
	{"biscuit", "Snacks"},
	{"chocolate", "Snacks"},
	{"nuts", "Snacks"},
	{"rice", "Pantry"},
	{"flour", "Pantry"},
	{"sugar", "Pantry"},
	{"salt", "Pantry"},
	{"oil", "Pantry"},
	{"pasta", "Pantry"},
	{"spaghetti", "Pantry"},
	{"noodle", "Pantry"},
	{"beans", "Pantry"},
	{"peas", "Pantry"},
	{"cereal", "Pantry"},
	{"oats", "Pantry"},
	{"sauce", "Pantry"},
	{"ketchup", "Pantry"},
	{"seasoning", "Pantry"},
	{"spice", "Pantry"},
	{"canned", "Pantry"},
	{"banana", "Produce"},
	{"plantain", "Produce"},
	{"apple", "Produce"},
	{"orange", "Produce"},
	{"lime", "Produce"},
	{"tomato", "Produce"},
	{"potato", "Produce"},
	{"yam", "Produce"},
	{"onion", "Produce"},
	{"garlic", "Produce"},
	{"pepper", "Produce"},
	{"carrot", "Produce"},
	{"cabbage", "Produce"},
	{"callaloo", "Produce"},
	{"lettuce", "Produce"},
	{"ackee", "Produce"},
	{"berries", "Produce"},
	{"fruit", "Produce"},
}

// byName holds names too short or ambiguous for keyword matching.
var byName = map[string]string{
	"milk":       "Dairy",
	"eggs":       "Dairy",
	"bread":      "Bakery",
	"rice":       "Pantry",
	"flour":      "Pantry",
	"water":      "Beverages",
	"tea":        "Beverages",
	"ice":        "Frozen",
	"corn":       "Produce",
	"ginger":     "Produce",
	"thyme":      "Produce",
	"scallion":   "Produce",
	"breadfruit": "Produce",
	"cornmeal":   "Pantry",
	"bun":        "Bakery",
}
