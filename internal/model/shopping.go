package model

import (
	"bytes"
	"encoding/json"
	"math"
	"time"

	"github.com/shopspring/decimal"
)

type ListStatus string

const (
	ListStatusActive    ListStatus = "active"
	ListStatusCompleted ListStatus = "completed"
	ListStatusArchived  ListStatus = "archived"
)

// Valid reports whether s is one of the known list statuses.
func (s ListStatus) Valid() bool {
	switch s {
	case ListStatusActive, ListStatusCompleted, ListStatusArchived:
		return true
	}
	return false
}

type ShoppingList struct {
	ID                 int64              `json:"id"`
	UserID             int64              `json:"user"`
	Name               string             `json:"name"`
	Status             ListStatus         `json:"status"`
	Notes              string             `json:"notes"`
	EstimatedTotal     decimal.Decimal    `json:"estimated_total"`
	Items              []ShoppingListItem `json:"items"`
	ItemsCount         int                `json:"items_count"`
	CheckedItemsCount  int                `json:"checked_items_count"`
	ProgressPercentage int                `json:"progress_percentage"`
	CreatedAt          time.Time          `json:"created_at"`
	UpdatedAt          time.Time          `json:"updated_at"`
}

// ShoppingListSummary is the item-less form returned by list listings.
type ShoppingListSummary struct {
	ID                 int64           `json:"id"`
	Name               string          `json:"name"`
	Status             ListStatus      `json:"status"`
	EstimatedTotal     decimal.Decimal `json:"estimated_total"`
	ItemsCount         int             `json:"items_count"`
	CheckedItemsCount  int             `json:"checked_items_count"`
	ProgressPercentage int             `json:"progress_percentage"`
	CreatedAt          time.Time       `json:"created_at"`
	UpdatedAt          time.Time       `json:"updated_at"`
}

type ProductDetails struct {
	ID          int64            `json:"id"`
	Name        string           `json:"name"`
	Brand       string           `json:"brand"`
	LowestPrice *decimal.Decimal `json:"lowest_price"`
}

type ShoppingListItem struct {
	ID             int64            `json:"id"`
	ShoppingListID int64            `json:"shopping_list"`
	ProductID      *int64           `json:"product"`
	ProductDetails *ProductDetails  `json:"product_details"`
	ProductName    string           `json:"product_name"`
	Quantity       decimal.Decimal  `json:"quantity"`
	Unit           string           `json:"unit"`
	EstimatedPrice *decimal.Decimal `json:"estimated_price"`
	Notes          string           `json:"notes"`
	IsChecked      bool             `json:"is_checked"`
	Position       int              `json:"position"`
	CreatedAt      time.Time        `json:"created_at"`
	UpdatedAt      time.Time        `json:"updated_at"`
}

// LineTotal returns quantity * estimated price. ok is false when the item has
// no estimated price.
func (i ShoppingListItem) LineTotal() (total decimal.Decimal, ok bool) {
	if i.EstimatedPrice == nil {
		return decimal.Zero, false
	}
	return i.Quantity.Mul(*i.EstimatedPrice), true
}

// Progress returns the completion percentage for checked out of total items,
// rounded half-up. An empty list is 0% complete.
func Progress(checked, total int) int {
	if total <= 0 {
		return 0
	}
	return int(math.Round(float64(checked) / float64(total) * 100))
}

// CanMarkComplete reports whether the "mark complete" action applies.
func (l ShoppingList) CanMarkComplete() bool {
	return l.Status == ListStatusActive
}

// Clone returns a deep copy so callers can derive a new version without
// touching the original.
func (l ShoppingList) Clone() ShoppingList {
	c := l
	if l.Items != nil {
		c.Items = make([]ShoppingListItem, len(l.Items))
		for i, item := range l.Items {
			c.Items[i] = item.Clone()
		}
	}
	return c
}

func (i ShoppingListItem) Clone() ShoppingListItem {
	c := i
	if i.ProductID != nil {
		id := *i.ProductID
		c.ProductID = &id
	}
	if i.EstimatedPrice != nil {
		p := *i.EstimatedPrice
		c.EstimatedPrice = &p
	}
	if i.ProductDetails != nil {
		d := *i.ProductDetails
		c.ProductDetails = &d
	}
	return c
}

// ItemIndex returns the position of itemID in l.Items, or -1.
func (l ShoppingList) ItemIndex(itemID int64) int {
	for i, item := range l.Items {
		if item.ID == itemID {
			return i
		}
	}
	return -1
}

// ComputedTotal sums the line totals of every priced item.
func (l ShoppingList) ComputedTotal() decimal.Decimal {
	total := decimal.Zero
	for _, item := range l.Items {
		if lt, ok := item.LineTotal(); ok {
			total = total.Add(lt)
		}
	}
	return total
}

// ListInput is the payload for creating a list.
type ListInput struct {
	Name   string     `json:"name"`
	Status ListStatus `json:"status,omitempty"`
	Notes  string     `json:"notes,omitempty"`
}

// ListPatch updates only the fields that are set.
type ListPatch struct {
	Name   *string     `json:"name,omitempty"`
	Status *ListStatus `json:"status,omitempty"`
	Notes  *string     `json:"notes,omitempty"`
}

// ItemInput is the payload for adding an item to a list.
type ItemInput struct {
	ProductID      *int64           `json:"product,omitempty"`
	ProductName    string           `json:"product_name"`
	Quantity       decimal.Decimal  `json:"quantity"`
	Unit           string           `json:"unit,omitempty"`
	EstimatedPrice *decimal.Decimal `json:"estimated_price,omitempty"`
	Notes          string           `json:"notes,omitempty"`
	Position       *int             `json:"position,omitempty"`
}

// ItemPatch updates only the fields that are set. ClearProduct and
// ClearEstimatedPrice travel as an explicit JSON null for product and
// estimated_price.
type ItemPatch struct {
	ProductID           *int64           `json:"product,omitempty"`
	ProductName         *string          `json:"product_name,omitempty"`
	Quantity            *decimal.Decimal `json:"quantity,omitempty"`
	Unit                *string          `json:"unit,omitempty"`
	EstimatedPrice      *decimal.Decimal `json:"estimated_price,omitempty"`
	Notes               *string          `json:"notes,omitempty"`
	Position            *int             `json:"position,omitempty"`
	ClearProduct        bool             `json:"-"`
	ClearEstimatedPrice bool             `json:"-"`
}

type itemPatchFields ItemPatch

func (p ItemPatch) MarshalJSON() ([]byte, error) {
	data, err := json.Marshal(itemPatchFields(p))
	if err != nil || (!p.ClearProduct && !p.ClearEstimatedPrice) {
		return data, err
	}
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(data, &fields); err != nil {
		return nil, err
	}
	if p.ClearProduct {
		fields["product"] = json.RawMessage("null")
	}
	if p.ClearEstimatedPrice {
		fields["estimated_price"] = json.RawMessage("null")
	}
	return json.Marshal(fields)
}

func (p *ItemPatch) UnmarshalJSON(data []byte) error {
	var fields itemPatchFields
	if err := json.Unmarshal(data, &fields); err != nil {
		return err
	}
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	*p = ItemPatch(fields)
	p.ClearProduct = isNull(raw, "product")
	p.ClearEstimatedPrice = isNull(raw, "estimated_price")
	return nil
}

func isNull(raw map[string]json.RawMessage, key string) bool {
	v, ok := raw[key]
	return ok && bytes.Equal(bytes.TrimSpace(v), []byte("null"))
}

type ItemOrder struct {
	ItemID   int64 `json:"item_id"`
	Position int   `json:"position"`
}

// Page is the paginated envelope used by list endpoints.
type Page[T any] struct {
	Count    int     `json:"count"`
	Next     *string `json:"next"`
	Previous *string `json:"previous"`
	Results  []T     `json:"results"`
}
