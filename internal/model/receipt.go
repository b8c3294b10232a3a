package model

import (
	"time"

	"github.com/shopspring/decimal"
)

type ReceiptStatus string

const (
	ReceiptStatusPending    ReceiptStatus = "pending"
	ReceiptStatusProcessing ReceiptStatus = "processing"
	ReceiptStatusCompleted  ReceiptStatus = "completed"
	ReceiptStatusFailed     ReceiptStatus = "failed"
)

func (s ReceiptStatus) Valid() bool {
	switch s {
	case ReceiptStatusPending, ReceiptStatusProcessing, ReceiptStatusCompleted, ReceiptStatusFailed:
		return true
	}
	return false
}

// DateLayout is the wire and storage format of a purchase date.
const DateLayout = "2006-01-02"

// Receipt is a purchase entered by hand. TotalAmount is the sum of the
// item totals unless the user overrides it.
type Receipt struct {
	ID            int64            `json:"id"`
	UserID        int64            `json:"user"`
	StoreName     string           `json:"store_name"`
	StoreLocation string           `json:"store_location"`
	PurchaseDate  *string          `json:"purchase_date"`
	TotalAmount   decimal.Decimal  `json:"total_amount"`
	TaxAmount     *decimal.Decimal `json:"tax_amount"`
	Status        ReceiptStatus    `json:"status"`
	Items         []ReceiptItem    `json:"items"`
	ItemsCount    int              `json:"items_count"`
	CreatedAt     time.Time        `json:"created_at"`
	UpdatedAt     time.Time        `json:"updated_at"`
}

// ReceiptSummary is the item-less form returned by receipt listings.
type ReceiptSummary struct {
	ID            int64           `json:"id"`
	StoreName     string          `json:"store_name"`
	StoreLocation string          `json:"store_location"`
	PurchaseDate  *string         `json:"purchase_date"`
	TotalAmount   decimal.Decimal `json:"total_amount"`
	Status        ReceiptStatus   `json:"status"`
	ItemsCount    int             `json:"items_count"`
	CreatedAt     time.Time       `json:"created_at"`
}

type ReceiptItem struct {
	ID             int64           `json:"id"`
	ReceiptID      int64           `json:"receipt"`
	ProductName    string          `json:"product_name"`
	NormalizedName string          `json:"normalized_name"`
	Quantity       decimal.Decimal `json:"quantity"`
	UnitPrice      decimal.Decimal `json:"unit_price"`
	TotalPrice     decimal.Decimal `json:"total_price"`
	Category       string          `json:"category"`
	ProductID      *int64          `json:"product"`
	ProductBrand   *string         `json:"product_brand,omitempty"`
	CreatedAt      time.Time       `json:"created_at"`
	UpdatedAt      time.Time       `json:"updated_at"`
}

// ReceiptInput creates a receipt, optionally with its items. Status
// defaults to completed.
type ReceiptInput struct {
	StoreName     string             `json:"store_name"`
	StoreLocation string             `json:"store_location,omitempty"`
	PurchaseDate  *string            `json:"purchase_date,omitempty"`
	TaxAmount     *decimal.Decimal   `json:"tax_amount,omitempty"`
	Status        ReceiptStatus      `json:"status,omitempty"`
	Items         []ReceiptItemInput `json:"items,omitempty"`
}

type ReceiptPatch struct {
	StoreName     *string          `json:"store_name,omitempty"`
	StoreLocation *string          `json:"store_location,omitempty"`
	PurchaseDate  *string          `json:"purchase_date,omitempty"`
	TotalAmount   *decimal.Decimal `json:"total_amount,omitempty"`
	TaxAmount     *decimal.Decimal `json:"tax_amount,omitempty"`
}

// ReceiptItemInput adds a line to a receipt. Quantity defaults to 1 and
// TotalPrice to quantity * unit price.
type ReceiptItemInput struct {
	ProductName    string           `json:"product_name"`
	NormalizedName string           `json:"normalized_name,omitempty"`
	Quantity       *decimal.Decimal `json:"quantity,omitempty"`
	UnitPrice      *decimal.Decimal `json:"unit_price"`
	TotalPrice     *decimal.Decimal `json:"total_price,omitempty"`
	Category       string           `json:"category,omitempty"`
	ProductID      *int64           `json:"product,omitempty"`
}

// ReceiptItemPatch updates only the fields that are set. A new quantity or
// unit price recomputes the line total.
type ReceiptItemPatch struct {
	ProductName    *string          `json:"product_name,omitempty"`
	NormalizedName *string          `json:"normalized_name,omitempty"`
	Quantity       *decimal.Decimal `json:"quantity,omitempty"`
	UnitPrice      *decimal.Decimal `json:"unit_price,omitempty"`
	TotalPrice     *decimal.Decimal `json:"total_price,omitempty"`
	Category       *string          `json:"category,omitempty"`
	ProductID      *int64           `json:"product,omitempty"`
}

// ReceiptFilter narrows a receipt listing. Dates are inclusive.
type ReceiptFilter struct {
	Status    ReceiptStatus
	Store     string
	StartDate string
	EndDate   string
}

type StoreSpending struct {
	StoreName    string          `json:"store_name"`
	ReceiptCount int             `json:"receipt_count"`
	TotalSpent   decimal.Decimal `json:"total_spent"`
}

// ReceiptStats summarizes the user's completed receipts.
type ReceiptStats struct {
	TotalReceipts     int              `json:"total_receipts"`
	TotalSpent        decimal.Decimal  `json:"total_spent"`
	ReceiptsThisMonth int              `json:"receipts_this_month"`
	SpentThisMonth    decimal.Decimal  `json:"spent_this_month"`
	TopStores         []StoreSpending  `json:"top_stores"`
	RecentReceipts    []ReceiptSummary `json:"recent_receipts"`
}

type MonthlySpending struct {
	Month string          `json:"month"`
	Total decimal.Decimal `json:"total"`
	Count int             `json:"count"`
}

// GenerateListInput turns a receipt into a new shopping list.
type GenerateListInput struct {
	ReceiptID int64  `json:"receipt_id"`
	ListName  string `json:"list_name,omitempty"`
}

// LineTotal returns quantity * unit price rounded to cents.
func (in ReceiptItemInput) LineTotal() decimal.Decimal {
	qty := decimal.NewFromInt(1)
	if in.Quantity != nil {
		qty = *in.Quantity
	}
	var price decimal.Decimal
	if in.UnitPrice != nil {
		price = *in.UnitPrice
	}
	return qty.Mul(price).Round(2)
}
