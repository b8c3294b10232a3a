package model

import (
	"time"

	"github.com/shopspring/decimal"
)

type Store struct {
	ID        int64     `json:"id"`
	Name      string    `json:"name"`
	Location  string    `json:"location"`
	IsActive  bool      `json:"is_active"`
	CreatedAt time.Time `json:"created_at"`
}

type Product struct {
	ID             int64            `json:"id"`
	Name           string           `json:"name"`
	NormalizedName string           `json:"normalized_name"`
	Category       string           `json:"category"`
	Brand          string           `json:"brand"`
	Unit           string           `json:"unit"`
	Barcode        *string          `json:"barcode"`
	IsActive       bool             `json:"is_active"`
	LowestPrice    *decimal.Decimal `json:"lowest_price"`
	CreatedAt      time.Time        `json:"created_at"`
}

// Price is one observation of a product's price at a store. Only the most
// recent observation per product and store is active.
type Price struct {
	ID           int64           `json:"id"`
	ProductID    int64           `json:"product"`
	StoreID      int64           `json:"store"`
	StoreName    string          `json:"store_name"`
	Price        decimal.Decimal `json:"price"`
	DateRecorded time.Time       `json:"date_recorded"`
	IsActive     bool            `json:"is_active"`
	Source       string          `json:"source"`
	CreatedAt    time.Time       `json:"created_at"`
}

type StoreInput struct {
	Name     string `json:"name"`
	Location string `json:"location,omitempty"`
}

type ProductInput struct {
	Name     string  `json:"name"`
	Category string  `json:"category,omitempty"`
	Brand    string  `json:"brand,omitempty"`
	Unit     string  `json:"unit,omitempty"`
	Barcode  *string `json:"barcode,omitempty"`
}

// PriceInput records a price observation. DateRecorded defaults to today.
type PriceInput struct {
	ProductID    int64           `json:"product"`
	StoreID      int64           `json:"store"`
	Price        decimal.Decimal `json:"price"`
	DateRecorded *time.Time      `json:"date_recorded,omitempty"`
	Source       string          `json:"source,omitempty"`
}

// ProductPriceEntry is one store's active price in a product comparison.
type ProductPriceEntry struct {
	StoreID       int64           `json:"store_id"`
	StoreName     string          `json:"store_name"`
	StoreLocation string          `json:"store_location"`
	Price         decimal.Decimal `json:"price"`
	DateRecorded  time.Time       `json:"date_recorded"`
}

// ProductComparison sets a product's active prices side by side. When the
// product has no active price only Message and the product fields are set.
type ProductComparison struct {
	ProductID         int64               `json:"product_id"`
	ProductName       string              `json:"product_name"`
	Brand             string              `json:"brand"`
	Prices            []ProductPriceEntry `json:"prices,omitempty"`
	LowestPrice       *decimal.Decimal    `json:"lowest_price,omitempty"`
	HighestPrice      *decimal.Decimal    `json:"highest_price,omitempty"`
	AveragePrice      *decimal.Decimal    `json:"average_price,omitempty"`
	PriceDifference   *decimal.Decimal    `json:"price_difference,omitempty"`
	SavingsPercentage *decimal.Decimal    `json:"savings_percentage,omitempty"`
	Message           string              `json:"message,omitempty"`
}

// ProductComparisons is the compare-multiple response.
type ProductComparisons struct {
	Results []ProductComparison `json:"results"`
}

// PreferredStore is a store the user marked as one they shop at.
type PreferredStore struct {
	ID            int64     `json:"id"`
	StoreID       int64     `json:"store_id"`
	StoreName     string    `json:"store_name"`
	StoreLocation string    `json:"store_location"`
	AddedAt       time.Time `json:"added_at"`
}
