package store

import (
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/dukerupert/basket/internal/catalog"
	"github.com/dukerupert/basket/internal/model"
)

// CatalogStore holds stores, products and their price history.
type CatalogStore struct {
	db *sql.DB
}

func NewCatalogStore(db *sql.DB) *CatalogStore {
	return &CatalogStore{db: db}
}

// --- Store methods ---

func scanStore(scanner interface{ Scan(...any) error }) (*model.Store, error) {
	var st model.Store
	var active int
	err := scanner.Scan(&st.ID, &st.Name, &st.Location, &active, &st.CreatedAt)
	if err != nil {
		return nil, err
	}
	st.IsActive = active != 0
	return &st, nil
}

const storeCols = `id, name, location, is_active, created_at`

func (s *CatalogStore) ListStores() ([]model.Store, error) {
	rows, err := s.db.Query(`SELECT ` + storeCols + ` FROM stores WHERE is_active = 1 ORDER BY name ASC`)
	if err != nil {
		return nil, fmt.Errorf("list stores: %w", err)
	}
	defer rows.Close()

	stores := []model.Store{}
	for rows.Next() {
		st, err := scanStore(rows)
		if err != nil {
			return nil, fmt.Errorf("scan store: %w", err)
		}
		stores = append(stores, *st)
	}
	return stores, rows.Err()
}

func (s *CatalogStore) GetStore(id int64) (*model.Store, error) {
	row := s.db.QueryRow(`SELECT `+storeCols+` FROM stores WHERE id = ?`, id)
	st, err := scanStore(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get store: %w", err)
	}
	return st, nil
}

func (s *CatalogStore) GetStoreByName(name string) (*model.Store, error) {
	row := s.db.QueryRow(`SELECT `+storeCols+` FROM stores WHERE name = ?`, name)
	st, err := scanStore(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get store by name: %w", err)
	}
	return st, nil
}

func (s *CatalogStore) CreateStore(in model.StoreInput) (*model.Store, error) {
	result, err := s.db.Exec(`INSERT INTO stores (name, location) VALUES (?, ?)`, in.Name, in.Location)
	if err != nil {
		return nil, fmt.Errorf("insert store: %w", err)
	}
	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("last insert id: %w", err)
	}
	return s.GetStore(id)
}

// --- Product methods ---

// lowestActivePrice is a correlated subquery over products aliased p.
const lowestActivePrice = `(SELECT pr.price FROM prices pr WHERE pr.product_id = p.id AND pr.is_active = 1 ORDER BY CAST(pr.price AS REAL) ASC, pr.id ASC LIMIT 1)`

func scanProduct(scanner interface{ Scan(...any) error }) (*model.Product, error) {
	var p model.Product
	var barcode sql.NullString
	var active int
	var lowest decimal.NullDecimal
	err := scanner.Scan(
		&p.ID, &p.Name, &p.NormalizedName, &p.Category, &p.Brand, &p.Unit,
		&barcode, &active, &p.CreatedAt, &lowest,
	)
	if err != nil {
		return nil, err
	}
	p.IsActive = active != 0
	if barcode.Valid {
		p.Barcode = &barcode.String
	}
	if lowest.Valid {
		p.LowestPrice = &lowest.Decimal
	}
	return &p, nil
}

const productCols = `p.id, p.name, p.normalized_name, p.category, p.brand, p.unit, p.barcode, p.is_active, p.created_at, ` + lowestActivePrice

func (s *CatalogStore) GetProduct(id int64) (*model.Product, error) {
	row := s.db.QueryRow(`SELECT `+productCols+` FROM products p WHERE p.id = ?`, id)
	p, err := scanProduct(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get product: %w", err)
	}
	return p, nil
}

// FindProduct looks a product up by its normalized name.
func (s *CatalogStore) FindProduct(name string) (*model.Product, error) {
	row := s.db.QueryRow(
		`SELECT `+productCols+` FROM products p WHERE p.normalized_name = ? ORDER BY p.id LIMIT 1`,
		catalog.Normalize(name),
	)
	p, err := scanProduct(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("find product: %w", err)
	}
	return p, nil
}

// CreateProduct stores a product, deriving its normalized name and, when
// none is given, its category.
func (s *CatalogStore) CreateProduct(in model.ProductInput) (*model.Product, error) {
	category := in.Category
	if category == "" {
		category = catalog.Categorize(in.Name)
	}
	var barcode sql.NullString
	if in.Barcode != nil && *in.Barcode != "" {
		barcode = sql.NullString{String: *in.Barcode, Valid: true}
	}

	result, err := s.db.Exec(
		`INSERT INTO products (name, normalized_name, category, brand, unit, barcode) VALUES (?, ?, ?, ?, ?, ?)`,
		in.Name, catalog.Normalize(in.Name), category, in.Brand, in.Unit, barcode,
	)
	if err != nil {
		return nil, fmt.Errorf("insert product: %w", err)
	}
	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("last insert id: %w", err)
	}
	return s.GetProduct(id)
}

// SearchProducts returns one page of active products matching query by
// name, brand or exact barcode, plus the total match count.
func (s *CatalogStore) SearchProducts(query string, limit, offset int) ([]model.Product, int, error) {
	where := `p.is_active = 1`
	var args []any
	if q := strings.TrimSpace(query); q != "" {
		where += ` AND (p.name LIKE ? OR p.normalized_name LIKE ? OR p.brand LIKE ? OR p.barcode = ?)`
		like := "%" + q + "%"
		args = append(args, like, "%"+catalog.Normalize(q)+"%", like, q)
	}

	var total int
	if err := s.db.QueryRow(`SELECT COUNT(*) FROM products p WHERE `+where, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count products: %w", err)
	}

	rows, err := s.db.Query(
		`SELECT `+productCols+` FROM products p WHERE `+where+` ORDER BY p.name ASC, p.id ASC LIMIT ? OFFSET ?`,
		append(args, limit, offset)...,
	)
	if err != nil {
		return nil, 0, fmt.Errorf("search products: %w", err)
	}
	defer rows.Close()

	products := []model.Product{}
	for rows.Next() {
		p, err := scanProduct(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("scan product: %w", err)
		}
		products = append(products, *p)
	}
	return products, total, rows.Err()
}

// --- Price methods ---

func scanPrice(scanner interface{ Scan(...any) error }) (*model.Price, error) {
	var p model.Price
	var active int
	err := scanner.Scan(
		&p.ID, &p.ProductID, &p.StoreID, &p.StoreName, &p.Price,
		&p.DateRecorded, &active, &p.Source, &p.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	p.IsActive = active != 0
	return &p, nil
}

const priceCols = `pr.id, pr.product_id, pr.store_id, st.name, pr.price, pr.date_recorded, pr.is_active, pr.source, pr.created_at`

func (s *CatalogStore) GetPrice(id int64) (*model.Price, error) {
	row := s.db.QueryRow(`SELECT `+priceCols+` FROM prices pr JOIN stores st ON st.id = pr.store_id WHERE pr.id = ?`, id)
	p, err := scanPrice(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get price: %w", err)
	}
	return p, nil
}

// RecordPrice stores a new observation and retires the previous active
// price for the same product and store.
func (s *CatalogStore) RecordPrice(in model.PriceInput) (*model.Price, error) {
	recorded := time.Now().UTC()
	if in.DateRecorded != nil {
		recorded = in.DateRecorded.UTC()
	}
	source := in.Source
	if source == "" {
		source = "manual"
	}

	tx, err := s.db.Begin()
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.Exec(
		`UPDATE prices SET is_active = 0 WHERE product_id = ? AND store_id = ? AND is_active = 1`,
		in.ProductID, in.StoreID,
	)
	if err != nil {
		return nil, fmt.Errorf("retire prices: %w", err)
	}

	result, err := tx.Exec(
		`INSERT INTO prices (product_id, store_id, price, date_recorded, source) VALUES (?, ?, ?, ?, ?)`,
		in.ProductID, in.StoreID, in.Price.StringFixed(2), recorded, source,
	)
	if err != nil {
		return nil, fmt.Errorf("insert price: %w", err)
	}
	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("last insert id: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit price: %w", err)
	}
	return s.GetPrice(id)
}

// ActivePrices lists the current price at every active store for a product,
// in the order they were recorded.
func (s *CatalogStore) ActivePrices(productID int64) ([]model.Price, error) {
	return activePrices(s.db, productID)
}

func activePrices(q querier, productID int64) ([]model.Price, error) {
	rows, err := q.Query(
		`SELECT `+priceCols+` FROM prices pr JOIN stores st ON st.id = pr.store_id
		 WHERE pr.product_id = ? AND pr.is_active = 1 AND st.is_active = 1
		 ORDER BY pr.id ASC`,
		productID,
	)
	if err != nil {
		return nil, fmt.Errorf("active prices: %w", err)
	}
	defer rows.Close()

	prices := []model.Price{}
	for rows.Next() {
		p, err := scanPrice(rows)
		if err != nil {
			return nil, fmt.Errorf("scan price: %w", err)
		}
		prices = append(prices, *p)
	}
	return prices, rows.Err()
}

// PriceEntries lists the active price at every active store for a product,
// cheapest first.
func (s *CatalogStore) PriceEntries(productID int64) ([]model.ProductPriceEntry, error) {
	rows, err := s.db.Query(
		`SELECT st.id, st.name, st.location, pr.price, pr.date_recorded
		 FROM prices pr JOIN stores st ON st.id = pr.store_id
		 WHERE pr.product_id = ? AND pr.is_active = 1 AND st.is_active = 1
		 ORDER BY CAST(pr.price AS REAL) ASC, st.name ASC`,
		productID,
	)
	if err != nil {
		return nil, fmt.Errorf("price entries: %w", err)
	}
	defer rows.Close()

	entries := []model.ProductPriceEntry{}
	for rows.Next() {
		var e model.ProductPriceEntry
		if err := rows.Scan(&e.StoreID, &e.StoreName, &e.StoreLocation, &e.Price, &e.DateRecorded); err != nil {
			return nil, fmt.Errorf("scan price entry: %w", err)
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// LowestPrice returns the cheapest active price for a product, or nil.
func (s *CatalogStore) LowestPrice(productID int64) (*decimal.Decimal, error) {
	return lowestPrice(s.db, productID)
}

func lowestPrice(q querier, productID int64) (*decimal.Decimal, error) {
	var lowest decimal.NullDecimal
	err := q.QueryRow(
		`SELECT price FROM prices WHERE product_id = ? AND is_active = 1 ORDER BY CAST(price AS REAL) ASC, id ASC LIMIT 1`,
		productID,
	).Scan(&lowest)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("lowest price: %w", err)
	}
	if !lowest.Valid {
		return nil, nil
	}
	return &lowest.Decimal, nil
}

// querier is satisfied by both *sql.DB and *sql.Tx.
type querier interface {
	Exec(query string, args ...any) (sql.Result, error)
	Query(query string, args ...any) (*sql.Rows, error)
	QueryRow(query string, args ...any) *sql.Row
}
