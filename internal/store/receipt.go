package store

import (
	"database/sql"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/dukerupert/basket/internal/catalog"
	"github.com/dukerupert/basket/internal/model"
)

// Number of stores and receipts shown in receipt stats.
const statsTopN = 5

type ReceiptStore struct {
	db *sql.DB
}

func NewReceiptStore(db *sql.DB) *ReceiptStore {
	return &ReceiptStore{db: db}
}

const receiptCols = `r.id, r.user_id, r.store_name, r.store_location, r.purchase_date, r.total_amount, r.tax_amount,
	r.status, r.created_at, r.updated_at,
	(SELECT COUNT(*) FROM receipt_items c WHERE c.receipt_id = r.id)`

func scanReceipt(scanner interface{ Scan(...any) error }) (*model.Receipt, error) {
	var rc model.Receipt
	var date sql.NullString
	var tax decimal.NullDecimal
	var status string
	err := scanner.Scan(
		&rc.ID, &rc.UserID, &rc.StoreName, &rc.StoreLocation, &date, &rc.TotalAmount, &tax,
		&status, &rc.CreatedAt, &rc.UpdatedAt, &rc.ItemsCount,
	)
	if err != nil {
		return nil, err
	}
	if date.Valid {
		rc.PurchaseDate = &date.String
	}
	if tax.Valid {
		rc.TaxAmount = &tax.Decimal
	}
	rc.Status = model.ReceiptStatus(status)
	return &rc, nil
}

func summarizeReceipt(rc *model.Receipt) model.ReceiptSummary {
	return model.ReceiptSummary{
		ID:            rc.ID,
		StoreName:     rc.StoreName,
		StoreLocation: rc.StoreLocation,
		PurchaseDate:  rc.PurchaseDate,
		TotalAmount:   rc.TotalAmount,
		Status:        rc.Status,
		ItemsCount:    rc.ItemsCount,
		CreatedAt:     rc.CreatedAt,
	}
}

const receiptOrder = ` ORDER BY r.purchase_date DESC, r.created_at DESC, r.id DESC`

// List pages through the user's receipts, newest purchase first.
func (s *ReceiptStore) List(userID int64, f model.ReceiptFilter, limit, offset int) ([]model.ReceiptSummary, int, error) {
	where := `r.user_id = ?`
	args := []any{userID}
	if f.Status != "" {
		where += ` AND r.status = ?`
		args = append(args, string(f.Status))
	}
	if f.Store != "" {
		where += ` AND r.store_name LIKE ?`
		args = append(args, "%"+f.Store+"%")
	}
	if f.StartDate != "" {
		where += ` AND r.purchase_date >= ?`
		args = append(args, f.StartDate)
	}
	if f.EndDate != "" {
		where += ` AND r.purchase_date <= ?`
		args = append(args, f.EndDate)
	}

	var total int
	if err := s.db.QueryRow(`SELECT COUNT(*) FROM receipts r WHERE `+where, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count receipts: %w", err)
	}

	summaries, err := s.summaries(`WHERE `+where+receiptOrder+` LIMIT ? OFFSET ?`, append(args, limit, offset)...)
	if err != nil {
		return nil, 0, err
	}
	return summaries, total, nil
}

func (s *ReceiptStore) summaries(tail string, args ...any) ([]model.ReceiptSummary, error) {
	rows, err := s.db.Query(`SELECT `+receiptCols+` FROM receipts r `+tail, args...)
	if err != nil {
		return nil, fmt.Errorf("list receipts: %w", err)
	}
	defer rows.Close()

	out := []model.ReceiptSummary{}
	for rows.Next() {
		rc, err := scanReceipt(rows)
		if err != nil {
			return nil, fmt.Errorf("scan receipt: %w", err)
		}
		out = append(out, summarizeReceipt(rc))
	}
	return out, rows.Err()
}

// Get returns the user's receipt with its items, or nil when it does not
// exist or belongs to someone else.
func (s *ReceiptStore) Get(userID, receiptID int64) (*model.Receipt, error) {
	row := s.db.QueryRow(`SELECT `+receiptCols+` FROM receipts r WHERE r.id = ? AND r.user_id = ?`, receiptID, userID)
	rc, err := scanReceipt(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get receipt: %w", err)
	}
	rc.Items, err = s.ListItems(receiptID)
	if err != nil {
		return nil, err
	}
	return rc, nil
}

// Create stores a receipt and its items. The total is the sum of the item
// totals.
func (s *ReceiptStore) Create(userID int64, in model.ReceiptInput) (*model.Receipt, error) {
	status := in.Status
	if status == "" {
		status = model.ReceiptStatusCompleted
	}

	tx, err := s.db.Begin()
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	result, err := tx.Exec(
		`INSERT INTO receipts (user_id, store_name, store_location, purchase_date, tax_amount, status) VALUES (?, ?, ?, ?, ?, ?)`,
		userID, in.StoreName, in.StoreLocation, nullString(in.PurchaseDate), nullMoney(in.TaxAmount), string(status),
	)
	if err != nil {
		return nil, fmt.Errorf("insert receipt: %w", err)
	}
	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("last insert id: %w", err)
	}

	for _, item := range in.Items {
		if _, err := insertReceiptItem(tx, id, item); err != nil {
			return nil, err
		}
	}
	if _, err := recalculateReceiptTotal(tx, id); err != nil {
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit receipt: %w", err)
	}
	return s.Get(userID, id)
}

// Update applies the set fields of patch. An empty purchase date clears it.
// Returns nil when the receipt is not the user's.
func (s *ReceiptStore) Update(userID, receiptID int64, patch model.ReceiptPatch) (*model.Receipt, error) {
	var sets []string
	var args []any
	if patch.StoreName != nil {
		sets = append(sets, "store_name = ?")
		args = append(args, *patch.StoreName)
	}
	if patch.StoreLocation != nil {
		sets = append(sets, "store_location = ?")
		args = append(args, *patch.StoreLocation)
	}
	if patch.PurchaseDate != nil {
		sets = append(sets, "purchase_date = ?")
		if *patch.PurchaseDate == "" {
			args = append(args, nil)
		} else {
			args = append(args, *patch.PurchaseDate)
		}
	}
	if patch.TotalAmount != nil {
		sets = append(sets, "total_amount = ?")
		args = append(args, patch.TotalAmount.StringFixed(2))
	}
	if patch.TaxAmount != nil {
		sets = append(sets, "tax_amount = ?")
		args = append(args, patch.TaxAmount.StringFixed(2))
	}
	sets = append(sets, "updated_at = CURRENT_TIMESTAMP")

	result, err := s.db.Exec(
		`UPDATE receipts SET `+strings.Join(sets, ", ")+` WHERE id = ? AND user_id = ?`,
		append(args, receiptID, userID)...,
	)
	if err != nil {
		return nil, fmt.Errorf("update receipt: %w", err)
	}
	if n, err := result.RowsAffected(); err != nil {
		return nil, fmt.Errorf("rows affected: %w", err)
	} else if n == 0 {
		return nil, nil
	}
	return s.Get(userID, receiptID)
}

// Delete removes the receipt and its items. Reports whether it existed.
func (s *ReceiptStore) Delete(userID, receiptID int64) (bool, error) {
	result, err := s.db.Exec(`DELETE FROM receipts WHERE id = ? AND user_id = ?`, receiptID, userID)
	if err != nil {
		return false, fmt.Errorf("delete receipt: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("rows affected: %w", err)
	}
	return n > 0, nil
}

// --- Item methods ---

const receiptItemCols = `ri.id, ri.receipt_id, ri.product_name, ri.normalized_name, ri.quantity, ri.unit_price,
	ri.total_price, ri.category, ri.product_id, p.brand, ri.created_at, ri.updated_at`

func scanReceiptItem(scanner interface{ Scan(...any) error }) (*model.ReceiptItem, error) {
	var item model.ReceiptItem
	var productID sql.NullInt64
	var brand sql.NullString
	err := scanner.Scan(
		&item.ID, &item.ReceiptID, &item.ProductName, &item.NormalizedName, &item.Quantity, &item.UnitPrice,
		&item.TotalPrice, &item.Category, &productID, &brand, &item.CreatedAt, &item.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	if productID.Valid {
		item.ProductID = &productID.Int64
		item.ProductBrand = &brand.String
	}
	return &item, nil
}

func (s *ReceiptStore) ListItems(receiptID int64) ([]model.ReceiptItem, error) {
	return receiptItems(s.db, receiptID)
}

func receiptItems(q querier, receiptID int64) ([]model.ReceiptItem, error) {
	rows, err := q.Query(
		`SELECT `+receiptItemCols+` FROM receipt_items ri LEFT JOIN products p ON p.id = ri.product_id
		 WHERE ri.receipt_id = ? ORDER BY ri.id ASC`,
		receiptID,
	)
	if err != nil {
		return nil, fmt.Errorf("list receipt items: %w", err)
	}
	defer rows.Close()

	items := []model.ReceiptItem{}
	for rows.Next() {
		item, err := scanReceiptItem(rows)
		if err != nil {
			return nil, fmt.Errorf("scan receipt item: %w", err)
		}
		items = append(items, *item)
	}
	return items, rows.Err()
}

func (s *ReceiptStore) GetItem(receiptID, itemID int64) (*model.ReceiptItem, error) {
	row := s.db.QueryRow(
		`SELECT `+receiptItemCols+` FROM receipt_items ri LEFT JOIN products p ON p.id = ri.product_id
		 WHERE ri.id = ? AND ri.receipt_id = ?`,
		itemID, receiptID,
	)
	item, err := scanReceiptItem(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get receipt item: %w", err)
	}
	return item, nil
}

// AddItems inserts every item and refreshes the receipt total, all or
// nothing.
func (s *ReceiptStore) AddItems(receiptID int64, in []model.ReceiptItemInput) ([]model.ReceiptItem, error) {
	tx, err := s.db.Begin()
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	ids := make([]int64, 0, len(in))
	for _, item := range in {
		id, err := insertReceiptItem(tx, receiptID, item)
		if err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	if _, err := recalculateReceiptTotal(tx, receiptID); err != nil {
		return nil, err
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit receipt items: %w", err)
	}

	out := make([]model.ReceiptItem, 0, len(ids))
	for _, id := range ids {
		item, err := s.GetItem(receiptID, id)
		if err != nil {
			return nil, err
		}
		out = append(out, *item)
	}
	return out, nil
}

// insertReceiptItem fills the normalized name and category from the product
// name when they are blank.
func insertReceiptItem(tx *sql.Tx, receiptID int64, in model.ReceiptItemInput) (int64, error) {
	if in.ProductID != nil {
		if err := productExists(tx, *in.ProductID); err != nil {
			return 0, err
		}
	}
	name := strings.TrimSpace(in.ProductName)
	normalized := in.NormalizedName
	if normalized == "" {
		normalized = catalog.Normalize(name)
	}
	category := in.Category
	if category == "" {
		category = catalog.Categorize(name)
	}
	qty := decimal.NewFromInt(1)
	if in.Quantity != nil {
		qty = *in.Quantity
	}
	var price decimal.Decimal
	if in.UnitPrice != nil {
		price = *in.UnitPrice
	}
	total := in.LineTotal()
	if in.TotalPrice != nil && !in.TotalPrice.IsZero() {
		total = *in.TotalPrice
	}

	result, err := tx.Exec(
		`INSERT INTO receipt_items (receipt_id, product_name, normalized_name, quantity, unit_price, total_price, category, product_id)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		receiptID, name, normalized, qty.String(), price.StringFixed(2), total.StringFixed(2), category, nullInt64(in.ProductID),
	)
	if err != nil {
		return 0, fmt.Errorf("insert receipt item: %w", err)
	}
	id, err := result.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("last insert id: %w", err)
	}
	return id, nil
}

func productExists(q querier, productID int64) error {
	var n int
	if err := q.QueryRow(`SELECT COUNT(*) FROM products WHERE id = ?`, productID).Scan(&n); err != nil {
		return fmt.Errorf("load product: %w", err)
	}
	if n == 0 {
		return ErrProductNotFound
	}
	return nil
}

// UpdateItem applies the set fields of patch and refreshes the receipt
// total. A new quantity or unit price recomputes the line total, overriding
// any total_price in the patch. Returns nil when the item is not on the
// receipt.
func (s *ReceiptStore) UpdateItem(receiptID, itemID int64, patch model.ReceiptItemPatch) (*model.ReceiptItem, error) {
	current, err := s.GetItem(receiptID, itemID)
	if err != nil || current == nil {
		return nil, err
	}

	var sets []string
	var args []any
	if patch.ProductID != nil {
		if err := productExists(s.db, *patch.ProductID); err != nil {
			return nil, err
		}
		sets = append(sets, "product_id = ?")
		args = append(args, *patch.ProductID)
	}
	if patch.ProductName != nil {
		sets = append(sets, "product_name = ?")
		args = append(args, *patch.ProductName)
	}
	if patch.NormalizedName != nil {
		sets = append(sets, "normalized_name = ?")
		args = append(args, *patch.NormalizedName)
	}
	if patch.Category != nil {
		sets = append(sets, "category = ?")
		args = append(args, *patch.Category)
	}
	qty, price := current.Quantity, current.UnitPrice
	if patch.Quantity != nil {
		qty = *patch.Quantity
		sets = append(sets, "quantity = ?")
		args = append(args, qty.String())
	}
	if patch.UnitPrice != nil {
		price = *patch.UnitPrice
		sets = append(sets, "unit_price = ?")
		args = append(args, price.StringFixed(2))
	}
	switch {
	case patch.Quantity != nil || patch.UnitPrice != nil:
		sets = append(sets, "total_price = ?")
		args = append(args, qty.Mul(price).StringFixed(2))
	case patch.TotalPrice != nil:
		sets = append(sets, "total_price = ?")
		args = append(args, patch.TotalPrice.StringFixed(2))
	}
	sets = append(sets, "updated_at = CURRENT_TIMESTAMP")

	tx, err := s.db.Begin()
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.Exec(
		`UPDATE receipt_items SET `+strings.Join(sets, ", ")+` WHERE id = ? AND receipt_id = ?`,
		append(args, itemID, receiptID)...,
	)
	if err != nil {
		return nil, fmt.Errorf("update receipt item: %w", err)
	}
	if _, err := recalculateReceiptTotal(tx, receiptID); err != nil {
		return nil, err
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit receipt item: %w", err)
	}
	return s.GetItem(receiptID, itemID)
}

// DeleteItem removes an item and refreshes the receipt total. Reports
// whether an item was removed.
func (s *ReceiptStore) DeleteItem(receiptID, itemID int64) (bool, error) {
	tx, err := s.db.Begin()
	if err != nil {
		return false, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	result, err := tx.Exec(`DELETE FROM receipt_items WHERE id = ? AND receipt_id = ?`, itemID, receiptID)
	if err != nil {
		return false, fmt.Errorf("delete receipt item: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("rows affected: %w", err)
	}
	if n == 0 {
		return false, nil
	}
	if _, err := recalculateReceiptTotal(tx, receiptID); err != nil {
		return false, err
	}
	if err := tx.Commit(); err != nil {
		return false, fmt.Errorf("commit delete: %w", err)
	}
	return true, nil
}

func recalculateReceiptTotal(q querier, receiptID int64) (decimal.Decimal, error) {
	rows, err := q.Query(`SELECT total_price FROM receipt_items WHERE receipt_id = ?`, receiptID)
	if err != nil {
		return decimal.Zero, fmt.Errorf("load receipt lines: %w", err)
	}
	total := decimal.Zero
	for rows.Next() {
		var line decimal.Decimal
		if err := rows.Scan(&line); err != nil {
			rows.Close()
			return decimal.Zero, fmt.Errorf("scan receipt line: %w", err)
		}
		total = total.Add(line)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return decimal.Zero, fmt.Errorf("load receipt lines: %w", err)
	}

	total = total.Round(2)
	_, err = q.Exec(
		`UPDATE receipts SET total_amount = ?, updated_at = CURRENT_TIMESTAMP WHERE id = ?`,
		total.StringFixed(2), receiptID,
	)
	if err != nil {
		return decimal.Zero, fmt.Errorf("store receipt total: %w", err)
	}
	return total, nil
}

// --- Stats ---

type completedReceipt struct {
	store string
	date  sql.NullString
	total decimal.Decimal
}

func (s *ReceiptStore) completed(userID int64, since string) ([]completedReceipt, error) {
	query := `SELECT store_name, purchase_date, total_amount FROM receipts WHERE user_id = ? AND status = ?`
	args := []any{userID, string(model.ReceiptStatusCompleted)}
	if since != "" {
		query += ` AND purchase_date >= ?`
		args = append(args, since)
	}
	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("load completed receipts: %w", err)
	}
	defer rows.Close()

	var out []completedReceipt
	for rows.Next() {
		var c completedReceipt
		if err := rows.Scan(&c.store, &c.date, &c.total); err != nil {
			return nil, fmt.Errorf("scan completed receipt: %w", err)
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

// Stats summarizes the user's completed receipts as of now. The month
// figures count receipts purchased on or after the first of now's month.
func (s *ReceiptStore) Stats(userID int64, now time.Time) (*model.ReceiptStats, error) {
	receipts, err := s.completed(userID, "")
	if err != nil {
		return nil, err
	}

	monthStart := now.Format("2006-01") + "-01"
	stats := &model.ReceiptStats{
		TotalSpent:     decimal.Zero,
		SpentThisMonth: decimal.Zero,
		TopStores:      []model.StoreSpending{},
	}
	byStore := map[string]*model.StoreSpending{}
	for _, rc := range receipts {
		stats.TotalReceipts++
		stats.TotalSpent = stats.TotalSpent.Add(rc.total)
		if rc.date.Valid && rc.date.String >= monthStart {
			stats.ReceiptsThisMonth++
			stats.SpentThisMonth = stats.SpentThisMonth.Add(rc.total)
		}
		sp, ok := byStore[rc.store]
		if !ok {
			sp = &model.StoreSpending{StoreName: rc.store, TotalSpent: decimal.Zero}
			byStore[rc.store] = sp
		}
		sp.ReceiptCount++
		sp.TotalSpent = sp.TotalSpent.Add(rc.total)
	}

	for _, sp := range byStore {
		stats.TopStores = append(stats.TopStores, *sp)
	}
	sort.Slice(stats.TopStores, func(i, j int) bool {
		a, b := stats.TopStores[i], stats.TopStores[j]
		if !a.TotalSpent.Equal(b.TotalSpent) {
			return a.TotalSpent.GreaterThan(b.TotalSpent)
		}
		return a.StoreName < b.StoreName
	})
	if len(stats.TopStores) > statsTopN {
		stats.TopStores = stats.TopStores[:statsTopN]
	}

	stats.RecentReceipts, err = s.summaries(`WHERE r.user_id = ? AND r.status = ?`+receiptOrder+` LIMIT ?`,
		userID, string(model.ReceiptStatusCompleted), statsTopN)
	if err != nil {
		return nil, err
	}
	return stats, nil
}

// MonthlySpending totals completed receipts per purchase month over the
// year before now, oldest month first.
func (s *ReceiptStore) MonthlySpending(userID int64, now time.Time) ([]model.MonthlySpending, error) {
	receipts, err := s.completed(userID, now.AddDate(0, 0, -365).Format(model.DateLayout))
	if err != nil {
		return nil, err
	}

	byMonth := map[string]*model.MonthlySpending{}
	for _, rc := range receipts {
		if !rc.date.Valid || len(rc.date.String) < 7 {
			continue
		}
		month := rc.date.String[:7]
		m, ok := byMonth[month]
		if !ok {
			m = &model.MonthlySpending{Month: month, Total: decimal.Zero}
			byMonth[month] = m
		}
		m.Total = m.Total.Add(rc.total)
		m.Count++
	}

	out := make([]model.MonthlySpending, 0, len(byMonth))
	for _, m := range byMonth {
		out = append(out, *m)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Month < out[j].Month })
	return out, nil
}

func nullString(v *string) sql.NullString {
	if v == nil || *v == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: *v, Valid: true}
}

func nullMoney(v *decimal.Decimal) sql.NullString {
	if v == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: v.StringFixed(2), Valid: true}
}
