package store

import (
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/dukerupert/basket/internal/compare"
	"github.com/dukerupert/basket/internal/model"
)

// ErrProductNotFound is returned when an item references an unknown product.
var ErrProductNotFound = errors.New("product not found")

type ShoppingListStore struct {
	db *sql.DB
}

func NewShoppingListStore(db *sql.DB) *ShoppingListStore {
	return &ShoppingListStore{db: db}
}

// --- List methods ---

func scanShoppingList(scanner interface{ Scan(...any) error }) (*model.ShoppingList, error) {
	var l model.ShoppingList
	var status string
	err := scanner.Scan(
		&l.ID, &l.UserID, &l.Name, &status, &l.Notes, &l.EstimatedTotal,
		&l.CreatedAt, &l.UpdatedAt, &l.ItemsCount, &l.CheckedItemsCount,
	)
	if err != nil {
		return nil, err
	}
	l.Status = model.ListStatus(status)
	l.ProgressPercentage = model.Progress(l.CheckedItemsCount, l.ItemsCount)
	return &l, nil
}

const shoppingListCols = `l.id, l.user_id, l.name, l.status, l.notes, l.estimated_total, l.created_at, l.updated_at,
	(SELECT COUNT(*) FROM shopping_list_items c WHERE c.list_id = l.id),
	(SELECT COUNT(*) FROM shopping_list_items c WHERE c.list_id = l.id AND c.is_checked = 1)`

func summarize(l *model.ShoppingList) model.ShoppingListSummary {
	return model.ShoppingListSummary{
		ID:                 l.ID,
		Name:               l.Name,
		Status:             l.Status,
		EstimatedTotal:     l.EstimatedTotal,
		ItemsCount:         l.ItemsCount,
		CheckedItemsCount:  l.CheckedItemsCount,
		ProgressPercentage: l.ProgressPercentage,
		CreatedAt:          l.CreatedAt,
		UpdatedAt:          l.UpdatedAt,
	}
}

// List returns one page of the user's lists, newest first, and the total
// count. An empty status matches every list.
func (s *ShoppingListStore) List(userID int64, status model.ListStatus, limit, offset int) ([]model.ShoppingListSummary, int, error) {
	where := `l.user_id = ?`
	args := []any{userID}
	if status != "" {
		where += ` AND l.status = ?`
		args = append(args, string(status))
	}

	var total int
	if err := s.db.QueryRow(`SELECT COUNT(*) FROM shopping_lists l WHERE `+where, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count lists: %w", err)
	}

	rows, err := s.db.Query(
		`SELECT `+shoppingListCols+` FROM shopping_lists l WHERE `+where+` ORDER BY l.created_at DESC, l.id DESC LIMIT ? OFFSET ?`,
		append(args, limit, offset)...,
	)
	if err != nil {
		return nil, 0, fmt.Errorf("list lists: %w", err)
	}
	defer rows.Close()

	lists := []model.ShoppingListSummary{}
	for rows.Next() {
		l, err := scanShoppingList(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("scan list: %w", err)
		}
		lists = append(lists, summarize(l))
	}
	return lists, total, rows.Err()
}

// Get returns the user's list with its items, or nil when the list does not
// exist or belongs to someone else.
func (s *ShoppingListStore) Get(userID, listID int64) (*model.ShoppingList, error) {
	row := s.db.QueryRow(`SELECT `+shoppingListCols+` FROM shopping_lists l WHERE l.id = ? AND l.user_id = ?`, listID, userID)
	l, err := scanShoppingList(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get list: %w", err)
	}

	l.Items, err = s.ListItems(listID, nil)
	if err != nil {
		return nil, err
	}
	return l, nil
}

func (s *ShoppingListStore) Create(userID int64, in model.ListInput) (*model.ShoppingList, error) {
	status := in.Status
	if status == "" {
		status = model.ListStatusActive
	}
	result, err := s.db.Exec(
		`INSERT INTO shopping_lists (user_id, name, status, notes) VALUES (?, ?, ?, ?)`,
		userID, in.Name, string(status), in.Notes,
	)
	if err != nil {
		return nil, fmt.Errorf("insert list: %w", err)
	}
	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("last insert id: %w", err)
	}
	return s.Get(userID, id)
}

// Update applies the set fields of patch. Returns nil when the list is not
// the user's.
func (s *ShoppingListStore) Update(userID, listID int64, patch model.ListPatch) (*model.ShoppingList, error) {
	var sets []string
	var args []any
	if patch.Name != nil {
		sets = append(sets, "name = ?")
		args = append(args, *patch.Name)
	}
	if patch.Status != nil {
		sets = append(sets, "status = ?")
		args = append(args, string(*patch.Status))
	}
	if patch.Notes != nil {
		sets = append(sets, "notes = ?")
		args = append(args, *patch.Notes)
	}
	sets = append(sets, "updated_at = CURRENT_TIMESTAMP")

	result, err := s.db.Exec(
		`UPDATE shopping_lists SET `+strings.Join(sets, ", ")+` WHERE id = ? AND user_id = ?`,
		append(args, listID, userID)...,
	)
	if err != nil {
		return nil, fmt.Errorf("update list: %w", err)
	}
	if n, err := result.RowsAffected(); err != nil {
		return nil, fmt.Errorf("rows affected: %w", err)
	} else if n == 0 {
		return nil, nil
	}
	return s.Get(userID, listID)
}

// Delete removes the list and its items. Reports whether a list was removed.
func (s *ShoppingListStore) Delete(userID, listID int64) (bool, error) {
	result, err := s.db.Exec(`DELETE FROM shopping_lists WHERE id = ? AND user_id = ?`, listID, userID)
	if err != nil {
		return false, fmt.Errorf("delete list: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("rows affected: %w", err)
	}
	return n > 0, nil
}

// Duplicate copies a list as "<name> (Copy)", active, with every item
// unchecked.
func (s *ShoppingListStore) Duplicate(userID, listID int64) (*model.ShoppingList, error) {
	src, err := s.Get(userID, listID)
	if err != nil || src == nil {
		return nil, err
	}

	tx, err := s.db.Begin()
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	result, err := tx.Exec(
		`INSERT INTO shopping_lists (user_id, name, status, notes) VALUES (?, ?, ?, ?)`,
		userID, src.Name+" (Copy)", string(model.ListStatusActive), src.Notes,
	)
	if err != nil {
		return nil, fmt.Errorf("insert copy: %w", err)
	}
	copyID, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("last insert id: %w", err)
	}

	for _, item := range src.Items {
		_, err := tx.Exec(
			`INSERT INTO shopping_list_items (list_id, product_id, product_name, quantity, unit, estimated_price, notes, position)
			 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
			copyID, nullInt64(item.ProductID), item.ProductName, item.Quantity.String(), item.Unit,
			nullDecimal(item.EstimatedPrice), item.Notes, item.Position,
		)
		if err != nil {
			return nil, fmt.Errorf("copy item: %w", err)
		}
	}
	if _, err := recalculateTotal(tx, copyID); err != nil {
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit copy: %w", err)
	}
	return s.Get(userID, copyID)
}

// DefaultReceiptListName names lists generated from a receipt when the caller
// gives no name.
const DefaultReceiptListName = "Shopping List from Receipt"

// GenerateFromReceipt creates an active list holding one item per line of
// the user's receipt, priced at the receipt's unit price. Returns nil when
// the receipt is not the user's.
func (s *ShoppingListStore) GenerateFromReceipt(userID, receiptID int64, name string) (*model.ShoppingList, error) {
	if strings.TrimSpace(name) == "" {
		name = DefaultReceiptListName
	}

	tx, err := s.db.Begin()
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	var owner int64
	err = tx.QueryRow(`SELECT user_id FROM receipts WHERE id = ?`, receiptID).Scan(&owner)
	if err == sql.ErrNoRows || (err == nil && owner != userID) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("load receipt: %w", err)
	}
	lines, err := receiptItems(tx, receiptID)
	if err != nil {
		return nil, err
	}

	result, err := tx.Exec(
		`INSERT INTO shopping_lists (user_id, name, status) VALUES (?, ?, ?)`,
		userID, name, string(model.ListStatusActive),
	)
	if err != nil {
		return nil, fmt.Errorf("insert list: %w", err)
	}
	listID, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("last insert id: %w", err)
	}

	for pos, line := range lines {
		price := line.UnitPrice
		_, err := tx.Exec(
			`INSERT INTO shopping_list_items (list_id, product_id, product_name, quantity, estimated_price, position)
			 VALUES (?, ?, ?, ?, ?, ?)`,
			listID, nullInt64(line.ProductID), line.ProductName, line.Quantity.String(), nullDecimal(&price), pos,
		)
		if err != nil {
			return nil, fmt.Errorf("copy receipt line: %w", err)
		}
	}
	if _, err := recalculateTotal(tx, listID); err != nil {
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit generated list: %w", err)
	}
	return s.Get(userID, listID)
}

// RecalculateTotal stores and returns the sum of quantity * estimated price
// over the list's priced items.
func (s *ShoppingListStore) RecalculateTotal(listID int64) (decimal.Decimal, error) {
	return recalculateTotal(s.db, listID)
}

func recalculateTotal(q querier, listID int64) (decimal.Decimal, error) {
	rows, err := q.Query(
		`SELECT quantity, estimated_price FROM shopping_list_items WHERE list_id = ? AND estimated_price IS NOT NULL`,
		listID,
	)
	if err != nil {
		return decimal.Zero, fmt.Errorf("load line totals: %w", err)
	}
	total := decimal.Zero
	for rows.Next() {
		var qty, price decimal.Decimal
		if err := rows.Scan(&qty, &price); err != nil {
			rows.Close()
			return decimal.Zero, fmt.Errorf("scan line total: %w", err)
		}
		total = total.Add(qty.Mul(price))
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return decimal.Zero, fmt.Errorf("load line totals: %w", err)
	}

	total = total.Round(2)
	_, err = q.Exec(
		`UPDATE shopping_lists SET estimated_total = ?, updated_at = CURRENT_TIMESTAMP WHERE id = ?`,
		total.StringFixed(2), listID,
	)
	if err != nil {
		return decimal.Zero, fmt.Errorf("store total: %w", err)
	}
	return total, nil
}

// --- Item methods ---

func scanListItem(scanner interface{ Scan(...any) error }) (*model.ShoppingListItem, error) {
	var item model.ShoppingListItem
	var productID sql.NullInt64
	var price decimal.NullDecimal
	var checked int
	var productName, productBrand sql.NullString
	var lowest decimal.NullDecimal

	err := scanner.Scan(
		&item.ID, &item.ShoppingListID, &productID, &item.ProductName, &item.Quantity,
		&item.Unit, &price, &item.Notes, &checked, &item.Position,
		&item.CreatedAt, &item.UpdatedAt, &productName, &productBrand, &lowest,
	)
	if err != nil {
		return nil, err
	}

	item.IsChecked = checked != 0
	if price.Valid {
		item.EstimatedPrice = &price.Decimal
	}
	if productID.Valid {
		item.ProductID = &productID.Int64
		item.ProductDetails = &model.ProductDetails{
			ID:    productID.Int64,
			Name:  productName.String,
			Brand: productBrand.String,
		}
		if lowest.Valid {
			item.ProductDetails.LowestPrice = &lowest.Decimal
		}
	}
	return &item, nil
}

const listItemCols = `i.id, i.list_id, i.product_id, i.product_name, i.quantity, i.unit, i.estimated_price,
	i.notes, i.is_checked, i.position, i.created_at, i.updated_at, p.name, p.brand, ` + lowestActivePrice

const listItemFrom = ` FROM shopping_list_items i LEFT JOIN products p ON p.id = i.product_id`

// ListItems returns the list's items by position. A non-nil checked filters
// on checked state.
func (s *ShoppingListStore) ListItems(listID int64, checked *bool) ([]model.ShoppingListItem, error) {
	query := `SELECT ` + listItemCols + listItemFrom + ` WHERE i.list_id = ?`
	args := []any{listID}
	if checked != nil {
		query += ` AND i.is_checked = ?`
		args = append(args, boolInt(*checked))
	}
	query += ` ORDER BY i.position ASC, i.created_at ASC, i.id ASC`

	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("list items: %w", err)
	}
	defer rows.Close()

	items := []model.ShoppingListItem{}
	for rows.Next() {
		item, err := scanListItem(rows)
		if err != nil {
			return nil, fmt.Errorf("scan item: %w", err)
		}
		items = append(items, *item)
	}
	return items, rows.Err()
}

func (s *ShoppingListStore) GetItem(listID, itemID int64) (*model.ShoppingListItem, error) {
	row := s.db.QueryRow(`SELECT `+listItemCols+listItemFrom+` WHERE i.id = ? AND i.list_id = ?`, itemID, listID)
	item, err := scanListItem(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get item: %w", err)
	}
	return item, nil
}

// AddItem appends an item and refreshes the list total.
func (s *ShoppingListStore) AddItem(listID int64, in model.ItemInput) (*model.ShoppingListItem, error) {
	items, err := s.AddItems(listID, []model.ItemInput{in})
	if err != nil {
		return nil, err
	}
	return &items[0], nil
}

// AddItems inserts every item in one transaction. Items without a position
// go after the current last item.
func (s *ShoppingListStore) AddItems(listID int64, inputs []model.ItemInput) ([]model.ShoppingListItem, error) {
	tx, err := s.db.Begin()
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	ids := make([]int64, 0, len(inputs))
	for _, in := range inputs {
		id, err := insertItem(tx, listID, in)
		if err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	if _, err := recalculateTotal(tx, listID); err != nil {
		return nil, err
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit items: %w", err)
	}

	items := make([]model.ShoppingListItem, 0, len(ids))
	for _, id := range ids {
		item, err := s.GetItem(listID, id)
		if err != nil {
			return nil, err
		}
		if item == nil {
			return nil, fmt.Errorf("reload item %d: not found", id)
		}
		items = append(items, *item)
	}
	return items, nil
}

func insertItem(tx *sql.Tx, listID int64, in model.ItemInput) (int64, error) {
	name := strings.TrimSpace(in.ProductName)
	if in.ProductID != nil {
		var productName string
		err := tx.QueryRow(`SELECT name FROM products WHERE id = ?`, *in.ProductID).Scan(&productName)
		if err == sql.ErrNoRows {
			return 0, ErrProductNotFound
		}
		if err != nil {
			return 0, fmt.Errorf("load product: %w", err)
		}
		if name == "" {
			name = productName
		}
	}

	var position int
	if in.Position != nil {
		position = *in.Position
	} else {
		err := tx.QueryRow(`SELECT COALESCE(MAX(position) + 1, 0) FROM shopping_list_items WHERE list_id = ?`, listID).Scan(&position)
		if err != nil {
			return 0, fmt.Errorf("next position: %w", err)
		}
	}

	qty := in.Quantity
	if qty.IsZero() {
		qty = decimal.NewFromInt(1)
	}

	result, err := tx.Exec(
		`INSERT INTO shopping_list_items (list_id, product_id, product_name, quantity, unit, estimated_price, notes, position)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		listID, nullInt64(in.ProductID), name, qty.String(), in.Unit, nullDecimal(in.EstimatedPrice), in.Notes, position,
	)
	if err != nil {
		return 0, fmt.Errorf("insert item: %w", err)
	}
	id, err := result.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("last insert id: %w", err)
	}
	return id, nil
}

// UpdateItem applies the set fields of patch. The list total is refreshed
// only when quantity or estimated price changed.
func (s *ShoppingListStore) UpdateItem(listID, itemID int64, patch model.ItemPatch) (*model.ShoppingListItem, error) {
	var sets []string
	var args []any
	if patch.ProductID != nil {
		var exists int
		err := s.db.QueryRow(`SELECT COUNT(*) FROM products WHERE id = ?`, *patch.ProductID).Scan(&exists)
		if err != nil {
			return nil, fmt.Errorf("load product: %w", err)
		}
		if exists == 0 {
			return nil, ErrProductNotFound
		}
		sets = append(sets, "product_id = ?")
		args = append(args, *patch.ProductID)
	} else if patch.ClearProduct {
		sets = append(sets, "product_id = NULL")
	}
	if patch.ProductName != nil {
		sets = append(sets, "product_name = ?")
		args = append(args, *patch.ProductName)
	}
	if patch.Quantity != nil {
		sets = append(sets, "quantity = ?")
		args = append(args, patch.Quantity.String())
	}
	if patch.Unit != nil {
		sets = append(sets, "unit = ?")
		args = append(args, *patch.Unit)
	}
	if patch.EstimatedPrice != nil {
		sets = append(sets, "estimated_price = ?")
		args = append(args, patch.EstimatedPrice.String())
	} else if patch.ClearEstimatedPrice {
		sets = append(sets, "estimated_price = NULL")
	}
	if patch.Notes != nil {
		sets = append(sets, "notes = ?")
		args = append(args, *patch.Notes)
	}
	if patch.Position != nil {
		sets = append(sets, "position = ?")
		args = append(args, *patch.Position)
	}
	sets = append(sets, "updated_at = CURRENT_TIMESTAMP")

	tx, err := s.db.Begin()
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	result, err := tx.Exec(
		`UPDATE shopping_list_items SET `+strings.Join(sets, ", ")+` WHERE id = ? AND list_id = ?`,
		append(args, itemID, listID)...,
	)
	if err != nil {
		return nil, fmt.Errorf("update item: %w", err)
	}
	if n, err := result.RowsAffected(); err != nil {
		return nil, fmt.Errorf("rows affected: %w", err)
	} else if n == 0 {
		return nil, nil
	}

	if patch.Quantity != nil || patch.EstimatedPrice != nil || patch.ClearEstimatedPrice {
		if _, err := recalculateTotal(tx, listID); err != nil {
			return nil, err
		}
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit item: %w", err)
	}
	return s.GetItem(listID, itemID)
}

// DeleteItem removes an item and refreshes the list total. Reports whether
// an item was removed.
func (s *ShoppingListStore) DeleteItem(listID, itemID int64) (bool, error) {
	tx, err := s.db.Begin()
	if err != nil {
		return false, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	result, err := tx.Exec(`DELETE FROM shopping_list_items WHERE id = ? AND list_id = ?`, itemID, listID)
	if err != nil {
		return false, fmt.Errorf("delete item: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("rows affected: %w", err)
	}
	if n == 0 {
		return false, nil
	}
	if _, err := recalculateTotal(tx, listID); err != nil {
		return false, err
	}
	if err := tx.Commit(); err != nil {
		return false, fmt.Errorf("commit delete: %w", err)
	}
	return true, nil
}

// ToggleItem flips the item's checked state and returns the item.
func (s *ShoppingListStore) ToggleItem(listID, itemID int64) (*model.ShoppingListItem, error) {
	result, err := s.db.Exec(
		`UPDATE shopping_list_items SET is_checked = 1 - is_checked, updated_at = CURRENT_TIMESTAMP WHERE id = ? AND list_id = ?`,
		itemID, listID,
	)
	if err != nil {
		return nil, fmt.Errorf("toggle item: %w", err)
	}
	if n, err := result.RowsAffected(); err != nil {
		return nil, fmt.Errorf("rows affected: %w", err)
	} else if n == 0 {
		return nil, nil
	}
	return s.GetItem(listID, itemID)
}

// ClearChecked deletes every checked item and returns how many went.
func (s *ShoppingListStore) ClearChecked(listID int64) (int64, error) {
	tx, err := s.db.Begin()
	if err != nil {
		return 0, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	result, err := tx.Exec(`DELETE FROM shopping_list_items WHERE list_id = ? AND is_checked = 1`, listID)
	if err != nil {
		return 0, fmt.Errorf("clear checked: %w", err)
	}
	count, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("rows affected: %w", err)
	}
	if _, err := recalculateTotal(tx, listID); err != nil {
		return 0, err
	}
	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("commit clear: %w", err)
	}
	return count, nil
}

// Reorder sets item positions. Ids not on the list are skipped.
func (s *ShoppingListStore) Reorder(listID int64, orders []model.ItemOrder) error {
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	for _, o := range orders {
		_, err := tx.Exec(
			`UPDATE shopping_list_items SET position = ?, updated_at = CURRENT_TIMESTAMP WHERE id = ? AND list_id = ?`,
			o.Position, o.ItemID, listID,
		)
		if err != nil {
			return fmt.Errorf("reorder item %d: %w", o.ItemID, err)
		}
	}
	return tx.Commit()
}

// AutoEstimate fills the estimated price of every unpriced, product-linked
// item with the product's lowest active price. Returns the number of items
// updated and the new total.
func (s *ShoppingListStore) AutoEstimate(listID int64) (int, decimal.Decimal, error) {
	tx, err := s.db.Begin()
	if err != nil {
		return 0, decimal.Zero, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	type pending struct{ itemID, productID int64 }
	rows, err := tx.Query(
		`SELECT id, product_id FROM shopping_list_items
		 WHERE list_id = ? AND product_id IS NOT NULL AND estimated_price IS NULL
		 ORDER BY position ASC, id ASC`,
		listID,
	)
	if err != nil {
		return 0, decimal.Zero, fmt.Errorf("load unpriced items: %w", err)
	}
	var todo []pending
	for rows.Next() {
		var p pending
		if err := rows.Scan(&p.itemID, &p.productID); err != nil {
			rows.Close()
			return 0, decimal.Zero, fmt.Errorf("scan unpriced item: %w", err)
		}
		todo = append(todo, p)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return 0, decimal.Zero, fmt.Errorf("load unpriced items: %w", err)
	}

	updated := 0
	for _, p := range todo {
		lowest, err := lowestPrice(tx, p.productID)
		if err != nil {
			return 0, decimal.Zero, err
		}
		if lowest == nil {
			continue
		}
		_, err = tx.Exec(
			`UPDATE shopping_list_items SET estimated_price = ?, updated_at = CURRENT_TIMESTAMP WHERE id = ?`,
			lowest.String(), p.itemID,
		)
		if err != nil {
			return 0, decimal.Zero, fmt.Errorf("estimate item %d: %w", p.itemID, err)
		}
		updated++
	}

	total, err := recalculateTotal(tx, listID)
	if err != nil {
		return 0, decimal.Zero, err
	}
	if err := tx.Commit(); err != nil {
		return 0, decimal.Zero, fmt.Errorf("commit estimate: %w", err)
	}
	return updated, total, nil
}

// CompareOffers collects every product-linked item with the current offers
// for its product, ready for compare.Build.
func (s *ShoppingListStore) CompareOffers(listID int64) ([]compare.ItemOffers, error) {
	rows, err := s.db.Query(
		`SELECT id, product_id, product_name, quantity FROM shopping_list_items
		 WHERE list_id = ? AND product_id IS NOT NULL
		 ORDER BY position ASC, created_at ASC, id ASC`,
		listID,
	)
	if err != nil {
		return nil, fmt.Errorf("load linked items: %w", err)
	}
	type linked struct {
		offers    compare.ItemOffers
		productID int64
	}
	var items []linked
	for rows.Next() {
		var l linked
		if err := rows.Scan(&l.offers.ItemID, &l.productID, &l.offers.ProductName, &l.offers.Quantity); err != nil {
			rows.Close()
			return nil, fmt.Errorf("scan linked item: %w", err)
		}
		items = append(items, l)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("load linked items: %w", err)
	}

	out := make([]compare.ItemOffers, 0, len(items))
	for _, l := range items {
		prices, err := activePrices(s.db, l.productID)
		if err != nil {
			return nil, err
		}
		for _, p := range prices {
			l.offers.Offers = append(l.offers.Offers, compare.Offer{
				StoreID:   p.StoreID,
				StoreName: p.StoreName,
				UnitPrice: p.Price,
			})
		}
		out = append(out, l.offers)
	}
	return out, nil
}

func nullInt64(v *int64) sql.NullInt64 {
	if v == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: *v, Valid: true}
}

func nullDecimal(v *decimal.Decimal) sql.NullString {
	if v == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: v.String(), Valid: true}
}
