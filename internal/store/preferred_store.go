package store

import (
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/dukerupert/basket/internal/model"
)

// ErrAlreadyPreferred is returned when a store is already on the user's
// preferred list.
var ErrAlreadyPreferred = errors.New("store already preferred")

const preferredStoreCols = `ps.id, st.id, st.name, st.location, ps.added_at`

func scanPreferredStore(scanner interface{ Scan(...any) error }) (*model.PreferredStore, error) {
	var ps model.PreferredStore
	if err := scanner.Scan(&ps.ID, &ps.StoreID, &ps.StoreName, &ps.StoreLocation, &ps.AddedAt); err != nil {
		return nil, err
	}
	return &ps, nil
}

// PreferredStores lists the user's preferred stores, oldest first.
func (s *CatalogStore) PreferredStores(userID int64) ([]model.PreferredStore, error) {
	rows, err := s.db.Query(
		`SELECT `+preferredStoreCols+` FROM user_preferred_stores ps JOIN stores st ON st.id = ps.store_id
		 WHERE ps.user_id = ? ORDER BY ps.added_at ASC, ps.id ASC`,
		userID,
	)
	if err != nil {
		return nil, fmt.Errorf("list preferred stores: %w", err)
	}
	defer rows.Close()

	out := []model.PreferredStore{}
	for rows.Next() {
		ps, err := scanPreferredStore(rows)
		if err != nil {
			return nil, fmt.Errorf("scan preferred store: %w", err)
		}
		out = append(out, *ps)
	}
	return out, rows.Err()
}

// AddPreferredStore marks storeID as preferred for userID. The store must
// exist.
func (s *CatalogStore) AddPreferredStore(userID, storeID int64) (*model.PreferredStore, error) {
	result, err := s.db.Exec(`INSERT INTO user_preferred_stores (user_id, store_id) VALUES (?, ?)`, userID, storeID)
	if err != nil {
		if strings.Contains(err.Error(), "UNIQUE") {
			return nil, ErrAlreadyPreferred
		}
		return nil, fmt.Errorf("insert preferred store: %w", err)
	}
	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("last insert id: %w", err)
	}

	row := s.db.QueryRow(
		`SELECT `+preferredStoreCols+` FROM user_preferred_stores ps JOIN stores st ON st.id = ps.store_id WHERE ps.id = ?`,
		id,
	)
	ps, err := scanPreferredStore(row)
	if err != nil {
		return nil, fmt.Errorf("get preferred store: %w", err)
	}
	return ps, nil
}

// RemovePreferredStore reports whether the store was on the user's list.
func (s *CatalogStore) RemovePreferredStore(userID, storeID int64) (bool, error) {
	result, err := s.db.Exec(`DELETE FROM user_preferred_stores WHERE user_id = ? AND store_id = ?`, userID, storeID)
	if err != nil {
		return false, fmt.Errorf("delete preferred store: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("rows affected: %w", err)
	}
	return n > 0, nil
}

func (s *CatalogStore) IsPreferredStore(userID, storeID int64) (bool, error) {
	var id int64
	err := s.db.QueryRow(`SELECT id FROM user_preferred_stores WHERE user_id = ? AND store_id = ?`, userID, storeID).Scan(&id)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("check preferred store: %w", err)
	}
	return true, nil
}
