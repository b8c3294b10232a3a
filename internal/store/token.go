package store

import (
	"crypto/rand"
	"database/sql"
	"encoding/hex"
	"fmt"

	"github.com/dukerupert/basket/internal/model"
)

// TokenStore issues one opaque API key per user.
type TokenStore struct {
	db *sql.DB
}

func NewTokenStore(db *sql.DB) *TokenStore {
	return &TokenStore{db: db}
}

// generateKey returns 40 hex characters.
func generateKey() (string, error) {
	b := make([]byte, 20)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("generate key: %w", err)
	}
	return hex.EncodeToString(b), nil
}

// GetOrCreate returns the user's existing key or issues a new one.
func (s *TokenStore) GetOrCreate(userID int64) (*model.AuthToken, error) {
	tok := model.AuthToken{UserID: userID}
	err := s.db.QueryRow(`SELECT key, created_at FROM auth_tokens WHERE user_id = ?`, userID).Scan(&tok.Key, &tok.CreatedAt)
	if err == nil {
		return &tok, nil
	}
	if err != sql.ErrNoRows {
		return nil, fmt.Errorf("get token: %w", err)
	}

	key, err := generateKey()
	if err != nil {
		return nil, err
	}
	if _, err := s.db.Exec(`INSERT INTO auth_tokens (key, user_id) VALUES (?, ?)`, key, userID); err != nil {
		return nil, fmt.Errorf("insert token: %w", err)
	}
	err = s.db.QueryRow(`SELECT key, created_at FROM auth_tokens WHERE key = ?`, key).Scan(&tok.Key, &tok.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("reload token: %w", err)
	}
	return &tok, nil
}

// UserForKey returns the user owning key, or nil when the key is unknown.
func (s *TokenStore) UserForKey(key string) (*model.User, error) {
	row := s.db.QueryRow(
		`SELECT u.id, u.username, u.email, u.first_name, u.last_name, u.is_staff, u.created_at
		 FROM auth_tokens t JOIN users u ON u.id = t.user_id WHERE t.key = ?`,
		key,
	)
	u, err := scanUser(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("user for key: %w", err)
	}
	return u, nil
}

func (s *TokenStore) Delete(key string) error {
	if _, err := s.db.Exec(`DELETE FROM auth_tokens WHERE key = ?`, key); err != nil {
		return fmt.Errorf("delete token: %w", err)
	}
	return nil
}
