package store

import (
	"database/sql"
	"errors"
	"fmt"

	"golang.org/x/crypto/bcrypt"

	"github.com/dukerupert/basket/internal/model"
)

type UserStore struct {
	db *sql.DB
}

func NewUserStore(db *sql.DB) *UserStore {
	return &UserStore{db: db}
}

func scanUser(scanner interface{ Scan(...any) error }) (*model.User, error) {
	var u model.User
	var staff int
	err := scanner.Scan(&u.ID, &u.Username, &u.Email, &u.FirstName, &u.LastName, &staff, &u.CreatedAt)
	if err != nil {
		return nil, err
	}
	u.IsStaff = staff != 0
	return &u, nil
}

const userCols = `id, username, email, first_name, last_name, is_staff, created_at`

// NewUser is the data needed to create an account.
type NewUser struct {
	Username  string
	Email     string
	Password  string
	FirstName string
	LastName  string
	IsStaff   bool
}

func (s *UserStore) Create(nu NewUser) (*model.User, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(nu.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	result, err := s.db.Exec(
		`INSERT INTO users (username, email, password_hash, first_name, last_name, is_staff) VALUES (?, ?, ?, ?, ?, ?)`,
		nu.Username, nu.Email, string(hash), nu.FirstName, nu.LastName, boolInt(nu.IsStaff),
	)
	if err != nil {
		return nil, fmt.Errorf("insert user: %w", err)
	}
	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("last insert id: %w", err)
	}
	return s.GetByID(id)
}

func (s *UserStore) GetByID(id int64) (*model.User, error) {
	row := s.db.QueryRow(`SELECT `+userCols+` FROM users WHERE id = ?`, id)
	u, err := scanUser(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get user: %w", err)
	}
	return u, nil
}

func (s *UserStore) GetByUsername(username string) (*model.User, error) {
	row := s.db.QueryRow(`SELECT `+userCols+` FROM users WHERE username = ?`, username)
	u, err := scanUser(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get user by username: %w", err)
	}
	return u, nil
}

// Authenticate returns the user when the password matches, or nil.
func (s *UserStore) Authenticate(username, password string) (*model.User, error) {
	var id int64
	var hash string
	err := s.db.QueryRow(`SELECT id, password_hash FROM users WHERE username = ?`, username).Scan(&id, &hash)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("load credentials: %w", err)
	}

	if err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)); err != nil {
		if errors.Is(err, bcrypt.ErrMismatchedHashAndPassword) {
			return nil, nil
		}
		return nil, fmt.Errorf("compare password: %w", err)
	}
	return s.GetByID(id)
}

func (s *UserStore) SetStaff(id int64, staff bool) error {
	_, err := s.db.Exec(`UPDATE users SET is_staff = ? WHERE id = ?`, boolInt(staff), id)
	if err != nil {
		return fmt.Errorf("set staff: %w", err)
	}
	return nil
}

func boolInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
