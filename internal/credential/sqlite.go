package credential

import (
	"context"
	"database/sql"
	"embed"
	"fmt"
	"io/fs"

	"github.com/pressly/goose/v3"
	_ "modernc.org/sqlite"
)

//go:embed migrations/*.sql
var migrations embed.FS

const tokenName = "api_token"

// SQLite keeps the token in a local SQLite file, encrypted with a key derived
// from a passphrase.
type SQLite struct {
	db         *sql.DB
	passphrase string
}

// OpenSQLite opens (creating if needed) the credential database at dbPath.
func OpenSQLite(ctx context.Context, dbPath, passphrase string) (*SQLite, error) {
	if passphrase == "" {
		return nil, fmt.Errorf("open credential store: passphrase is required")
	}

	db, err := sql.Open("sqlite", dbPath+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("open credential db: %w", err)
	}
	db.SetMaxOpenConns(1)

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping credential db: %w", err)
	}

	if err := migrate(ctx, db); err != nil {
		db.Close()
		return nil, fmt.Errorf("run credential migrations: %w", err)
	}

	return &SQLite{db: db, passphrase: passphrase}, nil
}

func migrate(ctx context.Context, db *sql.DB) error {
	fsys, err := fs.Sub(migrations, "migrations")
	if err != nil {
		return fmt.Errorf("migrations fs: %w", err)
	}
	provider, err := goose.NewProvider(goose.DialectSQLite3, db, fsys)
	if err != nil {
		return fmt.Errorf("goose provider: %w", err)
	}
	if _, err := provider.Up(ctx); err != nil {
		return fmt.Errorf("goose up: %w", err)
	}
	return nil
}

func (s *SQLite) Token(ctx context.Context) (string, error) {
	var sl sealed
	err := s.db.QueryRowContext(ctx,
		`SELECT salt, nonce, ciphertext FROM credentials WHERE name = ?`, tokenName,
	).Scan(&sl.Salt, &sl.Nonce, &sl.Ciphertext)
	if err == sql.ErrNoRows {
		return "", ErrNoToken
	}
	if err != nil {
		return "", fmt.Errorf("get token: %w", err)
	}

	plaintext, err := open(sl, s.passphrase)
	if err != nil {
		return "", fmt.Errorf("open token: %w", err)
	}
	return string(plaintext), nil
}

func (s *SQLite) Save(ctx context.Context, token string) error {
	if token == "" {
		return s.Delete(ctx)
	}
	sl, err := seal([]byte(token), s.passphrase)
	if err != nil {
		return fmt.Errorf("seal token: %w", err)
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO credentials (name, salt, nonce, ciphertext) VALUES (?, ?, ?, ?)
		 ON CONFLICT(name) DO UPDATE SET salt = excluded.salt, nonce = excluded.nonce,
		 ciphertext = excluded.ciphertext, updated_at = CURRENT_TIMESTAMP`,
		tokenName, sl.Salt, sl.Nonce, sl.Ciphertext,
	)
	if err != nil {
		return fmt.Errorf("save token: %w", err)
	}
	return nil
}

func (s *SQLite) Delete(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM credentials WHERE name = ?`, tokenName); err != nil {
		return fmt.Errorf("delete token: %w", err)
	}
	return nil
}

func (s *SQLite) Close() error {
	return s.db.Close()
}
