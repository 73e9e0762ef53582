package mailer

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/courtbook/courtbook/internal/crypto"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// ErrNotConfigured is returned by Get when no mail configuration has been
// saved yet. The dispatcher treats it as "notifications disabled".
var ErrNotConfigured = errors.New("mail configuration not set")

// Config is the outgoing-mail server configuration. A single row holds it;
// saving always replaces every field.
type Config struct {
	Host      string    `json:"host"`
	Port      int       `json:"port"`
	Username  string    `json:"username"`
	Password  string    `json:"-"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Store provides database operations for the singleton mail configuration.
// The password is encrypted at rest when a cipher is configured.
type Store struct {
	pool   *pgxpool.Pool
	cipher *crypto.Cipher
}

// NewStore creates a mail config store. cipher may be nil, in which case the
// password is stored as-is.
func NewStore(pool *pgxpool.Pool, cipher *crypto.Cipher) *Store {
	return &Store{pool: pool, cipher: cipher}
}

// Get loads the configuration. Returns ErrNotConfigured when no row exists.
func (s *Store) Get(ctx context.Context) (*Config, error) {
	cfg := &Config{}
	var stored string
	err := s.pool.QueryRow(ctx,
		`SELECT host, port, username, password_encrypted, updated_at
		 FROM mail_config WHERE id = 1`,
	).Scan(&cfg.Host, &cfg.Port, &cfg.Username, &stored, &cfg.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotConfigured
		}
		return nil, fmt.Errorf("loading mail config: %w", err)
	}

	cfg.Password, err = s.cipher.Decrypt(stored)
	if err != nil {
		return nil, fmt.Errorf("decrypting mail password: %w", err)
	}
	return cfg, nil
}

// Put inserts or replaces the singleton row, overwriting every field.
func (s *Store) Put(ctx context.Context, cfg Config) error {
	stored, err := s.cipher.Encrypt(cfg.Password)
	if err != nil {
		return fmt.Errorf("encrypting mail password: %w", err)
	}

	_, err = s.pool.Exec(ctx,
		`INSERT INTO mail_config (id, host, port, username, password_encrypted, updated_at)
		 VALUES (1, $1, $2, $3, $4, now())
		 ON CONFLICT (id) DO UPDATE SET
			host = EXCLUDED.host,
			port = EXCLUDED.port,
			username = EXCLUDED.username,
			password_encrypted = EXCLUDED.password_encrypted,
			updated_at = now()`,
		cfg.Host, cfg.Port, cfg.Username, stored,
	)
	if err != nil {
		return fmt.Errorf("saving mail config: %w", err)
	}
	return nil
}
