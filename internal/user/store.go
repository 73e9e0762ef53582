package user

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"golang.org/x/crypto/bcrypt"
)

// ErrDuplicate is returned by Create when the name or email is already
// registered, including when a concurrent registration wins the race between
// the availability check and the insert.
var ErrDuplicate = errors.New("name or email already registered")

// Store provides database operations for users and login sessions.
type Store struct {
	pool       *pgxpool.Pool
	sessionTTL time.Duration
}

// NewStore creates a user store backed by the given connection pool. Sessions
// created through it expire after sessionTTL.
func NewStore(pool *pgxpool.Pool, sessionTTL time.Duration) *Store {
	return &Store{pool: pool, sessionTTL: sessionTTL}
}

const userColumns = `id, name, email, password_hash, is_admin, created_at`

func scanUser(scan func(dest ...any) error) (*User, error) {
	u := &User{}
	err := scan(&u.ID, &u.Name, &u.Email, &u.PasswordHash, &u.IsAdmin, &u.CreatedAt)
	if err != nil {
		return nil, err
	}
	return u, nil
}

// Create inserts a new user with a bcrypt-hashed password.
func (s *Store) Create(ctx context.Context, in CreateUserInput) (*User, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(in.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("hashing password: %w", err)
	}

	u, err := scanUser(func(dest ...any) error {
		return s.pool.QueryRow(ctx,
			`INSERT INTO users (name, email, password_hash, is_admin)
			 VALUES ($1, $2, $3, $4)
			 RETURNING `+userColumns,
			in.Name, in.Email, string(hash), in.IsAdmin,
		).Scan(dest...)
	})
	if err != nil {
		if isUniqueViolation(err) {
			return nil, ErrDuplicate
		}
		return nil, fmt.Errorf("creating user: %w", err)
	}
	return u, nil
}

// isUniqueViolation reports whether err is a PostgreSQL unique-constraint
// violation (SQLSTATE 23505).
func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}

// GetByName retrieves a user by their unique display name.
func (s *Store) GetByName(ctx context.Context, name string) (*User, error) {
	u, err := scanUser(func(dest ...any) error {
		return s.pool.QueryRow(ctx,
			`SELECT `+userColumns+` FROM users WHERE name = $1`, name,
		).Scan(dest...)
	})
	if err != nil {
		return nil, fmt.Errorf("getting user by name: %w", err)
	}
	return u, nil
}

// NameOrEmailTaken reports whether any existing user already holds the given
// name or email.
func (s *Store) NameOrEmailTaken(ctx context.Context, name, email string) (bool, error) {
	var taken bool
	err := s.pool.QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM users WHERE name = $1 OR email = $2)`,
		name, email,
	).Scan(&taken)
	if err != nil {
		return false, fmt.Errorf("checking name/email: %w", err)
	}
	return taken, nil
}

// Count returns the total number of registered users.
func (s *Store) Count(ctx context.Context) (int64, error) {
	var n int64
	if err := s.pool.QueryRow(ctx, `SELECT COUNT(*) FROM users`).Scan(&n); err != nil {
		return 0, fmt.Errorf("counting users: %w", err)
	}
	return n, nil
}

// ListEmails returns the email addresses of all users that have one. This is
// the notification recipient snapshot.
func (s *Store) ListEmails(ctx context.Context) ([]string, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT email FROM users WHERE email <> '' ORDER BY created_at`)
	if err != nil {
		return nil, fmt.Errorf("listing emails: %w", err)
	}
	defer rows.Close()

	var emails []string
	for rows.Next() {
		var e string
		if err := rows.Scan(&e); err != nil {
			return nil, fmt.Errorf("scanning email: %w", err)
		}
		emails = append(emails, e)
	}
	return emails, rows.Err()
}

// CheckPassword verifies a plaintext password against the user's stored hash.
func CheckPassword(u *User, password string) bool {
	return bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(password)) == nil
}

// CreateSession creates a new login session for the given user and returns the
// opaque plaintext token to hand to the client.
func (s *Store) CreateSession(ctx context.Context, userID string) (string, *LoginSession, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", nil, fmt.Errorf("generating session token: %w", err)
	}
	plaintext := hex.EncodeToString(b)
	tokenHash := hashToken(plaintext)

	now := time.Now()
	expiresAt := now.Add(s.sessionTTL)

	sess := &LoginSession{}
	err := s.pool.QueryRow(ctx,
		`INSERT INTO auth_sessions (token_hash, user_id, created_at, expires_at)
		 VALUES ($1, $2, $3, $4)
		 RETURNING token_hash, user_id, created_at, expires_at`,
		tokenHash, userID, now, expiresAt,
	).Scan(&sess.TokenHash, &sess.UserID, &sess.CreatedAt, &sess.ExpiresAt)
	if err != nil {
		return "", nil, fmt.Errorf("creating session: %w", err)
	}

	return plaintext, sess, nil
}

// GetSessionUser looks up a login session by its plaintext token and returns
// the associated user. Expired or unknown tokens return an error.
func (s *Store) GetSessionUser(ctx context.Context, plaintext string) (*User, error) {
	tokenHash := hashToken(plaintext)

	u, err := scanUser(func(dest ...any) error {
		return s.pool.QueryRow(ctx,
			`SELECT u.id, u.name, u.email, u.password_hash, u.is_admin, u.created_at
			 FROM auth_sessions s JOIN users u ON s.user_id = u.id
			 WHERE s.token_hash = $1 AND s.expires_at > now()`,
			tokenHash,
		).Scan(dest...)
	})
	if err != nil {
		return nil, fmt.Errorf("getting session user: %w", err)
	}
	return u, nil
}

// DeleteSession removes a login session by its plaintext token.
func (s *Store) DeleteSession(ctx context.Context, plaintext string) error {
	tokenHash := hashToken(plaintext)
	_, err := s.pool.Exec(ctx, `DELETE FROM auth_sessions WHERE token_hash = $1`, tokenHash)
	if err != nil {
		return fmt.Errorf("deleting session: %w", err)
	}
	return nil
}

// CleanExpiredSessions deletes all sessions that have expired.
func (s *Store) CleanExpiredSessions(ctx context.Context) (int64, error) {
	tag, err := s.pool.Exec(ctx, `DELETE FROM auth_sessions WHERE expires_at < now()`)
	if err != nil {
		return 0, fmt.Errorf("cleaning expired sessions: %w", err)
	}
	return tag.RowsAffected(), nil
}

func hashToken(plaintext string) string {
	h := sha256.Sum256([]byte(plaintext))
	return hex.EncodeToString(h[:])
}
