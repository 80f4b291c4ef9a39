// Package userstore holds the read-only user account table the support
// agent's db_query_tool answers from.
package userstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	_ "modernc.org/sqlite"

	"agent-swarm/internal/domain"
)

// Queryable fields of a user record. The tool schema mirrors this list.
var Fields = []string{"email", "user_name", "payment_status", "order_status"}

// Store is a SQLite-backed user table. Writes happen only at startup via
// Seed; afterwards the table is read-only.
type Store struct {
	db *sql.DB
}

// Open opens (or creates) the user database at dbPath. Use ":memory:" for an
// ephemeral store.
func Open(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open user db: %w", err)
	}

	// SQLite write safety: single writer.
	db.SetMaxOpenConns(1)

	const schema = `
		CREATE TABLE IF NOT EXISTS user_data (
			user_id        TEXT PRIMARY KEY,
			email          TEXT NOT NULL,
			user_name      TEXT NOT NULL,
			payment_status TEXT NOT NULL,
			order_status   TEXT NOT NULL
		)
	`
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("create user_data: %w", err)
	}

	return &Store{db: db}, nil
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// Seed upserts the given records. Called once at startup with the configured
// user list.
func (s *Store) Seed(ctx context.Context, users []domain.UserRecord) error {
	const upsert = `
		INSERT INTO user_data (user_id, email, user_name, payment_status, order_status)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(user_id) DO UPDATE SET
			email          = excluded.email,
			user_name      = excluded.user_name,
			payment_status = excluded.payment_status,
			order_status   = excluded.order_status
	`
	for _, u := range users {
		if _, err := s.db.ExecContext(ctx, upsert,
			u.UserID, u.Email, u.UserName, u.PaymentStatus, u.OrderStatus,
		); err != nil {
			return fmt.Errorf("seed user %q: %w", u.UserID, err)
		}
	}
	return nil
}

// Get returns the full record for userID.
func (s *Store) Get(ctx context.Context, userID string) (*domain.UserRecord, error) {
	const query = `
		SELECT user_id, email, user_name, payment_status, order_status
		FROM user_data WHERE user_id = ?
	`
	var u domain.UserRecord
	err := s.db.QueryRowContext(ctx, query, userID).Scan(
		&u.UserID, &u.Email, &u.UserName, &u.PaymentStatus, &u.OrderStatus,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", domain.ErrUserNotFound, userID)
	}
	if err != nil {
		return nil, fmt.Errorf("query user %q: %w", userID, err)
	}
	return &u, nil
}

// Field returns a single named field of the user's record. field must be one
// of Fields; the column name is resolved through a fixed map, never
// interpolated from input.
func (s *Store) Field(ctx context.Context, userID, field string) (string, error) {
	u, err := s.Get(ctx, userID)
	if err != nil {
		return "", err
	}
	switch field {
	case "email":
		return u.Email, nil
	case "user_name":
		return u.UserName, nil
	case "payment_status":
		return u.PaymentStatus, nil
	case "order_status":
		return u.OrderStatus, nil
	default:
		return "", fmt.Errorf("%w: unknown field %q", domain.ErrInvalidInput, field)
	}
}
