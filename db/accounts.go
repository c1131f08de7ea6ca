package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"careerquiz/models"
)

// AccountStore is the credential store: lookup by username and insert-if-absent.
type AccountStore struct {
	db *DB
}

// GetByUsername returns ErrNotFound when no account has that exact username.
func (s *AccountStore) GetByUsername(ctx context.Context, username string) (models.Account, error) {
	var acc models.Account
	err := s.db.QueryRowContext(ctx,
		s.db.rebind("SELECT id, username, password_hash, role, created_at FROM users WHERE username = ?"),
		username,
	).Scan(&acc.ID, &acc.Username, &acc.PasswordHash, &acc.Role, &acc.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return models.Account{}, ErrNotFound
		}
		return models.Account{}, fmt.Errorf("query account: %w", err)
	}
	return acc, nil
}

// Create inserts acc and fills in its ID and CreatedAt.
// Returns ErrAccountExists when the username is already taken.
func (s *AccountStore) Create(ctx context.Context, acc *models.Account) error {
	createdAt := time.Now().UTC()
	err := s.db.QueryRowContext(ctx,
		s.db.rebind("INSERT INTO users (username, password_hash, role, created_at) VALUES (?, ?, ?, ?) RETURNING id"),
		acc.Username, acc.PasswordHash, string(acc.Role), createdAt,
	).Scan(&acc.ID)
	if err != nil {
		if isUniqueViolation(err) {
			return errors.Join(ErrAccountExists, err)
		}
		return fmt.Errorf("insert account: %w", err)
	}
	acc.CreatedAt = createdAt
	return nil
}

func (s *AccountStore) Count(ctx context.Context) (int, error) {
	var n int
	if err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM users").Scan(&n); err != nil {
		return 0, fmt.Errorf("count accounts: %w", err)
	}
	return n, nil
}
