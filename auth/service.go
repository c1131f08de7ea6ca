package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"careerquiz/db"
	"careerquiz/models"

	"golang.org/x/crypto/bcrypt"
)

// ErrInvalidCredentials covers an unknown user, a wrong password and a role
// mismatch alike so callers cannot tell which one happened.
var ErrInvalidCredentials = errors.New("invalid credentials")

// AccountRepository is the subset of the credential store the service needs.
type AccountRepository interface {
	GetByUsername(ctx context.Context, username string) (models.Account, error)
	Create(ctx context.Context, acc *models.Account) error
}

type Service struct {
	accounts  AccountRepository
	cost      int
	dummyHash string
	log       *slog.Logger
}

func NewService(accounts AccountRepository, cost int, log *slog.Logger) (*Service, error) {
	// Compared against when the account is missing so both paths cost one bcrypt check.
	dummy, err := HashPassword("dummy-password-for-timing", cost)
	if err != nil {
		return nil, fmt.Errorf("hash dummy password: %w", err)
	}
	return &Service{accounts: accounts, cost: cost, dummyHash: dummy, log: log}, nil
}

// Authenticate validates a login attempt. A username never seen before that
// claims the student role is registered on the spot.
func (s *Service) Authenticate(ctx context.Context, username, password, claimedRole string) (models.SessionContext, error) {
	if username == "" {
		return models.SessionContext{}, ErrInvalidCredentials
	}

	acc, err := s.accounts.GetByUsername(ctx, username)
	switch {
	case errors.Is(err, db.ErrNotFound):
		if claimedRole != string(models.RoleStudent) {
			CheckPasswordHash(password, s.dummyHash)
			return models.SessionContext{}, ErrInvalidCredentials
		}
		sc, err := s.register(ctx, username, password)
		if !errors.Is(err, db.ErrAccountExists) {
			return sc, err
		}
		// A concurrent request registered the name first; treat this one as a login.
		s.log.InfoContext(ctx, "auto-registration lost race, retrying as login", "username", username)
		if acc, err = s.accounts.GetByUsername(ctx, username); err != nil {
			return models.SessionContext{}, fmt.Errorf("lookup account: %w", err)
		}
	case err != nil:
		return models.SessionContext{}, fmt.Errorf("lookup account: %w", err)
	}

	passwordOK := CheckPasswordHash(password, acc.PasswordHash)
	if !passwordOK || string(acc.Role) != claimedRole {
		return models.SessionContext{}, ErrInvalidCredentials
	}
	return models.SessionContext{Username: acc.Username, Role: acc.Role}, nil
}

func (s *Service) register(ctx context.Context, username, password string) (models.SessionContext, error) {
	hash, err := HashPassword(password, s.cost)
	if errors.Is(err, bcrypt.ErrPasswordTooLong) {
		return models.SessionContext{}, ErrInvalidCredentials
	}
	if err != nil {
		return models.SessionContext{}, fmt.Errorf("hash password: %w", err)
	}
	acc := &models.Account{Username: username, PasswordHash: hash, Role: models.RoleStudent}
	if err := s.accounts.Create(ctx, acc); err != nil {
		return models.SessionContext{}, err
	}
	s.log.InfoContext(ctx, "student registered", "username", username)
	return models.SessionContext{Username: acc.Username, Role: acc.Role}, nil
}

// SeedAdmin inserts the admin account unless the username is already taken.
func (s *Service) SeedAdmin(ctx context.Context, username, password string) (bool, error) {
	hash, err := HashPassword(password, s.cost)
	if err != nil {
		return false, fmt.Errorf("hash password: %w", err)
	}
	err = s.accounts.Create(ctx, &models.Account{Username: username, PasswordHash: hash, Role: models.RoleAdmin})
	if errors.Is(err, db.ErrAccountExists) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}
