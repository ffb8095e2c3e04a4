package user

import (
	"context"
	"errors"

	"github.com/google/uuid"

	"github.com/dmitrymomot/daybook/core/password"
)

// Service implements account lifecycle over a Store.
type Service struct {
	store Store
}

// NewService creates a user service.
func NewService(store Store) *Service {
	return &Service{store: store}
}

// RegisterParams are the fields needed to create an account.
// Shape validation (username format, email format, password length)
// happens at the transport layer; the service only enforces uniqueness
// and hashing.
type RegisterParams struct {
	Username string
	Email    string
	Password string
}

// Register creates an account with a freshly hashed password.
func (s *Service) Register(ctx context.Context, params RegisterParams) (*User, error) {
	hash, err := password.Hash(params.Password)
	if err != nil {
		return nil, err
	}

	u := &User{
		ID:           uuid.New(),
		Username:     params.Username,
		Email:        params.Email,
		PasswordHash: hash,
	}
	if err := s.store.Create(ctx, u); err != nil {
		return nil, err
	}
	return u, nil
}

// Authenticate checks a username/password pair. A missing username
// returns ErrUsernameNotFound, a wrong password ErrInvalidPassword;
// the login endpoint is the only caller allowed to expose the
// distinction.
func (s *Service) Authenticate(ctx context.Context, username, pass string) (*User, error) {
	u, err := s.store.FindByUsername(ctx, username)
	if errors.Is(err, ErrUserNotFound) {
		return nil, ErrUsernameNotFound
	}
	if err != nil {
		return nil, err
	}
	if !password.Verify(u.PasswordHash, pass) {
		return nil, ErrInvalidPassword
	}
	return u, nil
}

// ChangePassword replaces the user's password after re-checking the
// current one.
func (s *Service) ChangePassword(ctx context.Context, id uuid.UUID, current, next string) error {
	u, err := s.store.FindByID(ctx, id)
	if err != nil {
		return err
	}
	if !password.Verify(u.PasswordHash, current) {
		return ErrInvalidPassword
	}

	hash, err := password.Hash(next)
	if err != nil {
		return err
	}
	return s.store.UpdatePasswordHash(ctx, id, hash)
}

// Find returns the user by id.
func (s *Service) Find(ctx context.Context, id uuid.UUID) (*User, error) {
	return s.store.FindByID(ctx, id)
}
