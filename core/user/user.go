package user

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
)

// Store-level errors. Implementations translate constraint violations
// into these sentinels so callers never inspect driver errors.
var (
	ErrUserNotFound  = errors.New("user: not found")
	ErrUsernameTaken = errors.New("user: username already taken")
	ErrEmailTaken    = errors.New("user: email already taken")
)

// Service-level authentication errors. UsernameNotFound is only
// surfaced by the login endpoint; everywhere else failures collapse
// into InvalidPassword to avoid leaking which accounts exist.
var (
	ErrUsernameNotFound = errors.New("user: username not found")
	ErrInvalidPassword  = errors.New("user: invalid password")
)

// User is an account identity. Level is a legacy rank kept for
// compatibility; the permission engine ignores it.
type User struct {
	ID            uuid.UUID
	Username      string
	Email         string
	EmailVerified bool
	Level         int
	PasswordHash  string
	CreatedAt     time.Time
}

// Store persists users. Usernames are unique and case-sensitive;
// emails are unique when set.
type Store interface {
	Create(ctx context.Context, u *User) error
	FindByID(ctx context.Context, id uuid.UUID) (*User, error)
	FindByUsername(ctx context.Context, username string) (*User, error)
	UpdatePasswordHash(ctx context.Context, id uuid.UUID, hash string) error
	SetEmailVerified(ctx context.Context, id uuid.UUID) error
	Delete(ctx context.Context, id uuid.UUID) error
}
