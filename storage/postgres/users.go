package postgres

import (
	"context"
	"errors"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/dmitrymomot/daybook/core/user"
	"github.com/dmitrymomot/daybook/integration/database/pg"
)

// UserStore implements user.Store on PostgreSQL.
type UserStore struct {
	db *DB
}

// NewUserStore creates the user store.
func NewUserStore(db *DB) *UserStore {
	return &UserStore{db: db}
}

var _ user.Store = (*UserStore)(nil)

func (s *UserStore) Create(ctx context.Context, u *user.User) error {
	const q = `
		INSERT INTO users (id, username, email, email_verified, level, password_hash)
		VALUES ($1, $2, NULLIF($3, ''), $4, $5, $6)
		RETURNING created_at`
	err := s.db.conn(ctx).QueryRow(ctx, q,
		u.ID, u.Username, u.Email, u.EmailVerified, u.Level, u.PasswordHash,
	).Scan(&u.CreatedAt)
	if pg.IsDuplicateKeyError(err) {
		if strings.Contains(err.Error(), "users_email") {
			return user.ErrEmailTaken
		}
		return user.ErrUsernameTaken
	}
	return err
}

func (s *UserStore) FindByID(ctx context.Context, id uuid.UUID) (*user.User, error) {
	return s.find(ctx, `WHERE id = $1`, id)
}

func (s *UserStore) FindByUsername(ctx context.Context, username string) (*user.User, error) {
	return s.find(ctx, `WHERE username = $1`, username)
}

func (s *UserStore) find(ctx context.Context, where string, arg any) (*user.User, error) {
	q := `
		SELECT id, username, COALESCE(email, ''), email_verified, level, password_hash, created_at
		FROM users ` + where
	var u user.User
	err := s.db.conn(ctx).QueryRow(ctx, q, arg).Scan(
		&u.ID, &u.Username, &u.Email, &u.EmailVerified, &u.Level, &u.PasswordHash, &u.CreatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, user.ErrUserNotFound
	}
	if err != nil {
		return nil, err
	}
	return &u, nil
}

func (s *UserStore) UpdatePasswordHash(ctx context.Context, id uuid.UUID, hash string) error {
	tag, err := s.db.conn(ctx).Exec(ctx,
		`UPDATE users SET password_hash = $2 WHERE id = $1`, id, hash)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return user.ErrUserNotFound
	}
	return nil
}

func (s *UserStore) SetEmailVerified(ctx context.Context, id uuid.UUID) error {
	tag, err := s.db.conn(ctx).Exec(ctx,
		`UPDATE users SET email_verified = TRUE WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return user.ErrUserNotFound
	}
	return nil
}

// Delete removes the user. Sessions, OTP state, and memberships go
// away via foreign-key cascades; permissions have no foreign key on
// their polymorphic columns, so rows naming the user as subject or as
// resource are swept in the same transaction.
func (s *UserStore) Delete(ctx context.Context, id uuid.UUID) error {
	return s.db.RunInTx(ctx, func(ctx context.Context) error {
		if _, err := s.db.conn(ctx).Exec(ctx,
			`DELETE FROM permissions
			 WHERE (subject_table = 'users' AND subject_id = $1)
			    OR (resource_table = 'users' AND resource_id = $1)`, id); err != nil {
			return err
		}
		tag, err := s.db.conn(ctx).Exec(ctx, `DELETE FROM users WHERE id = $1`, id)
		if err != nil {
			return err
		}
		if tag.RowsAffected() == 0 {
			return user.ErrUserNotFound
		}
		return nil
	})
}
