package postgres

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/dmitrymomot/daybook/core/session"
	"github.com/dmitrymomot/daybook/integration/database/pg"
)

// SessionStore implements session.Store on PostgreSQL.
type SessionStore struct {
	db *DB
}

// NewSessionStore creates the session store.
func NewSessionStore(db *DB) *SessionStore {
	return &SessionStore{db: db}
}

var _ session.Store = (*SessionStore)(nil)

func (s *SessionStore) Insert(ctx context.Context, sess *session.Session) error {
	const q = `
		INSERT INTO user_sessions (token, owner, issued_on, expires, dropped, verified, use_csrf)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`
	_, err := s.db.conn(ctx).Exec(ctx, q,
		sess.Token, sess.Owner, sess.IssuedOn, sess.Expires, sess.Dropped, sess.Verified, sess.UseCSRF,
	)
	if pg.IsDuplicateKeyError(err) {
		return session.ErrTokenExists
	}
	return err
}

func (s *SessionStore) Find(ctx context.Context, token string) (*session.Session, error) {
	const q = `
		SELECT token, owner, issued_on, expires, dropped, verified, use_csrf
		FROM user_sessions WHERE token = $1`
	var sess session.Session
	err := s.db.conn(ctx).QueryRow(ctx, q, token).Scan(
		&sess.Token, &sess.Owner, &sess.IssuedOn, &sess.Expires, &sess.Dropped, &sess.Verified, &sess.UseCSRF,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, session.ErrSessionNotFound
	}
	if err != nil {
		return nil, err
	}
	return &sess, nil
}

func (s *SessionStore) MarkVerified(ctx context.Context, token string) error {
	tag, err := s.db.conn(ctx).Exec(ctx,
		`UPDATE user_sessions SET verified = TRUE WHERE token = $1`, token)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return session.ErrSessionNotFound
	}
	return nil
}

func (s *SessionStore) Delete(ctx context.Context, token string) error {
	tag, err := s.db.conn(ctx).Exec(ctx,
		`DELETE FROM user_sessions WHERE token = $1`, token)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return session.ErrSessionNotFound
	}
	return nil
}

func (s *SessionStore) DeleteExpired(ctx context.Context, now time.Time) (int64, error) {
	tag, err := s.db.conn(ctx).Exec(ctx,
		`DELETE FROM user_sessions WHERE dropped OR expires <= $1`, now)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}
