package postgres

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/dmitrymomot/daybook/core/totp"
)

// OtpStore implements totp.Store on PostgreSQL.
type OtpStore struct {
	db *DB
}

// NewOtpStore creates the OTP store.
func NewOtpStore(db *DB) *OtpStore {
	return &OtpStore{db: db}
}

var _ totp.Store = (*OtpStore)(nil)

func (s *OtpStore) FindByUser(ctx context.Context, userID uuid.UUID) (*totp.Enrollment, error) {
	const q = `
		SELECT id, users_id, algo, secret, digits, step, verified
		FROM auth_otps WHERE users_id = $1`
	var e totp.Enrollment
	var algo string
	err := s.db.conn(ctx).QueryRow(ctx, q, userID).Scan(
		&e.ID, &e.UserID, &algo, &e.Settings.Secret, &e.Settings.Digits, &e.Settings.Step, &e.Verified,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, totp.ErrTotpNotFound
	}
	if err != nil {
		return nil, err
	}
	e.Settings.Algo = totp.Algo(algo)
	return &e, nil
}

// Upsert replaces any pending enrollment for the user on the unique
// users_id constraint. Backup codes of the replaced row cascade away
// with it, but a pending enrollment never has any.
func (s *OtpStore) Upsert(ctx context.Context, e *totp.Enrollment) error {
	const q = `
		INSERT INTO auth_otps (id, users_id, algo, secret, digits, step, verified)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (users_id) DO UPDATE SET
			id = EXCLUDED.id,
			algo = EXCLUDED.algo,
			secret = EXCLUDED.secret,
			digits = EXCLUDED.digits,
			step = EXCLUDED.step,
			verified = EXCLUDED.verified`
	_, err := s.db.conn(ctx).Exec(ctx, q,
		e.ID, e.UserID, string(e.Settings.Algo), e.Settings.Secret,
		e.Settings.Digits, e.Settings.Step, e.Verified,
	)
	return err
}

func (s *OtpStore) MarkVerified(ctx context.Context, id uuid.UUID) error {
	tag, err := s.db.conn(ctx).Exec(ctx,
		`UPDATE auth_otps SET verified = TRUE WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return totp.ErrTotpNotFound
	}
	return nil
}

func (s *OtpStore) Delete(ctx context.Context, userID uuid.UUID) error {
	tag, err := s.db.conn(ctx).Exec(ctx,
		`DELETE FROM auth_otps WHERE users_id = $1`, userID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return totp.ErrTotpNotFound
	}
	return nil
}

func (s *OtpStore) InsertBackupCodes(ctx context.Context, enrollmentID uuid.UUID, codes []string) error {
	const q = `INSERT INTO auth_otp_codes (auth_otp_id, hash, used) VALUES ($1, $2, FALSE)`
	for _, code := range codes {
		if _, err := s.db.conn(ctx).Exec(ctx, q, enrollmentID, code); err != nil {
			return err
		}
	}
	return nil
}

// ConsumeBackupCode marks an unused code used. The predicate in the
// UPDATE makes the single-use guarantee a database-level fact: two
// racing consumers serialize on the row lock and only one affects it.
func (s *OtpStore) ConsumeBackupCode(ctx context.Context, enrollmentID uuid.UUID, code string) error {
	tag, err := s.db.conn(ctx).Exec(ctx,
		`UPDATE auth_otp_codes SET used = TRUE
		 WHERE auth_otp_id = $1 AND hash = $2 AND NOT used`,
		enrollmentID, code)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return totp.ErrTotpHashInvalid
	}
	return nil
}
