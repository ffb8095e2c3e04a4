package totp

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
)

// Engine-level errors. Each maps to a distinct wire error so clients
// can branch without parsing messages.
var (
	ErrTotpNotFound        = errors.New("totp: no enrollment for user")
	ErrTotpUnverified      = errors.New("totp: enrollment not activated")
	ErrTotpAlreadyVerified = errors.New("totp: enrollment already activated")
	ErrInvalidTotpCode     = errors.New("totp: code does not match")
	ErrTotpHashInvalid     = errors.New("totp: backup code invalid or already used")
)

// Enrollment is a user's TOTP record. At most one exists per user;
// while Verified is false it is setup-only and cannot satisfy a login
// second factor.
type Enrollment struct {
	ID       uuid.UUID
	UserID   uuid.UUID
	Settings Settings
	Verified bool
}

// Store persists enrollments and their backup codes.
// Implementations return ErrTotpNotFound when no enrollment exists and
// ErrTotpHashInvalid when a backup code cannot be consumed.
type Store interface {
	// FindByUser returns the user's enrollment.
	FindByUser(ctx context.Context, userID uuid.UUID) (*Enrollment, error)
	// Upsert inserts the enrollment, replacing an existing unverified one.
	Upsert(ctx context.Context, e *Enrollment) error
	// MarkVerified flips the enrollment's verified flag to true.
	MarkVerified(ctx context.Context, id uuid.UUID) error
	// Delete removes the user's enrollment and its backup codes.
	Delete(ctx context.Context, userID uuid.UUID) error
	// InsertBackupCodes stores a batch of unused backup codes.
	InsertBackupCodes(ctx context.Context, enrollmentID uuid.UUID, codes []string) error
	// ConsumeBackupCode marks a still-unused code as used. Consuming a
	// missing or used code fails with ErrTotpHashInvalid.
	ConsumeBackupCode(ctx context.Context, enrollmentID uuid.UUID, code string) error
}

// TxRunner executes fn atomically. Multi-write engine operations run
// through it so partial state is never published.
type TxRunner interface {
	RunInTx(ctx context.Context, fn func(ctx context.Context) error) error
}

// Engine implements TOTP enrollment, activation, and second-factor checks.
type Engine struct {
	store Store
	tx    TxRunner
	now   func() time.Time
}

// Option configures the Engine.
type Option func(*Engine)

// WithClock overrides the time source, for tests.
func WithClock(now func() time.Time) Option {
	return func(e *Engine) {
		e.now = now
	}
}

// NewEngine creates a TOTP engine over the given store and transaction runner.
func NewEngine(store Store, tx TxRunner, opts ...Option) *Engine {
	e := &Engine{
		store: store,
		tx:    tx,
		now:   time.Now,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// EnrollParams are the caller-chosen TOTP parameters. Zero values pick
// the defaults (SHA1, 6 digits, 30 second step).
type EnrollParams struct {
	Algo   Algo
	Digits int
	Step   int
}

// Enroll creates an unverified enrollment with a fresh secret and
// returns its settings so the client can provision an authenticator.
// Re-enrolling replaces a pending enrollment; an activated one must be
// deleted first.
func (e *Engine) Enroll(ctx context.Context, userID uuid.UUID, params EnrollParams) (*Enrollment, error) {
	existing, err := e.store.FindByUser(ctx, userID)
	if err != nil && !errors.Is(err, ErrTotpNotFound) {
		return nil, err
	}
	if existing != nil && existing.Verified {
		return nil, ErrTotpAlreadyVerified
	}

	if params.Algo == "" {
		params.Algo = DefaultAlgo
	}
	if params.Digits == 0 {
		params.Digits = DefaultDigits
	}
	if params.Step == 0 {
		params.Step = DefaultStep
	}

	secret, err := GenerateSecret()
	if err != nil {
		return nil, err
	}

	settings := Settings{
		Algo:   params.Algo,
		Secret: secret,
		Digits: params.Digits,
		Step:   params.Step,
	}
	if err := settings.Validate(); err != nil {
		return nil, err
	}

	enrollment := &Enrollment{
		ID:       uuid.New(),
		UserID:   userID,
		Settings: settings,
	}
	if err := e.store.Upsert(ctx, enrollment); err != nil {
		return nil, err
	}
	return enrollment, nil
}

// Activate verifies the submitted code against the pending enrollment,
// flips it to verified, and mints the backup code batch. The flip and
// the batch insert commit together; the codes are returned exactly once.
func (e *Engine) Activate(ctx context.Context, userID uuid.UUID, code string) ([]string, error) {
	enrollment, err := e.store.FindByUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	if enrollment.Verified {
		return nil, ErrTotpAlreadyVerified
	}
	if VerifyCode(enrollment.Settings, code, e.now()) != Valid {
		return nil, ErrInvalidTotpCode
	}

	codes, err := GenerateBackupCodes()
	if err != nil {
		return nil, err
	}

	err = e.tx.RunInTx(ctx, func(ctx context.Context) error {
		if err := e.store.MarkVerified(ctx, enrollment.ID); err != nil {
			return err
		}
		return e.store.InsertBackupCodes(ctx, enrollment.ID, codes)
	})
	if err != nil {
		return nil, err
	}
	return codes, nil
}

// Disable removes the user's enrollment along with its backup codes.
// Disabling a user without an enrollment is a no-op.
func (e *Engine) Disable(ctx context.Context, userID uuid.UUID) error {
	if err := e.store.Delete(ctx, userID); err != nil && !errors.Is(err, ErrTotpNotFound) {
		return err
	}
	return nil
}

// Status reports whether the user has an activated enrollment and, if
// so, its digit count for the login hint.
func (e *Engine) Status(ctx context.Context, userID uuid.UUID) (enabled bool, digits int, err error) {
	enrollment, err := e.store.FindByUser(ctx, userID)
	if errors.Is(err, ErrTotpNotFound) {
		return false, 0, nil
	}
	if err != nil {
		return false, 0, err
	}
	if !enrollment.Verified {
		return false, 0, nil
	}
	return true, enrollment.Settings.Digits, nil
}

// Enrollment returns the user's enrollment record, activated or not.
func (e *Engine) Enrollment(ctx context.Context, userID uuid.UUID) (*Enrollment, error) {
	return e.store.FindByUser(ctx, userID)
}

// CheckCode validates a TOTP code against an activated enrollment.
func (e *Engine) CheckCode(ctx context.Context, userID uuid.UUID, code string) error {
	enrollment, err := e.store.FindByUser(ctx, userID)
	if err != nil {
		return err
	}
	if !enrollment.Verified {
		return ErrTotpUnverified
	}
	if VerifyCode(enrollment.Settings, code, e.now()) != Valid {
		return ErrInvalidTotpCode
	}
	return nil
}

// ConsumeBackupCode spends a single-use backup code for an activated
// enrollment. The mark-used write participates in the ambient
// transaction, so callers can commit it together with the state change
// the code authorizes.
func (e *Engine) ConsumeBackupCode(ctx context.Context, userID uuid.UUID, code string) error {
	enrollment, err := e.store.FindByUser(ctx, userID)
	if err != nil {
		return err
	}
	if !enrollment.Verified {
		return ErrTotpUnverified
	}
	return e.store.ConsumeBackupCode(ctx, enrollment.ID, code)
}
