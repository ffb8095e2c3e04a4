package totp_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/daybook/core/totp"
)

// memStore is an in-memory totp.Store for engine tests.
type memStore struct {
	mu          sync.Mutex
	byUser      map[uuid.UUID]*totp.Enrollment
	backupCodes map[uuid.UUID]map[string]bool // enrollment -> code -> used
}

func newMemStore() *memStore {
	return &memStore{
		byUser:      make(map[uuid.UUID]*totp.Enrollment),
		backupCodes: make(map[uuid.UUID]map[string]bool),
	}
}

func (s *memStore) FindByUser(_ context.Context, userID uuid.UUID) (*totp.Enrollment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.byUser[userID]
	if !ok {
		return nil, totp.ErrTotpNotFound
	}
	cp := *e
	return &cp, nil
}

func (s *memStore) Upsert(_ context.Context, e *totp.Enrollment) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *e
	s.byUser[e.UserID] = &cp
	return nil
}

func (s *memStore) MarkVerified(_ context.Context, id uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, e := range s.byUser {
		if e.ID == id {
			e.Verified = true
			return nil
		}
	}
	return totp.ErrTotpNotFound
}

func (s *memStore) Delete(_ context.Context, userID uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.byUser[userID]
	if !ok {
		return totp.ErrTotpNotFound
	}
	delete(s.backupCodes, e.ID)
	delete(s.byUser, userID)
	return nil
}

func (s *memStore) InsertBackupCodes(_ context.Context, enrollmentID uuid.UUID, codes []string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	m := make(map[string]bool, len(codes))
	for _, c := range codes {
		m[c] = false
	}
	s.backupCodes[enrollmentID] = m
	return nil
}

func (s *memStore) ConsumeBackupCode(_ context.Context, enrollmentID uuid.UUID, code string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	m := s.backupCodes[enrollmentID]
	used, ok := m[code]
	if !ok || used {
		return totp.ErrTotpHashInvalid
	}
	m[code] = true
	return nil
}

// passTx runs the function directly; the in-memory store has no transactions.
type passTx struct{}

func (passTx) RunInTx(ctx context.Context, fn func(ctx context.Context) error) error {
	return fn(ctx)
}

func newTestEngine(t *testing.T, now time.Time) (*totp.Engine, *memStore) {
	t.Helper()
	store := newMemStore()
	engine := totp.NewEngine(store, passTx{}, totp.WithClock(func() time.Time { return now }))
	return engine, store
}

func activate(t *testing.T, engine *totp.Engine, store *memStore, userID uuid.UUID, now time.Time) []string {
	t.Helper()
	enrollment, err := engine.Enroll(context.Background(), userID, totp.EnrollParams{})
	require.NoError(t, err)

	code, err := totp.GenerateCode(enrollment.Settings, now)
	require.NoError(t, err)

	codes, err := engine.Activate(context.Background(), userID, code)
	require.NoError(t, err)
	return codes
}

func TestEngineEnroll(t *testing.T) {
	t.Parallel()

	now := time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC)

	t.Run("defaults applied", func(t *testing.T) {
		t.Parallel()

		engine, _ := newTestEngine(t, now)
		enrollment, err := engine.Enroll(context.Background(), uuid.New(), totp.EnrollParams{})
		require.NoError(t, err)

		assert.Equal(t, totp.SHA1, enrollment.Settings.Algo)
		assert.Equal(t, 6, enrollment.Settings.Digits)
		assert.Equal(t, 30, enrollment.Settings.Step)
		assert.Len(t, enrollment.Settings.Secret, totp.SecretMinBytes)
		assert.False(t, enrollment.Verified)
	})

	t.Run("out of range params rejected", func(t *testing.T) {
		t.Parallel()

		engine, _ := newTestEngine(t, now)
		_, err := engine.Enroll(context.Background(), uuid.New(), totp.EnrollParams{Digits: 11})
		assert.ErrorIs(t, err, totp.ErrInvalidDigits)

		_, err = engine.Enroll(context.Background(), uuid.New(), totp.EnrollParams{Step: -1})
		assert.ErrorIs(t, err, totp.ErrInvalidStep)
	})

	t.Run("re-enroll replaces pending", func(t *testing.T) {
		t.Parallel()

		engine, _ := newTestEngine(t, now)
		userID := uuid.New()

		first, err := engine.Enroll(context.Background(), userID, totp.EnrollParams{})
		require.NoError(t, err)
		second, err := engine.Enroll(context.Background(), userID, totp.EnrollParams{})
		require.NoError(t, err)

		assert.NotEqual(t, first.Settings.Secret, second.Settings.Secret)
	})

	t.Run("enroll over activated rejected", func(t *testing.T) {
		t.Parallel()

		engine, store := newTestEngine(t, now)
		userID := uuid.New()
		activate(t, engine, store, userID, now)

		_, err := engine.Enroll(context.Background(), userID, totp.EnrollParams{})
		assert.ErrorIs(t, err, totp.ErrTotpAlreadyVerified)
	})
}

func TestEngineActivate(t *testing.T) {
	t.Parallel()

	now := time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC)

	t.Run("valid code mints backup codes", func(t *testing.T) {
		t.Parallel()

		engine, _ := newTestEngine(t, now)
		userID := uuid.New()
		enrollment, err := engine.Enroll(context.Background(), userID, totp.EnrollParams{})
		require.NoError(t, err)

		code, err := totp.GenerateCode(enrollment.Settings, now)
		require.NoError(t, err)

		codes, err := engine.Activate(context.Background(), userID, code)
		require.NoError(t, err)
		assert.Len(t, codes, totp.BackupCodeCount)

		enabled, digits, err := engine.Status(context.Background(), userID)
		require.NoError(t, err)
		assert.True(t, enabled)
		assert.Equal(t, 6, digits)
	})

	t.Run("wrong code rejected", func(t *testing.T) {
		t.Parallel()

		engine, _ := newTestEngine(t, now)
		userID := uuid.New()
		_, err := engine.Enroll(context.Background(), userID, totp.EnrollParams{})
		require.NoError(t, err)

		_, err = engine.Activate(context.Background(), userID, "000000")
		assert.ErrorIs(t, err, totp.ErrInvalidTotpCode)

		enabled, _, err := engine.Status(context.Background(), userID)
		require.NoError(t, err)
		assert.False(t, enabled)
	})

	t.Run("no enrollment", func(t *testing.T) {
		t.Parallel()

		engine, _ := newTestEngine(t, now)
		_, err := engine.Activate(context.Background(), uuid.New(), "123456")
		assert.ErrorIs(t, err, totp.ErrTotpNotFound)
	})

	t.Run("double activation rejected", func(t *testing.T) {
		t.Parallel()

		engine, store := newTestEngine(t, now)
		userID := uuid.New()
		activate(t, engine, store, userID, now)

		_, err := engine.Activate(context.Background(), userID, "123456")
		assert.ErrorIs(t, err, totp.ErrTotpAlreadyVerified)
	})
}

func TestEngineCheckCode(t *testing.T) {
	t.Parallel()

	now := time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC)

	t.Run("valid code on activated enrollment", func(t *testing.T) {
		t.Parallel()

		engine, store := newTestEngine(t, now)
		userID := uuid.New()
		activate(t, engine, store, userID, now)

		enrollment, err := store.FindByUser(context.Background(), userID)
		require.NoError(t, err)
		code, err := totp.GenerateCode(enrollment.Settings, now)
		require.NoError(t, err)

		assert.NoError(t, engine.CheckCode(context.Background(), userID, code))
	})

	t.Run("unverified enrollment cannot satisfy a check", func(t *testing.T) {
		t.Parallel()

		engine, _ := newTestEngine(t, now)
		userID := uuid.New()
		_, err := engine.Enroll(context.Background(), userID, totp.EnrollParams{})
		require.NoError(t, err)

		assert.ErrorIs(t, engine.CheckCode(context.Background(), userID, "123456"), totp.ErrTotpUnverified)
	})

	t.Run("wrong code", func(t *testing.T) {
		t.Parallel()

		engine, store := newTestEngine(t, now)
		userID := uuid.New()
		activate(t, engine, store, userID, now)

		assert.ErrorIs(t, engine.CheckCode(context.Background(), userID, "000000"), totp.ErrInvalidTotpCode)
	})
}

func TestEngineConsumeBackupCode(t *testing.T) {
	t.Parallel()

	now := time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC)

	t.Run("consumes exactly once", func(t *testing.T) {
		t.Parallel()

		engine, store := newTestEngine(t, now)
		userID := uuid.New()
		codes := activate(t, engine, store, userID, now)

		require.NoError(t, engine.ConsumeBackupCode(context.Background(), userID, codes[0]))
		assert.ErrorIs(t, engine.ConsumeBackupCode(context.Background(), userID, codes[0]), totp.ErrTotpHashInvalid)
	})

	t.Run("unknown code", func(t *testing.T) {
		t.Parallel()

		engine, store := newTestEngine(t, now)
		userID := uuid.New()
		activate(t, engine, store, userID, now)

		assert.ErrorIs(t, engine.ConsumeBackupCode(context.Background(), userID, "NOPE1234"), totp.ErrTotpHashInvalid)
	})
}

func TestEngineDisable(t *testing.T) {
	t.Parallel()

	now := time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC)

	engine, store := newTestEngine(t, now)
	userID := uuid.New()
	activate(t, engine, store, userID, now)

	require.NoError(t, engine.Disable(context.Background(), userID))

	enabled, _, err := engine.Status(context.Background(), userID)
	require.NoError(t, err)
	assert.False(t, enabled)

	// Disabling again is a no-op.
	assert.NoError(t, engine.Disable(context.Background(), userID))
}
