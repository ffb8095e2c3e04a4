package session_test

import (
	"context"
	"encoding/base64"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/daybook/core/session"
	"github.com/dmitrymomot/daybook/core/totp"
	"github.com/dmitrymomot/daybook/core/user"
)

type memSessionStore struct {
	mu       sync.Mutex
	sessions map[string]*session.Session
}

func newMemSessionStore() *memSessionStore {
	return &memSessionStore{sessions: make(map[string]*session.Session)}
}

func (s *memSessionStore) Insert(_ context.Context, sess *session.Session) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.sessions[sess.Token]; ok {
		return session.ErrTokenExists
	}
	cp := *sess
	s.sessions[sess.Token] = &cp
	return nil
}

func (s *memSessionStore) Find(_ context.Context, token string) (*session.Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sess, ok := s.sessions[token]
	if !ok {
		return nil, session.ErrSessionNotFound
	}
	cp := *sess
	return &cp, nil
}

func (s *memSessionStore) MarkVerified(_ context.Context, token string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	sess, ok := s.sessions[token]
	if !ok {
		return session.ErrSessionNotFound
	}
	sess.Verified = true
	return nil
}

func (s *memSessionStore) Delete(_ context.Context, token string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.sessions[token]; !ok {
		return session.ErrSessionNotFound
	}
	delete(s.sessions, token)
	return nil
}

func (s *memSessionStore) DeleteExpired(_ context.Context, now time.Time) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var n int64
	for token, sess := range s.sessions {
		if sess.Dropped || !now.Before(sess.Expires) {
			delete(s.sessions, token)
			n++
		}
	}
	return n, nil
}

func (s *memSessionStore) markDropped(token string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if sess, ok := s.sessions[token]; ok {
		sess.Dropped = true
	}
}

type memUserStore struct {
	mu    sync.Mutex
	users map[uuid.UUID]*user.User
}

func newMemUserStore() *memUserStore {
	return &memUserStore{users: make(map[uuid.UUID]*user.User)}
}

func (s *memUserStore) Create(_ context.Context, u *user.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *u
	s.users[u.ID] = &cp
	return nil
}

func (s *memUserStore) FindByID(_ context.Context, id uuid.UUID) (*user.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[id]
	if !ok {
		return nil, user.ErrUserNotFound
	}
	cp := *u
	return &cp, nil
}

func (s *memUserStore) FindByUsername(_ context.Context, username string) (*user.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, u := range s.users {
		if u.Username == username {
			cp := *u
			return &cp, nil
		}
	}
	return nil, user.ErrUserNotFound
}

func (s *memUserStore) UpdatePasswordHash(_ context.Context, id uuid.UUID, hash string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[id]
	if !ok {
		return user.ErrUserNotFound
	}
	u.PasswordHash = hash
	return nil
}

func (s *memUserStore) SetEmailVerified(_ context.Context, id uuid.UUID) error {
	return nil
}

func (s *memUserStore) Delete(_ context.Context, id uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.users, id)
	return nil
}

type memOtpStore struct {
	mu          sync.Mutex
	byUser      map[uuid.UUID]*totp.Enrollment
	backupCodes map[uuid.UUID]map[string]bool
}

func newMemOtpStore() *memOtpStore {
	return &memOtpStore{
		byUser:      make(map[uuid.UUID]*totp.Enrollment),
		backupCodes: make(map[uuid.UUID]map[string]bool),
	}
}

func (s *memOtpStore) FindByUser(_ context.Context, userID uuid.UUID) (*totp.Enrollment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.byUser[userID]
	if !ok {
		return nil, totp.ErrTotpNotFound
	}
	cp := *e
	return &cp, nil
}

func (s *memOtpStore) Upsert(_ context.Context, e *totp.Enrollment) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *e
	s.byUser[e.UserID] = &cp
	return nil
}

func (s *memOtpStore) MarkVerified(_ context.Context, id uuid.UUID) error {
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

func (s *memOtpStore) Delete(_ context.Context, userID uuid.UUID) error {
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

func (s *memOtpStore) InsertBackupCodes(_ context.Context, enrollmentID uuid.UUID, codes []string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	m := make(map[string]bool, len(codes))
	for _, c := range codes {
		m[c] = false
	}
	s.backupCodes[enrollmentID] = m
	return nil
}

func (s *memOtpStore) ConsumeBackupCode(_ context.Context, enrollmentID uuid.UUID, code string) error {
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

type passTx struct{}

func (passTx) RunInTx(ctx context.Context, fn func(ctx context.Context) error) error {
	return fn(ctx)
}

type fixture struct {
	mgr      *session.Manager
	sessions *memSessionStore
	users    *memUserStore
	otpStore *memOtpStore
	engine   *totp.Engine
	now      time.Time
	clock    *time.Time
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	state, err := session.NewSecurityState(
		"0123456789abcdef0123456789abcdef", "", "example.com",
	)
	require.NoError(t, err)

	now := time.Date(2026, 6, 15, 10, 0, 0, 0, time.UTC)
	clock := now
	clockFn := func() time.Time { return clock }

	sessions := newMemSessionStore()
	users := newMemUserStore()
	otpStore := newMemOtpStore()
	engine := totp.NewEngine(otpStore, passTx{}, totp.WithClock(clockFn))
	mgr := session.NewManager(state, sessions, users, engine, passTx{},
		session.WithClock(clockFn))

	return &fixture{
		mgr:      mgr,
		sessions: sessions,
		users:    users,
		otpStore: otpStore,
		engine:   engine,
		now:      now,
		clock:    &clock,
	}
}

func (f *fixture) createUser(t *testing.T) *user.User {
	t.Helper()
	u := &user.User{ID: uuid.New(), Username: "alice"}
	require.NoError(t, f.users.Create(context.Background(), u))
	return u
}

func (f *fixture) activateTotp(t *testing.T, userID uuid.UUID) []string {
	t.Helper()
	enrollment, err := f.engine.Enroll(context.Background(), userID, totp.EnrollParams{})
	require.NoError(t, err)
	code, err := totp.GenerateCode(enrollment.Settings, f.now)
	require.NoError(t, err)
	codes, err := f.engine.Activate(context.Background(), userID, code)
	require.NoError(t, err)
	return codes
}

func requestWithCookie(value string) *http.Request {
	r := httptest.NewRequest(http.MethodGet, "/", nil)
	if value != "" {
		r.AddCookie(&http.Cookie{Name: session.CookieName, Value: value})
	}
	return r
}

func TestIssue(t *testing.T) {
	t.Parallel()

	t.Run("no totp yields verified session", func(t *testing.T) {
		t.Parallel()

		f := newFixture(t)
		u := f.createUser(t)

		s, hint, err := f.mgr.Issue(context.Background(), u)
		require.NoError(t, err)

		assert.Nil(t, hint)
		assert.True(t, s.Verified)
		assert.Len(t, s.Token, session.TokenLength)
		assert.Equal(t, f.now, s.IssuedOn)
		assert.Equal(t, f.now.Add(session.DefaultDuration), s.Expires)
	})

	t.Run("activated totp yields unverified session with hint", func(t *testing.T) {
		t.Parallel()

		f := newFixture(t)
		u := f.createUser(t)
		f.activateTotp(t, u.ID)

		s, hint, err := f.mgr.Issue(context.Background(), u)
		require.NoError(t, err)

		assert.False(t, s.Verified)
		require.NotNil(t, hint)
		assert.Equal(t, "Totp", hint.Method)
		assert.Equal(t, 6, hint.Digits)
	})

	t.Run("pending enrollment does not demand a second factor", func(t *testing.T) {
		t.Parallel()

		f := newFixture(t)
		u := f.createUser(t)
		_, err := f.engine.Enroll(context.Background(), u.ID, totp.EnrollParams{})
		require.NoError(t, err)

		s, hint, err := f.mgr.Issue(context.Background(), u)
		require.NoError(t, err)
		assert.True(t, s.Verified)
		assert.Nil(t, hint)
	})
}

func TestCookie(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	u := f.createUser(t)
	s, _, err := f.mgr.Issue(context.Background(), u)
	require.NoError(t, err)

	cookie := f.mgr.Cookie(s)
	assert.Equal(t, session.CookieName, cookie.Name)
	assert.Equal(t, "example.com", cookie.Domain)
	assert.Equal(t, "/", cookie.Path)
	assert.Equal(t, http.SameSiteStrictMode, cookie.SameSite)
	assert.True(t, cookie.HttpOnly)
	assert.Equal(t, int(session.DefaultDuration/time.Second), cookie.MaxAge)
	assert.Equal(t, s.Token, cookie.Value[:session.TokenLength])
	// hmac-sha256 tag renders as 43 base64url chars without padding
	assert.Len(t, cookie.Value, session.TokenLength+43)

	expired := f.mgr.ExpiredCookie()
	assert.Empty(t, expired.Value)
	assert.Negative(t, expired.MaxAge)
	assert.Equal(t, cookie.Domain, expired.Domain)
	assert.Equal(t, cookie.Path, expired.Path)
}

func TestLookup(t *testing.T) {
	t.Parallel()

	issue := func(t *testing.T, f *fixture) (*user.User, *session.Session, string) {
		t.Helper()
		u := f.createUser(t)
		s, _, err := f.mgr.Issue(context.Background(), u)
		require.NoError(t, err)
		return u, s, f.mgr.Cookie(s).Value
	}

	t.Run("found", func(t *testing.T) {
		t.Parallel()

		f := newFixture(t)
		u, s, value := issue(t, f)

		initiator, err := f.mgr.Lookup(context.Background(), requestWithCookie(value))
		require.NoError(t, err)
		assert.Equal(t, session.Found, initiator.Status)
		assert.Equal(t, s.Token, initiator.Session.Token)
		assert.Equal(t, u.ID, initiator.User.ID)
	})

	t.Run("cookie missing", func(t *testing.T) {
		t.Parallel()

		f := newFixture(t)
		initiator, err := f.mgr.Lookup(context.Background(), requestWithCookie(""))
		require.NoError(t, err)
		assert.Equal(t, session.CookieMissing, initiator.Status)
	})

	t.Run("invalid format", func(t *testing.T) {
		t.Parallel()

		f := newFixture(t)
		initiator, err := f.mgr.Lookup(context.Background(), requestWithCookie("tooshort"))
		require.NoError(t, err)
		assert.Equal(t, session.InvalidFormat, initiator.Status)
	})

	t.Run("invalid mac encoding", func(t *testing.T) {
		t.Parallel()

		f := newFixture(t)
		_, _, value := issue(t, f)

		initiator, err := f.mgr.Lookup(context.Background(), requestWithCookie(value[:session.TokenLength]+"%%%%"))
		require.NoError(t, err)
		assert.Equal(t, session.InvalidMac, initiator.Status)
	})

	t.Run("mac verify failed", func(t *testing.T) {
		t.Parallel()

		f := newFixture(t)
		_, s, _ := issue(t, f)

		forged := s.Token + base64.RawURLEncoding.EncodeToString(make([]byte, 32))
		initiator, err := f.mgr.Lookup(context.Background(), requestWithCookie(forged))
		require.NoError(t, err)
		assert.Equal(t, session.VerifyFailed, initiator.Status)
	})

	t.Run("session not found", func(t *testing.T) {
		t.Parallel()

		f := newFixture(t)
		_, s, value := issue(t, f)
		require.NoError(t, f.sessions.Delete(context.Background(), s.Token))

		initiator, err := f.mgr.Lookup(context.Background(), requestWithCookie(value))
		require.NoError(t, err)
		assert.Equal(t, session.SessionNotFound, initiator.Status)
	})

	t.Run("expired by clock", func(t *testing.T) {
		t.Parallel()

		f := newFixture(t)
		_, _, value := issue(t, f)
		*f.clock = f.now.Add(session.DefaultDuration)

		initiator, err := f.mgr.Lookup(context.Background(), requestWithCookie(value))
		require.NoError(t, err)
		assert.Equal(t, session.SessionExpired, initiator.Status)
		assert.NotNil(t, initiator.Session)
	})

	t.Run("dropped overrides remaining lifetime", func(t *testing.T) {
		t.Parallel()

		f := newFixture(t)
		_, s, value := issue(t, f)
		f.sessions.markDropped(s.Token)

		initiator, err := f.mgr.Lookup(context.Background(), requestWithCookie(value))
		require.NoError(t, err)
		assert.Equal(t, session.SessionExpired, initiator.Status)
	})

	t.Run("unverified", func(t *testing.T) {
		t.Parallel()

		f := newFixture(t)
		u := f.createUser(t)
		f.activateTotp(t, u.ID)
		s, _, err := f.mgr.Issue(context.Background(), u)
		require.NoError(t, err)

		initiator, err := f.mgr.Lookup(context.Background(), requestWithCookie(f.mgr.Cookie(s).Value))
		require.NoError(t, err)
		assert.Equal(t, session.SessionUnverified, initiator.Status)
		assert.Equal(t, "VerifySession", initiator.Status.String())
		require.NotNil(t, initiator.Session)
		assert.Nil(t, initiator.User)
	})

	t.Run("user not found", func(t *testing.T) {
		t.Parallel()

		f := newFixture(t)
		u, _, value := issue(t, f)
		require.NoError(t, f.users.Delete(context.Background(), u.ID))

		initiator, err := f.mgr.Lookup(context.Background(), requestWithCookie(value))
		require.NoError(t, err)
		assert.Equal(t, session.UserNotFound, initiator.Status)
	})
}

func TestVerify(t *testing.T) {
	t.Parallel()

	pendingSession := func(t *testing.T, f *fixture) (*user.User, *session.Session, []string) {
		t.Helper()
		u := f.createUser(t)
		codes := f.activateTotp(t, u.ID)
		s, _, err := f.mgr.Issue(context.Background(), u)
		require.NoError(t, err)
		require.False(t, s.Verified)
		return u, s, codes
	}

	t.Run("totp code promotes session", func(t *testing.T) {
		t.Parallel()

		f := newFixture(t)
		u, s, _ := pendingSession(t, f)

		enrollment, err := f.otpStore.FindByUser(context.Background(), u.ID)
		require.NoError(t, err)
		code, err := totp.GenerateCode(enrollment.Settings, f.now)
		require.NoError(t, err)

		require.NoError(t, f.mgr.Verify(context.Background(), s, session.MethodTotp, code))

		initiator, err := f.mgr.Lookup(context.Background(), requestWithCookie(f.mgr.Cookie(s).Value))
		require.NoError(t, err)
		assert.Equal(t, session.Found, initiator.Status)
	})

	t.Run("wrong totp code", func(t *testing.T) {
		t.Parallel()

		f := newFixture(t)
		_, s, _ := pendingSession(t, f)

		err := f.mgr.Verify(context.Background(), s, session.MethodTotp, "000000")
		assert.ErrorIs(t, err, totp.ErrInvalidTotpCode)
	})

	t.Run("backup code consumes once across sessions", func(t *testing.T) {
		t.Parallel()

		f := newFixture(t)
		u, s, codes := pendingSession(t, f)

		require.NoError(t, f.mgr.Verify(context.Background(), s, session.MethodTotpHash, codes[0]))

		// Log out, log in again, and try to replay the same code.
		require.NoError(t, f.mgr.Drop(context.Background(), s.Token))
		s2, _, err := f.mgr.Issue(context.Background(), u)
		require.NoError(t, err)

		err = f.mgr.Verify(context.Background(), s2, session.MethodTotpHash, codes[0])
		assert.ErrorIs(t, err, totp.ErrTotpHashInvalid)

		// A fresh code still works.
		assert.NoError(t, f.mgr.Verify(context.Background(), s2, session.MethodTotpHash, codes[1]))
	})

	t.Run("failed backup code leaves session unverified", func(t *testing.T) {
		t.Parallel()

		f := newFixture(t)
		_, s, _ := pendingSession(t, f)

		err := f.mgr.Verify(context.Background(), s, session.MethodTotpHash, "BOGUS123")
		assert.ErrorIs(t, err, totp.ErrTotpHashInvalid)

		initiator, err := f.mgr.Lookup(context.Background(), requestWithCookie(f.mgr.Cookie(s).Value))
		require.NoError(t, err)
		assert.Equal(t, session.SessionUnverified, initiator.Status)
	})

	t.Run("unknown method", func(t *testing.T) {
		t.Parallel()

		f := newFixture(t)
		_, s, _ := pendingSession(t, f)

		err := f.mgr.Verify(context.Background(), s, "Sms", "123456")
		assert.ErrorIs(t, err, session.ErrInvalidVerifyMethod)
	})

	t.Run("totp without enrollment", func(t *testing.T) {
		t.Parallel()

		f := newFixture(t)
		u := f.createUser(t)
		s, _, err := f.mgr.Issue(context.Background(), u)
		require.NoError(t, err)

		err = f.mgr.Verify(context.Background(), s, session.MethodTotp, "123456")
		assert.ErrorIs(t, err, totp.ErrTotpNotFound)
	})
}

func TestDrop(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	u := f.createUser(t)
	s, _, err := f.mgr.Issue(context.Background(), u)
	require.NoError(t, err)

	require.NoError(t, f.mgr.Drop(context.Background(), s.Token))

	initiator, err := f.mgr.Lookup(context.Background(), requestWithCookie(f.mgr.Cookie(s).Value))
	require.NoError(t, err)
	assert.Equal(t, session.SessionNotFound, initiator.Status)

	// Idempotent.
	assert.NoError(t, f.mgr.Drop(context.Background(), s.Token))
}

func TestCleanupExpired(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	u := f.createUser(t)

	s1, _, err := f.mgr.Issue(context.Background(), u)
	require.NoError(t, err)
	_, _, err = f.mgr.Issue(context.Background(), u)
	require.NoError(t, err)
	f.sessions.markDropped(s1.Token)

	n, err := f.mgr.CleanupExpired(context.Background())
	require.NoError(t, err)
	assert.EqualValues(t, 1, n)

	*f.clock = f.now.Add(session.DefaultDuration + time.Hour)
	n, err = f.mgr.CleanupExpired(context.Background())
	require.NoError(t, err)
	assert.EqualValues(t, 1, n)
}

func TestNewSecurityState(t *testing.T) {
	t.Parallel()

	t.Run("short secret rejected", func(t *testing.T) {
		t.Parallel()
		_, err := session.NewSecurityState("short", "", "example.com")
		assert.ErrorIs(t, err, session.ErrSecretTooShort)
	})

	t.Run("missing domain rejected", func(t *testing.T) {
		t.Parallel()
		_, err := session.NewSecurityState("0123456789abcdef0123456789abcdef", "", "")
		assert.ErrorIs(t, err, session.ErrMissingDomain)
	})

	t.Run("unknown algo rejected", func(t *testing.T) {
		t.Parallel()
		_, err := session.NewSecurityState("0123456789abcdef0123456789abcdef", "hmac-md5", "example.com")
		assert.Error(t, err)
	})
}
