package session

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/dmitrymomot/daybook/core/signer"
	"github.com/dmitrymomot/daybook/core/totp"
	"github.com/dmitrymomot/daybook/core/user"
)

// Status tags the outcome of an initiator lookup. Exactly one applies
// to any request.
type Status int

const (
	// CookieMissing: no session cookie on the request.
	CookieMissing Status = iota
	// InvalidFormat: cookie value cannot be split into token and MAC suffix.
	InvalidFormat
	// InvalidMac: MAC suffix is not base64url.
	InvalidMac
	// VerifyFailed: MAC does not match the token under the process secret.
	VerifyFailed
	// SessionNotFound: no stored session for the token.
	SessionNotFound
	// SessionExpired: session is dropped or past its expiry.
	SessionExpired
	// SessionUnverified: session awaits its second factor.
	SessionUnverified
	// UserNotFound: session owner no longer exists.
	UserNotFound
	// Found: authenticated and verified.
	Found
)

func (s Status) String() string {
	switch s {
	case CookieMissing:
		return "CookieMissing"
	case InvalidFormat:
		return "InvalidFormat"
	case InvalidMac:
		return "InvalidMac"
	case VerifyFailed:
		return "VerifyFailed"
	case SessionNotFound:
		return "SessionNotFound"
	case SessionExpired:
		return "SessionExpired"
	case SessionUnverified:
		return "VerifySession"
	case UserNotFound:
		return "UserNotFound"
	case Found:
		return "Found"
	default:
		return fmt.Sprintf("session.Status(%d)", int(s))
	}
}

// Initiator is the result of resolving a request's session cookie.
// Session is populated from SessionExpired onward so logout and the
// verify endpoint can act on it; User only when Status is Found.
type Initiator struct {
	Status  Status
	Session *Session
	User    *user.User
}

// TotpHint tells the client a second factor is pending and how many
// digits to collect.
type TotpHint struct {
	Method string `json:"method"`
	Digits int    `json:"digits"`
}

// VerifyMethod selects the second-factor credential kind.
type VerifyMethod string

const (
	// MethodTotp verifies a time-based code.
	MethodTotp VerifyMethod = "Totp"
	// MethodTotpHash consumes a single-use backup code.
	MethodTotpHash VerifyMethod = "TotpHash"
)

var ErrInvalidVerifyMethod = errors.New("session: unknown verification method")

// TxRunner executes fn atomically, propagating the transaction through
// the context to every store call inside.
type TxRunner interface {
	RunInTx(ctx context.Context, fn func(ctx context.Context) error) error
}

// Manager issues, resolves, verifies, and revokes sessions.
type Manager struct {
	state    SecurityState
	store    Store
	users    user.Store
	otp      *totp.Engine
	tx       TxRunner
	duration time.Duration
	now      func() time.Time
}

// Option configures the Manager.
type Option func(*Manager)

// WithDuration overrides the session lifetime.
func WithDuration(d time.Duration) Option {
	return func(m *Manager) {
		m.duration = d
	}
}

// WithClock overrides the time source, for tests.
func WithClock(now func() time.Time) Option {
	return func(m *Manager) {
		m.now = now
	}
}

// NewManager wires the session manager.
func NewManager(state SecurityState, store Store, users user.Store, otp *totp.Engine, tx TxRunner, opts ...Option) *Manager {
	m := &Manager{
		state:    state,
		store:    store,
		users:    users,
		otp:      otp,
		tx:       tx,
		duration: DefaultDuration,
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// State exposes the signing configuration for cookie emission.
func (m *Manager) State() SecurityState {
	return m.state
}

// Issue creates a session for an already password-authenticated user.
// When the user has an activated TOTP enrollment the session starts
// unverified and the returned hint tells the client to complete the
// second factor. Token collisions are astronomically unlikely but
// re-rolled anyway.
func (m *Manager) Issue(ctx context.Context, u *user.User) (*Session, *TotpHint, error) {
	enabled, digits, err := m.otp.Status(ctx, u.ID)
	if err != nil {
		return nil, nil, err
	}

	now := m.now()
	for {
		token, err := generateToken()
		if err != nil {
			return nil, nil, err
		}

		s := &Session{
			Token:    token,
			Owner:    u.ID,
			IssuedOn: now,
			Expires:  now.Add(m.duration),
			Verified: !enabled,
		}
		err = m.store.Insert(ctx, s)
		if errors.Is(err, ErrTokenExists) {
			continue
		}
		if err != nil {
			return nil, nil, err
		}

		var hint *TotpHint
		if enabled {
			hint = &TotpHint{Method: string(MethodTotp), Digits: digits}
		}
		return s, hint, nil
	}
}

// Cookie renders the Set-Cookie value for a session.
func (m *Manager) Cookie(s *Session) *http.Cookie {
	return m.state.Cookie(s, m.now())
}

// ExpiredCookie renders the logout cookie.
func (m *Manager) ExpiredCookie() *http.Cookie {
	return m.state.ExpiredCookie()
}

// Lookup resolves the request's session cookie to an initiator. It is
// the single entry point for every authenticated handler. Database
// failures surface as errors, never as a deny status: authorization
// must not silently fail in either direction.
func (m *Manager) Lookup(ctx context.Context, r *http.Request) (Initiator, error) {
	cookie, err := r.Cookie(CookieName)
	if err != nil {
		return Initiator{Status: CookieMissing}, nil
	}

	if len(cookie.Value) <= TokenLength {
		return Initiator{Status: InvalidFormat}, nil
	}
	token, mac, err := splitCookieValue(cookie.Value)
	if err != nil {
		return Initiator{Status: InvalidMac}, nil
	}

	if signer.Verify(m.state.Algo, m.state.Secret, []byte(token), mac) != signer.Valid {
		return Initiator{Status: VerifyFailed}, nil
	}

	s, err := m.store.Find(ctx, token)
	if errors.Is(err, ErrSessionNotFound) {
		return Initiator{Status: SessionNotFound}, nil
	}
	if err != nil {
		return Initiator{}, err
	}

	if s.Dropped || !m.now().Before(s.Expires) {
		return Initiator{Status: SessionExpired, Session: s}, nil
	}
	if !s.Verified {
		return Initiator{Status: SessionUnverified, Session: s}, nil
	}

	u, err := m.users.FindByID(ctx, s.Owner)
	if errors.Is(err, user.ErrUserNotFound) {
		return Initiator{Status: UserNotFound, Session: s}, nil
	}
	if err != nil {
		return Initiator{}, err
	}

	return Initiator{Status: Found, Session: s, User: u}, nil
}

// Verify promotes an unverified session using a TOTP code or a backup
// code. The backup-code path marks the code used in the same
// transaction that flips the session, so a crash between the two can
// never leave a spent code behind an unverified session.
func (m *Manager) Verify(ctx context.Context, s *Session, method VerifyMethod, value string) error {
	switch method {
	case MethodTotp:
		if err := m.otp.CheckCode(ctx, s.Owner, value); err != nil {
			return err
		}
		return m.tx.RunInTx(ctx, func(ctx context.Context) error {
			return m.store.MarkVerified(ctx, s.Token)
		})
	case MethodTotpHash:
		return m.tx.RunInTx(ctx, func(ctx context.Context) error {
			if err := m.otp.ConsumeBackupCode(ctx, s.Owner, value); err != nil {
				return err
			}
			return m.store.MarkVerified(ctx, s.Token)
		})
	default:
		return fmt.Errorf("%w: %q", ErrInvalidVerifyMethod, method)
	}
}

// Drop deletes the session row, the sole revocation mechanism. Dropping
// an already-deleted session succeeds so logout stays idempotent.
func (m *Manager) Drop(ctx context.Context, token string) error {
	err := m.store.Delete(ctx, token)
	if errors.Is(err, ErrSessionNotFound) {
		return nil
	}
	return err
}

// CleanupExpired removes expired and dropped sessions, returning the
// number deleted. Intended to run on a periodic ticker.
func (m *Manager) CleanupExpired(ctx context.Context) (int64, error) {
	return m.store.DeleteExpired(ctx, m.now())
}
