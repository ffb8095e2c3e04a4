package session

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/dmitrymomot/daybook/core/signer"
)

// CookieName is the session cookie emitted on login.
const CookieName = "session_id"

const (
	// TokenBytes of entropy per token; 48 raw bytes render as exactly
	// TokenLength base64url characters with no padding.
	TokenBytes  = 48
	TokenLength = 64
)

// DefaultDuration is the session lifetime from issuance.
const DefaultDuration = 7 * 24 * time.Hour

// MinSecretLength is the floor on the process secret; anything shorter
// makes cookie MACs guessable.
const MinSecretLength = 32

var (
	ErrSecretTooShort = errors.New("session: secret must be at least 32 bytes")
	ErrMissingDomain  = errors.New("session: cookie domain is required")
	ErrRandomSource   = errors.New("session: failed to read random source")
)

// SecurityState is the immutable process-wide signing configuration.
// Rotating the secret invalidates every outstanding session.
type SecurityState struct {
	Secret []byte
	Algo   signer.Algo
	Domain string
}

// NewSecurityState validates and builds the signing configuration.
// An empty algo name selects the default (hmac-sha256).
func NewSecurityState(secret, algoName, domain string) (SecurityState, error) {
	if len(secret) < MinSecretLength {
		return SecurityState{}, ErrSecretTooShort
	}
	if domain == "" {
		return SecurityState{}, ErrMissingDomain
	}
	algo, err := signer.ParseAlgo(algoName)
	if err != nil {
		return SecurityState{}, err
	}
	return SecurityState{
		Secret: []byte(secret),
		Algo:   algo,
		Domain: domain,
	}, nil
}

// Session is a persisted login. Verified stays false until the second
// factor clears; Dropped soft-revokes without reuse of the token.
type Session struct {
	Token    string
	Owner    uuid.UUID
	IssuedOn time.Time
	Expires  time.Time
	Dropped  bool
	Verified bool
	UseCSRF  bool
}

// Store persists sessions keyed by token.
// Implementations return ErrSessionNotFound for missing tokens and
// ErrTokenExists on insert collisions.
type Store interface {
	Insert(ctx context.Context, s *Session) error
	Find(ctx context.Context, token string) (*Session, error)
	MarkVerified(ctx context.Context, token string) error
	Delete(ctx context.Context, token string) error
	// DeleteExpired removes sessions past their expiry or dropped,
	// returning how many rows went away.
	DeleteExpired(ctx context.Context, now time.Time) (int64, error)
}

var (
	ErrSessionNotFound = errors.New("session: not found")
	ErrTokenExists     = errors.New("session: token already exists")
)

// generateToken returns a fresh random token of exactly TokenLength
// base64url characters.
func generateToken() (string, error) {
	raw := make([]byte, TokenBytes)
	if _, err := rand.Read(raw); err != nil {
		return "", errors.Join(ErrRandomSource, err)
	}
	return base64.RawURLEncoding.EncodeToString(raw), nil
}

// cookieValue renders token||base64url(mac). The MAC binds the cookie
// to the process secret so forged tokens die at the edge without a
// database hit.
func (st SecurityState) cookieValue(token string) string {
	mac := signer.Sign(st.Algo, st.Secret, []byte(token))
	return token + base64.RawURLEncoding.EncodeToString(mac)
}

// splitCookieValue separates a cookie value into token and decoded MAC.
func splitCookieValue(value string) (token string, mac []byte, err error) {
	if len(value) <= TokenLength {
		return "", nil, fmt.Errorf("session: cookie value too short")
	}
	token = value[:TokenLength]
	mac, err = base64.RawURLEncoding.DecodeString(value[TokenLength:])
	if err != nil {
		return "", nil, fmt.Errorf("session: mac suffix is not base64url: %w", err)
	}
	return token, mac, nil
}

// Cookie builds the session cookie for an issued session.
func (st SecurityState) Cookie(s *Session, now time.Time) *http.Cookie {
	return &http.Cookie{
		Name:     CookieName,
		Value:    st.cookieValue(s.Token),
		Domain:   st.Domain,
		Path:     "/",
		MaxAge:   int(s.Expires.Sub(now) / time.Second),
		SameSite: http.SameSiteStrictMode,
		HttpOnly: true,
	}
}

// ExpiredCookie builds the logout cookie: empty value, Max-Age=0,
// otherwise identical attributes so browsers match and drop the original.
func (st SecurityState) ExpiredCookie() *http.Cookie {
	return &http.Cookie{
		Name:     CookieName,
		Value:    "",
		Domain:   st.Domain,
		Path:     "/",
		MaxAge:   -1,
		Expires:  time.Unix(0, 0),
		SameSite: http.SameSiteStrictMode,
		HttpOnly: true,
	}
}
