package user

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// Email verification tokens are short-lived signed claims rather than
// stored rows: nothing to clean up, and the signature pins both the
// user and the purpose.

const verificationPurpose = "email_verify"

// DefaultVerificationTTL bounds how long an emailed link stays valid.
const DefaultVerificationTTL = 24 * time.Hour

var ErrInvalidVerificationToken = errors.New("user: invalid verification token")

// VerificationTokens mints and parses email verification tokens.
type VerificationTokens struct {
	secret []byte
	ttl    time.Duration
}

// NewVerificationTokens creates a token issuer signing with secret.
// A non-positive ttl falls back to DefaultVerificationTTL.
func NewVerificationTokens(secret []byte, ttl time.Duration) *VerificationTokens {
	if ttl <= 0 {
		ttl = DefaultVerificationTTL
	}
	return &VerificationTokens{secret: secret, ttl: ttl}
}

type verificationClaims struct {
	Purpose string `json:"purpose"`
	jwt.RegisteredClaims
}

// Issue mints a verification token for the user.
func (v *VerificationTokens) Issue(userID uuid.UUID) (string, error) {
	now := time.Now()
	claims := verificationClaims{
		Purpose: verificationPurpose,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userID.String(),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(v.ttl)),
		},
	}

	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(v.secret)
	if err != nil {
		return "", fmt.Errorf("user: sign verification token: %w", err)
	}
	return token, nil
}

// Parse validates a token and returns the user id it was issued for.
// Expired, malformed, or wrong-purpose tokens all fail with
// ErrInvalidVerificationToken.
func (v *VerificationTokens) Parse(token string) (uuid.UUID, error) {
	var claims verificationClaims
	parsed, err := jwt.ParseWithClaims(token, &claims, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %q", t.Method.Alg())
		}
		return v.secret, nil
	})
	if err != nil || !parsed.Valid {
		return uuid.Nil, ErrInvalidVerificationToken
	}
	if claims.Purpose != verificationPurpose {
		return uuid.Nil, ErrInvalidVerificationToken
	}

	userID, err := uuid.Parse(claims.Subject)
	if err != nil {
		return uuid.Nil, ErrInvalidVerificationToken
	}
	return userID, nil
}
