package totp

import (
	"crypto/rand"
	"encoding/base32"
	"errors"
	"fmt"
	"net/url"
	"strconv"
	"time"

	"github.com/pquerna/otp"
	"github.com/pquerna/otp/totp"
)

// Policy constants. Enrollment fills in the defaults when the caller
// omits a parameter; the backup code shape is fixed so fixtures and
// clients can rely on it.
const (
	DefaultDigits = 6
	DefaultStep   = 30

	MinDigits = 1
	MaxDigits = 10

	SecretMinBytes = 20
	SecretMaxBytes = 32

	BackupCodeCount = 10
	BackupCodeBytes = 5
)

// Algo selects the HMAC hash for code generation.
type Algo string

const (
	SHA1   Algo = "SHA1"
	SHA256 Algo = "SHA256"
	SHA512 Algo = "SHA512"
)

// DefaultAlgo is the enrollment default. SHA1 remains the interoperable
// choice for authenticator apps.
const DefaultAlgo = SHA1

var (
	ErrInvalidAlgo   = errors.New("totp: algorithm must be SHA1, SHA256 or SHA512")
	ErrInvalidDigits = errors.New("totp: digits out of range")
	ErrInvalidStep   = errors.New("totp: step must be positive")
	ErrInvalidSecret = errors.New("totp: secret length out of range")
	ErrRandomSource  = errors.New("totp: failed to read random source")
)

// Result is the outcome of verifying a candidate code.
type Result int

const (
	// Valid means the candidate matches the current or adjacent step.
	Valid Result = iota
	// Invalid means the candidate is well-formed but wrong.
	Invalid
	// InvalidCharacters means the candidate contains non-digit characters.
	InvalidCharacters
	// InvalidLength means the candidate length does not match the digits setting.
	InvalidLength
)

func (r Result) String() string {
	switch r {
	case Valid:
		return "valid"
	case Invalid:
		return "invalid"
	case InvalidCharacters:
		return "invalid characters"
	case InvalidLength:
		return "invalid length"
	default:
		return fmt.Sprintf("totp.Result(%d)", int(r))
	}
}

// Settings are the per-user TOTP parameters. Secret holds raw random
// bytes; base32 encoding happens at the edges (client provisioning and
// the underlying HOTP library).
type Settings struct {
	Algo   Algo
	Secret []byte
	Digits int
	Step   int
}

// Validate checks the settings against the declared ranges.
func (s Settings) Validate() error {
	switch s.Algo {
	case SHA1, SHA256, SHA512:
	default:
		return fmt.Errorf("%w: %q", ErrInvalidAlgo, s.Algo)
	}
	if s.Digits < MinDigits || s.Digits > MaxDigits {
		return fmt.Errorf("%w: %d not in [%d, %d]", ErrInvalidDigits, s.Digits, MinDigits, MaxDigits)
	}
	if s.Step <= 0 {
		return fmt.Errorf("%w: %d", ErrInvalidStep, s.Step)
	}
	if len(s.Secret) < SecretMinBytes || len(s.Secret) > SecretMaxBytes {
		return fmt.Errorf("%w: %d bytes not in [%d, %d]", ErrInvalidSecret, len(s.Secret), SecretMinBytes, SecretMaxBytes)
	}
	return nil
}

// SecretBase32 returns the secret in the unpadded base32 form
// authenticator apps expect.
func (s Settings) SecretBase32() string {
	return base32.StdEncoding.WithPadding(base32.NoPadding).EncodeToString(s.Secret)
}

// libSecret returns the padded base32 form the underlying library decodes.
func (s Settings) libSecret() string {
	return base32.StdEncoding.EncodeToString(s.Secret)
}

func (s Settings) otpAlgorithm() otp.Algorithm {
	switch s.Algo {
	case SHA256:
		return otp.AlgorithmSHA256
	case SHA512:
		return otp.AlgorithmSHA512
	default:
		return otp.AlgorithmSHA1
	}
}

func (s Settings) validateOpts() totp.ValidateOpts {
	return totp.ValidateOpts{
		Period: uint(s.Step),
		// One step of tolerance either way covers client clock drift
		// without widening the guessing window meaningfully.
		Skew:      1,
		Digits:    otp.Digits(s.Digits),
		Algorithm: s.otpAlgorithm(),
	}
}

// GenerateSecret produces a fresh random secret of SecretMinBytes.
func GenerateSecret() ([]byte, error) {
	secret := make([]byte, SecretMinBytes)
	if _, err := rand.Read(secret); err != nil {
		return nil, errors.Join(ErrRandomSource, err)
	}
	return secret, nil
}

// GenerateCode computes the code for the step containing t.
func GenerateCode(s Settings, t time.Time) (string, error) {
	if err := s.Validate(); err != nil {
		return "", err
	}
	code, err := totp.GenerateCodeCustom(s.libSecret(), t, s.validateOpts())
	if err != nil {
		return "", fmt.Errorf("totp: generate code: %w", err)
	}
	return code, nil
}

// VerifyCode checks a candidate code against the step containing t,
// accepting one step of skew in either direction.
func VerifyCode(s Settings, candidate string, t time.Time) Result {
	if len(candidate) != s.Digits {
		return InvalidLength
	}
	for _, c := range candidate {
		if c < '0' || c > '9' {
			return InvalidCharacters
		}
	}

	ok, err := totp.ValidateCustom(candidate, s.libSecret(), t, s.validateOpts())
	if err != nil || !ok {
		return Invalid
	}
	return Valid
}

// GenerateBackupCodes mints exactly BackupCodeCount single-use codes,
// each BackupCodeBytes of randomness rendered as base32. Uniqueness
// within the batch is enforced by re-rolling collisions.
func GenerateBackupCodes() ([]string, error) {
	enc := base32.StdEncoding.WithPadding(base32.NoPadding)
	codes := make([]string, 0, BackupCodeCount)
	seen := make(map[string]struct{}, BackupCodeCount)

	for len(codes) < BackupCodeCount {
		raw := make([]byte, BackupCodeBytes)
		if _, err := rand.Read(raw); err != nil {
			return nil, errors.Join(ErrRandomSource, err)
		}
		code := enc.EncodeToString(raw)
		if _, dup := seen[code]; dup {
			continue
		}
		seen[code] = struct{}{}
		codes = append(codes, code)
	}
	return codes, nil
}

// KeyURI renders the otpauth:// provisioning URI encoded into QR codes
// for authenticator apps.
func KeyURI(issuer, account string, s Settings) string {
	v := url.Values{}
	v.Set("secret", s.SecretBase32())
	v.Set("issuer", issuer)
	v.Set("algorithm", string(s.Algo))
	v.Set("digits", strconv.Itoa(s.Digits))
	v.Set("period", strconv.Itoa(s.Step))

	u := url.URL{
		Scheme:   "otpauth",
		Host:     "totp",
		Path:     "/" + issuer + ":" + account,
		RawQuery: v.Encode(),
	}
	return u.String()
}
