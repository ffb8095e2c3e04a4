package password

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"

	"golang.org/x/crypto/argon2"
)

// ErrFailedToGenerateSalt is returned when the system RNG fails.
// There is no fallback; a hash without a random salt is worthless.
var ErrFailedToGenerateSalt = errors.New("password: failed to generate salt")

// Argon2id parameters tuned for interactive login: roughly 100ms per
// verification on commodity server hardware.
const (
	memory      = 64 * 1024
	iterations  = 3
	parallelism = 2
	saltLength  = 32
	keyLength   = 32
)

// Hash derives an argon2id hash of the password and encodes it in PHC
// string format, embedding the parameters and salt so Verify needs no
// external state.
func Hash(password string) (string, error) {
	salt := make([]byte, saltLength)
	if _, err := rand.Read(salt); err != nil {
		return "", errors.Join(ErrFailedToGenerateSalt, err)
	}

	digest := argon2.IDKey([]byte(password), salt, iterations, memory, parallelism, keyLength)

	return fmt.Sprintf("$argon2id$v=%d$m=%d,t=%d,p=%d$%s$%s",
		argon2.Version, memory, iterations, parallelism,
		base64.RawStdEncoding.EncodeToString(salt),
		base64.RawStdEncoding.EncodeToString(digest),
	), nil
}

// Verify reports whether the password matches the encoded hash.
// Comparison is constant-time in the digest. Malformed hashes verify
// as false rather than erroring so callers cannot be steered into a
// different code path by stored garbage.
func Verify(encoded, password string) bool {
	parts := strings.Split(encoded, "$")
	if len(parts) != 6 || parts[1] != "argon2id" {
		return false
	}

	var version int
	if _, err := fmt.Sscanf(parts[2], "v=%d", &version); err != nil || version != argon2.Version {
		return false
	}

	var m uint32
	var t uint32
	var p uint8
	if _, err := fmt.Sscanf(parts[3], "m=%d,t=%d,p=%d", &m, &t, &p); err != nil {
		return false
	}

	salt, err := base64.RawStdEncoding.DecodeString(parts[4])
	if err != nil {
		return false
	}
	digest, err := base64.RawStdEncoding.DecodeString(parts[5])
	if err != nil || len(digest) == 0 {
		return false
	}

	candidate := argon2.IDKey([]byte(password), salt, t, m, p, uint32(len(digest)))
	return subtle.ConstantTimeCompare(digest, candidate) == 1
}
