package signer

import (
	"crypto/hmac"
	"crypto/sha1"
	"crypto/sha256"
	"crypto/sha512"
	"errors"
	"fmt"
	"hash"
)

// Algo selects the keyed hash used for signing.
type Algo string

const (
	HMACSHA1   Algo = "hmac-sha1"
	HMACSHA256 Algo = "hmac-sha256"
	HMACSHA512 Algo = "hmac-sha512"
)

// DefaultAlgo is used when configuration does not name an algorithm.
const DefaultAlgo = HMACSHA256

// ErrUnknownAlgo is returned for algorithm names outside the supported set.
var ErrUnknownAlgo = errors.New("signer: unknown signing algorithm")

// Result is the outcome of tag verification.
type Result int

const (
	// Valid means the tag matches the message under the secret.
	Valid Result = iota
	// Invalid means the tag has the right length but does not match.
	Invalid
	// InvalidLength means the tag length does not fit the algorithm.
	InvalidLength
)

func (r Result) String() string {
	switch r {
	case Valid:
		return "valid"
	case Invalid:
		return "invalid"
	case InvalidLength:
		return "invalid length"
	default:
		return fmt.Sprintf("signer.Result(%d)", int(r))
	}
}

// ParseAlgo validates an algorithm name from configuration.
// An empty name selects DefaultAlgo.
func ParseAlgo(name string) (Algo, error) {
	switch Algo(name) {
	case "":
		return DefaultAlgo, nil
	case HMACSHA1, HMACSHA256, HMACSHA512:
		return Algo(name), nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownAlgo, name)
	}
}

func (a Algo) hashFunc() func() hash.Hash {
	switch a {
	case HMACSHA1:
		return sha1.New
	case HMACSHA512:
		return sha512.New
	default:
		return sha256.New
	}
}

// TagSize returns the tag length in bytes produced by the algorithm.
func (a Algo) TagSize() int {
	return a.hashFunc()().Size()
}

// Sign computes the HMAC tag of message under secret.
func Sign(algo Algo, secret, message []byte) []byte {
	mac := hmac.New(algo.hashFunc(), secret)
	mac.Write(message)
	return mac.Sum(nil)
}

// Verify checks a tag against the message in constant time. No caller
// may compare tags with ordinary byte equality.
func Verify(algo Algo, secret, message, tag []byte) Result {
	if len(tag) != algo.TagSize() {
		return InvalidLength
	}
	if hmac.Equal(tag, Sign(algo, secret, message)) {
		return Valid
	}
	return Invalid
}
