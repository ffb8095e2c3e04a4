package signer_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/daybook/core/signer"
)

func TestSignVerify(t *testing.T) {
	t.Parallel()

	secret := []byte("0123456789abcdef0123456789abcdef")
	message := []byte("some opaque token")

	algos := []signer.Algo{signer.HMACSHA1, signer.HMACSHA256, signer.HMACSHA512}
	for _, algo := range algos {
		t.Run(string(algo), func(t *testing.T) {
			t.Parallel()

			tag := signer.Sign(algo, secret, message)
			assert.Len(t, tag, algo.TagSize())
			assert.Equal(t, signer.Valid, signer.Verify(algo, secret, message, tag))
		})
	}
}

func TestVerifyRejections(t *testing.T) {
	t.Parallel()

	secret := []byte("0123456789abcdef0123456789abcdef")
	message := []byte("payload")
	tag := signer.Sign(signer.HMACSHA256, secret, message)

	t.Run("tampered message", func(t *testing.T) {
		t.Parallel()
		assert.Equal(t, signer.Invalid, signer.Verify(signer.HMACSHA256, secret, []byte("other"), tag))
	})

	t.Run("tampered tag", func(t *testing.T) {
		t.Parallel()
		bad := make([]byte, len(tag))
		copy(bad, tag)
		bad[0] ^= 0xff
		assert.Equal(t, signer.Invalid, signer.Verify(signer.HMACSHA256, secret, message, bad))
	})

	t.Run("wrong secret", func(t *testing.T) {
		t.Parallel()
		assert.Equal(t, signer.Invalid, signer.Verify(signer.HMACSHA256, []byte("another secret value 1234567890"), message, tag))
	})

	t.Run("wrong length", func(t *testing.T) {
		t.Parallel()
		assert.Equal(t, signer.InvalidLength, signer.Verify(signer.HMACSHA256, secret, message, tag[:len(tag)-1]))
		assert.Equal(t, signer.InvalidLength, signer.Verify(signer.HMACSHA256, secret, message, nil))
	})

	t.Run("algo mismatch is a length failure", func(t *testing.T) {
		t.Parallel()
		assert.Equal(t, signer.InvalidLength, signer.Verify(signer.HMACSHA512, secret, message, tag))
	})
}

func TestParseAlgo(t *testing.T) {
	t.Parallel()

	t.Run("empty selects default", func(t *testing.T) {
		t.Parallel()
		algo, err := signer.ParseAlgo("")
		require.NoError(t, err)
		assert.Equal(t, signer.DefaultAlgo, algo)
	})

	t.Run("known names", func(t *testing.T) {
		t.Parallel()
		for _, name := range []string{"hmac-sha1", "hmac-sha256", "hmac-sha512"} {
			algo, err := signer.ParseAlgo(name)
			require.NoError(t, err)
			assert.Equal(t, signer.Algo(name), algo)
		}
	})

	t.Run("unknown name", func(t *testing.T) {
		t.Parallel()
		_, err := signer.ParseAlgo("md5")
		assert.ErrorIs(t, err, signer.ErrUnknownAlgo)
	})
}

func TestTagSize(t *testing.T) {
	t.Parallel()

	assert.Equal(t, 20, signer.HMACSHA1.TagSize())
	assert.Equal(t, 32, signer.HMACSHA256.TagSize())
	assert.Equal(t, 64, signer.HMACSHA512.TagSize())
}
