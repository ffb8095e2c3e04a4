// Package password hashes and verifies user passwords with argon2id.
//
// Hashes are encoded as PHC strings so the parameters travel with the
// hash and can be raised over time without breaking stored values:
//
//	hash, err := password.Hash("s3cret")
//	if err != nil {
//		return err
//	}
//	ok := password.Verify(hash, "s3cret") // true
//
// Verify never errors: malformed or truncated stored hashes simply fail
// the check.
package password
