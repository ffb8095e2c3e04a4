// Package signer provides keyed-hash message authentication over short
// opaque tokens, used to make session cookies unforgeable without a
// database hit at the edge.
//
// The algorithm is process-wide configuration, one of hmac-sha1,
// hmac-sha256 (default), or hmac-sha512:
//
//	algo, err := signer.ParseAlgo(cfg.SigningAlgo)
//	if err != nil {
//		return err
//	}
//	tag := signer.Sign(algo, secret, token)
//	if signer.Verify(algo, secret, token, tag) != signer.Valid {
//		// reject
//	}
//
// Verification is constant-time.
package signer
