// Package user holds account identity, password authentication, and
// email verification tokens.
//
// The Service wraps a Store with argon2id password hashing; the login
// endpoint is the only caller allowed to surface the difference between
// an unknown username and a wrong password.
package user
