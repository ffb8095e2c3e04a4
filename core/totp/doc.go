// Package totp implements RFC 6238 time-based one-time passcodes as a
// login second factor: enrollment, activation, code verification, and
// single-use backup codes.
//
// Enrollment creates an unverified record with a fresh 20-byte secret.
// Activation requires a valid code and mints exactly BackupCodeCount
// backup codes, returned once. Verification accepts the current step
// plus one step of skew in either direction.
//
//	engine := totp.NewEngine(store, txRunner)
//
//	enrollment, err := engine.Enroll(ctx, userID, totp.EnrollParams{})
//	// show enrollment.Settings.SecretBase32() / KeyURI to the user
//
//	codes, err := engine.Activate(ctx, userID, submittedCode)
//	// codes are the user's one-time backup codes
//
// Storage is abstracted behind the Store interface; multi-write
// operations run through a TxRunner so partial state never commits.
package totp
