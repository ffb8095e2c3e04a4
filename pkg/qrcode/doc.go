// Package qrcode renders text as PNG QR codes. The TOTP enrollment
// endpoint uses it to turn an otpauth:// provisioning URI into an image
// authenticator apps can scan.
//
//	png, err := qrcode.Generate(uri, qrcode.DefaultSize)
//	if err != nil { ... }
//
// GenerateBase64Image wraps the PNG in a data URI for inline <img>
// embedding. Codes use medium error correction, which tolerates about
// 15% damage; DefaultSize (256px) scans reliably on phones without
// inflating the response.
package qrcode
