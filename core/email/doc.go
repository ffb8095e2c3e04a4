// Package email defines the outbound mail contract: EmailSender takes
// SendEmailParams (recipient, subject, HTML body, optional tag) and
// delivers it. Production wires the Postmark integration; tests use an
// in-memory fake; local development uses DevSender, which writes each
// email into a directory as an HTML file plus a JSON metadata sidecar
// named by timestamp and tag.
//
//	sender := email.NewDevSender("./dev_emails")
//	err := sender.SendEmail(ctx, email.SendEmailParams{
//		SendTo:   "user@example.com",
//		Subject:  "Verify your email",
//		BodyHTML: body,
//		Tag:      "email-verification",
//	})
//
// SendEmailParams.Validate rejects a malformed recipient or an empty
// subject or body with ErrInvalidParams; implementations call it before
// dispatching.
package email
