// Package postmark implements email.EmailSender on Postmark's
// transactional API, carrying the verification and security emails the
// service sends.
//
// Configuration comes from the environment (POSTMARK_SERVER_TOKEN,
// POSTMARK_ACCOUNT_TOKEN, POSTMARK_SENDER_EMAIL,
// POSTMARK_SUPPORT_EMAIL); the fields are optional at load time so
// development can run without a Postmark account, and New validates
// they are all present before building a client:
//
//	sender, err := postmark.New(cfg)
//	if err != nil { ... }
//
//	err = sender.SendEmail(ctx, email.SendEmailParams{
//		SendTo:   "user@example.com",
//		Subject:  "Verify your email",
//		BodyHTML: body,
//		Tag:      "email-verification",
//	})
//
// Mail goes out from the configured sender with Reply-To pointed at the
// support address. Postmark-level rejections (an ErrorCode in the API
// response) and transport failures both wrap
// email.ErrFailedToSendEmail.
package postmark
