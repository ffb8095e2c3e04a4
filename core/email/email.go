package email

import (
	"context"
	"fmt"
	"regexp"
)

// EmailSender delivers transactional emails.
// Implementations: postmark.Client for production, DevSender for local development.
type EmailSender interface {
	SendEmail(ctx context.Context, params SendEmailParams) error
}

// SendEmailParams describes a single transactional email.
type SendEmailParams struct {
	SendTo   string // recipient address
	Subject  string
	BodyHTML string
	Tag      string // optional category tag for analytics and filenames
}

// addressRegex is a pragmatic address check; real validation happens at the provider.
var addressRegex = regexp.MustCompile(`^[a-zA-Z0-9._%+-]+@[a-zA-Z0-9.-]+\.[a-zA-Z]{2,}$`)

// Validate checks the parameters before handing them to a sender.
func (p SendEmailParams) Validate() error {
	if p.SendTo == "" || !addressRegex.MatchString(p.SendTo) {
		return fmt.Errorf("%w: invalid recipient address", ErrInvalidParams)
	}
	if p.Subject == "" {
		return fmt.Errorf("%w: subject is required", ErrInvalidParams)
	}
	if p.BodyHTML == "" {
		return fmt.Errorf("%w: body is required", ErrInvalidParams)
	}
	return nil
}
