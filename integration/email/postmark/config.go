package postmark

// Config holds Postmark credentials and sender identity with
// environment variable mapping.
type Config struct {
	PostmarkServerToken  string `env:"POSTMARK_SERVER_TOKEN"`
	PostmarkAccountToken string `env:"POSTMARK_ACCOUNT_TOKEN"`
	SenderEmail          string `env:"POSTMARK_SENDER_EMAIL"`
	SupportEmail         string `env:"POSTMARK_SUPPORT_EMAIL"`
}
