package api

import (
	"time"

	"github.com/dmitrymomot/daybook/core/server"
	"github.com/dmitrymomot/daybook/integration/database/pg"
	"github.com/dmitrymomot/daybook/integration/database/redis"
	"github.com/dmitrymomot/daybook/integration/email/postmark"
	"github.com/dmitrymomot/daybook/integration/storage/s3"
)

// Config is the full process configuration, loaded from the environment.
type Config struct {
	DB     pg.Config
	Redis  redis.Config
	Server server.Config
	S3     s3.Config
	Email  postmark.Config

	AppName  string `env:"APP_NAME" envDefault:"daybook"`
	Env      string `env:"APP_ENV" envDefault:"development"`
	LogLevel string `env:"LOG_LEVEL" envDefault:"info"`

	// BaseURL is the externally visible origin used in verification links.
	BaseURL string `env:"BASE_URL" envDefault:"http://localhost:8080"`

	// AppSecret keys session MACs and email verification tokens.
	// Rotating it invalidates every outstanding session and token.
	AppSecret     string `env:"APP_SECRET,required"`
	SessionDomain string `env:"SESSION_DOMAIN,required"`
	SigningAlgo   string `env:"SIGNING_ALGO" envDefault:"hmac-sha256"`

	// EmailDevDir receives outgoing mail as files when no Postmark
	// token is configured.
	EmailDevDir string `env:"EMAIL_DEV_DIR" envDefault:"./tmp/emails"`

	// Login throttling: bucket size and refill interval per client IP
	// on the session endpoints.
	LoginRateLimit  int           `env:"LOGIN_RATE_LIMIT" envDefault:"10"`
	LoginRateRefill time.Duration `env:"LOGIN_RATE_REFILL" envDefault:"6s"`

	// SessionCleanupInterval paces the expired-session sweeper.
	SessionCleanupInterval time.Duration `env:"SESSION_CLEANUP_INTERVAL" envDefault:"1h"`
}
