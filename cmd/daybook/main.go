package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/dmitrymomot/daybook/app/api"
	"github.com/dmitrymomot/daybook/core/config"
	"github.com/dmitrymomot/daybook/core/email"
	"github.com/dmitrymomot/daybook/core/logger"
	"github.com/dmitrymomot/daybook/core/permission"
	"github.com/dmitrymomot/daybook/core/server"
	"github.com/dmitrymomot/daybook/core/session"
	"github.com/dmitrymomot/daybook/core/totp"
	"github.com/dmitrymomot/daybook/core/user"
	"github.com/dmitrymomot/daybook/integration/database/pg"
	"github.com/dmitrymomot/daybook/integration/database/redis"
	"github.com/dmitrymomot/daybook/integration/email/postmark"
	"github.com/dmitrymomot/daybook/integration/storage/s3"
	"github.com/dmitrymomot/daybook/pkg/ratelimiter"
	"github.com/dmitrymomot/daybook/storage/postgres"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var cfg api.Config
	config.MustLoad(&cfg)

	log := newLogger(cfg)

	pool, err := pg.Connect(ctx, cfg.DB)
	if err != nil {
		log.Error("failed to connect to database", logger.Component("database"), logger.Error(err))
		os.Exit(1)
	}
	defer pool.Close()

	if err := pg.MigrateFS(ctx, pool, cfg.DB, log.With("component", "migration"), postgres.Migrations, "migrations"); err != nil {
		log.Error("failed to migrate database", logger.Component("database.migration"), logger.Error(err))
		os.Exit(1)
	}

	redisClient, err := redis.Connect(ctx, cfg.Redis)
	if err != nil {
		log.Error("failed to connect to redis", logger.Component("redis"), logger.Error(err))
		os.Exit(1)
	}
	defer redisClient.Close()

	state, err := session.NewSecurityState(cfg.AppSecret, cfg.SigningAlgo, cfg.SessionDomain)
	if err != nil {
		log.Error("invalid security configuration", logger.Component("session"), logger.Error(err))
		os.Exit(1)
	}

	db := postgres.New(pool)
	userStore := postgres.NewUserStore(db)
	sessionStore := postgres.NewSessionStore(db)
	otpStore := postgres.NewOtpStore(db)
	permissionStore := postgres.NewPermissionStore(db)
	audioStore := postgres.NewAudioStore(db)

	totpEngine := totp.NewEngine(otpStore, db)
	sessions := session.NewManager(state, sessionStore, userStore, totpEngine, db)
	permissions := permission.NewEngine(permissionStore, db)
	users := user.NewService(userStore)
	tokens := user.NewVerificationTokens([]byte(cfg.AppSecret), user.DefaultVerificationTTL)

	blobs, err := s3.New(ctx, cfg.S3)
	if err != nil {
		log.Error("failed to init object storage", logger.Component("s3"), logger.Error(err))
		os.Exit(1)
	}

	loginLimiter, err := ratelimiter.NewBucket(
		redis.NewRateLimitStore(redisClient, "daybook:login"),
		ratelimiter.Config{
			Capacity:       cfg.LoginRateLimit,
			RefillRate:     1,
			RefillInterval: cfg.LoginRateRefill,
		},
	)
	if err != nil {
		log.Error("failed to init login limiter", logger.Component("ratelimit"), logger.Error(err))
		os.Exit(1)
	}

	r := api.New(api.Deps{
		Logger:       log,
		Users:        users,
		UserStore:    userStore,
		Sessions:     sessions,
		Totp:         totpEngine,
		Permissions:  permissions,
		Audio:        audioStore,
		Blobs:        blobs,
		Mailer:       newMailer(cfg, log),
		Tokens:       tokens,
		AppName:      cfg.AppName,
		BaseURL:      cfg.BaseURL,
		LoginLimiter: loginLimiter,
		Ready: []func(context.Context) error{
			pg.Healthcheck(pool),
			redis.Healthcheck(redisClient),
		},
	})

	eg, ctx := errgroup.WithContext(ctx)

	srv, err := server.NewFromConfig(cfg.Server,
		server.WithLogger(log.With("component", "server")),
	)
	if err != nil {
		log.Error("invalid server configuration", logger.Error(err))
		os.Exit(1)
	}
	eg.Go(srv.Run(ctx, r))
	eg.Go(sessionSweeper(ctx, sessions, cfg.SessionCleanupInterval, log))

	if err := eg.Wait(); err != nil {
		log.Error("application failed", logger.Error(err))
		os.Exit(1)
	}
	log.Info("application stopped")
}

// newLogger builds the process logger for the configured environment.
func newLogger(cfg api.Config) *slog.Logger {
	if cfg.Env == "production" {
		return logger.New(logger.WithProduction(cfg.AppName))
	}
	return logger.New(logger.WithDevelopment(cfg.AppName))
}

// newMailer picks Postmark when a server token is configured and the
// file-writing dev sender otherwise.
func newMailer(cfg api.Config, log *slog.Logger) email.EmailSender {
	if cfg.Email.PostmarkServerToken != "" {
		return postmark.MustNewClient(cfg.Email)
	}
	log.Warn("no postmark token configured, writing emails to disk",
		logger.Component("email"), slog.String("dir", cfg.EmailDevDir))
	return email.NewDevSender(cfg.EmailDevDir)
}

// sessionSweeper deletes expired and dropped session rows on a fixed
// interval until the context ends.
func sessionSweeper(ctx context.Context, sessions *session.Manager, interval time.Duration, log *slog.Logger) func() error {
	return func() error {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return nil
			case <-ticker.C:
				n, err := sessions.CleanupExpired(ctx)
				if err != nil {
					log.Error("session cleanup failed", logger.Component("session.cleanup"), logger.Error(err))
					continue
				}
				if n > 0 {
					log.Info("removed stale sessions", logger.Component("session.cleanup"), logger.Count("sessions", int(n)))
				}
			}
		}
	}
}
