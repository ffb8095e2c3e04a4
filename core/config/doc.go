// Package config loads typed configuration from the environment. Load
// parses env struct tags with caarlos0/env, pulls in a .env file on
// first use via godotenv, and caches the parsed value per type so
// every caller of the same config struct sees one consistent snapshot.
//
//	type Config struct {
//		Addr     string        `env:"SERVER_ADDR" envDefault:":8080"`
//		Secret   string        `env:"APP_SECRET,required"`
//		Interval time.Duration `env:"SESSION_CLEANUP_INTERVAL" envDefault:"1h"`
//	}
//
//	var cfg Config
//	config.MustLoad(&cfg)
//
// MustLoad panics on a missing required variable, which is the right
// behavior at startup: the process should refuse to boot half
// configured rather than fail later mid-request.
package config
