package app

import (
	"errors"
	"time"

	"github.com/caarlos0/env/v11"
)

// Config is the full runtime configuration, loaded once from the
// environment and passed by value from there on.
type Config struct {
	// BotToken is the platform bot token init payloads are signed with.
	// Required unless verification is explicitly disabled.
	BotToken string `env:"BOT_TOKEN"`

	// InsecureSkipVerify disables signature verification. Development
	// only; the account gate still applies.
	InsecureSkipVerify bool `env:"INSECURE_SKIP_VERIFY" envDefault:"false"`

	DatabaseFile string `env:"DATABASE_FILE" envDefault:"miniapp.db"`

	// Seed admin: created at startup if absent so a fresh deployment
	// has someone who can mint invites. Zero id disables seeding.
	SeedAdminTgID       int64   `env:"SEED_ADMIN_TG_ID"`
	SeedAdminName       string  `env:"SEED_ADMIN_NAME" envDefault:"Admin"`
	SeedAdminUsername   string  `env:"SEED_ADMIN_USERNAME"`
	SeedAdminBalanceRub float64 `env:"SEED_ADMIN_BALANCE_RUB" envDefault:"0"`
	SeedAdminTariffID   *int64  `env:"SEED_ADMIN_TARIFF_ID"`

	Env       string `env:"ENV" envDefault:"dev"`
	LogLevel  string `env:"LOG_LEVEL" envDefault:"info"`
	LogFormat string `env:"LOG_FORMAT" envDefault:"json"`

	Port                 int           `env:"PORT" envDefault:"8080"`
	ShutdownGracePeriod  time.Duration `env:"SHUTDOWN_GRACE_PERIOD" envDefault:"10s"`
	HousekeepingInterval time.Duration `env:"HOUSEKEEPING_INTERVAL" envDefault:"1h"`

	// InviteTTL applies to every minted code; zero disables expiry.
	InviteTTL time.Duration `env:"INVITE_TTL" envDefault:"168h"`
}

func LoadConfig() (Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, err
	}

	if cfg.BotToken == "" && !cfg.InsecureSkipVerify {
		return Config{}, errors.New("BOT_TOKEN is required unless INSECURE_SKIP_VERIFY is set")
	}

	return cfg, nil
}
