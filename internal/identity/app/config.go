package app

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
)

// Config is the full runtime configuration, loaded from the environment.
type Config struct {
	Issuer         string `env:"IDENTITY_ISSUER" envDefault:"expressmart-identity"`
	BaseURL        string `env:"IDENTITY_BASE_URL" envDefault:"http://localhost:8080"`
	BootstrapToken string `env:"BOOTSTRAP_TOKEN"`

	DatabaseFile   string `env:"IDENTITY_DATABASE_FILE" envDefault:"identity.db"`
	PepperFile     string `env:"IDENTITY_PEPPER_FILE" envDefault:"pepper"`
	SigningKeyFile string `env:"IDENTITY_SIGNING_KEY_FILE"` // Optional: PEM Ed25519 key; ephemeral when unset

	Env       string `env:"ENV" envDefault:"dev"`
	LogLevel  string `env:"LOG_LEVEL" envDefault:"info"`
	LogFormat string `env:"LOG_FORMAT" envDefault:"json"`
	Port      int    `env:"PORT" envDefault:"8080"`

	ShutdownGracePeriod time.Duration `env:"SHUTDOWN_GRACE_PERIOD" envDefault:"10s"`

	// Workflow token lifetimes. Both invitation and reset links die after
	// twenty minutes unless configured otherwise.
	InviteTTL  time.Duration `env:"INVITE_TTL" envDefault:"20m"`
	ResetTTL   time.Duration `env:"RESET_TTL" envDefault:"20m"`
	AccessTTL  time.Duration `env:"ACCESS_TOKEN_TTL" envDefault:"15m"`
	RefreshTTL time.Duration `env:"REFRESH_TOKEN_TTL" envDefault:"168h"`

	// HousekeepingInterval of 0 disables the background sweeper.
	HousekeepingInterval time.Duration `env:"HOUSEKEEPING_INTERVAL" envDefault:"1h"`

	// Reset workflow edge behaviour.
	MaskUnknownEmail      bool `env:"RESET_MASK_UNKNOWN_EMAIL"`
	RejectExpiredApproval bool `env:"RESET_REJECT_EXPIRED_APPROVAL"`

	// Outbound mail. When SMTPHost is empty notifications go to the log.
	SMTPHost     string `env:"SMTP_HOST"`
	SMTPPort     int    `env:"SMTP_PORT" envDefault:"587"`
	SMTPUsername string `env:"SMTP_USERNAME"`
	SMTPPassword string `env:"SMTP_PASSWORD"`
	SMTPFrom     string `env:"SMTP_FROM" envDefault:"no-reply@expressmart.example"`
}

func LoadConfig() (Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("app: parse config: %w", err)
	}
	return cfg, nil
}
