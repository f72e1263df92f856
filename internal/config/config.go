package config

import (
	"time"

	"github.com/caarlos0/env/v6"
)

// Config holds all process-wide settings. It is parsed once in main and
// passed to constructors; nothing reads the environment at call time.
type Config struct {
	Host string `env:"HOST" envDefault:"0.0.0.0"`
	Port uint16 `env:"PORT" envDefault:"8080"`

	DBDriver string `env:"DB_DRIVER" envDefault:"sqlite3"`
	DBSource string `env:"DB_SOURCE" envDefault:"linkup.db"`

	JWTSecret string        `env:"JWT_SECRET" envDefault:"super-secret-key-change-me-in-production"`
	TokenTTL  time.Duration `env:"TOKEN_TTL" envDefault:"168h"`

	OtpExpiry      time.Duration `env:"OTP_EXPIRES" envDefault:"10m"`
	OtpMaxAttempts int           `env:"OTP_MAX_ATTEMPTS" envDefault:"5"`

	SMTPHost string `env:"SMTP_HOST"`
	SMTPPort string `env:"SMTP_PORT" envDefault:"587"`
	SMTPUser string `env:"SMTP_USER"`
	SMTPPass string `env:"SMTP_PASS"`
	SMTPFrom string `env:"SMTP_FROM"`
}

func Load() (Config, error) {
	cfg := Config{}
	if err := env.Parse(&cfg); err != nil {
		return Config{}, err
	}
	return cfg, nil
}
