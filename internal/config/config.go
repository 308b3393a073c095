package config

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"

	"github.com/Dias221467/social-network/internal/services"
)

// Config holds every setting the server reads from the environment.
type Config struct {
	Port        string        `env:"PORT" envDefault:"8080"`
	MongoURI    string        `env:"MONGO_URI" envDefault:"mongodb://localhost:27017"`
	MongoDB     string        `env:"MONGO_DB" envDefault:"social_network"`
	RedisURI    string        `env:"REDIS_URI"`
	JWTSecret   string        `env:"JWT_SECRET" envDefault:"change-me"`
	TokenExpiry time.Duration `env:"TOKEN_EXPIRY" envDefault:"24h"`
	LogLevel    string        `env:"LOG_LEVEL" envDefault:"info"`

	// Credential engine
	BcryptCost      int           `env:"BCRYPT_COST" envDefault:"10"`
	OTPLength       int           `env:"OTP_LENGTH" envDefault:"6"`
	OTPTTL          time.Duration `env:"OTP_TTL" envDefault:"1h"`
	MaxFailedLogins int           `env:"MAX_FAILED_LOGINS" envDefault:"5"`
	MinAge          int           `env:"MIN_AGE" envDefault:"16"`
	MaxAge          int           `env:"MAX_AGE" envDefault:"100"`
	PhoneRegion     string        `env:"PHONE_REGION" envDefault:"VN"`

	PairLockTTL       time.Duration `env:"PAIR_LOCK_TTL" envDefault:"5s"`
	ReconcileSchedule string        `env:"RECONCILE_SCHEDULE" envDefault:"@daily"`

	SMTPHost     string        `env:"SMTP_HOST" envDefault:"localhost"`
	SMTPPort     int           `env:"SMTP_PORT" envDefault:"587"`
	SMTPUsername string        `env:"SMTP_USERNAME"`
	SMTPPassword string        `env:"SMTP_PASSWORD"`
	SMTPSender   string        `env:"SMTP_SENDER" envDefault:"no-reply@social.local"`
	SMTPTimeout  time.Duration `env:"SMTP_TIMEOUT" envDefault:"15s"`

	AllowedOrigins []string `env:"ALLOWED_ORIGINS" envSeparator:"," envDefault:"http://localhost:3000"`
}

// LoadConfig reads .env (if present) and the process environment.
func LoadConfig() (*Config, error) {
	if err := godotenv.Load(); err != nil {
		logrus.Info("No .env file found, using environment")
	}
	return Parse()
}

// Parse builds a Config from the process environment only.
func Parse() (*Config, error) {
	return parse(env.Options{})
}

func parse(opts env.Options) (*Config, error) {
	cfg := &Config{}
	if err := env.ParseWithOptions(cfg, opts); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}
	if cfg.MaxFailedLogins < 1 {
		return nil, fmt.Errorf("MAX_FAILED_LOGINS must be positive, got %d", cfg.MaxFailedLogins)
	}
	if cfg.OTPLength < 4 {
		return nil, fmt.Errorf("OTP_LENGTH must be at least 4, got %d", cfg.OTPLength)
	}
	if cfg.MinAge > cfg.MaxAge {
		return nil, fmt.Errorf("MIN_AGE (%d) exceeds MAX_AGE (%d)", cfg.MinAge, cfg.MaxAge)
	}
	return cfg, nil
}

// Credentials is the settings struct handed to the credential engine.
func (c *Config) Credentials() services.CredentialConfig {
	return services.CredentialConfig{
		OTPLength:       c.OTPLength,
		OTPTTL:          c.OTPTTL,
		MaxFailedLogins: c.MaxFailedLogins,
		MinAge:          c.MinAge,
		MaxAge:          c.MaxAge,
		PhoneRegion:     c.PhoneRegion,
		JWTSecret:       c.JWTSecret,
		TokenExpiry:     c.TokenExpiry,
	}
}
