package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

const (
	StoreDriverPostgres = "postgres"
	StoreDriverMemory   = "memory"

	AuthModeFirebase = "firebase"
	AuthModeJWT      = "jwt"
)

type Config struct {
	Port           string `env:"PORT" envDefault:"3000"`
	GinMode        string `env:"GIN_MODE" envDefault:"debug"`
	LogLevel       string `env:"LOG_LEVEL" envDefault:"info"`
	AllowedOrigins string `env:"ALLOWED_ORIGINS" envDefault:"*"`
	StoreDriver    string `env:"STORE_DRIVER" envDefault:"postgres"`
	RedisURL       string `env:"REDIS_URL"`

	Database DatabaseConfig
	Auth     AuthConfig
	Payment  PaymentConfig
	Storage  StorageConfig
}

type DatabaseConfig struct {
	URL             string        `env:"DATABASE_URL"`
	Host            string        `env:"DB_HOST" envDefault:"localhost"`
	User            string        `env:"DB_USER"`
	Password        string        `env:"DB_PASSWORD"`
	Name            string        `env:"DB_NAME" envDefault:"zapshift"`
	Port            string        `env:"DB_PORT" envDefault:"5432"`
	MaxIdleConns    int           `env:"DB_MAX_IDLE_CONNS" envDefault:"10"`
	MaxOpenConns    int           `env:"DB_MAX_OPEN_CONNS" envDefault:"100"`
	ConnMaxLifetime time.Duration `env:"DB_CONN_MAX_LIFETIME" envDefault:"1h"`
}

// DSN returns DATABASE_URL when set, otherwise a keyword/value DSN built from
// the individual DB_* variables.
func (d DatabaseConfig) DSN() string {
	if d.URL != "" {
		return d.URL
	}
	return fmt.Sprintf(
		"host=%s user=%s password=%s dbname=%s port=%s sslmode=disable",
		d.Host, d.User, d.Password, d.Name, d.Port,
	)
}

type AuthConfig struct {
	Mode                       string `env:"AUTH_MODE" envDefault:"firebase"`
	FirebaseServiceAccountPath string `env:"FIREBASE_SERVICE_ACCOUNT_PATH"`
	JWTSecret                  string `env:"JWT_SECRET"`
	RidersTopic                string `env:"RIDERS_TOPIC" envDefault:"riders"`
}

type PaymentConfig struct {
	StripeSecretKey string `env:"STRIPE_SECRET_KEY"`
	Currency        string `env:"PAYMENT_CURRENCY" envDefault:"usd"`
	SiteDomain      string `env:"SITE_DOMAIN" envDefault:"http://localhost:5173"`
}

type StorageConfig struct {
	AWSRegion    string `env:"AWS_REGION"`
	AWSAccessKey string `env:"AWS_ACCESS_KEY_ID"`
	AWSSecretKey string `env:"AWS_SECRET_ACCESS_KEY"`
	Bucket       string `env:"AWS_S3_BUCKET"`
	UploadDir    string `env:"UPLOAD_DIR" envDefault:"./uploads"`
	BaseURL      string `env:"BASE_URL" envDefault:"http://localhost:3000"`
}

// UseS3 reports whether complete AWS credentials are configured.
func (s StorageConfig) UseS3() bool {
	return s.AWSRegion != "" && s.AWSAccessKey != "" && s.AWSSecretKey != ""
}

// Load reads an optional .env file and parses the environment into Config.
func Load() (*Config, error) {
	// .env is optional; real deployments pass plain environment variables.
	_ = godotenv.Load()

	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return nil, fmt.Errorf("parse env config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// LoadSection parses only the variables of one config section, for commands
// that do not need the whole server configuration.
func LoadSection(section any) error {
	_ = godotenv.Load()

	if err := env.Parse(section); err != nil {
		return fmt.Errorf("parse env config: %w", err)
	}
	return nil
}

// Validate checks that mode-dependent settings are present.
func (c *Config) Validate() error {
	var errs []error

	switch c.StoreDriver {
	case StoreDriverPostgres:
		if c.Database.URL == "" && c.Database.User == "" {
			errs = append(errs, errors.New("DATABASE_URL or DB_USER is required for the postgres store"))
		}
	case StoreDriverMemory:
	default:
		errs = append(errs, fmt.Errorf("unknown STORE_DRIVER %q", c.StoreDriver))
	}

	switch c.Auth.Mode {
	case AuthModeFirebase:
		if c.Auth.FirebaseServiceAccountPath == "" {
			errs = append(errs, errors.New("FIREBASE_SERVICE_ACCOUNT_PATH is required when AUTH_MODE=firebase"))
		}
	case AuthModeJWT:
		if c.Auth.JWTSecret == "" {
			errs = append(errs, errors.New("JWT_SECRET is required when AUTH_MODE=jwt"))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown AUTH_MODE %q", c.Auth.Mode))
	}

	if c.Payment.StripeSecretKey == "" {
		errs = append(errs, errors.New("STRIPE_SECRET_KEY is required"))
	}

	return errors.Join(errs...)
}

// Origins splits ALLOWED_ORIGINS on commas.
func (c *Config) Origins() []string {
	var origins []string
	for _, o := range strings.Split(c.AllowedOrigins, ",") {
		if o = strings.TrimSpace(o); o != "" {
			origins = append(origins, o)
		}
	}
	return origins
}

// Addr is the listen address for the HTTP server.
func (c *Config) Addr() string {
	return ":" + c.Port
}
