package config

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

var (
	ErrMissingJWTSecret = errors.New("JWT_SECRET must be set")
	ErrWeakJWTSecret    = errors.New("JWT_SECRET must be at least 32 bytes in prod")
	ErrInvalidJWTTTL    = errors.New("JWT_LIFETIME must be positive")
	ErrInvalidBcrypt    = errors.New("BCRYPT_COST must be between 10 and 14")
)

type Config struct {
	Env   string `env:"APP_ENV" envDefault:"dev"`
	Port  int    `env:"PORT" envDefault:"8080"`
	DBURL string `env:"DATABASE_URL"`

	DB DB `envPrefix:"DB_"`

	JWTSecret   string        `env:"JWT_SECRET"`
	JWTLifetime time.Duration `env:"JWT_LIFETIME" envDefault:"24h"`
	BcryptCost  int           `env:"BCRYPT_COST" envDefault:"12"`

	// Empty means therapist self-registration is misconfigured, not open.
	TherapistInviteCode string `env:"THERAPIST_INVITE_CODE"`

	Redis Redis `envPrefix:"REDIS_"`

	AuthRateLimit  int           `env:"AUTH_RATE_LIMIT" envDefault:"20"`
	AuthRateWindow time.Duration `env:"AUTH_RATE_WINDOW" envDefault:"1m"`

	CORSAllowedOrigins []string `env:"CORS_ALLOWED_ORIGINS" envSeparator:","`
	MaxBodyBytes       int64    `env:"MAX_BODY_BYTES" envDefault:"1048576"`

	OTLPEndpoint string `env:"OTEL_EXPORTER_OTLP_ENDPOINT"`
	ServiceName  string `env:"OTEL_SERVICE_NAME" envDefault:"coter-api"`

	Seed   Seed   `envPrefix:"SEED_THERAPIST_"`
	Worker Worker `envPrefix:"WORKER_"`
}

type DB struct {
	Host     string `env:"HOST" envDefault:"127.0.0.1"`
	Port     string `env:"PORT" envDefault:"5432"`
	User     string `env:"USER" envDefault:"coter"`
	Password string `env:"PASSWORD" envDefault:"coter"`
	Name     string `env:"NAME" envDefault:"coter"`
	SSLMode  string `env:"SSLMODE" envDefault:"disable"`
	MaxConns int32  `env:"MAX_CONNS" envDefault:"10"`
}

type Redis struct {
	Addr     string `env:"ADDR"`
	Password string `env:"PASSWORD"`
	DB       int    `env:"DB" envDefault:"0"`
}

// Seed describes an optional therapist account created at startup.
type Seed struct {
	Email     string `env:"EMAIL"`
	Password  string `env:"PASSWORD"`
	FirstName string `env:"FIRST_NAME" envDefault:"Therapist"`
}

type Worker struct {
	PollInterval  time.Duration `env:"POLL_INTERVAL" envDefault:"500ms"`
	Concurrency   int           `env:"CONCURRENCY" envDefault:"2"`
	HealthPort    int           `env:"HEALTH_PORT" envDefault:"8081"`
	ShutdownGrace time.Duration `env:"SHUTDOWN_GRACE" envDefault:"10s"`
	LockTTL       time.Duration `env:"LOCK_TTL" envDefault:"1m"`
}

// Load reads an optional .env file, then the process environment.
// A missing signing secret is fatal: there is no built-in fallback.
func Load() (Config, error) {
	_ = godotenv.Load()

	return Parse()
}

// Parse reads configuration from the process environment only.
func Parse() (Config, error) {
	var cfg Config

	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("parse config: %w", err)
	}

	if cfg.DBURL == "" {
		cfg.DBURL = cfg.DB.URL()
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}

	return cfg, nil
}

func (c Config) Validate() error {
	if c.JWTSecret == "" {
		return ErrMissingJWTSecret
	}

	if c.IsProd() && len(c.JWTSecret) < 32 {
		return ErrWeakJWTSecret
	}

	if c.JWTLifetime <= 0 {
		return ErrInvalidJWTTTL
	}

	if c.BcryptCost < 10 || c.BcryptCost > 14 {
		return ErrInvalidBcrypt
	}

	return nil
}

func (c Config) IsProd() bool {
	return c.Env == "prod"
}

func (d DB) URL() string {
	return "postgres://" + d.User + ":" + d.Password + "@" + d.Host + ":" + d.Port + "/" + d.Name + "?sslmode=" + d.SSLMode
}

// WithTimeout bounds work done on behalf of parent, usually ctx.Request.Context(),
// so a client disconnect cancels the store call too.
func WithTimeout(parent context.Context, duration time.Duration) (context.Context, context.CancelFunc) {
	if parent == nil {
		parent = context.Background()
	}
	return context.WithTimeout(parent, duration)
}
