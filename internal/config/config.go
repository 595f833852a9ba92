package config

import (
	"time"

	"github.com/caarlos0/env/v10"
)

// Config centraliza la configuración del servicio.
type Config struct {
	HTTPPort      string `env:"HTTP_PORT" envDefault:"3000"`
	DatabaseURL   string `env:"DATABASE_URL,required,notEmpty"`
	DBMaxConns    int32  `env:"DB_MAX_CONNS" envDefault:"10"`
	PublicBaseURL string `env:"PUBLIC_BASE_URL" envDefault:"http://localhost:3000"`

	JWTSecret         string        `env:"JWT_SECRET,required,notEmpty"`
	SessionTTL        time.Duration `env:"SESSION_TTL" envDefault:"168h"`
	EphemeralTokenTTL time.Duration `env:"EPHEMERAL_TOKEN_TTL" envDefault:"72h"`
	CookieSecure      bool          `env:"COOKIE_SECURE" envDefault:"false"`
	CookieDomain      string        `env:"COOKIE_DOMAIN"`

	RateLimitWindow      time.Duration `env:"RATE_LIMIT_WINDOW" envDefault:"15m"`
	RateLimitMax         int           `env:"RATE_LIMIT_MAX" envDefault:"100"`
	LoginRateLimitWindow time.Duration `env:"LOGIN_RATE_LIMIT_WINDOW" envDefault:"1m"`
	LoginRateLimitMax    int           `env:"LOGIN_RATE_LIMIT_MAX" envDefault:"100"`

	MigrateOnStart          bool `env:"MIGRATE_ON_START" envDefault:"true"`
	PruneVacantTasksOnStart bool `env:"PRUNE_VACANT_TASKS_ON_START" envDefault:"true"`

	SMTPHost     string `env:"SMTP_HOST"`
	SMTPPort     int    `env:"SMTP_PORT" envDefault:"587"`
	SMTPUser     string `env:"SMTP_USER"`
	SMTPPass     string `env:"SMTP_PASS"`
	SMTPFrom     string `env:"SMTP_FROM"`
	SMTPFromName string `env:"SMTP_FROM_NAME" envDefault:"Tasks"`
	SMTPUseTLS   bool   `env:"SMTP_USE_TLS" envDefault:"false"`

	RedisAddr     string `env:"REDIS_ADDR"`
	RedisPassword string `env:"REDIS_PASSWORD"`
	RedisDB       int    `env:"REDIS_DB" envDefault:"0"`
}

// LoadConfig carga la configuración desde variables de entorno.
func LoadConfig() (*Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}
