package config

import "github.com/caarlos0/env/v10"

// Config centraliza la configuración del servicio.
type Config struct {
	HTTPPort      string `env:"HTTP_PORT" envDefault:"8080"`
	AppEnv        string `env:"APP_ENV" envDefault:"production"`
	DatabaseURL   string `env:"DATABASE_URL,required"`
	RunMigrations bool   `env:"RUN_MIGRATIONS" envDefault:"false"`

	// IdentityProvider elige el adaptador de identidad: hosted, local o memory.
	IdentityProvider string `env:"IDENTITY_PROVIDER" envDefault:"hosted"`
	AuthURL          string `env:"AUTH_URL"`
	AuthAnonKey      string `env:"AUTH_ANON_KEY"`
	SiteURL          string `env:"SITE_URL" envDefault:"http://localhost:3000"`

	JWTSecret            string `env:"JWT_SECRET"`
	JWTAccessTTLMinutes  int    `env:"JWT_ACCESS_TTL_MINUTES" envDefault:"15"`
	JWTRefreshTTLMinutes int    `env:"JWT_REFRESH_TTL_MINUTES" envDefault:"43200"`

	SMTPHost     string `env:"SMTP_HOST"`
	SMTPPort     int    `env:"SMTP_PORT" envDefault:"587"`
	SMTPUser     string `env:"SMTP_USER"`
	SMTPPass     string `env:"SMTP_PASS"`
	SMTPFrom     string `env:"SMTP_FROM"`
	SMTPFromName string `env:"SMTP_FROM_NAME" envDefault:"RecipeShare"`
	SMTPUseTLS   bool   `env:"SMTP_USE_TLS" envDefault:"false"`

	RedisAddr     string `env:"REDIS_ADDR"`
	RedisPassword string `env:"REDIS_PASSWORD"`
	RedisDB       int    `env:"REDIS_DB" envDefault:"0"`

	NATSURL string `env:"NATS_URL"`

	RateLimitRPS   float64 `env:"RATE_LIMIT_RPS" envDefault:"10"`
	RateLimitBurst int     `env:"RATE_LIMIT_BURST" envDefault:"40"`

	FeedPageSize    int `env:"FEED_PAGE_SIZE" envDefault:"20"`
	FeedMaxPageSize int `env:"FEED_MAX_PAGE_SIZE" envDefault:"100"`
}

// LoadConfig carga la configuración desde variables de entorno.
func LoadConfig() (*Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// IsDev indica si el servicio corre en modo desarrollo.
func (c *Config) IsDev() bool {
	return c.AppEnv == "dev" || c.AppEnv == "development"
}
