package shared

import (
	"errors"
	"fmt"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
	"github.com/rs/zerolog/log"
)

type Config struct {
	AppEnv   string `env:"APP_ENV" env-default:"prod"`
	LogLevel string `env:"LOG_LEVEL" env-default:"info"`

	HTTPAddr       string        `env:"HTTP_ADDR" env-default:":8080"`
	MetricsAddr    string        `env:"METRICS_ADDR" env-default:":9100"`
	HTTPTimeout    time.Duration `env:"HTTP_TIMEOUT" env-default:"15s"`
	AllowedOrigins []string      `env:"CORS_ALLOWED_ORIGINS" env-separator:"," env-default:"http://localhost:3000"`
	RatePerMinute  int           `env:"RATE_LIMIT_PER_MINUTE" env-default:"300"`

	MySQLDSN string `env:"MYSQL_DSN" env-default:"root:root@tcp(localhost:3306)/reputation?parseTime=true&charset=utf8mb4,utf8&loc=UTC"`

	RedisAddr   string        `env:"REDIS_ADDR" env-default:"localhost:6379"`
	RedisPass   string        `env:"REDIS_PASSWORD"`
	RedisDB     int           `env:"REDIS_DB" env-default:"0"`
	RedisPrefix string        `env:"REDIS_PREFIX" env-default:"rh:"`
	CacheTTL    time.Duration `env:"CACHE_TTL" env-default:"5m"`

	GoogleClientID     string `env:"GOOGLE_CLIENT_ID"`
	GoogleClientSecret string `env:"GOOGLE_CLIENT_SECRET"`
	GoogleRedirectURL  string `env:"GOOGLE_REDIRECT_URI" env-default:"http://localhost:8080/v1/gbp/auth/callback"`
	GoogleRPS          int    `env:"GOOGLE_RPS" env-default:"5"`
	AppURL             string `env:"APP_URL" env-default:"http://localhost:3000"`

	GeminiKey     string `env:"GEMINI_API_KEY"`
	GeminiModel   string `env:"GEMINI_MODEL" env-default:"gemini-2.0-flash"`
	GeminiBaseURL string `env:"GEMINI_BASE_URL" env-default:"https://generativelanguage.googleapis.com/v1beta"`
	GeminiRPS     int    `env:"GEMINI_RPS" env-default:"2"`

	SyncWorkers      int `env:"SYNC_WORKERS" env-default:"8"`
	AuditConcurrency int `env:"AUDIT_CONCURRENCY" env-default:"4"`
	AuditBatch       int `env:"AUDIT_BATCH" env-default:"0"`

	JWTSecret     string `env:"JWT_SECRET"`
	WebhookSecret string `env:"WEBHOOK_SECRET"`
	MailFrom      string `env:"MAIL_FROM" env-default:"surveys@localhost"`
}

// Load reads the process environment, applying defaults for anything unset.
func Load() (Config, error) {
	var c Config
	if err := cleanenv.ReadEnv(&c); err != nil {
		return Config{}, fmt.Errorf("config: read env: %w", err)
	}
	if err := c.Validate(); err != nil {
		return Config{}, fmt.Errorf("config: validate: %w", err)
	}

	if c.GoogleClientID == "" || c.GoogleClientSecret == "" {
		log.Warn().Msg("GOOGLE_CLIENT_ID/GOOGLE_CLIENT_SECRET empty; sync will be skipped")
	}
	if c.GeminiKey == "" {
		log.Warn().Msg("GEMINI_API_KEY is empty; audit and drafts fall back")
	}
	if c.WebhookSecret == "" {
		log.Warn().Msg("WEBHOOK_SECRET is empty; resident webhook rejects every call")
	}
	return c, nil
}

func (c Config) Validate() error {
	var errs []error
	if c.SyncWorkers <= 0 {
		errs = append(errs, errors.New("SYNC_WORKERS must be positive"))
	}
	if c.AuditConcurrency <= 0 {
		errs = append(errs, errors.New("AUDIT_CONCURRENCY must be positive"))
	}
	if c.AuditBatch < 0 {
		errs = append(errs, errors.New("AUDIT_BATCH must not be negative"))
	}
	if c.CacheTTL < 0 {
		errs = append(errs, errors.New("CACHE_TTL must not be negative"))
	}
	return errors.Join(errs...)
}

// RequireAPI checks the settings only the HTTP binary needs.
func (c Config) RequireAPI() error {
	if len(c.JWTSecret) < 16 {
		return errors.New("JWT_SECRET must be at least 16 characters")
	}
	return nil
}
