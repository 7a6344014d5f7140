package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
)

const (
	EnvPrefix = ""

	AppEnvDev  = "dev"
	AppEnvProd = "prod"
)

type Config struct {
	App      AppConfig
	Stripe   StripeConfig
	SMTP     SMTPConfig
	GCP      GCPConfig
	CORS     CORSConfig
	Redis    RedisConfig
	Receipts ReceiptsConfig
}

func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process(EnvPrefix, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	if err := cfg.GCP.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

type AppConfig struct {
	Env          string `envconfig:"ZAINA_APP_ENV" required:"true"`
	Port         string `envconfig:"ZAINA_APP_PORT" default:"8080"`
	LogLevel     string `envconfig:"ZAINA_LOG_LEVEL" default:"info"`
	LogWarnStack bool   `envconfig:"ZAINA_LOG_WARN_STACK" default:"false"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

type StripeConfig struct {
	APIKey string `envconfig:"ZAINA_STRIPE_API_KEY" required:"true"`
	Secret string `envconfig:"ZAINA_STRIPE_WEBHOOK_SECRET" required:"true"`
	Env    string `envconfig:"ZAINA_STRIPE_ENV" default:"test"`
}

// Environment returns the normalized Stripe environment (test/live).
func (s StripeConfig) Environment() string {
	env := strings.TrimSpace(strings.ToLower(s.Env))
	if env == "" {
		return "test"
	}
	return env
}

type SMTPConfig struct {
	Host     string `envconfig:"ZAINA_SMTP_HOST" required:"true"`
	Port     int    `envconfig:"ZAINA_SMTP_PORT" default:"587"`
	Username string `envconfig:"ZAINA_SMTP_USERNAME"`
	Password string `envconfig:"ZAINA_SMTP_PASSWORD"`
	From     string `envconfig:"ZAINA_SMTP_FROM" required:"true"`
}

type GCPConfig struct {
	ProjectID       string `envconfig:"ZAINA_GCP_PROJECT_ID" required:"true"`
	CredentialsJSON string `envconfig:"ZAINA_GCP_CREDENTIALS_JSON"`
	CredentialsFile string `envconfig:"ZAINA_GOOGLE_APPLICATION_CREDENTIALS"`
}

func (g GCPConfig) validate() error {
	if g.CredentialsJSON != "" && g.CredentialsFile != "" {
		return fmt.Errorf("set either inline credentials JSON or a credentials file, not both")
	}
	return nil
}

type CORSConfig struct {
	AllowedOrigins []string `envconfig:"ZAINA_CORS_ALLOWED_ORIGINS" default:"http://localhost:3000"`
}

type RedisConfig struct {
	URL            string        `envconfig:"ZAINA_REDIS_URL" required:"true"`
	DialTimeout    time.Duration `envconfig:"ZAINA_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout    time.Duration `envconfig:"ZAINA_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout   time.Duration `envconfig:"ZAINA_REDIS_WRITE_TIMEOUT" default:"5s"`
	IdempotencyTTL time.Duration `envconfig:"ZAINA_REDIS_IDEMPOTENCY_TTL" default:"72h"`
}

type ReceiptsConfig struct {
	MailQueueSize  int           `envconfig:"ZAINA_RECEIPT_MAIL_QUEUE_SIZE" default:"64"`
	MailMaxRetries uint64        `envconfig:"ZAINA_RECEIPT_MAIL_MAX_RETRIES" default:"3"`
	MailRetryBase  time.Duration `envconfig:"ZAINA_RECEIPT_MAIL_RETRY_BASE" default:"2s"`
	RenderTimeout  time.Duration `envconfig:"ZAINA_RECEIPT_RENDER_TIMEOUT" default:"45s"`
	TrackingURL    string        `envconfig:"ZAINA_RECEIPT_TRACKING_URL" default:"https://zaina.ae/orders"`
}
