package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/shopspring/decimal"
	"github.com/spf13/viper"
)

// Config holds all application configuration
type Config struct {
	App      AppConfig
	Database DatabaseConfig
	Redis    RedisConfig
	JWT      JWTConfig
	Log      LogConfig
	Paystack PaystackConfig
	Fees     FeeConfig
	SMTP     SMTPConfig
	Email    EmailConfig
	Storage  StorageConfig
}

type AppConfig struct {
	Name      string
	Env       string
	Port      string
	PublicURL string
}

type DatabaseConfig struct {
	URL            string
	MaxOpenConns   int
	MaxIdleConns   int
	MigrationsPath string
}

type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

type JWTConfig struct {
	Secret string
	TTL    time.Duration
}

type LogConfig struct {
	Level  string
	Format string
}

type PaystackConfig struct {
	SecretKey string
	BaseURL   string
}

// FeeConfig carries the platform's revenue split.
type FeeConfig struct {
	PlatformPercent       decimal.Decimal // share kept by the platform on each sale
	SupportCommissionRate decimal.Decimal // fraction of assigned vendors' sales paid to support staff
}

type SMTPConfig struct {
	Host     string
	Port     int
	Secure   bool
	User     string
	Password string
}

type EmailConfig struct {
	AllowedSenders []string
	RatePerMinute  int
}

type StorageConfig struct {
	Endpoint     string
	Region       string
	Bucket       string
	AccessKey    string
	SecretKey    string
	UsePathStyle bool
	PresignTTL   time.Duration
}

// IsProduction reports whether the app runs with APP_ENV=production.
func (c *Config) IsProduction() bool { return c.App.Env == "production" }

// Load reads .env (if present) and environment variables into a Config.
func Load() (*Config, error) {
	_ = godotenv.Load()

	v := viper.New()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	setDefaults(v)

	platformFee, err := decimal.NewFromString(v.GetString("platform_fee_percent"))
	if err != nil {
		return nil, fmt.Errorf("PLATFORM_FEE_PERCENT: %w", err)
	}
	commission, err := decimal.NewFromString(v.GetString("support_commission_rate"))
	if err != nil {
		return nil, fmt.Errorf("SUPPORT_COMMISSION_RATE: %w", err)
	}

	cfg := &Config{
		App: AppConfig{
			Name:      v.GetString("app_name"),
			Env:       v.GetString("app_env"),
			Port:      v.GetString("app_port"),
			PublicURL: strings.TrimRight(v.GetString("app_public_url"), "/"),
		},
		Database: DatabaseConfig{
			URL:            v.GetString("database_url"),
			MaxOpenConns:   v.GetInt("database_max_open_conns"),
			MaxIdleConns:   v.GetInt("database_max_idle_conns"),
			MigrationsPath: v.GetString("migrations_path"),
		},
		Redis: RedisConfig{
			Addr:     v.GetString("redis_addr"),
			Password: v.GetString("redis_password"),
			DB:       v.GetInt("redis_db"),
		},
		JWT: JWTConfig{
			Secret: v.GetString("jwt_secret"),
			TTL:    v.GetDuration("jwt_ttl"),
		},
		Log: LogConfig{
			Level:  v.GetString("log_level"),
			Format: v.GetString("log_format"),
		},
		Paystack: PaystackConfig{
			SecretKey: v.GetString("paystack_secret_key"),
			BaseURL:   strings.TrimRight(v.GetString("paystack_base_url"), "/"),
		},
		Fees: FeeConfig{
			PlatformPercent:       platformFee,
			SupportCommissionRate: commission,
		},
		SMTP: SMTPConfig{
			Host:     v.GetString("smtp_host"),
			Port:     v.GetInt("smtp_port"),
			Secure:   v.GetBool("smtp_secure"),
			User:     v.GetString("smtp_user"),
			Password: v.GetString("smtp_pass"),
		},
		Email: EmailConfig{
			AllowedSenders: splitList(v.GetString("email_allowed_senders")),
			RatePerMinute:  v.GetInt("email_rate_per_minute"),
		},
		Storage: StorageConfig{
			Endpoint:     v.GetString("s3_endpoint"),
			Region:       v.GetString("s3_region"),
			Bucket:       v.GetString("s3_bucket"),
			AccessKey:    v.GetString("s3_access_key"),
			SecretKey:    v.GetString("s3_secret_key"),
			UsePathStyle: v.GetBool("s3_use_path_style"),
			PresignTTL:   v.GetDuration("s3_presign_ttl"),
		},
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("app_name", "foodrient-api")
	v.SetDefault("app_env", "development")
	v.SetDefault("app_port", "8080")
	v.SetDefault("app_public_url", "http://localhost:5173")
	v.SetDefault("database_max_open_conns", 25)
	v.SetDefault("database_max_idle_conns", 5)
	v.SetDefault("migrations_path", "migrations")
	v.SetDefault("redis_addr", "localhost:6379")
	v.SetDefault("redis_db", 0)
	v.SetDefault("jwt_ttl", "24h")
	v.SetDefault("log_level", "info")
	v.SetDefault("log_format", "json")
	v.SetDefault("paystack_base_url", "https://api.paystack.co")
	v.SetDefault("platform_fee_percent", "5")
	v.SetDefault("support_commission_rate", "0.01")
	v.SetDefault("smtp_port", 587)
	v.SetDefault("smtp_secure", false)
	v.SetDefault("email_allowed_senders", "support@foodrient.com,resolutions@foodrient.com")
	v.SetDefault("email_rate_per_minute", 30)
	v.SetDefault("s3_region", "us-east-1")
	v.SetDefault("s3_bucket", "foodrient")
	v.SetDefault("s3_use_path_style", true)
	v.SetDefault("s3_presign_ttl", "15m")
}

func (c *Config) validate() error {
	if c.Database.URL == "" {
		return errors.New("DATABASE_URL is required")
	}
	if c.JWT.Secret == "" {
		if c.IsProduction() {
			return errors.New("JWT_SECRET is required in production")
		}
		c.JWT.Secret = "dev-secret-change-me"
	}
	if c.Fees.PlatformPercent.IsNegative() || c.Fees.PlatformPercent.GreaterThan(decimal.NewFromInt(100)) {
		return errors.New("PLATFORM_FEE_PERCENT must be between 0 and 100")
	}
	if c.Fees.SupportCommissionRate.IsNegative() || c.Fees.SupportCommissionRate.GreaterThan(decimal.NewFromInt(1)) {
		return errors.New("SUPPORT_COMMISSION_RATE must be between 0 and 1")
	}
	if len(c.Email.AllowedSenders) == 0 {
		return errors.New("EMAIL_ALLOWED_SENDERS must list at least one address")
	}
	return nil
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, strings.ToLower(p))
		}
	}
	return out
}
