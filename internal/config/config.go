package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/labstack/gommon/random"
)

// Config represents the complete service configuration
type Config struct {
	App           AppConfig           `toml:"app"`
	Database      DatabaseConfig      `toml:"database"`
	Redis         RedisConfig         `toml:"redis"`
	Storage       StorageConfig       `toml:"storage"`
	Auth          AuthConfig          `toml:"auth"`
	Backend       BackendConfig       `toml:"backend"`
	Payments      PaymentsConfig      `toml:"payments"`
	Notifications NotificationsConfig `toml:"notifications"`
	AI            AIConfig            `toml:"ai"`
}

type AppConfig struct {
	Env      string `toml:"env"`
	Port     int    `toml:"port"`
	LogLevel string `toml:"log_level"`
	// LogFormat is json or console; empty picks console in development
	LogFormat string `toml:"log_format"`
	// PublicURL is used in links sent by email/SMS
	PublicURL string `toml:"public_url"`
}

type DatabaseConfig struct {
	URL      string `toml:"url"`
	MaxConns int32  `toml:"max_conns"`
}

type RedisConfig struct {
	Addr     string `toml:"addr"`
	Password string `toml:"password"`
	DB       int    `toml:"db"`
}

type StorageConfig struct {
	Endpoint  string `toml:"endpoint"`
	AccessKey string `toml:"access_key"`
	SecretKey string `toml:"secret_key"`
	Region    string `toml:"region"`
	UseSSL    bool   `toml:"use_ssl"`
}

type AuthConfig struct {
	JWTSecret         string `toml:"jwt_secret"`
	AccessTTLSeconds  int    `toml:"access_ttl_seconds"`
	RefreshTTLSeconds int    `toml:"refresh_ttl_seconds"`
	// MFAGraceDays is the delay granted to privileged roles before MFA is enforced
	MFAGraceDays int `toml:"mfa_grace_days"`
	// GeneratedSecret is set when no secret was configured
	GeneratedSecret bool `toml:"-"`
}

// BackendConfig points at the managed backend (auth, MFA factors, JWKS)
type BackendConfig struct {
	URL     string `toml:"url"`
	AnonKey string `toml:"anon_key"`
	JWKSURL string `toml:"jwks_url"`
}

type PaymentsConfig struct {
	WebhookSecret string `toml:"webhook_secret"`
	ProviderURL   string `toml:"provider_url"`
	ProviderKey   string `toml:"provider_key"`
}

type NotificationsConfig struct {
	EmailAPIURL string `toml:"email_api_url"`
	EmailAPIKey string `toml:"email_api_key"`
	EmailFrom   string `toml:"email_from"`
	SMSAPIURL   string `toml:"sms_api_url"`
	SMSAPIKey   string `toml:"sms_api_key"`
	SMSSender   string `toml:"sms_sender"`
}

type AIConfig struct {
	APIURL     string `toml:"api_url"`
	APIKey     string `toml:"api_key"`
	Model      string `toml:"model"`
	ImageModel string `toml:"image_model"`
	TimeoutSec int    `toml:"timeout_seconds"`
}

// Default returns the development defaults
func Default() *Config {
	return &Config{
		App: AppConfig{
			Env:       "development",
			Port:      8080,
			LogLevel:  "info",
			PublicURL: "http://localhost:5173",
		},
		Database: DatabaseConfig{MaxConns: 10},
		Redis:    RedisConfig{Addr: "localhost:6379"},
		Storage: StorageConfig{
			Endpoint:  "localhost:9000",
			AccessKey: "minioadmin",
			SecretKey: "minioadmin",
			Region:    "us-east-1",
		},
		Auth: AuthConfig{
			AccessTTLSeconds:  900,
			RefreshTTLSeconds: 7 * 24 * 3600,
			MFAGraceDays:      14,
		},
		Notifications: NotificationsConfig{
			EmailFrom: "Mon Toit <no-reply@montoit.ci>",
			SMSSender: "MONTOIT",
		},
		AI: AIConfig{
			Model:      "gpt-4o-mini",
			ImageModel: "gpt-image-1",
			TimeoutSec: 30,
		},
	}
}

// Load reads an optional TOML file then applies environment overrides
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		if _, err := os.Stat(path); err == nil {
			if _, err := toml.DecodeFile(path, cfg); err != nil {
				return nil, fmt.Errorf("failed to load config file: %w", err)
			}
		} else if !errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("failed to stat config file: %w", err)
		}
	}

	cfg.applyEnv()

	if cfg.Auth.JWTSecret == "" {
		cfg.Auth.JWTSecret = random.String(32)
		cfg.Auth.GeneratedSecret = true
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) applyEnv() {
	setString(&c.App.Env, "APP_ENV")
	setInt(&c.App.Port, "PORT")
	setString(&c.App.LogLevel, "LOG_LEVEL")
	setString(&c.App.LogFormat, "LOG_FORMAT")
	setString(&c.App.PublicURL, "PUBLIC_URL")

	setString(&c.Database.URL, "DATABASE_URL")

	setString(&c.Redis.Addr, "REDIS_ADDR")
	setString(&c.Redis.Password, "REDIS_PASSWORD")
	setInt(&c.Redis.DB, "REDIS_DB")

	setString(&c.Storage.Endpoint, "MINIO_ENDPOINT")
	setString(&c.Storage.AccessKey, "MINIO_ACCESS_KEY")
	setString(&c.Storage.SecretKey, "MINIO_SECRET_KEY")
	setString(&c.Storage.Region, "MINIO_REGION")
	if v := os.Getenv("MINIO_USE_SSL"); v != "" {
		c.Storage.UseSSL = v == "true"
	}

	setString(&c.Auth.JWTSecret, "JWT_SECRET")
	setInt(&c.Auth.MFAGraceDays, "MFA_GRACE_DAYS")

	setString(&c.Backend.URL, "SUPABASE_URL")
	setString(&c.Backend.AnonKey, "SUPABASE_ANON_KEY")
	setString(&c.Backend.JWKSURL, "SUPABASE_JWKS_URL")

	setString(&c.Payments.WebhookSecret, "PAYMENT_WEBHOOK_SECRET")
	setString(&c.Payments.ProviderURL, "PAYMENT_PROVIDER_URL")
	setString(&c.Payments.ProviderKey, "PAYMENT_PROVIDER_KEY")

	setString(&c.Notifications.EmailAPIURL, "EMAIL_API_URL")
	setString(&c.Notifications.EmailAPIKey, "EMAIL_API_KEY")
	setString(&c.Notifications.SMSAPIURL, "SMS_API_URL")
	setString(&c.Notifications.SMSAPIKey, "SMS_API_KEY")

	setString(&c.AI.APIURL, "AI_API_URL")
	setString(&c.AI.APIKey, "AI_API_KEY")
}

// Validate checks the settings the service cannot start without
func (c *Config) Validate() error {
	switch c.App.Env {
	case "development", "staging", "production", "test":
	default:
		return fmt.Errorf("unknown environment %q", c.App.Env)
	}
	if c.Database.URL == "" {
		return errors.New("DATABASE_URL environment variable is required")
	}
	if c.App.Port <= 0 || c.App.Port > 65535 {
		return fmt.Errorf("invalid port %d", c.App.Port)
	}
	if c.Auth.AccessTTLSeconds <= 0 || c.Auth.RefreshTTLSeconds <= 0 {
		return errors.New("token lifetimes must be positive")
	}
	if c.Auth.MFAGraceDays <= 0 {
		return errors.New("mfa_grace_days must be positive")
	}
	if c.App.Env == "production" && c.Payments.WebhookSecret == "" {
		return errors.New("PAYMENT_WEBHOOK_SECRET is required in production")
	}
	return nil
}

// AITimeout returns the AI request timeout
func (c *Config) AITimeout() time.Duration {
	return time.Duration(c.AI.TimeoutSec) * time.Second
}

func setString(dst *string, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

func setInt(dst *int, key string) {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			*dst = n
		}
	}
}
