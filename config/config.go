package config

import (
	"fmt"
	"os"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config represents the overall application configuration.
type Config struct {
	Server   ServerConfig   `yaml:"server"`
	Bot      BotConfig      `yaml:"bot"`
	Database DatabaseConfig `yaml:"database"`
	Notifier NotifierConfig `yaml:"notifier"`
	Push     PushConfig     `yaml:"push"`
	Log      LogConfig      `yaml:"log"`
	Seed     SeedConfig     `yaml:"seed"`
}

// BotConfig holds the tunables of the automation loop and its monitors.
type BotConfig struct {
	IntervalSeconds            int     `yaml:"interval_seconds"`
	ErrorBackoffSeconds        int     `yaml:"error_backoff_seconds"`
	UpcomingWindowDays         int     `yaml:"upcoming_window_days" validate:"gte=1"`
	StaleOfferDays             int     `yaml:"stale_offer_days" validate:"gte=1"`
	OfferReminderCooldownHours int     `yaml:"offer_reminder_cooldown_hours" validate:"gte=0"`
	OrderMultiplier            float64 `yaml:"order_multiplier" validate:"gt=0"`
	AdminRecipient             string  `yaml:"admin_recipient" validate:"required,email"`
	HealthRecipient            string  `yaml:"health_recipient" validate:"omitempty,email"`
	LotAlertsEnabled           *bool   `yaml:"lot_alerts_enabled"`
	HealthCheckOnStart         *bool   `yaml:"health_check_on_start"`

	Interval              time.Duration `yaml:"-"`
	ErrorBackoff          time.Duration `yaml:"-"`
	OfferReminderCooldown time.Duration `yaml:"-"`
}

// NotifierConfig selects and configures the outbound notification transports.
type NotifierConfig struct {
	TimeoutSeconds int        `yaml:"timeout_seconds"`
	Transports     []string   `yaml:"transports" validate:"dive,oneof=smtp webpush log"`
	SMTP           SMTPConfig `yaml:"smtp"`

	Timeout time.Duration `yaml:"-"`
}

// SMTPConfig holds the mail relay settings. Credentials usually come from the environment.
type SMTPConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	Username string `yaml:"username"`
	Password string `yaml:"password"`
	From     string `yaml:"from" validate:"omitempty,email"`
}

// PushConfig holds the VAPID keys for web push notifications.
type PushConfig struct {
	PublicKey  string `yaml:"vapid_public_key"`
	PrivateKey string `yaml:"vapid_private_key"`
	Subject    string `yaml:"subject"`
	TTL        int    `yaml:"ttl"`
}

// ServerConfig holds the ops API configuration.
type ServerConfig struct {
	Enabled         bool    `yaml:"enabled"`
	Port            int     `yaml:"port"`
	RateLimitPerSec float64 `yaml:"rate_limit_per_sec"`
	RateLimitBurst  int     `yaml:"rate_limit_burst"`
	CacheTTLSeconds int     `yaml:"cache_ttl_seconds"`
}

// DatabaseConfig holds the database connection configuration.
type DatabaseConfig struct {
	Driver                 string `yaml:"driver" validate:"oneof=postgres sqlite mysql"`
	DSN                    string `yaml:"dsn" validate:"required"`
	MaxOpenConns           int    `yaml:"max_open_conns"`
	MaxIdleConns           int    `yaml:"max_idle_conns"`
	ConnMaxLifetimeMinutes int    `yaml:"conn_max_lifetime_minutes"`
	LogLevel               string `yaml:"log_level" validate:"omitempty,oneof=silent error warn info"`
}

// LogConfig controls the application logger.
type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format" validate:"omitempty,oneof=json text"`
}

// SeedConfig is only read by the fixture loader.
type SeedConfig struct {
	PhoneRegion string `yaml:"phone_region"`
}

// Load reads the configuration from the given path, overlays secrets from the
// environment (and a .env file, when present) and validates the result.
func Load(path string) (*Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var cfg Config
	decoder := yaml.NewDecoder(f)
	if err := decoder.Decode(&cfg); err != nil {
		return nil, err
	}

	// A missing .env file is the normal case outside development.
	_ = godotenv.Load()
	cfg.applyEnv()
	cfg.applyDefaults()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks struct-level constraints.
func (c *Config) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	return nil
}

func (c *Config) applyEnv() {
	if v := os.Getenv("DATABASE_DSN"); v != "" {
		c.Database.DSN = v
	}
	if v := os.Getenv("SMTP_USERNAME"); v != "" {
		c.Notifier.SMTP.Username = v
	}
	if v := os.Getenv("SMTP_PASSWORD"); v != "" {
		c.Notifier.SMTP.Password = v
	}
	if v := os.Getenv("VAPID_PUBLIC_KEY"); v != "" {
		c.Push.PublicKey = v
	}
	if v := os.Getenv("VAPID_PRIVATE_KEY"); v != "" {
		c.Push.PrivateKey = v
	}
}

func (c *Config) applyDefaults() {
	if c.Bot.IntervalSeconds <= 0 {
		c.Bot.IntervalSeconds = 30
	}
	c.Bot.Interval = time.Duration(c.Bot.IntervalSeconds) * time.Second

	if c.Bot.ErrorBackoffSeconds <= 0 {
		c.Bot.ErrorBackoffSeconds = 60
	}
	c.Bot.ErrorBackoff = time.Duration(c.Bot.ErrorBackoffSeconds) * time.Second

	if c.Bot.UpcomingWindowDays == 0 {
		c.Bot.UpcomingWindowDays = 7
	}
	if c.Bot.StaleOfferDays == 0 {
		c.Bot.StaleOfferDays = 7
	}
	c.Bot.OfferReminderCooldown = time.Duration(c.Bot.OfferReminderCooldownHours) * time.Hour

	if c.Bot.OrderMultiplier == 0 {
		c.Bot.OrderMultiplier = 1.5
	}
	if c.Bot.HealthRecipient == "" {
		c.Bot.HealthRecipient = c.Bot.AdminRecipient
	}
	if c.Bot.LotAlertsEnabled == nil {
		enabled := true
		c.Bot.LotAlertsEnabled = &enabled
	}
	if c.Bot.HealthCheckOnStart == nil {
		enabled := true
		c.Bot.HealthCheckOnStart = &enabled
	}

	if c.Notifier.TimeoutSeconds <= 0 {
		c.Notifier.TimeoutSeconds = 10
	}
	c.Notifier.Timeout = time.Duration(c.Notifier.TimeoutSeconds) * time.Second
	if len(c.Notifier.Transports) == 0 {
		c.Notifier.Transports = []string{"smtp"}
	}
	if c.Notifier.SMTP.Port == 0 {
		c.Notifier.SMTP.Port = 587
	}

	if c.Push.TTL <= 0 {
		c.Push.TTL = 3600
	}

	if c.Database.Driver == "" {
		c.Database.Driver = "postgres"
	}
	if c.Database.LogLevel == "" {
		c.Database.LogLevel = "warn"
	}

	if c.Server.Port == 0 {
		c.Server.Port = 8080
	}
	if c.Server.RateLimitPerSec <= 0 {
		c.Server.RateLimitPerSec = 10
	}
	if c.Server.RateLimitBurst <= 0 {
		c.Server.RateLimitBurst = 5
	}
	if c.Server.CacheTTLSeconds <= 0 {
		c.Server.CacheTTLSeconds = 30
	}

	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
	if c.Log.Format == "" {
		c.Log.Format = "json"
	}

	if c.Seed.PhoneRegion == "" {
		c.Seed.PhoneRegion = "US"
	}
}

// LotAlerts reports whether lot availability alerts are enabled.
func (b BotConfig) LotAlerts() bool {
	return b.LotAlertsEnabled == nil || *b.LotAlertsEnabled
}

// HealthOnStart reports whether a health check runs on the first cycle.
func (b BotConfig) HealthOnStart() bool {
	return b.HealthCheckOnStart == nil || *b.HealthCheckOnStart
}
