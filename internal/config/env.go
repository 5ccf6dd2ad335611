package config

import (
	"errors"
	"fmt"
	"io/fs"
	"net"
	"net/url"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

// DefaultEnvFile is read from the working directory when no other file is given
const DefaultEnvFile = ".env"

// Config is the process configuration, read from the environment after an
// optional .env file has been loaded.
type Config struct {
	DBPath string `env:"DB_PATH" envDefault:"heistops.db"`

	Port        int    `env:"PORT" envDefault:"8080"`
	Bind        string `env:"BIND" envDefault:"0.0.0.0"`
	AllowSubnet string `env:"ALLOW_SUBNET"`
	Dev         bool   `env:"DEV"`

	// OperatorPasswordHash is a bcrypt hash; empty disables operator auth
	OperatorPasswordHash string `env:"OPERATOR_PASSWORD_HASH"`

	Log   LogConfig
	Alert AlertConfig

	WatchSchedule       string `env:"WATCH_SCHEDULE" envDefault:"@every 5m"`
	MaintenanceSchedule string `env:"MAINTENANCE_SCHEDULE" envDefault:"@daily"`

	HTTPReadTimeout    time.Duration `env:"HTTP_READ_TIMEOUT" envDefault:"15s"`
	HTTPIdleTimeout    time.Duration `env:"HTTP_IDLE_TIMEOUT" envDefault:"60s"`
	HTTPRequestTimeout time.Duration `env:"HTTP_REQUEST_TIMEOUT" envDefault:"30s"`
}

// LogConfig controls log verbosity and file rotation
type LogConfig struct {
	Level      string `env:"LOG_LEVEL" envDefault:"info"`
	File       string `env:"LOG_FILE"`
	MaxSizeMB  int    `env:"LOG_MAX_SIZE_MB" envDefault:"50"`
	MaxBackups int    `env:"LOG_MAX_BACKUPS" envDefault:"5"`
	MaxAgeDays int    `env:"LOG_MAX_AGE_DAYS" envDefault:"30"`
	Compress   bool   `env:"LOG_COMPRESS" envDefault:"true"`
}

// AlertConfig configures outbound alerts for critical resources. Both
// destinations are optional.
type AlertConfig struct {
	DiscordWebhookURL string        `env:"ALERT_DISCORD_WEBHOOK_URL"`
	WebhookURL        string        `env:"ALERT_WEBHOOK_URL"`
	WebhookMethod     string        `env:"ALERT_WEBHOOK_METHOD" envDefault:"POST"`
	WebhookBody       string        `env:"ALERT_WEBHOOK_BODY"`
	WebhookHeaders    string        `env:"ALERT_WEBHOOK_HEADERS"`
	Timeout           time.Duration `env:"ALERT_TIMEOUT" envDefault:"10s"`
}

// Load reads envFile (if it exists) into the environment without overriding
// variables that are already set, then parses the configuration.
func Load(envFile string) (*Config, error) {
	if envFile == "" {
		envFile = DefaultEnvFile
	}
	if err := godotenv.Load(envFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("failed to load %s: %w", envFile, err)
	}
	return Parse()
}

// Reload re-reads envFile, letting its values replace the current environment,
// and parses the configuration again.
func Reload(envFile string) (*Config, error) {
	if err := godotenv.Overload(envFile); err != nil {
		return nil, fmt.Errorf("failed to reload %s: %w", envFile, err)
	}
	return Parse()
}

// Parse reads the configuration from the current environment
func Parse() (*Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return nil, fmt.Errorf("failed to parse environment: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks values the environment parser cannot
func (c *Config) Validate() error {
	if c.DBPath == "" {
		return fmt.Errorf("DB_PATH must not be empty")
	}
	if c.Port <= 0 || c.Port > 65535 {
		return fmt.Errorf("PORT must be between 1 and 65535, got %d", c.Port)
	}
	switch c.Log.Level {
	case "trace", "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("LOG_LEVEL must be one of trace, debug, info, warn, error; got %q", c.Log.Level)
	}
	if _, err := c.Subnet(); err != nil {
		return err
	}
	for name, raw := range map[string]string{
		"ALERT_DISCORD_WEBHOOK_URL": c.Alert.DiscordWebhookURL,
		"ALERT_WEBHOOK_URL":         c.Alert.WebhookURL,
	} {
		if raw == "" {
			continue
		}
		if u, err := url.Parse(raw); err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
			return fmt.Errorf("%s must be an http(s) URL", name)
		}
	}
	return nil
}

// Subnet parses ALLOW_SUBNET; nil means no restriction
func (c *Config) Subnet() (*net.IPNet, error) {
	if c.AllowSubnet == "" {
		return nil, nil
	}
	_, ipNet, err := net.ParseCIDR(c.AllowSubnet)
	if err != nil {
		return nil, fmt.Errorf("ALLOW_SUBNET must be a CIDR, got %q: %w", c.AllowSubnet, err)
	}
	return ipNet, nil
}

// Addr returns the HTTP listen address
func (c *Config) Addr() string {
	return fmt.Sprintf("%s:%d", c.Bind, c.Port)
}

// Timeouts returns the HTTP timeout settings
func (c *Config) Timeouts() *TimeoutConfig {
	t := DefaultTimeoutConfig()
	if c.HTTPReadTimeout > 0 {
		t.Read = c.HTTPReadTimeout
	}
	if c.HTTPIdleTimeout > 0 {
		t.Idle = c.HTTPIdleTimeout
	}
	if c.HTTPRequestTimeout > 0 {
		t.Request = c.HTTPRequestTimeout
	}
	return t
}
