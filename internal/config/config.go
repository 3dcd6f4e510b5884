// Package config loads service configuration from flags, environment, an optional
// config file and a .env file.
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Default configuration constants
const (
	// DefaultStateDir is the default directory for TalentScout state data
	DefaultStateDir = "/var/lib/talentscout"
	// DefaultDBFileName is the default SQLite database filename
	DefaultDBFileName = "talentscout.db"
	// DefaultWhatsAppDBFileName is the default whatsmeow device database filename
	DefaultWhatsAppDBFileName = "whatsapp.db"
	// DefaultAPIAddr is the default HTTP listen address
	DefaultAPIAddr = ":8080"
	// DefaultSweepSchedule is how often idle conversations are looked for
	DefaultSweepSchedule = "@every 10m"
	// EnvPrefix prefixes every environment variable the service reads
	EnvPrefix = "TALENTSCOUT"
)

// Chat channels the serve command can attach.
const (
	ChannelNone     = "none"
	ChannelWhatsApp = "whatsapp"
	ChannelTwilio   = "twilio"
)

// Config holds the service configuration.
type Config struct {
	APIAddr          string        `mapstructure:"api_addr"`
	StateDir         string        `mapstructure:"state_dir"`
	DBDSN            string        `mapstructure:"db_dsn"`
	RedisAddr        string        `mapstructure:"redis_addr"`
	RedisPassword    string        `mapstructure:"redis_password"`
	RedisDB          int           `mapstructure:"redis_db"`
	ComposingDelay   time.Duration `mapstructure:"composing_delay"`
	QuestionBank     string        `mapstructure:"question_bank"`
	LogLevel         string        `mapstructure:"log_level"`
	LogJSON          bool          `mapstructure:"log_json"`
	Channel          string        `mapstructure:"channel"`
	WhatsAppDBDSN    string        `mapstructure:"whatsapp_db_dsn"`
	QROutput         string        `mapstructure:"qr_output"`
	NumericCode      bool          `mapstructure:"numeric_code"`
	TwilioAccountSID string        `mapstructure:"twilio_account_sid"`
	TwilioAuthToken  string        `mapstructure:"twilio_auth_token"`
	TwilioFromNumber string        `mapstructure:"twilio_from_number"`
	TwilioWebhookURL string        `mapstructure:"twilio_webhook_url"`
	PersistQueueSize int           `mapstructure:"persist_queue_size"`
	IdleTTL          time.Duration `mapstructure:"conversation_idle_ttl"`
	SweepSchedule    string        `mapstructure:"sweep_schedule"`
}

// LoadDotEnv loads a .env file into the process environment if one exists.
func LoadDotEnv(paths ...string) {
	if err := godotenv.Load(paths...); err != nil {
		slog.Debug("failed to load .env file", "error", err)
	} else {
		slog.Debug("successfully loaded .env file")
	}
}

// New returns a viper instance with defaults and environment binding in place.
// Callers bind their flags to it before calling Load.
func New() *viper.Viper {
	v := viper.New()
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_", ".", "_"))
	v.AutomaticEnv()
	_ = v.BindEnv("database_url", EnvPrefix+"_DATABASE_URL", "DATABASE_URL")

	v.SetDefault("api_addr", DefaultAPIAddr)
	v.SetDefault("state_dir", DefaultStateDir)
	v.SetDefault("db_dsn", "")
	v.SetDefault("redis_addr", "")
	v.SetDefault("redis_password", "")
	v.SetDefault("redis_db", 0)
	v.SetDefault("composing_delay", "1500ms")
	v.SetDefault("question_bank", "")
	v.SetDefault("log_level", "info")
	v.SetDefault("log_json", false)
	v.SetDefault("channel", ChannelNone)
	v.SetDefault("whatsapp_db_dsn", "")
	v.SetDefault("qr_output", "")
	v.SetDefault("numeric_code", false)
	v.SetDefault("twilio_account_sid", "")
	v.SetDefault("twilio_auth_token", "")
	v.SetDefault("twilio_from_number", "")
	v.SetDefault("twilio_webhook_url", "")
	v.SetDefault("persist_queue_size", 256)
	v.SetDefault("conversation_idle_ttl", "24h")
	v.SetDefault("sweep_schedule", DefaultSweepSchedule)
	return v
}

// Load reads configFile when set, resolves derived defaults and validates the result.
func Load(v *viper.Viper, configFile string) (*Config, error) {
	if configFile != "" {
		v.SetConfigFile(configFile)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		slog.Debug("config file loaded", "path", v.ConfigFileUsed())
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to decode configuration: %w", err)
	}
	cfg.resolveDefaults(v)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	slog.Debug("configuration loaded",
		"api_addr", cfg.APIAddr,
		"state_dir", cfg.StateDir,
		"db_dsn_set", cfg.DBDSN != "",
		"redis", cfg.RedisAddr != "",
		"channel", cfg.Channel,
		"composing_delay", cfg.ComposingDelay)
	return &cfg, nil
}

func (c *Config) resolveDefaults(v *viper.Viper) {
	// DATABASE_URL is honoured the way the usual hosting platforms set it
	if c.DBDSN == "" {
		if url := v.GetString("database_url"); url != "" {
			c.DBDSN = url
		}
	}
	if c.DBDSN == "" {
		c.DBDSN = filepath.Join(c.StateDir, DefaultDBFileName)
		slog.Debug("No database DSN provided, defaulting to SQLite", "sqlite_path", c.DBDSN)
	}
	if c.WhatsAppDBDSN == "" {
		c.WhatsAppDBDSN = "file:" + filepath.Join(c.StateDir, DefaultWhatsAppDBFileName) + "?_foreign_keys=on"
	}
	c.Channel = strings.ToLower(strings.TrimSpace(c.Channel))
	c.LogLevel = strings.ToLower(strings.TrimSpace(c.LogLevel))
}

// Validate checks that all required configuration fields are set.
func (c *Config) Validate() error {
	var errs []error
	if c.APIAddr == "" {
		errs = append(errs, errors.New("api_addr cannot be empty"))
	}
	if c.StateDir == "" {
		errs = append(errs, errors.New("state_dir cannot be empty"))
	}
	if c.ComposingDelay < 0 {
		errs = append(errs, errors.New("composing_delay must be >= 0"))
	}
	if c.PersistQueueSize <= 0 {
		errs = append(errs, errors.New("persist_queue_size must be > 0"))
	}
	if c.IdleTTL < 0 {
		errs = append(errs, errors.New("conversation_idle_ttl must be >= 0"))
	}
	if c.IdleTTL > 0 && strings.TrimSpace(c.SweepSchedule) == "" {
		errs = append(errs, errors.New("sweep_schedule cannot be empty while conversation_idle_ttl is set"))
	}
	if c.RedisDB < 0 {
		errs = append(errs, errors.New("redis_db must be >= 0"))
	}
	if _, err := ParseLevel(c.LogLevel); err != nil {
		errs = append(errs, err)
	}
	switch c.Channel {
	case ChannelNone, ChannelWhatsApp:
	case ChannelTwilio:
		if c.TwilioAccountSID == "" || c.TwilioAuthToken == "" || c.TwilioFromNumber == "" {
			errs = append(errs, errors.New("twilio channel requires twilio_account_sid, twilio_auth_token and twilio_from_number"))
		}
	default:
		errs = append(errs, fmt.Errorf("channel must be one of %s, %s, %s", ChannelNone, ChannelWhatsApp, ChannelTwilio))
	}
	return errors.Join(errs...)
}

// ParseLevel maps a log level name to a slog level.
func ParseLevel(name string) (slog.Level, error) {
	switch strings.ToLower(name) {
	case "debug":
		return slog.LevelDebug, nil
	case "", "info":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return slog.LevelInfo, fmt.Errorf("unknown log_level %q", name)
	}
}
