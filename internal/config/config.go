package config

import (
	"fmt"
	"time"

	"github.com/spf13/viper"
)

// Config represents the complete application configuration.
type Config struct {
	Server   ServerConfig   `mapstructure:"server"`
	Storage  StorageConfig  `mapstructure:"storage"`
	Market   MarketConfig   `mapstructure:"market"`
	Session  SessionConfig  `mapstructure:"session"`
	Timer    TimerConfig    `mapstructure:"timer"`
	Telegram TelegramConfig `mapstructure:"telegram"`
	Logging  LoggingConfig  `mapstructure:"logging"`
}

// ServerConfig holds HTTP server and admin auth configuration.
type ServerConfig struct {
	Host          string        `mapstructure:"host"`
	Port          int           `mapstructure:"port"`
	ReadTimeout   time.Duration `mapstructure:"read_timeout"`
	WriteTimeout  time.Duration `mapstructure:"write_timeout"`
	AdminUser     string        `mapstructure:"admin_user"`
	AdminPassword string        `mapstructure:"admin_password"`
}

// StorageConfig holds the persistence collaborator configuration.
// Backend selects between the CSV flat-file store and the SQLite store.
type StorageConfig struct {
	Backend          string        `mapstructure:"backend"`
	DataDir          string        `mapstructure:"data_dir"`
	DBPath           string        `mapstructure:"db_path"`
	SnapshotInterval time.Duration `mapstructure:"snapshot_interval"`
}

// MarketConfig holds pricing pipeline configuration.
type MarketConfig struct {
	Cascade            string  `mapstructure:"cascade"`
	CorrelationEnabled bool    `mapstructure:"correlation_enabled"`
	MaxChangePct       float64 `mapstructure:"max_change_pct"`
}

// SessionConfig holds session ledger configuration.
type SessionConfig struct {
	ExportDir string `mapstructure:"export_dir"`
}

// TimerConfig holds the shared repricing-cycle timer configuration.
// An interval of 0 means every purchase reprices immediately.
type TimerConfig struct {
	Interval time.Duration `mapstructure:"interval"`
}

// TelegramConfig holds market-event announcement configuration.
type TelegramConfig struct {
	Enabled  bool   `mapstructure:"enabled"`
	BotToken string `mapstructure:"bot_token"`
	ChatID   string `mapstructure:"chat_id"`
}

// LoggingConfig holds logging configuration.
type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
	File   string `mapstructure:"file"`
}

// Load reads configuration from file and environment variables.
func Load(path string) (*Config, error) {
	v := viper.New()
	v.SetConfigFile(path)
	setDefaults(v)

	v.SetEnvPrefix("BARMARKET")
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", 8000)
	v.SetDefault("server.read_timeout", "15s")
	v.SetDefault("server.write_timeout", "15s")
	v.SetDefault("server.admin_user", "admin")
	v.SetDefault("server.admin_password", "")

	v.SetDefault("storage.backend", "csv")
	v.SetDefault("storage.data_dir", "./data")
	v.SetDefault("storage.db_path", "./data/barmarket.db")
	v.SetDefault("storage.snapshot_interval", "30s")

	v.SetDefault("market.cascade", "correlation")
	v.SetDefault("market.correlation_enabled", true)
	v.SetDefault("market.max_change_pct", 0.05)

	v.SetDefault("session.export_dir", "./data/sessions")

	v.SetDefault("timer.interval", "0s")

	v.SetDefault("telegram.enabled", false)

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "json")
	v.SetDefault("logging.file", "")
}

// Validate checks that all configuration values are valid.
func (c *Config) Validate() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("server.port must be between 1 and 65535")
	}
	if c.Server.AdminUser == "" {
		return fmt.Errorf("server.admin_user is required")
	}
	if c.Server.AdminPassword == "" {
		return fmt.Errorf("server.admin_password is required")
	}

	switch c.Storage.Backend {
	case "csv", "sqlite":
	default:
		return fmt.Errorf("storage.backend must be one of: csv, sqlite")
	}
	if c.Storage.DataDir == "" {
		return fmt.Errorf("storage.data_dir is required")
	}
	if c.Storage.Backend == "sqlite" && c.Storage.DBPath == "" {
		return fmt.Errorf("storage.db_path is required for the sqlite backend")
	}
	if c.Storage.SnapshotInterval < time.Second {
		return fmt.Errorf("storage.snapshot_interval must be at least 1 second")
	}

	switch c.Market.Cascade {
	case "correlation", "balance", "none":
	default:
		return fmt.Errorf("market.cascade must be one of: correlation, balance, none")
	}
	if c.Market.MaxChangePct <= 0 || c.Market.MaxChangePct > 0.5 {
		return fmt.Errorf("market.max_change_pct must be in (0, 0.5]")
	}

	if c.Session.ExportDir == "" {
		return fmt.Errorf("session.export_dir is required")
	}

	if c.Timer.Interval < 0 {
		return fmt.Errorf("timer.interval must not be negative")
	}

	if c.Telegram.Enabled {
		if c.Telegram.BotToken == "" {
			return fmt.Errorf("telegram.bot_token is required when telegram is enabled")
		}
		if c.Telegram.ChatID == "" {
			return fmt.Errorf("telegram.chat_id is required when telegram is enabled")
		}
	}

	validLogLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if !validLogLevels[c.Logging.Level] {
		return fmt.Errorf("logging.level must be one of: debug, info, warn, error")
	}
	validFormats := map[string]bool{"json": true, "text": true}
	if !validFormats[c.Logging.Format] {
		return fmt.Errorf("logging.format must be one of: json, text")
	}

	return nil
}
