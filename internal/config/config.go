package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/richard-senior/footy/internal/logger"
	"github.com/spf13/viper"
)

// EnvPrefix is prepended to every environment override, e.g. FOOTY_SERVER_PORT
const EnvPrefix = "FOOTY"

// Config represents the complete application configuration
type Config struct {
	Server     ServerConfig     `mapstructure:"server"`
	DataSource DataSourceConfig `mapstructure:"datasource"`
	Storage    StorageConfig    `mapstructure:"storage"`
	Model      ModelConfig      `mapstructure:"model"`
	Normalizer NormalizerConfig `mapstructure:"normalizer"`
	Telegram   TelegramConfig   `mapstructure:"telegram"`
	Logging    LoggingConfig    `mapstructure:"logging"`
}

// ServerConfig holds the HTTP listener settings
type ServerConfig struct {
	Port         int           `mapstructure:"port"`
	ReadTimeout  time.Duration `mapstructure:"read_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
}

// DataSourceConfig holds the football-data.org client and cache settings
type DataSourceConfig struct {
	BaseURL       string        `mapstructure:"base_url"`
	APIKey        string        `mapstructure:"api_key"`
	Timeout       time.Duration `mapstructure:"timeout"`
	CacheTTL      time.Duration `mapstructure:"cache_ttl"`
	FormMatches   int           `mapstructure:"form_matches"`
	H2HMatches    int           `mapstructure:"h2h_matches"`
	RateLimitWait time.Duration `mapstructure:"rate_limit_wait"`
	TeamNewsURL   string        `mapstructure:"team_news_url"`
	RenderJS      bool          `mapstructure:"render_js"`
}

// StorageConfig holds the sqlite location. An empty path disables persistence.
type StorageConfig struct {
	DBPath string `mapstructure:"db_path"`
}

type ModelConfig struct {
	Type string `mapstructure:"type"`
}

type NormalizerConfig struct {
	Enabled bool `mapstructure:"enabled"`
}

// TelegramConfig holds Telegram notification configuration
type TelegramConfig struct {
	Enabled    bool   `mapstructure:"enabled"`
	BotToken   string `mapstructure:"bot_token"`
	ChatID     string `mapstructure:"chat_id"`
	MaxRetries int    `mapstructure:"max_retries"`
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Level        string `mapstructure:"level"`
	Output       string `mapstructure:"output"`
	File         string `mapstructure:"file"`
	ShowDateTime bool   `mapstructure:"show_datetime"`
}

// Load reads configuration from an optional file, a .env file and the environment.
// An empty path skips the config file; a path that does not exist is an error.
func Load(path string) (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		logger.Warn("Failed to load .env file", err)
	}

	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	applyWellKnownEnv(&cfg)
	return &cfg, nil
}

// setDefaults configures default values for all configuration options
func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", 5000)
	v.SetDefault("server.read_timeout", "30s")
	v.SetDefault("server.write_timeout", "60s")

	v.SetDefault("datasource.base_url", "https://api.football-data.org/v4")
	v.SetDefault("datasource.api_key", "")
	v.SetDefault("datasource.timeout", "10s")
	v.SetDefault("datasource.cache_ttl", "6h")
	v.SetDefault("datasource.form_matches", 5)
	v.SetDefault("datasource.h2h_matches", 10)
	v.SetDefault("datasource.rate_limit_wait", "60s")
	v.SetDefault("datasource.team_news_url", "")
	v.SetDefault("datasource.render_js", false)

	v.SetDefault("storage.db_path", "./data/footy.db")

	v.SetDefault("model.type", "mlp")
	v.SetDefault("normalizer.enabled", true)

	v.SetDefault("telegram.enabled", false)
	v.SetDefault("telegram.bot_token", "")
	v.SetDefault("telegram.chat_id", "")
	v.SetDefault("telegram.max_retries", 3)

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.output", "console")
	v.SetDefault("logging.file", logger.DefaultLogFile)
	v.SetDefault("logging.show_datetime", false)
}

// applyWellKnownEnv honours the unprefixed variables used by existing deployments
func applyWellKnownEnv(cfg *Config) {
	if key := os.Getenv("FOOTBALL_DATA_API_KEY"); key != "" && cfg.DataSource.APIKey == "" {
		cfg.DataSource.APIKey = key
	}
	if p := os.Getenv("PORT"); p != "" {
		if port, err := strconv.Atoi(p); err == nil {
			cfg.Server.Port = port
		} else {
			logger.Warn("Ignoring invalid PORT", p)
		}
	}
	if tok := os.Getenv("TELEGRAM_BOT_TOKEN"); tok != "" && cfg.Telegram.BotToken == "" {
		cfg.Telegram.BotToken = tok
	}
	if chat := os.Getenv("TELEGRAM_CHAT_ID"); chat != "" && cfg.Telegram.ChatID == "" {
		cfg.Telegram.ChatID = chat
	}
}

// Validate checks that all configuration values are valid
func (c *Config) Validate() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("server.port must be between 1 and 65535")
	}
	if c.Server.ReadTimeout <= 0 || c.Server.WriteTimeout <= 0 {
		return fmt.Errorf("server timeouts must be positive")
	}

	if c.DataSource.BaseURL == "" {
		return fmt.Errorf("datasource.base_url is required")
	}
	if c.DataSource.Timeout <= 0 {
		return fmt.Errorf("datasource.timeout must be positive")
	}
	if c.DataSource.CacheTTL <= 0 {
		return fmt.Errorf("datasource.cache_ttl must be positive")
	}
	if c.DataSource.FormMatches < 1 {
		return fmt.Errorf("datasource.form_matches must be at least 1")
	}
	if c.DataSource.H2HMatches < 1 {
		return fmt.Errorf("datasource.h2h_matches must be at least 1")
	}
	if c.DataSource.RateLimitWait < 0 {
		return fmt.Errorf("datasource.rate_limit_wait must not be negative")
	}

	switch c.Model.Type {
	case "mlp", "lstm":
	default:
		return fmt.Errorf("model.type must be one of: mlp, lstm")
	}

	if c.Telegram.Enabled {
		if c.Telegram.BotToken == "" {
			return fmt.Errorf("telegram.bot_token is required when telegram is enabled")
		}
		if c.Telegram.ChatID == "" {
			return fmt.Errorf("telegram.chat_id is required when telegram is enabled")
		}
	}

	if _, err := logger.ParseLevel(c.Logging.Level); err != nil {
		return fmt.Errorf("logging.level: %w", err)
	}
	if _, err := c.Logging.OutputRune(); err != nil {
		return err
	}
	return nil
}

// OutputRune maps the configured output onto the logger's output selector
func (l LoggingConfig) OutputRune() (rune, error) {
	switch strings.ToLower(l.Output) {
	case "console", "c", "":
		return 'c', nil
	case "file", "f":
		return 'f', nil
	case "both", "b":
		return 'b', nil
	}
	return 0, fmt.Errorf("logging.output must be one of: console, file, both")
}

// ApplyLogging configures the process logger from the logging section
func (c *Config) ApplyLogging() error {
	level, err := logger.ParseLevel(c.Logging.Level)
	if err != nil {
		return err
	}
	out, err := c.Logging.OutputRune()
	if err != nil {
		return err
	}
	logger.SetLevel(level)
	logger.SetShowDateTime(c.Logging.ShowDateTime)
	return logger.SetLogOutput(out, c.Logging.File)
}

// Addr returns the HTTP listen address
func (c *Config) Addr() string {
	return fmt.Sprintf(":%d", c.Server.Port)
}
