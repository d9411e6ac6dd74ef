package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

type Config struct {
	Oiflow   OiflowConfig   `yaml:"oiflow"`
	Source   SourceConfig   `yaml:"source"`
	Pipeline PipelineConfig `yaml:"pipeline"`
	Writer   WriterConfig   `yaml:"writer"`
	Storage  StorageConfig  `yaml:"storage"`
	Notify   NotifyConfig   `yaml:"notify"`
	Server   ServerConfig   `yaml:"server"`
	Logging  LoggingConfig  `yaml:"logging"`
}

type OiflowConfig struct {
	Name    string `yaml:"name"`
	Version string `yaml:"version"`
}

type SourceConfig struct {
	NSE   NSESourceConfig   `yaml:"nse"`
	Yahoo YahooSourceConfig `yaml:"yahoo"`
}

type NSESourceConfig struct {
	BaseURL           string   `yaml:"base_url"`
	UserAgent         string   `yaml:"user_agent"`
	Timeout           Duration `yaml:"timeout"`
	RequestsPerSecond float64  `yaml:"requests_per_second"`
	BurstSize         int      `yaml:"burst_size"`
}

type YahooSourceConfig struct {
	BaseURL string   `yaml:"base_url"`
	Timeout Duration `yaml:"timeout"`
}

// Duration parses YAML values such as "15s" or "500ms" into a time.Duration.
type Duration time.Duration

func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	var raw string
	if err := value.Decode(&raw); err != nil {
		return err
	}
	parsed, err := time.ParseDuration(raw)
	if err != nil {
		return fmt.Errorf("invalid duration '%s': %w", raw, err)
	}
	*d = Duration(parsed)
	return nil
}

func (d Duration) Std() time.Duration {
	return time.Duration(d)
}

// PipelineConfig carries the aggregation policy knobs. The fallback interval
// and window half-width were constants in earlier revisions; they are
// configuration now so a different strike grid only needs a config change.
type PipelineConfig struct {
	SymbolsFile      string  `yaml:"symbols_file"`
	FallbackInterval float64 `yaml:"fallback_interval"`
	WindowHalfWidth  int     `yaml:"window_half_width"`
	RatioConvention  string  `yaml:"ratio_convention"`
	TopMovers        int     `yaml:"top_movers"`
	Timezone         string  `yaml:"timezone"`
}

type WriterConfig struct {
	OutputDir string `yaml:"output_dir"`
	CSV       bool   `yaml:"csv"`
}

type StorageConfig struct {
	S3 S3Config `yaml:"s3"`
}

type S3Config struct {
	Enabled         bool   `yaml:"enabled"`
	Bucket          string `yaml:"bucket"`
	Region          string `yaml:"region"`
	Prefix          string `yaml:"prefix"`
	AccessKeyID     string `yaml:"access_key_id"`
	SecretAccessKey string `yaml:"secret_access_key"`
}

type NotifyConfig struct {
	Telegram TelegramConfig `yaml:"telegram"`
}

type TelegramConfig struct {
	BotToken string `yaml:"bot_token"`
	ChatID   string `yaml:"chat_id"`
}

// Enabled reports whether both credentials are present. Missing credentials
// disable notifications instead of failing the run.
func (t TelegramConfig) Enabled() bool {
	return t.BotToken != "" && t.ChatID != ""
}

type ServerConfig struct {
	Address string `yaml:"address"`
}

type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
	Output string `yaml:"output"`
	MaxAge int    `yaml:"max_age"`
}

const (
	DefaultFallbackInterval = 50
	DefaultWindowHalfWidth  = 3
	DefaultTimezone         = "Asia/Kolkata"

	RatioConventionFraction4 = "fraction4dp"
	RatioConventionPercent2  = "percent2dp"
)

func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	config := Config{
		Pipeline: PipelineConfig{
			FallbackInterval: DefaultFallbackInterval,
			WindowHalfWidth:  DefaultWindowHalfWidth,
			RatioConvention:  RatioConventionFraction4,
			TopMovers:        10,
			Timezone:         DefaultTimezone,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "text",
			Output: "stdout",
		},
	}
	if err := yaml.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	applySourceDefaults(&config)

	// Credentials come from the environment when present so config files can
	// stay free of secrets.
	if config.Storage.S3.Enabled {
		if v := os.Getenv("AWS_ACCESS_KEY_ID"); v != "" {
			config.Storage.S3.AccessKeyID = strings.TrimSpace(v)
		}
		if v := os.Getenv("AWS_SECRET_ACCESS_KEY"); v != "" {
			config.Storage.S3.SecretAccessKey = strings.TrimSpace(v)
		}
		if v := os.Getenv("AWS_REGION"); v != "" {
			config.Storage.S3.Region = strings.TrimSpace(v)
		}
		if v := os.Getenv("S3_BUCKET"); v != "" {
			config.Storage.S3.Bucket = strings.TrimSpace(v)
		}
	}
	if v := os.Getenv("TELEGRAM_BOT_TOKEN"); v != "" {
		config.Notify.Telegram.BotToken = strings.TrimSpace(v)
	}
	if v := os.Getenv("TELEGRAM_CHAT_ID"); v != "" {
		config.Notify.Telegram.ChatID = strings.TrimSpace(v)
	}

	config.Storage.S3.Bucket = strings.TrimSpace(config.Storage.S3.Bucket)

	if err := validateConfig(&config); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return &config, nil
}

func applySourceDefaults(cfg *Config) {
	if cfg.Source.NSE.BaseURL == "" {
		cfg.Source.NSE.BaseURL = "https://www.nseindia.com"
	}
	if cfg.Source.NSE.UserAgent == "" {
		cfg.Source.NSE.UserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/131.0.0.0 Safari/537.36"
	}
	if cfg.Source.NSE.Timeout <= 0 {
		cfg.Source.NSE.Timeout = Duration(15 * time.Second)
	}
	if cfg.Source.NSE.RequestsPerSecond <= 0 {
		cfg.Source.NSE.RequestsPerSecond = 2
	}
	if cfg.Source.NSE.BurstSize <= 0 {
		cfg.Source.NSE.BurstSize = 1
	}
	if cfg.Source.Yahoo.BaseURL == "" {
		cfg.Source.Yahoo.BaseURL = "https://query1.finance.yahoo.com"
	}
	if cfg.Source.Yahoo.Timeout <= 0 {
		cfg.Source.Yahoo.Timeout = Duration(15 * time.Second)
	}
	if cfg.Writer.OutputDir == "" {
		cfg.Writer.OutputDir = "."
	}
	if cfg.Server.Address == "" {
		cfg.Server.Address = ":8080"
	}
}

func validateConfig(cfg *Config) error {
	if cfg.Oiflow.Name == "" {
		return fmt.Errorf("oiflow.name is required")
	}

	if cfg.Oiflow.Version == "" {
		return fmt.Errorf("oiflow.version is required")
	}

	if cfg.Pipeline.FallbackInterval <= 0 {
		return fmt.Errorf("pipeline.fallback_interval must be greater than 0")
	}

	if cfg.Pipeline.WindowHalfWidth <= 0 {
		return fmt.Errorf("pipeline.window_half_width must be greater than 0")
	}

	switch cfg.Pipeline.RatioConvention {
	case RatioConventionFraction4, RatioConventionPercent2:
	default:
		return fmt.Errorf("pipeline.ratio_convention '%s' is invalid", cfg.Pipeline.RatioConvention)
	}

	if cfg.Pipeline.TopMovers <= 0 {
		return fmt.Errorf("pipeline.top_movers must be greater than 0")
	}

	if _, err := time.LoadLocation(cfg.Pipeline.Timezone); err != nil {
		return fmt.Errorf("pipeline.timezone '%s' is invalid: %w", cfg.Pipeline.Timezone, err)
	}

	if IsProductionLike(AppEnvironment()) && cfg.Pipeline.SymbolsFile == "" {
		return fmt.Errorf("pipeline.symbols_file is required in %s", AppEnvironment())
	}

	if cfg.Storage.S3.Enabled {
		if cfg.Storage.S3.Bucket == "" {
			return fmt.Errorf("storage.s3.bucket is required when S3 is enabled")
		}
		if cfg.Storage.S3.Region == "" {
			return fmt.Errorf("storage.s3.region is required when S3 is enabled")
		}
	}

	return nil
}

// Location resolves the configured pipeline timezone. Validation guarantees
// the zone loads, so failures here fall back to UTC.
func (c *Config) Location() *time.Location {
	loc, err := time.LoadLocation(c.Pipeline.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}
