package config

import (
	"os"
	"testing"
	"time"
)

// writeTempConfig creates a minimal configuration file required for LoadConfig
// and returns its path.
func writeTempConfig(t *testing.T, content string) string {
	t.Helper()
	f, err := os.CreateTemp("", "cfg-*.yml")
	if err != nil {
		t.Fatalf("create temp file: %v", err)
	}
	if _, err := f.WriteString(content); err != nil {
		t.Fatalf("write temp file: %v", err)
	}
	if err := f.Close(); err != nil {
		t.Fatalf("close temp file: %v", err)
	}
	t.Cleanup(func() { os.Remove(f.Name()) })
	return f.Name()
}

const minimalConfig = `oiflow:
  name: "TestApp"
  version: "1.0"
`

func TestLoadConfig(t *testing.T) {
	path := writeTempConfig(t, minimalConfig)

	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig failed: %v", err)
	}
	if cfg.Oiflow.Name != "TestApp" {
		t.Errorf("unexpected name: %s", cfg.Oiflow.Name)
	}
	if cfg.Pipeline.FallbackInterval != DefaultFallbackInterval {
		t.Errorf("unexpected fallback interval: %v", cfg.Pipeline.FallbackInterval)
	}
	if cfg.Pipeline.WindowHalfWidth != DefaultWindowHalfWidth {
		t.Errorf("unexpected window half width: %d", cfg.Pipeline.WindowHalfWidth)
	}
	if cfg.Pipeline.RatioConvention != RatioConventionFraction4 {
		t.Errorf("unexpected ratio convention: %s", cfg.Pipeline.RatioConvention)
	}
	if cfg.Source.NSE.BaseURL != "https://www.nseindia.com" {
		t.Errorf("unexpected NSE base url: %s", cfg.Source.NSE.BaseURL)
	}
	if cfg.Source.NSE.Timeout.Std() != 15*time.Second {
		t.Errorf("unexpected NSE timeout: %v", cfg.Source.NSE.Timeout.Std())
	}
	if cfg.Server.Address != ":8080" {
		t.Errorf("unexpected server address: %s", cfg.Server.Address)
	}
}

func TestLoadConfigDurationParsing(t *testing.T) {
	path := writeTempConfig(t, minimalConfig+`source:
  nse:
    timeout: 30s
`)

	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig failed: %v", err)
	}
	if cfg.Source.NSE.Timeout.Std() != 30*time.Second {
		t.Errorf("timeout = %v, want 30s", cfg.Source.NSE.Timeout.Std())
	}
}

func TestLoadConfigRejectsBadConvention(t *testing.T) {
	path := writeTempConfig(t, minimalConfig+`pipeline:
  ratio_convention: basis_points
`)

	if _, err := LoadConfig(path); err == nil {
		t.Error("expected error for unknown ratio convention")
	}
}

func TestLoadConfigRejectsMissingName(t *testing.T) {
	path := writeTempConfig(t, `oiflow:
  version: "1.0"
`)

	if _, err := LoadConfig(path); err == nil {
		t.Error("expected error for missing name")
	}
}

func TestLoadConfigS3Validation(t *testing.T) {
	path := writeTempConfig(t, minimalConfig+`storage:
  s3:
    enabled: true
    region: ap-south-1
`)

	os.Unsetenv("S3_BUCKET")
	if _, err := LoadConfig(path); err == nil {
		t.Error("expected error when S3 enabled without bucket")
	}
}

func TestLoadConfigTelegramEnvOverride(t *testing.T) {
	path := writeTempConfig(t, minimalConfig)

	t.Setenv("TELEGRAM_BOT_TOKEN", "tok")
	t.Setenv("TELEGRAM_CHAT_ID", "123")

	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig failed: %v", err)
	}
	if !cfg.Notify.Telegram.Enabled() {
		t.Error("expected telegram enabled from environment")
	}
}

func TestTelegramEnabled(t *testing.T) {
	if (TelegramConfig{BotToken: "x"}).Enabled() {
		t.Error("token without chat id should be disabled")
	}
	if (TelegramConfig{ChatID: "1"}).Enabled() {
		t.Error("chat id without token should be disabled")
	}
	if !(TelegramConfig{BotToken: "x", ChatID: "1"}).Enabled() {
		t.Error("both credentials should enable telegram")
	}
}

func TestLocation(t *testing.T) {
	cfg := Config{Pipeline: PipelineConfig{Timezone: "Asia/Kolkata"}}
	if cfg.Location().String() != "Asia/Kolkata" {
		t.Errorf("unexpected location: %s", cfg.Location())
	}
}
