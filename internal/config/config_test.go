package config

import (
	"os"
	"path/filepath"
	"testing"
)

func setMinimalValidConfigEnv(t *testing.T) {
	t.Helper()
	t.Setenv("ANALYZER_PROVIDER", "http")
	t.Setenv("ANALYZER_URL", "http://localhost:9000")
	t.Setenv("TIMEZONE", "UTC")
}

func TestLoadConfigFromEnvWithDefaults(t *testing.T) {
	t.Setenv("CONFIG_PATH", filepath.Join(t.TempDir(), "missing-config.yaml"))
	setMinimalValidConfigEnv(t)

	cfg := LoadConfig()

	if cfg.AnalyzerProvider != "http" {
		t.Fatalf("unexpected provider: %q", cfg.AnalyzerProvider)
	}
	if cfg.AnalyzerURL != "http://localhost:9000" {
		t.Fatalf("unexpected analyzer url: %q", cfg.AnalyzerURL)
	}
	if cfg.DBPath != "./complaintbot.db" {
		t.Fatalf("unexpected db path default: %q", cfg.DBPath)
	}
	if cfg.ListenAddr != ":8787" {
		t.Fatalf("unexpected listen addr default: %q", cfg.ListenAddr)
	}
	if cfg.MaxClarificationTurns != 5 {
		t.Fatalf("unexpected turn cap default: %d", cfg.MaxClarificationTurns)
	}
	if cfg.DefaultLanguage != "kk" {
		t.Fatalf("unexpected default language: %q", cfg.DefaultLanguage)
	}
	if cfg.DigestOutputDir != "./digests" {
		t.Fatalf("unexpected digest output dir default: %q", cfg.DigestOutputDir)
	}
	if cfg.Location == nil || cfg.Location.String() != "UTC" {
		t.Fatalf("unexpected location: %v", cfg.Location)
	}
}

func TestLoadConfigYAMLAndEnvOverride(t *testing.T) {
	cfgPath := filepath.Join(t.TempDir(), "config.yaml")
	content := `
analyzer_provider: "anthropic"
anthropic_api_key: "yaml-key"
anthropic_model: "claude-sonnet-4-5"
db_path: "/tmp/yaml.db"
default_language: "ru"
max_clarification_turns: 3
timezone: "UTC"
digest_schedule: "0 9 * * *"
`
	if err := os.WriteFile(cfgPath, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	t.Setenv("CONFIG_PATH", cfgPath)
	t.Setenv("DB_PATH", "/tmp/env.db")

	cfg := LoadConfig()

	if cfg.AnalyzerProvider != "anthropic" {
		t.Fatalf("unexpected provider: %q", cfg.AnalyzerProvider)
	}
	if cfg.AnthropicAPIKey != "yaml-key" {
		t.Fatalf("unexpected api key: %q", cfg.AnthropicAPIKey)
	}
	if cfg.DBPath != "/tmp/env.db" {
		t.Fatalf("env override should win, got %q", cfg.DBPath)
	}
	if cfg.DefaultLanguage != "ru" {
		t.Fatalf("unexpected language: %q", cfg.DefaultLanguage)
	}
	if cfg.MaxClarificationTurns != 3 {
		t.Fatalf("unexpected turn cap: %d", cfg.MaxClarificationTurns)
	}
	if cfg.DigestSchedule != "0 9 * * *" {
		t.Fatalf("unexpected digest schedule: %q", cfg.DigestSchedule)
	}
}

func TestAnalyzeTimeout(t *testing.T) {
	cfg := Config{AnalyzeTimeoutSeconds: 45}
	if cfg.AnalyzeTimeout().Seconds() != 45 {
		t.Fatalf("unexpected timeout: %v", cfg.AnalyzeTimeout())
	}
}
