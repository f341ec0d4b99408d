package config

import (
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"complaintbot/internal/domain"
)

type Config struct {
	AnalyzerProvider string `yaml:"analyzer_provider"`
	AnalyzerURL      string `yaml:"analyzer_url"`
	AnthropicAPIKey  string `yaml:"anthropic_api_key"`
	AnthropicModel   string `yaml:"anthropic_model"`

	MaxClarificationTurns int `yaml:"max_clarification_turns"`
	AnalyzeTimeoutSeconds int `yaml:"analyze_timeout_seconds"`

	DBPath       string `yaml:"db_path"`
	SeedDemoData bool   `yaml:"seed_demo_data"`

	ListenAddr      string `yaml:"listen_addr"`
	DefaultLanguage string `yaml:"default_language"`

	DigestSchedule  string `yaml:"digest_schedule"`
	DigestOutputDir string `yaml:"digest_output_dir"`

	SlackBotToken     string `yaml:"slack_bot_token"`
	SlackAlertChannel string `yaml:"slack_alert_channel"`

	Timezone string `yaml:"timezone"`

	Location *time.Location `yaml:"-"` // computed from Timezone, not from YAML
}

func LoadConfig() Config {
	var cfg Config

	// Load from config.yaml if it exists
	configPath := "config.yaml"
	if envPath := os.Getenv("CONFIG_PATH"); envPath != "" {
		configPath = envPath
	}
	if data, err := os.ReadFile(configPath); err == nil {
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			log.Fatalf("Error parsing %s: %v", configPath, err)
		}
		log.Printf("Loaded config from %s", configPath)
	}

	// Env vars override YAML values
	envOverride(&cfg.AnalyzerProvider, "ANALYZER_PROVIDER")
	envOverride(&cfg.AnalyzerURL, "ANALYZER_URL")
	envOverride(&cfg.AnthropicAPIKey, "ANTHROPIC_API_KEY")
	envOverride(&cfg.AnthropicModel, "ANTHROPIC_MODEL")
	envOverrideInt(&cfg.MaxClarificationTurns, "MAX_CLARIFICATION_TURNS")
	envOverrideInt(&cfg.AnalyzeTimeoutSeconds, "ANALYZE_TIMEOUT_SECONDS")
	envOverride(&cfg.DBPath, "DB_PATH")
	envOverrideBool(&cfg.SeedDemoData, "SEED_DEMO_DATA")
	envOverride(&cfg.ListenAddr, "LISTEN_ADDR")
	envOverride(&cfg.DefaultLanguage, "DEFAULT_LANGUAGE")
	envOverride(&cfg.DigestSchedule, "DIGEST_SCHEDULE")
	envOverride(&cfg.DigestOutputDir, "DIGEST_OUTPUT_DIR")
	envOverride(&cfg.SlackBotToken, "SLACK_BOT_TOKEN")
	envOverride(&cfg.SlackAlertChannel, "SLACK_ALERT_CHANNEL")
	envOverride(&cfg.Timezone, "TIMEZONE")

	applyDefaults(&cfg)
	validate(&cfg)

	return cfg
}

func applyDefaults(cfg *Config) {
	if cfg.AnalyzerProvider == "" {
		cfg.AnalyzerProvider = "http"
	}
	if cfg.MaxClarificationTurns == 0 {
		cfg.MaxClarificationTurns = 5
	}
	if cfg.AnalyzeTimeoutSeconds == 0 {
		cfg.AnalyzeTimeoutSeconds = 30
	}
	if cfg.DBPath == "" {
		cfg.DBPath = "./complaintbot.db"
	}
	if cfg.ListenAddr == "" {
		cfg.ListenAddr = ":8787"
	}
	if cfg.DefaultLanguage == "" {
		cfg.DefaultLanguage = "kk"
	}
	if cfg.DigestOutputDir == "" {
		cfg.DigestOutputDir = "./digests"
	}
	if cfg.Timezone == "" {
		cfg.Timezone = "Asia/Almaty"
	}
}

func validate(cfg *Config) {
	switch cfg.AnalyzerProvider {
	case "http":
		if cfg.AnalyzerURL == "" {
			log.Fatalf("analyzer_url is required when analyzer_provider=http")
		}
	case "anthropic":
		if cfg.AnthropicAPIKey == "" {
			log.Fatalf("anthropic_api_key is required when analyzer_provider=anthropic")
		}
	default:
		log.Fatalf("analyzer_provider must be 'http' or 'anthropic', got '%s'", cfg.AnalyzerProvider)
	}

	switch cfg.DefaultLanguage {
	case "kk", "ru":
	default:
		log.Fatalf("default_language must be 'kk' or 'ru', got '%s'", cfg.DefaultLanguage)
	}

	if cfg.MaxClarificationTurns < 1 {
		log.Fatalf("invalid max_clarification_turns '%d': must be >= 1", cfg.MaxClarificationTurns)
	}
	if cfg.AnalyzeTimeoutSeconds < 1 {
		log.Fatalf("invalid analyze_timeout_seconds '%d': must be >= 1", cfg.AnalyzeTimeoutSeconds)
	}
	if cfg.SlackAlertChannel != "" && cfg.SlackBotToken == "" {
		log.Fatalf("slack_bot_token is required when slack_alert_channel is set")
	}

	if strings.EqualFold(cfg.Timezone, "Local") {
		cfg.Location = time.Local
	} else {
		loc, err := time.LoadLocation(cfg.Timezone)
		if err != nil {
			log.Fatalf("invalid timezone '%s': %v", cfg.Timezone, err)
		}
		cfg.Location = loc
	}
}

func (c Config) AnalyzeTimeout() time.Duration {
	return time.Duration(c.AnalyzeTimeoutSeconds) * time.Second
}

// Language returns the validated default language as a domain value.
func (c Config) Language() domain.Language {
	return domain.Language(c.DefaultLanguage)
}

func envOverride(field *string, envKey string) {
	if val := os.Getenv(envKey); val != "" {
		*field = val
	}
}

func envOverrideInt(field *int, envKey string) {
	if val := os.Getenv(envKey); val != "" {
		parsed, err := strconv.Atoi(val)
		if err != nil {
			log.Fatalf("invalid %s '%s': %v", envKey, val, err)
		}
		*field = parsed
	}
}

func envOverrideBool(field *bool, envKey string) {
	if val := os.Getenv(envKey); val != "" {
		parsed, err := strconv.ParseBool(val)
		if err != nil {
			log.Fatalf("invalid %s '%s': %v", envKey, val, err)
		}
		*field = parsed
	}
}
