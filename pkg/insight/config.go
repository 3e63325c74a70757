// Package insight assembles the interview capture service: config,
// provider registry, and the engine that wires everything together.
package insight

import (
	"fmt"
	"os"
	"reflect"
	"strings"

	"github.com/spf13/viper"
)

type Config struct {
	Server        ServerConfig        `mapstructure:"server"`
	Vendors       VendorsConfig       `mapstructure:"vendors"`
	Session       SessionConfig       `mapstructure:"session"`
	Storage       StorageConfig       `mapstructure:"storage"`
	Polling       PollingConfig       `mapstructure:"polling"`
	Pipeline      PipelineConfig      `mapstructure:"pipeline"`
	Privacy       PrivacyConfig       `mapstructure:"privacy"`
	Observability ObservabilityConfig `mapstructure:"observability"`
	Seed          SeedConfig          `mapstructure:"seed"`
	Environment   string              `mapstructure:"environment"`
	LogLevel      string              `mapstructure:"log_level"`
}

type ServerConfig struct {
	Addr           string `mapstructure:"addr"`
	UploadsDir     string `mapstructure:"uploads_dir"`
	MaxUploadMB    int    `mapstructure:"max_upload_mb"`
	DrainTimeoutMS int    `mapstructure:"drain_timeout_ms"`
}

type VendorConfig struct {
	Provider string         `mapstructure:"provider"`
	Settings map[string]any `mapstructure:"settings"`
}

type VendorsConfig struct {
	Speech  VendorConfig `mapstructure:"speech"`
	Capture VendorConfig `mapstructure:"capture"`
}

type SessionConfig struct {
	TokenSecret        string `mapstructure:"token_secret"`
	TokenTTLHours      int    `mapstructure:"token_ttl_hours"`
	RequireAllAnswered bool   `mapstructure:"require_all_answered"`
}

type StorageConfig struct {
	Driver string `mapstructure:"driver"`
	Path   string `mapstructure:"path"`
}

type PollingConfig struct {
	IntervalMS  int `mapstructure:"interval_ms"`
	MaxAttempts int `mapstructure:"max_attempts"`
}

type PipelineConfig struct {
	Strategy          string `mapstructure:"strategy"`
	SentimentAnalysis bool   `mapstructure:"sentiment_analysis"`
	ContentSafety     bool   `mapstructure:"content_safety"`
	InsightPrompt     string `mapstructure:"insight_prompt"`
}

type PrivacyConfig struct {
	RedactPII bool `mapstructure:"redact_pii"`
}

type ObservabilityConfig struct {
	MetricsPath string `mapstructure:"metrics_path"`
	AsyncBuffer int    `mapstructure:"async_buffer"`
}

type SeedConfig struct {
	DemoInterview bool `mapstructure:"demo_interview"`
}

func LoadConfig(path string) (Config, error) {
	v := viper.New()
	v.SetConfigFile(path)
	v.SetDefault("server.addr", ":8080")
	v.SetDefault("server.uploads_dir", "uploads")
	v.SetDefault("server.max_upload_mb", 32)
	v.SetDefault("server.drain_timeout_ms", 10000)
	v.SetDefault("vendors.speech.provider", "mock")
	v.SetDefault("vendors.capture.provider", "mock")
	v.SetDefault("session.token_ttl_hours", 168)
	v.SetDefault("session.require_all_answered", false)
	v.SetDefault("storage.driver", "memory")
	v.SetDefault("storage.path", "insight.db")
	v.SetDefault("polling.interval_ms", 2000)
	v.SetDefault("polling.max_attempts", 30)
	v.SetDefault("pipeline.strategy", "poll")
	v.SetDefault("pipeline.sentiment_analysis", true)
	v.SetDefault("pipeline.content_safety", false)
	v.SetDefault("privacy.redact_pii", true)
	v.SetDefault("observability.metrics_path", "")
	v.SetDefault("observability.async_buffer", 256)
	v.SetDefault("seed.demo_interview", true)
	v.SetDefault("environment", "development")
	v.SetDefault("log_level", "info")

	if err := v.ReadInConfig(); err != nil {
		return Config{}, fmt.Errorf("read config: %w", err)
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("unmarshal: %w", err)
	}

	expandEnvStrings(&cfg)

	if err := cfg.Validate(); err != nil {
		return Config{}, fmt.Errorf("validate config: %w", err)
	}
	return cfg, nil
}

func (c *Config) Validate() error {
	if strings.TrimSpace(c.Vendors.Speech.Provider) == "" {
		return fmt.Errorf("vendors.speech.provider is required")
	}
	if strings.TrimSpace(c.Vendors.Capture.Provider) == "" {
		return fmt.Errorf("vendors.capture.provider is required")
	}
	if strings.TrimSpace(c.Session.TokenSecret) == "" {
		return fmt.Errorf("session.token_secret is required")
	}
	switch c.Storage.Driver {
	case "memory", "sqlite":
	default:
		return fmt.Errorf("storage.driver must be memory or sqlite, got %q", c.Storage.Driver)
	}
	switch c.Pipeline.Strategy {
	case "poll", "sync":
	default:
		return fmt.Errorf("pipeline.strategy must be poll or sync, got %q", c.Pipeline.Strategy)
	}
	return nil
}

func expandEnvStrings(cfg *Config) {
	expandValue(reflect.ValueOf(cfg))
	cfg.Vendors.Speech.Settings = expandSettings(cfg.Vendors.Speech.Settings)
	cfg.Vendors.Capture.Settings = expandSettings(cfg.Vendors.Capture.Settings)
}

func expandSettings(settings map[string]any) map[string]any {
	if settings == nil {
		return nil
	}
	for k, v := range settings {
		settings[k] = expandAny(v)
	}
	return settings
}

func expandAny(v any) any {
	switch val := v.(type) {
	case string:
		return os.ExpandEnv(val)
	case []any:
		for i := range val {
			val[i] = expandAny(val[i])
		}
		return val
	case map[string]any:
		for k, v := range val {
			val[k] = expandAny(v)
		}
		return val
	default:
		return v
	}
}

func expandValue(v reflect.Value) {
	if !v.IsValid() {
		return
	}
	if v.Kind() == reflect.Pointer {
		if v.IsNil() {
			return
		}
		expandValue(v.Elem())
		return
	}
	switch v.Kind() {
	case reflect.Struct:
		for i := 0; i < v.NumField(); i++ {
			expandValue(v.Field(i))
		}
	case reflect.String:
		if v.CanSet() {
			v.SetString(os.ExpandEnv(v.String()))
		}
	}
}
