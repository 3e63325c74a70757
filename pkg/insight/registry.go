package insight

import (
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/sidilemine/InsightSprint-sub001/pkg/adapters/capture"
	"github.com/sidilemine/InsightSprint-sub001/pkg/adapters/transcribe"
	"github.com/sidilemine/InsightSprint-sub001/pkg/configutil"
	"github.com/sidilemine/InsightSprint-sub001/pkg/providers/assemblyai"
	"github.com/sidilemine/InsightSprint-sub001/pkg/providers/deepgram"
	"github.com/sidilemine/InsightSprint-sub001/pkg/providers/mock"
	"github.com/sidilemine/InsightSprint-sub001/pkg/providers/pulse"
)

type SpeechFactory func(cfg Config, logger *slog.Logger) (transcribe.Gateway, error)
type CaptureFactoryBuilder func(cfg Config, logger *slog.Logger) (capture.Factory, error)

type ProviderRegistry struct {
	speech  map[string]SpeechFactory
	capture map[string]CaptureFactoryBuilder
}

func NewProviderRegistry() *ProviderRegistry {
	return &ProviderRegistry{
		speech:  make(map[string]SpeechFactory),
		capture: make(map[string]CaptureFactoryBuilder),
	}
}

func (r *ProviderRegistry) RegisterSpeech(name string, factory SpeechFactory) {
	r.speech[strings.ToLower(strings.TrimSpace(name))] = factory
}

func (r *ProviderRegistry) RegisterCapture(name string, factory CaptureFactoryBuilder) {
	r.capture[strings.ToLower(strings.TrimSpace(name))] = factory
}

func (r *ProviderRegistry) BuildSpeech(provider string, cfg Config, logger *slog.Logger) (transcribe.Gateway, error) {
	fn := r.speech[strings.ToLower(strings.TrimSpace(provider))]
	if fn == nil {
		return nil, fmt.Errorf("speech provider not registered: %s", provider)
	}
	return fn(cfg, logger)
}

func (r *ProviderRegistry) BuildCaptureFactory(provider string, cfg Config, logger *slog.Logger) (capture.Factory, error) {
	fn := r.capture[strings.ToLower(strings.TrimSpace(provider))]
	if fn == nil {
		return nil, fmt.Errorf("capture provider not registered: %s", provider)
	}
	return fn(cfg, logger)
}

type assemblyAISettings struct {
	APIKey         string `mapstructure:"api_key"`
	BaseURL        string `mapstructure:"base_url"`
	TimeoutMS      int    `mapstructure:"timeout_ms"`
	PollIntervalMS int    `mapstructure:"poll_interval_ms"`
	MaxAttempts    int    `mapstructure:"max_attempts"`
}

type deepgramSettings struct {
	APIKey   string `mapstructure:"api_key"`
	Model    string `mapstructure:"model"`
	Language string `mapstructure:"language"`
	SpoolDir string `mapstructure:"spool_dir"`
}

type mockSpeechSettings struct {
	Transcript string   `mapstructure:"transcript"`
	Statuses   []string `mapstructure:"statuses"`
	Insights   string   `mapstructure:"insights"`
}

type captureSettings struct {
	Source     string `mapstructure:"source"`
	Fallback   string `mapstructure:"fallback"`
	SampleRate int    `mapstructure:"sample_rate"`
	Channels   int    `mapstructure:"channels"`
}

var (
	assemblyAISchema = configutil.Schema{
		Required: []string{"api_key"},
		Optional: []string{"base_url", "timeout_ms", "poll_interval_ms", "max_attempts"},
	}
	deepgramSchema = configutil.Schema{
		Required: []string{"api_key"},
		Optional: []string{"model", "language", "spool_dir"},
	}
	mockSpeechSchema = configutil.Schema{
		Optional: []string{"transcript", "statuses", "insights"},
	}
	captureSchema = configutil.Schema{
		Optional: []string{"source", "fallback", "sample_rate", "channels"},
	}
)

// DefaultRegistry returns the registry with all built-in vendors.
func DefaultRegistry() *ProviderRegistry {
	r := NewProviderRegistry()

	r.RegisterSpeech("assemblyai", func(cfg Config, logger *slog.Logger) (transcribe.Gateway, error) {
		if err := configutil.ValidateSettings(cfg.Vendors.Speech.Settings, assemblyAISchema); err != nil {
			return nil, fmt.Errorf("assemblyai settings: %w", err)
		}
		var s assemblyAISettings
		if err := configutil.DecodeSettings(cfg.Vendors.Speech.Settings, &s); err != nil {
			return nil, fmt.Errorf("assemblyai settings: %w", err)
		}
		if err := configutil.RequireString(s.APIKey, "vendors.speech.settings.api_key"); err != nil {
			return nil, err
		}
		return assemblyai.New(assemblyai.Config{
			APIKey:       s.APIKey,
			BaseURL:      s.BaseURL,
			Timeout:      time.Duration(s.TimeoutMS) * time.Millisecond,
			PollInterval: time.Duration(s.PollIntervalMS) * time.Millisecond,
			MaxAttempts:  s.MaxAttempts,
		}, logger), nil
	})

	r.RegisterSpeech("deepgram", func(cfg Config, logger *slog.Logger) (transcribe.Gateway, error) {
		if err := configutil.ValidateSettings(cfg.Vendors.Speech.Settings, deepgramSchema); err != nil {
			return nil, fmt.Errorf("deepgram settings: %w", err)
		}
		var s deepgramSettings
		if err := configutil.DecodeSettings(cfg.Vendors.Speech.Settings, &s); err != nil {
			return nil, fmt.Errorf("deepgram settings: %w", err)
		}
		if err := configutil.RequireString(s.APIKey, "vendors.speech.settings.api_key"); err != nil {
			return nil, err
		}
		if cfg.Pipeline.Strategy != "sync" {
			return nil, fmt.Errorf("deepgram supports only pipeline.strategy sync")
		}
		return deepgram.New(deepgram.Config{
			APIKey:   s.APIKey,
			Model:    s.Model,
			Language: s.Language,
			SpoolDir: s.SpoolDir,
		}, logger), nil
	})

	r.RegisterSpeech("mock", func(cfg Config, logger *slog.Logger) (transcribe.Gateway, error) {
		if err := configutil.ValidateSettings(cfg.Vendors.Speech.Settings, mockSpeechSchema); err != nil {
			return nil, fmt.Errorf("mock speech settings: %w", err)
		}
		var s mockSpeechSettings
		if err := configutil.DecodeSettings(cfg.Vendors.Speech.Settings, &s); err != nil {
			return nil, fmt.Errorf("mock speech settings: %w", err)
		}
		opts := []mock.TranscriberOption{}
		if s.Transcript != "" {
			opts = append(opts, mock.WithTranscript(s.Transcript))
		}
		if s.Insights != "" {
			opts = append(opts, mock.WithInsights(s.Insights))
		}
		if len(s.Statuses) > 0 {
			statuses := make([]transcribe.Status, len(s.Statuses))
			for i, raw := range s.Statuses {
				statuses[i] = transcribe.Status(raw)
			}
			opts = append(opts, mock.WithStatusSequence(statuses...))
		}
		return mock.NewTranscriber(opts...), nil
	})

	r.RegisterCapture("pulse", func(cfg Config, logger *slog.Logger) (capture.Factory, error) {
		if err := configutil.ValidateSettings(cfg.Vendors.Capture.Settings, captureSchema); err != nil {
			return nil, fmt.Errorf("pulse settings: %w", err)
		}
		var s captureSettings
		if err := configutil.DecodeSettings(cfg.Vendors.Capture.Settings, &s); err != nil {
			return nil, fmt.Errorf("pulse settings: %w", err)
		}
		captureCfg := capture.Config{
			Source:     s.Source,
			Fallback:   s.Fallback,
			SampleRate: s.SampleRate,
			Channels:   s.Channels,
		}
		return func() (capture.Device, error) {
			return pulse.New(captureCfg, logger), nil
		}, nil
	})

	r.RegisterCapture("mock", func(cfg Config, logger *slog.Logger) (capture.Factory, error) {
		return func() (capture.Device, error) {
			return mock.NewCaptureDevice(), nil
		}, nil
	})

	return r
}
