package chatstream

import (
	"fmt"

	"github.com/spf13/viper"
)

type Config struct {
	// Language is the default locale for requests that do not set one.
	Language      string              `mapstructure:"language"`
	LogLevel      string              `mapstructure:"log_level"`
	LogFormat     string              `mapstructure:"log_format"`
	EventBuffer   int                 `mapstructure:"event_buffer"`
	Transport     TransportConfig     `mapstructure:"transport"`
	Observability ObservabilityConfig `mapstructure:"observability"`
	Privacy       PrivacyConfig       `mapstructure:"privacy"`
}

type TransportConfig struct {
	Provider string         `mapstructure:"provider"`
	Settings map[string]any `mapstructure:"settings"`
}

type ObservabilityConfig struct {
	// SummaryDir receives one JSON summary file per finished session.
	SummaryDir string `mapstructure:"summary_dir"`
	// MetricsPath receives transition events as JSON lines.
	MetricsPath string `mapstructure:"metrics_path"`
	// TokenSampleRate thins out token/audio self-transition events sent to
	// observers. 1.0 records everything.
	TokenSampleRate float64 `mapstructure:"token_sample_rate"`
}

type PrivacyConfig struct {
	RedactPII bool `mapstructure:"redact_pii"`
}

func LoadConfig(path string) (Config, error) {
	v := viper.New()
	v.SetConfigFile(path)
	setDefaults(v)
	if err := v.ReadInConfig(); err != nil {
		return Config{}, fmt.Errorf("read config: %w", err)
	}
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("unmarshal: %w", err)
	}
	return cfg, nil
}

// DefaultConfig returns the configuration used when no config file is
// given, pointing at a local backend.
func DefaultConfig(endpoint string) Config {
	v := viper.New()
	setDefaults(v)
	var cfg Config
	_ = v.Unmarshal(&cfg)
	cfg.Transport.Settings = map[string]any{"endpoint": endpoint}
	return cfg
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("language", "en_US")
	v.SetDefault("log_level", "info")
	v.SetDefault("log_format", "text")
	v.SetDefault("event_buffer", 64)
	v.SetDefault("transport.provider", "websocket")
	v.SetDefault("observability.summary_dir", "")
	v.SetDefault("observability.metrics_path", "")
	v.SetDefault("observability.token_sample_rate", 1.0)
	v.SetDefault("privacy.redact_pii", true)
}
