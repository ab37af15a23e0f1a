// Package config provides configuration file support for Recourse.
// It handles loading, validation, and environment variable interpolation
// for recourse.yaml configuration files.
package config

import (
	"fmt"
	"os"
	"regexp"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config represents the full Recourse configuration.
type Config struct {
	Server    ServerConfig    `mapstructure:"server"`
	Artifacts ArtifactsConfig `mapstructure:"artifacts"`
	Training  TrainingConfig  `mapstructure:"training"`
	Cache     CacheConfig     `mapstructure:"cache"`
	Auth      AuthConfig      `mapstructure:"auth"`
	Telemetry TelemetryConfig `mapstructure:"telemetry"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Port         int           `mapstructure:"port"`
	Host         string        `mapstructure:"host"`
	ReadTimeout  time.Duration `mapstructure:"read_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
}

// ArtifactsConfig holds the location of trained model artifacts.
type ArtifactsConfig struct {
	Dir string `mapstructure:"dir"`
}

// TrainingConfig holds K-Means training settings.
type TrainingConfig struct {
	KMin          int `mapstructure:"k_min"`
	KMax          int `mapstructure:"k_max"`
	TextFeatures  int `mapstructure:"text_features"`
	MaxIterations int `mapstructure:"max_iterations"`
	Restarts      int `mapstructure:"restarts"`
	Workers       int `mapstructure:"workers"`
}

// CacheConfig holds recommendation response cache settings.
type CacheConfig struct {
	Enabled bool          `mapstructure:"enabled"`
	TTL     time.Duration `mapstructure:"ttl"`
	MaxSize int           `mapstructure:"max_size"`
}

// AuthConfig holds authentication settings.
type AuthConfig struct {
	APIKeys []string `mapstructure:"api_keys"`
}

// TelemetryConfig holds observability settings.
type TelemetryConfig struct {
	Tracing TracingConfig `mapstructure:"tracing"`
}

// TracingConfig holds OpenTelemetry tracing settings.
type TracingConfig struct {
	Enabled    bool    `mapstructure:"enabled"`
	Exporter   string  `mapstructure:"exporter"`
	Endpoint   string  `mapstructure:"endpoint"`
	SampleRate float64 `mapstructure:"sample_rate"`
	Insecure   bool    `mapstructure:"insecure"`
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Port:         8080,
			Host:         "0.0.0.0",
			ReadTimeout:  30 * time.Second,
			WriteTimeout: 60 * time.Second,
		},
		Artifacts: ArtifactsConfig{
			Dir: "artifacts",
		},
		Training: TrainingConfig{
			KMin:          2,
			KMax:          15,
			TextFeatures:  50,
			MaxIterations: 300,
			Restarts:      10,
			Workers:       0,
		},
		Cache: CacheConfig{
			Enabled: true,
			TTL:     5 * time.Minute,
			MaxSize: 1000,
		},
		Auth: AuthConfig{
			APIKeys: []string{},
		},
		Telemetry: TelemetryConfig{
			Tracing: TracingConfig{
				Enabled:    false,
				Exporter:   "otlp",
				Endpoint:   "localhost:4317",
				SampleRate: 1.0,
				Insecure:   true,
			},
		},
	}
}

// Load reads configuration from the given viper instance and returns
// a validated Config. Environment variables in string values are
// interpolated using ${VAR} syntax.
func Load(v *viper.Viper) (*Config, error) {
	cfg := DefaultConfig()

	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	// Interpolate environment variables in string fields
	interpolateConfig(cfg)

	if err := Validate(cfg); err != nil {
		return nil, err
	}

	return cfg, nil
}

// LoadFromFile reads a specific config file and returns a validated Config.
func LoadFromFile(path string) (*Config, error) {
	v := viper.New()
	v.SetConfigFile(path)

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
	}

	return Load(v)
}

// Validate checks the configuration for errors and returns a descriptive
// error if any field is invalid.
func Validate(cfg *Config) error {
	var errs []string

	// Server validation
	if cfg.Server.Port < 0 || cfg.Server.Port > 65535 {
		errs = append(errs, fmt.Sprintf("server.port: must be between 0 and 65535, got %d", cfg.Server.Port))
	}
	if cfg.Server.ReadTimeout < 0 {
		errs = append(errs, "server.read_timeout: must be non-negative")
	}
	if cfg.Server.WriteTimeout < 0 {
		errs = append(errs, "server.write_timeout: must be non-negative")
	}

	// Artifacts validation
	if cfg.Artifacts.Dir == "" {
		errs = append(errs, "artifacts.dir: must not be empty")
	}

	// Training validation
	if cfg.Training.KMin < 2 {
		errs = append(errs, fmt.Sprintf("training.k_min: must be at least 2, got %d", cfg.Training.KMin))
	}
	if cfg.Training.KMax < cfg.Training.KMin {
		errs = append(errs, fmt.Sprintf("training.k_max: must be at least k_min (%d), got %d", cfg.Training.KMin, cfg.Training.KMax))
	}
	if cfg.Training.TextFeatures < 0 {
		errs = append(errs, "training.text_features: must be non-negative")
	}
	if cfg.Training.MaxIterations < 1 {
		errs = append(errs, fmt.Sprintf("training.max_iterations: must be at least 1, got %d", cfg.Training.MaxIterations))
	}
	if cfg.Training.Restarts < 1 {
		errs = append(errs, fmt.Sprintf("training.restarts: must be at least 1, got %d", cfg.Training.Restarts))
	}
	if cfg.Training.Workers < 0 {
		errs = append(errs, "training.workers: must be non-negative (0 uses all CPUs)")
	}

	// Cache validation
	if cfg.Cache.TTL < 0 {
		errs = append(errs, "cache.ttl: must be non-negative")
	}
	if cfg.Cache.MaxSize < 0 {
		errs = append(errs, "cache.max_size: must be non-negative")
	}

	// Telemetry validation
	validExporters := map[string]bool{"otlp": true, "stdout": true, "none": true, "": true}
	if !validExporters[cfg.Telemetry.Tracing.Exporter] {
		errs = append(errs, fmt.Sprintf("telemetry.tracing.exporter: unsupported exporter %q (supported: otlp, stdout, none)", cfg.Telemetry.Tracing.Exporter))
	}
	if cfg.Telemetry.Tracing.SampleRate < 0 || cfg.Telemetry.Tracing.SampleRate > 1 {
		errs = append(errs, fmt.Sprintf("telemetry.tracing.sample_rate: must be between 0 and 1, got %f", cfg.Telemetry.Tracing.SampleRate))
	}

	if len(errs) > 0 {
		return fmt.Errorf("configuration errors:\n  - %s", strings.Join(errs, "\n  - "))
	}

	return nil
}

// envVarPattern matches ${VAR} or ${VAR:-default} syntax.
var envVarPattern = regexp.MustCompile(`\$\{([^}:]+)(?::-([^}]*))?\}`)

// InterpolateEnv replaces ${VAR} and ${VAR:-default} patterns in a string
// with the corresponding environment variable values.
func InterpolateEnv(s string) string {
	return envVarPattern.ReplaceAllStringFunc(s, func(match string) string {
		parts := envVarPattern.FindStringSubmatch(match)
		if len(parts) < 2 {
			return match
		}

		varName := parts[1]
		defaultVal := ""
		if len(parts) >= 3 {
			defaultVal = parts[2]
		}

		if val, ok := os.LookupEnv(varName); ok {
			return val
		}
		if defaultVal != "" {
			return defaultVal
		}
		return match
	})
}

// interpolateConfig applies environment variable interpolation to all
// string fields in the config.
func interpolateConfig(cfg *Config) {
	cfg.Server.Host = InterpolateEnv(cfg.Server.Host)
	cfg.Artifacts.Dir = InterpolateEnv(cfg.Artifacts.Dir)

	for i, key := range cfg.Auth.APIKeys {
		cfg.Auth.APIKeys[i] = InterpolateEnv(key)
	}

	cfg.Telemetry.Tracing.Exporter = InterpolateEnv(cfg.Telemetry.Tracing.Exporter)
	cfg.Telemetry.Tracing.Endpoint = InterpolateEnv(cfg.Telemetry.Tracing.Endpoint)
}

// GenerateTemplate returns a YAML template string with all available
// configuration options and their defaults, suitable for writing to
// a recourse.yaml file.
func GenerateTemplate() string {
	return `# Recourse Configuration
# See: https://github.com/Siddhant-K-code/recourse

server:
  port: 8080
  host: 0.0.0.0
  read_timeout: 30s
  write_timeout: 60s

artifacts:
  dir: artifacts

training:
  k_min: 2
  k_max: 15
  text_features: 50
  max_iterations: 300
  restarts: 10
  workers: 0           # 0 uses all CPUs

cache:
  enabled: true
  ttl: 5m
  max_size: 1000

auth:
  api_keys:
    # - ${RECOURSE_API_KEY}

telemetry:
  tracing:
    enabled: false
    exporter: otlp       # otlp, stdout, or none
    endpoint: localhost:4317
    sample_rate: 1.0     # 0.0 to 1.0
    insecure: true
`
}
