// Package config provides configuration loading from environment variables
// and the optional analysis tuning file.
package config

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/sethvargo/go-envconfig"
)

// Static errors for configuration validation.
var (
	// ErrInferenceURLRequired is returned when CLASSIFIER_BACKEND is http but
	// INFERENCE_URL is not set.
	ErrInferenceURLRequired = errors.New("config: INFERENCE_URL is required when CLASSIFIER_BACKEND is http")
	// ErrInvalidWindowGeometry is returned when OVERLAP_SECONDS is not smaller
	// than WINDOW_SECONDS.
	ErrInvalidWindowGeometry = errors.New("config: OVERLAP_SECONDS must be smaller than WINDOW_SECONDS")
)

// validate checks the range tags on Config.
var validate = validator.New()

// Config holds all configuration for the application.
type Config struct {
	// Server settings
	Port        int   `env:"PORT, default=8080" json:"port" validate:"min=1,max=65535"`
	MaxUploadMB int64 `env:"MAX_UPLOAD_MB, default=50" json:"max_upload_mb" validate:"min=1"`

	// Storage settings
	DataDir string `env:"DATA_DIR, default=/tmp/voicepulse" json:"data_dir"`
	DBPath  string `env:"DB_PATH" json:"db_path,omitempty"` // Defaults to {DATA_DIR}/voicepulse.db

	// Repository settings
	RepoBackend string `env:"REPO_BACKEND, default=memory" json:"repo_backend" validate:"oneof=memory sqlite"`

	// Audio settings
	TargetSampleRate int     `env:"TARGET_SAMPLE_RATE, default=16000" json:"target_sample_rate" validate:"gt=0"`
	MaxAudioSeconds  float64 `env:"MAX_AUDIO_SECONDS, default=600" json:"max_audio_seconds" validate:"gt=0"`
	FFmpegPath       string  `env:"FFMPEG_PATH" json:"ffmpeg_path,omitempty"` // Empty resolves from PATH

	// Analysis settings
	WindowSeconds                float64 `env:"WINDOW_SECONDS, default=2.0" json:"window_seconds" validate:"gt=0"`
	OverlapSeconds               float64 `env:"OVERLAP_SECONDS, default=1.0" json:"overlap_seconds" validate:"gt=0"`
	SignificanceThreshold        float64 `env:"SIGNIFICANCE_THRESHOLD, default=0.15" json:"significance_threshold" validate:"gte=0,lte=1"`
	PositiveThreshold            float64 `env:"POSITIVE_THRESHOLD, default=0.15" json:"positive_threshold" validate:"gt=0,lte=1"`
	NegativeThreshold            float64 `env:"NEGATIVE_THRESHOLD, default=-0.15" json:"negative_threshold" validate:"lt=0,gte=-1"`
	MaxConcurrentClassifications int     `env:"MAX_CONCURRENT_CLASSIFICATIONS, default=4" json:"max_concurrent_classifications" validate:"min=1"`
	TuningFile                   string  `env:"TUNING_FILE" json:"tuning_file,omitempty"`

	// Classifier settings
	ClassifierBackend   string `env:"CLASSIFIER_BACKEND, default=energy" json:"classifier_backend" validate:"oneof=energy http"`
	InferenceURL        string `env:"INFERENCE_URL" json:"inference_url,omitempty"`
	InferenceAPIKey     string `env:"INFERENCE_API_KEY" json:"-"` // Masked in JSON
	ClassifierCacheSize int    `env:"CLASSIFIER_CACHE_SIZE, default=256" json:"classifier_cache_size" validate:"gte=0"`

	// Optional S3 settings
	S3Bucket           string `env:"S3_BUCKET" json:"s3_bucket,omitempty"`
	S3Region           string `env:"S3_REGION, default=us-east-1" json:"s3_region,omitempty"`
	S3Endpoint         string `env:"S3_ENDPOINT" json:"s3_endpoint,omitempty"`
	AWSAccessKeyID     string `env:"AWS_ACCESS_KEY_ID" json:"-"`     // Masked in JSON
	AWSSecretAccessKey string `env:"AWS_SECRET_ACCESS_KEY" json:"-"` // Masked in JSON

	// Logging settings
	LogFormat string `env:"LOG_FORMAT, default=text" json:"log_format"` // "json" or "text"
	LogLevel  string `env:"LOG_LEVEL, default=info" json:"log_level"`   // "debug", "info", "warn", "error"
}

// S3Enabled returns true if report archiving to S3 is configured.
func (c *Config) S3Enabled() bool {
	return c.S3Bucket != ""
}

// MaxUploadBytes returns the upload size cap in bytes.
func (c *Config) MaxUploadBytes() int64 {
	return c.MaxUploadMB << 20
}

// Load reads configuration from environment variables using go-envconfig and
// validates it.
func Load() (*Config, error) {
	cfg := &Config{}

	if err := envconfig.Process(context.Background(), cfg); err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate checks field ranges and cross-field constraints.
func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("config: %w", err)
	}
	if c.OverlapSeconds >= c.WindowSeconds {
		return ErrInvalidWindowGeometry
	}
	if c.ClassifierBackend == "http" && c.InferenceURL == "" {
		return ErrInferenceURLRequired
	}
	return nil
}

// NewLogger creates a structured logger based on the configuration.
// When LogFormat is "json", it outputs JSON logs suitable for production.
// Otherwise, it outputs human-readable text logs.
func (c *Config) NewLogger() *slog.Logger {
	level := parseLogLevel(c.LogLevel)

	var handler slog.Handler
	if strings.ToLower(c.LogFormat) == "json" {
		handler = slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
			Level: level,
		})
	} else {
		handler = slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
			Level: level,
		})
	}

	return slog.New(handler)
}

// String returns a string representation of the config with sensitive values masked.
func (c *Config) String() string {
	return fmt.Sprintf(
		"Config{Port: %d, DataDir: %s, RepoBackend: %s, ClassifierBackend: %s, WindowSeconds: %g, OverlapSeconds: %g, SignificanceThreshold: %g, MaxConcurrentClassifications: %d, S3Bucket: %s, S3Region: %s, LogFormat: %s, LogLevel: %s}",
		c.Port,
		c.DataDir,
		c.RepoBackend,
		c.ClassifierBackend,
		c.WindowSeconds,
		c.OverlapSeconds,
		c.SignificanceThreshold,
		c.MaxConcurrentClassifications,
		c.S3Bucket,
		c.S3Region,
		c.LogFormat,
		c.LogLevel,
	)
}

// parseLogLevel converts a string log level to slog.Level.
func parseLogLevel(level string) slog.Level {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug
	case "info":
		return slog.LevelInfo
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
