// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// EnvPrefix prefixes every environment override
const EnvPrefix = "PII_ANONYMIZER_"

// Config represents the application configuration
type Config struct {
	Server    ServerConfig    `yaml:"server"`
	Detector  DetectorConfig  `yaml:"detector"`
	Redaction RedactionConfig `yaml:"redaction"`
	Logging   LoggingConfig   `yaml:"logging"`
}

// ServerConfig holds the web server settings
type ServerConfig struct {
	Address         string        `yaml:"address" validate:"required"`
	ReadTimeout     time.Duration `yaml:"read_timeout" validate:"gt=0"`
	WriteTimeout    time.Duration `yaml:"write_timeout" validate:"gt=0"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout" validate:"gt=0"`
	MaxUploadMB     int64         `yaml:"max_upload_mb" validate:"gt=0,lte=1024"`
	DownloadTTL     time.Duration `yaml:"download_ttl" validate:"gt=0"`
	RateLimit       RateLimit     `yaml:"rate_limit"`
}

// RateLimit configures per-client limits on POST routes
type RateLimit struct {
	Enabled           bool    `yaml:"enabled"`
	RequestsPerSecond float64 `yaml:"requests_per_second" validate:"required_if=Enabled true,gte=0"`
	Burst             int     `yaml:"burst" validate:"required_if=Enabled true,gte=0"`
}

// DetectorConfig selects and tunes the PII detector
type DetectorConfig struct {
	Engine         string         `yaml:"engine" validate:"oneof=patterns presidio"`
	Language       string         `yaml:"language" validate:"required"`
	ScoreThreshold float64        `yaml:"score_threshold" validate:"gte=0,lte=1"`
	Entities       []string       `yaml:"entities"`
	Workers        int            `yaml:"workers" validate:"gte=0,lte=64"`
	Presidio       PresidioConfig `yaml:"presidio"`
}

// PresidioConfig points at a Presidio analyzer
type PresidioConfig struct {
	URL        string        `yaml:"url" validate:"omitempty,url"`
	Timeout    time.Duration `yaml:"timeout" validate:"gt=0"`
	MaxRetries int           `yaml:"max_retries" validate:"gte=0,lte=10"`
}

// RedactionConfig controls what is masked and how
type RedactionConfig struct {
	Strategy        string   `yaml:"strategy" validate:"oneof=mask tag"`
	MaskChar        string   `yaml:"mask_char" validate:"omitempty,len=1"`
	ExcludeEntities []string `yaml:"exclude_entities"`
	AllowList       []string `yaml:"allow_list"`
}

// LoggingConfig controls the zap logger
type LoggingConfig struct {
	Level  string `yaml:"level" validate:"oneof=debug info warn error"`
	Format string `yaml:"format" validate:"oneof=console json"`
}

// Default returns the configuration used when no file is present
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Address:         ":8080",
			ReadTimeout:     30 * time.Second,
			WriteTimeout:    2 * time.Minute,
			ShutdownTimeout: 15 * time.Second,
			MaxUploadMB:     25,
			DownloadTTL:     15 * time.Minute,
			RateLimit: RateLimit{
				Enabled:           true,
				RequestsPerSecond: 2,
				Burst:             10,
			},
		},
		Detector: DetectorConfig{
			Engine:   "patterns",
			Language: "en",
			Presidio: PresidioConfig{
				URL:        "http://localhost:5002",
				Timeout:    10 * time.Second,
				MaxRetries: 3,
			},
		},
		Redaction: RedactionConfig{
			Strategy:        "mask",
			MaskChar:        "*",
			ExcludeEntities: []string{"URL"},
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "console",
		},
	}
}

// MaxUploadBytes returns the upload cap in bytes
func (s ServerConfig) MaxUploadBytes() int64 {
	return s.MaxUploadMB << 20
}

// LoadConfig loads configuration from the specified file path. An empty path
// yields the defaults. Environment overrides are applied last, then the result
// is validated.
func LoadConfig(configPath string) (*Config, error) {
	config := Default()

	if configPath != "" {
		data, err := os.ReadFile(filepath.Clean(configPath))
		if err != nil {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}

		// yaml.v3 leaves fields absent from the file untouched, so defaults survive
		if err := yaml.Unmarshal(data, config); err != nil {
			return nil, fmt.Errorf("error parsing config file: %w", err)
		}
	}

	if err := applyEnv(config, os.LookupEnv); err != nil {
		return nil, fmt.Errorf("invalid environment override: %w", err)
	}

	if err := ValidateConfig(config); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return config, nil
}

// LoadDotEnv loads variables from a .env file in the working directory when
// one exists. Variables already set in the environment win.
func LoadDotEnv() error {
	if !fileExists(".env") {
		return nil
	}
	return godotenv.Load(".env")
}

// FindConfigFile looks for a configuration file in standard locations
func FindConfigFile() string {
	for _, name := range []string{"config.yaml", "config.yml", ".pii-anonymizer.yaml", ".pii-anonymizer.yml"} {
		if fileExists(name) {
			return name
		}
	}

	xdgConfig := os.Getenv("XDG_CONFIG_HOME")
	if xdgConfig == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return ""
		}
		xdgConfig = filepath.Join(home, ".config")
	}
	for _, name := range []string{"config.yaml", "config.yml"} {
		candidate := filepath.Join(xdgConfig, "pii-anonymizer", name)
		if fileExists(candidate) {
			return candidate
		}
	}

	return ""
}

// LoadConfigOrDefault loads configuration from configFile (or searches standard
// locations when configFile is empty). If loading fails, it returns the
// defaults together with the error so callers can log it.
func LoadConfigOrDefault(configFile string) (*Config, error) {
	configPath := configFile
	if configPath == "" {
		configPath = FindConfigFile()
	}

	cfg, err := LoadConfig(configPath)
	if err != nil {
		return Default(), err
	}
	return cfg, nil
}

var validate = validator.New()

// ValidateConfig validates the configuration
func ValidateConfig(config *Config) error {
	if config == nil {
		return errors.New("configuration cannot be nil")
	}

	if err := validate.Struct(config); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			msgs := make([]string, 0, len(verrs))
			for _, fe := range verrs {
				msgs = append(msgs, fmt.Sprintf("%s: failed %q check (value %v)", fieldPath(fe), fe.Tag(), fe.Value()))
			}
			return errors.New(strings.Join(msgs, "; "))
		}
		return err
	}

	if config.Detector.Engine == "presidio" && config.Detector.Presidio.URL == "" {
		return errors.New("detector.presidio.url is required when engine is presidio")
	}
	return nil
}

// fieldPath turns "Config.Detector.Presidio.URL" into "detector.presidio.url"
func fieldPath(fe validator.FieldError) string {
	ns := fe.Namespace()
	if i := strings.IndexByte(ns, '.'); i >= 0 {
		ns = ns[i+1:]
	}
	return toSnake(ns)
}

func toSnake(s string) string {
	var b strings.Builder
	for i, r := range s {
		if r >= 'A' && r <= 'Z' {
			if i > 0 && s[i-1] != '.' && !(s[i-1] >= 'A' && s[i-1] <= 'Z') {
				b.WriteByte('_')
			}
			r += 'a' - 'A'
		}
		b.WriteRune(r)
	}
	return b.String()
}

// applyEnv overrides fields from PII_ANONYMIZER_* variables
func applyEnv(c *Config, lookup func(string) (string, bool)) error {
	str := func(key string, dst *string) {
		if v, ok := lookup(EnvPrefix + key); ok && strings.TrimSpace(v) != "" {
			*dst = strings.TrimSpace(v)
		}
	}
	list := func(key string, dst *[]string) {
		if v, ok := lookup(EnvPrefix + key); ok {
			*dst = splitList(v)
		}
	}

	var errs []error
	parse := func(key string, set func(string) error) {
		if v, ok := lookup(EnvPrefix + key); ok && strings.TrimSpace(v) != "" {
			if err := set(strings.TrimSpace(v)); err != nil {
				errs = append(errs, fmt.Errorf("%s%s: %w", EnvPrefix, key, err))
			}
		}
	}
	duration := func(dst *time.Duration) func(string) error {
		return func(v string) error {
			d, err := time.ParseDuration(v)
			*dst = d
			return err
		}
	}

	str("ADDRESS", &c.Server.Address)
	parse("MAX_UPLOAD_MB", func(v string) (err error) {
		c.Server.MaxUploadMB, err = strconv.ParseInt(v, 10, 64)
		return err
	})
	parse("DOWNLOAD_TTL", duration(&c.Server.DownloadTTL))
	parse("RATE_LIMIT_ENABLED", func(v string) (err error) {
		c.Server.RateLimit.Enabled, err = strconv.ParseBool(v)
		return err
	})
	parse("RATE_LIMIT_RPS", func(v string) (err error) {
		c.Server.RateLimit.RequestsPerSecond, err = strconv.ParseFloat(v, 64)
		return err
	})

	str("ENGINE", &c.Detector.Engine)
	str("LANGUAGE", &c.Detector.Language)
	list("ENTITIES", &c.Detector.Entities)
	parse("SCORE_THRESHOLD", func(v string) (err error) {
		c.Detector.ScoreThreshold, err = strconv.ParseFloat(v, 64)
		return err
	})
	parse("WORKERS", func(v string) (err error) {
		c.Detector.Workers, err = strconv.Atoi(v)
		return err
	})
	str("PRESIDIO_URL", &c.Detector.Presidio.URL)
	parse("PRESIDIO_TIMEOUT", duration(&c.Detector.Presidio.Timeout))

	str("STRATEGY", &c.Redaction.Strategy)
	list("EXCLUDE_ENTITIES", &c.Redaction.ExcludeEntities)
	list("ALLOW_LIST", &c.Redaction.AllowList)

	str("LOG_LEVEL", &c.Logging.Level)
	str("LOG_FORMAT", &c.Logging.Format)

	return errors.Join(errs...)
}

func splitList(v string) []string {
	out := []string{}
	for _, part := range strings.Split(v, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

// fileExists checks if a file exists and is not a directory
func fileExists(filename string) bool {
	info, err := os.Stat(filename)
	if err != nil {
		return false
	}
	return !info.IsDir()
}
