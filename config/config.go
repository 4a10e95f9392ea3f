// Package config loads the settings of the unwind command.
package config

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/caarlos0/env/v11"
	"github.com/rs/zerolog"
	"gopkg.in/yaml.v3"
)

// Config holds program settings. Values are read from a YAML file and then
// overridden by UNWIND_* environment variables.
type Config struct {
	AnnotationLevel int    `yaml:"annotation_level" json:"annotation_level" env:"UNWIND_ANNOTATE"`
	NoColor         bool   `yaml:"no_color" json:"no_color" env:"UNWIND_NO_COLOR"`
	Journal         string `yaml:"journal" json:"journal" env:"UNWIND_JOURNAL"`
	LogLevel        string `yaml:"log_level" json:"log_level" env:"UNWIND_LOG_LEVEL"`
	MetricsAddr     string `yaml:"metrics_addr" json:"metrics_addr" env:"UNWIND_METRICS_ADDR"`
	HistoryFile     string `yaml:"history_file" json:"history_file" env:"UNWIND_HISTORY"`
	Prompt          string `yaml:"prompt" json:"prompt" env:"UNWIND_PROMPT"`
	Async           bool   `yaml:"async" json:"async" env:"UNWIND_ASYNC"`
}

const (
	DefaultJournal     = "memory:"
	DefaultLogLevel    = "warn"
	DefaultHistoryFile = "~/.unwind_history"
	DefaultPrompt      = "(unwind) "
	maxAnnotationLevel = 2
)

var errAnnotationLevel = fmt.Errorf("annotation_level must be between 0 and %d", maxAnnotationLevel)

// Default returns the built-in settings.
func Default() *Config {
	cfg := &Config{}
	cfg.setDefaults()
	return cfg
}

// Load reads the YAML file at path, applies environment overrides, fills in
// defaults and validates the result. An empty path skips the file.
func Load(path string) (*Config, error) {
	cfg := &Config{}
	if path != "" {
		f, err := os.Open(path)
		if err != nil {
			return nil, fmt.Errorf("open config: %w", err)
		}
		defer f.Close()
		if cfg, err = decode(f); err != nil {
			return nil, err
		}
	}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}
	cfg.setDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func decode(r io.Reader) (*Config, error) {
	cfg := &Config{}
	if err := yaml.NewDecoder(r).Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("decode yaml: %w", err)
	}
	return cfg, nil
}

func (c *Config) setDefaults() {
	if strings.TrimSpace(c.Journal) == "" {
		c.Journal = DefaultJournal
	}
	if c.LogLevel == "" {
		c.LogLevel = DefaultLogLevel
	}
	if c.HistoryFile == "" {
		c.HistoryFile = DefaultHistoryFile
	}
	if c.Prompt == "" {
		c.Prompt = DefaultPrompt
	}
}

// Validate checks that the settings are usable.
func (c *Config) Validate() error {
	if c.AnnotationLevel < 0 || c.AnnotationLevel > maxAnnotationLevel {
		return errAnnotationLevel
	}
	if _, err := zerolog.ParseLevel(c.LogLevel); err != nil {
		return fmt.Errorf("log_level: %w", err)
	}
	return nil
}

// Level returns the parsed log level.
func (c *Config) Level() zerolog.Level {
	level, err := zerolog.ParseLevel(c.LogLevel)
	if err != nil {
		return zerolog.WarnLevel
	}
	return level
}
