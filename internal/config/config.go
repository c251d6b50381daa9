// Package config loads the terminal configuration.
//
// Values start from Default and are overlaid, in order, by the YAML config
// file, by environment variables (optionally read from a .env file) and
// finally by command-line flags, which the cli package applies.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"golang.org/x/text/language"
	"gopkg.in/yaml.v3"

	"github.com/roach88/clubfridge/internal/vereinsflieger"
)

// Environment variables read by Load.
const (
	EnvConfig   = "CLUBFRIDGE_CONFIG"
	EnvDatabase = "CLUBFRIDGE_DATABASE"
	EnvOffline  = "CLUBFRIDGE_OFFLINE"
	EnvLogLevel = "CLUBFRIDGE_LOG_LEVEL"
)

// DefaultFile is read when neither a path nor CLUBFRIDGE_CONFIG is given.
const DefaultFile = "clubfridge.yaml"

// Config is the terminal configuration.
type Config struct {
	// Database is the path of the SQLite file.
	Database string `yaml:"database"`

	// Offline disables credential lookup and all syncing.
	Offline bool `yaml:"offline"`

	Vereinsflieger VereinsfliegerConfig `yaml:"vereinsflieger"`
	Intervals      IntervalsConfig      `yaml:"intervals"`

	// InteractionTimeout is the idle time after which a cart is checked out.
	InteractionTimeout time.Duration `yaml:"interaction_timeout"`

	// NoticeTimeout is how long a transient notice stays on screen.
	NoticeTimeout time.Duration `yaml:"notice_timeout"`

	Update UpdateConfig `yaml:"update"`
	Kiosk  KioskConfig  `yaml:"kiosk"`
	Log    LogConfig    `yaml:"log"`
}

// KioskConfig configures the full-screen UI.
type KioskConfig struct {
	// Language is a BCP 47 tag selecting how prices are formatted.
	Language string `yaml:"language"`
}

// VereinsfliegerConfig configures the accounting service client.
type VereinsfliegerConfig struct {
	BaseURL           string        `yaml:"base_url"`
	RequestsPerSecond float64       `yaml:"requests_per_second"`
	Timeout           time.Duration `yaml:"timeout"`
}

// IntervalsConfig configures the periodic background work.
type IntervalsConfig struct {
	Catalog    time.Duration `yaml:"catalog"`
	Sales      time.Duration `yaml:"sales"`
	SelfUpdate time.Duration `yaml:"self_update"`
}

// UpdateConfig configures the release check.
type UpdateConfig struct {
	Enabled bool   `yaml:"enabled"`
	Owner   string `yaml:"owner"`
	Repo    string `yaml:"repo"`

	// CurrentVersion overrides the version compiled into the binary. Set it
	// after an external updater replaced the binary without a rebuild.
	CurrentVersion string `yaml:"current_version"`
}

// LogConfig configures logging.
type LogConfig struct {
	// Level is one of debug, info, warn, error.
	Level string `yaml:"level"`

	// File receives a copy of all log output. Empty disables file logging.
	File string `yaml:"file"`
}

// Default returns the configuration used when nothing is overridden.
func Default() *Config {
	return &Config{
		Database: "clubfridge.db",
		Vereinsflieger: VereinsfliegerConfig{
			BaseURL:           vereinsflieger.DefaultBaseURL,
			RequestsPerSecond: 5,
			Timeout:           30 * time.Second,
		},
		Intervals: IntervalsConfig{
			Catalog:    6 * time.Hour,
			Sales:      10 * time.Minute,
			SelfUpdate: time.Hour,
		},
		InteractionTimeout: 60 * time.Second,
		NoticeTimeout:      3 * time.Second,
		Update: UpdateConfig{
			Enabled: true,
			Owner:   "roach88",
			Repo:    "clubfridge",
		},
		Kiosk: KioskConfig{
			Language: "de",
		},
		Log: LogConfig{
			Level: "info",
			File:  "logs/clubfridge.log",
		},
	}
}

// LoadDotEnv reads environment variables from a .env file. Variables already
// set in the environment win. A missing file is not an error.
func LoadDotEnv(path string) error {
	err := godotenv.Load(path)
	if err == nil || errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	return fmt.Errorf("load %s: %w", path, err)
}

// Load reads the config file at path, falling back to CLUBFRIDGE_CONFIG and
// then DefaultFile when path is empty. A missing file yields the defaults;
// a malformed one is an error. Environment overrides are applied on top and
// the result is validated.
func Load(path string) (*Config, error) {
	if path == "" {
		path = os.Getenv(EnvConfig)
	}
	explicit := path != ""
	if !explicit {
		path = DefaultFile
	}

	cfg := Default()
	if err := cfg.loadFile(path); err != nil {
		if !errors.Is(err, fs.ErrNotExist) {
			return nil, err
		}
		slog.Debug("config file not found, using defaults", "path", path, "explicit", explicit)
	}

	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) loadFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("parse config %s: %w", path, err)
	}
	return nil
}

func (c *Config) applyEnv() error {
	if v, ok := os.LookupEnv(EnvDatabase); ok && v != "" {
		c.Database = v
	}
	if v, ok := os.LookupEnv(EnvOffline); ok && v != "" {
		offline, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("%s: %w", EnvOffline, err)
		}
		c.Offline = offline
	}
	if v, ok := os.LookupEnv(EnvLogLevel); ok && v != "" {
		c.Log.Level = v
	}
	return nil
}

// Validate reports the first invalid value.
func (c *Config) Validate() error {
	if c.Database == "" {
		return errors.New("database path is required")
	}
	if _, err := c.Log.SlogLevel(); err != nil {
		return err
	}

	durations := []struct {
		name  string
		value time.Duration
	}{
		{"vereinsflieger.timeout", c.Vereinsflieger.Timeout},
		{"intervals.catalog", c.Intervals.Catalog},
		{"intervals.sales", c.Intervals.Sales},
		{"intervals.self_update", c.Intervals.SelfUpdate},
		{"interaction_timeout", c.InteractionTimeout},
		{"notice_timeout", c.NoticeTimeout},
	}
	for _, d := range durations {
		if d.value <= 0 {
			return fmt.Errorf("%s must be positive, got %s", d.name, d.value)
		}
	}

	if c.Vereinsflieger.RequestsPerSecond < 0 {
		return fmt.Errorf("vereinsflieger.requests_per_second must not be negative, got %v", c.Vereinsflieger.RequestsPerSecond)
	}
	if c.Update.Enabled && (c.Update.Owner == "" || c.Update.Repo == "") {
		return errors.New("update.owner and update.repo are required when updates are enabled")
	}
	if _, err := c.Kiosk.Tag(); err != nil {
		return err
	}
	return nil
}

// Tag parses Language.
func (k KioskConfig) Tag() (language.Tag, error) {
	tag, err := language.Parse(k.Language)
	if err != nil {
		return language.Und, fmt.Errorf("kiosk.language: %w", err)
	}
	return tag, nil
}

// SlogLevel parses Level.
func (l LogConfig) SlogLevel() (slog.Level, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(l.Level)); err != nil {
		return 0, fmt.Errorf("log.level: %w", err)
	}
	return level, nil
}
