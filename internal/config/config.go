// Package config loads the static settings consulted at process start.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"

	"studytimer/internal/session"
)

const (
	configFileName = "config"
	configFileType = "yaml"
	configFileExt  = "config.yaml"

	envPrefix = "STUDYTIMER"
)

// Config holds every tunable the timer and its storage consult.
type Config struct {
	DataDir  string `mapstructure:"data_dir"`
	DBFile   string `mapstructure:"db_file"`
	LogLevel string `mapstructure:"log_level"`
	Limits   Limits `mapstructure:"limits"`
	Timer    Timer  `mapstructure:"timer"`
}

// Limits bounds user input and log messages.
type Limits struct {
	MaxMinutes          int    `mapstructure:"max_minutes"`
	MaxRepetitions      int    `mapstructure:"max_repetitions"`
	MaxLabelLength      int    `mapstructure:"max_label_length"`
	LabelPattern        string `mapstructure:"label_pattern"`
	MaxLogMessageLength int    `mapstructure:"max_log_message_length"`
}

// Timer holds run defaults.
type Timer struct {
	DefaultMinutes     int    `mapstructure:"default_minutes"`
	DefaultRepetitions int    `mapstructure:"default_repetitions"`
	DefaultLabel       string `mapstructure:"default_label"`
	BreakMinutes       int    `mapstructure:"break_minutes"`
	PomodoroMinutes    int    `mapstructure:"pomodoro_minutes"`
}

var defaults = map[string]any{
	"data_dir":                      "",
	"db_file":                       "study.db",
	"log_level":                     "info",
	"limits.max_minutes":            480,
	"limits.max_repetitions":        100,
	"limits.max_label_length":       100,
	"limits.label_pattern":          session.DefaultLabelPattern,
	"limits.max_log_message_length": 1000,
	"timer.default_minutes":         30,
	"timer.default_repetitions":     3,
	"timer.default_label":           "Unspecified",
	"timer.break_minutes":           5,
	"timer.pomodoro_minutes":        25,
}

// defaultConfigYAML is written to config.yaml on first run.
const defaultConfigYAML = `# studytimer configuration
# Every key except data_dir can be overridden with STUDYTIMER_<KEY>,
# e.g. STUDYTIMER_LIMITS_MAX_MINUTES.

# Where study.db lives (default: $XDG_DATA_HOME/studytimer)
# data_dir:
db_file: study.db

# Minimum level persisted to the runtime log: debug, info, warn, error
log_level: info

limits:
  max_minutes: 480
  max_repetitions: 100
  max_label_length: 100
  label_pattern: '^[a-zA-Z0-9\s\-_]+$'
  max_log_message_length: 1000

timer:
  default_minutes: 30
  default_repetitions: 3
  default_label: Unspecified
  break_minutes: 5
  pomodoro_minutes: 25
`

// Load reads config.yaml from configDir, creating the directory and a
// default file on first run. Environment variables override file values.
// A missing config.yaml is not an error.
func Load(configDir string) (*Config, error) {
	if err := os.MkdirAll(configDir, 0o700); err != nil {
		return nil, fmt.Errorf("ensure config dir: %w", err)
	}
	if err := ensureDefaultConfigFile(configDir); err != nil {
		return nil, fmt.Errorf("ensure default config: %w", err)
	}

	v := newViper()
	v.SetConfigName(configFileName)
	v.SetConfigType(configFileType)
	v.AddConfigPath(configDir)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	cfg, err := decode(v)
	if err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

func newViper() *viper.Viper {
	v := viper.New()
	for k, val := range defaults {
		v.SetDefault(k, val)
	}
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	for k := range defaults {
		// STUDYTIMER_DATA_DIR ranks below config.yaml; paths resolves it.
		if k == "data_dir" {
			continue
		}
		_ = v.BindEnv(k)
	}
	return v
}

func decode(v *viper.Viper) (*Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	return &cfg, nil
}

func ensureDefaultConfigFile(configDir string) error {
	path := filepath.Join(configDir, configFileExt)

	_, err := os.Stat(path)
	if err == nil {
		return nil
	}
	if !os.IsNotExist(err) {
		return fmt.Errorf("stat config file: %w", err)
	}
	return os.WriteFile(path, []byte(defaultConfigYAML), 0o600)
}

// Validate checks bounds, the label pattern, the log level and the timer
// defaults against the limits.
func (c *Config) Validate() error {
	if c.DBFile == "" {
		return errors.New("db_file cannot be empty")
	}
	if strings.ContainsRune(c.DBFile, os.PathSeparator) {
		return fmt.Errorf("db_file %q must be a file name, not a path", c.DBFile)
	}
	if _, err := session.ParseLevel(c.LogLevel); err != nil {
		return err
	}
	limits, err := c.SessionLimits()
	if err != nil {
		return err
	}
	if c.Limits.MaxLogMessageLength <= 0 {
		return errors.New("limits.max_log_message_length must be > 0")
	}
	if c.Timer.BreakMinutes < 0 || c.Timer.BreakMinutes > limits.MaxMinutes {
		return fmt.Errorf("timer.break_minutes must be between 0 and %d", limits.MaxMinutes)
	}
	if err := limits.ValidateMinutes(c.Timer.DefaultMinutes); err != nil {
		return fmt.Errorf("timer.default_minutes: %w", err)
	}
	if err := limits.ValidateMinutes(c.Timer.PomodoroMinutes); err != nil {
		return fmt.Errorf("timer.pomodoro_minutes: %w", err)
	}
	if err := limits.ValidateRepetitions(c.Timer.DefaultRepetitions); err != nil {
		return fmt.Errorf("timer.default_repetitions: %w", err)
	}
	if _, err := limits.ValidateLabel(c.Timer.DefaultLabel); err != nil {
		return fmt.Errorf("timer.default_label: %w", err)
	}
	return nil
}

// SessionLimits builds the validation bounds.
func (c *Config) SessionLimits() (session.Limits, error) {
	return session.NewLimits(c.Limits.MaxMinutes, c.Limits.MaxRepetitions, c.Limits.MaxLabelLength, c.Limits.LabelPattern)
}

// Level is the minimum persisted log level. Invalid values fall back to info.
func (c *Config) Level() session.Level {
	l, _ := session.ParseLevel(c.LogLevel)
	return l
}

// DBPath joins dataDir and the database file name.
func (c *Config) DBPath(dataDir string) string {
	return filepath.Join(dataDir, c.DBFile)
}
