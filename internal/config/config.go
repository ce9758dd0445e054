package config

import (
	"errors"
	"fmt"
	"io/fs"
	"net/url"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"

	"github.com/loykin/gomato/internal/logger"
)

const (
	EnvPrefix       = "GOMATO"
	DefaultDirName  = ".gomato"
	DefaultDBName   = "data.db"
	DefaultLogName  = "gomato.log"
	DefaultFileName = "config.toml"

	DefaultPomodoroMinutes = 25
	DefaultBreakMinutes    = 5
)

var envBindings = map[string]string{
	"root":             EnvPrefix + "_ROOT",
	"database_url":     EnvPrefix + "_DATABASE_URL",
	"log.level":        EnvPrefix + "_LOG_LEVEL",
	"log.file":         EnvPrefix + "_LOG_FILE",
	"history.dsns":     EnvPrefix + "_HISTORY_DSN",
	"metrics.textfile": EnvPrefix + "_METRICS_TEXTFILE",
}

// LogConfig is the [log] table.
type LogConfig struct {
	Level      string `toml:"level" mapstructure:"level"`
	File       string `toml:"file" mapstructure:"file"` // "off" disables the log file
	MaxSizeMB  int    `toml:"max_size_mb" mapstructure:"max_size_mb"`
	MaxBackups int    `toml:"max_backups" mapstructure:"max_backups"`
	MaxAgeDays int    `toml:"max_age_days" mapstructure:"max_age_days"`
	Compress   bool   `toml:"compress" mapstructure:"compress"`
}

// SessionConfig holds per-kind defaults ([pomodoro] and [break]).
type SessionConfig struct {
	Duration int `toml:"duration" mapstructure:"duration"`
}

// HistoryConfig lists export sinks by DSN (see history/factory).
type HistoryConfig struct {
	DSNs []string `toml:"dsns" mapstructure:"dsns"`
}

// MetricsConfig controls the node_exporter textfile written after each run.
type MetricsConfig struct {
	Textfile string `toml:"textfile" mapstructure:"textfile"`
}

// Config is the resolved gomato configuration.
type Config struct {
	Root        string        `toml:"root" mapstructure:"root"`
	DatabaseURL string        `toml:"database_url" mapstructure:"database_url"`
	Log         LogConfig     `toml:"log" mapstructure:"log"`
	Pomodoro    SessionConfig `toml:"pomodoro" mapstructure:"pomodoro"`
	Break       SessionConfig `toml:"break" mapstructure:"break"`
	History     HistoryConfig `toml:"history" mapstructure:"history"`
	Metrics     MetricsConfig `toml:"metrics" mapstructure:"metrics"`

	// File is the config file that was read, empty when none.
	File string `toml:"-" mapstructure:"-"`
}

// Load resolves configuration from defaults, an optional TOML file and GOMATO_*
// environment variables (highest precedence). path names the config file; when
// empty, <root>/config.toml is read if it exists.
func Load(path string) (*Config, error) {
	v := viper.New()
	v.SetConfigType("toml")
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	// Unmarshal only sees keys viper knows about, so every env override is bound.
	for key, env := range envBindings {
		if err := v.BindEnv(key, env); err != nil {
			return nil, err
		}
	}

	v.SetDefault("pomodoro.duration", DefaultPomodoroMinutes)
	v.SetDefault("break.duration", DefaultBreakMinutes)
	v.SetDefault("log.level", "info")
	v.SetDefault("log.max_size_mb", logger.DefaultMaxSizeMB)
	v.SetDefault("log.max_backups", logger.DefaultMaxBackups)
	v.SetDefault("log.max_age_days", logger.DefaultMaxAgeDays)

	explicit := path != ""
	if !explicit {
		root, err := defaultRoot(v.GetString("root"))
		if err != nil {
			return nil, err
		}
		path = filepath.Join(root, DefaultFileName)
	}
	v.SetConfigFile(expandHome(path))
	read := true
	if err := v.ReadInConfig(); err != nil {
		if explicit || !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("read config %s: %w", path, err)
		}
		read = false
	}

	var c Config
	if err := v.Unmarshal(&c); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	if read {
		c.File = v.ConfigFileUsed()
	}
	if err := c.resolve(); err != nil {
		return nil, err
	}
	return &c, c.Validate()
}

func (c *Config) resolve() error {
	root, err := defaultRoot(c.Root)
	if err != nil {
		return err
	}
	c.Root = root
	if strings.TrimSpace(c.DatabaseURL) == "" {
		c.DatabaseURL = FileURL(filepath.Join(root, DefaultDBName))
	} else {
		c.DatabaseURL = expandHome(strings.TrimSpace(c.DatabaseURL))
	}
	switch strings.ToLower(strings.TrimSpace(c.Log.File)) {
	case "":
		c.Log.File = filepath.Join(root, DefaultLogName)
	case "off", "none":
		c.Log.File = ""
	default:
		c.Log.File = expandHome(c.Log.File)
	}
	if c.Metrics.Textfile != "" {
		c.Metrics.Textfile = expandHome(c.Metrics.Textfile)
	}
	return nil
}

// Validate rejects values no session could run with.
func (c *Config) Validate() error {
	if c.Pomodoro.Duration <= 0 {
		return fmt.Errorf("pomodoro.duration must be positive, got %d", c.Pomodoro.Duration)
	}
	if c.Break.Duration <= 0 {
		return fmt.Errorf("break.duration must be positive, got %d", c.Break.Duration)
	}
	if _, err := logger.ParseLevel(c.Log.Level); err != nil {
		return fmt.Errorf("log.level: %w", err)
	}
	if c.Root == "" {
		return errors.New("root directory is required")
	}
	return nil
}

// EnsureRoot creates the root directory.
func (c *Config) EnsureRoot() error {
	return os.MkdirAll(c.Root, 0o755)
}

// Logger converts the [log] table into a logger configuration.
func (c *Config) Logger(verbose, color bool) logger.Config {
	return logger.Config{
		Level: c.Log.Level,
		File: logger.FileConfig{
			Path:       c.Log.File,
			MaxSizeMB:  c.Log.MaxSizeMB,
			MaxBackups: c.Log.MaxBackups,
			MaxAgeDays: c.Log.MaxAgeDays,
			Compress:   c.Log.Compress,
		},
		Verbose: verbose,
		Color:   color,
	}
}

// FileURL renders path as an escaped file:// URL, so characters such as
// '#', '?' and '%' survive a round trip through url.Parse.
func FileURL(path string) string {
	p := filepath.ToSlash(path)
	if !strings.HasPrefix(p, "/") {
		p = "/" + p // C:/x on Windows
	}
	return (&url.URL{Scheme: "file", Path: p}).String()
}

func defaultRoot(root string) (string, error) {
	root = strings.TrimSpace(root)
	if root != "" {
		return filepath.Clean(expandHome(root)), nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("cannot determine home directory, set %s_ROOT: %w", EnvPrefix, err)
	}
	return filepath.Join(home, DefaultDirName), nil
}

func expandHome(p string) string {
	if p != "~" && !strings.HasPrefix(p, "~/") {
		return p
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return p
	}
	return filepath.Join(home, strings.TrimPrefix(p, "~"))
}
