// Package config loads paludario settings from a YAML file, a .env file and
// PALUDARIO_* environment variables, in increasing order of precedence.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// EnvPrefix is prepended to every environment variable name.
const EnvPrefix = "PALUDARIO"

// GitHubConfig locates the repository holding the documents.
type GitHubConfig struct {
	Owner   string `mapstructure:"owner"`
	Repo    string `mapstructure:"repo"`
	Branch  string `mapstructure:"branch"`
	Token   string `mapstructure:"token"`
	DataDir string `mapstructure:"data_dir"`
	APIURL  string `mapstructure:"api_url"`
}

// StorageConfig locates the local database.
type StorageConfig struct {
	Path string `mapstructure:"path"`
}

// SyncConfig tunes reconciliation.
type SyncConfig struct {
	Interval        time.Duration `mapstructure:"interval"`
	ConflictRetries int           `mapstructure:"conflict_retries"`
	Backoff         time.Duration `mapstructure:"backoff"`
}

// LogConfig selects the log level, encoder and optional file.
type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
	File   string `mapstructure:"file"`
}

// NotifyConfig enables the dashboard server and MQTT publishing.
type NotifyConfig struct {
	Port       int    `mapstructure:"port"`
	MQTTBroker string `mapstructure:"mqtt_broker"`
	MQTTTopic  string `mapstructure:"mqtt_topic"`
}

// Config is the full application configuration.
type Config struct {
	GitHub  GitHubConfig  `mapstructure:"github"`
	Storage StorageConfig `mapstructure:"storage"`
	Sync    SyncConfig    `mapstructure:"sync"`
	Log     LogConfig     `mapstructure:"log"`
	Notify  NotifyConfig  `mapstructure:"notify"`

	// File is the config file that was read, empty when none was found.
	File string `mapstructure:"-"`
}

// Dir returns ~/.paludario, falling back to .paludario when the home
// directory is unknown.
func Dir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".paludario"
	}
	return filepath.Join(home, ".paludario")
}

// DefaultFile is the config file read when no path is given.
func DefaultFile() string {
	return filepath.Join(Dir(), "config.yaml")
}

// SetDefaults registers the default value of every key.
func SetDefaults(v *viper.Viper) {
	v.SetDefault("github.owner", "")
	v.SetDefault("github.repo", "")
	v.SetDefault("github.branch", "main")
	v.SetDefault("github.token", "")
	v.SetDefault("github.data_dir", "data")
	v.SetDefault("github.api_url", "https://api.github.com")
	v.SetDefault("storage.path", filepath.Join(Dir(), "paludario.db"))
	v.SetDefault("sync.interval", 30*time.Second)
	v.SetDefault("sync.conflict_retries", 2)
	v.SetDefault("sync.backoff", 500*time.Millisecond)
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "console")
	v.SetDefault("log.file", "")
	v.SetDefault("notify.port", 0)
	v.SetDefault("notify.mqtt_broker", "")
	v.SetDefault("notify.mqtt_topic", "paludario")
}

// Default returns the configuration used when nothing is set.
func Default() Config {
	v := viper.New()
	SetDefaults(v)
	var cfg Config
	// Defaults always decode.
	_ = v.Unmarshal(&cfg)
	return cfg
}

// NewViper returns a viper instance reading path (or the default file) with
// defaults and environment bindings in place.
func NewViper(path string) *viper.Viper {
	v := viper.New()
	SetDefaults(v)

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(Dir())
		v.AddConfigPath(".")
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	return v
}

// Load reads the configuration. A missing default file is not an error; an
// explicit path that does not exist is.
func Load(path string) (Config, error) {
	// .env only fills variables that are not already set.
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return Config{}, fmt.Errorf("failed to load .env: %w", err)
	}

	v := NewViper(path)
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if path != "" || !errors.As(err, &notFound) {
			return Config{}, fmt.Errorf("failed to read config: %w", err)
		}
	}
	return decode(v)
}

func decode(v *viper.Viper) (Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("failed to decode config: %w", err)
	}
	cfg.File = v.ConfigFileUsed()
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks value ranges.
func (c Config) Validate() error {
	if c.Sync.Interval <= 0 {
		return fmt.Errorf("sync.interval must be positive, got %s", c.Sync.Interval)
	}
	if c.Sync.ConflictRetries < 0 {
		return fmt.Errorf("sync.conflict_retries must not be negative, got %d", c.Sync.ConflictRetries)
	}
	if c.Sync.Backoff < 0 {
		return fmt.Errorf("sync.backoff must not be negative, got %s", c.Sync.Backoff)
	}
	if c.Notify.Port < 0 || c.Notify.Port > 65535 {
		return fmt.Errorf("notify.port out of range: %d", c.Notify.Port)
	}
	switch c.Log.Format {
	case "console", "json":
	default:
		return fmt.Errorf("log.format must be console or json, got %q", c.Log.Format)
	}
	return nil
}

// RemoteConfigured reports whether owner and repo are set.
func (c Config) RemoteConfigured() bool {
	return c.GitHub.Owner != "" && c.GitHub.Repo != ""
}

// Set writes one key to the config file at path, creating it if needed.
func Set(path, key string, value any) error {
	if path == "" {
		path = DefaultFile()
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("yaml")
	if err := v.ReadInConfig(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("failed to read config: %w", err)
	}
	v.Set(key, value)
	if err := v.WriteConfigAs(path); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}
	return nil
}
