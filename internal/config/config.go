// Package config loads and stores CLI configuration in the XDG config dir.
// Only non-secret settings are kept here; the session goes to the OS keychain.
//
// Values are layered by viper: built-in defaults, then config.yaml, then
// FREETRON_* environment variables (FREETRON_POLL_INTERVAL for poll.interval),
// then whatever flags the command binds on top.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"freetron/cli/internal/endpoints"
	"freetron/cli/internal/xdg"
)

// EnvPrefix prefixes every environment override.
const EnvPrefix = "FREETRON"

// DefaultServer is used when nothing else names a server.
const DefaultServer = "http://localhost:8080"

// Config holds non-sensitive CLI settings.
type Config struct {
	// Server is the base URL of the freetron server
	Server string `mapstructure:"server"`
	// Socket is an optional unix socket tried before Server
	Socket   string        `mapstructure:"socket"`
	LogLevel string        `mapstructure:"log_level"`
	Timeout  time.Duration `mapstructure:"timeout"`
	Poll     Poll          `mapstructure:"poll"`
}

// Poll configures the processing poll loop.
type Poll struct {
	MaxAttempts int           `mapstructure:"max_attempts"`
	Interval    time.Duration `mapstructure:"interval"`
	Timeout     time.Duration `mapstructure:"timeout"`
}

// Defaults returns the built-in settings.
func Defaults() Config {
	return Config{
		Server:   DefaultServer,
		LogLevel: "info",
		Timeout:  30 * time.Second,
		Poll:     Poll{Interval: 500 * time.Millisecond},
	}
}

// Path returns the path to the default config file.
func Path() (string, error) {
	dir, err := xdg.ConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "config.yaml"), nil
}

// New returns a viper instance with defaults and environment overrides
// configured. file may be empty to use the default location.
func New(file string) (*viper.Viper, error) {
	v := viper.New()
	d := Defaults()
	v.SetDefault("server", d.Server)
	v.SetDefault("socket", d.Socket)
	v.SetDefault("log_level", d.LogLevel)
	v.SetDefault("timeout", d.Timeout)
	v.SetDefault("poll.max_attempts", d.Poll.MaxAttempts)
	v.SetDefault("poll.interval", d.Poll.Interval)
	v.SetDefault("poll.timeout", d.Poll.Timeout)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	v.SetConfigType("yaml")
	if file != "" {
		v.SetConfigFile(file)
		return v, nil
	}
	p, err := Path()
	if err != nil {
		return nil, err
	}
	v.SetConfigFile(p)
	return v, nil
}

// Read loads the config file into v. A missing default file is not an
// error; a missing explicit file is.
func Read(v *viper.Viper, explicit bool) error {
	err := v.ReadInConfig()
	if err == nil {
		return nil
	}
	var notFound viper.ConfigFileNotFoundError
	if !explicit && (errors.As(err, &notFound) || errors.Is(err, os.ErrNotExist)) {
		return nil
	}
	return fmt.Errorf("read config: %w", err)
}

// Decode extracts a validated Config from v.
func Decode(v *viper.Viper) (Config, error) {
	var c Config
	if err := v.Unmarshal(&c); err != nil {
		return c, fmt.Errorf("decode config: %w", err)
	}
	return c, c.Validate()
}

// Load reads configuration from file (or the default location) with
// environment overrides applied.
func Load(file string) (Config, error) {
	v, err := New(file)
	if err != nil {
		return Config{}, err
	}
	if err := Read(v, file != ""); err != nil {
		return Config{}, err
	}
	return Decode(v)
}

// Validate rejects settings the client cannot work with.
func (c Config) Validate() error {
	if _, err := endpoints.Resolve(c.Server, c.Socket); err != nil {
		return err
	}
	if c.Timeout < 0 || c.Poll.Interval < 0 || c.Poll.Timeout < 0 {
		return errors.New("durations must not be negative")
	}
	if c.Poll.MaxAttempts < 0 {
		return errors.New("poll.max_attempts must not be negative")
	}
	return nil
}

// fileConfig is the on-disk shape written by Save; durations are kept as
// strings such as "500ms" so the file stays hand-editable.
type fileConfig struct {
	Server   string   `yaml:"server"`
	Socket   string   `yaml:"socket,omitempty"`
	LogLevel string   `yaml:"log_level"`
	Timeout  string   `yaml:"timeout"`
	Poll     filePoll `yaml:"poll"`
}

type filePoll struct {
	MaxAttempts int    `yaml:"max_attempts"`
	Interval    string `yaml:"interval"`
	Timeout     string `yaml:"timeout"`
}

// Save writes configuration with 0600 permissions. An empty file means the
// default location.
func Save(file string, c Config) error {
	if err := c.Validate(); err != nil {
		return err
	}
	if file == "" {
		p, err := Path()
		if err != nil {
			return err
		}
		file = p
	}
	b, err := yaml.Marshal(fileConfig{
		Server:   c.Server,
		Socket:   c.Socket,
		LogLevel: c.LogLevel,
		Timeout:  c.Timeout.String(),
		Poll: filePoll{
			MaxAttempts: c.Poll.MaxAttempts,
			Interval:    c.Poll.Interval.String(),
			Timeout:     c.Poll.Timeout.String(),
		},
	})
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(file), 0o700); err != nil {
		return err
	}
	return os.WriteFile(file, b, 0o600)
}
