// Package config loads tasknotifier settings from YAML and the environment.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/afero"
	"github.com/spf13/viper"
)

// EnvPrefix prefixes environment overrides, e.g. TASKNOTIFIER_SCHEDULER_POLL_INTERVAL.
const EnvPrefix = "TASKNOTIFIER"

// SchedulerConfig controls the polling loop.
type SchedulerConfig struct {
	PollInterval time.Duration `mapstructure:"poll_interval" yaml:"poll_interval"`
	Deduplicate  bool          `mapstructure:"deduplicate" yaml:"deduplicate"`
}

// StorageConfig locates the data file and temporary images.
type StorageConfig struct {
	// DataFile defaults to notifications.json in the XDG data directory.
	DataFile string `mapstructure:"data_file" yaml:"data_file"`
	// ImageDir defaults to the system temp directory.
	ImageDir string `mapstructure:"image_dir" yaml:"image_dir"`
}

// WebhookConfig configures the webhook backend.
type WebhookConfig struct {
	URL   string `mapstructure:"url" yaml:"url"`
	Token string `mapstructure:"token" yaml:"token"`
	// TokenKey names the keyring entry read when Token is empty.
	TokenKey string `mapstructure:"token_key" yaml:"token_key"`
}

// DeliveryConfig selects and configures notification backends.
type DeliveryConfig struct {
	Backends []string      `mapstructure:"backends" yaml:"backends"`
	Sound    bool          `mapstructure:"sound" yaml:"sound"`
	AppName  string        `mapstructure:"app_name" yaml:"app_name"`
	Webhook  WebhookConfig `mapstructure:"webhook" yaml:"webhook"`
}

// DisplayConfig holds terminal UI preferences.
type DisplayConfig struct {
	Bell bool `mapstructure:"bell" yaml:"bell"`
}

// Config is the top-level application configuration.
type Config struct {
	Scheduler SchedulerConfig `mapstructure:"scheduler" yaml:"scheduler"`
	Storage   StorageConfig   `mapstructure:"storage" yaml:"storage"`
	Delivery  DeliveryConfig  `mapstructure:"delivery" yaml:"delivery"`
	Display   DisplayConfig   `mapstructure:"display" yaml:"display"`
	LogFile   string          `mapstructure:"log_file" yaml:"log_file"`
}

// DefaultPath returns $XDG_CONFIG_HOME/tasknotifier/config.yaml, falling back
// to ~/.config.
func DefaultPath() string {
	base := os.Getenv("XDG_CONFIG_HOME")
	if base == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return filepath.Join(".", "config.yaml")
		}
		base = filepath.Join(home, ".config")
	}
	return filepath.Join(base, "tasknotifier", "config.yaml")
}

// Default returns the configuration used when no file exists.
func Default() *Config {
	return &Config{
		Scheduler: SchedulerConfig{
			PollInterval: 30 * time.Second,
		},
		Delivery: DeliveryConfig{
			Backends: []string{"toast", "dbus", "beeep", "exec"},
			Sound:    true,
			AppName:  "tasknotifier",
			Webhook: WebhookConfig{
				TokenKey: "webhook",
			},
		},
		Display: DisplayConfig{
			Bell: true,
		},
	}
}

func setDefaults(v *viper.Viper) {
	d := Default()
	v.SetDefault("scheduler.poll_interval", d.Scheduler.PollInterval)
	v.SetDefault("scheduler.deduplicate", d.Scheduler.Deduplicate)
	v.SetDefault("storage.data_file", d.Storage.DataFile)
	v.SetDefault("storage.image_dir", d.Storage.ImageDir)
	v.SetDefault("delivery.backends", d.Delivery.Backends)
	v.SetDefault("delivery.sound", d.Delivery.Sound)
	v.SetDefault("delivery.app_name", d.Delivery.AppName)
	v.SetDefault("delivery.webhook.url", d.Delivery.Webhook.URL)
	v.SetDefault("delivery.webhook.token", d.Delivery.Webhook.Token)
	v.SetDefault("delivery.webhook.token_key", d.Delivery.Webhook.TokenKey)
	v.SetDefault("display.bell", d.Display.Bell)
	v.SetDefault("log_file", d.LogFile)
}

// Load reads the YAML file at path from fs. A missing file yields the
// defaults. Environment variables override both.
func Load(fs afero.Fs, path string) (*Config, error) {
	v := viper.New()
	v.SetFs(fs)
	v.SetConfigFile(path)
	v.SetConfigType("yaml")
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.Is(err, os.ErrNotExist) && !errors.As(err, &notFound) {
			return nil, fmt.Errorf("reading config %s: %w", path, err)
		}
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("parsing config %s: %w", path, err)
	}
	if cfg.Scheduler.PollInterval <= 0 {
		return nil, fmt.Errorf("parsing config %s: scheduler.poll_interval must be positive", path)
	}
	return cfg, nil
}
