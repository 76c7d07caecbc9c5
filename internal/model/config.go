package model

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/viper"
)

// SyncConfig holds settings for the background sync engine.
type SyncConfig struct {
	// BaseURL is the root URL of the remote authority.
	BaseURL string `mapstructure:"base_url" yaml:"base_url"`

	// IntervalSec is how often (in seconds) the periodic sync timer fires.
	IntervalSec int `mapstructure:"interval_sec" yaml:"interval_sec"`

	// MaxRetries is how many failures an offline queue entry may accrue
	// before it is parked.
	MaxRetries int `mapstructure:"max_retries" yaml:"max_retries"`
}

// PracticeConfig holds settings for the selection scheduler.
type PracticeConfig struct {
	// QueueSize bounds the suggestion queue.
	QueueSize int `mapstructure:"queue_size" yaml:"queue_size"`

	// StaleDays is how many days since last practice make an item stale.
	StaleDays int `mapstructure:"stale_days" yaml:"stale_days"`

	// TierWeights are the lottery weights for the stale-favorite, stale,
	// and recent tiers, in that order.
	TierWeights [3]int `mapstructure:"tier_weights" yaml:"tier_weights"`
}

// LogConfig holds logging preferences.
type LogConfig struct {
	Level string `mapstructure:"level" yaml:"level"`
	File  string `mapstructure:"file" yaml:"file"`
}

// AppConfig is the top-level application configuration.
type AppConfig struct {
	Sync     SyncConfig     `mapstructure:"sync" yaml:"sync"`
	Practice PracticeConfig `mapstructure:"practice" yaml:"practice"`
	Log      LogConfig      `mapstructure:"log" yaml:"log"`
}

// DefaultConfigPath returns the default path for the configuration file,
// located at ~/.config/repertoire/config.yaml.
func DefaultConfigPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(".", "config.yaml")
	}
	return filepath.Join(home, ".config", "repertoire", "config.yaml")
}

// defaultAppConfig returns a sensible default configuration.
func defaultAppConfig() *AppConfig {
	return &AppConfig{
		Sync: SyncConfig{
			IntervalSec: 300,
			MaxRetries:  3,
		},
		Practice: PracticeConfig{
			QueueSize:   7,
			StaleDays:   7,
			TierWeights: [3]int{3, 2, 1},
		},
		Log: LogConfig{
			Level: "info",
		},
	}
}

// LoadConfig reads configuration from the given YAML file path using Viper.
// If the file does not exist, it returns a default configuration.
func LoadConfig(path string) (*AppConfig, error) {
	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("yaml")

	// Set defaults so missing keys resolve to sensible values.
	v.SetDefault("sync.interval_sec", 300)
	v.SetDefault("sync.max_retries", 3)
	v.SetDefault("practice.queue_size", 7)
	v.SetDefault("practice.stale_days", 7)
	v.SetDefault("practice.tier_weights", []int{3, 2, 1})
	v.SetDefault("log.level", "info")

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(*os.PathError); ok {
			return defaultAppConfig(), nil
		}
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			return defaultAppConfig(), nil
		}
		return nil, fmt.Errorf("reading config %s: %w", path, err)
	}

	cfg := defaultAppConfig()
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("parsing config %s: %w", path, err)
	}

	return cfg, nil
}

// SaveConfig writes the given configuration to a YAML file at path,
// creating parent directories if needed.
func SaveConfig(path string, cfg *AppConfig) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("creating config directory %s: %w", dir, err)
	}

	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("yaml")

	v.Set("sync", cfg.Sync)
	v.Set("practice", cfg.Practice)
	v.Set("log", cfg.Log)

	if err := v.WriteConfigAs(path); err != nil {
		return fmt.Errorf("writing config to %s: %w", path, err)
	}

	return nil
}
