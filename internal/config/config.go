package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
	"github.com/spf13/viper"
)

// EnvPrefix prefixes every environment override, e.g. CLINIC_STORE_PATH.
const EnvPrefix = "clinic"

// Field names map to CLINIC_<SECTION>_<FIELD>. There are no explicit
// envconfig tags: envconfig would also read the bare tag name (PATH, RESET)
// from the environment.
type Config struct {
	Store   StoreConfig   `mapstructure:"store"`
	Log     LogConfig     `mapstructure:"log"`
	Metrics MetricsConfig `mapstructure:"metrics"`
}

type StoreConfig struct {
	Path         string        `mapstructure:"path"`
	Reset        bool          `mapstructure:"reset"`
	Timezone     string        `mapstructure:"timezone"`
	CacheTTL     time.Duration `mapstructure:"cache_ttl" split_words:"true"`
	CacheCleanup time.Duration `mapstructure:"cache_cleanup" split_words:"true"`
}

type LogConfig struct {
	Level string `mapstructure:"level"`
	JSON  bool   `mapstructure:"json"`
}

type MetricsConfig struct {
	Namespace string `mapstructure:"namespace"`
}

// Location resolves Timezone. Empty and "Local" both mean time.Local.
func (c StoreConfig) Location() (*time.Location, error) {
	if c.Timezone == "" || strings.EqualFold(c.Timezone, "local") {
		return time.Local, nil
	}
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return nil, fmt.Errorf("invalid store timezone %q: %w", c.Timezone, err)
	}
	return loc, nil
}

// Default returns the configuration used when no file or env is present.
func Default() *Config {
	return &Config{
		Store: StoreConfig{
			Path:         "clinic.db",
			Timezone:     "Local",
			CacheTTL:     10 * time.Minute,
			CacheCleanup: 30 * time.Minute,
		},
		Log:     LogConfig{Level: "info"},
		Metrics: MetricsConfig{Namespace: "clinic"},
	}
}

func setDefaults(v *viper.Viper) {
	d := Default()
	v.SetDefault("store.path", d.Store.Path)
	v.SetDefault("store.reset", d.Store.Reset)
	v.SetDefault("store.timezone", d.Store.Timezone)
	v.SetDefault("store.cache_ttl", d.Store.CacheTTL)
	v.SetDefault("store.cache_cleanup", d.Store.CacheCleanup)
	v.SetDefault("log.level", d.Log.Level)
	v.SetDefault("log.json", d.Log.JSON)
	v.SetDefault("metrics.namespace", d.Metrics.Namespace)
}

// LoadConfig reads config.yaml from file (or from . and ./config when file is
// empty), then applies CLINIC_* environment overrides. A missing file is not
// an error when file is empty.
func LoadConfig(file string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	if file != "" {
		v.SetConfigFile(file)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("./config")
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if file != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := envconfig.Process(EnvPrefix, &config); err != nil {
		return nil, fmt.Errorf("failed to apply environment overrides: %w", err)
	}

	if _, err := config.Store.Location(); err != nil {
		return nil, err
	}

	return &config, nil
}
