// Package config handles configuration loading for InvestEz.
// It supports YAML config files with environment variable overrides.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"
)

// Config represents the complete application configuration.
type Config struct {
	Brokers BrokersConfig `mapstructure:"brokers" yaml:"brokers"`
	Data    DataConfig    `mapstructure:"data"    yaml:"data"`
	Store   StoreConfig   `mapstructure:"store"   yaml:"store"`
	API     APIConfig     `mapstructure:"api"     yaml:"api"`
	Logging LoggingConfig `mapstructure:"logging" yaml:"logging"`
}

// BrokersConfig holds broker integration configuration.
type BrokersConfig struct {
	Kite  KiteConfig  `mapstructure:"kite"  yaml:"kite"`
	Groww GrowwConfig `mapstructure:"groww" yaml:"groww"`
}

// KiteConfig holds Zerodha Kite Connect credentials.
type KiteConfig struct {
	APIKey    string `mapstructure:"api_key"    yaml:"api_key"`
	APISecret string `mapstructure:"api_secret" yaml:"api_secret"`
	TokenPath string `mapstructure:"token_path" yaml:"token_path"`
}

// GrowwConfig holds Groww API credentials.
type GrowwConfig struct {
	AccessToken string `mapstructure:"access_token" yaml:"access_token"`
	TokenPath   string `mapstructure:"token_path"   yaml:"token_path"`
}

// DataConfig holds data-source settings.
type DataConfig struct {
	CacheTTLSeconds   int `mapstructure:"cache_ttl_seconds"  yaml:"cache_ttl_seconds"`
	EnrichConcurrency int `mapstructure:"enrich_concurrency" yaml:"enrich_concurrency"`
}

// StoreConfig holds persistence settings. EncryptionKey is a base64-encoded
// 32-byte key protecting broker secrets in the credential database.
type StoreConfig struct {
	ConversationsDir string `mapstructure:"conversations_dir" yaml:"conversations_dir"`
	DatabasePath     string `mapstructure:"database_path"     yaml:"database_path"`
	EncryptionKey    string `mapstructure:"encryption_key"    yaml:"encryption_key"`
}

// APIConfig holds HTTP API server settings.
type APIConfig struct {
	Host        string   `mapstructure:"host"         yaml:"host"`
	Port        int      `mapstructure:"port"         yaml:"port"`
	CORSOrigins []string `mapstructure:"cors_origins" yaml:"cors_origins"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level string `mapstructure:"level" yaml:"level"` // "debug", "info", "warn", "error"
	File  bool   `mapstructure:"file"  yaml:"file"`
	Path  string `mapstructure:"path"  yaml:"path"`
}

// Load reads the configuration from file and environment variables.
// Config file search order:
//  1. ./config/config.yaml (project root)
//  2. ~/.investez/config.yaml (home directory)
//  3. /etc/investez/config.yaml (system)
//
// Environment variables override config file values.
// Format: INVESTEZ_<SECTION>_<KEY>, e.g., INVESTEZ_BROKERS_KITE_API_KEY
func Load() (*Config, error) {
	v := viper.New()

	setDefaults(v)

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath("./config")
	v.AddConfigPath(filepath.Join(homeDir(), ".investez"))
	v.AddConfigPath("/etc/investez")

	v.SetEnvPrefix("INVESTEZ")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Read config file (not required to exist)
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
		// Config file not found — that's fine, use defaults + env vars
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}

	overrideFromEnv(&cfg)

	return &cfg, nil
}

// LoadFromFile reads configuration from a specific file path.
func LoadFromFile(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetConfigFile(path)
	v.SetEnvPrefix("INVESTEZ")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("error reading config file %s: %w", path, err)
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}

	overrideFromEnv(&cfg)
	return &cfg, nil
}

// setDefaults sets sensible defaults for all config values.
func setDefaults(v *viper.Viper) {
	home := homeDir()

	// Broker defaults
	v.SetDefault("brokers.kite.token_path", filepath.Join(home, ".investez", "kite_session.json"))
	v.SetDefault("brokers.groww.token_path", filepath.Join(home, ".investez", "groww_token"))

	// Data defaults
	v.SetDefault("data.cache_ttl_seconds", 1800) // 30 minutes
	v.SetDefault("data.enrich_concurrency", 4)

	// Store defaults
	v.SetDefault("store.conversations_dir", filepath.Join(home, ".investez", "conversations"))
	v.SetDefault("store.database_path", filepath.Join(home, ".investez", "investez.db"))

	// API defaults
	v.SetDefault("api.host", "0.0.0.0")
	v.SetDefault("api.port", 8080)
	v.SetDefault("api.cors_origins", []string{"http://localhost:3000"})

	// Logging defaults
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.file", true)
	v.SetDefault("logging.path", filepath.Join(home, ".investez", "logs", "investez.log"))
}

// overrideFromEnv explicitly reads sensitive keys from environment variables.
func overrideFromEnv(cfg *Config) {
	if key := os.Getenv("INVESTEZ_BROKERS_KITE_API_KEY"); key != "" {
		cfg.Brokers.Kite.APIKey = key
	}
	if key := os.Getenv("INVESTEZ_BROKERS_KITE_API_SECRET"); key != "" {
		cfg.Brokers.Kite.APISecret = key
	}
	if key := os.Getenv("INVESTEZ_BROKERS_GROWW_ACCESS_TOKEN"); key != "" {
		cfg.Brokers.Groww.AccessToken = key
	}
	if key := os.Getenv("INVESTEZ_STORE_ENCRYPTION_KEY"); key != "" {
		cfg.Store.EncryptionKey = key
	}
}

// CredentialStatus describes whether a credential is configured.
type CredentialStatus struct {
	Name   string
	IsSet  bool
	Masked string
}

// CheckCredentials reports the status of all broker credentials for display.
func CheckCredentials(cfg *Config) []CredentialStatus {
	return []CredentialStatus{
		{Name: "Kite API Key", IsSet: cfg.Brokers.Kite.APIKey != "", Masked: mask(cfg.Brokers.Kite.APIKey)},
		{Name: "Kite API Secret", IsSet: cfg.Brokers.Kite.APISecret != "", Masked: mask(cfg.Brokers.Kite.APISecret)},
		{Name: "Groww Access Token", IsSet: cfg.Brokers.Groww.AccessToken != "", Masked: mask(cfg.Brokers.Groww.AccessToken)},
	}
}

// mask hides all but the last 4 characters of a secret.
func mask(s string) string {
	if s == "" {
		return ""
	}
	if len(s) <= 4 {
		return "****"
	}
	return "****" + s[len(s)-4:]
}

// homeDir returns the user's home directory.
func homeDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "."
	}
	return home
}
