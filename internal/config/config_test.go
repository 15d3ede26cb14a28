package config

import (
	"os"
	"path/filepath"
	"testing"
)

// ── Load / Defaults ──

func TestLoadReturnsDefaults(t *testing.T) {
	envVars := []string{
		"INVESTEZ_BROKERS_KITE_API_KEY", "INVESTEZ_BROKERS_KITE_API_SECRET",
		"INVESTEZ_BROKERS_GROWW_ACCESS_TOKEN",
	}
	for _, e := range envVars {
		os.Unsetenv(e)
	}

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}

	if cfg.Data.CacheTTLSeconds != 1800 {
		t.Errorf("Data.CacheTTLSeconds: got %d, want 1800", cfg.Data.CacheTTLSeconds)
	}
	if cfg.Data.EnrichConcurrency != 4 {
		t.Errorf("Data.EnrichConcurrency: got %d, want 4", cfg.Data.EnrichConcurrency)
	}
	if cfg.API.Host != "0.0.0.0" {
		t.Errorf("API.Host: got %q, want %q", cfg.API.Host, "0.0.0.0")
	}
	if cfg.API.Port != 8080 {
		t.Errorf("API.Port: got %d, want 8080", cfg.API.Port)
	}
	if cfg.Logging.Level != "info" {
		t.Errorf("Logging.Level: got %q, want %q", cfg.Logging.Level, "info")
	}
	if cfg.Store.ConversationsDir == "" {
		t.Error("Store.ConversationsDir should have a default")
	}
	if cfg.Brokers.Kite.TokenPath == "" {
		t.Error("Brokers.Kite.TokenPath should have a default")
	}
}

// ── LoadFromFile ──

func TestLoadFromFile(t *testing.T) {
	tmpDir := t.TempDir()
	cfgPath := filepath.Join(tmpDir, "test_config.yaml")
	content := []byte(`
brokers:
  kite:
    api_key: "test_key_12345678901234"
    api_secret: "test_secret_1234567890"
  groww:
    access_token: "groww_token_abc"
data:
  cache_ttl_seconds: 600
  enrich_concurrency: 8
api:
  port: 9090
logging:
  level: "debug"
`)
	if err := os.WriteFile(cfgPath, content, 0644); err != nil {
		t.Fatalf("write temp config: %v", err)
	}

	os.Unsetenv("INVESTEZ_BROKERS_KITE_API_KEY")
	os.Unsetenv("INVESTEZ_BROKERS_KITE_API_SECRET")
	os.Unsetenv("INVESTEZ_BROKERS_GROWW_ACCESS_TOKEN")

	cfg, err := LoadFromFile(cfgPath)
	if err != nil {
		t.Fatalf("LoadFromFile() error: %v", err)
	}
	if cfg.Brokers.Kite.APIKey != "test_key_12345678901234" {
		t.Errorf("Brokers.Kite.APIKey: got %q", cfg.Brokers.Kite.APIKey)
	}
	if cfg.Brokers.Groww.AccessToken != "groww_token_abc" {
		t.Errorf("Brokers.Groww.AccessToken: got %q", cfg.Brokers.Groww.AccessToken)
	}
	if cfg.Data.CacheTTLSeconds != 600 {
		t.Errorf("Data.CacheTTLSeconds: got %d, want 600", cfg.Data.CacheTTLSeconds)
	}
	if cfg.Data.EnrichConcurrency != 8 {
		t.Errorf("Data.EnrichConcurrency: got %d, want 8", cfg.Data.EnrichConcurrency)
	}
	if cfg.API.Port != 9090 {
		t.Errorf("API.Port: got %d, want 9090", cfg.API.Port)
	}
	if cfg.Logging.Level != "debug" {
		t.Errorf("Logging.Level: got %q, want %q", cfg.Logging.Level, "debug")
	}
}

func TestLoadFromFileNotFound(t *testing.T) {
	_, err := LoadFromFile("/nonexistent/path/config.yaml")
	if err == nil {
		t.Error("LoadFromFile() with nonexistent path should return error")
	}
}

// ── overrideFromEnv ──

func TestOverrideFromEnv(t *testing.T) {
	cfg := &Config{}

	os.Setenv("INVESTEZ_BROKERS_KITE_API_KEY", "kite-api-key")
	os.Setenv("INVESTEZ_BROKERS_KITE_API_SECRET", "kite-secret")
	os.Setenv("INVESTEZ_BROKERS_GROWW_ACCESS_TOKEN", "groww-token")
	os.Setenv("INVESTEZ_STORE_ENCRYPTION_KEY", "env-key")
	defer func() {
		os.Unsetenv("INVESTEZ_BROKERS_KITE_API_KEY")
		os.Unsetenv("INVESTEZ_BROKERS_KITE_API_SECRET")
		os.Unsetenv("INVESTEZ_BROKERS_GROWW_ACCESS_TOKEN")
		os.Unsetenv("INVESTEZ_STORE_ENCRYPTION_KEY")
	}()

	overrideFromEnv(cfg)

	if cfg.Brokers.Kite.APIKey != "kite-api-key" {
		t.Errorf("Kite.APIKey: got %q", cfg.Brokers.Kite.APIKey)
	}
	if cfg.Brokers.Kite.APISecret != "kite-secret" {
		t.Errorf("Kite.APISecret: got %q", cfg.Brokers.Kite.APISecret)
	}
	if cfg.Brokers.Groww.AccessToken != "groww-token" {
		t.Errorf("Groww.AccessToken: got %q", cfg.Brokers.Groww.AccessToken)
	}
	if cfg.Store.EncryptionKey != "env-key" {
		t.Errorf("Store.EncryptionKey: got %q", cfg.Store.EncryptionKey)
	}
}

func TestOverrideFromEnvNoEnvSet(t *testing.T) {
	os.Unsetenv("INVESTEZ_BROKERS_KITE_API_KEY")

	cfg := &Config{
		Brokers: BrokersConfig{Kite: KiteConfig{APIKey: "from-config"}},
	}
	overrideFromEnv(cfg)

	// Should retain the original value when env is not set
	if cfg.Brokers.Kite.APIKey != "from-config" {
		t.Errorf("APIKey should stay as 'from-config' when env is unset, got %q", cfg.Brokers.Kite.APIKey)
	}
}

// ── mask / CheckCredentials ──

func TestMask(t *testing.T) {
	tests := []struct {
		input string
		want  string
	}{
		{"", ""},
		{"ab", "****"},
		{"abcd", "****"},
		{"abcdefgh", "****efgh"},
	}
	for _, tc := range tests {
		if got := mask(tc.input); got != tc.want {
			t.Errorf("mask(%q): got %q, want %q", tc.input, got, tc.want)
		}
	}
}

func TestCheckCredentials(t *testing.T) {
	cfg := &Config{
		Brokers: BrokersConfig{
			Kite: KiteConfig{APIKey: "kite-key-123456"},
		},
	}
	statuses := CheckCredentials(cfg)
	if len(statuses) != 3 {
		t.Fatalf("CheckCredentials: got %d statuses, want 3", len(statuses))
	}
	if !statuses[0].IsSet {
		t.Error("Kite API Key should be set")
	}
	if statuses[0].Masked != "****3456" {
		t.Errorf("Masked: got %q, want %q", statuses[0].Masked, "****3456")
	}
	if statuses[2].IsSet {
		t.Error("Groww Access Token should not be set")
	}
}

// ── homeDir ──

func TestHomeDirReturnsNonEmpty(t *testing.T) {
	if homeDir() == "" {
		t.Error("homeDir() should not return empty string")
	}
}
