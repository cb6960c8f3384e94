package shared

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestConfig(t *testing.T) {
	t.Run("DefaultConfig", func(t *testing.T) {
		config := DefaultConfig()

		if config.Database.Path != "./snooze.db" {
			t.Errorf("expected database path ./snooze.db, got %s", config.Database.Path)
		}

		if config.Server.Port != 5000 {
			t.Errorf("expected server port 5000, got %d", config.Server.Port)
		}

		if config.Remote.BaseURL != "http://127.0.0.1:5000" {
			t.Errorf("expected remote base URL http://127.0.0.1:5000, got %s", config.Remote.BaseURL)
		}

		if config.Storage.Driver != StorageSQLite {
			t.Errorf("expected storage driver sqlite, got %s", config.Storage.Driver)
		}

		if config.Remote.Timeout() != 10*time.Second {
			t.Errorf("expected 10s timeout, got %v", config.Remote.Timeout())
		}

		if err := config.Validate(); err != nil {
			t.Errorf("default config should be valid: %v", err)
		}
	})

	t.Run("CreateConfigFile", func(t *testing.T) {
		tmpDir := t.TempDir()
		configPath := filepath.Join(tmpDir, "config.toml")

		if err := CreateConfigFile(configPath); err != nil {
			t.Fatalf("failed to create config file: %v", err)
		}

		config, err := LoadConfig(configPath)
		if err != nil {
			t.Fatalf("failed to load created config: %v", err)
		}

		if config.Database.Path != DefaultConfig().Database.Path {
			t.Errorf("created config database path doesn't match default")
		}

		if err := CreateConfigFile(configPath); err == nil {
			t.Error("creating config file again should fail")
		}
	})

	t.Run("LoadConfig", func(t *testing.T) {
		tmpDir := t.TempDir()
		configPath := filepath.Join(tmpDir, "config.toml")

		testConfig := `[remote]
base_url = "https://stories.example.com"
rate_limit = 2.5

[storage]
driver = "redis"
key_prefix = "test:"

[redis]
addr = "redis:6379"
db = 3
`
		if err := os.WriteFile(configPath, []byte(testConfig), 0644); err != nil {
			t.Fatalf("failed to write test config: %v", err)
		}

		config, err := LoadConfig(configPath)
		if err != nil {
			t.Fatalf("failed to load config: %v", err)
		}

		if config.Remote.BaseURL != "https://stories.example.com" {
			t.Errorf("expected base URL from file, got %s", config.Remote.BaseURL)
		}
		if config.Remote.RateLimit != 2.5 {
			t.Errorf("expected rate limit 2.5, got %v", config.Remote.RateLimit)
		}
		if config.Redis.DB != 3 {
			t.Errorf("expected redis db 3, got %d", config.Redis.DB)
		}

		t.Run("keeps defaults for missing keys", func(t *testing.T) {
			if config.Remote.TimeoutSeconds != 10 {
				t.Errorf("expected default timeout 10, got %d", config.Remote.TimeoutSeconds)
			}
			if config.Server.Port != 5000 {
				t.Errorf("expected default port 5000, got %d", config.Server.Port)
			}
		})
	})

	t.Run("LoadConfig Errors", func(t *testing.T) {
		tc := []struct {
			name    string
			content string
		}{
			{name: "unknown driver", content: "[storage]\ndriver = \"etcd\"\n"},
			{name: "empty base url", content: "[remote]\nbase_url = \"\"\n"},
			{name: "negative rate", content: "[remote]\nrate_limit = -1.0\n"},
			{name: "redis without addr", content: "[storage]\ndriver = \"redis\"\n[redis]\naddr = \"\"\n"},
		}

		for _, tt := range tc {
			t.Run(tt.name, func(t *testing.T) {
				configPath := filepath.Join(t.TempDir(), "config.toml")
				if err := os.WriteFile(configPath, []byte(tt.content), 0644); err != nil {
					t.Fatalf("failed to write test config: %v", err)
				}

				_, err := LoadConfig(configPath)
				if !errors.Is(err, ErrInvalidConfig) {
					t.Errorf("expected ErrInvalidConfig, got %v", err)
				}
			})
		}

		t.Run("missing file", func(t *testing.T) {
			if _, err := LoadConfig(filepath.Join(t.TempDir(), "nope.toml")); err == nil {
				t.Error("expected error for missing file")
			}
		})

		t.Run("malformed toml", func(t *testing.T) {
			configPath := filepath.Join(t.TempDir(), "config.toml")
			os.WriteFile(configPath, []byte("[remote\nbase_url ="), 0644)
			if _, err := LoadConfig(configPath); err == nil {
				t.Error("expected parse error")
			}
		})
	})
}
