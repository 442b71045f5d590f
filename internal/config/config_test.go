package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"gopkg.in/yaml.v3"
)

func TestSetLogger(t *testing.T) {
	logger := zerolog.New(os.Stdout).Level(zerolog.InfoLevel)
	SetLogger(logger)

	// This test mainly ensures the function doesn't panic
}

func TestApplyDefaults(t *testing.T) {
	t.Run("Config struct defaults", func(t *testing.T) {
		config := &Config{}
		applyDefaults(config)

		if config.Site.Name != "The Draftroom" {
			t.Errorf("Expected site name 'The Draftroom', got %q", config.Site.Name)
		}
		if config.Server.Host != "0.0.0.0" {
			t.Errorf("Expected host '0.0.0.0', got %q", config.Server.Host)
		}
		if config.Server.Port != "12600" {
			t.Errorf("Expected port '12600', got %q", config.Server.Port)
		}
		if config.Theme.Default != DarkTheme {
			t.Errorf("Expected theme %q, got %q", DarkTheme, config.Theme.Default)
		}
		if config.Editor.Variant != VariantPlain {
			t.Errorf("Expected editor variant %q, got %q", VariantPlain, config.Editor.Variant)
		}
		if config.Editor.SaveDelay != 500*time.Millisecond {
			t.Errorf("Expected save delay 500ms, got %v", config.Editor.SaveDelay)
		}
		if config.Editor.SessionTTL != 2*time.Hour {
			t.Errorf("Expected session TTL 2h, got %v", config.Editor.SessionTTL)
		}
		if config.Editor.MaxPayloadMB != 20 {
			t.Errorf("Expected max payload 20, got %d", config.Editor.MaxPayloadMB)
		}
		if config.Storage.Backend != BackendSQLite {
			t.Errorf("Expected storage backend %q, got %q", BackendSQLite, config.Storage.Backend)
		}
		if config.Storage.ReloadInterval != 10*time.Second {
			t.Errorf("Expected reload interval 10s, got %v", config.Storage.ReloadInterval)
		}
		if config.Storage.S3.Region != "auto" {
			t.Errorf("Expected S3 region 'auto', got %q", config.Storage.S3.Region)
		}
		if !config.Features.Authentication.Enabled {
			t.Error("Expected authentication to be enabled by default")
		}
		if config.Logging.Level != "info" {
			t.Errorf("Expected log level 'info', got %q", config.Logging.Level)
		}
	})

	t.Run("Empty default tag leaves field untouched", func(t *testing.T) {
		config := &Config{}
		applyDefaults(config)

		if config.Storage.PostgresDSN != "" {
			t.Errorf("Expected empty postgres DSN, got %q", config.Storage.PostgresDSN)
		}
		if config.Placeholders != nil {
			t.Errorf("Expected no placeholders from tags, got %v", config.Placeholders)
		}
	})

	t.Run("String slice defaults", func(t *testing.T) {
		type tagged struct {
			Keywords []string `default:"one, two,three"`
		}
		v := &tagged{}
		ApplyDefaults(v)

		want := []string{"one", "two", "three"}
		if len(v.Keywords) != len(want) {
			t.Fatalf("Expected %d keywords, got %d", len(want), len(v.Keywords))
		}
		for i := range want {
			if v.Keywords[i] != want[i] {
				t.Errorf("Keyword %d: expected %q, got %q", i, want[i], v.Keywords[i])
			}
		}
	})

	t.Run("Non-struct input is ignored", func(t *testing.T) {
		s := "not a struct"
		ApplyDefaults(&s)
		if s != "not a struct" {
			t.Errorf("Expected value to be untouched, got %q", s)
		}
	})
}

func TestLoadConfig(t *testing.T) {
	SetLogger(zerolog.Nop())

	t.Run("Missing file uses defaults", func(t *testing.T) {
		err := LoadConfig(filepath.Join(t.TempDir(), "missing.yaml"))
		if err != nil {
			t.Fatalf("Expected no error, got %v", err)
		}
		if AppConfig.Site.Name != "The Draftroom" {
			t.Errorf("Expected default site name, got %q", AppConfig.Site.Name)
		}
		if len(AppConfig.Placeholders) != len(DefaultPlaceholders()) {
			t.Errorf("Expected default placeholder catalog, got %d entries", len(AppConfig.Placeholders))
		}
	})

	t.Run("File overrides defaults", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "config.yaml")
		content := `
editor:
  variant: rich
  save_delay: 2s
storage:
  backend: fs
placeholders:
  - code: "{{invoice_number}}"
    label: Invoice number
`
		if err := os.WriteFile(path, []byte(content), 0644); err != nil {
			t.Fatalf(ErrWriteConfigContentFmt, err)
		}

		if err := LoadConfig(path); err != nil {
			t.Fatalf("Expected no error, got %v", err)
		}

		if AppConfig.Editor.Variant != VariantRich {
			t.Errorf("Expected variant %q, got %q", VariantRich, AppConfig.Editor.Variant)
		}
		if AppConfig.Editor.SaveDelay != 2*time.Second {
			t.Errorf("Expected save delay 2s, got %v", AppConfig.Editor.SaveDelay)
		}
		if AppConfig.Storage.Backend != BackendFS {
			t.Errorf("Expected backend %q, got %q", BackendFS, AppConfig.Storage.Backend)
		}
		// Untouched sections keep their defaults
		if AppConfig.Server.Port != "12600" {
			t.Errorf("Expected default port, got %q", AppConfig.Server.Port)
		}
		if len(AppConfig.Placeholders) != 1 || AppConfig.Placeholders[0].Code != "{{invoice_number}}" {
			t.Errorf("Expected configured placeholder catalog, got %+v", AppConfig.Placeholders)
		}
	})

	t.Run("Malformed YAML", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "bad.yaml")
		if err := os.WriteFile(path, []byte("editor: [unclosed"), 0644); err != nil {
			t.Fatalf(ErrWriteConfigContentFmt, err)
		}

		err := LoadConfig(path)
		if err == nil {
			t.Fatal("Expected parse error")
		}
		if !strings.Contains(err.Error(), "failed to parse config file") {
			t.Errorf("Unexpected error: %v", err)
		}
	})

	AppConfig = Default()
}

func TestValidate(t *testing.T) {
	testCases := []struct {
		name    string
		mutate  func(c *Config)
		wantErr string
	}{
		{
			name:   "defaults are valid",
			mutate: func(c *Config) {},
		},
		{
			name:    "unknown variant",
			mutate:  func(c *Config) { c.Editor.Variant = "wysiwyg" },
			wantErr: "editor.variant",
		},
		{
			name:    "unknown backend",
			mutate:  func(c *Config) { c.Storage.Backend = "mongo" },
			wantErr: "storage.backend",
		},
		{
			name:    "unknown compression",
			mutate:  func(c *Config) { c.Storage.Compression = "lz4" },
			wantErr: "storage.compression",
		},
		{
			name:    "negative delay",
			mutate:  func(c *Config) { c.Editor.SaveDelay = -time.Second },
			wantErr: "save_delay",
		},
		{
			name: "empty placeholder code",
			mutate: func(c *Config) {
				c.Placeholders = append(c.Placeholders, PlaceholderConfig{Code: "  ", Label: "Blank"})
			},
			wantErr: "empty code",
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := Default()
			tc.mutate(cfg)

			err := cfg.Validate()
			if tc.wantErr == "" {
				if err != nil {
					t.Fatalf("Expected valid config, got %v", err)
				}
				return
			}
			if err == nil || !strings.Contains(err.Error(), tc.wantErr) {
				t.Fatalf("Expected error containing %q, got %v", tc.wantErr, err)
			}
		})
	}
}

// TestConfigDefaultsGoldenFile checks the defaults against testdata/defaults.yaml
func TestConfigDefaultsGoldenFile(t *testing.T) {
	SetLogger(zerolog.New(os.Stdout).Level(zerolog.ErrorLevel))

	goldenData, err := os.ReadFile("testdata/defaults.yaml")
	if err != nil {
		t.Fatalf("Failed to read golden defaults file: %v", err)
	}

	var golden Config
	if err := yaml.Unmarshal(goldenData, &golden); err != nil {
		t.Fatalf("Failed to parse golden config: %v", err)
	}

	cfg := &Config{}
	ApplyDefaults(cfg)

	if cfg.Site != golden.Site {
		t.Errorf("Site mismatch: got %+v, want %+v", cfg.Site, golden.Site)
	}
	if cfg.Server != golden.Server {
		t.Errorf("Server mismatch: got %+v, want %+v", cfg.Server, golden.Server)
	}
	if cfg.Theme != golden.Theme {
		t.Errorf("Theme mismatch: got %+v, want %+v", cfg.Theme, golden.Theme)
	}
	if cfg.Editor != golden.Editor {
		t.Errorf("Editor mismatch: got %+v, want %+v", cfg.Editor, golden.Editor)
	}
	if cfg.Storage != golden.Storage {
		t.Errorf("Storage mismatch: got %+v, want %+v", cfg.Storage, golden.Storage)
	}
	if cfg.Features != golden.Features {
		t.Errorf("Features mismatch: got %+v, want %+v", cfg.Features, golden.Features)
	}
}

func TestServerAddr(t *testing.T) {
	cfg := Default()
	if got := cfg.ServerAddr(); got != "0.0.0.0:12600" {
		t.Errorf("Expected 0.0.0.0:12600, got %q", got)
	}
}

func TestRegexPlaceholder(t *testing.T) {
	matches := RegexPlaceholder.FindAllStringSubmatch("Dear {{client_name}}, total {{ invoice.total }} {{}}", -1)
	if len(matches) != 2 {
		t.Fatalf("Expected 2 matches, got %d", len(matches))
	}
	if matches[0][1] != "client_name" || matches[1][1] != "invoice.total" {
		t.Errorf("Unexpected captures: %v", matches)
	}
}
