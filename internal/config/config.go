package config

import (
	"errors"
	"fmt"
	"os"
	"reflect"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"gopkg.in/yaml.v3"
)

var configLogger zerolog.Logger

func SetLogger(l zerolog.Logger) {
	configLogger = l
}

// Config represents the complete configuration structure
type Config struct {
	Site         SiteConfig          `yaml:"site"`
	Server       ServerConfig        `yaml:"server"`
	Theme        ThemeConfig         `yaml:"theme"`
	Editor       EditorConfig        `yaml:"editor"`
	Placeholders []PlaceholderConfig `yaml:"placeholders"`
	Storage      StorageConfig       `yaml:"storage"`
	Features     FeaturesConfig      `yaml:"features"`
	Logging      LoggingConfig       `yaml:"logging"`
}

type LoggingConfig struct {
	Level string `yaml:"level" default:"info"`
}

type SiteConfig struct {
	Name        string `yaml:"name" default:"The Draftroom"`
	Description string `yaml:"description" default:"Template documents with placeholders"`
}

type ServerConfig struct {
	Host string `yaml:"host" default:"0.0.0.0"`
	Port string `yaml:"port" default:"12600"`
}

type ThemeConfig struct {
	Default            string       `yaml:"default" default:"dark-theme"`
	AllowSwitching     bool         `yaml:"allow_switching" default:"true"`
	SyntaxHighlighting SyntaxConfig `yaml:"syntax_highlighting"`
}

type SyntaxConfig struct {
	DefaultDark  string `yaml:"default_dark" default:"gruvbox"`
	DefaultLight string `yaml:"default_light" default:"catppuccin-latte"`
}

type EditorConfig struct {
	// Variant selects the editing surface: "plain" (text area) or "rich" (embedded widget).
	Variant       string        `yaml:"variant" default:"plain"`
	SaveDelay     time.Duration `yaml:"save_delay" default:"500ms"`
	LivePreview   bool          `yaml:"live_preview" default:"true"`
	ShowPreview   bool          `yaml:"show_preview" default:"true"`
	SessionTTL    time.Duration `yaml:"session_ttl" default:"2h"`
	SweepSchedule string        `yaml:"sweep_schedule" default:"@every 10m"`
	MaxPayloadMB  int           `yaml:"max_payload_mb" default:"20"`
}

type PlaceholderConfig struct {
	Code        string `yaml:"code"`
	Label       string `yaml:"label"`
	Group       string `yaml:"group"`
	Description string `yaml:"description"`
}

type StorageConfig struct {
	Backend        string        `yaml:"backend" default:"sqlite"`
	SQLitePath     string        `yaml:"sqlite_path" default:"./database.db"`
	PostgresDSN    string        `yaml:"postgres_dsn" default:""`
	DocumentsDir   string        `yaml:"documents_dir" default:"./documents"`
	ReloadInterval time.Duration `yaml:"reload_interval" default:"10s"`
	// Compression is the codec for new database writes: "zstd" or "gzip".
	Compression    string        `yaml:"compression" default:"zstd"`
	S3             S3Config      `yaml:"s3"`
}

type S3Config struct {
	Bucket   string `yaml:"bucket" default:"draftroom"`
	Endpoint string `yaml:"endpoint" default:""`
	Region   string `yaml:"region" default:"auto"`
}

type FeaturesConfig struct {
	Authentication AuthConfig  `yaml:"authentication"`
	Metrics        FeatureFlag `yaml:"metrics"`
}

type AuthConfig struct {
	Enabled bool   `yaml:"enabled" default:"true"`
	Type    string `yaml:"type" default:"ed25519"`
}

type FeatureFlag struct {
	Enabled bool `yaml:"enabled" default:"true"`
}

const (
	VariantPlain = "plain"
	VariantRich  = "rich"

	BackendSQLite   = "sqlite"
	BackendPostgres = "postgres"
	BackendFS       = "fs"
	BackendS3       = "s3"
)

var AppConfig = Default()

// Default returns a configuration with every default applied.
func Default() *Config {
	cfg := &Config{}
	applyDefaults(cfg)
	cfg.Placeholders = DefaultPlaceholders()
	return cfg
}

func DefaultPlaceholders() []PlaceholderConfig {
	return []PlaceholderConfig{
		{Code: "{{client_name}}", Label: "Client name", Group: "Client"},
		{Code: "{{client_address}}", Label: "Client address", Group: "Client"},
		{Code: "{{company_name}}", Label: "Company name", Group: "Company"},
		{Code: "{{date}}", Label: "Date", Group: "General", Description: "Date the document is generated"},
		{Code: "{{amount}}", Label: "Amount", Group: "General"},
		{Code: "{{signature}}", Label: "Signature", Group: "General"},
	}
}

func LoadConfig(path string) error {
	config := &Config{}

	// Apply default values first
	applyDefaults(config)

	data, err := os.ReadFile(path)
	if err != nil {
		configLogger.Info().Str("path", path).Msg("Config file not found, using defaults")
		config.Placeholders = DefaultPlaceholders()
		AppConfig = config
		return nil
	}

	if err := yaml.Unmarshal(data, config); err != nil {
		return fmt.Errorf("failed to parse config file: %w", err)
	}

	if len(config.Placeholders) == 0 {
		config.Placeholders = DefaultPlaceholders()
	}

	if err := config.Validate(); err != nil {
		return fmt.Errorf("invalid config file %s: %w", path, err)
	}

	AppConfig = config
	return nil
}

// Validate checks the values that have a closed set of options.
func (c *Config) Validate() error {
	var errs []error

	switch c.Editor.Variant {
	case VariantPlain, VariantRich:
	default:
		errs = append(errs, fmt.Errorf("editor.variant must be %q or %q, got %q", VariantPlain, VariantRich, c.Editor.Variant))
	}

	switch c.Storage.Backend {
	case BackendSQLite, BackendPostgres, BackendFS, BackendS3:
	default:
		errs = append(errs, fmt.Errorf("unknown storage.backend %q", c.Storage.Backend))
	}

	switch c.Storage.Compression {
	case "zstd", "gzip":
	default:
		errs = append(errs, fmt.Errorf("unknown storage.compression %q", c.Storage.Compression))
	}

	if c.Editor.SaveDelay < 0 {
		errs = append(errs, errors.New("editor.save_delay must not be negative"))
	}

	for i, p := range c.Placeholders {
		if strings.TrimSpace(p.Code) == "" {
			errs = append(errs, fmt.Errorf("placeholders[%d] has an empty code", i))
		}
	}

	return errors.Join(errs...)
}

func (c *Config) ServerAddr() string {
	return c.Server.Host + ":" + c.Server.Port
}

func ApplyDefaults(config interface{}) {
	applyDefaults(config)
}

var durationType = reflect.TypeOf(time.Duration(0))

func applyDefaults(config interface{}) {
	v := reflect.ValueOf(config)
	if v.Kind() == reflect.Ptr {
		v = v.Elem()
	}

	if v.Kind() != reflect.Struct {
		return
	}

	t := v.Type()
	for i := 0; i < v.NumField(); i++ {
		field := v.Field(i)
		fieldType := t.Field(i)

		if !field.IsValid() || !field.CanSet() {
			continue
		}

		// Recursively apply defaults to nested structs
		if field.Kind() == reflect.Struct {
			applyDefaults(field.Addr().Interface())
			continue
		}

		defaultValue := fieldType.Tag.Get("default")
		if defaultValue == "" {
			continue
		}

		switch field.Kind() {
		case reflect.String:
			field.SetString(defaultValue)
		case reflect.Bool:
			if val, err := strconv.ParseBool(defaultValue); err == nil {
				field.SetBool(val)
			}
		case reflect.Int64:
			if field.Type() == durationType {
				if val, err := time.ParseDuration(defaultValue); err == nil {
					field.SetInt(int64(val))
				}
				continue
			}
			if val, err := strconv.ParseInt(defaultValue, 10, 64); err == nil {
				field.SetInt(val)
			}
		case reflect.Int:
			if val, err := strconv.ParseInt(defaultValue, 10, 64); err == nil {
				field.SetInt(val)
			}
		case reflect.Float64:
			if val, err := strconv.ParseFloat(defaultValue, 64); err == nil {
				field.SetFloat(val)
			}
		case reflect.Slice:
			if field.Len() == 0 && field.Type().Elem().Kind() == reflect.String {
				parts := strings.Split(defaultValue, ",")
				slice := reflect.MakeSlice(field.Type(), len(parts), len(parts))
				for j, part := range parts {
					slice.Index(j).SetString(strings.TrimSpace(part))
				}
				field.Set(slice)
			}
		default:
			configLogger.Warn().
				Str("field_name", fieldType.Name).
				Str("field_type", field.Kind().String()).
				Msg("Unsupported field type for default value")
		}
	}
}
