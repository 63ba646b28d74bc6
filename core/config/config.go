package config

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/go-viper/mapstructure/v2"
	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"klaviyo-sync/core/database"
	"klaviyo-sync/core/klaviyo"
	"klaviyo-sync/core/logger"
	"klaviyo-sync/core/server"
	"klaviyo-sync/core/storage"
)

// Persistence backends for refreshed credentials.
const (
	PersistFile   = "file"
	PersistObject = "object"
)

// Config holds all configuration for the application.
// Credential keys and list_id sit at the top level so the credentials
// document can double as the config file.
type Config struct {
	// CredentialsConfig holds the API key or OAuth client credentials.
	klaviyo.CredentialsConfig `mapstructure:",squash"`
	// ListID enables list subscriptions when set.
	ListID string `mapstructure:"list_id" default:""`
	// Klaviyo holds API client settings.
	Klaviyo klaviyo.Config `mapstructure:"klaviyo"`
	// Sync holds driver settings.
	Sync SyncConfig `mapstructure:"sync"`
	// Server holds configuration for the HTTP server.
	Server server.Config `mapstructure:"server"`
	// Storage holds configuration for the object storage (e.g., S3, Minio).
	Storage storage.Config `mapstructure:"storage"`
	// Log holds configuration for the logger.
	Log logger.Config `mapstructure:"log"`
	// Database holds configuration for the result journal.
	Database database.Config `mapstructure:"database"`

	// File is the credentials document this config was read from, if any.
	File string `mapstructure:"-"`
}

// SyncConfig holds record processing settings.
type SyncConfig struct {
	// Workers is the number of records processed concurrently.
	Workers int `mapstructure:"workers" default:"4" validate:"min=1"`
	// DryRun plans writes without performing them.
	DryRun bool `mapstructure:"dry_run" default:"false"`
	// Persist selects where refreshed credentials are written (file or object).
	Persist string `mapstructure:"persist" default:"file" validate:"oneof=file object"`
	// CredentialsObject is the object name used when Persist is object.
	CredentialsObject string `mapstructure:"credentials_object" default:"credentials.json"`
}

var validate = validator.New()

// LoadConfig loads configuration from the .env file in path, environment
// variables, and the JSON credentials document file when given.
func LoadConfig(path, file string) (*Config, error) {
	envPath := path + "/.env"
	if path == "." || path == "" {
		envPath = ".env"
	}

	// Ignore error if file doesn't exist (e.g. production)
	_ = godotenv.Overload(envPath)

	v := viper.New()

	// Recursively parse struct tags to set default values
	bindValues(v, Config{}, "")

	// Map environment variables to nested keys (e.g. SERVER_PORT -> server.port)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if file != "" {
		v.SetConfigFile(file)
		v.SetConfigType("json")
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config %s: %w", file, err)
		}
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, err
	}
	config.File = file

	return &config, nil
}

// Validate checks field constraints and that exactly one credential mode can
// be built.
func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	if _, err := klaviyo.NewCredentials(c.CredentialsConfig); err != nil {
		return err
	}
	if c.Sync.Persist == PersistObject && c.Sync.CredentialsObject == "" {
		return errors.New("invalid configuration: sync.credentials_object is required for object persistence")
	}
	return nil
}

// MergeCredentials overlays credential keys and list_id from a stored
// credentials document. Keys absent from doc keep their current values.
func (c *Config) MergeCredentials(doc map[string]any) error {
	target := struct {
		klaviyo.CredentialsConfig `mapstructure:",squash"`
		ListID                    string `mapstructure:"list_id"`
	}{CredentialsConfig: c.CredentialsConfig, ListID: c.ListID}

	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		WeaklyTypedInput: true,
		Result:           &target,
	})
	if err != nil {
		return err
	}
	if err := decoder.Decode(doc); err != nil {
		return fmt.Errorf("failed to decode stored credentials: %w", err)
	}

	c.CredentialsConfig = target.CredentialsConfig
	c.ListID = target.ListID
	return nil
}

// bindValues uses reflection to iterate over the struct and set default values in Viper
// based on the 'default' and 'mapstructure' tags.
func bindValues(v *viper.Viper, iface any, prefix string) {
	t := reflect.TypeOf(iface)

	// If it's a pointer, get the element
	if t.Kind() == reflect.Ptr {
		t = t.Elem()
	}

	for i := 0; i < t.NumField(); i++ {
		field := t.Field(i)
		tag := field.Tag.Get("mapstructure")

		// Skip if no tag
		if tag == "" || tag == "-" {
			continue
		}

		name, opts, _ := strings.Cut(tag, ",")

		// Squashed structs share the parent prefix
		if strings.Contains(opts, "squash") && field.Type.Kind() == reflect.Struct {
			bindValues(v, reflect.New(field.Type).Elem().Interface(), prefix)
			continue
		}

		// Build the key
		key := name
		if prefix != "" {
			key = prefix + "." + name
		}

		// If it's a nested struct, recurse
		if field.Type.Kind() == reflect.Struct {
			bindValues(v, reflect.New(field.Type).Elem().Interface(), key)
			continue
		}

		defaultValue := field.Tag.Get("default")
		// Always set default (even if empty) to register the key for AutomaticEnv
		v.SetDefault(key, defaultValue)
	}
}
