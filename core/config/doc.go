// Package config provides configuration management for klaviyo-sync.
//
// It utilizes Viper for loading configuration from a .env file, environment
// variables and the JSON credentials document passed with --config.
//
// # Configuration Structure
//
// The Config struct is the central repository for all application settings:
//   - top level: api_private_key or client_id/client_secret/refresh_token,
//     access_token, expires_in, list_id (the credentials document keys)
//   - Klaviyo: API base URL, revision, pacing, circuit breaker, phone region
//   - Sync: worker count, dry run, credential persistence backend
//   - Server: HTTP ingestion settings (port, API key)
//   - Database: optional MySQL result journal
//   - Storage: S3/MinIO settings for object persistence
//   - Log: Logging level and format
//
// Every key can be set from the environment with dots replaced by
// underscores, e.g. KLAVIYO_BASE_URL or SYNC_WORKERS.
//
// # Usage
//
//	cfg, err := config.LoadConfig(".", "config.json")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	if err := cfg.Validate(); err != nil {
//	    log.Fatal(err)
//	}
package config
