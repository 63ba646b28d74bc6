package server

// Config holds configuration for the HTTP ingestion server.
type Config struct {
	// Port is the port where the server will listen.
	Port string `mapstructure:"port" default:"8080" validate:"required,numeric"`
	// ApiKey is the secret key required to submit records. Empty disables the check.
	ApiKey string `mapstructure:"api_key" default:""`
	// BodyLimitBytes caps the size of a single submitted record.
	BodyLimitBytes int `mapstructure:"body_limit_bytes" default:"1048576" validate:"min=0"`
}

// Address returns the listen address for the configured port.
func (c Config) Address() string {
	return ":" + c.Port
}
