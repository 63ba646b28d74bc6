package klaviyo

const (
	// DefaultBaseURL is the root of the Klaviyo JSON:API endpoints.
	DefaultBaseURL = "https://a.klaviyo.com/api"
	// DefaultTokenURL is the OAuth token endpoint.
	DefaultTokenURL = "https://a.klaviyo.com/oauth/token"
	// DefaultRevision pins the request/response contract.
	DefaultRevision = "2023-07-15"
)

// Config holds the API client settings.
type Config struct {
	// BaseURL is the API root; overridden only in tests and sandboxes.
	BaseURL string `mapstructure:"base_url" default:"https://a.klaviyo.com/api" validate:"required,url"`
	// TokenURL is the OAuth token endpoint.
	TokenURL string `mapstructure:"token_url" default:"https://a.klaviyo.com/oauth/token" validate:"required,url"`
	// Revision is sent as the revision header on every request.
	Revision string `mapstructure:"revision" default:"2023-07-15" validate:"required"`
	// TimeoutSeconds bounds each HTTP request.
	TimeoutSeconds int `mapstructure:"timeout_seconds" default:"30" validate:"min=0"`
	// RequestsPerSecond paces outgoing requests. Zero disables pacing.
	RequestsPerSecond float64 `mapstructure:"requests_per_second" default:"10" validate:"min=0"`
	// Burst is the pacing bucket size.
	Burst int `mapstructure:"burst" default:"10" validate:"min=0"`
	// DefaultRegion is the ISO region used to parse phones without a
	// country prefix. Empty accepts international numbers only.
	DefaultRegion string `mapstructure:"default_region" default:""`
	// BreakerFailures opens the circuit after that many consecutive 5xx or
	// transport failures. Zero disables the breaker.
	BreakerFailures uint32 `mapstructure:"breaker_failures" default:"10"`
}

// CredentialsConfig is the flat credential section of the config document.
// Either APIPrivateKey or the OAuth client fields must be set.
type CredentialsConfig struct {
	APIPrivateKey string `mapstructure:"api_private_key" default:""`
	ClientID      string `mapstructure:"client_id" default:""`
	ClientSecret  string `mapstructure:"client_secret" default:""`
	RefreshToken  string `mapstructure:"refresh_token" default:""`
	AccessToken   string `mapstructure:"access_token" default:""`
	// ExpiresAt is stored under "expires_in" and holds an absolute epoch
	// second, matching documents written by earlier versions of the target.
	ExpiresAt int64 `mapstructure:"expires_in" default:"0"`
}
