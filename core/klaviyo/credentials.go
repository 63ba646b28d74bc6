package klaviyo

import (
	"fmt"
	"strings"
	"time"
)

// RefreshMargin is how long before expiry an access token is treated as expired.
const RefreshMargin = 120 * time.Second

// Mode identifies the active credential variant.
type Mode string

const (
	ModeStaticKey Mode = "static_key"
	ModeOAuth     Mode = "oauth"
)

// Credentials is either StaticKey or OAuthTokens.
type Credentials interface {
	Mode() Mode
	document() map[string]any
}

// StaticKey is a private API key. It never expires.
type StaticKey struct {
	Value string
}

func (StaticKey) Mode() Mode { return ModeStaticKey }

func (k StaticKey) document() map[string]any {
	return map[string]any{"api_private_key": k.Value}
}

// OAuthTokens is the refresh-token credential set.
type OAuthTokens struct {
	AccessToken  string
	RefreshToken string
	ClientID     string
	ClientSecret string
	// ExpiresAt is an absolute epoch second; zero means unknown.
	ExpiresAt int64
}

func (OAuthTokens) Mode() Mode { return ModeOAuth }

// ValidAt reports whether the access token can be used at now, keeping
// RefreshMargin in reserve.
func (t OAuthTokens) ValidAt(now time.Time) bool {
	if t.AccessToken == "" || t.ExpiresAt == 0 {
		return false
	}
	return time.Duration(t.ExpiresAt-now.Unix())*time.Second >= RefreshMargin
}

func (t OAuthTokens) document() map[string]any {
	return map[string]any{
		"access_token":  t.AccessToken,
		"refresh_token": t.RefreshToken,
		"client_id":     t.ClientID,
		"client_secret": t.ClientSecret,
		"expires_in":    t.ExpiresAt,
	}
}

// NewCredentials selects the credential variant from configuration.
// An API key takes precedence; otherwise client id, secret and refresh token
// are all required.
func NewCredentials(cfg CredentialsConfig) (Credentials, error) {
	if key := strings.TrimSpace(cfg.APIPrivateKey); key != "" {
		return StaticKey{Value: key}, nil
	}

	var missing []string
	if cfg.ClientID == "" {
		missing = append(missing, "client_id")
	}
	if cfg.ClientSecret == "" {
		missing = append(missing, "client_secret")
	}
	if cfg.RefreshToken == "" {
		missing = append(missing, "refresh_token")
	}
	switch {
	case len(missing) == 3:
		return nil, ErrNoCredentials
	case len(missing) > 0:
		return nil, fmt.Errorf("klaviyo: oauth credentials incomplete, missing %s", strings.Join(missing, ", "))
	}

	return OAuthTokens{
		AccessToken:  cfg.AccessToken,
		RefreshToken: cfg.RefreshToken,
		ClientID:     cfg.ClientID,
		ClientSecret: cfg.ClientSecret,
		ExpiresAt:    cfg.ExpiresAt,
	}, nil
}

// HasOAuthFields reports whether any OAuth client field is set, so callers can
// warn when an API key shadows them.
func (c CredentialsConfig) HasOAuthFields() bool {
	return c.ClientID != "" || c.ClientSecret != "" || c.RefreshToken != ""
}

// Mask hides all but the last four characters of a secret for logging.
func Mask(secret string) string {
	if len(secret) <= 8 {
		return strings.Repeat("*", len(secret))
	}
	return strings.Repeat("*", len(secret)-4) + secret[len(secret)-4:]
}
