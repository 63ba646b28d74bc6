package klaviyo

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewCredentials(t *testing.T) {
	tests := []struct {
		name      string
		cfg       CredentialsConfig
		wantMode  Mode
		expectErr string
	}{
		{
			name:     "api key",
			cfg:      CredentialsConfig{APIPrivateKey: "pk_123"},
			wantMode: ModeStaticKey,
		},
		{
			name: "api key wins over oauth fields",
			cfg: CredentialsConfig{
				APIPrivateKey: "pk_123",
				ClientID:      "id",
				ClientSecret:  "secret",
				RefreshToken:  "rt",
			},
			wantMode: ModeStaticKey,
		},
		{
			name:     "oauth",
			cfg:      CredentialsConfig{ClientID: "id", ClientSecret: "secret", RefreshToken: "rt"},
			wantMode: ModeOAuth,
		},
		{
			name:      "oauth incomplete",
			cfg:       CredentialsConfig{ClientID: "id"},
			expectErr: "missing client_secret, refresh_token",
		},
		{
			name:      "nothing",
			cfg:       CredentialsConfig{},
			expectErr: ErrNoCredentials.Error(),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			creds, err := NewCredentials(tt.cfg)
			if tt.expectErr != "" {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.expectErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantMode, creds.Mode())
		})
	}
}

func TestNewCredentials_CarriesStoredTokens(t *testing.T) {
	creds, err := NewCredentials(CredentialsConfig{
		ClientID:     "id",
		ClientSecret: "secret",
		RefreshToken: "rt",
		AccessToken:  "at",
		ExpiresAt:    1700000000,
	})
	require.NoError(t, err)

	tokens, ok := creds.(OAuthTokens)
	require.True(t, ok)
	assert.Equal(t, "at", tokens.AccessToken)
	assert.Equal(t, int64(1700000000), tokens.ExpiresAt)
}

func TestOAuthTokens_ValidAt(t *testing.T) {
	now := time.Unix(1700000000, 0)

	tests := []struct {
		name   string
		tokens OAuthTokens
		want   bool
	}{
		{"no access token", OAuthTokens{ExpiresAt: now.Unix() + 3600}, false},
		{"no expiry", OAuthTokens{AccessToken: "at"}, false},
		{"inside margin", OAuthTokens{AccessToken: "at", ExpiresAt: now.Unix() + 50}, false},
		{"already expired", OAuthTokens{AccessToken: "at", ExpiresAt: now.Unix() - 10}, false},
		{"exactly at margin", OAuthTokens{AccessToken: "at", ExpiresAt: now.Unix() + 120}, true},
		{"well ahead", OAuthTokens{AccessToken: "at", ExpiresAt: now.Unix() + 300}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.tokens.ValidAt(now))
		})
	}
}

func TestMask(t *testing.T) {
	assert.Equal(t, "", Mask(""))
	assert.Equal(t, "*****", Mask("short"))
	assert.Equal(t, "********cdef", Mask("456789abcdef"))
}

func TestIsFatal(t *testing.T) {
	assert.True(t, IsFatal(&AuthError{StatusCode: 400}))
	assert.True(t, IsFatal(&PersistenceError{Err: assert.AnError}))
	assert.False(t, IsFatal(&UpstreamError{StatusCode: 500}))
	assert.False(t, IsFatal(&RateLimitError{}))
	assert.False(t, IsFatal(nil))
}
