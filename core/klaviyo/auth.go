package klaviyo

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/goccy/go-json"
	"go.uber.org/zap"

	"klaviyo-sync/core/logger"
	"klaviyo-sync/core/metrics"
)

// refreshAttempts bounds token requests that fail at the transport level.
const refreshAttempts = 3

// Authenticator produces the headers that authorize a data request.
type Authenticator interface {
	Headers(ctx context.Context) (http.Header, error)
}

// StaticKeyAuth authorizes with a private API key.
type StaticKeyAuth struct {
	Key string
}

// Headers returns the API key authorization header.
func (a *StaticKeyAuth) Headers(_ context.Context) (http.Header, error) {
	h := http.Header{}
	h.Set("Authorization", "Klaviyo-API-Key "+a.Key)
	return h, nil
}

// OAuthAuth authorizes with a bearer token, refreshing it when it is within
// RefreshMargin of expiry. Concurrent callers wait on one refresh.
type OAuthAuth struct {
	mu         sync.Mutex
	store      *CredentialStore
	state      *SyncState
	tokenURL   string
	httpClient *http.Client
	logger     *zap.Logger
	now        func() time.Time
	newBackOff func() backoff.BackOff
}

// OAuthOption configures an OAuthAuth.
type OAuthOption func(*OAuthAuth)

// WithClock overrides the time source.
func WithClock(now func() time.Time) OAuthOption {
	return func(a *OAuthAuth) { a.now = now }
}

// WithTokenURL overrides the token endpoint.
func WithTokenURL(u string) OAuthOption {
	return func(a *OAuthAuth) { a.tokenURL = u }
}

// WithTokenHTTPClient overrides the HTTP client used for refreshes.
func WithTokenHTTPClient(c *http.Client) OAuthOption {
	return func(a *OAuthAuth) { a.httpClient = c }
}

// WithRefreshBackOff overrides the delay policy between refresh attempts.
func WithRefreshBackOff(f func() backoff.BackOff) OAuthOption {
	return func(a *OAuthAuth) { a.newBackOff = f }
}

// NewOAuthAuth creates an OAuth authenticator backed by store.
func NewOAuthAuth(store *CredentialStore, state *SyncState, log *zap.Logger, opts ...OAuthOption) *OAuthAuth {
	a := &OAuthAuth{
		store:      store,
		state:      state,
		tokenURL:   DefaultTokenURL,
		httpClient: &http.Client{Timeout: 30 * time.Second},
		logger:     logger.OrNop(log),
		now:        time.Now,
		newBackOff: func() backoff.BackOff {
			b := backoff.NewExponentialBackOff()
			b.InitialInterval = 500 * time.Millisecond
			b.MaxInterval = 5 * time.Second
			return b
		},
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// NewAuthenticator picks the authenticator for the store's credential mode.
func NewAuthenticator(store *CredentialStore, state *SyncState, log *zap.Logger, opts ...OAuthOption) (Authenticator, error) {
	switch creds := store.Current().(type) {
	case StaticKey:
		return &StaticKeyAuth{Key: creds.Value}, nil
	case OAuthTokens:
		return NewOAuthAuth(store, state, log, opts...), nil
	default:
		return nil, ErrNoCredentials
	}
}

// Headers returns a bearer authorization header, refreshing first when needed.
func (a *OAuthAuth) Headers(ctx context.Context) (http.Header, error) {
	token, err := a.accessToken(ctx)
	if err != nil {
		return nil, err
	}
	h := http.Header{}
	h.Set("Authorization", "Bearer "+token)
	return h, nil
}

func (a *OAuthAuth) accessToken(ctx context.Context) (string, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	tokens, ok := a.store.Current().(OAuthTokens)
	if !ok {
		return "", errors.New("klaviyo: store does not hold oauth credentials")
	}
	if tokens.ValidAt(a.now()) {
		return tokens.AccessToken, nil
	}

	refreshed, err := a.refresh(ctx, tokens)
	if err != nil {
		return "", err
	}

	if err := a.store.Update(ctx, refreshed); err != nil {
		metrics.TokenRefreshes.WithLabelValues("persist").Inc()
		a.logger.Error("Failed to persist refreshed credentials", zap.Error(err))
		return "", err
	}
	metrics.TokenRefreshes.WithLabelValues("success").Inc()
	a.logger.Info("Refreshed OAuth access token",
		zap.String("access_token", Mask(refreshed.AccessToken)),
		zap.Int64("expires_at", refreshed.ExpiresAt),
	)
	return refreshed.AccessToken, nil
}

// refresh exchanges the refresh token, retrying transport failures only.
func (a *OAuthAuth) refresh(ctx context.Context, tokens OAuthTokens) (OAuthTokens, error) {
	var refreshed OAuthTokens
	attempt := 0

	op := func() error {
		attempt++
		res, err := a.requestToken(ctx, tokens)
		if err == nil {
			refreshed = res
			return nil
		}
		var transportErr *TransportError
		if errors.As(err, &transportErr) && ctx.Err() == nil {
			a.logger.Warn("Token refresh transport failure",
				zap.Int("attempt", attempt),
				zap.Error(err),
			)
			return err
		}
		return backoff.Permanent(err)
	}

	b := backoff.WithContext(backoff.WithMaxRetries(a.newBackOff(), refreshAttempts-1), ctx)
	if err := backoff.Retry(op, b); err != nil {
		var authErr *AuthError
		if errors.As(err, &authErr) {
			metrics.TokenRefreshes.WithLabelValues("rejected").Inc()
		} else {
			metrics.TokenRefreshes.WithLabelValues("transport").Inc()
		}
		return OAuthTokens{}, err
	}
	return refreshed, nil
}

type tokenResponse struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	ExpiresIn    int64  `json:"expires_in"`
}

func (a *OAuthAuth) requestToken(ctx context.Context, tokens OAuthTokens) (OAuthTokens, error) {
	form := url.Values{}
	form.Set("grant_type", "refresh_token")
	form.Set("refresh_token", tokens.RefreshToken)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, a.tokenURL, strings.NewReader(form.Encode()))
	if err != nil {
		return OAuthTokens{}, fmt.Errorf("build token request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("Accept", "application/json")
	req.SetBasicAuth(tokens.ClientID, tokens.ClientSecret)

	resp, err := a.httpClient.Do(req)
	if err != nil {
		return OAuthTokens{}, &TransportError{Method: http.MethodPost, URL: a.tokenURL, Err: err}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return OAuthTokens{}, &TransportError{Method: http.MethodPost, URL: a.tokenURL, Err: err}
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		if a.state != nil {
			a.state.Set(AuthErrorResponseKey, string(body))
		}
		a.logger.Error("Token refresh rejected", zap.Int("status", resp.StatusCode))
		return OAuthTokens{}, &AuthError{StatusCode: resp.StatusCode, Body: string(body)}
	}

	var tr tokenResponse
	if err := json.Unmarshal(body, &tr); err != nil {
		return OAuthTokens{}, &AuthError{StatusCode: resp.StatusCode, Body: fmt.Sprintf("malformed token response: %v", err)}
	}
	if tr.AccessToken == "" {
		return OAuthTokens{}, &AuthError{StatusCode: resp.StatusCode, Body: "token response missing access_token"}
	}
	if tr.ExpiresIn <= 0 {
		return OAuthTokens{}, &AuthError{StatusCode: resp.StatusCode, Body: "token response missing expires_in"}
	}

	out := tokens
	out.AccessToken = tr.AccessToken
	if tr.RefreshToken != "" {
		out.RefreshToken = tr.RefreshToken
	}
	out.ExpiresAt = a.now().Unix() + tr.ExpiresIn
	return out, nil
}
