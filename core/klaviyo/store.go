package klaviyo

import (
	"context"
	"errors"
	"sync"
)

// Persister durably stores credential fields. Save merges updates into the
// existing document, leaving unrelated keys untouched.
type Persister interface {
	Load(ctx context.Context) (map[string]any, error)
	Save(ctx context.Context, updates map[string]any) error
}

// CredentialStore holds the active credentials and writes changes through to
// its Persister.
type CredentialStore struct {
	mu        sync.RWMutex
	creds     Credentials
	persister Persister
}

// NewCredentialStore creates a store. A nil persister keeps credentials in
// memory only.
func NewCredentialStore(creds Credentials, persister Persister) *CredentialStore {
	return &CredentialStore{creds: creds, persister: persister}
}

// Current returns the active credentials.
func (s *CredentialStore) Current() Credentials {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.creds
}

// Update replaces the OAuth tokens in memory and persists them. The new tokens
// stay active even when persistence fails; the failure is returned as a
// *PersistenceError because the next process would start with stale tokens.
func (s *CredentialStore) Update(ctx context.Context, tokens OAuthTokens) error {
	if tokens.AccessToken == "" {
		return errors.New("klaviyo: refusing to store empty access token")
	}

	s.mu.Lock()
	s.creds = tokens
	s.mu.Unlock()

	if s.persister == nil {
		return nil
	}
	if err := s.persister.Save(ctx, tokens.document()); err != nil {
		return &PersistenceError{Err: err}
	}
	return nil
}
