package klaviyo

import "sync"

// AuthErrorResponseKey holds the raw body of the last rejected token refresh.
const AuthErrorResponseKey = "auth_error_response"

// SyncState is a per-connector key/value map shared with the driver.
// Each connector instance owns its own SyncState.
type SyncState struct {
	mu     sync.RWMutex
	values map[string]string
}

// NewSyncState returns an empty state.
func NewSyncState() *SyncState {
	return &SyncState{values: make(map[string]string)}
}

// Set stores value under key.
func (s *SyncState) Set(key, value string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.values[key] = value
}

// Get returns the value under key.
func (s *SyncState) Get(key string) (string, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	v, ok := s.values[key]
	return v, ok
}

// Snapshot returns a copy of all values.
func (s *SyncState) Snapshot() map[string]string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make(map[string]string, len(s.values))
	for k, v := range s.values {
		out[k] = v
	}
	return out
}
