package token

import (
	"context"
	"sync"
)

// Storage keys shared by every Store implementation.
const (
	AccessTokenKey  = "access_token"
	RefreshTokenKey = "refresh_token"
)

// CredentialPair is the access and refresh token issued together by a
// successful login, registration or refresh. Both are opaque to the client.
type CredentialPair struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
}

// Store persists the credential pair across process restarts. A missing token
// is reported with ok == false. No expiry metadata is kept: expiry is only
// discovered when a token is rejected.
type Store interface {
	Access(ctx context.Context) (string, bool)
	Refresh(ctx context.Context) (string, bool)
	Set(ctx context.Context, access, refresh string) error
	Clear(ctx context.Context) error
}

// InMemoryStore keeps credentials for the lifetime of the process only
type InMemoryStore struct {
	values map[string]string
	mu     sync.RWMutex
}

var _ Store = (*InMemoryStore)(nil)

func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{
		values: make(map[string]string),
	}
}

func (s *InMemoryStore) Access(_ context.Context) (string, bool) {
	return s.get(AccessTokenKey)
}

func (s *InMemoryStore) Refresh(_ context.Context) (string, bool) {
	return s.get(RefreshTokenKey)
}

func (s *InMemoryStore) Set(_ context.Context, access, refresh string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.values[AccessTokenKey] = access
	s.values[RefreshTokenKey] = refresh
	return nil
}

func (s *InMemoryStore) Clear(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.values, AccessTokenKey)
	delete(s.values, RefreshTokenKey)
	return nil
}

func (s *InMemoryStore) get(key string) (string, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	v, ok := s.values[key]
	if !ok || v == "" {
		return "", false
	}
	return v, true
}
