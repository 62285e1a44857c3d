// Package filestore keeps the credential pair in a JSON file, readable only by
// the current user.
package filestore

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/jrsteele09/portfolio-auth/token"
)

// profiles maps a profile name to its stored pair
type profiles map[string]token.CredentialPair

type Store struct {
	path    string
	profile string

	mu sync.Mutex
}

var _ token.Store = (*Store)(nil)

func New(path, profile string) (*Store, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		return nil, fmt.Errorf("token file path is required")
	}
	if profile == "" {
		profile = "default"
	}
	return &Store{path: path, profile: profile}, nil
}

func (s *Store) Access(_ context.Context) (string, bool) {
	pair, ok := s.read()
	if !ok || pair.AccessToken == "" {
		return "", false
	}
	return pair.AccessToken, true
}

func (s *Store) Refresh(_ context.Context) (string, bool) {
	pair, ok := s.read()
	if !ok || pair.RefreshToken == "" {
		return "", false
	}
	return pair.RefreshToken, true
}

func (s *Store) Set(_ context.Context, access, refresh string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	all, err := s.loadLocked()
	if err != nil {
		return err
	}
	all[s.profile] = token.CredentialPair{AccessToken: access, RefreshToken: refresh}
	return s.persistLocked(all)
}

func (s *Store) Clear(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	all, err := s.loadLocked()
	if err != nil {
		return err
	}
	if _, ok := all[s.profile]; !ok {
		return nil
	}
	delete(all, s.profile)
	return s.persistLocked(all)
}

// read treats an unreadable file as empty; a corrupt store behaves like a
// cleared one and is rewritten on the next Set.
func (s *Store) read() (token.CredentialPair, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	all, err := s.loadLocked()
	if err != nil {
		return token.CredentialPair{}, false
	}
	pair, ok := all[s.profile]
	return pair, ok
}

func (s *Store) loadLocked() (profiles, error) {
	all := make(profiles)
	b, err := os.ReadFile(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return all, nil
		}
		return nil, fmt.Errorf("read token file: %w", err)
	}
	if len(b) == 0 {
		return all, nil
	}
	if err := json.Unmarshal(b, &all); err != nil {
		return make(profiles), nil
	}
	return all, nil
}

func (s *Store) persistLocked(all profiles) error {
	b, err := json.MarshalIndent(all, "", "  ")
	if err != nil {
		return fmt.Errorf("encode token file: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(s.path), 0o700); err != nil {
		return fmt.Errorf("mkdir token dir: %w", err)
	}
	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, b, 0o600); err != nil {
		return fmt.Errorf("write token file: %w", err)
	}
	if err := os.Rename(tmp, s.path); err != nil {
		return fmt.Errorf("replace token file: %w", err)
	}
	return nil
}
