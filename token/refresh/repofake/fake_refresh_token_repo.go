package refreshrepofake

import (
	"sort"
	"sync"

	"github.com/jrsteele09/portfolio-auth/token/refresh"
)

var _ refresh.Repo = (*FakeRefreshTokenRepo)(nil)

type FakeRefreshTokenRepo struct {
	tokens  map[string]*refresh.StoredRefreshToken
	userIDs map[string]map[string]struct{} // user ID to jtis
	lock    sync.RWMutex
}

func NewFakeRefreshTokenRepo() *FakeRefreshTokenRepo {
	return &FakeRefreshTokenRepo{
		tokens:  make(map[string]*refresh.StoredRefreshToken),
		userIDs: make(map[string]map[string]struct{}),
	}
}

func (tr *FakeRefreshTokenRepo) Upsert(refreshToken *refresh.StoredRefreshToken) error {
	tr.lock.Lock()
	defer tr.lock.Unlock()

	stored := *refreshToken
	tr.tokens[refreshToken.JTI] = &stored
	if tr.userIDs[refreshToken.UserID] == nil {
		tr.userIDs[refreshToken.UserID] = make(map[string]struct{})
	}
	tr.userIDs[refreshToken.UserID][refreshToken.JTI] = struct{}{}
	return nil
}

func (tr *FakeRefreshTokenRepo) Delete(jti string) error {
	tr.lock.Lock()
	defer tr.lock.Unlock()

	rt, ok := tr.tokens[jti]
	if !ok {
		return refresh.ErrNotFound
	}
	delete(tr.tokens, jti)
	delete(tr.userIDs[rt.UserID], jti)
	if len(tr.userIDs[rt.UserID]) == 0 {
		delete(tr.userIDs, rt.UserID)
	}
	return nil
}

func (tr *FakeRefreshTokenRepo) Get(jti string) (*refresh.StoredRefreshToken, error) {
	tr.lock.RLock()
	defer tr.lock.RUnlock()
	rt, ok := tr.tokens[jti]
	if !ok {
		return nil, refresh.ErrNotFound
	}
	stored := *rt
	return &stored, nil
}

// GetByUserID returns the user's tokens oldest first
func (tr *FakeRefreshTokenRepo) GetByUserID(userID string) ([]*refresh.StoredRefreshToken, error) {
	tr.lock.RLock()
	defer tr.lock.RUnlock()

	tokens := make([]*refresh.StoredRefreshToken, 0, len(tr.userIDs[userID]))
	for jti := range tr.userIDs[userID] {
		stored := *tr.tokens[jti]
		tokens = append(tokens, &stored)
	}
	sort.Slice(tokens, func(i, j int) bool {
		return tokens[i].Iat.Before(tokens[j].Iat)
	})
	return tokens, nil
}
