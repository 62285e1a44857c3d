package fakeuserrepo

import (
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jrsteele09/portfolio-auth/users"
)

var _ users.Repo = (*FakeUserRepo)(nil)

type FakeUserRepo struct {
	accounts    map[string]*users.Account
	emailIds    map[string]string // email to account id
	usernameIds map[string]string // username to account id
	lock        sync.RWMutex
	nowFunc     func() time.Time
}

func NewFakeUserRepo() *FakeUserRepo {
	return &FakeUserRepo{
		accounts:    make(map[string]*users.Account),
		emailIds:    make(map[string]string),
		usernameIds: make(map[string]string),
		nowFunc:     time.Now,
	}
}

func (ur *FakeUserRepo) Create(account *users.Account) error {
	ur.lock.Lock()
	defer ur.lock.Unlock()

	email := users.NormalizeEmail(account.Email)
	if _, ok := ur.emailIds[email]; ok {
		return users.ErrAlreadyExists
	}
	if account.Username != "" {
		if _, ok := ur.usernameIds[account.Username]; ok {
			return users.ErrAlreadyExists
		}
	}
	if account.ID == "" {
		account.ID = uuid.New().String()
	}
	if account.DateJoined.IsZero() {
		account.DateJoined = ur.nowFunc()
	}
	account.Email = email
	stored := *account
	ur.accounts[account.ID] = &stored
	ur.emailIds[email] = account.ID
	if account.Username != "" {
		ur.usernameIds[account.Username] = account.ID
	}
	return nil
}

func (ur *FakeUserRepo) GetByEmail(email string) (*users.Account, error) {
	ur.lock.RLock()
	defer ur.lock.RUnlock()

	id, ok := ur.emailIds[users.NormalizeEmail(email)]
	if !ok {
		return nil, users.ErrNotFound
	}
	return ur.copyOf(id)
}

func (ur *FakeUserRepo) GetByUsername(username string) (*users.Account, error) {
	ur.lock.RLock()
	defer ur.lock.RUnlock()

	id, ok := ur.usernameIds[username]
	if !ok {
		return nil, users.ErrNotFound
	}
	return ur.copyOf(id)
}

func (ur *FakeUserRepo) GetByID(id string) (*users.Account, error) {
	ur.lock.RLock()
	defer ur.lock.RUnlock()
	return ur.copyOf(id)
}

func (ur *FakeUserRepo) SetPasswordHash(id, hash string) error {
	ur.lock.Lock()
	defer ur.lock.Unlock()

	a, ok := ur.accounts[id]
	if !ok {
		return users.ErrNotFound
	}
	a.PasswordHash = hash
	return nil
}

func (ur *FakeUserRepo) SetLastLogin(id string) error {
	ur.lock.Lock()
	defer ur.lock.Unlock()

	a, ok := ur.accounts[id]
	if !ok {
		return users.ErrNotFound
	}
	a.LastLogin = ur.nowFunc()
	return nil
}

// copyOf must be called with the lock held
func (ur *FakeUserRepo) copyOf(id string) (*users.Account, error) {
	a, ok := ur.accounts[id]
	if !ok {
		return nil, users.ErrNotFound
	}
	c := *a
	c.Groups = append([]string(nil), a.Groups...)
	return &c, nil
}
