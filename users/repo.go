package users

import "errors"

var (
	ErrNotFound      = errors.New("user not found")
	ErrAlreadyExists = errors.New("user with this email already exists")
)

// Repo stores accounts for the development API server
type Repo interface {
	Create(account *Account) error
	GetByEmail(email string) (*Account, error)
	GetByUsername(username string) (*Account, error)
	GetByID(id string) (*Account, error)
	SetPasswordHash(id, hash string) error
	SetLastLogin(id string) error
}
