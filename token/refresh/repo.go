package refresh

import (
	"errors"
	"time"
)

var ErrNotFound = errors.New("refresh token not found")

// StoredRefreshToken is the server-side record of an issued refresh token.
// The client holds the signed JWT; the server keeps only its jti.
type StoredRefreshToken struct {
	JTI    string
	UserID string
	Iat    time.Time
	Expiry time.Time
}

// Repo stores outstanding refresh tokens keyed by jti.
type Repo interface {
	Upsert(refreshToken *StoredRefreshToken) error
	Delete(jti string) error
	Get(jti string) (*StoredRefreshToken, error)
	GetByUserID(userID string) ([]*StoredRefreshToken, error)
}
