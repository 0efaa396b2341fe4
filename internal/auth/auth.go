package auth

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/dukerupert/pointjar/internal/model"
	"golang.org/x/crypto/bcrypt"
)

// CookieName is the session cookie set on login.
const CookieName = "pointjar_session"

var ErrInvalidCredentials = errors.New("invalid credentials")

// UserLookup finds users by login name.
type UserLookup interface {
	GetByUsername(ctx context.Context, username string) (*model.User, error)
}

// SessionStore persists server-side sessions.
type SessionStore interface {
	Create(ctx context.Context, userID int64) (*model.Session, error)
	DeleteByToken(ctx context.Context, token string) error
}

// Authenticator verifies credentials and opens sessions.
type Authenticator struct {
	users    UserLookup
	sessions SessionStore
}

func NewAuthenticator(users UserLookup, sessions SessionStore) *Authenticator {
	return &Authenticator{users: users, sessions: sessions}
}

// dummyHash is compared against when the username is unknown so both
// failure paths cost one bcrypt comparison.
var dummyHash = sync.OnceValue(func() []byte {
	h, _ := bcrypt.GenerateFromPassword([]byte("pointjar-dummy-password"), bcrypt.DefaultCost)
	return h
})

// Authenticate checks username and password and, on success, creates a session.
func (a *Authenticator) Authenticate(ctx context.Context, username, password string) (*model.User, *model.Session, error) {
	user, err := a.users.GetByUsername(ctx, username)
	if err != nil {
		return nil, nil, fmt.Errorf("lookup user: %w", err)
	}
	if user == nil {
		bcrypt.CompareHashAndPassword(dummyHash(), []byte(password))
		return nil, nil, ErrInvalidCredentials
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return nil, nil, ErrInvalidCredentials
	}

	sess, err := a.sessions.Create(ctx, user.ID)
	if err != nil {
		return nil, nil, fmt.Errorf("create session: %w", err)
	}
	return user, sess, nil
}

// Logout destroys the session identified by token. Unknown tokens are ignored.
func (a *Authenticator) Logout(ctx context.Context, token string) error {
	if token == "" {
		return nil
	}
	return a.sessions.DeleteByToken(ctx, token)
}

// HashPassword returns a bcrypt hash suitable for users.password_hash.
func HashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", fmt.Errorf("hash password: %w", err)
	}
	return string(hash), nil
}
