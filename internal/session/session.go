// Package session keeps server-side login sessions, addressed by an opaque
// id carried in the vv_session cookie.
package session

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

const CookieName = "vv_session"

var (
	ErrSessionNotFound = errors.New("session not found")
	ErrSessionExpired  = errors.New("session expired")
)

type Session struct {
	ID        string    `json:"id"`
	UserID    uuid.UUID `json:"user_id"`
	Provider  string    `json:"provider"`
	CreatedAt time.Time `json:"created_at"`
	ExpiresAt time.Time `json:"expires_at"`
}

func (s *Session) IsExpired() bool {
	return time.Now().After(s.ExpiresAt)
}

// New builds a session for userID valid for ttl.
func New(userID uuid.UUID, provider string, ttl time.Duration) (*Session, error) {
	id, err := newID()
	if err != nil {
		return nil, err
	}
	now := time.Now()
	return &Session{
		ID:        id,
		UserID:    userID,
		Provider:  provider,
		CreatedAt: now,
		ExpiresAt: now.Add(ttl),
	}, nil
}

func newID() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}

// Store is a session backend.
type Store interface {
	Create(ctx context.Context, s *Session) error
	// Get returns ErrSessionNotFound or ErrSessionExpired.
	Get(ctx context.Context, id string) (*Session, error)
	// Delete is a no-op for unknown ids.
	Delete(ctx context.Context, id string) error
	CleanupExpired(ctx context.Context) (int, error)
}

// SetCookie writes the session cookie.
func SetCookie(c *gin.Context, s *Session, secure bool) {
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(CookieName, s.ID, int(time.Until(s.ExpiresAt).Seconds()), "/", "", secure, true)
}

func ClearCookie(c *gin.Context, secure bool) {
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(CookieName, "", -1, "/", "", secure, true)
}

// FromRequest loads the session named by the request cookie, if any.
func FromRequest(c *gin.Context, store Store) (*Session, error) {
	id, err := c.Cookie(CookieName)
	if err != nil || id == "" {
		return nil, ErrSessionNotFound
	}
	return store.Get(c.Request.Context(), id)
}
