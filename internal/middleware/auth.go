package middleware

import (
	"errors"
	"strings"

	userService "github.com/Vampire-Chan/VideoVerse/internal/modules/user/service"
	"github.com/Vampire-Chan/VideoVerse/internal/session"
	"github.com/Vampire-Chan/VideoVerse/pkg/apperror"
	"github.com/Vampire-Chan/VideoVerse/pkg/response"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// ContextAuthSource records which credential identified the caller.
const ContextAuthSource = "auth_source"

type AuthMiddleware struct {
	tokens   *userService.TokenManager
	sessions session.Store
}

func NewAuthMiddleware(tokens *userService.TokenManager, sessions session.Store) *AuthMiddleware {
	return &AuthMiddleware{
		tokens:   tokens,
		sessions: sessions,
	}
}

// identify tries the session cookie first, then the bearer token, then the
// token query parameter used by websocket clients.
func (m *AuthMiddleware) identify(c *gin.Context) (uuid.UUID, string, bool) {
	if m.sessions != nil {
		s, err := session.FromRequest(c, m.sessions)
		if err == nil {
			return s.UserID, "session", true
		}
		if !errors.Is(err, session.ErrSessionNotFound) && !errors.Is(err, session.ErrSessionExpired) {
			// store trouble shouldn't lock out token holders
			_ = c.Error(err)
		}
	}

	tokenString := ""
	if authHeader := c.GetHeader("Authorization"); authHeader != "" {
		parts := strings.SplitN(authHeader, " ", 2)
		if len(parts) == 2 && strings.EqualFold(parts[0], "Bearer") {
			tokenString = strings.TrimSpace(parts[1])
		}
	}
	if tokenString == "" {
		tokenString = c.Query("token")
	}
	if tokenString == "" {
		return uuid.Nil, "", false
	}

	claims, err := m.tokens.Parse(tokenString)
	if err != nil {
		return uuid.Nil, "", false
	}
	id, err := claims.UserID()
	if err != nil {
		return uuid.Nil, "", false
	}
	return id, "token", true
}

func (m *AuthMiddleware) RequireAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		id, source, ok := m.identify(c)
		if !ok {
			response.ResponseError(c, apperror.Wrap(apperror.ErrUnauthorized, "authorization required"))
			c.Abort()
			return
		}
		c.Set(response.ContextUserID, id.String())
		c.Set(ContextAuthSource, source)
		c.Next()
	}
}

// OptionalAuth sets the user id when credentials are present and valid and
// lets anonymous requests through untouched.
func (m *AuthMiddleware) OptionalAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		if id, source, ok := m.identify(c); ok {
			c.Set(response.ContextUserID, id.String())
			c.Set(ContextAuthSource, source)
		}
		c.Next()
	}
}
