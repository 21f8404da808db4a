package handler

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/hex"
	"net/http"
	"net/url"
	"time"

	"github.com/Vampire-Chan/VideoVerse/internal/logging"
	"github.com/Vampire-Chan/VideoVerse/internal/modules/user/dto"
	user "github.com/Vampire-Chan/VideoVerse/internal/modules/user/service"
	"github.com/Vampire-Chan/VideoVerse/internal/session"
	"github.com/Vampire-Chan/VideoVerse/pkg/apperror"
	"github.com/Vampire-Chan/VideoVerse/pkg/response"
	"github.com/Vampire-Chan/VideoVerse/pkg/validator"
	"github.com/gin-gonic/gin"
)

const (
	stateCookie = "vv_oauth_state"
	stateTTL    = 10 * time.Minute
)

type SessionConfig struct {
	Store       session.Store
	TTL         time.Duration
	Secure      bool
	FrontendURL string
}

type AuthHandler struct {
	service  user.AuthService
	sessions SessionConfig
}

func NewAuthHandler(service user.AuthService, sessions SessionConfig) *AuthHandler {
	return &AuthHandler{service: service, sessions: sessions}
}

func (h *AuthHandler) Register(c *gin.Context) {
	var input dto.RegisterInput
	if err := c.ShouldBindJSON(&input); err != nil {
		response.ResponseError(c, apperror.Wrap(apperror.ErrValidation, validator.FormatValidationError(err)))
		return
	}

	res, err := h.service.Register(c.Request.Context(), input)
	if err != nil {
		response.ResponseError(c, err)
		return
	}
	c.JSON(http.StatusCreated, res)
}

func (h *AuthHandler) Login(c *gin.Context) {
	var input dto.LoginInput
	if err := c.ShouldBindJSON(&input); err != nil {
		response.ResponseError(c, apperror.Wrap(apperror.ErrValidation, validator.FormatValidationError(err)))
		return
	}

	res, err := h.service.Login(c.Request.Context(), input)
	if err != nil {
		response.ResponseError(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

// Status never fails with 401; it runs behind OptionalAuth.
func (h *AuthHandler) Status(c *gin.Context) {
	userID := response.OptionalUserID(c)
	if userID == nil {
		c.JSON(http.StatusOK, dto.StatusResponse{})
		return
	}

	u, err := h.service.CurrentUser(c.Request.Context(), *userID)
	if err != nil {
		c.JSON(http.StatusOK, dto.StatusResponse{})
		return
	}
	c.JSON(http.StatusOK, dto.StatusResponse{IsAuthenticated: true, User: u})
}

func (h *AuthHandler) Logout(c *gin.Context) {
	if s, err := session.FromRequest(c, h.sessions.Store); err == nil {
		if err := h.sessions.Store.Delete(c.Request.Context(), s.ID); err != nil {
			response.ResponseError(c, err)
			return
		}
	}
	session.ClearCookie(c, h.sessions.Secure)
	c.JSON(http.StatusOK, gin.H{"message": "logged out"})
}

func (h *AuthHandler) GitHubLogin(c *gin.Context) {
	if !h.service.GitHubEnabled() {
		response.ResponseError(c, apperror.Wrap(apperror.ErrBadRequest, "github login is not configured"))
		return
	}

	state, err := randomState()
	if err != nil {
		response.ResponseError(c, err)
		return
	}
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(stateCookie, state, int(stateTTL.Seconds()), "/", "", h.sessions.Secure, true)
	c.Redirect(http.StatusTemporaryRedirect, h.service.GitHubLoginURL(state))
}

func (h *AuthHandler) GitHubCallback(c *gin.Context) {
	expected, _ := c.Cookie(stateCookie)
	c.SetCookie(stateCookie, "", -1, "/", "", h.sessions.Secure, true)

	state := c.Query("state")
	if expected == "" || subtle.ConstantTimeCompare([]byte(expected), []byte(state)) != 1 {
		h.failLogin(c, "invalid oauth state")
		return
	}
	code := c.Query("code")
	if code == "" {
		h.failLogin(c, "missing authorization code")
		return
	}

	u, err := h.service.GitHubCallback(c.Request.Context(), code)
	if err != nil {
		logging.Warn().Err(err).Msg("github login failed")
		h.failLogin(c, "github login failed")
		return
	}

	s, err := session.New(u.ID, "github", h.sessions.TTL)
	if err != nil {
		response.ResponseError(c, err)
		return
	}
	if err := h.sessions.Store.Create(c.Request.Context(), s); err != nil {
		response.ResponseError(c, err)
		return
	}
	session.SetCookie(c, s, h.sessions.Secure)

	logging.Info().Str("user_id", u.ID.String()).Msg("github login")
	c.Redirect(http.StatusFound, h.sessions.FrontendURL)
}

func (h *AuthHandler) failLogin(c *gin.Context, reason string) {
	c.Redirect(http.StatusFound, h.sessions.FrontendURL+"/login?error="+url.QueryEscape(reason))
}

func randomState() (string, error) {
	b := make([]byte, 16)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}
