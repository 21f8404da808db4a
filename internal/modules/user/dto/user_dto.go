package dto

import (
	"github.com/Vampire-Chan/VideoVerse/internal/entity"
)

type RegisterInput struct {
	Username string `json:"username" binding:"required,min=3,max=50,alphanum"`
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required,min=6,max=72"`
}

type LoginInput struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

type TokenResponse struct {
	Token string `json:"token"`
}

type AuthResponse struct {
	Token string       `json:"token"`
	User  *entity.User `json:"user"`
}

type StatusResponse struct {
	IsAuthenticated bool         `json:"isAuthenticated"`
	User            *entity.User `json:"user"`
}

// UpdateProfileInput is bound from multipart form fields. Links arrives as a
// JSON encoded array of {title,url}.
type UpdateProfileInput struct {
	Username    *string `form:"username" binding:"omitempty,min=3,max=50,alphanum"`
	Description *string `form:"description" binding:"omitempty,max=5000"`
	Links       *string `form:"links"`
	DisplayName *string `form:"display_name" binding:"omitempty,max=100"`
	Gender      *string `form:"gender" binding:"omitempty,max=30"`
	DOB         *string `form:"dob"`
}

type ChannelResponse struct {
	User         *entity.User   `json:"user"`
	Videos       []entity.Video `json:"videos"`
	WatcherCount int64          `json:"watcherCount"`
}

// ProfileResponse carries a token reissued after profile fields changed.
type ProfileResponse struct {
	User  *entity.User `json:"user"`
	Token string       `json:"token"`
}
