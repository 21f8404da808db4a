package handler

import (
	"mime/multipart"
	"net/http"

	"github.com/Vampire-Chan/VideoVerse/internal/modules/user/dto"
	user "github.com/Vampire-Chan/VideoVerse/internal/modules/user/service"
	"github.com/Vampire-Chan/VideoVerse/pkg/apperror"
	commonDto "github.com/Vampire-Chan/VideoVerse/pkg/dto"
	"github.com/Vampire-Chan/VideoVerse/pkg/response"
	"github.com/Vampire-Chan/VideoVerse/pkg/validator"
	"github.com/gin-gonic/gin"
)

const maxImageBytes = 10 << 20

type UserHandler struct {
	service user.ProfileService
}

func NewUserHandler(service user.ProfileService) *UserHandler {
	return &UserHandler{service: service}
}

// GetChannel is mounted on /users/:id next to the watch routes, so the
// segment carries a username here.
func (h *UserHandler) GetChannel(c *gin.Context) {
	channel, err := h.service.GetChannel(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.ResponseError(c, err)
		return
	}
	c.JSON(http.StatusOK, channel)
}

func (h *UserHandler) UpdateProfile(c *gin.Context) {
	userID, err := response.GetUserID(c)
	if err != nil {
		response.ResponseError(c, err)
		return
	}

	var input dto.UpdateProfileInput
	if err := c.ShouldBind(&input); err != nil {
		response.ResponseError(c, apperror.Wrap(apperror.ErrValidation, validator.FormatValidationError(err)))
		return
	}

	avatar, closeAvatar, err := optionalImage(c, "avatar")
	if err != nil {
		response.ResponseError(c, err)
		return
	}
	defer closeAvatar()

	banner, closeBanner, err := optionalImage(c, "banner")
	if err != nil {
		response.ResponseError(c, err)
		return
	}
	defer closeBanner()

	res, err := h.service.UpdateProfile(c.Request.Context(), userID, input, avatar, banner)
	if err != nil {
		response.ResponseError(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

func (h *UserHandler) ActivateChannel(c *gin.Context) {
	userID, err := response.GetUserID(c)
	if err != nil {
		response.ResponseError(c, err)
		return
	}

	res, err := h.service.ActivateChannel(c.Request.Context(), userID)
	if err != nil {
		response.ResponseError(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

// optionalImage opens a multipart image if the field was sent.
func optionalImage(c *gin.Context, field string) (*commonDto.UploadFile, func(), error) {
	header, err := c.FormFile(field)
	if err != nil {
		return nil, func() {}, nil
	}
	if header.Size > maxImageBytes {
		return nil, func() {}, apperror.Wrap(apperror.ErrValidation, field+" must be at most 10 MB")
	}

	var f multipart.File
	if f, err = header.Open(); err != nil {
		return nil, func() {}, apperror.Wrap(apperror.ErrBadRequest, "failed to read "+field)
	}
	return &commonDto.UploadFile{Reader: f, FileName: header.Filename, Size: header.Size},
		func() { _ = f.Close() }, nil
}
