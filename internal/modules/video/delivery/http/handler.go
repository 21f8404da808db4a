package handler

import (
	"errors"
	"fmt"
	"mime/multipart"
	"net/http"

	videoDto "github.com/Vampire-Chan/VideoVerse/internal/modules/video/dto"
	video "github.com/Vampire-Chan/VideoVerse/internal/modules/video/service"
	"github.com/Vampire-Chan/VideoVerse/pkg/apperror"
	"github.com/Vampire-Chan/VideoVerse/pkg/dto"
	"github.com/Vampire-Chan/VideoVerse/pkg/ratelimiter"
	"github.com/Vampire-Chan/VideoVerse/pkg/response"
	"github.com/Vampire-Chan/VideoVerse/pkg/validator"
	"github.com/gin-gonic/gin"
)

// formOverhead is the room left in an upload body for the thumbnail and
// the text fields on top of the video itself.
const formOverhead = 10 << 20

type VideoHandler struct {
	service        video.VideoService
	maxUploadBytes int64
	formOverhead   int64
}

func NewVideoHandler(service video.VideoService, maxUploadBytes int64) *VideoHandler {
	return &VideoHandler{service: service, maxUploadBytes: maxUploadBytes, formOverhead: formOverhead}
}

func (h *VideoHandler) Upload(c *gin.Context) {
	userID, err := response.GetUserID(c)
	if err != nil {
		response.ResponseError(c, err)
		return
	}

	if h.maxUploadBytes > 0 {
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, h.maxUploadBytes+h.formOverhead)
	}

	var req videoDto.UploadVideoInput
	if err := c.ShouldBind(&req); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			c.JSON(http.StatusRequestEntityTooLarge, gin.H{
				"error": fmt.Sprintf("upload exceeds the %d MB limit", h.maxUploadBytes>>20),
			})
			return
		}
		response.ResponseError(c, apperror.Wrap(apperror.ErrValidation, validator.FormatValidationError(err)))
		return
	}

	fileHeader, err := c.FormFile("video")
	if err != nil {
		response.ResponseError(c, apperror.Wrap(apperror.ErrValidation, "video file is required"))
		return
	}
	if h.maxUploadBytes > 0 && fileHeader.Size > h.maxUploadBytes {
		response.ResponseError(c, apperror.Wrap(apperror.ErrValidation,
			fmt.Sprintf("video exceeds the %d MB limit", h.maxUploadBytes>>20)))
		return
	}

	file, err := openUpload(fileHeader)
	if err != nil {
		response.ResponseError(c, err)
		return
	}
	defer file.close()

	var thumbnail *dto.UploadFile
	if thumbHeader, err := c.FormFile("thumbnail"); err == nil {
		thumb, err := openUpload(thumbHeader)
		if err != nil {
			response.ResponseError(c, err)
			return
		}
		defer thumb.close()
		thumbnail = &thumb.UploadFile
	}

	created, err := h.service.Upload(c.Request.Context(), userID, req, file.UploadFile, thumbnail)
	if err != nil {
		var rateLimitErr *ratelimiter.RateLimitError
		if errors.As(err, &rateLimitErr) {
			c.Header("Retry-After", fmt.Sprintf("%.0f", rateLimitErr.RetryAfter.Seconds()))
		}
		response.ResponseError(c, err)
		return
	}
	c.JSON(http.StatusCreated, created)
}

type openedFile struct {
	dto.UploadFile
	f multipart.File
}

func (o openedFile) close() { _ = o.f.Close() }

func openUpload(h *multipart.FileHeader) (openedFile, error) {
	f, err := h.Open()
	if err != nil {
		return openedFile{}, apperror.Wrap(apperror.ErrBadRequest, "failed to read uploaded file")
	}
	return openedFile{
		UploadFile: dto.UploadFile{Reader: f, FileName: h.Filename, Size: h.Size},
		f:          f,
	}, nil
}

func (h *VideoHandler) List(c *gin.Context) {
	var q dto.PageQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		response.ResponseError(c, apperror.Wrap(apperror.ErrValidation, validator.FormatValidationError(err)))
		return
	}

	resp, err := h.service.List(c.Request.Context(), q)
	if err != nil {
		response.ResponseError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

func (h *VideoHandler) Search(c *gin.Context) {
	var q videoDto.SearchQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		response.ResponseError(c, apperror.Wrap(apperror.ErrValidation, validator.FormatValidationError(err)))
		return
	}

	videos, err := h.service.Search(c.Request.Context(), q.Q)
	if err != nil {
		response.ResponseError(c, err)
		return
	}
	c.JSON(http.StatusOK, videos)
}

func (h *VideoHandler) Suggestions(c *gin.Context) {
	titles, err := h.service.Suggestions(c.Request.Context(), c.Query("q"))
	if err != nil {
		response.ResponseError(c, err)
		return
	}
	c.JSON(http.StatusOK, titles)
}

func (h *VideoHandler) Get(c *gin.Context) {
	id, ok := response.ParamUUID(c, "id")
	if !ok {
		return
	}

	detail, err := h.service.Get(c.Request.Context(), id, response.OptionalUserID(c))
	if err != nil {
		response.ResponseError(c, err)
		return
	}
	c.JSON(http.StatusOK, detail)
}

func (h *VideoHandler) ListByUser(c *gin.Context) {
	userID, ok := response.ParamUUID(c, "userId")
	if !ok {
		return
	}

	videos, err := h.service.ListByUser(c.Request.Context(), userID, response.OptionalUserID(c))
	if err != nil {
		response.ResponseError(c, err)
		return
	}
	c.JSON(http.StatusOK, videos)
}

func (h *VideoHandler) RecordView(c *gin.Context) {
	id, ok := response.ParamUUID(c, "id")
	if !ok {
		return
	}

	views, err := h.service.RecordView(c.Request.Context(), id, response.OptionalUserID(c))
	if err != nil {
		response.ResponseError(c, err)
		return
	}
	c.JSON(http.StatusOK, videoDto.ViewResponse{Views: views})
}

func (h *VideoHandler) SignedURL(c *gin.Context) {
	id, ok := response.ParamUUID(c, "id")
	if !ok {
		return
	}

	url, err := h.service.SignedURL(c.Request.Context(), id, response.OptionalUserID(c))
	if err != nil {
		response.ResponseError(c, err)
		return
	}
	c.JSON(http.StatusOK, videoDto.SignedURLResponse{SignedURL: url})
}

func (h *VideoHandler) Update(c *gin.Context) {
	id, ok := response.ParamUUID(c, "id")
	if !ok {
		return
	}

	var req videoDto.UpdateVideoInput
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ResponseError(c, apperror.Wrap(apperror.ErrValidation, validator.FormatValidationError(err)))
		return
	}

	updated, err := h.service.Update(c.Request.Context(), id, req)
	if err != nil {
		response.ResponseError(c, err)
		return
	}
	c.JSON(http.StatusOK, updated)
}

func (h *VideoHandler) Delete(c *gin.Context) {
	id, ok := response.ParamUUID(c, "id")
	if !ok {
		return
	}

	if err := h.service.Delete(c.Request.Context(), id); err != nil {
		response.ResponseError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "video deleted"})
}
