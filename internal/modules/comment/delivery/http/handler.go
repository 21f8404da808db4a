package handler

import (
	"errors"
	"fmt"
	"net/http"

	commentDto "github.com/Vampire-Chan/VideoVerse/internal/modules/comment/dto"
	comment "github.com/Vampire-Chan/VideoVerse/internal/modules/comment/service"
	"github.com/Vampire-Chan/VideoVerse/pkg/apperror"
	"github.com/Vampire-Chan/VideoVerse/pkg/ratelimiter"
	"github.com/Vampire-Chan/VideoVerse/pkg/response"
	"github.com/Vampire-Chan/VideoVerse/pkg/validator"
	"github.com/gin-gonic/gin"
)

type CommentHandler struct {
	service comment.CommentService
}

func NewCommentHandler(service comment.CommentService) *CommentHandler {
	return &CommentHandler{service: service}
}

func (h *CommentHandler) GetComments(c *gin.Context) {
	videoID, ok := response.ParamUUID(c, "id")
	if !ok {
		return
	}

	tree, err := h.service.GetTree(c.Request.Context(), videoID, response.OptionalUserID(c))
	if err != nil {
		response.ResponseError(c, err)
		return
	}
	c.JSON(http.StatusOK, tree)
}

func (h *CommentHandler) CreateComment(c *gin.Context) {
	userID, err := response.GetUserID(c)
	if err != nil {
		response.ResponseError(c, err)
		return
	}
	videoID, ok := response.ParamUUID(c, "id")
	if !ok {
		return
	}

	var req commentDto.CreateCommentInput
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ResponseError(c, apperror.Wrap(apperror.ErrValidation, validator.FormatValidationError(err)))
		return
	}

	created, err := h.service.Create(c.Request.Context(), userID, videoID, req)
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

func (h *CommentHandler) UpdateComment(c *gin.Context) {
	id, ok := response.ParamUUID(c, "commentId")
	if !ok {
		return
	}

	var req commentDto.UpdateCommentInput
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

func (h *CommentHandler) DeleteComment(c *gin.Context) {
	id, ok := response.ParamUUID(c, "commentId")
	if !ok {
		return
	}

	if err := h.service.Delete(c.Request.Context(), id); err != nil {
		response.ResponseError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "comment deleted"})
}
