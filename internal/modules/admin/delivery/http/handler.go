package handler

import (
	"context"
	"net/http"

	adminService "github.com/Vampire-Chan/VideoVerse/internal/modules/admin/service"
	"github.com/Vampire-Chan/VideoVerse/pkg/apperror"
	"github.com/Vampire-Chan/VideoVerse/pkg/dto"
	"github.com/Vampire-Chan/VideoVerse/pkg/response"
	"github.com/Vampire-Chan/VideoVerse/pkg/validator"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

type AdminHandler struct {
	adminService adminService.AdminService
}

func NewAdminHandler(adminService adminService.AdminService) *AdminHandler {
	return &AdminHandler{
		adminService: adminService,
	}
}

func bindPage(c *gin.Context) (dto.PageQuery, bool) {
	var q dto.PageQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		response.ResponseError(c, apperror.Wrap(apperror.ErrValidation, validator.FormatValidationError(err)))
		return q, false
	}
	return q, true
}

func (h *AdminHandler) GetAllUsers(c *gin.Context) {
	q, ok := bindPage(c)
	if !ok {
		return
	}
	res, err := h.adminService.ListUsers(c.Request.Context(), q)
	if err != nil {
		response.ResponseError(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

func (h *AdminHandler) GetAllVideos(c *gin.Context) {
	q, ok := bindPage(c)
	if !ok {
		return
	}
	res, err := h.adminService.ListVideos(c.Request.Context(), q)
	if err != nil {
		response.ResponseError(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

func (h *AdminHandler) GetAllComments(c *gin.Context) {
	q, ok := bindPage(c)
	if !ok {
		return
	}
	res, err := h.adminService.ListComments(c.Request.Context(), q)
	if err != nil {
		response.ResponseError(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

func (h *AdminHandler) DeleteUser(c *gin.Context) {
	h.delete(c, "user", h.adminService.DeleteUser)
}

func (h *AdminHandler) DeleteVideo(c *gin.Context) {
	h.delete(c, "video", h.adminService.DeleteVideo)
}

func (h *AdminHandler) DeleteComment(c *gin.Context) {
	h.delete(c, "comment", h.adminService.DeleteComment)
}

func (h *AdminHandler) delete(c *gin.Context, what string, del func(ctx context.Context, id uuid.UUID) error) {
	id, ok := response.ParamUUID(c, "id")
	if !ok {
		return
	}
	if err := del(c.Request.Context(), id); err != nil {
		response.ResponseError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": what + " deleted successfully"})
}
