package handler

import (
	"net/http"

	studio "github.com/Vampire-Chan/VideoVerse/internal/modules/studio/service"
	"github.com/Vampire-Chan/VideoVerse/pkg/response"
	"github.com/gin-gonic/gin"
)

type StudioHandler struct {
	service studio.StudioService
}

func NewStudioHandler(service studio.StudioService) *StudioHandler {
	return &StudioHandler{service: service}
}

func (h *StudioHandler) MyVideos(c *gin.Context) {
	userID, err := response.GetUserID(c)
	if err != nil {
		response.ResponseError(c, err)
		return
	}

	videos, err := h.service.MyVideos(c.Request.Context(), userID)
	if err != nil {
		response.ResponseError(c, err)
		return
	}
	c.JSON(http.StatusOK, videos)
}
