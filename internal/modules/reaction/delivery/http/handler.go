package handler

import (
	"net/http"

	"github.com/Vampire-Chan/VideoVerse/internal/entity"
	reaction "github.com/Vampire-Chan/VideoVerse/internal/modules/reaction/service"
	"github.com/Vampire-Chan/VideoVerse/pkg/response"
	"github.com/gin-gonic/gin"
)

type ReactionHandler struct {
	service reaction.ReactionService
}

func NewReactionHandler(service reaction.ReactionService) *ReactionHandler {
	return &ReactionHandler{service: service}
}

func (h *ReactionHandler) Like(c *gin.Context) {
	h.toggle(c, entity.ReactionLike)
}

func (h *ReactionHandler) Dislike(c *gin.Context) {
	h.toggle(c, entity.ReactionDislike)
}

func (h *ReactionHandler) toggle(c *gin.Context, t entity.ReactionType) {
	userID, err := response.GetUserID(c)
	if err != nil {
		response.ResponseError(c, err)
		return
	}
	videoID, ok := response.ParamUUID(c, "id")
	if !ok {
		return
	}

	result, err := h.service.Toggle(c.Request.Context(), userID, videoID, t)
	if err != nil {
		response.ResponseError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}
