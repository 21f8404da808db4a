package handler

import (
	"net/http"

	watch "github.com/Vampire-Chan/VideoVerse/internal/modules/watch/service"
	"github.com/Vampire-Chan/VideoVerse/pkg/response"
	"github.com/gin-gonic/gin"
)

type WatchHandler struct {
	service watch.WatchService
}

func NewWatchHandler(service watch.WatchService) *WatchHandler {
	return &WatchHandler{service: service}
}

// RegisterRoutes mounts the watch routes under a /users group. DELETE
// /:id/unwatch is the path older clients call.
func (h *WatchHandler) RegisterRoutes(users *gin.RouterGroup, auth ...gin.HandlerFunc) {
	with := func(final gin.HandlerFunc) []gin.HandlerFunc {
		return append(auth[:len(auth):len(auth)], final)
	}
	users.POST("/:id/watch", with(h.Watch)...)
	users.DELETE("/:id/watch", with(h.Unwatch)...)
	users.DELETE("/:id/unwatch", with(h.Unwatch)...)
	users.GET("/:id/is-watching", with(h.IsWatching)...)
}

func (h *WatchHandler) Watch(c *gin.Context) {
	userID, err := response.GetUserID(c)
	if err != nil {
		response.ResponseError(c, err)
		return
	}
	targetID, ok := response.ParamUUID(c, "id")
	if !ok {
		return
	}

	if err := h.service.Watch(c.Request.Context(), userID, targetID); err != nil {
		response.ResponseError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"message": "now watching"})
}

func (h *WatchHandler) Unwatch(c *gin.Context) {
	userID, err := response.GetUserID(c)
	if err != nil {
		response.ResponseError(c, err)
		return
	}
	targetID, ok := response.ParamUUID(c, "id")
	if !ok {
		return
	}

	if err := h.service.Unwatch(c.Request.Context(), userID, targetID); err != nil {
		response.ResponseError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "stopped watching"})
}

func (h *WatchHandler) IsWatching(c *gin.Context) {
	userID, err := response.GetUserID(c)
	if err != nil {
		response.ResponseError(c, err)
		return
	}
	targetID, ok := response.ParamUUID(c, "id")
	if !ok {
		return
	}

	watching, err := h.service.IsWatching(c.Request.Context(), userID, targetID)
	if err != nil {
		response.ResponseError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"isWatching": watching})
}
