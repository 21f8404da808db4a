package handler

import (
	"errors"
	"io/fs"
	"net/http"
	"os"
	"path/filepath"

	"github.com/Vampire-Chan/VideoVerse/internal/logging"
	"github.com/Vampire-Chan/VideoVerse/pkg/apperror"
	"github.com/Vampire-Chan/VideoVerse/pkg/response"
	"github.com/gin-gonic/gin"
)

// StreamingHandler serves local <id>.mp4 files with Range support.
type StreamingHandler struct {
	dir string
}

func NewStreamingHandler(dir string) *StreamingHandler {
	return &StreamingHandler{dir: dir}
}

func (h *StreamingHandler) Stream(c *gin.Context) {
	// Only a parsed UUID reaches the filesystem.
	id, ok := response.ParamUUID(c, "videoId")
	if !ok {
		return
	}

	f, err := os.Open(filepath.Join(h.dir, id.String()+".mp4"))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			response.ResponseError(c, apperror.Wrap(apperror.ErrNotFound, "video file not found"))
			return
		}
		response.ResponseError(c, err)
		return
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil || info.IsDir() {
		response.ResponseError(c, apperror.Wrap(apperror.ErrNotFound, "video file not found"))
		return
	}

	logging.Debug().Str("video_id", id.String()).Str("range", c.GetHeader("Range")).Msg("streaming video")
	c.Header("Content-Type", "video/mp4")
	c.Header("Accept-Ranges", "bytes")
	http.ServeContent(c.Writer, c.Request, info.Name(), info.ModTime(), f)
}
