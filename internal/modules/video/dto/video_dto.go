package dto

import (
	"github.com/Vampire-Chan/VideoVerse/internal/entity"
	"github.com/Vampire-Chan/VideoVerse/pkg/dto"
)

type UploadVideoInput struct {
	Title       string `form:"title" binding:"required,max=255"`
	Description string `form:"description" binding:"max=5000"`
	Category    string `form:"category" binding:"omitempty,max=50"`
	Visibility  string `form:"visibility" binding:"omitempty,oneof=Public Unlisted Private"`
}

type UpdateVideoInput struct {
	Title       *string `json:"title" binding:"omitempty,min=1,max=255"`
	Description *string `json:"description" binding:"omitempty,max=5000"`
	Category    *string `json:"category" binding:"omitempty,max=50"`
	Visibility  *string `json:"visibility" binding:"omitempty,oneof=Public Unlisted Private"`
}

type SearchQuery struct {
	Q string `form:"q" binding:"required,min=1,max=100"`
}

// VideoDetail is a video with its reaction counts. UserReaction stays nil
// for anonymous callers.
type VideoDetail struct {
	entity.Video
	Likes        int64                `json:"likes"`
	Dislikes     int64                `json:"dislikes"`
	UserReaction *entity.ReactionType `json:"user_reaction"`
}

type VideoListResponse struct {
	Data []entity.Video     `json:"data"`
	Meta dto.PaginationMeta `json:"meta"`
}

type ViewResponse struct {
	Views int64 `json:"views"`
}

type SignedURLResponse struct {
	SignedURL string `json:"signedUrl"`
}
