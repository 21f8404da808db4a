package dto

import "github.com/Vampire-Chan/VideoVerse/internal/entity"

// StudioVideo is a video as its owner sees it in the studio.
type StudioVideo struct {
	entity.Video
	Likes        int64 `json:"likes"`
	CommentCount int64 `json:"comment_count"`
}
