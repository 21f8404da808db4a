package dto

import "github.com/google/uuid"

type CreateCommentInput struct {
	Text     string     `json:"text" binding:"required,max=5000"`
	ParentID *uuid.UUID `json:"parent_id"`
}

type UpdateCommentInput struct {
	Text string `json:"text" binding:"required,max=5000"`
}
