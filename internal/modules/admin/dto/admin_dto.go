package dto

import (
	"github.com/Vampire-Chan/VideoVerse/pkg/dto"
)

// ListResponse wraps one page of any admin listing.
type ListResponse[T any] struct {
	Data []T                `json:"data"`
	Meta dto.PaginationMeta `json:"meta"`
}
