package service

import (
	"context"

	studioDto "github.com/Vampire-Chan/VideoVerse/internal/modules/studio/dto"
	studioRepo "github.com/Vampire-Chan/VideoVerse/internal/modules/studio/repository"
	"github.com/google/uuid"
)

type StudioService interface {
	MyVideos(ctx context.Context, userID uuid.UUID) ([]studioDto.StudioVideo, error)
}

type studioService struct {
	repo studioRepo.StudioRepository
}

func NewStudioService(repo studioRepo.StudioRepository) StudioService {
	return &studioService{repo: repo}
}

func (s *studioService) MyVideos(ctx context.Context, userID uuid.UUID) ([]studioDto.StudioVideo, error) {
	return s.repo.ListOwnVideos(ctx, userID)
}
