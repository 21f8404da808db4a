package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"html"
	"strings"

	"github.com/Vampire-Chan/VideoVerse/internal/entity"
	"github.com/Vampire-Chan/VideoVerse/internal/logging"
	"github.com/google/uuid"
	"github.com/meilisearch/meilisearch-go"
	"github.com/microcosm-cc/bluemonday"
)

const videoIndex = "videos"

// VideoIndex is the full-text index over public videos.
type VideoIndex interface {
	IndexVideo(ctx context.Context, video *entity.Video) error
	DeleteVideo(ctx context.Context, id uuid.UUID) error
	// Search returns matching video ids in relevance order.
	Search(ctx context.Context, query string, limit int) ([]uuid.UUID, error)
}

type meiliVideoIndex struct {
	client    meilisearch.ServiceManager
	sanitizer *bluemonday.Policy
}

func NewMeiliVideoIndex(client meilisearch.ServiceManager) VideoIndex {
	s := &meiliVideoIndex{
		client:    client,
		sanitizer: bluemonday.StrictPolicy(),
	}
	s.initIndex()
	return s
}

func (s *meiliVideoIndex) initIndex() {
	searchable := []string{"title", "description", "username"}
	if _, err := s.client.Index(videoIndex).UpdateSearchableAttributes(&searchable); err != nil {
		logging.Warn().Err(err).Msg("failed to update videos searchable attributes")
	}

	filterable := []any{"category", "visibility"}
	if _, err := s.client.Index(videoIndex).UpdateFilterableAttributes(&filterable); err != nil {
		logging.Warn().Err(err).Msg("failed to update videos filterable attributes")
	}

	sortable := []string{"created_at", "views"}
	if _, err := s.client.Index(videoIndex).UpdateSortableAttributes(&sortable); err != nil {
		logging.Warn().Err(err).Msg("failed to update videos sortable attributes")
	}
}

type videoDoc struct {
	ID          string `json:"id"`
	Title       string `json:"title"`
	Description string `json:"description"`
	Category    string `json:"category"`
	Visibility  string `json:"visibility"`
	Username    string `json:"username"`
	Views       int64  `json:"views"`
	CreatedAt   int64  `json:"created_at"`
}

// CleanText strips markup and collapses whitespace.
func CleanText(p *bluemonday.Policy, content string) string {
	content = strings.ReplaceAll(content, "</p>", " ")
	content = strings.ReplaceAll(content, "<br>", " ")
	content = strings.ReplaceAll(content, "</div>", " ")
	return strings.Join(strings.Fields(html.UnescapeString(p.Sanitize(content))), " ")
}

func (s *meiliVideoIndex) IndexVideo(_ context.Context, video *entity.Video) error {
	if video.Visibility != entity.VisibilityPublic {
		// keep unlisted and private videos out of search
		_, err := s.client.Index(videoIndex).DeleteDocument(video.ID.String())
		return err
	}

	doc := videoDoc{
		ID:          video.ID.String(),
		Title:       CleanText(s.sanitizer, video.Title),
		Description: CleanText(s.sanitizer, video.Description),
		Category:    video.Category,
		Visibility:  video.Visibility,
		Username:    video.User.Username,
		Views:       video.Views,
		CreatedAt:   video.CreatedAt.Unix(),
	}

	primaryKey := "id"
	task, err := s.client.Index(videoIndex).AddDocuments([]videoDoc{doc}, &primaryKey)
	if err != nil {
		return err
	}
	logging.Debug().Str("video_id", doc.ID).Int64("task_uid", task.TaskUID).Msg("video indexed")
	return nil
}

func (s *meiliVideoIndex) DeleteVideo(_ context.Context, id uuid.UUID) error {
	_, err := s.client.Index(videoIndex).DeleteDocument(id.String())
	return err
}

func (s *meiliVideoIndex) Search(_ context.Context, query string, limit int) ([]uuid.UUID, error) {
	raw, err := s.client.Index(videoIndex).SearchRaw(query, &meilisearch.SearchRequest{
		Limit:                int64(limit),
		AttributesToRetrieve: []string{"id"},
	})
	if err != nil {
		return nil, fmt.Errorf("meilisearch query failed: %w", err)
	}

	var body struct {
		Hits []struct {
			ID string `json:"id"`
		} `json:"hits"`
	}
	if err := json.Unmarshal(*raw, &body); err != nil {
		return nil, fmt.Errorf("failed to decode search response: %w", err)
	}

	ids := make([]uuid.UUID, 0, len(body.Hits))
	for _, hit := range body.Hits {
		if id, err := uuid.Parse(hit.ID); err == nil {
			ids = append(ids, id)
		}
	}
	return ids, nil
}

// Disabled is used when no search host is configured. Search always fails so
// callers fall back to SQL.
type Disabled struct{}

var ErrSearchDisabled = errors.New("search index not configured")

func (Disabled) IndexVideo(context.Context, *entity.Video) error { return nil }
func (Disabled) DeleteVideo(context.Context, uuid.UUID) error    { return nil }
func (Disabled) Search(context.Context, string, int) ([]uuid.UUID, error) {
	return nil, ErrSearchDisabled
}
