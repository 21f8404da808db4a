package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/url"
	"path"
	"path/filepath"
	"strings"
	"time"

	"github.com/cloudinary/cloudinary-go/v2"
	"github.com/cloudinary/cloudinary-go/v2/api"
	"github.com/cloudinary/cloudinary-go/v2/api/uploader"
	gobreaker "github.com/sony/gobreaker/v2"
)

type AssetKind string

const (
	AssetImage AssetKind = "image"
	AssetVideo AssetKind = "video"
)

// VideoAsset is what the media host reports back for an uploaded video.
type VideoAsset struct {
	URL          string
	ThumbnailURL string
	PublicID     string
	Duration     float64
	Width        int
	Height       int
	Format       string
	Bytes        int64
}

// MediaStorage is the contract for the external media host.
type MediaStorage interface {
	UploadVideo(ctx context.Context, r io.Reader, folder, fileName string) (*VideoAsset, error)
	// UploadImage returns the secure URL of the stored image.
	UploadImage(ctx context.Context, r io.Reader, folder, fileName string) (string, error)
	DeleteAsset(ctx context.Context, publicID string, kind AssetKind) error
	// DeleteByURL works out public id and kind from a delivery URL.
	DeleteByURL(ctx context.Context, fileURL string) error
}

type cloudinaryStorage struct {
	cld     *cloudinary.Cloudinary
	breaker *gobreaker.CircuitBreaker[any]
}

// NewCloudinaryStorage reads CLOUDINARY_URL from the environment.
func NewCloudinaryStorage(cfg BreakerConfig) (MediaStorage, error) {
	cld, err := cloudinary.New()
	if err != nil {
		return nil, fmt.Errorf("failed to initialize cloudinary client: %w", err)
	}
	cld.Config.URL.Secure = true

	return &cloudinaryStorage{cld: cld, breaker: newBreaker(cfg)}, nil
}

func (s *cloudinaryStorage) UploadVideo(ctx context.Context, r io.Reader, folder, fileName string) (*VideoAsset, error) {
	params := uploader.UploadParams{
		Folder:         folder,
		PublicID:       publicIDFor(fileName),
		UniqueFilename: api.Bool(true),
		Overwrite:      api.Bool(false),
		ResourceType:   string(AssetVideo),
	}

	resp, err := guard(s.breaker, "upload_video", func() (*uploader.UploadResult, error) {
		return s.upload(ctx, r, params)
	})
	if err != nil {
		return nil, err
	}

	return &VideoAsset{
		URL:          resp.SecureURL,
		ThumbnailURL: ThumbnailURL(resp.SecureURL),
		PublicID:     resp.PublicID,
		Duration:     durationOf(resp.Response),
		Width:        resp.Width,
		Height:       resp.Height,
		Format:       resp.Format,
		Bytes:        int64(resp.Bytes),
	}, nil
}

func (s *cloudinaryStorage) UploadImage(ctx context.Context, r io.Reader, folder, fileName string) (string, error) {
	params := uploader.UploadParams{
		Folder:         folder,
		PublicID:       publicIDFor(fileName),
		UniqueFilename: api.Bool(true),
		Overwrite:      api.Bool(false),
		Format:         "webp",
		Transformation: "q_auto",
	}

	resp, err := guard(s.breaker, "upload_image", func() (*uploader.UploadResult, error) {
		return s.upload(ctx, r, params)
	})
	if err != nil {
		return "", err
	}
	return resp.SecureURL, nil
}

func (s *cloudinaryStorage) upload(ctx context.Context, r io.Reader, params uploader.UploadParams) (*uploader.UploadResult, error) {
	resp, err := s.cld.Upload.Upload(ctx, r, params)
	if err != nil {
		return nil, err
	}
	// The SDK reports API-level failures in the body, not as an error.
	if resp.Error.Message != "" {
		return nil, errors.New(resp.Error.Message)
	}
	if resp.SecureURL == "" {
		return nil, errors.New("upload succeeded but secure URL is empty")
	}
	return resp, nil
}

func (s *cloudinaryStorage) DeleteAsset(ctx context.Context, publicID string, kind AssetKind) error {
	if publicID == "" {
		return errors.New("empty public id")
	}

	params := uploader.DestroyParams{
		PublicID:     publicID,
		ResourceType: string(kind),
		Invalidate:   api.Bool(true),
	}

	_, err := guard(s.breaker, "destroy", func() (struct{}, error) {
		resp, err := s.cld.Upload.Destroy(ctx, params)
		if err != nil {
			return struct{}{}, err
		}
		if resp.Result != "ok" && resp.Result != "not found" {
			return struct{}{}, fmt.Errorf("destroy returned result %q", resp.Result)
		}
		return struct{}{}, nil
	})
	return err
}

func (s *cloudinaryStorage) DeleteByURL(ctx context.Context, fileURL string) error {
	publicID, kind := ParseDeliveryURL(fileURL)
	if publicID == "" {
		return fmt.Errorf("could not extract public ID from URL: %s", fileURL)
	}
	return s.DeleteAsset(ctx, publicID, kind)
}

func publicIDFor(fileName string) string {
	base := strings.TrimSuffix(filepath.Base(fileName), filepath.Ext(fileName))
	return fmt.Sprintf("%d-%s", time.Now().UnixNano(), base)
}

func durationOf(raw any) float64 {
	m, ok := raw.(map[string]any)
	if !ok {
		return 0
	}
	d, _ := m["duration"].(float64)
	return d
}

// ThumbnailURL points at the poster frame the host renders for a video URL.
func ThumbnailURL(videoURL string) string {
	if videoURL == "" {
		return ""
	}
	return strings.TrimSuffix(videoURL, path.Ext(videoURL)) + ".jpg"
}

// ParseDeliveryURL extracts the public id and resource kind from a URL like
// https://res.cloudinary.com/<cloud>/video/upload/v123/folder/name.mp4.
func ParseDeliveryURL(fileURL string) (string, AssetKind) {
	u, err := url.Parse(fileURL)
	if err != nil {
		return "", ""
	}

	parts := strings.Split(u.Path, "/")
	uploadIndex := -1
	for i, p := range parts {
		if p == "upload" {
			uploadIndex = i
			break
		}
	}
	if uploadIndex < 1 || uploadIndex+1 >= len(parts) {
		return "", ""
	}

	kind := AssetImage
	if parts[uploadIndex-1] == string(AssetVideo) {
		kind = AssetVideo
	}

	rest := parts[uploadIndex+1:]
	if len(rest) > 1 && isVersionSegment(rest[0]) {
		rest = rest[1:]
	}

	publicIDWithExt := strings.Join(rest, "/")
	return strings.TrimSuffix(publicIDWithExt, path.Ext(publicIDWithExt)), kind
}

func isVersionSegment(s string) bool {
	if len(s) < 2 || s[0] != 'v' {
		return false
	}
	for _, r := range s[1:] {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}
