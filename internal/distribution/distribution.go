// Package distribution publishes finished videos to external platforms.
package distribution

import "context"

// UploadRequest carries the video file and its listing metadata.
type UploadRequest struct {
	FilePath      string
	ThumbnailPath string
	Title         string
	Description   string
	Tags          []string
	Privacy       string
}

// UploadResult identifies the published video.
type UploadResult struct {
	ID  string
	URL string
}

// Uploader publishes a video to one platform.
type Uploader interface {
	Upload(ctx context.Context, req UploadRequest) (*UploadResult, error)
}
