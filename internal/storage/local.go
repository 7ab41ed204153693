package storage

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
)

// LocalStore keeps final videos in a directory the HTTP server exposes
// under /videos/.
type LocalStore struct {
	outputDir string
}

func NewLocalStore(outputDir string) *LocalStore {
	return &LocalStore{outputDir: outputDir}
}

func (s *LocalStore) Save(ctx context.Context, localPath, name string) (string, error) {
	if err := os.MkdirAll(s.outputDir, 0755); err != nil {
		return "", fmt.Errorf("create output directory: %w", err)
	}

	dst := filepath.Join(s.outputDir, name)
	if err := copyFile(localPath, dst); err != nil {
		return "", fmt.Errorf("store video: %w", err)
	}

	return "/videos/" + name, nil
}

// ListVideos reports the stored video files in name order.
func (s *LocalStore) ListVideos(ctx context.Context) ([]string, error) {
	entries, err := os.ReadDir(s.outputDir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("list videos: %w", err)
	}

	var names []string
	for _, entry := range entries {
		if !entry.IsDir() && filepath.Ext(entry.Name()) == ".mp4" {
			names = append(names, entry.Name())
		}
	}
	return names, nil
}

func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer func() { _ = in.Close() }()

	out, err := os.Create(dst)
	if err != nil {
		return err
	}
	defer func() { _ = out.Close() }()

	if _, err := io.Copy(out, in); err != nil {
		return err
	}
	return out.Sync()
}
