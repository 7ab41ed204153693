// Package storage persists finished videos and hands back URLs a
// client can play them from.
package storage

import "context"

// Store saves a rendered video and returns its public URL. Local
// stores return a server-relative path; remote stores return a signed
// URL.
type Store interface {
	Save(ctx context.Context, localPath, name string) (string, error)
	// ListVideos returns the names of previously stored videos.
	ListVideos(ctx context.Context) ([]string, error)
}
