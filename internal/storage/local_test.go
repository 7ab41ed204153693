package storage

import (
	"context"
	"os"
	"path/filepath"
	"testing"
)

func TestLocalStoreSave(t *testing.T) {
	src := filepath.Join(t.TempDir(), "final.mp4")
	if err := os.WriteFile(src, []byte("video-bytes"), 0644); err != nil {
		t.Fatal(err)
	}

	outputDir := filepath.Join(t.TempDir(), "videos")
	store := NewLocalStore(outputDir)

	url, err := store.Save(context.Background(), src, "my_title_abc123.mp4")
	if err != nil {
		t.Fatalf("Save() error = %v", err)
	}
	if url != "/videos/my_title_abc123.mp4" {
		t.Errorf("url = %q", url)
	}

	data, err := os.ReadFile(filepath.Join(outputDir, "my_title_abc123.mp4"))
	if err != nil {
		t.Fatalf("stored file missing: %v", err)
	}
	if string(data) != "video-bytes" {
		t.Errorf("stored content = %q", data)
	}
}

func TestLocalStoreListVideos(t *testing.T) {
	outputDir := t.TempDir()
	store := NewLocalStore(outputDir)

	for _, name := range []string{"a_first.mp4", "b_second.mp4", "notes.txt"} {
		if err := os.WriteFile(filepath.Join(outputDir, name), []byte("x"), 0644); err != nil {
			t.Fatal(err)
		}
	}

	names, err := store.ListVideos(context.Background())
	if err != nil {
		t.Fatalf("ListVideos() error = %v", err)
	}
	if len(names) != 2 || names[0] != "a_first.mp4" || names[1] != "b_second.mp4" {
		t.Errorf("names = %v, want the two mp4 files", names)
	}
}

func TestLocalStoreListVideosMissingDir(t *testing.T) {
	store := NewLocalStore(filepath.Join(t.TempDir(), "never_created"))
	names, err := store.ListVideos(context.Background())
	if err != nil {
		t.Fatalf("ListVideos() error = %v", err)
	}
	if names != nil {
		t.Errorf("names = %v, want nil for an absent directory", names)
	}
}

func TestLocalStoreSaveMissingSource(t *testing.T) {
	store := NewLocalStore(t.TempDir())
	if _, err := store.Save(context.Background(), "/does/not/exist.mp4", "x.mp4"); err == nil {
		t.Error("expected error for missing source file")
	}
}
