package distribution

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"golang.org/x/oauth2"
)

func newTestYouTube(serverURL string) *YouTube {
	auth := NewYouTubeAuth("client-id", "client-secret", "")
	auth.token = &oauth2.Token{
		AccessToken: "test-token",
		Expiry:      time.Now().Add(time.Hour),
	}
	y := NewYouTube(auth)
	y.SetBaseURL(serverURL)
	return y
}

func TestUpload(t *testing.T) {
	var thumbnailSet bool
	mux := http.NewServeMux()
	mux.HandleFunc("/upload/youtube/v3/videos", func(w http.ResponseWriter, r *http.Request) {
		if err := r.ParseMultipartForm(32 << 20); err != nil {
			t.Fatalf("parse multipart: %v", err)
		}
		var meta youtubeVideo
		if err := json.Unmarshal([]byte(r.FormValue("snippet")), &meta); err != nil {
			t.Fatalf("decode snippet: %v", err)
		}
		if meta.Snippet.Title != "My Video" {
			t.Errorf("title = %q", meta.Snippet.Title)
		}
		if meta.Status.PrivacyStatus != "unlisted" {
			t.Errorf("privacy = %q", meta.Status.PrivacyStatus)
		}
		_ = json.NewEncoder(w).Encode(youtubeUploadResponse{ID: "vid123"})
	})
	mux.HandleFunc("/upload/youtube/v3/thumbnails/set", func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("videoId") != "vid123" {
			t.Errorf("videoId = %q", r.URL.Query().Get("videoId"))
		}
		thumbnailSet = true
		_, _ = w.Write([]byte(`{}`))
	})
	server := httptest.NewServer(mux)
	defer server.Close()

	dir := t.TempDir()
	videoPath := filepath.Join(dir, "final.mp4")
	thumbPath := filepath.Join(dir, "thumb.png")
	if err := os.WriteFile(videoPath, []byte("video"), 0644); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(thumbPath, []byte("png"), 0644); err != nil {
		t.Fatal(err)
	}

	result, err := newTestYouTube(server.URL).Upload(context.Background(), UploadRequest{
		FilePath:      videoPath,
		ThumbnailPath: thumbPath,
		Title:         "My Video",
		Description:   "desc",
		Tags:          []string{"shorts"},
		Privacy:       "unlisted",
	})
	if err != nil {
		t.Fatalf("Upload() error = %v", err)
	}
	if result.ID != "vid123" {
		t.Errorf("id = %q", result.ID)
	}
	if result.URL != "https://youtube.com/watch?v=vid123" {
		t.Errorf("url = %q", result.URL)
	}
	if !thumbnailSet {
		t.Error("thumbnail was not set")
	}
}

func TestUploadSurvivesThumbnailFailure(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/upload/youtube/v3/videos", func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(youtubeUploadResponse{ID: "vid456"})
	})
	mux.HandleFunc("/upload/youtube/v3/thumbnails/set", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
	})
	server := httptest.NewServer(mux)
	defer server.Close()

	dir := t.TempDir()
	videoPath := filepath.Join(dir, "final.mp4")
	thumbPath := filepath.Join(dir, "thumb.png")
	_ = os.WriteFile(videoPath, []byte("video"), 0644)
	_ = os.WriteFile(thumbPath, []byte("png"), 0644)

	result, err := newTestYouTube(server.URL).Upload(context.Background(), UploadRequest{
		FilePath:      videoPath,
		ThumbnailPath: thumbPath,
		Title:         "My Video",
		Privacy:       "public",
	})
	if err != nil {
		t.Fatalf("Upload() error = %v", err)
	}
	if result.ID != "vid456" {
		t.Errorf("id = %q", result.ID)
	}
}
