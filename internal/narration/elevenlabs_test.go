package narration

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func newTestClient(serverURL string) *ElevenLabsClient {
	c := NewElevenLabsClient("test-key", ElevenLabsOptions{
		VoiceID:    "voice-1",
		Model:      "eleven_multilingual_v2",
		Stability:  0.5,
		Similarity: 0.75,
	})
	c.SetBaseURL(serverURL)
	c.retry.Sleep = func(ctx context.Context, d time.Duration) error { return nil }
	return c
}

func TestSynthesizeInlineAudio(t *testing.T) {
	want := []byte("mp3-bytes")
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/voice-1" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		if got := r.Header.Get("xi-api-key"); got != "test-key" {
			t.Errorf("api key header = %q", got)
		}
		var req elevenlabsRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Fatalf("decode request: %v", err)
		}
		if req.Text != "hello world" {
			t.Errorf("text = %q", req.Text)
		}
		if req.SampleRateHz != 44100 {
			t.Errorf("sample rate = %d, want 44100", req.SampleRateHz)
		}
		_ = json.NewEncoder(w).Encode(elevenlabsResponse{
			AudioBase64: base64.StdEncoding.EncodeToString(want),
		})
	}))
	defer server.Close()

	out := filepath.Join(t.TempDir(), "scene.mp3")
	if err := newTestClient(server.URL).Synthesize(context.Background(), "hello world", out); err != nil {
		t.Fatalf("Synthesize() error = %v", err)
	}

	got, err := os.ReadFile(out)
	if err != nil {
		t.Fatalf("read output: %v", err)
	}
	if string(got) != string(want) {
		t.Errorf("audio = %q, want %q", got, want)
	}
}

func TestSynthesizeAudioURL(t *testing.T) {
	want := []byte("hosted-mp3")
	mux := http.NewServeMux()
	server := httptest.NewServer(mux)
	defer server.Close()

	mux.HandleFunc("/audio/result.mp3", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write(want)
	})
	mux.HandleFunc("/voice-1", func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(elevenlabsResponse{
			AudioURL: server.URL + "/audio/result.mp3",
		})
	})

	out := filepath.Join(t.TempDir(), "scene.mp3")
	if err := newTestClient(server.URL).Synthesize(context.Background(), "hello", out); err != nil {
		t.Fatalf("Synthesize() error = %v", err)
	}

	got, err := os.ReadFile(out)
	if err != nil {
		t.Fatalf("read output: %v", err)
	}
	if string(got) != string(want) {
		t.Errorf("audio = %q, want %q", got, want)
	}
}

func TestSynthesizeChunkedAudio(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(elevenlabsResponse{
			Chunks: []string{
				base64.StdEncoding.EncodeToString([]byte("part1-")),
				base64.StdEncoding.EncodeToString([]byte("part2")),
			},
		})
	}))
	defer server.Close()

	out := filepath.Join(t.TempDir(), "scene.mp3")
	if err := newTestClient(server.URL).Synthesize(context.Background(), "hello", out); err != nil {
		t.Fatalf("Synthesize() error = %v", err)
	}

	got, err := os.ReadFile(out)
	if err != nil {
		t.Fatalf("read output: %v", err)
	}
	if string(got) != "part1-part2" {
		t.Errorf("audio = %q, want %q", got, "part1-part2")
	}
}

func TestSynthesizeClientErrorSkipsRetries(t *testing.T) {
	calls := 0
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"detail":{"message":"invalid api key"}}`))
	}))
	defer server.Close()

	out := filepath.Join(t.TempDir(), "scene.mp3")
	err := newTestClient(server.URL).Synthesize(context.Background(), "hello", out)
	if err == nil {
		t.Fatal("Synthesize() expected error")
	}
	if calls != 1 {
		t.Errorf("upstream calls = %d, want 1 for a rejected request", calls)
	}
	if _, statErr := os.Stat(out); !os.IsNotExist(statErr) {
		t.Error("no file should be written on failure")
	}
}

func TestSynthesizeFailsAfterRetries(t *testing.T) {
	calls := 0
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.WriteHeader(http.StatusTooManyRequests)
		_, _ = w.Write([]byte(`{"detail":{"message":"rate limited"}}`))
	}))
	defer server.Close()

	out := filepath.Join(t.TempDir(), "scene.mp3")
	err := newTestClient(server.URL).Synthesize(context.Background(), "hello", out)
	if err == nil {
		t.Fatal("Synthesize() expected error")
	}
	if calls != 3 {
		t.Errorf("upstream calls = %d, want 3", calls)
	}
	if _, statErr := os.Stat(out); !os.IsNotExist(statErr) {
		t.Error("no file should be written on failure")
	}
}
