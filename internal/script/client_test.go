package script

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/conneroisu/groq-go"

	"github.com/hykvra/AI-Video-Creator/pkg/prompts"
)

func noSleep(_ context.Context, _ time.Duration) error { return nil }

type chatResponse struct {
	Choices []chatChoice `json:"choices"`
}

type chatChoice struct {
	Index   int `json:"index"`
	Message struct {
		Role    string `json:"role"`
		Content string `json:"content"`
	} `json:"message"`
	FinishReason string `json:"finish_reason"`
}

func makeChatResponse(content string) []byte {
	var choice chatChoice
	choice.Message.Role = "assistant"
	choice.Message.Content = content
	choice.FinishReason = "stop"
	data, _ := json.Marshal(chatResponse{Choices: []chatChoice{choice}})
	return data
}

func newTestClient(t *testing.T, serverURL string, models ...string) *GroqClient {
	t.Helper()
	client, err := groq.NewClient("test-api-key", groq.WithBaseURL(serverURL+"/"))
	if err != nil {
		t.Fatalf("create groq client: %v", err)
	}

	chatModels := make([]groq.ChatModel, len(models))
	for i, m := range models {
		chatModels[i] = groq.ChatModel(m)
	}

	return &GroqClient{
		client:       client,
		models:       chatModels,
		prompts:      prompts.Default(),
		sceneSeconds: 15,
		sleep:        noSleep,
	}
}

const validScriptJSON = `{"videoTitle": "t", "scenes": [` +
	`{"imagePrompts": ["p1"], "narrationText": "n1"},` +
	`{"imagePrompts": ["p2"], "narrationText": "n2"},` +
	`{"imagePrompts": ["p3"], "narrationText": "n3"}]}`

func TestGenerateSuccess(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write(makeChatResponse(validScriptJSON))
	}))
	defer server.Close()

	client := newTestClient(t, server.URL, "model-a")
	s, err := client.Generate(context.Background(), Request{
		Topic:           "Volcanoes",
		DurationSeconds: 45,
		Genre:           GenreInformative,
		Language:        LanguageEnglish,
	})
	if err != nil {
		t.Fatalf("Generate() error = %v", err)
	}
	if len(s.Scenes) != 3 {
		t.Errorf("got %d scenes, want 3", len(s.Scenes))
	}
}

func TestGenerateFallsBackToSecondModel(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) == 1 {
			w.WriteHeader(http.StatusUnauthorized)
			_, _ = w.Write([]byte(`{"error": {"message": "bad key", "type": "auth"}}`))
			return
		}
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write(makeChatResponse(validScriptJSON))
	}))
	defer server.Close()

	client := newTestClient(t, server.URL, "primary", "fallback")
	s, err := client.Generate(context.Background(), Request{
		Topic: "Volcanoes", DurationSeconds: 60, Genre: GenreInformative, Language: LanguageEnglish,
	})
	if err != nil {
		t.Fatalf("Generate() error = %v", err)
	}
	if len(s.Scenes) != 3 {
		t.Errorf("got %d scenes, want 3", len(s.Scenes))
	}
	if got := calls.Load(); got != 2 {
		t.Errorf("upstream calls = %d, want 2", got)
	}
}

func TestGenerateAllModelsFail(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"error": {"message": "bad key", "type": "auth"}}`))
	}))
	defer server.Close()

	client := newTestClient(t, server.URL, "primary", "fallback")
	_, err := client.Generate(context.Background(), Request{
		Topic: "Volcanoes", DurationSeconds: 60, Genre: GenreInformative, Language: LanguageEnglish,
	})
	if err == nil {
		t.Fatal("Generate() = nil error, want failure")
	}
	if !strings.Contains(err.Error(), "all script models failed") {
		t.Errorf("err = %v", err)
	}
}

func TestGenerateUnparseableResponseIsFatal(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write(makeChatResponse(`{"noScenesHere": true}`))
	}))
	defer server.Close()

	client := newTestClient(t, server.URL, "primary", "fallback")
	_, err := client.Generate(context.Background(), Request{
		Topic: "Volcanoes", DurationSeconds: 60, Genre: GenreInformative, Language: LanguageEnglish,
	})
	if err == nil {
		t.Fatal("Generate() = nil error, want schema failure")
	}
	if got := calls.Load(); got != 1 {
		t.Errorf("upstream calls = %d, want 1 (no fallback on schema error)", got)
	}
}
