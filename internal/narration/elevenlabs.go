package narration

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/hykvra/AI-Video-Creator/pkg/httputil"
)

const (
	elevenLabsBaseURL = "https://api.elevenlabs.io/v1/text-to-speech"
	defaultTimeout    = 60 * time.Second
	retryBackoff      = 2 * time.Second
)

type elevenlabsRequest struct {
	Text           string                `json:"text"`
	ModelID        string                `json:"model_id"`
	VoiceSettings  elevenlabsVoiceConfig `json:"voice_settings"`
	OutputFormat   string                `json:"output_format,omitempty"`
	SampleRateHz   int                   `json:"sample_rate,omitempty"`
	ResponseFormat string                `json:"response_format,omitempty"`
}

type elevenlabsVoiceConfig struct {
	Stability       float64 `json:"stability"`
	SimilarityBoost float64 `json:"similarity_boost"`
}

// Speech endpoints in the wild answer in one of three shapes: the audio
// inline as base64, a URL the audio can be fetched from, or the audio
// split into base64 chunks. elevenlabsResponse covers all three.
type elevenlabsResponse struct {
	AudioBase64 string   `json:"audio_base64"`
	AudioURL    string   `json:"audio_url"`
	Chunks      []string `json:"chunks"`
}

type elevenlabsErrorResponse struct {
	Detail struct {
		Message string `json:"message"`
	} `json:"detail"`
}

// ElevenLabsClient implements Synthesizer using the ElevenLabs API.
type ElevenLabsClient struct {
	apiKey     string
	httpClient *http.Client
	voiceID    string
	model      string
	sampleRate int
	stability  float64
	similarity float64
	baseURL    string
	retry      httputil.Policy
}

// ElevenLabsOptions configures the ElevenLabs client.
type ElevenLabsOptions struct {
	VoiceID    string
	Model      string
	SampleRate int
	Stability  float64
	Similarity float64
	MaxRetries int
}

// NewElevenLabsClient creates a new ElevenLabs TTS client.
func NewElevenLabsClient(apiKey string, opts ElevenLabsOptions) *ElevenLabsClient {
	if opts.MaxRetries <= 0 {
		opts.MaxRetries = 3
	}
	if opts.SampleRate == 0 {
		opts.SampleRate = 44100
	}
	return &ElevenLabsClient{
		apiKey: apiKey,
		httpClient: &http.Client{
			Timeout: defaultTimeout,
		},
		voiceID:    opts.VoiceID,
		model:      opts.Model,
		sampleRate: opts.SampleRate,
		stability:  opts.Stability,
		similarity: opts.Similarity,
		baseURL:    elevenLabsBaseURL,
		retry: httputil.Policy{
			MaxAttempts: opts.MaxRetries,
			Backoff:     httputil.FixedBackoff(retryBackoff),
		},
	}
}

// Synthesize generates speech for text and writes MP3 audio to
// outputPath. The call is retried with a fixed backoff; if every
// attempt fails no file is written and the last error is returned.
func (c *ElevenLabsClient) Synthesize(ctx context.Context, text, outputPath string) error {
	var audio []byte
	err := c.retry.Do(ctx, func(attempt int) error {
		data, err := c.request(ctx, text)
		if err != nil {
			slog.Warn("Narration attempt failed", "attempt", attempt, "error", err)
			return err
		}
		audio = data
		return nil
	})
	if err != nil {
		return fmt.Errorf("narration failed: %w", err)
	}

	if err := os.WriteFile(outputPath, audio, 0644); err != nil {
		return fmt.Errorf("write audio: %w", err)
	}
	return nil
}

func (c *ElevenLabsClient) request(ctx context.Context, text string) ([]byte, error) {
	reqBody := elevenlabsRequest{
		Text:    text,
		ModelID: c.model,
		VoiceSettings: elevenlabsVoiceConfig{
			Stability:       c.stability,
			SimilarityBoost: c.similarity,
		},
		OutputFormat: "mp3",
		SampleRateHz: c.sampleRate,
	}

	data, err := json.Marshal(reqBody)
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	url := fmt.Sprintf("%s/%s", c.baseURL, c.voiceID)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewBuffer(data))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("xi-api-key", c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("send request: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		apiErr := fmt.Errorf("elevenlabs: %s", resp.Status)
		var errResp elevenlabsErrorResponse
		if jsonErr := json.Unmarshal(body, &errResp); jsonErr == nil && errResp.Detail.Message != "" {
			apiErr = fmt.Errorf("elevenlabs: %s", errResp.Detail.Message)
		}
		// A 4xx will not heal on retry; only rate limits and server
		// errors get further attempts.
		if !httputil.Retryable(resp, nil) {
			return nil, httputil.Permanent(apiErr)
		}
		return nil, apiErr
	}

	var ttsResp elevenlabsResponse
	if err := json.Unmarshal(body, &ttsResp); err != nil {
		return nil, fmt.Errorf("unmarshal response: %w", err)
	}
	return c.extractAudio(ctx, ttsResp)
}

func (c *ElevenLabsClient) extractAudio(ctx context.Context, resp elevenlabsResponse) ([]byte, error) {
	switch {
	case resp.AudioBase64 != "":
		audio, err := base64.StdEncoding.DecodeString(resp.AudioBase64)
		if err != nil {
			return nil, fmt.Errorf("decode audio: %w", err)
		}
		return audio, nil

	case resp.AudioURL != "":
		return c.fetchAudio(ctx, resp.AudioURL)

	case len(resp.Chunks) > 0:
		var audio []byte
		for i, chunk := range resp.Chunks {
			decoded, err := base64.StdEncoding.DecodeString(chunk)
			if err != nil {
				return nil, fmt.Errorf("decode audio chunk %d: %w", i, err)
			}
			audio = append(audio, decoded...)
		}
		return audio, nil
	}
	return nil, fmt.Errorf("elevenlabs: response contains no audio")
}

func (c *ElevenLabsClient) fetchAudio(ctx context.Context, url string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("create audio request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch audio: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("fetch audio: %s", resp.Status)
	}

	audio, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read audio: %w", err)
	}
	if len(audio) == 0 {
		return nil, fmt.Errorf("fetch audio: empty body")
	}
	return audio, nil
}

// SetBaseURL sets the base URL for testing.
func (c *ElevenLabsClient) SetBaseURL(url string) {
	c.baseURL = url
}
