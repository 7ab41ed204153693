// Package imagegen renders one image per prompt through the Gemini
// generateContent API. Failures degrade to a placeholder frame instead
// of propagating; a missing visual never kills a video.
package imagegen

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
	geminiBaseURL  = "https://generativelanguage.googleapis.com"
	defaultTimeout = 120 * time.Second
	retryStep      = 2 * time.Second

	// Every prompt gets the same framing so the model returns portrait
	// images suited to the 1080x1920 canvas.
	promptPreamble = "High quality vertical mobile image, 9:16 portrait, cinematic lighting, no text or watermarks. "
)

type generateRequest struct {
	Contents         []content        `json:"contents"`
	GenerationConfig generationConfig `json:"generationConfig"`
}

type content struct {
	Parts []part `json:"parts"`
}

type part struct {
	Text       string      `json:"text,omitempty"`
	InlineData *inlineData `json:"inlineData,omitempty"`
}

type inlineData struct {
	MimeType string `json:"mimeType"`
	Data     string `json:"data"`
}

type generationConfig struct {
	ResponseModalities []string `json:"responseModalities"`
}

type generateResponse struct {
	Candidates []struct {
		Content content `json:"content"`
	} `json:"candidates"`
}

type apiError struct {
	Error struct {
		Message string `json:"message"`
	} `json:"error"`
}

// Client calls the Gemini image model with bounded retry.
type Client struct {
	apiKey     string
	model      string
	httpClient *http.Client
	baseURL    string
	retry      httputil.Policy
}

func NewClient(apiKey, model string, maxRetries int) *Client {
	if maxRetries <= 0 {
		maxRetries = 3
	}
	return &Client{
		apiKey:     apiKey,
		model:      model,
		httpClient: &http.Client{Timeout: defaultTimeout},
		baseURL:    geminiBaseURL,
		retry: httputil.Policy{
			MaxAttempts: maxRetries,
			Backoff:     httputil.LinearBackoff(retryStep),
		},
	}
}

// Generate writes the image for prompt to outputPath. The upstream call
// is retried with linearly growing backoff; once the retry budget is
// spent a placeholder frame is written instead and the path is still
// returned. The only error surface left is the local filesystem.
func (c *Client) Generate(ctx context.Context, prompt, outputPath string) (string, error) {
	var payload []byte
	err := c.retry.Do(ctx, func(attempt int) error {
		data, err := c.request(ctx, prompt)
		if err != nil {
			slog.Warn("Image generation attempt failed", "attempt", attempt, "error", err)
			return err
		}
		payload = data
		return nil
	})
	if err != nil {
		slog.Warn("Image generation exhausted retries, using placeholder", "error", err)
		if err := writePlaceholder(outputPath); err != nil {
			return "", err
		}
		return outputPath, nil
	}

	if err := os.WriteFile(outputPath, payload, 0644); err != nil {
		return "", fmt.Errorf("write image: %w", err)
	}
	return outputPath, nil
}

func (c *Client) request(ctx context.Context, prompt string) ([]byte, error) {
	reqBody := generateRequest{
		Contents: []content{
			{Parts: []part{{Text: promptPreamble + prompt}}},
		},
		GenerationConfig: generationConfig{
			ResponseModalities: []string{"TEXT", "IMAGE"},
		},
	}

	data, err := json.Marshal(reqBody)
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	url := fmt.Sprintf("%s/v1beta/models/%s:generateContent", c.baseURL, c.model)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewBuffer(data))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("x-goog-api-key", c.apiKey)

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
		apiErr := fmt.Errorf("gemini: %s", resp.Status)
		var errResp apiError
		if jsonErr := json.Unmarshal(body, &errResp); jsonErr == nil && errResp.Error.Message != "" {
			apiErr = fmt.Errorf("gemini: %s", errResp.Error.Message)
		}
		// Only rate limits and server errors are worth another
		// attempt; a rejected request stays rejected.
		if !httputil.Retryable(resp, nil) {
			return nil, httputil.Permanent(apiErr)
		}
		return nil, apiErr
	}

	var genResp generateResponse
	if err := json.Unmarshal(body, &genResp); err != nil {
		return nil, fmt.Errorf("unmarshal response: %w", err)
	}

	for _, cand := range genResp.Candidates {
		for _, p := range cand.Content.Parts {
			if p.InlineData == nil || p.InlineData.Data == "" {
				continue
			}
			decoded, err := base64.StdEncoding.DecodeString(p.InlineData.Data)
			if err != nil {
				return nil, fmt.Errorf("decode image payload: %w", err)
			}
			return decoded, nil
		}
	}

	// Model answered but sent no image part; worth another attempt.
	return nil, fmt.Errorf("gemini: response contains no inline image payload")
}

// SetBaseURL overrides the API endpoint for testing.
func (c *Client) SetBaseURL(url string) {
	c.baseURL = url
}
