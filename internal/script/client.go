package script

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/conneroisu/groq-go"

	"github.com/hykvra/AI-Video-Creator/pkg/httputil"
	"github.com/hykvra/AI-Video-Creator/pkg/prompts"
)

const modelBackoff = 2 * time.Second

// GroqClient generates scripts through the Groq chat completion API,
// walking an ordered list of models until one answers.
type GroqClient struct {
	client       *groq.Client
	models       []groq.ChatModel
	prompts      *prompts.Prompts
	sceneSeconds int
	sleep        func(ctx context.Context, d time.Duration) error
}

func NewGroqClient(apiKey, model string, fallbackModels []string, sceneSeconds int, p *prompts.Prompts) (*GroqClient, error) {
	client, err := groq.NewClient(apiKey)
	if err != nil {
		return nil, fmt.Errorf("create groq client: %w", err)
	}

	models := make([]groq.ChatModel, 0, len(fallbackModels)+1)
	models = append(models, groq.ChatModel(model))
	for _, m := range fallbackModels {
		models = append(models, groq.ChatModel(m))
	}

	return &GroqClient{
		client:       client,
		models:       models,
		prompts:      p,
		sceneSeconds: sceneSeconds,
	}, nil
}

// Generate renders the prompt for the request and tries each candidate
// model in order, waiting a fixed backoff between failures. A transport
// or model error moves on to the next candidate; a parse failure after
// repair is fatal immediately. All candidates failing is fatal for the
// session.
func (c *GroqClient) Generate(ctx context.Context, req Request) (*Script, error) {
	sceneCount := SceneCount(req.DurationSeconds, c.sceneSeconds, req.Genre)

	params := prompts.ScriptParams{
		Topic:      req.Topic,
		Hook:       req.Hook,
		Fact:       req.Fact,
		SceneCount: sceneCount,
		Genre:      string(req.Genre),
		Language:   string(req.Language),
	}
	if req.Genre == GenreComedy {
		params.ComedyLevel = string(req.ComedyLevel)
	}

	prompt, err := c.prompts.RenderScript(params)
	if err != nil {
		return nil, fmt.Errorf("render prompt: %w", err)
	}

	policy := httputil.Policy{
		MaxAttempts: len(c.models),
		Backoff:     httputil.FixedBackoff(modelBackoff),
		Sleep:       c.sleep,
	}

	var content string
	err = policy.Do(ctx, func(attempt int) error {
		model := c.models[attempt-1]
		if attempt > 1 {
			slog.Warn("Script model failed, trying fallback", "model", model)
		}
		out, err := c.complete(ctx, model, prompt)
		if err != nil {
			return err
		}
		content = out
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("all script models failed: %w", err)
	}

	return Parse(content)
}

func (c *GroqClient) complete(ctx context.Context, model groq.ChatModel, prompt string) (string, error) {
	resp, err := c.client.ChatCompletion(ctx, groq.ChatCompletionRequest{
		Model: model,
		Messages: []groq.ChatCompletionMessage{
			{Role: groq.RoleSystem, Content: c.prompts.System.Script},
			{Role: groq.RoleUser, Content: prompt},
		},
		ResponseFormat: &groq.ChatResponseFormat{
			Type: "json_object",
		},
	})
	if err != nil {
		return "", fmt.Errorf("chat completion: %w", err)
	}

	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("no response")
	}
	content := resp.Choices[0].Message.Content
	if content == "" {
		return "", fmt.Errorf("empty response")
	}
	return content, nil
}
