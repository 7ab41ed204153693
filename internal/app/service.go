package app

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/hykvra/AI-Video-Creator/internal/clips"
	"github.com/hykvra/AI-Video-Creator/internal/distribution"
	"github.com/hykvra/AI-Video-Creator/internal/imagegen"
	"github.com/hykvra/AI-Video-Creator/internal/media"
	"github.com/hykvra/AI-Video-Creator/internal/narration"
	"github.com/hykvra/AI-Video-Creator/internal/script"
	"github.com/hykvra/AI-Video-Creator/internal/storage"
	"github.com/hykvra/AI-Video-Creator/pkg/config"
	"github.com/hykvra/AI-Video-Creator/pkg/prompts"
)

// Service bundles the orchestrator with everything the HTTP layer
// serves.
type Service struct {
	Orchestrator *Orchestrator
	Broadcaster  *Broadcaster
	Store        storage.Store
	VideoDir     string
}

// BuildService wires concrete clients from configuration. The session
// janitor runs until ctx is done.
func BuildService(ctx context.Context, cfg *config.Config) (*Service, error) {
	if cfg.GroqAPIKey == "" {
		return nil, fmt.Errorf("GROQ_API_KEY is required")
	}
	if cfg.GeminiAPIKey == "" {
		return nil, fmt.Errorf("GEMINI_API_KEY is required")
	}
	if cfg.ElevenLabsAPIKey == "" {
		return nil, fmt.Errorf("ELEVENLABS_API_KEY is required")
	}

	for _, dir := range []string{cfg.Video.TempDir, cfg.Video.OutputDir} {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("create directory %s: %w", dir, err)
		}
	}

	promptSet, err := prompts.Load()
	if err != nil {
		return nil, fmt.Errorf("load prompts: %w", err)
	}

	scripts, err := script.NewGroqClient(cfg.GroqAPIKey, cfg.Script.Model, cfg.Script.FallbackModels, cfg.Script.SceneSeconds, promptSet)
	if err != nil {
		return nil, fmt.Errorf("create script client: %w", err)
	}

	images := imagegen.NewClient(cfg.GeminiAPIKey, cfg.Images.Model, cfg.Images.MaxRetries)

	narrator := narration.NewElevenLabsClient(cfg.ElevenLabsAPIKey, narration.ElevenLabsOptions{
		VoiceID:    cfg.Narration.VoiceID,
		Model:      cfg.Narration.Model,
		SampleRate: cfg.Narration.SampleRate,
		MaxRetries: cfg.Narration.MaxRetries,
	})

	transcoder := media.New(media.Options{
		Resolution: cfg.Video.Resolution,
		FPS:        cfg.Video.FrameRate,
		SampleRate: cfg.Narration.SampleRate,
	})

	sceneBuilder := clips.NewAssembler(transcoder, clips.CTAPolicy{
		ImagePath: cfg.Video.CTAImagePath,
		Seconds:   cfg.Video.CTASeconds,
	})

	store, err := buildStore(ctx, cfg)
	if err != nil {
		return nil, err
	}

	var uploader distribution.Uploader
	if cfg.YouTube.Enabled && cfg.YouTubeClientID != "" {
		auth := distribution.NewYouTubeAuth(cfg.YouTubeClientID, cfg.YouTubeClientSecret, cfg.YouTubeTokenPath)
		uploader = distribution.NewYouTube(auth)
	}

	sessions := NewMemoryStore(time.Duration(cfg.Preview.TTLMinutes) * time.Minute)
	sessions.StartJanitor(ctx, time.Minute)

	broadcaster := NewBroadcaster()

	orchestrator := NewOrchestrator(Deps{
		Scripts:    scripts,
		Images:     images,
		Narrator:   narrator,
		Scenes:     sceneBuilder,
		Transcoder: transcoder,
		Store:      store,
		Uploader:   uploader,
		Sessions:   sessions,
		Progress:   broadcaster,
	}, Options{
		TempDir:       cfg.Video.TempDir,
		ImageDelay:    time.Duration(cfg.Images.PacingSeconds * float64(time.Second)),
		LeadInSeconds: cfg.Video.LeadInSeconds,
		MusicPath:     cfg.Video.MusicPath,
		MusicVolume:   cfg.Video.MusicVolume,
		UploadPrivacy: cfg.YouTube.PrivacyStatus,
		UploadTags:    cfg.YouTube.DefaultTags,
	})

	return &Service{
		Orchestrator: orchestrator,
		Broadcaster:  broadcaster,
		Store:        store,
		VideoDir:     cfg.Video.OutputDir,
	}, nil
}

func buildStore(ctx context.Context, cfg *config.Config) (storage.Store, error) {
	switch cfg.Storage.Provider {
	case "gcs":
		if cfg.GCSBucket == "" {
			return nil, fmt.Errorf("GCS_BUCKET is required for gcs storage")
		}
		store, err := storage.NewGCSStore(ctx, cfg.GCSBucket, "videos")
		if err != nil {
			return nil, fmt.Errorf("create gcs store: %w", err)
		}
		return store, nil
	default:
		return storage.NewLocalStore(cfg.Video.OutputDir), nil
	}
}
