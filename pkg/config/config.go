package config

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"strings"

	secretmanager "cloud.google.com/go/secretmanager/apiv1"
	"cloud.google.com/go/secretmanager/apiv1/secretmanagerpb"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

const (
	defaultConfigPath      = "config.yaml"
	defaultPort            = 8000
	defaultTempDir         = "./temp"
	defaultOutputDir       = "./output"
	defaultResolution      = "1080x1920"
	defaultFrameRate       = 30
	defaultScriptModel     = "llama-3.3-70b-versatile"
	defaultImageModel      = "gemini-2.0-flash-exp"
	defaultNarrationVoice  = "JBFqnCBsd6RMkjVDRZzb"
	defaultNarrationModel  = "eleven_flash_v2_5"
	defaultSampleRate      = 44100
	defaultAudioFormat     = "mp3"
	defaultSceneSeconds    = 15
	defaultImagePacing     = 1.0
	defaultPreviewTTLMin   = 30
	defaultMusicVolume     = 0.18
	defaultLeadInSeconds   = 0.5
	defaultCTASeconds      = 3.0
	defaultPrivacyStatus   = "private"
	defaultTokenPath       = "./youtube_token.json"
	secretRefPrefix        = "sm://"
	defaultStorageProvider = "local"
)

type Config struct {
	GroqAPIKey          string
	GeminiAPIKey        string
	ElevenLabsAPIKey    string
	GCSBucket           string
	YouTubeClientID     string
	YouTubeClientSecret string
	YouTubeTokenPath    string

	Server    ServerConfig    `yaml:"server"`
	Script    ScriptConfig    `yaml:"script"`
	Images    ImagesConfig    `yaml:"images"`
	Narration NarrationConfig `yaml:"narration"`
	Video     VideoConfig     `yaml:"video"`
	Storage   StorageConfig   `yaml:"storage"`
	Preview   PreviewConfig   `yaml:"preview"`
	YouTube   YouTubeConfig   `yaml:"youtube"`
}

type ServerConfig struct {
	Port int `yaml:"port"`
}

type ScriptConfig struct {
	Model          string   `yaml:"model"`
	FallbackModels []string `yaml:"fallback_models"`
	SceneSeconds   int      `yaml:"scene_seconds"`
}

type ImagesConfig struct {
	Model         string  `yaml:"model"`
	MaxRetries    int     `yaml:"max_retries"`
	PacingSeconds float64 `yaml:"pacing_seconds"`
}

type NarrationConfig struct {
	VoiceID    string `yaml:"voice_id"`
	Model      string `yaml:"model"`
	SampleRate int    `yaml:"sample_rate"`
	Format     string `yaml:"format"`
	MaxRetries int    `yaml:"max_retries"`
}

type VideoConfig struct {
	TempDir       string  `yaml:"temp_dir"`
	OutputDir     string  `yaml:"output_dir"`
	Resolution    string  `yaml:"resolution"`
	FrameRate     int     `yaml:"frame_rate"`
	LeadInSeconds float64 `yaml:"lead_in_seconds"`
	MusicPath     string  `yaml:"music_path"`
	MusicVolume   float64 `yaml:"music_volume"`
	CTAImagePath  string  `yaml:"cta_image_path"`
	CTASeconds    float64 `yaml:"cta_seconds"`
}

type StorageConfig struct {
	Provider string `yaml:"provider"` // "local" or "gcs"
}

type PreviewConfig struct {
	TTLMinutes int `yaml:"ttl_minutes"`
}

type YouTubeConfig struct {
	Enabled       bool     `yaml:"enabled"`
	DefaultTags   []string `yaml:"default_tags"`
	PrivacyStatus string   `yaml:"privacy_status"`
}

func Load(ctx context.Context) (*Config, error) {
	return LoadFrom(ctx, defaultConfigPath)
}

func LoadFrom(ctx context.Context, path string) (*Config, error) {
	if err := godotenv.Load(); err != nil {
		slog.Warn("No .env file found, relying on environment variables")
	}

	cfg := &Config{
		GroqAPIKey:          os.Getenv("GROQ_API_KEY"),
		GeminiAPIKey:        os.Getenv("GEMINI_API_KEY"),
		ElevenLabsAPIKey:    os.Getenv("ELEVENLABS_API_KEY"),
		GCSBucket:           os.Getenv("GCS_BUCKET"),
		YouTubeClientID:     os.Getenv("YOUTUBE_CLIENT_ID"),
		YouTubeClientSecret: os.Getenv("YOUTUBE_CLIENT_SECRET"),
		YouTubeTokenPath:    getEnvOrDefault("YOUTUBE_TOKEN_PATH", defaultTokenPath),
	}

	loadYAML(cfg, path)
	applyDefaults(cfg)

	if err := resolveSecretRefs(ctx, cfg); err != nil {
		return nil, err
	}

	return cfg, nil
}

func loadYAML(cfg *Config, path string) {
	data, err := os.ReadFile(path)
	if err != nil {
		slog.Warn("No config.yaml found, using defaults")
		return
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		slog.Error("Failed to parse config.yaml", "error", err)
	}
}

func applyDefaults(cfg *Config) {
	applyServerDefaults(cfg)
	applyScriptDefaults(cfg)
	applyImagesDefaults(cfg)
	applyNarrationDefaults(cfg)
	applyVideoDefaults(cfg)
	applyStorageDefaults(cfg)
	applyPreviewDefaults(cfg)
	applyYouTubeDefaults(cfg)
}

func applyServerDefaults(cfg *Config) {
	if cfg.Server.Port == 0 {
		cfg.Server.Port = defaultPort
	}
}

func applyScriptDefaults(cfg *Config) {
	if cfg.Script.Model == "" {
		cfg.Script.Model = defaultScriptModel
	}
	if len(cfg.Script.FallbackModels) == 0 {
		cfg.Script.FallbackModels = []string{"llama-3.1-8b-instant", "gemma2-9b-it"}
	}
	if cfg.Script.SceneSeconds == 0 {
		cfg.Script.SceneSeconds = defaultSceneSeconds
	}
}

func applyImagesDefaults(cfg *Config) {
	if cfg.Images.Model == "" {
		cfg.Images.Model = defaultImageModel
	}
	if cfg.Images.MaxRetries == 0 {
		cfg.Images.MaxRetries = 3
	}
	if cfg.Images.PacingSeconds == 0 {
		cfg.Images.PacingSeconds = defaultImagePacing
	}
}

func applyNarrationDefaults(cfg *Config) {
	if cfg.Narration.VoiceID == "" {
		cfg.Narration.VoiceID = defaultNarrationVoice
	}
	if cfg.Narration.Model == "" {
		cfg.Narration.Model = defaultNarrationModel
	}
	if cfg.Narration.SampleRate == 0 {
		cfg.Narration.SampleRate = defaultSampleRate
	}
	if cfg.Narration.Format == "" {
		cfg.Narration.Format = defaultAudioFormat
	}
	if cfg.Narration.MaxRetries == 0 {
		cfg.Narration.MaxRetries = 3
	}
}

func applyVideoDefaults(cfg *Config) {
	if cfg.Video.TempDir == "" {
		cfg.Video.TempDir = defaultTempDir
	}
	if cfg.Video.OutputDir == "" {
		cfg.Video.OutputDir = defaultOutputDir
	}
	if cfg.Video.Resolution == "" {
		cfg.Video.Resolution = defaultResolution
	}
	if cfg.Video.FrameRate == 0 {
		cfg.Video.FrameRate = defaultFrameRate
	}
	if cfg.Video.LeadInSeconds == 0 {
		cfg.Video.LeadInSeconds = defaultLeadInSeconds
	}
	if cfg.Video.MusicVolume == 0 {
		cfg.Video.MusicVolume = defaultMusicVolume
	}
	if cfg.Video.CTASeconds == 0 {
		cfg.Video.CTASeconds = defaultCTASeconds
	}
}

func applyStorageDefaults(cfg *Config) {
	if cfg.Storage.Provider == "" {
		cfg.Storage.Provider = defaultStorageProvider
	}
}

func applyPreviewDefaults(cfg *Config) {
	if cfg.Preview.TTLMinutes == 0 {
		cfg.Preview.TTLMinutes = defaultPreviewTTLMin
	}
}

func applyYouTubeDefaults(cfg *Config) {
	if len(cfg.YouTube.DefaultTags) == 0 {
		cfg.YouTube.DefaultTags = []string{"shorts", "ai", "facts"}
	}
	if cfg.YouTube.PrivacyStatus == "" {
		cfg.YouTube.PrivacyStatus = defaultPrivacyStatus
	}
}

// resolveSecretRefs swaps any credential of the form
// sm://projects/<p>/secrets/<name>/versions/<v> for the payload stored in
// Google Secret Manager. Plain values pass through untouched.
func resolveSecretRefs(ctx context.Context, cfg *Config) error {
	refs := []*string{
		&cfg.GroqAPIKey,
		&cfg.GeminiAPIKey,
		&cfg.ElevenLabsAPIKey,
		&cfg.YouTubeClientID,
		&cfg.YouTubeClientSecret,
	}

	var client *secretmanager.Client
	for _, ref := range refs {
		if !strings.HasPrefix(*ref, secretRefPrefix) {
			continue
		}
		if client == nil {
			c, err := secretmanager.NewClient(ctx)
			if err != nil {
				return fmt.Errorf("create secret manager client: %w", err)
			}
			client = c
			defer func() { _ = client.Close() }()
		}
		value, err := accessSecret(ctx, client, strings.TrimPrefix(*ref, secretRefPrefix))
		if err != nil {
			return err
		}
		*ref = value
	}
	return nil
}

func accessSecret(ctx context.Context, client *secretmanager.Client, name string) (string, error) {
	resp, err := client.AccessSecretVersion(ctx, &secretmanagerpb.AccessSecretVersionRequest{
		Name: name,
	})
	if err != nil {
		return "", fmt.Errorf("access secret %s: %w", name, err)
	}
	return string(resp.GetPayload().GetData()), nil
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
