package script

import (
	"context"
	"fmt"
	"math"
	"strings"
)

const (
	minScenes = 3
	maxScenes = 15

	minDurationSeconds     = 30
	maxDurationSeconds     = 300
	defaultDurationSeconds = 60
)

type Genre string

const (
	GenreInformative  Genre = "informative"
	GenreComedy       Genre = "comedy"
	GenreStorytelling Genre = "storytelling"
	GenreMotivational Genre = "motivational"
	GenreFactReveal   Genre = "factreveal"
)

type ComedyLevel string

const (
	ComedyMild   ComedyLevel = "mild"
	ComedyMedium ComedyLevel = "medium"
	ComedySpicy  ComedyLevel = "spicy"
)

type Language string

const (
	LanguageEnglish Language = "english"
	LanguageHindi   Language = "hindi"
	LanguageSpanish Language = "spanish"
)

// Request carries the validated, normalized parameters for one script.
type Request struct {
	Topic           string
	Hook            string
	Fact            string
	DurationSeconds int
	Genre           Genre
	ComedyLevel     ComedyLevel
	Language        Language
}

// Script is the parsed output of the text model.
type Script struct {
	VideoTitle      string           `json:"videoTitle"`
	Scenes          []Scene          `json:"scenes"`
	YouTubeMetadata *YouTubeMetadata `json:"youtubeMetadata,omitempty"`
}

// Scene is one narrative beat: its narration and the ordered image
// prompts that will fill its screen time.
type Scene struct {
	ImagePrompts  []string `json:"imagePrompts"`
	NarrationText string   `json:"narrationText"`
}

type YouTubeMetadata struct {
	Title            string   `json:"title"`
	Description      string   `json:"description"`
	Tags             []string `json:"tags"`
	ThumbnailPrompts []string `json:"thumbnailPrompts"`
}

// Generator produces a script for a request. Implemented by GroqClient;
// tests substitute fakes.
type Generator interface {
	Generate(ctx context.Context, req Request) (*Script, error)
}

// NormalizeGenre maps unknown values to the informative default instead
// of erroring.
func NormalizeGenre(s string) Genre {
	switch Genre(strings.ToLower(strings.TrimSpace(s))) {
	case GenreComedy:
		return GenreComedy
	case GenreStorytelling:
		return GenreStorytelling
	case GenreMotivational:
		return GenreMotivational
	case GenreFactReveal:
		return GenreFactReveal
	default:
		return GenreInformative
	}
}

func NormalizeComedyLevel(s string) ComedyLevel {
	switch ComedyLevel(strings.ToLower(strings.TrimSpace(s))) {
	case ComedyMedium:
		return ComedyMedium
	case ComedySpicy:
		return ComedySpicy
	default:
		return ComedyMild
	}
}

func NormalizeLanguage(s string) Language {
	switch Language(strings.ToLower(strings.TrimSpace(s))) {
	case LanguageHindi:
		return LanguageHindi
	case LanguageSpanish:
		return LanguageSpanish
	default:
		return LanguageEnglish
	}
}

// ClampDuration keeps the requested duration inside the supported range,
// substituting the default for a missing value.
func ClampDuration(seconds int) int {
	if seconds == 0 {
		return defaultDurationSeconds
	}
	if seconds < minDurationSeconds {
		return minDurationSeconds
	}
	if seconds > maxDurationSeconds {
		return maxDurationSeconds
	}
	return seconds
}

// Validate checks the genre-specific required fields. It runs before any
// session is created, so failures surface synchronously to the caller.
func (r Request) Validate() error {
	if r.Genre == GenreFactReveal {
		if strings.TrimSpace(r.Hook) == "" || strings.TrimSpace(r.Fact) == "" {
			return fmt.Errorf("genre %s requires both a hook and a fact", r.Genre)
		}
		return nil
	}
	if strings.TrimSpace(r.Topic) == "" {
		return fmt.Errorf("genre %s requires a topic", r.Genre)
	}
	return nil
}

// SceneCount derives how many scenes to request: one scene per
// sceneSeconds of target duration, clamped to [3, 15]. The fact-reveal
// genre always uses three scenes (hook, build-up, reveal).
func SceneCount(durationSeconds, sceneSeconds int, genre Genre) int {
	if genre == GenreFactReveal {
		return minScenes
	}
	if sceneSeconds <= 0 {
		sceneSeconds = 15
	}
	n := int(math.Round(float64(durationSeconds) / float64(sceneSeconds)))
	if n < minScenes {
		return minScenes
	}
	if n > maxScenes {
		return maxScenes
	}
	return n
}

// Validate enforces the invariant that every scene carries at least one
// image prompt and non-empty narration before media generation starts.
func (s *Script) Validate() error {
	if len(s.Scenes) == 0 {
		return fmt.Errorf("script has no scenes")
	}
	for i, scene := range s.Scenes {
		if len(scene.ImagePrompts) == 0 {
			return fmt.Errorf("scene %d has no image prompts", i)
		}
		if strings.TrimSpace(scene.NarrationText) == "" {
			return fmt.Errorf("scene %d has empty narration", i)
		}
	}
	return nil
}
