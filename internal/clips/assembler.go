// Package clips turns one scene (images plus narration audio) into a
// single rendered video clip.
package clips

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/hykvra/AI-Video-Creator/internal/media"
)

// Transcoder is the subset of the ffmpeg wrapper the assembler needs.
type Transcoder interface {
	BuildClip(ctx context.Context, req media.ClipRequest) error
	BuildClipFromAudioSegment(ctx context.Context, req media.ClipRequest) error
	Concatenate(ctx context.Context, clipPaths []string, outputPath string) error
}

// SceneRequest describes one scene to render.
type SceneRequest struct {
	SceneIndex    int
	ImagePaths    []string
	AudioPath     string
	AudioDuration float64
	WorkDir       string
	OutputPath    string
	// LastScene enables the call-to-action policy for the closing scene.
	LastScene bool
}

// CTAPolicy replaces the tail of the last scene with a dedicated
// call-to-action image rendered as its own sub-clip.
type CTAPolicy struct {
	ImagePath string
	Seconds   float64
}

func (p CTAPolicy) enabled() bool {
	return p.ImagePath != "" && p.Seconds > 0
}

// Assembler renders scene clips through a Transcoder.
type Assembler struct {
	transcoder Transcoder
	cta        CTAPolicy
}

func NewAssembler(transcoder Transcoder, cta CTAPolicy) *Assembler {
	return &Assembler{transcoder: transcoder, cta: cta}
}

// BuildScene renders the clip for one scene. A single image covers the
// whole narration; multiple images split it into equal audio segments,
// each with its own motion variation, joined by a hard cut.
func (a *Assembler) BuildScene(ctx context.Context, req SceneRequest) error {
	if len(req.ImagePaths) == 0 {
		return fmt.Errorf("scene %d has no images", req.SceneIndex)
	}
	if req.AudioDuration <= 0 {
		return fmt.Errorf("scene %d has invalid audio duration %.3f", req.SceneIndex, req.AudioDuration)
	}

	mainDuration := req.AudioDuration
	cta := req.LastScene && a.cta.enabled() && req.AudioDuration > a.cta.Seconds
	if cta {
		mainDuration = req.AudioDuration - a.cta.Seconds
	}

	if len(req.ImagePaths) == 1 && !cta {
		return a.transcoder.BuildClip(ctx, media.ClipRequest{
			ImagePath:  req.ImagePaths[0],
			AudioPath:  req.AudioPath,
			Duration:   mainDuration,
			Variation:  req.SceneIndex * 10,
			OutputPath: req.OutputPath,
		})
	}

	var segments []string
	n := len(req.ImagePaths)
	segDuration := mainDuration / float64(n)
	for i, imagePath := range req.ImagePaths {
		segPath := filepath.Join(req.WorkDir, fmt.Sprintf("scene%d_seg%d.mp4", req.SceneIndex, i))
		err := a.transcoder.BuildClipFromAudioSegment(ctx, media.ClipRequest{
			ImagePath:   imagePath,
			AudioPath:   req.AudioPath,
			AudioOffset: float64(i) * segDuration,
			Duration:    segDuration,
			Variation:   req.SceneIndex*10 + i,
			OutputPath:  segPath,
		})
		if err != nil {
			return fmt.Errorf("scene %d segment %d: %w", req.SceneIndex, i, err)
		}
		segments = append(segments, segPath)
	}

	if cta {
		ctaPath := filepath.Join(req.WorkDir, fmt.Sprintf("scene%d_cta.mp4", req.SceneIndex))
		err := a.transcoder.BuildClipFromAudioSegment(ctx, media.ClipRequest{
			ImagePath:   a.cta.ImagePath,
			AudioPath:   req.AudioPath,
			AudioOffset: mainDuration,
			Duration:    a.cta.Seconds,
			Variation:   req.SceneIndex*10 + n,
			OutputPath:  ctaPath,
		})
		if err != nil {
			return fmt.Errorf("scene %d cta clip: %w", req.SceneIndex, err)
		}
		segments = append(segments, ctaPath)
	}

	if err := a.transcoder.Concatenate(ctx, segments, req.OutputPath); err != nil {
		return fmt.Errorf("scene %d concat: %w", req.SceneIndex, err)
	}
	return nil
}
