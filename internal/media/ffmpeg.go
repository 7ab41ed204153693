// Package media wraps the ffmpeg and ffprobe binaries for clip
// rendering, concatenation and audio mixing.
package media

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"
	"time"
)

const (
	defaultFFmpegPath = "ffmpeg"
	defaultFFprobe    = "ffprobe"

	// Small tail pad so narration never gets clipped at scene cuts.
	clipTailPad = 0.2
)

// FFmpeg renders scene clips and assembles the final video.
type FFmpeg struct {
	ffmpegPath string
	ffprobe    string
	width      int
	height     int
	fps        int
	sampleRate int
}

// Options configures the ffmpeg wrapper.
type Options struct {
	Resolution string
	FPS        int
	SampleRate int
}

func New(opts Options) *FFmpeg {
	width, height := parseResolution(opts.Resolution)
	fps := opts.FPS
	if fps == 0 {
		fps = 30
	}
	sampleRate := opts.SampleRate
	if sampleRate == 0 {
		sampleRate = 44100
	}
	return &FFmpeg{
		ffmpegPath: defaultFFmpegPath,
		ffprobe:    defaultFFprobe,
		width:      width,
		height:     height,
		fps:        fps,
		sampleRate: sampleRate,
	}
}

func parseResolution(res string) (int, int) {
	parts := strings.Split(res, "x")
	if len(parts) != 2 {
		return 1080, 1920
	}
	w, err1 := strconv.Atoi(parts[0])
	h, err2 := strconv.Atoi(parts[1])
	if err1 != nil || err2 != nil {
		return 1080, 1920
	}
	return w, h
}

// ClipRequest describes one still-image clip with its narration audio.
// AudioOffset selects where in the audio file playback starts; clips
// built from the start of the file leave it at zero.
type ClipRequest struct {
	ImagePath   string
	AudioPath   string
	AudioOffset float64
	Duration    float64
	Variation   int
	OutputPath  string
}

// BuildClip renders a Ken Burns style clip from a single image and the
// full narration audio file. The video track runs slightly longer than
// the audio so the last frame holds through the cut.
func (f *FFmpeg) BuildClip(ctx context.Context, req ClipRequest) error {
	return f.renderClip(ctx, req, req.Duration+clipTailPad)
}

// BuildClipFromAudioSegment renders a clip against a window of the
// audio file starting at req.AudioOffset. Segment clips butt against
// each other inside one scene, so no tail pad is added.
func (f *FFmpeg) BuildClipFromAudioSegment(ctx context.Context, req ClipRequest) error {
	return f.renderClip(ctx, req, req.Duration)
}

func (f *FFmpeg) renderClip(ctx context.Context, req ClipRequest, videoDuration float64) error {
	filter := fmt.Sprintf("[0:v]%s[v]", f.kenBurnsFilter(req.Variation, req.Duration))

	args := []string{
		"-y",
		"-loop", "1",
		"-i", req.ImagePath,
	}
	if req.AudioOffset > 0 {
		args = append(args, "-ss", fmt.Sprintf("%.3f", req.AudioOffset))
	}
	args = append(args,
		"-i", req.AudioPath,
		"-filter_complex", filter,
		"-map", "[v]",
		"-map", "1:a",
		"-t", fmt.Sprintf("%.3f", videoDuration),
		"-c:v", "libx264",
		"-pix_fmt", "yuv420p",
		"-c:a", "aac",
		"-ar", strconv.Itoa(f.sampleRate),
		"-preset", "fast",
		req.OutputPath,
	)

	cmd := exec.CommandContext(ctx, f.ffmpegPath, args...)
	if output, err := cmd.CombinedOutput(); err != nil {
		return fmt.Errorf("ffmpeg clip failed: %w, output: %s", err, string(output))
	}
	return nil
}

// kenBurnsFilter builds the scale and zoompan chain for one clip. The
// variation index is stable per clip so re-renders look identical:
// variation%2 picks the zoom direction and variation%4 the pan path.
func (f *FFmpeg) kenBurnsFilter(variation int, duration float64) string {
	if variation < 0 {
		variation = -variation
	}
	frames := int(duration*float64(f.fps)) + 1
	if frames < 2 {
		frames = 2
	}

	// Upscale before zoompan to keep the motion free of jitter.
	scale := fmt.Sprintf("scale=%d:%d:force_original_aspect_ratio=increase,crop=%d:%d",
		f.width*2, f.height*2, f.width*2, f.height*2)

	var zoom string
	if variation%2 == 0 {
		zoom = "min(zoom+0.0015,1.2)"
	} else {
		zoom = "if(lte(on,1),1.2,max(zoom-0.0015,1.0))"
	}

	var x, y string
	switch variation % 4 {
	case 0:
		x = "iw/2-(iw/zoom/2)"
		y = "ih/2-(ih/zoom/2)"
	case 1:
		x = fmt.Sprintf("(iw-iw/zoom)*on/%d", frames)
		y = "ih/2-(ih/zoom/2)"
	case 2:
		x = fmt.Sprintf("(iw-iw/zoom)*(1-on/%d)", frames)
		y = "ih/2-(ih/zoom/2)"
	case 3:
		x = "iw/2-(iw/zoom/2)"
		y = fmt.Sprintf("(ih-ih/zoom)*on/%d", frames)
	}

	return fmt.Sprintf("%s,zoompan=z='%s':x='%s':y='%s':d=%d:s=%dx%d:fps=%d",
		scale, zoom, x, y, frames, f.width, f.height, f.fps)
}

// Concatenate joins clips into output in order. A single clip is
// stream-copied; multiple clips go through the concat demuxer, which
// keeps cuts hard and avoids a full re-encode.
func (f *FFmpeg) Concatenate(ctx context.Context, clipPaths []string, outputPath string) error {
	if len(clipPaths) == 0 {
		return fmt.Errorf("no clips to concatenate")
	}

	if len(clipPaths) == 1 {
		args := []string{"-y", "-i", clipPaths[0], "-c", "copy", outputPath}
		cmd := exec.CommandContext(ctx, f.ffmpegPath, args...)
		if output, err := cmd.CombinedOutput(); err != nil {
			return fmt.Errorf("ffmpeg copy failed: %w, output: %s", err, string(output))
		}
		return nil
	}

	listPath := filepath.Join(filepath.Dir(outputPath), fmt.Sprintf("concat_%d.txt", time.Now().UnixNano()))
	var listContent strings.Builder
	for _, clip := range clipPaths {
		absPath, err := filepath.Abs(clip)
		if err != nil {
			return fmt.Errorf("resolve clip path: %w", err)
		}
		fmt.Fprintf(&listContent, "file '%s'\n", absPath)
	}
	if err := os.WriteFile(listPath, []byte(listContent.String()), 0644); err != nil {
		return fmt.Errorf("write concat list: %w", err)
	}
	defer func() { _ = os.Remove(listPath) }()

	args := []string{
		"-y",
		"-f", "concat",
		"-safe", "0",
		"-i", listPath,
		"-c", "copy",
		outputPath,
	}

	cmd := exec.CommandContext(ctx, f.ffmpegPath, args...)
	if output, err := cmd.CombinedOutput(); err != nil {
		return fmt.Errorf("ffmpeg concat failed: %w, output: %s", err, string(output))
	}
	return nil
}

// DelayAudioStart re-encodes an audio file with leading silence so the
// first clip does not open mid-word.
func (f *FFmpeg) DelayAudioStart(ctx context.Context, inputPath, outputPath string, delay float64) error {
	delayMs := int(delay * 1000)
	args := []string{
		"-y",
		"-i", inputPath,
		"-af", fmt.Sprintf("adelay=%d:all=1", delayMs),
		"-c:a", "libmp3lame",
		"-ar", strconv.Itoa(f.sampleRate),
		outputPath,
	}

	cmd := exec.CommandContext(ctx, f.ffmpegPath, args...)
	if output, err := cmd.CombinedOutput(); err != nil {
		return fmt.Errorf("ffmpeg adelay failed: %w, output: %s", err, string(output))
	}
	return nil
}

// MixBackgroundMusic overlays a music track under the narration of a
// finished video. The music is looped to cover the full duration and
// kept quiet relative to the voice.
func (f *FFmpeg) MixBackgroundMusic(ctx context.Context, videoPath, musicPath, outputPath string, volume float64) error {
	if volume <= 0 {
		volume = 0.18
	}
	filter := fmt.Sprintf(
		"[1:a]volume=%.2f[music];[0:a][music]amix=inputs=2:duration=first:normalize=0[a]",
		volume,
	)

	args := []string{
		"-y",
		"-i", videoPath,
		"-stream_loop", "-1",
		"-i", musicPath,
		"-filter_complex", filter,
		"-map", "0:v",
		"-map", "[a]",
		"-c:v", "copy",
		"-c:a", "aac",
		"-ar", strconv.Itoa(f.sampleRate),
		outputPath,
	}

	cmd := exec.CommandContext(ctx, f.ffmpegPath, args...)
	if output, err := cmd.CombinedOutput(); err != nil {
		return fmt.Errorf("ffmpeg music mix failed: %w, output: %s", err, string(output))
	}
	return nil
}

// ProbeDuration returns the duration of a media file in seconds.
func (f *FFmpeg) ProbeDuration(ctx context.Context, path string) (float64, error) {
	args := []string{
		"-v", "error",
		"-show_entries", "format=duration",
		"-of", "default=noprint_wrappers=1:nokey=1",
		path,
	}

	cmd := exec.CommandContext(ctx, f.ffprobe, args...)
	output, err := cmd.Output()
	if err != nil {
		return 0, fmt.Errorf("ffprobe failed: %w", err)
	}

	var dur float64
	if _, err := fmt.Sscanf(string(output), "%f", &dur); err != nil {
		return 0, fmt.Errorf("parse duration: %w", err)
	}

	return dur, nil
}
