package app

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/hykvra/AI-Video-Creator/internal/clips"
	"github.com/hykvra/AI-Video-Creator/internal/distribution"
	"github.com/hykvra/AI-Video-Creator/internal/script"
	"github.com/hykvra/AI-Video-Creator/internal/storage"
)

// ImageGenerator renders one prompt to an image file.
type ImageGenerator interface {
	Generate(ctx context.Context, prompt, outputPath string) (string, error)
}

// Narrator synthesizes narration audio for one scene.
type Narrator interface {
	Synthesize(ctx context.Context, text, outputPath string) error
}

// SceneBuilder renders one scene's clip from its images and audio.
type SceneBuilder interface {
	BuildScene(ctx context.Context, req clips.SceneRequest) error
}

// Transcoder covers the assembly-stage ffmpeg operations.
type Transcoder interface {
	ProbeDuration(ctx context.Context, path string) (float64, error)
	Concatenate(ctx context.Context, clipPaths []string, outputPath string) error
	DelayAudioStart(ctx context.Context, inputPath, outputPath string, delay float64) error
	MixBackgroundMusic(ctx context.Context, videoPath, musicPath, outputPath string, volume float64) error
}

// StartRequest is the accepted session payload.
type StartRequest struct {
	script.Request
	Preview bool
}

// Deps are the orchestrator's injected collaborators.
type Deps struct {
	Scripts    script.Generator
	Images     ImageGenerator
	Narrator   Narrator
	Scenes     SceneBuilder
	Transcoder Transcoder
	Store      storage.Store
	Uploader   distribution.Uploader
	Sessions   SessionStore
	Progress   ProgressSink
}

// Options tune pipeline behavior per deployment.
type Options struct {
	TempDir       string
	ImageDelay    time.Duration
	LeadInSeconds float64
	MusicPath     string
	MusicVolume   float64
	UploadPrivacy string
	UploadTags    []string
}

// Orchestrator drives every session through the generation pipeline.
// Each session runs in its own goroutine and owns all of its files, so
// sessions never share mutable state.
type Orchestrator struct {
	deps  Deps
	opts  Options
	sleep func(ctx context.Context, d time.Duration) error
}

func NewOrchestrator(deps Deps, opts Options) *Orchestrator {
	return &Orchestrator{
		deps: deps,
		opts: opts,
		sleep: func(ctx context.Context, d time.Duration) error {
			t := time.NewTimer(d)
			defer t.Stop()
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-t.C:
				return nil
			}
		},
	}
}

// NewSessionID returns an id usable with StartWithID.
func NewSessionID() string {
	return uuid.NewString()
}

// Start validates the request, creates a session and returns its id
// immediately. All further progress is observable only through the
// session's event stream.
func (o *Orchestrator) Start(req StartRequest) (string, error) {
	id := NewSessionID()
	if err := o.StartWithID(id, req); err != nil {
		return "", err
	}
	return id, nil
}

// StartWithID launches a session under a caller-chosen id, so the
// caller can subscribe to progress before the first event is
// published.
func (o *Orchestrator) StartWithID(id string, req StartRequest) error {
	req.DurationSeconds = script.ClampDuration(req.DurationSeconds)
	if err := req.Validate(); err != nil {
		return err
	}

	session := Session{
		ID:        id,
		State:     StateCreated,
		Params:    req.Request,
		CreatedAt: time.Now(),
	}
	o.deps.Sessions.Put(session)

	go o.run(context.Background(), &session, req.Preview)
	return nil
}

// Confirm resumes a session paused for preview. The transition out of
// preview_waiting is a compare-and-swap in the store, so of two
// concurrent confirms exactly one resumes the pipeline.
func (o *Orchestrator) Confirm(sessionID string) error {
	if !o.deps.Sessions.UpdateState(sessionID, StatePreviewWaiting, StateImagesPending) {
		if _, ok := o.deps.Sessions.Get(sessionID); !ok {
			return ErrSessionNotFound
		}
		return fmt.Errorf("%w: session %s", ErrSessionNotWaiting, sessionID)
	}

	// Read back after the swap so the copy carries the parked script.
	session, ok := o.deps.Sessions.Get(sessionID)
	if !ok {
		return ErrSessionNotFound
	}
	go o.producePipeline(context.Background(), &session, session.Script)
	return nil
}

func (o *Orchestrator) run(ctx context.Context, session *Session, preview bool) {
	o.setState(session, StateScriptPending)
	o.publish(session, Event{Step: StepScript, Status: StatusInProgress, Message: "Generating script"})

	scr, err := o.deps.Scripts.Generate(ctx, session.Params)
	if err != nil {
		o.fail(session, StepScript, err)
		return
	}
	if err := scr.Validate(); err != nil {
		o.fail(session, StepScript, err)
		return
	}

	o.setState(session, StateScriptReady)
	o.publish(session, Event{
		Step:        StepScript,
		Status:      StatusCompleted,
		Message:     fmt.Sprintf("Script ready with %d scenes", len(scr.Scenes)),
		TotalScenes: len(scr.Scenes),
	})

	if preview {
		// Script and state land in the store together so a confirm
		// can never observe the waiting state without the script.
		session.Script = scr
		session.State = StatePreviewWaiting
		o.deps.Sessions.Put(*session)
		o.publish(session, Event{
			Step:    StepPreviewReady,
			Status:  StatusCompleted,
			Message: "Script ready for review",
			Data:    scr,
		})
		return
	}

	o.producePipeline(ctx, session, scr)
}

// producePipeline runs every stage after the script: images, audio,
// clips, assembly, storage. It is entered directly for non-preview
// sessions and from Confirm for previewed ones.
func (o *Orchestrator) producePipeline(ctx context.Context, session *Session, scr *script.Script) {
	total := len(scr.Scenes)

	imagePaths, err := o.generateImages(ctx, session, scr)
	if err != nil {
		o.fail(session, StepImages, err)
		return
	}
	o.setState(session, StateImagesReady)
	o.publish(session, Event{Step: StepImages, Status: StatusCompleted, Message: "All images ready", TotalScenes: total})

	audioPaths, durations, err := o.generateAudio(ctx, session, scr)
	if err != nil {
		o.fail(session, StepAudio, err)
		return
	}
	o.setState(session, StateAudioReady)
	o.publish(session, Event{Step: StepAudio, Status: StatusCompleted, Message: "All narration ready", TotalScenes: total})

	clipPaths, err := o.buildClips(ctx, session, scr, imagePaths, audioPaths, durations)
	if err != nil {
		o.fail(session, StepClips, err)
		return
	}
	o.publish(session, Event{Step: StepClips, Status: StatusCompleted, Message: "All scene clips ready", TotalScenes: total})

	finalPath, err := o.assemble(ctx, session, clipPaths)
	if err != nil {
		o.fail(session, StepAssembly, err)
		return
	}
	o.publish(session, Event{Step: StepAssembly, Status: StatusCompleted, Message: "Final video assembled"})

	videoURL, err := o.deliver(ctx, session, scr, finalPath)
	if err != nil {
		o.fail(session, StepUpload, err)
		return
	}

	o.cleanup(session.ID)
	o.setState(session, StateCompleted)
	o.publish(session, Event{
		Step:     StepComplete,
		Status:   StatusCompleted,
		Message:  "Video created",
		VideoURL: videoURL,
		Data:     scr.YouTubeMetadata,
	})
	o.deps.Sessions.Delete(session.ID)
}

func (o *Orchestrator) generateImages(ctx context.Context, session *Session, scr *script.Script) ([][]string, error) {
	o.setState(session, StateImagesPending)
	total := len(scr.Scenes)

	paths := make([][]string, total)
	for si, scene := range scr.Scenes {
		for pi, prompt := range scene.ImagePrompts {
			o.publish(session, Event{
				Step:        StepImages,
				Status:      StatusInProgress,
				Message:     fmt.Sprintf("Generating image %d for scene %d", pi+1, si+1),
				SceneIndex:  si + 1,
				TotalScenes: total,
			})

			out := o.tempPath(session.ID, fmt.Sprintf("scene%d_img%d.png", si, pi))
			path, err := o.deps.Images.Generate(ctx, prompt, out)
			if err != nil {
				return nil, fmt.Errorf("scene %d image %d: %w", si, pi, err)
			}
			paths[si] = append(paths[si], path)

			// Images are generated one at a time with a fixed pause to
			// stay under upstream rate limits.
			if o.opts.ImageDelay > 0 {
				if err := o.sleep(ctx, o.opts.ImageDelay); err != nil {
					return nil, err
				}
			}
		}
	}
	return paths, nil
}

func (o *Orchestrator) generateAudio(ctx context.Context, session *Session, scr *script.Script) ([]string, []float64, error) {
	o.setState(session, StateAudioPending)
	total := len(scr.Scenes)

	paths := make([]string, total)
	durations := make([]float64, total)
	for si, scene := range scr.Scenes {
		o.publish(session, Event{
			Step:        StepAudio,
			Status:      StatusInProgress,
			Message:     fmt.Sprintf("Narrating scene %d", si+1),
			SceneIndex:  si + 1,
			TotalScenes: total,
		})

		out := o.tempPath(session.ID, fmt.Sprintf("scene%d.mp3", si))
		if err := o.deps.Narrator.Synthesize(ctx, scene.NarrationText, out); err != nil {
			return nil, nil, fmt.Errorf("scene %d narration: %w", si, err)
		}

		// The opening scene gets a short silent lead-in so playback
		// does not start mid-word.
		if si == 0 && o.opts.LeadInSeconds > 0 {
			delayed := o.tempPath(session.ID, "scene0_delayed.mp3")
			if err := o.deps.Transcoder.DelayAudioStart(ctx, out, delayed, o.opts.LeadInSeconds); err != nil {
				return nil, nil, fmt.Errorf("scene 0 lead-in: %w", err)
			}
			out = delayed
		}

		dur, err := o.deps.Transcoder.ProbeDuration(ctx, out)
		if err != nil {
			return nil, nil, fmt.Errorf("scene %d duration: %w", si, err)
		}

		paths[si] = out
		durations[si] = dur
	}
	return paths, durations, nil
}

func (o *Orchestrator) buildClips(ctx context.Context, session *Session, scr *script.Script, imagePaths [][]string, audioPaths []string, durations []float64) ([]string, error) {
	o.setState(session, StateClipsPending)
	total := len(scr.Scenes)

	// Segment files go into a per-session work directory so concurrent
	// sessions never collide on scene segment names.
	workDir := o.tempPath(session.ID, "work")
	if err := os.MkdirAll(workDir, 0755); err != nil {
		return nil, fmt.Errorf("create work directory: %w", err)
	}

	paths := make([]string, total)
	for si := range scr.Scenes {
		o.publish(session, Event{
			Step:        StepClips,
			Status:      StatusInProgress,
			Message:     fmt.Sprintf("Building clip for scene %d", si+1),
			SceneIndex:  si + 1,
			TotalScenes: total,
		})

		out := o.tempPath(session.ID, fmt.Sprintf("clip%d.mp4", si))
		err := o.deps.Scenes.BuildScene(ctx, clips.SceneRequest{
			SceneIndex:    si,
			ImagePaths:    imagePaths[si],
			AudioPath:     audioPaths[si],
			AudioDuration: durations[si],
			WorkDir:       workDir,
			OutputPath:    out,
			LastScene:     si == total-1,
		})
		if err != nil {
			return nil, err
		}
		paths[si] = out
	}
	return paths, nil
}

func (o *Orchestrator) assemble(ctx context.Context, session *Session, clipPaths []string) (string, error) {
	o.setState(session, StateAssembling)
	o.publish(session, Event{Step: StepAssembly, Status: StatusInProgress, Message: "Concatenating scene clips"})

	finalPath := o.tempPath(session.ID, "final.mp4")
	if err := o.deps.Transcoder.Concatenate(ctx, clipPaths, finalPath); err != nil {
		return "", fmt.Errorf("concatenate clips: %w", err)
	}

	if o.opts.MusicPath != "" {
		mixedPath := o.tempPath(session.ID, "final_music.mp4")
		if err := o.deps.Transcoder.MixBackgroundMusic(ctx, finalPath, o.opts.MusicPath, mixedPath, o.opts.MusicVolume); err != nil {
			slog.Warn("Background music mix failed, keeping unmixed video", "sessionId", session.ID, "error", err)
		} else {
			finalPath = mixedPath
		}
	}
	return finalPath, nil
}

// deliver stores the final video, then handles the optional
// post-storage concerns: thumbnails and platform upload. Storage
// failure is fatal; everything after it is best-effort.
func (o *Orchestrator) deliver(ctx context.Context, session *Session, scr *script.Script, finalPath string) (string, error) {
	o.setState(session, StateUploading)
	o.publish(session, Event{Step: StepUpload, Status: StatusInProgress, Message: "Storing final video"})

	name := fmt.Sprintf("%s_%s.mp4", sanitizeTitle(scr.VideoTitle), session.ID)
	videoURL, err := o.deps.Store.Save(ctx, finalPath, name)
	if err != nil {
		return "", fmt.Errorf("store video: %w", err)
	}

	thumbnail := o.generateThumbnail(ctx, session, scr)

	if o.deps.Uploader != nil && scr.YouTubeMetadata != nil {
		result, err := o.deps.Uploader.Upload(ctx, distribution.UploadRequest{
			FilePath:      finalPath,
			ThumbnailPath: thumbnail,
			Title:         scr.YouTubeMetadata.Title,
			Description:   scr.YouTubeMetadata.Description,
			Tags:          append(scr.YouTubeMetadata.Tags, o.opts.UploadTags...),
			Privacy:       o.opts.UploadPrivacy,
		})
		if err != nil {
			slog.Warn("Platform upload failed", "sessionId", session.ID, "error", err)
		} else {
			slog.Info("Video published", "sessionId", session.ID, "videoId", result.ID, "url", result.URL)
		}
	}

	return videoURL, nil
}

// generateThumbnail renders the first thumbnail prompt, when present.
// Failures are logged and the thumbnail is simply omitted.
func (o *Orchestrator) generateThumbnail(ctx context.Context, session *Session, scr *script.Script) string {
	if scr.YouTubeMetadata == nil || len(scr.YouTubeMetadata.ThumbnailPrompts) == 0 {
		return ""
	}

	out := o.tempPath(session.ID, "thumbnail.png")
	path, err := o.deps.Images.Generate(ctx, scr.YouTubeMetadata.ThumbnailPrompts[0], out)
	if err != nil {
		slog.Warn("Thumbnail generation failed", "sessionId", session.ID, "error", err)
		return ""
	}
	return path
}

func (o *Orchestrator) fail(session *Session, step string, err error) {
	slog.Error("Session failed", "sessionId", session.ID, "step", step, "error", err)
	o.cleanup(session.ID)
	o.setState(session, StateFailed)
	o.publish(session, Event{Step: step, Status: StatusError, Message: err.Error()})
	o.deps.Sessions.Delete(session.ID)
}

// cleanup removes the session's temporary assets. All temp filenames
// are namespaced by session id, so a glob cannot touch other sessions.
func (o *Orchestrator) cleanup(sessionID string) {
	pattern := filepath.Join(o.opts.TempDir, sessionID+"_*")
	matches, err := filepath.Glob(pattern)
	if err != nil {
		return
	}
	for _, m := range matches {
		_ = os.RemoveAll(m)
	}
}

func (o *Orchestrator) tempPath(sessionID, name string) string {
	return filepath.Join(o.opts.TempDir, fmt.Sprintf("%s_%s", sessionID, name))
}

// setState advances the goroutine's private copy and the stored
// session. The copy is never shared, only the store is.
func (o *Orchestrator) setState(session *Session, state State) {
	session.State = state
	o.deps.Sessions.SetState(session.ID, state)
}

func (o *Orchestrator) publish(session *Session, event Event) {
	o.deps.Progress.Publish(session.ID, event)
}

// sanitizeTitle reduces a script title to a filesystem and URL safe
// slug.
func sanitizeTitle(title string) string {
	var b strings.Builder
	for _, r := range strings.ToLower(strings.TrimSpace(title)) {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			b.WriteRune(r)
		case r == ' ' || r == '-' || r == '_':
			b.WriteRune('_')
		}
	}
	if b.Len() == 0 {
		return "video"
	}
	return b.String()
}
