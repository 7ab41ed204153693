package app

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hykvra/AI-Video-Creator/internal/clips"
	"github.com/hykvra/AI-Video-Creator/internal/script"
)

type fakeScripts struct {
	script *script.Script
	err    error
}

func (f *fakeScripts) Generate(ctx context.Context, req script.Request) (*script.Script, error) {
	return f.script, f.err
}

type fakeImages struct {
	mu      sync.Mutex
	prompts []string
	gate    chan struct{}
}

func (f *fakeImages) Generate(ctx context.Context, prompt, outputPath string) (string, error) {
	if f.gate != nil {
		<-f.gate
	}
	f.mu.Lock()
	f.prompts = append(f.prompts, prompt)
	f.mu.Unlock()
	return outputPath, nil
}

func (f *fakeImages) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.prompts)
}

type fakeNarrator struct {
	mu    sync.Mutex
	texts []string
	err   error
}

func (f *fakeNarrator) Synthesize(ctx context.Context, text, outputPath string) error {
	f.mu.Lock()
	f.texts = append(f.texts, text)
	f.mu.Unlock()
	return f.err
}

type fakeScenes struct {
	mu   sync.Mutex
	reqs []clips.SceneRequest
}

func (f *fakeScenes) BuildScene(ctx context.Context, req clips.SceneRequest) error {
	f.mu.Lock()
	f.reqs = append(f.reqs, req)
	f.mu.Unlock()
	return nil
}

type fakeTranscoder struct {
	mu       sync.Mutex
	duration float64
	delayed  []string
	concats  [][]string
	mixed    bool
	mixErr   error
}

func (f *fakeTranscoder) ProbeDuration(ctx context.Context, path string) (float64, error) {
	return f.duration, nil
}

func (f *fakeTranscoder) Concatenate(ctx context.Context, clipPaths []string, outputPath string) error {
	f.mu.Lock()
	f.concats = append(f.concats, clipPaths)
	f.mu.Unlock()
	return nil
}

func (f *fakeTranscoder) DelayAudioStart(ctx context.Context, inputPath, outputPath string, delay float64) error {
	f.mu.Lock()
	f.delayed = append(f.delayed, inputPath)
	f.mu.Unlock()
	return nil
}

func (f *fakeTranscoder) MixBackgroundMusic(ctx context.Context, videoPath, musicPath, outputPath string, volume float64) error {
	f.mu.Lock()
	f.mixed = true
	f.mu.Unlock()
	return f.mixErr
}

type fakeStore struct{}

func (f *fakeStore) Save(ctx context.Context, localPath, name string) (string, error) {
	return "/videos/" + name, nil
}

func (f *fakeStore) ListVideos(ctx context.Context) ([]string, error) {
	return nil, nil
}

type fakeSink struct {
	ch chan Event
}

func newFakeSink() *fakeSink {
	return &fakeSink{ch: make(chan Event, 128)}
}

func (f *fakeSink) Publish(sessionID string, event Event) {
	f.ch <- event
}

// waitForPreview drains events until the preview pause is announced.
func waitForPreview(t *testing.T, sink *fakeSink) Event {
	t.Helper()
	for {
		select {
		case e := <-sink.ch:
			if e.Step == StepPreviewReady {
				return e
			}
		case <-time.After(5 * time.Second):
			t.Fatal("timed out waiting for preview event")
		}
	}
}

// collectUntilTerminal drains events until the terminal completed or
// error event arrives.
func collectUntilTerminal(t *testing.T, sink *fakeSink) []Event {
	t.Helper()
	var events []Event
	for {
		select {
		case e := <-sink.ch:
			events = append(events, e)
			if e.Status == StatusError || e.Step == StepComplete {
				return events
			}
		case <-time.After(5 * time.Second):
			t.Fatalf("timed out waiting for terminal event, got %d events", len(events))
		}
	}
}

func threeSceneScript() *script.Script {
	scr := &script.Script{VideoTitle: "Volcano Facts"}
	for i := 0; i < 3; i++ {
		scr.Scenes = append(scr.Scenes, script.Scene{
			ImagePrompts:  []string{fmt.Sprintf("volcano shot %d", i)},
			NarrationText: fmt.Sprintf("Narration for scene %d", i),
		})
	}
	return scr
}

type testEnv struct {
	orchestrator *Orchestrator
	sessions     *MemoryStore
	sink         *fakeSink
	images       *fakeImages
	narrator     *fakeNarrator
	scenes       *fakeScenes
	transcoder   *fakeTranscoder
}

func newTestEnv(t *testing.T, scripts script.Generator) *testEnv {
	env := &testEnv{
		sessions:   NewMemoryStore(time.Minute),
		sink:       newFakeSink(),
		images:     &fakeImages{},
		narrator:   &fakeNarrator{},
		scenes:     &fakeScenes{},
		transcoder: &fakeTranscoder{duration: 5},
	}
	env.orchestrator = NewOrchestrator(Deps{
		Scripts:    scripts,
		Images:     env.images,
		Narrator:   env.narrator,
		Scenes:     env.scenes,
		Transcoder: env.transcoder,
		Store:      &fakeStore{},
		Sessions:   env.sessions,
		Progress:   env.sink,
	}, Options{
		TempDir:       t.TempDir(),
		LeadInSeconds: 0.5,
	})
	return env
}

func TestStartRejectsInvalidRequest(t *testing.T) {
	env := newTestEnv(t, &fakeScripts{script: threeSceneScript()})

	_, err := env.orchestrator.Start(StartRequest{
		Request: script.Request{Genre: script.GenreInformative},
	})
	assert.Error(t, err, "missing topic must fail synchronously")

	_, err = env.orchestrator.Start(StartRequest{
		Request: script.Request{Genre: script.GenreFactReveal, Topic: "ignored"},
	})
	assert.Error(t, err, "factreveal without hook and fact must fail")
}

func TestPipelineEndToEnd(t *testing.T) {
	env := newTestEnv(t, &fakeScripts{script: threeSceneScript()})

	id, err := env.orchestrator.Start(StartRequest{
		Request: script.Request{
			Topic:           "Volcanoes",
			DurationSeconds: 45,
			Genre:           script.GenreInformative,
			Language:        script.LanguageEnglish,
		},
	})
	require.NoError(t, err)
	require.NotEmpty(t, id)

	events := collectUntilTerminal(t, env.sink)

	final := events[len(events)-1]
	assert.Equal(t, StepComplete, final.Step)
	assert.Equal(t, StatusCompleted, final.Status)
	assert.True(t, strings.HasPrefix(final.VideoURL, "/videos/volcano_facts_"), "videoUrl = %q", final.VideoURL)

	assert.Equal(t, 3, env.images.count(), "one image per scene")
	assert.Len(t, env.narrator.texts, 3, "one narration per scene")
	assert.Len(t, env.scenes.reqs, 3, "one clip per scene")
	assert.Len(t, env.transcoder.concats, 1)
	assert.Len(t, env.transcoder.concats[0], 3)
	assert.Len(t, env.transcoder.delayed, 1, "lead-in applied to the first scene only")

	// Every scene clip sees the probed audio duration, and the last
	// scene is flagged for the cta policy.
	for i, req := range env.scenes.reqs {
		assert.Equal(t, 5.0, req.AudioDuration)
		assert.Equal(t, i == 2, req.LastScene)
	}

	// Stage order is monotonic on the stream.
	var steps []string
	for _, e := range events {
		if e.Status == StatusCompleted {
			steps = append(steps, e.Step)
		}
	}
	assert.Equal(t, []string{StepScript, StepImages, StepAudio, StepClips, StepAssembly, StepComplete}, steps)

	_, ok := env.sessions.Get(id)
	assert.False(t, ok, "session released after terminal event")
}

func TestPreviewPausesUntilConfirm(t *testing.T) {
	env := newTestEnv(t, &fakeScripts{script: threeSceneScript()})

	id, err := env.orchestrator.Start(StartRequest{
		Request: script.Request{Topic: "Volcanoes", Genre: script.GenreInformative},
		Preview: true,
	})
	require.NoError(t, err)

	preview := waitForPreview(t, env.sink)
	require.NotNil(t, preview.Data, "preview event carries the script")

	assert.Equal(t, 0, env.images.count(), "no media work before confirm")
	session, ok := env.sessions.Get(id)
	require.True(t, ok)
	assert.Equal(t, StatePreviewWaiting, session.State)

	require.NoError(t, env.orchestrator.Confirm(id))
	events := collectUntilTerminal(t, env.sink)
	assert.Equal(t, StepComplete, events[len(events)-1].Step)
	assert.Equal(t, 3, env.images.count())

	// A consumed session cannot be confirmed again.
	assert.ErrorIs(t, env.orchestrator.Confirm(id), ErrSessionNotFound)
}

func TestConfirmUnknownSession(t *testing.T) {
	env := newTestEnv(t, &fakeScripts{script: threeSceneScript()})
	assert.ErrorIs(t, env.orchestrator.Confirm("nope"), ErrSessionNotFound)
}

func TestConfirmConsumesSessionOnce(t *testing.T) {
	env := newTestEnv(t, &fakeScripts{script: threeSceneScript()})
	env.images.gate = make(chan struct{})

	id, err := env.orchestrator.Start(StartRequest{
		Request: script.Request{Topic: "Volcanoes", Genre: script.GenreInformative},
		Preview: true,
	})
	require.NoError(t, err)
	waitForPreview(t, env.sink)

	// Two confirms race on the same waiting session; the store's
	// compare-and-swap lets exactly one through.
	results := make(chan error, 2)
	for i := 0; i < 2; i++ {
		go func() { results <- env.orchestrator.Confirm(id) }()
	}
	successes := 0
	var confirmErr error
	for i := 0; i < 2; i++ {
		if err := <-results; err == nil {
			successes++
		} else {
			confirmErr = err
		}
	}
	assert.Equal(t, 1, successes, "exactly one confirm may resume the pipeline")
	assert.ErrorIs(t, confirmErr, ErrSessionNotWaiting)

	close(env.images.gate)
	collectUntilTerminal(t, env.sink)
	assert.Equal(t, 3, env.images.count(), "the pipeline ran once")
}

func TestJanitorRunsDuringActiveSessions(t *testing.T) {
	env := newTestEnv(t, &fakeScripts{script: threeSceneScript()})

	// Sweep continuously while the pipeline mutates session state, the
	// situation the race detector watches in this test.
	stop := make(chan struct{})
	done := make(chan struct{})
	go func() {
		defer close(done)
		for {
			select {
			case <-stop:
				return
			default:
				env.sessions.sweep(time.Now())
			}
		}
	}()

	id, err := env.orchestrator.Start(StartRequest{
		Request: script.Request{Topic: "Volcanoes", Genre: script.GenreInformative},
	})
	require.NoError(t, err)

	events := collectUntilTerminal(t, env.sink)
	close(stop)
	<-done

	assert.Equal(t, StepComplete, events[len(events)-1].Step)
	_, ok := env.sessions.Get(id)
	assert.False(t, ok, "session released after terminal event")
}

func TestStageFailureEmitsTerminalError(t *testing.T) {
	env := newTestEnv(t, &fakeScripts{script: threeSceneScript()})
	env.narrator.err = errors.New("voice service unavailable")

	id, err := env.orchestrator.Start(StartRequest{
		Request: script.Request{Topic: "Volcanoes", Genre: script.GenreInformative},
	})
	require.NoError(t, err)

	events := collectUntilTerminal(t, env.sink)
	final := events[len(events)-1]
	assert.Equal(t, StatusError, final.Status)
	assert.Equal(t, StepAudio, final.Step)
	assert.Contains(t, final.Message, "voice service unavailable")

	_, ok := env.sessions.Get(id)
	assert.False(t, ok, "failed session is released")
}

func TestSubscribeBeforeStartSeesEarlyFailure(t *testing.T) {
	broadcaster := NewBroadcaster()
	orchestrator := NewOrchestrator(Deps{
		Scripts:    &fakeScripts{err: errors.New("all script models failed")},
		Images:     &fakeImages{},
		Narrator:   &fakeNarrator{},
		Scenes:     &fakeScenes{},
		Transcoder: &fakeTranscoder{duration: 5},
		Store:      &fakeStore{},
		Sessions:   NewMemoryStore(time.Minute),
		Progress:   broadcaster,
	}, Options{TempDir: t.TempDir()})

	// Subscribing under a pre-chosen id means even a failure published
	// immediately after start cannot be dropped.
	id := NewSessionID()
	events, cancel := broadcaster.Subscribe(id)
	defer cancel()

	require.NoError(t, orchestrator.StartWithID(id, StartRequest{
		Request: script.Request{Topic: "Volcanoes", Genre: script.GenreInformative},
	}))

	for {
		select {
		case e := <-events:
			if e.Status == StatusError {
				assert.Equal(t, StepScript, e.Step)
				return
			}
		case <-time.After(5 * time.Second):
			t.Fatal("timed out waiting for the failure event")
		}
	}
}

func TestScriptFailure(t *testing.T) {
	env := newTestEnv(t, &fakeScripts{err: errors.New("all script models failed")})

	_, err := env.orchestrator.Start(StartRequest{
		Request: script.Request{Topic: "Volcanoes", Genre: script.GenreInformative},
	})
	require.NoError(t, err, "accept response is optimistic")

	events := collectUntilTerminal(t, env.sink)
	final := events[len(events)-1]
	assert.Equal(t, StepScript, final.Step)
	assert.Equal(t, StatusError, final.Status)
	assert.Equal(t, 0, env.images.count())
}
