package app

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/hykvra/AI-Video-Creator/internal/script"
)

// State is a session's position in the pipeline.
type State string

const (
	StateCreated        State = "created"
	StateScriptPending  State = "script_pending"
	StateScriptReady    State = "script_ready"
	StatePreviewWaiting State = "preview_waiting"
	StateImagesPending  State = "images_pending"
	StateImagesReady    State = "images_ready"
	StateAudioPending   State = "audio_pending"
	StateAudioReady     State = "audio_ready"
	StateClipsPending   State = "clips_pending"
	StateAssembling     State = "assembling"
	StateUploading      State = "uploading"
	StateCompleted      State = "completed"
	StateFailed         State = "failed"
)

var (
	ErrSessionNotFound   = errors.New("session not found")
	ErrSessionNotWaiting = errors.New("session is not awaiting confirmation")
)

// Session is one video-creation run. Request params are immutable once
// accepted; Script is stored only for the preview pause. Sessions move
// through the store by value: each goroutine works on its own copy and
// the store holds the authoritative state.
type Session struct {
	ID        string
	State     State
	Params    script.Request
	Script    *script.Script
	CreatedAt time.Time
	UpdatedAt time.Time
}

// SessionStore persists sessions for their active lifetime. All state
// transitions go through the store so concurrent readers, the janitor
// included, never observe a torn write.
type SessionStore interface {
	Put(s Session)
	Get(id string) (Session, bool)
	SetState(id string, state State)
	// UpdateState transitions id between two states atomically and
	// reports whether the swap happened.
	UpdateState(id string, from, to State) bool
	Delete(id string)
}

// MemoryStore keeps sessions in a map. Sessions parked in
// preview_waiting longer than the TTL are evicted by a janitor so an
// abandoned preview does not hold its script forever.
type MemoryStore struct {
	mu       sync.Mutex
	sessions map[string]*Session
	ttl      time.Duration
}

func NewMemoryStore(previewTTL time.Duration) *MemoryStore {
	return &MemoryStore{
		sessions: make(map[string]*Session),
		ttl:      previewTTL,
	}
}

func (m *MemoryStore) Put(s Session) {
	s.UpdatedAt = time.Now()
	m.mu.Lock()
	m.sessions[s.ID] = &s
	m.mu.Unlock()
}

func (m *MemoryStore) Get(id string) (Session, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.sessions[id]
	if !ok {
		return Session{}, false
	}
	return *s, true
}

func (m *MemoryStore) SetState(id string, state State) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if s, ok := m.sessions[id]; ok {
		s.State = state
		s.UpdatedAt = time.Now()
	}
}

func (m *MemoryStore) UpdateState(id string, from, to State) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.sessions[id]
	if !ok || s.State != from {
		return false
	}
	s.State = to
	s.UpdatedAt = time.Now()
	return true
}

func (m *MemoryStore) Delete(id string) {
	m.mu.Lock()
	delete(m.sessions, id)
	m.mu.Unlock()
}

// StartJanitor sweeps expired preview sessions until ctx is done.
func (m *MemoryStore) StartJanitor(ctx context.Context, interval time.Duration) {
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				m.sweep(time.Now())
			}
		}
	}()
}

func (m *MemoryStore) sweep(now time.Time) {
	if m.ttl <= 0 {
		return
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	for id, s := range m.sessions {
		if s.State == StatePreviewWaiting && now.Sub(s.UpdatedAt) > m.ttl {
			delete(m.sessions, id)
		}
	}
}
