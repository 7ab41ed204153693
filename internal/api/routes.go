package api

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/hykvra/AI-Video-Creator/internal/app"
	"github.com/hykvra/AI-Video-Creator/internal/script"
	"github.com/hykvra/AI-Video-Creator/internal/storage"
)

// ServerConfig carries the handlers' dependencies.
type ServerConfig struct {
	Orchestrator *app.Orchestrator
	Broadcaster  *app.Broadcaster
	Store        storage.Store
	VideoDir     string
	Logger       *slog.Logger
	StartTime    time.Time
}

func NewRouter(cfg ServerConfig) *chi.Mux {
	r := chi.NewRouter()

	r.Use(RequestIDMiddleware())
	r.Use(RecoveryMiddleware(cfg.Logger))
	r.Use(LoggingMiddleware(cfg.Logger))

	r.Get("/health", healthHandler(cfg))

	r.Route("/api/videos", func(r chi.Router) {
		r.Post("/", createVideoHandler(cfg))
		r.Get("/", listVideosHandler(cfg))
		r.Get("/{sessionId}/events", eventsHandler(cfg))
		r.Post("/{sessionId}/confirm", confirmHandler(cfg))
	})

	if cfg.VideoDir != "" {
		fileServer := http.StripPrefix("/videos/", http.FileServer(http.Dir(cfg.VideoDir)))
		r.Get("/videos/*", fileServer.ServeHTTP)
	}

	return r
}

func healthHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		WriteJSON(w, http.StatusOK, HealthResponse{
			Status:  "ok",
			UptimeS: int64(time.Since(cfg.StartTime).Seconds()),
		})
	}
}

// createVideoHandler accepts a generation request and answers
// optimistically: a 200 only means the session was created, and all
// further outcomes arrive on the event stream.
func createVideoHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req CreateVideoRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			WriteError(w, http.StatusBadRequest, "invalid request body", "BAD_REQUEST")
			return
		}

		sessionID, err := cfg.Orchestrator.Start(app.StartRequest{
			Request: script.Request{
				Topic:           req.Topic,
				Hook:            req.Hook,
				Fact:            req.Fact,
				DurationSeconds: req.DurationSeconds,
				Genre:           script.NormalizeGenre(req.Genre),
				ComedyLevel:     script.NormalizeComedyLevel(req.ComedyLevel),
				Language:        script.NormalizeLanguage(req.Language),
			},
			Preview: req.Preview,
		})
		if err != nil {
			WriteError(w, http.StatusBadRequest, err.Error(), "BAD_REQUEST")
			return
		}

		WriteJSON(w, http.StatusOK, CreateVideoResponse{
			Success:   true,
			SessionID: sessionID,
			Message:   "Video generation started",
		})
	}
}

// eventsHandler streams a session's progress as newline-delimited JSON,
// one event per line, flushed immediately. The stream ends when the
// session reaches a terminal event or the client disconnects.
func eventsHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sessionID := chi.URLParam(r, "sessionId")
		if sessionID == "" {
			WriteError(w, http.StatusBadRequest, "session id required", "BAD_REQUEST")
			return
		}

		flusher, ok := w.(http.Flusher)
		if !ok {
			WriteError(w, http.StatusInternalServerError, "streaming unsupported", "INTERNAL_ERROR")
			return
		}

		w.Header().Set("Content-Type", "application/x-ndjson")
		w.Header().Set("Cache-Control", "no-cache")
		w.WriteHeader(http.StatusOK)
		flusher.Flush()

		events, cancel := cfg.Broadcaster.Subscribe(sessionID)
		defer cancel()

		encoder := json.NewEncoder(w)
		for {
			select {
			case <-r.Context().Done():
				return
			case event, open := <-events:
				if !open {
					return
				}
				if err := encoder.Encode(event); err != nil {
					return
				}
				flusher.Flush()
				if event.Status == app.StatusError || event.Step == app.StepComplete {
					return
				}
			}
		}
	}
}

// listVideosHandler reports every previously stored video by name.
func listVideosHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		names, err := cfg.Store.ListVideos(r.Context())
		if err != nil {
			WriteError(w, http.StatusInternalServerError, "failed to list videos", "INTERNAL_ERROR")
			return
		}
		if names == nil {
			names = []string{}
		}
		WriteJSON(w, http.StatusOK, ListVideosResponse{Videos: names})
	}
}

func confirmHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sessionID := chi.URLParam(r, "sessionId")
		if sessionID == "" {
			WriteError(w, http.StatusBadRequest, "session id required", "BAD_REQUEST")
			return
		}

		if err := cfg.Orchestrator.Confirm(sessionID); err != nil {
			if errors.Is(err, app.ErrSessionNotFound) || errors.Is(err, app.ErrSessionNotWaiting) {
				WriteError(w, http.StatusNotFound, "session not found or not awaiting confirmation", "NOT_FOUND")
				return
			}
			WriteError(w, http.StatusInternalServerError, err.Error(), "INTERNAL_ERROR")
			return
		}

		WriteJSON(w, http.StatusOK, ConfirmResponse{
			Success: true,
			Message: "Video generation resumed",
		})
	}
}
