package api

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/rs/zerolog"

	"github.com/podforge/podforge/internal/cache"
	"github.com/podforge/podforge/internal/export"
	"github.com/podforge/podforge/internal/limiter"
	"github.com/podforge/podforge/internal/schema"
	"github.com/podforge/podforge/internal/tts"
)

// Handler capabilities, declared on the consumer side for test substitution.
type (
	// Exporter runs podcast export jobs.
	Exporter interface {
		Export(ctx context.Context, job *export.Job) ([]byte, error)
	}

	// CharacterDirectory supplies character records by id.
	CharacterDirectory interface {
		Character(ctx context.Context, id string) (*schema.Character, error)
	}

	// VoiceCatalogue lists the cloud gateway's preset voices.
	VoiceCatalogue interface {
		Voices(ctx context.Context) ([]tts.Voice, error)
	}

	// CacheMaintainer exposes cache statistics and age-based cleanup.
	CacheMaintainer interface {
		Stats() (cache.Stats, error)
		EvictOlderThan(maxAge time.Duration) (int, error)
	}
)

// Handler serves the export API.
type Handler struct {
	exporter   Exporter
	characters CharacterDirectory
	voices     VoiceCatalogue
	cache      CacheMaintainer
	gate       *limiter.Gate
	metrics    *limiter.Metrics
	logger     zerolog.Logger

	cacheMaxAge time.Duration
}

// HandlerConfig wires a Handler.
type HandlerConfig struct {
	Exporter   Exporter
	Characters CharacterDirectory
	Voices     VoiceCatalogue
	Cache      CacheMaintainer
	Gate       *limiter.Gate
	Metrics    *limiter.Metrics
	Logger     zerolog.Logger

	CacheMaxAge time.Duration
}

// NewHandler constructs a Handler.
func NewHandler(cfg HandlerConfig) *Handler {
	return &Handler{
		exporter:    cfg.Exporter,
		characters:  cfg.Characters,
		voices:      cfg.Voices,
		cache:       cfg.Cache,
		gate:        cfg.Gate,
		metrics:     cfg.Metrics,
		logger:      cfg.Logger,
		cacheMaxAge: cfg.CacheMaxAge,
	}
}

// HandleHealth reports server liveness.
func (h *Handler) HandleHealth(w http.ResponseWriter, r *http.Request) {
	WriteJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// HandleExport runs one podcast export job and responds with the MP3.
func (h *Handler) HandleExport(w http.ResponseWriter, r *http.Request) {
	req, uploads, err := ParseExportRequest(r)
	if err != nil {
		if httpErr, ok := IsHTTPError(err); ok {
			WriteError(w, httpErr.Status, httpErr.Message)
			return
		}
		WriteError(w, http.StatusBadRequest, "Invalid request")
		return
	}

	release, err := h.gate.Acquire(r.Context())
	if err != nil {
		h.writeGateError(w, err)
		return
	}
	defer release()

	character := req.Character
	if character == nil {
		character, err = h.characters.Character(r.Context(), req.CharacterID)
		if err != nil {
			h.metrics.IncFailedJobs()
			h.writeCollaboratorError(w, "character lookup failed", err)
			return
		}
	}

	job, err := export.NewJob(req, character, uploads.UserVoice, uploads.Music)
	if err != nil {
		h.metrics.IncFailedJobs()
		WriteError(w, http.StatusBadRequest, err.Error())
		return
	}

	data, err := h.exporter.Export(r.Context(), job)
	if err != nil {
		h.metrics.IncFailedJobs()
		switch {
		case errors.Is(err, export.ErrNoAudio):
			WriteError(w, http.StatusUnprocessableEntity, "export produced no audio")
		case errors.Is(err, context.Canceled):
			// Client went away, nothing useful to write.
		default:
			h.logger.Error().Err(err).Msg("export failed")
			WriteError(w, http.StatusInternalServerError, "export failed")
		}
		return
	}

	h.metrics.IncCompletedJobs()
	WriteAudio(w, "mp3", "podcast.mp3", data)
}

// HandleVoices lists the cloud gateway's preset voice catalogue.
func (h *Handler) HandleVoices(w http.ResponseWriter, r *http.Request) {
	voices, err := h.voices.Voices(r.Context())
	if err != nil {
		h.writeCollaboratorError(w, "voice catalogue unavailable", err)
		return
	}
	WriteJSON(w, http.StatusOK, map[string]interface{}{"voices": voices})
}

// HandleCacheStats reports entry count and total size of the TTS cache.
func (h *Handler) HandleCacheStats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.cache.Stats()
	if err != nil {
		WriteError(w, http.StatusInternalServerError, err.Error())
		return
	}
	WriteJSON(w, http.StatusOK, stats)
}

// HandleCacheCleanup evicts cache entries older than the configured max age.
func (h *Handler) HandleCacheCleanup(w http.ResponseWriter, r *http.Request) {
	removed, err := h.cache.EvictOlderThan(h.cacheMaxAge)
	if err != nil {
		WriteError(w, http.StatusInternalServerError, err.Error())
		return
	}
	WriteJSON(w, http.StatusOK, map[string]int{"removed": removed})
}

// HandleMetrics reports job counters.
func (h *Handler) HandleMetrics(w http.ResponseWriter, r *http.Request) {
	WriteJSON(w, http.StatusOK, h.metrics.Snapshot())
}

func (h *Handler) writeGateError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, limiter.ErrBusy):
		WriteError(w, http.StatusServiceUnavailable, "concurrent export limit reached")
	case errors.Is(err, limiter.ErrAcquireTimeout):
		WriteError(w, http.StatusGatewayTimeout, "concurrent export limit reached")
	default:
		WriteError(w, http.StatusInternalServerError, err.Error())
	}
}

func (h *Handler) writeCollaboratorError(w http.ResponseWriter, message string, err error) {
	h.logger.Error().Err(err).Msg(message)

	var apiErr *tts.APIError
	if errors.As(err, &apiErr) && apiErr.StatusCode == http.StatusNotFound {
		WriteError(w, http.StatusNotFound, message)
		return
	}
	WriteError(w, http.StatusBadGateway, message)
}
