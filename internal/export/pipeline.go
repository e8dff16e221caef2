package export

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/podforge/podforge/internal/audio"
	"github.com/podforge/podforge/internal/codec"
	"github.com/podforge/podforge/internal/schema"
	"github.com/podforge/podforge/internal/storage"
)

// ErrNoAudio is returned when an export produces no audio at all. An empty
// track has no product value, so this is one of the two fatal error classes
// (the other being final-encode failure).
var ErrNoAudio = errors.New("export: no audio produced")

// Uploader stores per-job payloads (custom voice references) so the cloning
// backend can reach them by URI.
type Uploader interface {
	Upload(ctx context.Context, data []byte, key, mimeType string) (string, error)
}

// Pipeline owns the long-lived collaborators and runs export jobs. One
// Pipeline serves many jobs; per-job state (clip source memo, buffers) is
// created inside Export and dies with it.
type Pipeline struct {
	cloud      CloudSynthesizer
	clone      CloneSynthesizer
	transcribe Transcriber
	fetch      Fetcher
	uploads    Uploader
	cache      AudioCache
	transcoder codec.Transcoder
	finisher   *Finisher
	logger     zerolog.Logger

	hostVoice     string
	fallbackVoice string
	synthWorkers  int
}

// PipelineConfig wires a Pipeline.
type PipelineConfig struct {
	Cloud      CloudSynthesizer
	Clone      CloneSynthesizer
	Transcribe Transcriber
	Fetch      Fetcher
	Uploads    Uploader
	Cache      AudioCache
	Transcoder codec.Transcoder
	Logger     zerolog.Logger

	HostVoice     string
	FallbackVoice string
	SynthWorkers  int
	BitrateKbps   int
}

// NewPipeline constructs a Pipeline.
func NewPipeline(cfg PipelineConfig) *Pipeline {
	if cfg.SynthWorkers <= 0 {
		cfg.SynthWorkers = 4
	}
	return &Pipeline{
		cloud:         cfg.Cloud,
		clone:         cfg.Clone,
		transcribe:    cfg.Transcribe,
		fetch:         cfg.Fetch,
		uploads:       cfg.Uploads,
		cache:         cfg.Cache,
		transcoder:    cfg.Transcoder,
		finisher:      NewFinisher(cfg.Transcoder, cfg.BitrateKbps, cfg.Logger),
		logger:        cfg.Logger,
		hostVoice:     cfg.HostVoice,
		fallbackVoice: cfg.FallbackVoice,
		synthWorkers:  cfg.SynthWorkers,
	}
}

// Export runs one job to completion and returns the encoded MP3.
func (p *Pipeline) Export(ctx context.Context, job *Job) ([]byte, error) {
	start := time.Now()
	p.logger.Info().
		Int("messages", len(job.Messages)).
		Str("user_voice_type", job.UserVoiceType).
		Bool("music", len(job.MusicData) > 0).
		Msg("export started")

	source := NewClipSource(ClipSourceConfig{
		Cloud:         p.cloud,
		Clone:         p.clone,
		Transcribe:    p.transcribe,
		Fetch:         p.fetch,
		Cache:         p.cache,
		Transcoder:    p.transcoder,
		Logger:        p.logger,
		FallbackVoice: p.fallbackVoice,
		Speed:         job.SpeedRatio,
	})

	userVoice := p.resolveUserVoice(ctx, job)
	aiVoice := p.resolveAIVoice(job.Character)

	clips, err := p.resolveMessageClips(ctx, source, job, userVoice, aiVoice)
	if err != nil {
		return nil, err
	}

	// Bookend lines always render through the cloud "host" preset so
	// every export opens and closes with a consistent voice, independent
	// of the conversational voice selection.
	intro := p.resolveBookend(ctx, source, job.IntroText)
	outro := p.resolveBookend(ctx, source, job.OutroText)

	var timeline Timeline
	for i, clip := range clips {
		timeline.Add(clip)
		if i < len(clips)-1 {
			timeline.AddPause()
		}
	}
	body := timeline.Assemble()

	data, err := p.finisher.Finish(ctx, intro, body, outro, job.MusicData)
	if err != nil {
		p.logger.Error().Err(err).Msg("export failed")
		return nil, err
	}

	p.logger.Info().
		Int("bytes", len(data)).
		Dur("elapsed", time.Since(start)).
		Msg("export finished")
	return data, nil
}

// resolveMessageClips renders every message clip, fanning synthesis out
// across a bounded worker group and re-joining results by original index so
// timeline order is always transcript order.
func (p *Pipeline) resolveMessageClips(ctx context.Context, source *ClipSource, job *Job, userVoice, aiVoice VoiceSpec) ([]*audio.Clip, error) {
	clips := make([]*audio.Clip, len(job.Messages))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(p.synthWorkers)

	for i, msg := range job.Messages {
		i, msg := i, msg
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}

			req := ClipRequest{Text: msg.Content}
			if msg.IsUser {
				req.Role = RoleUser
				req.Voice = userVoice
				// User synthesis may depend on per-call uploads,
				// so it is never cached.
			} else {
				req.Role = RoleAI
				req.Voice = aiVoice
				req.AudioRef = msg.AudioRef
				if job.Character != nil {
					req.CacheIdentity = "ai_" + job.Character.ID
				}
			}

			clip := source.Resolve(gctx, req)
			if msg.IsUser {
				clip = NormalizeWithGain(clip, UserTargetDBFS)
			} else {
				clip = Normalize(clip)
			}

			clips[i] = clip
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return clips, nil
}

func (p *Pipeline) resolveBookend(ctx context.Context, source *ClipSource, text string) *audio.Clip {
	if text == "" {
		return nil
	}
	clip := source.Resolve(ctx, ClipRequest{
		Text:  text,
		Role:  RoleAI,
		Voice: CloudPresetVoice(p.hostVoice),
	})
	return Normalize(clip)
}

// resolveUserVoice picks the voice for user turns. Custom uploads are stored
// once so the cloning backend can fetch them; a failed upload degrades to
// the host preset rather than failing the job.
func (p *Pipeline) resolveUserVoice(ctx context.Context, job *Job) VoiceSpec {
	custom := job.UserVoiceType == schema.VoiceCustomUpload || job.UserVoiceType == schema.VoiceCustomRecord
	if !custom || len(job.UserVoiceData) == 0 {
		return CloudPresetVoice(p.hostVoice)
	}
	if p.uploads == nil {
		p.logger.Warn().Msg("custom voice requested but no uploader configured, using host preset")
		return CloudPresetVoice(p.hostVoice)
	}

	key := storage.ObjectKey("user_voices", "reference.wav")
	uri, err := p.uploads.Upload(ctx, job.UserVoiceData, key, "audio/wav")
	if err != nil {
		p.logger.Warn().Err(err).Msg("custom voice upload failed, using host preset")
		return CloudPresetVoice(p.hostVoice)
	}

	// Reference text is unknown for ad-hoc uploads; the clip source
	// transcribes it lazily on first use.
	return ClonedVoice(uri, "", "zh")
}

func (p *Pipeline) resolveAIVoice(character *schema.Character) VoiceSpec {
	if character == nil || character.ReferenceAudioURI == "" {
		return DefaultVoice()
	}
	return ClonedVoice(character.ReferenceAudioURI, character.ReferenceText, character.ReferenceLanguage)
}
