package export

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/podforge/podforge/internal/audio"
	"github.com/podforge/podforge/internal/cache"
	"github.com/podforge/podforge/internal/codec"
	"github.com/podforge/podforge/internal/tts"
)

// Collaborator capabilities consumed by the clip source. Declared here, on
// the consumer side, so tests can substitute any of them.
type (
	// CloudSynthesizer renders text with a preset cloud voice.
	CloudSynthesizer interface {
		Synthesize(ctx context.Context, text, voice string, speed float64, format string) ([]byte, error)
	}

	// CloneSynthesizer renders text in a reference-conditioned voice.
	CloneSynthesizer interface {
		SynthesizeWithReference(ctx context.Context, req tts.CloneRequest) ([]byte, error)
	}

	// Transcriber recognizes speech in remote audio.
	Transcriber interface {
		Transcribe(ctx context.Context, audioURL, language string) (string, error)
	}

	// Fetcher downloads remote objects.
	Fetcher interface {
		Fetch(ctx context.Context, uri string) ([]byte, error)
	}

	// AudioCache stores encoded synthesis results by content address.
	AudioCache interface {
		Get(key string) ([]byte, error)
		Put(key string, data []byte) error
	}
)

// ClipRequest asks for one logical unit of the podcast as a decoded clip.
type ClipRequest struct {
	Text  string
	Role  Role
	Voice VoiceSpec

	// AudioRef optionally points at already-rendered audio (AI turns only).
	AudioRef string

	// CacheIdentity keys the synthesis result in the TTS cache. Empty
	// disables caching; user-voice synthesis always leaves it empty
	// because it may depend on per-call uploads.
	CacheIdentity string
}

// ClipSource resolves clip requests through an ordered fallback chain. It is
// scoped to a single export job: the lazy reference-transcript memo it keeps
// must not leak across jobs.
type ClipSource struct {
	cloud      CloudSynthesizer
	clone      CloneSynthesizer
	transcribe Transcriber
	fetch      Fetcher
	cache      AudioCache
	transcoder codec.Transcoder
	logger     zerolog.Logger

	fallbackVoice string
	speed         float64

	mu       sync.Mutex
	refTexts map[string]string
}

// ClipSourceConfig wires a ClipSource's collaborators.
type ClipSourceConfig struct {
	Cloud      CloudSynthesizer
	Clone      CloneSynthesizer
	Transcribe Transcriber
	Fetch      Fetcher
	Cache      AudioCache
	Transcoder codec.Transcoder
	Logger     zerolog.Logger

	FallbackVoice string
	Speed         float64
}

// NewClipSource constructs a per-job clip source.
func NewClipSource(cfg ClipSourceConfig) *ClipSource {
	if cfg.Speed == 0 {
		cfg.Speed = 1.0
	}
	return &ClipSource{
		cloud:         cfg.Cloud,
		clone:         cfg.Clone,
		transcribe:    cfg.Transcribe,
		fetch:         cfg.Fetch,
		cache:         cfg.Cache,
		transcoder:    cfg.Transcoder,
		logger:        cfg.Logger,
		fallbackVoice: cfg.FallbackVoice,
		speed:         cfg.Speed,
		refTexts:      make(map[string]string),
	}
}

type strategy struct {
	name string
	run  func(ctx context.Context) (*audio.Clip, []byte, error)
}

// Resolve produces a clip for the request. The fallback chain ends in a
// deterministic placeholder tone, so resolution never fails: a single bad
// message can degrade but never abort an export.
func (s *ClipSource) Resolve(ctx context.Context, req ClipRequest) *audio.Clip {
	for _, st := range s.strategies(req) {
		clip, encoded, err := st.run(ctx)
		if err != nil {
			s.logger.Warn().
				Str("strategy", st.name).
				Str("role", string(req.Role)).
				Err(err).
				Msg("clip strategy failed, falling through")
			continue
		}

		s.logger.Debug().
			Str("strategy", st.name).
			Str("role", string(req.Role)).
			Dur("duration", clip.Duration()).
			Msg("clip resolved")

		if encoded != nil && req.CacheIdentity != "" && s.cache != nil {
			key := cache.Key(req.Text, req.CacheIdentity, s.speed)
			if err := s.cache.Put(key, encoded); err != nil {
				s.logger.Warn().Err(err).Msg("cache write failed")
			}
		}

		return clip
	}

	// Unreachable: the placeholder strategy cannot fail.
	return placeholderClip(req.Role, req.Text)
}

func (s *ClipSource) strategies(req ClipRequest) []strategy {
	var steps []strategy

	if req.AudioRef != "" && req.Role == RoleAI {
		steps = append(steps, strategy{"existing_audio", func(ctx context.Context) (*audio.Clip, []byte, error) {
			return s.fetchAndDecode(ctx, req.AudioRef)
		}})
	}

	if req.CacheIdentity != "" && s.cache != nil {
		steps = append(steps, strategy{"cache", func(ctx context.Context) (*audio.Clip, []byte, error) {
			data, err := s.cache.Get(cache.Key(req.Text, req.CacheIdentity, s.speed))
			if err != nil {
				return nil, nil, err
			}
			clip, err := s.transcoder.Decode(ctx, data)
			// Encoded bytes deliberately not returned: a hit must not
			// rewrite the entry it was served from.
			return clip, nil, err
		}})
	}

	switch req.Voice.Kind {
	case VoiceCloned:
		steps = append(steps,
			strategy{"clone_tts", func(ctx context.Context) (*audio.Clip, []byte, error) {
				return s.synthesizeCloned(ctx, req)
			}},
			strategy{"cloud_fallback", func(ctx context.Context) (*audio.Clip, []byte, error) {
				return s.synthesizeCloud(ctx, req.Text, s.fallbackVoice)
			}},
		)
	case VoiceCloudPreset:
		steps = append(steps, strategy{"cloud_tts", func(ctx context.Context) (*audio.Clip, []byte, error) {
			return s.synthesizeCloud(ctx, req.Text, req.Voice.Preset)
		}})
	default:
		steps = append(steps, strategy{"cloud_default", func(ctx context.Context) (*audio.Clip, []byte, error) {
			return s.synthesizeCloud(ctx, req.Text, s.fallbackVoice)
		}})
	}

	steps = append(steps, strategy{"placeholder_tone", func(ctx context.Context) (*audio.Clip, []byte, error) {
		return placeholderClip(req.Role, req.Text), nil, nil
	}})

	return steps
}

func (s *ClipSource) fetchAndDecode(ctx context.Context, uri string) (*audio.Clip, []byte, error) {
	data, err := s.fetch.Fetch(ctx, uri)
	if err != nil {
		return nil, nil, err
	}
	clip, err := s.transcoder.Decode(ctx, data)
	if err != nil {
		return nil, nil, err
	}
	return clip, nil, nil
}

func (s *ClipSource) synthesizeCloud(ctx context.Context, text, voice string) (*audio.Clip, []byte, error) {
	if s.cloud == nil {
		return nil, nil, errors.New("no cloud synthesizer configured")
	}
	data, err := s.cloud.Synthesize(ctx, text, voice, s.speed, "mp3")
	if err != nil {
		return nil, nil, err
	}
	clip, err := s.transcoder.Decode(ctx, data)
	if err != nil {
		return nil, nil, err
	}
	return clip, data, nil
}

func (s *ClipSource) synthesizeCloned(ctx context.Context, req ClipRequest) (*audio.Clip, []byte, error) {
	if s.clone == nil {
		return nil, nil, errors.New("no clone synthesizer configured")
	}

	refText, err := s.referenceText(ctx, req.Voice)
	if err != nil {
		return nil, nil, err
	}

	data, err := s.clone.SynthesizeWithReference(ctx, tts.CloneRequest{
		Text:              req.Text,
		ReferenceAudioURI: req.Voice.ReferenceAudioURI,
		ReferenceText:     refText,
		ReferenceLanguage: req.Voice.ReferenceLanguage,
		Speed:             s.speed,
	})
	if err != nil {
		return nil, nil, err
	}

	clip, err := s.transcoder.Decode(ctx, data)
	if err != nil {
		return nil, nil, err
	}
	return clip, data, nil
}

// referenceText returns the transcript of the reference audio, transcribing
// it on first use. The memo lives only as long as this job; transcripts are
// deliberately not persisted.
func (s *ClipSource) referenceText(ctx context.Context, voice VoiceSpec) (string, error) {
	if voice.ReferenceText != "" {
		return voice.ReferenceText, nil
	}

	s.mu.Lock()
	memo, ok := s.refTexts[voice.ReferenceAudioURI]
	s.mu.Unlock()
	if ok {
		return memo, nil
	}

	if s.transcribe == nil {
		return "", errors.New("reference text missing and no transcriber configured")
	}

	text, err := s.transcribe.Transcribe(ctx, voice.ReferenceAudioURI, voice.ReferenceLanguage)
	if err != nil {
		return "", err
	}

	s.mu.Lock()
	s.refTexts[voice.ReferenceAudioURI] = text
	s.mu.Unlock()

	return text, nil
}

// Placeholder tone parameters. Frequency and duration derive from the
// speaker role and text length, making each degraded segment deterministic
// and distinguishable.
const (
	placeholderBaseUserHz = 330.0
	placeholderBaseAIHz   = 220.0
	placeholderStepHz     = 25.0
	placeholderAmplitude  = 0.3
	placeholderBaseMS     = 400
	placeholderStepMS     = 20
)

// PlaceholderFrequency reports the tone frequency used for a degraded
// segment of the given role and text.
func PlaceholderFrequency(role Role, text string) float64 {
	base := placeholderBaseAIHz
	if role == RoleUser {
		base = placeholderBaseUserHz
	}
	return base + placeholderStepHz*float64(len(text)%12)
}

// PlaceholderDuration reports the tone duration used for a degraded segment
// of the given text.
func PlaceholderDuration(text string) time.Duration {
	return time.Duration(placeholderBaseMS+placeholderStepMS*(len(text)%10)) * time.Millisecond
}

func placeholderClip(role Role, text string) *audio.Clip {
	return audio.Tone(
		PlaceholderFrequency(role, text),
		PlaceholderDuration(text),
		placeholderAmplitude,
		audio.DefaultSampleRate,
	)
}
