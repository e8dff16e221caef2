package export

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"github.com/podforge/podforge/internal/audio"
	"github.com/podforge/podforge/internal/codec"
)

// Mastering constants.
const (
	musicAttenuationDB = 10.0
	maxFadeDuration    = time.Second
	fadeFraction       = 10
)

// Finisher wraps an assembled conversation body with intro/outro bookends,
// an optional background-music bed, and final mastering, then encodes the
// delivery MP3.
type Finisher struct {
	transcoder  codec.Transcoder
	bitrateKbps int
	logger      zerolog.Logger
}

// NewFinisher constructs a Finisher.
func NewFinisher(transcoder codec.Transcoder, bitrateKbps int, logger zerolog.Logger) *Finisher {
	if bitrateKbps <= 0 {
		bitrateKbps = 128
	}
	return &Finisher{transcoder: transcoder, bitrateKbps: bitrateKbps, logger: logger}
}

// Finish assembles intro + body + outro, mixes music if provided, applies
// fades and a final normalization pass, and encodes to MP3. Any of intro,
// body, or outro may be nil; at least one must be present. Music failures
// are cosmetic and skipped; encode failures are fatal and no partial output
// is returned.
func (f *Finisher) Finish(ctx context.Context, intro, body, outro *audio.Clip, music []byte) ([]byte, error) {
	var parts []*audio.Clip
	for _, c := range []*audio.Clip{intro, body, outro} {
		if c != nil {
			parts = append(parts, c)
		}
	}
	if len(parts) == 0 {
		return nil, ErrNoAudio
	}

	track := audio.Concat(parts...)

	if len(music) > 0 {
		track = f.mixMusic(ctx, track, music)
	}

	fade := track.Duration() / fadeFraction
	if fade > maxFadeDuration {
		fade = maxFadeDuration
	}
	track = audio.FadeOut(audio.FadeIn(track, fade), fade)

	track = Normalize(track)

	data, err := f.transcoder.EncodeMP3(ctx, track, f.bitrateKbps)
	if err != nil {
		return nil, err
	}
	return data, nil
}

// mixMusic decodes the music bed, tiles it to the track length, attenuates
// it, and overlays it. Any failure returns the unmixed track.
func (f *Finisher) mixMusic(ctx context.Context, track *audio.Clip, music []byte) *audio.Clip {
	bed, err := f.transcoder.Decode(ctx, music)
	if err != nil {
		f.logger.Warn().Err(err).Msg("background music decode failed, skipping overlay")
		return track
	}
	if len(bed.Samples) == 0 {
		return track
	}

	bed = audio.Conform(bed, track.SampleRate, track.Channels)
	bed = audio.LoopTo(bed, track.Duration())
	bed = bed.ApplyGain(-musicAttenuationDB)

	return audio.Overlay(track, bed)
}
