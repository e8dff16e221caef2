package export

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/podforge/podforge/internal/audio"
)

func decodeTrack(t *testing.T, data []byte) *audio.Clip {
	t.Helper()
	clip, err := audio.DecodeWAV(data)
	require.NoError(t, err)
	return clip
}

func TestFinish_ConcatsBookendsAndBody(t *testing.T) {
	f := NewFinisher(&wavCodec{}, 128, zerolog.Nop())

	intro := audio.Tone(300, 600*time.Millisecond, 0.3, audio.DefaultSampleRate)
	body := audio.Tone(440, 1000*time.Millisecond, 0.3, audio.DefaultSampleRate)
	outro := audio.Tone(500, 600*time.Millisecond, 0.3, audio.DefaultSampleRate)

	data, err := f.Finish(context.Background(), intro, body, outro, nil)
	require.NoError(t, err)

	out := decodeTrack(t, data)
	assert.Equal(t, 2200*time.Millisecond, out.Duration())
}

func TestFinish_BodyOnly(t *testing.T) {
	f := NewFinisher(&wavCodec{}, 128, zerolog.Nop())

	body := audio.Tone(440, 1000*time.Millisecond, 0.3, audio.DefaultSampleRate)

	data, err := f.Finish(context.Background(), nil, body, nil, nil)
	require.NoError(t, err)

	out := decodeTrack(t, data)
	assert.Equal(t, 1000*time.Millisecond, out.Duration())
}

func TestFinish_NoAudio(t *testing.T) {
	f := NewFinisher(&wavCodec{}, 128, zerolog.Nop())

	_, err := f.Finish(context.Background(), nil, nil, nil, nil)
	assert.ErrorIs(t, err, ErrNoAudio)
}

func TestFinish_MusicLoopsUnderTrack(t *testing.T) {
	f := NewFinisher(&wavCodec{}, 128, zerolog.Nop())

	body := audio.Silence(3*time.Second, audio.DefaultSampleRate, 1)
	music := wavTone(440, 400*time.Millisecond)

	data, err := f.Finish(context.Background(), nil, body, nil, music)
	require.NoError(t, err)

	out := decodeTrack(t, data)
	// Track length is governed by the speech, not the music.
	assert.Equal(t, 3*time.Second, out.Duration())

	// The looped bed keeps playing well past the music's own length.
	late := int(2.5 * float64(audio.DefaultSampleRate))
	assert.Greater(t, segmentDBFS(out, late, late+4410), -40.0)
}

func TestFinish_MusicDecodeFailureIsCosmetic(t *testing.T) {
	f := NewFinisher(&wavCodec{}, 128, zerolog.Nop())

	body := audio.Tone(440, 1000*time.Millisecond, 0.3, audio.DefaultSampleRate)

	data, err := f.Finish(context.Background(), nil, body, nil, []byte("not audio at all"))
	require.NoError(t, err)

	out := decodeTrack(t, data)
	assert.Equal(t, 1000*time.Millisecond, out.Duration())
}

func TestFinish_AppliesFades(t *testing.T) {
	f := NewFinisher(&wavCodec{}, 128, zerolog.Nop())

	body := audio.Tone(440, 2*time.Second, 0.8, audio.DefaultSampleRate)

	data, err := f.Finish(context.Background(), nil, body, nil, nil)
	require.NoError(t, err)

	out := decodeTrack(t, data)
	// 2 s track fades over 200 ms at each edge; the very first and last
	// samples are fully attenuated.
	assert.Zero(t, out.Samples[0])
	assert.InDelta(t, 0, out.Samples[len(out.Samples)-1], 0.001)
}

func TestFinish_EncodeFailureIsFatal(t *testing.T) {
	f := NewFinisher(&wavCodec{encodeErr: errors.New("encoder exploded")}, 128, zerolog.Nop())

	body := audio.Tone(440, 1000*time.Millisecond, 0.3, audio.DefaultSampleRate)

	_, err := f.Finish(context.Background(), nil, body, nil, nil)
	assert.Error(t, err)
}
