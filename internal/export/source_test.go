package export

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/podforge/podforge/internal/audio"
	"github.com/podforge/podforge/internal/cache"
	"github.com/podforge/podforge/internal/tts"
)

// wavCodec is a Transcoder for tests that round-trips through the native WAV
// codec, so no external binary is needed.
type wavCodec struct {
	encodeErr error
}

func (w *wavCodec) Decode(ctx context.Context, data []byte) (*audio.Clip, error) {
	return audio.DecodeWAV(data)
}

func (w *wavCodec) EncodeMP3(ctx context.Context, clip *audio.Clip, bitrateKbps int) ([]byte, error) {
	if w.encodeErr != nil {
		return nil, w.encodeErr
	}
	return audio.EncodeWAV(clip), nil
}

type stubCloud struct {
	mu     sync.Mutex
	calls  int
	voices []string
	texts  []string
	data   func(text string) []byte
	err    error
}

func (s *stubCloud) Synthesize(ctx context.Context, text, voice string, speed float64, format string) ([]byte, error) {
	s.mu.Lock()
	s.calls++
	s.voices = append(s.voices, voice)
	s.texts = append(s.texts, text)
	s.mu.Unlock()

	if s.err != nil {
		return nil, s.err
	}
	return s.data(text), nil
}

type stubClone struct {
	mu    sync.Mutex
	calls int
	reqs  []tts.CloneRequest
	data  func(text string) []byte
	err   error
}

func (s *stubClone) SynthesizeWithReference(ctx context.Context, req tts.CloneRequest) ([]byte, error) {
	s.mu.Lock()
	s.calls++
	s.reqs = append(s.reqs, req)
	s.mu.Unlock()

	if s.err != nil {
		return nil, s.err
	}
	return s.data(req.Text), nil
}

type stubTranscriber struct {
	mu    sync.Mutex
	calls int
	text  string
	err   error
}

func (s *stubTranscriber) Transcribe(ctx context.Context, audioURL, language string) (string, error) {
	s.mu.Lock()
	s.calls++
	s.mu.Unlock()

	if s.err != nil {
		return "", s.err
	}
	return s.text, nil
}

type stubFetcher struct {
	objects map[string][]byte
}

func (s *stubFetcher) Fetch(ctx context.Context, uri string) ([]byte, error) {
	data, ok := s.objects[uri]
	if !ok {
		return nil, errors.New("not found")
	}
	return data, nil
}

type stubCache struct {
	mu      sync.Mutex
	entries map[string][]byte
	puts    int
}

func newStubCache() *stubCache {
	return &stubCache{entries: make(map[string][]byte)}
}

func (s *stubCache) Get(key string) ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	data, ok := s.entries[key]
	if !ok {
		return nil, cache.ErrMiss
	}
	return data, nil
}

func (s *stubCache) Put(key string, data []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.puts++
	s.entries[key] = data
	return nil
}

func wavTone(freq float64, d time.Duration) []byte {
	return audio.EncodeWAV(audio.Tone(freq, d, 0.5, audio.DefaultSampleRate))
}

func newTestSource(cfg ClipSourceConfig) *ClipSource {
	cfg.Logger = zerolog.Nop()
	if cfg.Transcoder == nil {
		cfg.Transcoder = &wavCodec{}
	}
	return NewClipSource(cfg)
}

func TestResolve_ExistingAudioWins(t *testing.T) {
	cloud := &stubCloud{data: func(string) []byte { return wavTone(440, 100*time.Millisecond) }}
	fetcher := &stubFetcher{objects: map[string][]byte{
		"generated/msg.wav": wavTone(220, 300*time.Millisecond),
	}}

	source := newTestSource(ClipSourceConfig{Cloud: cloud, Fetch: fetcher})

	clip := source.Resolve(context.Background(), ClipRequest{
		Text:     "hello",
		Role:     RoleAI,
		Voice:    DefaultVoice(),
		AudioRef: "generated/msg.wav",
	})

	assert.Equal(t, 300*time.Millisecond, clip.Duration())
	assert.Zero(t, cloud.calls)
}

func TestResolve_BrokenAudioRefFallsThrough(t *testing.T) {
	cloud := &stubCloud{data: func(string) []byte { return wavTone(440, 100*time.Millisecond) }}
	fetcher := &stubFetcher{objects: map[string][]byte{}}

	source := newTestSource(ClipSourceConfig{Cloud: cloud, Fetch: fetcher, FallbackVoice: "warm"})

	clip := source.Resolve(context.Background(), ClipRequest{
		Text:     "hello",
		Role:     RoleAI,
		Voice:    DefaultVoice(),
		AudioRef: "generated/missing.wav",
	})

	assert.False(t, clip.IsSilent())
	assert.Equal(t, 1, cloud.calls)
}

func TestResolve_CacheHitSkipsSynthesis(t *testing.T) {
	cloud := &stubCloud{data: func(string) []byte { return wavTone(440, 100*time.Millisecond) }}
	store := newStubCache()
	key := cache.Key("hello", "ai_char1", 1.0)
	store.entries[key] = wavTone(330, 250*time.Millisecond)

	source := newTestSource(ClipSourceConfig{Cloud: cloud, Cache: store, Speed: 1.0})

	clip := source.Resolve(context.Background(), ClipRequest{
		Text:          "hello",
		Role:          RoleAI,
		Voice:         CloudPresetVoice("host"),
		CacheIdentity: "ai_char1",
	})

	assert.Equal(t, 250*time.Millisecond, clip.Duration())
	assert.Zero(t, cloud.calls)
	// A hit must not rewrite the entry it was served from.
	assert.Zero(t, store.puts)
}

func TestResolve_SynthesisResultIsCached(t *testing.T) {
	cloud := &stubCloud{data: func(string) []byte { return wavTone(440, 100*time.Millisecond) }}
	store := newStubCache()

	source := newTestSource(ClipSourceConfig{Cloud: cloud, Cache: store, Speed: 1.0})

	source.Resolve(context.Background(), ClipRequest{
		Text:          "hello",
		Role:          RoleAI,
		Voice:         CloudPresetVoice("host"),
		CacheIdentity: "ai_char1",
	})

	require.Equal(t, 1, store.puts)
	assert.Contains(t, store.entries, cache.Key("hello", "ai_char1", 1.0))
}

func TestResolve_CloneFailureFallsBackToCloud(t *testing.T) {
	clone := &stubClone{err: tts.ErrUnavailable}
	cloud := &stubCloud{data: func(string) []byte { return wavTone(440, 100*time.Millisecond) }}

	source := newTestSource(ClipSourceConfig{Cloud: cloud, Clone: clone, FallbackVoice: "warm"})

	clip := source.Resolve(context.Background(), ClipRequest{
		Text:  "hello",
		Role:  RoleAI,
		Voice: ClonedVoice("user_voices/ref.wav", "ref text", "zh"),
	})

	assert.False(t, clip.IsSilent())
	assert.Equal(t, 1, clone.calls)
	require.Equal(t, 1, cloud.calls)
	assert.Equal(t, "warm", cloud.voices[0])
}

func TestResolve_EverythingFailsYieldsPlaceholder(t *testing.T) {
	clone := &stubClone{err: tts.ErrUnavailable}
	cloud := &stubCloud{err: tts.ErrUnavailable}

	source := newTestSource(ClipSourceConfig{Cloud: cloud, Clone: clone, FallbackVoice: "warm"})

	text := "some message text"
	clip := source.Resolve(context.Background(), ClipRequest{
		Text:  text,
		Role:  RoleUser,
		Voice: ClonedVoice("user_voices/ref.wav", "ref text", "zh"),
	})

	require.NotNil(t, clip)
	assert.False(t, clip.IsSilent())
	assert.Equal(t, PlaceholderDuration(text), clip.Duration())
}

func TestResolve_LazyTranscriptionMemo(t *testing.T) {
	transcriber := &stubTranscriber{text: "recovered reference"}
	clone := &stubClone{data: func(string) []byte { return wavTone(440, 100*time.Millisecond) }}

	source := newTestSource(ClipSourceConfig{Clone: clone, Transcribe: transcriber})

	voice := ClonedVoice("user_voices/ref.wav", "", "zh")
	source.Resolve(context.Background(), ClipRequest{Text: "one", Role: RoleUser, Voice: voice})
	source.Resolve(context.Background(), ClipRequest{Text: "two", Role: RoleUser, Voice: voice})

	assert.Equal(t, 1, transcriber.calls)
	require.Equal(t, 2, clone.calls)
	assert.Equal(t, "recovered reference", clone.reqs[0].ReferenceText)
	assert.Equal(t, "recovered reference", clone.reqs[1].ReferenceText)
}

func TestResolve_TranscriptionFailureFallsBack(t *testing.T) {
	transcriber := &stubTranscriber{err: errors.New("asr down")}
	clone := &stubClone{data: func(string) []byte { return wavTone(440, 100*time.Millisecond) }}
	cloud := &stubCloud{data: func(string) []byte { return wavTone(440, 100*time.Millisecond) }}

	source := newTestSource(ClipSourceConfig{
		Cloud:         cloud,
		Clone:         clone,
		Transcribe:    transcriber,
		FallbackVoice: "warm",
	})

	clip := source.Resolve(context.Background(), ClipRequest{
		Text:  "hello",
		Role:  RoleUser,
		Voice: ClonedVoice("user_voices/ref.wav", "", "zh"),
	})

	assert.False(t, clip.IsSilent())
	assert.Zero(t, clone.calls)
	assert.Equal(t, 1, cloud.calls)
}

func TestResolve_CloudPresetUsesRequestedVoice(t *testing.T) {
	cloud := &stubCloud{data: func(string) []byte { return wavTone(440, 100*time.Millisecond) }}

	source := newTestSource(ClipSourceConfig{Cloud: cloud})

	source.Resolve(context.Background(), ClipRequest{
		Text:  "welcome",
		Role:  RoleUser,
		Voice: CloudPresetVoice("zh_male_host"),
	})

	require.Equal(t, 1, cloud.calls)
	assert.Equal(t, "zh_male_host", cloud.voices[0])
}

func TestPlaceholder_Deterministic(t *testing.T) {
	assert.Equal(t, PlaceholderFrequency(RoleUser, "abc"), PlaceholderFrequency(RoleUser, "abc"))
	assert.NotEqual(t, PlaceholderFrequency(RoleUser, "abc"), PlaceholderFrequency(RoleAI, "abc"))
	assert.Equal(t, 400*time.Millisecond, PlaceholderDuration(""))
}
