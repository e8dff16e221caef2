package export

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/podforge/podforge/internal/audio"
	"github.com/podforge/podforge/internal/schema"
)

type stubUploader struct {
	mu    sync.Mutex
	calls int
	uri   string
	err   error
}

func (s *stubUploader) Upload(ctx context.Context, data []byte, key, mimeType string) (string, error) {
	s.mu.Lock()
	s.calls++
	s.mu.Unlock()

	if s.err != nil {
		return "", s.err
	}
	return s.uri, nil
}

func newTestPipeline(cfg PipelineConfig) *Pipeline {
	cfg.Logger = zerolog.Nop()
	if cfg.Transcoder == nil {
		cfg.Transcoder = &wavCodec{}
	}
	if cfg.HostVoice == "" {
		cfg.HostVoice = "host"
	}
	if cfg.FallbackVoice == "" {
		cfg.FallbackVoice = "warm"
	}
	if cfg.SynthWorkers == 0 {
		cfg.SynthWorkers = 2
	}
	return NewPipeline(cfg)
}

func countCrossings(samples []float64) int {
	n := 0
	for i := 1; i < len(samples); i++ {
		if (samples[i-1] < 0) != (samples[i] < 0) {
			n++
		}
	}
	return n
}

func TestExport_BasicConversation(t *testing.T) {
	cloud := &stubCloud{data: func(string) []byte { return wavTone(440, 600*time.Millisecond) }}

	p := newTestPipeline(PipelineConfig{Cloud: cloud})

	job := &Job{
		Messages: []schema.Message{
			{Content: "hi there", IsUser: true},
			{Content: "hello!", IsUser: false},
		},
		UserVoiceType: schema.VoiceCloudPreset,
		IntroText:     "welcome",
		OutroText:     "goodbye",
	}

	data, err := p.Export(context.Background(), job)
	require.NoError(t, err)

	out := decodeTrack(t, data)
	// intro + user + pause + ai + outro
	assert.Equal(t, 2900*time.Millisecond, out.Duration())

	// Bookends and the preset user voice use the host voice; the AI turn
	// falls back to the default preset.
	assert.Contains(t, cloud.voices, "host")
	assert.Contains(t, cloud.voices, "warm")
}

func TestExport_PreservesMessageOrder(t *testing.T) {
	cloud := &stubCloud{data: func(text string) []byte {
		if text == "low" {
			return wavTone(200, 600*time.Millisecond)
		}
		return wavTone(2000, 600*time.Millisecond)
	}}

	p := newTestPipeline(PipelineConfig{Cloud: cloud, SynthWorkers: 4})

	job := &Job{
		Messages: []schema.Message{
			{Content: "low", IsUser: true},
			{Content: "high", IsUser: true},
		},
		UserVoiceType: schema.VoiceCloudPreset,
	}

	data, err := p.Export(context.Background(), job)
	require.NoError(t, err)

	out := decodeTrack(t, data)
	// clip(600) + pause(500) + clip(600)
	require.Equal(t, 1700*time.Millisecond, out.Duration())

	rate := float64(audio.DefaultSampleRate)
	seg1 := out.Samples[int(0.2*rate):int(0.4*rate)]
	seg2 := out.Samples[int(1.3*rate):int(1.5*rate)]

	// The low tone must come first regardless of which worker finished it.
	assert.Greater(t, countCrossings(seg2), 3*countCrossings(seg1))
}

func TestExport_CustomVoiceUploadsOnce(t *testing.T) {
	uploader := &stubUploader{uri: "user_voices/ref.wav"}
	transcriber := &stubTranscriber{text: "reference transcript"}
	clone := &stubClone{data: func(string) []byte { return wavTone(440, 600*time.Millisecond) }}
	cloud := &stubCloud{data: func(string) []byte { return wavTone(440, 600*time.Millisecond) }}

	p := newTestPipeline(PipelineConfig{
		Cloud:      cloud,
		Clone:      clone,
		Transcribe: transcriber,
		Uploads:    uploader,
	})

	job := &Job{
		Messages: []schema.Message{
			{Content: "first", IsUser: true},
			{Content: "second", IsUser: true},
		},
		UserVoiceType: schema.VoiceCustomUpload,
		UserVoiceData: []byte("fake wav bytes"),
	}

	_, err := p.Export(context.Background(), job)
	require.NoError(t, err)

	assert.Equal(t, 1, uploader.calls)
	assert.Equal(t, 1, transcriber.calls)
	require.Equal(t, 2, clone.calls)
	assert.Equal(t, "user_voices/ref.wav", clone.reqs[0].ReferenceAudioURI)
	assert.Zero(t, cloud.calls)
}

func TestExport_UploadFailureDegradesToHostPreset(t *testing.T) {
	uploader := &stubUploader{err: errors.New("storage down")}
	clone := &stubClone{data: func(string) []byte { return wavTone(440, 600*time.Millisecond) }}
	cloud := &stubCloud{data: func(string) []byte { return wavTone(440, 600*time.Millisecond) }}

	p := newTestPipeline(PipelineConfig{Cloud: cloud, Clone: clone, Uploads: uploader})

	job := &Job{
		Messages:      []schema.Message{{Content: "hello", IsUser: true}},
		UserVoiceType: schema.VoiceCustomRecord,
		UserVoiceData: []byte("fake wav bytes"),
	}

	_, err := p.Export(context.Background(), job)
	require.NoError(t, err)

	assert.Zero(t, clone.calls)
	require.Equal(t, 1, cloud.calls)
	assert.Equal(t, "host", cloud.voices[0])
}

func TestExport_ClonedCharacterVoice(t *testing.T) {
	clone := &stubClone{data: func(string) []byte { return wavTone(440, 600*time.Millisecond) }}
	cloud := &stubCloud{data: func(string) []byte { return wavTone(440, 600*time.Millisecond) }}

	p := newTestPipeline(PipelineConfig{Cloud: cloud, Clone: clone})

	job := &Job{
		Messages: []schema.Message{{Content: "in character", IsUser: false}},
		Character: &schema.Character{
			ID:                "char1",
			ReferenceAudioURI: "characters/char1.wav",
			ReferenceText:     "sample line",
			ReferenceLanguage: "zh",
		},
		UserVoiceType: schema.VoiceCloudPreset,
	}

	_, err := p.Export(context.Background(), job)
	require.NoError(t, err)

	require.Equal(t, 1, clone.calls)
	assert.Equal(t, "characters/char1.wav", clone.reqs[0].ReferenceAudioURI)
	assert.Equal(t, "sample line", clone.reqs[0].ReferenceText)
	assert.Zero(t, cloud.calls)
}

func TestExport_EmptyTranscriptRendersBookends(t *testing.T) {
	cloud := &stubCloud{data: func(string) []byte { return wavTone(440, 600*time.Millisecond) }}

	p := newTestPipeline(PipelineConfig{Cloud: cloud})

	job := &Job{
		UserVoiceType: schema.VoiceCloudPreset,
		IntroText:     "welcome",
		OutroText:     "goodbye",
	}

	data, err := p.Export(context.Background(), job)
	require.NoError(t, err)

	out := decodeTrack(t, data)
	assert.Equal(t, 1200*time.Millisecond, out.Duration())
	assert.False(t, out.IsSilent())
	assert.Equal(t, []string{"host", "host"}, cloud.voices)
}

func TestExport_BookendsUnaffectedByCloneFailure(t *testing.T) {
	uploader := &stubUploader{uri: "user_voices/ref.wav"}
	transcriber := &stubTranscriber{text: "reference transcript"}
	clone := &stubClone{err: errors.New("clone backend down")}
	cloud := &stubCloud{data: func(string) []byte { return wavTone(440, 600*time.Millisecond) }}

	p := newTestPipeline(PipelineConfig{
		Cloud:      cloud,
		Clone:      clone,
		Transcribe: transcriber,
		Uploads:    uploader,
	})

	job := &Job{
		Messages:      []schema.Message{{Content: "hello", IsUser: true}},
		UserVoiceType: schema.VoiceCustomUpload,
		UserVoiceData: []byte("fake wav bytes"),
		IntroText:     "welcome",
		OutroText:     "goodbye",
	}

	data, err := p.Export(context.Background(), job)
	require.NoError(t, err)

	out := decodeTrack(t, data)
	// intro + user turn + outro, no pauses around a lone message
	assert.Equal(t, 1800*time.Millisecond, out.Duration())

	// The clone was attempted for the user turn and fell back to the
	// default preset; both bookends stayed on the host preset. Message
	// clips resolve before the bookends do.
	assert.Equal(t, 1, clone.calls)
	assert.Equal(t, []string{"warm", "host", "host"}, cloud.voices)
}

func TestExport_EmptyJob(t *testing.T) {
	p := newTestPipeline(PipelineConfig{})

	job := &Job{UserVoiceType: schema.VoiceCloudPreset}

	_, err := p.Export(context.Background(), job)
	assert.ErrorIs(t, err, ErrNoAudio)
}

func TestExport_DegradedRunStillProduces(t *testing.T) {
	cloud := &stubCloud{err: errors.New("gateway down")}

	p := newTestPipeline(PipelineConfig{Cloud: cloud})

	job := &Job{
		Messages: []schema.Message{
			{Content: "one", IsUser: true},
			{Content: "two", IsUser: false},
		},
		UserVoiceType: schema.VoiceCloudPreset,
		IntroText:     "welcome",
	}

	data, err := p.Export(context.Background(), job)
	require.NoError(t, err)

	out := decodeTrack(t, data)
	assert.False(t, out.IsSilent())
	// Placeholders pad to the clip floor: intro + two messages + one pause.
	assert.GreaterOrEqual(t, out.Duration(), 2*time.Second)
}

func TestNewJob_ReadsUploadsOnce(t *testing.T) {
	req := &schema.ExportRequest{
		Messages:      []schema.Message{{Content: "hi", IsUser: true}},
		UserVoiceType: schema.VoiceCustomUpload,
	}

	job, err := NewJob(req, nil, strings.NewReader("voice data"), strings.NewReader("music data"))
	require.NoError(t, err)

	assert.Equal(t, []byte("voice data"), job.UserVoiceData)
	assert.Equal(t, []byte("music data"), job.MusicData)
}

func TestNewJob_NilReaders(t *testing.T) {
	req := &schema.ExportRequest{UserVoiceType: schema.VoiceCloudPreset}

	job, err := NewJob(req, nil, nil, nil)
	require.NoError(t, err)

	assert.Nil(t, job.UserVoiceData)
	assert.Nil(t, job.MusicData)
}
