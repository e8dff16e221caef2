package codec

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"strings"

	"github.com/podforge/podforge/internal/audio"
)

// FFmpeg transcodes through an ffmpeg subprocess. WAV input is decoded
// natively without spawning a process.
type FFmpeg struct {
	// Binary overrides the ffmpeg executable name. Defaults to "ffmpeg".
	Binary string
}

// NewFFmpeg returns a Transcoder backed by the ffmpeg binary on PATH.
func NewFFmpeg() *FFmpeg {
	return &FFmpeg{Binary: "ffmpeg"}
}

func (f *FFmpeg) binary() string {
	if f.Binary != "" {
		return f.Binary
	}
	return "ffmpeg"
}

// Decode converts encoded audio bytes into a clip.
func (f *FFmpeg) Decode(ctx context.Context, data []byte) (*audio.Clip, error) {
	if len(data) == 0 {
		return nil, fmt.Errorf("%w: empty input", ErrDecode)
	}

	if audio.IsWAV(data) {
		clip, err := audio.DecodeWAV(data)
		if err == nil {
			return clip, nil
		}
		// Non-PCM WAV variants fall through to ffmpeg.
	}

	out, err := f.run(ctx, data,
		"-i", "pipe:0",
		"-f", "wav",
		"-acodec", "pcm_s16le",
		"pipe:1",
	)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDecode, err)
	}

	clip, err := audio.DecodeWAV(out)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDecode, err)
	}
	return clip, nil
}

// EncodeMP3 renders the clip as MP3 at the given bitrate.
func (f *FFmpeg) EncodeMP3(ctx context.Context, clip *audio.Clip, bitrateKbps int) ([]byte, error) {
	if bitrateKbps <= 0 {
		bitrateKbps = 128
	}

	out, err := f.run(ctx, audio.EncodeWAV(clip),
		"-f", "wav",
		"-i", "pipe:0",
		"-f", "mp3",
		"-b:a", fmt.Sprintf("%dk", bitrateKbps),
		"pipe:1",
	)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrEncode, err)
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("%w: empty output", ErrEncode)
	}
	return out, nil
}

func (f *FFmpeg) run(ctx context.Context, stdin []byte, args ...string) ([]byte, error) {
	full := append([]string{"-hide_banner", "-loglevel", "error"}, args...)
	cmd := exec.CommandContext(ctx, f.binary(), full...)
	cmd.Stdin = bytes.NewReader(stdin)

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		msg := strings.TrimSpace(stderr.String())
		if msg != "" {
			return nil, fmt.Errorf("ffmpeg: %s: %w", msg, err)
		}
		return nil, fmt.Errorf("ffmpeg: %w", err)
	}
	return stdout.Bytes(), nil
}
