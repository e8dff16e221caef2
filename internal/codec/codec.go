// Package codec converts between encoded audio byte streams and decoded
// clips. The delivery format is MP3; decoding accepts whatever the upstream
// services hand back (MP3, WAV, OGG, ...). Anything that is not plain WAV is
// routed through an ffmpeg subprocess over pipes, so no temporary files are
// created and cancellation tears the subprocess down.
package codec

import (
	"context"
	"errors"

	"github.com/podforge/podforge/internal/audio"
)

// ErrEncode indicates the final encode step failed. This is one of the two
// pipeline-fatal error classes: no partial output is ever delivered.
var ErrEncode = errors.New("codec: encode failed")

// ErrDecode indicates the byte stream could not be decoded into a clip.
var ErrDecode = errors.New("codec: decode failed")

// Transcoder decodes encoded audio bytes into clips and renders clips into
// the MP3 delivery format.
type Transcoder interface {
	Decode(ctx context.Context, data []byte) (*audio.Clip, error)
	EncodeMP3(ctx context.Context, clip *audio.Clip, bitrateKbps int) ([]byte, error)
}
