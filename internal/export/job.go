package export

import (
	"fmt"
	"io"

	"github.com/podforge/podforge/internal/schema"
)

// Job carries everything one export invocation needs. Upload payloads are
// read exactly once, at job construction, into buffers the job owns; every
// stage works from those buffers, so a half-consumed stream can never reach
// the pipeline.
type Job struct {
	Messages  []schema.Message
	Character *schema.Character

	UserVoiceType string
	UserVoiceData []byte
	MusicData     []byte

	IntroText  string
	OutroText  string
	SpeedRatio float64
}

// NewJob builds a Job from a validated request and the optional upload
// streams. Either stream may be nil.
func NewJob(req *schema.ExportRequest, character *schema.Character, userVoice, music io.Reader) (*Job, error) {
	voiceData, err := readAll(userVoice, "user voice")
	if err != nil {
		return nil, err
	}
	musicData, err := readAll(music, "background music")
	if err != nil {
		return nil, err
	}

	return &Job{
		Messages:      req.Messages,
		Character:     character,
		UserVoiceType: req.UserVoiceType,
		UserVoiceData: voiceData,
		MusicData:     musicData,
		IntroText:     req.IntroText,
		OutroText:     req.OutroText,
		SpeedRatio:    req.SpeedRatio,
	}, nil
}

func readAll(r io.Reader, what string) ([]byte, error) {
	if r == nil {
		return nil, nil
	}
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("export: failed to read %s upload: %w", what, err)
	}
	if len(data) == 0 {
		return nil, nil
	}
	return data, nil
}
