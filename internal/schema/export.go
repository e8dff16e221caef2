package schema

import "fmt"

// User voice selections accepted by the export endpoint.
const (
	VoiceCloudPreset  = "cloud_preset"
	VoiceCustomUpload = "custom_upload"
	VoiceCustomRecord = "custom_record"
)

const (
	defaultIntroText  = "Welcome to this conversation podcast."
	defaultOutroText  = "Thanks for listening, goodbye!"
	defaultSpeedRatio = 1.0

	minSpeedRatio = 0.5
	maxSpeedRatio = 2.0
)

// ExportRequest describes one podcast export job as submitted by a client.
// Voice and music files travel as separate multipart parts; this struct is
// the "payload" part.
type ExportRequest struct {
	CharacterID string     `json:"character_id,omitempty" msgpack:"character_id,omitempty"`
	Character   *Character `json:"character,omitempty" msgpack:"character,omitempty"`
	Messages    []Message  `json:"messages" msgpack:"messages"`

	UserVoiceType string  `json:"user_voice_type,omitempty" msgpack:"user_voice_type,omitempty"`
	IntroText     string  `json:"intro_text,omitempty" msgpack:"intro_text,omitempty"`
	OutroText     string  `json:"outro_text,omitempty" msgpack:"outro_text,omitempty"`
	SpeedRatio    float64 `json:"speed_ratio,omitempty" msgpack:"speed_ratio,omitempty"`
}

// Validate applies defaults and checks the request against accepted ranges.
func (r *ExportRequest) Validate() error {
	r.applyDefaults()

	if r.Character == nil && r.CharacterID == "" {
		return fmt.Errorf("character or character_id is required")
	}

	switch r.UserVoiceType {
	case VoiceCloudPreset, VoiceCustomUpload, VoiceCustomRecord:
	default:
		return fmt.Errorf("unknown user_voice_type %q", r.UserVoiceType)
	}

	if r.SpeedRatio < minSpeedRatio || r.SpeedRatio > maxSpeedRatio {
		return fmt.Errorf("speed_ratio must be between %.1f and %.1f", minSpeedRatio, maxSpeedRatio)
	}

	for i, m := range r.Messages {
		if m.Content == "" && m.AudioRef == "" {
			return fmt.Errorf("message %d has neither content nor audio", i)
		}
	}

	return nil
}

func (r *ExportRequest) applyDefaults() {
	if r.Messages == nil {
		r.Messages = []Message{}
	}
	if r.UserVoiceType == "" {
		r.UserVoiceType = VoiceCloudPreset
	}
	if r.IntroText == "" {
		r.IntroText = defaultIntroText
	}
	if r.OutroText == "" {
		r.OutroText = defaultOutroText
	}
	if r.SpeedRatio == 0 {
		r.SpeedRatio = defaultSpeedRatio
	}
}
