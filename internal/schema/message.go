// Package schema defines the wire types exchanged with clients and with the
// character data provider.
package schema

import "encoding/json"

// Message is one turn of a chat transcript. Order within a transcript is
// significant and is the timeline order of the rendered podcast.
type Message struct {
	Content string `json:"content" msgpack:"content"`
	IsUser  bool   `json:"is_user" msgpack:"is_user"`
	// AudioRef optionally points at already-rendered audio for this
	// message (AI turns only). Empty means no prior rendering exists.
	AudioRef string `json:"audio_url,omitempty" msgpack:"audio_url,omitempty"`
}

// messageWire tolerates both snake_case and camelCase spellings that the
// upstream data provider has historically emitted. The ambiguity is resolved
// here, at the boundary, and nowhere else: the rest of the system only ever
// sees the typed Message.
type messageWire struct {
	Content     string `json:"content"`
	IsUser      *bool  `json:"is_user"`
	IsUserCamel *bool  `json:"isUser"`
	AudioRef    string `json:"audio_url"`
	AudioCamel  string `json:"audioUrl"`
}

// UnmarshalJSON decodes a message, accepting is_user/isUser and
// audio_url/audioUrl interchangeably. snake_case wins when both are present.
func (m *Message) UnmarshalJSON(data []byte) error {
	var w messageWire
	if err := json.Unmarshal(data, &w); err != nil {
		return err
	}

	m.Content = w.Content

	switch {
	case w.IsUser != nil:
		m.IsUser = *w.IsUser
	case w.IsUserCamel != nil:
		m.IsUser = *w.IsUserCamel
	default:
		m.IsUser = false
	}

	m.AudioRef = w.AudioRef
	if m.AudioRef == "" {
		m.AudioRef = w.AudioCamel
	}

	return nil
}

// Character is the immutable speaker record backing AI turns. It is fetched
// once per export job and never mutated by the pipeline.
type Character struct {
	ID                string `json:"id" msgpack:"id"`
	Name              string `json:"name" msgpack:"name"`
	ReferenceAudioURI string `json:"reference_audio_url,omitempty" msgpack:"reference_audio_url,omitempty"`
	ReferenceText     string `json:"reference_audio_text,omitempty" msgpack:"reference_audio_text,omitempty"`
	ReferenceLanguage string `json:"reference_audio_language,omitempty" msgpack:"reference_audio_language,omitempty"`
}

// ErrorResponse is the JSON error body returned by the HTTP API.
type ErrorResponse struct {
	Detail string `json:"detail"`
}
