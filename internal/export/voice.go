// Package export implements the podcast audio assembly pipeline: per-message
// clip resolution with fallback, loudness normalization, ordered timeline
// assembly, and final mastering/encoding.
package export

// VoiceKind selects how a speaker's voice is rendered.
type VoiceKind string

const (
	// VoiceCloudPreset renders through the cloud gateway with a preset voice id.
	VoiceCloudPreset VoiceKind = "cloud_preset"
	// VoiceCloned renders through the cloning backend conditioned on
	// reference audio.
	VoiceCloned VoiceKind = "cloned"
	// VoiceDefault renders with the configured fallback preset.
	VoiceDefault VoiceKind = "default"
)

// VoiceSpec describes how to render one speaker. It is resolved once per
// export job and immutable afterwards.
type VoiceSpec struct {
	Kind VoiceKind

	// Preset is the cloud voice id for VoiceCloudPreset.
	Preset string

	// Reference fields apply to VoiceCloned. ReferenceText may be empty,
	// in which case it is recovered lazily by transcribing the reference
	// audio.
	ReferenceAudioURI string
	ReferenceText     string
	ReferenceLanguage string
}

// CloudPresetVoice returns a VoiceSpec for a cloud preset voice id.
func CloudPresetVoice(preset string) VoiceSpec {
	return VoiceSpec{Kind: VoiceCloudPreset, Preset: preset}
}

// ClonedVoice returns a VoiceSpec conditioned on reference audio.
func ClonedVoice(audioURI, text, language string) VoiceSpec {
	return VoiceSpec{
		Kind:              VoiceCloned,
		ReferenceAudioURI: audioURI,
		ReferenceText:     text,
		ReferenceLanguage: language,
	}
}

// DefaultVoice returns the fallback VoiceSpec.
func DefaultVoice() VoiceSpec {
	return VoiceSpec{Kind: VoiceDefault}
}

// Role identifies which side of the conversation a clip belongs to.
type Role string

const (
	// RoleUser marks user turns.
	RoleUser Role = "user"
	// RoleAI marks character turns.
	RoleAI Role = "ai"
)
