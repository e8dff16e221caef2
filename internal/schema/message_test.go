package schema

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMessageUnmarshal_SnakeCase(t *testing.T) {
	var m Message
	require.NoError(t, json.Unmarshal([]byte(`{"content": "hi", "is_user": true, "audio_url": "a.wav"}`), &m))

	assert.Equal(t, "hi", m.Content)
	assert.True(t, m.IsUser)
	assert.Equal(t, "a.wav", m.AudioRef)
}

func TestMessageUnmarshal_CamelCase(t *testing.T) {
	var m Message
	require.NoError(t, json.Unmarshal([]byte(`{"content": "hi", "isUser": true, "audioUrl": "a.wav"}`), &m))

	assert.True(t, m.IsUser)
	assert.Equal(t, "a.wav", m.AudioRef)
}

func TestMessageUnmarshal_SnakeCaseWins(t *testing.T) {
	var m Message
	require.NoError(t, json.Unmarshal([]byte(`{"is_user": false, "isUser": true, "audio_url": "snake.wav", "audioUrl": "camel.wav"}`), &m))

	assert.False(t, m.IsUser)
	assert.Equal(t, "snake.wav", m.AudioRef)
}

func TestMessageUnmarshal_Defaults(t *testing.T) {
	var m Message
	require.NoError(t, json.Unmarshal([]byte(`{"content": "hi"}`), &m))

	assert.False(t, m.IsUser)
	assert.Empty(t, m.AudioRef)
}
