package tts

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/podforge/podforge/internal/config"
)

// CloneRequest describes one reference-conditioned synthesis call.
type CloneRequest struct {
	Text         string `json:"text"`
	TextLanguage string `json:"text_language"`

	ReferenceAudioURI string `json:"refer_wav_path"`
	ReferenceText     string `json:"prompt_text"`
	ReferenceLanguage string `json:"prompt_language"`

	TopK        int     `json:"top_k"`
	TopP        float64 `json:"top_p"`
	Temperature float64 `json:"temperature"`
	Speed       float64 `json:"speed"`
}

func (r *CloneRequest) applyDefaults() {
	if r.TextLanguage == "" {
		r.TextLanguage = "zh"
	}
	if r.ReferenceLanguage == "" {
		r.ReferenceLanguage = "zh"
	}
	if r.TopK == 0 {
		r.TopK = 15
	}
	if r.TopP == 0 {
		r.TopP = 1.0
	}
	if r.Temperature == 0 {
		r.Temperature = 1.0
	}
	if r.Speed == 0 {
		r.Speed = 1.0
	}
}

// CloneClient calls the voice-cloning backend. Cloning synthesis is
// LLM-backed and can take minutes; the client's timeout is configured
// accordingly and individual calls should carry their own context deadline.
type CloneClient struct {
	httpClient *http.Client
	endpoint   string
}

// NewCloneClient creates a cloning TTS client.
func NewCloneClient(cfg *config.CloneConfig) *CloneClient {
	return &CloneClient{
		httpClient: &http.Client{Timeout: cfg.Timeout},
		endpoint:   cfg.URL,
	}
}

// SynthesizeWithReference renders text in the voice of the reference audio
// and returns the raw encoded audio bytes.
func (c *CloneClient) SynthesizeWithReference(ctx context.Context, req CloneRequest) ([]byte, error) {
	req.applyDefaults()

	body, err := json.Marshal(&req)
	if err != nil {
		return nil, fmt.Errorf("failed to encode request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint+"/", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		if ctx.Err() == context.DeadlineExceeded {
			return nil, fmt.Errorf("%w: %v", ErrTimeout, err)
		}
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		msg, _ := io.ReadAll(resp.Body)
		return nil, &APIError{StatusCode: resp.StatusCode, Message: string(msg)}
	}

	audio, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}
	if len(audio) == 0 {
		return nil, &APIError{StatusCode: resp.StatusCode, Message: "empty audio response"}
	}
	return audio, nil
}

// Health checks if the cloning backend is reachable.
func (c *CloneClient) Health(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.endpoint+"/health", nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("tts: clone backend unhealthy: status %d", resp.StatusCode)
	}
	return nil
}
