// Package tts provides clients for the two speech synthesis collaborators:
// the cloud gateway serving preset voices and the reference-conditioned
// cloning backend.
package tts

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/podforge/podforge/internal/config"
)

// CloudClient calls the cloud TTS gateway. All requests are retried once
// against the backup endpoint when the primary fails.
type CloudClient struct {
	httpClient *http.Client
	baseURL    string
	backupURL  string
	apiKey     string
}

// NewCloudClient creates a cloud TTS client with connection pooling.
func NewCloudClient(cfg *config.CloudConfig) *CloudClient {
	transport := &http.Transport{
		MaxIdleConns:        100,
		MaxIdleConnsPerHost: 100,
		IdleConnTimeout:     90 * time.Second,
	}

	return &CloudClient{
		httpClient: &http.Client{
			Transport: transport,
			Timeout:   cfg.Timeout,
		},
		baseURL:   cfg.BaseURL,
		backupURL: cfg.BackupURL,
		apiKey:    cfg.APIKey,
	}
}

type cloudTTSRequest struct {
	Audio   cloudAudioParams `json:"audio"`
	Request cloudTextParams  `json:"request"`
}

type cloudAudioParams struct {
	VoiceType  string  `json:"voice_type"`
	Encoding   string  `json:"encoding"`
	SpeedRatio float64 `json:"speed_ratio"`
}

type cloudTextParams struct {
	Text string `json:"text"`
}

type cloudTTSResponse struct {
	Data string `json:"data"`
}

// Voice describes one entry of the gateway's voice catalogue.
type Voice struct {
	VoiceType string `json:"voice_type"`
	Name      string `json:"voice_name"`
	Category  string `json:"category,omitempty"`
}

// Synthesize renders text with a preset voice and returns the encoded audio
// bytes in the requested format.
func (c *CloudClient) Synthesize(ctx context.Context, text, voice string, speed float64, format string) ([]byte, error) {
	if speed == 0 {
		speed = 1.0
	}
	if format == "" {
		format = "mp3"
	}

	body, err := json.Marshal(cloudTTSRequest{
		Audio:   cloudAudioParams{VoiceType: voice, Encoding: format, SpeedRatio: speed},
		Request: cloudTextParams{Text: text},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to encode request: %w", err)
	}

	raw, err := c.postWithFallback(ctx, "/voice/tts", body)
	if err != nil {
		return nil, err
	}

	var resp cloudTTSResponse
	if err := json.Unmarshal(raw, &resp); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}
	if resp.Data == "" {
		return nil, &APIError{StatusCode: http.StatusOK, Message: "response carries no audio data"}
	}

	audio, err := base64.StdEncoding.DecodeString(resp.Data)
	if err != nil {
		return nil, fmt.Errorf("failed to decode audio payload: %w", err)
	}
	return audio, nil
}

// Voices fetches the gateway's voice catalogue.
func (c *CloudClient) Voices(ctx context.Context) ([]Voice, error) {
	raw, err := c.getWithFallback(ctx, "/voice/list")
	if err != nil {
		return nil, err
	}

	var voices []Voice
	if err := json.Unmarshal(raw, &voices); err != nil {
		return nil, fmt.Errorf("failed to decode voice list: %w", err)
	}
	return voices, nil
}

func (c *CloudClient) postWithFallback(ctx context.Context, path string, body []byte) ([]byte, error) {
	raw, err := c.do(ctx, http.MethodPost, c.baseURL+path, body)
	if err == nil || c.backupURL == "" {
		return raw, err
	}
	return c.do(ctx, http.MethodPost, c.backupURL+path, body)
}

func (c *CloudClient) getWithFallback(ctx context.Context, path string) ([]byte, error) {
	raw, err := c.do(ctx, http.MethodGet, c.baseURL+path, nil)
	if err == nil || c.backupURL == "" {
		return raw, err
	}
	return c.do(ctx, http.MethodGet, c.backupURL+path, nil)
}

func (c *CloudClient) do(ctx context.Context, method, url string, body []byte) ([]byte, error) {
	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}

	req, err := http.NewRequestWithContext(ctx, method, url, reader)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.httpClient.Do(req)
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

	return io.ReadAll(resp.Body)
}
