// Package asr provides the speech-recognition collaborator client, used to
// lazily transcribe reference audio that has no stored transcript.
package asr

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/podforge/podforge/internal/config"
)

// Client calls the cloud ASR endpoint. It shares the gateway and credentials
// with the cloud TTS service.
type Client struct {
	httpClient *http.Client
	baseURL    string
	backupURL  string
	apiKey     string
}

// NewClient creates an ASR client.
func NewClient(cfg *config.CloudConfig) *Client {
	return &Client{
		httpClient: &http.Client{Timeout: cfg.Timeout},
		baseURL:    cfg.BaseURL,
		backupURL:  cfg.BackupURL,
		apiKey:     cfg.APIKey,
	}
}

type asrRequest struct {
	Model string        `json:"model"`
	Audio asrAudioParam `json:"audio"`
}

type asrAudioParam struct {
	Format string `json:"format"`
	URL    string `json:"url"`
}

type asrResponse struct {
	Data struct {
		Result struct {
			Text string `json:"text"`
		} `json:"result"`
	} `json:"data"`
}

// Transcribe recognizes speech in the audio at the given public URL and
// returns the transcript text.
func (c *Client) Transcribe(ctx context.Context, audioURL, language string) (string, error) {
	body, err := json.Marshal(asrRequest{
		Model: "asr",
		Audio: asrAudioParam{Format: formatFromURL(audioURL), URL: audioURL},
	})
	if err != nil {
		return "", fmt.Errorf("failed to encode request: %w", err)
	}

	raw, err := c.post(ctx, c.baseURL+"/voice/asr", body)
	if err != nil && c.backupURL != "" {
		raw, err = c.post(ctx, c.backupURL+"/voice/asr", body)
	}
	if err != nil {
		return "", err
	}

	var resp asrResponse
	if err := json.Unmarshal(raw, &resp); err != nil {
		return "", fmt.Errorf("failed to decode response: %w", err)
	}

	text := strings.TrimSpace(resp.Data.Result.Text)
	if text == "" {
		return "", fmt.Errorf("asr: empty transcript for %s", audioURL)
	}
	return text, nil
}

func (c *Client) post(ctx context.Context, url string, body []byte) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("asr: request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		msg, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("asr: backend error (status %d): %s", resp.StatusCode, msg)
	}

	return io.ReadAll(resp.Body)
}

// The gateway only accepts a handful of container formats and treats
// everything else as mp3.
func formatFromURL(audioURL string) string {
	if strings.HasSuffix(strings.ToLower(audioURL), ".wav") {
		return "wav"
	}
	return "mp3"
}
