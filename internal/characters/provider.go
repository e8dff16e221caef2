// Package characters provides the read-only client for the character/chat
// data provider. The pipeline consumes character records and ordered
// transcripts; it never mutates them.
package characters

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"

	"github.com/podforge/podforge/internal/config"
	"github.com/podforge/podforge/internal/schema"
)

// Provider fetches character records and chat transcripts.
type Provider struct {
	httpClient *http.Client
	baseURL    string
}

// NewProvider creates a data-provider client.
func NewProvider(cfg *config.ProviderConfig) *Provider {
	return &Provider{
		httpClient: &http.Client{Timeout: cfg.Timeout},
		baseURL:    cfg.URL,
	}
}

// Character fetches one character record by id. The returned record is
// treated as immutable for the duration of an export job.
func (p *Provider) Character(ctx context.Context, id string) (*schema.Character, error) {
	var ch schema.Character
	if err := p.get(ctx, "/api/v1/characters/"+url.PathEscape(id), &ch); err != nil {
		return nil, err
	}
	if ch.ID == "" {
		ch.ID = id
	}
	return &ch, nil
}

// Transcript fetches the ordered message list of one chat session. Messages
// pass through the schema adapter, so upstream key-spelling drift
// (is_user/isUser) is resolved before the pipeline sees them.
func (p *Provider) Transcript(ctx context.Context, chatID string) ([]schema.Message, error) {
	var messages []schema.Message
	if err := p.get(ctx, "/api/v1/chats/"+url.PathEscape(chatID)+"/messages", &messages); err != nil {
		return nil, err
	}
	return messages, nil
}

func (p *Provider) get(ctx context.Context, path string, v interface{}) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.baseURL+path, nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("characters: provider unreachable: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		msg, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("characters: provider error (status %d): %s", resp.StatusCode, msg)
	}

	if err := json.NewDecoder(resp.Body).Decode(v); err != nil {
		return fmt.Errorf("characters: failed to decode response: %w", err)
	}
	return nil
}
