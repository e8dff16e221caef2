// Package storage provides the object-storage collaborator client. Objects
// live under logical folders (user_voices/, generated/, ...) and are
// addressed by key; Upload returns the public URI clients and backends fetch
// from.
package storage

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"path"
	"strings"

	"github.com/google/uuid"

	"github.com/podforge/podforge/internal/config"
)

// Client talks to the object-storage gateway over HTTP.
type Client struct {
	httpClient *http.Client
	baseURL    string
	apiKey     string
}

// NewClient creates an object-storage client.
func NewClient(cfg *config.StorageConfig) *Client {
	return &Client{
		httpClient: &http.Client{Timeout: cfg.Timeout},
		baseURL:    strings.TrimRight(cfg.BaseURL, "/"),
		apiKey:     cfg.APIKey,
	}
}

// ObjectKey builds a unique storage key under the given folder, preserving
// the original filename's extension.
func ObjectKey(folder, filename string) string {
	ext := path.Ext(filename)
	return folder + "/" + uuid.NewString() + ext
}

// Upload stores the data under key and returns the object's public URI.
func (c *Client) Upload(ctx context.Context, data []byte, key, mimeType string) (string, error) {
	target := c.baseURL + "/objects/" + key

	req, err := http.NewRequestWithContext(ctx, http.MethodPut, target, bytes.NewReader(data))
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}
	if mimeType != "" {
		req.Header.Set("Content-Type", mimeType)
	}
	c.authorize(req)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("storage: upload failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		msg, _ := io.ReadAll(resp.Body)
		return "", fmt.Errorf("storage: upload rejected (status %d): %s", resp.StatusCode, msg)
	}

	return target, nil
}

// Fetch downloads the object at the given URI. Relative URIs are resolved
// against the storage base URL.
func (c *Client) Fetch(ctx context.Context, uri string) ([]byte, error) {
	target := uri
	if u, err := url.Parse(uri); err == nil && !u.IsAbs() {
		target = c.baseURL + "/" + strings.TrimLeft(uri, "/")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	c.authorize(req)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("storage: fetch failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("storage: fetch rejected (status %d)", resp.StatusCode)
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("storage: failed to read object: %w", err)
	}
	if len(data) == 0 {
		return nil, fmt.Errorf("storage: empty object at %s", uri)
	}
	return data, nil
}

// Delete removes the object under key. Missing objects are not an error.
func (c *Client) Delete(ctx context.Context, key string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodDelete, c.baseURL+"/objects/"+key, nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	c.authorize(req)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("storage: delete failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusNoContent && resp.StatusCode != http.StatusNotFound {
		return fmt.Errorf("storage: delete rejected (status %d)", resp.StatusCode)
	}
	return nil
}

func (c *Client) authorize(req *http.Request) {
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}
}
