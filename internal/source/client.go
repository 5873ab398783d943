package source

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime"
	"net/http"
	"time"

	"vici-telegraf-plugin/internal/vici"
)

// Request is the command envelope posted to the bridge.
type Request struct {
	Command string `json:"command"`
}

// Client queries an HTTP bridge in front of the daemon's vici socket. The
// bridge runs the command and answers with the decoded reply record.
type Client struct {
	URL        string
	HTTPClient *http.Client
}

// NewClient creates a bridge client with the given URL and timeout.
func NewClient(url string, timeout time.Duration) *Client {
	return &Client{
		URL: url,
		HTTPClient: &http.Client{
			Timeout: timeout,
		},
	}
}

// Get runs command and returns its decoded reply.
func (c *Client) Get(ctx context.Context, command string) (vici.Record, error) {
	data, contentType, err := c.post(ctx, command)
	if err != nil {
		return nil, err
	}
	return Decode(data, formatOf(contentType))
}

// GetRaw runs command and returns the bridge's reply body untouched, along
// with the format its Content-Type announced.
func (c *Client) GetRaw(ctx context.Context, command string) ([]byte, Format, error) {
	data, contentType, err := c.post(ctx, command)
	if err != nil {
		return nil, "", err
	}
	return data, formatOf(contentType), nil
}

func (c *Client) post(ctx context.Context, command string) ([]byte, string, error) {
	body, err := json.Marshal(Request{Command: command})
	if err != nil {
		return nil, "", fmt.Errorf("marshaling request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.URL, bytes.NewReader(body))
	if err != nil {
		return nil, "", fmt.Errorf("building request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return nil, "", fmt.Errorf("connecting to bridge: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, "", fmt.Errorf("bridge returned HTTP %d", resp.StatusCode)
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseSize))
	if err != nil {
		return nil, "", fmt.Errorf("reading response: %w", err)
	}
	return data, resp.Header.Get("Content-Type"), nil
}

func formatOf(contentType string) Format {
	mediaType, _, err := mime.ParseMediaType(contentType)
	if err != nil {
		return JSON
	}
	switch mediaType {
	case "application/cbor":
		return CBOR
	case "application/yaml", "application/x-yaml", "text/yaml":
		return YAML
	}
	return JSON
}
