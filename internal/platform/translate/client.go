package translate

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"cloud.google.com/go/translate"
	"golang.org/x/text/language"
	"google.golang.org/api/option"
)

// Client wraps the Cloud Translation v2 API.
type Client struct {
	client *translate.Client
}

// NewClient constructs a translation client authenticated by API key.
func NewClient(ctx context.Context, apiKey string) (*Client, error) {
	if strings.TrimSpace(apiKey) == "" {
		return nil, errors.New("translate: api key is required")
	}
	client, err := translate.NewClient(ctx, option.WithAPIKey(apiKey))
	if err != nil {
		return nil, fmt.Errorf("translate: new client: %w", err)
	}
	return &Client{client: client}, nil
}

// Close releases the underlying client.
func (c *Client) Close() error {
	if c == nil || c.client == nil {
		return nil
	}
	return c.client.Close()
}

// Translate renders texts into the target language tag. The output slice is
// positionally aligned with the input.
func (c *Client) Translate(ctx context.Context, texts []string, target string) ([]string, error) {
	if len(texts) == 0 {
		return nil, nil
	}
	tag, err := language.Parse(target)
	if err != nil {
		return nil, fmt.Errorf("translate: bad target %q: %w", target, err)
	}

	resp, err := c.client.Translate(ctx, texts, tag, &translate.Options{Format: translate.Text})
	if err != nil {
		return nil, fmt.Errorf("translate: %w", err)
	}
	if len(resp) != len(texts) {
		return nil, fmt.Errorf("translate: got %d results for %d inputs", len(resp), len(texts))
	}

	out := make([]string, len(resp))
	for i, tr := range resp {
		out[i] = tr.Text
	}
	return out, nil
}
