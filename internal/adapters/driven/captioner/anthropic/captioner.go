// Package anthropic provides an image captioner backed by the Anthropic
// vision API. Captions stand in for figures in the search index, so the
// prompt asks for a literal description rather than interpretation.
package anthropic

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/custodia-labs/docquery/internal/core/ports/driven"
)

// Ensure Captioner implements the interface.
var _ driven.ImageCaptioner = (*Captioner)(nil)

// Default configuration values.
const (
	DefaultBaseURL = "https://api.anthropic.com"
	DefaultModel   = "claude-3-5-haiku-latest"
	DefaultTimeout = 60 * time.Second

	anthropicVersion = "2023-06-01"

	captionMaxTokens = 300
)

const captionPrompt = `Describe this figure from a document so it can be found by search.
State what kind of figure it is (chart, diagram, photo, screenshot) and what it shows,
including any visible labels, axis names or numbers. Two or three sentences, no preamble.`

// Config holds configuration for the Anthropic captioner.
type Config struct {
	// APIKey is the Anthropic API key (required).
	APIKey string

	// BaseURL is the API base URL (default: https://api.anthropic.com).
	BaseURL string

	// Model is the vision model to use (default: claude-3-5-haiku-latest).
	Model string

	// Timeout is the request timeout (default: 60s).
	Timeout time.Duration
}

// Captioner describes document images via the Anthropic API.
type Captioner struct {
	client  *http.Client
	baseURL string
	apiKey  string
	model   string
}

// NewCaptioner creates an Anthropic image captioner.
func NewCaptioner(cfg Config) (*Captioner, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("anthropic: API key is required")
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if cfg.Model == "" {
		cfg.Model = DefaultModel
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = DefaultTimeout
	}
	return &Captioner{
		client:  &http.Client{Timeout: cfg.Timeout},
		baseURL: cfg.BaseURL,
		apiKey:  cfg.APIKey,
		model:   cfg.Model,
	}, nil
}

type captionRequest struct {
	Model     string           `json:"model"`
	MaxTokens int              `json:"max_tokens"`
	Messages  []captionMessage `json:"messages"`
}

type captionMessage struct {
	Role    string         `json:"role"`
	Content []contentBlock `json:"content"`
}

type contentBlock struct {
	Type   string       `json:"type"`
	Text   string       `json:"text,omitempty"`
	Source *imageSource `json:"source,omitempty"`
}

type imageSource struct {
	Type      string `json:"type"`
	MediaType string `json:"media_type"`
	Data      string `json:"data"`
}

type captionResponse struct {
	Content []struct {
		Type string `json:"type"`
		Text string `json:"text"`
	} `json:"content"`
	Error *struct {
		Type    string `json:"type"`
		Message string `json:"message"`
	} `json:"error,omitempty"`
}

// Caption describes the image, optionally grounded by nearby page text.
func (c *Captioner) Caption(ctx context.Context, image []byte, pageContext string) (string, error) {
	if len(image) == 0 {
		return "", fmt.Errorf("anthropic: empty image")
	}

	prompt := captionPrompt
	if pageContext != "" {
		prompt += "\n\nText near the figure for context:\n" + pageContext
	}

	reqBody := captionRequest{
		Model:     c.model,
		MaxTokens: captionMaxTokens,
		Messages: []captionMessage{{
			Role: "user",
			Content: []contentBlock{
				{
					Type: "image",
					Source: &imageSource{
						Type:      "base64",
						MediaType: detectMediaType(image),
						Data:      base64.StdEncoding.EncodeToString(image),
					},
				},
				{Type: "text", Text: prompt},
			},
		}},
	}

	jsonBody, err := json.Marshal(reqBody)
	if err != nil {
		return "", fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/v1/messages", bytes.NewReader(jsonBody))
	if err != nil {
		return "", fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("x-api-key", c.apiKey)
	req.Header.Set("anthropic-version", anthropicVersion)

	resp, err := c.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("send request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("read response: %w", err)
	}

	var capResp captionResponse
	if err := json.Unmarshal(body, &capResp); err != nil {
		return "", fmt.Errorf("decode response: %w", err)
	}
	if capResp.Error != nil {
		return "", fmt.Errorf("anthropic error: %s", capResp.Error.Message)
	}
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("anthropic error (status %d): %s", resp.StatusCode, string(body))
	}

	var text strings.Builder
	for _, block := range capResp.Content {
		if block.Type == "text" {
			text.WriteString(block.Text)
		}
	}
	caption := strings.TrimSpace(text.String())
	if caption == "" {
		return "", fmt.Errorf("anthropic: empty caption returned")
	}
	return caption, nil
}

// ModelName returns the name of the vision model being used.
func (c *Captioner) ModelName() string {
	return c.model
}

// detectMediaType sniffs the image format from magic bytes, defaulting
// to PNG which is what docling exports.
func detectMediaType(data []byte) string {
	switch {
	case len(data) >= 3 && data[0] == 0xFF && data[1] == 0xD8 && data[2] == 0xFF:
		return "image/jpeg"
	case len(data) >= 6 && string(data[:6]) == "GIF87a",
		len(data) >= 6 && string(data[:6]) == "GIF89a":
		return "image/gif"
	case len(data) >= 12 && string(data[8:12]) == "WEBP":
		return "image/webp"
	default:
		return "image/png"
	}
}
