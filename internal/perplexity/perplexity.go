// Package perplexity wraps the Perplexity chat-completions API.
//
// It serves as the trend source and as the last-resort content generation
// tier. The API is OpenAI-compatible; requests go over plain HTTP.
package perplexity

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/mbarki/trendpilot/internal/models"
	"github.com/mbarki/trendpilot/internal/util"
)

// Constants for Perplexity client configuration
const (
	// DefaultBaseURL is the Perplexity chat-completions endpoint
	DefaultBaseURL = "https://api.perplexity.ai/chat/completions"
	// DefaultModel is the online Perplexity model used for discovery and generation
	DefaultModel = "sonar"
	// DefaultTimeout bounds each outbound request
	DefaultTimeout = 30 * time.Second
	// ProviderName annotates results produced by this provider
	ProviderName = "perplexity"
)

// Opts holds configuration options for the Perplexity client.
type Opts struct {
	APIKey  string
	BaseURL string
	Model   string
	Client  *http.Client
}

// Option defines a configuration option for the Perplexity client.
type Option func(*Opts)

// WithAPIKey sets the Perplexity API key.
func WithAPIKey(key string) Option {
	return func(o *Opts) {
		o.APIKey = key
	}
}

// WithBaseURL overrides the API endpoint (used in tests).
func WithBaseURL(url string) Option {
	return func(o *Opts) {
		o.BaseURL = url
	}
}

// WithModel overrides the model name.
func WithModel(model string) Option {
	return func(o *Opts) {
		o.Model = model
	}
}

// WithHTTPClient overrides the HTTP client.
func WithHTTPClient(c *http.Client) Option {
	return func(o *Opts) {
		o.Client = c
	}
}

// Client calls the Perplexity API.
type Client struct {
	apiKey  string
	baseURL string
	model   string
	http    *http.Client
}

// NewClient creates a Perplexity client, applying any provided options.
func NewClient(opts ...Option) *Client {
	cfg := Opts{BaseURL: DefaultBaseURL, Model: DefaultModel}
	for _, opt := range opts {
		opt(&cfg)
	}
	if cfg.Client == nil {
		cfg.Client = &http.Client{Timeout: DefaultTimeout}
	}
	slog.Debug("Creating Perplexity client", "model", cfg.Model, "api_key_set", cfg.APIKey != "")
	return &Client{apiKey: cfg.APIKey, baseURL: cfg.BaseURL, model: cfg.Model, http: cfg.Client}
}

// Name identifies this provider in fallback chains.
func (c *Client) Name() string {
	return ProviderName
}

// chatMessage and chatRequest mirror the OpenAI-compatible wire format.
type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	Temperature float64       `json:"temperature"`
	MaxTokens   int           `json:"max_tokens"`
}

type chatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
}

// complete sends one chat request and returns the assistant message content.
func (c *Client) complete(ctx context.Context, system, user string, maxTokens int) (string, error) {
	if c.apiKey == "" {
		return "", fmt.Errorf("perplexity API key not configured")
	}

	body, err := json.Marshal(chatRequest{
		Model: c.model,
		Messages: []chatMessage{
			{Role: "system", Content: system},
			{Role: "user", Content: user},
		},
		Temperature: 0.7,
		MaxTokens:   maxTokens,
	})
	if err != nil {
		return "", fmt.Errorf("failed to encode request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return "", fmt.Errorf("perplexity request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("perplexity returned status %d", resp.StatusCode)
	}

	var parsed chatResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return "", fmt.Errorf("failed to decode perplexity response: %w", err)
	}
	if len(parsed.Choices) == 0 {
		return "", fmt.Errorf("perplexity returned no choices")
	}
	return parsed.Choices[0].Message.Content, nil
}

const discoverSystemPrompt = "You are a professional trend analyst specializing in Morocco and global events. Provide accurate, timely information in JSON format."

const discoverUserPrompt = `Discover the top 10 trending topics right now: 5 GLOBAL major events and 5 MOROCCAN major events.
For each trend provide a concise professional title, a 2-3 sentence summary of why it matters, a one-word emotional angle, and an origin of "Global" or "Morocco".
Focus on recent news with professional or business relevance, suitable for LinkedIn discussion.
Respond with ONLY a JSON array of objects with keys "title", "summary", "emotionalAngle", "origin".`

// DiscoverTrends asks Perplexity for current global and Moroccan trends.
// Candidates missing any required field are dropped, not surfaced.
func (c *Client) DiscoverTrends(ctx context.Context) ([]models.Trend, error) {
	content, err := c.complete(ctx, discoverSystemPrompt, discoverUserPrompt, 2000)
	if err != nil {
		return nil, err
	}

	var candidates []models.Trend
	if err := json.Unmarshal([]byte(util.ExtractJSON(content)), &candidates); err != nil {
		return nil, fmt.Errorf("failed to parse trends payload: %w", err)
	}

	valid := make([]models.Trend, 0, len(candidates))
	for _, trend := range candidates {
		if err := trend.Validate(); err != nil {
			slog.Debug("Dropping invalid trend candidate", "title", trend.Title, "error", err)
			continue
		}
		valid = append(valid, trend)
	}
	slog.Info("Perplexity trend discovery complete", "candidates", len(candidates), "valid", len(valid))
	return valid, nil
}

// rawDirectContent is the hook/content/cta shape Perplexity returns for
// direct content generation.
type rawDirectContent struct {
	Hook        string   `json:"hook"`
	Content     string   `json:"content"`
	CTA         string   `json:"cta"`
	Hashtags    []string `json:"hashtags"`
	ImagePrompt string   `json:"image_prompt"`
}

const contentSystemPrompt = "You are a professional LinkedIn content strategist who creates viral, engaging posts. Always respond with valid JSON."

// GenerateContent produces LinkedIn post content directly from a trend.
// It is the tertiary tier of the content chain.
func (c *Client) GenerateContent(ctx context.Context, trend models.Trend) (models.GeneratedContent, error) {
	user := fmt.Sprintf(`Create an engaging LinkedIn post (200-300 words) about this topic.
Topic: %s
Context: %s
Emotional angle: %s
Start with an attention-grabbing hook, include valuable insights, use a professional but conversational tone, and suggest 5-7 relevant hashtags.
Respond with ONLY JSON: {"hook": "...", "content": "...", "cta": "...", "hashtags": ["..."], "image_prompt": "..."}`,
		trend.Title, trend.Summary, trend.EmotionalAngle)

	content, err := c.complete(ctx, contentSystemPrompt, user, 1500)
	if err != nil {
		return models.GeneratedContent{}, err
	}

	var raw rawDirectContent
	if err := json.Unmarshal([]byte(util.ExtractJSON(content)), &raw); err != nil {
		return models.GeneratedContent{}, fmt.Errorf("failed to parse content payload: %w", err)
	}
	return normalizeDirect(raw), nil
}

// normalizeDirect adapts the hook/content/cta raw shape into the canonical
// content record. The raw shape never leaves this package.
func normalizeDirect(raw rawDirectContent) models.GeneratedContent {
	parts := make([]string, 0, 3)
	for _, p := range []string{raw.Hook, raw.Content, raw.CTA} {
		if strings.TrimSpace(p) != "" {
			parts = append(parts, strings.TrimSpace(p))
		}
	}
	return models.GeneratedContent{
		BodyText:       strings.Join(parts, "\n\n"),
		Hashtags:       raw.Hashtags,
		ImagePrompt:    raw.ImagePrompt,
		CallToAction:   raw.CTA,
		SourceProvider: ProviderName,
	}
}
