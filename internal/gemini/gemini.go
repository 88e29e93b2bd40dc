// Package gemini wraps the Google Gemini REST API.
//
// It is the primary tier of both the research and content generation chains.
package gemini

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/mbarki/trendpilot/internal/models"
	"github.com/mbarki/trendpilot/internal/util"
)

// Constants for Gemini client configuration
const (
	// DefaultBaseURL is the generative language API root
	DefaultBaseURL = "https://generativelanguage.googleapis.com/v1beta/models"
	// DefaultModel is the text model used for research and content
	DefaultModel = "gemini-2.5-flash"
	// DefaultTimeout bounds each outbound request
	DefaultTimeout = 30 * time.Second
	// ProviderName annotates results produced by this provider
	ProviderName = "gemini"
)

// Opts holds configuration options for the Gemini client.
type Opts struct {
	APIKey  string
	BaseURL string
	Model   string
	Client  *http.Client
}

// Option defines a configuration option for the Gemini client.
type Option func(*Opts)

// WithAPIKey sets the Gemini API key.
func WithAPIKey(key string) Option {
	return func(o *Opts) {
		o.APIKey = key
	}
}

// WithBaseURL overrides the API root (used in tests).
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

// Client calls the Gemini generateContent endpoint.
type Client struct {
	apiKey  string
	baseURL string
	model   string
	http    *http.Client
}

// NewClient creates a Gemini client, applying any provided options.
func NewClient(opts ...Option) *Client {
	cfg := Opts{BaseURL: DefaultBaseURL, Model: DefaultModel}
	for _, opt := range opts {
		opt(&cfg)
	}
	if cfg.Client == nil {
		cfg.Client = &http.Client{Timeout: DefaultTimeout}
	}
	slog.Debug("Creating Gemini client", "model", cfg.Model, "api_key_set", cfg.APIKey != "")
	return &Client{apiKey: cfg.APIKey, baseURL: cfg.BaseURL, model: cfg.Model, http: cfg.Client}
}

// Name identifies this provider in fallback chains.
func (c *Client) Name() string {
	return ProviderName
}

type generatePart struct {
	Text string `json:"text"`
}

type generateContent struct {
	Parts []generatePart `json:"parts"`
}

type generateRequest struct {
	Contents []generateContent `json:"contents"`
}

type generateResponse struct {
	Candidates []struct {
		Content generateContent `json:"content"`
	} `json:"candidates"`
}

// generate sends one prompt and returns the first candidate text.
func (c *Client) generate(ctx context.Context, prompt string) (string, error) {
	if c.apiKey == "" {
		return "", fmt.Errorf("gemini API key not configured")
	}

	req := generateRequest{
		Contents: []generateContent{{Parts: []generatePart{{Text: prompt}}}},
	}
	body, err := json.Marshal(req)
	if err != nil {
		return "", fmt.Errorf("failed to encode request: %w", err)
	}

	url := fmt.Sprintf("%s/%s:generateContent?key=%s", c.baseURL, c.model, c.apiKey)
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("failed to build request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(httpReq)
	if err != nil {
		return "", fmt.Errorf("gemini request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("gemini returned status %d", resp.StatusCode)
	}

	var parsed generateResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return "", fmt.Errorf("failed to decode gemini response: %w", err)
	}
	if len(parsed.Candidates) == 0 || len(parsed.Candidates[0].Content.Parts) == 0 {
		return "", fmt.Errorf("gemini returned no candidates")
	}
	return parsed.Candidates[0].Content.Parts[0].Text, nil
}

// rawPostContent is the post_text shape Gemini answers with.
type rawPostContent struct {
	PostText     string   `json:"post_text"`
	Hashtags     []string `json:"hashtags"`
	ImagePrompt  string   `json:"image_prompt"`
	CallToAction string   `json:"call_to_action"`
}

// GenerateContent produces LinkedIn post content for a trend.
func (c *Client) GenerateContent(ctx context.Context, trend models.Trend) (models.GeneratedContent, error) {
	prompt := fmt.Sprintf(`You are a professional LinkedIn content creator specializing in Morocco-focused posts.
Create an engaging LinkedIn post (200-300 words) about this topic.
Title: %s
Summary: %s
Emotional angle: %s
Origin: %s
Use a professional but conversational tone, include relevant insights, add a Moroccan perspective if relevant, end with a thought-provoking question, suggest 5-7 hashtags, and describe a professional image to accompany the post.
Respond with ONLY JSON: {"post_text": "...", "hashtags": ["..."], "image_prompt": "...", "call_to_action": "..."}`,
		trend.Title, trend.Summary, trend.EmotionalAngle, trend.Origin)

	text, err := c.generate(ctx, prompt)
	if err != nil {
		return models.GeneratedContent{}, err
	}

	var raw rawPostContent
	if err := json.Unmarshal([]byte(util.ExtractJSON(text)), &raw); err != nil {
		return models.GeneratedContent{}, fmt.Errorf("failed to parse content payload: %w", err)
	}

	content := normalizePost(raw)
	if err := content.Validate(); err != nil {
		return models.GeneratedContent{}, fmt.Errorf("gemini content incomplete: %w", err)
	}
	return content, nil
}

// normalizePost adapts the post_text raw shape into the canonical content
// record. The raw shape never leaves this package.
func normalizePost(raw rawPostContent) models.GeneratedContent {
	return models.GeneratedContent{
		BodyText:       raw.PostText,
		Hashtags:       raw.Hashtags,
		ImagePrompt:    raw.ImagePrompt,
		CallToAction:   raw.CallToAction,
		SourceProvider: ProviderName,
	}
}

type rawResearch struct {
	Topic           string   `json:"topic"`
	Insights        []string `json:"insights"`
	Relevance       string   `json:"relevance"`
	MoroccanAngle   string   `json:"moroccan_angle"`
	DiscussionAngle string   `json:"discussion_angle"`
}

// ResearchTopic researches a custom topic into structured analysis.
func (c *Client) ResearchTopic(ctx context.Context, topic string) (models.ResearchResult, error) {
	prompt := fmt.Sprintf(`You are a professional content researcher and LinkedIn ghostwriter.
Research this topic: %q
Provide key insights, why it matters professionally, a Moroccan perspective if relevant, and a suggested discussion angle.
Respond with ONLY JSON: {"topic": %q, "insights": ["..."], "relevance": "...", "moroccan_angle": "...", "discussion_angle": "..."}`, topic, topic)

	text, err := c.generate(ctx, prompt)
	if err != nil {
		return models.ResearchResult{}, err
	}

	var raw rawResearch
	if err := json.Unmarshal([]byte(util.ExtractJSON(text)), &raw); err != nil {
		return models.ResearchResult{}, fmt.Errorf("failed to parse research payload: %w", err)
	}

	result := models.ResearchResult{
		Topic:           raw.Topic,
		Relevance:       raw.Relevance,
		Insights:        raw.Insights,
		MoroccanAngle:   raw.MoroccanAngle,
		DiscussionAngle: raw.DiscussionAngle,
		SourceProvider:  ProviderName,
	}
	if result.Topic == "" {
		result.Topic = topic
	}
	return result, nil
}
