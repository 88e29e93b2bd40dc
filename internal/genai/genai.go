// Package genai provides the OpenAI-backed research and content provider.
//
// It is the secondary tier of both capability chains.
package genai

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"

	"github.com/mbarki/trendpilot/internal/models"
	"github.com/mbarki/trendpilot/internal/util"
)

// ProviderName annotates results produced by this provider.
const ProviderName = "openai"

// chatCompleter defines the minimal interface for chat completions.
type chatCompleter interface {
	New(ctx context.Context, body openai.ChatCompletionNewParams, opts ...option.RequestOption) (*openai.ChatCompletion, error)
}

// Opts holds configuration options for the GenAI client.
type Opts struct {
	APIKey string
	Model  openai.ChatModel
}

// Option defines a configuration option for the GenAI client.
type Option func(*Opts)

// WithAPIKey sets the OpenAI API key.
func WithAPIKey(key string) Option {
	return func(o *Opts) {
		o.APIKey = key
	}
}

// WithModel overrides the chat model.
func WithModel(model openai.ChatModel) Option {
	return func(o *Opts) {
		o.Model = model
	}
}

// Client wraps the OpenAI chat-completion service for research and content
// generation.
type Client struct {
	completions chatCompleter
	model       openai.ChatModel
}

// NewClient initializes a GenAI client, applying any provided options.
func NewClient(opts ...Option) (*Client, error) {
	cfg := Opts{Model: openai.ChatModelGPT4oMini}
	for _, opt := range opts {
		opt(&cfg)
	}
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("OpenAI API key not set")
	}
	slog.Debug("Creating GenAI client", "model", cfg.Model)
	cli := openai.NewClient(option.WithAPIKey(cfg.APIKey))
	return &Client{completions: &cli.Chat.Completions, model: cfg.Model}, nil
}

// Name identifies this provider in fallback chains.
func (c *Client) Name() string {
	return ProviderName
}

// complete sends one chat request and returns the assistant message content.
func (c *Client) complete(ctx context.Context, system, user string) (string, error) {
	resp, err := c.completions.New(ctx, openai.ChatCompletionNewParams{
		Model: c.model,
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.SystemMessage(system),
			openai.UserMessage(user),
		},
	})
	if err != nil {
		return "", err
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("no choices returned")
	}
	return resp.Choices[0].Message.Content, nil
}

// rawContent is the hook/content/cta shape this provider answers with.
type rawContent struct {
	Hook        string   `json:"hook"`
	Content     string   `json:"content"`
	CTA         string   `json:"cta"`
	Hashtags    []string `json:"hashtags"`
	ImagePrompt string   `json:"image_prompt"`
}

// GenerateContent produces LinkedIn post content for a trend. Unparseable
// model output is salvaged into a minimal structured record rather than
// failing the chain outright.
func (c *Client) GenerateContent(ctx context.Context, trend models.Trend) (models.GeneratedContent, error) {
	system := "You are a professional LinkedIn content strategist who creates viral, engaging posts. Always respond with valid JSON."
	user := fmt.Sprintf(`Generate a professional LinkedIn post (200-300 words) about this trending topic.
Topic: %s
Context: %s
Emotional angle: %s
Start with a hook, include relevant insights and takeaways, use a professional but conversational tone, and add 5-7 relevant hashtags.
Respond with ONLY JSON: {"hook": "...", "content": "...", "cta": "...", "hashtags": ["..."], "image_prompt": "..."}`,
		trend.Title, trend.Summary, trend.EmotionalAngle)

	text, err := c.complete(ctx, system, user)
	if err != nil {
		return models.GeneratedContent{}, fmt.Errorf("openai content generation failed: %w", err)
	}

	var raw rawContent
	if err := json.Unmarshal([]byte(util.ExtractJSON(text)), &raw); err != nil {
		slog.Warn("OpenAI returned non-JSON content, salvaging plain text", "error", err)
		return salvageContent(trend, text), nil
	}
	return normalize(raw), nil
}

// normalize adapts the hook/content/cta raw shape into the canonical content
// record. The raw shape never leaves this package.
func normalize(raw rawContent) models.GeneratedContent {
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

// maxSalvagedBodyRunes caps prose salvaged from non-JSON model output.
const maxSalvagedBodyRunes = 500

// salvageContent builds a usable record from prose output. The cut is on a
// rune boundary so multi-byte text survives intact.
func salvageContent(trend models.Trend, text string) models.GeneratedContent {
	body := strings.TrimSpace(text)
	if runes := []rune(body); len(runes) > maxSalvagedBodyRunes {
		body = string(runes[:maxSalvagedBodyRunes])
	}
	return models.GeneratedContent{
		BodyText:       body,
		Hashtags:       []string{"LinkedIn", "Business", "Innovation", "Trends", "Morocco"},
		ImagePrompt:    fmt.Sprintf("Professional image about %s", trend.Title),
		CallToAction:   "What are your thoughts on this?",
		SourceProvider: ProviderName,
	}
}

// rawResearch tolerates both list-shaped and prose-shaped insights.
type rawResearch struct {
	Topic     string          `json:"topic"`
	Relevance string          `json:"relevance"`
	Insights  json.RawMessage `json:"insights"`
}

// ResearchTopic analyzes a custom topic into structured research.
func (c *Client) ResearchTopic(ctx context.Context, topic string) (models.ResearchResult, error) {
	system := "You are a professional business analyst. Always respond with valid JSON."
	user := fmt.Sprintf(`Analyze this topic and provide professional insights for a LinkedIn post.
Topic: %s
Provide a clear professional title, why it matters with current trends (2-3 sentences), and key insights and takeaways.
Respond with ONLY JSON: {"topic": "...", "relevance": "...", "insights": ["..."]}`, topic)

	text, err := c.complete(ctx, system, user)
	if err != nil {
		return models.ResearchResult{}, fmt.Errorf("openai research failed: %w", err)
	}

	var raw rawResearch
	if err := json.Unmarshal([]byte(util.ExtractJSON(text)), &raw); err != nil {
		return models.ResearchResult{}, fmt.Errorf("failed to parse research payload: %w", err)
	}

	result := models.ResearchResult{
		Topic:          raw.Topic,
		Relevance:      raw.Relevance,
		Insights:       decodeInsights(raw.Insights),
		SourceProvider: ProviderName,
	}
	if result.Topic == "" {
		result.Topic = topic
	}
	return result, nil
}

// decodeInsights accepts either a JSON array of strings or a single string.
func decodeInsights(raw json.RawMessage) []string {
	if len(raw) == 0 {
		return nil
	}
	var list []string
	if err := json.Unmarshal(raw, &list); err == nil {
		return list
	}
	var single string
	if err := json.Unmarshal(raw, &single); err == nil && single != "" {
		return []string{single}
	}
	return nil
}
