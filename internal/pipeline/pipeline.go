// Package pipeline orchestrates research, content generation and image
// rendering across the provider chains.
package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/mbarki/trendpilot/internal/fallback"
	"github.com/mbarki/trendpilot/internal/models"
)

// BasicResearchProvider annotates results synthesized locally when every
// research provider fails.
const BasicResearchProvider = "basic"

// ResearchProvider researches a custom topic.
type ResearchProvider interface {
	Name() string
	ResearchTopic(ctx context.Context, topic string) (models.ResearchResult, error)
}

// ContentProvider generates post content for a trend.
type ContentProvider interface {
	Name() string
	GenerateContent(ctx context.Context, trend models.Trend) (models.GeneratedContent, error)
}

// AIRenderer generates an image from a prompt. It is optional; when absent
// or failing the template renderer takes over.
type AIRenderer interface {
	RenderImage(ctx context.Context, prompt string) ([]byte, error)
}

// TemplateRenderer draws a local image. It never fails.
type TemplateRenderer interface {
	Render(title, summary, topic string) []byte
}

// Pipeline runs the content production stages. Research and content each
// walk their own ordered provider chain; the chains are deliberately
// asymmetric.
type Pipeline struct {
	research []ResearchProvider
	content  []ContentProvider
	ai       AIRenderer
	template TemplateRenderer
}

// Opts holds configuration options for the pipeline.
type Opts struct {
	Research []ResearchProvider
	Content  []ContentProvider
	AI       AIRenderer
	Template TemplateRenderer
}

// Option defines a configuration option for the pipeline.
type Option func(*Opts)

// WithResearchChain sets the ordered research provider chain.
func WithResearchChain(providers ...ResearchProvider) Option {
	return func(o *Opts) {
		o.Research = providers
	}
}

// WithContentChain sets the ordered content provider chain.
func WithContentChain(providers ...ContentProvider) Option {
	return func(o *Opts) {
		o.Content = providers
	}
}

// WithAIRenderer sets the optional AI image renderer.
func WithAIRenderer(r AIRenderer) Option {
	return func(o *Opts) {
		o.AI = r
	}
}

// WithTemplateRenderer sets the fallback template renderer.
func WithTemplateRenderer(r TemplateRenderer) Option {
	return func(o *Opts) {
		o.Template = r
	}
}

// New creates a pipeline, applying any provided options.
func New(opts ...Option) *Pipeline {
	var cfg Opts
	for _, opt := range opts {
		opt(&cfg)
	}
	return &Pipeline{research: cfg.Research, content: cfg.Content, ai: cfg.AI, template: cfg.Template}
}

// ResearchTopic walks the research chain in order. When every provider
// fails it synthesizes a basic result locally, so research always produces
// a usable value; the returned failures let the caller record what broke.
func (p *Pipeline) ResearchTopic(ctx context.Context, topic string) (models.ResearchResult, []fallback.Failure) {
	providers := make([]fallback.Provider[models.ResearchResult], 0, len(p.research))
	for _, rp := range p.research {
		rp := rp
		providers = append(providers, fallback.Provider[models.ResearchResult]{
			Name: rp.Name(),
			Call: func(ctx context.Context) (models.ResearchResult, error) {
				return rp.ResearchTopic(ctx, topic)
			},
		})
	}

	outcome := fallback.Invoke(ctx, "research", providers)
	if outcome.Exhausted {
		slog.Warn("All research providers failed, synthesizing basic result", "topic", topic)
		return basicResearch(topic), outcome.Failures
	}
	return outcome.Value, outcome.Failures
}

// basicResearch is the always-available final research tier.
func basicResearch(topic string) models.ResearchResult {
	return models.ResearchResult{
		Topic:          topic,
		Relevance:      fmt.Sprintf("Analysis of %s", topic),
		Insights:       []string{"Research in progress"},
		SourceProvider: BasicResearchProvider,
	}
}

// BuildTrendFromResearch shapes a research result into a selectable trend.
// Title and summary are clamped to the model limits.
func BuildTrendFromResearch(res models.ResearchResult) models.Trend {
	summary := res.Relevance
	if summary == "" && len(res.Insights) > 0 {
		summary = strings.Join(res.Insights, " ")
	}
	return models.Trend{
		Title:          clamp(res.Topic, models.MaxTrendTitleLength),
		Summary:        clamp(summary, models.MaxTrendSummaryLength),
		EmotionalAngle: "Informative",
		Origin:         models.OriginCustom,
	}
}

// clamp shortens s to at most max characters. Counting runes keeps
// multi-byte text (Arabic, accented French) intact.
func clamp(s string, max int) string {
	runes := []rune(s)
	if len(runes) <= max {
		return s
	}
	return string(runes[:max-3]) + "..."
}

// GenerateContent walks the content chain in order. Exhaustion is an error;
// there is no local synthesis tier for post content.
func (p *Pipeline) GenerateContent(ctx context.Context, trend models.Trend) (models.GeneratedContent, []fallback.Failure, error) {
	providers := make([]fallback.Provider[models.GeneratedContent], 0, len(p.content))
	for _, cp := range p.content {
		cp := cp
		providers = append(providers, fallback.Provider[models.GeneratedContent]{
			Name: cp.Name(),
			Call: func(ctx context.Context) (models.GeneratedContent, error) {
				return cp.GenerateContent(ctx, trend)
			},
		})
	}

	outcome := fallback.Invoke(ctx, "content", providers)
	if outcome.Exhausted {
		return models.GeneratedContent{}, outcome.Failures, fmt.Errorf("all content providers failed for %q", trend.Title)
	}
	return outcome.Value, outcome.Failures, nil
}

// RenderImage produces post artwork. The AI renderer is tried first when
// configured; the template renderer guarantees a result.
func (p *Pipeline) RenderImage(ctx context.Context, trend models.Trend, content models.GeneratedContent) []byte {
	if p.ai != nil && content.ImagePrompt != "" {
		img, err := p.ai.RenderImage(ctx, content.ImagePrompt)
		if err == nil && len(img) > 0 {
			slog.Info("AI image generated", "prompt_length", len(content.ImagePrompt))
			return img
		}
		if err != nil {
			slog.Warn("AI image generation failed, using template", "error", err)
		}
	}
	if p.template == nil {
		return nil
	}
	return p.template.Render(trend.Title, trend.Summary, trend.Title)
}

// FormatContentMessage renders generated content for the preview step.
func FormatContentMessage(trend models.Trend, content models.GeneratedContent) string {
	var b strings.Builder
	fmt.Fprintf(&b, "✨ *Content Ready: %s*\n\n", trend.Title)
	b.WriteString(content.BodyText)
	if cta := strings.TrimSpace(content.CallToAction); cta != "" && !strings.Contains(content.BodyText, cta) {
		b.WriteString("\n\n")
		b.WriteString(cta)
	}
	if len(content.Hashtags) > 0 {
		b.WriteString("\n\n")
		for i, tag := range content.Hashtags {
			if i > 0 {
				b.WriteString(" ")
			}
			b.WriteString("#" + strings.TrimPrefix(tag, "#"))
		}
	}
	fmt.Fprintf(&b, "\n\n_Generated by %s_\n\nUse /publish to post or /preview to see it again.", content.SourceProvider)
	return b.String()
}
