package pipeline

import (
	"context"
	"errors"
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/mbarki/trendpilot/internal/models"
)

type stubResearcher struct {
	name string
	res  models.ResearchResult
	err  error
}

func (s *stubResearcher) Name() string { return s.name }
func (s *stubResearcher) ResearchTopic(ctx context.Context, topic string) (models.ResearchResult, error) {
	return s.res, s.err
}

type stubGenerator struct {
	name    string
	content models.GeneratedContent
	err     error
	calls   int
}

func (s *stubGenerator) Name() string { return s.name }
func (s *stubGenerator) GenerateContent(ctx context.Context, trend models.Trend) (models.GeneratedContent, error) {
	s.calls++
	return s.content, s.err
}

type stubAIRenderer struct {
	img []byte
	err error
}

func (s *stubAIRenderer) RenderImage(ctx context.Context, prompt string) ([]byte, error) {
	return s.img, s.err
}

type stubTemplate struct{}

func (stubTemplate) Render(title, summary, topic string) []byte { return []byte("template") }

func TestResearchTopicFirstProviderWins(t *testing.T) {
	want := models.ResearchResult{Topic: "solar", Relevance: "big", SourceProvider: "gemini"}
	p := New(WithResearchChain(
		&stubResearcher{name: "gemini", res: want},
		&stubResearcher{name: "openai", err: errors.New("should not be reached")},
	))

	got, failures := p.ResearchTopic(context.Background(), "solar")
	if got.SourceProvider != "gemini" {
		t.Errorf("expected gemini result, got %+v", got)
	}
	if len(failures) != 0 {
		t.Errorf("expected no failures, got %v", failures)
	}
}

func TestResearchTopicSynthesizesWhenExhausted(t *testing.T) {
	p := New(WithResearchChain(
		&stubResearcher{name: "gemini", err: errors.New("quota")},
		&stubResearcher{name: "openai", err: errors.New("down")},
	))

	got, failures := p.ResearchTopic(context.Background(), "green hydrogen")
	if got.SourceProvider != BasicResearchProvider {
		t.Fatalf("expected basic synthesis, got %+v", got)
	}
	if got.Topic != "green hydrogen" || got.Relevance != "Analysis of green hydrogen" {
		t.Errorf("unexpected basic result: %+v", got)
	}
	if len(failures) != 2 {
		t.Errorf("expected both failures reported, got %v", failures)
	}
}

func TestBuildTrendFromResearchClamps(t *testing.T) {
	res := models.ResearchResult{
		Topic:     strings.Repeat("t", 150),
		Relevance: strings.Repeat("s", 400),
	}
	trend := BuildTrendFromResearch(res)
	if len(trend.Title) != models.MaxTrendTitleLength {
		t.Errorf("title not clamped: %d", len(trend.Title))
	}
	if len(trend.Summary) != models.MaxTrendSummaryLength {
		t.Errorf("summary not clamped: %d", len(trend.Summary))
	}
	if trend.Origin != models.OriginCustom || trend.EmotionalAngle != "Informative" {
		t.Errorf("unexpected trend shape: %+v", trend)
	}
	if err := trend.Validate(); err != nil {
		t.Errorf("built trend invalid: %v", err)
	}
}

func TestBuildTrendFromResearchClampsOnRuneBoundaries(t *testing.T) {
	res := models.ResearchResult{
		Topic:     strings.Repeat("é", 150),
		Relevance: strings.Repeat("م", 400),
	}
	trend := BuildTrendFromResearch(res)
	if !utf8.ValidString(trend.Title) || !utf8.ValidString(trend.Summary) {
		t.Fatalf("clamped fields are not valid UTF-8")
	}
	if n := utf8.RuneCountInString(trend.Title); n != models.MaxTrendTitleLength {
		t.Errorf("title not clamped to rune limit: %d", n)
	}
	if n := utf8.RuneCountInString(trend.Summary); n != models.MaxTrendSummaryLength {
		t.Errorf("summary not clamped to rune limit: %d", n)
	}
}

func TestGenerateContentFallsThrough(t *testing.T) {
	first := &stubGenerator{name: "gemini", err: errors.New("overloaded")}
	second := &stubGenerator{name: "openai", content: models.GeneratedContent{BodyText: "hello", SourceProvider: "openai"}}
	p := New(WithContentChain(first, second))

	got, failures, err := p.GenerateContent(context.Background(), models.Trend{Title: "t"})
	if err != nil {
		t.Fatalf("GenerateContent failed: %v", err)
	}
	if got.SourceProvider != "openai" {
		t.Errorf("expected second provider result, got %+v", got)
	}
	if len(failures) != 1 || failures[0].Provider != "gemini" {
		t.Errorf("expected gemini failure recorded, got %v", failures)
	}
}

func TestGenerateContentExhaustionIsError(t *testing.T) {
	p := New(WithContentChain(
		&stubGenerator{name: "gemini", err: errors.New("a")},
		&stubGenerator{name: "openai", err: errors.New("b")},
		&stubGenerator{name: "perplexity", err: errors.New("c")},
	))

	_, failures, err := p.GenerateContent(context.Background(), models.Trend{Title: "t"})
	if err == nil {
		t.Fatalf("expected error on exhaustion")
	}
	if len(failures) != 3 {
		t.Errorf("expected three failures, got %v", failures)
	}
}

func TestRenderImagePrefersAI(t *testing.T) {
	p := New(
		WithAIRenderer(&stubAIRenderer{img: []byte("ai")}),
		WithTemplateRenderer(stubTemplate{}),
	)
	img := p.RenderImage(context.Background(), models.Trend{Title: "t"}, models.GeneratedContent{ImagePrompt: "a city"})
	if string(img) != "ai" {
		t.Errorf("expected AI image, got %q", img)
	}
}

func TestRenderImageFallsBackToTemplate(t *testing.T) {
	p := New(
		WithAIRenderer(&stubAIRenderer{err: errors.New("not configured")}),
		WithTemplateRenderer(stubTemplate{}),
	)
	img := p.RenderImage(context.Background(), models.Trend{Title: "t"}, models.GeneratedContent{ImagePrompt: "a city"})
	if string(img) != "template" {
		t.Errorf("expected template image, got %q", img)
	}
}

func TestFormatContentMessage(t *testing.T) {
	trend := models.Trend{Title: "Solar Growth"}
	content := models.GeneratedContent{
		BodyText:       "Morocco leads.",
		CallToAction:   "Thoughts?",
		Hashtags:       []string{"Morocco", "Solar"},
		SourceProvider: "gemini",
	}
	msg := FormatContentMessage(trend, content)
	for _, want := range []string{"Solar Growth", "Morocco leads.", "Thoughts?", "#Morocco #Solar", "gemini", "/publish"} {
		if !strings.Contains(msg, want) {
			t.Errorf("message missing %q:\n%s", want, msg)
		}
	}
}
