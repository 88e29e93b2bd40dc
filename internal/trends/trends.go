// Package trends implements the trend discovery stage.
//
// It wraps a trend source, guarantees the pipeline always has candidates to
// offer, and formats trends for user selection.
package trends

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/mbarki/trendpilot/internal/models"
)

// Source returns candidate topics. It may fail; failure triggers the fixed
// fallback list.
type Source interface {
	DiscoverTrends(ctx context.Context) ([]models.Trend, error)
}

// Stage obtains, validates and shapes candidate trends.
type Stage struct {
	source Source
}

// NewStage creates a discovery stage over the given source.
func NewStage(source Source) *Stage {
	return &Stage{source: source}
}

// Discover returns candidate trends. When the source fails outright the
// documented fallback list is returned together with the source error so the
// caller can record it; the returned trends are always usable.
func (s *Stage) Discover(ctx context.Context) ([]models.Trend, error) {
	trends, err := s.source.DiscoverTrends(ctx)
	if err != nil {
		slog.Warn("Trend source failed, using fallback list", "error", err)
		return FallbackTrends(), err
	}
	slog.Info("Trend discovery succeeded", "count", len(trends))
	return trends, nil
}

// FallbackTrends is the fixed list offered when the trend source is
// unavailable. It always contains at least five entries.
func FallbackTrends() []models.Trend {
	return []models.Trend{
		{
			Title:          "AI Revolution in Business",
			Summary:        "Artificial intelligence continues to transform industries worldwide, with new applications emerging daily.",
			EmotionalAngle: "Exciting",
			Origin:         models.OriginGlobal,
		},
		{
			Title:          "Morocco's Digital Transformation",
			Summary:        "Morocco accelerates its digital economy initiatives with new tech hubs and startup funding.",
			EmotionalAngle: "Inspiring",
			Origin:         models.OriginMorocco,
		},
		{
			Title:          "Sustainable Development Goals",
			Summary:        "Global focus on sustainability drives innovation in renewable energy and green technology.",
			EmotionalAngle: "Informative",
			Origin:         models.OriginGlobal,
		},
		{
			Title:          "Moroccan Tourism Recovery",
			Summary:        "Morocco's tourism sector shows strong recovery with record visitor numbers this year.",
			EmotionalAngle: "Positive",
			Origin:         models.OriginMorocco,
		},
		{
			Title:          "Remote Work Evolution",
			Summary:        "The future of work continues to evolve with hybrid models becoming the new standard.",
			EmotionalAngle: "Informative",
			Origin:         models.OriginGlobal,
		},
	}
}

// FormatMessage renders trends for selection. The split into Global and
// Moroccan sections is a display-time, order-preserving partition; selection
// numbers are 1-based positions in the stored sequence.
func FormatMessage(trends []models.Trend) string {
	var global, local []int
	for i, t := range trends {
		if t.Origin == models.OriginGlobal {
			global = append(global, i)
		} else {
			local = append(local, i)
		}
	}

	var b strings.Builder
	b.WriteString("🔍 *Morocco Trend Scanner Results*\n\n")

	if len(global) > 0 {
		b.WriteString("🌍 *Global Major Events:*\n\n")
		writeSection(&b, trends, global)
	}
	if len(local) > 0 {
		b.WriteString("🇲🇦 *Moroccan Major Events:*\n\n")
		writeSection(&b, trends, local)
	}

	fmt.Fprintf(&b, "📝 *To create content about a trend:*\nReply with the number (1-%d) or use:\n`/topic Your custom topic here`", len(trends))
	return b.String()
}

func writeSection(b *strings.Builder, trends []models.Trend, indexes []int) {
	for _, i := range indexes {
		t := trends[i]
		fmt.Fprintf(b, "*%d. %s*\n_%s_\n💭 %s\n\n", i+1, t.Title, t.Summary, t.EmotionalAngle)
	}
}
