package trends

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/mbarki/trendpilot/internal/models"
)

type stubSource struct {
	trends []models.Trend
	err    error
}

func (s *stubSource) DiscoverTrends(ctx context.Context) ([]models.Trend, error) {
	return s.trends, s.err
}

func TestDiscoverPassesThrough(t *testing.T) {
	want := []models.Trend{{Title: "t", Summary: "s", EmotionalAngle: "e", Origin: models.OriginGlobal}}
	stage := NewStage(&stubSource{trends: want})

	got, err := stage.Discover(context.Background())
	if err != nil {
		t.Fatalf("Discover failed: %v", err)
	}
	if len(got) != 1 || got[0].Title != "t" {
		t.Errorf("unexpected trends: %+v", got)
	}
}

func TestDiscoverFallsBackOnSourceFailure(t *testing.T) {
	stage := NewStage(&stubSource{err: errors.New("network down")})

	got, err := stage.Discover(context.Background())
	if err == nil {
		t.Errorf("expected source error to be reported")
	}
	if len(got) < 5 {
		t.Fatalf("expected at least 5 fallback trends, got %d", len(got))
	}
	for i, trend := range got {
		if vErr := trend.Validate(); vErr != nil {
			t.Errorf("fallback trend %d invalid: %v", i, vErr)
		}
	}
}

func TestFormatMessagePartitionsByOrigin(t *testing.T) {
	trends := []models.Trend{
		{Title: "Global One", Summary: "s1", EmotionalAngle: "Exciting", Origin: models.OriginGlobal},
		{Title: "Morocco One", Summary: "s2", EmotionalAngle: "Inspiring", Origin: models.OriginMorocco},
		{Title: "Global Two", Summary: "s3", EmotionalAngle: "Informative", Origin: models.OriginGlobal},
	}

	msg := FormatMessage(trends)

	globalSection := strings.Index(msg, "Global Major Events")
	moroccoSection := strings.Index(msg, "Moroccan Major Events")
	if globalSection < 0 || moroccoSection < 0 || globalSection > moroccoSection {
		t.Fatalf("expected global section before moroccan section:\n%s", msg)
	}
	// Numbering reflects stored positions, not section positions.
	if !strings.Contains(msg, "1. Global One") || !strings.Contains(msg, "3. Global Two") {
		t.Errorf("expected stored-sequence numbering for global trends:\n%s", msg)
	}
	if !strings.Contains(msg, "2. Morocco One") {
		t.Errorf("expected stored-sequence numbering for moroccan trend:\n%s", msg)
	}
	if !strings.Contains(msg, "(1-3)") {
		t.Errorf("expected selection range hint:\n%s", msg)
	}
}

func TestFormatMessageOmitsEmptySections(t *testing.T) {
	trends := []models.Trend{
		{Title: "Only Global", Summary: "s", EmotionalAngle: "e", Origin: models.OriginGlobal},
	}
	msg := FormatMessage(trends)
	if strings.Contains(msg, "Moroccan Major Events") {
		t.Errorf("expected no moroccan section:\n%s", msg)
	}
}
