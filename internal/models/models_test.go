package models

import (
	"strings"
	"testing"
)

func TestTrendValidate(t *testing.T) {
	trend := Trend{
		Title:          "Morocco's Digital Transformation",
		Summary:        "Morocco accelerates its digital economy initiatives.",
		EmotionalAngle: "Inspiring",
		Origin:         OriginMorocco,
	}
	if err := trend.Validate(); err != nil {
		t.Errorf("expected valid trend, got error: %v", err)
	}
}

func TestTrendValidateMissingFields(t *testing.T) {
	cases := []struct {
		name  string
		trend Trend
		want  error
	}{
		{"missing title", Trend{Summary: "s", EmotionalAngle: "e", Origin: OriginGlobal}, ErrMissingTitle},
		{"missing summary", Trend{Title: "t", EmotionalAngle: "e", Origin: OriginGlobal}, ErrMissingSummary},
		{"missing angle", Trend{Title: "t", Summary: "s", Origin: OriginGlobal}, ErrMissingEmotionalAngle},
		{"bad origin", Trend{Title: "t", Summary: "s", EmotionalAngle: "e", Origin: "Mars"}, ErrInvalidOrigin},
		{"whitespace title", Trend{Title: "   ", Summary: "s", EmotionalAngle: "e", Origin: OriginGlobal}, ErrMissingTitle},
	}
	for _, c := range cases {
		if err := c.trend.Validate(); err != c.want {
			t.Errorf("%s: expected %v, got %v", c.name, c.want, err)
		}
	}
}

func TestValidateTopic(t *testing.T) {
	if err := ValidateTopic("Financial problems in Morocco 2025"); err != nil {
		t.Errorf("expected valid topic, got %v", err)
	}
	if err := ValidateTopic("ab"); err != ErrTopicTooShort {
		t.Errorf("expected ErrTopicTooShort, got %v", err)
	}
	if err := ValidateTopic("  a  "); err != ErrTopicTooShort {
		t.Errorf("expected ErrTopicTooShort for padded short topic, got %v", err)
	}
	long := strings.Repeat("x", MaxTopicLength+1)
	if err := ValidateTopic(long); err != ErrTopicTooLong {
		t.Errorf("expected ErrTopicTooLong, got %v", err)
	}
}

func TestGeneratedContentValidate(t *testing.T) {
	c := GeneratedContent{BodyText: "A post body", Hashtags: []string{"Morocco"}}
	if err := c.Validate(); err != nil {
		t.Errorf("expected valid content, got %v", err)
	}
	empty := GeneratedContent{Hashtags: []string{"Morocco"}}
	if err := empty.Validate(); err != ErrMissingBodyText {
		t.Errorf("expected ErrMissingBodyText, got %v", err)
	}
}

func TestIsValidOrigin(t *testing.T) {
	for _, o := range []TrendOrigin{OriginGlobal, OriginMorocco, OriginCustom} {
		if !IsValidOrigin(o) {
			t.Errorf("expected %q to be valid", o)
		}
	}
	if IsValidOrigin("Elsewhere") {
		t.Errorf("expected unknown origin to be invalid")
	}
}
