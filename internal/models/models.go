// Package models defines the core data structures for trendpilot.
//
// It includes types for trends, research results, generated content, and
// publish outcomes, which are shared across modules.
package models

import (
	"errors"
	"strings"
	"time"
)

// TrendOrigin identifies where a candidate topic came from.
type TrendOrigin string

const (
	// OriginGlobal marks trends with worldwide significance.
	OriginGlobal TrendOrigin = "Global"
	// OriginMorocco marks trends specific to Morocco.
	OriginMorocco TrendOrigin = "Morocco"
	// OriginCustom marks trends built from a user-supplied topic.
	OriginCustom TrendOrigin = "Custom"
)

// Validation constants for input validation
const (
	// MinTopicLength defines the minimum allowed length for a custom topic
	MinTopicLength = 3
	// MaxTopicLength defines the maximum allowed length for a custom topic
	MaxTopicLength = 200
	// MaxTrendTitleLength defines the maximum title length stored for a trend
	MaxTrendTitleLength = 100
	// MaxTrendSummaryLength defines the maximum summary length stored for a trend
	MaxTrendSummaryLength = 300
)

// Error variables for better error handling and testability
var (
	ErrMissingTitle          = errors.New("trend title cannot be empty")
	ErrMissingSummary        = errors.New("trend summary cannot be empty")
	ErrMissingEmotionalAngle = errors.New("trend emotional angle cannot be empty")
	ErrInvalidOrigin         = errors.New("trend origin is not recognized")
	ErrTopicTooShort         = errors.New("topic must be at least 3 characters")
	ErrTopicTooLong          = errors.New("topic exceeds maximum length")
	ErrMissingBodyText       = errors.New("generated content body cannot be empty")
)

// IsValidOrigin checks if the given trend origin is supported.
func IsValidOrigin(o TrendOrigin) bool {
	switch o {
	case OriginGlobal, OriginMorocco, OriginCustom:
		return true
	default:
		return false
	}
}

// Trend represents a candidate discussion topic surfaced to the user.
type Trend struct {
	Title          string      `json:"title"`
	Summary        string      `json:"summary"`
	EmotionalAngle string      `json:"emotionalAngle"`
	Origin         TrendOrigin `json:"origin"`
}

// Validate checks that all four required trend fields are present.
// Candidates failing validation are dropped during discovery, not surfaced.
func (t *Trend) Validate() error {
	if strings.TrimSpace(t.Title) == "" {
		return ErrMissingTitle
	}
	if strings.TrimSpace(t.Summary) == "" {
		return ErrMissingSummary
	}
	if strings.TrimSpace(t.EmotionalAngle) == "" {
		return ErrMissingEmotionalAngle
	}
	if !IsValidOrigin(t.Origin) {
		return ErrInvalidOrigin
	}
	return nil
}

// ValidateTopic checks a user-supplied custom topic against length bounds.
func ValidateTopic(topic string) error {
	trimmed := strings.TrimSpace(topic)
	if len(trimmed) < MinTopicLength {
		return ErrTopicTooShort
	}
	if len(topic) > MaxTopicLength {
		return ErrTopicTooLong
	}
	return nil
}

// ResearchResult holds structured research for a custom topic.
type ResearchResult struct {
	Topic           string   `json:"topic"`
	Relevance       string   `json:"relevance"`
	Insights        []string `json:"insights"`
	MoroccanAngle   string   `json:"moroccan_angle,omitempty"`
	DiscussionAngle string   `json:"discussion_angle,omitempty"`
	SourceProvider  string   `json:"source,omitempty"`
}

// GeneratedContent is the single canonical record for AI-generated post
// content. Providers return differing raw shapes; each provider adapter
// normalizes to this record before anything is stored.
type GeneratedContent struct {
	BodyText       string   `json:"body_text"`
	Hashtags       []string `json:"hashtags"`
	ImagePrompt    string   `json:"image_prompt"`
	CallToAction   string   `json:"call_to_action"`
	SourceProvider string   `json:"source"`
}

// Validate checks that normalized content carries the minimum usable fields.
func (c *GeneratedContent) Validate() error {
	if strings.TrimSpace(c.BodyText) == "" {
		return ErrMissingBodyText
	}
	return nil
}

// PublishResult reports the outcome of a publish attempt.
type PublishResult struct {
	Success bool   `json:"success"`
	PostID  string `json:"post_id,omitempty"`
	Message string `json:"message"`
}

// ErrorRecord is a snapshot of a recorded failure.
type ErrorRecord struct {
	ErrorType string            `json:"error_type"`
	Message   string            `json:"error_message"`
	Context   map[string]string `json:"context,omitempty"`
	Time      time.Time         `json:"timestamp"`
}

// PostRecord archives a successfully published post.
type PostRecord struct {
	ID             string    `json:"id"`
	ChatID         int64     `json:"chat_id"`
	PostID         string    `json:"post_id"`
	Title          string    `json:"title"`
	SourceProvider string    `json:"source"`
	Time           time.Time `json:"timestamp"`
}

// HealthStatus is the aggregate process health payload served by /status
// and the HTTP health endpoint.
type HealthStatus struct {
	Uptime           string       `json:"uptime"`
	TotalRequests    int64        `json:"total_requests"`
	TotalErrors      int64        `json:"total_errors"`
	ErrorRatePercent float64      `json:"error_rate_percent"`
	LastError        *ErrorRecord `json:"last_error,omitempty"`
	Status           string       `json:"status"`
}
