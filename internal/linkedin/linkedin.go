// Package linkedin publishes posts through the LinkedIn REST API.
//
// Publishing an image post is a three-step exchange: register an upload,
// PUT the binary, then create the UGC post referencing the asset. A failed
// image upload degrades to a text-only post rather than failing the publish.
package linkedin

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/mbarki/trendpilot/internal/models"
)

// Constants for LinkedIn client configuration
const (
	// DefaultBaseURL is the LinkedIn REST API root
	DefaultBaseURL = "https://api.linkedin.com/v2"
	// DefaultTimeout bounds each outbound request
	DefaultTimeout = 60 * time.Second
	// restliVersion is required on all v2 API calls
	restliVersion = "2.0.0"
)

// Opts holds configuration options for the LinkedIn publisher.
type Opts struct {
	AccessToken string
	AuthorURN   string
	BaseURL     string
	Client      *http.Client
}

// Option defines a configuration option for the LinkedIn publisher.
type Option func(*Opts)

// WithAccessToken sets the OAuth access token.
func WithAccessToken(token string) Option {
	return func(o *Opts) {
		o.AccessToken = token
	}
}

// WithAuthorURN sets the author URN posts are published as.
func WithAuthorURN(urn string) Option {
	return func(o *Opts) {
		o.AuthorURN = urn
	}
}

// WithBaseURL overrides the API root (used in tests).
func WithBaseURL(url string) Option {
	return func(o *Opts) {
		o.BaseURL = url
	}
}

// WithHTTPClient overrides the HTTP client.
func WithHTTPClient(c *http.Client) Option {
	return func(o *Opts) {
		o.Client = c
	}
}

// Publisher posts content to LinkedIn.
type Publisher struct {
	token   string
	author  string
	baseURL string
	http    *http.Client
}

// NewPublisher creates a LinkedIn publisher, applying any provided options.
func NewPublisher(opts ...Option) *Publisher {
	cfg := Opts{BaseURL: DefaultBaseURL}
	for _, opt := range opts {
		opt(&cfg)
	}
	if cfg.Client == nil {
		cfg.Client = &http.Client{Timeout: DefaultTimeout}
	}
	slog.Debug("Creating LinkedIn publisher", "author", cfg.AuthorURN, "token_set", cfg.AccessToken != "")
	return &Publisher{token: cfg.AccessToken, author: cfg.AuthorURN, baseURL: cfg.BaseURL, http: cfg.Client}
}

// Configured reports whether credentials are present.
func (p *Publisher) Configured() bool {
	return p.token != "" && p.author != ""
}

// FormatPostText assembles the final post body: text, call to action, then
// hashtags rendered with a leading #.
func FormatPostText(content models.GeneratedContent) string {
	var b strings.Builder
	b.WriteString(strings.TrimSpace(content.BodyText))
	if cta := strings.TrimSpace(content.CallToAction); cta != "" && !strings.Contains(content.BodyText, cta) {
		b.WriteString("\n\n")
		b.WriteString(cta)
	}
	if len(content.Hashtags) > 0 {
		tags := make([]string, 0, len(content.Hashtags))
		for _, tag := range content.Hashtags {
			tag = strings.TrimSpace(strings.TrimPrefix(tag, "#"))
			if tag != "" {
				tags = append(tags, "#"+tag)
			}
		}
		if len(tags) > 0 {
			b.WriteString("\n\n")
			b.WriteString(strings.Join(tags, " "))
		}
	}
	return b.String()
}

// PublishPost publishes text (with an optional image) and reports the
// outcome as a value. Credentials missing or any API failure produce an
// unsuccessful result, never a panic.
func (p *Publisher) PublishPost(ctx context.Context, text string, image []byte) models.PublishResult {
	if !p.Configured() {
		return models.PublishResult{Success: false, Message: "LinkedIn credentials not configured"}
	}

	var assetURN string
	if len(image) > 0 {
		urn, err := p.uploadImage(ctx, image)
		if err != nil {
			slog.Warn("LinkedIn image upload failed, posting text-only", "error", err)
		} else {
			assetURN = urn
		}
	}

	postID, err := p.createPost(ctx, text, assetURN)
	if err != nil {
		slog.Error("LinkedIn publish failed", "error", err)
		return models.PublishResult{Success: false, Message: err.Error()}
	}

	slog.Info("LinkedIn post published", "post_id", postID, "with_image", assetURN != "")
	return models.PublishResult{Success: true, PostID: postID, Message: "Published to LinkedIn"}
}

type registerUploadResponse struct {
	Value struct {
		Asset           string `json:"asset"`
		UploadMechanism struct {
			MediaUploadHTTPRequest struct {
				UploadURL string `json:"uploadUrl"`
			} `json:"com.linkedin.digitalmedia.uploading.MediaUploadHttpRequest"`
		} `json:"uploadMechanism"`
	} `json:"value"`
}

// uploadImage registers an upload slot and PUTs the image bytes, returning
// the asset URN.
func (p *Publisher) uploadImage(ctx context.Context, image []byte) (string, error) {
	register := map[string]any{
		"registerUploadRequest": map[string]any{
			"recipes": []string{"urn:li:digitalmediaRecipe:feedshare-image"},
			"owner":   p.author,
			"serviceRelationships": []map[string]any{
				{"relationshipType": "OWNER", "identifier": "urn:li:userGeneratedContent"},
			},
		},
	}

	var reg registerUploadResponse
	if err := p.postJSON(ctx, p.baseURL+"/assets?action=registerUpload", register, &reg); err != nil {
		return "", fmt.Errorf("failed to register upload: %w", err)
	}

	uploadURL := reg.Value.UploadMechanism.MediaUploadHTTPRequest.UploadURL
	if uploadURL == "" || reg.Value.Asset == "" {
		return "", fmt.Errorf("register upload response missing upload URL or asset")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPut, uploadURL, bytes.NewReader(image))
	if err != nil {
		return "", fmt.Errorf("failed to build upload request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+p.token)

	resp, err := p.http.Do(req)
	if err != nil {
		return "", fmt.Errorf("image upload failed: %w", err)
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, resp.Body)

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", fmt.Errorf("image upload returned status %d", resp.StatusCode)
	}
	return reg.Value.Asset, nil
}

// createPost creates the UGC post, as an image share when assetURN is set.
func (p *Publisher) createPost(ctx context.Context, text, assetURN string) (string, error) {
	shareContent := map[string]any{
		"shareCommentary":    map[string]any{"text": text},
		"shareMediaCategory": "NONE",
	}
	if assetURN != "" {
		shareContent["shareMediaCategory"] = "IMAGE"
		shareContent["media"] = []map[string]any{
			{
				"status": "READY",
				"media":  assetURN,
			},
		}
	}

	payload := map[string]any{
		"author":         p.author,
		"lifecycleState": "PUBLISHED",
		"specificContent": map[string]any{
			"com.linkedin.ugc.ShareContent": shareContent,
		},
		"visibility": map[string]any{
			"com.linkedin.ugc.MemberNetworkVisibility": "PUBLIC",
		},
	}

	var created struct {
		ID string `json:"id"`
	}
	if err := p.postJSON(ctx, p.baseURL+"/ugcPosts", payload, &created); err != nil {
		return "", fmt.Errorf("failed to create post: %w", err)
	}
	if created.ID == "" {
		return "", fmt.Errorf("post creation response missing id")
	}
	return created.ID, nil
}

// postJSON sends an authenticated JSON POST and decodes the response into out.
func (p *Publisher) postJSON(ctx context.Context, url string, payload any, out any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to encode payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+p.token)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Restli-Protocol-Version", restliVersion)

	resp, err := p.http.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		data, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("linkedin returned status %d: %s", resp.StatusCode, strings.TrimSpace(string(data)))
	}
	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return fmt.Errorf("failed to decode response: %w", err)
		}
	}
	return nil
}
