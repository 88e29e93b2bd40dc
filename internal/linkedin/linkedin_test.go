package linkedin

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/mbarki/trendpilot/internal/models"
)

func TestFormatPostText(t *testing.T) {
	content := models.GeneratedContent{
		BodyText:     "Morocco's solar capacity keeps growing.",
		CallToAction: "What do you think?",
		Hashtags:     []string{"Morocco", "#Solar", " "},
	}
	got := FormatPostText(content)
	if !strings.Contains(got, "Morocco's solar capacity keeps growing.") {
		t.Errorf("body text missing: %q", got)
	}
	if !strings.Contains(got, "What do you think?") {
		t.Errorf("call to action missing: %q", got)
	}
	if !strings.Contains(got, "#Morocco #Solar") {
		t.Errorf("hashtags not normalized: %q", got)
	}
}

func TestFormatPostTextSkipsDuplicateCTA(t *testing.T) {
	content := models.GeneratedContent{
		BodyText:     "Body ending with a question. What do you think?",
		CallToAction: "What do you think?",
	}
	got := FormatPostText(content)
	if strings.Count(got, "What do you think?") != 1 {
		t.Errorf("expected call to action not duplicated: %q", got)
	}
}

// newPublishServer emulates the registerUpload, binary PUT and ugcPosts
// endpoints on a single mux.
func newPublishServer(t *testing.T, failUpload bool) (*httptest.Server, *struct{ mediaCategory string }) {
	t.Helper()
	state := &struct{ mediaCategory string }{}

	mux := http.NewServeMux()
	var srv *httptest.Server

	mux.HandleFunc("/assets", func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("X-Restli-Protocol-Version") != "2.0.0" {
			t.Errorf("missing restli protocol header")
		}
		if failUpload {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		json.NewEncoder(w).Encode(map[string]any{
			"value": map[string]any{
				"asset": "urn:li:digitalmediaAsset:abc123",
				"uploadMechanism": map[string]any{
					"com.linkedin.digitalmedia.uploading.MediaUploadHttpRequest": map[string]any{
						"uploadUrl": srv.URL + "/upload",
					},
				},
			},
		})
	})
	mux.HandleFunc("/upload", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPut {
			t.Errorf("expected PUT for binary upload, got %s", r.Method)
		}
		w.WriteHeader(http.StatusCreated)
	})
	mux.HandleFunc("/ugcPosts", func(w http.ResponseWriter, r *http.Request) {
		var payload struct {
			SpecificContent struct {
				ShareContent struct {
					ShareMediaCategory string `json:"shareMediaCategory"`
				} `json:"com.linkedin.ugc.ShareContent"`
			} `json:"specificContent"`
		}
		json.NewDecoder(r.Body).Decode(&payload)
		state.mediaCategory = payload.SpecificContent.ShareContent.ShareMediaCategory
		json.NewEncoder(w).Encode(map[string]string{"id": "urn:li:share:42"})
	})

	srv = httptest.NewServer(mux)
	return srv, state
}

func newTestPublisher(url string) *Publisher {
	return NewPublisher(
		WithAccessToken("token"),
		WithAuthorURN("urn:li:person:me"),
		WithBaseURL(url),
	)
}

func TestPublishPostWithImage(t *testing.T) {
	srv, state := newPublishServer(t, false)
	defer srv.Close()

	res := newTestPublisher(srv.URL).PublishPost(context.Background(), "hello", []byte{1, 2, 3})
	if !res.Success {
		t.Fatalf("expected success, got %+v", res)
	}
	if res.PostID != "urn:li:share:42" {
		t.Errorf("unexpected post ID %q", res.PostID)
	}
	if state.mediaCategory != "IMAGE" {
		t.Errorf("expected IMAGE share, got %q", state.mediaCategory)
	}
}

func TestPublishPostDegradesToTextOnUploadFailure(t *testing.T) {
	srv, state := newPublishServer(t, true)
	defer srv.Close()

	res := newTestPublisher(srv.URL).PublishPost(context.Background(), "hello", []byte{1})
	if !res.Success {
		t.Fatalf("expected text-only success after upload failure, got %+v", res)
	}
	if state.mediaCategory != "NONE" {
		t.Errorf("expected NONE share category, got %q", state.mediaCategory)
	}
}

func TestPublishPostWithoutCredentials(t *testing.T) {
	res := NewPublisher().PublishPost(context.Background(), "hello", nil)
	if res.Success {
		t.Errorf("expected failure without credentials")
	}
	if res.Message == "" {
		t.Errorf("expected explanatory message")
	}
}

func TestPublishPostAPIFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer srv.Close()

	res := newTestPublisher(srv.URL).PublishPost(context.Background(), "hello", nil)
	if res.Success {
		t.Errorf("expected failure on API error")
	}
}
