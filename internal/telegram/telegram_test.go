package telegram

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

func newClientFor(srv *httptest.Server, opts ...Option) *Client {
	base := []Option{WithToken("test-token"), WithBaseURL(srv.URL)}
	return NewClient(append(base, opts...)...)
}

func TestGetUpdates(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !strings.Contains(r.URL.Path, "/bottest-token/getUpdates") {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		var payload map[string]any
		json.NewDecoder(r.Body).Decode(&payload)
		if payload["offset"].(float64) != 7 {
			t.Errorf("expected offset 7, got %v", payload["offset"])
		}
		json.NewEncoder(w).Encode(map[string]any{
			"ok": true,
			"result": []map[string]any{
				{"update_id": 8, "message": map[string]any{"message_id": 1, "chat": map[string]any{"id": 42}, "text": "/scan", "from": map[string]any{"id": 42}}},
			},
		})
	}))
	defer srv.Close()

	updates, err := newClientFor(srv).GetUpdates(context.Background(), 7)
	if err != nil {
		t.Fatalf("GetUpdates failed: %v", err)
	}
	if len(updates) != 1 || updates[0].UpdateID != 8 || updates[0].Message.Text != "/scan" {
		t.Errorf("unexpected updates: %+v", updates)
	}
}

func TestGetUpdatesTransportTimeoutIsEmptyBatch(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(200 * time.Millisecond)
	}))
	defer srv.Close()

	c := newClientFor(srv, WithHTTPClient(&http.Client{Timeout: 20 * time.Millisecond}))
	updates, err := c.GetUpdates(context.Background(), 0)
	if err != nil {
		t.Fatalf("expected timeout to be swallowed, got %v", err)
	}
	if len(updates) != 0 {
		t.Errorf("expected empty batch, got %+v", updates)
	}
}

func TestGetUpdatesContextCancellation(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(200 * time.Millisecond)
	}))
	defer srv.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := newClientFor(srv).GetUpdates(ctx, 0); err == nil {
		t.Errorf("expected error for cancelled context")
	}
}

func TestSendMessageWithKeyboard(t *testing.T) {
	var got map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewDecoder(r.Body).Decode(&got)
		json.NewEncoder(w).Encode(map[string]any{"ok": true, "result": map[string]any{}})
	}))
	defer srv.Close()

	kb := &InlineKeyboardMarkup{InlineKeyboard: [][]InlineKeyboardButton{
		{{Text: "Publish", CallbackData: "publish"}},
	}}
	if err := newClientFor(srv).SendMessage(context.Background(), 42, "hello", kb); err != nil {
		t.Fatalf("SendMessage failed: %v", err)
	}
	if got["parse_mode"] != ParseModeMarkdown {
		t.Errorf("expected Markdown parse mode, got %v", got["parse_mode"])
	}
	if got["reply_markup"] == nil {
		t.Errorf("expected reply_markup in payload")
	}
}

func TestSendMessageAPIError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{"ok": false, "description": "chat not found"})
	}))
	defer srv.Close()

	err := newClientFor(srv).SendMessage(context.Background(), 42, "hello", nil)
	if err == nil || !strings.Contains(err.Error(), "chat not found") {
		t.Errorf("expected API error surfaced, got %v", err)
	}
}

func TestSendPhotoMultipart(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if err := r.ParseMultipartForm(1 << 20); err != nil {
			t.Fatalf("expected multipart body: %v", err)
		}
		if r.FormValue("chat_id") != "42" {
			t.Errorf("expected chat_id 42, got %q", r.FormValue("chat_id"))
		}
		if r.FormValue("caption") != "a caption" {
			t.Errorf("expected caption, got %q", r.FormValue("caption"))
		}
		file, _, err := r.FormFile("photo")
		if err != nil {
			t.Fatalf("expected photo part: %v", err)
		}
		file.Close()
		json.NewEncoder(w).Encode(map[string]any{"ok": true, "result": map[string]any{}})
	}))
	defer srv.Close()

	if err := newClientFor(srv).SendPhoto(context.Background(), 42, []byte{0x89, 0x50}, "a caption"); err != nil {
		t.Fatalf("SendPhoto failed: %v", err)
	}
}

func TestAnswerCallbackQuery(t *testing.T) {
	var got map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewDecoder(r.Body).Decode(&got)
		json.NewEncoder(w).Encode(map[string]any{"ok": true, "result": true})
	}))
	defer srv.Close()

	if err := newClientFor(srv).AnswerCallbackQuery(context.Background(), "cb-1"); err != nil {
		t.Fatalf("AnswerCallbackQuery failed: %v", err)
	}
	if got["callback_query_id"] != "cb-1" {
		t.Errorf("expected callback id in payload, got %v", got)
	}
}
