// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package llm

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/contextcraft/contextcraft-tui/internal/chat"
)

func jsonDecode(r *http.Request, v any) error {
	return json.NewDecoder(r.Body).Decode(v)
}

func sseHandler(t *testing.T, payloads []string) http.HandlerFunc {
	t.Helper()
	return func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/chat/completions" {
			http.NotFound(w, r)
			return
		}
		if got := r.Header.Get("Authorization"); got != "Bearer sk-test" {
			t.Errorf("Authorization = %q", got)
		}
		w.Header().Set("Content-Type", "text/event-stream")
		flusher := w.(http.Flusher)
		for _, p := range payloads {
			fmt.Fprintf(w, "data: %s\n\n", p)
			flusher.Flush()
		}
		fmt.Fprint(w, "data: [DONE]\n\n")
	}
}

func contentChunk(text string) string {
	return fmt.Sprintf(`{"choices":[{"delta":{"content":%q}}]}`, text)
}

func testRequest(content string) chat.Request {
	return chat.Request{
		Model:  "gpt-4o",
		APIKey: "sk-test",
		Turns:  []chat.Turn{{Role: chat.RoleUser, Content: content}},
	}
}

func TestStreamChatDeliversDeltasInOrder(t *testing.T) {
	srv := httptest.NewServer(sseHandler(t, []string{
		contentChunk("hel"),
		contentChunk("lo "),
		contentChunk("world"),
	}))
	defer srv.Close()

	var got []string
	err := NewClient(srv.URL).StreamChat(context.Background(), testRequest("hi"),
		func(text string) { got = append(got, text) })
	if err != nil {
		t.Fatalf("StreamChat failed: %v", err)
	}
	if joined := strings.Join(got, ""); joined != "hello world" {
		t.Errorf("deltas = %v", got)
	}
}

func TestStreamChatSkipsMalformedPayloads(t *testing.T) {
	srv := httptest.NewServer(sseHandler(t, []string{
		contentChunk("ok"),
		"{not json",
		`{"choices":[]}`,
		contentChunk("!"),
	}))
	defer srv.Close()

	var sb strings.Builder
	err := NewClient(srv.URL).StreamChat(context.Background(), testRequest("hi"),
		func(text string) { sb.WriteString(text) })
	if err != nil {
		t.Fatalf("StreamChat failed: %v", err)
	}
	if sb.String() != "ok!" {
		t.Errorf("got %q, want %q", sb.String(), "ok!")
	}
}

func TestStreamChatEOFWithoutDoneIsClean(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/event-stream")
		fmt.Fprintf(w, "data: %s\n\n", contentChunk("partial"))
	}))
	defer srv.Close()

	var sb strings.Builder
	err := NewClient(srv.URL).StreamChat(context.Background(), testRequest("hi"),
		func(text string) { sb.WriteString(text) })
	if err != nil {
		t.Fatalf("StreamChat failed: %v", err)
	}
	if sb.String() != "partial" {
		t.Errorf("got %q", sb.String())
	}
}

func TestStreamChatAuthFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		fmt.Fprint(w, `{"error":{"code":"invalid_api_key","message":"bad key"}}`)
	}))
	defer srv.Close()

	err := NewClient(srv.URL).StreamChat(context.Background(), testRequest("hi"),
		func(string) { t.Error("no deltas expected") })
	if !errors.Is(err, ErrAuthFailed) {
		t.Errorf("err = %v, want ErrAuthFailed", err)
	}
	if !strings.Contains(err.Error(), "bad key") {
		t.Errorf("server message lost: %v", err)
	}
}

func TestStreamChatRateLimited(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
		fmt.Fprint(w, `{"error":{"message":"slow down"}}`)
	}))
	defer srv.Close()

	err := NewClient(srv.URL).StreamChat(context.Background(), testRequest("hi"), func(string) {})
	if !errors.Is(err, ErrRateLimited) {
		t.Errorf("err = %v, want ErrRateLimited", err)
	}
}

func TestStreamChatCancellation(t *testing.T) {
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/event-stream")
		fmt.Fprintf(w, "data: %s\n\n", contentChunk("first"))
		w.(http.Flusher).Flush()
		<-release
	}))
	defer srv.Close()
	defer close(release)

	ctx, cancel := context.WithCancel(context.Background())
	err := NewClient(srv.URL).StreamChat(ctx, testRequest("hi"), func(text string) {
		if text == "first" {
			cancel()
		}
	})
	if !errors.Is(err, context.Canceled) {
		t.Errorf("err = %v, want context.Canceled", err)
	}
}

func TestStreamChatSendsConversation(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var body chatRequest
		if err := jsonDecode(r, &body); err != nil {
			t.Errorf("decode request: %v", err)
		}
		if !body.Stream {
			t.Error("stream flag not set")
		}
		if body.Model != "gpt-4o" {
			t.Errorf("model = %q", body.Model)
		}
		if len(body.Messages) != 2 || body.Messages[0].Role != "user" || body.Messages[1].Role != "assistant" {
			t.Errorf("messages = %+v", body.Messages)
		}
		w.Header().Set("Content-Type", "text/event-stream")
		fmt.Fprint(w, "data: [DONE]\n\n")
	}))
	defer srv.Close()

	req := chat.Request{
		Model:  "gpt-4o",
		APIKey: "k",
		Turns: []chat.Turn{
			{Role: chat.RoleUser, Content: "q"},
			{Role: chat.RoleAssistant, Content: "a"},
		},
	}
	if err := NewClient(srv.URL).StreamChat(context.Background(), req, func(string) {}); err != nil {
		t.Fatalf("StreamChat failed: %v", err)
	}
}

func TestListModels(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/models" {
			http.NotFound(w, r)
			return
		}
		fmt.Fprint(w, `{"data":[{"id":"gpt-4o"},{"id":"gpt-4o-mini"},{"id":""}]}`)
	}))
	defer srv.Close()

	models, err := NewClient(srv.URL).ListModels(context.Background(), "k")
	if err != nil {
		t.Fatalf("ListModels failed: %v", err)
	}
	want := []string{"gpt-4o", "gpt-4o-mini"}
	if len(models) != len(want) {
		t.Fatalf("models = %v, want %v", models, want)
	}
	for i := range want {
		if models[i] != want[i] {
			t.Errorf("models[%d] = %q, want %q", i, models[i], want[i])
		}
	}
}

func TestListModelsNotFound(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		fmt.Fprint(w, `{"error":{"message":"no such route"}}`)
	}))
	defer srv.Close()

	if _, err := NewClient(srv.URL).ListModels(context.Background(), "k"); !errors.Is(err, ErrModelNotFound) {
		t.Errorf("err = %v, want ErrModelNotFound", err)
	}
}
