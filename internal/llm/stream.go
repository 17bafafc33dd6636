// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package llm

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/contextcraft/contextcraft-tui/internal/chat"
)

// ============================================================================
// SSE STREAMING
// ============================================================================

// doneSentinel terminates an OpenAI-compatible SSE stream.
const doneSentinel = "[DONE]"

// streamChunk is one SSE data payload on the streaming chat endpoint.
type streamChunk struct {
	Choices []struct {
		Delta struct {
			Content string `json:"content"`
		} `json:"delta"`
		FinishReason *string `json:"finish_reason"`
	} `json:"choices"`
}

// deltaContent returns the text delta of the first choice, if any.
func (c *streamChunk) deltaContent() string {
	if len(c.Choices) > 0 {
		return c.Choices[0].Delta.Content
	}
	return ""
}

// sseReader scans an event stream body for data payloads. Comment lines and
// unknown fields are skipped per the SSE wire format.
type sseReader struct {
	scanner *bufio.Scanner
}

func newSSEReader(r io.Reader) *sseReader {
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	return &sseReader{scanner: sc}
}

// next returns the next data payload, io.EOF at end of stream, or the
// sentinel doneSentinel payload verbatim.
func (r *sseReader) next() (string, error) {
	for r.scanner.Scan() {
		line := r.scanner.Text()
		if !strings.HasPrefix(line, "data:") {
			continue
		}
		payload := strings.TrimSpace(strings.TrimPrefix(line, "data:"))
		if payload == "" {
			continue
		}
		return payload, nil
	}
	if err := r.scanner.Err(); err != nil {
		return "", err
	}
	return "", io.EOF
}

// StreamChat implements chat.Transport. It POSTs the conversation to
// /chat/completions with stream enabled and delivers each content delta to
// onDelta in arrival order. A nil return means the stream ended cleanly
// (either the [DONE] sentinel or the body closing); a context cancellation
// surfaces as ctx's error. Malformed data lines are skipped rather than
// failing a stream that is otherwise delivering tokens.
func (c *Client) StreamChat(ctx context.Context, req chat.Request, onDelta func(text string)) error {
	body := chatRequest{
		Model:  req.Model,
		Stream: true,
	}
	for _, turn := range req.Turns {
		body.Messages = append(body.Messages, wireMessage{
			Role:    string(turn.Role),
			Content: turn.Content,
		})
	}

	payload, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("failed to marshal request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost,
		c.baseURL+"/chat/completions", bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	c.setHeaders(httpReq, req.APIKey)
	httpReq.Header.Set("Accept", "text/event-stream")

	resp, err := c.streaming.Do(httpReq)
	if err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		errBody, readErr := readBody(resp)
		if readErr != nil {
			return &APIError{Status: resp.StatusCode, Message: readErr.Error()}
		}
		return errorFromResponse(resp.StatusCode, errBody)
	}

	reader := newSSEReader(resp.Body)
	for {
		payload, err := reader.next()
		if err != nil {
			if errors.Is(err, io.EOF) {
				return nil
			}
			if ctx.Err() != nil {
				return ctx.Err()
			}
			return fmt.Errorf("stream read failed: %w", err)
		}
		if payload == doneSentinel {
			return nil
		}

		var chunk streamChunk
		if err := json.Unmarshal([]byte(payload), &chunk); err != nil {
			continue
		}
		if text := chunk.deltaContent(); text != "" {
			select {
			case <-ctx.Done():
				return ctx.Err()
			default:
			}
			onDelta(text)
		}
	}
}
