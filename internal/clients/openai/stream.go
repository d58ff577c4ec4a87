package openai

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
)

type streamEvent struct {
	Choices []struct {
		Delta struct {
			Content string `json:"content"`
		} `json:"delta"`
		FinishReason *string `json:"finish_reason"`
	} `json:"choices"`
}

// Stream starts a streamed chat completion and relays deltas as they arrive.
// The sequence is finite and not restartable: a mid-stream failure is
// delivered as the last delta with Err set, then the channel closes. The
// stream is not retried; retry policy applies only to the initial request.
func (c *client) Stream(ctx context.Context, system string, user string) (<-chan StreamDelta, error) {
	body := chatRequest{
		Model:    c.model,
		Messages: buildMessages(system, user),
		Stream:   true,
	}
	raw, err := json.Marshal(body)
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, "POST", c.baseURL+"/v1/chat/completions", strings.NewReader(string(raw)))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "text/event-stream")

	// The default client timeout would kill long generations; rely on ctx.
	streamClient := &http.Client{Transport: c.httpClient.Transport}
	resp, err := streamClient.Do(req)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		errBody, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		_ = resp.Body.Close()
		return nil, &httpError{StatusCode: resp.StatusCode, Body: string(errBody)}
	}

	out := make(chan StreamDelta)
	go func() {
		defer close(out)
		defer resp.Body.Close()

		scanner := bufio.NewScanner(resp.Body)
		scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
		for scanner.Scan() {
			line := strings.TrimSpace(scanner.Text())
			if line == "" || strings.HasPrefix(line, ":") {
				continue
			}
			payload, ok := strings.CutPrefix(line, "data: ")
			if !ok {
				continue
			}
			if payload == "[DONE]" {
				return
			}
			var ev streamEvent
			if err := json.Unmarshal([]byte(payload), &ev); err != nil {
				c.log.Warn("Skipping malformed stream event", "error", err)
				continue
			}
			if len(ev.Choices) == 0 {
				continue
			}
			if text := ev.Choices[0].Delta.Content; text != "" {
				select {
				case out <- StreamDelta{Text: text}:
				case <-ctx.Done():
					return
				}
			}
			if ev.Choices[0].FinishReason != nil && *ev.Choices[0].FinishReason != "" {
				return
			}
		}
		if err := scanner.Err(); err != nil && ctx.Err() == nil {
			select {
			case out <- StreamDelta{Err: fmt.Errorf("stream interrupted: %w", err)}:
			case <-ctx.Done():
			}
		}
	}()
	return out, nil
}
