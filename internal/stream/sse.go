// ABOUTME: SSEReader parses a text/event-stream body into cumulative partials.
// ABOUTME: text events accumulate, done terminates, error events surface as errors.

package stream

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"
)

// SSEReader adapts a server-sent event stream to the Source interface.
// It understands three event types: "text" (a chunk of response text),
// "done" (response complete), and "error" (response failed server-side).
// Unknown event types are skipped.
type SSEReader struct {
	scanner *bufio.Scanner
	buffer  strings.Builder
}

// ssePayload is the JSON data carried by text and error events.
type ssePayload struct {
	Text  string `json:"text"`
	Error string `json:"error"`
}

// NewSSEReader wraps a response body carrying text/event-stream data.
// The caller retains ownership of the body and closes it after the
// source reports done.
func NewSSEReader(body io.Reader) *SSEReader {
	return &SSEReader{scanner: bufio.NewScanner(body)}
}

// Next reads events until the cumulative text grows, the stream completes,
// or an error event arrives.
func (r *SSEReader) Next(ctx context.Context) (string, bool, error) {
	var eventType string
	var dataLines []string

	for r.scanner.Scan() {
		select {
		case <-ctx.Done():
			return r.buffer.String(), false, ctx.Err()
		default:
		}

		line := r.scanner.Text()

		// Blank line terminates one event
		if line == "" {
			if eventType == "" || len(dataLines) == 0 {
				eventType = ""
				dataLines = nil
				continue
			}

			partial, done, err := r.apply(eventType, strings.Join(dataLines, "\n"))
			eventType = ""
			dataLines = nil
			if err != nil || done || partial {
				return r.buffer.String(), done, err
			}
			continue
		}

		if strings.HasPrefix(line, "event:") {
			eventType = strings.TrimSpace(strings.TrimPrefix(line, "event:"))
			continue
		}
		if strings.HasPrefix(line, "data:") {
			dataLines = append(dataLines, strings.TrimPrefix(line, "data:"))
			continue
		}
	}

	if err := r.scanner.Err(); err != nil {
		return r.buffer.String(), false, fmt.Errorf("reading stream: %w", err)
	}
	// EOF without a done event still terminates the response
	return r.buffer.String(), true, nil
}

// apply folds one event into the cumulative buffer. The bool result reports
// whether the partial text advanced.
func (r *SSEReader) apply(eventType, data string) (grew bool, done bool, err error) {
	var payload ssePayload
	if jsonErr := json.Unmarshal([]byte(data), &payload); jsonErr != nil {
		return false, false, fmt.Errorf("parsing event data: %w", jsonErr)
	}

	switch eventType {
	case "text":
		if payload.Text == "" {
			return false, false, nil
		}
		r.buffer.WriteString(payload.Text)
		return true, false, nil
	case "done":
		return false, true, nil
	case "error":
		if payload.Error == "" {
			payload.Error = "stream failed"
		}
		return false, false, errors.New(payload.Error)
	default:
		return false, false, nil
	}
}
