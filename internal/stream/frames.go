package stream

import (
	"encoding/json"
	"fmt"
	"net/http"
)

type FrameType string

const (
	FrameData      FrameType = "data"
	FrameHeartbeat FrameType = "heartbeat"
	FrameDone      FrameType = "done"
	FrameError     FrameType = "error"
)

// Frame is one unit written to the client stream. Done and Error are terminal:
// after either, no further frames follow on the session.
type Frame struct {
	Type    FrameType `json:"type"`
	Text    string    `json:"text,omitempty"`
	Code    string    `json:"code,omitempty"`
	Message string    `json:"message,omitempty"`
}

func (f Frame) Terminal() bool {
	return f.Type == FrameDone || f.Type == FrameError
}

// FrameWriter is the transport boundary of the controller. A write error
// means the transport is gone and the session should stop without further
// output.
type FrameWriter interface {
	WriteFrame(f Frame) error
}

// SSEWriter frames controller output as server-sent events. Heartbeats go out
// as SSE comments so intermediaries keep the connection alive without the
// client seeing an event.
type SSEWriter struct {
	w       http.ResponseWriter
	flusher http.Flusher
}

func NewSSEWriter(w http.ResponseWriter) (*SSEWriter, error) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		return nil, fmt.Errorf("streaming unsupported by transport")
	}
	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no")
	return &SSEWriter{w: w, flusher: flusher}, nil
}

func (s *SSEWriter) WriteFrame(f Frame) error {
	if f.Type == FrameHeartbeat {
		if _, err := fmt.Fprint(s.w, ": ping\n\n"); err != nil {
			return err
		}
		s.flusher.Flush()
		return nil
	}
	raw, err := json.Marshal(f)
	if err != nil {
		return err
	}
	if _, err := fmt.Fprintf(s.w, "event: %s\ndata: %s\n\n", f.Type, raw); err != nil {
		return err
	}
	s.flusher.Flush()
	return nil
}
