package stream

import (
	"net/http/httptest"
	"strings"
	"testing"
)

func TestSSEWriterFraming(t *testing.T) {
	rec := httptest.NewRecorder()
	w, err := NewSSEWriter(rec)
	if err != nil {
		t.Fatalf("NewSSEWriter: %v", err)
	}

	if got := rec.Header().Get("Content-Type"); got != "text/event-stream" {
		t.Fatalf("Content-Type = %q", got)
	}

	if err := w.WriteFrame(Frame{Type: FrameData, Text: "hello"}); err != nil {
		t.Fatalf("WriteFrame data: %v", err)
	}
	if err := w.WriteFrame(Frame{Type: FrameHeartbeat}); err != nil {
		t.Fatalf("WriteFrame heartbeat: %v", err)
	}
	if err := w.WriteFrame(Frame{Type: FrameDone}); err != nil {
		t.Fatalf("WriteFrame done: %v", err)
	}

	body := rec.Body.String()
	if !strings.Contains(body, "event: data\ndata: {\"type\":\"data\",\"text\":\"hello\"}\n\n") {
		t.Fatalf("missing data event in %q", body)
	}
	if !strings.Contains(body, ": ping\n\n") {
		t.Fatalf("missing heartbeat comment in %q", body)
	}
	if !strings.Contains(body, "event: done\ndata: {\"type\":\"done\"}\n\n") {
		t.Fatalf("missing done event in %q", body)
	}
}

func TestFrameTerminal(t *testing.T) {
	tests := []struct {
		frame Frame
		want  bool
	}{
		{Frame{Type: FrameData, Text: "x"}, false},
		{Frame{Type: FrameHeartbeat}, false},
		{Frame{Type: FrameDone}, true},
		{Frame{Type: FrameError, Code: "generation_error"}, true},
	}
	for _, tt := range tests {
		if got := tt.frame.Terminal(); got != tt.want {
			t.Fatalf("Terminal(%q) = %v, want %v", tt.frame.Type, got, tt.want)
		}
	}
}
