package stream

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/yungbote/argo-backend/internal/apierr"
	"github.com/yungbote/argo-backend/internal/logger"
)

type captureWriter struct {
	mu     sync.Mutex
	frames []Frame
	failAt int // fail the write at this 1-based index; 0 never fails
}

func (w *captureWriter) WriteFrame(f Frame) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.failAt > 0 && len(w.frames)+1 >= w.failAt {
		return errors.New("write: broken pipe")
	}
	w.frames = append(w.frames, f)
	return nil
}

func (w *captureWriter) all() []Frame {
	w.mu.Lock()
	defer w.mu.Unlock()
	out := make([]Frame, len(w.frames))
	copy(out, w.frames)
	return out
}

func testController(t *testing.T, cfg Config) *Controller {
	t.Helper()
	log, err := logger.New("development")
	if err != nil {
		t.Fatalf("failed to create logger: %v", err)
	}
	return NewController(log, cfg)
}

func chunkSource(chunks ...Chunk) GenerateFunc {
	return func(_ context.Context) (<-chan Chunk, error) {
		ch := make(chan Chunk, len(chunks))
		for _, c := range chunks {
			ch <- c
		}
		close(ch)
		return ch, nil
	}
}

func TestRunRelaysChunksThenDone(t *testing.T) {
	c := testController(t, Config{HeartbeatInterval: time.Minute, MaxMessageChars: 100})
	w := &captureWriter{}

	session := c.Run(context.Background(), w, "hi", chunkSource(
		Chunk{Text: "Hel"},
		Chunk{Text: "lo"},
	))

	frames := w.all()
	if len(frames) != 3 {
		t.Fatalf("frames = %d, want 3: %+v", len(frames), frames)
	}
	if frames[0].Type != FrameData || frames[0].Text != "Hel" {
		t.Fatalf("frame 0 = %+v", frames[0])
	}
	if frames[1].Type != FrameData || frames[1].Text != "lo" {
		t.Fatalf("frame 1 = %+v", frames[1])
	}
	if frames[2].Type != FrameDone {
		t.Fatalf("terminal frame = %+v, want done", frames[2])
	}
	if session.State() != StateClosed {
		t.Fatalf("state = %q, want closed", session.State())
	}
	if !session.TerminalSent() {
		t.Fatalf("terminal frame not recorded as sent")
	}
}

func TestRunTerminalFrameIsLast(t *testing.T) {
	c := testController(t, Config{HeartbeatInterval: time.Minute, MaxMessageChars: 100})
	w := &captureWriter{}

	c.Run(context.Background(), w, "hi", chunkSource(Chunk{Text: "a"}))

	frames := w.all()
	for i, f := range frames[:len(frames)-1] {
		if f.Terminal() {
			t.Fatalf("terminal frame at index %d of %d", i, len(frames))
		}
	}
	if !frames[len(frames)-1].Terminal() {
		t.Fatalf("last frame %+v is not terminal", frames[len(frames)-1])
	}
}

func TestRunRejectsOversizeMessage(t *testing.T) {
	c := testController(t, Config{HeartbeatInterval: time.Minute, MaxMessageChars: 5})
	w := &captureWriter{}
	generateCalled := false

	session := c.Run(context.Background(), w, strings.Repeat("x", 6), func(_ context.Context) (<-chan Chunk, error) {
		generateCalled = true
		return nil, nil
	})

	if generateCalled {
		t.Fatalf("generation started for an invalid message")
	}
	frames := w.all()
	if len(frames) != 1 {
		t.Fatalf("frames = %d, want 1: %+v", len(frames), frames)
	}
	if frames[0].Type != FrameError || frames[0].Code != apierr.CodeValidation {
		t.Fatalf("frame = %+v, want validation error", frames[0])
	}
	if session.State() != StateClosed {
		t.Fatalf("state = %q, want closed", session.State())
	}
}

func TestRunOversizeCountsRunesNotBytes(t *testing.T) {
	c := testController(t, Config{HeartbeatInterval: time.Minute, MaxMessageChars: 5})
	w := &captureWriter{}

	// 5 runes, more than 5 bytes.
	c.Run(context.Background(), w, "ééééé", chunkSource())

	frames := w.all()
	if len(frames) != 1 || frames[0].Type != FrameDone {
		t.Fatalf("frames = %+v, want single done frame", frames)
	}
}

func TestRunGenerationStartFailure(t *testing.T) {
	c := testController(t, Config{HeartbeatInterval: time.Minute, MaxMessageChars: 100})
	w := &captureWriter{}

	session := c.Run(context.Background(), w, "hi", func(_ context.Context) (<-chan Chunk, error) {
		return nil, errors.New("model unavailable")
	})

	frames := w.all()
	if len(frames) != 1 {
		t.Fatalf("frames = %d, want 1: %+v", len(frames), frames)
	}
	if frames[0].Type != FrameError || frames[0].Code != apierr.CodeGeneration {
		t.Fatalf("frame = %+v, want generation error", frames[0])
	}
	if !session.TerminalSent() {
		t.Fatalf("terminal frame not sent")
	}
}

func TestRunMidStreamFailureAfterChunks(t *testing.T) {
	c := testController(t, Config{HeartbeatInterval: time.Minute, MaxMessageChars: 100})
	w := &captureWriter{}

	c.Run(context.Background(), w, "hi", chunkSource(
		Chunk{Text: "one"},
		Chunk{Text: "two"},
		Chunk{Err: errors.New("upstream reset")},
	))

	frames := w.all()
	if len(frames) != 3 {
		t.Fatalf("frames = %d, want 3: %+v", len(frames), frames)
	}
	if frames[0].Text != "one" || frames[1].Text != "two" {
		t.Fatalf("delivered chunks = %+v", frames[:2])
	}
	if frames[2].Type != FrameError || frames[2].Code != apierr.CodeGeneration {
		t.Fatalf("terminal frame = %+v, want generation error", frames[2])
	}
}

func TestRunEmitsHeartbeatDuringPause(t *testing.T) {
	c := testController(t, Config{HeartbeatInterval: 10 * time.Millisecond, MaxMessageChars: 100})
	w := &captureWriter{}

	generate := func(_ context.Context) (<-chan Chunk, error) {
		ch := make(chan Chunk)
		go func() {
			time.Sleep(60 * time.Millisecond)
			ch <- Chunk{Text: "late"}
			close(ch)
		}()
		return ch, nil
	}

	c.Run(context.Background(), w, "hi", generate)

	frames := w.all()
	heartbeats := 0
	for _, f := range frames {
		if f.Type == FrameHeartbeat {
			heartbeats++
		}
	}
	if heartbeats == 0 {
		t.Fatalf("no heartbeat during pause: %+v", frames)
	}
	if frames[len(frames)-1].Type != FrameDone {
		t.Fatalf("terminal frame = %+v, want done", frames[len(frames)-1])
	}
}

func TestRunClientDisconnect(t *testing.T) {
	c := testController(t, Config{HeartbeatInterval: time.Minute, MaxMessageChars: 100})
	w := &captureWriter{}

	ctx, cancel := context.WithCancel(context.Background())
	generate := func(_ context.Context) (<-chan Chunk, error) {
		// Never produces and never closes; only the disconnect can end the run.
		return make(chan Chunk), nil
	}

	done := make(chan *Session, 1)
	go func() {
		done <- c.Run(ctx, w, "hi", generate)
	}()
	cancel()

	session := <-done
	if session.State() != StateClosed {
		t.Fatalf("state = %q, want closed", session.State())
	}
	if session.TerminalSent() {
		t.Fatalf("terminal frame written after disconnect")
	}
	for _, f := range w.all() {
		if f.Terminal() {
			t.Fatalf("terminal frame %+v reached a closed transport", f)
		}
	}
}

func TestRunWriteFailureStopsSession(t *testing.T) {
	c := testController(t, Config{HeartbeatInterval: time.Minute, MaxMessageChars: 100})
	w := &captureWriter{failAt: 2}

	session := c.Run(context.Background(), w, "hi", chunkSource(
		Chunk{Text: "one"},
		Chunk{Text: "two"},
		Chunk{Text: "three"},
	))

	frames := w.all()
	if len(frames) != 1 {
		t.Fatalf("frames = %d, want 1 before the failed write: %+v", len(frames), frames)
	}
	if session.TerminalSent() {
		t.Fatalf("terminal frame recorded on a failing transport")
	}
	if session.State() != StateClosed {
		t.Fatalf("state = %q, want closed", session.State())
	}
}

func TestLoadConfigFromEnv(t *testing.T) {
	t.Setenv("STREAM_HEARTBEAT_SECONDS", "7")
	t.Setenv("STREAM_MAX_MESSAGE_CHARS", "123")

	log, err := logger.New("development")
	if err != nil {
		t.Fatalf("failed to create logger: %v", err)
	}
	cfg := LoadConfigFromEnv(log)
	if cfg.HeartbeatInterval != 7*time.Second {
		t.Fatalf("HeartbeatInterval = %v, want 7s", cfg.HeartbeatInterval)
	}
	if cfg.MaxMessageChars != 123 {
		t.Fatalf("MaxMessageChars = %d, want 123", cfg.MaxMessageChars)
	}
}
