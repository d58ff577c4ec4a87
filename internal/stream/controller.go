package stream

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/yungbote/argo-backend/internal/apierr"
	"github.com/yungbote/argo-backend/internal/logger"
	"github.com/yungbote/argo-backend/internal/utils"
)

type State string

const (
	StateOpen          State = "open"
	StateGenerating    State = "generating"
	StateIdleHeartbeat State = "idle_heartbeat"
	StateErroring      State = "erroring"
	StateClosed        State = "closed"
)

// Chunk is one unit of generated output. A non-nil Err marks a mid-stream
// generation failure; the producer closes the channel after sending it.
type Chunk struct {
	Text string
	Err  error
}

// GenerateFunc starts the generation step and returns its finite,
// non-restartable chunk sequence. It must respect ctx cancellation.
type GenerateFunc func(ctx context.Context) (<-chan Chunk, error)

type Config struct {
	HeartbeatInterval time.Duration
	MaxMessageChars   int
}

func LoadConfigFromEnv(log *logger.Logger) Config {
	return Config{
		HeartbeatInterval: time.Duration(utils.GetEnvAsInt("STREAM_HEARTBEAT_SECONDS", 15, log)) * time.Second,
		MaxMessageChars:   utils.GetEnvAsInt("STREAM_MAX_MESSAGE_CHARS", 10000, log),
	}
}

// Session tracks one client-facing response stream. Owned exclusively by the
// controller run handling that request; never shared across sessions.
type Session struct {
	ID        uuid.UUID
	StartedAt time.Time

	state        State
	terminalSent bool
}

func (s *Session) State() State { return s.state }

// TerminalSent reports whether the terminal frame reached the transport.
// False after a run means the client disconnected before termination.
func (s *Session) TerminalSent() bool { return s.terminalSent }

type Controller struct {
	log *logger.Logger
	cfg Config
}

func NewController(log *logger.Logger, cfg Config) *Controller {
	if cfg.HeartbeatInterval <= 0 {
		cfg.HeartbeatInterval = 15 * time.Second
	}
	if cfg.MaxMessageChars <= 0 {
		cfg.MaxMessageChars = 10000
	}
	return &Controller{log: log.With("component", "StreamController"), cfg: cfg}
}

// Run drives a single response stream to completion: validates the request,
// relays generation chunks in production order, emits heartbeats during
// pauses, and always ends the session with exactly one terminal frame unless
// the client is already gone.
func (c *Controller) Run(ctx context.Context, w FrameWriter, message string, generate GenerateFunc) *Session {
	session := &Session{ID: uuid.New(), StartedAt: time.Now(), state: StateOpen}
	log := c.log.With("session_id", session.ID)

	if len([]rune(message)) > c.cfg.MaxMessageChars {
		log.Warn("Rejecting over-length message", "chars", len([]rune(message)), "max", c.cfg.MaxMessageChars)
		c.terminate(session, w, Frame{
			Type:    FrameError,
			Code:    apierr.CodeValidation,
			Message: "message exceeds maximum length",
		}, false)
		return session
	}

	genCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	chunks, err := generate(genCtx)
	if err != nil {
		log.Error("Generation failed to start", "error", err)
		c.terminate(session, w, Frame{
			Type:    FrameError,
			Code:    apierr.CodeGeneration,
			Message: err.Error(),
		}, false)
		return session
	}

	session.state = StateGenerating
	heartbeat := time.NewTimer(c.cfg.HeartbeatInterval)
	defer heartbeat.Stop()

	for {
		select {
		case <-ctx.Done():
			// Client disconnected: release the generator and stop without
			// writing to a closed transport.
			log.Debug("Client disconnected mid-stream", "state", session.state)
			c.terminate(session, w, Frame{}, true)
			return session

		case chunk, ok := <-chunks:
			if !ok {
				c.terminate(session, w, Frame{Type: FrameDone}, false)
				return session
			}
			if chunk.Err != nil {
				log.Error("Generation failed mid-stream", "error", chunk.Err)
				c.terminate(session, w, Frame{
					Type:    FrameError,
					Code:    apierr.CodeGeneration,
					Message: chunk.Err.Error(),
				}, false)
				return session
			}
			session.state = StateGenerating
			if err := w.WriteFrame(Frame{Type: FrameData, Text: chunk.Text}); err != nil {
				log.Debug("Transport write failed, treating as disconnect", "error", err)
				c.terminate(session, w, Frame{}, true)
				return session
			}
			if !heartbeat.Stop() {
				select {
				case <-heartbeat.C:
				default:
				}
			}
			heartbeat.Reset(c.cfg.HeartbeatInterval)

		case <-heartbeat.C:
			session.state = StateIdleHeartbeat
			if err := w.WriteFrame(Frame{Type: FrameHeartbeat}); err != nil {
				log.Debug("Heartbeat write failed, treating as disconnect", "error", err)
				c.terminate(session, w, Frame{}, true)
				return session
			}
			session.state = StateGenerating
			heartbeat.Reset(c.cfg.HeartbeatInterval)
		}
	}
}

// terminate closes the session. Unless the transport is already gone it
// writes the terminal frame exactly once, and that frame is the last one.
func (c *Controller) terminate(session *Session, w FrameWriter, terminal Frame, disconnected bool) {
	if terminal.Type == FrameError {
		session.state = StateErroring
	}
	if !disconnected && !session.terminalSent && terminal.Terminal() {
		if err := w.WriteFrame(terminal); err == nil {
			session.terminalSent = true
		}
	}
	session.state = StateClosed
}
