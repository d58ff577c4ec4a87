package handlers

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/yungbote/argo-backend/internal/apierr"
	"github.com/yungbote/argo-backend/internal/logger"
	"github.com/yungbote/argo-backend/internal/services"
	"github.com/yungbote/argo-backend/internal/stream"
)

type DiscussionHandler struct {
	log         *logger.Logger
	discussions *services.DiscussionService
}

func NewDiscussionHandler(log *logger.Logger, discussions *services.DiscussionService) *DiscussionHandler {
	return &DiscussionHandler{
		log:         log.With("handler", "DiscussionHandler"),
		discussions: discussions,
	}
}

type startDiscussionRequest struct {
	Title string   `json:"title"`
	Tags  []string `json:"tags"`
}

type chatRequest struct {
	Message   string `json:"message"`
	ContactID string `json:"contact_id"`
}

func (h *DiscussionHandler) List(c *gin.Context) {
	items, err := h.discussions.List(c.Request.Context())
	if err != nil {
		RespondServiceError(c, err)
		return
	}
	RespondOK(c, items)
}

func (h *DiscussionHandler) Start(c *gin.Context) {
	var req startDiscussionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		RespondError(c, http.StatusBadRequest, apierr.CodeValidation, err)
		return
	}
	id, err := h.discussions.Start(c.Request.Context(), req.Title, req.Tags)
	if err != nil {
		RespondServiceError(c, err)
		return
	}
	RespondOK(c, gin.H{"id": id})
}

func (h *DiscussionHandler) Get(c *gin.Context) {
	id, err := uuid.Parse(c.Param("discussion_id"))
	if err != nil {
		RespondError(c, http.StatusBadRequest, apierr.CodeValidation, fmt.Errorf("invalid discussion id"))
		return
	}
	detail, err := h.discussions.Get(c.Request.Context(), id)
	if err != nil {
		RespondServiceError(c, err)
		return
	}
	if detail == nil {
		RespondOK(c, services.DiscussionDetail{Tags: []string{}, Messages: []services.DiscussionMessage{}})
		return
	}
	RespondOK(c, detail)
}

func (h *DiscussionHandler) Delete(c *gin.Context) {
	id, err := uuid.Parse(c.Param("discussion_id"))
	if err != nil {
		RespondError(c, http.StatusBadRequest, apierr.CodeValidation, fmt.Errorf("invalid discussion id"))
		return
	}
	if err := h.discussions.Delete(c.Request.Context(), id); err != nil {
		RespondServiceError(c, err)
		return
	}
	RespondOK(c, gin.H{"status": "ok", "id": id})
}

func (h *DiscussionHandler) Chat(c *gin.Context) {
	id, err := uuid.Parse(c.Param("discussion_id"))
	if err != nil {
		RespondError(c, http.StatusBadRequest, apierr.CodeValidation, fmt.Errorf("invalid discussion id"))
		return
	}
	var req chatRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		RespondError(c, http.StatusBadRequest, apierr.CodeValidation, err)
		return
	}
	reply, err := h.discussions.Chat(c.Request.Context(), id, services.ChatRequest{
		Message:   req.Message,
		ContactID: req.ContactID,
	})
	if err != nil {
		RespondServiceError(c, err)
		return
	}
	RespondOK(c, gin.H{"reply": reply})
}

// ChatStream answers over SSE. Everything after the stream starts goes
// through the stream controller's frames; only pre-stream failures use the
// JSON error envelope.
func (h *DiscussionHandler) ChatStream(c *gin.Context) {
	id, err := uuid.Parse(c.Param("discussion_id"))
	if err != nil {
		RespondError(c, http.StatusBadRequest, apierr.CodeValidation, fmt.Errorf("invalid discussion id"))
		return
	}
	var req chatRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		RespondError(c, http.StatusBadRequest, apierr.CodeValidation, err)
		return
	}
	if strings.TrimSpace(req.Message) == "" {
		RespondError(c, http.StatusBadRequest, apierr.CodeValidation, fmt.Errorf("message is required"))
		return
	}

	writer, err := stream.NewSSEWriter(c.Writer)
	if err != nil {
		RespondError(c, http.StatusInternalServerError, apierr.CodeInternal, err)
		return
	}

	session, err := h.discussions.ChatStream(c.Request.Context(), id, services.ChatRequest{
		Message:   req.Message,
		ContactID: req.ContactID,
	}, writer)
	if err != nil {
		RespondServiceError(c, err)
		return
	}
	h.log.Debug("Chat stream finished", "session_id", session.ID, "state", session.State(), "terminal_sent", session.TerminalSent())
}
