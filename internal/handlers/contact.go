package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/yungbote/argo-backend/internal/apierr"
	"github.com/yungbote/argo-backend/internal/logger"
	"github.com/yungbote/argo-backend/internal/services"
)

type ContactHandler struct {
	log      *logger.Logger
	analysis *services.AnalysisService
}

func NewContactHandler(log *logger.Logger, analysis *services.AnalysisService) *ContactHandler {
	return &ContactHandler{
		log:      log.With("handler", "ContactHandler"),
		analysis: analysis,
	}
}

type analyzeRequest struct {
	MaxMessages int `json:"max_messages"`
}

func (h *ContactHandler) List(c *gin.Context) {
	items, err := h.analysis.ListContacts(c.Request.Context())
	if err != nil {
		RespondServiceError(c, err)
		return
	}
	RespondOK(c, items)
}

func (h *ContactHandler) Get(c *gin.Context) {
	detail, err := h.analysis.GetContact(c.Request.Context(), c.Param("contact_id"))
	if err != nil {
		RespondServiceError(c, err)
		return
	}
	RespondOK(c, detail)
}

func (h *ContactHandler) Analyze(c *gin.Context) {
	var req analyzeRequest
	if err := c.ShouldBindJSON(&req); err != nil && c.Request.ContentLength > 0 {
		RespondError(c, http.StatusBadRequest, apierr.CodeValidation, err)
		return
	}
	result, err := h.analysis.Analyze(c.Request.Context(), c.Param("contact_id"), req.MaxMessages)
	if err != nil {
		RespondServiceError(c, err)
		return
	}
	RespondOK(c, result)
}
