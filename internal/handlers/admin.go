package handlers

import (
	"github.com/gin-gonic/gin"

	"github.com/yungbote/argo-backend/internal/logger"
	"github.com/yungbote/argo-backend/internal/services"
)

type AdminHandler struct {
	log      *logger.Logger
	importer *services.HistoryImportService
}

func NewAdminHandler(log *logger.Logger, importer *services.HistoryImportService) *AdminHandler {
	return &AdminHandler{
		log:      log.With("handler", "AdminHandler"),
		importer: importer,
	}
}

// RebuildHistory re-indexes the imported chat archive into the vector store.
// ?incremental=false forces a full re-embed.
func (h *AdminHandler) RebuildHistory(c *gin.Context) {
	incremental := c.DefaultQuery("incremental", "true") != "false"
	stats, err := h.importer.Rebuild(c.Request.Context(), incremental)
	if err != nil {
		RespondServiceError(c, err)
		return
	}
	RespondOK(c, gin.H{"status": "ok", "stats": stats})
}

// ClearAnalysisCache invalidates every cached analysis unconditionally, on
// this instance and (via the bus) on every other one.
func (h *AdminHandler) ClearAnalysisCache(c *gin.Context) {
	h.importer.InvalidateAnalysis(c.Request.Context(), "admin_clear")
	RespondOK(c, gin.H{"status": "ok"})
}
