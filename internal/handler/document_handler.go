package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/achiit/digital-country-hackathon-etibet-2025/internal/cache"
	"github.com/achiit/digital-country-hackathon-etibet-2025/internal/docstore"
	"github.com/achiit/digital-country-hackathon-etibet-2025/pkg/log"
)

// DocumentHandler serves the read-only system introspection endpoints.
type DocumentHandler struct {
	store    *docstore.Store
	cacheMgr *cache.Manager
}

// NewDocumentHandler creates a new DocumentHandler.
func NewDocumentHandler(store *docstore.Store, cacheMgr *cache.Manager) *DocumentHandler {
	return &DocumentHandler{store: store, cacheMgr: cacheMgr}
}

// List handles GET /api/v1/documents.
func (h *DocumentHandler) List(c *gin.Context) {
	docs, err := h.store.List()
	if err != nil {
		log.Errorf("[DocumentHandler] failed to list documents: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to list documents"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"code": 200, "data": docs, "message": "success"})
}

// Stats handles GET /api/v1/stats. Before the first successful
// initialization the metadata block is null and the state tells why.
func (h *DocumentHandler) Stats(c *gin.Context) {
	progress := h.cacheMgr.Progress()
	c.JSON(http.StatusOK, gin.H{
		"code": 200,
		"data": gin.H{
			"state":    progress.State,
			"metadata": h.cacheMgr.Metadata(),
			"chunks":   len(h.cacheMgr.Chunks()),
		},
		"message": "success",
	})
}

// Progress handles GET /api/v1/progress, the poll target during rebuilds.
func (h *DocumentHandler) Progress(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"code": 200, "data": h.cacheMgr.Progress(), "message": "success"})
}
