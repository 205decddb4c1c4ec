package handler

import (
	"context"
	"os"

	app "github.com/capazme/VisuaLex-Beta/internal/application/norm"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// NormAPI is the application boundary the handler talks to
type NormAPI interface {
	Resolve(ctx context.Context, req app.ReferenceRequest) (*app.ResolveResponse, error)
	GetArticleText(ctx context.Context, req app.ArticleRequest) (*app.ArticleTextResponse, error)
	GetCommentary(ctx context.Context, req app.IdentifierRequest) (*app.CommentaryResponse, error)
	ListHistory(ctx context.Context) ([]app.HistoryEntryResponse, error)
	ExportPDF(ctx context.Context, req app.IdentifierRequest) (*app.ExportResponse, error)
	ArtifactPath(filename string) (string, bool)
}

// NormHandler handles norm resolution HTTP requests
type NormHandler struct {
	BaseHandler
	service NormAPI
	logger  *zap.Logger
}

// NewNormHandler creates a new NormHandler
func NewNormHandler(service NormAPI, logger *zap.Logger) *NormHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &NormHandler{service: service, logger: logger}
}

// RegisterRoutes registers norm routes on the API group
func (h *NormHandler) RegisterRoutes(rg *gin.RouterGroup) {
	norms := rg.Group("/norms")
	{
		norms.POST("", h.Resolve)
		norms.POST("/article", h.ArticleText)
		norms.POST("/commentary", h.Commentary)
		norms.GET("/history", h.History)
		norms.POST("/export", h.Export)
	}
}

// RegisterDownloadRoutes registers the artifact download route on the
// engine root, outside the versioned API group.
func (h *NormHandler) RegisterDownloadRoutes(engine *gin.Engine) {
	engine.GET("/download/:filename", h.Download)
}

// Resolve validates a raw reference and returns its canonical
// identifier and structural tree
// POST /api/v1/norms
func (h *NormHandler) Resolve(c *gin.Context) {
	var req app.ReferenceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BadRequest(c, "Invalid request body: "+err.Error())
		return
	}

	res, err := h.service.Resolve(c.Request.Context(), req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, res)
}

// ArticleText returns the extracted text of an article, addressed by
// the canonical identifier a resolve returned
// POST /api/v1/norms/article
func (h *NormHandler) ArticleText(c *gin.Context) {
	var req app.ArticleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BadRequest(c, "Invalid request body: "+err.Error())
		return
	}

	res, err := h.service.GetArticleText(c.Request.Context(), req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, res)
}

// Commentary returns commentary for a canonical identifier. A null
// commentary means the commented corpus has nothing for it.
// POST /api/v1/norms/commentary
func (h *NormHandler) Commentary(c *gin.Context) {
	var req app.IdentifierRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BadRequest(c, "Invalid request body: "+err.Error())
		return
	}

	res, err := h.service.GetCommentary(c.Request.Context(), req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, res)
}

// History lists every recorded resolution in order
// GET /api/v1/norms/history
func (h *NormHandler) History(c *gin.Context) {
	entries, err := h.service.ListHistory(c.Request.Context())
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, entries)
}

// Export renders the act behind a canonical identifier to a PDF
// artifact
// POST /api/v1/norms/export
func (h *NormHandler) Export(c *gin.Context) {
	var req app.IdentifierRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BadRequest(c, "Invalid request body: "+err.Error())
		return
	}

	res, err := h.service.ExportPDF(c.Request.Context(), req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, res)
}

// Download streams a previously exported PDF artifact
// GET /download/:filename
func (h *NormHandler) Download(c *gin.Context) {
	filename := c.Param("filename")
	path, ok := h.service.ArtifactPath(filename)
	if !ok {
		h.BadRequest(c, "Invalid artifact filename")
		return
	}
	if _, err := os.Stat(path); err != nil {
		h.logger.Debug("artifact not found", zap.String("filename", filename))
		h.NotFound(c, "Artifact not found")
		return
	}
	c.FileAttachment(path, filename)
}
