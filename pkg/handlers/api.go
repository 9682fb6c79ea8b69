package handlers

import (
	"errors"
	"net/http"

	"note-drop/pkg/logger"
	"note-drop/pkg/metrics"
	"note-drop/pkg/models"
	"note-drop/pkg/services"
	"note-drop/pkg/store"

	"github.com/gin-gonic/gin"
)

// API serves the JSON page endpoints.
type API struct {
	store    store.Store
	renderer *services.Renderer
	index    *services.SlugIndex
	metrics  *metrics.Metrics
	log      *logger.Logger
}

func NewAPI(s store.Store, r *services.Renderer, idx *services.SlugIndex, m *metrics.Metrics, log *logger.Logger) *API {
	return &API{store: s, renderer: r, index: idx, metrics: m, log: log.WithComponent("api")}
}

// GetPage answers 200 with an empty document for unknown slugs.
func (a *API) GetPage(c *gin.Context) {
	slug := c.Param("slug")
	markdown, err := a.store.Get(c.Request.Context(), slug)
	if err != nil && !errors.Is(err, store.ErrNotFound) {
		a.log.WithSlug(slug).Errorw("Failed to load page", "error", err, "request_id", RequestID(c))
		c.JSON(http.StatusInternalServerError, models.ErrorResponse{Error: "Failed to load"})
		return
	}
	c.JSON(http.StatusOK, models.PageResponse{Markdown: markdown})
}

func (a *API) SavePage(c *gin.Context) {
	slug := c.Param("slug")

	var req models.PageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		a.metrics.ObserveSave(metrics.SaveInvalid, 0)
		c.JSON(http.StatusBadRequest, models.ErrorResponse{Error: "Invalid payload"})
		return
	}

	markdown := *req.Markdown
	if err := a.store.Put(c.Request.Context(), slug, markdown); err != nil {
		a.metrics.ObserveSave(metrics.SaveError, len(markdown))
		a.log.WithSlug(slug).Errorw("Failed to save page", "error", err, "request_id", RequestID(c))
		c.JSON(http.StatusInternalServerError, models.ErrorResponse{Error: "Failed to save"})
		return
	}

	a.index.Invalidate()
	a.metrics.ObserveSave(metrics.SaveOK, len(markdown))
	c.JSON(http.StatusOK, models.PageResponse{Markdown: markdown})
}

// Preview renders arbitrary markdown with the same converter the editor
// page uses for its initial render.
func (a *API) Preview(c *gin.Context) {
	var req models.PageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, models.ErrorResponse{Error: "Invalid payload"})
		return
	}
	c.JSON(http.StatusOK, models.PreviewResponse{HTML: string(a.renderer.RenderOrRaw(*req.Markdown))})
}
