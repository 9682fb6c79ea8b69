package handlers

import (
	"errors"
	"net/http"
	"time"

	"note-drop/pkg/config"
	"note-drop/pkg/logger"
	"note-drop/pkg/services"
	"note-drop/pkg/store"

	"github.com/gin-contrib/sessions"
	"github.com/gin-gonic/gin"
)

const (
	lastSlugKey = "last_slug"
	defaultSlug = "change-me"
)

// Pages serves the HTML pages and the sitemap.
type Pages struct {
	cfg      *config.Config
	store    store.Store
	renderer *services.Renderer
	index    *services.SlugIndex
	log      *logger.Logger
	now      func() time.Time
}

func NewPages(cfg *config.Config, s store.Store, r *services.Renderer, idx *services.SlugIndex, log *logger.Logger) *Pages {
	return &Pages{
		cfg:      cfg,
		store:    s,
		renderer: r,
		index:    idx,
		log:      log.WithComponent("pages"),
		now:      time.Now,
	}
}

// Home links to the page the visitor opened last.
func (p *Pages) Home(c *gin.Context) {
	slug := defaultSlug
	if last, ok := sessions.Default(c).Get(lastSlugKey).(string); ok && last != "" {
		slug = last
	}
	c.HTML(http.StatusOK, "home.html", gin.H{
		"AppName": p.cfg.App.Name,
		"BaseURL": p.cfg.App.BaseURL,
		"Slug":    slug,
		"Year":    p.now().Year(),
	})
}

func (p *Pages) Editor(c *gin.Context) {
	slug := c.Param("slug")

	stored, err := p.store.Get(c.Request.Context(), slug)
	found := err == nil
	if err != nil && !errors.Is(err, store.ErrNotFound) {
		p.log.WithSlug(slug).Errorw("Failed to load page", "error", err, "request_id", RequestID(c))
		c.String(http.StatusInternalServerError, "Failed to load page")
		return
	}

	markdown := stored
	if !found {
		markdown = services.DefaultMarkdown
	}

	session := sessions.Default(c)
	session.Set(lastSlugKey, slug)
	if err := session.Save(); err != nil {
		p.log.Warnw("Failed to save session", "error", err)
	}

	c.HTML(http.StatusOK, "editor.html", gin.H{
		"AppName":    p.cfg.App.Name,
		"Slug":       slug,
		"Meta":       services.PageMetadata(slug, stored),
		"Markdown":   markdown,
		"HTML":       p.renderer.RenderOrRaw(markdown),
		"DebounceMs": p.cfg.Editor.Debounce.Milliseconds(),
	})
}

func (p *Pages) Sitemap(c *gin.Context) {
	slugs, err := p.index.Slugs(c.Request.Context())
	if err != nil {
		p.log.Errorw("Failed to list pages", "error", err, "request_id", RequestID(c))
		c.String(http.StatusInternalServerError, "Failed to build sitemap")
		return
	}
	body, err := services.BuildSitemap(p.cfg.App.BaseURL, slugs, p.now())
	if err != nil {
		p.log.Errorw("Failed to encode sitemap", "error", err)
		c.String(http.StatusInternalServerError, "Failed to build sitemap")
		return
	}
	c.Data(http.StatusOK, "application/xml; charset=utf-8", body)
}

func Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status": "ok",
		"time":   time.Now().UTC().Format(time.RFC3339),
	})
}
