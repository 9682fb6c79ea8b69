package server

import (
	"context"
	"errors"
	"fmt"
	"html/template"
	"io/fs"
	"net/http"
	"time"

	"note-drop/pkg/config"
	"note-drop/pkg/handlers"
	"note-drop/pkg/logger"
	"note-drop/pkg/metrics"
	"note-drop/pkg/services"
	"note-drop/pkg/store"
	"note-drop/web"

	"github.com/gin-contrib/sessions"
	"github.com/gin-contrib/sessions/cookie"
	"github.com/gin-gonic/gin"
)

const limiterIdle = 10 * time.Minute

type Server struct {
	engine *gin.Engine
	http   *http.Server
	cfg    *config.Config
	log    *logger.Logger

	// pages and preview draw from separate buckets so preview traffic
	// cannot starve saves
	pageLimiter    *handlers.RateLimiter
	previewLimiter *handlers.RateLimiter
}

func New(cfg *config.Config, st store.Store, appLogger *logger.Logger) (*Server, error) {
	gin.SetMode(cfg.Server.Mode)

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(handlers.RequestIDMiddleware())
	r.Use(handlers.LoggerMiddleware(appLogger))

	m := metrics.New()
	if cfg.Metrics.Enabled {
		r.Use(handlers.MetricsMiddleware(m))
	}

	s := &Server{engine: r, cfg: cfg, log: appLogger}
	if cfg.Security.RateLimitRequests > 0 {
		s.pageLimiter = handlers.NewRateLimiter(cfg.Security.RateLimitRequests, cfg.Security.RateLimitBurst)
		s.previewLimiter = handlers.NewRateLimiter(cfg.Security.RateLimitRequests, cfg.Security.RateLimitBurst)
	}

	cookieStore := cookie.NewStore([]byte(cfg.Session.Secret))
	cookieStore.Options(sessions.Options{Path: "/", MaxAge: 60 * 60 * 24 * 365, HttpOnly: true, SameSite: http.SameSiteLaxMode})
	r.Use(sessions.Sessions(cfg.Session.Name, cookieStore))

	tmpl, err := template.ParseFS(web.Templates, "templates/*.html")
	if err != nil {
		return nil, fmt.Errorf("failed to parse templates: %w", err)
	}
	r.SetHTMLTemplate(tmpl)

	static, err := fs.Sub(web.Static, "static")
	if err != nil {
		return nil, fmt.Errorf("failed to open static assets: %w", err)
	}
	r.StaticFS("/static", http.FS(static))

	renderer := services.NewRenderer()
	index := services.NewSlugIndex(st)
	api := handlers.NewAPI(st, renderer, index, m, appLogger)
	pages := handlers.NewPages(cfg, st, renderer, index, appLogger)

	// operational endpoints live under /_/ so /:slug can serve any page name
	ops := r.Group("/_")
	{
		ops.GET("/health", handlers.Health)
		if cfg.Metrics.Enabled {
			ops.GET("/metrics", gin.WrapH(m.Handler()))
		}
	}

	apiGroup := r.Group("/api")
	{
		pagesGroup := apiGroup.Group("/pages", limit(s.pageLimiter))
		pagesGroup.GET("/:slug", api.GetPage)
		pagesGroup.PUT("/:slug", api.SavePage)

		apiGroup.POST("/preview", limit(s.previewLimiter), api.Preview)
	}

	r.GET("/", pages.Home)
	r.GET("/sitemap.xml", pages.Sitemap)
	r.GET("/:slug", pages.Editor)

	s.http = &http.Server{
		Addr:         cfg.Server.Addr(),
		Handler:      r,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}
	return s, nil
}

func (s *Server) Handler() http.Handler {
	return s.engine
}

// Start serves until Shutdown is called.
func (s *Server) Start() error {
	stop := make(chan struct{})
	defer close(stop)
	if s.pageLimiter != nil {
		go s.pruneLimiters(stop)
	}

	s.log.Infow("Starting server", "addr", s.http.Addr)
	if err := s.http.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.http.Shutdown(ctx)
}

func limit(rl *handlers.RateLimiter) gin.HandlerFunc {
	if rl == nil {
		return func(c *gin.Context) { c.Next() }
	}
	return rl.Middleware()
}

func (s *Server) pruneLimiters(stop <-chan struct{}) {
	ticker := time.NewTicker(time.Minute)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			s.pageLimiter.Prune(limiterIdle)
			s.previewLimiter.Prune(limiterIdle)
		case <-stop:
			return
		}
	}
}
