// Package web serves the HTTP API.
package web

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/hpungsan/clerk/internal/config"
	"github.com/hpungsan/clerk/internal/logger"
	"github.com/hpungsan/clerk/internal/ops"
)

// NewRouter builds the gin engine with every API route.
func NewRouter(rt *ops.Runtime, cfg *config.Config, version string, log *logger.Logger) *gin.Engine {
	if log == nil {
		log = logger.Nop()
	}
	gin.SetMode(gin.ReleaseMode)

	h := &Handlers{rt: rt, version: version}

	router := gin.New()
	router.Use(gin.Recovery(), requestLogger(log), securityHeaders(), corsMiddleware(cfg.AllowedOrigins))

	router.GET("/healthz", h.HandleHealth)

	api := router.Group("/api")
	{
		api.GET("/categories", h.HandleCategories)
		api.GET("/templates/:category", h.HandleTemplates)
		api.GET("/catalog/:category", h.HandleCatalog)
		api.GET("/template", h.HandleTemplateFile)
		api.GET("/template/sections", h.HandleSections)

		api.POST("/ai/start", h.HandleStart)
		api.POST("/ai/next", h.HandleNext)
		api.POST("/ai/complete", h.HandleComplete)

		api.GET("/documents", h.HandleListDocuments)
		api.POST("/documents/purge", h.HandlePurge)
		api.GET("/documents/:id", h.HandleDownload)
		api.GET("/documents/:id/preview", h.HandlePreview)
		api.DELETE("/documents/:id", h.HandleDelete)
	}

	return router
}

// NewServer creates the HTTP server for the API.
func NewServer(rt *ops.Runtime, cfg *config.Config, version string, log *logger.Logger) *http.Server {
	return &http.Server{
		Addr:              fmt.Sprintf("%s:%d", cfg.Bind, cfg.Port),
		Handler:           NewRouter(rt, cfg, version, log),
		ReadHeaderTimeout: 10 * time.Second,
	}
}

// Run starts the HTTP server and handles graceful shutdown on SIGINT/SIGTERM.
func Run(srv *http.Server, log *logger.Logger) error {
	if log == nil {
		log = logger.Nop()
	}
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigCh)

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.ListenAndServe()
	}()

	log.Info("clerk API listening", "addr", "http://"+srv.Addr)

	if strings.Contains(srv.Addr, "0.0.0.0") || strings.Contains(srv.Addr, "::") {
		log.Warn("server is binding to all interfaces and may be accessible from the network")
	}

	select {
	case err := <-errCh:
		if err == http.ErrServerClosed {
			return nil
		}
		return err
	case <-sigCh:
		log.Info("shutting down")
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(ctx)
	}
}
