package server

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/alkime/scribe/internal/config"
	"github.com/alkime/scribe/internal/generate"
	"github.com/alkime/scribe/internal/notes"
	"github.com/alkime/scribe/internal/store"
)

// AudioTranscriber turns an uploaded audio file into text. An empty
// language leaves detection to the transcriber.
type AudioTranscriber interface {
	Transcribe(ctx context.Context, filename, language string, audio io.Reader) (string, error)
}

// VideoFetcher extracts the transcript of an online video.
type VideoFetcher interface {
	Fetch(ctx context.Context, sourceURL string) (string, error)
}

// Deps are the services behind the HTTP endpoints. A nil Notes or Audio
// makes the matching endpoint answer 503.
type Deps struct {
	Store  *store.Store
	Notes  generate.Writer
	Audio  AudioTranscriber
	Videos VideoFetcher
}

// Server represents the HTTP server
type Server struct {
	config   *config.Config
	logger   *slog.Logger
	router   *gin.Engine
	deps     Deps
	renderer *notes.Renderer
}

// New creates a new Server instance
func New(cfg *config.Config, deps Deps, logger *slog.Logger) *Server {
	if cfg.Env == config.EnvProduction {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.Default()
	if cfg.Env == config.EnvProduction {
		router.TrustedPlatform = gin.PlatformFlyIO
		logger.Debug("Configured trusted platform", "platform", "fly.io")
	}

	server := &Server{
		config:   cfg,
		logger:   logger,
		router:   router,
		deps:     deps,
		renderer: notes.NewRenderer(),
	}

	setupSecurityMiddleware(router, cfg, logger)
	server.setupRoutes()

	return server
}

// Router exposes the handler for tests and embedding.
func (s *Server) Router() http.Handler {
	return s.router
}

// Run serves until ctx is cancelled, then shuts down gracefully.
func Run(ctx context.Context, s *Server) error {
	httpSrv := &http.Server{
		Addr:              ":" + s.config.Port,
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errc := make(chan error, 1)
	go func() {
		s.logger.Info("Server listening", "port", s.config.Port)
		errc <- httpSrv.ListenAndServe()
	}()

	select {
	case err := <-errc:
		return fmt.Errorf("failed to serve: %w", err)
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := httpSrv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("failed to shut down: %w", err)
	}
	if err := <-errc; err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("failed to serve: %w", err)
	}
	s.logger.Info("Server stopped")
	return nil
}

// setupRoutes configures all HTTP routes
func (s *Server) setupRoutes() {
	s.router.GET("/health", s.handleHealth)

	api := s.router.Group("/", sessionMiddleware(s.logger))
	api.POST("/save-transcript", s.handleSaveTranscript)
	api.POST("/generate-notes", s.handleGenerateNotes)
	api.POST("/youtube-transcript", s.handleYoutubeTranscript)
	api.POST("/transcribe", s.handleTranscribe)
	api.GET("/download-pdf", s.handleDownloadPDF)
	api.POST("/download-pdf", s.handleDownloadPDF)
}

// handleHealth handles the health check endpoint
func (s *Server) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":  "healthy",
		"service": "scribe",
	})
}
