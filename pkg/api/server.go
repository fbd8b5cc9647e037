// Package api serves the PNG framing toolkit over HTTP: stream inspection
// and verification, ancillary chunk stripping, and the chunk archive.
//
// Routes under /api/v1 require an X-API-Key header when an API key is
// configured. /metrics is always unprotected for scraping.
package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/rs/zerolog"
)

const shutdownTimeout = 10 * time.Second

// Server holds the dependencies of the HTTP handlers
type Server struct {
	archive ChunkArchive
	config  ServerConfig
	metrics *Metrics
	logger  zerolog.Logger
}

// NewServer creates a new API server
func NewServer(archive ChunkArchive, config ServerConfig, metrics *Metrics, logger zerolog.Logger) *Server {
	if config.MaxBodyBytes <= 0 {
		config.MaxBodyBytes = 64 << 20
	}
	if metrics == nil {
		metrics = NewMetrics()
	}
	return &Server{
		archive: archive,
		config:  config,
		metrics: metrics,
		logger:  logger,
	}
}

// Router builds the HTTP handler with all routes configured
func (s *Server) Router() http.Handler {
	m := s.metrics
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(requestLogger(s.logger))
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"*"},
		ExposedHeaders:   []string{"X-Chunk-Type", "X-Chunks-Kept", "X-Chunks-Dropped"},
		AllowCredentials: false,
		MaxAge:           300,
	}))

	r.Handle("/metrics", m.Handler())

	r.Route("/api/v1", func(r chi.Router) {
		if s.config.APIKey != "" {
			r.Use(m.InstrumentAuthMiddleware(apiKeyMiddleware(s.config.APIKey)))
		}

		r.Get("/health", m.InstrumentHandler("GET", "/api/v1/health", s.handleHealth))

		// Stream operations
		r.Post("/inspect", m.InstrumentHandler("POST", "/api/v1/inspect", s.handleInspect))
		r.Post("/verify", m.InstrumentHandler("POST", "/api/v1/verify", s.handleVerify))
		r.Post("/strip", m.InstrumentHandler("POST", "/api/v1/strip", s.handleStrip))

		// Chunk archive
		r.Post("/chunks", m.InstrumentHandler("POST", "/api/v1/chunks", s.handlePutChunk))
		r.Get("/chunks", m.InstrumentHandler("GET", "/api/v1/chunks", s.handleListChunks))
		r.Get("/chunks/{id}", m.InstrumentHandler("GET", "/api/v1/chunks/{id}", s.handleGetChunk))
		r.Get("/chunks/{id}/frame", m.InstrumentHandler("GET", "/api/v1/chunks/{id}/frame", s.handleGetFrame))
		r.Delete("/chunks/{id}", m.InstrumentHandler("DELETE", "/api/v1/chunks/{id}", s.handleDeleteChunk))

		// Archived files
		r.Post("/files", m.InstrumentHandler("POST", "/api/v1/files", s.handlePutFile))
		r.Get("/files/{id}", m.InstrumentHandler("GET", "/api/v1/files/{id}", s.handleGetFile))
		r.Get("/files/{id}/manifest", m.InstrumentHandler("GET", "/api/v1/files/{id}/manifest", s.handleGetManifest))
	})

	return r
}

// StartServer serves the API on config.Bind:config.Port until ctx is
// cancelled, then shuts down gracefully
func StartServer(ctx context.Context, archive ChunkArchive, config ServerConfig, logger zerolog.Logger) error {
	server := NewServer(archive, config, NewMetrics(), logger)

	addr := fmt.Sprintf("%s:%d", config.Bind, config.Port)
	httpServer := &http.Server{
		Addr:              addr,
		Handler:           server.Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info().Str("addr", addr).Bool("auth", config.APIKey != "").Msg("starting pngframe API server")
		errCh <- httpServer.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("server failed: %w", err)
	case <-ctx.Done():
		logger.Info().Msg("shutting down pngframe API server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("server shutdown: %w", err)
		}
		return nil
	}
}
