// Package health runs the operational HTTP surface of the engine:
// liveness, readiness (database pings) and Prometheus metrics. The engine
// itself is message-driven and exposes no business API.
package health

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"runtime/debug"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/meridianbank/pix-engine/internal/config"
	"github.com/meridianbank/pix-engine/internal/platform/persistence"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Server handles the operational HTTP endpoints
type Server struct {
	logger     *slog.Logger
	httpServer *http.Server
}

// NewServer creates and configures the health server
func NewServer(log *slog.Logger, cfg *config.Config, postgres *persistence.PostgresDB, mongodb *persistence.MongoDB) *Server {
	if cfg.Application.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()
	router.Use(recovery(log))

	router.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok", "timestamp": time.Now().UTC()})
	})

	router.GET("/readyz", func(c *gin.Context) {
		ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
		defer cancel()

		checks := gin.H{"postgres": "ok", "mongodb": "ok"}
		status := http.StatusOK

		if err := postgres.Pool().Ping(ctx); err != nil {
			log.Error("Readiness check failed for PostgreSQL", "error", err)
			checks["postgres"] = err.Error()
			status = http.StatusServiceUnavailable
		}
		if err := mongodb.Database().Client().Ping(ctx, nil); err != nil {
			log.Error("Readiness check failed for MongoDB", "error", err)
			checks["mongodb"] = err.Error()
			status = http.StatusServiceUnavailable
		}

		c.JSON(status, checks)
	})

	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	httpServer := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	return &Server{
		logger:     log,
		httpServer: httpServer,
	}
}

// Start begins listening for HTTP requests
func (s *Server) Start() error {
	if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("failed to start health server: %w", err)
	}
	return nil
}

// Stop gracefully shuts down the HTTP server with a timeout
func (s *Server) Stop(ctx context.Context) error {
	s.logger.Info("stopping health server")

	shutdownCtx, cancel := context.WithTimeout(ctx, s.httpServer.WriteTimeout)
	defer cancel()

	if err := s.httpServer.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("failed to stop health server: %w", err)
	}

	return nil
}

// recovery catches panics in handlers and returns a 500
func recovery(logger *slog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		defer func() {
			if r := recover(); r != nil {
				logger.Error("Panic recovered",
					"error", r,
					"stack", string(debug.Stack()),
					"path", c.Request.URL.Path,
				)
				c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{
					"error": gin.H{
						"code":    "INTERNAL_SERVER_ERROR",
						"message": "An internal server error occurred",
					},
				})
			}
		}()

		c.Next()
	}
}
