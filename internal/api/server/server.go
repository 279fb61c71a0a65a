package server

import (
	"context"
	"errors"
	"net"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/zap"

	_ "audio-transcriber/docs" // Generated swagger docs
	"audio-transcriber/internal/api/middleware"
	"audio-transcriber/internal/api/v1/handlers"
	v1routes "audio-transcriber/internal/api/v1/routes"
	"audio-transcriber/internal/app/gateway"
	"audio-transcriber/internal/config"
)

// Server represents the API server
type Server struct {
	config     config.ServerConfig
	router     *gin.Engine
	httpServer *http.Server
	logger     *zap.Logger
}

// NewServer creates a new API server
func NewServer(
	cfg *config.Config,
	gw *gateway.Gateway,
	gatherer prometheus.Gatherer,
	logger *zap.Logger,
) *Server {
	// Set Gin mode based on environment
	switch cfg.Server.Environment {
	case "production":
		gin.SetMode(gin.ReleaseMode)
	case "test":
		gin.SetMode(gin.TestMode)
	default:
		gin.SetMode(gin.DebugMode)
	}

	router := gin.New()
	router.MaxMultipartMemory = cfg.MultipartMemoryBytes()

	// Apply global middleware
	router.Use(middleware.RequestID())
	router.Use(middleware.StructuredLogging(logger))
	router.Use(middleware.ErrorHandler(logger))
	router.Use(middleware.CORS(cfg.CORS))

	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":    "healthy",
			"timestamp": time.Now().Unix(),
		})
	})
	router.GET("/metrics", gin.WrapH(promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})))

	v1routes.RegisterRoutes(router, v1routes.Handlers{
		Transcription: handlers.NewTranscriptionHandler(gw, cfg.MaxUploadBytes()),
		Provider:      handlers.NewProviderHandler(gw.Registry()),
	})

	// Swagger documentation routes
	router.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	httpServer := &http.Server{
		Addr:         net.JoinHostPort(cfg.Server.Host, cfg.Server.Port),
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	return &Server{
		config:     cfg.Server,
		router:     router,
		httpServer: httpServer,
		logger:     logger,
	}
}

// Run serves until ctx is cancelled, then shuts down gracefully within the
// configured shutdown timeout.
func (s *Server) Run(ctx context.Context) error {
	s.logger.Info("Starting API server",
		zap.String("address", s.httpServer.Addr),
		zap.String("environment", s.config.Environment),
	)

	errCh := make(chan error, 1)
	go func() {
		errCh <- s.httpServer.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), s.config.ShutdownTimeout)
	defer cancel()
	return s.Shutdown(shutdownCtx)
}

// Shutdown gracefully shuts down the server
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("Shutting down API server...")

	if err := s.httpServer.Shutdown(ctx); err != nil {
		s.logger.Error("Server forced to shutdown", zap.Error(err))
		return err
	}

	s.logger.Info("API server shutdown complete")
	return nil
}

// Router returns the Gin router (useful for testing)
func (s *Server) Router() *gin.Engine {
	return s.router
}
