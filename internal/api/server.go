package api

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/trigg3rX/triggerx-chainio/internal/api/handlers"
	"github.com/trigg3rX/triggerx-chainio/internal/api/middleware"
	"github.com/trigg3rX/triggerx-chainio/pkg/logging"
	"github.com/trigg3rX/triggerx-chainio/pkg/metrics"
)

// Server represents the API server
type Server struct {
	router     *gin.Engine
	httpServer *http.Server
	logger     logging.Logger
}

type Config struct {
	Port string
}

type Dependencies struct {
	Logger      logging.Logger
	Metrics     *metrics.Collector
	Coordinator handlers.Coordinator
	// TxManager is optional.
	TxManager handlers.TxManager
}

func NewServer(cfg Config, deps Dependencies) *Server {
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(middleware.Logger(deps.Logger, deps.Metrics.API()))

	srv := &Server{
		router: router,
		logger: deps.Logger,
		httpServer: &http.Server{
			Addr:              fmt.Sprintf(":%s", cfg.Port),
			Handler:           router,
			ReadHeaderTimeout: 10 * time.Second,
		},
	}
	srv.setupRoutes(deps)
	return srv
}

func (s *Server) setupRoutes(deps Dependencies) {
	h := handlers.NewHandler(deps.Logger, deps.Coordinator, deps.TxManager)

	s.router.GET("/health", h.HandleHealth)
	s.router.GET("/metrics", gin.WrapH(deps.Metrics.Handler()))

	v1 := s.router.Group("/api/v1")
	{
		v1.POST("/operators", h.HandleRegisterOperator)
		v1.POST("/rounds", h.HandleStartRound)
		v1.GET("/rounds/:id", h.HandleGetRound)
		v1.POST("/rounds/:id/signatures", h.HandleAddSignature)
		v1.POST("/transactions", h.HandleSubmitTx)
		v1.GET("/transactions/:id", h.HandleGetTx)
	}
}

// Handler exposes the router, mainly for tests.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Start blocks until the server stops.
func (s *Server) Start() error {
	s.logger.Info("Starting API server", "addr", s.httpServer.Addr)
	if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("failed to start server: %w", err)
	}
	return nil
}

// Stop gracefully stops the server
func (s *Server) Stop(ctx context.Context) error {
	s.logger.Info("Stopping API server")
	return s.httpServer.Shutdown(ctx)
}
