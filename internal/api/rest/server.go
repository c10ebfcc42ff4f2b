package rest

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/KevinKickass/pointc/internal/api/websocket"
	"github.com/KevinKickass/pointc/internal/config"
	"github.com/KevinKickass/pointc/internal/interfaces"
	"github.com/KevinKickass/pointc/internal/pointtable"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type Server struct {
	router *gin.Engine
	lm     interfaces.LifecycleManager
	loader *pointtable.Loader
	logger *zap.Logger
	server *http.Server
	wsHub  *websocket.Hub
}

func NewServer(cfg *config.Config, lm interfaces.LifecycleManager, logger *zap.Logger, wsHub *websocket.Hub) (*Server, error) {
	gin.SetMode(gin.ReleaseMode)

	loader, err := pointtable.NewLoader(cfg.Tables.SearchPaths)
	if err != nil {
		return nil, fmt.Errorf("failed to create snapshot loader: %w", err)
	}

	s := &Server{
		router: gin.New(),
		lm:     lm,
		loader: loader,
		logger: logger,
		wsHub:  wsHub,
	}

	s.setupRoutes()

	s.server = &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.HTTPPort),
		Handler:      s.router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	return s, nil
}

// Handler exposes the router, mainly for tests.
func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) Start() error {
	s.logger.Info("Starting REST API server", zap.String("address", s.server.Addr))
	go func() {
		if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			s.logger.Error("REST server failed", zap.Error(err))
		}
	}()
	return nil
}

func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("Shutting down REST API server")
	return s.server.Shutdown(ctx)
}

func (s *Server) setupRoutes() {
	s.router.Use(gin.Recovery())
	s.router.Use(LoggerMiddleware(s.logger))
	s.router.Use(CORSMiddleware())

	s.router.GET("/health", s.healthCheck)

	v1 := s.router.Group("/api/v1")
	{
		builds := v1.Group("/builds")
		{
			builds.POST("", s.createBuild)
			builds.GET("", s.requireStore, s.listBuilds)
			builds.GET("/:id", s.requireStore, s.getBuild)
		}

		system := v1.Group("/system")
		{
			system.GET("/status", s.getSystemStatus)
			system.GET("/settings", s.getSettings)
		}

		ws := v1.Group("/ws")
		{
			ws.GET("/builds", s.wsBuildStream)
			ws.GET("/status", s.wsStatus)
		}
	}
}

// WebSocket handlers
func (s *Server) wsBuildStream(c *gin.Context) {
	websocket.ServeWs(s.wsHub, c.Writer, c.Request)
}

func (s *Server) wsStatus(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"connected_clients": s.wsHub.GetClientCount(),
	})
}

func (s *Server) healthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":    "ok",
		"timestamp": time.Now().Unix(),
	})
}
