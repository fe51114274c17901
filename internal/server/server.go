package server

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/nulzo/ai-bridge/internal/config"
	"github.com/nulzo/ai-bridge/internal/gateway"
	"github.com/nulzo/ai-bridge/internal/server/middleware"
	"github.com/nulzo/ai-bridge/internal/server/validator"
	"github.com/nulzo/ai-bridge/internal/store"
	"github.com/nulzo/ai-bridge/internal/store/cache"
)

type Server struct {
	router  *gin.Engine
	config  *config.Config
	logger  *zap.Logger
	service *gateway.Service
	repo    store.Repository
	cache   cache.Cache
}

func New(cfg *config.Config, logger *zap.Logger, service *gateway.Service, repo store.Repository, c cache.Cache) *Server {
	if cfg.Server.IsProd() {
		gin.SetMode(gin.ReleaseMode)
	}
	if cfg.Server.IsTest() {
		gin.SetMode(gin.TestMode)
	}

	validator.Init()

	engine := gin.New()
	engine.Use(middleware.Recovery(logger))
	engine.Use(middleware.Logger(logger))

	s := &Server{
		router:  engine,
		config:  cfg,
		logger:  logger,
		service: service,
		repo:    repo,
		cache:   c,
	}

	s.setupRoutes()
	return s
}

func (s *Server) Handler() http.Handler {
	return s.router
}
