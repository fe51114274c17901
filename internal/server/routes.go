package server

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/nulzo/ai-bridge/internal/server/middleware"
	v1 "github.com/nulzo/ai-bridge/internal/server/v1"
	"github.com/nulzo/ai-bridge/pkg/api"
)

func (s *Server) setupRoutes() {
	s.router.Use(middleware.CORS())
	s.router.Use(middleware.ErrorHandler(s.logger, s.config.Server.IsDev()))

	s.router.NoRoute(func(c *gin.Context) {
		c.JSON(http.StatusNotFound, api.NewError(http.StatusNotFound, api.CodeNotFound,
			fmt.Sprintf("Not Found - %s", c.Request.URL.Path)).Envelope())
	})

	if s.config.Tracing.Enabled {
		s.router.Use(middleware.Tracing("ai-bridge"))
	}

	limiter := middleware.NewRateLimiter(
		s.config.RateLimit.RequestsPerSecond,
		s.config.RateLimit.Burst,
		s.logger,
	)

	grp := s.router.Group("/api")
	grp.Use(limiter.Middleware())
	{
		completions := v1.NewCompletionHandler(s.service)
		grp.POST("/completions", completions.Create)

		models := v1.NewModelHandler(s.service)
		grp.GET("/models", models.ListModels)
		grp.GET("/providers", models.ListProviders)

		health := v1.NewHealthHandler(s.service)
		grp.GET("/health", health.Health)

		stats := v1.NewStatsHandler(s.repo, s.cache, s.logger)
		grp.GET("/stats", stats.Stats)
		grp.GET("/requests", stats.Recent)
	}
}
