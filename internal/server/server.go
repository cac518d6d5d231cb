package server

import (
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"github.com/emilythestrangee/featureboard/backend/internal/handlers"
	"github.com/emilythestrangee/featureboard/backend/internal/middleware"
	"github.com/emilythestrangee/featureboard/backend/internal/ratelimit"
)

type Server struct {
	handler *handlers.Handler
	limiter *ratelimit.Limiter
}

// New wires the unified handler and the vote rate limiter into a server.
func New(handler *handlers.Handler, limiter *ratelimit.Limiter) *Server {
	return &Server{handler: handler, limiter: limiter}
}

// HTTPServer wraps the router in an http.Server with sane timeouts.
func (s *Server) HTTPServer(port string) *http.Server {
	return &http.Server{
		Addr:         "0.0.0.0:" + port,
		Handler:      s.RegisterRoutes(),
		IdleTimeout:  time.Minute,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 30 * time.Second,
	}
}

// RegisterRoutes sets up all application routes
func (s *Server) RegisterRoutes() *gin.Engine {
	r := gin.Default()

	// CORS configuration
	r.Use(cors.New(cors.Config{
		AllowOrigins:     []string{"*"},
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS", "PATCH"},
		AllowHeaders:     []string{"Accept", "Authorization", "Content-Type", "X-Requested-With"},
		ExposeHeaders:    []string{"Content-Length", "Retry-After"},
		AllowCredentials: true,
		MaxAge:           12 * 3600,
	}))

	// Health check endpoint
	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	// API routes
	api := r.Group("/api")
	{
		// Auth routes (public)
		api.POST("/register", s.handler.Auth.Register)
		api.POST("/login", s.handler.Auth.Login)

		// Feature routes (public reads)
		api.GET("/features", s.handler.Feature.GetFeatures)
		api.GET("/features/:id", s.handler.Feature.GetFeature)

		// Vote routes (public reads)
		api.GET("/votes", s.handler.Vote.GetVotes)
		api.GET("/votes/user/:userId", s.handler.Vote.GetUserVotes)
		api.GET("/votes/feature/:featureId", s.handler.Vote.GetFeatureVotes)
		api.GET("/votes/user/:userId/feature/:featureId", s.handler.Vote.GetUserFeatureVote)

		// Protected routes (authentication required)
		protected := api.Group("")
		protected.Use(middleware.AuthMiddleware())
		{
			protected.GET("/me", s.handler.Auth.GetMe)

			protected.POST("/features", s.handler.Feature.CreateFeature)

			protected.POST("/votes", middleware.RateLimit(s.limiter), s.handler.Vote.CastVote)
			protected.PUT("/votes/:id", s.handler.Vote.UpdateVote)
			protected.DELETE("/votes/:id", s.handler.Vote.RemoveVote)

			// Admin routes
			admin := protected.Group("")
			admin.Use(middleware.AdminOnly())
			{
				admin.PUT("/features/:id/status", s.handler.Feature.UpdateFeatureStatus)
				admin.POST("/votes/bulk", s.handler.Vote.BulkVotes)
			}
		}
	}

	return r
}
