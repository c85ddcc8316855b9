package http

import (
	"log/slog"

	"github.com/gin-gonic/gin"
	"github.com/layer-3/orbisauth/service"
)

// SetupRouter sets up the Gin router of a node
func SetupRouter(authService *service.AuthService, logger *slog.Logger) *gin.Engine {
	if logger == nil {
		logger = slog.Default()
	}

	router := gin.New()
	router.Use(gin.Recovery(), requestLogger(logger))

	handlers := NewAuthHandlers(authService, logger)

	// Auth routes
	auth := router.Group("/auth")
	{
		auth.POST("/connect", handlers.Connect)
		auth.POST("/logout", handlers.Logout)
	}

	// Protected API routes
	api := router.Group("/api")
	api.Use(AuthMiddleware(authService))
	{
		api.GET("/me", handlers.Me)
		api.GET("/authorize", handlers.Authorize)
	}

	return router
}
