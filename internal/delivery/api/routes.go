package api

import (
	"github.com/gin-gonic/gin"
)

// SetupRoutes registers the quiz API routes.
func SetupRoutes(router *gin.Engine, handler *Handler) {
	router.GET("/healthz", handler.HandleHealth)

	api := router.Group("/api")
	{
		api.GET("/countries/:country/chapters", handler.HandleListChapters)

		sessions := api.Group("/sessions")
		{
			sessions.POST("", handler.HandleStartSession)
			sessions.GET("/:id", handler.HandleGetSession)
			sessions.DELETE("/:id", handler.HandleDiscard)

			sessions.PUT("/:id/answers/:index", handler.HandleAnswer)
			sessions.POST("/:id/advance", handler.HandleAdvance)
			sessions.POST("/:id/back", handler.HandleBack)
			sessions.POST("/:id/jump", handler.HandleJump)
			sessions.POST("/:id/finish", handler.HandleFinish)
			sessions.GET("/:id/score", handler.HandleScore)
		}
	}
}
