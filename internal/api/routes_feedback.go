package api

import (
	"github.com/gin-gonic/gin"

	"github.com/aidalert/aidalert/internal/handlers"
	"github.com/aidalert/aidalert/internal/middleware"
)

func registerFeedbackRoutes(api *gin.RouterGroup, handler *handlers.FeedbackHandler) {
	group := api.Group("/feedback")
	{
		group.POST("", handler.Submit)
		group.GET("/mine", handler.Mine)

		group.GET("", middleware.RequireRole(), handler.List)
		group.POST("/:id/reply", middleware.RequireRole(), handler.Reply)
		group.PATCH("/:id/status", middleware.RequireRole(), handler.SetStatus)
	}
}
