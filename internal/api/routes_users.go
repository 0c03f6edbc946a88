package api

import (
	"github.com/gin-gonic/gin"

	"github.com/aidalert/aidalert/internal/handlers"
	"github.com/aidalert/aidalert/internal/middleware"
)

func registerUserRoutes(api *gin.RouterGroup, handler *handlers.UserHandler) {
	group := api.Group("/users")
	group.Use(middleware.RequireRole())
	{
		group.GET("", handler.List)
		group.GET("/:id", handler.Get)
	}
}
