package api

import (
	"github.com/gin-gonic/gin"

	"github.com/aidalert/aidalert/internal/handlers"
	"github.com/aidalert/aidalert/internal/middleware"
	"github.com/aidalert/aidalert/internal/models"
)

func registerKitRoutes(api *gin.RouterGroup, handler *handlers.KitHandler) {
	requireFacility := middleware.RequireRole(models.RoleFacility)

	group := api.Group("/kits")
	{
		group.GET("", handler.List)
		group.GET("/:id", handler.Get)

		group.POST("", requireFacility, handler.Create)
		group.PATCH("/:id/status", requireFacility, handler.SetStatus)
		group.PATCH("/items/:itemId/stock", requireFacility, handler.AdjustStock)
		group.GET("/low-stock", requireFacility, handler.LowStock)
	}
}
