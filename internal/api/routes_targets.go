package api

import (
	"github.com/gin-gonic/gin"

	"github.com/fleetgrid/fleetgrid/internal/handlers"
)

func registerTargetRoutes(api *gin.RouterGroup, handler *handlers.TargetHandler) {
	group := api.Group("/targets")
	{
		group.GET("", handler.List)
		group.POST("", handler.Create)
		group.GET("/:id", handler.Get)
		group.PATCH("/:id", handler.Update)
		group.DELETE("/:id", handler.Delete)
	}
}
