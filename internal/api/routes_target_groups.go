package api

import (
	"github.com/gin-gonic/gin"

	"github.com/fleetgrid/fleetgrid/internal/handlers"
)

func registerTargetGroupRoutes(api *gin.RouterGroup, handler *handlers.TargetGroupHandler) {
	group := api.Group("/target-groups")
	{
		group.GET("/tree", handler.Tree)
		group.POST("", handler.Create)
		group.GET("/:id", handler.Get)
		group.PATCH("/:id", handler.Update)
		group.DELETE("/:id", handler.Delete)
		group.POST("/:id/move", handler.Move)
		group.GET("/:id/children", handler.Children)
		group.GET("/:id/members", handler.Members)
		group.POST("/:id/members", handler.AddMembers)
		group.DELETE("/:id/members/:targetId", handler.RemoveMember)
		group.POST("/:id/members/:targetId/move", handler.MoveMember)
		group.GET("/:id/available-targets", handler.AvailableTargets)
		group.GET("/:id/available-parents", handler.AvailableParents)
	}
}
