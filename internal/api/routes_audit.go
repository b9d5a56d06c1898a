package api

import (
	"github.com/gin-gonic/gin"

	"github.com/fleetgrid/fleetgrid/internal/handlers"
)

func registerAuditRoutes(api *gin.RouterGroup, handler *handlers.AuditHandler) {
	api.GET("/audit", handler.List)
}
