package api

import (
	"fmt"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"gorm.io/gorm"

	"github.com/fleetgrid/fleetgrid/internal/app"
	"github.com/fleetgrid/fleetgrid/internal/auth"
	"github.com/fleetgrid/fleetgrid/internal/handlers"
	"github.com/fleetgrid/fleetgrid/internal/middleware"
	"github.com/fleetgrid/fleetgrid/internal/services"
)

// Services bundles the service layer dependencies the router wires up.
type Services struct {
	Groups  *services.GroupService
	Targets *services.TargetService
	Audit   *services.AuditService
}

// NewRouter builds the Gin engine, wires middleware and registers all routes.
func NewRouter(db *gorm.DB, tokens *auth.TokenService, cfg *app.Config, svcs Services) (*gin.Engine, error) {
	if db == nil {
		return nil, fmt.Errorf("database handle must be provided")
	}
	if tokens == nil {
		return nil, fmt.Errorf("token service must be provided")
	}
	if cfg == nil {
		return nil, fmt.Errorf("config must be provided")
	}
	if svcs.Groups == nil || svcs.Targets == nil || svcs.Audit == nil {
		return nil, fmt.Errorf("group, target and audit services must be provided")
	}

	r := gin.New()

	// Global middleware
	r.Use(middleware.Recovery())
	r.Use(middleware.Logger())
	r.Use(middleware.Metrics())
	r.Use(middleware.SecurityHeaders())
	r.Use(middleware.CORS(cfg.Server.CORS.AllowedOrigins...))

	// Public endpoints
	if cfg.Monitoring.Health.Enabled {
		r.GET("/health", handlers.Health())
	}
	if cfg.Monitoring.Prometheus.Enabled {
		endpoint := cfg.Monitoring.Prometheus.Endpoint
		if endpoint == "" {
			endpoint = "/metrics"
		}
		r.GET(endpoint, gin.WrapH(promhttp.Handler()))
	}

	api := r.Group("/api")
	api.Use(middleware.Auth(tokens))

	groupHandler, err := handlers.NewTargetGroupHandler(svcs.Groups)
	if err != nil {
		return nil, err
	}
	registerTargetGroupRoutes(api, groupHandler)

	targetHandler, err := handlers.NewTargetHandler(svcs.Targets)
	if err != nil {
		return nil, err
	}
	registerTargetRoutes(api, targetHandler)

	auditHandler, err := handlers.NewAuditHandler(svcs.Audit)
	if err != nil {
		return nil, err
	}
	registerAuditRoutes(api, auditHandler)

	r.NoRoute(middleware.NotFoundHandler)

	return r, nil
}
