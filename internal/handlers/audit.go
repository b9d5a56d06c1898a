package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/fleetgrid/fleetgrid/internal/services"
	appErrors "github.com/fleetgrid/fleetgrid/pkg/errors"
	"github.com/fleetgrid/fleetgrid/pkg/response"
)

// AuditHandler exposes the audit trail over HTTP.
type AuditHandler struct {
	audit *services.AuditService
}

// NewAuditHandler constructs the handler.
func NewAuditHandler(auditSvc *services.AuditService) (*AuditHandler, error) {
	if auditSvc == nil {
		return nil, appErrors.New("HANDLER_MISCONFIGURED", "audit handler: audit service is required", http.StatusInternalServerError)
	}
	return &AuditHandler{audit: auditSvc}, nil
}

// List returns recent audit entries, newest first.
func (h *AuditHandler) List(c *gin.Context) {
	entries, err := h.audit.List(requestContext(c), parseIntQuery(c, "limit", 100))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusOK, entries)
}
