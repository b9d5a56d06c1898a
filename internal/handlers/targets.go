package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/fleetgrid/fleetgrid/internal/services"
	appErrors "github.com/fleetgrid/fleetgrid/pkg/errors"
	"github.com/fleetgrid/fleetgrid/pkg/response"
)

// TargetHandler exposes the target catalog over HTTP.
type TargetHandler struct {
	targets *services.TargetService
}

// NewTargetHandler constructs the handler.
func NewTargetHandler(targetSvc *services.TargetService) (*TargetHandler, error) {
	if targetSvc == nil {
		return nil, appErrors.New("HANDLER_MISCONFIGURED", "target handler: target service is required", http.StatusInternalServerError)
	}
	return &TargetHandler{targets: targetSvc}, nil
}

type createTargetRequest struct {
	Name      string            `json:"name" validate:"required,min=1,max=255"`
	Hostname  string            `json:"hostname" validate:"omitempty,max=255"`
	IPAddress string            `json:"ip_address" validate:"omitempty,max=64"`
	Status    string            `json:"status" validate:"omitempty,oneof=active inactive"`
	Labels    map[string]string `json:"labels"`
}

type updateTargetRequest struct {
	Name      *string           `json:"name" validate:"omitempty,min=1,max=255"`
	Hostname  *string           `json:"hostname" validate:"omitempty,max=255"`
	IPAddress *string           `json:"ip_address" validate:"omitempty,max=64"`
	Status    *string           `json:"status" validate:"omitempty,oneof=active inactive"`
	Labels    map[string]string `json:"labels"`
}

// List returns catalog entries with optional status/search filtering and
// pagination.
func (h *TargetHandler) List(c *gin.Context) {
	perPage := parseIntQuery(c, "per_page", 50)
	if perPage < 1 || perPage > 200 {
		perPage = 50
	}
	page := parseIntQuery(c, "page", 1)
	if page < 1 {
		page = 1
	}

	targets, total, err := h.targets.List(requestContext(c), services.ListTargetsOptions{
		Status: c.Query("status"),
		Search: c.Query("search"),
		Limit:  perPage,
		Offset: (page - 1) * perPage,
	})
	if err != nil {
		response.Error(c, err)
		return
	}

	totalPages := int((total + int64(perPage) - 1) / int64(perPage))
	response.SuccessWithMeta(c, http.StatusOK, targets, &response.Meta{
		Page:       page,
		PerPage:    perPage,
		Total:      int(total),
		TotalPages: totalPages,
	})
}

// Get returns one catalog entry.
func (h *TargetHandler) Get(c *gin.Context) {
	target, err := h.targets.Get(requestContext(c), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusOK, target)
}

// Create registers a new catalog entry.
func (h *TargetHandler) Create(c *gin.Context) {
	var req createTargetRequest
	if !bindAndValidate(c, &req) {
		return
	}

	target, err := h.targets.Create(requestContext(c), services.CreateTargetInput{
		Name:      req.Name,
		Hostname:  req.Hostname,
		IPAddress: req.IPAddress,
		Status:    req.Status,
		Labels:    req.Labels,
	})
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusCreated, target)
}

// Update edits a catalog entry.
func (h *TargetHandler) Update(c *gin.Context) {
	var req updateTargetRequest
	if !bindAndValidate(c, &req) {
		return
	}

	target, err := h.targets.Update(requestContext(c), c.Param("id"), services.UpdateTargetInput{
		Name:      req.Name,
		Hostname:  req.Hostname,
		IPAddress: req.IPAddress,
		Status:    req.Status,
		Labels:    req.Labels,
	})
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusOK, target)
}

// Delete removes a catalog entry. Group memberships pointing at the id stay
// behind until the reconciliation sweep prunes them.
func (h *TargetHandler) Delete(c *gin.Context) {
	if err := h.targets.Delete(requestContext(c), c.Param("id")); err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"deleted": true})
}
