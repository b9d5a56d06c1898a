package handlers

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/fleetgrid/fleetgrid/internal/groups"
	"github.com/fleetgrid/fleetgrid/internal/services"
	appErrors "github.com/fleetgrid/fleetgrid/pkg/errors"
	"github.com/fleetgrid/fleetgrid/pkg/response"
)

// TargetGroupHandler exposes the target-group forest over HTTP.
type TargetGroupHandler struct {
	groups *services.GroupService
}

// NewTargetGroupHandler constructs the handler.
func NewTargetGroupHandler(groupSvc *services.GroupService) (*TargetGroupHandler, error) {
	if groupSvc == nil {
		return nil, appErrors.New("HANDLER_MISCONFIGURED", "target group handler: group service is required", http.StatusInternalServerError)
	}
	return &TargetGroupHandler{groups: groupSvc}, nil
}

type createGroupRequest struct {
	Name        string  `json:"name" validate:"required,min=1,max=255"`
	Description string  `json:"description" validate:"omitempty,max=1024"`
	Color       string  `json:"color" validate:"omitempty,max=32"`
	Icon        string  `json:"icon" validate:"omitempty,max=64"`
	ParentID    *string `json:"parent_id" validate:"omitempty,uuid4"`
}

type updateGroupRequest struct {
	Name        *string `json:"name" validate:"omitempty,min=1,max=255"`
	Description *string `json:"description" validate:"omitempty,max=1024"`
	Color       *string `json:"color" validate:"omitempty,max=32"`
	Icon        *string `json:"icon" validate:"omitempty,max=64"`
}

type moveGroupRequest struct {
	ParentID *string `json:"parent_id" validate:"omitempty,uuid4"`
}

type addMembersRequest struct {
	TargetIDs []string `json:"target_ids" validate:"required,min=1,dive,required"`
}

type moveMemberRequest struct {
	ToGroupID string `json:"to_group_id" validate:"required,uuid4"`
}

// Tree renders the forest. The expanded query parameter carries the ids whose
// children should be included; sort selects creation or name ordering.
func (h *TargetGroupHandler) Tree(c *gin.Context) {
	mode := groups.ParseSortMode(c.Query("sort"))
	tree := h.groups.Tree(requestContext(c), splitListQuery(c, "expanded"), mode)
	response.Success(c, http.StatusOK, tree)
}

// Get returns one group together with its counts and breadcrumb chain.
func (h *TargetGroupHandler) Get(c *gin.Context) {
	ctx := requestContext(c)
	id := c.Param("id")

	group, err := h.groups.Get(ctx, id)
	if err != nil {
		response.Error(c, err)
		return
	}

	direct, err := h.groups.DirectMembers(ctx, id)
	if err != nil {
		response.Error(c, err)
		return
	}
	aggregate, err := h.groups.AggregateCount(ctx, id)
	if err != nil {
		response.Error(c, err)
		return
	}
	ancestors, err := h.groups.Ancestors(ctx, id)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{
		"group":           group,
		"direct_count":    len(direct),
		"aggregate_count": aggregate,
		"ancestors":       ancestors,
	})
}

// Create registers a new group.
func (h *TargetGroupHandler) Create(c *gin.Context) {
	var req createGroupRequest
	if !bindAndValidate(c, &req) {
		return
	}

	group, err := h.groups.Create(requestContext(c), services.CreateGroupInput{
		Name:        req.Name,
		Description: req.Description,
		Color:       req.Color,
		Icon:        req.Icon,
		ParentID:    req.ParentID,
	})
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusCreated, group)
}

// Update renames a group and/or edits display metadata.
func (h *TargetGroupHandler) Update(c *gin.Context) {
	var req updateGroupRequest
	if !bindAndValidate(c, &req) {
		return
	}

	group, err := h.groups.Update(requestContext(c), c.Param("id"), services.UpdateGroupInput{
		Name:        req.Name,
		Description: req.Description,
		Color:       req.Color,
		Icon:        req.Icon,
	})
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusOK, group)
}

// Delete removes a group. cascade=true removes the whole subtree along with
// its memberships; without it deleting a non-leaf group fails.
func (h *TargetGroupHandler) Delete(c *gin.Context) {
	cascade := strings.EqualFold(c.Query("cascade"), "true")

	if err := h.groups.Delete(requestContext(c), c.Param("id"), cascade); err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"deleted": true})
}

// Move reparents a group; a null parent_id makes it a root.
func (h *TargetGroupHandler) Move(c *gin.Context) {
	var req moveGroupRequest
	if !bindAndValidate(c, &req) {
		return
	}

	group, err := h.groups.Move(requestContext(c), c.Param("id"), req.ParentID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusOK, group)
}

// Children lists the ordered children of a group.
func (h *TargetGroupHandler) Children(c *gin.Context) {
	id := c.Param("id")
	children, err := h.groups.Children(requestContext(c), &id)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusOK, children)
}

// Members lists a group's direct members resolved against the catalog.
func (h *TargetGroupHandler) Members(c *gin.Context) {
	members, err := h.groups.Members(requestContext(c), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusOK, members)
}

// AddMembers associates targets with a group.
func (h *TargetGroupHandler) AddMembers(c *gin.Context) {
	var req addMembersRequest
	if !bindAndValidate(c, &req) {
		return
	}

	added, err := h.groups.AddMembers(requestContext(c), c.Param("id"), req.TargetIDs)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"added": added})
}

// RemoveMember drops one membership pair.
func (h *TargetGroupHandler) RemoveMember(c *gin.Context) {
	if err := h.groups.RemoveMember(requestContext(c), c.Param("id"), c.Param("targetId")); err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"removed": true})
}

// MoveMember reassigns one target from this group to another.
func (h *TargetGroupHandler) MoveMember(c *gin.Context) {
	var req moveMemberRequest
	if !bindAndValidate(c, &req) {
		return
	}

	if err := h.groups.MoveMember(requestContext(c), c.Param("targetId"), c.Param("id"), req.ToGroupID); err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"moved": true})
}

// AvailableTargets lists catalog entries that can still join the group.
func (h *TargetGroupHandler) AvailableTargets(c *gin.Context) {
	available, err := h.groups.AvailableTargets(requestContext(c), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusOK, available)
}

// AvailableParents lists the groups this group could be moved under without
// creating a cycle.
func (h *TargetGroupHandler) AvailableParents(c *gin.Context) {
	parents, err := h.groups.AvailableParents(requestContext(c), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusOK, parents)
}
