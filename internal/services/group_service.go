package services

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/fleetgrid/fleetgrid/internal/groups"
	"github.com/fleetgrid/fleetgrid/internal/models"
	"github.com/fleetgrid/fleetgrid/pkg/logger"
	"github.com/fleetgrid/fleetgrid/pkg/metrics"
)

// GroupService fronts the in-memory group engine with persistence: the engine
// is the authority, loaded once from the database, and every committed
// change-set is mirrored into one transaction. When a transaction fails the
// engine is reloaded from storage so memory never drifts ahead of it.
type GroupService struct {
	db     *gorm.DB
	engine *groups.Engine
	audit  *AuditService

	// mu serialises mutate+persist pairs so the store applies change-sets in
	// the order the engine committed them.
	mu sync.Mutex
}

// CreateGroupInput captures new group fields.
type CreateGroupInput struct {
	Name        string
	Description string
	Color       string
	Icon        string
	ParentID    *string
}

// UpdateGroupInput describes mutable group fields; nil means unchanged.
type UpdateGroupInput struct {
	Name        *string
	Description *string
	Color       *string
	Icon        *string
}

// MemberTarget is one group member resolved against the target catalog.
// Known is false when the membership references an id the catalog no longer
// holds — the engine accepts ids opaquely, so such rows can exist.
type MemberTarget struct {
	TargetID  string `json:"target_id"`
	Name      string `json:"name,omitempty"`
	Hostname  string `json:"hostname,omitempty"`
	IPAddress string `json:"ip_address,omitempty"`
	Status    string `json:"status,omitempty"`
	Known     bool   `json:"known"`
}

// NewGroupService constructs the service and loads the engine from storage.
func NewGroupService(db *gorm.DB, audit *AuditService) (*GroupService, error) {
	if db == nil {
		return nil, errors.New("group service: db is required")
	}

	s := &GroupService{
		db:     db,
		engine: groups.NewEngine(),
		audit:  audit,
	}
	if err := s.reload(context.Background()); err != nil {
		return nil, err
	}
	return s, nil
}

// reload rebuilds the engine from the database.
func (s *GroupService) reload(ctx context.Context) error {
	ctx = ensureContext(ctx)

	var rows []models.TargetGroup
	if err := s.db.WithContext(ctx).Order("ordering ASC, created_at ASC").Find(&rows).Error; err != nil {
		return fmt.Errorf("group service: load groups: %w", err)
	}

	var memberRows []models.TargetGroupMember
	if err := s.db.WithContext(ctx).Find(&memberRows).Error; err != nil {
		return fmt.Errorf("group service: load memberships: %w", err)
	}

	loaded := make([]groups.Group, 0, len(rows))
	for _, row := range rows {
		loaded = append(loaded, groups.Group{
			ID:          row.ID,
			Name:        row.Name,
			Description: row.Description,
			Color:       row.Color,
			Icon:        row.Icon,
			ParentID:    row.ParentID,
			Seq:         uint64(row.Ordering),
		})
	}

	members := make([]groups.Member, 0, len(memberRows))
	for _, row := range memberRows {
		members = append(members, groups.Member{GroupID: row.GroupID, TargetID: row.TargetID})
	}

	if err := s.engine.Load(loaded, members); err != nil {
		return fmt.Errorf("group service: rebuild engine: %w", err)
	}

	s.refreshGauges()
	return nil
}

// persist mirrors one committed change-set into a single transaction. On
// failure the engine is reloaded so it matches storage again.
func (s *GroupService) persist(ctx context.Context, cs groups.ChangeSet) error {
	if cs.Empty() {
		return nil
	}

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for _, g := range cs.Created {
			row := models.TargetGroup{
				BaseModel:   models.BaseModel{ID: g.ID},
				Name:        g.Name,
				Description: g.Description,
				Color:       g.Color,
				Icon:        g.Icon,
				ParentID:    g.ParentID,
				Path:        joinPath(g.Path),
				Level:       g.Level,
				Ordering:    int(g.Seq),
			}
			if err := tx.Create(&row).Error; err != nil {
				return fmt.Errorf("create group %s: %w", g.ID, err)
			}
		}

		for _, g := range cs.Updated {
			updates := map[string]any{
				"name":        g.Name,
				"description": g.Description,
				"color":       g.Color,
				"icon":        g.Icon,
				"parent_id":   g.ParentID,
				"path":        joinPath(g.Path),
				"level":       g.Level,
				"ordering":    int(g.Seq),
			}
			if err := tx.Model(&models.TargetGroup{}).Where("id = ?", g.ID).Updates(updates).Error; err != nil {
				return fmt.Errorf("update group %s: %w", g.ID, err)
			}
		}

		if len(cs.DeletedGroupIDs) > 0 {
			if err := tx.Where("group_id IN ?", cs.DeletedGroupIDs).Delete(&models.TargetGroupMember{}).Error; err != nil {
				return fmt.Errorf("delete memberships: %w", err)
			}
			if err := tx.Where("id IN ?", cs.DeletedGroupIDs).Delete(&models.TargetGroup{}).Error; err != nil {
				return fmt.Errorf("delete groups: %w", err)
			}
		}

		deleted := make(map[string]struct{}, len(cs.DeletedGroupIDs))
		for _, id := range cs.DeletedGroupIDs {
			deleted[id] = struct{}{}
		}
		for _, m := range cs.RemovedMembers {
			if _, gone := deleted[m.GroupID]; gone {
				continue // already covered by the group delete above
			}
			if err := tx.Where("group_id = ? AND target_id = ?", m.GroupID, m.TargetID).
				Delete(&models.TargetGroupMember{}).Error; err != nil {
				return fmt.Errorf("remove member %s/%s: %w", m.GroupID, m.TargetID, err)
			}
		}

		for _, m := range cs.AddedMembers {
			row := models.TargetGroupMember{GroupID: m.GroupID, TargetID: m.TargetID}
			if err := tx.Create(&row).Error; err != nil {
				return fmt.Errorf("add member %s/%s: %w", m.GroupID, m.TargetID, err)
			}
		}

		return nil
	})

	if err != nil {
		logger.WithModule("groups").Error("change-set persist failed; reloading engine from storage", zap.Error(err))
		if reloadErr := s.reload(ctx); reloadErr != nil {
			logger.WithModule("groups").Error("engine reload failed", zap.Error(reloadErr))
		}
		return fmt.Errorf("group service: persist change-set: %w", err)
	}

	s.refreshGauges()
	return nil
}

func (s *GroupService) refreshGauges() {
	groupCount, memberCount := s.engine.Counts()
	metrics.GroupCount.Set(float64(groupCount))
	metrics.MembershipCount.Set(float64(memberCount))
}

func observeMutation(op string, err error) {
	result := "success"
	if err != nil {
		result = "error"
	}
	metrics.GroupMutations.WithLabelValues(op, result).Inc()
}

// Tree projects the forest for rendering.
func (s *GroupService) Tree(ctx context.Context, expandedIDs []string, mode groups.SortMode) []groups.ProjectedNode {
	return s.engine.Tree(normaliseIDs(expandedIDs), mode)
}

// Get returns one group.
func (s *GroupService) Get(ctx context.Context, id string) (groups.Group, error) {
	return s.engine.Group(id)
}

// Children lists the ordered children of parentID (nil for roots).
func (s *GroupService) Children(ctx context.Context, parentID *string) ([]groups.Group, error) {
	return s.engine.Children(parentID)
}

// Ancestors returns the breadcrumb chain from root to the parent of id.
func (s *GroupService) Ancestors(ctx context.Context, id string) ([]groups.Group, error) {
	return s.engine.Ancestors(id)
}

// Create registers a new group.
func (s *GroupService) Create(ctx context.Context, input CreateGroupInput) (groups.Group, error) {
	ctx = ensureContext(ctx)
	s.mu.Lock()
	defer s.mu.Unlock()

	g, cs, err := s.engine.CreateGroup(groups.CreateGroupInput{
		Name:        input.Name,
		Description: input.Description,
		Color:       input.Color,
		Icon:        input.Icon,
		ParentID:    input.ParentID,
	})
	observeMutation("create", err)
	if err != nil {
		return groups.Group{}, err
	}
	if err := s.persist(ctx, cs); err != nil {
		return groups.Group{}, err
	}

	recordAudit(s.audit, ctx, AuditEntry{
		Action:   "group.create",
		Resource: g.ID,
		Result:   "success",
		Metadata: map[string]any{"name": g.Name, "parent_id": input.ParentID},
	})
	return g, nil
}

// Update renames a group and/or edits its display metadata.
func (s *GroupService) Update(ctx context.Context, id string, input UpdateGroupInput) (groups.Group, error) {
	ctx = ensureContext(ctx)
	s.mu.Lock()
	defer s.mu.Unlock()

	var combined groups.ChangeSet
	if input.Name != nil {
		_, cs, err := s.engine.RenameGroup(id, *input.Name)
		observeMutation("rename", err)
		if err != nil {
			return groups.Group{}, err
		}
		combined.Updated = append(combined.Updated, cs.Updated...)
	}

	g, cs, err := s.engine.UpdateGroup(id, groups.UpdateGroupInput{
		Description: input.Description,
		Color:       input.Color,
		Icon:        input.Icon,
	})
	observeMutation("update", err)
	if err != nil {
		return groups.Group{}, err
	}
	if len(cs.Updated) > 0 {
		// The metadata update supersedes the rename snapshot.
		combined.Updated = cs.Updated
	}

	if err := s.persist(ctx, combined); err != nil {
		return groups.Group{}, err
	}

	recordAudit(s.audit, ctx, AuditEntry{
		Action:   "group.update",
		Resource: g.ID,
		Result:   "success",
		Metadata: map[string]any{"name": g.Name},
	})
	return g, nil
}

// Move reparents a group (nil for a new root), carrying its whole subtree.
func (s *GroupService) Move(ctx context.Context, id string, newParentID *string) (groups.Group, error) {
	ctx = ensureContext(ctx)
	s.mu.Lock()
	defer s.mu.Unlock()

	g, cs, err := s.engine.ReparentGroup(id, newParentID)
	observeMutation("reparent", err)
	if err != nil {
		return groups.Group{}, err
	}
	if err := s.persist(ctx, cs); err != nil {
		return groups.Group{}, err
	}

	recordAudit(s.audit, ctx, AuditEntry{
		Action:   "group.move",
		Resource: g.ID,
		Result:   "success",
		Metadata: map[string]any{"parent_id": newParentID, "subtree": len(cs.Updated)},
	})
	return g, nil
}

// Delete removes a group; with cascade the whole subtree and its memberships
// go in one committed step.
func (s *GroupService) Delete(ctx context.Context, id string, cascade bool) error {
	ctx = ensureContext(ctx)
	s.mu.Lock()
	defer s.mu.Unlock()

	cs, err := s.engine.DeleteGroup(id, cascade)
	observeMutation("delete", err)
	if err != nil {
		return err
	}
	if err := s.persist(ctx, cs); err != nil {
		return err
	}

	recordAudit(s.audit, ctx, AuditEntry{
		Action:   "group.delete",
		Resource: id,
		Result:   "success",
		Metadata: map[string]any{"cascade": cascade, "removed_groups": len(cs.DeletedGroupIDs)},
	})
	return nil
}

// AddMembers associates targets with a group and returns the ids that were
// actually new. Target ids are opaque to the engine; callers own referential
// integrity with the catalog.
func (s *GroupService) AddMembers(ctx context.Context, groupID string, targetIDs []string) ([]string, error) {
	ctx = ensureContext(ctx)
	s.mu.Lock()
	defer s.mu.Unlock()

	cs, err := s.engine.AddMembers(groupID, normaliseIDs(targetIDs))
	observeMutation("add_members", err)
	if err != nil {
		return nil, err
	}
	if err := s.persist(ctx, cs); err != nil {
		return nil, err
	}

	added := make([]string, 0, len(cs.AddedMembers))
	for _, m := range cs.AddedMembers {
		added = append(added, m.TargetID)
	}

	recordAudit(s.audit, ctx, AuditEntry{
		Action:   "group.members.add",
		Resource: groupID,
		Result:   "success",
		Metadata: map[string]any{"added": len(added)},
	})
	return added, nil
}

// RemoveMember drops one membership pair; removing an absent pair is a no-op.
func (s *GroupService) RemoveMember(ctx context.Context, groupID, targetID string) error {
	ctx = ensureContext(ctx)
	s.mu.Lock()
	defer s.mu.Unlock()

	cs, err := s.engine.RemoveMember(groupID, targetID)
	observeMutation("remove_member", err)
	if err != nil {
		return err
	}
	if err := s.persist(ctx, cs); err != nil {
		return err
	}

	if len(cs.RemovedMembers) > 0 {
		recordAudit(s.audit, ctx, AuditEntry{
			Action:   "group.members.remove",
			Resource: groupID,
			Result:   "success",
			Metadata: map[string]any{"target_id": targetID},
		})
	}
	return nil
}

// MoveMember reassigns one target between groups atomically; an unknown
// destination fails before the source membership is touched.
func (s *GroupService) MoveMember(ctx context.Context, targetID, fromGroupID, toGroupID string) error {
	ctx = ensureContext(ctx)
	s.mu.Lock()
	defer s.mu.Unlock()

	cs, err := s.engine.MoveTarget(targetID, fromGroupID, toGroupID)
	observeMutation("move_member", err)
	if err != nil {
		return err
	}
	if err := s.persist(ctx, cs); err != nil {
		return err
	}

	recordAudit(s.audit, ctx, AuditEntry{
		Action:   "group.members.move",
		Resource: toGroupID,
		Result:   "success",
		Metadata: map[string]any{"target_id": targetID, "from": fromGroupID},
	})
	return nil
}

// Members lists a group's direct members resolved against the target catalog.
func (s *GroupService) Members(ctx context.Context, groupID string) ([]MemberTarget, error) {
	ctx = ensureContext(ctx)

	ids, err := s.engine.DirectMembers(groupID)
	if err != nil {
		return nil, err
	}
	if len(ids) == 0 {
		return []MemberTarget{}, nil
	}

	var rows []models.Target
	if err := s.db.WithContext(ctx).Where("id IN ?", ids).Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("group service: resolve members: %w", err)
	}

	byID := make(map[string]models.Target, len(rows))
	for _, row := range rows {
		byID[row.ID] = row
	}

	out := make([]MemberTarget, 0, len(ids))
	for _, id := range ids {
		if row, ok := byID[id]; ok {
			out = append(out, MemberTarget{
				TargetID:  id,
				Name:      row.Name,
				Hostname:  row.Hostname,
				IPAddress: row.IPAddress,
				Status:    row.Status,
				Known:     true,
			})
			continue
		}
		out = append(out, MemberTarget{TargetID: id})
	}
	return out, nil
}

// AggregateCount returns the subtree-inclusive membership total for a group.
func (s *GroupService) AggregateCount(ctx context.Context, groupID string) (int, error) {
	return s.engine.AggregateCount(groupID)
}

// DirectMembers returns the raw member ids of one group.
func (s *GroupService) DirectMembers(ctx context.Context, groupID string) ([]string, error) {
	return s.engine.DirectMembers(groupID)
}

// AvailableTargets computes the catalog entries that can still be added to a
// group: everything in the catalog minus the group's direct members.
func (s *GroupService) AvailableTargets(ctx context.Context, groupID string) ([]models.Target, error) {
	ctx = ensureContext(ctx)

	var rows []models.Target
	if err := s.db.WithContext(ctx).Order("name ASC").Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("group service: load catalog: %w", err)
	}

	ids := make([]string, 0, len(rows))
	byID := make(map[string]models.Target, len(rows))
	for _, row := range rows {
		ids = append(ids, row.ID)
		byID[row.ID] = row
	}

	available, err := s.engine.AvailableTargets(ids, groupID)
	if err != nil {
		return nil, err
	}

	out := make([]models.Target, 0, len(available))
	for _, id := range available {
		out = append(out, byID[id])
	}
	return out, nil
}

// AvailableParents lists the groups a given group may be reparented under
// without creating a cycle, for UI-level filtering before the move.
func (s *GroupService) AvailableParents(ctx context.Context, groupID string) ([]groups.Group, error) {
	return s.engine.AvailableParents(groupID)
}

// AllMembers returns every membership pair currently held by the engine.
func (s *GroupService) AllMembers(ctx context.Context) []groups.Member {
	return s.engine.Members()
}

// Counts reports forest and membership sizes.
func (s *GroupService) Counts() (groupCount, membershipCount int) {
	return s.engine.Counts()
}
