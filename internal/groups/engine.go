package groups

import (
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/google/uuid"
)

// Engine is the in-memory authority for the target-group forest and its
// membership index. Structural mutations are serialised behind one exclusive
// lock covering the whole forest: reparent rewrites ancestry for an entire
// subtree and cascading deletes remove variable-size sets, so per-subtree
// locking would miss cross-subtree cycle checks. Readers share the lock and
// always observe the state left by the last completed mutation.
//
// The engine never performs I/O. Each mutation returns a ChangeSet that a
// collaborator store can apply transactionally; Load rebuilds the engine from
// such a store.
type Engine struct {
	mu    sync.RWMutex
	store *store
	index *index
}

// NewEngine returns an empty engine.
func NewEngine() *Engine {
	return &Engine{
		store: newStore(),
		index: newIndex(),
	}
}

// CreateGroupInput carries the fields accepted when creating a group.
type CreateGroupInput struct {
	Name        string
	Description string
	Color       string
	Icon        string
	ParentID    *string
}

// UpdateGroupInput updates display metadata; nil fields are left untouched.
type UpdateGroupInput struct {
	Description *string
	Color       *string
	Icon        *string
}

// CreateGroup adds a new group under the given parent (nil for a root).
func (e *Engine) CreateGroup(in CreateGroupInput) (Group, ChangeSet, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	g, err := e.store.create(uuid.NewString(), in.Name, cloneID(in.ParentID))
	if err != nil {
		return Group{}, ChangeSet{}, err
	}
	g.Description = strings.TrimSpace(in.Description)
	g.Color = strings.TrimSpace(in.Color)
	g.Icon = strings.TrimSpace(in.Icon)

	snap := g.snapshot()
	return snap, ChangeSet{Created: []Group{snap}}, nil
}

// RenameGroup changes a group's display name, keeping sibling names unique.
func (e *Engine) RenameGroup(id, name string) (Group, ChangeSet, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	g, err := e.store.rename(id, name)
	if err != nil {
		return Group{}, ChangeSet{}, err
	}

	snap := g.snapshot()
	return snap, ChangeSet{Updated: []Group{snap}}, nil
}

// UpdateGroup edits optional display metadata.
func (e *Engine) UpdateGroup(id string, in UpdateGroupInput) (Group, ChangeSet, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	g, err := e.store.get(id)
	if err != nil {
		return Group{}, ChangeSet{}, err
	}

	changed := false
	if in.Description != nil {
		g.Description = strings.TrimSpace(*in.Description)
		changed = true
	}
	if in.Color != nil {
		g.Color = strings.TrimSpace(*in.Color)
		changed = true
	}
	if in.Icon != nil {
		g.Icon = strings.TrimSpace(*in.Icon)
		changed = true
	}

	snap := g.snapshot()
	if !changed {
		return snap, ChangeSet{}, nil
	}
	return snap, ChangeSet{Updated: []Group{snap}}, nil
}

// ReparentGroup moves a group (with its whole subtree) under a new parent,
// nil meaning the forest root. Moving a group into its own subtree fails with
// ErrCycle and leaves the forest untouched.
func (e *Engine) ReparentGroup(id string, newParentID *string) (Group, ChangeSet, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	touched, err := e.store.reparent(id, newParentID)
	if err != nil {
		return Group{}, ChangeSet{}, err
	}

	g := e.store.groups[id]
	if len(touched) == 0 { // parent unchanged
		return g.snapshot(), ChangeSet{}, nil
	}

	updated := make([]Group, 0, len(touched))
	for _, touchedID := range touched {
		updated = append(updated, e.store.groups[touchedID].snapshot())
	}
	return g.snapshot(), ChangeSet{Updated: updated}, nil
}

// DeleteGroup removes a group. Without cascade it must have no children; with
// cascade the subtree and every membership rooted in it are removed as a
// unit.
func (e *Engine) DeleteGroup(id string, cascade bool) (ChangeSet, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	removed, err := e.store.delete(id, cascade)
	if err != nil {
		return ChangeSet{}, err
	}

	return ChangeSet{
		DeletedGroupIDs: removed,
		RemovedMembers:  e.index.cascadeDelete(removed),
	}, nil
}

// DeleteGroupWithMembers cascades the delete of a group, its descendants and
// all their memberships in one committed step.
func (e *Engine) DeleteGroupWithMembers(id string) (ChangeSet, error) {
	return e.DeleteGroup(id, true)
}

// AddMembers associates targets with a group. Target ids are opaque and not
// checked against the external catalog; ids already present are silently
// skipped so the operation is idempotent.
func (e *Engine) AddMembers(groupID string, targetIDs []string) (ChangeSet, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if _, err := e.store.get(groupID); err != nil {
		return ChangeSet{}, err
	}

	cleaned := make([]string, 0, len(targetIDs))
	for _, targetID := range targetIDs {
		if trimmed := strings.TrimSpace(targetID); trimmed != "" {
			cleaned = append(cleaned, trimmed)
		}
	}

	var cs ChangeSet
	for _, targetID := range e.index.add(groupID, cleaned) {
		cs.AddedMembers = append(cs.AddedMembers, Member{GroupID: groupID, TargetID: targetID})
	}
	return cs, nil
}

// RemoveMember drops one membership pair. Removing a pair that does not exist
// is a no-op, not an error.
func (e *Engine) RemoveMember(groupID, targetID string) (ChangeSet, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if _, err := e.store.get(groupID); err != nil {
		return ChangeSet{}, err
	}

	if !e.index.remove(groupID, targetID) {
		return ChangeSet{}, nil
	}
	return ChangeSet{RemovedMembers: []Member{{GroupID: groupID, TargetID: targetID}}}, nil
}

// MoveTarget reassigns one target from one group to another atomically: both
// groups are validated before any membership changes, so an unknown
// destination leaves the source membership intact.
func (e *Engine) MoveTarget(targetID, fromGroupID, toGroupID string) (ChangeSet, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if _, err := e.store.get(fromGroupID); err != nil {
		return ChangeSet{}, fmt.Errorf("source: %w", err)
	}
	if _, err := e.store.get(toGroupID); err != nil {
		return ChangeSet{}, fmt.Errorf("destination: %w", err)
	}

	targetID = strings.TrimSpace(targetID)
	if targetID == "" || fromGroupID == toGroupID {
		return ChangeSet{}, nil
	}

	var cs ChangeSet
	if e.index.remove(fromGroupID, targetID) {
		cs.RemovedMembers = []Member{{GroupID: fromGroupID, TargetID: targetID}}
	}
	for _, added := range e.index.add(toGroupID, []string{targetID}) {
		cs.AddedMembers = append(cs.AddedMembers, Member{GroupID: toGroupID, TargetID: added})
	}
	return cs, nil
}

// Group returns a snapshot of one group.
func (e *Engine) Group(id string) (Group, error) {
	e.mu.RLock()
	defer e.mu.RUnlock()

	g, err := e.store.get(id)
	if err != nil {
		return Group{}, err
	}
	return g.snapshot(), nil
}

// Groups returns the whole forest depth-first in sibling creation order.
func (e *Engine) Groups() []Group {
	e.mu.RLock()
	defer e.mu.RUnlock()

	var out []Group
	e.store.walk(func(g *Group) {
		out = append(out, g.snapshot())
	})
	return out
}

// Children lists the ordered children of parentID, or the roots when
// parentID is nil.
func (e *Engine) Children(parentID *string) ([]Group, error) {
	e.mu.RLock()
	defer e.mu.RUnlock()

	if parentID != nil {
		if _, err := e.store.get(*parentID); err != nil {
			return nil, err
		}
	}

	ids := e.store.childIDs(parentID)
	out := make([]Group, 0, len(ids))
	for _, id := range ids {
		out = append(out, e.store.groups[id].snapshot())
	}
	return out, nil
}

// Ancestors lists the chain from root down to the direct parent of id.
func (e *Engine) Ancestors(id string) ([]Group, error) {
	e.mu.RLock()
	defer e.mu.RUnlock()

	chain, err := e.store.ancestors(id)
	if err != nil {
		return nil, err
	}

	out := make([]Group, 0, len(chain))
	for _, g := range chain {
		out = append(out, g.snapshot())
	}
	return out, nil
}

// Descendants lists every group below id depth-first.
func (e *Engine) Descendants(id string) ([]Group, error) {
	e.mu.RLock()
	defer e.mu.RUnlock()

	if _, err := e.store.get(id); err != nil {
		return nil, err
	}

	ids := e.store.descendants(id)
	out := make([]Group, 0, len(ids))
	for _, descendantID := range ids {
		out = append(out, e.store.groups[descendantID].snapshot())
	}
	return out, nil
}

// DirectMembers returns the sorted target ids directly associated with id.
func (e *Engine) DirectMembers(id string) ([]string, error) {
	e.mu.RLock()
	defer e.mu.RUnlock()

	if _, err := e.store.get(id); err != nil {
		return nil, err
	}
	return e.index.direct(id), nil
}

// AggregateCount returns the subtree-inclusive membership total for id.
func (e *Engine) AggregateCount(id string) (int, error) {
	e.mu.RLock()
	defer e.mu.RUnlock()

	if _, err := e.store.get(id); err != nil {
		return 0, err
	}
	return aggregateCount(e.store, e.index, id), nil
}

// Tree projects the forest for rendering. expandedIDs selects which nodes
// include their children; presentation state stays with the caller.
func (e *Engine) Tree(expandedIDs []string, mode SortMode) []ProjectedNode {
	e.mu.RLock()
	defer e.mu.RUnlock()

	expanded := make(map[string]struct{}, len(expandedIDs))
	for _, id := range expandedIDs {
		expanded[id] = struct{}{}
	}
	return buildTree(e.store, e.index, expanded, mode)
}

// AvailableTargets filters the supplied catalog ids down to those not yet
// direct members of groupID.
func (e *Engine) AvailableTargets(all []string, groupID string) ([]string, error) {
	e.mu.RLock()
	defer e.mu.RUnlock()

	if _, err := e.store.get(groupID); err != nil {
		return nil, err
	}
	return availableTargets(e.index, all, groupID), nil
}

// AvailableParents lists the groups that may become groupID's parent without
// introducing a cycle.
func (e *Engine) AvailableParents(groupID string) ([]Group, error) {
	e.mu.RLock()
	defer e.mu.RUnlock()

	if _, err := e.store.get(groupID); err != nil {
		return nil, err
	}

	candidates := availableParents(e.store, groupID)
	out := make([]Group, 0, len(candidates))
	for _, g := range candidates {
		out = append(out, g.snapshot())
	}
	return out, nil
}

// Members returns every membership pair, grouped by forest order.
func (e *Engine) Members() []Member {
	e.mu.RLock()
	defer e.mu.RUnlock()

	var out []Member
	e.store.walk(func(g *Group) {
		for _, targetID := range e.index.direct(g.ID) {
			out = append(out, Member{GroupID: g.ID, TargetID: targetID})
		}
	})
	return out
}

// Counts reports forest and membership sizes, for metrics gauges.
func (e *Engine) Counts() (groupCount, membershipCount int) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return len(e.store.groups), e.index.size()
}

// Load replaces the engine state from a collaborator store. Siblings are
// ordered by their Seq values (ties break on input order); paths and levels
// are recomputed rather than trusted. The previous state is kept when the
// input is inconsistent.
func (e *Engine) Load(groupsIn []Group, members []Member) error {
	st := newStore()

	byID := make(map[string]Group, len(groupsIn))
	for _, g := range groupsIn {
		if g.ID == "" {
			return fmt.Errorf("load: group with empty id")
		}
		if _, dup := byID[g.ID]; dup {
			return fmt.Errorf("load: duplicate group id %q", g.ID)
		}
		byID[g.ID] = g
	}

	childOrder := make(map[string][]string, len(groupsIn))
	for _, g := range groupsIn {
		if g.ParentID != nil {
			if _, ok := byID[*g.ParentID]; !ok {
				return fmt.Errorf("load: group %q references missing parent %q", g.ID, *g.ParentID)
			}
		}
		childOrder[bucketKey(g.ParentID)] = append(childOrder[bucketKey(g.ParentID)], g.ID)
	}
	for _, ids := range childOrder {
		sort.SliceStable(ids, func(i, j int) bool {
			return byID[ids[i]].Seq < byID[ids[j]].Seq
		})
	}

	// Insert depth-first from the roots; anything left unvisited sits on a
	// parent cycle and cannot be reattached.
	var maxSeq uint64
	var insert func(parentID *string, ids []string) error
	insert = func(parentID *string, ids []string) error {
		for _, id := range ids {
			src := byID[id]
			g, err := st.create(id, src.Name, cloneID(parentID))
			if err != nil {
				return fmt.Errorf("load: group %q: %w", id, err)
			}
			g.Description = src.Description
			g.Color = src.Color
			g.Icon = src.Icon
			g.Seq = src.Seq
			if src.Seq > maxSeq {
				maxSeq = src.Seq
			}
			if err := insert(&id, childOrder[id]); err != nil {
				return err
			}
		}
		return nil
	}
	if err := insert(nil, childOrder[rootBucket]); err != nil {
		return err
	}
	st.nextSeq = maxSeq + 1
	if len(st.groups) != len(byID) {
		return fmt.Errorf("load: %d groups unreachable from any root (parent cycle)", len(byID)-len(st.groups))
	}

	ix := newIndex()
	for _, m := range members {
		if _, ok := st.groups[m.GroupID]; !ok {
			return fmt.Errorf("load: membership references missing group %q", m.GroupID)
		}
		ix.add(m.GroupID, []string{m.TargetID})
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	e.store = st
	e.index = ix
	return nil
}
