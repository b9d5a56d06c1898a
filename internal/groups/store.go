package groups

import (
	"fmt"
	"strings"
)

// rootBucket keys the child index entry for groups without a parent.
const rootBucket = ""

// store holds the canonical forest: a flat map keyed by id plus an ordered
// child index. Nesting is derived on demand, never stored, which keeps
// reparenting a pointer edit plus an O(subtree) path recompute.
type store struct {
	groups   map[string]*Group
	children map[string][]string
	nextSeq  uint64
}

func newStore() *store {
	return &store{
		groups:   make(map[string]*Group),
		children: make(map[string][]string),
	}
}

func bucketKey(parentID *string) string {
	if parentID == nil {
		return rootBucket
	}
	return *parentID
}

func (s *store) get(id string) (*Group, error) {
	g, ok := s.groups[id]
	if !ok {
		return nil, fmt.Errorf("group %q: %w", id, ErrGroupNotFound)
	}
	return g, nil
}

// siblingNameTaken reports whether name is already used under parentID,
// ignoring excludeID (empty for create).
func (s *store) siblingNameTaken(parentID *string, name, excludeID string) bool {
	for _, siblingID := range s.children[bucketKey(parentID)] {
		if siblingID == excludeID {
			continue
		}
		if strings.EqualFold(s.groups[siblingID].Name, name) {
			return true
		}
	}
	return false
}

func (s *store) create(id, name string, parentID *string) (*Group, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, ErrNameRequired
	}

	var parent *Group
	if parentID != nil {
		var err error
		if parent, err = s.get(*parentID); err != nil {
			return nil, fmt.Errorf("parent: %w", err)
		}
	}
	if s.siblingNameTaken(parentID, name, "") {
		return nil, fmt.Errorf("name %q: %w", name, ErrDuplicateName)
	}

	g := &Group{
		ID:       id,
		Name:     name,
		ParentID: parentID,
		Seq:      s.nextSeq,
	}
	s.nextSeq++

	if parent != nil {
		g.Path = append(append([]string(nil), parent.Path...), id)
		g.Level = parent.Level + 1
	} else {
		g.Path = []string{id}
	}

	s.groups[id] = g
	key := bucketKey(parentID)
	s.children[key] = append(s.children[key], id)
	return g, nil
}

func (s *store) rename(id, name string) (*Group, error) {
	g, err := s.get(id)
	if err != nil {
		return nil, err
	}

	name = strings.TrimSpace(name)
	if name == "" {
		return nil, ErrNameRequired
	}
	if s.siblingNameTaken(g.ParentID, name, id) {
		return nil, fmt.Errorf("name %q: %w", name, ErrDuplicateName)
	}

	g.Name = name
	return g, nil
}

// reparent moves id (and its whole subtree) under newParentID, returning the
// ids whose path or level changed, in depth-first order starting with the
// moved group itself.
func (s *store) reparent(id string, newParentID *string) ([]string, error) {
	g, err := s.get(id)
	if err != nil {
		return nil, err
	}

	var newParent *Group
	if newParentID != nil {
		if *newParentID == id {
			return nil, fmt.Errorf("group %q: %w", id, ErrCycle)
		}
		if newParent, err = s.get(*newParentID); err != nil {
			return nil, fmt.Errorf("parent: %w", err)
		}
		for _, ancestorID := range newParent.Path {
			if ancestorID == id {
				return nil, fmt.Errorf("group %q: %w", id, ErrCycle)
			}
		}
	}

	if sameParent(g.ParentID, newParentID) {
		return nil, nil
	}
	if s.siblingNameTaken(newParentID, g.Name, id) {
		return nil, fmt.Errorf("name %q: %w", g.Name, ErrDuplicateName)
	}

	s.removeFromBucket(g)
	g.ParentID = cloneID(newParentID)
	key := bucketKey(newParentID)
	s.children[key] = append(s.children[key], id)

	// The moved group joins the end of its new sibling list.
	g.Seq = s.nextSeq
	s.nextSeq++

	if newParent != nil {
		g.Path = append(append([]string(nil), newParent.Path...), id)
		g.Level = newParent.Level + 1
	} else {
		g.Path = []string{id}
		g.Level = 0
	}

	touched := []string{id}
	touched = append(touched, s.recomputeSubtreePaths(g)...)
	return touched, nil
}

// recomputeSubtreePaths refreshes path/level for every descendant of g and
// returns their ids in depth-first order.
func (s *store) recomputeSubtreePaths(g *Group) []string {
	var touched []string
	for _, childID := range s.children[g.ID] {
		child := s.groups[childID]
		child.Path = append(append([]string(nil), g.Path...), childID)
		child.Level = g.Level + 1
		touched = append(touched, childID)
		touched = append(touched, s.recomputeSubtreePaths(child)...)
	}
	return touched
}

// delete removes a group. Without cascade the group must be a leaf; with
// cascade the full subtree goes in one step. Returns the removed ids in
// depth-first order (the group first).
func (s *store) delete(id string, cascade bool) ([]string, error) {
	g, err := s.get(id)
	if err != nil {
		return nil, err
	}

	if !cascade && len(s.children[id]) > 0 {
		return nil, fmt.Errorf("group %q: %w", id, ErrGroupNotEmpty)
	}

	removed := append([]string{id}, s.descendants(id)...)
	s.removeFromBucket(g)
	for _, removedID := range removed {
		delete(s.groups, removedID)
		delete(s.children, removedID)
	}
	return removed, nil
}

func (s *store) removeFromBucket(g *Group) {
	key := bucketKey(g.ParentID)
	siblings := s.children[key]
	for i, siblingID := range siblings {
		if siblingID == g.ID {
			s.children[key] = append(siblings[:i], siblings[i+1:]...)
			return
		}
	}
}

// childIDs returns the ordered children of parentID (nil for roots).
func (s *store) childIDs(parentID *string) []string {
	return s.children[bucketKey(parentID)]
}

// ancestors lists the groups from root down to the direct parent of id.
func (s *store) ancestors(id string) ([]*Group, error) {
	g, err := s.get(id)
	if err != nil {
		return nil, err
	}

	out := make([]*Group, 0, len(g.Path)-1)
	for _, ancestorID := range g.Path[:len(g.Path)-1] {
		out = append(out, s.groups[ancestorID])
	}
	return out, nil
}

// descendants lists every group below id in depth-first order.
func (s *store) descendants(id string) []string {
	var out []string
	for _, childID := range s.children[id] {
		out = append(out, childID)
		out = append(out, s.descendants(childID)...)
	}
	return out
}

// walk visits the whole forest depth-first in sibling creation order.
func (s *store) walk(visit func(*Group)) {
	var dfs func(ids []string)
	dfs = func(ids []string) {
		for _, id := range ids {
			visit(s.groups[id])
			dfs(s.children[id])
		}
	}
	dfs(s.children[rootBucket])
}

func sameParent(a, b *string) bool {
	switch {
	case a == nil && b == nil:
		return true
	case a == nil || b == nil:
		return false
	default:
		return *a == *b
	}
}

func cloneID(id *string) *string {
	if id == nil {
		return nil
	}
	cp := *id
	return &cp
}
