package groups

import "sort"

// index owns the many-to-many association between groups and targets. Target
// ids are opaque: referential integrity with the external catalog is the
// caller's obligation.
type index struct {
	members map[string]map[string]struct{}
}

func newIndex() *index {
	return &index{members: make(map[string]map[string]struct{})}
}

// add inserts the given target ids into groupID's member set and returns the
// ids that were actually new. Existing members are silently skipped.
func (ix *index) add(groupID string, targetIDs []string) []string {
	set := ix.members[groupID]
	if set == nil {
		set = make(map[string]struct{}, len(targetIDs))
		ix.members[groupID] = set
	}

	var added []string
	for _, targetID := range targetIDs {
		if targetID == "" {
			continue
		}
		if _, exists := set[targetID]; exists {
			continue
		}
		set[targetID] = struct{}{}
		added = append(added, targetID)
	}
	return added
}

// remove deletes one membership pair, reporting whether it existed.
func (ix *index) remove(groupID, targetID string) bool {
	set, ok := ix.members[groupID]
	if !ok {
		return false
	}
	if _, exists := set[targetID]; !exists {
		return false
	}
	delete(set, targetID)
	if len(set) == 0 {
		delete(ix.members, groupID)
	}
	return true
}

func (ix *index) has(groupID, targetID string) bool {
	_, ok := ix.members[groupID][targetID]
	return ok
}

// direct returns the member target ids of one group, sorted for determinism.
func (ix *index) direct(groupID string) []string {
	set := ix.members[groupID]
	out := make([]string, 0, len(set))
	for targetID := range set {
		out = append(out, targetID)
	}
	sort.Strings(out)
	return out
}

func (ix *index) directCount(groupID string) int {
	return len(ix.members[groupID])
}

// cascadeDelete removes every membership owned by the given groups and
// returns the removed pairs.
func (ix *index) cascadeDelete(groupIDs []string) []Member {
	var removed []Member
	for _, groupID := range groupIDs {
		for _, targetID := range ix.direct(groupID) {
			removed = append(removed, Member{GroupID: groupID, TargetID: targetID})
		}
		delete(ix.members, groupID)
	}
	return removed
}

func (ix *index) size() int {
	total := 0
	for _, set := range ix.members {
		total += len(set)
	}
	return total
}

// aggregateCount computes the subtree-inclusive membership total for id:
// direct members plus the aggregate of every child. Counts are recomputed
// from the live child index on each call; caching them across structural
// mutations would serve stale subtrees.
func aggregateCount(s *store, ix *index, id string) int {
	total := ix.directCount(id)
	for _, childID := range s.children[id] {
		total += aggregateCount(s, ix, childID)
	}
	return total
}
