package groups

// availableTargets computes the pool a caller may still add to groupID: the
// supplied catalog minus the group's direct members. Input order is
// preserved; duplicate catalog ids collapse to one entry.
func availableTargets(ix *index, all []string, groupID string) []string {
	seen := make(map[string]struct{}, len(all))
	out := make([]string, 0, len(all))
	for _, targetID := range all {
		if targetID == "" {
			continue
		}
		if _, dup := seen[targetID]; dup {
			continue
		}
		seen[targetID] = struct{}{}
		if ix.has(groupID, targetID) {
			continue
		}
		out = append(out, targetID)
	}
	return out
}

// availableParents lists every group that may legally become groupID's new
// parent: the whole forest minus the group itself and its descendants. This
// mirrors the engine's cycle check so callers can filter choices before a
// reparent is even attempted.
func availableParents(s *store, groupID string) []*Group {
	excluded := map[string]struct{}{groupID: {}}
	for _, descendantID := range s.descendants(groupID) {
		excluded[descendantID] = struct{}{}
	}

	var out []*Group
	s.walk(func(g *Group) {
		if _, skip := excluded[g.ID]; skip {
			return
		}
		out = append(out, g)
	})
	return out
}
