package groups

// Group is a node in the target-group forest. Path and Level are derived from
// the parent chain and recomputed on every structural change, so readers never
// observe stale ancestry.
type Group struct {
	ID          string   `json:"id"`
	Name        string   `json:"name"`
	Description string   `json:"description,omitempty"`
	Color       string   `json:"color,omitempty"`
	Icon        string   `json:"icon,omitempty"`
	ParentID    *string  `json:"parent_id,omitempty"`
	Path        []string `json:"path"`
	Level       int      `json:"level"`

	// Seq preserves sibling ordering across load/flush cycles: siblings are
	// listed by ascending Seq, and a reparented group receives a fresh Seq so
	// it joins the end of its new sibling list.
	Seq uint64 `json:"-"`
}

// Member is one group/target association fact.
type Member struct {
	GroupID  string `json:"group_id"`
	TargetID string `json:"target_id"`
}

// snapshot returns a defensive copy safe to hand out after the engine lock is
// released.
func (g *Group) snapshot() Group {
	cp := *g
	cp.Path = append([]string(nil), g.Path...)
	if g.ParentID != nil {
		parent := *g.ParentID
		cp.ParentID = &parent
	}
	return cp
}

// ChangeSet describes the effect of one committed mutation so a collaborator
// store can mirror it transactionally.
type ChangeSet struct {
	Created         []Group
	Updated         []Group
	DeletedGroupIDs []string
	AddedMembers    []Member
	RemovedMembers  []Member
}

// Empty reports whether the mutation changed nothing.
func (c ChangeSet) Empty() bool {
	return len(c.Created) == 0 &&
		len(c.Updated) == 0 &&
		len(c.DeletedGroupIDs) == 0 &&
		len(c.AddedMembers) == 0 &&
		len(c.RemovedMembers) == 0
}
