package groups

import (
	"sort"
	"strings"
)

// SortMode selects sibling ordering in the tree projection.
type SortMode string

const (
	// SortCreation keeps siblings in creation order (the default; stable
	// across mutations).
	SortCreation SortMode = "created"
	// SortName orders siblings case-insensitively by name.
	SortName SortMode = "name"
)

// ParseSortMode maps a caller-supplied string onto a SortMode, defaulting to
// creation order.
func ParseSortMode(value string) SortMode {
	if SortMode(strings.ToLower(strings.TrimSpace(value))) == SortName {
		return SortName
	}
	return SortCreation
}

// ProjectedNode is one row of the rendered tree. Children are populated only
// for expanded nodes; counts are always present so collapsed subtrees still
// display totals.
type ProjectedNode struct {
	ID             string          `json:"id"`
	Name           string          `json:"name"`
	Description    string          `json:"description,omitempty"`
	Color          string          `json:"color,omitempty"`
	Icon           string          `json:"icon,omitempty"`
	ParentID       *string         `json:"parent_id,omitempty"`
	Depth          int             `json:"depth"`
	DirectCount    int             `json:"direct_count"`
	AggregateCount int             `json:"aggregate_count"`
	HasChildren    bool            `json:"has_children"`
	Expanded       bool            `json:"expanded"`
	Children       []ProjectedNode `json:"children,omitempty"`
}

// buildTree renders the forest as nested nodes. Pure function of the two
// stores plus the expansion set; no state is retained between calls.
func buildTree(s *store, ix *index, expanded map[string]struct{}, mode SortMode) []ProjectedNode {
	var project func(ids []string) []ProjectedNode
	project = func(ids []string) []ProjectedNode {
		ordered := ids
		if mode == SortName {
			ordered = append([]string(nil), ids...)
			sort.SliceStable(ordered, func(i, j int) bool {
				return strings.ToLower(s.groups[ordered[i]].Name) < strings.ToLower(s.groups[ordered[j]].Name)
			})
		}

		nodes := make([]ProjectedNode, 0, len(ordered))
		for _, id := range ordered {
			g := s.groups[id]
			_, isExpanded := expanded[id]
			node := ProjectedNode{
				ID:             g.ID,
				Name:           g.Name,
				Description:    g.Description,
				Color:          g.Color,
				Icon:           g.Icon,
				ParentID:       cloneID(g.ParentID),
				Depth:          g.Level,
				DirectCount:    ix.directCount(id),
				AggregateCount: aggregateCount(s, ix, id),
				HasChildren:    len(s.children[id]) > 0,
				Expanded:       isExpanded,
			}
			if isExpanded {
				node.Children = project(s.children[id])
			}
			nodes = append(nodes, node)
		}
		return nodes
	}

	return project(s.children[rootBucket])
}
