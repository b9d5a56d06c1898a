package groups

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestMoveTargetBetweenGroups(t *testing.T) {
	e := NewEngine()
	from := mustCreate(t, e, "DB", nil)
	to := mustCreate(t, e, "Web", nil)

	_, err := e.AddMembers(from.ID, []string{"t-100"})
	require.NoError(t, err)

	cs, err := e.MoveTarget("t-100", from.ID, to.ID)
	require.NoError(t, err)
	require.Len(t, cs.RemovedMembers, 1)
	require.Len(t, cs.AddedMembers, 1)

	fromMembers, err := e.DirectMembers(from.ID)
	require.NoError(t, err)
	require.Empty(t, fromMembers)

	toMembers, err := e.DirectMembers(to.ID)
	require.NoError(t, err)
	require.Equal(t, []string{"t-100"}, toMembers)
}

func TestMoveTargetUnknownDestinationLeavesSourceIntact(t *testing.T) {
	e := NewEngine()
	from := mustCreate(t, e, "DB", nil)

	_, err := e.AddMembers(from.ID, []string{"t-100"})
	require.NoError(t, err)

	_, err = e.MoveTarget("t-100", from.ID, "g-99")
	require.ErrorIs(t, err, ErrGroupNotFound)

	// The drop was rejected before any membership changed.
	members, err := e.DirectMembers(from.ID)
	require.NoError(t, err)
	require.Equal(t, []string{"t-100"}, members)
}

func TestMoveTargetToSameGroupIsNoOp(t *testing.T) {
	e := NewEngine()
	g := mustCreate(t, e, "DB", nil)

	_, err := e.AddMembers(g.ID, []string{"t-1"})
	require.NoError(t, err)

	cs, err := e.MoveTarget("t-1", g.ID, g.ID)
	require.NoError(t, err)
	require.True(t, cs.Empty())
}

func TestDeleteGroupWithMembers(t *testing.T) {
	e := NewEngine()
	root := mustCreate(t, e, "Infra", nil)
	db := mustCreate(t, e, "DB", &root.ID)
	replicas := mustCreate(t, e, "Replicas", &db.ID)

	_, err := e.AddMembers(replicas.ID, []string{"t-1", "t-2"})
	require.NoError(t, err)

	cs, err := e.DeleteGroupWithMembers(db.ID)
	require.NoError(t, err)
	require.ElementsMatch(t, []string{db.ID, replicas.ID}, cs.DeletedGroupIDs)
	require.Len(t, cs.RemovedMembers, 2)

	children, err := e.Children(&root.ID)
	require.NoError(t, err)
	require.Empty(t, children)

	_, err = e.DirectMembers(replicas.ID)
	require.ErrorIs(t, err, ErrGroupNotFound)
}

func TestLoadRoundTrip(t *testing.T) {
	e := NewEngine()
	root := mustCreate(t, e, "Infra", nil)
	db := mustCreate(t, e, "DB", &root.ID)
	mustCreate(t, e, "Web", &root.ID)

	_, err := e.AddMembers(db.ID, []string{"t-1", "t-2"})
	require.NoError(t, err)

	restored := NewEngine()
	require.NoError(t, restored.Load(e.Groups(), e.Members()))

	require.Equal(t, e.Groups(), restored.Groups())
	require.Equal(t, e.Members(), restored.Members())

	count, err := restored.AggregateCount(root.ID)
	require.NoError(t, err)
	require.Equal(t, 2, count)
}

func TestLoadRecomputesStalePaths(t *testing.T) {
	parent := "g-parent"
	input := []Group{
		{ID: "g-parent", Name: "Infra"},
		// Stored ancestry is stale on purpose; Load must not trust it.
		{ID: "g-child", Name: "DB", ParentID: &parent, Path: []string{"bogus"}, Level: 7},
	}

	e := NewEngine()
	require.NoError(t, e.Load(input, nil))

	g, err := e.Group("g-child")
	require.NoError(t, err)
	require.Equal(t, []string{"g-parent", "g-child"}, g.Path)
	require.Equal(t, 1, g.Level)
}

func TestLoadRejectsInconsistentInput(t *testing.T) {
	missing := "nowhere"
	err := NewEngine().Load([]Group{{ID: "g-1", Name: "A", ParentID: &missing}}, nil)
	require.Error(t, err)

	// Parent cycle: two groups pointing at each other never reach a root.
	a, b := "g-a", "g-b"
	err = NewEngine().Load([]Group{
		{ID: a, Name: "A", ParentID: &b},
		{ID: b, Name: "B", ParentID: &a},
	}, nil)
	require.Error(t, err)

	err = NewEngine().Load([]Group{{ID: "g-1", Name: "A"}}, []Member{{GroupID: "gone", TargetID: "t-1"}})
	require.Error(t, err)

	// A failed load keeps the previous state.
	e := NewEngine()
	g := mustCreate(t, e, "Keep", nil)
	require.Error(t, e.Load([]Group{{ID: "x", Name: ""}}, nil))
	_, err = e.Group(g.ID)
	require.NoError(t, err)
}

func TestConcurrentReadersDuringMutations(t *testing.T) {
	e := NewEngine()
	root := mustCreate(t, e, "Infra", nil)
	for _, name := range []string{"A", "B", "C"} {
		mustCreate(t, e, name, &root.ID)
	}

	var wg sync.WaitGroup
	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				nodes := e.Tree([]string{root.ID}, SortCreation)
				// Readers see a consistent snapshot: depth always
				// matches the node's position under its parent.
				for _, child := range nodes[0].Children {
					if child.Depth != nodes[0].Depth+1 {
						t.Error("inconsistent depth observed")
						return
					}
				}
				if _, err := e.AggregateCount(root.ID); err != nil {
					t.Error(err)
					return
				}
			}
		}()
	}

	wg.Add(1)
	go func() {
		defer wg.Done()
		children, err := e.Children(&root.ID)
		if err != nil {
			t.Error(err)
			return
		}
		for j := 0; j < 50; j++ {
			id := children[j%len(children)].ID
			if _, err := e.AddMembers(id, []string{"t-1"}); err != nil {
				t.Error(err)
				return
			}
			if _, err := e.RemoveMember(id, "t-1"); err != nil {
				t.Error(err)
				return
			}
		}
	}()

	wg.Wait()
}
