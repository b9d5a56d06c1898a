package maintenance

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/fleetgrid/fleetgrid/internal/database/testutil"
	"github.com/fleetgrid/fleetgrid/internal/services"
)

func newTestReconciler(t *testing.T) (*Reconciler, *services.GroupService, *services.TargetService) {
	t.Helper()

	db := testutil.MustOpenTestDB(t, testutil.WithAutoMigrate())

	audit, err := services.NewAuditService(db)
	require.NoError(t, err)
	groupSvc, err := services.NewGroupService(db, audit)
	require.NoError(t, err)
	targetSvc, err := services.NewTargetService(db, audit)
	require.NoError(t, err)

	return NewReconciler(groupSvc, targetSvc, audit), groupSvc, targetSvc
}

func TestPruneStaleMemberships(t *testing.T) {
	rec, groupSvc, targetSvc := newTestReconciler(t)
	ctx := context.Background()

	kept, err := targetSvc.Create(ctx, services.CreateTargetInput{Name: "web-01"})
	require.NoError(t, err)
	doomed, err := targetSvc.Create(ctx, services.CreateTargetInput{Name: "web-02"})
	require.NoError(t, err)

	g, err := groupSvc.Create(ctx, services.CreateGroupInput{Name: "Web"})
	require.NoError(t, err)
	_, err = groupSvc.AddMembers(ctx, g.ID, []string{kept.ID, doomed.ID})
	require.NoError(t, err)

	// Catalog deletion leaves the membership behind until the sweep runs.
	require.NoError(t, targetSvc.Delete(ctx, doomed.ID))
	members, err := groupSvc.DirectMembers(ctx, g.ID)
	require.NoError(t, err)
	require.Len(t, members, 2)

	pruned, err := rec.PruneStaleMemberships(ctx)
	require.NoError(t, err)
	require.Equal(t, 1, pruned)

	members, err = groupSvc.DirectMembers(ctx, g.ID)
	require.NoError(t, err)
	require.Equal(t, []string{kept.ID}, members)
}

func TestPruneStaleMembershipsNoopOnConsistentState(t *testing.T) {
	rec, groupSvc, targetSvc := newTestReconciler(t)
	ctx := context.Background()

	target, err := targetSvc.Create(ctx, services.CreateTargetInput{Name: "db-01"})
	require.NoError(t, err)
	g, err := groupSvc.Create(ctx, services.CreateGroupInput{Name: "Databases"})
	require.NoError(t, err)
	_, err = groupSvc.AddMembers(ctx, g.ID, []string{target.ID})
	require.NoError(t, err)

	pruned, err := rec.PruneStaleMemberships(ctx)
	require.NoError(t, err)
	require.Zero(t, pruned)
}

func TestRunOnceCoversAllJobs(t *testing.T) {
	rec, groupSvc, targetSvc := newTestReconciler(t)
	ctx := context.Background()

	target, err := targetSvc.Create(ctx, services.CreateTargetInput{Name: "app-01"})
	require.NoError(t, err)
	g, err := groupSvc.Create(ctx, services.CreateGroupInput{Name: "Apps"})
	require.NoError(t, err)
	_, err = groupSvc.AddMembers(ctx, g.ID, []string{target.ID})
	require.NoError(t, err)
	require.NoError(t, targetSvc.Delete(ctx, target.ID))

	require.NoError(t, rec.RunOnce(ctx))

	members, err := groupSvc.DirectMembers(ctx, g.ID)
	require.NoError(t, err)
	require.Empty(t, members)
}

func TestStartAndStop(t *testing.T) {
	rec, _, _ := newTestReconciler(t)

	require.NoError(t, rec.Start())
	<-rec.Stop().Done()
}
