package services

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/fleetgrid/fleetgrid/internal/database/testutil"
	apperrors "github.com/fleetgrid/fleetgrid/pkg/errors"
)

func newTestTargetService(t *testing.T) *TargetService {
	t.Helper()

	db := testutil.MustOpenTestDB(t, testutil.WithAutoMigrate())
	svc, err := NewTargetService(db, nil)
	require.NoError(t, err)
	return svc
}

func TestTargetServiceCreateDefaultsAndValidation(t *testing.T) {
	svc := newTestTargetService(t)
	ctx := context.Background()

	target, err := svc.Create(ctx, CreateTargetInput{
		Name:     "  web-01  ",
		Hostname: "web-01.internal",
		Labels:   map[string]string{"env": "prod"},
	})
	require.NoError(t, err)
	require.Equal(t, "web-01", target.Name)
	require.Equal(t, "active", target.Status)
	require.NotEmpty(t, target.ID)

	labels, err := target.GetLabels()
	require.NoError(t, err)
	require.Equal(t, map[string]string{"env": "prod"}, labels)

	_, err = svc.Create(ctx, CreateTargetInput{Name: "   "})
	require.Error(t, err)

	_, err = svc.Create(ctx, CreateTargetInput{Name: "web-02", Status: "retired"})
	require.Error(t, err)
}

func TestTargetServiceListFilters(t *testing.T) {
	svc := newTestTargetService(t)
	ctx := context.Background()

	_, err := svc.Create(ctx, CreateTargetInput{Name: "db-01", Hostname: "db-01.internal"})
	require.NoError(t, err)
	_, err = svc.Create(ctx, CreateTargetInput{Name: "web-01", Status: "inactive"})
	require.NoError(t, err)
	_, err = svc.Create(ctx, CreateTargetInput{Name: "web-02"})
	require.NoError(t, err)

	all, total, err := svc.List(ctx, ListTargetsOptions{})
	require.NoError(t, err)
	require.EqualValues(t, 3, total)
	require.Len(t, all, 3)
	require.Equal(t, "db-01", all[0].Name)

	active, _, err := svc.List(ctx, ListTargetsOptions{Status: "active"})
	require.NoError(t, err)
	require.Len(t, active, 2)

	matched, _, err := svc.List(ctx, ListTargetsOptions{Search: "web"})
	require.NoError(t, err)
	require.Len(t, matched, 2)

	page, total, err := svc.List(ctx, ListTargetsOptions{Limit: 1, Offset: 1})
	require.NoError(t, err)
	require.EqualValues(t, 3, total)
	require.Len(t, page, 1)
}

func TestTargetServiceUpdate(t *testing.T) {
	svc := newTestTargetService(t)
	ctx := context.Background()

	target, err := svc.Create(ctx, CreateTargetInput{Name: "web-01"})
	require.NoError(t, err)

	status := "inactive"
	hostname := "web-01.dmz"
	updated, err := svc.Update(ctx, target.ID, UpdateTargetInput{Status: &status, Hostname: &hostname})
	require.NoError(t, err)
	require.Equal(t, "inactive", updated.Status)
	require.Equal(t, "web-01.dmz", updated.Hostname)

	bad := "retired"
	_, err = svc.Update(ctx, target.ID, UpdateTargetInput{Status: &bad})
	require.Error(t, err)
}

func TestTargetServiceDelete(t *testing.T) {
	svc := newTestTargetService(t)
	ctx := context.Background()

	target, err := svc.Create(ctx, CreateTargetInput{Name: "web-01"})
	require.NoError(t, err)

	require.NoError(t, svc.Delete(ctx, target.ID))
	require.ErrorIs(t, svc.Delete(ctx, target.ID), apperrors.ErrNotFound)

	_, err = svc.Get(ctx, target.ID)
	require.ErrorIs(t, err, apperrors.ErrNotFound)
}

func TestTargetServiceIDs(t *testing.T) {
	svc := newTestTargetService(t)
	ctx := context.Background()

	a, err := svc.Create(ctx, CreateTargetInput{Name: "a"})
	require.NoError(t, err)
	b, err := svc.Create(ctx, CreateTargetInput{Name: "b"})
	require.NoError(t, err)

	ids, err := svc.IDs(ctx)
	require.NoError(t, err)
	require.Len(t, ids, 2)
	require.Contains(t, ids, a.ID)
	require.Contains(t, ids, b.ID)
}
