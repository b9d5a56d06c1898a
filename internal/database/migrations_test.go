package database

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/fleetgrid/fleetgrid/internal/models"
)

func TestAutoMigrateAndSeed(t *testing.T) {
	db, err := Open(Config{Driver: "sqlite"})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	t.Cleanup(func() { _ = sqlDB.Close() })

	require.NoError(t, AutoMigrateAndSeed(db))

	for _, table := range []string{"targets", "target_groups", "target_group_members", "audit_logs"} {
		require.True(t, db.Migrator().HasTable(table), "missing table %s", table)
	}

	var roots []models.TargetGroup
	require.NoError(t, db.Where("parent_id IS NULL").Find(&roots).Error)
	require.NotEmpty(t, roots)

	// Seeding twice must not duplicate the defaults.
	require.NoError(t, SeedData(db))
	var count int64
	require.NoError(t, db.Model(&models.TargetGroup{}).Count(&count).Error)
	require.Equal(t, int64(len(roots)), count)
}

func TestOpenRejectsUnknownDriver(t *testing.T) {
	_, err := Open(Config{Driver: "oracle"})
	require.Error(t, err)
}

func TestMembershipPairIsCompositeUnique(t *testing.T) {
	db, err := Open(Config{Driver: "sqlite"})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	t.Cleanup(func() { _ = sqlDB.Close() })

	require.NoError(t, AutoMigrate(db))

	group := models.TargetGroup{Name: "Infra"}
	require.NoError(t, db.Create(&group).Error)
	group.Path = group.ID
	require.NoError(t, db.Save(&group).Error)

	member := models.TargetGroupMember{GroupID: group.ID, TargetID: "11111111-1111-4111-8111-111111111111"}
	require.NoError(t, db.Create(&member).Error)

	dup := models.TargetGroupMember{GroupID: group.ID, TargetID: member.TargetID}
	require.Error(t, db.Create(&dup).Error)
}
