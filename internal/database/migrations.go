package database

import (
	"gorm.io/gorm"

	"github.com/fleetgrid/fleetgrid/internal/models"
)

// AutoMigrate creates or updates the database schema for all models.
func AutoMigrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&models.Target{},
		&models.TargetGroup{},
		&models.TargetGroupMember{},
		&models.AuditLog{},
	)
}

// SeedData populates the default root groups a fresh console starts with.
func SeedData(db *gorm.DB) error {
	groups := []models.TargetGroup{
		{
			BaseModel:   models.BaseModel{ID: "00000000-0000-4000-8000-000000000001"},
			Name:        "All Targets",
			Description: "Default root for unorganised targets",
			Icon:        "server",
			Ordering:    0,
		},
	}

	for _, group := range groups {
		group.Path = group.ID
		if err := db.Where(models.TargetGroup{BaseModel: models.BaseModel{ID: group.ID}}).
			Attrs(group).
			FirstOrCreate(&models.TargetGroup{}).Error; err != nil {
			return err
		}
	}

	return nil
}
