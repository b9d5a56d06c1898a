package models

import "gorm.io/datatypes"

// TargetGroup is the persisted form of one node in the target-group forest.
// Path and Level are written by the engine on every structural change; they
// are never used to derive ancestry on load, only for reporting queries.
type TargetGroup struct {
	BaseModel

	Name        string         `gorm:"not null;index" json:"name"`
	Description string         `json:"description"`
	Color       string         `json:"color"`
	Icon        string         `json:"icon"`
	ParentID    *string        `gorm:"type:uuid;index" json:"parent_id"`
	Path        string         `gorm:"index" json:"path"`
	Level       int            `gorm:"default:0" json:"level"`
	Ordering    int            `gorm:"default:0" json:"ordering"`
	Metadata    datatypes.JSON `json:"metadata"`

	Children []TargetGroup       `gorm:"foreignKey:ParentID" json:"children,omitempty"`
	Members  []TargetGroupMember `gorm:"foreignKey:GroupID;constraint:OnDelete:CASCADE" json:"members,omitempty"`
}

// TableName keeps the table name stable regardless of pluralisation rules.
func (TargetGroup) TableName() string {
	return "target_groups"
}
