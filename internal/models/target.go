package models

import (
	"encoding/json"

	"gorm.io/datatypes"
)

// Target statuses surfaced in the console.
const (
	TargetStatusActive   = "active"
	TargetStatusInactive = "inactive"
)

// Target is one managed resource in the catalog. The group engine only ever
// references targets by id; these rows exist for the console's catalog
// screens and for resolving member display fields.
type Target struct {
	BaseModel

	Name      string         `gorm:"not null;index" json:"name"`
	Hostname  string         `gorm:"not null" json:"hostname"`
	IPAddress string         `json:"ip_address"`
	Status    string         `gorm:"default:active;index" json:"status"`
	Labels    datatypes.JSON `json:"labels"`
}

func (Target) TableName() string {
	return "targets"
}

// SetLabels replaces the label set; nil clears it.
func (t *Target) SetLabels(labels map[string]string) error {
	if labels == nil {
		t.Labels = nil
		return nil
	}
	encoded, err := json.Marshal(labels)
	if err != nil {
		return err
	}
	t.Labels = datatypes.JSON(encoded)
	return nil
}

// GetLabels decodes the stored label set; an empty column yields nil.
func (t *Target) GetLabels() (map[string]string, error) {
	if len(t.Labels) == 0 {
		return nil, nil
	}
	var labels map[string]string
	if err := json.Unmarshal(t.Labels, &labels); err != nil {
		return nil, err
	}
	return labels, nil
}
