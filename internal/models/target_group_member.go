package models

// TargetGroupMember records that a target belongs to a group. The pair is
// composite-unique: a target appears at most once per group but may belong to
// any number of groups. TargetID is not a foreign key into targets — the
// engine treats catalog ids as opaque.
type TargetGroupMember struct {
	BaseModel

	GroupID  string `gorm:"type:uuid;not null;uniqueIndex:idx_group_target" json:"group_id"`
	TargetID string `gorm:"type:uuid;not null;uniqueIndex:idx_group_target;index" json:"target_id"`
}

func (TargetGroupMember) TableName() string {
	return "target_group_members"
}
