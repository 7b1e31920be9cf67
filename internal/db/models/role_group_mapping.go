package models

import "time"

// RoleGroupMapping resolves a (module, role) pair to a directory group.
// A module requiring group assignment fails its group step when no mapping exists.
type RoleGroupMapping struct {
	// ID is the unique identifier for the mapping.
	ID uint `gorm:"primaryKey"`
	// ModuleID and RoleID together are unique.
	ModuleID uint `gorm:"not null;uniqueIndex:idx_module_role,priority:1"`
	RoleID   uint `gorm:"not null;uniqueIndex:idx_module_role,priority:2"`
	// DirectoryGroupID is the directory group object id members are added to.
	DirectoryGroupID string `gorm:"size:64;not null"`
	// DirectoryGroupName is the group display name, kept for operators.
	DirectoryGroupName string `gorm:"size:255"`
	// Module is the associated module (CASCADE on delete).
	Module Module `gorm:"foreignKey:ModuleID;constraint:OnDelete:CASCADE"`
	// Role is the associated role (CASCADE on delete).
	Role Role `gorm:"foreignKey:RoleID;constraint:OnDelete:CASCADE"`
	// CreatedAt is the timestamp when the mapping was created (managed by GORM).
	CreatedAt time.Time
	// UpdatedAt is the timestamp when the mapping was last updated (managed by GORM).
	UpdatedAt time.Time
}

// TableName specifies the database table name for the RoleGroupMapping model.
func (RoleGroupMapping) TableName() string {
	return "role_group_mappings"
}
