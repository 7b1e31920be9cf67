package models

import "time"

// Role represents a named permission level such as Manager or Officer.
// Roles are module agnostic; ModuleRole declares where a role is valid.
type Role struct {
	// ID is the unique identifier for the role.
	ID uint `gorm:"primaryKey"`
	// Name is the unique display name of the role (e.g., "Manager").
	Name string `gorm:"unique;size:100;not null"`
	// Code is the short token used to build app role values ({module_code}.{role_code}).
	Code string `gorm:"unique;size:50;not null"`
	// Description provides a human-readable description of the role's purpose.
	Description string `gorm:"size:255"`
	// CreatedAt is the timestamp when the role was created (managed by GORM).
	CreatedAt time.Time
	// UpdatedAt is the timestamp when the role was last updated (managed by GORM).
	UpdatedAt time.Time
}

// TableName specifies the database table name for the Role model.
func (Role) TableName() string {
	return "roles"
}

// ModuleRole declares that a role is valid for a module.
type ModuleRole struct {
	ModuleID uint   `gorm:"primaryKey;column:module_id"`
	RoleID   uint   `gorm:"primaryKey;column:role_id"`
	Module   Module `gorm:"foreignKey:ModuleID;constraint:OnDelete:CASCADE"`
	Role     Role   `gorm:"foreignKey:RoleID;constraint:OnDelete:CASCADE"`
}

// TableName specifies the database table name for the ModuleRole model.
func (ModuleRole) TableName() string {
	return "module_roles"
}
