package models

import "time"

// SyncStatus is the ledger state of an assignment.
type SyncStatus string

const (
	// SyncStatusPending is the initial state and the state after a role or location change.
	SyncStatusPending SyncStatus = "pending"
	// SyncStatusSynced marks full success of all required external steps.
	SyncStatusSynced SyncStatus = "synced"
	// SyncStatusFailed marks a failed required step; LastError keeps the reason.
	SyncStatusFailed SyncStatus = "failed"
)

// Assignment is the ledger entry of one account to module relationship.
// (AccountID, ModuleID) is unique: reassigning updates the same row.
type Assignment struct {
	// ID is the unique identifier for the ledger entry.
	ID uint64 `gorm:"primaryKey"`
	// AccountID and ModuleID together are unique.
	AccountID uint64 `gorm:"not null;uniqueIndex:idx_account_module,priority:1"`
	ModuleID  uint   `gorm:"not null;uniqueIndex:idx_account_module,priority:2"`
	// RoleID is the assigned role.
	RoleID uint `gorm:"not null"`
	// Location is the location code of the assignment, empty when none.
	Location string `gorm:"size:50;not null;default:''"`
	// ExternalID is the identifier returned by the third-party system, if any.
	ExternalID *string `gorm:"size:255"`
	// SyncStatus is pending, synced or failed.
	SyncStatus SyncStatus `gorm:"type:varchar(20);not null;default:'pending';index"`
	// LastError keeps the failure text for diagnosis and retry.
	LastError *string `gorm:"type:text"`
	// LastSyncedAt is the time of the last successful sync.
	LastSyncedAt *time.Time
	// Account is the associated account (CASCADE on delete).
	Account Account `gorm:"foreignKey:AccountID;constraint:OnDelete:CASCADE"`
	// Module is the associated module (CASCADE on delete).
	Module Module `gorm:"foreignKey:ModuleID;constraint:OnDelete:CASCADE"`
	// Role is the associated role.
	Role Role `gorm:"foreignKey:RoleID;constraint:OnDelete:RESTRICT"`
	// CreatedAt is the timestamp when the entry was created (managed by GORM).
	CreatedAt time.Time
	// UpdatedAt is the timestamp when the entry was last updated (managed by GORM).
	UpdatedAt time.Time
}

// TableName specifies the database table name for the Assignment model.
func (Assignment) TableName() string {
	return "assignments"
}

// All returns every model in migration order.
func All() []any {
	return []any{
		&Company{},
		&Role{},
		&Module{},
		&ModuleRole{},
		&RoleGroupMapping{},
		&Account{},
		&Assignment{},
	}
}
