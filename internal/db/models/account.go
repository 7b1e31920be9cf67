package models

import "time"

// AccountStatus is the lifecycle state of a local account.
type AccountStatus string

const (
	// AccountStatusPending marks an account without confirmed directory linkage.
	AccountStatusPending AccountStatus = "pending"
	// AccountStatusActive marks a linked, enabled account.
	AccountStatusActive AccountStatus = "active"
	// AccountStatusInactive marks a soft-disabled account.
	AccountStatusInactive AccountStatus = "inactive"
)

// Account is the local identity record of an employee.
// An account with a DirectoryID is provisioned to the directory; enabling and
// disabling never clear the directory linkage.
type Account struct {
	// ID is the unique identifier for the account.
	ID uint64 `gorm:"primaryKey"`
	// EmployeeID is the unique employee identifier, the natural key for upserts.
	EmployeeID string `gorm:"size:64;uniqueIndex;not null"`
	// Name is the full display name of the employee.
	Name string `gorm:"size:255;not null"`
	// Email is the contact email, also used to look up an existing directory account.
	Email string `gorm:"size:255"`
	// Phone is the contact phone number.
	Phone string `gorm:"size:50"`
	// Location is the location code of the employee.
	Location string `gorm:"size:50"`
	// CompanyID references the employing company.
	CompanyID *uint
	// Company is the associated company.
	Company *Company `gorm:"foreignKey:CompanyID;constraint:OnDelete:SET NULL"`
	// Status is the lifecycle status (pending, active, inactive).
	Status AccountStatus `gorm:"type:varchar(20);not null;default:'pending';index"`
	// DirectoryID is the directory object id, nil until linked. One directory identity backs at most one account.
	DirectoryID *string `gorm:"size:64;uniqueIndex"`
	// DirectoryPrincipalName is the directory login name.
	DirectoryPrincipalName *string `gorm:"size:255"`
	// DirectoryDisplayName is the display name as stored in the directory.
	DirectoryDisplayName *string `gorm:"size:255"`
	// CreatedAt is the timestamp when the account was created (managed by GORM).
	CreatedAt time.Time
	// UpdatedAt is the timestamp when the account was last updated (managed by GORM).
	UpdatedAt time.Time
}

// TableName specifies the database table name for the Account model.
func (Account) TableName() string {
	return "accounts"
}

// IsProvisioned reports whether the account is linked to a directory identity.
func (a *Account) IsProvisioned() bool {
	return a != nil && a.DirectoryID != nil && *a.DirectoryID != ""
}
