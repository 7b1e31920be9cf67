package models

import "time"

// Company is the employing entity an account belongs to.
// Its identifier is forwarded to third-party systems as company_id.
type Company struct {
	// ID is the unique identifier for the company.
	ID uint `gorm:"primaryKey"`
	// Code is the short unique company token.
	Code string `gorm:"size:50;uniqueIndex;not null"`
	// Name is the display name of the company.
	Name string `gorm:"size:255;not null"`
	// CreatedAt is the timestamp when the company was created (managed by GORM).
	CreatedAt time.Time
	// UpdatedAt is the timestamp when the company was last updated (managed by GORM).
	UpdatedAt time.Time
}

// TableName specifies the database table name for the Company model.
func (Company) TableName() string {
	return "companies"
}
