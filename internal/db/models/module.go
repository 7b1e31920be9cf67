package models

import (
	"time"

	"gorm.io/datatypes"
)

// AuthMethod is how requests to a module's external provisioning endpoint authenticate.
type AuthMethod string

const (
	// AuthMethodNone sends unauthenticated requests.
	AuthMethodNone AuthMethod = "none"
	// AuthMethodBearer sends the stored token as a bearer token.
	AuthMethodBearer AuthMethod = "bearer"
	// AuthMethodAPIKey sends the stored key in the module's API key header.
	AuthMethodAPIKey AuthMethod = "api_key"
	// AuthMethodOAuth is recognised but not implemented; requests fail fast.
	AuthMethodOAuth AuthMethod = "oauth"
)

// Module is a provisionable application or capability.
type Module struct {
	// ID is the unique identifier for the module.
	ID uint `gorm:"primaryKey"`
	// Code is the unique short token (e.g., "SCM").
	Code string `gorm:"size:50;uniqueIndex;not null"`
	// Name is the display name.
	Name string `gorm:"size:255;not null"`
	// RequiresGroupAssignment demands a resolved Role-Group Mapping for every assignment.
	RequiresGroupAssignment bool `gorm:"not null;default:false"`
	// RequiresAppRoleAssignment demands an app role assignment on DirectoryAppID.
	RequiresAppRoleAssignment bool `gorm:"not null;default:false"`
	// RequiresLocation rejects assignments without a location.
	RequiresLocation bool `gorm:"not null;default:false"`
	// DirectoryGroupID is the module's umbrella group, informational only.
	DirectoryGroupID *string `gorm:"size:64"`
	// DirectoryAppID is the service principal object id carrying the module's app roles.
	DirectoryAppID *string `gorm:"size:64"`
	// APIEndpoint is the third-party provisioning endpoint; nil means no external step.
	APIEndpoint *string `gorm:"size:512"`
	// APIAuthMethod selects how the external request is authenticated.
	APIAuthMethod AuthMethod `gorm:"type:varchar(20);not null;default:'none'"`
	// APICredentials holds the encrypted token or key.
	APICredentials string `gorm:"type:text"`
	// APIKeyHeader overrides the header used for api_key authentication.
	APIKeyHeader string `gorm:"size:100"`
	// ExternalIDField names the response field checked after the common id fields.
	ExternalIDField string `gorm:"size:100"`
	// ExtraFields are static fields merged into every external payload of this module.
	ExtraFields datatypes.JSONMap
	// CreatedAt is the timestamp when the module was created (managed by GORM).
	CreatedAt time.Time
	// UpdatedAt is the timestamp when the module was last updated (managed by GORM).
	UpdatedAt time.Time
}

// TableName specifies the database table name for the Module model.
func (Module) TableName() string {
	return "modules"
}

// HasExternalAPI reports whether the module declares an external provisioning endpoint.
func (m *Module) HasExternalAPI() bool {
	return m.APIEndpoint != nil && *m.APIEndpoint != ""
}
