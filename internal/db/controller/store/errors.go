package store

import "errors"

var (
	// ErrDBNil is returned when the database connection is nil.
	ErrDBNil = errors.New("database connection is nil")
	// ErrEmployeeIDEmpty is returned when an account is upserted without an employee id.
	ErrEmployeeIDEmpty = errors.New("employee id cannot be empty")
	// ErrAccountNotFound is returned when an account is not found.
	ErrAccountNotFound = errors.New("account not found")
	// ErrModuleNotFound is returned when a module is not found.
	ErrModuleNotFound = errors.New("module not found")
	// ErrRoleNotFound is returned when a role is not found.
	ErrRoleNotFound = errors.New("role not found")
	// ErrCompanyNotFound is returned when a company is not found.
	ErrCompanyNotFound = errors.New("company not found")
	// ErrMappingNotFound is returned when no role group mapping exists for a module and role.
	ErrMappingNotFound = errors.New("role group mapping not found")
)
