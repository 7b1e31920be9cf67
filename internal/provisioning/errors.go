package provisioning

import "errors"

var (
	// ErrValidation is returned for requests the catalogue does not allow.
	ErrValidation = errors.New("validation failed")
	// ErrMappingNotFound is returned when a module requires a group and no role group mapping exists.
	ErrMappingNotFound = errors.New("role group mapping not found")
	// ErrNotProvisioned is returned when a directory step needs an account without directory linkage.
	ErrNotProvisioned = errors.New("account is not provisioned to the directory")
	// ErrModuleNotFound is returned for unknown modules.
	ErrModuleNotFound = errors.New("module not found")
	// ErrAccountNotFound is returned for unknown accounts.
	ErrAccountNotFound = errors.New("account not found")
	// ErrDirectoryAccountNotFound is returned when a principal name conflict cannot be resolved to an existing account.
	ErrDirectoryAccountNotFound = errors.New("conflicting directory account not found")
	// ErrDirectoryAccountInUse is returned when the directory account found for a conflict is linked to another employee.
	ErrDirectoryAccountInUse = errors.New("directory account is linked to another account")
	// ErrAppRoleNotFound is returned when neither the module role nor the default app role exists.
	ErrAppRoleNotFound = errors.New("app role not found")
	// ErrPanic wraps a recovered panic inside a module assignment.
	ErrPanic = errors.New("module assignment panicked")
)
