package handler

const (
	// APIPath is the prefix of every API route.
	APIPath = "/api/v1"

	// RouterRootPath is the root path of a route group.
	RouterRootPath = "/"

	// ErrNilACPFatalLogMsg is used if app, cfg or provisioner is nil.
	ErrNilACPFatalLogMsg = "app, cfg or provisioner is nil"
)
