package external

import (
	"errors"
	"fmt"
)

// ErrNoEndpoint is returned when a module without an API endpoint is provisioned.
var ErrNoEndpoint = errors.New("module has no external api endpoint")

// ErrMissingCredentials is returned when stored credentials are empty or cannot be decrypted.
var ErrMissingCredentials = errors.New("module api credentials missing or unreadable")

// APIError is returned when a third-party endpoint fails.
// Status is zero when the request never produced a response.
type APIError struct {
	Module string
	Status int
	Body   string
	Err    error
}

func (e *APIError) Error() string {
	if e.Status == 0 {
		return fmt.Sprintf("external api %s: %v", e.Module, e.Err)
	}

	body := e.Body
	if len(body) > maxErrorBody {
		body = body[:maxErrorBody] + "..."
	}

	return fmt.Sprintf("external api %s failed with status %d: %s", e.Module, e.Status, body)
}

func (e *APIError) Unwrap() error {
	return e.Err
}

// UnsupportedAuthMethodError is returned for auth methods that are recognised but not implemented.
type UnsupportedAuthMethodError struct {
	Method string
}

func (e *UnsupportedAuthMethodError) Error() string {
	return fmt.Sprintf("unsupported external api auth method %q", e.Method)
}
