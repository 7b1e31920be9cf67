package directory

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
)

const maxErrorBody = 2048

// AuthError is returned when the client credentials token exchange is rejected.
type AuthError struct {
	Err error
}

func (e *AuthError) Error() string {
	return "directory token exchange failed: " + e.Err.Error()
}

func (e *AuthError) Unwrap() error {
	return e.Err
}

// DirectoryError is returned for any failed directory REST call.
// Status is zero when the request never produced a response.
type DirectoryError struct {
	Op     string
	Status int
	Body   string
	Err    error
}

func (e *DirectoryError) Error() string {
	if e.Status == 0 {
		return fmt.Sprintf("directory %s: %v", e.Op, e.Err)
	}

	body := e.Body
	if len(body) > maxErrorBody {
		body = body[:maxErrorBody] + "..."
	}

	return fmt.Sprintf("directory %s failed with status %d: %s", e.Op, e.Status, body)
}

func (e *DirectoryError) Unwrap() error {
	return e.Err
}

// StatusOf returns the HTTP status carried by err, or zero.
func StatusOf(err error) int {
	var de *DirectoryError
	if errors.As(err, &de) {
		return de.Status
	}

	return 0
}

// IsNotFound reports whether err is a 404 from the directory.
func IsNotFound(err error) bool {
	return StatusOf(err) == http.StatusNotFound
}

// IsPrincipalNameConflict reports whether a create failed because the principal name is taken.
func IsPrincipalNameConflict(err error) bool {
	var de *DirectoryError
	if !errors.As(err, &de) {
		return false
	}
	if de.Status != http.StatusBadRequest && de.Status != http.StatusConflict {
		return false
	}

	body := strings.ToLower(de.Body)

	return strings.Contains(body, "objectconflict") ||
		(strings.Contains(body, "userprincipalname") && strings.Contains(body, "already exist"))
}

// isAlreadyExists reports the conflict shapes Graph uses for duplicate memberships and grants.
func isAlreadyExists(err error) bool {
	var de *DirectoryError
	if !errors.As(err, &de) {
		return false
	}

	switch de.Status {
	case http.StatusConflict:
		return true
	case http.StatusBadRequest:
		return strings.Contains(strings.ToLower(de.Body), "already exist")
	default:
		return false
	}
}
