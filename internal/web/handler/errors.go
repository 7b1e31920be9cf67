package handler

import (
	"errors"
	"fmt"
	"strconv"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v3"

	"github.com/staffgate/staffgate/internal/directory"
	"github.com/staffgate/staffgate/internal/provisioning"
)

var (
	// ErrInvalidBody is returned when a request body cannot be decoded.
	ErrInvalidBody = errors.New("invalid request body")

	// ErrInvalidID is returned when a path id is not a positive integer.
	ErrInvalidID = errors.New("invalid id")

	// ErrEmptyPatch is returned for an account patch without any field.
	ErrEmptyPatch = errors.New("patch sets no field")
)

// ErrorResponse is the JSON body of every failed request.
type ErrorResponse struct {
	Error   string   `json:"error"`
	Details []string `json:"details,omitempty"`
}

// Status maps an orchestration error to its HTTP status.
func Status(err error) int {
	var (
		fe   *fiber.Error
		de   *directory.DirectoryError
		ae   *directory.AuthError
		verr validator.ValidationErrors
	)

	switch {
	case errors.As(err, &fe):
		return fe.Code
	case errors.Is(err, provisioning.ErrValidation),
		errors.Is(err, ErrInvalidBody),
		errors.Is(err, ErrInvalidID),
		errors.Is(err, ErrEmptyPatch),
		errors.As(err, &verr):
		return fiber.StatusBadRequest
	case errors.Is(err, provisioning.ErrAccountNotFound), errors.Is(err, provisioning.ErrModuleNotFound):
		return fiber.StatusNotFound
	case errors.Is(err, provisioning.ErrDirectoryAccountInUse):
		return fiber.StatusConflict
	case errors.Is(err, provisioning.ErrDirectoryAccountNotFound), errors.As(err, &de), errors.As(err, &ae):
		return fiber.StatusBadGateway
	default:
		return fiber.StatusInternalServerError
	}
}

// Fail writes err as an ErrorResponse with the mapped status.
func Fail(c fiber.Ctx, err error) error {
	resp := ErrorResponse{Error: err.Error()}

	var verr validator.ValidationErrors
	if errors.As(err, &verr) {
		resp.Error = "validation failed"
		resp.Details = ValidationMessages(verr)
	}

	return c.Status(Status(err)).JSON(resp)
}

// ValidationMessages renders validator errors one per field.
func ValidationMessages(verr validator.ValidationErrors) []string {
	out := make([]string, len(verr))
	for i, ve := range verr {
		out[i] = "Field '" + ve.Namespace() + "' failed validation tag '" + ve.Tag() + "'"
	}

	return out
}

// ParseID reads a positive integer path parameter.
func ParseID(c fiber.Ctx, name string) (uint64, error) {
	id, err := strconv.ParseUint(c.Params(name), 10, 64)
	if err != nil || id == 0 {
		return 0, fmt.Errorf("%w: %q", ErrInvalidID, c.Params(name))
	}

	return id, nil
}
