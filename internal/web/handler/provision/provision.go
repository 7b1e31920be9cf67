// Package provision serves account provisioning runs.
package provision

import (
	"errors"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v3"
	"github.com/rs/zerolog/log"

	"github.com/staffgate/staffgate/internal/config"
	"github.com/staffgate/staffgate/internal/provisioning"
	"github.com/staffgate/staffgate/internal/web/handler"
)

const (
	// Path is the provisioning route group.
	Path = handler.APIPath + "/provision"

	// BulkPath is the bulk provisioning route below Path.
	BulkPath = "/bulk"
)

// Request is the body of a provisioning run. Assignment rows accept "all" in every list.
type Request struct {
	provisioning.Profile
	Assignments []provisioning.RawAssignment `json:"assignments" validate:"omitempty,dive"`
}

// BulkRequest is the body of a bulk provisioning run.
type BulkRequest struct {
	Accounts []Request `json:"accounts" validate:"required,min=1,max=500,dive"`
}

// Service is the provisioning handler service.
type Service struct {
	handler.Service
	cfg       *config.Config
	p         handler.Provisioner
	validator *validator.Validate
}

// Handler is the provisioning handler.
var Handler = Service{}

// Init initializes the provisioning handler.
func (s *Service) Init(app *fiber.App, cfg *config.Config, p handler.Provisioner) error {
	if app == nil || cfg == nil || p == nil {
		return errors.New(handler.ErrNilACPFatalLogMsg)
	}

	s.cfg = cfg
	s.p = p
	s.validator = validator.New()

	router := app.Group(Path)
	router.Post(handler.RouterRootPath, s.Post)
	router.Post(BulkPath, s.PostBulk)

	return nil
}

// Post provisions one account.
func (s *Service) Post(c fiber.Ctx) error {
	var req Request
	if err := c.Bind().JSON(&req); err != nil {
		log.Debug().Err(err).Msg("failed to decode provisioning request")
		return handler.Fail(c, handler.ErrInvalidBody)
	}

	if err := s.validator.Struct(&req); err != nil {
		log.Debug().Err(err).Msg("validation failed for provisioning request")
		return handler.Fail(c, err)
	}

	assignments, err := s.p.ResolveAssignments(c.Context(), req.Assignments)
	if err != nil {
		log.Warn().Err(err).Str("employee_id", req.EmployeeID).Msg("failed to resolve assignments")
		return handler.Fail(c, err)
	}

	res := s.p.Provision(c.Context(), req.Profile, assignments)
	if !res.Success {
		return c.Status(handler.Status(res.Err())).JSON(res)
	}

	return c.JSON(res)
}

// PostBulk provisions each account of the batch in turn. A failed account does not fail the batch,
// but an assignment row that cannot be resolved rejects the whole request before any run starts.
func (s *Service) PostBulk(c fiber.Ctx) error {
	var req BulkRequest
	if err := c.Bind().JSON(&req); err != nil {
		log.Debug().Err(err).Msg("failed to decode bulk provisioning request")
		return handler.Fail(c, handler.ErrInvalidBody)
	}

	if err := s.validator.Struct(&req); err != nil {
		log.Debug().Err(err).Msg("validation failed for bulk provisioning request")
		return handler.Fail(c, err)
	}

	requests := make([]provisioning.Request, 0, len(req.Accounts))

	for _, r := range req.Accounts {
		assignments, err := s.p.ResolveAssignments(c.Context(), r.Assignments)
		if err != nil {
			log.Warn().Err(err).Str("employee_id", r.EmployeeID).Msg("failed to resolve assignments")
			return handler.Fail(c, err)
		}

		requests = append(requests, provisioning.Request{Profile: r.Profile, Assignments: assignments})
	}

	results := s.p.BulkProvision(c.Context(), requests)

	failed := 0
	for _, r := range results {
		if !r.Success {
			failed++
		}
	}

	log.Info().Int("accounts", len(results)).Int("failed", failed).Msg("bulk provisioning finished")

	return c.JSON(fiber.Map{"results": results, "failed": failed})
}
