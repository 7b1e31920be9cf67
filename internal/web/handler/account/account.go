// Package account serves the account lifecycle and retry routes.
package account

import (
	"errors"

	"github.com/gofiber/fiber/v3"
	"github.com/rs/zerolog/log"

	"github.com/staffgate/staffgate/internal/config"
	"github.com/staffgate/staffgate/internal/db/models"
	"github.com/staffgate/staffgate/internal/provisioning"
	"github.com/staffgate/staffgate/internal/web/handler"
)

// Path is the account route group.
const Path = handler.APIPath + "/accounts"

// Service is the account handler service.
type Service struct {
	handler.Service
	cfg *config.Config
	p   handler.Provisioner
}

// Handler is the account handler.
var Handler = Service{}

// Init initializes the account handler.
func (s *Service) Init(app *fiber.App, cfg *config.Config, p handler.Provisioner) error {
	if app == nil || cfg == nil || p == nil {
		return errors.New(handler.ErrNilACPFatalLogMsg)
	}

	s.cfg = cfg
	s.p = p

	router := app.Group(Path)
	router.Post("/retry-pending", s.RetryPending)
	router.Post("/:id/retry", s.Retry)
	router.Patch("/:id", s.Patch)
	router.Post("/:id/disable", s.Disable)
	router.Post("/:id/enable", s.Enable)
	router.Delete("/:id/modules/:module", s.RemoveModule)

	return nil
}

// RetryPending re-runs directory linkage for every pending account.
func (s *Service) RetryPending(c fiber.Ctx) error {
	results, err := s.p.RetryPendingAccounts(c.Context())
	if err != nil {
		log.Error().Err(err).Msg("failed to retry pending accounts")
		return handler.Fail(c, err)
	}

	return c.JSON(fiber.Map{"results": results})
}

// Retry re-runs the failed module assignments of one account.
func (s *Service) Retry(c fiber.Ctx) error {
	id, err := handler.ParseID(c, "id")
	if err != nil {
		return handler.Fail(c, err)
	}

	modules, err := s.p.RetryFailedModuleAssignments(c.Context(), id)
	if err != nil {
		log.Warn().Err(err).Uint64("account_id", id).Msg("failed to retry module assignments")
		return handler.Fail(c, err)
	}

	return c.JSON(fiber.Map{"account_id": id, "modules": modules})
}

// Patch updates the account profile. Omitted fields are left untouched.
func (s *Service) Patch(c fiber.Ctx) error {
	id, err := handler.ParseID(c, "id")
	if err != nil {
		return handler.Fail(c, err)
	}

	var patch provisioning.AccountPatch
	if err := c.Bind().JSON(&patch); err != nil {
		log.Debug().Err(err).Msg("failed to decode account patch")
		return handler.Fail(c, handler.ErrInvalidBody)
	}

	if patch.Empty() {
		return handler.Fail(c, handler.ErrEmptyPatch)
	}

	return s.respond(c, id, "update")(s.p.UpdateAccount(c.Context(), id, patch))
}

// Disable soft-disables the account.
func (s *Service) Disable(c fiber.Ctx) error {
	id, err := handler.ParseID(c, "id")
	if err != nil {
		return handler.Fail(c, err)
	}

	return s.respond(c, id, "disable")(s.p.DisableAccount(c.Context(), id))
}

// Enable reactivates the account.
func (s *Service) Enable(c fiber.Ctx) error {
	id, err := handler.ParseID(c, "id")
	if err != nil {
		return handler.Fail(c, err)
	}

	return s.respond(c, id, "enable")(s.p.EnableAccount(c.Context(), id))
}

// RemoveModule revokes one module from the account.
func (s *Service) RemoveModule(c fiber.Ctx) error {
	id, err := handler.ParseID(c, "id")
	if err != nil {
		return handler.Fail(c, err)
	}

	moduleID, err := handler.ParseID(c, "module")
	if err != nil {
		return handler.Fail(c, err)
	}

	if err := s.p.RemoveModule(c.Context(), id, uint(moduleID)); err != nil {
		log.Warn().Err(err).Uint64("account_id", id).Uint64("module_id", moduleID).Msg("failed to remove module")
		return handler.Fail(c, err)
	}

	return c.SendStatus(fiber.StatusNoContent)
}

func (s *Service) respond(c fiber.Ctx, id uint64, op string) func(*models.Account, error) error {
	return func(account *models.Account, err error) error {
		if err != nil {
			log.Warn().Err(err).Uint64("account_id", id).Str("op", op).Msg("account update failed")
			return handler.Fail(c, err)
		}

		return c.JSON(account)
	}
}
