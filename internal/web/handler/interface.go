package handler

import (
	"context"

	"github.com/gofiber/fiber/v3"

	"github.com/staffgate/staffgate/internal/config"
	"github.com/staffgate/staffgate/internal/db/models"
	"github.com/staffgate/staffgate/internal/provisioning"
)

// Provisioner is the orchestration surface served by the API.
// *provisioning.Provisioner implements it.
type Provisioner interface {
	Provision(ctx context.Context, profile provisioning.Profile, assignments []provisioning.ModuleAssignment) *provisioning.Result
	BulkProvision(ctx context.Context, requests []provisioning.Request) []*provisioning.Result
	ResolveAssignments(ctx context.Context, rows []provisioning.RawAssignment) ([]provisioning.ModuleAssignment, error)
	RetryPendingAccounts(ctx context.Context) ([]*provisioning.Result, error)
	RetryFailedModuleAssignments(ctx context.Context, accountID uint64) ([]*provisioning.ModuleResult, error)
	UpdateAccount(ctx context.Context, accountID uint64, patch provisioning.AccountPatch) (*models.Account, error)
	DisableAccount(ctx context.Context, accountID uint64) (*models.Account, error)
	EnableAccount(ctx context.Context, accountID uint64) (*models.Account, error)
	RemoveModule(ctx context.Context, accountID uint64, moduleID uint) error
}

// Service is the interface for a web handler service.
type Service interface {
	Init(app *fiber.App, cfg *config.Config, p Provisioner) error
}
