package provisioning

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"

	"github.com/rs/zerolog"

	"github.com/staffgate/staffgate/internal/db/controller/store"
	"github.com/staffgate/staffgate/internal/db/models"
	"github.com/staffgate/staffgate/internal/directory"
	"github.com/staffgate/staffgate/internal/ledger"
)

// defaultAppRole is used when the module has no {module}.{role} app role.
const defaultAppRole = "User"

// Assigner drives the group, app role and external API steps of one module assignment.
type Assigner struct {
	store  *store.Store
	ledger *ledger.Ledger
	dir    Directory
	ext    External
}

// NewAssigner creates an Assigner. store and ledger must share the same database handle.
func NewAssigner(st *store.Store, l *ledger.Ledger, dir Directory, ext External) *Assigner {
	return &Assigner{store: st, ledger: l, dir: dir, ext: ext}
}

// Assign provisions module with roleID at location for account and records the outcome in the ledger.
// It never panics and always returns a result; failures are collected per step.
func (a *Assigner) Assign(
	ctx context.Context,
	account *models.Account,
	module *models.Module,
	roleID uint,
	location string,
) (res *ModuleResult) {
	res = newModuleResult(module, roleID, location)
	logger := zerolog.Ctx(ctx).With().Str("module", module.Code).Uint("role_id", roleID).Logger()

	var entry *models.Assignment

	defer func() {
		if r := recover(); r != nil {
			err := fmt.Errorf("%w: %v", ErrPanic, r)
			res.Success = false
			res.addError(err)
			logger.Error().Err(err).Msg("module assignment aborted")

			if entry != nil {
				a.markFailed(ctx, &logger, res, entry, err.Error())
			}
		}

		moduleAssignments.WithLabelValues(module.Code, outcomeLabel(res)).Inc()
	}()

	role, err := a.validate(ctx, module, roleID, location)
	if err != nil {
		res.addError(err)
		logger.Warn().Err(err).Msg("module assignment rejected")

		return res
	}

	entry, err = a.ledger.Upsert(ctx, account.ID, module.ID, roleID, location)
	if err != nil {
		res.addError(fmt.Errorf("ledger upsert: %w", err))
		logger.Error().Err(err).Msg("ledger upsert failed")

		return res
	}
	res.SyncStatus = entry.SyncStatus

	if module.RequiresGroupAssignment {
		res.Group = a.step(a.assignGroup(ctx, account, module, roleID))
	}

	if module.RequiresAppRoleAssignment {
		res.AppRole = a.step(a.assignAppRole(ctx, account, module, role))
	}

	if module.HasExternalAPI() {
		id, err := a.ext.Provision(ctx, module, BuildPayload(account, module, role, location))
		res.ExternalAPI = a.step(err)
		res.ExternalID = id
	}

	res.Success = !res.Group.Failed() && !res.AppRole.Failed()

	for _, s := range []Step{res.Group, res.AppRole, res.ExternalAPI} {
		if s.Failed() {
			res.addError(s.Err)
		}
	}

	switch {
	case !res.Success:
		a.markFailed(ctx, &logger, res, entry, directoryErrors(res))
	case res.ExternalAPI.Failed():
		a.markFailed(ctx, &logger, res, entry, res.ExternalAPI.Error)
	default:
		if err := a.ledger.MarkSynced(ctx, entry.ID, res.ExternalID); err != nil {
			res.addError(fmt.Errorf("ledger mark synced: %w", err))
			logger.Error().Err(err).Msg("ledger update failed")

			break
		}
		res.SyncStatus = models.SyncStatusSynced
	}

	logger.Info().
		Bool("success", res.Success).
		Str("group", string(res.Group.Status)).
		Str("app_role", string(res.AppRole.Status)).
		Str("external_api", string(res.ExternalAPI.Status)).
		Str("sync_status", string(res.SyncStatus)).
		Msg("module assignment finished")

	return res
}

// Remove revokes the group membership and app role grants of module for account and
// deletes the ledger row. Third-party systems are not deprovisioned.
func (a *Assigner) Remove(ctx context.Context, account *models.Account, module *models.Module) error {
	logger := zerolog.Ctx(ctx).With().Str("module", module.Code).Logger()

	entry, err := a.ledger.Get(ctx, account.ID, module.ID)
	if errors.Is(err, ledger.ErrAssignmentNotFound) {
		logger.Debug().Msg("no assignment to remove")
		return nil
	}
	if err != nil {
		return err
	}

	if account.IsProvisioned() {
		if err := a.removeDirectoryAccess(ctx, account, module, entry.RoleID); err != nil {
			logger.Error().Err(err).Msg("directory access removal failed")
			return err
		}
	}

	if err := a.ledger.Delete(ctx, account.ID, module.ID); err != nil {
		return err
	}

	logger.Info().Msg("module assignment removed")

	return nil
}

func (a *Assigner) validate(ctx context.Context, module *models.Module, roleID uint, location string) (*models.Role, error) {
	if module.RequiresLocation && location == "" {
		return nil, fmt.Errorf("%w: module %s requires a location", ErrValidation, module.Code)
	}

	role, err := a.store.RoleByID(ctx, roleID)
	if errors.Is(err, store.ErrRoleNotFound) {
		return nil, fmt.Errorf("%w: role %d does not exist", ErrValidation, roleID)
	}
	if err != nil {
		return nil, err
	}

	allowed, err := a.store.ModuleRoleIDs(ctx, module.ID)
	if err != nil {
		return nil, err
	}
	if len(allowed) > 0 && !slices.Contains(allowed, roleID) {
		return nil, fmt.Errorf("%w: role %s is not valid for module %s", ErrValidation, role.Name, module.Code)
	}

	return role, nil
}

func (a *Assigner) assignGroup(ctx context.Context, account *models.Account, module *models.Module, roleID uint) error {
	mapping, err := a.store.RoleGroupMapping(ctx, module.ID, roleID)
	if errors.Is(err, store.ErrMappingNotFound) {
		return fmt.Errorf("%w: module %s role %d", ErrMappingNotFound, module.Code, roleID)
	}
	if err != nil {
		return err
	}

	if !account.IsProvisioned() {
		return ErrNotProvisioned
	}

	return a.dir.AddGroupMember(ctx, mapping.DirectoryGroupID, *account.DirectoryID)
}

func (a *Assigner) assignAppRole(ctx context.Context, account *models.Account, module *models.Module, role *models.Role) error {
	if module.DirectoryAppID == nil || *module.DirectoryAppID == "" {
		return fmt.Errorf("%w: module %s has no directory app id", ErrValidation, module.Code)
	}

	if !account.IsProvisioned() {
		return ErrNotProvisioned
	}

	appID := *module.DirectoryAppID

	roles, err := a.dir.ListAppRoles(ctx, appID)
	if err != nil {
		return err
	}

	appRoleID, ok := matchAppRole(roles, module.Code+"."+role.Code)
	if !ok {
		return fmt.Errorf("%w: %s.%s", ErrAppRoleNotFound, module.Code, role.Code)
	}

	_, err = a.dir.AssignAppRole(ctx, appID, *account.DirectoryID, appRoleID)

	return err
}

func (a *Assigner) removeDirectoryAccess(ctx context.Context, account *models.Account, module *models.Module, roleID uint) error {
	if module.RequiresGroupAssignment {
		mapping, err := a.store.RoleGroupMapping(ctx, module.ID, roleID)
		switch {
		case errors.Is(err, store.ErrMappingNotFound):
		case err != nil:
			return err
		default:
			if err := a.dir.RemoveGroupMember(ctx, mapping.DirectoryGroupID, *account.DirectoryID); err != nil {
				return err
			}
		}
	}

	if module.RequiresAppRoleAssignment && module.DirectoryAppID != nil && *module.DirectoryAppID != "" {
		grants, err := a.dir.ListAccountAppRoleAssignments(ctx, *account.DirectoryID)
		if err != nil {
			return err
		}

		for _, g := range grants {
			if !strings.EqualFold(g.ResourceID, *module.DirectoryAppID) {
				continue
			}
			if err := a.dir.RemoveAppRoleAssignment(ctx, *account.DirectoryID, g.ID); err != nil {
				return err
			}
		}
	}

	return nil
}

func (a *Assigner) step(err error) Step {
	if err != nil {
		return failed(err)
	}

	return succeeded()
}

func (a *Assigner) markFailed(ctx context.Context, logger *zerolog.Logger, res *ModuleResult, entry *models.Assignment, msg string) {
	if err := a.ledger.MarkFailed(ctx, entry.ID, msg); err != nil {
		res.addError(fmt.Errorf("ledger mark failed: %w", err))
		logger.Error().Err(err).Msg("ledger update failed")

		return
	}

	res.SyncStatus = models.SyncStatusFailed
}

// directoryErrors joins the failed required directory steps for the ledger.
func directoryErrors(res *ModuleResult) string {
	var parts []string

	if res.Group.Failed() {
		parts = append(parts, "group: "+res.Group.Error)
	}
	if res.AppRole.Failed() {
		parts = append(parts, "app role: "+res.AppRole.Error)
	}

	return strings.Join(parts, "; ")
}

// matchAppRole finds the exact {module}.{role} value, falling back to the default User role.
func matchAppRole(roles []directory.AppRole, want string) (string, bool) {
	for _, r := range roles {
		if r.Value == want {
			return r.ID, true
		}
	}

	for _, r := range roles {
		if r.Value == defaultAppRole || r.DisplayName == defaultAppRole {
			return r.ID, true
		}
	}

	return "", false
}
