package provisioning

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"gorm.io/gorm"

	"github.com/staffgate/staffgate/internal/db/controller/store"
	"github.com/staffgate/staffgate/internal/db/models"
	"github.com/staffgate/staffgate/internal/directory"
	"github.com/staffgate/staffgate/internal/ledger"
)

// Profile is the employee record a run provisions.
type Profile struct {
	EmployeeID string `json:"employee_id" validate:"required,max=64"`
	Name       string `json:"name"        validate:"required,max=255"`
	Email      string `json:"email"       validate:"omitempty,email"`
	Phone      string `json:"phone"       validate:"omitempty,max=50"`
	Location   string `json:"location"    validate:"omitempty,max=50"`
	CompanyID  *uint  `json:"company_id"`
}

// ModuleAssignment requests one module with a role at a location.
type ModuleAssignment struct {
	ModuleID uint   `json:"module_id" validate:"required"`
	RoleID   uint   `json:"role_id"   validate:"required"`
	Location string `json:"location"`
}

// Request is one account of a bulk run.
type Request struct {
	Profile     Profile            `json:"profile"`
	Assignments []ModuleAssignment `json:"assignments"`
}

// Provisioner is the top-level entry point for account provisioning.
type Provisioner struct {
	db        *gorm.DB
	dir       Directory
	ext       External
	locations []string
}

// New creates a Provisioner. locations are the codes the "all" sentinel expands to.
func New(db *gorm.DB, dir Directory, ext External, locations []string) *Provisioner {
	return &Provisioner{db: db, dir: dir, ext: ext, locations: locations}
}

func (p *Provisioner) store() *store.Store {
	return store.New(p.db)
}

func (p *Provisioner) assigner(st *store.Store) *Assigner {
	return NewAssigner(st, ledger.New(st.DB()), p.dir, p.ext)
}

// Provision creates or updates the account, links it to the directory and assigns every
// requested module, all inside one local transaction.
//
// A directory linkage failure fails the run and rolls back local writes. Module failures
// are committed and reported through PartialFailure with Success still true.
func (p *Provisioner) Provision(ctx context.Context, profile Profile, assignments []ModuleAssignment) *Result {
	res := &Result{
		RunID:   uuid.NewString(),
		Modules: map[uint]*ModuleResult{},
		Errors:  []string{},
	}

	logger := log.With().Str("run_id", res.RunID).Str("employee_id", profile.EmployeeID).Logger()
	ctx = logger.WithContext(ctx)

	defer func() {
		provisioningRuns.WithLabelValues(runLabel(res)).Inc()
	}()

	if err := validateProfile(profile); err != nil {
		res.fail(err)
		logger.Warn().Err(err).Msg("provisioning rejected")

		return res
	}

	err := p.store().Transaction(ctx, func(tx *store.Store) error {
		if err := checkCompany(ctx, tx, profile.CompanyID); err != nil {
			return err
		}

		account, err := tx.UpsertAccount(ctx, profileAccount(profile))
		if err != nil {
			return fmt.Errorf("upsert account: %w", err)
		}

		link, err := p.link(ctx, tx, account)
		if err != nil {
			return err
		}
		res.Directory = link

		if account, err = tx.AccountByID(ctx, account.ID); err != nil {
			return err
		}
		res.Account = account

		assigner := p.assigner(tx)
		for _, req := range assignments {
			res.addModule(p.assignOne(ctx, tx, assigner, account, req))
		}

		return nil
	})
	if err != nil {
		res.Account = nil
		res.Directory = nil
		res.Modules = map[uint]*ModuleResult{}
		res.PartialFailure = false
		res.Errors = res.Errors[:0]
		res.fail(err)
		logger.Error().Err(err).Msg("provisioning failed, local changes rolled back")

		return res
	}

	res.Success = true

	logger.Info().
		Bool("partial_failure", res.PartialFailure).
		Int("modules", len(res.Modules)).
		Msg("provisioning finished")

	return res
}

// BulkProvision provisions each request in turn. Every account has its own transaction
// and a failed account does not stop the batch.
func (p *Provisioner) BulkProvision(ctx context.Context, requests []Request) []*Result {
	out := make([]*Result, 0, len(requests))

	for _, r := range requests {
		out = append(out, p.Provision(ctx, r.Profile, r.Assignments))
	}

	return out
}

// ResolveAssignments expands raw request rows and resolves module codes and role names to ids.
// A row that expands to nothing, such as "all" locations with none configured, is rejected.
func (p *Provisioner) ResolveAssignments(ctx context.Context, rows []RawAssignment) ([]ModuleAssignment, error) {
	st := p.store()

	modules, err := st.Modules(ctx)
	if err != nil {
		return nil, err
	}

	roles, err := st.Roles(ctx)
	if err != nil {
		return nil, err
	}

	moduleCodes := make([]string, 0, len(modules))
	for _, m := range modules {
		moduleCodes = append(moduleCodes, m.Code)
	}

	roleNames := make([]string, 0, len(roles))
	for _, r := range roles {
		roleNames = append(roleNames, r.Name)
	}

	for i, row := range rows {
		if len(ExpandAssignmentRequests([]RawAssignment{row}, p.locations, moduleCodes, roleNames)) == 0 {
			return nil, fmt.Errorf("%w: assignment row %d expands to no assignment", ErrValidation, i)
		}
	}

	var (
		moduleIDs = map[string]uint{}
		roleIDs   = map[string]uint{}
	)

	expanded := ExpandAssignmentRequests(rows, p.locations, moduleCodes, roleNames)
	out := make([]ModuleAssignment, 0, len(expanded))

	for _, e := range expanded {
		moduleID, ok := moduleIDs[strings.ToUpper(e.Module)]
		if !ok {
			module, err := st.ModuleByCode(ctx, e.Module)
			if errors.Is(err, store.ErrModuleNotFound) {
				return nil, fmt.Errorf("%w: %s", ErrModuleNotFound, e.Module)
			}
			if err != nil {
				return nil, err
			}
			moduleID = module.ID
			moduleIDs[strings.ToUpper(e.Module)] = moduleID
		}

		roleID, ok := roleIDs[strings.ToLower(e.Role)]
		if !ok {
			role, err := st.RoleByName(ctx, e.Role)
			if errors.Is(err, store.ErrRoleNotFound) {
				return nil, fmt.Errorf("%w: unknown role %s", ErrValidation, e.Role)
			}
			if err != nil {
				return nil, err
			}
			roleID = role.ID
			roleIDs[strings.ToLower(e.Role)] = roleID
		}

		out = append(out, ModuleAssignment{ModuleID: moduleID, RoleID: roleID, Location: e.Location})
	}

	return out, nil
}

// RetryPendingAccounts re-runs directory linkage for every account without a confirmed link.
func (p *Provisioner) RetryPendingAccounts(ctx context.Context) ([]*Result, error) {
	accounts, err := p.store().PendingAccounts(ctx)
	if err != nil {
		return nil, err
	}

	out := make([]*Result, 0, len(accounts))
	for i := range accounts {
		out = append(out, p.Provision(ctx, accountProfile(&accounts[i]), nil))
	}

	return out, nil
}

// RetryFailedModuleAssignments re-runs every failed ledger row of the account with the
// module, role and location stored in the row.
func (p *Provisioner) RetryFailedModuleAssignments(ctx context.Context, accountID uint64) ([]*ModuleResult, error) {
	st := p.store()

	account, err := p.account(ctx, st, accountID)
	if err != nil {
		return nil, err
	}

	logger := log.With().Str("run_id", uuid.NewString()).Str("employee_id", account.EmployeeID).Logger()
	ctx = logger.WithContext(ctx)

	entries, err := ledger.New(st.DB()).Failed(ctx, accountID)
	if err != nil {
		return nil, err
	}

	assigner := p.assigner(st)
	out := make([]*ModuleResult, 0, len(entries))

	for _, e := range entries {
		out = append(out, p.assignOne(ctx, st, assigner, account, ModuleAssignment{
			ModuleID: e.ModuleID,
			RoleID:   e.RoleID,
			Location: e.Location,
		}))
	}

	logger.Info().Int("retried", len(out)).Msg("failed module assignments retried")

	return out, nil
}

// RetryAll retries pending accounts, then the failed module assignments of every account.
func (p *Provisioner) RetryAll(ctx context.Context) ([]*Result, map[uint64][]*ModuleResult, error) {
	accounts, err := p.RetryPendingAccounts(ctx)
	if err != nil {
		return nil, nil, err
	}

	ids, err := p.store().AccountIDsWithFailedAssignments(ctx)
	if err != nil {
		return accounts, nil, err
	}

	modules := make(map[uint64][]*ModuleResult, len(ids))
	for _, id := range ids {
		results, err := p.RetryFailedModuleAssignments(ctx, id)
		if err != nil {
			return accounts, modules, err
		}
		modules[id] = results
	}

	return accounts, modules, nil
}

// UpdateAccount applies patch locally, then mirrors it to the directory.
// A directory failure is logged and does not fail the update.
func (p *Provisioner) UpdateAccount(ctx context.Context, accountID uint64, patch AccountPatch) (*models.Account, error) {
	columns, err := patch.columns()
	if err != nil {
		return nil, err
	}

	var account *models.Account

	err = p.store().Transaction(ctx, func(tx *store.Store) error {
		if _, err := p.account(ctx, tx, accountID); err != nil {
			return err
		}
		if err := tx.UpdateAccount(ctx, accountID, columns); err != nil {
			return err
		}

		var err error
		account, err = tx.AccountByID(ctx, accountID)

		return err
	})
	if err != nil {
		return nil, err
	}

	if fields := patch.directoryFields(); account.IsProvisioned() && len(fields) > 0 {
		p.mirror(ctx, account, "update", func() error {
			return p.dir.UpdateAccount(ctx, *account.DirectoryID, fields)
		})
	}

	return account, nil
}

// DisableAccount marks the account inactive, then disables it in the directory and revokes
// its sessions. Directory failures are logged only; local state is authoritative.
func (p *Provisioner) DisableAccount(ctx context.Context, accountID uint64) (*models.Account, error) {
	account, err := p.setStatus(ctx, accountID, func(*models.Account) models.AccountStatus {
		return models.AccountStatusInactive
	})
	if err != nil {
		return nil, err
	}

	if account.IsProvisioned() {
		p.mirror(ctx, account, "disable", func() error {
			return p.dir.DisableAccount(ctx, *account.DirectoryID)
		})
		p.mirror(ctx, account, "revoke sessions", func() error {
			return p.dir.RevokeSessions(ctx, *account.DirectoryID)
		})
	}

	return account, nil
}

// EnableAccount reactivates the account and enables it in the directory.
// An account without directory linkage goes back to pending.
func (p *Provisioner) EnableAccount(ctx context.Context, accountID uint64) (*models.Account, error) {
	account, err := p.setStatus(ctx, accountID, func(a *models.Account) models.AccountStatus {
		if a.IsProvisioned() {
			return models.AccountStatusActive
		}
		return models.AccountStatusPending
	})
	if err != nil {
		return nil, err
	}

	if account.IsProvisioned() {
		p.mirror(ctx, account, "enable", func() error {
			return p.dir.EnableAccount(ctx, *account.DirectoryID)
		})
	}

	return account, nil
}

// RemoveModule revokes a module from the account and deletes its ledger row.
func (p *Provisioner) RemoveModule(ctx context.Context, accountID uint64, moduleID uint) error {
	st := p.store()

	account, err := p.account(ctx, st, accountID)
	if err != nil {
		return err
	}

	module, err := p.module(ctx, st, moduleID)
	if err != nil {
		return err
	}

	return p.assigner(st).Remove(ctx, account, module)
}

// PurgeAccount removes every module assignment, deletes the directory account and then
// hard deletes the local rows. It is an operator action outside normal flows and stops at
// the first directory failure so it can be re-run.
func (p *Provisioner) PurgeAccount(ctx context.Context, accountID uint64) error {
	st := p.store()

	account, err := p.account(ctx, st, accountID)
	if err != nil {
		return err
	}

	logger := log.With().Str("employee_id", account.EmployeeID).Logger()
	ctx = logger.WithContext(ctx)

	entries, err := ledger.New(st.DB()).ForAccount(ctx, accountID)
	if err != nil {
		return err
	}

	assigner := p.assigner(st)
	for _, e := range entries {
		module, err := p.module(ctx, st, e.ModuleID)
		if err != nil {
			return err
		}
		if err := assigner.Remove(ctx, account, module); err != nil {
			return fmt.Errorf("remove module %s: %w", module.Code, err)
		}
	}

	if account.IsProvisioned() {
		if err := p.dir.DeleteAccount(ctx, *account.DirectoryID); err != nil && !directory.IsNotFound(err) {
			logger.Error().Err(err).Msg("directory account deletion failed")
			return err
		}
	}

	if err := st.DeleteAccount(ctx, accountID); err != nil {
		return err
	}

	logger.Warn().Msg("account purged")

	return nil
}

// link establishes the directory linkage of account inside the run transaction.
func (p *Provisioner) link(ctx context.Context, tx *store.Store, account *models.Account) (*DirectoryLink, error) {
	logger := zerolog.Ctx(ctx)

	if account.IsProvisioned() {
		fields := map[string]any{"displayName": account.Name}
		if account.Email != "" {
			fields["mail"] = account.Email
		}
		if account.Phone != "" {
			fields["mobilePhone"] = account.Phone
		}
		if account.Location != "" {
			fields["officeLocation"] = account.Location
		}

		if err := p.dir.UpdateAccount(ctx, *account.DirectoryID, fields); err != nil {
			return nil, fmt.Errorf("update directory account: %w", err)
		}

		if err := tx.UpdateAccount(ctx, account.ID, map[string]any{
			"directory_display_name": account.Name,
			"status":                 activeUnlessInactive(account),
		}); err != nil {
			return nil, err
		}

		return &DirectoryLink{
			ID:            *account.DirectoryID,
			PrincipalName: deref(account.DirectoryPrincipalName),
			DisplayName:   account.Name,
		}, nil
	}

	created, err := p.dir.CreateAccount(ctx, directory.Profile{
		EmployeeID: account.EmployeeID,
		Name:       account.Name,
		Email:      account.Email,
		Phone:      account.Phone,
		Location:   account.Location,
	})

	switch {
	case err == nil:
		if err := tx.LinkDirectory(ctx, account.ID, created.ID, created.PrincipalName, created.DisplayName); err != nil {
			return nil, err
		}

		logger.Info().Str("principal_name", created.PrincipalName).Msg("directory account created")

		return &DirectoryLink{
			ID:                created.ID,
			PrincipalName:     created.PrincipalName,
			DisplayName:       created.DisplayName,
			Created:           true,
			TemporaryPassword: created.TemporaryPassword,
		}, nil

	case directory.IsPrincipalNameConflict(err):
		logger.Warn().Err(err).Msg("principal name taken, looking up existing directory account")

		existing, err := p.findExisting(ctx, account)
		if err != nil {
			return nil, err
		}

		if err := claimDirectoryID(ctx, tx, account, existing.ID); err != nil {
			return nil, err
		}

		if err := tx.LinkDirectory(ctx, account.ID, existing.ID, existing.PrincipalName, existing.DisplayName); err != nil {
			return nil, err
		}

		logger.Info().Str("principal_name", existing.PrincipalName).Msg("linked existing directory account")

		return &DirectoryLink{
			ID:             existing.ID,
			PrincipalName:  existing.PrincipalName,
			DisplayName:    existing.DisplayName,
			LinkedExisting: true,
		}, nil

	default:
		return nil, fmt.Errorf("create directory account: %w", err)
	}
}

// findExisting resolves a principal name conflict by the account email. The generated
// principal name is never looked up: it is the name that conflicted and may belong to
// another employee.
func (p *Provisioner) findExisting(ctx context.Context, account *models.Account) (*directory.Account, error) {
	if account.Email == "" {
		return nil, fmt.Errorf("%w: account has no email", ErrDirectoryAccountNotFound)
	}

	found, err := p.dir.FindAccountByPrincipalName(ctx, account.Email)
	if err != nil {
		return nil, fmt.Errorf("look up directory account: %w", err)
	}
	if found == nil {
		return nil, fmt.Errorf("%w: %s", ErrDirectoryAccountNotFound, account.Email)
	}

	return found, nil
}

// claimDirectoryID fails when another local account already holds directoryID.
func claimDirectoryID(ctx context.Context, tx *store.Store, account *models.Account, directoryID string) error {
	holder, err := tx.AccountByDirectoryID(ctx, directoryID)
	switch {
	case errors.Is(err, store.ErrAccountNotFound):
		return nil
	case err != nil:
		return err
	case holder.ID != account.ID:
		return fmt.Errorf("%w: %s is linked to employee %s", ErrDirectoryAccountInUse, directoryID, holder.EmployeeID)
	}

	return nil
}

func (p *Provisioner) assignOne(
	ctx context.Context,
	st *store.Store,
	assigner *Assigner,
	account *models.Account,
	req ModuleAssignment,
) *ModuleResult {
	module, err := p.module(ctx, st, req.ModuleID)
	if err != nil {
		res := newModuleResult(&models.Module{ID: req.ModuleID}, req.RoleID, req.Location)
		res.addError(err)
		zerolog.Ctx(ctx).Warn().Err(err).Uint("module_id", req.ModuleID).Msg("module assignment rejected")

		return res
	}

	return assigner.Assign(ctx, account, module, req.RoleID, req.Location)
}

func (p *Provisioner) setStatus(
	ctx context.Context,
	accountID uint64,
	next func(*models.Account) models.AccountStatus,
) (*models.Account, error) {
	var account *models.Account

	err := p.store().Transaction(ctx, func(tx *store.Store) error {
		current, err := p.account(ctx, tx, accountID)
		if err != nil {
			return err
		}

		if err := tx.UpdateAccount(ctx, accountID, map[string]any{"status": next(current)}); err != nil {
			return err
		}

		account, err = tx.AccountByID(ctx, accountID)

		return err
	})

	return account, err
}

// mirror runs a directory call whose failure must not fail the local operation.
func (p *Provisioner) mirror(ctx context.Context, account *models.Account, op string, fn func() error) {
	if err := fn(); err != nil {
		log.Ctx(ctx).Warn().
			Err(err).
			Str("employee_id", account.EmployeeID).
			Str("op", op).
			Msg("directory state lags local state")
	}
}

func (p *Provisioner) account(ctx context.Context, st *store.Store, id uint64) (*models.Account, error) {
	account, err := st.AccountByID(ctx, id)
	if errors.Is(err, store.ErrAccountNotFound) {
		return nil, fmt.Errorf("%w: %d", ErrAccountNotFound, id)
	}

	return account, err
}

func (p *Provisioner) module(ctx context.Context, st *store.Store, id uint) (*models.Module, error) {
	module, err := st.ModuleByID(ctx, id)
	if errors.Is(err, store.ErrModuleNotFound) {
		return nil, fmt.Errorf("%w: %d", ErrModuleNotFound, id)
	}

	return module, err
}

func validateProfile(p Profile) error {
	if strings.TrimSpace(p.EmployeeID) == "" {
		return fmt.Errorf("%w: employee id is required", ErrValidation)
	}
	if strings.TrimSpace(p.Name) == "" {
		return fmt.Errorf("%w: name is required", ErrValidation)
	}

	return nil
}

func checkCompany(ctx context.Context, tx *store.Store, id *uint) error {
	if id == nil {
		return nil
	}

	_, err := tx.CompanyByID(ctx, *id)
	if errors.Is(err, store.ErrCompanyNotFound) {
		return fmt.Errorf("%w: unknown company %d", ErrValidation, *id)
	}

	return err
}

func profileAccount(p Profile) *models.Account {
	return &models.Account{
		EmployeeID: strings.TrimSpace(p.EmployeeID),
		Name:       strings.TrimSpace(p.Name),
		Email:      strings.TrimSpace(p.Email),
		Phone:      p.Phone,
		Location:   p.Location,
		CompanyID:  p.CompanyID,
		Status:     models.AccountStatusPending,
	}
}

func accountProfile(a *models.Account) Profile {
	return Profile{
		EmployeeID: a.EmployeeID,
		Name:       a.Name,
		Email:      a.Email,
		Phone:      a.Phone,
		Location:   a.Location,
		CompanyID:  a.CompanyID,
	}
}

func activeUnlessInactive(a *models.Account) models.AccountStatus {
	if a.Status == models.AccountStatusInactive {
		return models.AccountStatusInactive
	}

	return models.AccountStatusActive
}
