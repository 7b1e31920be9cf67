package provisioning

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/staffgate/staffgate/internal/db/controller/store"
	"github.com/staffgate/staffgate/internal/db/dbtest"
	"github.com/staffgate/staffgate/internal/db/models"
	"github.com/staffgate/staffgate/internal/directory"
	"github.com/staffgate/staffgate/internal/external"
	"github.com/staffgate/staffgate/internal/ledger"
)

type env struct {
	db  *gorm.DB
	f   dbtest.Fixture
	dir *fakeDirectory
	ext *fakeExternal
	p   *Provisioner
}

func newEnv(t *testing.T) *env {
	t.Helper()

	db := dbtest.Open(t)
	e := &env{
		db:  db,
		f:   dbtest.Seed(t, db),
		dir: newFakeDirectory(),
		ext: &fakeExternal{},
	}
	e.p = New(db, e.dir, e.ext, []string{"KEN", "UGA"})

	return e
}

func (e *env) mapGroup(t *testing.T, module models.Module, role models.Role, group string) {
	t.Helper()

	require.NoError(t, e.db.Create(&models.RoleGroupMapping{
		ModuleID:           module.ID,
		RoleID:             role.ID,
		DirectoryGroupID:   group,
		DirectoryGroupName: group,
	}).Error)
}

func (e *env) module(t *testing.T, m models.Module) models.Module {
	t.Helper()

	require.NoError(t, e.db.Create(&m).Error)

	return m
}

func (e *env) entry(t *testing.T, accountID uint64, moduleID uint) *models.Assignment {
	t.Helper()

	a, err := ledger.New(e.db).Get(context.Background(), accountID, moduleID)
	require.NoError(t, err)

	return a
}

func (e *env) count(t *testing.T, model any) int64 {
	t.Helper()

	var n int64
	require.NoError(t, e.db.Model(model).Count(&n).Error)

	return n
}

var ana = Profile{EmployeeID: "EMP100", Name: "Ana Silva", Email: "ana.silva@co.com"}

func strPtr(s string) *string { return &s }

func TestProvisionEndToEnd(t *testing.T) {
	e := newEnv(t)
	e.mapGroup(t, e.f.SCM, e.f.Manager, "G1")

	res := e.p.Provision(context.Background(), ana, []ModuleAssignment{
		{ModuleID: e.f.SCM.ID, RoleID: e.f.Manager.ID, Location: "KEN"},
	})

	require.True(t, res.Success, res.Errors)
	assert.False(t, res.PartialFailure)
	assert.Empty(t, res.Errors)
	assert.NotEmpty(t, res.RunID)

	require.NotNil(t, res.Directory)
	assert.True(t, res.Directory.Created)
	assert.Equal(t, "ana.silva@co.com", res.Directory.PrincipalName)
	assert.Equal(t, "Temp0rary!pass", res.Directory.TemporaryPassword)

	require.NotNil(t, res.Account)
	assert.Equal(t, models.AccountStatusActive, res.Account.Status)
	assert.True(t, res.Account.IsProvisioned())

	mr := res.Modules[e.f.SCM.ID]
	require.NotNil(t, mr)
	assert.True(t, mr.Success)
	assert.Equal(t, StepSucceeded, mr.Group.Status)
	assert.Equal(t, StepSkipped, mr.AppRole.Status)
	assert.Equal(t, StepSkipped, mr.ExternalAPI.Status)
	assert.Equal(t, models.SyncStatusSynced, mr.SyncStatus)

	entry := e.entry(t, res.Account.ID, e.f.SCM.ID)
	assert.Equal(t, models.SyncStatusSynced, entry.SyncStatus)
	assert.Nil(t, entry.ExternalID)
	assert.Equal(t, "KEN", entry.Location)
	assert.NotNil(t, entry.LastSyncedAt)

	assert.True(t, e.dir.isMember("G1", *res.Account.DirectoryID))
}

func TestProvisionMissingMapping(t *testing.T) {
	e := newEnv(t)

	res := e.p.Provision(context.Background(), ana, []ModuleAssignment{
		{ModuleID: e.f.SCM.ID, RoleID: e.f.Manager.ID, Location: "KEN"},
	})

	assert.True(t, res.Success)
	assert.True(t, res.PartialFailure)

	mr := res.Modules[e.f.SCM.ID]
	require.NotNil(t, mr)
	assert.False(t, mr.Success)
	require.ErrorIs(t, mr.Group.Err, ErrMappingNotFound)
	require.ErrorIs(t, mr.Err(), ErrMappingNotFound)

	entry := e.entry(t, res.Account.ID, e.f.SCM.ID)
	assert.Equal(t, models.SyncStatusFailed, entry.SyncStatus)
	require.NotNil(t, entry.LastError)
	assert.Contains(t, *entry.LastError, ErrMappingNotFound.Error())

	assert.Zero(t, e.dir.called("add_group"))
}

func TestProvisionIdempotentAccountUpsert(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()

	first := e.p.Provision(ctx, ana, nil)
	require.True(t, first.Success)

	renamed := ana
	renamed.Name = "Ana Maria Silva"
	second := e.p.Provision(ctx, renamed, nil)
	require.True(t, second.Success, second.Errors)

	assert.Equal(t, first.Account.ID, second.Account.ID)
	assert.Equal(t, "Ana Maria Silva", second.Account.Name)
	assert.Equal(t, int64(1), e.count(t, &models.Account{}))

	assert.Equal(t, 1, e.dir.called("create"))
	assert.Equal(t, 1, e.dir.called("update"))
	assert.False(t, second.Directory.Created)
	assert.Equal(t, *first.Account.DirectoryID, second.Directory.ID)

	updates := e.dir.updated[*first.Account.DirectoryID]
	require.Len(t, updates, 1)
	assert.Equal(t, "Ana Maria Silva", updates[0]["displayName"])
}

func TestProvisionLedgerUniqueness(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	e.mapGroup(t, e.f.SCM, e.f.Manager, "G1")
	e.mapGroup(t, e.f.SCM, e.f.Officer, "G2")

	first := e.p.Provision(ctx, ana, []ModuleAssignment{{ModuleID: e.f.SCM.ID, RoleID: e.f.Manager.ID, Location: "KEN"}})
	require.True(t, first.Success)

	second := e.p.Provision(ctx, ana, []ModuleAssignment{{ModuleID: e.f.SCM.ID, RoleID: e.f.Officer.ID, Location: "KEN"}})
	require.True(t, second.Success)
	assert.False(t, second.PartialFailure)

	assert.Equal(t, int64(1), e.count(t, &models.Assignment{}))

	entry := e.entry(t, first.Account.ID, e.f.SCM.ID)
	assert.Equal(t, e.f.Officer.ID, entry.RoleID)
	assert.Equal(t, models.SyncStatusSynced, entry.SyncStatus)
	assert.True(t, e.dir.isMember("G2", *first.Account.DirectoryID))
}

func TestProvisionRerunSyncedAssignment(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	e.mapGroup(t, e.f.SCM, e.f.Manager, "G1")

	req := []ModuleAssignment{{ModuleID: e.f.SCM.ID, RoleID: e.f.Manager.ID, Location: "KEN"}}

	for range 2 {
		res := e.p.Provision(ctx, ana, req)
		require.True(t, res.Success)
		require.False(t, res.PartialFailure)
		assert.Equal(t, models.SyncStatusSynced, res.Modules[e.f.SCM.ID].SyncStatus)
	}

	assert.Equal(t, 2, e.dir.called("add_group"))
}

func TestPartialFailureIndependence(t *testing.T) {
	e := newEnv(t)
	e.mapGroup(t, e.f.SCM, e.f.Manager, "G1")

	full := e.module(t, models.Module{
		Code:                      "CRM",
		Name:                      "Customer Relations",
		RequiresGroupAssignment:   true,
		RequiresAppRoleAssignment: true,
		DirectoryAppID:            strPtr("sp-crm"),
		APIEndpoint:               strPtr("https://crm.example.com/users"),
	})
	e.mapGroup(t, full, e.f.Manager, "G-CRM")
	e.dir.appRoles["sp-crm"] = []directory.AppRole{{ID: "r-admin", Value: "CRM.ADMIN", DisplayName: "Admin"}}
	e.ext.id = strPtr("crm-77")

	res := e.p.Provision(context.Background(), ana, []ModuleAssignment{
		{ModuleID: full.ID, RoleID: e.f.Manager.ID, Location: "KEN"},
	})

	require.True(t, res.Success)
	assert.True(t, res.PartialFailure)

	mr := res.Modules[full.ID]
	require.NotNil(t, mr)
	assert.Equal(t, StepSucceeded, mr.Group.Status)
	assert.Equal(t, StepFailed, mr.AppRole.Status)
	require.ErrorIs(t, mr.AppRole.Err, ErrAppRoleNotFound)
	assert.Equal(t, StepSucceeded, mr.ExternalAPI.Status)
	assert.False(t, mr.Success)

	entry := e.entry(t, res.Account.ID, full.ID)
	assert.Equal(t, models.SyncStatusFailed, entry.SyncStatus)
	require.NotNil(t, entry.LastError)
	assert.Contains(t, *entry.LastError, "app role")

	call := e.ext.lastCall()
	assert.Equal(t, "CRM", call.Module)
	assert.Equal(t, "KEN", call.Payload["territory"])
	assert.Equal(t, "ana.silva@co.com", call.Payload["principal_name"])
}

func TestAppRoleMatching(t *testing.T) {
	tests := []struct {
		name   string
		roles  []directory.AppRole
		expect string
		ok     bool
	}{
		{
			name:   "exact module role value",
			roles:  []directory.AppRole{{ID: "u", Value: "User"}, {ID: "m", Value: "SCM.MGR"}},
			expect: "m",
			ok:     true,
		},
		{name: "fallback by value", roles: []directory.AppRole{{ID: "x", Value: "SCM.OFF"}, {ID: "u", Value: "User"}}, expect: "u", ok: true},
		{name: "fallback by display name", roles: []directory.AppRole{{ID: "d", DisplayName: "User"}}, expect: "d", ok: true},
		{name: "none", roles: []directory.AppRole{{ID: "x", Value: "Admin"}}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			id, ok := matchAppRole(tt.roles, "SCM.MGR")
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.expect, id)
		})
	}
}

func TestAppRoleAssigned(t *testing.T) {
	e := newEnv(t)
	mod := e.module(t, models.Module{
		Code:                      "HR",
		Name:                      "HR Portal",
		RequiresAppRoleAssignment: true,
		DirectoryAppID:            strPtr("sp-hr"),
	})
	e.dir.appRoles["sp-hr"] = []directory.AppRole{{ID: "r-user", Value: "User"}, {ID: "r-mgr", Value: "HR.MGR"}}

	res := e.p.Provision(context.Background(), ana, []ModuleAssignment{{ModuleID: mod.ID, RoleID: e.f.Manager.ID}})
	require.True(t, res.Success)
	require.False(t, res.PartialFailure, res.Errors)

	grants := e.dir.grants[*res.Account.DirectoryID]
	require.Len(t, grants, 1)
	assert.Equal(t, "r-mgr", grants[0].AppRoleID)
	assert.Equal(t, "sp-hr", grants[0].ResourceID)
}

func TestExternalFailureMarksLedgerFailed(t *testing.T) {
	e := newEnv(t)
	mod := e.module(t, models.Module{Code: "ERP", Name: "ERP", APIEndpoint: strPtr("https://erp.example.com")})
	e.ext.err = &external.APIError{Module: "ERP", Status: 500, Body: "boom"}

	res := e.p.Provision(context.Background(), ana, []ModuleAssignment{{ModuleID: mod.ID, RoleID: e.f.Officer.ID}})

	require.True(t, res.Success)
	assert.True(t, res.PartialFailure)

	mr := res.Modules[mod.ID]
	assert.True(t, mr.Success, "directory side has nothing to fail")
	assert.Equal(t, StepFailed, mr.ExternalAPI.Status)

	entry := e.entry(t, res.Account.ID, mod.ID)
	assert.Equal(t, models.SyncStatusFailed, entry.SyncStatus)
	require.NotNil(t, entry.LastError)
	assert.Contains(t, *entry.LastError, "status 500")
}

func TestExternalSuccessStoresExternalID(t *testing.T) {
	e := newEnv(t)
	mod := e.module(t, models.Module{Code: "ERP", Name: "ERP", APIEndpoint: strPtr("https://erp.example.com")})
	e.ext.id = strPtr("erp-1")

	res := e.p.Provision(context.Background(), ana, []ModuleAssignment{{ModuleID: mod.ID, RoleID: e.f.Officer.ID}})
	require.True(t, res.Success)
	require.False(t, res.PartialFailure)

	entry := e.entry(t, res.Account.ID, mod.ID)
	require.NotNil(t, entry.ExternalID)
	assert.Equal(t, "erp-1", *entry.ExternalID)
}

func TestPrincipalNameConflictLinksExisting(t *testing.T) {
	e := newEnv(t)
	e.dir.accounts["ana.silva@co.com"] = &directory.Account{
		ID: "dir-existing", PrincipalName: "ana.silva@co.com", DisplayName: "Ana Silva",
	}
	e.dir.createErr = &directory.DirectoryError{
		Op: "create account", Status: 400,
		Body: `{"error":{"message":"Another object with the same value for property userPrincipalName already exists."}}`,
	}
	e.mapGroup(t, e.f.SCM, e.f.Manager, "G1")

	res := e.p.Provision(context.Background(), ana, []ModuleAssignment{
		{ModuleID: e.f.SCM.ID, RoleID: e.f.Manager.ID, Location: "KEN"},
	})

	require.True(t, res.Success, res.Errors)
	assert.False(t, res.PartialFailure)
	assert.True(t, res.Directory.LinkedExisting)
	assert.Empty(t, res.Directory.TemporaryPassword)
	assert.Equal(t, "dir-existing", *res.Account.DirectoryID)
	assert.Equal(t, models.AccountStatusActive, res.Account.Status)
	assert.Equal(t, int64(1), e.count(t, &models.Account{}))
	assert.True(t, e.dir.isMember("G1", "dir-existing"))
}

func TestPrincipalNameConflictSameNameDifferentEmail(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	e.mapGroup(t, e.f.SCM, e.f.Manager, "G1")

	first := e.p.Provision(ctx, ana, nil)
	require.True(t, first.Success, first.Errors)
	require.Equal(t, "dir-1", *first.Account.DirectoryID)

	e.dir.createErr = &directory.DirectoryError{Status: 400, Body: "userPrincipalName already exists"}

	namesake := Profile{EmployeeID: "EMP200", Name: "Ana Silva", Email: "ana.s2@co.com"}
	res := e.p.Provision(ctx, namesake, []ModuleAssignment{
		{ModuleID: e.f.SCM.ID, RoleID: e.f.Manager.ID, Location: "KEN"},
	})

	assert.False(t, res.Success)
	require.ErrorIs(t, res.Err(), ErrDirectoryAccountNotFound)
	assert.Nil(t, res.Directory)
	assert.Equal(t, 1, e.dir.called("find"))
	assert.False(t, e.dir.isMember("G1", "dir-1"))
	assert.Equal(t, int64(1), e.count(t, &models.Account{}))
	assert.Zero(t, e.count(t, &models.Assignment{}))

	_, err := store.New(e.db).AccountByEmployeeID(ctx, "EMP200")
	require.ErrorIs(t, err, store.ErrAccountNotFound)
}

func TestPrincipalNameConflictWithoutEmail(t *testing.T) {
	e := newEnv(t)
	e.dir.createErr = &directory.DirectoryError{Status: 400, Body: "userPrincipalName already exists"}
	e.dir.accounts["ana.silva@co.com"] = &directory.Account{ID: "dir-other", PrincipalName: "ana.silva@co.com"}

	res := e.p.Provision(context.Background(), Profile{EmployeeID: "EMP300", Name: "Ana Silva"}, nil)

	assert.False(t, res.Success)
	require.ErrorIs(t, res.Err(), ErrDirectoryAccountNotFound)
	assert.Zero(t, e.dir.called("find"))
	assert.Zero(t, e.count(t, &models.Account{}))
}

func TestPrincipalNameConflictAccountInUse(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()

	first := e.p.Provision(ctx, ana, nil)
	require.True(t, first.Success, first.Errors)

	e.dir.createErr = &directory.DirectoryError{Status: 400, Body: "userPrincipalName already exists"}

	res := e.p.Provision(ctx, Profile{EmployeeID: "EMP200", Name: "Ana Silva", Email: ana.Email}, nil)

	assert.False(t, res.Success)
	require.ErrorIs(t, res.Err(), ErrDirectoryAccountInUse)
	assert.Equal(t, int64(1), e.count(t, &models.Account{}))

	holder, err := store.New(e.db).AccountByDirectoryID(ctx, "dir-1")
	require.NoError(t, err)
	assert.Equal(t, ana.EmployeeID, holder.EmployeeID)
}

func TestDirectoryFailureRollsBack(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want error
	}{
		{
			name: "conflict without existing account",
			err:  &directory.DirectoryError{Status: 409, Body: "userPrincipalName already exists"},
			want: ErrDirectoryAccountNotFound,
		},
		{
			name: "other directory failure",
			err:  &directory.DirectoryError{Status: 403, Body: "Authorization_RequestDenied"},
		},
		{
			name: "token exchange rejected",
			err:  &directory.AuthError{Err: errors.New("invalid_client")},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := newEnv(t)
			e.dir.createErr = tt.err
			e.mapGroup(t, e.f.SCM, e.f.Manager, "G1")

			res := e.p.Provision(context.Background(), ana, []ModuleAssignment{
				{ModuleID: e.f.SCM.ID, RoleID: e.f.Manager.ID, Location: "KEN"},
			})

			assert.False(t, res.Success)
			assert.False(t, res.PartialFailure)
			assert.Nil(t, res.Account)
			assert.Empty(t, res.Modules)
			require.NotEmpty(t, res.Errors)
			if tt.want != nil {
				require.ErrorIs(t, res.Err(), tt.want)
			} else {
				require.ErrorIs(t, res.Err(), tt.err)
			}

			assert.Zero(t, e.count(t, &models.Account{}))
			assert.Zero(t, e.count(t, &models.Assignment{}))
		})
	}
}

func TestProvisionValidation(t *testing.T) {
	e := newEnv(t)

	res := e.p.Provision(context.Background(), Profile{EmployeeID: " ", Name: "X Y"}, nil)
	assert.False(t, res.Success)
	require.ErrorIs(t, res.Err(), ErrValidation)
	assert.Zero(t, e.dir.called("create"))
}

func TestLocationRequired(t *testing.T) {
	e := newEnv(t)
	mod := e.module(t, models.Module{Code: "WMS", Name: "Warehouse", RequiresLocation: true})

	res := e.p.Provision(context.Background(), ana, []ModuleAssignment{{ModuleID: mod.ID, RoleID: e.f.Manager.ID}})

	require.True(t, res.Success)
	assert.True(t, res.PartialFailure)
	require.ErrorIs(t, res.Modules[mod.ID].Err(), ErrValidation)
	assert.Empty(t, res.Modules[mod.ID].SyncStatus)
	assert.Zero(t, e.count(t, &models.Assignment{}))
}

func TestRoleNotValidForModule(t *testing.T) {
	e := newEnv(t)
	require.NoError(t, e.db.Create(&models.ModuleRole{ModuleID: e.f.HRMS.ID, RoleID: e.f.Officer.ID}).Error)

	res := e.p.Provision(context.Background(), ana, []ModuleAssignment{
		{ModuleID: e.f.HRMS.ID, RoleID: e.f.Manager.ID},
		{ModuleID: 9999, RoleID: e.f.Manager.ID},
	})

	require.True(t, res.Success)
	assert.True(t, res.PartialFailure)
	require.ErrorIs(t, res.Modules[e.f.HRMS.ID].Err(), ErrValidation)
	require.ErrorIs(t, res.Modules[9999].Err(), ErrModuleNotFound)
	assert.Zero(t, e.count(t, &models.Assignment{}))
}

func TestPanicIsRecorded(t *testing.T) {
	e := newEnv(t)
	e.mapGroup(t, e.f.SCM, e.f.Manager, "G1")
	e.dir.panicOn = "add_group"

	res := e.p.Provision(context.Background(), ana, []ModuleAssignment{
		{ModuleID: e.f.SCM.ID, RoleID: e.f.Manager.ID, Location: "KEN"},
		{ModuleID: e.f.HRMS.ID, RoleID: e.f.Officer.ID},
	})

	require.True(t, res.Success)
	assert.True(t, res.PartialFailure)

	scm := res.Modules[e.f.SCM.ID]
	assert.False(t, scm.Success)
	require.ErrorIs(t, scm.Err(), ErrPanic)
	assert.Equal(t, models.SyncStatusFailed, e.entry(t, res.Account.ID, e.f.SCM.ID).SyncStatus)

	hrms := res.Modules[e.f.HRMS.ID]
	assert.True(t, hrms.Success)
	assert.Equal(t, models.SyncStatusSynced, hrms.SyncStatus)
}

func TestRetryFailedResumesFromLedger(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	mod := e.module(t, models.Module{
		Code:                    "SCM2",
		Name:                    "Supply Chain v2",
		RequiresGroupAssignment: true,
		RequiresLocation:        true,
		APIEndpoint:             strPtr("https://scm.example.com"),
	})

	res := e.p.Provision(ctx, ana, []ModuleAssignment{{ModuleID: mod.ID, RoleID: e.f.Officer.ID, Location: "UGA"}})
	require.True(t, res.PartialFailure)
	assert.Equal(t, models.SyncStatusFailed, e.entry(t, res.Account.ID, mod.ID).SyncStatus)

	e.mapGroup(t, mod, e.f.Officer, "G-SCM2-OFF")
	e.ext.id = strPtr("scm-5")

	retried, err := e.p.RetryFailedModuleAssignments(ctx, res.Account.ID)
	require.NoError(t, err)
	require.Len(t, retried, 1)

	mr := retried[0]
	assert.True(t, mr.Success)
	assert.Equal(t, mod.ID, mr.ModuleID)
	assert.Equal(t, e.f.Officer.ID, mr.RoleID)
	assert.Equal(t, "UGA", mr.Location)
	assert.Equal(t, "UGA", e.ext.lastCall().Payload["location"])

	entry := e.entry(t, res.Account.ID, mod.ID)
	assert.Equal(t, models.SyncStatusSynced, entry.SyncStatus)
	assert.Equal(t, "scm-5", *entry.ExternalID)
	assert.True(t, e.dir.isMember("G-SCM2-OFF", *res.Account.DirectoryID))

	again, err := e.p.RetryFailedModuleAssignments(ctx, res.Account.ID)
	require.NoError(t, err)
	assert.Empty(t, again)

	_, err = e.p.RetryFailedModuleAssignments(ctx, 9999)
	require.ErrorIs(t, err, ErrAccountNotFound)
}

func TestRetryPendingAccounts(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()

	_, err := store.New(e.db).UpsertAccount(ctx, &models.Account{EmployeeID: "EMP7", Name: "Joe Bloggs"})
	require.NoError(t, err)

	results, err := e.p.RetryPendingAccounts(ctx)
	require.NoError(t, err)
	require.Len(t, results, 1)
	require.True(t, results[0].Success)
	assert.Equal(t, "joe.bloggs@co.com", results[0].Directory.PrincipalName)

	pending, err := store.New(e.db).PendingAccounts(ctx)
	require.NoError(t, err)
	assert.Empty(t, pending)
}

func TestRetryAll(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()

	res := e.p.Provision(ctx, ana, []ModuleAssignment{{ModuleID: e.f.SCM.ID, RoleID: e.f.Manager.ID}})
	require.True(t, res.PartialFailure)
	e.mapGroup(t, e.f.SCM, e.f.Manager, "G1")

	accounts, modules, err := e.p.RetryAll(ctx)
	require.NoError(t, err)
	assert.Empty(t, accounts)
	require.Len(t, modules[res.Account.ID], 1)
	assert.True(t, modules[res.Account.ID][0].Success)
}

func TestBulkProvision(t *testing.T) {
	e := newEnv(t)

	results := e.p.BulkProvision(context.Background(), []Request{
		{Profile: ana},
		{Profile: Profile{EmployeeID: "", Name: "Broken"}},
		{Profile: Profile{EmployeeID: "EMP200", Name: "Joe Bloggs"}},
	})

	require.Len(t, results, 3)
	assert.True(t, results[0].Success)
	assert.False(t, results[1].Success)
	assert.True(t, results[2].Success)
	assert.Equal(t, int64(2), e.count(t, &models.Account{}))
}

func TestUpdateDisableEnable(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()

	res := e.p.Provision(ctx, ana, nil)
	require.True(t, res.Success)
	id := res.Account.ID
	dirID := *res.Account.DirectoryID

	e.dir.updateErr = errors.New("graph unavailable")
	e.dir.stateErr = errors.New("graph unavailable")

	updated, err := e.p.UpdateAccount(ctx, id, AccountPatch{Phone: Some("+254700000000"), Location: Some("UGA")})
	require.NoError(t, err)
	assert.Equal(t, "+254700000000", updated.Phone)
	assert.Equal(t, "UGA", updated.Location)
	assert.Equal(t, "Ana Silva", updated.Name)

	disabled, err := e.p.DisableAccount(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, models.AccountStatusInactive, disabled.Status)
	assert.Equal(t, dirID, *disabled.DirectoryID)
	assert.Equal(t, 1, e.dir.called("disable"))
	assert.Equal(t, 1, e.dir.called("revoke"))

	enabled, err := e.p.EnableAccount(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, models.AccountStatusActive, enabled.Status)
	assert.Equal(t, dirID, *enabled.DirectoryID)
	assert.Equal(t, 1, e.dir.called("enable"))

	_, err = e.p.UpdateAccount(ctx, id, AccountPatch{Name: Some("")})
	require.ErrorIs(t, err, ErrValidation)

	_, err = e.p.DisableAccount(ctx, 9999)
	require.ErrorIs(t, err, ErrAccountNotFound)
}

func TestEnableUnlinkedAccountGoesPending(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()

	account, err := store.New(e.db).UpsertAccount(ctx, &models.Account{EmployeeID: "EMP7", Name: "Joe Bloggs"})
	require.NoError(t, err)

	_, err = e.p.DisableAccount(ctx, account.ID)
	require.NoError(t, err)

	enabled, err := e.p.EnableAccount(ctx, account.ID)
	require.NoError(t, err)
	assert.Equal(t, models.AccountStatusPending, enabled.Status)
	assert.Zero(t, e.dir.called("enable"))
	assert.Zero(t, e.dir.called("disable"))
}

func TestRemoveModuleAndPurge(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	e.mapGroup(t, e.f.SCM, e.f.Manager, "G1")
	hr := e.module(t, models.Module{
		Code:                      "HR",
		Name:                      "HR Portal",
		RequiresAppRoleAssignment: true,
		DirectoryAppID:            strPtr("sp-hr"),
	})
	e.dir.appRoles["sp-hr"] = []directory.AppRole{{ID: "r-user", Value: "User"}}

	res := e.p.Provision(ctx, ana, []ModuleAssignment{
		{ModuleID: e.f.SCM.ID, RoleID: e.f.Manager.ID, Location: "KEN"},
		{ModuleID: hr.ID, RoleID: e.f.Manager.ID},
	})
	require.True(t, res.Success)
	require.False(t, res.PartialFailure, res.Errors)
	dirID := *res.Account.DirectoryID

	require.NoError(t, e.p.RemoveModule(ctx, res.Account.ID, e.f.SCM.ID))
	assert.False(t, e.dir.isMember("G1", dirID))
	assert.Equal(t, int64(1), e.count(t, &models.Assignment{}))

	require.NoError(t, e.p.RemoveModule(ctx, res.Account.ID, e.f.SCM.ID))

	require.NoError(t, e.p.PurgeAccount(ctx, res.Account.ID))
	assert.Empty(t, e.dir.grants[dirID])
	assert.Equal(t, 1, e.dir.called("delete"))
	assert.Zero(t, e.count(t, &models.Account{}))
	assert.Zero(t, e.count(t, &models.Assignment{}))

	require.ErrorIs(t, e.p.PurgeAccount(ctx, res.Account.ID), ErrAccountNotFound)
}

func TestResolveAssignments(t *testing.T) {
	e := newEnv(t)

	out, err := e.p.ResolveAssignments(context.Background(), []RawAssignment{
		{Modules: []string{"scm"}, Roles: []string{"manager"}, Locations: []string{"all"}},
		{Modules: []string{"HRMS"}, Roles: []string{"Officer"}},
	})
	require.NoError(t, err)

	assert.Equal(t, []ModuleAssignment{
		{ModuleID: e.f.SCM.ID, RoleID: e.f.Manager.ID, Location: "KEN"},
		{ModuleID: e.f.SCM.ID, RoleID: e.f.Manager.ID, Location: "UGA"},
		{ModuleID: e.f.HRMS.ID, RoleID: e.f.Officer.ID},
	}, out)

	_, err = e.p.ResolveAssignments(context.Background(), []RawAssignment{{Modules: []string{"NOPE"}, Roles: []string{"Manager"}}})
	require.ErrorIs(t, err, ErrModuleNotFound)

	_, err = e.p.ResolveAssignments(context.Background(), []RawAssignment{{Modules: []string{"SCM"}, Roles: []string{"Janitor"}}})
	require.ErrorIs(t, err, ErrValidation)
}

func TestResolveAssignmentsRejectsEmptyExpansion(t *testing.T) {
	e := newEnv(t)
	p := New(e.db, e.dir, e.ext, nil)

	_, err := p.ResolveAssignments(context.Background(), []RawAssignment{
		{Modules: []string{"SCM"}, Roles: []string{"Manager"}, Locations: []string{"all"}},
	})
	require.ErrorIs(t, err, ErrValidation)

	out, err := p.ResolveAssignments(context.Background(), []RawAssignment{
		{Modules: []string{"SCM"}, Roles: []string{"Manager"}},
	})
	require.NoError(t, err)
	assert.Equal(t, []ModuleAssignment{{ModuleID: e.f.SCM.ID, RoleID: e.f.Manager.ID}}, out)
}

func TestProvisionUnknownCompany(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()

	missing := uint(999)
	profile := ana
	profile.CompanyID = &missing

	res := e.p.Provision(ctx, profile, nil)
	assert.False(t, res.Success)
	require.ErrorIs(t, res.Err(), ErrValidation)
	assert.Zero(t, e.dir.called("create"))
	assert.Zero(t, e.count(t, &models.Account{}))

	profile.CompanyID = &e.f.Company.ID
	res = e.p.Provision(ctx, profile, nil)
	require.True(t, res.Success, res.Errors)
	require.NotNil(t, res.Account.CompanyID)
	assert.Equal(t, e.f.Company.ID, *res.Account.CompanyID)
}
