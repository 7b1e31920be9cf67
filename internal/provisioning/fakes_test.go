package provisioning

import (
	"context"
	"fmt"
	"net/http"
	"sync"

	"github.com/staffgate/staffgate/internal/db/models"
	"github.com/staffgate/staffgate/internal/directory"
)

type fakeDirectory struct {
	mu sync.Mutex

	domain    string
	nextID    int
	createErr error
	updateErr error
	stateErr  error
	groupErr  error
	panicOn   string

	created  []directory.Profile
	updated  map[string][]map[string]any
	accounts map[string]*directory.Account
	members  map[string]map[string]bool
	appRoles map[string][]directory.AppRole
	grants   map[string][]directory.AppRoleAssignment
	calls    []string
}

func newFakeDirectory() *fakeDirectory {
	return &fakeDirectory{
		domain:   "co.com",
		updated:  map[string][]map[string]any{},
		accounts: map[string]*directory.Account{},
		members:  map[string]map[string]bool{},
		appRoles: map[string][]directory.AppRole{},
		grants:   map[string][]directory.AppRoleAssignment{},
	}
}

func (f *fakeDirectory) record(call string) {
	f.calls = append(f.calls, call)
	if f.panicOn == call {
		panic("fake directory exploded on " + call)
	}
}

func (f *fakeDirectory) called(call string) int {
	f.mu.Lock()
	defer f.mu.Unlock()

	n := 0
	for _, c := range f.calls {
		if c == call {
			n++
		}
	}

	return n
}

func (f *fakeDirectory) Domain() string { return f.domain }

func (f *fakeDirectory) CreateAccount(_ context.Context, p directory.Profile) (*directory.Account, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.record("create")

	if f.createErr != nil {
		return nil, f.createErr
	}

	f.nextID++
	f.created = append(f.created, p)
	acc := &directory.Account{
		ID:                fmt.Sprintf("dir-%d", f.nextID),
		PrincipalName:     directory.PrincipalName(p.Name, p.EmployeeID, f.domain),
		DisplayName:       p.Name,
		TemporaryPassword: "Temp0rary!pass",
	}
	f.accounts[acc.PrincipalName] = acc

	return acc, nil
}

func (f *fakeDirectory) FindAccountByPrincipalName(_ context.Context, upn string) (*directory.Account, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.record("find")

	return f.accounts[upn], nil
}

func (f *fakeDirectory) UpdateAccount(_ context.Context, id string, fields map[string]any) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.record("update")

	if f.updateErr != nil {
		return f.updateErr
	}
	f.updated[id] = append(f.updated[id], fields)

	return nil
}

func (f *fakeDirectory) DisableAccount(context.Context, string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.record("disable")

	return f.stateErr
}

func (f *fakeDirectory) EnableAccount(context.Context, string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.record("enable")

	return f.stateErr
}

func (f *fakeDirectory) DeleteAccount(context.Context, string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.record("delete")

	return f.stateErr
}

func (f *fakeDirectory) RevokeSessions(context.Context, string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.record("revoke")

	return f.stateErr
}

func (f *fakeDirectory) AddGroupMember(_ context.Context, groupID, accountID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.record("add_group")

	if f.groupErr != nil {
		return f.groupErr
	}
	if f.members[groupID] == nil {
		f.members[groupID] = map[string]bool{}
	}
	f.members[groupID][accountID] = true

	return nil
}

func (f *fakeDirectory) RemoveGroupMember(_ context.Context, groupID, accountID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.record("remove_group")

	delete(f.members[groupID], accountID)

	return nil
}

func (f *fakeDirectory) isMember(groupID, accountID string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()

	return f.members[groupID][accountID]
}

func (f *fakeDirectory) ListAppRoles(_ context.Context, appID string) ([]directory.AppRole, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.record("list_app_roles")

	roles, ok := f.appRoles[appID]
	if !ok {
		return nil, &directory.DirectoryError{Op: "list app roles", Status: http.StatusNotFound}
	}

	return roles, nil
}

func (f *fakeDirectory) AssignAppRole(_ context.Context, appID, accountID, appRoleID string) (*directory.AppRoleAssignment, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.record("assign_app_role")

	g := directory.AppRoleAssignment{
		ID:          fmt.Sprintf("grant-%d", len(f.grants[accountID])+1),
		AppRoleID:   appRoleID,
		PrincipalID: accountID,
		ResourceID:  appID,
	}
	f.grants[accountID] = append(f.grants[accountID], g)

	return &g, nil
}

func (f *fakeDirectory) ListAccountAppRoleAssignments(_ context.Context, accountID string) ([]directory.AppRoleAssignment, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.record("list_grants")

	return append([]directory.AppRoleAssignment(nil), f.grants[accountID]...), nil
}

func (f *fakeDirectory) RemoveAppRoleAssignment(_ context.Context, accountID, assignmentID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.record("remove_grant")

	kept := f.grants[accountID][:0]
	for _, g := range f.grants[accountID] {
		if g.ID != assignmentID {
			kept = append(kept, g)
		}
	}
	f.grants[accountID] = kept

	return nil
}

type externalCall struct {
	Module  string
	Payload map[string]any
}

type fakeExternal struct {
	mu    sync.Mutex
	err   error
	id    *string
	calls []externalCall
}

func (f *fakeExternal) Provision(_ context.Context, module *models.Module, payload map[string]any) (*string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.calls = append(f.calls, externalCall{Module: module.Code, Payload: payload})
	if f.err != nil {
		return nil, f.err
	}

	return f.id, nil
}

func (f *fakeExternal) lastCall() externalCall {
	f.mu.Lock()
	defer f.mu.Unlock()

	return f.calls[len(f.calls)-1]
}
