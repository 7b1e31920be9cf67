package provisioning

import (
	"context"

	"github.com/staffgate/staffgate/internal/db/models"
	"github.com/staffgate/staffgate/internal/directory"
)

// Directory is the directory client surface the orchestrators use.
// *directory.Client implements it.
type Directory interface {
	Domain() string
	CreateAccount(ctx context.Context, p directory.Profile) (*directory.Account, error)
	FindAccountByPrincipalName(ctx context.Context, principalName string) (*directory.Account, error)
	UpdateAccount(ctx context.Context, id string, fields map[string]any) error
	DisableAccount(ctx context.Context, id string) error
	EnableAccount(ctx context.Context, id string) error
	DeleteAccount(ctx context.Context, id string) error
	RevokeSessions(ctx context.Context, id string) error
	AddGroupMember(ctx context.Context, groupID, accountID string) error
	RemoveGroupMember(ctx context.Context, groupID, accountID string) error
	ListAppRoles(ctx context.Context, appID string) ([]directory.AppRole, error)
	AssignAppRole(ctx context.Context, appID, accountID, appRoleID string) (*directory.AppRoleAssignment, error)
	ListAccountAppRoleAssignments(ctx context.Context, accountID string) ([]directory.AppRoleAssignment, error)
	RemoveAppRoleAssignment(ctx context.Context, accountID, assignmentID string) error
}

// External is the third-party provisioning client surface. *external.Client implements it.
type External interface {
	Provision(ctx context.Context, module *models.Module, payload map[string]any) (*string, error)
}
