// Package handlertest provides a scriptable provisioner for handler tests.
package handlertest

import (
	"context"
	"sync"

	"github.com/staffgate/staffgate/internal/db/models"
	"github.com/staffgate/staffgate/internal/provisioning"
)

// Stub records calls and returns the configured values.
type Stub struct {
	mu sync.Mutex

	Result         *provisioning.Result
	Results        []*provisioning.Result
	ModuleResults  []*provisioning.ModuleResult
	Account        *models.Account
	Err            error
	ResolveErr     error
	Resolved       []provisioning.ModuleAssignment
	Calls          []string
	LastProfile    provisioning.Profile
	LastRows       []provisioning.RawAssignment
	LastRequests   []provisioning.Request
	LastPatch      provisioning.AccountPatch
	LastAccountID  uint64
	LastModuleID   uint
	LastAssignment []provisioning.ModuleAssignment
}

func (s *Stub) record(call string) {
	s.Calls = append(s.Calls, call)
}

// Called reports whether call was made.
func (s *Stub) Called(call string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, c := range s.Calls {
		if c == call {
			return true
		}
	}

	return false
}

func (s *Stub) Provision(
	_ context.Context,
	profile provisioning.Profile,
	assignments []provisioning.ModuleAssignment,
) *provisioning.Result {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.record("provision")

	s.LastProfile = profile
	s.LastAssignment = assignments

	return s.Result
}

func (s *Stub) BulkProvision(_ context.Context, requests []provisioning.Request) []*provisioning.Result {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.record("bulk")

	s.LastRequests = requests

	return s.Results
}

func (s *Stub) ResolveAssignments(
	_ context.Context,
	rows []provisioning.RawAssignment,
) ([]provisioning.ModuleAssignment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.record("resolve")

	s.LastRows = rows

	return s.Resolved, s.ResolveErr
}

func (s *Stub) RetryPendingAccounts(context.Context) ([]*provisioning.Result, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.record("retry_pending")

	return s.Results, s.Err
}

func (s *Stub) RetryFailedModuleAssignments(_ context.Context, accountID uint64) ([]*provisioning.ModuleResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.record("retry")

	s.LastAccountID = accountID

	return s.ModuleResults, s.Err
}

func (s *Stub) UpdateAccount(
	_ context.Context,
	accountID uint64,
	patch provisioning.AccountPatch,
) (*models.Account, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.record("update")

	s.LastAccountID = accountID
	s.LastPatch = patch

	return s.Account, s.Err
}

func (s *Stub) DisableAccount(_ context.Context, accountID uint64) (*models.Account, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.record("disable")

	s.LastAccountID = accountID

	return s.Account, s.Err
}

func (s *Stub) EnableAccount(_ context.Context, accountID uint64) (*models.Account, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.record("enable")

	s.LastAccountID = accountID

	return s.Account, s.Err
}

func (s *Stub) RemoveModule(_ context.Context, accountID uint64, moduleID uint) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.record("remove_module")

	s.LastAccountID = accountID
	s.LastModuleID = moduleID

	return s.Err
}
