package provisioning

import (
	"errors"

	"github.com/staffgate/staffgate/internal/db/models"
)

// StepStatus is the outcome of one module step.
type StepStatus string

const (
	StepSkipped   StepStatus = "skipped"
	StepSucceeded StepStatus = "succeeded"
	StepFailed    StepStatus = "failed"
)

// Step records the outcome of the group, app role or external API step.
type Step struct {
	Status StepStatus `json:"status"`
	Error  string     `json:"error,omitempty"`
	Err    error      `json:"-"`
}

func skipped() Step   { return Step{Status: StepSkipped} }
func succeeded() Step { return Step{Status: StepSucceeded} }

func failed(err error) Step {
	return Step{Status: StepFailed, Error: err.Error(), Err: err}
}

// Failed reports whether the step was attempted and failed.
func (s Step) Failed() bool {
	return s.Status == StepFailed
}

// ModuleResult is the outcome of one module assignment attempt. It is not persisted.
type ModuleResult struct {
	ModuleID    uint              `json:"module_id"`
	ModuleCode  string            `json:"module_code"`
	RoleID      uint              `json:"role_id"`
	Location    string            `json:"location,omitempty"`
	Success     bool              `json:"success"`
	Group       Step              `json:"group"`
	AppRole     Step              `json:"app_role"`
	ExternalAPI Step              `json:"external_api"`
	ExternalID  *string           `json:"external_id,omitempty"`
	SyncStatus  models.SyncStatus `json:"sync_status,omitempty"`
	Errors      []string          `json:"errors,omitempty"`

	errs []error
}

func newModuleResult(module *models.Module, roleID uint, location string) *ModuleResult {
	return &ModuleResult{
		ModuleID:    module.ID,
		ModuleCode:  module.Code,
		RoleID:      roleID,
		Location:    location,
		Group:       skipped(),
		AppRole:     skipped(),
		ExternalAPI: skipped(),
	}
}

func (r *ModuleResult) addError(err error) {
	r.errs = append(r.errs, err)
	r.Errors = append(r.Errors, err.Error())
}

// Err joins every error collected during the attempt.
func (r *ModuleResult) Err() error {
	return errors.Join(r.errs...)
}

// DirectoryLink describes how the account was linked to the directory in a run.
type DirectoryLink struct {
	ID            string `json:"id"`
	PrincipalName string `json:"principal_name"`
	DisplayName   string `json:"display_name"`
	Created       bool   `json:"created"`
	// LinkedExisting is set when a principal name conflict was resolved to an existing account.
	LinkedExisting bool `json:"linked_existing"`
	// TemporaryPassword is only set for newly created accounts and is never persisted.
	TemporaryPassword string `json:"temporary_password,omitempty"`
}

// Result is the consolidated outcome of a provisioning run.
type Result struct {
	RunID          string                 `json:"run_id"`
	Success        bool                   `json:"success"`
	PartialFailure bool                   `json:"partial_failure"`
	Account        *models.Account        `json:"account,omitempty"`
	Directory      *DirectoryLink         `json:"directory,omitempty"`
	Modules        map[uint]*ModuleResult `json:"modules"`
	Errors         []string               `json:"errors"`

	err error
}

// Err returns the error that failed the run, or nil.
func (r *Result) Err() error {
	return r.err
}

func (r *Result) fail(err error) {
	r.Success = false
	r.err = err
	r.Errors = append(r.Errors, err.Error())
}

func (r *Result) addModule(mr *ModuleResult) {
	r.Modules[mr.ModuleID] = mr

	if !mr.Success || mr.SyncStatus == models.SyncStatusFailed {
		r.PartialFailure = true
	}

	for _, e := range mr.Errors {
		r.Errors = append(r.Errors, mr.ModuleCode+": "+e)
	}
}
