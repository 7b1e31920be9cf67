// Package store provides the gorm repository for accounts and the provisioning catalogue.
package store

import (
	"context"
	"errors"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/staffgate/staffgate/internal/db/models"
)

const (
	idQueryPattern         = "id = ?"
	employeeIDQueryPattern = "employee_id = ?"
)

// Store reads and writes accounts and the module, role and mapping catalogue.
type Store struct {
	db *gorm.DB
}

// New creates a Store over db. db may be a transaction handle.
func New(db *gorm.DB) *Store {
	return &Store{db: db}
}

// DB returns the underlying handle.
func (s *Store) DB() *gorm.DB {
	return s.db
}

// Transaction runs fn with a Store bound to a single database transaction.
// The transaction is rolled back when fn returns an error or panics.
func (s *Store) Transaction(ctx context.Context, fn func(tx *Store) error) error {
	if s.db == nil {
		return ErrDBNil
	}

	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(New(tx))
	})
}

// UpsertAccount creates the account or updates the profile fields of the row with the same employee id.
// Status and directory linkage of an existing row are left untouched.
func (s *Store) UpsertAccount(ctx context.Context, account *models.Account) (*models.Account, error) {
	if s.db == nil {
		return nil, ErrDBNil
	}
	if account.EmployeeID == "" {
		return nil, ErrEmployeeIDEmpty
	}
	if account.Status == "" {
		account.Status = models.AccountStatusPending
	}

	err := s.db.WithContext(ctx).
		Omit(clause.Associations).
		Clauses(clause.OnConflict{
			Columns: []clause.Column{{Name: "employee_id"}},
			DoUpdates: clause.AssignmentColumns([]string{
				"name", "email", "phone", "location", "company_id", "updated_at",
			}),
		}).
		Create(account).Error
	if err != nil {
		return nil, err
	}

	return s.AccountByEmployeeID(ctx, account.EmployeeID)
}

// AccountByID retrieves an account by its ID.
func (s *Store) AccountByID(ctx context.Context, id uint64) (*models.Account, error) {
	if s.db == nil {
		return nil, ErrDBNil
	}

	var account models.Account
	if err := s.db.WithContext(ctx).Where(idQueryPattern, id).First(&account).Error; err != nil {
		return nil, notFound(err, ErrAccountNotFound)
	}

	return &account, nil
}

// AccountByEmployeeID retrieves an account by its employee id.
func (s *Store) AccountByEmployeeID(ctx context.Context, employeeID string) (*models.Account, error) {
	if s.db == nil {
		return nil, ErrDBNil
	}
	if employeeID == "" {
		return nil, ErrEmployeeIDEmpty
	}

	var account models.Account
	if err := s.db.WithContext(ctx).Where(employeeIDQueryPattern, employeeID).First(&account).Error; err != nil {
		return nil, notFound(err, ErrAccountNotFound)
	}

	return &account, nil
}

// AccountByDirectoryID retrieves the account linked to a directory object id.
func (s *Store) AccountByDirectoryID(ctx context.Context, directoryID string) (*models.Account, error) {
	if s.db == nil {
		return nil, ErrDBNil
	}

	var account models.Account
	if err := s.db.WithContext(ctx).Where("directory_id = ?", directoryID).First(&account).Error; err != nil {
		return nil, notFound(err, ErrAccountNotFound)
	}

	return &account, nil
}

// UpdateAccount writes the given columns of an account.
func (s *Store) UpdateAccount(ctx context.Context, id uint64, fields map[string]any) error {
	if s.db == nil {
		return ErrDBNil
	}
	if len(fields) == 0 {
		return nil
	}

	result := s.db.WithContext(ctx).Model(&models.Account{}).Where(idQueryPattern, id).Updates(fields)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrAccountNotFound
	}

	return nil
}

// LinkDirectory stores the directory linkage of an account and activates it.
func (s *Store) LinkDirectory(ctx context.Context, id uint64, directoryID, principalName, displayName string) error {
	return s.UpdateAccount(ctx, id, map[string]any{
		"directory_id":             directoryID,
		"directory_principal_name": principalName,
		"directory_display_name":   displayName,
		"status":                   models.AccountStatusActive,
	})
}

// PendingAccounts lists accounts without a directory linkage, oldest first.
func (s *Store) PendingAccounts(ctx context.Context) ([]models.Account, error) {
	if s.db == nil {
		return nil, ErrDBNil
	}

	var accounts []models.Account
	err := s.db.WithContext(ctx).
		Where("directory_id IS NULL OR directory_id = ''").
		Where("status <> ?", models.AccountStatusInactive).
		Order("id").
		Find(&accounts).Error

	return accounts, err
}

// AccountIDsWithFailedAssignments lists accounts owning at least one failed ledger row.
func (s *Store) AccountIDsWithFailedAssignments(ctx context.Context) ([]uint64, error) {
	if s.db == nil {
		return nil, ErrDBNil
	}

	var ids []uint64
	err := s.db.WithContext(ctx).
		Model(&models.Assignment{}).
		Where("sync_status = ?", models.SyncStatusFailed).
		Distinct("account_id").
		Order("account_id").
		Pluck("account_id", &ids).Error

	return ids, err
}

// DeleteAccount hard deletes an account and its ledger rows.
func (s *Store) DeleteAccount(ctx context.Context, id uint64) error {
	if s.db == nil {
		return ErrDBNil
	}

	if err := s.db.WithContext(ctx).Where("account_id = ?", id).Delete(&models.Assignment{}).Error; err != nil {
		return err
	}

	result := s.db.WithContext(ctx).Delete(&models.Account{}, id)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrAccountNotFound
	}

	return nil
}

// CompanyByID retrieves a company by its ID.
func (s *Store) CompanyByID(ctx context.Context, id uint) (*models.Company, error) {
	if s.db == nil {
		return nil, ErrDBNil
	}

	var company models.Company
	if err := s.db.WithContext(ctx).Where(idQueryPattern, id).First(&company).Error; err != nil {
		return nil, notFound(err, ErrCompanyNotFound)
	}

	return &company, nil
}

// ModuleByID retrieves a module by its ID.
func (s *Store) ModuleByID(ctx context.Context, id uint) (*models.Module, error) {
	if s.db == nil {
		return nil, ErrDBNil
	}

	var module models.Module
	if err := s.db.WithContext(ctx).Where(idQueryPattern, id).First(&module).Error; err != nil {
		return nil, notFound(err, ErrModuleNotFound)
	}

	return &module, nil
}

// ModuleByCode retrieves a module by its code, ignoring case.
func (s *Store) ModuleByCode(ctx context.Context, code string) (*models.Module, error) {
	if s.db == nil {
		return nil, ErrDBNil
	}

	var module models.Module
	if err := s.db.WithContext(ctx).Where("UPPER(code) = UPPER(?)", code).First(&module).Error; err != nil {
		return nil, notFound(err, ErrModuleNotFound)
	}

	return &module, nil
}

// SetModuleCredentials stores already encrypted API credentials on the module with code.
func (s *Store) SetModuleCredentials(ctx context.Context, code, ciphertext string) (*models.Module, error) {
	module, err := s.ModuleByCode(ctx, code)
	if err != nil {
		return nil, err
	}

	if err := s.db.WithContext(ctx).Model(module).Update("api_credentials", ciphertext).Error; err != nil {
		return nil, err
	}

	return module, nil
}

// Modules lists all modules ordered by code.
func (s *Store) Modules(ctx context.Context) ([]models.Module, error) {
	if s.db == nil {
		return nil, ErrDBNil
	}

	var modules []models.Module
	err := s.db.WithContext(ctx).Order("code").Find(&modules).Error

	return modules, err
}

// RoleByID retrieves a role by its ID.
func (s *Store) RoleByID(ctx context.Context, id uint) (*models.Role, error) {
	if s.db == nil {
		return nil, ErrDBNil
	}

	var role models.Role
	if err := s.db.WithContext(ctx).Where(idQueryPattern, id).First(&role).Error; err != nil {
		return nil, notFound(err, ErrRoleNotFound)
	}

	return &role, nil
}

// RoleByName retrieves a role by its display name, ignoring case.
func (s *Store) RoleByName(ctx context.Context, name string) (*models.Role, error) {
	if s.db == nil {
		return nil, ErrDBNil
	}

	var role models.Role
	if err := s.db.WithContext(ctx).Where("LOWER(name) = LOWER(?)", name).First(&role).Error; err != nil {
		return nil, notFound(err, ErrRoleNotFound)
	}

	return &role, nil
}

// Roles lists all roles ordered by name.
func (s *Store) Roles(ctx context.Context) ([]models.Role, error) {
	if s.db == nil {
		return nil, ErrDBNil
	}

	var roles []models.Role
	err := s.db.WithContext(ctx).Order("name").Find(&roles).Error

	return roles, err
}

// ModuleRoleIDs lists the roles declared valid for a module. An empty result means no restriction.
func (s *Store) ModuleRoleIDs(ctx context.Context, moduleID uint) ([]uint, error) {
	if s.db == nil {
		return nil, ErrDBNil
	}

	var ids []uint
	err := s.db.WithContext(ctx).
		Model(&models.ModuleRole{}).
		Where("module_id = ?", moduleID).
		Order("role_id").
		Pluck("role_id", &ids).Error

	return ids, err
}

// RoleGroupMapping resolves a module and role to a directory group.
func (s *Store) RoleGroupMapping(ctx context.Context, moduleID, roleID uint) (*models.RoleGroupMapping, error) {
	if s.db == nil {
		return nil, ErrDBNil
	}

	var mapping models.RoleGroupMapping
	err := s.db.WithContext(ctx).
		Where("module_id = ? AND role_id = ?", moduleID, roleID).
		First(&mapping).Error
	if err != nil {
		return nil, notFound(err, ErrMappingNotFound)
	}

	return &mapping, nil
}

func notFound(err, sentinel error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return sentinel
	}

	return err
}
