// Package ledger records the per account and module sync state of assignments.
//
// A row moves from pending to synced or failed. Failed and pending rows are
// retryable, and re-entering synced never errors.
package ledger

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/staffgate/staffgate/internal/db/models"
)

var (
	// ErrDBNil is returned when the database connection is nil.
	ErrDBNil = errors.New("database connection is nil")
	// ErrAssignmentNotFound is returned when no ledger row exists.
	ErrAssignmentNotFound = errors.New("assignment not found")
)

// Ledger is the durable record of account to module assignments.
type Ledger struct {
	db  *gorm.DB
	now func() time.Time
}

// New creates a Ledger over db. db may be a transaction handle.
func New(db *gorm.DB) *Ledger {
	return &Ledger{db: db, now: time.Now}
}

// WithClock replaces the clock used for last synced timestamps.
func (l *Ledger) WithClock(now func() time.Time) *Ledger {
	l.now = now
	return l
}

// Upsert creates the row for (accountID, moduleID) or updates the existing one.
// A changed role or location resets the row to pending and clears the last error.
// Concurrent callers converge on a single row through the unique (account, module) index.
func (l *Ledger) Upsert(
	ctx context.Context,
	accountID uint64,
	moduleID, roleID uint,
	location string,
) (*models.Assignment, error) {
	if l.db == nil {
		return nil, ErrDBNil
	}

	db := l.db.WithContext(ctx)

	entry := models.Assignment{
		AccountID:  accountID,
		ModuleID:   moduleID,
		RoleID:     roleID,
		Location:   location,
		SyncStatus: models.SyncStatusPending,
	}

	err := db.Omit(clause.Associations).
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(&entry).Error
	if err != nil {
		return nil, err
	}

	err = db.Model(&models.Assignment{}).
		Where("account_id = ? AND module_id = ?", accountID, moduleID).
		Where("(role_id <> ? OR location <> ?)", roleID, location).
		Updates(map[string]any{
			"role_id":     roleID,
			"location":    location,
			"sync_status": models.SyncStatusPending,
			"last_error":  nil,
		}).Error
	if err != nil {
		return nil, err
	}

	return l.Get(ctx, accountID, moduleID)
}

// Get returns the row for (accountID, moduleID).
func (l *Ledger) Get(ctx context.Context, accountID uint64, moduleID uint) (*models.Assignment, error) {
	if l.db == nil {
		return nil, ErrDBNil
	}

	var entry models.Assignment
	err := l.db.WithContext(ctx).
		Where("account_id = ? AND module_id = ?", accountID, moduleID).
		First(&entry).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrAssignmentNotFound
		}

		return nil, err
	}

	return &entry, nil
}

// MarkSynced records full success. A nil externalID keeps the stored identifier.
func (l *Ledger) MarkSynced(ctx context.Context, id uint64, externalID *string) error {
	fields := map[string]any{
		"sync_status":    models.SyncStatusSynced,
		"last_error":     nil,
		"last_synced_at": l.now(),
	}
	if externalID != nil {
		fields["external_id"] = *externalID
	}

	return l.update(ctx, id, fields)
}

// MarkFailed records a failed required step and keeps msg for diagnosis.
func (l *Ledger) MarkFailed(ctx context.Context, id uint64, msg string) error {
	return l.update(ctx, id, map[string]any{
		"sync_status": models.SyncStatusFailed,
		"last_error":  msg,
	})
}

// MarkPending flags the row for another attempt. The last error is kept.
func (l *Ledger) MarkPending(ctx context.Context, id uint64) error {
	return l.update(ctx, id, map[string]any{
		"sync_status": models.SyncStatusPending,
	})
}

// Failed lists the failed rows of an account.
func (l *Ledger) Failed(ctx context.Context, accountID uint64) ([]models.Assignment, error) {
	return l.find(ctx, "account_id = ? AND sync_status = ?", accountID, models.SyncStatusFailed)
}

// ForAccount lists every row of an account.
func (l *Ledger) ForAccount(ctx context.Context, accountID uint64) ([]models.Assignment, error) {
	return l.find(ctx, "account_id = ?", accountID)
}

// Delete removes the row for (accountID, moduleID). Missing rows are not an error.
func (l *Ledger) Delete(ctx context.Context, accountID uint64, moduleID uint) error {
	if l.db == nil {
		return ErrDBNil
	}

	return l.db.WithContext(ctx).
		Where("account_id = ? AND module_id = ?", accountID, moduleID).
		Delete(&models.Assignment{}).Error
}

func (l *Ledger) find(ctx context.Context, query string, args ...any) ([]models.Assignment, error) {
	if l.db == nil {
		return nil, ErrDBNil
	}

	var entries []models.Assignment
	err := l.db.WithContext(ctx).Where(query, args...).Order("module_id").Find(&entries).Error

	return entries, err
}

func (l *Ledger) update(ctx context.Context, id uint64, fields map[string]any) error {
	if l.db == nil {
		return ErrDBNil
	}

	result := l.db.WithContext(ctx).Model(&models.Assignment{}).Where("id = ?", id).Updates(fields)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrAssignmentNotFound
	}

	return nil
}
