// Package dbtest opens migrated in-memory databases for tests.
package dbtest

import (
	"testing"

	"github.com/glebarez/sqlite"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/staffgate/staffgate/internal/db/models"
)

// Open creates an in-memory SQLite database with every model migrated.
// The pool is limited to one connection so every statement sees the same memory database.
func Open(t testing.TB) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err, "failed to create test database")

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)

	t.Cleanup(func() { _ = sqlDB.Close() })

	require.NoError(t, db.AutoMigrate(models.All()...), "failed to migrate test database")

	return db
}

// Fixture holds a minimal provisioning catalogue.
type Fixture struct {
	Company models.Company
	Manager models.Role
	Officer models.Role
	SCM     models.Module
	HRMS    models.Module
}

// Seed inserts one company, the Manager and Officer roles, and the SCM and HRMS modules.
// SCM requires group assignment; HRMS requires nothing.
func Seed(t testing.TB, db *gorm.DB) Fixture {
	t.Helper()

	f := Fixture{
		Company: models.Company{Code: "CO", Name: "Company"},
		Manager: models.Role{Name: "Manager", Code: "MGR"},
		Officer: models.Role{Name: "Officer", Code: "OFF"},
		SCM:     models.Module{Code: "SCM", Name: "Supply Chain", RequiresGroupAssignment: true},
		HRMS:    models.Module{Code: "HRMS", Name: "Human Resources"},
	}

	require.NoError(t, db.Create(&f.Company).Error)
	require.NoError(t, db.Create(&f.Manager).Error)
	require.NoError(t, db.Create(&f.Officer).Error)
	require.NoError(t, db.Create(&f.SCM).Error)
	require.NoError(t, db.Create(&f.HRMS).Error)

	return f
}
