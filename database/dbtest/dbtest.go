// Package dbtest provides throwaway databases for tests.
package dbtest

import (
	"fmt"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/JokingLove/whale-alert-sync/database"
)

// NewSqliteDB opens a private in-memory sqlite database with the schema applied.
func NewSqliteDB(t testing.TB) *database.DB {
	db, _ := NewSqliteDBWithGorm(t)
	return db
}

// NewSqliteDBWithGorm also returns the raw handle, for tests that need to
// break the schema or inspect rows no repository exposes.
func NewSqliteDBWithGorm(t testing.TB) (*database.DB, *gorm.DB) {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.NewString())
	gormDb, err := gorm.Open(sqlite.Open(dsn), database.GormConfig())
	require.NoError(t, err)

	sqlDB, err := gormDb.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)

	db := database.NewDBFromGorm(gormDb)
	require.NoError(t, db.AutoMigrate())
	t.Cleanup(func() { _ = db.Close() })
	return db, gormDb
}
