// Package dbtest opens migrated in-memory databases for tests.
package dbtest

import (
	"fmt"
	"io"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"researchhub/internal/db"
	"researchhub/internal/models"
	"researchhub/internal/utils/logger"
)

var counter atomic.Int64

// Open returns a private, migrated sqlite database. A single connection keeps
// the in-memory database alive for the test's lifetime, so code under test
// must run its statements on the transaction handle it was given.
func Open(t *testing.T) *gorm.DB {
	t.Helper()
	logger.SetOutput(io.Discard)

	name := strings.NewReplacer("/", "_", " ", "_").Replace(t.Name())
	dsn := fmt.Sprintf("file:%s_%d?mode=memory&cache=private&_foreign_keys=off", name, counter.Add(1))

	gdb, err := gorm.Open(sqlite.Open(dsn), db.GormConfig("silent"))
	require.NoError(t, err)

	sqlDB, err := gdb.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	require.NoError(t, db.Migrate(gdb))
	return gdb
}

// OpenSeeded returns a database with the default roles and permissions.
func OpenSeeded(t *testing.T) *gorm.DB {
	t.Helper()
	gdb := Open(t)
	require.NoError(t, models.SeedRBAC(gdb))
	return gdb
}
