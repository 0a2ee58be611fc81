// Package dbtest opens throwaway in-memory SQLite databases for tests.
package dbtest

import (
	"fmt"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/weiawesome/wes-io-chat/pkg/database"
)

var seq atomic.Int64

// Open returns a migrated database private to t and closes it on cleanup.
func Open(t testing.TB, models ...interface{}) *gorm.DB {
	t.Helper()

	name := strings.NewReplacer("/", "_", " ", "_", "#", "_").Replace(t.Name())
	dsn := fmt.Sprintf("file:%s_%d?mode=memory&cache=shared", name, seq.Add(1))

	db, err := database.New(&database.Config{
		Driver:       "sqlite",
		FilePath:     dsn,
		MaxOpenConns: 1,
	})
	require.NoError(t, err)
	require.NoError(t, database.AutoMigrate(db, models...))

	t.Cleanup(func() {
		_ = database.Close(db)
	})
	return db
}
