package database

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm/logger"
)

func TestNewSQLiteCreatesDirectory(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "chat.db")

	db, err := New(&Config{Driver: "sqlite", FilePath: path})
	require.NoError(t, err)
	defer Close(db)

	type probe struct {
		ID   uint
		Name string
	}
	require.NoError(t, AutoMigrate(db, &probe{}))
	require.NoError(t, db.Create(&probe{Name: "x"}).Error)
	assert.FileExists(t, path)
}

func TestNewUnsupportedDriver(t *testing.T) {
	_, err := New(&Config{Driver: "oracle"})
	assert.Error(t, err)
}

func TestParseLogLevel(t *testing.T) {
	assert.Equal(t, logger.Silent, parseLogLevel(""))
	assert.Equal(t, logger.Silent, parseLogLevel("silent"))
	assert.Equal(t, logger.Error, parseLogLevel("ERROR"))
	assert.Equal(t, logger.Info, parseLogLevel("info"))
	assert.Equal(t, logger.Warn, parseLogLevel("warn"))
	assert.Equal(t, logger.Warn, parseLogLevel("whatever"))
}
