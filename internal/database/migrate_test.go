package database

import (
	"testing"

	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/noah-isme/gema-course-api/internal/models"
)

func TestMigrateCreatesTables(t *testing.T) {
	db, err := gorm.Open(sqlite.Open("file:migrate_test?mode=memory&cache=shared"), &gorm.Config{})
	require.NoError(t, err)

	require.NoError(t, Migrate(db))

	for _, model := range models.All() {
		require.True(t, db.Migrator().HasTable(model))
	}
}

func TestConnectersRejectEmptyURLs(t *testing.T) {
	_, err := ConnectPostgres("")
	require.Error(t, err)

	_, err = ConnectRedis("")
	require.Error(t, err)

	_, err = ConnectNATS("", "test")
	require.Error(t, err)
}
