package database

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/zfogg/huddle/internal/models"
	"gorm.io/gorm"
)

func TestOpenRejectsUnknownDriver(t *testing.T) {
	_, err := Open("mysql", "", false)
	assert.Error(t, err)
}

func TestOpenMemoryMigrates(t *testing.T) {
	db, err := OpenMemory(t.Name())
	require.NoError(t, err)
	require.NoError(t, Health(db))

	for _, m := range models.AllModels() {
		assert.True(t, db.Migrator().HasTable(m), "missing table for %T", m)
	}
}

func TestLikeUniqueIndexIsTranslated(t *testing.T) {
	db, err := OpenMemory(t.Name())
	require.NoError(t, err)

	require.NoError(t, db.Create(&models.PostLike{PostID: "p1", UserID: "u1"}).Error)
	err = db.Create(&models.PostLike{PostID: "p1", UserID: "u1"}).Error
	assert.ErrorIs(t, err, gorm.ErrDuplicatedKey)
}

func TestHealthWithoutDB(t *testing.T) {
	assert.Error(t, Health(nil))
}

func TestTables(t *testing.T) {
	db, err := OpenMemory(t.Name())
	require.NoError(t, err)

	tables := Tables(db)
	require.Len(t, tables, len(models.AllModels()))
	names := make([]string, 0, len(tables))
	for _, table := range tables {
		assert.True(t, table.Exists, table.Name)
		names = append(names, table.Name)
	}
	assert.Contains(t, names, "post_likes")
	assert.Contains(t, names, "chat_messages")

	require.NoError(t, db.Migrator().DropTable(&models.ChatMessage{}))
	for _, table := range Tables(db) {
		if table.Name == "chat_messages" {
			assert.False(t, table.Exists)
		}
	}
}
