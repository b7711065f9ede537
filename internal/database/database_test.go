package database

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pdflibrary/internal/domain"
	"pdflibrary/internal/logging"
)

func TestMySQLDSN(t *testing.T) {
	assert.Equal(t,
		"root:pw@tcp(db:3306)/library?parseTime=true",
		mysqlDSN("mysql://root:pw@db:3306/library"),
	)
	assert.Equal(t,
		"tcp(localhost:3306)/library?charset=utf8mb4&parseTime=true",
		mysqlDSN("mysql://localhost:3306/library?charset=utf8mb4"),
	)
	assert.Equal(t,
		"u:p@tcp(h:1)/d?parseTime=false",
		mysqlDSN("mysql://u:p@h:1/d?parseTime=false"),
	)
}

func TestConnect_SQLiteMemoryAndMigrate(t *testing.T) {
	db, err := Connect(":memory:")
	require.NoError(t, err)
	require.NoError(t, Migrate(db))

	assert.True(t, db.Migrator().HasTable(&domain.User{}))
	assert.True(t, db.Migrator().HasTable(&domain.Book{}))

	sqlDB, err := db.DB()
	require.NoError(t, err)
	assert.Equal(t, 1, sqlDB.Stats().MaxOpenConnections)
}

func TestConnect_SlowQueryLogOmitsValues(t *testing.T) {
	var out bytes.Buffer
	log := logging.NewWithOutput(&out, "debug", "text")

	// every statement counts as slow
	db, err := ConnectWithOptions(":memory:", PoolOptions{SlowThreshold: time.Nanosecond}, log)
	require.NoError(t, err)
	require.NoError(t, Migrate(db))

	payload := bytes.Repeat([]byte("Z"), 1<<20)
	book := &domain.Book{
		ID:          "b1",
		UserID:      "u1",
		Title:       "Secret Title",
		Author:      "A",
		PDFData:     payload,
		ContentType: domain.PDFContentType,
		FileName:    "big.pdf",
		FileSize:    int64(len(payload)),
	}
	require.NoError(t, db.Create(book).Error)

	logged := out.String()
	assert.Contains(t, logged, "SLOW SQL")
	assert.Contains(t, logged, "INSERT INTO")
	assert.NotContains(t, logged, strings.Repeat("Z", 64))
	assert.NotContains(t, logged, "Secret Title")
	assert.Less(t, out.Len(), len(payload))
}

func TestConnect_DoesNotLogSQLiteDSN(t *testing.T) {
	var out bytes.Buffer
	log := logging.NewWithOutput(&out, "debug", "text")

	_, err := ConnectWithOptions("file:dsnprivate?mode=memory&cache=shared", PoolOptions{}, log)
	require.NoError(t, err)

	assert.Contains(t, out.String(), "using SQLite")
	assert.NotContains(t, out.String(), "dsnprivate")
}
