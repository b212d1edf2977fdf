package database

import (
	"bytes"
	"context"
	"log/slog"
	"path/filepath"
	"testing"
	"time"

	"kanmind/backend/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm/logger"
)

func newMemoryPool(t *testing.T) *DatabasePool {
	t.Helper()
	config := DefaultPoolConfig()
	config.Driver = DriverSQLite
	config.DSN = ":memory:"
	config.LogLevel = logger.Silent

	pool, err := NewDatabasePool(config)
	require.NoError(t, err)
	t.Cleanup(func() { _ = pool.Close() })
	return pool
}

func TestDefaultPoolConfig(t *testing.T) {
	config := DefaultPoolConfig()

	assert.Equal(t, DriverPostgres, config.Driver)
	assert.Equal(t, 25, config.MaxOpenConns)
	assert.Equal(t, 10, config.MaxIdleConns)
	assert.Equal(t, time.Hour, config.ConnMaxLifetime)
	assert.Equal(t, 30*time.Minute, config.ConnMaxIdleTime)
	assert.Equal(t, logger.Warn, config.LogLevel)
}

func TestNewDatabasePool_RejectsBadConfig(t *testing.T) {
	tests := []struct {
		name    string
		config  *PoolConfig
		wantErr string
	}{
		{name: "nil config has no DSN", config: nil},
		{name: "empty DSN", config: &PoolConfig{LogLevel: logger.Silent}},
		{name: "unsupported driver", config: &PoolConfig{Driver: "oracle", DSN: "whatever"}, wantErr: "unsupported"},
		{
			name: "negative limits",
			config: &PoolConfig{
				Driver:          DriverSQLite,
				DSN:             ":memory:",
				MaxOpenConns:    -1,
				MaxIdleConns:    -1,
				ConnMaxLifetime: -time.Hour,
				ConnMaxIdleTime: -time.Minute,
				LogLevel:        logger.Info,
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			pool, err := NewDatabasePool(tt.config)
			require.Error(t, err)
			assert.Nil(t, pool)
			if tt.wantErr != "" {
				assert.Contains(t, err.Error(), tt.wantErr)
			}
		})
	}
}

func TestNewDatabasePool_SQLiteMemory(t *testing.T) {
	pool := newMemoryPool(t)

	assert.NoError(t, pool.Health())

	stats := pool.Stats()
	assert.NotContains(t, stats, "error")
	assert.Equal(t, 1, stats["max_open_connections"], "in-memory databases are pinned to one connection")
}

func TestMigrate_CreatesSchema(t *testing.T) {
	pool := newMemoryPool(t)
	require.NoError(t, Migrate(pool.DB))

	for _, table := range []string{"users", "boards", "board_members", "tasks", "comments", "tokens"} {
		assert.True(t, pool.DB.Migrator().HasTable(table), "missing table %s", table)
	}

	user := models.User{Username: "Jane", Email: "jane@example.com", Password: "hash"}
	require.NoError(t, pool.DB.Create(&user).Error)

	board := models.Board{Title: "Roadmap", OwnerID: user.ID}
	require.NoError(t, pool.DB.Create(&board).Error)

	due := models.NewDate(2025, time.June, 1)
	task := models.Task{BoardID: board.ID, Title: "Plan", CreatorID: user.ID, DueDate: &due}
	task.ApplyDefaults()
	require.NoError(t, pool.DB.Create(&task).Error)

	var loaded models.Task
	require.NoError(t, pool.DB.First(&loaded, task.ID).Error)
	require.NotNil(t, loaded.DueDate)
	assert.Equal(t, "2025-06-01", loaded.DueDate.String())
}

func TestDatabasePool_WithoutConnection(t *testing.T) {
	pool := &DatabasePool{config: &PoolConfig{MaxOpenConns: 10}}

	assert.NotPanics(t, func() {
		assert.Contains(t, pool.Stats(), "error")
	})
	assert.Error(t, pool.HealthContext(context.Background()))
	assert.NoError(t, pool.Close())
}

func TestGormLogger_SlowQuery(t *testing.T) {
	var buf bytes.Buffer
	log := slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))
	gormLog := NewGormLogger(log, logger.Warn, 10*time.Millisecond)
	query := func() (string, int64) { return "SELECT 1", 1 }
	ctx := context.Background()

	gormLog.Trace(ctx, time.Now().Add(-time.Second), query, nil)
	assert.Contains(t, buf.String(), "slow query")

	buf.Reset()
	gormLog.Trace(ctx, time.Now(), query, nil)
	assert.Zero(t, buf.Len(), "fast queries are silent at Warn")

	buf.Reset()
	gormLog.LogMode(logger.Silent).Trace(ctx, time.Now().Add(-time.Second), query, nil)
	assert.Zero(t, buf.Len(), "silent logger drops everything")
}

func TestSQLiteDSN_EnablesForeignKeys(t *testing.T) {
	assert.Equal(t, ":memory:?_foreign_keys=1", sqliteDSN(":memory:"))
	assert.Equal(t, "file::memory:?cache=shared&_foreign_keys=1", sqliteDSN("file::memory:?cache=shared"))
	assert.Equal(t, "kanmind.db?_fk=0", sqliteDSN("kanmind.db?_fk=0"))
}

func TestNewDatabasePool_ForeignKeysOnEveryConnection(t *testing.T) {
	config := DefaultPoolConfig()
	config.Driver = DriverSQLite
	config.DSN = filepath.Join(t.TempDir(), "kanmind.db")
	config.MaxOpenConns = 4
	config.LogLevel = logger.Silent

	pool, err := NewDatabasePool(config)
	require.NoError(t, err)
	t.Cleanup(func() { _ = pool.Close() })

	sqlDB, err := pool.DB.DB()
	require.NoError(t, err)

	ctx := context.Background()
	for i := 0; i < 3; i++ {
		// holding each connection forces the pool to open a fresh one
		conn, err := sqlDB.Conn(ctx)
		require.NoError(t, err)
		defer conn.Close()

		var enabled int
		require.NoError(t, conn.QueryRowContext(ctx, "PRAGMA foreign_keys").Scan(&enabled))
		assert.Equal(t, 1, enabled, "connection %d", i)
	}

	require.NoError(t, Migrate(pool.DB))
	orphan := models.Board{Title: "Orphan", OwnerID: 999}
	assert.Error(t, pool.DB.Create(&orphan).Error, "owner must exist")
}
