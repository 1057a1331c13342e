package db

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

func TestOpenWithMigrations(t *testing.T) {
	t.Run("creates schema", func(t *testing.T) {
		db, err := OpenWithMigrations(filepath.Join(t.TempDir(), "diagen.db"), zaptest.NewLogger(t).Sugar())
		require.NoError(t, err)
		defer db.Close()

		for _, table := range []string{"schema_migrations", "ai_model_usage", "generations"} {
			var name string
			err := db.QueryRow("SELECT name FROM sqlite_master WHERE type='table' AND name=?", table).Scan(&name)
			require.NoError(t, err, table)
			assert.Equal(t, table, name)
		}

		var versions []string
		rows, err := db.Query("SELECT version FROM schema_migrations ORDER BY version")
		require.NoError(t, err)
		defer rows.Close()
		for rows.Next() {
			var v string
			require.NoError(t, rows.Scan(&v))
			versions = append(versions, v)
		}
		require.NoError(t, rows.Err())
		assert.Equal(t, []string{"000", "001", "002"}, versions)
	})

	t.Run("reopening is idempotent", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "diagen.db")

		db, err := OpenWithMigrations(path, nil)
		require.NoError(t, err)
		_, err = db.Exec(`INSERT INTO generations (id, request, strategy, status, created_at)
			VALUES ('r1', 'a shop', 'llm', 'success', CURRENT_TIMESTAMP)`)
		require.NoError(t, err)
		require.NoError(t, db.Close())

		db, err = OpenWithMigrations(path, nil)
		require.NoError(t, err)
		defer db.Close()

		var count int
		require.NoError(t, db.QueryRow("SELECT COUNT(*) FROM generations").Scan(&count))
		assert.Equal(t, 1, count, "data survives a second migration pass")
	})
}

func TestMigrate_ClosedDatabase(t *testing.T) {
	db, err := Open(MemoryPath, nil)
	require.NoError(t, err)
	require.NoError(t, db.Close())

	err = Migrate(db, nil)
	require.Error(t, err)
	assert.True(t, IsDatabaseClosed(err))
}

func TestAppliedVersions(t *testing.T) {
	conn, err := OpenWithMigrations(MemoryPath, nil)
	require.NoError(t, err)
	defer conn.Close()

	versions, err := AppliedVersions(conn)
	require.NoError(t, err)
	assert.Equal(t, []string{"000", "001", "002"}, versions)

	conn.Close()
	_, err = AppliedVersions(conn)
	assert.True(t, IsDatabaseClosed(err))
}
