package db

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMigrate(t *testing.T) {
	t.Run("applies all migrations on fresh database", func(t *testing.T) {
		db, err := Open(filepath.Join(t.TempDir(), "fresh.db"), nil)
		require.NoError(t, err)
		defer db.Close()

		require.NoError(t, Migrate(db, nil))

		// processed_orders table exists
		var name string
		err = db.QueryRow(
			"SELECT name FROM sqlite_master WHERE type='table' AND name='processed_orders'",
		).Scan(&name)
		require.NoError(t, err)
		assert.Equal(t, "processed_orders", name)

		// the processed_orders migration is recorded
		var version string
		err = db.QueryRow("SELECT version FROM schema_migrations WHERE version = '001'").Scan(&version)
		require.NoError(t, err)
		assert.Equal(t, "001", version)
	})

	t.Run("is idempotent", func(t *testing.T) {
		db, err := Open(filepath.Join(t.TempDir(), "twice.db"), nil)
		require.NoError(t, err)
		defer db.Close()

		require.NoError(t, Migrate(db, nil))

		var before int
		require.NoError(t, db.QueryRow("SELECT COUNT(*) FROM schema_migrations").Scan(&before))

		require.NoError(t, Migrate(db, nil))

		var after int
		require.NoError(t, db.QueryRow("SELECT COUNT(*) FROM schema_migrations").Scan(&after))
		assert.Equal(t, before, after)
	})
}
