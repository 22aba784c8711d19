package database

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInitDB_CreatesTables(t *testing.T) {
	db, err := InitDB(":memory:", "", "")
	require.NoError(t, err, "InitDB should not return an error")
	defer db.Close()

	for _, table := range []string{"teams", "queue_entries", "pool_entries", "queue_configs", "match_history", "match_starts"} {
		t.Run(table, func(t *testing.T) {
			var name string
			err := db.QueryRow("SELECT name FROM sqlite_master WHERE type='table' AND name=?", table).Scan(&name)
			require.NoError(t, err, "Querying for %s table should not produce an error", table)
			assert.Equal(t, table, name)
		})
	}
}

func TestInitDB_IsIdempotent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "ladder.db")

	db, err := InitDB(path, "", "")
	require.NoError(t, err)
	_, err = db.Exec("INSERT INTO teams (key, name, created_at) VALUES ('alpha', 'Alpha', 0)")
	require.NoError(t, err)
	require.NoError(t, db.Close())

	db, err = InitDB(path, "", "")
	require.NoError(t, err)
	defer db.Close()

	var count int
	require.NoError(t, db.QueryRow("SELECT COUNT(*) FROM teams").Scan(&count))
	assert.Equal(t, 1, count)
}
