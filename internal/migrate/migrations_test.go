package migrate

import (
	"testing"

	"github.com/stretchr/testify/require"

	"questlog/internal/db"
)

func TestMigrateIdempotent(t *testing.T) {
	conn, err := db.Open(db.Config{Workspace: t.TempDir()})
	require.NoError(t, err)
	defer conn.Close()

	require.NoError(t, Migrate(conn))
	require.NoError(t, Migrate(conn))

	var version int
	require.NoError(t, conn.QueryRow(`SELECT version FROM schema_version`).Scan(&version))
	require.Equal(t, 1, version)

	// The state table is usable after migration.
	_, err = conn.Exec(`INSERT INTO local_state(key, value, updated_at) VALUES ('k', 'v', 'now')`)
	require.NoError(t, err)
}
