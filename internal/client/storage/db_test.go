package storage

import (
	"context"
	"database/sql"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/catermarket/caterauth/internal/client/repositories/metadata"
)

func tableExists(t *testing.T, db *sql.DB, name string) bool {
	t.Helper()
	var n int
	err := db.QueryRow(`SELECT COUNT(*) FROM sqlite_master WHERE type='table' AND name=?`, name).Scan(&n)
	require.NoError(t, err)
	return n > 0
}

func TestOpenDatabase_CreatesSchema(t *testing.T) {
	ctx := context.Background()
	dsn := filepath.Join(t.TempDir(), "client.db")

	db, err := OpenDatabase(ctx, dsn)
	require.NoError(t, err)
	defer db.Close()

	assert.True(t, tableExists(t, db, "goose_db_version"))
	assert.True(t, tableExists(t, db, "metadata"))
}

func TestRunMigrations_IsIdempotent(t *testing.T) {
	ctx := context.Background()
	dsn := filepath.Join(t.TempDir(), "client.db")

	db, err := sql.Open("sqlite", dsn)
	require.NoError(t, err)
	defer db.Close()

	require.NoError(t, RunMigrations(ctx, db))
	require.NoError(t, RunMigrations(ctx, db))
	assert.True(t, tableExists(t, db, "metadata"))
}

func TestOpenPage_PlainAndSealed(t *testing.T) {
	ctx := context.Background()
	dsn := filepath.Join(t.TempDir(), "client.db")

	db, err := OpenDatabase(ctx, dsn)
	require.NoError(t, err)
	defer db.Close()

	plain, err := OpenPage(ctx, db, "")
	require.NoError(t, err)
	assert.IsType(t, &metadata.SQLiteRepository{}, plain)

	sealed, err := OpenPage(ctx, db, "device-secret")
	require.NoError(t, err)
	require.NoError(t, sealed.Set(ctx, "role", []byte("vendor")))

	raw, err := plain.Get(ctx, "role")
	require.NoError(t, err)
	assert.NotEqual(t, []byte("vendor"), raw)

	v, err := sealed.Get(ctx, "role")
	require.NoError(t, err)
	assert.Equal(t, []byte("vendor"), v)
}

func TestOpenDatabase_SharedFileSeenByTwoHandles(t *testing.T) {
	ctx := context.Background()
	dsn := filepath.Join(t.TempDir(), "client.db")

	a, err := OpenDatabase(ctx, dsn)
	require.NoError(t, err)
	defer a.Close()
	b, err := OpenDatabase(ctx, dsn)
	require.NoError(t, err)
	defer b.Close()

	require.NoError(t, metadata.NewSQLiteRepository(a).Set(ctx, "accessToken", []byte("t")))
	v, err := metadata.NewSQLiteRepository(b).Get(ctx, "accessToken")
	require.NoError(t, err)
	assert.Equal(t, []byte("t"), v)
}

func TestOpenDatabase_CreatesProfileDirectory(t *testing.T) {
	ctx := context.Background()
	dsn := "file:" + filepath.Join(t.TempDir(), "profiles", "work", "client.db")

	db, err := OpenDatabase(ctx, dsn)
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	_, err = db.ExecContext(ctx, `INSERT INTO metadata(key, value) VALUES ('k', x'01')`)
	require.NoError(t, err)
}
